package sheets

// Well-known sheet names. Per-class and per-user sheets follow fixed naming
// conventions established by the remote store's layout.
const (
	CredentialsSheet     = "user_credentials"
	PasswordUpdatesSheet = "password_updates"
)

// TaskSheet names the master task sheet of a class.
func TaskSheet(class string) string { return class + "_tasks_master" }

// CourseSheet names the course sheet of a class.
func CourseSheet(class string) string { return class + "_courses" }

// ScheduleSheet names the weekly schedule sheet of a class.
func ScheduleSheet(class string) string { return class + "_schedule" }

// ProgressSheet names a user's append-only progress log.
func ProgressSheet(username string) string { return username + "_progress" }
