package api

import (
	"classboard-api/domain"
)

const requestBodyMaxSize = 64 * 1024 // 64 KiB

type errorResponse struct {
	Error string `json:"error"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token    string   `json:"token"`
	Username string   `json:"username"`
	FullName string   `json:"fullName"`
	Role     string   `json:"role"`
	Class    string   `json:"class,omitempty"`
	Classes  []string `json:"classes,omitempty"`
}

type subjectGroupView struct {
	Subject   string             `json:"subject"`
	Completed int                `json:"completed"`
	Tasks     []domain.TaskState `json:"tasks"`
}

type tasksViewResponse struct {
	Subjects []subjectGroupView    `json:"subjects"`
	Points   []domain.SubjectScore `json:"points"`
	Progress int                   `json:"progress"`
}

type scheduleViewResponse struct {
	Entries []domain.ScheduleEntry `json:"entries"`
	Today   []string               `json:"today"`
}

type coursesViewResponse struct {
	Courses  []courseView `json:"courses"`
	Progress int          `json:"progress"`
}

type courseView struct {
	Course    domain.Course `json:"course"`
	Completed bool          `json:"completed"`
}

type adminTasksResponse struct {
	Tasks []domain.TaskState `json:"tasks"`
}

type createTaskRequest struct {
	Class       string `json:"class" validate:"required"`
	Subject     string `json:"subject" validate:"required"`
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	DueDate     string `json:"dueDate" validate:"required"`
}

type createTaskResponse struct {
	TaskID string `json:"taskId"`
}

type markCompleteRequest struct {
	ItemID   string  `json:"itemId" validate:"required"`
	ItemType string  `json:"itemType" validate:"required,oneof=task course"`
	Grade    float64 `json:"grade" validate:"gte=0"`
}

type changePasswordRequest struct {
	Username string `json:"username" validate:"required"`
	Current  string `json:"current" validate:"required"`
	New      string `json:"new" validate:"required,min=4"`
}
