package session

import "errors"

var (
	// ErrAuthFailed means no credential row matched the presented identity.
	ErrAuthFailed = errors.New("invalid username or password")
	// ErrAccessDenied means the requested class/subject pair lies outside
	// the session's computed scope.
	ErrAccessDenied = errors.New("access denied")
	// ErrNoSession means the presented session id is unknown or expired.
	ErrNoSession = errors.New("no such session")
)
