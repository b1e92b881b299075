package sheets

import "fmt"

// ErrorKind classifies a failed store operation.
type ErrorKind int

const (
	// KindTransport covers network failures and non-success HTTP statuses.
	KindTransport ErrorKind = iota
	// KindMalformed covers non-JSON bodies and unexpected response shapes.
	KindMalformed
	// KindRemote covers a well-formed response carrying an error payload
	// instead of rows, e.g. {"error": "sheet not found"}.
	KindRemote
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindMalformed:
		return "malformed"
	case KindRemote:
		return "remote"
	default:
		return "unknown"
	}
}

// Error is the single error type crossing the store boundary. Transport and
// parsing failures are folded into it so callers can treat any failure as
// "no data" without inspecting causes they cannot act on.
type Error struct {
	Kind  ErrorKind
	Sheet string
	Msg   string
	cause error
}

func (e *Error) Error() string {
	if e.Sheet != "" {
		return fmt.Sprintf("sheets: %s: %s: %s", e.Sheet, e.Kind, e.Msg)
	}
	return fmt.Sprintf("sheets: %s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.cause }

func newError(kind ErrorKind, sheet, msg string, cause error) *Error {
	return &Error{Kind: kind, Sheet: sheet, Msg: msg, cause: cause}
}
