package tabledoc

import "errors"

// CodeRowNotFound is the stable error code attached to a single-row read
// with no match, matching the code the real backend emits for the same
// condition.
const CodeRowNotFound = "PGRST116"

// Error is a data-layer error carrying a machine-readable code alongside
// the message. Expected conditions are returned as values, never panics.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message + " (" + e.Code + ")"
}

// ErrRowNotFound is returned by single-row reads with no matching row.
var ErrRowNotFound = &Error{Code: CodeRowNotFound, Message: "row not found"}

var (
	errNoAction     = errors.New("query has no action")
	errNoTable      = errors.New("query has no table")
	errEmptyPayload = errors.New("insert requires at least one row")
	errNilExecutor  = errors.New("query has no executor")
)
