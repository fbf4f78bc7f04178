package trace

import (
	"errors"
	"fmt"
)

// Construction and caller-misuse errors. These are permanent: retrying the
// same call cannot succeed.
var (
	// ErrInvalidParameter marks malformed constructor input, such as a
	// missing log path or an unknown dialect name.
	ErrInvalidParameter = errors.New("trace: invalid parameter")

	// ErrLogFile marks a log path that is missing or unreadable at bind time.
	ErrLogFile = errors.New("trace: log file unreadable")

	// ErrUnimplemented marks a search invoked on a Tracer that was never
	// bound to a dialect or record source. Programming error.
	ErrUnimplemented = errors.New("trace: no dialect bound")

	// ErrNoCriteria marks a search requested with no identifying facts set.
	ErrNoCriteria = errors.New("trace: no search criteria defined")
)

// ErrIncompleteLog is the common ancestor of the two recoverable window
// failures. Callers match it with errors.Is to decide "retry once more log
// data exists" versus caller misuse.
var ErrIncompleteLog = errors.New("trace: incomplete log")

// Phase-specific reasons wrapped by IncompleteLogError.
var (
	// ErrStartPredatesLog: the backward phase exhausted the log before
	// finding the connection start.
	ErrStartPredatesLog = errors.New("connection start predates log")

	// ErrEndPredatesLog: the forward phase exhausted the log before reaching
	// the completion sentinel.
	ErrEndPredatesLog = errors.New("log ends before disconnection")
)

// IncompleteLogError reports that a trace ran off either edge of the
// available log window. The session record still holds whatever partial
// information was gathered before the edge was hit.
type IncompleteLogError struct {
	Reason error // ErrStartPredatesLog or ErrEndPredatesLog
	Line   int   // cursor line when the window edge was hit
}

func (e *IncompleteLogError) Error() string {
	return fmt.Sprintf("trace: incomplete log at line %d: %v", e.Line, e.Reason)
}

// Unwrap lets errors.Is match both ErrIncompleteLog and the phase reason.
func (e *IncompleteLogError) Unwrap() []error {
	return []error{ErrIncompleteLog, e.Reason}
}
