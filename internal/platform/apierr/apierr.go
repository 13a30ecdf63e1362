package apierr

import "fmt"

// Error is the engine's one error shape. Status is a caller-facing numeric
// code (free-form; the engine package assigns one per error kind), Code is
// a short machine-stable name ("CaseNotFound", "PersistFailed", ...), and
// Retryable tells a host whether resubmitting the same call might succeed.
type Error struct {
	Status    int
	Code      string
	Err       error
	Retryable bool
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		if e.Code != "" {
			return fmt.Sprintf("%s: %s", e.Code, e.Err.Error())
		}
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, SentinelError) match any *Error sharing the same
// Code, even though every call site wraps a fresh instance carrying its
// own Err detail.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t == nil {
		return false
	}
	return e.Code == t.Code
}

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func NewRetryable(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err, Retryable: true}
}
