package engine

import (
	"fmt"

	"github.com/yungbote/journeyengine/internal/platform/apierr"
)

// The engine's error kinds, as sentinel *apierr.Error values. errors.Is
// matches any wrapped instance sharing the sentinel's Code (see
// apierr.Error.Is), so callers write errors.Is(err, engine.ErrCaseNotFound)
// regardless of which concrete instance was returned.
var (
	ErrDefinitionInvalid   = &apierr.Error{Status: 422, Code: "DefinitionInvalid"}
	ErrCaseNotFound        = &apierr.Error{Status: 404, Code: "CaseNotFound"}
	ErrCaseAlreadyExists   = &apierr.Error{Status: 409, Code: "CaseAlreadyExists"}
	ErrCaseAlreadyComplete = &apierr.Error{Status: 409, Code: "CaseAlreadyComplete"}
	ErrExecutorSaturated   = &apierr.Error{Status: 503, Code: "ExecutorSaturated", Retryable: true}
	ErrUserStepThrew       = &apierr.Error{Status: 500, Code: "UserStepThrew"}
	ErrUnknownTicket       = &apierr.Error{Status: 400, Code: "UnknownTicket"}
	ErrPersistFailed       = &apierr.Error{Status: 500, Code: "PersistFailed"}
	ErrInvariantViolation  = &apierr.Error{Status: 500, Code: "InvariantViolation"}
)

// wrap builds a fresh error carrying sentinel's Status/Code/Retryable and
// the supplied detail, suitable for errors.Is comparison against sentinel.
func wrap(sentinel *apierr.Error, err error) *apierr.Error {
	return &apierr.Error{Status: sentinel.Status, Code: sentinel.Code, Err: err, Retryable: sentinel.Retryable}
}

func wrapf(sentinel *apierr.Error, format string, args ...interface{}) *apierr.Error {
	return wrap(sentinel, fmt.Errorf(format, args...))
}
