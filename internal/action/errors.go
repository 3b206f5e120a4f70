// internal/action/errors.go
package action

import "errors"

// Sentinel errors returned by Action construction, invocation and ActionSpace lookup.
// Callers match them with errors.Is; the concrete error always carries the action
// or argument name that triggered it.
var (
	ErrActionDisabled      = errors.New("action is disabled")
	ErrActionUnimplemented = errors.New("action is not implemented")
	ErrInvalidArguments    = errors.New("invalid action arguments")
	ErrActionNotFound      = errors.New("action not found")
	ErrInvalidSchema       = errors.New("invalid argument schema")
	ErrInvalidDefinition   = errors.New("invalid action definition")
	ErrDuplicateAction     = errors.New("duplicate action name")
)

// ErrorCode is a string type used for structured error reporting in logs and step info.
type ErrorCode string

const (
	CodeNone              ErrorCode = ""
	CodeActionDisabled    ErrorCode = "ACTION_DISABLED"
	CodeNotImplemented    ErrorCode = "NOT_IMPLEMENTED"
	CodeInvalidArguments  ErrorCode = "INVALID_ARGUMENTS"
	CodeUnknownAction     ErrorCode = "UNKNOWN_ACTION"
	CodeInvalidDefinition ErrorCode = "INVALID_DEFINITION"
	CodeExecutionFailure  ErrorCode = "EXECUTION_FAILURE"
)

// CodeOf maps an error produced by this package to its ErrorCode. Errors that did not
// originate here (for example, a failure inside an action's executable) map to
// CodeExecutionFailure.
func CodeOf(err error) ErrorCode {
	switch {
	case err == nil:
		return CodeNone
	case errors.Is(err, ErrActionDisabled):
		return CodeActionDisabled
	case errors.Is(err, ErrActionUnimplemented):
		return CodeNotImplemented
	case errors.Is(err, ErrInvalidArguments):
		return CodeInvalidArguments
	case errors.Is(err, ErrActionNotFound):
		return CodeUnknownAction
	case errors.Is(err, ErrInvalidSchema), errors.Is(err, ErrInvalidDefinition), errors.Is(err, ErrDuplicateAction):
		return CodeInvalidDefinition
	default:
		return CodeExecutionFailure
	}
}
