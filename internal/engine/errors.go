package engine

import "errors"

type Code string

const (
	CodeValidation                   Code = "validation"
	CodeNotFound                     Code = "not_found"
	CodePreconditionViolation        Code = "precondition_violation"
	CodeReductionBelowCompletedCount Code = "reduction_below_completed_count"
)

type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newError(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// CodeOf reports the engine code carried by err, or "" when err did not
// originate in the engine.
func CodeOf(err error) Code {
	var engErr *Error
	if errors.As(err, &engErr) {
		return engErr.Code
	}
	return ""
}

func MessageOf(err error) string {
	var engErr *Error
	if errors.As(err, &engErr) {
		return engErr.Error()
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
