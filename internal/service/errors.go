package service

import (
	"errors"

	"github.com/simonjohansson/gemtracker/internal/engine"
)

type Code string

const (
	CodeValidation    Code = "validation"
	CodeNotFound      Code = "not_found"
	CodeConflict      Code = "conflict"
	CodePrecondition  Code = "precondition"
	CodeUnprocessable Code = "unprocessable"
	CodeInternal      Code = "internal"
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

func newError(code Code, msg string, err error) *Error {
	return &Error{
		Code:    code,
		Message: msg,
		Err:     err,
	}
}

// fromEngine translates a rule failure into a service error. The engine error
// stays reachable through Unwrap.
func fromEngine(err error) *Error {
	msg := engine.MessageOf(err)
	switch engine.CodeOf(err) {
	case engine.CodeValidation:
		return newError(CodeValidation, msg, err)
	case engine.CodeNotFound:
		return newError(CodeNotFound, msg, err)
	case engine.CodePreconditionViolation:
		return newError(CodePrecondition, msg, err)
	case engine.CodeReductionBelowCompletedCount:
		return newError(CodeUnprocessable, msg, err)
	default:
		return newError(CodeInternal, msg, err)
	}
}

func CodeOf(err error) Code {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

func MessageOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Error()
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
