package app

import (
	"errors"
	"fmt"
)

// CommonError represents application-level errors
type CommonError struct {
	Code    string
	Message string
	Cause   error
}

func (e *CommonError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *CommonError) Unwrap() error {
	return e.Cause
}

// Common error codes
const (
	ErrCodeInvalidInput  = "INVALID_INPUT"
	ErrCodeConfiguration = "CONFIGURATION"
	ErrCodeIO            = "IO"
	ErrCodeExternalTool  = "EXTERNAL_TOOL"
)

// NewError creates a new CommonError
func NewError(code, message string, cause error) *CommonError {
	return &CommonError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Errorf creates a CommonError without a cause from a format string
func Errorf(code, format string, args ...any) *CommonError {
	return &CommonError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// IsCode reports whether any CommonError in err's chain carries the given code
func IsCode(err error, code string) bool {
	var ce *CommonError
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}

// Code returns the code of the outermost CommonError in err's chain, or "" if none
func Code(err error) string {
	var ce *CommonError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}
