package templating

import (
	"errors"
	"fmt"
)

// Error codes
const (
	ErrCodeTemplateNotFound     = "TEMPLATE_NOT_FOUND"
	ErrCodeNestedBlock          = "NESTED_BLOCK"
	ErrCodeNoOpenBlock          = "NO_OPEN_BLOCK"
	ErrCodeUnclosedBlock        = "UNCLOSED_BLOCK"
	ErrCodeUndefinedBlock       = "UNDEFINED_BLOCK"
	ErrCodeInvalidMetadata      = "INVALID_METADATA"
	ErrCodeInvalidRootDirectory = "INVALID_ROOT_DIRECTORY"
	ErrCodeRenderFailed         = "RENDER_FAILED"
	ErrCodeStorageFailed        = "STORAGE_FAILED"
)

// Error is a templating error carrying a machine readable code
type Error struct {
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new templating error
func NewError(code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Errorf creates a templating error with a formatted message and no cause
func Errorf(code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// CodeOf returns the code of the first templating error in err's chain,
// or an empty string.
func CodeOf(err error) string {
	var te *Error
	if errors.As(err, &te) {
		return te.Code
	}
	return ""
}

// IsCode reports whether err carries the given templating error code
func IsCode(err error, code string) bool {
	return CodeOf(err) == code
}
