package dto

import (
	"net/http"

	"github.com/alexclassroom/woocommerce/internal/domain/templating"
)

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
	// ErrCodeUnavailable is used when a dependency is down
	ErrCodeUnavailable = "ERR_UNAVAILABLE"
)

// Input error codes
const (
	ErrCodeValidation   = "ERR_VALIDATION"
	ErrCodeBadRequest   = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	ErrCodeInvalidJSON  = "ERR_INVALID_JSON"
	ErrCodeTooLarge     = "ERR_REQUEST_TOO_LARGE"
)

// Resource error codes
const (
	ErrCodeNotFound = "ERR_NOT_FOUND"
	ErrCodeConflict = "ERR_CONFLICT"
)

// Templating error codes
const (
	ErrCodeTemplateNotFound     = "ERR_TEMPLATE_NOT_FOUND"
	ErrCodeNestedBlock          = "ERR_TEMPLATE_NESTED_BLOCK"
	ErrCodeNoOpenBlock          = "ERR_TEMPLATE_NO_OPEN_BLOCK"
	ErrCodeUnclosedBlock        = "ERR_TEMPLATE_UNCLOSED_BLOCK"
	ErrCodeUndefinedBlock       = "ERR_TEMPLATE_UNDEFINED_BLOCK"
	ErrCodeRenderFailed         = "ERR_TEMPLATE_RENDER_FAILED"
	ErrCodeInvalidMetadata      = "ERR_INVALID_METADATA"
	ErrCodeInvalidRootDirectory = "ERR_INVALID_ROOT_DIRECTORY"
	ErrCodeStorageFailed        = "ERR_STORAGE_FAILED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	// General errors
	ErrCodeUnknown:     http.StatusInternalServerError,
	ErrCodeInternal:    http.StatusInternalServerError,
	ErrCodeUnavailable: http.StatusServiceUnavailable,

	// Input errors -> 400 Bad Request
	ErrCodeValidation:   http.StatusBadRequest,
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeInvalidJSON:  http.StatusBadRequest,
	ErrCodeTooLarge:     http.StatusRequestEntityTooLarge,

	// Resource errors
	ErrCodeNotFound: http.StatusNotFound,
	ErrCodeConflict: http.StatusConflict,

	// Template logic errors -> 422 Unprocessable Entity
	ErrCodeTemplateNotFound: http.StatusUnprocessableEntity,
	ErrCodeNestedBlock:      http.StatusUnprocessableEntity,
	ErrCodeNoOpenBlock:      http.StatusUnprocessableEntity,
	ErrCodeUnclosedBlock:    http.StatusUnprocessableEntity,
	ErrCodeUndefinedBlock:   http.StatusUnprocessableEntity,
	ErrCodeRenderFailed:     http.StatusUnprocessableEntity,
	ErrCodeInvalidMetadata:  http.StatusUnprocessableEntity,

	// Storage errors -> 500
	ErrCodeInvalidRootDirectory: http.StatusInternalServerError,
	ErrCodeStorageFailed:        http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to API error codes
var DomainErrorCodeMapping = map[string]string{
	"NOT_FOUND":     ErrCodeNotFound,
	"INVALID_INPUT": ErrCodeInvalidInput,

	templating.ErrCodeTemplateNotFound:     ErrCodeTemplateNotFound,
	templating.ErrCodeNestedBlock:          ErrCodeNestedBlock,
	templating.ErrCodeNoOpenBlock:          ErrCodeNoOpenBlock,
	templating.ErrCodeUnclosedBlock:        ErrCodeUnclosedBlock,
	templating.ErrCodeUndefinedBlock:       ErrCodeUndefinedBlock,
	templating.ErrCodeRenderFailed:         ErrCodeRenderFailed,
	templating.ErrCodeInvalidMetadata:      ErrCodeInvalidMetadata,
	templating.ErrCodeInvalidRootDirectory: ErrCodeInvalidRootDirectory,
	templating.ErrCodeStorageFailed:        ErrCodeStorageFailed,
}

// NormalizeErrorCode converts a domain error code to the API format.
// Codes already in the API format or unknown are returned as-is.
func NormalizeErrorCode(code string) string {
	if newCode, ok := DomainErrorCodeMapping[code]; ok {
		return newCode
	}
	return code
}
