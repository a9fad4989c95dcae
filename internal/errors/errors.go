// Package errors defines the typed application error used across the
// module and the structured logger that knows how to report it.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeAnalysis   ErrorType = "analysis"
	ErrorTypeStorage    ErrorType = "storage"
	ErrorTypeState      ErrorType = "state"
	ErrorTypeIO         ErrorType = "io"
	ErrorTypeAI         ErrorType = "ai"
	ErrorTypeNetwork    ErrorType = "network"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeInternal   ErrorType = "internal"
)

// AppError represents a structured application error
type AppError struct {
	Type    ErrorType      `json:"type"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Cause   error          `json:"cause,omitempty"`
	Context map[string]any `json:"context,omitempty"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches another AppError with the same type and code, so sentinel
// errors keep matching after being wrapped.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Type == e.Type && t.Code == e.Code
}

func newAppError(typ ErrorType, code, message string, cause error) *AppError {
	return &AppError{
		Type:    typ,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Error constructors for different types
func NewValidationError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeValidation, code, message, cause)
}

// NewAnalysisError reports an oracle call that failed or returned an unusable payload.
func NewAnalysisError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeAnalysis, code, message, cause)
}

// NewStorageError reports durable storage that is unavailable or holds data we cannot read.
func NewStorageError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeStorage, code, message, cause)
}

// NewStateError reports an operation attempted from a step that does not allow it.
func NewStateError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeState, code, message, cause)
}

func NewIOError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeIO, code, message, cause)
}

func NewAIError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeAI, code, message, cause)
}

func NewNetworkError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeNetwork, code, message, cause)
}

func NewConfigError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeConfig, code, message, cause)
}

func NewInternalError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeInternal, code, message, cause)
}

// WithContext adds context to an error
func (e *AppError) WithContext(key string, value any) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// As returns the first AppError in err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsType reports whether err carries an AppError of the given type.
func IsType(err error, typ ErrorType) bool {
	appErr, ok := As(err)
	return ok && appErr.Type == typ
}

// Common error codes
const (
	ErrCodeFileNotFound       = "FILE_NOT_FOUND"
	ErrCodeFileNotReadable    = "FILE_NOT_READABLE"
	ErrCodeInvalidFormat      = "INVALID_FORMAT"
	ErrCodeAIServiceFailed    = "AI_SERVICE_FAILED"
	ErrCodeAITimeout          = "AI_TIMEOUT"
	ErrCodeInvalidRequest     = "INVALID_REQUEST"
	ErrCodeMissingAPIKey      = "MISSING_API_KEY"
	ErrCodeNetworkTimeout     = "NETWORK_TIMEOUT"
	ErrCodeInvalidConfig      = "INVALID_CONFIG"
	ErrCodeValidationFailed   = "VALIDATION_FAILED"
	ErrCodeAnalysisFailed     = "ANALYSIS_FAILED"
	ErrCodeStorageCorrupt     = "STORAGE_CORRUPT"
	ErrCodeStorageUnavailable = "STORAGE_UNAVAILABLE"
	ErrCodeInvalidTransition  = "INVALID_TRANSITION"
	ErrCodeSubViewUnavailable = "SUBVIEW_UNAVAILABLE"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeFetchFailed        = "FETCH_FAILED"
	ErrCodeTooManySessions    = "TOO_MANY_SESSIONS"
)
