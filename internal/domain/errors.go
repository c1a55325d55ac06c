package domain

import (
	"fmt"
)

type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Err        error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches any AppError carrying the same code, so derived errors still
// satisfy errors.Is against the package sentinels.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Code:       e.Code,
		Message:    e.Message,
		StatusCode: e.StatusCode,
		Err:        err,
	}
}

func (e *AppError) WithMessage(msg string) *AppError {
	return &AppError{
		Code:       e.Code,
		Message:    msg,
		StatusCode: e.StatusCode,
		Err:        e.Err,
	}
}

// Pre-defined errors
var (
	ErrInternal = &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    "An unexpected error occurred",
		StatusCode: 500,
	}

	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "Invalid request",
		StatusCode: 400,
	}

	ErrValidationFailed = &AppError{
		Code:       "VALIDATION_FAILED",
		Message:    "Request validation failed",
		StatusCode: 422,
	}

	// Engine errors
	ErrInvalidHandle = &AppError{
		Code:       "INVALID_HANDLE",
		Message:    "Invalid engine handle",
		StatusCode: 404,
	}

	ErrInitializationFailure = &AppError{
		Code:       "INITIALIZATION_FAILURE",
		Message:    "Failed to initialize engine",
		StatusCode: 422,
	}

	ErrMissingCapability = &AppError{
		Code:       "MISSING_CAPABILITY",
		Message:    "Engine lacks the required capability",
		StatusCode: 422,
	}

	ErrUnsupportedOperation = &AppError{
		Code:       "UNSUPPORTED_OPERATION",
		Message:    "Operation not supported by this backend",
		StatusCode: 501,
	}

	// Marshaling and scoring errors
	ErrMalformedBuffer = &AppError{
		Code:       "MALFORMED_BUFFER",
		Message:    "Image buffer does not match declared dimensions",
		StatusCode: 400,
	}

	ErrDimensionMismatch = &AppError{
		Code:       "DIMENSION_MISMATCH",
		Message:    "Encoding lengths do not match",
		StatusCode: 422,
	}

	ErrDegenerateEncoding = &AppError{
		Code:       "DEGENERATE_ENCODING",
		Message:    "Encoding has zero magnitude",
		StatusCode: 422,
	}
)
