package errors

import "fmt"

// ErrorCode represents a ClaimGIS error code.
type ErrorCode string

const (
	ErrInvalidRequest   ErrorCode = "INVALID_REQUEST"   // 400
	ErrUploadMissing    ErrorCode = "UPLOAD_MISSING"    // 400
	ErrUnauthorized     ErrorCode = "UNAUTHORIZED"      // 401
	ErrNotFound         ErrorCode = "NOT_FOUND"         // 404
	ErrOCRFailed        ErrorCode = "OCR_FAILED"        // 500
	ErrExtractionFailed ErrorCode = "EXTRACTION_FAILED" // 502
	ErrStorage          ErrorCode = "STORAGE"           // 500
	ErrInternal         ErrorCode = "INTERNAL"          // 500
)

// ClaimError represents a structured error with code, status, and details.
type ClaimError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *ClaimError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *ClaimError {
	return &ClaimError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewUploadMissing creates a 400 error for requests without a file part.
func NewUploadMissing() *ClaimError {
	return &ClaimError{
		Code:    ErrUploadMissing,
		Status:  400,
		Message: "no file uploaded",
	}
}

// NewUnauthorized creates a 401 error for failed or missing authentication.
func NewUnauthorized(msg string) *ClaimError {
	if msg == "" {
		msg = "invalid credentials"
	}
	return &ClaimError{
		Code:    ErrUnauthorized,
		Status:  401,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for when a claim cannot be found.
func NewNotFound(identifier string) *ClaimError {
	return &ClaimError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("claim not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewOCRFailed creates a 500 error for OCR engine failures.
// The pipeline aborts on this error; no entity extraction is attempted.
func NewOCRFailed(err error) *ClaimError {
	return &ClaimError{
		Code:    ErrOCRFailed,
		Status:  500,
		Message: fmt.Sprintf("OCR failed: %v", err),
	}
}

// NewExtractionFailed creates a 502 error for entity extractor failures.
func NewExtractionFailed(err error) *ClaimError {
	return &ClaimError{
		Code:    ErrExtractionFailed,
		Status:  502,
		Message: fmt.Sprintf("entity extraction failed: %v", err),
	}
}

// NewStorage creates a 500 error for database failures, surfaced as-is.
func NewStorage(err error) *ClaimError {
	return &ClaimError{
		Code:    ErrStorage,
		Status:  500,
		Message: err.Error(),
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *ClaimError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &ClaimError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is checks if an error is a ClaimError with the given code.
func Is(err error, code ErrorCode) bool {
	if cErr, ok := err.(*ClaimError); ok {
		return cErr.Code == code
	}
	return false
}
