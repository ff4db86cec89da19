package extraction

import "fmt"

// ErrorCode identifies a class of extraction failure.
type ErrorCode string

const (
	ErrServiceUnavailable ErrorCode = "OCR_SERVICE_UNAVAILABLE"
	ErrServiceTimeout     ErrorCode = "OCR_SERVICE_TIMEOUT"
	ErrInvalidImage       ErrorCode = "INVALID_IMAGE"
	ErrProcessingFailed   ErrorCode = "PROCESSING_FAILED"
)

// Error is a structured error for failures at the extraction boundary. The
// boundary is the only place in the pipeline where a hard failure is
// appropriate; callers convert it into the low-confidence fallback path.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}
