package models

import (
	"errors"
	"fmt"
)

// Error codes used in API responses and internal error handling.
const (
	ErrCodeBrowserLaunch = "BROWSER_LAUNCH"
	ErrCodeNavigation    = "NAVIGATION_FAILED"
	ErrCodeReadyTimeout  = "READY_TIMEOUT"
	ErrCodeTimeout       = "HARVEST_TIMEOUT"
	ErrCodeCaptureFailed = "CAPTURE_FAILED"
	ErrCodeEmptyPage     = "EMPTY_PAGE"
	ErrCodeEmptyBatch    = "EMPTY_BATCH"
	ErrCodeSinkFailed    = "SINK_FAILED"
	ErrCodeInvalidInput  = "INVALID_INPUT"
	ErrCodeRateLimited   = "RATE_LIMITED"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeInternal      = "INTERNAL_ERROR"
)

var (
	// ErrEmptyPage is returned by the pipeline when the harvest produced no markup.
	ErrEmptyPage = errors.New("harvest produced no content")

	// ErrEmptyBatch is returned by the pipeline when extraction found no records.
	ErrEmptyBatch = errors.New("extraction produced no records")
)

// ErrorDetail is the structured error in API responses.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// HarvestError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type HarvestError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *HarvestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *HarvestError) Unwrap() error {
	return e.Err
}

// NewHarvestError creates a new HarvestError.
func NewHarvestError(code, message string, err error) *HarvestError {
	return &HarvestError{Code: code, Message: message, Err: err}
}

// ToDetail converts an internal error to an API-facing ErrorDetail.
func (e *HarvestError) ToDetail() *ErrorDetail {
	return &ErrorDetail{Code: e.Code, Message: e.Message}
}

// SinkError wraps a failure to persist a batch.
type SinkError struct {
	Sink        string
	Destination string
	Err         error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("%s sink (%s): %v", e.Sink, e.Destination, e.Err)
}

func (e *SinkError) Unwrap() error {
	return e.Err
}

// CodeOf returns the error code carried by err, or ErrCodeInternal.
func CodeOf(err error) string {
	var he *HarvestError
	var se *SinkError
	switch {
	case errors.As(err, &he):
		return he.Code
	case errors.As(err, &se):
		return ErrCodeSinkFailed
	case errors.Is(err, ErrEmptyPage):
		return ErrCodeEmptyPage
	case errors.Is(err, ErrEmptyBatch):
		return ErrCodeEmptyBatch
	default:
		return ErrCodeInternal
	}
}
