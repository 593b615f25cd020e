// Package errors provides standardized error handling for the myADS pipeline.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Readiness gate errors
	ErrCodeProbeTransportFailed ErrorCode = "PROBE_TRANSPORT_FAILED"
	ErrCodeManifestParseFailed  ErrorCode = "MANIFEST_PARSE_FAILED"
	ErrCodeManifestMissing      ErrorCode = "MANIFEST_MISSING"

	// Dispatch errors
	ErrCodeDispatchSubmissionFailed ErrorCode = "DISPATCH_SUBMISSION_FAILED"
	ErrCodeUserRegistryFailed       ErrorCode = "USER_REGISTRY_FAILED"
	ErrCodeWatermarkReadFailed      ErrorCode = "WATERMARK_READ_FAILED"
	ErrCodeWatermarkWriteFailed     ErrorCode = "WATERMARK_WRITE_FAILED"

	// Notification worker errors
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeRecipientLookupFailed  ErrorCode = "RECIPIENT_LOOKUP_FAILED"
	ErrCodeQueryExecutionFailed   ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeUnsupportedLayout      ErrorCode = "UNSUPPORTED_LAYOUT"
	ErrCodeInvalidJobInput        ErrorCode = "INVALID_JOB_INPUT"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// IsRetryable reports whether err is a StandardError marked retryable.
func IsRetryable(err error) bool {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Retryable
	}
	return false
}

// HasCode reports whether err is a StandardError carrying the given code.
func HasCode(err error, code ErrorCode) bool {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Code == code
	}
	return false
}

// ==========================
// 2. Error Constructors
// ==========================

// NewProbeTransportError creates a retryable search-endpoint transport error.
// These are absorbed by the polling budget, never fatal on their own.
func NewProbeTransportError(subject string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeProbeTransportFailed,
		Message:   "Search endpoint probe failed",
		Details:   fmt.Sprintf("subject: %s, error: %s", subject, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewManifestParseError creates a non-retryable manifest error. A gate with no
// record to verify against must report incomplete immediately.
func NewManifestParseError(path string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeManifestParseFailed,
		Message:   "Ingest manifest record could not be parsed",
		Details:   fmt.Sprintf("path: %s, error: %s", path, err.Error()),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewManifestMissingError creates a non-retryable missing-manifest error.
func NewManifestMissingError(path string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeManifestMissing,
		Message:   "Ingest manifest file not found",
		Details:   fmt.Sprintf("path: %s, error: %s", path, err.Error()),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDispatchSubmissionError creates a retryable job submission error.
// The dispatcher retries exactly once with a fixed backoff.
func NewDispatchSubmissionError(userID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDispatchSubmissionFailed,
		Message:   "Notification job submission failed",
		Details:   fmt.Sprintf("userId: %s, error: %s", userID, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewUserRegistryError creates a non-retryable user enumeration error.
func NewUserRegistryError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeUserRegistryFailed,
		Message:   "Eligible user enumeration failed",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewWatermarkReadError creates a retryable watermark read error.
func NewWatermarkReadError(key string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeWatermarkReadFailed,
		Message:   "Watermark read failed",
		Details:   fmt.Sprintf("key: %s, error: %s", key, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewWatermarkWriteError creates a retryable watermark write error.
func NewWatermarkWriteError(key string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeWatermarkWriteFailed,
		Message:   "Watermark write failed",
		Details:   fmt.Sprintf("key: %s, error: %s", key, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationSendError creates a retryable email send error.
func NewNotificationSendError(userID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "Notification email send failed",
		Details:   fmt.Sprintf("userId: %s, error: %s", userID, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewRecipientLookupError creates a non-retryable recipient lookup error.
func NewRecipientLookupError(userID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeRecipientLookupFailed,
		Message:   "Recipient email lookup failed",
		Details:   fmt.Sprintf("userId: %s, error: %s", userID, err.Error()),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryExecutionError creates a retryable saved-query execution error.
func NewQueryExecutionError(userID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryExecutionFailed,
		Message:   "Saved query execution failed",
		Details:   fmt.Sprintf("userId: %s, error: %s", userID, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewUnsupportedLayoutError creates a recoverable per-email layout error.
func NewUnsupportedLayoutError(col int) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnsupportedLayout,
		Message:   "Unsupported email column layout",
		Details:   fmt.Sprintf("col: %d", col),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidJobInputError creates a non-retryable job input validation error.
func NewInvalidJobInputError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidJobInput,
		Message:   "Notification job input failed validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}
