package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Base error types
var (
	ErrTimeout          = errors.New("timeout")
	ErrConnectionFailed = errors.New("connection failed")
	ErrParseFailed      = errors.New("parse failed")
	ErrRateLimited      = errors.New("rate limited")
	ErrModelRejected    = errors.New("model rejected")
	ErrTemplateResponse = errors.New("template response")
	ErrConfigMissing    = errors.New("config missing")
)

// ErrorType represents the category of error
type ErrorType string

const (
	ErrorTypeTransport     ErrorType = "transport"
	ErrorTypeTimeout       ErrorType = "timeout"
	ErrorTypeHTTPStatus    ErrorType = "http_status"
	ErrorTypeParse         ErrorType = "parse"
	ErrorTypeRateLimit     ErrorType = "provider_rate_limit"
	ErrorTypeModelRejected ErrorType = "provider_model_rejected"
	ErrorTypeProvider      ErrorType = "provider_unknown"
	ErrorTypeTemplate      ErrorType = "template_response"
	ErrorTypeConfig        ErrorType = "config_missing"
)

// ScanError is a structured error for scan and provider operations
type ScanError struct {
	Type       ErrorType
	Op         string  // Operation that failed (e.g., "scan_github", "ai_chat")
	Source     string  // Source or provider host where the error occurred
	Err        error   // Underlying error
	StatusCode int     // HTTP status code if applicable
	RetryAfter float64 // Provider-supplied Retry-After seconds, 0 when absent
	Timestamp  time.Time
	Retryable  bool
}

func (e *ScanError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("%s failed on %s: %v", e.Op, e.Source, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *ScanError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is interface
func (e *ScanError) Is(target error) bool {
	if target == nil {
		return false
	}

	// Check base error types
	switch target {
	case ErrTimeout:
		return e.Type == ErrorTypeTimeout
	case ErrConnectionFailed:
		return e.Type == ErrorTypeTransport
	case ErrParseFailed:
		return e.Type == ErrorTypeParse
	case ErrRateLimited:
		return e.Type == ErrorTypeRateLimit
	case ErrModelRejected:
		return e.Type == ErrorTypeModelRejected
	case ErrTemplateResponse:
		return e.Type == ErrorTypeTemplate
	case ErrConfigMissing:
		return e.Type == ErrorTypeConfig
	}

	// Check wrapped error
	return errors.Is(e.Err, target)
}

// NewScanError creates a new ScanError
func NewScanError(errorType ErrorType, op, source string, err error) *ScanError {
	return &ScanError{
		Type:      errorType,
		Op:        op,
		Source:    source,
		Err:       err,
		Timestamp: time.Now(),
		Retryable: isRetryable(errorType),
	}
}

// WithStatusCode adds HTTP status code to the error
func (e *ScanError) WithStatusCode(code int) *ScanError {
	e.StatusCode = code
	// Update retryable based on status code
	if code >= 500 || code == 429 || code == 408 {
		e.Retryable = true
	} else if code >= 400 && code < 500 {
		e.Retryable = false
	}
	return e
}

// WithRetryAfter records a provider-supplied Retry-After value in seconds
func (e *ScanError) WithRetryAfter(seconds float64) *ScanError {
	if seconds > 0 {
		e.RetryAfter = seconds
	}
	return e
}

// isRetryable determines if an error should be retried
func isRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeTransport, ErrorTypeTimeout, ErrorTypeRateLimit:
		return true
	case ErrorTypeParse, ErrorTypeTemplate:
		// Recovered with a self-correcting turn, which still consumes budget
		return true
	default: // model rejection, config, plain HTTP status, unknown provider
		return false
	}
}

// Helper functions

// WrapTransport wraps a network I/O error with context
func WrapTransport(op, source string, err error) error {
	return NewScanError(ErrorTypeTransport, op, source, err)
}

// WrapTimeout wraps a deadline error with context
func WrapTimeout(op, source string, err error) error {
	return NewScanError(ErrorTypeTimeout, op, source, err)
}

// WrapParse wraps a malformed HTML/JSON error with context
func WrapParse(op, source string, err error) error {
	return NewScanError(ErrorTypeParse, op, source, err)
}

// WrapHTTPStatus wraps a non-success status from a source
func WrapHTTPStatus(op, source string, err error, statusCode int) error {
	return NewScanError(ErrorTypeHTTPStatus, op, source, err).WithStatusCode(statusCode)
}

// WrapProvider wraps an AI provider failure, deriving the type from the status
func WrapProvider(op, source string, err error, statusCode int) *ScanError {
	errorType := ErrorTypeProvider
	switch {
	case statusCode == 429:
		errorType = ErrorTypeRateLimit
	case statusCode == 400 || statusCode == 404:
		if looksLikeModelRejection(err) {
			errorType = ErrorTypeModelRejected
		}
	}
	return NewScanError(errorType, op, source, err).WithStatusCode(statusCode)
}

// looksLikeModelRejection checks a provider message for model-not-found semantics
func looksLikeModelRejection(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, token := range []string{"model", "not found", "does not exist", "unsupported"} {
		if strings.Contains(msg, token) {
			return true
		}
	}
	return false
}

// IsRetryable checks if an error should be retried
func IsRetryable(err error) bool {
	var scanErr *ScanError
	if errors.As(err, &scanErr) {
		return scanErr.Retryable
	}

	// Check for wrapped standard errors
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrConnectionFailed)
}

// IsRateLimit checks if an error is a provider rate limit
func IsRateLimit(err error) bool {
	var scanErr *ScanError
	if errors.As(err, &scanErr) {
		return scanErr.Type == ErrorTypeRateLimit || scanErr.StatusCode == 429
	}
	return errors.Is(err, ErrRateLimited)
}

// IsModelRejected checks if an error carries model-not-found semantics
func IsModelRejected(err error) bool {
	var scanErr *ScanError
	if errors.As(err, &scanErr) {
		if scanErr.Type == ErrorTypeModelRejected {
			return true
		}
		if scanErr.StatusCode == 400 || scanErr.StatusCode == 404 {
			return looksLikeModelRejection(scanErr.Err)
		}
	}
	return errors.Is(err, ErrModelRejected)
}

// RetryAfterSeconds extracts a provider-supplied Retry-After value, 0 when absent
func RetryAfterSeconds(err error) float64 {
	var scanErr *ScanError
	if errors.As(err, &scanErr) {
		return scanErr.RetryAfter
	}
	return 0
}

// Kind returns the error category, or "unknown" for foreign errors
func Kind(err error) string {
	var scanErr *ScanError
	if errors.As(err, &scanErr) {
		return string(scanErr.Type)
	}
	return "unknown"
}
