package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanError_Error(t *testing.T) {
	err := NewScanError(ErrorTypeTransport, "scan_github", "api.github.com", errors.New("connection refused"))
	assert.Equal(t, "scan_github failed on api.github.com: connection refused", err.Error())

	err = NewScanError(ErrorTypeParse, "ai_chat", "", errors.New("bad json"))
	assert.Equal(t, "ai_chat failed: bad json", err.Error())
}

func TestScanError_Is(t *testing.T) {
	tests := []struct {
		name   string
		err    *ScanError
		target error
	}{
		{"timeout", NewScanError(ErrorTypeTimeout, "op", "", errors.New("x")), ErrTimeout},
		{"transport", NewScanError(ErrorTypeTransport, "op", "", errors.New("x")), ErrConnectionFailed},
		{"parse", NewScanError(ErrorTypeParse, "op", "", errors.New("x")), ErrParseFailed},
		{"rate limit", NewScanError(ErrorTypeRateLimit, "op", "", errors.New("x")), ErrRateLimited},
		{"template", NewScanError(ErrorTypeTemplate, "op", "", errors.New("x")), ErrTemplateResponse},
		{"config", NewScanError(ErrorTypeConfig, "op", "", errors.New("x")), ErrConfigMissing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, errors.Is(tt.err, tt.target))
		})
	}
}

func TestScanError_Unwrap(t *testing.T) {
	inner := errors.New("inner")
	wrapped := fmt.Errorf("outer: %w", inner)
	err := NewScanError(ErrorTypeProvider, "ai_chat", "api.groq.com", wrapped)
	assert.True(t, errors.Is(err, inner))
}

func TestWithStatusCode_Retryable(t *testing.T) {
	tests := []struct {
		code      int
		retryable bool
	}{
		{429, true},
		{408, true},
		{500, true},
		{503, true},
		{400, false},
		{404, false},
		{401, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.code), func(t *testing.T) {
			err := NewScanError(ErrorTypeHTTPStatus, "op", "src", errors.New("x")).WithStatusCode(tt.code)
			assert.Equal(t, tt.retryable, err.Retryable)
		})
	}
}

func TestWrapProvider_DerivesType(t *testing.T) {
	err := WrapProvider("ai_chat", "api.groq.com", errors.New("rate limit exceeded"), 429)
	assert.Equal(t, ErrorTypeRateLimit, err.Type)
	assert.True(t, IsRateLimit(err))

	err = WrapProvider("ai_chat", "api.groq.com", errors.New("the model `x` does not exist"), 404)
	assert.Equal(t, ErrorTypeModelRejected, err.Type)
	assert.True(t, IsModelRejected(err))

	err = WrapProvider("ai_chat", "api.groq.com", errors.New("invalid request"), 500)
	assert.Equal(t, ErrorTypeProvider, err.Type)
}

func TestWrapProvider_ModelRejectionTokens(t *testing.T) {
	for _, msg := range []string{
		"unknown model requested",
		"resource not found",
		"this endpoint does not exist",
		"unsupported parameter",
	} {
		err := WrapProvider("ai_chat", "host", errors.New(msg), 400)
		assert.Equal(t, ErrorTypeModelRejected, err.Type, msg)
	}

	err := WrapProvider("ai_chat", "host", errors.New("malformed payload"), 400)
	assert.Equal(t, ErrorTypeProvider, err.Type)
}

func TestRetryAfterSeconds(t *testing.T) {
	err := WrapProvider("ai_chat", "host", errors.New("slow down"), 429).WithRetryAfter(2.5)
	assert.Equal(t, 2.5, RetryAfterSeconds(err))
	assert.Equal(t, 0.0, RetryAfterSeconds(errors.New("plain")))
}

func TestKind(t *testing.T) {
	require.Equal(t, "provider_rate_limit", Kind(WrapProvider("op", "", errors.New("x"), 429)))
	require.Equal(t, "unknown", Kind(errors.New("plain")))
}
