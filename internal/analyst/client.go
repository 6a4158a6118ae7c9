package analyst

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	oserrors "github.com/osinthound/osinthound/internal/errors"
)

// chatMessage is one turn of an OpenAI-compatible conversation.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type chatError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// ErrEnvelope reports a 200 response whose body was not a chat completion,
// including empty bodies.
var ErrEnvelope = errors.New("unparseable chat completion envelope")

// Client speaks the OpenAI chat-completions dialect, which DeepSeek, Groq
// and local OpenAI-compatible servers all accept.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

func NewClient(apiKey, baseURL string, timeout time.Duration) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) endpoint() string {
	base := strings.TrimRight(c.baseURL, "/")
	if strings.HasSuffix(base, "/chat/completions") {
		return base
	}
	return base + "/chat/completions"
}

// host labels provider errors with the target host rather than the full URL.
func (c *Client) host() string {
	if u, err := url.Parse(c.baseURL); err == nil && u.Host != "" {
		return u.Host
	}
	return c.baseURL
}

// Chat runs one completion round-trip and returns the assistant content
// plus the raw provider envelope for audit.
func (c *Client) Chat(ctx context.Context, model string, messages []chatMessage, temperature float64, maxTokens int) (string, map[string]any, error) {
	body, err := json.Marshal(chatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", nil, fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(body))
	if err != nil {
		return "", nil, fmt.Errorf("create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", nil, c.wrapTransport(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil, c.wrapTransport(err)
	}

	if resp.StatusCode != http.StatusOK {
		scanErr := oserrors.WrapProvider("ai_chat", c.host(), errors.New(errorMessage(respBody)), resp.StatusCode)
		return "", nil, scanErr.WithRetryAfter(retryAfterHeader(resp.Header).Seconds())
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrEnvelope, err)
	}
	if len(parsed.Choices) == 0 {
		return "", nil, fmt.Errorf("chat response carried no choices")
	}

	content := strings.TrimSpace(parsed.Choices[0].Message.Content)

	var raw map[string]any
	if err := json.Unmarshal(respBody, &raw); err != nil {
		raw = map[string]any{"raw_text": content}
	}
	return content, raw, nil
}

// wrapTransport classifies a request failure: deadline and timeout errors
// keep their own category so retry accounting can tell them apart.
func (c *Client) wrapTransport(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
		return oserrors.WrapTimeout("ai_chat", c.host(), err)
	}
	return oserrors.WrapTransport("ai_chat", c.host(), err)
}

func errorMessage(body []byte) string {
	var envelope chatError
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		return envelope.Error.Message
	}
	return string(body)
}

func retryAfterHeader(header http.Header) time.Duration {
	value := header.Get("Retry-After")
	if value == "" {
		return 0
	}
	seconds, err := strconv.ParseFloat(value, 64)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}
