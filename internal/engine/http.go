package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/execboard/boardroom/internal/domain"
)

const defaultBaseURL = "https://api.openai.com/v1"

// HTTPOption configures the HTTP engine.
type HTTPOption func(*HTTPEngine)

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL string) HTTPOption {
	return func(e *HTTPEngine) {
		e.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) HTTPOption {
	return func(e *HTTPEngine) {
		e.httpClient = httpClient
	}
}

// HTTPEngine calls a chat-completions style API.
type HTTPEngine struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewHTTPEngine creates an HTTP-backed engine.
func NewHTTPEngine(apiKey string, opts ...HTTPOption) *HTTPEngine {
	e := &HTTPEngine{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements Engine.
func (e *HTTPEngine) Name() string { return "chat-completions" }

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// Generate implements Engine.
func (e *HTTPEngine) Generate(ctx context.Context, prompt, model string, opts Options) (string, error) {
	body, err := json.Marshal(&chatRequest{
		Model:       model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return "", domain.ErrTimeout("engine call exceeded deadline")
		}
		return "", domain.ErrProviderUnavailable(err.Error())
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", domain.ErrProviderUnavailable(fmt.Sprintf("read response: %v", err))
	}

	if resp.StatusCode != http.StatusOK {
		return "", mapStatusError(resp.StatusCode, respBody)
	}

	var result chatResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", domain.ErrProviderUnavailable(fmt.Sprintf("unmarshal response: %v", err))
	}
	if len(result.Choices) == 0 {
		return "", domain.ErrProviderUnavailable("engine returned no choices")
	}
	return result.Choices[0].Message.Content, nil
}

// mapStatusError translates an HTTP failure into the canonical taxonomy.
func mapStatusError(status int, body []byte) *domain.AgentError {
	message := string(body)
	var er errorResponse
	if err := json.Unmarshal(body, &er); err == nil && er.Error.Message != "" {
		message = er.Error.Message
	}

	switch status {
	case http.StatusUnauthorized:
		return domain.NewAgentError(domain.ErrorTypeInvalidCredentials, message)
	case http.StatusForbidden:
		return domain.NewAgentError(domain.ErrorTypePermissionDenied, message)
	case http.StatusTooManyRequests:
		return domain.NewAgentError(domain.ErrorTypeQuotaExceeded, message)
	case http.StatusBadRequest:
		// Safety refusals come back as 400s with a content policy code.
		if strings.Contains(strings.ToLower(message), "content") {
			return domain.ErrContentBlocked(message)
		}
		return domain.ErrInvalidRequest(message)
	default:
		return domain.ErrProviderUnavailable(fmt.Sprintf("status %d: %s", status, message))
	}
}
