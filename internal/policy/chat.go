// Package policy turns policy text into plain-English summaries, compliance checklists,
// risk labels and grounded answers using an OpenAI-compatible chat model.
package policy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
)

// Default configuration values for the chat client.
const (
	DefaultBaseURL     = "https://api.openai.com/v1"
	DefaultModel       = "gpt-4o-mini"
	DefaultTimeout     = 120 * time.Second
	DefaultTemperature = 0.2
)

// ErrLLM wraps every failure of the chat provider or transport.
var ErrLLM = errors.New("language model error")

// ChatClient completes a single system + user exchange.
type ChatClient interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// ChatConfig holds configuration for OpenAIChat.
type ChatConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Timeout     time.Duration
	Temperature float64
	MaxRetries  int
	// RetryBase is the first backoff interval.
	RetryBase time.Duration
}

// OpenAIChat calls an OpenAI-compatible /chat/completions endpoint.
type OpenAIChat struct {
	client      *http.Client
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	maxRetries  uint64
	retryBase   time.Duration
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewOpenAIChat creates a chat client.
func NewOpenAIChat(cfg ChatConfig) (*OpenAIChat, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.RetryBase == 0 {
		cfg.RetryBase = time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &OpenAIChat{
		client:      &http.Client{Timeout: cfg.Timeout},
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxRetries:  uint64(cfg.MaxRetries),
		retryBase:   cfg.RetryBase,
	}, nil
}

// Complete sends system and user messages and returns the trimmed reply. Rate limits and
// server errors are retried with exponential backoff.
func (c *OpenAIChat) Complete(ctx context.Context, system, user string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	var out string
	backoff := retry.WithMaxRetries(c.maxRetries, retry.NewExponential(c.retryBase))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		text, status, err := c.post(ctx, body)
		if err != nil {
			if status == http.StatusTooManyRequests || status >= 500 {
				return retry.RetryableError(err)
			}
			return err
		}
		out = text
		return nil
	})
	return out, err
}

func (c *OpenAIChat) post(ctx context.Context, body []byte) (string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("%w: send request: %w", ErrLLM, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", resp.StatusCode, fmt.Errorf("%w: read response: %w", ErrLLM, err)
	}
	var chatResp chatResponse
	if jsonErr := json.Unmarshal(raw, &chatResp); jsonErr == nil && chatResp.Error != nil {
		return "", resp.StatusCode, fmt.Errorf("%w (status %d): %s", ErrLLM, resp.StatusCode, chatResp.Error.Message)
	} else if resp.StatusCode != http.StatusOK {
		return "", resp.StatusCode, fmt.Errorf("%w (status %d): %s", ErrLLM, resp.StatusCode, string(raw))
	} else if jsonErr != nil {
		return "", resp.StatusCode, fmt.Errorf("%w: decode response: %w", ErrLLM, jsonErr)
	}
	if len(chatResp.Choices) == 0 {
		return "", resp.StatusCode, fmt.Errorf("%w: no choices returned", ErrLLM)
	}
	return strings.TrimSpace(chatResp.Choices[0].Message.Content), resp.StatusCode, nil
}

// Model returns the chat model name.
func (c *OpenAIChat) Model() string {
	return c.model
}
