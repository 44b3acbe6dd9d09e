// Package completion wraps the external text-completion service that powers
// the mini-game question generator.
package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"

	"shamsa/internal/domain/games"
)

var ErrUnavailable = errors.New("completion: service unavailable")

// Client calls the completion endpoint with a circuit breaker around it and a
// short retry budget inside. While the breaker is open Generate returns
// ErrUnavailable immediately and the caller serves canned questions.
type Client struct {
	HTTP     *http.Client
	Endpoint string
	Model    string
	Logger   *slog.Logger

	breaker *gobreaker.CircuitBreaker
}

type Config struct {
	Endpoint string
	Model    string
	Timeout  time.Duration
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		HTTP:     &http.Client{Timeout: timeout},
		Endpoint: cfg.Endpoint,
		Model:    cfg.Model,
		Logger:   logger,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "completion",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
		}),
	}
}

type completionRequest struct {
	Model       string  `json:"model,omitempty"`
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

type completionResponse struct {
	Choices []struct {
		Text string `json:"text"`
	} `json:"choices"`
}

// Generate builds the prompt for kind and age, asks the completion service,
// and parses the reply into a question.
func (c *Client) Generate(ctx context.Context, kind games.Kind, age int) (games.Question, error) {
	var zero games.Question
	if c == nil || c.Endpoint == "" {
		return zero, ErrUnavailable
	}

	prompt := games.Prompt(kind, age)
	out, err := c.breaker.Execute(func() (any, error) {
		return c.complete(ctx, prompt)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return zero, err
	}

	question, err := games.ParseCompletion(out.(string))
	if err != nil {
		c.log().Warn("completion reply unparseable", "kind", kind, "error", err)
		return zero, err
	}
	return question, nil
}

func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(completionRequest{
		Model:       c.Model,
		Prompt:      prompt,
		MaxTokens:   256,
		Temperature: 0.8,
	})
	if err != nil {
		return "", err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2), ctx)
	var text string
	err = backoff.Retry(func() error {
		request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		request.Header.Set("Content-Type", "application/json")

		resp, err := c.HTTP.Do(request)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= http.StatusInternalServerError {
			snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return fmt.Errorf("completion: status %d: %s", resp.StatusCode, string(snippet))
		}
		if resp.StatusCode >= http.StatusBadRequest {
			snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return backoff.Permanent(fmt.Errorf("completion: status %d: %s", resp.StatusCode, string(snippet)))
		}

		var decoded completionResponse
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
			return backoff.Permanent(fmt.Errorf("completion: decode response: %w", err))
		}
		if len(decoded.Choices) == 0 {
			return backoff.Permanent(errors.New("completion: empty choices"))
		}
		text = decoded.Choices[0].Text
		return nil
	}, policy)
	if err != nil {
		c.log().Error("completion request failed", "error", err)
		return "", err
	}
	return text, nil
}

func (c *Client) log() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

var _ games.Generator = (*Client)(nil)
