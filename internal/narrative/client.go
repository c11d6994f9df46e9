package narrative

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"supplypulse/internal/config"
	apierrors "supplypulse/internal/errors"
	"supplypulse/internal/infrastructure"
)

const (
	chatCompletionsPath = "/chat/completions"

	// maxErrorBodyBytes caps how much of a provider error body makes it
	// into logs and error messages.
	maxErrorBodyBytes = 500
)

// Client speaks the OpenAI-compatible chat-completions protocol.
// Requests are paced through a local rate limiter so a burst of
// narrative calls cannot hammer the provider.
type Client struct {
	cfg        config.NarrativeConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewClient builds a client from the narrative configuration. The
// client is inert (Enabled() == false) when no API key is set.
func NewClient(cfg config.NarrativeConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	rps := cfg.RPS
	if rps <= 0 {
		rps = 0.5
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				TLSHandshakeTimeout: 10 * time.Second,
				MaxIdleConns:        10,
				IdleConnTimeout:     30 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		logger:  infrastructure.WithComponent(logger, "narrative.client"),
	}
}

// Enabled reports whether the client holds credentials.
func (c *Client) Enabled() bool { return c.cfg.Enabled() }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Complete sends one system+user exchange and returns the assistant
// text. The call is bounded by the configured timeout regardless of
// the caller's context.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	if !c.Enabled() {
		return "", apierrors.ErrNarrativeDisabled
	}

	ctx, cancel := context.WithTimeout(ctx, c.httpClient.Timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("narrative pacing: %w", apierrors.ErrRateLimited)
	}

	payload := chatRequest{
		Model:       c.cfg.Model,
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + chatCompletionsPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "narrative request failed",
			slog.String("error", err.Error()))
		return "", fmt.Errorf("narrative provider unreachable: %w", apierrors.ErrNarrativeUnavailable)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read narrative response: %w", apierrors.ErrNarrativeUnavailable)
	}

	if resp.StatusCode != http.StatusOK {
		return "", c.statusError(ctx, resp.StatusCode, raw)
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode narrative response: %w", apierrors.ErrNarrativeUnavailable)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("narrative provider error: %s: %w",
			parsed.Error.Message, apierrors.ErrNarrativeUnavailable)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("narrative provider returned no content: %w", apierrors.ErrNarrativeUnavailable)
	}

	c.logger.InfoContext(ctx, "narrative completed",
		slog.String("model", c.cfg.Model),
		slog.Duration("duration", time.Since(start)))
	return parsed.Choices[0].Message.Content, nil
}

// statusError maps a non-200 provider response onto the narrative
// sentinels, keeping a readable slice of the body for diagnosis.
func (c *Client) statusError(ctx context.Context, status int, body []byte) error {
	detail := providerDetail(body)
	c.logger.WarnContext(ctx, "narrative provider rejected request",
		slog.Int("status", status),
		slog.String("detail", detail))

	if status == http.StatusTooManyRequests {
		return fmt.Errorf("narrative provider throttled: %w", apierrors.ErrRateLimited)
	}
	return fmt.Errorf("narrative provider returned %d: %s: %w",
		status, detail, apierrors.ErrNarrativeUnavailable)
}

// providerDetail extracts the provider's error message, falling back
// to a truncated body dump when it is not the expected JSON shape.
func providerDetail(body []byte) string {
	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != nil {
		return parsed.Error.Message
	}
	s := string(body)
	if len(s) > maxErrorBodyBytes {
		s = s[:maxErrorBodyBytes] + "... (truncated)"
	}
	return s
}
