package ai

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

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/boijuny/chorizoventures/internal/config"
	"github.com/boijuny/chorizoventures/internal/models"
)

// Service is the outbound chat-completion capability.
type Service interface {
	// Complete sends one completion request and returns the first choice's
	// content. An upstream 200 with no extractable content returns an empty
	// string and a nil error; substituting a fallback is the caller's call.
	Complete(ctx context.Context, messages []models.Message, params models.SamplingParams) (string, error)
}

// UpstreamError carries the provider's HTTP status and message.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream API error: %d %s", e.Status, e.Message)
}

// MistralClient talks to a Mistral-compatible chat-completions endpoint.
type MistralClient struct {
	baseURL     string
	apiKey      string
	model       string
	maxAttempts int
	timeout     time.Duration
	httpClient  *http.Client
	throttle    *rate.Limiter
	logger      *logrus.Logger
}

// NewClient creates an upstream client from configuration.
func NewClient(cfg *config.UpstreamConfig, logger *logrus.Logger) *MistralClient {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &MistralClient{
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		maxAttempts: cfg.MaxAttempts,
		timeout:     cfg.Timeout,
		httpClient: &http.Client{
			Timeout: 2 * cfg.Timeout,
		},
		throttle: rate.NewLimiter(rate.Limit(rps), burst),
		logger:   logger,
	}
}

// Complete implements Service. Retries (when configured) only cover
// transient failures: network errors and 5xx statuses.
func (c *MistralClient) Complete(ctx context.Context, messages []models.Message, params models.SamplingParams) (string, error) {
	if c.apiKey == "" {
		return "", errors.New("upstream API key not configured")
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		content, err := c.complete(ctx, messages, params, attempt)
		if err == nil {
			return content, nil
		}

		lastErr = err
		if !retryable(err) {
			return "", err
		}

		c.logger.WithFields(logrus.Fields{
			"attempt": attempt,
			"error":   err.Error(),
			"model":   c.model,
		}).Warn("Upstream request failed")

		if attempt < c.maxAttempts {
			// Exponential backoff: 2s, 4s, 8s...
			waitTime := time.Duration(2<<uint(attempt-1)) * time.Second
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(waitTime):
			}
		}
	}

	return "", lastErr
}

func (c *MistralClient) complete(ctx context.Context, messages []models.Message, params models.SamplingParams, attempt int) (string, error) {
	if err := c.throttle.Wait(ctx); err != nil {
		return "", err
	}

	reqBody := map[string]interface{}{
		"model":             c.model,
		"messages":          messages,
		"temperature":       params.Temperature,
		"max_tokens":        params.MaxTokens,
		"top_p":             params.TopP,
		"presence_penalty":  params.PresencePenalty,
		"frequency_penalty": params.FrequencyPenalty,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	url := c.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	c.logger.WithFields(logrus.Fields{
		"model":   c.model,
		"url":     url,
		"attempt": attempt,
	}).Debug("Sending upstream request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", &UpstreamError{
			Status:  resp.StatusCode,
			Message: upstreamMessage(body, resp.Status),
		}
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}

	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if result.Error.Message != "" {
		return "", &UpstreamError{Status: resp.StatusCode, Message: result.Error.Message}
	}

	if len(result.Choices) == 0 {
		return "", nil
	}

	return result.Choices[0].Message.Content, nil
}

// upstreamMessage extracts a human-readable message from an error body,
// tolerating malformed JSON.
func upstreamMessage(body []byte, fallback string) string {
	var errBody struct {
		Message string `json:"message"`
		Error   struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &errBody); err == nil {
		if errBody.Message != "" {
			return errBody.Message
		}
		if errBody.Error.Message != "" {
			return errBody.Error.Message
		}
	}
	return fallback
}

func retryable(err error) bool {
	var upErr *UpstreamError
	if errors.As(err, &upErr) {
		return upErr.Status >= 500
	}
	// Network-level failures are worth another attempt; context
	// cancellation is not.
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
