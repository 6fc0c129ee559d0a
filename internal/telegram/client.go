package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"tradebot-go/internal/config"
)

const (
	maxRetries     = 3
	defaultBackoff = time.Second
)

// ClientInterface defines the Bot API methods the bot uses.
type ClientInterface interface {
	GetMe(ctx context.Context) (*User, error)
	SendMessage(ctx context.Context, chatID int64, text, parseMode string) error
	SetWebhook(ctx context.Context, url string) error
	DeleteWebhook(ctx context.Context) error
}

// APIError is an unsuccessful Bot API answer.
type APIError struct {
	StatusCode  int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram API error %d: %s", e.StatusCode, e.Description)
}

// Client is a client for the Telegram Bot API.
// It implements the ClientInterface.
type Client struct {
	client  *resty.Client
	logger  *zap.Logger
	limiter *rate.Limiter
	backoff time.Duration
}

// ensure Client implements the interface
var _ ClientInterface = (*Client)(nil)

// NewClient creates a new Bot API client. The token becomes part of the base
// URL, so it is never logged.
func NewClient(cfg config.Telegram, logger *zap.Logger) *Client {
	baseURL := strings.TrimRight(cfg.APIURL, "/") + "/bot" + cfg.Token

	client := resty.New().SetBaseURL(baseURL)
	if cfg.TimeoutSeconds > 0 {
		client.SetTimeout(time.Duration(cfg.TimeoutSeconds) * time.Second)
	}

	// rate.Limit is requests per second.
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.RateLimitBurst
	if burst <= 0 {
		burst = 1
	}

	return &Client{
		client:  client,
		logger:  logger.Named("telegram"),
		limiter: rate.NewLimiter(limit, burst),
		backoff: defaultBackoff,
	}
}

// GetMe returns the bot's own user. This is a good endpoint to test the token.
func (c *Client) GetMe(ctx context.Context) (*User, error) {
	envelope, err := c.doRequest(ctx, http.MethodGet, "/getMe", nil)
	if err != nil {
		c.logger.Error("Failed to get bot identity", zap.Error(err))
		return nil, fmt.Errorf("failed to get bot identity: %w", err)
	}

	var me User
	if err := json.Unmarshal(envelope.Result, &me); err != nil {
		return nil, fmt.Errorf("failed to decode getMe result: %w", err)
	}
	return &me, nil
}

// SendMessage delivers text to chatID. When Telegram rejects the formatting,
// the message is sent once more as plain text.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text, parseMode string) error {
	req := sendMessageRequest{ChatID: chatID, Text: text, ParseMode: parseMode}

	_, err := c.doRequest(ctx, http.MethodPost, "/sendMessage", req)
	var apiErr *APIError
	if err != nil && parseMode != "" && errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusBadRequest {
		c.logger.Warn("Formatted message rejected, falling back to plain text",
			zap.Int64("chat_id", chatID),
			zap.String("description", apiErr.Description),
		)
		req.ParseMode = ""
		_, err = c.doRequest(ctx, http.MethodPost, "/sendMessage", req)
	}
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// SetWebhook points Telegram at url for message updates.
func (c *Client) SetWebhook(ctx context.Context, url string) error {
	req := setWebhookRequest{URL: url, AllowedUpdates: []string{"message", "edited_message"}}
	if _, err := c.doRequest(ctx, http.MethodPost, "/setWebhook", req); err != nil {
		return fmt.Errorf("failed to set webhook: %w", err)
	}
	c.logger.Info("Webhook registered", zap.String("url", url))
	return nil
}

// DeleteWebhook removes the webhook; pending updates are kept.
func (c *Client) DeleteWebhook(ctx context.Context) error {
	if _, err := c.doRequest(ctx, http.MethodPost, "/deleteWebhook", deleteWebhookRequest{}); err != nil {
		return fmt.Errorf("failed to delete webhook: %w", err)
	}
	c.logger.Info("Webhook deleted")
	return nil
}

// doRequest handles the actual request execution with rate limiting and retry logic.
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}) (*apiResponse, error) {
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		req := c.client.R().SetContext(ctx)
		if body != nil {
			req.SetHeader("Content-Type", "application/json").SetBody(body)
		}

		c.logger.Debug("Executing request", zap.String("method", method), zap.String("path", path))
		resp, err := req.Execute(method, path)
		if err != nil && ctx.Err() != nil {
			return nil, ctx.Err()
		}

		shouldRetry := false
		var retryAfter time.Duration

		if err != nil {
			// Network or other client-side errors
			shouldRetry = true
			lastErr = err
		} else {
			var envelope apiResponse
			decodeErr := json.Unmarshal(resp.Body(), &envelope)
			if decodeErr == nil && envelope.OK && !resp.IsError() {
				return &envelope, nil
			}

			apiErr := &APIError{StatusCode: resp.StatusCode(), Description: envelope.Description}
			if apiErr.Description == "" {
				apiErr.Description = resp.Status()
			}
			lastErr = apiErr

			statusCode := resp.StatusCode()
			if statusCode == http.StatusTooManyRequests {
				shouldRetry = true
				if envelope.Parameters != nil && envelope.Parameters.RetryAfter > 0 {
					retryAfter = time.Duration(envelope.Parameters.RetryAfter) * time.Second
				} else if seconds, err := strconv.Atoi(resp.Header().Get("Retry-After")); err == nil {
					retryAfter = time.Duration(seconds) * time.Second
				}
			} else if statusCode >= 500 {
				shouldRetry = true
			}
		}

		if !shouldRetry {
			return nil, lastErr
		}
		if i == maxRetries-1 {
			break
		}

		if retryAfter == 0 {
			// Exponential backoff: 1x, 2x, 4x
			retryAfter = time.Duration(math.Pow(2, float64(i))) * c.backoff
		}

		c.logger.Warn("Request failed, retrying...",
			zap.String("path", path),
			zap.Int("attempt", i+1),
			zap.Duration("retry_after", retryAfter),
			zap.Error(lastErr),
		)

		select {
		case <-time.After(retryAfter):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", maxRetries, lastErr)
}
