package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
)

const (
	DefaultBaseURL = "https://api.conekta.io"
	DefaultTimeout = 30 * time.Second

	acceptHeader = "application/vnd.conekta-v2.1.0+json"
)

type Config struct {
	BaseURL string
	APIKey  string
	Locale  string
	Timeout time.Duration
	// Name labels the circuit breaker, usually the gateway id.
	Name string
}

type httpClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	locale     string
	breaker    *gobreaker.CircuitBreaker
	logger     *slog.Logger
}

func NewHTTPClient(cfg Config, logger *slog.Logger) (Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("processor api key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Locale == "" {
		cfg.Locale = "es"
	}
	if cfg.Name == "" {
		cfg.Name = "processor"
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &httpClient{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		locale:     cfg.Locale,
		logger:     logger,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// Rejections of our own payload say nothing about processor health.
		IsSuccessful: func(err error) bool {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return !apiErr.Temporary()
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("processor circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return c, nil
}

func (c *httpClient) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	var order Order
	if err := c.do(ctx, http.MethodPost, "/orders", req, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *httpClient) GetOrder(ctx context.Context, id string) (*Order, error) {
	var order Order
	if err := c.do(ctx, http.MethodGet, "/orders/"+url.PathEscape(id), nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *httpClient) ListWebhooks(ctx context.Context) ([]Webhook, error) {
	var list WebhookList
	if err := c.do(ctx, http.MethodGet, "/webhooks?limit=250", nil, &list); err != nil {
		return nil, err
	}
	return list.Data, nil
}

func (c *httpClient) CreateWebhook(ctx context.Context, webhookURL string) (*Webhook, error) {
	var hook Webhook
	if err := c.do(ctx, http.MethodPost, "/webhooks", Webhook{URL: webhookURL}, &hook); err != nil {
		return nil, err
	}
	return &hook, nil
}

func (c *httpClient) do(ctx context.Context, method, path string, payload, out any) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.roundTrip(ctx, method, path, payload, out)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("processor unavailable: %w", err)
	}
	return err
}

func (c *httpClient) roundTrip(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		reqBody, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
		body = bytes.NewReader(reqBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("Accept-Language", c.locale)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("User-Agent", "conekta-checkout/"+Version)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("processor request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read processor response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if err := json.Unmarshal(raw, apiErr); err != nil {
			c.logger.Debug("undecodable processor error body", "status", resp.StatusCode, "error", err)
		}
		return apiErr
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode processor response: %w", err)
	}
	return nil
}
