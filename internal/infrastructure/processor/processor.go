package processor

import (
	"context"
	"fmt"
)

// Version identifies this client library to the processor and in order metadata.
const Version = "5.1.0"

type Client interface {
	CreateOrder(ctx context.Context, req OrderRequest) (*Order, error)
	GetOrder(ctx context.Context, id string) (*Order, error)
	ListWebhooks(ctx context.Context) ([]Webhook, error)
	CreateWebhook(ctx context.Context, url string) (*Webhook, error)
}

// APIError is the processor's error envelope.
type APIError struct {
	StatusCode int           `json:"-"`
	Type       string        `json:"type"`
	LogID      string        `json:"log_id"`
	Details    []ErrorDetail `json:"details"`
}

type ErrorDetail struct {
	Message      string `json:"message"`
	DebugMessage string `json:"debug_message"`
	Param        string `json:"param"`
	Code         string `json:"code"`
}

func (e *APIError) Message() string {
	if len(e.Details) > 0 && e.Details[0].Message != "" {
		return e.Details[0].Message
	}
	if e.Type != "" {
		return e.Type
	}
	return fmt.Sprintf("processor returned status %d", e.StatusCode)
}

func (e *APIError) Error() string {
	return fmt.Sprintf("processor: %d %s: %s", e.StatusCode, e.Type, e.Message())
}

// Temporary reports whether the failure is on the processor's side.
func (e *APIError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}
