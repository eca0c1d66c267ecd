package domain

import (
	"errors"
	"fmt"
)

var (
	ErrGatewayUnavailable = errors.New("gateway unavailable")
	ErrAlreadyDispatched  = errors.New("order already has a processor order")
	ErrOrderNotFound      = errors.New("order not found")
	ErrUnknownGateway     = errors.New("unknown gateway")
)

// ConfigurationError disables a gateway at startup. It never reaches a
// checkout; the gateway reports itself unavailable instead.
type ConfigurationError struct {
	Gateway string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: configuration: %s", e.Gateway, e.Reason)
}

// TranslationError means the host order cannot be expressed as a processor
// request. Raised before any network call.
type TranslationError struct {
	OrderID string
	Field   string
	Err     error
}

func (e *TranslationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("translate order %s: %s: %v", e.OrderID, e.Field, e.Err)
	}
	return fmt.Sprintf("translate order %s: %s", e.OrderID, e.Field)
}

func (e *TranslationError) Unwrap() error { return e.Err }

// DispatchError wraps a failed order creation call. Message is the processor's
// own text and is shown to the customer as is.
type DispatchError struct {
	Gateway    string
	Message    string
	StatusCode int
	Err        error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("%s: dispatch failed: %s", e.Gateway, e.Message)
}

func (e *DispatchError) Unwrap() error { return e.Err }

type ReconciliationReason string

const (
	ReasonUnmatchedOrder ReconciliationReason = "unmatched_order"
	ReasonForeignGateway ReconciliationReason = "foreign_gateway"
	ReasonUnknownEvent   ReconciliationReason = "unknown_event"
	ReasonMalformed      ReconciliationReason = "malformed_event"
)

// ReconciliationError describes why a webhook was dropped. Webhook handlers
// log it and answer 200.
type ReconciliationError struct {
	EventID string
	Type    string
	Reason  ReconciliationReason
}

func (e *ReconciliationError) Error() string {
	return fmt.Sprintf("event %s (%s) dropped: %s", e.EventID, e.Type, e.Reason)
}
