package domain

import (
	"time"

	"github.com/google/uuid"
)

type AttemptStatus string

const (
	AttemptSucceeded AttemptStatus = "SUCCEEDED"
	AttemptFailed    AttemptStatus = "FAILED"
)

// PaymentAttempt records one call to the processor's order creation endpoint.
type PaymentAttempt struct {
	ID               uuid.UUID
	OrderID          string
	Gateway          string
	ProcessorOrderID string
	Status           AttemptStatus
	Error            string
	CreatedAt        time.Time
}
