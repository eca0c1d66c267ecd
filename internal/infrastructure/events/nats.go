// Package events announces order status changes on NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"conekta-checkout/internal/config"
	"conekta-checkout/internal/service"

	"github.com/nats-io/nats.go"
)

type Publisher struct {
	conn    *nats.Conn
	subject string
}

func Connect(cfg config.NATSConfig) (*Publisher, error) {
	conn, err := nats.Connect(cfg.URL, nats.Name("conekta-checkout"))
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return NewPublisher(conn, cfg.Subject), nil
}

func NewPublisher(conn *nats.Conn, subject string) *Publisher {
	return &Publisher{conn: conn, subject: subject}
}

// PublishStatus sends the change to <subject>.<to status>.
func (p *Publisher) PublishStatus(ctx context.Context, change service.StatusChange) error {
	if p.conn == nil || p.conn.IsClosed() {
		return nats.ErrConnectionClosed
	}
	data, err := json.Marshal(change)
	if err != nil {
		return err
	}
	return p.conn.Publish(p.subject+"."+string(change.To), data)
}

func (p *Publisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}
