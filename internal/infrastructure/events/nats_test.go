package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"conekta-checkout/internal/config"
	"conekta-checkout/internal/domain"
	"conekta-checkout/internal/service"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// subscribe delivers every status change published under the subject.
func (p *Publisher) subscribe(handler func(service.StatusChange)) (*nats.Subscription, error) {
	return p.conn.Subscribe(p.subject+".>", func(msg *nats.Msg) {
		var change service.StatusChange
		if err := json.Unmarshal(msg.Data, &change); err != nil {
			return
		}
		handler(change)
	})
}

func setupNATS(t *testing.T) *Publisher {
	t.Helper()
	if testing.Short() {
		t.Skip("nats container tests skipped in short mode")
	}
	ctx := context.Background()

	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "nats:2.10-alpine",
			ExposedPorts: []string{"4222/tcp"},
			WaitingFor:   wait.ForLog("Server is ready"),
		},
		Started: true,
	})
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	endpoint, err := ctr.PortEndpoint(ctx, "4222/tcp", "nats")
	require.NoError(t, err)

	pub, err := Connect(config.NATSConfig{URL: endpoint, Subject: "orders.status"})
	require.NoError(t, err)
	t.Cleanup(pub.Close)
	return pub
}

func TestPublishStatus(t *testing.T) {
	pub := setupNATS(t)

	received := make(chan service.StatusChange, 1)
	sub, err := pub.subscribe(func(c service.StatusChange) { received <- c })
	require.NoError(t, err)
	t.Cleanup(func() { sub.Unsubscribe() })
	require.NoError(t, pub.conn.Flush())

	change := service.StatusChange{
		OrderID:          "42",
		ProcessorOrderID: "ord_1",
		Gateway:          domain.CashGatewayID,
		Event:            "order.paid",
		From:             domain.OrderOnHold,
		To:               domain.OrderProcessing,
		At:               time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, pub.PublishStatus(context.Background(), change))

	select {
	case got := <-received:
		assert.Equal(t, change, got)
	case <-time.After(5 * time.Second):
		t.Fatal("status change not delivered")
	}
}

func TestPublishStatus_Closed(t *testing.T) {
	pub := NewPublisher(nil, "orders.status")
	err := pub.PublishStatus(context.Background(), service.StatusChange{OrderID: "1"})
	assert.Error(t, err)
}
