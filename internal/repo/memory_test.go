package repo

import (
	"context"
	"testing"
	"time"

	"conekta-checkout/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryOrderRepo(t *testing.T) {
	orders, _ := NewMemory()
	ctx := context.Background()

	require.NoError(t, orders.Save(ctx, sampleOrder("1")))
	require.NoError(t, orders.SetMeta(ctx, "1", domain.MetaProcessorOrderID, "ord_1"))

	got, err := orders.FindByMeta(ctx, domain.MetaProcessorOrderID, "ord_1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "ring twice", got.MetaValue("customer_note"))

	ok, err := orders.TransitionStatus(ctx, "1", domain.OrderPending, domain.OrderOnHold, "held")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = orders.TransitionStatus(ctx, "1", domain.OrderPending, domain.OrderOnHold, "held")
	require.NoError(t, err)
	assert.False(t, ok)

	again := sampleOrder("1")
	require.NoError(t, orders.Save(ctx, again))
	assert.Equal(t, domain.OrderOnHold, again.Status)

	got, err = orders.FindById(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "ord_1", got.MetaValue(domain.MetaProcessorOrderID), "snapshot push keeps service metadata")

	stale, err := orders.FindStale(ctx, []domain.OrderStatus{domain.OrderOnHold}, -time.Second, 10)
	require.NoError(t, err)
	require.Len(t, stale, 1)

	stale, err = orders.FindStale(ctx, []domain.OrderStatus{domain.OrderOnHold}, time.Hour, 10)
	require.NoError(t, err)
	assert.Empty(t, stale)

	assert.ErrorIs(t, orders.SetMeta(ctx, "missing", "k", "v"), domain.ErrOrderNotFound)
}
