package router

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"conekta-checkout/internal/config"
	"conekta-checkout/internal/domain"
	"conekta-checkout/internal/infrastructure/processor"
	"conekta-checkout/internal/render"
	"conekta-checkout/internal/repo"
	"conekta-checkout/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type app struct {
	engine *gin.Engine
	orders repo.OrderRepo
	mock   *processor.Mock
}

func newApp(t *testing.T) *app {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	orders, payments := repo.NewMemory()
	mock := processor.NewMock()
	dispatcher := service.NewDispatcher(orders, payments, logger)

	var (
		gateways    []service.Gateway
		reconcilers = map[string]*service.Reconciler{}
	)
	for _, s := range []config.GatewaySettings{
		{Kind: domain.GatewayCash, ID: domain.CashGatewayID, Name: domain.CashGatewayName, Enabled: true, APIKey: "key_test",
			ExpirationDays: 1, Title: "Efectivo", Icon: "/images/cash.png", WebhookURL: "https://shop.example/webhooks/conekta_cash?wc-api=conekta_cash"},
		{Kind: domain.GatewayBNPL, ID: domain.BNPLGatewayID, Name: domain.BNPLGatewayName, Enabled: true, APIKey: "key_test",
			ExpirationDays: 2, Title: "Pago en Plazos", Icon: "/images/credits.png"},
	} {
		gw := service.NewGateway(s, mock, orders, dispatcher, service.GatewayOptions{PlatformVersion: "8.5.0", Logger: logger})
		gateways = append(gateways, gw)
		reconcilers[gw.ID()] = service.NewReconciler(gw, orders, service.ReconcilerOptions{Logger: logger})
	}

	engine := New(Deps{
		Logger:      logger,
		Orders:      service.NewOrderService(orders, payments),
		Gateways:    gateways,
		Reconcilers: reconcilers,
		Catalog:     render.Spanish,
	})
	return &app{engine: engine, orders: orders, mock: mock}
}

func (a *app) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

func (a *app) status(t *testing.T, id string) domain.OrderStatus {
	t.Helper()
	o, err := a.orders.FindById(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, o)
	return o.Status
}

var widgetOrder = map[string]any{
	"currency": "MXN",
	"items":    []map[string]any{{"name": "Widget", "quantity": 2, "unit_price": "100.00"}},
	"customer": map[string]any{"first_name": "Ana", "last_name": "López", "email": "ana@example.com"},
}

const returnURL = "https://shop.example/checkout/order-received/42"

func TestCashCheckoutAndWebhook(t *testing.T) {
	a := newApp(t)

	w := a.do(t, http.MethodPut, "/orders/42", widgetOrder)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = a.do(t, http.MethodPost, "/orders/42/payments/conekta_cash", map[string]string{"return_url": returnURL})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res service.CheckoutResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, service.ResultSuccess, res.Result)
	assert.Equal(t, returnURL, res.Redirect)
	assert.Equal(t, domain.OrderOnHold, a.status(t, "42"))

	// A second attempt is refused.
	w = a.do(t, http.MethodPost, "/orders/42/payments/conekta_cash", map[string]string{"return_url": returnURL})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = a.do(t, http.MethodGet, "/orders/42/instructions", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var instr struct {
		Reference    string                `json:"reference"`
		Instructions []render.Instructions `json:"instructions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &instr))
	require.Len(t, instr.Instructions, 1)
	assert.Equal(t, instr.Reference, instr.Instructions[0].Reference)
	assert.Equal(t, render.LayoutCashIn, instr.Instructions[0].Layout)

	order, err := a.orders.FindById(context.Background(), "42")
	require.NoError(t, err)
	ev, err := a.mock.Settle(order.MetaValue(domain.MetaProcessorOrderID), processor.PaymentStatusPaid)
	require.NoError(t, err)

	// Routed to the other gateway: acknowledged, not applied.
	w = a.do(t, http.MethodPost, "/webhooks/conekta_bnpl?wc-api=conekta_bnpl", ev)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.OrderOnHold, a.status(t, "42"))

	w = a.do(t, http.MethodPost, "/webhooks/conekta_cash?wc-api=conekta_cash", ev)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true,"outcome":"applied"}`, w.Body.String())
	assert.Equal(t, domain.OrderProcessing, a.status(t, "42"))

	w = a.do(t, http.MethodPost, "/webhooks/conekta_cash?wc-api=conekta_cash", ev)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true,"outcome":"noop"}`, w.Body.String())

	w = a.do(t, http.MethodGet, "/orders/42", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var view service.OrderView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Len(t, view.Attempts, 1)
	assert.Len(t, view.Notes, 2)
}

func TestBNPLCheckoutRedirects(t *testing.T) {
	a := newApp(t)
	require.Equal(t, http.StatusOK, a.do(t, http.MethodPut, "/orders/7", widgetOrder).Code)

	w := a.do(t, http.MethodPost, "/orders/7/payments/conekta_bnpl", map[string]string{"return_url": returnURL})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res service.CheckoutResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Contains(t, res.Redirect, "https://pay.conekta.com/checkout/")
	assert.Equal(t, domain.OrderPending, a.status(t, "7"))
}

func TestCheckoutFailures(t *testing.T) {
	a := newApp(t)
	usd := map[string]any{"currency": "USD", "items": widgetOrder["items"]}
	require.Equal(t, http.StatusOK, a.do(t, http.MethodPut, "/orders/8", usd).Code)
	require.Equal(t, http.StatusOK, a.do(t, http.MethodPut, "/orders/9", widgetOrder).Code)

	tests := []struct {
		name   string
		target string
		body   any
		want   int
	}{
		{"unknown gateway", "/orders/9/payments/paypal", map[string]string{"return_url": returnURL}, http.StatusNotFound},
		{"unknown order", "/orders/404/payments/conekta_cash", map[string]string{"return_url": returnURL}, http.StatusNotFound},
		{"missing return url", "/orders/9/payments/conekta_cash", map[string]string{}, http.StatusBadRequest},
		{"currency not offered", "/orders/8/payments/conekta_bnpl", map[string]string{"return_url": returnURL}, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := a.do(t, http.MethodPost, tt.target, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}

	t.Run("processor rejection", func(t *testing.T) {
		a.mock.OnCreate = func(req processor.OrderRequest) (*processor.Order, error) {
			return nil, &processor.APIError{StatusCode: 401, Details: []processor.ErrorDetail{{Message: "Llave inválida"}}}
		}
		defer func() { a.mock.OnCreate = nil }()

		w := a.do(t, http.MethodPost, "/orders/9/payments/conekta_cash", map[string]string{"return_url": returnURL})
		assert.Equal(t, http.StatusPaymentRequired, w.Code)
		var res service.CheckoutResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		assert.Equal(t, "Error: Llave inválida", res.Notice)
		assert.True(t, res.ReloadCheckout)
		assert.Equal(t, domain.OrderPending, a.status(t, "9"))
	})
}

func TestWebhookIgnoredRequests(t *testing.T) {
	a := newApp(t)
	ping := map[string]any{"id": "evt_ping", "type": "webhook_ping"}

	tests := []struct {
		name   string
		method string
		target string
		body   any
		want   int
	}{
		{"get", http.MethodGet, "/webhooks/conekta_cash?wc-api=conekta_cash", nil, http.StatusOK},
		{"missing routing parameter", http.MethodPost, "/webhooks/conekta_cash", ping, http.StatusOK},
		{"mismatched routing parameter", http.MethodPost, "/webhooks/conekta_cash?wc-api=conekta_bnpl", ping, http.StatusOK},
		{"ping", http.MethodPost, "/webhooks/conekta_cash?wc-api=conekta_cash", ping, http.StatusOK},
		{"unknown event", http.MethodPost, "/webhooks/conekta_cash?wc-api=conekta_cash", map[string]any{"type": "charge.created"}, http.StatusOK},
		{"unknown gateway", http.MethodPost, "/webhooks/stripe?wc-api=stripe", ping, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := a.do(t, tt.method, tt.target, tt.body)
			assert.Equal(t, tt.want, w.Code)
		})
	}

	t.Run("undecodable body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/webhooks/conekta_cash?wc-api=conekta_cash", bytes.NewBufferString("{not json"))
		w := httptest.NewRecorder()
		a.engine.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestGatewaysEndpoints(t *testing.T) {
	a := newApp(t)

	w := a.do(t, http.MethodGet, "/gateways?currency=usd", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Gateways []struct {
			ID        string `json:"id"`
			Available bool   `json:"available"`
		} `json:"gateways"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Gateways, 2)
	assert.True(t, list.Gateways[0].Available)
	assert.False(t, list.Gateways[1].Available)

	w = a.do(t, http.MethodPost, "/gateways/conekta_cash/webhook", nil)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	hooks, err := a.mock.ListWebhooks(context.Background())
	require.NoError(t, err)
	assert.Len(t, hooks, 1)

	w = a.do(t, http.MethodPost, "/gateways/conekta_bnpl/webhook", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = a.do(t, http.MethodPost, "/gateways/paypal/webhook", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealthWithoutDatabase(t *testing.T) {
	a := newApp(t)
	w := a.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
