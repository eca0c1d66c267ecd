package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"conekta-checkout/internal/config"
	"conekta-checkout/internal/domain"
	"conekta-checkout/internal/infrastructure/processor"
	"conekta-checkout/internal/repo"
	"conekta-checkout/internal/service"
	"conekta-checkout/internal/translator"
	"conekta-checkout/internal/worker"
)

const returnURL = "https://shop.example/checkout/order-received"

type scenario struct {
	orderID  string
	gateway  string
	currency string
	// settle is the processor outcome; "" leaves the order awaiting payment.
	settle string
	// lost skips webhook delivery so only the worker can catch it.
	lost bool
}

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))

	orderRepo, paymentRepo := repo.NewMemory()
	mock := processor.NewMock()
	mock.OnCreate = rejectTaggedOrders

	dispatcher := service.NewDispatcher(orderRepo, paymentRepo, logger)
	gateways := map[string]service.Gateway{}
	reconcilers := map[string]*service.Reconciler{}
	var sources []worker.Source
	for _, s := range []config.GatewaySettings{
		{Kind: domain.GatewayCash, ID: domain.CashGatewayID, Name: domain.CashGatewayName, Enabled: true, APIKey: "key_sim", ExpirationDays: 1},
		{Kind: domain.GatewayBNPL, ID: domain.BNPLGatewayID, Name: domain.BNPLGatewayName, Enabled: true, APIKey: "key_sim", ExpirationDays: 2},
	} {
		gw := service.NewGateway(s, mock, orderRepo, dispatcher, service.GatewayOptions{PlatformVersion: "sim", Logger: logger})
		rec := service.NewReconciler(gw, orderRepo, service.ReconcilerOptions{Logger: logger})
		gateways[gw.ID()] = gw
		reconcilers[gw.ID()] = rec
		sources = append(sources, worker.Source{Gateway: gw, Reconciler: rec})
	}

	scenarios := []scenario{
		{orderID: "1001", gateway: domain.CashGatewayID, currency: "MXN", settle: processor.PaymentStatusPaid},
		{orderID: "1002", gateway: domain.BNPLGatewayID, currency: "MXN", settle: processor.PaymentStatusPaid},
		{orderID: "1003", gateway: domain.CashGatewayID, currency: "USD", settle: processor.PaymentStatusExpired},
		{orderID: "1004", gateway: domain.BNPLGatewayID, currency: "USD"},
		{orderID: "1005", gateway: domain.CashGatewayID, currency: "MXN"},
		{orderID: "1006-reject", gateway: domain.CashGatewayID, currency: "MXN"},
		{orderID: "1007", gateway: domain.CashGatewayID, currency: "MXN", settle: processor.PaymentStatusPaid, lost: true},
		{orderID: "1008", gateway: domain.BNPLGatewayID, currency: "MXN", settle: processor.PaymentStatusCanceled, lost: true},
	}

	fmt.Println("--- CHECKOUT ---")
	for _, sc := range scenarios {
		if err := orderRepo.Save(ctx, newOrder(sc)); err != nil {
			fmt.Printf("[%s] save failed: %v\n", sc.orderID, err)
			continue
		}
		res, err := gateways[sc.gateway].ProcessPayment(ctx, sc.orderID, returnURL+"/"+sc.orderID)
		if err != nil {
			fmt.Printf("[%s] %-13s FAILED: %v (notice: %q)\n", sc.orderID, sc.gateway, err, res.Notice)
			continue
		}
		fmt.Printf("[%s] %-13s %s -> %s\n", sc.orderID, sc.gateway, res.Result, res.Redirect)
	}

	fmt.Println("--- WEBHOOKS ---")
	for _, sc := range scenarios {
		order, _ := orderRepo.FindById(ctx, sc.orderID)
		processorID := order.MetaValue(domain.MetaProcessorOrderID)
		if sc.settle == "" || processorID == "" {
			continue
		}
		ev, err := mock.Settle(processorID, sc.settle)
		if err != nil {
			fmt.Printf("[%s] settle failed: %v\n", sc.orderID, err)
			continue
		}
		if sc.lost {
			fmt.Printf("[%s] %s webhook lost\n", sc.orderID, ev.Type)
			continue
		}

		// Both gateways share the webhook namespace, so each sees every event.
		for _, id := range []string{domain.CashGatewayID, domain.BNPLGatewayID} {
			deliver(ctx, reconcilers[id], id, sc.orderID, ev)
		}
		// At-least-once delivery: the same event again.
		deliver(ctx, reconcilers[sc.gateway], sc.gateway, sc.orderID, ev)
	}

	ping := processor.Event{ID: "evt_ping", Type: processor.EventWebhookPing}
	deliver(ctx, reconcilers[domain.CashGatewayID], domain.CashGatewayID, "-", ping)

	stray := processor.Event{
		ID:   "evt_stray",
		Type: processor.EventOrderPaid,
		Data: processor.EventData{Object: processor.Order{
			ID:       "ord_other_store",
			Metadata: map[string]string{translator.MetaPaymentMethod: domain.CashGatewayName},
		}},
	}
	deliver(ctx, reconcilers[domain.CashGatewayID], domain.CashGatewayID, "-", stray)

	fmt.Println("--- RECONCILIATION WORKER ---")
	wctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	worker.NewReconciliationWorker(orderRepo, sources, 100*time.Millisecond, 0, logger).Run(wctx)
	cancel()

	fmt.Println("--- FINAL STATE ---")
	for _, sc := range scenarios {
		order, _ := orderRepo.FindById(ctx, sc.orderID)
		fmt.Printf("[%s] %-13s status=%-10s processor_order=%s reference=%s\n",
			sc.orderID, sc.gateway, order.Status,
			order.MetaValue(domain.MetaProcessorOrderID),
			order.MetaValue(domain.MetaProcessorReference))
	}
}

func deliver(ctx context.Context, rec *service.Reconciler, gateway, orderID string, ev processor.Event) {
	res, err := rec.Handle(ctx, ev)
	if err != nil {
		fmt.Printf("[%s] %-13s %s error: %v\n", orderID, gateway, ev.Type, err)
		return
	}
	line := fmt.Sprintf("[%s] %-13s %-15s %s", orderID, gateway, ev.Type, res.Outcome)
	if res.Reason != "" {
		line += " (" + string(res.Reason) + ")"
	}
	if res.Outcome == service.OutcomeApplied {
		line += fmt.Sprintf(" %s -> %s", res.From, res.To)
	}
	fmt.Println(line)
}

func newOrder(sc scenario) *domain.Order {
	return &domain.Order{
		ID:       sc.orderID,
		Currency: sc.currency,
		Items: []domain.LineItem{
			{Name: "Widget", Quantity: 2, UnitPrice: "100.00"},
			{Name: "Gadget", Quantity: 1, UnitPrice: "349.90", Tax: "55.98"},
		},
		Taxes:    []domain.TaxLine{{Label: "IVA", Amount: "55.98"}},
		Fees:     []domain.FeeLine{{Name: "Envoltura", Amount: "15.00"}, {Name: "Cliente frecuente", Amount: "-20.00"}},
		Shipping: []domain.ShippingLine{{Method: "Estándar", Carrier: "Estafeta", Amount: "99.00"}},
		Customer: domain.Customer{FirstName: "Ana", LastName: "López", Email: "ana@example.com", Phone: "5512345678"},
		ShippingAddress: domain.Address{
			Street1: "Av. Reforma 222", City: "Ciudad de México", State: "CDMX", Country: "MX", PostalCode: "06600",
		},
	}
}

// rejectTaggedOrders fails orders whose id ends in -reject the way the
// processor rejects an invalid request.
func rejectTaggedOrders(req processor.OrderRequest) (*processor.Order, error) {
	if strings.HasSuffix(req.Metadata["reference_id"], "-reject") {
		return nil, &processor.APIError{
			StatusCode: 422,
			Type:       "parameter_validation_error",
			Details:    []processor.ErrorDetail{{Message: "El cliente no puede pagar en efectivo"}},
		}
	}
	return processor.MockOrder(req), nil
}
