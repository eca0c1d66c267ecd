package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"conekta-checkout/internal/config"
	"conekta-checkout/internal/domain"
	"conekta-checkout/internal/infrastructure/processor"
	"conekta-checkout/internal/repo"
	"conekta-checkout/internal/translator"
)

// Gateway is one payment method offered to the host platform. Cash and BNPL
// share the implementation and differ only in their settings.
type Gateway interface {
	ID() string
	Name() string
	Kind() domain.GatewayKind
	Settings() config.GatewaySettings
	Available(currency string) bool
	ProcessPayment(ctx context.Context, orderID, returnURL string) (CheckoutResult, error)
	Order(ctx context.Context, processorOrderID string) (*processor.Order, error)
	RegisterWebhook(ctx context.Context) error
}

const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// CheckoutResult tells the host where to send the customer next.
type CheckoutResult struct {
	Result         string `json:"result"`
	Redirect       string `json:"redirect,omitempty"`
	Notice         string `json:"notice,omitempty"`
	ReloadCheckout bool   `json:"reload_checkout,omitempty"`
}

const genericFailureNotice = "No pudimos procesar tu pago. Intenta de nuevo."

type GatewayOptions struct {
	PlatformVersion string
	Logger          *slog.Logger
	Now             func() time.Time
}

type gateway struct {
	settings        config.GatewaySettings
	client          processor.Client
	orders          repo.OrderRepo
	dispatcher      *Dispatcher
	platformVersion string
	logger          *slog.Logger
	now             func() time.Time
}

func NewGateway(
	settings config.GatewaySettings,
	client processor.Client,
	orders repo.OrderRepo,
	dispatcher *Dispatcher,
	opts GatewayOptions,
) Gateway {
	g := &gateway{
		settings:        settings,
		client:          client,
		orders:          orders,
		dispatcher:      dispatcher,
		platformVersion: opts.PlatformVersion,
		logger:          opts.Logger,
		now:             opts.Now,
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	g.logger = g.logger.With("gateway", settings.ID)
	if g.now == nil {
		g.now = time.Now
	}
	for _, problem := range settings.Problems() {
		g.logger.Warn("gateway disabled", "reason", problem.Reason)
	}
	return g
}

func (g *gateway) ID() string                       { return g.settings.ID }
func (g *gateway) Name() string                     { return g.settings.Name }
func (g *gateway) Kind() domain.GatewayKind         { return g.settings.Kind }
func (g *gateway) Settings() config.GatewaySettings { return g.settings }

func (g *gateway) Available(currency string) bool {
	return g.client != nil && g.settings.Available(currency)
}

func (g *gateway) ProcessPayment(ctx context.Context, orderID, returnURL string) (CheckoutResult, error) {
	failure := CheckoutResult{Result: ResultFailure, Notice: genericFailureNotice}

	order, err := g.orders.FindById(ctx, orderID)
	if err != nil {
		return failure, fmt.Errorf("load order %s: %w", orderID, err)
	}
	if order == nil {
		return failure, fmt.Errorf("%w: %s", domain.ErrOrderNotFound, orderID)
	}
	if !g.Available(order.Currency) {
		return failure, fmt.Errorf("%w: %s for %s", domain.ErrGatewayUnavailable, g.settings.ID, order.Currency)
	}
	if order.MetaValue(domain.MetaProcessorOrderID) != "" {
		return failure, fmt.Errorf("%w: order %s", domain.ErrAlreadyDispatched, orderID)
	}

	req, err := translator.Translate(order, g.settings.Kind, g.settings.ExpirationDays, translator.Options{
		GatewayName:     g.settings.Name,
		PlatformVersion: g.platformVersion,
		ClientVersion:   processor.Version,
		ReturnURL:       returnURL,
		Metadata:        callerMetadata(order.Meta),
		Now:             g.now,
	})
	if err != nil {
		g.logger.ErrorContext(ctx, "order translation failed", "order_id", orderID, "error", err)
		return failure, err
	}

	created, err := g.dispatcher.Dispatch(ctx, g.client, g.settings, order, req)
	if err != nil {
		var dispatchErr *domain.DispatchError
		if errors.As(err, &dispatchErr) {
			return CheckoutResult{
				Result:         ResultFailure,
				Notice:         "Error: " + dispatchErr.Message,
				ReloadCheckout: true,
			}, err
		}
		return failure, err
	}

	redirect := returnURL
	if g.settings.Kind == domain.GatewayBNPL && created.Checkout != nil {
		redirect = created.Checkout.URL
	}
	return CheckoutResult{Result: ResultSuccess, Redirect: redirect}, nil
}

func (g *gateway) Order(ctx context.Context, processorOrderID string) (*processor.Order, error) {
	if g.client == nil {
		return nil, domain.ErrGatewayUnavailable
	}
	return g.client.GetOrder(ctx, processorOrderID)
}

// RegisterWebhook makes sure the configured webhook URL is subscribed at the
// processor. Existing subscriptions are left alone.
func (g *gateway) RegisterWebhook(ctx context.Context) error {
	if g.client == nil {
		return domain.ErrGatewayUnavailable
	}
	if g.settings.WebhookURL == "" {
		return &domain.ConfigurationError{Gateway: g.settings.ID, Reason: "missing webhook url"}
	}

	hooks, err := g.client.ListWebhooks(ctx)
	if err != nil {
		return fmt.Errorf("list webhooks: %w", err)
	}
	if slices.ContainsFunc(hooks, func(h processor.Webhook) bool { return h.URL == g.settings.WebhookURL }) {
		g.logger.InfoContext(ctx, "webhook already registered", "url", g.settings.WebhookURL)
		return nil
	}

	hook, err := g.client.CreateWebhook(ctx, g.settings.WebhookURL)
	if err != nil {
		return fmt.Errorf("create webhook: %w", err)
	}
	g.logger.InfoContext(ctx, "webhook registered", "url", hook.URL, "webhook_id", hook.ID)
	return nil
}

// callerMetadata drops the keys this service writes itself.
func callerMetadata(meta map[string]string) map[string]string {
	out := make(map[string]string, len(meta))
	for k, v := range meta {
		if k == domain.MetaProcessorOrderID || k == domain.MetaProcessorReference || strings.HasPrefix(k, "_") {
			continue
		}
		out[k] = v
	}
	return out
}
