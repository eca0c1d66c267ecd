package handlers

import (
	"fmt"
	"log/slog"
	"net/http"

	"conekta-checkout/internal/domain"
	"conekta-checkout/internal/render"
	"conekta-checkout/internal/service"

	"github.com/gin-gonic/gin"
)

type OrderHandler struct {
	Logger   *slog.Logger
	Orders   service.OrderService
	Gateways map[string]service.Gateway
	Catalog  render.Catalog
}

func NewOrderHandler(logger *slog.Logger, orders service.OrderService, gateways map[string]service.Gateway, catalog render.Catalog) *OrderHandler {
	return &OrderHandler{Logger: logger, Orders: orders, Gateways: gateways, Catalog: catalog}
}

// PUT /orders/:id
func (h *OrderHandler) Put(c *gin.Context) {
	var order domain.Order
	if err := c.ShouldBindJSON(&order); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}
	order.ID = c.Param("id")

	saved, err := h.Orders.Upsert(c.Request.Context(), &order)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

// GET /orders/:id
func (h *OrderHandler) Get(c *gin.Context) {
	view, err := h.Orders.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

type paymentRequest struct {
	ReturnURL string `json:"return_url" binding:"required,url"`
}

// POST /orders/:id/payments/:gateway
func (h *OrderHandler) Pay(c *gin.Context) {
	gw, ok := h.Gateways[c.Param("gateway")]
	if !ok {
		fail(c, fmt.Errorf("%w: %s", domain.ErrUnknownGateway, c.Param("gateway")))
		return
	}

	var req paymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "return_url is required"})
		return
	}

	res, err := gw.ProcessPayment(c.Request.Context(), c.Param("id"), req.ReturnURL)
	if err != nil {
		c.Error(err)
		c.JSON(statusFor(err), res)
		return
	}
	c.JSON(http.StatusOK, res)
}

type instructionsResponse struct {
	OrderID          string                `json:"order_id"`
	ProcessorOrderID string                `json:"processor_order_id"`
	Reference        string                `json:"reference,omitempty"`
	Instructions     []render.Instructions `json:"instructions"`
}

// GET /orders/:id/instructions
func (h *OrderHandler) Instructions(c *gin.Context) {
	ctx := c.Request.Context()
	view, err := h.Orders.Get(ctx, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	order := view.Order

	processorID := order.MetaValue(domain.MetaProcessorOrderID)
	if processorID == "" {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "order has no processor order"})
		return
	}

	gw, ok := h.Gateways[order.PaymentMethod]
	if !ok {
		gw, ok = h.Gateways[domain.CashGatewayID]
	}
	if !ok {
		fail(c, domain.ErrGatewayUnavailable)
		return
	}

	processorOrder, err := gw.Order(ctx, processorID)
	if err != nil {
		h.Logger.Error("failed to fetch processor order", "order_id", order.ID, "processor_order_id", processorID, "err", err)
		c.JSON(http.StatusBadGateway, gin.H{"ok": false, "error": "processor unavailable"})
		return
	}

	instructions := render.Render(*processorOrder, h.Catalog)
	if instructions == nil {
		instructions = []render.Instructions{}
	}
	c.JSON(http.StatusOK, instructionsResponse{
		OrderID:          order.ID,
		ProcessorOrderID: processorID,
		Reference:        order.MetaValue(domain.MetaProcessorReference),
		Instructions:     instructions,
	})
}
