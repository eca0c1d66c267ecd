package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"conekta-checkout/internal/database"
	"conekta-checkout/internal/domain"
	"conekta-checkout/internal/service"

	"github.com/gin-gonic/gin"
)

type GatewayHandler struct {
	Logger   *slog.Logger
	Gateways []service.Gateway
}

func NewGatewayHandler(logger *slog.Logger, gateways []service.Gateway) *GatewayHandler {
	return &GatewayHandler{Logger: logger, Gateways: gateways}
}

type gatewayView struct {
	ID          string   `json:"id"`
	Kind        string   `json:"kind"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Icon        string   `json:"icon"`
	Currencies  []string `json:"currencies"`
	Available   bool     `json:"available"`
	Problems    []string `json:"problems,omitempty"`
}

// GET /gateways?currency=MXN
func (h *GatewayHandler) List(c *gin.Context) {
	currency := strings.ToUpper(c.Query("currency"))

	out := make([]gatewayView, 0, len(h.Gateways))
	for _, gw := range h.Gateways {
		s := gw.Settings()
		v := gatewayView{
			ID:          s.ID,
			Kind:        string(s.Kind),
			Title:       s.Title,
			Description: s.Description,
			Icon:        s.IconURL(),
			Currencies:  s.Kind.Currencies(),
		}
		for _, p := range s.Problems() {
			v.Problems = append(v.Problems, p.Reason)
		}
		if currency != "" {
			v.Available = gw.Available(currency)
		} else {
			v.Available = len(v.Problems) == 0
		}
		out = append(out, v)
	}
	c.JSON(http.StatusOK, gin.H{"gateways": out})
}

// POST /gateways/:gateway/webhook
func (h *GatewayHandler) RegisterWebhook(c *gin.Context) {
	id := c.Param("gateway")
	for _, gw := range h.Gateways {
		if gw.ID() != id {
			continue
		}
		if err := gw.RegisterWebhook(c.Request.Context()); err != nil {
			h.Logger.Error("webhook registration failed", "gateway", id, "err", err)
			status := statusFor(err)
			if status == http.StatusInternalServerError {
				status = http.StatusBadGateway
			}
			c.JSON(status, gin.H{"ok": false, "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true, "url": gw.Settings().WebhookURL})
		return
	}
	fail(c, domain.ErrUnknownGateway)
}

type HealthHandler struct {
	DB database.Service
}

// GET /health
func (h *HealthHandler) Get(c *gin.Context) {
	stats := h.DB.Health(c.Request.Context())
	status := http.StatusOK
	if stats["status"] != "up" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, stats)
}
