package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"conekta-checkout/internal/infrastructure/processor"
	"conekta-checkout/internal/service"

	"github.com/gin-gonic/gin"
)

const maxWebhookBody = 1 << 20

type WebhookHandler struct {
	Logger      *slog.Logger
	Reconcilers map[string]*service.Reconciler
}

func NewWebhookHandler(logger *slog.Logger, reconcilers map[string]*service.Reconciler) *WebhookHandler {
	return &WebhookHandler{Logger: logger, Reconcilers: reconcilers}
}

// ANY /webhooks/:gateway?wc-api=<gateway>
// Anything but a POST routed to a configured gateway is acknowledged and ignored.
// Payloads are not signed by the processor and are not verified here.
func (h *WebhookHandler) Handle(c *gin.Context) {
	gateway := c.Param("gateway")
	rec, ok := h.Reconcilers[gateway]
	if !ok {
		h.Logger.Info("webhook for unconfigured gateway ignored", "gateway", gateway)
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}
	if c.Request.Method != http.MethodPost || c.Query("wc-api") != gateway {
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		h.Logger.Warn("webhook body unreadable", "gateway", gateway, "err", err)
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	var ev processor.Event
	if err := json.Unmarshal(body, &ev); err != nil {
		h.Logger.Warn("webhook payload undecodable", "gateway", gateway, "err", err)
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	res, err := rec.Handle(c.Request.Context(), ev)
	if err != nil {
		// 500 so the processor redelivers.
		h.Logger.Error("webhook apply failed", "gateway", gateway, "event_id", ev.ID, "type", ev.Type, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "outcome": res.Outcome})
}
