package router

import (
	"log/slog"
	"net/http"
	"time"

	"conekta-checkout/internal/database"
	"conekta-checkout/internal/http/handlers"
	"conekta-checkout/internal/http/middleware"
	"conekta-checkout/internal/render"
	"conekta-checkout/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Deps struct {
	Logger      *slog.Logger
	DB          database.Service
	Orders      service.OrderService
	Gateways    []service.Gateway
	Reconcilers map[string]*service.Reconciler
	Catalog     render.Catalog
	CORSOrigins []string
}

func New(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Recovery(d.Logger), middleware.Logger(d.Logger))

	if len(d.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     d.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", middleware.HeaderRequestID},
			ExposeHeaders:    []string{middleware.HeaderRequestID},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	byID := make(map[string]service.Gateway, len(d.Gateways))
	for _, gw := range d.Gateways {
		byID[gw.ID()] = gw
	}

	webhooks := handlers.NewWebhookHandler(d.Logger, d.Reconcilers)
	orders := handlers.NewOrderHandler(d.Logger, d.Orders, byID, d.Catalog)
	gateways := handlers.NewGatewayHandler(d.Logger, d.Gateways)

	r.Any("/webhooks/:gateway", webhooks.Handle)

	r.PUT("/orders/:id", orders.Put)
	r.GET("/orders/:id", orders.Get)
	r.POST("/orders/:id/payments/:gateway", orders.Pay)
	r.GET("/orders/:id/instructions", orders.Instructions)

	r.GET("/gateways", gateways.List)
	r.POST("/gateways/:gateway/webhook", gateways.RegisterWebhook)

	if d.DB != nil {
		health := &handlers.HealthHandler{DB: d.DB}
		r.GET("/health", health.Get)
	} else {
		r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "up"}) })
	}

	return r
}
