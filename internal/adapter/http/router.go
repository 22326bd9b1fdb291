package http

import (
	"github.com/aq2208/commerce-api/internal/adapter/http/middleware"
	"github.com/aq2208/commerce-api/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handlers struct {
	Cart    *CartHandler
	Orders  *OrderHandler
	Webhook *WebhookHandler
	Token   *TokenHandler
}

func NewRouter(h Handlers, authz *middleware.Authz) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.MetricsMiddleware())

	l := logging.New("http")
	r.Use(middleware.Logging(l))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})
	// Prometheus endpoint (scraped by Prometheus)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.POST("/v1/token", h.Token.IssueToken)

	// Gateway callbacks authenticate by signature, not bearer token.
	r.POST("/v1/payments/webhook", h.Webhook.Handle)

	// Test-only confirmation path for the mock gateway.
	r.GET("/_test/mock-payment/:id", h.Orders.MockPayment)

	v1 := r.Group("/v1")
	{
		v1.GET("/cart", authz.Require("cart.read"), h.Cart.GetCart)
		v1.POST("/cart/items", authz.Require("cart.write"), h.Cart.AddItem)
		v1.PATCH("/cart/items/:productId", authz.Require("cart.write"), h.Cart.UpdateItem)
		v1.DELETE("/cart/items/:productId", authz.Require("cart.write"), h.Cart.RemoveItem)

		v1.POST("/orders/checkout", authz.Require("orders.write"), h.Orders.Checkout)
		v1.GET("/orders/:id", authz.Require("orders.read"), h.Orders.GetOrderByID)
	}

	return r
}
