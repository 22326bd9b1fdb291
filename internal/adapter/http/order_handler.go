package http

import (
	"context"
	"net/http"
	"time"

	"github.com/aq2208/commerce-api/internal/adapter/http/middleware"
	domain "github.com/aq2208/commerce-api/internal/entity"
	"github.com/aq2208/commerce-api/internal/usecase"
	"github.com/gin-gonic/gin"
)

// UserID returns the authenticated subject set by the authz middleware.
func UserID(c *gin.Context) string {
	return c.GetString(middleware.CtxUserID)
}

type OrderHandler struct {
	checkout *usecase.Checkout
	finalize *usecase.FinalizePayment
	orders   usecase.OrderRepo
}

func NewOrderHandler(checkout *usecase.Checkout, finalize *usecase.FinalizePayment, orders usecase.OrderRepo) *OrderHandler {
	return &OrderHandler{checkout: checkout, finalize: finalize, orders: orders}
}

type checkoutReq struct {
	PaymentMethod string `json:"paymentMethod" binding:"required"`
}

type checkoutResp struct {
	OrderID    string           `json:"orderId"`
	TotalCents int64            `json:"totalCents"`
	Currency   string           `json:"currency"`
	Status     string           `json:"status"`
	Payment    usecase.IntentRef `json:"payment"`
}

// Checkout snapshots the cart into a pending order and returns the opaque
// payment reference. The generous timeout covers the outbound gateway call;
// if it still expires, the order stays pending and finalize remains safe to
// run later.
func (h *OrderHandler) Checkout(c *gin.Context) {
	var req checkoutReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	out, err := h.checkout.Execute(ctx, usecase.CheckoutInput{
		UserID:        UserID(c),
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, checkoutResp{
		OrderID:    out.OrderID,
		TotalCents: out.TotalCents,
		Currency:   out.Currency,
		Status:     string(domain.PaymentPending),
		Payment:    out.Ref,
	})
}

type orderResp struct {
	ID         string          `json:"id"`
	UserID     string          `json:"userId"`
	Status     string          `json:"status"`
	TotalCents int64           `json:"totalCents"`
	Currency   string          `json:"currency"`
	Items      []orderItemResp `json:"items"`
}

type orderItemResp struct {
	ProductID  string `json:"productId"`
	PriceCents int64  `json:"priceCents"`
	Quantity   int    `json:"quantity"`
}

func toOrderResp(o *domain.Order) orderResp {
	out := orderResp{
		ID:         o.ID,
		UserID:     o.UserID,
		Status:     string(o.Status),
		TotalCents: o.TotalCents,
		Currency:   o.Currency,
		Items:      []orderItemResp{},
	}
	for _, item := range o.Items {
		out.Items = append(out.Items, orderItemResp{
			ProductID:  item.ProductID,
			PriceCents: item.PriceCents,
			Quantity:   item.Quantity,
		})
	}
	return out
}

func (h *OrderHandler) GetOrderByID(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	order, err := h.orders.GetByID(ctx, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	if order.UserID != UserID(c) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}
	c.JSON(http.StatusOK, toOrderResp(order))
}

// MockPayment forces outcome=paid without gateway verification. Wired only
// under the /_test group; never expose it in production.
func (h *OrderHandler) MockPayment(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	order, err := h.finalize.Execute(ctx, c.Param("id"), usecase.OutcomePaid)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "mock payment successful",
		"order":   toOrderResp(order),
	})
}
