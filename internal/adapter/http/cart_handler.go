package http

import (
	"context"
	"net/http"
	"time"

	domain "github.com/aq2208/commerce-api/internal/entity"
	"github.com/aq2208/commerce-api/internal/usecase"
	"github.com/gin-gonic/gin"
)

type CartHandler struct {
	svc *usecase.CartService
}

func NewCartHandler(svc *usecase.CartService) *CartHandler {
	return &CartHandler{svc: svc}
}

type cartItemResp struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type cartResp struct {
	ID     string         `json:"id"`
	UserID string         `json:"userId"`
	Items  []cartItemResp `json:"items"`
}

func toCartResp(c *domain.Cart) cartResp {
	out := cartResp{ID: c.ID, UserID: c.UserID, Items: []cartItemResp{}}
	for _, item := range c.Items {
		out.Items = append(out.Items, cartItemResp{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return out
}

func (h *CartHandler) GetCart(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	cart, err := h.svc.GetOrCreate(ctx, UserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toCartResp(cart))
}

type addItemReq struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,gt=0"`
}

func (h *CartHandler) AddItem(c *gin.Context) {
	var req addItemReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	cart, err := h.svc.AddItem(ctx, UserID(c), req.ProductID, req.Quantity)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toCartResp(cart))
}

type updateItemReq struct {
	Quantity int `json:"quantity" binding:"required,gt=0"`
}

func (h *CartHandler) UpdateItem(c *gin.Context) {
	var req updateItemReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	cart, err := h.svc.UpdateItem(ctx, UserID(c), c.Param("productId"), req.Quantity)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toCartResp(cart))
}

func (h *CartHandler) RemoveItem(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	if err := h.svc.RemoveItem(ctx, UserID(c), c.Param("productId")); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
