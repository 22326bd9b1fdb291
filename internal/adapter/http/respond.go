package http

import (
	"errors"
	"net/http"

	"github.com/aq2208/commerce-api/internal/usecase"
	"github.com/gin-gonic/gin"
)

// fail maps usecase errors onto HTTP outcomes. Validation problems come back
// as 4xx with a reason the client can act on; integrity violations escalate.
func fail(c *gin.Context, err error) {
	var stock *usecase.InsufficientStockError
	if errors.As(err, &stock) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "insufficient_stock",
			"productId": stock.ProductID,
			"requested": stock.Requested,
			"available": stock.Available,
		})
		return
	}

	var integrity *usecase.StockIntegrityError
	if errors.As(err, &integrity) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "integrity_violation"})
		return
	}

	switch {
	case errors.Is(err, usecase.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	case errors.Is(err, usecase.ErrEmptyCart):
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty_cart"})
	case errors.Is(err, usecase.ErrInvalidQuantity):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_quantity"})
	case errors.Is(err, usecase.ErrUnsupportedMethod):
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported_payment_method"})
	case errors.Is(err, usecase.ErrAlreadyFinalized):
		c.JSON(http.StatusConflict, gin.H{"error": "already_finalized"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}
