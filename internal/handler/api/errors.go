package api

import (
	"errors"
	"net/http"

	"boxoffice/internal/infra"
	"boxoffice/internal/usecase/commands"

	"github.com/gin-gonic/gin"
)

func respondQueryError(c *gin.Context, err error) {
	if infra.IsKind(err, infra.KindNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Order not found",
		})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{
		"error": "Internal server error",
	})
}

// respondCommandError maps usecase sentinels onto HTTP statuses. A failed
// change-batch operation additionally reports which queued operation broke
// the batch.
func respondCommandError(c *gin.Context, err error) {
	var opErr *commands.OperationError
	if errors.As(err, &opErr) {
		detail := gin.H{"index": opErr.Index, "op": string(opErr.Kind)}
		if opErr.PositionID != nil {
			detail["position_id"] = opErr.PositionID.String()
		}
		status := http.StatusUnprocessableEntity
		if errors.Is(opErr.Err, commands.ErrQuotaExceeded) {
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{
			"error":  "Order change rejected",
			"detail": detail,
		})
		return
	}

	switch {
	case errors.Is(err, commands.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Order not found",
		})
	case errors.Is(err, commands.ErrItemNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Item not found",
		})
	case errors.Is(err, commands.ErrDateInstanceNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Date instance not found",
		})
	case errors.Is(err, commands.ErrInvoiceNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Invoice not found",
		})
	case errors.Is(err, commands.ErrQuotaExceeded):
		c.JSON(http.StatusConflict, gin.H{
			"error": "Insufficient quota",
		})
	case errors.Is(err, commands.ErrLockTimeout):
		c.JSON(http.StatusConflict, gin.H{
			"error": "The order is busy, try again shortly",
		})
	case errors.Is(err, commands.ErrInvalidStatus):
		c.JSON(http.StatusConflict, gin.H{
			"error": "Operation not allowed in the order's current status",
		})
	case errors.Is(err, commands.ErrInvoiceExists):
		c.JSON(http.StatusConflict, gin.H{
			"error": "An invoice already exists for this order",
		})
	case errors.Is(err, commands.ErrInvoiceStateConflict):
		c.JSON(http.StatusConflict, gin.H{
			"error": "Invoice is already canceled",
		})
	case errors.Is(err, commands.ErrBatchClosed):
		c.JSON(http.StatusConflict, gin.H{
			"error": "Change batch is already closed",
		})
	case errors.Is(err, commands.ErrInvalidOperation):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error": "Invalid operation",
		})
	case errors.Is(err, commands.ErrDeliveryFailure):
		c.JSON(http.StatusBadGateway, gin.H{
			"error": "Customer notification could not be delivered",
		})
	case infra.IsKind(err, infra.KindNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Not found",
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
	}
}
