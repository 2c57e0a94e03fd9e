package handlers

import (
	"net/http"

	"ppob-backend/internal/middleware"
	"ppob-backend/internal/models"
	"ppob-backend/internal/orders"
	"ppob-backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

type OrderHandler struct {
	orders *orders.Service
}

func NewOrderHandler(svc *orders.Service) *OrderHandler {
	return &OrderHandler{orders: svc}
}

// CreateOrder membuat order dan Snap token Midtrans (bisa hybrid dengan poin)
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var input models.CreateOrderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.BindError(c, err)
		return
	}

	res, err := h.orders.CreateGatewayOrder(c.Request.Context(), middleware.CurrentUID(c), input)
	if err != nil {
		utils.ErrorJSON(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// CreateOrderWithPoints: bayar penuh pakai poin
func (h *OrderHandler) CreateOrderWithPoints(c *gin.Context) {
	var input models.CreatePointsOrderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.BindError(c, err)
		return
	}

	orderID, err := h.orders.CreatePointsOrder(c.Request.Context(), middleware.CurrentUID(c), input)
	if err != nil {
		utils.ErrorJSON(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"orderId": orderID,
		"message": "Order berhasil dibuat, pesanan sedang diproses",
	})
}

// ConfirmPayment dipanggil frontend setelah popup Snap sukses
func (h *OrderHandler) ConfirmPayment(c *gin.Context) {
	orderID := c.Param("orderId")

	t, alreadyPaid, err := h.orders.ConfirmPayment(c.Request.Context(), middleware.CurrentUID(c), orderID)
	if err != nil {
		utils.ErrorJSON(c, err)
		return
	}
	if alreadyPaid {
		c.JSON(http.StatusOK, gin.H{"message": "Already paid", "transaction": t})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Payment confirmed", "orderId": orderID})
}

// GetOrder detail order milik user
func (h *OrderHandler) GetOrder(c *gin.Context) {
	t, err := h.orders.GetOrder(c.Request.Context(), middleware.CurrentUID(c), c.Param("orderId"))
	if err != nil {
		utils.ErrorJSON(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transaction": t})
}

// ListOrders history order user, maksimal 50 terbaru
func (h *OrderHandler) ListOrders(c *gin.Context) {
	list, err := h.orders.ListOrders(c.Request.Context(), middleware.CurrentUID(c), orders.MaxListLimit, "")
	if err != nil {
		utils.ErrorJSON(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": list})
}
