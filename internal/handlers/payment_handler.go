package handlers

import (
	"encoding/json"
	"io"
	"log"
	"net/http"

	"ppob-backend/internal/gateway"
	"ppob-backend/internal/orders"

	"github.com/gin-gonic/gin"
)

// Batas ukuran body webhook
const maxNotificationBody = 64 << 10

type PaymentHandler struct {
	orders *orders.Service
}

func NewPaymentHandler(svc *orders.Service) *PaymentHandler {
	return &PaymentHandler{orders: svc}
}

// MidtransNotification menerima webhook Midtrans. Selalu balas 200,
// kegagalan dicatat di log dan tabel payment_notifications.
func (h *PaymentHandler) MidtransNotification(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxNotificationBody))
	if err != nil {
		log.Printf("[Webhook] gagal baca body: %v", err)
	}

	var n gateway.Notification
	if err := json.Unmarshal(raw, &n); err != nil {
		log.Printf("[Webhook] body bukan JSON valid: %v", err)
	}

	if err := h.orders.HandleNotification(c.Request.Context(), n, raw); err != nil {
		log.Printf("[Webhook] %s: %v", n.OrderID, err)
	}
	c.JSON(http.StatusOK, gin.H{"message": "OK"})
}
