package handlers

import (
	"net/http"

	"ppob-backend/internal/apperr"
	"ppob-backend/internal/catalog"
	"ppob-backend/internal/middleware"
	"ppob-backend/internal/models"
	"ppob-backend/internal/orders"
	"ppob-backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// Default limit GET /api/ppob/transactions
const defaultTransactionLimit = 20

type PPOBHandler struct {
	catalog *catalog.Directory
	orders  *orders.Service
}

func NewPPOBHandler(dir *catalog.Directory, svc *orders.Service) *PPOBHandler {
	return &PPOBHandler{catalog: dir, orders: svc}
}

// GetProviders daftar provider, bisa difilter ?type=
func (h *PPOBHandler) GetProviders(c *gin.Context) {
	c.JSON(http.StatusOK, h.catalog.ListProviders(c.Query("type")))
}

// DetectProvider tebak operator dari prefix nomor HP
func (h *PPOBHandler) DetectProvider(c *gin.Context) {
	phone := c.Query("phone")
	if phone == "" {
		utils.ErrorJSON(c, apperr.InvalidInput("Phone number required"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"provider": h.catalog.DetectProvider(phone)})
}

// GetProducts produk aktif, filter ?providerId= dan ?type=
func (h *PPOBHandler) GetProducts(c *gin.Context) {
	c.JSON(http.StatusOK, h.catalog.ListProducts(c.Query("providerId"), c.Query("type")))
}

func (h *PPOBHandler) GetProduct(c *gin.Context) {
	product, err := h.catalog.GetProduct(c.Param("id"))
	if err != nil {
		utils.ErrorJSON(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// CreateTransaction transaksi langsung tanpa checkout
func (h *PPOBHandler) CreateTransaction(c *gin.Context) {
	var input models.DirectTransactionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.ErrorJSON(c, apperr.InvalidInput("Product ID and target required"))
		return
	}

	t, err := h.orders.CreateDirectOrder(c.Request.Context(), middleware.CurrentUID(c), input)
	if err != nil {
		utils.ErrorJSON(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"transaction": t})
}

// ListTransactions riwayat transaksi user (?limit=, ?type=)
func (h *PPOBHandler) ListTransactions(c *gin.Context) {
	limit := utils.ParseLimit(c.Query("limit"), defaultTransactionLimit, orders.MaxListLimit)

	list, err := h.orders.ListOrders(c.Request.Context(), middleware.CurrentUID(c), limit, c.Query("type"))
	if err != nil {
		utils.ErrorJSON(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *PPOBHandler) GetTransaction(c *gin.Context) {
	t, err := h.orders.GetOrder(c.Request.Context(), middleware.CurrentUID(c), c.Param("id"))
	if err != nil {
		utils.ErrorJSON(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}
