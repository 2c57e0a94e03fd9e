package handlers

import (
	"log"
	"net/http"

	"ppob-backend/internal/apperr"
	"ppob-backend/internal/catalog"
	"ppob-backend/internal/ledger"
	"ppob-backend/internal/middleware"
	"ppob-backend/internal/models"
	"ppob-backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	accounts ledger.Store
	catalog  *catalog.Directory
}

func NewAdminHandler(accounts ledger.Store, dir *catalog.Directory) *AdminHandler {
	return &AdminHandler{accounts: accounts, catalog: dir}
}

// UpdateUserRole ganti role user (user / admin)
func (h *AdminHandler) UpdateUserRole(c *gin.Context) {
	var input models.UpdateRoleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.ErrorJSON(c, apperr.InvalidInput("Invalid role"))
		return
	}

	uid := c.Param("uid")
	user, err := h.accounts.UpdateAccount(c.Request.Context(), uid, models.AccountUpdate{Role: &input.Role})
	if err != nil {
		utils.ErrorJSON(c, err)
		return
	}

	log.Printf("[Admin] %s mengubah role %s jadi %s", middleware.CurrentUID(c), uid, input.Role)
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// AdjustUserPoints tambah (delta > 0) atau kurangi (delta < 0) poin user
func (h *AdminHandler) AdjustUserPoints(c *gin.Context) {
	var input models.AdjustPointsInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.BindError(c, err)
		return
	}

	uid := c.Param("uid")
	user, err := h.accounts.AdjustPoints(c.Request.Context(), uid, input.Delta)
	if err != nil {
		utils.ErrorJSON(c, err)
		return
	}

	log.Printf("[Admin] %s adjust poin %s sebesar %d", middleware.CurrentUID(c), uid, input.Delta)
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// ListProducts semua produk termasuk harga modal dan yang nonaktif
func (h *AdminHandler) ListProducts(c *gin.Context) {
	c.JSON(http.StatusOK, h.catalog.AdminProducts())
}

// UpdateProduct ubah harga / status aktif produk
func (h *AdminHandler) UpdateProduct(c *gin.Context) {
	var input models.UpdateProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.BindError(c, err)
		return
	}

	product, err := h.catalog.UpdateProduct(c.Param("id"), input)
	if err != nil {
		utils.ErrorJSON(c, err)
		return
	}

	log.Printf("[Admin] %s mengubah produk %s", middleware.CurrentUID(c), product.ID)
	c.JSON(http.StatusOK, product)
}
