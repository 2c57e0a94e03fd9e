package handlers

import (
	"net/http"

	"ppob-backend/internal/apperr"
	"ppob-backend/internal/auth"
	"ppob-backend/internal/ledger"
	"ppob-backend/internal/middleware"
	"ppob-backend/internal/models"
	"ppob-backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	accounts ledger.Store
	// local nil kalau IDENTITY_PROVIDER=firebase
	local *auth.LocalDirectory
}

func NewAuthHandler(accounts ledger.Store, local *auth.LocalDirectory) *AuthHandler {
	return &AuthHandler{accounts: accounts, local: local}
}

// REGISTER (identity lokal)
func (h *AuthHandler) Register(c *gin.Context) {
	if h.local == nil {
		utils.ErrorJSON(c, apperr.NotFound("Not found"))
		return
	}

	// 1. Validasi Input JSON
	var input models.RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.BindError(c, err)
		return
	}

	// 2. Buat akun + credential
	token, user, err := h.local.Register(c.Request.Context(), input)
	if err != nil {
		utils.ErrorJSON(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"token": token, "user": user})
}

// LOGIN (identity lokal)
func (h *AuthHandler) Login(c *gin.Context) {
	if h.local == nil {
		utils.ErrorJSON(c, apperr.NotFound("Not found"))
		return
	}

	var input models.LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.BindError(c, err)
		return
	}

	token, user, err := h.local.Login(c.Request.Context(), input)
	if err != nil {
		utils.ErrorJSON(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}

// GetProfile profil user yang sedang login
func (h *AuthHandler) GetProfile(c *gin.Context) {
	user, err := h.accounts.GetAccount(c.Request.Context(), middleware.CurrentUID(c))
	if err != nil {
		utils.ErrorJSON(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// CreateProfile: akun sudah dibuat oleh AuthMiddleware, di sini hanya
// melengkapi displayName / photoURL yang masih kosong.
func (h *AuthHandler) CreateProfile(c *gin.Context) {
	var input models.CreateProfileInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.BindError(c, err)
		return
	}

	ctx := c.Request.Context()
	user, err := h.accounts.GetAccount(ctx, middleware.CurrentUID(c))
	if err != nil {
		utils.ErrorJSON(c, err)
		return
	}

	var upd models.AccountUpdate
	if user.DisplayName == nil && input.DisplayName != nil {
		upd.DisplayName = input.DisplayName
	}
	if user.PhotoURL == nil && input.PhotoURL != nil {
		upd.PhotoURL = input.PhotoURL
	}
	if upd != (models.AccountUpdate{}) {
		if user, err = h.accounts.UpdateAccount(ctx, user.ID, upd); err != nil {
			utils.ErrorJSON(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// UpdateProfile: field yang tidak dikirim tidak diubah
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	var input models.UpdateProfileInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.BindError(c, err)
		return
	}

	user, err := h.accounts.UpdateAccount(c.Request.Context(), middleware.CurrentUID(c), models.AccountUpdate{
		DisplayName: input.DisplayName,
		PhotoURL:    input.PhotoURL,
		Phone:       input.Phone,
		Address:     input.Address,
		FCMToken:    input.FCMToken,
	})
	if err != nil {
		utils.ErrorJSON(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}
