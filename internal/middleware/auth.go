package middleware

import (
	"context"
	"errors"
	"log"
	"strings"

	"ppob-backend/internal/apperr"
	"ppob-backend/internal/auth"
	"ppob-backend/internal/models"
	"ppob-backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

const (
	ctxUID     = "uid"
	ctxEmail   = "email"
	ctxAccount = "account"
)

// AccountProvisioner: bagian ledger yang dipakai untuk upsert akun
type AccountProvisioner interface {
	GetAccount(ctx context.Context, uid string) (*models.Account, error)
	CreateAccount(ctx context.Context, a *models.Account) error
}

// AuthMiddleware memverifikasi bearer token lalu memastikan akun ada
// (dibuat otomatis saat pertama kali login).
func AuthMiddleware(v auth.Verifier, accounts AccountProvisioner) gin.HandlerFunc {
	return func(c *gin.Context) {
		// 1. Ambil Header Authorization
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.ErrorJSON(c, apperr.New(apperr.KindUnauthorized, "Token tidak ditemukan"))
			return
		}

		// 2. Format harus "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			utils.ErrorJSON(c, apperr.New(apperr.KindUnauthorized, "Format token salah"))
			return
		}

		// 3. Validasi Token
		id, err := v.Verify(c.Request.Context(), parts[1])
		if err != nil {
			utils.ErrorJSON(c, apperr.New(apperr.KindUnauthorized, "Token tidak valid"))
			return
		}

		// 4. Upsert akun
		account, err := ensureAccount(c.Request.Context(), accounts, id)
		if err != nil {
			utils.ErrorJSON(c, err)
			return
		}

		c.Set(ctxUID, id.UID)
		c.Set(ctxEmail, id.Email)
		c.Set(ctxAccount, account)
		c.Next()
	}
}

func ensureAccount(ctx context.Context, accounts AccountProvisioner, id *auth.Identity) (*models.Account, error) {
	account, err := accounts.GetAccount(ctx, id.UID)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}

	account = &models.Account{ID: id.UID, Email: id.Email, Role: models.RoleUser}
	if id.Name != "" {
		account.DisplayName = &id.Name
	}
	if id.Picture != "" {
		account.PhotoURL = &id.Picture
	}
	err = accounts.CreateAccount(ctx, account)
	if errors.Is(err, apperr.ErrAlreadyExists) {
		// request paralel pertama dari user yang sama
		return accounts.GetAccount(ctx, id.UID)
	}
	if err != nil {
		return nil, err
	}
	log.Printf("[Auth] akun baru dibuat: %s (%s)", id.UID, id.Email)
	return account, nil
}

// AdminOnly: role diambil dari akun di database, bukan dari token
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		account := CurrentAccount(c)
		if account == nil || !account.IsAdmin() {
			utils.ErrorJSON(c, apperr.Forbidden("Akses Ditolak: Khusus Admin"))
			return
		}
		c.Next()
	}
}

// CurrentUID mengembalikan uid user yang sedang login
func CurrentUID(c *gin.Context) string {
	return c.GetString(ctxUID)
}

func CurrentAccount(c *gin.Context) *models.Account {
	v, ok := c.Get(ctxAccount)
	if !ok {
		return nil
	}
	account, _ := v.(*models.Account)
	return account
}
