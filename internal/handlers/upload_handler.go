package handlers

import (
	"context"
	"io"
	"log"
	"net/http"

	"ppob-backend/internal/apperr"
	"ppob-backend/internal/ledger"
	"ppob-backend/internal/media"
	"ppob-backend/internal/middleware"
	"ppob-backend/internal/models"
	"ppob-backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// ImageUploader: *media.Uploader
type ImageUploader interface {
	UploadImage(ctx context.Context, folder, uid string, data []byte) (string, error)
}

type UploadHandler struct {
	uploader ImageUploader
	accounts ledger.Store
}

func NewUploadHandler(uploader ImageUploader, accounts ledger.Store) *UploadHandler {
	return &UploadHandler{uploader: uploader, accounts: accounts}
}

func (h *UploadHandler) UploadAvatar(c *gin.Context) {
	h.upload(c, "avatars", func(url string) models.AccountUpdate {
		return models.AccountUpdate{PhotoURL: &url}
	})
}

func (h *UploadHandler) UploadBanner(c *gin.Context) {
	h.upload(c, "banners", func(url string) models.AccountUpdate {
		return models.AccountUpdate{BannerURL: &url}
	})
}

func (h *UploadHandler) upload(c *gin.Context, folder string, update func(url string) models.AccountUpdate) {
	if h.uploader == nil {
		utils.ErrorJSON(c, apperr.New(apperr.KindInternal, "Upload belum dikonfigurasi"))
		return
	}

	// 1. Ambil file dari form field "image"
	fh, err := c.FormFile("image")
	if err != nil {
		utils.ErrorJSON(c, apperr.InvalidInput("No image file provided"))
		return
	}
	if fh.Size > media.MaxImageSize {
		utils.ErrorJSON(c, apperr.InvalidInput("Ukuran file maksimal 5MB"))
		return
	}
	f, err := fh.Open()
	if err != nil {
		utils.ErrorJSON(c, err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, media.MaxImageSize+1))
	if err != nil {
		utils.ErrorJSON(c, err)
		return
	}

	// 2. Upload ke object storage
	ctx := c.Request.Context()
	uid := middleware.CurrentUID(c)
	url, err := h.uploader.UploadImage(ctx, folder, uid, data)
	if err != nil {
		utils.ErrorJSON(c, err)
		return
	}

	// 3. Simpan URL ke profil
	if _, err := h.accounts.UpdateAccount(ctx, uid, update(url)); err != nil {
		utils.ErrorJSON(c, err)
		return
	}

	log.Printf("[Upload] %s untuk user %s", folder, uid)
	c.JSON(http.StatusOK, gin.H{"url": url})
}
