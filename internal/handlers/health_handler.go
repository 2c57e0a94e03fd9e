package handlers

import (
	"net/http"
	"time"

	"ppob-backend/internal/apperr"
	"ppob-backend/pkg/utils"

	"github.com/gin-gonic/gin"
)

// Health: GET /api/health
func Health(env string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "ok",
			"timestamp":   time.Now().UTC().Format(time.RFC3339),
			"environment": env,
		})
	}
}

// NotFound: route tidak dikenal
func NotFound(c *gin.Context) {
	utils.ErrorJSON(c, apperr.NotFound("Route not found"))
}
