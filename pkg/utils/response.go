package utils

import (
	"log"

	"ppob-backend/internal/apperr"

	"github.com/gin-gonic/gin"
)

// Format response standar biar frontend enak bacanya
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"` // omitempty: kalau null, ga usah dimunculin
}

// ErrorResponse: body untuk semua response error
type ErrorResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func APIResponse(c *gin.Context, code int, success bool, message string, data interface{}) {
	c.JSON(code, Response{
		Success: success,
		Message: message,
		Data:    data,
	})
}

// ErrorJSON memetakan error ke status HTTP + body {success, code, message}.
// Error internal tidak pernah bocor ke client, cukup di-log.
func ErrorJSON(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal {
		log.Printf("[HTTP] %s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.AbortWithStatusJSON(apperr.HTTPStatus(err), ErrorResponse{
		Success: false,
		Code:    string(kind),
		Message: apperr.MessageOf(err),
	})
}

// BindError: input JSON tidak valid
func BindError(c *gin.Context, err error) {
	ErrorJSON(c, apperr.Wrap(apperr.KindInvalidInput, "Input tidak valid: "+err.Error(), err))
}
