package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ppob-backend/internal/apperr"

	"github.com/gin-gonic/gin"
)

func TestTokenRoundTrip(t *testing.T) {
	tok, err := GenerateToken("secret", "uid-1", "a@mail.com", time.Hour)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims, err := ValidateToken("secret", tok)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.Subject != "uid-1" || claims.Email != "a@mail.com" {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	if _, err := ValidateToken("other", tok); err == nil {
		t.Fatal("token signed with another secret must be rejected")
	}

	expired, _ := GenerateToken("secret", "uid-1", "a@mail.com", -time.Minute)
	if _, err := ValidateToken("secret", expired); err == nil {
		t.Fatal("expired token must be rejected")
	}
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("rahasia123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := CheckPassword("rahasia123", hash); err != nil {
		t.Fatalf("correct password rejected: %v", err)
	}
	if err := CheckPassword("salah", hash); !errors.Is(err, ErrWrongPassword) {
		t.Fatalf("expected ErrWrongPassword, got %v", err)
	}
}

func TestParseLimit(t *testing.T) {
	if got := ParseLimit("", 50, 50); got != 50 {
		t.Fatalf("empty: %d", got)
	}
	if got := ParseLimit("10", 50, 50); got != 10 {
		t.Fatalf("10: %d", got)
	}
	if got := ParseLimit("500", 50, 50); got != 50 {
		t.Fatalf("cap: %d", got)
	}
	if got := ParseLimit("-1", 20, 50); got != 20 {
		t.Fatalf("negative: %d", got)
	}
}

func TestErrorJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	ErrorJSON(c, apperr.Forbidden("Forbidden"))

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
	var body ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Success || body.Code != "forbidden" || body.Message != "Forbidden" {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestErrorJSONHidesInternalErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	ErrorJSON(c, errors.New("dial tcp 10.0.0.1:3306: connection refused"))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	var body ErrorResponse
	json.Unmarshal(w.Body.Bytes(), &body)
	if body.Code != "internal_error" || body.Message != "internal server error" {
		t.Fatalf("internal error leaked: %+v", body)
	}
}
