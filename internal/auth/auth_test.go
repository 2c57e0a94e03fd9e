package auth

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"ppob-backend/internal/apperr"
	"ppob-backend/internal/ledger"
	"ppob-backend/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newLocalDirectory(t *testing.T) (*LocalDirectory, *JWTVerifier) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	store := ledger.NewGormStore(db)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	issuer := NewJWTVerifier("test-secret", time.Hour)
	return NewLocalDirectory(store, store, issuer), issuer
}

func TestRegisterThenLogin(t *testing.T) {
	dir, verifier := newLocalDirectory(t)
	ctx := context.Background()

	token, acc, err := dir.Register(ctx, models.RegisterInput{DisplayName: "Budi", Email: "Budi@Mail.com", Password: "rahasia123"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if acc.Email != "budi@mail.com" || acc.Points != 0 || acc.Role != models.RoleUser {
		t.Fatalf("unexpected account: %+v", acc)
	}

	id, err := verifier.Verify(ctx, token)
	if err != nil || id.UID != acc.ID {
		t.Fatalf("issued token invalid: %+v %v", id, err)
	}

	token, acc2, err := dir.Login(ctx, models.LoginInput{Email: "budi@mail.com", Password: "rahasia123", FCMToken: "device-1"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if acc2.ID != acc.ID || acc2.FCMToken == nil || *acc2.FCMToken != "device-1" {
		t.Fatalf("unexpected login account: %+v", acc2)
	}
	if _, err := verifier.Verify(ctx, token); err != nil {
		t.Fatalf("login token invalid: %v", err)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	dir, _ := newLocalDirectory(t)
	ctx := context.Background()
	if _, _, err := dir.Register(ctx, models.RegisterInput{DisplayName: "Ani", Email: "ani@mail.com", Password: "rahasia123"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, _, err := dir.Login(ctx, models.LoginInput{Email: "ani@mail.com", Password: "salah"}); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("expected Unauthorized, got %v", err)
	}
	if _, _, err := dir.Login(ctx, models.LoginInput{Email: "nobody@mail.com", Password: "x"}); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("expected Unauthorized for unknown email, got %v", err)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	dir, _ := newLocalDirectory(t)
	ctx := context.Background()
	in := models.RegisterInput{DisplayName: "Ani", Email: "ani@mail.com", Password: "rahasia123"}
	if _, _, err := dir.Register(ctx, in); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, _, err := dir.Register(ctx, in); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Fatalf("expected AlreadyExists, got %v", err)
	}
}

func TestJWTVerifierRejectsGarbage(t *testing.T) {
	v := NewJWTVerifier("secret", time.Hour)
	if _, err := v.Verify(context.Background(), "not-a-token"); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Fatalf("expected Unauthorized, got %v", err)
	}
}
