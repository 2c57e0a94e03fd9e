// Package auth memverifikasi bearer token dari identity provider.
package auth

import (
	"context"
	"strings"
	"time"

	"ppob-backend/internal/apperr"
	"ppob-backend/pkg/utils"

	fbauth "firebase.google.com/go/auth"
)

// Identity adalah hasil verifikasi token
type Identity struct {
	UID     string
	Email   string
	Name    string
	Picture string
}

type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// FirebaseVerifier memverifikasi Firebase ID token
type FirebaseVerifier struct {
	client *fbauth.Client
}

func NewFirebaseVerifier(client *fbauth.Client) *FirebaseVerifier {
	return &FirebaseVerifier{client: client}
}

func (v *FirebaseVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	tok, err := v.client.VerifyIDToken(ctx, token)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnauthorized, "Invalid token", err)
	}
	id := &Identity{UID: tok.UID}
	id.Email, _ = tok.Claims["email"].(string)
	id.Name, _ = tok.Claims["name"].(string)
	id.Picture, _ = tok.Claims["picture"].(string)
	id.Email = strings.ToLower(id.Email)
	return id, nil
}

// JWTVerifier: token HS256 yang diterbitkan sendiri (IDENTITY_PROVIDER=local)
type JWTVerifier struct {
	secret string
	ttl    time.Duration
}

func NewJWTVerifier(secret string, ttl time.Duration) *JWTVerifier {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &JWTVerifier{secret: secret, ttl: ttl}
}

func (v *JWTVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	claims, err := utils.ValidateToken(v.secret, token)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnauthorized, "Invalid token", err)
	}
	return &Identity{UID: claims.Subject, Email: claims.Email}, nil
}

// Issue menerbitkan token untuk login lokal
func (v *JWTVerifier) Issue(uid, email string) (string, error) {
	return utils.GenerateToken(v.secret, uid, email, v.ttl)
}
