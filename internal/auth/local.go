package auth

import (
	"context"
	"errors"
	"strings"

	"ppob-backend/internal/apperr"
	"ppob-backend/internal/ledger"
	"ppob-backend/internal/models"
	"ppob-backend/pkg/utils"

	"github.com/google/uuid"
)

// LocalDirectory: register / login dengan email + password, dipakai saat
// development tanpa Firebase. Token diterbitkan oleh JWTVerifier.
type LocalDirectory struct {
	creds    ledger.CredentialStore
	accounts ledger.Store
	issuer   *JWTVerifier
}

func NewLocalDirectory(creds ledger.CredentialStore, accounts ledger.Store, issuer *JWTVerifier) *LocalDirectory {
	return &LocalDirectory{creds: creds, accounts: accounts, issuer: issuer}
}

// Register membuat akun + credential, lalu langsung login
func (d *LocalDirectory) Register(ctx context.Context, in models.RegisterInput) (string, *models.Account, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return "", nil, apperr.InvalidInput(err.Error())
	}

	uid := "local-" + uuid.NewString()
	name := strings.TrimSpace(in.DisplayName)
	account := &models.Account{ID: uid, Email: email, DisplayName: &name, Role: models.RoleUser}
	cred := &models.LocalCredential{UID: uid, Email: email, PasswordHash: hash}

	if err := d.creds.RegisterLocal(ctx, account, cred); err != nil {
		return "", nil, err
	}

	token, err := d.issuer.Issue(uid, email)
	if err != nil {
		return "", nil, err
	}
	return token, account, nil
}

// Login: email / password salah sama-sama dijawab Unauthorized
func (d *LocalDirectory) Login(ctx context.Context, in models.LoginInput) (string, *models.Account, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))

	cred, err := d.creds.GetCredentialByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return "", nil, apperr.New(apperr.KindUnauthorized, "Email atau password salah")
		}
		return "", nil, err
	}
	if err := utils.CheckPassword(in.Password, cred.PasswordHash); err != nil {
		return "", nil, apperr.New(apperr.KindUnauthorized, "Email atau password salah")
	}

	account, err := d.accounts.GetAccount(ctx, cred.UID)
	if err != nil {
		return "", nil, err
	}

	// Simpan FCM token device yang login
	if in.FCMToken != "" {
		if updated, err := d.accounts.UpdateAccount(ctx, cred.UID, models.AccountUpdate{FCMToken: &in.FCMToken}); err == nil {
			account = updated
		}
	}

	token, err := d.issuer.Issue(cred.UID, cred.Email)
	if err != nil {
		return "", nil, err
	}
	return token, account, nil
}
