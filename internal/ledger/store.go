// Package ledger menyimpan akun, saldo poin, transaksi dan log webhook.
// Semua perubahan saldo dan status transaksi yang saling bergantung
// dijalankan atomik di dalam store, bukan di handler.
package ledger

import (
	"context"

	"ppob-backend/internal/models"
)

// DefaultListLimit dipakai kalau limit <= 0
const DefaultListLimit = 50

type Store interface {
	GetAccount(ctx context.Context, uid string) (*models.Account, error)
	FindAccountByEmail(ctx context.Context, email string) (*models.Account, error)
	CreateAccount(ctx context.Context, a *models.Account) error
	UpdateAccount(ctx context.Context, uid string, u models.AccountUpdate) (*models.Account, error)
	// AdjustPoints menambah / mengurangi poin secara atomik.
	// ErrInsufficientBalance kalau hasilnya < 0.
	AdjustPoints(ctx context.Context, uid string, delta int64) (*models.Account, error)

	CreateTransaction(ctx context.Context, t *models.Transaction) error
	// CreateTransactionWithDebit memotong poin pemilik dan menyimpan transaksi
	// dalam satu unit atomik.
	CreateTransactionWithDebit(ctx context.Context, t *models.Transaction, points int64) error
	UpdateTransaction(ctx context.Context, id string, u models.TransactionUpdate) (*models.Transaction, error)
	GetTransaction(ctx context.Context, id string) (*models.Transaction, error)
	ListTransactionsByAccount(ctx context.Context, uid string, limit int) ([]models.Transaction, error)
	// ListExpiredLeases: order processing yang lease-nya kosong / lewat dari now (unix millis)
	ListExpiredLeases(ctx context.Context, now int64, limit int) ([]models.Transaction, error)

	// Transition = compare-and-set. Update hanya diterapkan kalau guard cocok;
	// applied=false berarti sudah didahului proses lain. creditOwner > 0
	// dikembalikan ke saldo pemilik dalam unit atomik yang sama.
	Transition(ctx context.Context, id string, g models.Guard, set models.TransactionUpdate, creditOwner int64) (applied bool, t *models.Transaction, err error)

	RecordNotification(ctx context.Context, n *models.PaymentNotification) error
}

// CredentialStore hanya dibutuhkan identity provider lokal
type CredentialStore interface {
	// RegisterLocal membuat akun + credential sekaligus
	RegisterLocal(ctx context.Context, a *models.Account, cred *models.LocalCredential) error
	GetCredentialByEmail(ctx context.Context, email string) (*models.LocalCredential, error)
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}
