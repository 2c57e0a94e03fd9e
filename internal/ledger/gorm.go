package ledger

import (
	"context"
	"errors"
	"strings"
	"time"

	"ppob-backend/internal/apperr"
	"ppob-backend/internal/models"

	"gorm.io/gorm"
)

// GormStore: backend SQL (MySQL di production, SQLite untuk lokal & test)
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Migrate membuat / menyesuaikan tabel
func (s *GormStore) Migrate() error {
	return s.db.AutoMigrate(
		&models.Account{},
		&models.Transaction{},
		&models.PaymentNotification{},
		&models.LocalCredential{},
	)
}

func (s *GormStore) GetAccount(ctx context.Context, uid string) (*models.Account, error) {
	var a models.Account
	if err := s.db.WithContext(ctx).First(&a, "uid = ?", uid).Error; err != nil {
		return nil, notFoundOr(err, "User not found")
	}
	return &a, nil
}

func (s *GormStore) FindAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	var a models.Account
	if err := s.db.WithContext(ctx).First(&a, "email = ?", strings.ToLower(email)).Error; err != nil {
		return nil, notFoundOr(err, "User not found")
	}
	return &a, nil
}

func (s *GormStore) CreateAccount(ctx context.Context, a *models.Account) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return createAccount(tx, a)
	})
}

func createAccount(tx *gorm.DB, a *models.Account) error {
	var count int64
	if err := tx.Model(&models.Account{}).Where("uid = ?", a.ID).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return apperr.AlreadyExists("User already exists")
	}
	if a.Role == "" {
		a.Role = models.RoleUser
	}
	if err := tx.Create(a).Error; err != nil {
		return duplicateOr(err, "User already exists")
	}
	return nil
}

func (s *GormStore) UpdateAccount(ctx context.Context, uid string, u models.AccountUpdate) (*models.Account, error) {
	var out models.Account
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fields := u.Fields()
		fields["updated_at"] = time.Now()
		res := tx.Model(&models.Account{}).Where("uid = ?", uid).Updates(fields)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.NotFound("User not found")
		}
		return tx.First(&out, "uid = ?", uid).Error
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *GormStore) AdjustPoints(ctx context.Context, uid string, delta int64) (*models.Account, error) {
	var out models.Account
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := adjustPoints(tx, uid, delta); err != nil {
			return err
		}
		return tx.First(&out, "uid = ?", uid).Error
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// adjustPoints: satu UPDATE bersyarat, saldo tidak pernah bisa negatif
// walaupun ada request paralel.
func adjustPoints(tx *gorm.DB, uid string, delta int64) error {
	res := tx.Model(&models.Account{}).
		Where("uid = ? AND points + ? >= 0", uid, delta).
		Updates(map[string]interface{}{
			"points":     gorm.Expr("points + ?", delta),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var count int64
	if err := tx.Model(&models.Account{}).Where("uid = ?", uid).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return apperr.NotFound("User not found")
	}
	return apperr.ErrInsufficientBalance
}

func (s *GormStore) CreateTransaction(ctx context.Context, t *models.Transaction) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return createTransaction(tx, t)
	})
}

func createTransaction(tx *gorm.DB, t *models.Transaction) error {
	var count int64
	if err := tx.Model(&models.Transaction{}).Where("id = ?", t.ID).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return apperr.AlreadyExists("Transaction already exists")
	}
	if err := tx.Create(t).Error; err != nil {
		return duplicateOr(err, "Transaction already exists")
	}
	return nil
}

func (s *GormStore) CreateTransactionWithDebit(ctx context.Context, t *models.Transaction, points int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1. Potong poin dulu, gagal = tidak ada transaksi yang tersimpan
		if points > 0 {
			if err := adjustPoints(tx, t.UserID, -points); err != nil {
				return err
			}
		}
		// 2. Simpan transaksi, gagal = potongan poin ikut di-rollback
		return createTransaction(tx, t)
	})
}

func (s *GormStore) UpdateTransaction(ctx context.Context, id string, u models.TransactionUpdate) (*models.Transaction, error) {
	var out models.Transaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Transaction{}).Where("id = ?", id).Updates(transactionFields(u))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.NotFound("Transaction not found")
		}
		return tx.First(&out, "id = ?", id).Error
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *GormStore) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	var t models.Transaction
	if err := s.db.WithContext(ctx).First(&t, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "Transaction not found")
	}
	return &t, nil
}

func (s *GormStore) ListTransactionsByAccount(ctx context.Context, uid string, limit int) ([]models.Transaction, error) {
	var list []models.Transaction
	err := s.db.WithContext(ctx).
		Where("user_id = ?", uid).
		Order("created_at desc").
		Limit(normalizeLimit(limit)).
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (s *GormStore) ListExpiredLeases(ctx context.Context, now int64, limit int) ([]models.Transaction, error) {
	var list []models.Transaction
	err := s.db.WithContext(ctx).
		Where("status = ? AND lease_expires_at <= ?", models.StatusProcessing, now).
		Order("created_at asc").
		Limit(normalizeLimit(limit)).
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (s *GormStore) Transition(ctx context.Context, id string, g models.Guard, set models.TransactionUpdate, creditOwner int64) (bool, *models.Transaction, error) {
	var applied bool
	var out models.Transaction

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Model(&models.Transaction{}).Where("id = ?", id)
		if len(g.StatusIn) > 0 {
			q = q.Where("status IN ?", g.StatusIn)
		}
		if len(g.PaymentStatusIn) > 0 {
			q = q.Where("payment_status IN ?", g.PaymentStatusIn)
		}
		if g.LeaseFreeAt != 0 {
			q = q.Where("lease_expires_at <= ?", g.LeaseFreeAt)
		}
		if g.LeaseEquals != 0 {
			q = q.Where("lease_expires_at = ?", g.LeaseEquals)
		}

		res := q.Updates(transactionFields(set))
		if res.Error != nil {
			return res.Error
		}
		applied = res.RowsAffected == 1

		if err := tx.First(&out, "id = ?", id).Error; err != nil {
			return notFoundOr(err, "Transaction not found")
		}

		// Kompensasi poin hanya untuk pemenang CAS
		if applied && creditOwner > 0 {
			return adjustPoints(tx, out.UserID, creditOwner)
		}
		return nil
	})
	if err != nil {
		return false, nil, err
	}
	return applied, &out, nil
}

func (s *GormStore) RecordNotification(ctx context.Context, n *models.PaymentNotification) error {
	return s.db.WithContext(ctx).Create(n).Error
}

func (s *GormStore) RegisterLocal(ctx context.Context, a *models.Account, cred *models.LocalCredential) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.LocalCredential{}).Where("email = ?", cred.Email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return apperr.AlreadyExists("Email sudah terdaftar")
		}
		if err := tx.Create(cred).Error; err != nil {
			return duplicateOr(err, "Email sudah terdaftar")
		}
		return createAccount(tx, a)
	})
}

func (s *GormStore) GetCredentialByEmail(ctx context.Context, email string) (*models.LocalCredential, error) {
	var cred models.LocalCredential
	if err := s.db.WithContext(ctx).First(&cred, "email = ?", strings.ToLower(email)).Error; err != nil {
		return nil, notFoundOr(err, "Email atau password salah")
	}
	return &cred, nil
}

func transactionFields(u models.TransactionUpdate) map[string]interface{} {
	fields := u.Fields()
	fields["updated_at"] = time.Now()
	if u.IncAttempts {
		fields["fulfillment_attempts"] = gorm.Expr("fulfillment_attempts + 1")
	}
	return fields
}

func notFoundOr(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(msg)
	}
	return err
}

func duplicateOr(err error, msg string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.AlreadyExists(msg)
	}
	return err
}

var _ Store = (*GormStore)(nil)
var _ CredentialStore = (*GormStore)(nil)
