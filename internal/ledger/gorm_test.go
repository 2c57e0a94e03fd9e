package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"ppob-backend/internal/apperr"
	"ppob-backend/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestStore(t *testing.T) *GormStore {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	s := NewGormStore(db)
	if err := s.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return s
}

func seedAccount(t *testing.T, s *GormStore, uid string, points int64) {
	t.Helper()
	a := &models.Account{ID: uid, Email: uid + "@mail.com", Points: points}
	if err := s.CreateAccount(context.Background(), a); err != nil {
		t.Fatalf("seed account: %v", err)
	}
}

func newTx(id, uid string) *models.Transaction {
	return &models.Transaction{
		ID:            id,
		UserID:        uid,
		ProductID:     "tsel-10k",
		ProductName:   "Pulsa 10.000",
		Target:        "081234567890",
		Price:         11500,
		Status:        models.StatusPending,
		PaymentStatus: models.PaymentUnpaid,
	}
}

func TestCreateAccountDuplicate(t *testing.T) {
	s := newTestStore(t)
	seedAccount(t, s, "u1", 0)

	err := s.CreateAccount(context.Background(), &models.Account{ID: "u1", Email: "other@mail.com"})
	if !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Fatalf("expected AlreadyExists, got %v", err)
	}
}

func TestUpdateAccountMergesFields(t *testing.T) {
	s := newTestStore(t)
	seedAccount(t, s, "u1", 0)

	name := "Budi"
	a, err := s.UpdateAccount(context.Background(), "u1", models.AccountUpdate{DisplayName: &name})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if a.DisplayName == nil || *a.DisplayName != "Budi" || a.Email != "u1@mail.com" {
		t.Fatalf("unexpected account: %+v", a)
	}

	_, err = s.UpdateAccount(context.Background(), "ghost", models.AccountUpdate{DisplayName: &name})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestAdjustPointsNeverNegative(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedAccount(t, s, "u1", 100)

	if _, err := s.AdjustPoints(ctx, "u1", -150); !errors.Is(err, apperr.ErrInsufficientBalance) {
		t.Fatalf("expected InsufficientBalance, got %v", err)
	}
	a, _ := s.GetAccount(ctx, "u1")
	if a.Points != 100 {
		t.Fatalf("balance changed after rejected debit: %d", a.Points)
	}

	a, err := s.AdjustPoints(ctx, "u1", -100)
	if err != nil || a.Points != 0 {
		t.Fatalf("expected 0 points, got %+v %v", a, err)
	}

	if _, err := s.AdjustPoints(ctx, "ghost", 10); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestConcurrentDebitsDoNotOverspend(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedAccount(t, s, "u1", 100)

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.AdjustPoints(ctx, "u1", -10); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if ok != 10 {
		t.Fatalf("expected 10 successful debits, got %d", ok)
	}
	a, _ := s.GetAccount(ctx, "u1")
	if a.Points != 0 {
		t.Fatalf("expected balance 0, got %d", a.Points)
	}
}

func TestCreateTransactionWithDebitIsAtomic(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedAccount(t, s, "u1", 20000)

	if err := s.CreateTransactionWithDebit(ctx, newTx("TRX-1", "u1"), 11500); err != nil {
		t.Fatalf("create: %v", err)
	}
	a, _ := s.GetAccount(ctx, "u1")
	if a.Points != 8500 {
		t.Fatalf("expected 8500 points, got %d", a.Points)
	}

	// id dipakai ulang: debit harus ikut batal
	err := s.CreateTransactionWithDebit(ctx, newTx("TRX-1", "u1"), 1000)
	if !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Fatalf("expected AlreadyExists, got %v", err)
	}
	a, _ = s.GetAccount(ctx, "u1")
	if a.Points != 8500 {
		t.Fatalf("debit leaked on failed insert: %d", a.Points)
	}

	// saldo kurang: tidak ada transaksi tersimpan
	err = s.CreateTransactionWithDebit(ctx, newTx("TRX-2", "u1"), 9000)
	if !errors.Is(err, apperr.ErrInsufficientBalance) {
		t.Fatalf("expected InsufficientBalance, got %v", err)
	}
	if _, err := s.GetTransaction(ctx, "TRX-2"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("transaction persisted despite failed debit: %v", err)
	}
}

func TestTransitionIsCompareAndSet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedAccount(t, s, "u1", 0)
	if err := s.CreateTransaction(ctx, newTx("TRX-1", "u1")); err != nil {
		t.Fatalf("create: %v", err)
	}

	guard := models.Guard{
		StatusIn:        []string{models.StatusPending},
		PaymentStatusIn: []string{models.PaymentUnpaid},
	}
	paid, processing := models.PaymentPaid, models.StatusProcessing
	set := models.TransactionUpdate{PaymentStatus: &paid, Status: &processing}

	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			applied, _, err := s.Transition(ctx, "TRX-1", guard, set, 0)
			if err != nil {
				t.Errorf("transition: %v", err)
				return
			}
			if applied {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if winners != 1 {
		t.Fatalf("expected exactly one winner, got %d", winners)
	}
	got, _ := s.GetTransaction(ctx, "TRX-1")
	if got.Status != models.StatusProcessing || got.PaymentStatus != models.PaymentPaid {
		t.Fatalf("unexpected state: %s/%s", got.Status, got.PaymentStatus)
	}
}

func TestTransitionCreditsOwnerOnlyOnce(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedAccount(t, s, "u1", 0)
	tx := newTx("TRX-1", "u1")
	tx.Status = models.StatusProcessing
	tx.PaymentStatus = models.PaymentPaid
	if err := s.CreateTransaction(ctx, tx); err != nil {
		t.Fatalf("create: %v", err)
	}

	failed := models.StatusFailed
	guard := models.Guard{StatusIn: []string{models.StatusProcessing}}
	set := models.TransactionUpdate{Status: &failed}

	for i := 0; i < 2; i++ {
		if _, _, err := s.Transition(ctx, "TRX-1", guard, set, 11500); err != nil {
			t.Fatalf("transition: %v", err)
		}
	}
	a, _ := s.GetAccount(ctx, "u1")
	if a.Points != 11500 {
		t.Fatalf("expected single refund of 11500, got %d", a.Points)
	}
}

func TestTransitionLeaseGuard(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedAccount(t, s, "u1", 0)
	tx := newTx("TRX-1", "u1")
	tx.Status = models.StatusProcessing
	if err := s.CreateTransaction(ctx, tx); err != nil {
		t.Fatalf("create: %v", err)
	}

	now := time.Now().UnixMilli()
	lease := now + 30_000
	guard := models.Guard{StatusIn: []string{models.StatusProcessing}, LeaseFreeAt: now}
	claim := models.TransactionUpdate{LeaseExpiresAt: &lease, IncAttempts: true}

	applied, got, err := s.Transition(ctx, "TRX-1", guard, claim, 0)
	if err != nil || !applied {
		t.Fatalf("first claim should win: %v %v", applied, err)
	}
	if got.FulfillmentAttempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", got.FulfillmentAttempts)
	}

	applied, _, err = s.Transition(ctx, "TRX-1", guard, claim, 0)
	if err != nil || applied {
		t.Fatalf("second claim must lose while lease is held: %v %v", applied, err)
	}

	// lease kadaluarsa: boleh diklaim lagi
	later := models.Guard{StatusIn: []string{models.StatusProcessing}, LeaseFreeAt: lease + 1}
	applied, _, err = s.Transition(ctx, "TRX-1", later, claim, 0)
	if err != nil || !applied {
		t.Fatalf("expired lease should be reclaimable: %v %v", applied, err)
	}
}

func TestTransitionNotFound(t *testing.T) {
	s := newTestStore(t)
	_, _, err := s.Transition(context.Background(), "nope", models.Guard{}, models.TransactionUpdate{}, 0)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestListTransactionsByAccountNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedAccount(t, s, "u1", 0)
	seedAccount(t, s, "u2", 0)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		tx := newTx(fmt.Sprintf("TRX-%d", i), "u1")
		tx.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if err := s.CreateTransaction(ctx, tx); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	if err := s.CreateTransaction(ctx, newTx("TRX-other", "u2")); err != nil {
		t.Fatalf("create: %v", err)
	}

	list, err := s.ListTransactionsByAccount(ctx, "u1", 3)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3, got %d", len(list))
	}
	if list[0].ID != "TRX-4" || list[2].ID != "TRX-2" {
		t.Fatalf("wrong order: %s, %s, %s", list[0].ID, list[1].ID, list[2].ID)
	}
	for _, tx := range list {
		if tx.UserID != "u1" {
			t.Fatalf("leaked transaction of %s", tx.UserID)
		}
	}
}

func TestRegisterLocalRejectsDuplicateEmail(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	cred := &models.LocalCredential{UID: "local-1", Email: "a@mail.com", PasswordHash: "x"}
	if err := s.RegisterLocal(ctx, &models.Account{ID: "local-1", Email: "a@mail.com"}, cred); err != nil {
		t.Fatalf("register: %v", err)
	}

	dup := &models.LocalCredential{UID: "local-2", Email: "a@mail.com", PasswordHash: "y"}
	err := s.RegisterLocal(ctx, &models.Account{ID: "local-2", Email: "a@mail.com"}, dup)
	if !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Fatalf("expected AlreadyExists, got %v", err)
	}

	got, err := s.GetCredentialByEmail(ctx, "A@mail.com")
	if err != nil || got.UID != "local-1" {
		t.Fatalf("lookup: %+v %v", got, err)
	}
}

func TestTransitionLeaseOwnerGuard(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedAccount(t, s, "u1", 0)
	tx := newTx("TRX-1", "u1")
	tx.Status = models.StatusProcessing
	tx.PointsUsed = 11500
	if err := s.CreateTransaction(ctx, tx); err != nil {
		t.Fatalf("create: %v", err)
	}

	now := time.Now().UnixMilli()
	first, second := now+1_000, now+60_000
	claim := func(lease, freeAt int64) {
		t.Helper()
		g := models.Guard{StatusIn: []string{models.StatusProcessing}, LeaseFreeAt: freeAt}
		if applied, _, err := s.Transition(ctx, "TRX-1", g, models.TransactionUpdate{LeaseExpiresAt: &lease}, 0); err != nil || !applied {
			t.Fatalf("claim %d: %v %v", lease, applied, err)
		}
	}
	claim(first, now)
	claim(second, first+1)

	// pemegang lease lama tidak boleh menulis hasil akhir
	failed := models.StatusFailed
	stale := models.Guard{StatusIn: []string{models.StatusProcessing}, LeaseEquals: first}
	applied, _, err := s.Transition(ctx, "TRX-1", stale, models.TransactionUpdate{Status: &failed}, 11500)
	if err != nil || applied {
		t.Fatalf("stale holder must lose: %v %v", applied, err)
	}
	if a, _ := s.GetAccount(ctx, "u1"); a.Points != 0 {
		t.Fatalf("stale holder must not refund, got %d", a.Points)
	}

	success := models.StatusSuccess
	current := models.Guard{StatusIn: []string{models.StatusProcessing}, LeaseEquals: second}
	applied, got, err := s.Transition(ctx, "TRX-1", current, models.TransactionUpdate{Status: &success}, 0)
	if err != nil || !applied || got.Status != models.StatusSuccess {
		t.Fatalf("current holder should win: %v %+v %v", applied, got, err)
	}
}

func TestListExpiredLeasesSkipsHeldOrders(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedAccount(t, s, "u1", 0)

	now := time.Now().UnixMilli()
	base := time.Now().Add(-time.Hour)
	// tiga order lama masih dipegang worker, satu order baru lease-nya habis
	for i := 0; i < 3; i++ {
		tx := newTx(fmt.Sprintf("TRX-held-%d", i), "u1")
		tx.Status = models.StatusProcessing
		tx.LeaseExpiresAt = now + 60_000
		tx.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if err := s.CreateTransaction(ctx, tx); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	expired := newTx("TRX-expired", "u1")
	expired.Status = models.StatusProcessing
	expired.LeaseExpiresAt = now - 1_000
	expired.CreatedAt = base.Add(30 * time.Minute)
	done := newTx("TRX-done", "u1")
	done.Status = models.StatusSuccess
	for _, tx := range []*models.Transaction{expired, done} {
		if err := s.CreateTransaction(ctx, tx); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	list, err := s.ListExpiredLeases(ctx, now, 3)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].ID != "TRX-expired" {
		t.Fatalf("expected only TRX-expired, got %+v", list)
	}
}
