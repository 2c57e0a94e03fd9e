package ledger

import (
	"context"
	"strings"
	"time"

	"ppob-backend/internal/apperr"
	"ppob-backend/internal/models"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	colUsers         = "users"
	colTransactions  = "transactions"
	colNotifications = "payment_notifications"
)

// FirestoreStore: backend dokumen (collection users / transactions).
// Operasi yang harus atomik memakai RunTransaction.
type FirestoreStore struct {
	client *firestore.Client
}

func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

func (s *FirestoreStore) users() *firestore.CollectionRef {
	return s.client.Collection(colUsers)
}

func (s *FirestoreStore) transactions() *firestore.CollectionRef {
	return s.client.Collection(colTransactions)
}

func (s *FirestoreStore) GetAccount(ctx context.Context, uid string) (*models.Account, error) {
	snap, err := s.users().Doc(uid).Get(ctx)
	if err != nil {
		return nil, docErr(err, "User not found")
	}
	var a models.Account
	if err := snap.DataTo(&a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *FirestoreStore) FindAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	docs, err := s.users().Where("email", "==", strings.ToLower(email)).Limit(1).Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, apperr.NotFound("User not found")
	}
	var a models.Account
	if err := docs[0].DataTo(&a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *FirestoreStore) CreateAccount(ctx context.Context, a *models.Account) error {
	now := time.Now()
	if a.Role == "" {
		a.Role = models.RoleUser
	}
	a.CreatedAt, a.UpdatedAt = now, now
	if _, err := s.users().Doc(a.ID).Create(ctx, a); err != nil {
		return docErr(err, "User already exists")
	}
	return nil
}

func (s *FirestoreStore) UpdateAccount(ctx context.Context, uid string, u models.AccountUpdate) (*models.Account, error) {
	fields := u.DocFields()
	fields["updatedAt"] = time.Now()
	if _, err := s.users().Doc(uid).Update(ctx, toUpdates(fields)); err != nil {
		return nil, docErr(err, "User not found")
	}
	return s.GetAccount(ctx, uid)
}

func (s *FirestoreStore) AdjustPoints(ctx context.Context, uid string, delta int64) (*models.Account, error) {
	var out models.Account
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		a, err := s.adjustPoints(tx, uid, delta)
		if err != nil {
			return err
		}
		out = *a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// adjustPoints membaca lalu menulis saldo di dalam transaksi Firestore.
// Firestore mewajibkan semua read sebelum write, jadi caller tidak boleh
// membaca dokumen lain setelah memanggil fungsi ini.
func (s *FirestoreStore) adjustPoints(tx *firestore.Transaction, uid string, delta int64) (*models.Account, error) {
	ref := s.users().Doc(uid)
	snap, err := tx.Get(ref)
	if err != nil {
		return nil, docErr(err, "User not found")
	}
	var a models.Account
	if err := snap.DataTo(&a); err != nil {
		return nil, err
	}
	if a.Points+delta < 0 {
		return nil, apperr.ErrInsufficientBalance
	}
	a.Points += delta
	a.UpdatedAt = time.Now()
	err = tx.Update(ref, []firestore.Update{
		{Path: "points", Value: a.Points},
		{Path: "updatedAt", Value: a.UpdatedAt},
	})
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *FirestoreStore) CreateTransaction(ctx context.Context, t *models.Transaction) error {
	stampTransaction(t)
	if _, err := s.transactions().Doc(t.ID).Create(ctx, t); err != nil {
		return docErr(err, "Transaction already exists")
	}
	return nil
}

func (s *FirestoreStore) CreateTransactionWithDebit(ctx context.Context, t *models.Transaction, points int64) error {
	stampTransaction(t)
	ref := s.transactions().Doc(t.ID)
	return s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		// read dulu: pastikan id belum dipakai
		if _, err := tx.Get(ref); err == nil {
			return apperr.AlreadyExists("Transaction already exists")
		} else if status.Code(err) != codes.NotFound {
			return err
		}
		if points > 0 {
			if _, err := s.adjustPoints(tx, t.UserID, -points); err != nil {
				return err
			}
		}
		return tx.Create(ref, t)
	})
}

func (s *FirestoreStore) UpdateTransaction(ctx context.Context, id string, u models.TransactionUpdate) (*models.Transaction, error) {
	var out models.Transaction
	ref := s.transactions().Doc(id)
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return docErr(err, "Transaction not found")
		}
		if err := snap.DataTo(&out); err != nil {
			return err
		}
		u.Apply(&out)
		out.UpdatedAt = time.Now()
		return tx.Set(ref, &out)
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *FirestoreStore) GetTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	snap, err := s.transactions().Doc(id).Get(ctx)
	if err != nil {
		return nil, docErr(err, "Transaction not found")
	}
	var t models.Transaction
	if err := snap.DataTo(&t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *FirestoreStore) ListTransactionsByAccount(ctx context.Context, uid string, limit int) ([]models.Transaction, error) {
	q := s.transactions().
		Where("userId", "==", uid).
		OrderBy("createdAt", firestore.Desc).
		Limit(normalizeLimit(limit))
	return collectTransactions(q.Documents(ctx))
}

// Butuh composite index (status, leaseExpiresAt)
func (s *FirestoreStore) ListExpiredLeases(ctx context.Context, now int64, limit int) ([]models.Transaction, error) {
	q := s.transactions().
		Where("status", "==", models.StatusProcessing).
		Where("leaseExpiresAt", "<=", now).
		OrderBy("leaseExpiresAt", firestore.Asc).
		Limit(normalizeLimit(limit))
	return collectTransactions(q.Documents(ctx))
}

func (s *FirestoreStore) Transition(ctx context.Context, id string, g models.Guard, set models.TransactionUpdate, creditOwner int64) (bool, *models.Transaction, error) {
	var applied bool
	var out models.Transaction
	ref := s.transactions().Doc(id)

	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		// RunTransaction bisa retry, reset state tiap percobaan
		applied = false

		snap, err := tx.Get(ref)
		if err != nil {
			return docErr(err, "Transaction not found")
		}
		if err := snap.DataTo(&out); err != nil {
			return err
		}
		if !g.Match(&out) {
			return nil
		}

		set.Apply(&out)
		out.UpdatedAt = time.Now()

		if creditOwner > 0 {
			// adjustPoints melakukan read, harus sebelum tx.Set
			if _, err := s.adjustPoints(tx, out.UserID, creditOwner); err != nil {
				return err
			}
		}
		if err := tx.Set(ref, &out); err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		return false, nil, err
	}
	return applied, &out, nil
}

func (s *FirestoreStore) RecordNotification(ctx context.Context, n *models.PaymentNotification) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}
	_, _, err := s.client.Collection(colNotifications).Add(ctx, map[string]interface{}{
		"orderId":           n.OrderID,
		"transactionStatus": n.TransactionStatus,
		"fraudStatus":       n.FraudStatus,
		"paymentType":       n.PaymentType,
		"payload":           string(n.Payload),
		"signatureValid":    n.SignatureValid,
		"processingError":   n.ProcessingError,
		"createdAt":         n.CreatedAt,
	})
	return err
}

func stampTransaction(t *models.Transaction) {
	now := time.Now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
}

func collectTransactions(it *firestore.DocumentIterator) ([]models.Transaction, error) {
	docs, err := it.GetAll()
	if err != nil {
		return nil, err
	}
	list := make([]models.Transaction, 0, len(docs))
	for _, d := range docs {
		var t models.Transaction
		if err := d.DataTo(&t); err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, nil
}

func toUpdates(fields map[string]interface{}) []firestore.Update {
	updates := make([]firestore.Update, 0, len(fields))
	for path, v := range fields {
		updates = append(updates, firestore.Update{Path: path, Value: v})
	}
	return updates
}

// docErr menerjemahkan kode gRPC Firestore ke apperr
func docErr(err error, msg string) error {
	switch status.Code(err) {
	case codes.NotFound:
		return apperr.NotFound(msg)
	case codes.AlreadyExists:
		return apperr.AlreadyExists(msg)
	}
	return err
}

var _ Store = (*FirestoreStore)(nil)
