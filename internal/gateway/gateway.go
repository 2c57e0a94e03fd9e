// Package gateway membungkus payment gateway (Midtrans Snap + Core API).
package gateway

import (
	"context"
	"time"
)

// DefaultExpiry: sesi checkout Snap berlaku 60 menit
const DefaultExpiry = 60 * time.Minute

type Customer struct {
	Name  string
	Email string
	Phone string
}

type Item struct {
	ID    string
	Name  string
	Price int64
	Qty   int32
}

type Session struct {
	Token       string `json:"token"`
	RedirectURL string `json:"redirectUrl"`
}

// Notification adalah body webhook HTTP notification dari Midtrans
type Notification struct {
	OrderID           string `json:"order_id"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	SignatureKey      string `json:"signature_key"`
	TransactionID     string `json:"transaction_id"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status"`
	PaymentType       string `json:"payment_type"`
}

type Gateway interface {
	CreateCheckoutSession(ctx context.Context, orderID string, grossAmount int64, customer Customer, items []Item, expiry time.Duration) (*Session, error)
	// VerifyNotification mengembalikan notifikasi yang sudah terverifikasi
	// (status dari gateway kalau verifikasi ulang aktif). Error = abaikan notifikasi.
	VerifyNotification(ctx context.Context, n Notification) (*Notification, error)
}

// Outcome: efek status gateway terhadap order
type Outcome int

const (
	OutcomeNone Outcome = iota // pending, challenge, status lain: tidak ada perubahan
	OutcomePaid
	OutcomeCancelled
	OutcomeExpired
)

func (o Outcome) String() string {
	switch o {
	case OutcomePaid:
		return "paid"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeExpired:
		return "expired"
	}
	return "none"
}

// MapStatus menerjemahkan transaction_status + fraud_status Midtrans
func MapStatus(transactionStatus, fraudStatus string) Outcome {
	switch transactionStatus {
	case "capture", "settlement":
		switch fraudStatus {
		case "", "accept":
			return OutcomePaid
		case "deny":
			return OutcomeCancelled
		}
		// challenge: tunggu review manual di dashboard Midtrans
		return OutcomeNone
	case "deny", "cancel", "failure":
		return OutcomeCancelled
	case "expire":
		return OutcomeExpired
	}
	return OutcomeNone
}
