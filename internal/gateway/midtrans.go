package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"log"
	"strings"
	"time"

	"ppob-backend/internal/apperr"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
	"github.com/midtrans/midtrans-go/snap"
)

type MidtransConfig struct {
	ServerKey    string
	IsProduction bool
	// VerifyStatus: ambil ulang status dari Core API sebelum dipercaya
	VerifyStatus bool
}

type Midtrans struct {
	serverKey    string
	verifyStatus bool
	snap         snap.Client
	core         coreapi.Client
}

func NewMidtrans(cfg MidtransConfig) *Midtrans {
	env := midtrans.Sandbox
	if cfg.IsProduction {
		env = midtrans.Production
	}

	m := &Midtrans{serverKey: cfg.ServerKey, verifyStatus: cfg.VerifyStatus}
	m.snap.New(cfg.ServerKey, env)
	m.core.New(cfg.ServerKey, env)
	return m
}

// CreateCheckoutSession membuat Snap token. Tidak di-retry di sini,
// caller yang memutuskan kompensasi.
func (m *Midtrans) CreateCheckoutSession(ctx context.Context, orderID string, grossAmount int64, customer Customer, items []Item, expiry time.Duration) (*Session, error) {
	if expiry <= 0 {
		expiry = DefaultExpiry
	}

	req := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  orderID,
			GrossAmt: grossAmount,
		},
		CreditCard: &snap.CreditCardDetails{
			Secure: true,
		},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: customer.Name,
			Email: customer.Email,
			Phone: customer.Phone,
		},
		Expiry: &snap.ExpiryDetails{
			Unit:     "minute",
			Duration: int64(expiry / time.Minute),
		},
	}

	if len(items) > 0 {
		details := make([]midtrans.ItemDetails, 0, len(items))
		for _, it := range items {
			details = append(details, midtrans.ItemDetails{
				ID:    it.ID,
				Name:  truncate(it.Name, 50),
				Price: it.Price,
				Qty:   it.Qty,
			})
		}
		req.Items = &details
	}

	resp, merr := m.snap.CreateTransaction(req)
	if merr != nil {
		log.Printf("[Midtrans] create transaction %s gagal: %s", orderID, merr.GetMessage())
		return nil, apperr.Wrap(apperr.KindGateway, "Gagal membuat sesi pembayaran", merr)
	}
	if resp == nil || resp.Token == "" {
		return nil, apperr.New(apperr.KindGateway, "Gagal membuat sesi pembayaran")
	}
	return &Session{Token: resp.Token, RedirectURL: resp.RedirectURL}, nil
}

// VerifyNotification: signature wajib cocok. Kalau VerifyStatus aktif,
// status transaksi diambil ulang dari Core API.
func (m *Midtrans) VerifyNotification(ctx context.Context, n Notification) (*Notification, error) {
	if !VerifySignature(n, m.serverKey) {
		return nil, apperr.New(apperr.KindUnauthorized, "invalid signature")
	}
	if !m.verifyStatus {
		return &n, nil
	}

	st, merr := m.core.CheckTransaction(n.OrderID)
	if merr != nil {
		return nil, apperr.Wrap(apperr.KindGateway, "gagal cek status transaksi", merr)
	}
	if st.OrderID != "" && st.OrderID != n.OrderID {
		return nil, apperr.InvalidInput("order_id tidak cocok dengan gateway")
	}

	verified := n
	verified.TransactionStatus = st.TransactionStatus
	verified.FraudStatus = st.FraudStatus
	if st.PaymentType != "" {
		verified.PaymentType = st.PaymentType
	}
	return &verified, nil
}

// Signature returns SHA512(order_id + status_code + gross_amount + server_key) in hex
func Signature(orderID, statusCode, grossAmount, serverKey string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}

func VerifySignature(n Notification, serverKey string) bool {
	if n.SignatureKey == "" || serverKey == "" {
		return false
	}
	expected := Signature(n.OrderID, n.StatusCode, n.GrossAmount, serverKey)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(n.SignatureKey)))
}

// Midtrans membatasi nama item 50 karakter
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
