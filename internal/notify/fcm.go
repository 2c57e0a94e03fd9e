// Package notify mengirim push notification (FCM) saat status order berubah.
package notify

import (
	"context"
	"fmt"
	"log"

	"ppob-backend/internal/models"
	"ppob-backend/internal/orders"

	"firebase.google.com/go/messaging"
)

// Sender: *messaging.Client memenuhi interface ini
type Sender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// AccountLookup dipakai untuk mengambil FCM token milik user
type AccountLookup interface {
	GetAccount(ctx context.Context, uid string) (*models.Account, error)
}

// FCM adalah orders.Observer yang mengirim notifikasi ke device user
type FCM struct {
	sender   Sender
	accounts AccountLookup
}

func NewFCM(sender Sender, accounts AccountLookup) *FCM {
	return &FCM{sender: sender, accounts: accounts}
}

func (f *FCM) Notify(ctx context.Context, event string, t models.Transaction) {
	title, body, ok := message(event, t)
	if !ok {
		return
	}

	// Token FCM disimpan di akun, bukan di order
	account, err := f.accounts.GetAccount(ctx, t.UserID)
	if err != nil {
		log.Printf("[FCM] gagal ambil akun %s: %v", t.UserID, err)
		return
	}
	if account.FCMToken == nil || *account.FCMToken == "" {
		return
	}

	if err := f.SendNotification(ctx, *account.FCMToken, title, body, map[string]string{
		"order_id": t.ID,
		"event":    event,
		"status":   t.Status,
	}); err != nil {
		log.Printf("[FCM] gagal kirim notifikasi order %s: %v", t.ID, err)
	}
}

// SendNotification mengirim pesan ke satu device (FCM Token)
func (f *FCM) SendNotification(ctx context.Context, token, title, body string, data map[string]string) error {
	msg := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data, // Data tambahan (misal: order_id)
	}

	if _, err := f.sender.Send(ctx, msg); err != nil {
		return err
	}
	log.Printf("[FCM] notifikasi '%s' terkirim", title)
	return nil
}

func message(event string, t models.Transaction) (title, body string, ok bool) {
	switch event {
	case orders.EventPaid:
		return "Pembayaran Diterima", fmt.Sprintf("Pembayaran %s untuk %s sudah kami terima, pesanan sedang diproses.", t.ProductName, t.Target), true
	case orders.EventCompleted:
		sn := ""
		if t.SerialNumber != nil {
			sn = *t.SerialNumber
		}
		return "Transaksi Berhasil", fmt.Sprintf("%s untuk %s berhasil. SN: %s", t.ProductName, t.Target, sn), true
	case orders.EventFailed:
		return "Transaksi Gagal", fmt.Sprintf("%s untuk %s gagal diproses.", t.ProductName, t.Target), true
	case orders.EventExpired:
		return "Pembayaran Kadaluarsa", fmt.Sprintf("Batas waktu pembayaran order %s sudah lewat.", t.ID), true
	case orders.EventCancelled:
		return "Pembayaran Dibatalkan", fmt.Sprintf("Pembayaran order %s dibatalkan.", t.ID), true
	}
	return "", "", false
}
