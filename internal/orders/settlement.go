package orders

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"ppob-backend/internal/apperr"
	"ppob-backend/internal/gateway"
	"ppob-backend/internal/models"
)

var unpaidGuard = models.Guard{
	StatusIn:        []string{models.StatusPending},
	PaymentStatusIn: []string{models.PaymentUnpaid},
}

// settle: unpaid/pending -> paid/processing. Dipakai webhook dan konfirmasi
// client, hanya pemenang CAS yang menjadwalkan fulfillment.
func (s *Service) settle(ctx context.Context, orderID string, method *string) (bool, *models.Transaction, error) {
	paid := models.PaymentPaid
	processing := models.StatusProcessing
	paidAt := s.now()
	set := models.TransactionUpdate{
		PaymentStatus: &paid,
		Status:        &processing,
		PaidAt:        &paidAt,
		PaymentMethod: method,
	}

	applied, t, err := s.store.Transition(ctx, orderID, unpaidGuard, set, 0)
	if err != nil {
		return false, nil, err
	}
	if applied {
		log.Printf("[Order] %s dibayar, masuk antrian fulfillment", orderID)
		s.schedule(orderID)
		s.emit(EventPaid, *t)
	}
	return applied, t, nil
}

// void: order belum dibayar berakhir expired / cancelled.
// Poin hybrid dikembalikan di transisi yang sama.
func (s *Service) void(ctx context.Context, orderID string, outcome gateway.Outcome) (bool, error) {
	current, err := s.store.GetTransaction(ctx, orderID)
	if err != nil {
		return false, err
	}

	paymentStatus, event, reason := models.PaymentCancelled, EventCancelled, "pembayaran dibatalkan"
	if outcome == gateway.OutcomeExpired {
		paymentStatus, event, reason = models.PaymentExpired, EventExpired, "pembayaran kadaluarsa"
	}
	failed := models.StatusFailed
	set := models.TransactionUpdate{
		PaymentStatus: &paymentStatus,
		Status:        &failed,
		FailureReason: &reason,
	}

	applied, t, err := s.store.Transition(ctx, orderID, unpaidGuard, set, current.PointsUsed)
	if err != nil {
		return false, err
	}
	if applied {
		log.Printf("[Order] %s %s, poin dikembalikan: %d", orderID, paymentStatus, current.PointsUsed)
		s.emit(event, *t)
	}
	return applied, nil
}

// HandleNotification memproses webhook Midtrans. Setiap notifikasi dicatat,
// termasuk yang signature-nya tidak valid. Error yang dikembalikan hanya
// untuk logging, response ke Midtrans tetap 200.
func (s *Service) HandleNotification(ctx context.Context, n gateway.Notification, raw []byte) error {
	rec := &models.PaymentNotification{
		OrderID:           n.OrderID,
		TransactionStatus: n.TransactionStatus,
		FraudStatus:       n.FraudStatus,
		PaymentType:       n.PaymentType,
		Payload:           rawPayload(raw, n),
	}
	err := s.processNotification(ctx, n, rec)
	if err != nil {
		rec.ProcessingError = err.Error()
	}
	if rerr := s.store.RecordNotification(ctx, rec); rerr != nil {
		log.Printf("[Webhook] gagal mencatat notifikasi %s: %v", n.OrderID, rerr)
	}
	return err
}

func (s *Service) processNotification(ctx context.Context, n gateway.Notification, rec *models.PaymentNotification) error {
	// 1. Verifikasi signature (dan status ke Core API kalau aktif)
	verified, err := s.gateway.VerifyNotification(ctx, n)
	if err != nil {
		log.Printf("[Webhook] notifikasi %s ditolak: %v", n.OrderID, err)
		return err
	}
	rec.SignatureValid = true
	rec.TransactionStatus = verified.TransactionStatus
	rec.FraudStatus = verified.FraudStatus

	// 2. Buang pengiriman ulang yang identik
	key := "midtrans:notif:" + verified.OrderID + ":" + verified.TransactionStatus + ":" + verified.FraudStatus
	if s.dedup != nil {
		first, derr := s.dedup.FirstSeen(ctx, key)
		if derr != nil {
			log.Printf("[Webhook] dedup error, lanjut proses: %v", derr)
		} else if !first {
			log.Printf("[Webhook] %s (%s) sudah diproses, skip", verified.OrderID, verified.TransactionStatus)
			return nil
		}
	}

	// 3. Terapkan status
	outcome := gateway.MapStatus(verified.TransactionStatus, verified.FraudStatus)
	log.Printf("[Webhook] %s status=%s fraud=%s -> %s", verified.OrderID, verified.TransactionStatus, verified.FraudStatus, outcome)

	switch outcome {
	case gateway.OutcomePaid:
		var method *string
		if verified.PaymentType != "" {
			method = &verified.PaymentType
		}
		_, _, err = s.settle(ctx, verified.OrderID, method)
	case gateway.OutcomeCancelled, gateway.OutcomeExpired:
		_, err = s.void(ctx, verified.OrderID, outcome)
	}

	if err != nil && s.dedup != nil && !errors.Is(err, apperr.ErrNotFound) {
		// biar retry dari Midtrans bisa diproses lagi
		s.dedup.Forget(ctx, key)
	}
	return err
}

// ConfirmPayment dipanggil client setelah popup Snap sukses.
// Idempotent: order yang sudah paid dikembalikan apa adanya (alreadyPaid=true).
func (s *Service) ConfirmPayment(ctx context.Context, uid, orderID string) (t *models.Transaction, alreadyPaid bool, err error) {
	current, err := s.store.GetTransaction(ctx, orderID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, false, apperr.NotFound("Order not found")
		}
		return nil, false, err
	}
	if current.UserID != uid {
		return nil, false, apperr.Forbidden("Forbidden")
	}
	if current.PaymentStatus == models.PaymentPaid {
		return current, true, nil
	}

	applied, t, err := s.settle(ctx, orderID, nil)
	if err != nil {
		return nil, false, err
	}
	if applied {
		return t, false, nil
	}
	// kalah balapan dengan webhook
	if t.PaymentStatus == models.PaymentPaid {
		return t, true, nil
	}
	return nil, false, apperr.InvalidInput("Order sudah tidak bisa dibayar")
}

func rawPayload(raw []byte, n gateway.Notification) []byte {
	if json.Valid(raw) {
		return raw
	}
	b, _ := json.Marshal(n)
	return b
}
