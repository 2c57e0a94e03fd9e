package orders

import (
	"context"
	"log"
	"math/rand"
	"time"

	"ppob-backend/internal/apperr"
	"ppob-backend/internal/models"
)

// Supplier mengirim produk ke nomor tujuan dan mengembalikan serial number
type Supplier interface {
	Deliver(ctx context.Context, t models.Transaction) (serial string, err error)
}

// SimulatedSupplier meniru panggilan API supplier PPOB: tunggu Delay,
// lalu sukses (atau gagal dengan peluang FailureRate).
type SimulatedSupplier struct {
	Delay       time.Duration
	FailureRate float64
}

func (s *SimulatedSupplier) Deliver(ctx context.Context, t models.Transaction) (string, error) {
	timer := time.NewTimer(s.Delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-timer.C:
	}

	if s.FailureRate > 0 && rand.Float64() < s.FailureRate {
		return "", apperr.New(apperr.KindFulfillment, "supplier menolak transaksi "+t.ID)
	}
	return NewSerialNumber(time.Now()), nil
}

// Fulfill memproses satu order processing. Aman dipanggil berkali-kali
// dan dari beberapa worker sekaligus: lease diklaim lewat CAS.
func (s *Service) Fulfill(ctx context.Context, orderID string) error {
	// 1. Klaim lease
	now := s.now().UnixMilli()
	lease := now + s.cfg.LeaseDuration.Milliseconds()
	claim := models.TransactionUpdate{LeaseExpiresAt: &lease, IncAttempts: true}
	guard := models.Guard{StatusIn: []string{models.StatusProcessing}, LeaseFreeAt: now}

	applied, t, err := s.store.Transition(ctx, orderID, guard, claim, 0)
	if err != nil {
		return err
	}
	if !applied {
		// sudah selesai atau sedang dipegang worker lain
		return nil
	}

	// 2. Panggil supplier, tidak boleh melewati lease
	log.Printf("[Fulfillment] memproses %s (percobaan ke-%d)", orderID, t.FulfillmentAttempts)
	deliverCtx, cancel := context.WithTimeout(ctx, s.cfg.LeaseDuration)
	serial, derr := s.supplier.Deliver(deliverCtx, *t)
	leaseLost := deliverCtx.Err() != nil
	cancel()
	if derr != nil && (ctx.Err() != nil || leaseLost) {
		// shutdown / lease habis: sweeper yang ambil lagi
		log.Printf("[Fulfillment] %s terhenti: %v", orderID, derr)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return derr
	}

	// 3. Catat hasil akhir, hanya kalau lease masih milik worker ini.
	// SN yang sudah didapat tetap ditulis walau ctx dibatalkan.
	writeCtx := context.WithoutCancel(ctx)
	released := int64(0)
	holder := models.Guard{StatusIn: []string{models.StatusProcessing}, LeaseEquals: lease}

	if derr == nil {
		success := models.StatusSuccess
		set := models.TransactionUpdate{Status: &success, SerialNumber: &serial, LeaseExpiresAt: &released}
		applied, done, err := s.store.Transition(writeCtx, orderID, holder, set, 0)
		if err != nil {
			return err
		}
		if !applied {
			log.Printf("[Fulfillment] %s: lease sudah diambil worker lain, SN %s diabaikan", orderID, serial)
			return nil
		}
		log.Printf("[Fulfillment] %s sukses, SN: %s", orderID, serial)
		s.emit(EventCompleted, *done)
		return nil
	}

	// Gagal: hanya order yang dibayar penuh pakai poin yang dapat refund
	reason := derr.Error()
	failed := models.StatusFailed
	set := models.TransactionUpdate{Status: &failed, FailureReason: &reason, LeaseExpiresAt: &released}
	var credit int64
	if t.PaidWithPoints() {
		credit = t.PointsUsed
	}
	applied, done, err := s.store.Transition(writeCtx, orderID, holder, set, credit)
	if err != nil {
		return err
	}
	if !applied {
		log.Printf("[Fulfillment] %s: lease sudah diambil worker lain, hasil gagal diabaikan", orderID)
		return nil
	}
	log.Printf("[Fulfillment] %s gagal: %s (refund poin %d)", orderID, reason, credit)
	s.emit(EventFailed, *done)
	return nil
}
