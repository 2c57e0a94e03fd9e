// Package worker menjalankan fulfillment order di background.
// Order yang dijadwalkan masuk antrian in-memory; sweeper berkala mengambil
// ulang order processing yang lease-nya kosong / kadaluarsa, termasuk saat
// proses baru start (order yang tertinggal karena crash / restart).
package worker

import (
	"context"
	"log"
	"time"

	"ppob-backend/internal/models"

	"golang.org/x/sync/errgroup"
)

type Fulfiller interface {
	Fulfill(ctx context.Context, orderID string) error
}

// Lister: bagian dari ledger.Store yang dibutuhkan sweeper
type Lister interface {
	ListExpiredLeases(ctx context.Context, now int64, limit int) ([]models.Transaction, error)
}

type Config struct {
	Workers       int
	QueueSize     int
	SweepInterval time.Duration
	SweepBatch    int
}

type Dispatcher struct {
	fulfiller Fulfiller
	lister    Lister
	queue     chan string
	cfg       Config
	now       func() time.Time
}

func NewDispatcher(f Fulfiller, l Lister, cfg Config) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = 30 * time.Second
	}
	if cfg.SweepBatch <= 0 {
		cfg.SweepBatch = 100
	}
	return &Dispatcher{
		fulfiller: f,
		lister:    l,
		queue:     make(chan string, cfg.QueueSize),
		cfg:       cfg,
		now:       time.Now,
	}
}

// Schedule tidak pernah blocking. Kalau antrian penuh, order tetap
// processing di database dan akan diambil sweeper.
func (d *Dispatcher) Schedule(orderID string) {
	select {
	case d.queue <- orderID:
	default:
		log.Printf("[Fulfillment] antrian penuh, %s menunggu sweeper", orderID)
	}
}

// Run menjalankan worker + sweeper sampai ctx selesai
func (d *Dispatcher) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for i := 0; i < d.cfg.Workers; i++ {
		id := i + 1
		g.Go(func() error {
			d.work(ctx, id)
			return nil
		})
	}

	g.Go(func() error {
		d.sweepLoop(ctx)
		return nil
	})

	log.Printf("[Fulfillment] dispatcher jalan dengan %d worker", d.cfg.Workers)
	return g.Wait()
}

func (d *Dispatcher) work(ctx context.Context, workerID int) {
	for {
		select {
		case <-ctx.Done():
			return
		case orderID := <-d.queue:
			if err := d.fulfiller.Fulfill(ctx, orderID); err != nil && ctx.Err() == nil {
				log.Printf("[Fulfillment] worker %d: %s error: %v", workerID, orderID, err)
			}
		}
	}
}

func (d *Dispatcher) sweepLoop(ctx context.Context) {
	// langsung sweep sekali saat start
	if n, err := d.Redrive(ctx); err != nil {
		log.Printf("[Fulfillment] sweep awal gagal: %v", err)
	} else if n > 0 {
		log.Printf("[Fulfillment] %d order tertinggal dijadwalkan ulang", n)
	}

	ticker := time.NewTicker(d.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := d.Redrive(ctx); err != nil && ctx.Err() == nil {
				log.Printf("[Fulfillment] sweep gagal: %v", err)
			}
		}
	}
}

// Stuck mengembalikan order processing yang tidak sedang dipegang worker.
// Filter lease ada di query, jadi order yang masih dipegang tidak
// menghabiskan jatah SweepBatch.
func (d *Dispatcher) Stuck(ctx context.Context) ([]string, error) {
	list, err := d.lister.ListExpiredLeases(ctx, d.now().UnixMilli(), d.cfg.SweepBatch)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(list))
	for _, t := range list {
		ids = append(ids, t.ID)
	}
	return ids, nil
}

// Redrive menjadwalkan ulang semua order yang tertinggal
func (d *Dispatcher) Redrive(ctx context.Context) (int, error) {
	ids, err := d.Stuck(ctx)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		d.Schedule(id)
	}
	return len(ids), nil
}
