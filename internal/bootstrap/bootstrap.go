// Package bootstrap merakit dependency yang dipakai bersama oleh cmd/api dan cmd/ppobctl.
package bootstrap

import (
	"context"
	"fmt"
	"log"
	"time"

	"ppob-backend/internal/catalog"
	"ppob-backend/internal/config"
	"ppob-backend/internal/dedup"
	"ppob-backend/internal/events"
	"ppob-backend/internal/gateway"
	"ppob-backend/internal/ledger"
	"ppob-backend/internal/notify"
	"ppob-backend/internal/orders"

	firebase "firebase.google.com/go"
)

type Infra struct {
	Store ledger.Store
	// Gorm nil kalau LEDGER_DRIVER=firestore
	Gorm     *ledger.GormStore
	Firebase *firebase.App
	Catalog  *catalog.Directory

	closers []func() error
}

// Open membuka ledger, katalog dan (kalau dibutuhkan) Firebase app
func Open(ctx context.Context, cfg *config.Config) (*Infra, error) {
	infra := &Infra{}

	// 1. Katalog
	data, err := catalog.Load(cfg.CatalogFile)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	infra.Catalog = catalog.New(data)

	// 2. Firebase
	if cfg.NeedsFirebase() {
		app, err := config.NewFirebaseApp(ctx, cfg.Firebase)
		if err != nil {
			return nil, err
		}
		infra.Firebase = app
	}

	// 3. Ledger
	switch cfg.LedgerDriver {
	case "firestore":
		client, err := infra.Firebase.Firestore(ctx)
		if err != nil {
			return nil, fmt.Errorf("firestore: %w", err)
		}
		infra.closers = append(infra.closers, client.Close)
		infra.Store = ledger.NewFirestoreStore(client)
	default:
		db, err := config.ConnectDB(cfg)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		infra.closers = append(infra.closers, sqlDB.Close)

		gs := ledger.NewGormStore(db)
		if err := gs.Migrate(); err != nil {
			infra.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		infra.Gorm = gs
		infra.Store = gs
	}
	return infra, nil
}

// NewOrderService membuat engine order beserta observer / dedup opsional
// (FCM, Kafka, Redis aktif kalau dikonfigurasi).
func (i *Infra) NewOrderService(ctx context.Context, cfg *config.Config) (*orders.Service, error) {
	gw := gateway.NewMidtrans(gateway.MidtransConfig{
		ServerKey:    cfg.Midtrans.ServerKey,
		IsProduction: cfg.Midtrans.IsProduction,
		VerifyStatus: cfg.Midtrans.VerifyStatus,
	})
	if cfg.Midtrans.ServerKey == "" {
		log.Println("Warning: MIDTRANS_SERVER_KEY kosong, checkout dan webhook akan gagal")
	}

	supplier := &orders.SimulatedSupplier{
		Delay:       cfg.Fulfillment.Delay,
		FailureRate: cfg.Fulfillment.FailureRate,
	}

	var opts []orders.Option

	if i.Firebase != nil {
		msg, err := i.Firebase.Messaging(ctx)
		if err != nil {
			return nil, fmt.Errorf("error getting messaging client: %w", err)
		}
		opts = append(opts, orders.WithObservers(notify.NewFCM(msg, i.Store)))
		log.Println("[FCM] push notification aktif")
	}

	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := events.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Retries, 5*time.Second)
		if err != nil {
			return nil, err
		}
		i.closers = append(i.closers, producer.Close)
		opts = append(opts, orders.WithObservers(producer))
	}

	if cfg.Redis.Addr != "" {
		rdb, err := dedup.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		i.closers = append(i.closers, rdb.Close)
		opts = append(opts, orders.WithDeduper(dedup.NewRedis(rdb, dedup.DefaultTTL)))
	}

	return orders.NewService(i.Store, i.Catalog, gw, supplier, orders.Config{
		PointValue:     cfg.PointValue,
		CheckoutExpiry: cfg.CheckoutExpiry,
		LeaseDuration:  cfg.Fulfillment.Lease,
	}, opts...), nil
}

// Close menutup koneksi dengan urutan terbalik
func (i *Infra) Close() {
	for j := len(i.closers) - 1; j >= 0; j-- {
		if err := i.closers[j](); err != nil {
			log.Printf("[Shutdown] close error: %v", err)
		}
	}
	i.closers = nil
}
