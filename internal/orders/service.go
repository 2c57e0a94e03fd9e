// Package orders menjalankan alur order PPOB: pembuatan order (poin, Midtrans,
// hybrid), settlement dari webhook / konfirmasi client, dan fulfillment.
package orders

import (
	"context"
	"log"
	"strings"
	"time"

	"ppob-backend/internal/apperr"
	"ppob-backend/internal/catalog"
	"ppob-backend/internal/gateway"
	"ppob-backend/internal/ledger"
	"ppob-backend/internal/models"
)

// Event lifecycle order yang dikirim ke Observer
const (
	EventPaid      = "paid"
	EventCompleted = "completed"
	EventFailed    = "failed"
	EventExpired   = "expired"
	EventCancelled = "cancelled"
)

// MaxListLimit: riwayat order maksimal 50 per request
const MaxListLimit = 50

// Scheduler menerima id order yang siap di-fulfill. Tidak boleh blocking.
type Scheduler interface {
	Schedule(orderID string)
}

// Observer dipanggil setelah transisi berhasil (Kafka, FCM).
// Best-effort: error di observer tidak mempengaruhi order.
type Observer interface {
	Notify(ctx context.Context, event string, t models.Transaction)
}

// Deduper menandai webhook yang sudah pernah diproses
type Deduper interface {
	FirstSeen(ctx context.Context, key string) (bool, error)
	Forget(ctx context.Context, key string)
}

type Config struct {
	// PointValue: nilai rupiah per 1 poin
	PointValue     int64
	CheckoutExpiry time.Duration
	// LeaseDuration: berapa lama worker memegang order sebelum boleh diambil worker lain
	LeaseDuration time.Duration
}

type Service struct {
	store     ledger.Store
	catalog   *catalog.Directory
	gateway   gateway.Gateway
	supplier  Supplier
	scheduler Scheduler
	observers []Observer
	dedup     Deduper
	cfg       Config
	now       func() time.Time
}

type Option func(*Service)

func WithObservers(obs ...Observer) Option {
	return func(s *Service) { s.observers = append(s.observers, obs...) }
}

func WithDeduper(d Deduper) Option {
	return func(s *Service) { s.dedup = d }
}

func WithScheduler(sch Scheduler) Option {
	return func(s *Service) { s.scheduler = sch }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store ledger.Store, dir *catalog.Directory, gw gateway.Gateway, supplier Supplier, cfg Config, opts ...Option) *Service {
	if cfg.PointValue <= 0 {
		cfg.PointValue = 1
	}
	if cfg.CheckoutExpiry <= 0 {
		cfg.CheckoutExpiry = gateway.DefaultExpiry
	}
	if cfg.LeaseDuration <= 0 {
		cfg.LeaseDuration = 30 * time.Second
	}
	s := &Service{
		store:    store,
		catalog:  dir,
		gateway:  gw,
		supplier: supplier,
		cfg:      cfg,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetScheduler dipakai saat dispatcher dibuat setelah service
func (s *Service) SetScheduler(sch Scheduler) {
	s.scheduler = sch
}

// CheckoutResult adalah response POST /api/orders/create
type CheckoutResult struct {
	OrderID     string `json:"orderId"`
	SnapToken   string `json:"snapToken"`
	RedirectURL string `json:"redirectUrl"`
}

// quote: harga final dihitung dari katalog, bukan dari angka yang dikirim client
type quote struct {
	product         models.Product
	provider        models.Provider
	voucherCode     *string
	voucherDiscount int64
	pointsUsed      int64
	pointsValue     int64
	// payable = harga setelah voucher
	payable int64
	// gross = payable - nilai poin (yang ditagih ke gateway)
	gross int64
}

func (s *Service) quote(productID string, voucherCode *string, pointsUsed int64) (*quote, error) {
	p, err := s.catalog.GetProduct(productID)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, apperr.InvalidInput("Produk sedang tidak tersedia")
	}
	provider, err := s.catalog.GetProvider(p.ProviderID)
	if err != nil {
		return nil, err
	}
	if pointsUsed < 0 {
		return nil, apperr.InvalidInput("pointsUsed tidak boleh negatif")
	}

	q := &quote{product: p, provider: provider, pointsUsed: pointsUsed}

	if voucherCode != nil && strings.TrimSpace(*voucherCode) != "" {
		v, err := s.catalog.LookupVoucher(*voucherCode)
		if err != nil {
			return nil, err
		}
		if p.Price < v.MinPurchase {
			return nil, apperr.InvalidInput("Minimal pembelian voucher belum terpenuhi")
		}
		code := v.Code
		q.voucherCode = &code
		q.voucherDiscount = v.Discount
		if q.voucherDiscount > p.Price {
			q.voucherDiscount = p.Price
		}
	}

	q.payable = p.Price - q.voucherDiscount
	q.pointsValue = pointsUsed * s.cfg.PointValue
	q.gross = q.payable - q.pointsValue
	if q.gross < 0 {
		return nil, apperr.InvalidInput("Poin yang dipakai melebihi total harga")
	}
	return q, nil
}

func (s *Service) newTransaction(uid, target string, q *quote) *models.Transaction {
	now := s.now()
	return &models.Transaction{
		ID:              NewOrderID(now),
		UserID:          uid,
		ProductID:       q.product.ID,
		ProductName:     q.product.Name,
		ProviderID:      q.provider.ID,
		ProviderName:    q.provider.Name,
		Type:            q.product.Type,
		Target:          strings.TrimSpace(target),
		Price:           q.product.Price,
		GrossAmount:     q.gross,
		PointsUsed:      q.pointsUsed,
		VoucherCode:     q.voucherCode,
		VoucherDiscount: q.voucherDiscount,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// CreatePointsOrder: bayar penuh pakai poin. Debit + simpan transaksi atomik,
// fulfillment dijadwalkan tanpa menunggu.
func (s *Service) CreatePointsOrder(ctx context.Context, uid string, in models.CreatePointsOrderInput) (string, error) {
	// 1. Hitung harga dari katalog
	q, err := s.quote(in.ProductID, in.VoucherCode, in.PointsUsed)
	if err != nil {
		return "", err
	}
	if q.gross != 0 || in.Price != q.payable {
		return "", apperr.InvalidInput("Jumlah poin harus sama dengan harga")
	}

	// 2. Debit poin + simpan transaksi dalam satu unit
	t := s.newTransaction(uid, in.Target, q)
	method := models.PaymentMethodPoints
	paidAt := t.CreatedAt
	t.Status = models.StatusProcessing
	t.PaymentStatus = models.PaymentPaid
	t.PaymentMethod = &method
	t.PaidAt = &paidAt

	if err := s.store.CreateTransactionWithDebit(ctx, t, q.pointsUsed); err != nil {
		return "", err
	}
	log.Printf("[Order] %s dibuat (poin %d) oleh %s", t.ID, q.pointsUsed, uid)

	// 3. Jadwalkan pengiriman produk
	s.schedule(t.ID)
	s.emit(EventPaid, *t)
	return t.ID, nil
}

// CreateGatewayOrder: bayar via Midtrans Snap, bisa hybrid dengan sebagian poin.
// Kalau gateway / penyimpanan gagal setelah poin dipotong, poin dikembalikan.
func (s *Service) CreateGatewayOrder(ctx context.Context, uid string, in models.CreateOrderInput) (*CheckoutResult, error) {
	// 1. Hitung harga dari katalog
	q, err := s.quote(in.ProductID, in.VoucherCode, in.PointsUsed)
	if err != nil {
		return nil, err
	}
	if q.gross <= 0 {
		return nil, apperr.InvalidInput("Total pembayaran harus lebih dari 0")
	}
	if in.Price != q.gross {
		return nil, apperr.InvalidInput("Harga tidak sesuai dengan katalog")
	}

	account, err := s.store.GetAccount(ctx, uid)
	if err != nil {
		return nil, err
	}

	// 2. Potong poin dulu (hybrid)
	if q.pointsUsed > 0 {
		if _, err := s.store.AdjustPoints(ctx, uid, -q.pointsUsed); err != nil {
			return nil, err
		}
	}

	// 3. Minta Snap token ke Midtrans
	t := s.newTransaction(uid, in.Target, q)
	customer := gateway.Customer{Name: "Customer", Email: account.Email}
	if account.DisplayName != nil && *account.DisplayName != "" {
		customer.Name = *account.DisplayName
	}
	if account.Phone != nil {
		customer.Phone = *account.Phone
	}
	items := []gateway.Item{{ID: q.product.ID, Name: q.product.Name, Price: q.gross, Qty: 1}}

	session, err := s.gateway.CreateCheckoutSession(ctx, t.ID, q.gross, customer, items, s.cfg.CheckoutExpiry)
	if err != nil {
		s.refundPoints(ctx, uid, t.ID, q.pointsUsed)
		return nil, err
	}

	// 4. Simpan transaksi pending
	t.Status = models.StatusPending
	t.PaymentStatus = models.PaymentUnpaid
	t.MidtransOrderID = &t.ID
	t.SnapToken = &session.Token
	if err := s.store.CreateTransaction(ctx, t); err != nil {
		s.refundPoints(ctx, uid, t.ID, q.pointsUsed)
		return nil, err
	}
	log.Printf("[Order] %s dibuat (gross %d, poin %d) oleh %s", t.ID, q.gross, q.pointsUsed, uid)

	return &CheckoutResult{OrderID: t.ID, SnapToken: session.Token, RedirectURL: session.RedirectURL}, nil
}

// CreateDirectOrder: transaksi langsung tanpa checkout, harga dari katalog
func (s *Service) CreateDirectOrder(ctx context.Context, uid string, in models.DirectTransactionInput) (*models.Transaction, error) {
	q, err := s.quote(in.ProductID, nil, 0)
	if err != nil {
		return nil, err
	}
	t := s.newTransaction(uid, in.Target, q)
	t.Status = models.StatusProcessing
	t.PaymentStatus = models.PaymentUnpaid
	if err := s.store.CreateTransaction(ctx, t); err != nil {
		return nil, err
	}
	log.Printf("[Order] transaksi langsung %s untuk %s", t.ID, t.Target)
	s.schedule(t.ID)
	return t, nil
}

// GetOrder hanya boleh dibaca pemiliknya
func (s *Service) GetOrder(ctx context.Context, uid, orderID string) (*models.Transaction, error) {
	t, err := s.store.GetTransaction(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if t.UserID != uid {
		return nil, apperr.Forbidden("Forbidden")
	}
	return t, nil
}

// ListOrders: riwayat milik user, terbaru dulu. typ kosong = semua jenis.
func (s *Service) ListOrders(ctx context.Context, uid string, limit int, typ string) ([]models.Transaction, error) {
	if limit <= 0 || limit > MaxListLimit {
		limit = MaxListLimit
	}
	list, err := s.store.ListTransactionsByAccount(ctx, uid, limit)
	if err != nil {
		return nil, err
	}
	if typ == "" {
		return list, nil
	}
	out := make([]models.Transaction, 0, len(list))
	for _, t := range list {
		if t.Type == typ {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *Service) refundPoints(ctx context.Context, uid, orderID string, points int64) {
	if points <= 0 {
		return
	}
	if _, err := s.store.AdjustPoints(ctx, uid, points); err != nil {
		log.Printf("[Order] GAGAL refund %d poin untuk %s (order %s): %v", points, uid, orderID, err)
		return
	}
	log.Printf("[Order] refund %d poin ke %s, order %s dibatalkan", points, uid, orderID)
}

func (s *Service) schedule(orderID string) {
	if s.scheduler == nil {
		log.Printf("[Fulfillment] scheduler belum diset, %s menunggu sweeper", orderID)
		return
	}
	s.scheduler.Schedule(orderID)
}

// emit mengirim event ke semua observer di goroutine terpisah
func (s *Service) emit(event string, t models.Transaction) {
	for _, o := range s.observers {
		go func(o Observer) {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			o.Notify(ctx, event, t)
		}(o)
	}
}
