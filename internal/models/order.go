package models

import "time"

// Status order (proses pengiriman produk)
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusSuccess    = "success"
	StatusFailed     = "failed"
	StatusRefunded   = "refunded"
)

// Status pembayaran
const (
	PaymentUnpaid    = "unpaid"
	PaymentPaid      = "paid"
	PaymentExpired   = "expired"
	PaymentCancelled = "cancelled"
)

const PaymentMethodPoints = "points"

// Transaction = order. ID dipakai juga sebagai order_id di Midtrans.
// ProductName / ProviderName / Price adalah snapshot saat order dibuat,
// perubahan katalog setelahnya tidak boleh mengubah data ini.
type Transaction struct {
	ID              string     `gorm:"primaryKey;size:64" json:"id" firestore:"id"`
	UserID          string     `gorm:"size:128;not null;index:idx_transactions_user_created,priority:1" json:"userId" firestore:"userId"`
	ProductID       string     `gorm:"size:64;not null" json:"productId" firestore:"productId"`
	ProductName     string     `gorm:"size:100;not null" json:"productName" firestore:"productName"`
	ProviderID      string     `gorm:"size:64" json:"providerId" firestore:"providerId"`
	ProviderName    string     `gorm:"size:100" json:"providerName" firestore:"providerName"`
	Type            string     `gorm:"size:10" json:"type" firestore:"type"`
	Target          string     `gorm:"size:50;not null" json:"target" firestore:"target"` // No HP / ID pelanggan PLN
	Price           int64      `gorm:"not null" json:"price" firestore:"price"`
	GrossAmount     int64      `gorm:"not null;default:0" json:"grossAmount" firestore:"grossAmount"` // Yang ditagihkan ke Midtrans
	PointsUsed      int64      `gorm:"not null;default:0" json:"pointsUsed" firestore:"pointsUsed"`
	VoucherCode     *string    `gorm:"size:50" json:"voucherCode,omitempty" firestore:"voucherCode"`
	VoucherDiscount int64      `gorm:"not null;default:0" json:"voucherDiscount" firestore:"voucherDiscount"`
	Status          string     `gorm:"size:20;not null;index" json:"status" firestore:"status"`
	SerialNumber    *string    `gorm:"size:64" json:"serialNumber,omitempty" firestore:"serialNumber"`
	FailureReason   *string    `gorm:"size:255" json:"failureReason,omitempty" firestore:"failureReason"`
	MidtransOrderID *string    `gorm:"size:64" json:"midtransOrderId,omitempty" firestore:"midtransOrderId"`
	SnapToken       *string    `gorm:"size:255" json:"snapToken,omitempty" firestore:"snapToken"`
	PaymentStatus   string     `gorm:"size:20;not null;default:unpaid" json:"paymentStatus" firestore:"paymentStatus"`
	PaymentMethod   *string    `gorm:"size:50" json:"paymentMethod,omitempty" firestore:"paymentMethod"`
	PaidAt          *time.Time `json:"paidAt,omitempty" firestore:"paidAt"`

	// Lease worker fulfillment (unix millis, 0 = bebas)
	LeaseExpiresAt      int64 `gorm:"not null;default:0" json:"-" firestore:"leaseExpiresAt"`
	FulfillmentAttempts int   `gorm:"not null;default:0" json:"fulfillmentAttempts" firestore:"fulfillmentAttempts"`

	CreatedAt time.Time `gorm:"index:idx_transactions_user_created,priority:2" json:"createdAt" firestore:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" firestore:"updatedAt"`
}

// PaidWithPoints true kalau order dibayar penuh pakai poin (cabang yang dapat refund poin)
func (t *Transaction) PaidWithPoints() bool {
	return t.PaymentMethod != nil && *t.PaymentMethod == PaymentMethodPoints
}

// IsTerminal: status akhir, tidak boleh berubah lagi
func (t *Transaction) IsTerminal() bool {
	switch t.Status {
	case StatusSuccess, StatusFailed, StatusRefunded:
		return true
	}
	return false
}

// TransactionUpdate: field nil artinya tidak diubah
type TransactionUpdate struct {
	Status          *string
	PaymentStatus   *string
	PaymentMethod   *string
	PaidAt          *time.Time
	SerialNumber    *string
	FailureReason   *string
	SnapToken       *string
	MidtransOrderID *string
	LeaseExpiresAt  *int64
	IncAttempts     bool
}

func (u TransactionUpdate) Fields() map[string]interface{} {
	m := map[string]interface{}{}
	if u.Status != nil {
		m["status"] = *u.Status
	}
	if u.PaymentStatus != nil {
		m["payment_status"] = *u.PaymentStatus
	}
	if u.PaymentMethod != nil {
		m["payment_method"] = *u.PaymentMethod
	}
	if u.PaidAt != nil {
		m["paid_at"] = *u.PaidAt
	}
	if u.SerialNumber != nil {
		m["serial_number"] = *u.SerialNumber
	}
	if u.FailureReason != nil {
		m["failure_reason"] = *u.FailureReason
	}
	if u.SnapToken != nil {
		m["snap_token"] = *u.SnapToken
	}
	if u.MidtransOrderID != nil {
		m["midtrans_order_id"] = *u.MidtransOrderID
	}
	if u.LeaseExpiresAt != nil {
		m["lease_expires_at"] = *u.LeaseExpiresAt
	}
	return m
}

func (u TransactionUpdate) DocFields() map[string]interface{} {
	m := map[string]interface{}{}
	if u.Status != nil {
		m["status"] = *u.Status
	}
	if u.PaymentStatus != nil {
		m["paymentStatus"] = *u.PaymentStatus
	}
	if u.PaymentMethod != nil {
		m["paymentMethod"] = *u.PaymentMethod
	}
	if u.PaidAt != nil {
		m["paidAt"] = *u.PaidAt
	}
	if u.SerialNumber != nil {
		m["serialNumber"] = *u.SerialNumber
	}
	if u.FailureReason != nil {
		m["failureReason"] = *u.FailureReason
	}
	if u.SnapToken != nil {
		m["snapToken"] = *u.SnapToken
	}
	if u.MidtransOrderID != nil {
		m["midtransOrderId"] = *u.MidtransOrderID
	}
	if u.LeaseExpiresAt != nil {
		m["leaseExpiresAt"] = *u.LeaseExpiresAt
	}
	return m
}

// Apply menerapkan update ke struct di memori (dipakai store Firestore & test)
func (u TransactionUpdate) Apply(t *Transaction) {
	if u.Status != nil {
		t.Status = *u.Status
	}
	if u.PaymentStatus != nil {
		t.PaymentStatus = *u.PaymentStatus
	}
	if u.PaymentMethod != nil {
		t.PaymentMethod = u.PaymentMethod
	}
	if u.PaidAt != nil {
		t.PaidAt = u.PaidAt
	}
	if u.SerialNumber != nil {
		t.SerialNumber = u.SerialNumber
	}
	if u.FailureReason != nil {
		t.FailureReason = u.FailureReason
	}
	if u.SnapToken != nil {
		t.SnapToken = u.SnapToken
	}
	if u.MidtransOrderID != nil {
		t.MidtransOrderID = u.MidtransOrderID
	}
	if u.LeaseExpiresAt != nil {
		t.LeaseExpiresAt = *u.LeaseExpiresAt
	}
	if u.IncAttempts {
		t.FulfillmentAttempts++
	}
}

// Guard: syarat compare-and-set. Slice kosong = tidak dicek.
type Guard struct {
	StatusIn        []string
	PaymentStatusIn []string
	// LeaseFreeAt != 0: lease harus kosong / sudah lewat dari waktu ini (unix millis)
	LeaseFreeAt int64
	// LeaseEquals != 0: lease harus masih milik pemegang ini
	LeaseEquals int64
}

func (g Guard) Match(t *Transaction) bool {
	if len(g.StatusIn) > 0 && !contains(g.StatusIn, t.Status) {
		return false
	}
	if len(g.PaymentStatusIn) > 0 && !contains(g.PaymentStatusIn, t.PaymentStatus) {
		return false
	}
	if g.LeaseFreeAt != 0 && t.LeaseExpiresAt > g.LeaseFreeAt {
		return false
	}
	if g.LeaseEquals != 0 && t.LeaseExpiresAt != g.LeaseEquals {
		return false
	}
	return true
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// Input order dari frontend (jalur Midtrans / hybrid)
type CreateOrderInput struct {
	ProductID       string  `json:"productId" binding:"required"`
	ProductName     string  `json:"productName" binding:"required"`
	ProviderID      string  `json:"providerId"`
	ProviderName    string  `json:"providerName"`
	Type            string  `json:"type"`
	Target          string  `json:"target" binding:"required"`
	Price           int64   `json:"price" binding:"required,gt=0"`
	OriginalPrice   int64   `json:"originalPrice"`
	PointsUsed      int64   `json:"pointsUsed" binding:"gte=0"`
	VoucherCode     *string `json:"voucherCode"`
	VoucherDiscount int64   `json:"voucherDiscount" binding:"gte=0"`
}

// Input order bayar full pakai poin
type CreatePointsOrderInput struct {
	ProductID       string  `json:"productId" binding:"required"`
	ProductName     string  `json:"productName" binding:"required"`
	ProviderID      string  `json:"providerId"`
	ProviderName    string  `json:"providerName"`
	Type            string  `json:"type"`
	Target          string  `json:"target" binding:"required"`
	Price           int64   `json:"price" binding:"required,gt=0"`
	PointsUsed      int64   `json:"pointsUsed" binding:"required,gt=0"`
	VoucherCode     *string `json:"voucherCode"`
	VoucherDiscount int64   `json:"voucherDiscount" binding:"gte=0"`
}

// Input transaksi langsung (tanpa checkout)
type DirectTransactionInput struct {
	ProductID string `json:"productId" binding:"required"`
	Target    string `json:"target" binding:"required"`
}
