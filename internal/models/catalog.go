package models

// Jenis layanan PPOB
const (
	TypePulsa   = "pulsa"
	TypeKuota   = "kuota"
	TypePLN     = "pln"
	TypeLainnya = "lainnya"
)

// ValidType mengecek apakah type termasuk jenis layanan yang dikenal
func ValidType(t string) bool {
	switch t {
	case TypePulsa, TypeKuota, TypePLN, TypeLainnya:
		return true
	}
	return false
}

// Provider (Telkomsel, Indosat, XL, PLN, dll)
type Provider struct {
	ID       string   `yaml:"id" json:"id"`
	Name     string   `yaml:"name" json:"name"`
	Code     string   `yaml:"code" json:"code"` // contoh: "TELKOMSEL"
	Image    string   `yaml:"image" json:"image"`
	Type     string   `yaml:"type" json:"type"`
	Prefixes []string `yaml:"prefixes,omitempty" json:"prefixes,omitempty"` // Prefix HP: "0811", "0812"
}

// Product = nominal yang bisa dibeli (Pulsa 10K, Kuota 1GB, Token 50K)
type Product struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Price       int64  `yaml:"price" json:"price"`          // Harga jual
	BasePrice   int64  `yaml:"basePrice" json:"-"`          // Harga modal, khusus admin
	ProviderID  string `yaml:"providerId" json:"providerId"`
	Type        string `yaml:"type" json:"type"`
	Category    string `yaml:"category,omitempty" json:"category,omitempty"` // reguler, promo, token
	IsActive    bool   `yaml:"isActive" json:"isActive"`
}

// AdminProduct: tampilan produk untuk admin (termasuk harga modal)
type AdminProduct struct {
	Product
	BasePrice int64 `json:"basePrice"`
}

// Voucher potongan harga
type Voucher struct {
	Code        string `yaml:"code" json:"code"`
	Discount    int64  `yaml:"discount" json:"discount"`
	MinPurchase int64  `yaml:"minPurchase" json:"minPurchase"`
	Active      bool   `yaml:"active" json:"active"`
}

// Input admin edit produk. nil = tidak diubah
type UpdateProductInput struct {
	Price     *int64 `json:"price" binding:"omitempty,gt=0"`
	BasePrice *int64 `json:"basePrice" binding:"omitempty,gt=0"`
	IsActive  *bool  `json:"isActive"`
}
