package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"ppob-backend/internal/apperr"
	"ppob-backend/internal/models"

	"gopkg.in/yaml.v3"
)

//go:embed data/catalog.yaml
var defaultCatalog []byte

// Dataset adalah data katalog yang immutable. Jangan diubah setelah Parse,
// edit admin selalu membuat Dataset baru.
type Dataset struct {
	Providers []models.Provider `yaml:"providers"`
	Products  []models.Product  `yaml:"products"`
	Vouchers  []models.Voucher  `yaml:"vouchers"`

	providerIdx map[string]int
	productIdx  map[string]int
	voucherIdx  map[string]int
}

// Load membaca katalog dari file YAML. path kosong = katalog bawaan (embed).
func Load(path string) (*Dataset, error) {
	if path == "" {
		return Parse(defaultCatalog)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(b)
}

func Parse(b []byte) (*Dataset, error) {
	var d Dataset
	if err := yaml.Unmarshal(b, &d); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if err := d.index(); err != nil {
		return nil, err
	}
	return &d, nil
}

func (d *Dataset) index() error {
	d.providerIdx = make(map[string]int, len(d.Providers))
	d.productIdx = make(map[string]int, len(d.Products))
	d.voucherIdx = make(map[string]int, len(d.Vouchers))

	for i, p := range d.Providers {
		if p.ID == "" || !models.ValidType(p.Type) {
			return apperr.InvalidInput(fmt.Sprintf("provider #%d: id kosong atau type tidak dikenal", i))
		}
		if _, dup := d.providerIdx[p.ID]; dup {
			return apperr.InvalidInput("provider duplikat: " + p.ID)
		}
		d.providerIdx[p.ID] = i
	}
	for i, p := range d.Products {
		if err := validateProduct(p); err != nil {
			return err
		}
		if _, ok := d.providerIdx[p.ProviderID]; !ok {
			return apperr.InvalidInput(fmt.Sprintf("produk %s: provider %s tidak ada", p.ID, p.ProviderID))
		}
		if _, dup := d.productIdx[p.ID]; dup {
			return apperr.InvalidInput("produk duplikat: " + p.ID)
		}
		d.productIdx[p.ID] = i
	}
	for i, v := range d.Vouchers {
		if v.Code == "" || v.Discount <= 0 {
			return apperr.InvalidInput(fmt.Sprintf("voucher #%d tidak valid", i))
		}
		d.voucherIdx[strings.ToUpper(v.Code)] = i
	}
	return nil
}

// validateProduct: harga jual tidak boleh di bawah harga modal
func validateProduct(p models.Product) error {
	if p.ID == "" || p.Name == "" || !models.ValidType(p.Type) {
		return apperr.InvalidInput(fmt.Sprintf("produk %q: id/nama/type tidak valid", p.ID))
	}
	if p.Price <= 0 || p.BasePrice < 0 {
		return apperr.InvalidInput(fmt.Sprintf("produk %s: harga tidak valid", p.ID))
	}
	if p.Price < p.BasePrice {
		return apperr.InvalidInput(fmt.Sprintf("produk %s: harga jual %d di bawah harga modal %d", p.ID, p.Price, p.BasePrice))
	}
	return nil
}

// Directory membungkus Dataset yang aktif. Pembaca selalu dapat snapshot
// yang konsisten; edit admin mengganti pointer secara atomik.
type Directory struct {
	current atomic.Pointer[Dataset]
	editMu  sync.Mutex
}

func New(d *Dataset) *Directory {
	dir := &Directory{}
	dir.current.Store(d)
	return dir
}

func (dir *Directory) Snapshot() *Dataset {
	return dir.current.Load()
}

// ListProviders mengembalikan provider sesuai urutan katalog, filter type opsional
func (dir *Directory) ListProviders(typ string) []models.Provider {
	d := dir.Snapshot()
	out := make([]models.Provider, 0, len(d.Providers))
	for _, p := range d.Providers {
		if typ != "" && p.Type != typ {
			continue
		}
		out = append(out, p)
	}
	return out
}

func (dir *Directory) GetProvider(id string) (models.Provider, error) {
	d := dir.Snapshot()
	i, ok := d.providerIdx[id]
	if !ok {
		return models.Provider{}, apperr.NotFound("Provider not found")
	}
	return d.Providers[i], nil
}

// DetectProvider mencari operator dari prefix nomor HP.
// Nomor format lokal (0812...) dan format 62 (62812...) sama-sama dicek,
// provider yang dideklarasikan lebih dulu menang.
func (dir *Directory) DetectProvider(phone string) *models.Provider {
	clean := NormalizePhone(phone)
	if clean == "" {
		return nil
	}
	d := dir.Snapshot()
	for i := range d.Providers {
		for _, prefix := range d.Providers[i].Prefixes {
			if strings.HasPrefix(clean, prefix) || strings.HasPrefix(clean, internationalPrefix(prefix)) {
				p := d.Providers[i]
				return &p
			}
		}
	}
	return nil
}

// NormalizePhone membuang semua karakter selain digit
func NormalizePhone(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// "0812" -> "62812"
func internationalPrefix(prefix string) string {
	if strings.HasPrefix(prefix, "0") {
		return "62" + prefix[1:]
	}
	return prefix
}

// ListProducts hanya mengembalikan produk aktif
func (dir *Directory) ListProducts(providerID, typ string) []models.Product {
	d := dir.Snapshot()
	out := make([]models.Product, 0)
	for _, p := range d.Products {
		if !p.IsActive {
			continue
		}
		if providerID != "" && p.ProviderID != providerID {
			continue
		}
		if typ != "" && p.Type != typ {
			continue
		}
		out = append(out, p)
	}
	return out
}

func (dir *Directory) GetProduct(id string) (models.Product, error) {
	d := dir.Snapshot()
	i, ok := d.productIdx[id]
	if !ok {
		return models.Product{}, apperr.NotFound("Product not found")
	}
	return d.Products[i], nil
}

// LookupVoucher mencari voucher aktif (case-insensitive)
func (dir *Directory) LookupVoucher(code string) (models.Voucher, error) {
	d := dir.Snapshot()
	i, ok := d.voucherIdx[strings.ToUpper(strings.TrimSpace(code))]
	if !ok || !d.Vouchers[i].Active {
		return models.Voucher{}, apperr.InvalidInput("Voucher tidak valid")
	}
	return d.Vouchers[i], nil
}

// AdminProducts: semua produk termasuk yang nonaktif + harga modal
func (dir *Directory) AdminProducts() []models.AdminProduct {
	d := dir.Snapshot()
	out := make([]models.AdminProduct, 0, len(d.Products))
	for _, p := range d.Products {
		out = append(out, models.AdminProduct{Product: p, BasePrice: p.BasePrice})
	}
	return out
}

// UpdateProduct membuat Dataset baru dengan produk yang diubah lalu menukarnya.
// Order yang sudah dibuat tidak terpengaruh karena menyimpan snapshot sendiri.
func (dir *Directory) UpdateProduct(id string, in models.UpdateProductInput) (models.AdminProduct, error) {
	dir.editMu.Lock()
	defer dir.editMu.Unlock()

	old := dir.Snapshot()
	i, ok := old.productIdx[id]
	if !ok {
		return models.AdminProduct{}, apperr.NotFound("Product not found")
	}

	next := old.clone()
	p := &next.Products[i]
	if in.Price != nil {
		p.Price = *in.Price
	}
	if in.BasePrice != nil {
		p.BasePrice = *in.BasePrice
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}
	if err := validateProduct(*p); err != nil {
		return models.AdminProduct{}, err
	}

	dir.current.Store(next)
	return models.AdminProduct{Product: *p, BasePrice: p.BasePrice}, nil
}

func (d *Dataset) clone() *Dataset {
	next := &Dataset{
		Providers:   d.Providers, // provider tidak bisa diedit, aman dibagi
		Products:    append([]models.Product(nil), d.Products...),
		Vouchers:    d.Vouchers,
		providerIdx: d.providerIdx,
		productIdx:  d.productIdx,
		voucherIdx:  d.voucherIdx,
	}
	return next
}
