// Package config membaca konfigurasi dari environment (.env opsional).
package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port string
	Env  string

	// LedgerDriver: mysql | sqlite | firestore
	LedgerDriver string
	DB           DBConfig
	SQLitePath   string

	// IdentityProvider: firebase | local
	IdentityProvider string
	JWTSecret        string
	JWTTTL           time.Duration

	Firebase FirebaseConfig
	Midtrans MidtransConfig

	CheckoutExpiry time.Duration
	PointValue     int64

	Fulfillment FulfillmentConfig
	Redis       RedisConfig
	Kafka       KafkaConfig
	R2          R2Config

	// CatalogFile kosong = pakai katalog bawaan (embedded)
	CatalogFile string
	RateLimit   RateLimitConfig
	CORSOrigins []string
}

type DBConfig struct {
	DSN            string
	Host           string
	Port           string
	User           string
	Pass           string
	Name           string
	ConnectRetries int
	MaxOpenConns   int
	MaxIdleConns   int
	ConnMaxLife    time.Duration
}

type FirebaseConfig struct {
	ProjectID            string
	CredentialsFile      string
	ServiceAccountBase64 string
}

type MidtransConfig struct {
	ServerKey    string
	IsProduction bool
	VerifyStatus bool
}

type FulfillmentConfig struct {
	Workers       int
	QueueSize     int
	SweepInterval time.Duration
	Lease         time.Duration
	Delay         time.Duration
	FailureRate   float64
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type KafkaConfig struct {
	Brokers []string
	Retries int
}

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	PublicURL       string
}

type RateLimitConfig struct {
	RPS   float64
	Burst int
}

func (c *Config) IsDevelopment() bool {
	return strings.ToLower(c.Env) == "development"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LEDGER_DRIVER", "mysql")
	v.SetDefault("DB_HOST", "127.0.0.1")
	v.SetDefault("DB_PORT", "3306")
	v.SetDefault("DB_USER", "root")
	v.SetDefault("DB_NAME", "ppob")
	v.SetDefault("DB_CONNECT_RETRIES", 5)
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 10)
	v.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 30)
	v.SetDefault("SQLITE_PATH", "ppob.db")
	v.SetDefault("IDENTITY_PROVIDER", "firebase")
	v.SetDefault("JWT_TTL_HOURS", 24)
	v.SetDefault("FIREBASE_CREDENTIALS_FILE", "")
	v.SetDefault("MIDTRANS_IS_PRODUCTION", false)
	v.SetDefault("MIDTRANS_VERIFY_STATUS", false)
	v.SetDefault("CHECKOUT_EXPIRY_MINUTES", 60)
	v.SetDefault("POINT_VALUE", 1)
	v.SetDefault("FULFILLMENT_WORKERS", 4)
	v.SetDefault("FULFILLMENT_QUEUE_SIZE", 256)
	v.SetDefault("FULFILLMENT_SWEEP_SECONDS", 30)
	v.SetDefault("FULFILLMENT_LEASE_SECONDS", 30)
	v.SetDefault("FULFILLMENT_DELAY_MS", 3000)
	v.SetDefault("FULFILLMENT_FAILURE_RATE", 0.0)
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("KAFKA_RETRIES", 10)
	v.SetDefault("RATE_LIMIT_RPS", 5)
	v.SetDefault("RATE_LIMIT_BURST", 10)
}

// Load membaca .env (kalau ada) lalu environment variable
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		Port:         v.GetString("PORT"),
		Env:          v.GetString("ENV"),
		LedgerDriver: strings.ToLower(v.GetString("LEDGER_DRIVER")),
		DB: DBConfig{
			DSN:            v.GetString("DB_DSN"),
			Host:           v.GetString("DB_HOST"),
			Port:           v.GetString("DB_PORT"),
			User:           v.GetString("DB_USER"),
			Pass:           v.GetString("DB_PASS"),
			Name:           v.GetString("DB_NAME"),
			ConnectRetries: v.GetInt("DB_CONNECT_RETRIES"),
			MaxOpenConns:   v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:   v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLife:    time.Duration(v.GetInt("DB_CONN_MAX_LIFETIME_MINUTES")) * time.Minute,
		},
		SQLitePath:       v.GetString("SQLITE_PATH"),
		IdentityProvider: strings.ToLower(v.GetString("IDENTITY_PROVIDER")),
		JWTSecret:        v.GetString("JWT_SECRET"),
		JWTTTL:           time.Duration(v.GetInt("JWT_TTL_HOURS")) * time.Hour,
		Firebase: FirebaseConfig{
			ProjectID:            v.GetString("FIREBASE_PROJECT_ID"),
			CredentialsFile:      v.GetString("FIREBASE_CREDENTIALS_FILE"),
			ServiceAccountBase64: v.GetString("FIREBASE_SERVICE_ACCOUNT_BASE64"),
		},
		Midtrans: MidtransConfig{
			ServerKey:    v.GetString("MIDTRANS_SERVER_KEY"),
			IsProduction: v.GetBool("MIDTRANS_IS_PRODUCTION"),
			VerifyStatus: v.GetBool("MIDTRANS_VERIFY_STATUS"),
		},
		CheckoutExpiry: time.Duration(v.GetInt("CHECKOUT_EXPIRY_MINUTES")) * time.Minute,
		PointValue:     v.GetInt64("POINT_VALUE"),
		Fulfillment: FulfillmentConfig{
			Workers:       v.GetInt("FULFILLMENT_WORKERS"),
			QueueSize:     v.GetInt("FULFILLMENT_QUEUE_SIZE"),
			SweepInterval: time.Duration(v.GetInt("FULFILLMENT_SWEEP_SECONDS")) * time.Second,
			Lease:         time.Duration(v.GetInt("FULFILLMENT_LEASE_SECONDS")) * time.Second,
			Delay:         time.Duration(v.GetInt("FULFILLMENT_DELAY_MS")) * time.Millisecond,
			FailureRate:   v.GetFloat64("FULFILLMENT_FAILURE_RATE"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(v.GetString("KAFKA_BROKERS")),
			Retries: v.GetInt("KAFKA_RETRIES"),
		},
		R2: R2Config{
			AccountID:       v.GetString("R2_ACCOUNT_ID"),
			AccessKeyID:     v.GetString("R2_ACCESS_KEY_ID"),
			SecretAccessKey: v.GetString("R2_SECRET_ACCESS_KEY"),
			Bucket:          v.GetString("R2_BUCKET_NAME"),
			PublicURL:       v.GetString("R2_PUBLIC_URL"),
		},
		CatalogFile: v.GetString("CATALOG_FILE"),
		RateLimit: RateLimitConfig{
			RPS:   v.GetFloat64("RATE_LIMIT_RPS"),
			Burst: v.GetInt("RATE_LIMIT_BURST"),
		},
		CORSOrigins: splitList(v.GetString("CORS_ORIGINS")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate mengecek kombinasi konfigurasi yang tidak mungkin jalan
func (c *Config) Validate() error {
	switch c.LedgerDriver {
	case "mysql", "sqlite", "firestore":
	default:
		return fmt.Errorf("LEDGER_DRIVER tidak dikenal: %q", c.LedgerDriver)
	}

	switch c.IdentityProvider {
	case "firebase":
	case "local":
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET wajib diisi untuk IDENTITY_PROVIDER=local")
		}
		if c.LedgerDriver == "firestore" {
			return fmt.Errorf("IDENTITY_PROVIDER=local butuh LEDGER_DRIVER mysql atau sqlite")
		}
	default:
		return fmt.Errorf("IDENTITY_PROVIDER tidak dikenal: %q", c.IdentityProvider)
	}

	if c.PointValue <= 0 {
		return fmt.Errorf("POINT_VALUE harus > 0")
	}
	if c.Fulfillment.FailureRate < 0 || c.Fulfillment.FailureRate > 1 {
		return fmt.Errorf("FULFILLMENT_FAILURE_RATE harus di antara 0 dan 1")
	}
	// supplier harus selesai sebelum lease habis
	if c.Fulfillment.Lease <= 0 || c.Fulfillment.Delay >= c.Fulfillment.Lease {
		return fmt.Errorf("FULFILLMENT_DELAY_MS (%s) harus lebih kecil dari FULFILLMENT_LEASE_SECONDS (%s)",
			c.Fulfillment.Delay, c.Fulfillment.Lease)
	}
	return nil
}

// NeedsFirebase: true kalau ada komponen yang butuh Firebase app
func (c *Config) NeedsFirebase() bool {
	return c.IdentityProvider == "firebase" || c.LedgerDriver == "firestore" ||
		c.Firebase.CredentialsFile != "" || c.Firebase.ServiceAccountBase64 != ""
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
