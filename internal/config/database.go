package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ConnectDB membuka koneksi GORM sesuai LEDGER_DRIVER (mysql / sqlite),
// dengan retry + backoff dan connection pool.
func ConnectDB(cfg *Config) (*gorm.DB, error) {
	// GORM logger: verbose di development
	gormLogger := logger.Default.LogMode(logger.Silent)
	if cfg.IsDevelopment() {
		gormLogger = logger.Default.LogMode(logger.Info)
	}
	gormCfg := &gorm.Config{Logger: gormLogger, TranslateError: true}

	var dialector gorm.Dialector
	switch cfg.LedgerDriver {
	case "sqlite":
		log.Printf("[database] using sqlite: %s", cfg.SQLitePath)
		dialector = sqlite.Open(cfg.SQLitePath + "?_busy_timeout=5000&_journal_mode=WAL")
	case "mysql":
		dsn := mysqlDSN(cfg.DB)
		log.Printf("[database] using DSN: %s", safeDSN(dsn, cfg.DB.Pass))
		dialector = gormmysql.Open(dsn)
	default:
		return nil, fmt.Errorf("driver %q bukan driver SQL", cfg.LedgerDriver)
	}

	// Retry dengan exponential backoff
	retries := cfg.DB.ConnectRetries
	if retries <= 0 {
		retries = 1
	}
	var db *gorm.DB
	var err error
	backoff := time.Second
	for attempt := 1; attempt <= retries; attempt++ {
		db, err = gorm.Open(dialector, gormCfg)
		if err == nil {
			break
		}
		log.Printf("[database] connect gagal (%d/%d): %v", attempt, retries, err)
		if attempt < retries {
			time.Sleep(backoff)
			backoff *= 2
		}
	}
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.LedgerDriver == "sqlite" {
		// sqlite hanya boleh satu writer
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.DB.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.DB.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(cfg.DB.ConnMaxLife)
	}

	log.Println("[database] connected")
	return db, nil
}

func mysqlDSN(c DBConfig) string {
	if c.DSN != "" {
		return c.DSN
	}
	mc := mysqldriver.NewConfig()
	mc.User = c.User
	mc.Passwd = c.Pass
	mc.Net = "tcp"
	mc.Addr = c.Host + ":" + c.Port
	mc.DBName = c.Name
	mc.ParseTime = true
	mc.Params = map[string]string{"charset": "utf8mb4"}
	mc.Timeout = 10 * time.Second
	mc.ReadTimeout = 10 * time.Second
	mc.WriteTimeout = 10 * time.Second
	return mc.FormatDSN()
}

func safeDSN(dsn, pass string) string {
	if pass == "" {
		return dsn
	}
	return strings.Replace(dsn, pass, "******", 1)
}
