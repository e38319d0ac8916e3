package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/pkg/logger"
	"github.com/JoeShih716/go-bank-ledger/pkg/mysql"
)

// Backend 帳本儲存後端
type Backend string

const (
	// BackendMemory 記憶體 + WAL
	BackendMemory Backend = "memory"
	// BackendMySQL MySQL 悲觀鎖
	BackendMySQL Backend = "mysql"
)

type Config struct {
	Server ServerConfig  `yaml:"server"`
	Log    logger.Config `yaml:"log"`
	Ledger LedgerConfig  `yaml:"ledger"`
	MySQL  mysql.Config  `yaml:"mysql"`
}

type ServerConfig struct {
	GRPCAddr string `yaml:"grpc_addr"`
	// 是否註冊 gRPC reflection
	Reflection bool `yaml:"reflection"`
}

type LedgerConfig struct {
	Backend Backend `yaml:"backend"`
	// WALPath memory 後端的 Write-Ahead Log 路徑，空字串表示不落地
	WALPath string `yaml:"wal_path"`
	// SeedAccounts 啟動時建立的帳戶，已存在則略過
	SeedAccounts []SeedAccount `yaml:"seed_accounts"`
	// AutoMigrate mysql 後端啟動時建立資料表
	AutoMigrate bool `yaml:"auto_migrate"`
}

type SeedAccount struct {
	AccountNumber string `yaml:"account_number"`
	HolderName    string `yaml:"holder_name"`
	Balance       string `yaml:"balance"`
}

// Load 讀取 YAML 設定檔並補全預設值
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse 解析 YAML 並補全預設值
func Parse(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyDefaults 補全 yaml 沒寫的設定
func (c *Config) ApplyDefaults() {
	if c.Server.GRPCAddr == "" {
		c.Server.GRPCAddr = ":50051"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Ledger.Backend == "" {
		c.Ledger.Backend = BackendMemory
	}
	c.MySQL.ApplyDefaults()
}

// Validate 檢查設定
func (c *Config) Validate() error {
	var errs []error
	switch c.Ledger.Backend {
	case BackendMemory:
	case BackendMySQL:
		if c.MySQL.Host == "" || c.MySQL.DBName == "" {
			errs = append(errs, errors.New("mysql backend requires mysql.host and mysql.db_name"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown ledger backend %q", c.Ledger.Backend))
	}
	seen := make(map[string]bool, len(c.Ledger.SeedAccounts))
	for i, seed := range c.Ledger.SeedAccounts {
		if seed.AccountNumber == "" {
			errs = append(errs, fmt.Errorf("seed_accounts[%d]: account_number is required", i))
		}
		if seen[seed.AccountNumber] {
			errs = append(errs, fmt.Errorf("seed_accounts[%d]: duplicate account_number %q", i, seed.AccountNumber))
		}
		seen[seed.AccountNumber] = true
		if _, err := seed.Opening(); err != nil {
			errs = append(errs, fmt.Errorf("seed_accounts[%d]: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// Opening 開戶金額，未設定為 0.00
func (s SeedAccount) Opening() (domain.Money, error) {
	if s.Balance == "" {
		return domain.Zero, nil
	}
	m, err := domain.NewMoney(s.Balance)
	if err != nil {
		return domain.Money{}, err
	}
	if m.IsNegative() {
		return domain.Money{}, domain.NewError(domain.KindInvalidAmount, "opening balance cannot be negative")
	}
	return m, nil
}
