package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
)

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte("ledger:\n  wal_path: wal.log\n"))
	require.NoError(t, err)

	assert.Equal(t, ":50051", cfg.Server.GRPCAddr)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, BackendMemory, cfg.Ledger.Backend)
	assert.Equal(t, "wal.log", cfg.Ledger.WALPath)
	assert.Equal(t, 100, cfg.MySQL.MaxOpenConns)
	assert.Equal(t, 30*time.Minute, cfg.MySQL.ConnMaxLifetime)
}

func TestLoadFullFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  grpc_addr: ":6000"
log:
  level: debug
  encoding: console
ledger:
  backend: mysql
  auto_migrate: true
  seed_accounts:
    - account_number: "001"
      holder_name: Alice
      balance: "100.00"
    - account_number: "002"
mysql:
  host: db
  port: 3306
  user: ledger
  password: secret
  db_name: bank
  conn_max_lifetime: 5m
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":6000", cfg.Server.GRPCAddr)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, BackendMySQL, cfg.Ledger.Backend)
	assert.True(t, cfg.Ledger.AutoMigrate)
	assert.Equal(t, 5*time.Minute, cfg.MySQL.ConnMaxLifetime)
	assert.Equal(t, "bank", cfg.MySQL.DBName)
	require.Len(t, cfg.Ledger.SeedAccounts, 2)
	assert.Equal(t, "Alice", cfg.Ledger.SeedAccounts[0].HolderName)

	opening, err := cfg.Ledger.SeedAccounts[0].Opening()
	require.NoError(t, err)
	assert.True(t, opening.Equal(domain.MustMoney("100")))

	opening, err = cfg.Ledger.SeedAccounts[1].Opening()
	require.NoError(t, err)
	assert.True(t, opening.IsZero())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown backend", "ledger:\n  backend: redis\n"},
		{"mysql without host", "ledger:\n  backend: mysql\n"},
		{"bad seed balance", "ledger:\n  seed_accounts:\n    - account_number: \"001\"\n      balance: abc\n"},
		{"negative seed balance", "ledger:\n  seed_accounts:\n    - account_number: \"001\"\n      balance: \"-1\"\n"},
		{"duplicate seed", "ledger:\n  seed_accounts:\n    - account_number: \"001\"\n    - account_number: \"001\"\n"},
		{"missing seed number", "ledger:\n  seed_accounts:\n    - balance: \"1\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
