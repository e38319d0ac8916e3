package mysql

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDSN(t *testing.T) {
	cfg := Config{Host: "db", Port: 3307, User: "ledger", Password: "secret", DBName: "bank"}
	assert.Equal(t, "ledger:secret@tcp(db:3307)/bank?charset=utf8mb4&parseTime=True&loc=UTC", cfg.DSN())
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{MaxOpenConns: 5}
	cfg.ApplyDefaults()

	assert.Equal(t, 3306, cfg.Port)
	assert.Equal(t, 5, cfg.MaxOpenConns)
	assert.Equal(t, 10, cfg.MaxIdleConns)
	assert.Equal(t, 30*time.Minute, cfg.ConnMaxLifetime)
	assert.Equal(t, 10, cfg.ConnectRetries)
	assert.Equal(t, 2*time.Second, cfg.RetryInterval)
}
