//go:build integration

package mysql

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcmysql "github.com/testcontainers/testcontainers-go/modules/mysql"
	"go.uber.org/zap/zaptest"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-bank-ledger/pkg/mysql"
)

// setupLedger 啟動 MySQL 8 容器並回傳已建表的 Ledger
func setupLedger(t *testing.T) *Ledger {
	t.Helper()
	ctx := context.Background()

	container, err := tcmysql.Run(ctx,
		"mysql:8.0",
		tcmysql.WithDatabase("ledger"),
		tcmysql.WithUsername("ledger"),
		tcmysql.WithPassword("secret"),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, testcontainers.TerminateContainer(container))
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "3306/tcp")
	require.NoError(t, err)

	client, err := mysql.NewClient(mysql.Config{
		Host:           host,
		Port:           port.Int(),
		User:           "ledger",
		Password:       "secret",
		DBName:         "ledger",
		ConnectRetries: 5,
		RetryInterval:  time.Second,
		LogLevel:       "silent",
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	ledger := NewLedger(client)
	require.NoError(t, ledger.Migrate(ctx))
	return ledger
}

func TestLedgerEndToEnd(t *testing.T) {
	ledger := setupLedger(t)
	ctx := context.Background()
	core := usecase.NewCoreUseCase(ledger, ledger, usecase.WithLogger(zaptest.NewLogger(t)))
	holder := domain.Holder{
		Name:        "Alice Chen",
		Phone:       "0912345678",
		Address:     "1 Main St",
		DateOfBirth: time.Date(1990, 2, 3, 0, 0, 0, 0, time.UTC),
	}

	_, err := core.OpenAccount(ctx, "001", domain.MustMoney("100.00"), holder)
	require.NoError(t, err)
	_, err = core.OpenAccount(ctx, "002", domain.Zero, domain.Holder{})
	require.NoError(t, err)
	_, err = core.OpenAccount(ctx, "001", domain.Zero, domain.Holder{})
	assert.ErrorIs(t, err, domain.ErrAccountAlreadyExists)

	rec, err := core.Transfer(ctx, "001", "002", domain.MustMoney("50.00"), "")
	require.NoError(t, err)
	assert.NotZero(t, rec.ID)

	failed, err := core.Withdraw(ctx, "001", domain.MustMoney("200.00"), "")
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
	require.NotNil(t, failed)
	assert.Equal(t, domain.TransactionStatusFailed, failed.Status)

	balance, err := core.Balance(ctx, "001")
	require.NoError(t, err)
	assert.Equal(t, "50.00", balance.String())

	history, err := core.History(ctx, "001")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, failed.ID, history[0].ID)
	assert.Equal(t, rec.ID, history[1].ID)
	assert.Equal(t, rec.RefID, history[1].RefID)
	assert.Equal(t, "50.00", history[1].Amount.String())

	_, err = core.Balance(ctx, "999")
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)

	acc, err := core.GetAccount(ctx, "001")
	require.NoError(t, err)
	assert.Equal(t, holder.Name, acc.Holder.Name)
	assert.Equal(t, holder.Phone, acc.Holder.Phone)
	assert.Equal(t, holder.Address, acc.Holder.Address)
	assert.Equal(t, "1990-02-03", acc.Holder.DateOfBirth.Format(time.DateOnly))

	acc, err = core.GetAccount(ctx, "002")
	require.NoError(t, err)
	assert.True(t, acc.Holder.DateOfBirth.IsZero())
}

func TestLedgerConcurrentOpposingTransfers(t *testing.T) {
	ledger := setupLedger(t)
	ctx := context.Background()
	core := usecase.NewCoreUseCase(ledger, ledger)

	for _, n := range []string{"001", "002"} {
		_, err := core.OpenAccount(ctx, n, domain.MustMoney("100.00"), domain.Holder{})
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := core.Transfer(ctx, "001", "002", domain.MustMoney("3.00"), "")
			if err != nil {
				assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
			}
		}()
		go func() {
			defer wg.Done()
			_, err := core.Transfer(ctx, "002", "001", domain.MustMoney("3.00"), "")
			if err != nil {
				assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
			}
		}()
	}
	wg.Wait()

	a, err := core.Balance(ctx, "001")
	require.NoError(t, err)
	b, err := core.Balance(ctx, "002")
	require.NoError(t, err)
	assert.Equal(t, "200.00", a.Add(b).String())
	assert.True(t, a.IsNonNegative())
	assert.True(t, b.IsNonNegative())
}
