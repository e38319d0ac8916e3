package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	grpc_adapter "github.com/JoeShih716/go-bank-ledger/internal/app/core/adapter/in/grpc"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/pkg/grpc"
	"github.com/JoeShih716/go-bank-ledger/pkg/logger"
)

func main() {
	target := flag.String("target", "localhost:50051", "ledger gRPC address")
	totalCount := flag.Int("n", 100000, "total number of transfers")
	concurrency := flag.Int("c", 100, "number of in-flight requests")
	accounts := flag.Int("accounts", 10, "number of accounts to spread transfers across")
	timeout := flag.Duration("timeout", 120*time.Second, "overall timeout")
	verbose := flag.Bool("v", false, "log every call")
	flag.Parse()

	if *accounts < 2 {
		log.Fatalf("need at least 2 accounts, got %d", *accounts)
	}

	level := "info"
	if *verbose {
		level = "debug"
	}
	zlog, err := logger.New(logger.Config{Level: level, Encoding: "console"})
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	pool := grpc.NewPool(grpc.WithInterceptor(grpc.LoggingInterceptor(zlog)))
	defer pool.Close()

	conn, err := pool.GetConnection(*target)
	if err != nil {
		zlog.Fatal("did not connect", zap.Error(err))
	}
	c := grpc_adapter.NewLedgerServiceClient(conn)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	// 1. 建立測試帳戶，每個帳戶存入足夠的金額
	numbers := make([]string, 0, *accounts)
	for i := 0; i < *accounts; i++ {
		resp, err := c.OpenAccount(ctx, &grpc_adapter.OpenAccountRequest{OpeningBalance: "1000000.00"})
		if err != nil {
			zlog.Fatal("open account failed", zap.Error(err))
		}
		numbers = append(numbers, resp.Account.AccountNumber)
	}
	zlog.Info("accounts ready", zap.Strings("accounts", numbers))

	// 2. 併發轉帳
	var (
		wg        sync.WaitGroup
		succeeded atomic.Int64
		rejected  atomic.Int64
		failed    atomic.Int64
	)
	sem := make(chan struct{}, *concurrency)
	startTime := time.Now()

	for i := 0; i < *totalCount; i++ {
		sem <- struct{}{}
		wg.Add(1)

		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()

			from := numbers[idx%len(numbers)]
			to := numbers[(idx+1+idx/len(numbers))%len(numbers)]
			if from == to {
				to = numbers[(idx+1)%len(numbers)]
			}

			resp, err := c.Transfer(ctx, &grpc_adapter.TransferRequest{
				FromAccountNumber: from,
				ToAccountNumber:   to,
				Amount:            "1.00",
				Description:       "loadgen " + uuid.NewString(),
			})
			switch {
			case err != nil:
				failed.Add(1)
				if idx%10000 == 0 {
					zlog.Warn("transfer failed", zap.Int("idx", idx), zap.Error(err))
				}
			case !resp.Success:
				rejected.Add(1)
			default:
				succeeded.Add(1)
			}
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(startTime)

	// 3. 驗證總額守恆
	total := domain.Zero
	for _, number := range numbers {
		resp, err := c.GetBalance(ctx, &grpc_adapter.GetBalanceRequest{AccountNumber: number})
		if err != nil {
			zlog.Fatal("get balance failed", zap.String("account_number", number), zap.Error(err))
		}
		balance, err := domain.NewMoney(resp.Balance)
		if err != nil {
			zlog.Fatal("invalid balance", zap.String("balance", resp.Balance), zap.Error(err))
		}
		total = total.Add(balance)
	}
	expected := domain.FromMinorUnits(int64(*accounts) * 100000000)

	fmt.Printf("Completed %d requests in %v\n", *totalCount, elapsed)
	fmt.Printf("TPS: %.2f\n", float64(*totalCount)/elapsed.Seconds())
	fmt.Printf("succeeded=%d rejected=%d failed=%d\n", succeeded.Load(), rejected.Load(), failed.Load())
	fmt.Printf("total balance across accounts: %s (expected %s)\n", total, expected)
}
