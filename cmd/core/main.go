package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	grpc_adapter "github.com/JoeShih716/go-bank-ledger/internal/app/core/adapter/in/grpc"
	memory_adapter "github.com/JoeShih716/go-bank-ledger/internal/app/core/adapter/out/memory"
	mysql_adapter "github.com/JoeShih716/go-bank-ledger/internal/app/core/adapter/out/mysql"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-bank-ledger/internal/config"
	"github.com/JoeShih716/go-bank-ledger/pkg/logger"
	"github.com/JoeShih716/go-bank-ledger/pkg/mysql"
	"github.com/JoeShih716/go-bank-ledger/pkg/wal"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config file")
	flag.Parse()
	os.Exit(serve(*configPath))
}

// serve 回傳 exit code，os.Exit 之前先 Sync logger
func serve(configPath string) int {
	// 1. 載入設定
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		return 1
	}

	// 2. 初始化 Logger
	zlog, err := logger.New(cfg.Log)
	if err != nil {
		log.Printf("Failed to init logger: %v", err)
		return 1
	}
	defer func() { _ = zlog.Sync() }()

	if err := run(cfg, zlog); err != nil {
		zlog.Error("server stopped with error", zap.Error(err))
		return 1
	}
	return 0
}

func run(cfg config.Config, zlog *zap.Logger) error {
	// 3. 初始化帳本後端
	accounts, records, closer, err := openLedger(cfg, zlog)
	if err != nil {
		return err
	}
	defer closer.Close()

	// 4. 初始化 UseCase
	coreUseCase := usecase.NewCoreUseCase(accounts, records, usecase.WithLogger(zlog.Named("ledger")))
	if err := seedAccounts(context.Background(), coreUseCase, cfg.Ledger.SeedAccounts, zlog); err != nil {
		return err
	}

	// 5. 初始化 gRPC Adapter (Driving Adapter)
	grpcServer := grpc_adapter.NewGrpcServer(coreUseCase)

	// 6. 啟動 gRPC Server
	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.Server.GRPCAddr, err)
	}

	s := grpc.NewServer(grpc.ChainUnaryInterceptor(grpc_adapter.LoggingInterceptor(zlog.Named("grpc"))))
	grpc_adapter.RegisterLedgerServiceServer(s, grpcServer)
	if cfg.Server.Reflection {
		reflection.Register(s)
	}

	serveErr := make(chan error, 1)
	go func() {
		zlog.Info("starting gRPC server", zap.String("addr", cfg.Server.GRPCAddr), zap.String("backend", string(cfg.Ledger.Backend)))
		serveErr <- s.Serve(lis)
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		zlog.Info("shutting down server", zap.Stringer("signal", sig))
		s.GracefulStop()
	case err := <-serveErr:
		if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("failed to serve: %w", err)
		}
	}
	zlog.Info("server exited")
	return nil
}

// openLedger 依設定建立帳本後端
func openLedger(cfg config.Config, zlog *zap.Logger) (usecase.AccountStore, usecase.RecordStore, io.Closer, error) {
	switch cfg.Ledger.Backend {
	case config.BackendMySQL:
		dbClient, err := mysql.NewClient(cfg.MySQL, zlog.Named("mysql"))
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to connect to mysql: %w", err)
		}
		zlog.Info("connected to mysql", zap.String("host", cfg.MySQL.Host), zap.String("db", cfg.MySQL.DBName))

		ledgerRepo := mysql_adapter.NewLedger(dbClient)
		if cfg.Ledger.AutoMigrate {
			if err := ledgerRepo.Migrate(context.Background()); err != nil {
				_ = dbClient.Close()
				return nil, nil, nil, fmt.Errorf("failed to migrate: %w", err)
			}
		}
		return ledgerRepo, ledgerRepo, dbClient, nil

	case config.BackendMemory:
		records := memory_adapter.NewRecordStore()
		var journal memory_adapter.Journal
		var closer io.Closer = nopCloser{}
		if cfg.Ledger.WALPath != "" {
			// 初始化 WAL，程式結束時關閉
			walFile, err := wal.NewWAL(cfg.Ledger.WALPath)
			if err != nil {
				return nil, nil, nil, fmt.Errorf("failed to init wal: %w", err)
			}
			journal = walFile
			closer = walFile
		}
		store, err := memory_adapter.NewAccountStore(records, journal, memory_adapter.WithLogger(zlog.Named("memory")))
		if err != nil {
			_ = closer.Close()
			return nil, nil, nil, fmt.Errorf("failed to init memory ledger: %w", err)
		}
		return store, records, closer, nil
	}
	return nil, nil, nil, fmt.Errorf("invalid ledger backend: %q", cfg.Ledger.Backend)
}

// seedAccounts 建立設定檔中的帳戶，已存在則略過
func seedAccounts(ctx context.Context, core *usecase.CoreUseCase, seeds []config.SeedAccount, zlog *zap.Logger) error {
	for _, seed := range seeds {
		opening, err := seed.Opening()
		if err != nil {
			return err
		}
		_, err = core.OpenAccount(ctx, seed.AccountNumber, opening, domain.Holder{Name: seed.HolderName})
		if errors.Is(err, domain.ErrAccountAlreadyExists) {
			zlog.Debug("seed account already exists", zap.String("account_number", seed.AccountNumber))
			continue
		}
		if err != nil {
			return fmt.Errorf("seed account %s: %w", seed.AccountNumber, err)
		}
	}
	return nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
