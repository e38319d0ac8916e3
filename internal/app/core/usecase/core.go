package usecase

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
)

// accountNumberAttempts 自動產生帳號時遇到重複的重試次數
const accountNumberAttempts = 10

// CoreUseCase 是核心業務邏輯層 (Ledger Engine)
//
// 驗證、原子套用並記錄存款、提款、轉帳；每次嘗試 (成功或餘額不足) 都會產生一筆交易紀錄
type CoreUseCase struct {
	accounts AccountStore
	records  RecordStore
	logger   *zap.Logger
	now      func() time.Time
	newRefID func() uuid.UUID
	genNo    func() string
}

// Option 設定 CoreUseCase
type Option func(*CoreUseCase)

// WithLogger 設定 logger，預設 zap.NewNop()
func WithLogger(logger *zap.Logger) Option {
	return func(c *CoreUseCase) {
		c.logger = logger
	}
}

// WithClock 設定時間來源 (測試用)
func WithClock(now func() time.Time) Option {
	return func(c *CoreUseCase) {
		c.now = now
	}
}

// WithAccountNumberGenerator 設定開戶帳號產生器
func WithAccountNumberGenerator(gen func() string) Option {
	return func(c *CoreUseCase) {
		c.genNo = gen
	}
}

func NewCoreUseCase(accounts AccountStore, records RecordStore, opts ...Option) *CoreUseCase {
	c := &CoreUseCase{
		accounts: accounts,
		records:  records,
		logger:   zap.NewNop(),
		now:      time.Now,
		newRefID: uuid.New,
		genNo:    randomAccountNumber,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OpenAccount 開戶，accountNumber 為空時自動產生 12 位數帳號
func (c *CoreUseCase) OpenAccount(ctx context.Context, accountNumber string, opening domain.Money, holder domain.Holder) (*domain.Account, error) {
	if opening.IsNegative() {
		return nil, domain.NewError(domain.KindInvalidAmount, "initial balance cannot be negative")
	}
	if err := holder.Validate(c.now()); err != nil {
		return nil, err
	}
	if accountNumber != "" {
		return c.accounts.CreateAccount(ctx, accountNumber, opening, holder)
	}
	for i := 0; i < accountNumberAttempts; i++ {
		acc, err := c.accounts.CreateAccount(ctx, c.genNo(), opening, holder)
		if errors.Is(err, domain.ErrAccountAlreadyExists) {
			continue
		}
		return acc, err
	}
	return nil, domain.NewError(domain.KindAccountAlreadyExists, "could not allocate a unique account number")
}

// GetAccount 以帳號查詢帳戶 (含持有人資料與目前餘額)
func (c *CoreUseCase) GetAccount(ctx context.Context, accountNumber string) (*domain.Account, error) {
	return c.accounts.Resolve(ctx, accountNumber)
}

// Deposit 存款
func (c *CoreUseCase) Deposit(ctx context.Context, accountNumber string, amount domain.Money, description string) (*domain.TransactionRecord, error) {
	if !amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}
	account, err := c.accounts.Resolve(ctx, accountNumber)
	if err != nil {
		return nil, err
	}

	rec := c.newRecord(domain.TransactionTypeDeposit, amount, "", accountNumber, description)
	err = c.accounts.Atomically(ctx, []domain.AccountID{account.ID}, func(tx AccountTx) error {
		if _, err := tx.ApplyDelta(account.ID, amount, domain.Always); err != nil {
			return err
		}
		c.settle(rec, domain.TransactionStatusSuccess, "")
		return tx.AppendRecord(rec)
	})
	return c.finish(rec, nil, err)
}

// Withdraw 提款
// 餘額不足時仍會寫入一筆 FAILED 紀錄，並同時回傳該紀錄與 ErrInsufficientFunds
func (c *CoreUseCase) Withdraw(ctx context.Context, accountNumber string, amount domain.Money, description string) (*domain.TransactionRecord, error) {
	if !amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}
	account, err := c.accounts.Resolve(ctx, accountNumber)
	if err != nil {
		return nil, err
	}

	rec := c.newRecord(domain.TransactionTypeWithdraw, amount, accountNumber, "", description)
	var outcome error
	err = c.accounts.Atomically(ctx, []domain.AccountID{account.ID}, func(tx AccountTx) error {
		_, err := tx.ApplyDelta(account.ID, amount.Neg(), domain.AtLeast(amount))
		switch {
		case errors.Is(err, domain.ErrPreconditionFailed):
			outcome = domain.ErrInsufficientFunds
			c.settle(rec, domain.TransactionStatusFailed, domain.ErrInsufficientFunds.Msg)
		case err != nil:
			return err
		default:
			c.settle(rec, domain.TransactionStatusSuccess, "")
		}
		return tx.AppendRecord(rec)
	})
	return c.finish(rec, outcome, err)
}

// Transfer 轉帳
//
// 兩個帳戶依 ID 由小到大鎖定，扣款與入帳在同一原子單位提交
// 轉出與轉入為同一帳號時回傳 ErrSameAccount，不寫紀錄
func (c *CoreUseCase) Transfer(ctx context.Context, fromAccountNumber, toAccountNumber string, amount domain.Money, description string) (*domain.TransactionRecord, error) {
	if !amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}
	if toAccountNumber == "" {
		return nil, domain.ErrInvalidDestination
	}
	if fromAccountNumber == toAccountNumber {
		return nil, domain.ErrSameAccount
	}
	from, err := c.accounts.Resolve(ctx, fromAccountNumber)
	if err != nil {
		return nil, err
	}
	to, err := c.accounts.Resolve(ctx, toAccountNumber)
	if err != nil {
		return nil, err
	}

	rec := c.newRecord(domain.TransactionTypeTransfer, amount, fromAccountNumber, toAccountNumber, description)
	var outcome error
	err = c.accounts.Atomically(ctx, domain.LockOrder(from.ID, to.ID), func(tx AccountTx) error {
		balance, err := tx.Balance(from.ID)
		if err != nil {
			return err
		}
		if balance.LessThan(amount) {
			outcome = domain.ErrInsufficientFunds
			c.settle(rec, domain.TransactionStatusFailed, domain.ErrInsufficientFunds.Msg)
			return tx.AppendRecord(rec)
		}
		if _, err := tx.ApplyDelta(from.ID, amount.Neg(), domain.AtLeast(amount)); err != nil {
			return err
		}
		if _, err := tx.ApplyDelta(to.ID, amount, domain.Always); err != nil {
			return err
		}
		c.settle(rec, domain.TransactionStatusSuccess, "")
		return tx.AppendRecord(rec)
	})
	return c.finish(rec, outcome, err)
}

// History 帳號的所有交易紀錄 (含 FAILED)，由新到舊
func (c *CoreUseCase) History(ctx context.Context, accountNumber string) ([]*domain.TransactionRecord, error) {
	records, err := c.records.History(ctx, accountNumber)
	if err != nil {
		return nil, domain.StoreUnavailable(err)
	}
	return records, nil
}

// Balance 取得帳戶餘額
func (c *CoreUseCase) Balance(ctx context.Context, accountNumber string) (domain.Money, error) {
	account, err := c.accounts.Resolve(ctx, accountNumber)
	if err != nil {
		return domain.Money{}, err
	}
	return c.accounts.GetBalance(ctx, account.ID)
}

func (c *CoreUseCase) newRecord(typ domain.TransactionType, amount domain.Money, from, to, description string) *domain.TransactionRecord {
	if description == "" {
		description = typ.DefaultDescription()
	}
	return &domain.TransactionRecord{
		RefID:       c.newRefID(),
		Type:        typ,
		Amount:      amount,
		FromAccount: from,
		ToAccount:   to,
		Description: description,
	}
}

// settle 結果確定時設定狀態與時間
func (c *CoreUseCase) settle(rec *domain.TransactionRecord, status domain.TransactionStatus, description string) {
	rec.Status = status
	rec.CreatedAt = c.now()
	if description != "" {
		rec.Description = description
	}
}

// finish 記錄結果並決定回傳值
// storeErr: 原子單位本身失敗 (沒有任何東西被提交)
// outcome: 已提交 FAILED 紀錄的業務錯誤
func (c *CoreUseCase) finish(rec *domain.TransactionRecord, outcome, storeErr error) (*domain.TransactionRecord, error) {
	fields := []zap.Field{
		zap.Stringer("type", rec.Type),
		zap.Stringer("ref_id", rec.RefID),
		zap.String("from", rec.FromAccount),
		zap.String("to", rec.ToAccount),
		zap.Stringer("amount", rec.Amount),
	}
	if storeErr != nil {
		c.logger.Error("transaction not committed", append(fields, zap.Error(storeErr))...)
		return nil, domain.StoreUnavailable(storeErr)
	}
	fields = append(fields, zap.Int64("id", rec.ID), zap.Stringer("status", rec.Status))
	if outcome != nil {
		c.logger.Warn("transaction failed", append(fields, zap.String("reason", rec.Description))...)
		return rec.Clone(), outcome
	}
	c.logger.Info("transaction committed", fields...)
	return rec.Clone(), nil
}

func randomAccountNumber() string {
	return fmt.Sprintf("%012d", rand.Int63n(1_000_000_000_000))
}
