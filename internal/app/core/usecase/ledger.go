package usecase

import (
	"context"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
)

// AccountLookup 帳號解析 (由開戶子系統提供)
type AccountLookup interface {
	// Resolve 以對外帳號取得帳戶，不存在回傳 ErrAccountNotFound
	Resolve(ctx context.Context, accountNumber string) (*domain.Account, error)
}

// AccountTx 單一原子單位內的操作
// 只能操作 Atomically 時宣告的帳戶；fn 回傳 nil 時餘額變動與交易紀錄一起提交
type AccountTx interface {
	// Balance 取得單位內目前餘額 (包含本單位尚未提交的變動)
	Balance(id domain.AccountID) (domain.Money, error)
	// ApplyDelta 檢查前置條件後套用變動，不成立回傳 ErrPreconditionFailed
	ApplyDelta(id domain.AccountID, delta domain.Money, pre domain.Precondition) (domain.Money, error)
	// AppendRecord 寫入交易紀錄，提交時分配 ID
	AppendRecord(rec *domain.TransactionRecord) error
}

// AccountStore 帳戶餘額的唯一權威來源
//
// 每個帳戶有自己的序列化範圍: 不同帳戶互不阻塞，同一帳戶的操作完全排序
type AccountStore interface {
	AccountLookup
	// GetBalance 取得帳戶餘額
	GetBalance(ctx context.Context, id domain.AccountID) (domain.Money, error)
	// ApplyDelta 單一帳戶的 precondition-guarded apply
	ApplyDelta(ctx context.Context, id domain.AccountID, delta domain.Money, pre domain.Precondition) (domain.Money, error)
	// Atomically 依固定順序鎖定 ids 後執行 fn，fn 成功則全部提交，否則全部放棄
	Atomically(ctx context.Context, ids []domain.AccountID, fn func(tx AccountTx) error) error
	// CreateAccount 開戶，帳號重複回傳 ErrAccountAlreadyExists
	CreateAccount(ctx context.Context, accountNumber string, opening domain.Money, holder domain.Holder) (*domain.Account, error)
}

// RecordStore 交易紀錄查詢 (append-only，寫入經由 AccountTx.AppendRecord)
type RecordStore interface {
	// History 帳號出現在轉出或轉入方的所有紀錄，由新到舊
	History(ctx context.Context, accountNumber string) ([]*domain.TransactionRecord, error)
}
