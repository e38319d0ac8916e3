package domain

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

// TransactionType 交易類型
type TransactionType uint8

const (
	// 存款
	TransactionTypeDeposit TransactionType = 1
	// 提款
	TransactionTypeWithdraw TransactionType = 2
	// 轉帳
	TransactionTypeTransfer TransactionType = 3
)

var transactionTypeNames = map[TransactionType]string{
	TransactionTypeDeposit:  "DEPOSIT",
	TransactionTypeWithdraw: "WITHDRAW",
	TransactionTypeTransfer: "TRANSFER",
}

func (t TransactionType) String() string {
	if name, ok := transactionTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TransactionType(%d)", uint8(t))
}

// DefaultDescription 未提供描述時使用的預設值
func (t TransactionType) DefaultDescription() string {
	switch t {
	case TransactionTypeDeposit:
		return "Deposit"
	case TransactionTypeWithdraw:
		return "Withdrawal"
	case TransactionTypeTransfer:
		return "Transfer"
	}
	return ""
}

func (t TransactionType) MarshalText() ([]byte, error) {
	if _, ok := transactionTypeNames[t]; !ok {
		return nil, fmt.Errorf("unknown transaction type %d", uint8(t))
	}
	return []byte(t.String()), nil
}

func (t *TransactionType) UnmarshalText(text []byte) error {
	parsed, err := ParseTransactionType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ParseTransactionType "DEPOSIT" / "WITHDRAW" / "TRANSFER"
func ParseTransactionType(s string) (TransactionType, error) {
	for t, name := range transactionTypeNames {
		if name == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown transaction type %q", s)
}

// TransactionStatus 交易狀態
// 每筆嘗試的操作只會落在 SUCCESS 或 FAILED
type TransactionStatus uint8

const (
	TransactionStatusSuccess TransactionStatus = 1
	TransactionStatusFailed  TransactionStatus = 2
)

func (s TransactionStatus) String() string {
	switch s {
	case TransactionStatusSuccess:
		return "SUCCESS"
	case TransactionStatusFailed:
		return "FAILED"
	}
	return fmt.Sprintf("TransactionStatus(%d)", uint8(s))
}

func (s TransactionStatus) MarshalText() ([]byte, error) {
	if s != TransactionStatusSuccess && s != TransactionStatusFailed {
		return nil, fmt.Errorf("unknown transaction status %d", uint8(s))
	}
	return []byte(s.String()), nil
}

func (s *TransactionStatus) UnmarshalText(text []byte) error {
	switch string(text) {
	case "SUCCESS":
		*s = TransactionStatusSuccess
	case "FAILED":
		*s = TransactionStatusFailed
	default:
		return fmt.Errorf("unknown transaction status %q", string(text))
	}
	return nil
}

// TransactionRecord 交易紀錄，建立後不可變更
//
// DEPOSIT 只有 ToAccount，WITHDRAW 只有 FromAccount，TRANSFER 兩者皆有
type TransactionRecord struct {
	// ID: 由 Record Store 分配的遞增序號
	ID int64 `json:"id"`
	// RefID: 外部追蹤號 (UUID)
	RefID       uuid.UUID         `json:"ref_id"`
	Type        TransactionType   `json:"type"`
	Amount      Money             `json:"amount"`
	FromAccount string            `json:"from_account,omitempty"`
	ToAccount   string            `json:"to_account,omitempty"`
	Status      TransactionStatus `json:"status"`
	Description string            `json:"description"`
	// CreatedAt: 結果確定的時間，歷史查詢唯一排序依據
	CreatedAt time.Time `json:"created_at"`
}

// Involves 帳號是否為此紀錄的轉出或轉入方
func (r *TransactionRecord) Involves(accountNumber string) bool {
	return r.FromAccount == accountNumber || r.ToAccount == accountNumber
}

// Clone 複製一份，避免呼叫端修改到 store 內部的紀錄
func (r *TransactionRecord) Clone() *TransactionRecord {
	cp := *r
	return &cp
}

// NewerFirst 歷史排序: CreatedAt 由新到舊，相同時間以 ID 由大到小
func NewerFirst(a, b *TransactionRecord) int {
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	switch {
	case a.ID > b.ID:
		return -1
	case a.ID < b.ID:
		return 1
	}
	return 0
}

// SortNewestFirst 原地排序
func SortNewestFirst(records []*TransactionRecord) {
	slices.SortFunc(records, NewerFirst)
}

// LockOrder 回傳需要鎖定的帳戶 ID，去重並由小到大排序以避免死鎖
func LockOrder(ids ...AccountID) []AccountID {
	out := make([]AccountID, 0, len(ids))
	out = append(out, ids...)
	slices.Sort(out)
	return slices.Compact(out)
}
