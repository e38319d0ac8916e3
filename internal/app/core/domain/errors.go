package domain

import (
	"context"
	"errors"
	"fmt"
)

// Kind 錯誤種類，呼叫端依此區分業務結果與基礎設施錯誤
type Kind uint8

const (
	KindUnknown Kind = iota
	// 金額必須為正數
	KindInvalidAmount
	// 缺少或不合法的轉入帳戶
	KindInvalidDestination
	// 找不到帳戶
	KindAccountNotFound
	// 帳戶已存在
	KindAccountAlreadyExists
	// 餘額不足
	KindInsufficientFunds
	// ApplyDelta 前置條件不成立 (Account Store 層級)
	KindPreconditionFailed
	// 儲存層不可用
	KindStoreUnavailable
	// 帳號格式不合法
	KindInvalidAccountNumber
	// 持有人資料不合法
	KindInvalidHolder
)

var kindNames = map[Kind]string{
	KindUnknown:              "UNKNOWN",
	KindInvalidAmount:        "INVALID_AMOUNT",
	KindInvalidDestination:   "INVALID_DESTINATION",
	KindAccountNotFound:      "ACCOUNT_NOT_FOUND",
	KindAccountAlreadyExists: "ACCOUNT_ALREADY_EXISTS",
	KindInsufficientFunds:    "INSUFFICIENT_FUNDS",
	KindPreconditionFailed:   "PRECONDITION_FAILED",
	KindStoreUnavailable:     "STORE_UNAVAILABLE",
	KindInvalidAccountNumber: "INVALID_ACCOUNT_NUMBER",
	KindInvalidHolder:        "INVALID_HOLDER",
}

// String 穩定的錯誤代碼，會出現在 API 回應中
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[KindUnknown]
}

// Error 帶有種類的錯誤
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

// NewError 建立指定種類的錯誤
func NewError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is 同種類即視為相同，讓 errors.Is(err, ErrInsufficientFunds) 不受訊息內容影響
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	// ErrInvalidAmount 金額必須為正數
	ErrInvalidAmount = NewError(KindInvalidAmount, "amount must be positive")

	// ErrInvalidDestination 轉入帳戶必填
	ErrInvalidDestination = NewError(KindInvalidDestination, "destination account number is required")

	// ErrSameAccount 轉出與轉入為同一帳戶
	ErrSameAccount = NewError(KindInvalidDestination, "destination account must differ from source account")

	// ErrAccountNotFound 找不到帳戶
	ErrAccountNotFound = NewError(KindAccountNotFound, "account not found")

	// ErrAccountAlreadyExists 帳戶已存在
	ErrAccountAlreadyExists = NewError(KindAccountAlreadyExists, "account already exists")

	// ErrInsufficientFunds 餘額不足
	ErrInsufficientFunds = NewError(KindInsufficientFunds, "Insufficient balance")

	// ErrPreconditionFailed 前置條件不成立，餘額未變動
	ErrPreconditionFailed = NewError(KindPreconditionFailed, "precondition failed")

	// ErrInvalidAccountNumber 帳號必填
	ErrInvalidAccountNumber = NewError(KindInvalidAccountNumber, "account number is required")

	// ErrStoreUnavailable 儲存層錯誤
	ErrStoreUnavailable = NewError(KindStoreUnavailable, "store unavailable")
)

// AccountNotFound 帶上帳號的 ErrAccountNotFound
func AccountNotFound(accountNumber string) error {
	return NewError(KindAccountNotFound, "account not found with number: "+accountNumber)
}

// StoreUnavailable 包裝儲存層錯誤，保留原始錯誤供 errors.Unwrap
// 已經是 *Error 的錯誤與 context 取消/逾時原樣回傳
func StoreUnavailable(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var de *Error
	if errors.As(err, &de) {
		return err
	}
	return &Error{Kind: KindStoreUnavailable, Msg: "store unavailable", Err: err}
}

// KindOf 取出錯誤種類，非 *Error 一律為 KindUnknown
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUnknown
}
