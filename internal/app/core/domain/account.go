package domain

import (
	"time"
	"unicode/utf8"
)

// AccountID 內部帳戶識別碼，建立後不變也不重複使用
type AccountID int64

// PhoneMaxLength 電話欄位長度上限
const PhoneMaxLength = 15

// Holder 帳戶持有人資料，開戶時給定
type Holder struct {
	Name    string `json:"name,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
	// DateOfBirth 只使用日期部分，零值表示未提供
	DateOfBirth time.Time `json:"date_of_birth,omitzero"`
}

// Validate 檢查持有人資料
// 參數 now: 判斷生日是否在未來
func (h Holder) Validate(now time.Time) error {
	if utf8.RuneCountInString(h.Phone) > PhoneMaxLength {
		return NewError(KindInvalidHolder, "phone number is too long")
	}
	if !h.DateOfBirth.IsZero() && h.DateOfBirth.After(now) {
		return NewError(KindInvalidHolder, "date of birth cannot be in the future")
	}
	return nil
}

// Account 帳戶
//
// AccountNumber 為對外帳號，建立後不可變更
// Balance 在任何成功操作之後都不會是負數
type Account struct {
	ID            AccountID `json:"id"`
	AccountNumber string    `json:"account_number"`
	Holder        Holder    `json:"holder"`
	Balance       Money     `json:"balance"`
	CreatedAt     time.Time `json:"created_at"`
}

// Precondition 對變動前餘額的檢查，回傳 false 則不套用變動
type Precondition func(balance Money) bool

// Always 永遠成立 (存款)
func Always(Money) bool { return true }

// AtLeast 餘額 >= amount (提款、轉帳扣款)
func AtLeast(amount Money) Precondition {
	return func(balance Money) bool {
		return !balance.LessThan(amount)
	}
}

// NewAccount 建立帳戶，開戶金額不得為負
func NewAccount(id AccountID, accountNumber string, holder Holder, balance Money, createdAt time.Time) (*Account, error) {
	if balance.IsNegative() {
		return nil, NewError(KindInvalidAmount, "opening balance cannot be negative")
	}
	if err := holder.Validate(createdAt); err != nil {
		return nil, err
	}
	return &Account{
		ID:            id,
		AccountNumber: accountNumber,
		Holder:        holder,
		Balance:       balance,
		CreatedAt:     createdAt,
	}, nil
}

// ApplyDelta 以 pre 檢查目前餘額後套用 delta
// pre 不成立，或套用後餘額為負，回傳 ErrPreconditionFailed 且餘額不變
// 呼叫端負責序列化同一帳戶的呼叫
func (a *Account) ApplyDelta(delta Money, pre Precondition) (Money, error) {
	next, err := a.PreviewDelta(delta, pre)
	if err != nil {
		return a.Balance, err
	}
	a.Balance = next
	return next, nil
}

// PreviewDelta 同 ApplyDelta 但不修改帳戶，回傳套用後的餘額
func (a *Account) PreviewDelta(delta Money, pre Precondition) (Money, error) {
	if pre == nil {
		pre = Always
	}
	if !pre(a.Balance) {
		return a.Balance, ErrPreconditionFailed
	}
	next := a.Balance.Add(delta)
	if next.IsNegative() {
		return a.Balance, ErrPreconditionFailed
	}
	return next, nil
}
