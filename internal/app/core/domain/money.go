package domain

import (
	"database/sql/driver"
	"fmt"

	"github.com/shopspring/decimal"
)

// MoneyScale 金額固定小數位數 (分)
const MoneyScale = 2

// Money 精確十進位金額，固定小數兩位，不使用浮點數
//
// 零值即為 0.00，可直接使用
type Money struct {
	d decimal.Decimal
}

// Zero 0.00
var Zero = Money{}

// NewMoney 由字串解析金額 (例: "100.00", "12.5")
// 小數超過兩位視為 ErrInvalidAmount，不做四捨五入
func NewMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, NewError(KindInvalidAmount, fmt.Sprintf("invalid amount %q", s))
	}
	return fromDecimal(d)
}

// MustMoney 同 NewMoney，解析失敗直接 panic (僅供測試與常數使用)
func MustMoney(s string) Money {
	m, err := NewMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

// FromMinorUnits 由最小貨幣單位 (分) 建立金額
func FromMinorUnits(cents int64) Money {
	return Money{d: decimal.New(cents, -MoneyScale)}
}

func fromDecimal(d decimal.Decimal) (Money, error) {
	if !d.Equal(d.Truncate(MoneyScale)) {
		return Money{}, NewError(KindInvalidAmount, fmt.Sprintf("amount %s has more than %d fraction digits", d.String(), MoneyScale))
	}
	return Money{d: d}, nil
}

// Add 相加
func (m Money) Add(other Money) Money {
	return Money{d: m.d.Add(other.d)}
}

// Sub 相減 (結果可能為負)
func (m Money) Sub(other Money) Money {
	return Money{d: m.d.Sub(other.d)}
}

// Neg 取負值
func (m Money) Neg() Money {
	return Money{d: m.d.Neg()}
}

// Cmp 比較大小: -1 (m < other), 0, +1
func (m Money) Cmp(other Money) int {
	return m.d.Cmp(other.d)
}

// Equal 以數值比較，"1.0" 與 "1.00" 相等
func (m Money) Equal(other Money) bool {
	return m.d.Equal(other.d)
}

// LessThan m < other
func (m Money) LessThan(other Money) bool {
	return m.d.LessThan(other.d)
}

func (m Money) IsPositive() bool {
	return m.d.IsPositive()
}

func (m Money) IsNegative() bool {
	return m.d.IsNegative()
}

func (m Money) IsNonNegative() bool {
	return !m.d.IsNegative()
}

func (m Money) IsZero() bool {
	return m.d.IsZero()
}

// String 固定兩位小數輸出，例: "100.00"
func (m Money) String() string {
	return m.d.StringFixed(MoneyScale)
}

// MarshalJSON 以字串輸出，避免 JSON number 落入 float64
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON 接受字串或數字
func (m *Money) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return NewError(KindInvalidAmount, fmt.Sprintf("invalid amount %s", string(data)))
	}
	parsed, err := fromDecimal(d)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Value 實作 driver.Valuer，讓 GORM 以 DECIMAL 欄位寫入
func (m Money) Value() (driver.Value, error) {
	return m.String(), nil
}

// Scan 實作 sql.Scanner
func (m *Money) Scan(value any) error {
	var d decimal.Decimal
	if err := d.Scan(value); err != nil {
		return err
	}
	m.d = d
	return nil
}
