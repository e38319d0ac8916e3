package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMoney(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "100", want: "100.00"},
		{in: "100.5", want: "100.50"},
		{in: "0.01", want: "0.01"},
		{in: "-3.20", want: "-3.20"},
		{in: "12.345", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			m, err := NewMoney(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, KindInvalidAmount, KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.String())
		})
	}
}

func TestMoneyArithmeticIsExact(t *testing.T) {
	// 0.1 + 0.2 以浮點數計算會得到 0.30000000000000004
	sum := MustMoney("0.10").Add(MustMoney("0.20"))
	assert.True(t, sum.Equal(MustMoney("0.30")))

	total := Zero
	for i := 0; i < 1000; i++ {
		total = total.Add(MustMoney("0.01"))
	}
	assert.Equal(t, "10.00", total.String())
	assert.True(t, total.Equal(FromMinorUnits(1000)))
}

func TestMoneyComparisons(t *testing.T) {
	a := MustMoney("50.00")
	b := MustMoney("200.00")

	assert.True(t, a.LessThan(b))
	assert.Equal(t, -1, a.Cmp(b))
	assert.Equal(t, "-150.00", a.Sub(b).String())
	assert.True(t, a.Sub(b).IsNegative())
	assert.True(t, a.Neg().IsNegative())
	assert.True(t, Zero.IsZero())
	assert.True(t, Zero.IsNonNegative())
	assert.False(t, Zero.IsPositive())
	assert.True(t, MustMoney("1.0").Equal(MustMoney("1.00")))
	assert.Equal(t, "1.23", FromMinorUnits(123).String())
}

func TestMoneyJSON(t *testing.T) {
	raw, err := json.Marshal(MustMoney("12.5"))
	require.NoError(t, err)
	assert.JSONEq(t, `"12.50"`, string(raw))

	var m Money
	require.NoError(t, json.Unmarshal([]byte(`"7.25"`), &m))
	assert.Equal(t, "7.25", m.String())

	require.NoError(t, json.Unmarshal([]byte(`3`), &m))
	assert.Equal(t, "3.00", m.String())

	err = json.Unmarshal([]byte(`"1.001"`), &m)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestMoneySQL(t *testing.T) {
	v, err := MustMoney("99.9").Value()
	require.NoError(t, err)
	assert.Equal(t, "99.90", v)

	var m Money
	require.NoError(t, m.Scan([]byte("42.10")))
	assert.Equal(t, "42.10", m.String())
}
