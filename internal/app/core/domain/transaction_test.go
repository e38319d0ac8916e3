package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionTypeText(t *testing.T) {
	for _, typ := range []TransactionType{TransactionTypeDeposit, TransactionTypeWithdraw, TransactionTypeTransfer} {
		text, err := typ.MarshalText()
		require.NoError(t, err)

		var parsed TransactionType
		require.NoError(t, parsed.UnmarshalText(text))
		assert.Equal(t, typ, parsed)
	}

	_, err := TransactionType(9).MarshalText()
	assert.Error(t, err)
	_, err = ParseTransactionType("REFUND")
	assert.Error(t, err)

	assert.Equal(t, "Deposit", TransactionTypeDeposit.DefaultDescription())
	assert.Equal(t, "Withdrawal", TransactionTypeWithdraw.DefaultDescription())
	assert.Equal(t, "Transfer", TransactionTypeTransfer.DefaultDescription())
}

func TestTransactionRecordJSON(t *testing.T) {
	rec := &TransactionRecord{
		ID:          7,
		RefID:       uuid.MustParse("1b4e28ba-2fa1-11d2-883f-0016d3cca427"),
		Type:        TransactionTypeTransfer,
		Amount:      MustMoney("50.00"),
		FromAccount: "001",
		ToAccount:   "002",
		Status:      TransactionStatusFailed,
		Description: "Insufficient balance",
		CreatedAt:   time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	raw, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"id": 7,
		"ref_id": "1b4e28ba-2fa1-11d2-883f-0016d3cca427",
		"type": "TRANSFER",
		"amount": "50.00",
		"from_account": "001",
		"to_account": "002",
		"status": "FAILED",
		"description": "Insufficient balance",
		"created_at": "2024-01-02T03:04:05Z"
	}`, string(raw))

	var back TransactionRecord
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, rec.Status, back.Status)
	assert.True(t, rec.Amount.Equal(back.Amount))
	assert.True(t, back.Involves("001"))
	assert.True(t, back.Involves("002"))
	assert.False(t, back.Involves("003"))
}

func TestSortNewestFirst(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	records := []*TransactionRecord{
		{ID: 1, CreatedAt: base},
		{ID: 3, CreatedAt: base.Add(time.Second)},
		{ID: 2, CreatedAt: base.Add(time.Second)},
		{ID: 4, CreatedAt: base.Add(-time.Second)},
	}
	SortNewestFirst(records)

	ids := make([]int64, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []int64{3, 2, 1, 4}, ids)
}

func TestLockOrder(t *testing.T) {
	assert.Equal(t, []AccountID{1, 2}, LockOrder(2, 1))
	assert.Equal(t, []AccountID{1, 2}, LockOrder(1, 2))
	assert.Equal(t, []AccountID{5}, LockOrder(5, 5))
	assert.Empty(t, LockOrder())
}

func TestCloneIsIndependent(t *testing.T) {
	rec := &TransactionRecord{ID: 1, Description: "a"}
	cp := rec.Clone()
	cp.Description = "b"
	assert.Equal(t, "a", rec.Description)
}
