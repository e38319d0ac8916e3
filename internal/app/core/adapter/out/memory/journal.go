package memory

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
)

// Journal Write-Ahead Log 介面 (由 pkg/wal 實作)
type Journal interface {
	// Write 寫入一筆並刷入硬碟，回傳 nil 才算提交
	Write(v any) error
	// ReadAll 依寫入順序讀出所有資料
	ReadAll(callback func(jsonRaw []byte) error) error
}

// journalEntry WAL 中的一筆資料
//
// 開戶: Account
// 原子單位提交: Records + 提交後的 Balances
type journalEntry struct {
	Account  *domain.Account                   `json:"account,omitempty"`
	Records  []*domain.TransactionRecord       `json:"records,omitempty"`
	Balances map[domain.AccountID]domain.Money `json:"balances,omitempty"`
}

// recoverFromWAL 從 WAL 檔案恢復帳本狀態
// 只有 NewAccountStore 呼叫，無需 Lock (單執行緒)
//
// 回傳:
//
//	error: 恢復過程錯誤
func (s *AccountStore) recoverFromWAL() error {
	if s.journal == nil {
		return nil
	}
	entries := 0
	err := s.journal.ReadAll(func(jsonRaw []byte) error {
		var entry journalEntry
		if err := json.Unmarshal(jsonRaw, &entry); err != nil {
			return fmt.Errorf("decode wal entry %d: %w", entries+1, err)
		}
		entries++
		return s.applyRecoverEntry(&entry)
	})
	if err != nil {
		return err
	}
	if entries > 0 {
		s.logger.Info("ledger recovered from wal", zap.Int("entries", entries), zap.Int("accounts", len(s.byID)), zap.Int("records", s.records.Len()))
	}
	return nil
}

// applyRecoverEntry 恢復單筆資料至記憶體 (不寫入 WAL)
func (s *AccountStore) applyRecoverEntry(entry *journalEntry) error {
	if entry.Account != nil {
		acc := *entry.Account
		s.insert(&acc)
	}
	for id, balance := range entry.Balances {
		e, ok := s.byID[id]
		if !ok {
			return fmt.Errorf("wal references unknown account %d", id)
		}
		e.account.Balance = balance
	}
	for _, rec := range entry.Records {
		s.records.restore(rec)
	}
	return nil
}
