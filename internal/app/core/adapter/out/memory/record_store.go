package memory

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/usecase"
)

// RecordStore 記憶體內的 append-only 交易紀錄
//
// 寫入只經由 AccountStore 的原子單位提交；查詢回傳複本
type RecordStore struct {
	mu sync.RWMutex
	// 帳號 -> 涉及該帳號的紀錄 (轉帳紀錄同時出現在兩個帳號下)
	byAccount map[string][]*domain.TransactionRecord
	count     int
	// 最後分配的紀錄 ID
	lastID atomic.Int64
}

func NewRecordStore() *RecordStore {
	return &RecordStore{
		byAccount: make(map[string][]*domain.TransactionRecord),
	}
}

// History 帳號的所有紀錄，由新到舊
// 未知帳號回傳空切片
func (r *RecordStore) History(ctx context.Context, accountNumber string) ([]*domain.TransactionRecord, error) {
	r.mu.RLock()
	list := r.byAccount[accountNumber]
	out := make([]*domain.TransactionRecord, 0, len(list))
	for _, rec := range list {
		out = append(out, rec.Clone())
	}
	r.mu.RUnlock()

	domain.SortNewestFirst(out)
	return out, nil
}

// Len 紀錄總筆數
func (r *RecordStore) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.count
}

// nextRecordID 分配下一個紀錄 ID
func (r *RecordStore) nextRecordID() int64 {
	return r.lastID.Add(1)
}

// append 寫入已分配 ID 的紀錄
func (r *RecordStore) append(records ...*domain.TransactionRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range records {
		cp := rec.Clone()
		r.count++
		if cp.FromAccount != "" {
			r.byAccount[cp.FromAccount] = append(r.byAccount[cp.FromAccount], cp)
		}
		if cp.ToAccount != "" && cp.ToAccount != cp.FromAccount {
			r.byAccount[cp.ToAccount] = append(r.byAccount[cp.ToAccount], cp)
		}
	}
}

// restore WAL 重放時使用，保留原本的 ID
func (r *RecordStore) restore(rec *domain.TransactionRecord) {
	for {
		last := r.lastID.Load()
		if rec.ID <= last || r.lastID.CompareAndSwap(last, rec.ID) {
			break
		}
	}
	r.append(rec)
}

var _ usecase.RecordStore = (*RecordStore)(nil)
