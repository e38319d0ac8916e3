package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/usecase"
)

// accountEntry 單一帳戶與它自己的鎖
type accountEntry struct {
	mu      sync.Mutex
	account domain.Account
}

// AccountStore 是一個使用「每帳戶一把 Mutex」實現的帳戶儲存
//
// 結構:
//
//	createMu: 序列化開戶 (分配 ID、寫 WAL)，寫 WAL 期間不持有 mu
//	mu: RWMutex 只保護帳戶索引 (開戶/查詢)，不保護餘額
//	byID / byNumber: 帳戶索引，帳戶不會被刪除，entry 指標建立後不變
//	records: 交易紀錄
//	journal: Write-Ahead Log，可為 nil (純記憶體)
type AccountStore struct {
	createMu sync.Mutex
	mu       sync.RWMutex
	byID     map[domain.AccountID]*accountEntry
	byNumber map[string]domain.AccountID
	lastID   domain.AccountID

	records *RecordStore
	journal Journal
	logger  *zap.Logger
	now     func() time.Time
}

// StoreOption 設定 AccountStore
type StoreOption func(*AccountStore)

// WithLogger 設定 logger
func WithLogger(logger *zap.Logger) StoreOption {
	return func(s *AccountStore) {
		s.logger = logger
	}
}

// WithClock 設定開戶時間來源
func WithClock(now func() time.Time) StoreOption {
	return func(s *AccountStore) {
		s.now = now
	}
}

// NewAccountStore 建立一個新的 AccountStore 實例
//
// 參數:
//
//	records: 交易紀錄儲存
//	journal: Write-Ahead Log 實例 (nil 表示不落地)
//
// 回傳:
//
//	*AccountStore: AccountStore 實例
//	error: 初始化錯誤 (如 WAL 恢復失敗)
func NewAccountStore(records *RecordStore, journal Journal, opts ...StoreOption) (*AccountStore, error) {
	s := &AccountStore{
		byID:     make(map[domain.AccountID]*accountEntry),
		byNumber: make(map[string]domain.AccountID),
		records:  records,
		journal:  journal,
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.recoverFromWAL(); err != nil {
		return nil, err
	}
	return s, nil
}

// Resolve 以帳號取得帳戶快照
func (s *AccountStore) Resolve(ctx context.Context, accountNumber string) (*domain.Account, error) {
	s.mu.RLock()
	id, ok := s.byNumber[accountNumber]
	e := s.byID[id]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.AccountNotFound(accountNumber)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	cp := e.account
	return &cp, nil
}

// GetBalance 取得指定帳戶的當前餘額
//
// 參數:
//
//	ctx: 上下文
//	id: 帳戶 ID
//
// 回傳:
//
//	domain.Money: 帳戶餘額 (已提交)
//	error: 查詢錯誤 (如帳戶不存在)
func (s *AccountStore) GetBalance(ctx context.Context, id domain.AccountID) (domain.Money, error) {
	e, ok := s.entry(id)
	if !ok {
		return domain.Money{}, domain.ErrAccountNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.account.Balance, nil
}

// ApplyDelta 單一帳戶的原子 read-check-write
//
// 參數:
//
//	ctx: 上下文
//	id: 帳戶 ID
//	delta: 變動金額 (可為負)
//	pre: 前置條件 (nil 視為永遠成立)
//
// 回傳:
//
//	domain.Money: 變動後餘額
//	error: ErrPreconditionFailed (餘額不變) 或儲存錯誤
func (s *AccountStore) ApplyDelta(ctx context.Context, id domain.AccountID, delta domain.Money, pre domain.Precondition) (domain.Money, error) {
	var next domain.Money
	err := s.Atomically(ctx, []domain.AccountID{id}, func(tx usecase.AccountTx) error {
		var err error
		next, err = tx.ApplyDelta(id, delta, pre)
		return err
	})
	if err != nil {
		return domain.Money{}, err
	}
	return next, nil
}

// Atomically 鎖定帳戶後執行 fn
//
// 鎖依帳戶 ID 由小到大取得、反向釋放，避免 A->B 與 B->A 同時轉帳時死鎖
// fn 回傳 nil: 先寫 WAL，成功後才套用餘額並寫入交易紀錄
// fn 回傳錯誤或 WAL 失敗: 不做任何變動
func (s *AccountStore) Atomically(ctx context.Context, ids []domain.AccountID, fn func(tx usecase.AccountTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ordered := domain.LockOrder(ids...)
	entries := make([]*accountEntry, 0, len(ordered))
	for _, id := range ordered {
		e, ok := s.entry(id)
		if !ok {
			return domain.ErrAccountNotFound
		}
		entries = append(entries, e)
	}

	for _, e := range entries {
		e.mu.Lock()
	}
	defer func() {
		for i := len(entries) - 1; i >= 0; i-- {
			entries[i].mu.Unlock()
		}
	}()

	tx := &memoryTx{
		entries: make(map[domain.AccountID]*accountEntry, len(entries)),
		staged:  make(map[domain.AccountID]domain.Money, len(entries)),
	}
	for _, e := range entries {
		tx.entries[e.account.ID] = e
	}
	if err := fn(tx); err != nil {
		return err
	}
	return s.commit(tx)
}

// commit 在持有所有相關帳戶鎖的情況下提交
func (s *AccountStore) commit(tx *memoryTx) error {
	if len(tx.staged) == 0 && len(tx.records) == 0 {
		return nil
	}
	for _, rec := range tx.records {
		rec.ID = s.records.nextRecordID()
	}

	// 1. 寫入 WAL (Critical Path)
	if s.journal != nil {
		entry := journalEntry{Records: tx.records}
		if len(tx.staged) > 0 {
			entry.Balances = tx.staged
		}
		if err := s.journal.Write(&entry); err != nil {
			return domain.StoreUnavailable(fmt.Errorf("write wal: %w", err))
		}
	}

	// 2. 套用餘額
	for id, balance := range tx.staged {
		tx.entries[id].account.Balance = balance
	}
	// 3. 寫入交易紀錄
	s.records.append(tx.records...)
	return nil
}

// CreateAccount 開戶
//
// 1. createMu 序列化開戶，確認帳號未被使用並分配 ID
// 2. 寫入 WAL (不持有 mu，其他帳戶的操作不受 fsync 影響)
// 3. 持有 mu 寫入索引
func (s *AccountStore) CreateAccount(ctx context.Context, accountNumber string, opening domain.Money, holder domain.Holder) (*domain.Account, error) {
	if accountNumber == "" {
		return nil, domain.ErrInvalidAccountNumber
	}
	s.createMu.Lock()
	defer s.createMu.Unlock()

	s.mu.RLock()
	_, exists := s.byNumber[accountNumber]
	id := s.lastID + 1
	s.mu.RUnlock()
	if exists {
		return nil, domain.ErrAccountAlreadyExists
	}

	acc, err := domain.NewAccount(id, accountNumber, holder, opening, s.now())
	if err != nil {
		return nil, err
	}
	if s.journal != nil {
		if err := s.journal.Write(&journalEntry{Account: acc}); err != nil {
			return nil, domain.StoreUnavailable(fmt.Errorf("write wal: %w", err))
		}
	}

	s.mu.Lock()
	s.insert(acc)
	s.mu.Unlock()

	s.logger.Info("account opened", zap.String("account_number", acc.AccountNumber), zap.Int64("id", int64(acc.ID)))
	cp := *acc
	return &cp, nil
}

// insert 呼叫端需持有 s.mu (或處於初始化階段)
func (s *AccountStore) insert(acc *domain.Account) {
	s.byID[acc.ID] = &accountEntry{account: *acc}
	s.byNumber[acc.AccountNumber] = acc.ID
	if acc.ID > s.lastID {
		s.lastID = acc.ID
	}
}

func (s *AccountStore) entry(id domain.AccountID) (*accountEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.byID[id]
	return e, ok
}

// memoryTx 暫存原子單位內的變動
type memoryTx struct {
	entries map[domain.AccountID]*accountEntry
	staged  map[domain.AccountID]domain.Money
	records []*domain.TransactionRecord
}

func (tx *memoryTx) Balance(id domain.AccountID) (domain.Money, error) {
	if balance, ok := tx.staged[id]; ok {
		return balance, nil
	}
	e, ok := tx.entries[id]
	if !ok {
		return domain.Money{}, fmt.Errorf("account %d is not locked by this unit", id)
	}
	return e.account.Balance, nil
}

func (tx *memoryTx) ApplyDelta(id domain.AccountID, delta domain.Money, pre domain.Precondition) (domain.Money, error) {
	current, err := tx.Balance(id)
	if err != nil {
		return domain.Money{}, err
	}
	acc := domain.Account{ID: id, Balance: current}
	next, err := acc.ApplyDelta(delta, pre)
	if err != nil {
		return current, err
	}
	tx.staged[id] = next
	return next, nil
}

func (tx *memoryTx) AppendRecord(rec *domain.TransactionRecord) error {
	tx.records = append(tx.records, rec)
	return nil
}

var _ usecase.AccountStore = (*AccountStore)(nil)
