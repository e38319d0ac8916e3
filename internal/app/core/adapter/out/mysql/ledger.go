package mysql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-bank-ledger/pkg/mysql"
)

// sqlAccount 對應資料庫的 accounts 表
type sqlAccount struct {
	ID            int64        `gorm:"primaryKey;autoIncrement"`
	AccountNumber string       `gorm:"column:account_number;type:varchar(20);not null;uniqueIndex"`
	HolderName    string       `gorm:"column:holder_name;type:varchar(255);not null;default:''"`
	Phone         string       `gorm:"type:varchar(15);not null;default:''"`
	Address       string       `gorm:"type:varchar(255);not null;default:''"`
	DateOfBirth   *time.Time   `gorm:"column:date_of_birth;type:date"` // 未提供為 NULL
	Balance       domain.Money `gorm:"type:decimal(15,2);not null"`
	CreatedAt     int64        `gorm:"autoCreateTime:milli"` // 自動寫入時間
	UpdatedAt     int64        `gorm:"autoUpdateTime:milli"` // 自動更新時間
}

func (*sqlAccount) TableName() string {
	return "accounts"
}

func (a *sqlAccount) toDomain() *domain.Account {
	acc := &domain.Account{
		ID:            domain.AccountID(a.ID),
		AccountNumber: a.AccountNumber,
		Holder: domain.Holder{
			Name:    a.HolderName,
			Phone:   a.Phone,
			Address: a.Address,
		},
		Balance:   a.Balance,
		CreatedAt: time.UnixMilli(a.CreatedAt),
	}
	if a.DateOfBirth != nil {
		acc.Holder.DateOfBirth = *a.DateOfBirth
	}
	return acc
}

// sqlTransaction 對應資料庫的 transactions 表
// from_account / to_account 各自與 created_at 建立複合索引，供歷史查詢使用
type sqlTransaction struct {
	ID          int64        `gorm:"primaryKey;autoIncrement"`
	RefID       []byte       `gorm:"column:ref_id;type:binary(16);uniqueIndex"` // 對應 domain.TransactionRecord.RefID
	Type        uint8        `gorm:"not null"`
	Amount      domain.Money `gorm:"type:decimal(15,2);not null"`
	FromAccount string       `gorm:"column:from_account;type:varchar(20);index:idx_transactions_from,priority:1"`
	ToAccount   string       `gorm:"column:to_account;type:varchar(20);index:idx_transactions_to,priority:1"`
	Status      uint8        `gorm:"not null"`
	Description string       `gorm:"type:varchar(255)"`
	// CreatedAt: UnixNano，由 Ledger Engine 在結果確定時給定
	CreatedAt int64 `gorm:"autoCreateTime:nano;index:idx_transactions_from,priority:2;index:idx_transactions_to,priority:2"`
}

func (*sqlTransaction) TableName() string {
	return "transactions"
}

func (t *sqlTransaction) toDomain() *domain.TransactionRecord {
	var ref uuid.UUID
	copy(ref[:], t.RefID)
	return &domain.TransactionRecord{
		ID:          t.ID,
		RefID:       ref,
		Type:        domain.TransactionType(t.Type),
		Amount:      t.Amount,
		FromAccount: t.FromAccount,
		ToAccount:   t.ToAccount,
		Status:      domain.TransactionStatus(t.Status),
		Description: t.Description,
		CreatedAt:   time.Unix(0, t.CreatedAt),
	}
}

// Ledger 以 MySQL 實作 AccountStore 與 RecordStore
// 每個原子單位是一個 DB 交易，帳戶以 SELECT ... FOR UPDATE 依 id 順序鎖定
type Ledger struct {
	client *mysql.Client
}

func NewLedger(client *mysql.Client) *Ledger {
	return &Ledger{
		client: client,
	}
}

// Migrate 建立 / 更新資料表
func (l *Ledger) Migrate(ctx context.Context) error {
	return l.client.DB().WithContext(ctx).AutoMigrate(&sqlAccount{}, &sqlTransaction{})
}

// Resolve 以帳號取得帳戶
func (l *Ledger) Resolve(ctx context.Context, accountNumber string) (*domain.Account, error) {
	var row sqlAccount
	err := l.client.DB().WithContext(ctx).Where("account_number = ?", accountNumber).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.AccountNotFound(accountNumber)
	}
	if err != nil {
		return nil, domain.StoreUnavailable(err)
	}
	return row.toDomain(), nil
}

// GetBalance 取得帳戶餘額
func (l *Ledger) GetBalance(ctx context.Context, id domain.AccountID) (domain.Money, error) {
	var row sqlAccount
	err := l.client.DB().WithContext(ctx).Select("id", "balance").Where("id = ?", int64(id)).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Money{}, domain.ErrAccountNotFound
	}
	if err != nil {
		return domain.Money{}, domain.StoreUnavailable(err)
	}
	return row.Balance, nil
}

// ApplyDelta 單一帳戶的 precondition-guarded apply
func (l *Ledger) ApplyDelta(ctx context.Context, id domain.AccountID, delta domain.Money, pre domain.Precondition) (domain.Money, error) {
	var next domain.Money
	err := l.Atomically(ctx, []domain.AccountID{id}, func(tx usecase.AccountTx) error {
		var err error
		next, err = tx.ApplyDelta(id, delta, pre)
		return err
	})
	if err != nil {
		return domain.Money{}, err
	}
	return next, nil
}

// Atomically 在一個 DB 交易內鎖定帳戶並執行 fn
func (l *Ledger) Atomically(ctx context.Context, ids []domain.AccountID, fn func(tx usecase.AccountTx) error) error {
	ordered := domain.LockOrder(ids...)
	lockIDs := make([]int64, len(ordered))
	for i, id := range ordered {
		lockIDs[i] = int64(id)
	}

	err := l.client.DB().WithContext(ctx).Transaction(func(db *gorm.DB) error {
		// 取得鎖定帳號 悲觀鎖，依 id 排序避免死鎖
		var rows []sqlAccount
		if err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id IN ?", lockIDs).
			Order("id").
			Find(&rows).Error; err != nil {
			return domain.StoreUnavailable(err)
		}
		if len(rows) != len(lockIDs) {
			return domain.ErrAccountNotFound
		}

		tx := &gormTx{
			db:       db,
			balances: make(map[domain.AccountID]domain.Money, len(rows)),
		}
		for _, row := range rows {
			tx.balances[domain.AccountID(row.ID)] = row.Balance
		}
		return fn(tx)
	})
	return domain.StoreUnavailable(err)
}

// CreateAccount 開戶
func (l *Ledger) CreateAccount(ctx context.Context, accountNumber string, opening domain.Money, holder domain.Holder) (*domain.Account, error) {
	if accountNumber == "" {
		return nil, domain.ErrInvalidAccountNumber
	}
	if opening.IsNegative() {
		return nil, domain.NewError(domain.KindInvalidAmount, "opening balance cannot be negative")
	}
	if err := holder.Validate(time.Now()); err != nil {
		return nil, err
	}
	row := sqlAccount{
		AccountNumber: accountNumber,
		HolderName:    holder.Name,
		Phone:         holder.Phone,
		Address:       holder.Address,
		Balance:       opening,
	}
	if !holder.DateOfBirth.IsZero() {
		dob := holder.DateOfBirth.UTC().Truncate(24 * time.Hour)
		row.DateOfBirth = &dob
	}
	err := l.client.DB().WithContext(ctx).Create(&row).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, domain.ErrAccountAlreadyExists
	}
	if err != nil {
		return nil, domain.StoreUnavailable(err)
	}
	return row.toDomain(), nil
}

// History 帳號出現在轉出或轉入方的所有紀錄，由新到舊
func (l *Ledger) History(ctx context.Context, accountNumber string) ([]*domain.TransactionRecord, error) {
	var rows []sqlTransaction
	err := l.client.DB().WithContext(ctx).
		Where("from_account = ? OR to_account = ?", accountNumber, accountNumber).
		Order("created_at DESC").
		Order("id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, domain.StoreUnavailable(err)
	}
	out := make([]*domain.TransactionRecord, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

// gormTx 原子單位內的操作，餘額直接寫入交易中的資料列
type gormTx struct {
	db       *gorm.DB
	balances map[domain.AccountID]domain.Money
}

func (tx *gormTx) Balance(id domain.AccountID) (domain.Money, error) {
	balance, ok := tx.balances[id]
	if !ok {
		return domain.Money{}, fmt.Errorf("account %d is not locked by this unit", id)
	}
	return balance, nil
}

func (tx *gormTx) ApplyDelta(id domain.AccountID, delta domain.Money, pre domain.Precondition) (domain.Money, error) {
	current, err := tx.Balance(id)
	if err != nil {
		return domain.Money{}, err
	}
	acc := domain.Account{ID: id, Balance: current}
	next, err := acc.ApplyDelta(delta, pre)
	if err != nil {
		return current, err
	}
	if err := tx.db.Model(&sqlAccount{}).Where("id = ?", int64(id)).Update("balance", next).Error; err != nil {
		return current, domain.StoreUnavailable(err)
	}
	tx.balances[id] = next
	return next, nil
}

func (tx *gormTx) AppendRecord(rec *domain.TransactionRecord) error {
	row := sqlTransaction{
		RefID:       rec.RefID[:],
		Type:        uint8(rec.Type),
		Amount:      rec.Amount,
		FromAccount: rec.FromAccount,
		ToAccount:   rec.ToAccount,
		Status:      uint8(rec.Status),
		Description: rec.Description,
		CreatedAt:   rec.CreatedAt.UnixNano(),
	}
	if err := tx.db.Create(&row).Error; err != nil {
		return domain.StoreUnavailable(err)
	}
	rec.ID = row.ID
	return nil
}

var (
	_ usecase.AccountStore = (*Ledger)(nil)
	_ usecase.RecordStore  = (*Ledger)(nil)
)
