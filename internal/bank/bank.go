// internal/bank/bank.go

// Package bank 定義核心商業邏輯：使用者、帳戶、聯絡人、轉帳與交易明細。
// 所有狀態存放在關聯式資料庫；跨帳戶的一致性交由資料庫交易與列鎖保證，
// 本層不持有任何行程內的鎖。金額一律使用 decimal，避免浮點誤差。
package bank

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"aceitubank/internal/logging"
	"aceitubank/internal/metrics"
	"aceitubank/internal/storage"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DefaultPageSize 為明細分頁的預設筆數。
const DefaultPageSize = 10

// Bank 為聚合根 (Aggregate Root)。
type Bank struct {
	db         *gorm.DB
	log        *logging.Logger
	metrics    metrics.Collector
	pageSize   int
	bcryptCost int
	now        func() time.Time
}

// Option 調整 Bank 的可選設定。
type Option func(*Bank)

func WithLogger(l *logging.Logger) Option {
	return func(b *Bank) {
		if l != nil {
			b.log = l
		}
	}
}

func WithMetrics(c metrics.Collector) Option {
	return func(b *Bank) {
		if c != nil {
			b.metrics = c
		}
	}
}

func WithPageSize(n int) Option {
	return func(b *Bank) {
		if n > 0 {
			b.pageSize = n
		}
	}
}

// WithBcryptCost 設定註冊時的 bcrypt cost；測試可用 bcrypt.MinCost 加速。
func WithBcryptCost(cost int) Option {
	return func(b *Bank) { b.bcryptCost = cost }
}

// WithClock 替換時間來源。
func WithClock(now func() time.Time) Option {
	return func(b *Bank) {
		if now != nil {
			b.now = now
		}
	}
}

// NewBank 建立銀行服務。db 必須已完成 Migrate。
func NewBank(db *gorm.DB, opts ...Option) *Bank {
	b := &Bank{
		db:       db,
		log:      logging.L(),
		metrics:  metrics.NoOpCollector{},
		pageSize: DefaultPageSize,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(b)
	}
	b.log = b.log.Named("bank")
	return b
}

// PageSize 回傳分頁筆數。
func (b *Bank) PageSize() int { return b.pageSize }

// Migrate 建立或更新所有資料表。
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&User{},
		&Account{},
		&Contact{},
		&Transfer{},
		&Transaction{},
		&Session{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// notFound 將 gorm.ErrRecordNotFound 轉為 ErrNotFound，其餘錯誤原樣包裝。
func notFound(what string, id any, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %v: %w", what, id, ErrNotFound)
	}
	return fmt.Errorf("load %s %v: %w", what, id, err)
}

// OpenAccountRequest 為開戶參數。Number 留空時自動產生。
type OpenAccountRequest struct {
	OwnerID uint            `json:"owner_id"`
	Type    AccountType     `json:"account_type"`
	Number  string          `json:"account_number"`
	Balance decimal.Decimal `json:"balance"`
}

// maxAccountNumberLen 對應 account_number 欄位長度。
const maxAccountNumberLen = 20

// OpenAccount 為使用者開立帳戶；初始餘額不得為負，且須符合 numeric(14,2)。
// 帳號未指定時為「RUT 去除 . 與 - 」加上該使用者帳戶數 +1 的兩位數序號。
func (b *Bank) OpenAccount(ctx context.Context, req OpenAccountRequest) (*Account, error) {
	if !req.Type.Valid() {
		return nil, fmt.Errorf("account type %q: %w", req.Type, ErrInvalidInput)
	}
	if req.Balance.IsNegative() || !fitsMoney(req.Balance) {
		return nil, ErrInvalidAmount
	}
	req.Number = strings.TrimSpace(req.Number)
	if len(req.Number) > maxAccountNumberLen {
		return nil, fmt.Errorf("account number too long: %w", ErrInvalidInput)
	}

	var acc *Account
	err := b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owner User
		if err := tx.First(&owner, req.OwnerID).Error; err != nil {
			return notFound("user", req.OwnerID, err)
		}

		number := req.Number
		if number == "" {
			n, err := nextAccountNumber(tx, &owner)
			if err != nil {
				return err
			}
			number = n
		}

		acc = &Account{
			OwnerID:   owner.ID,
			Number:    number,
			Type:      req.Type,
			Balance:   req.Balance,
			CreatedAt: b.now(),
		}
		if err := tx.Create(acc).Error; err != nil {
			if storage.IsUniqueViolation(err) {
				return fmt.Errorf("account number %s already exists: %w", number, ErrInvalidInput)
			}
			return fmt.Errorf("create account: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	b.log.Info("account opened",
		zap.Uint("account_id", acc.ID),
		zap.Uint("owner_id", acc.OwnerID),
		zap.String("type", string(acc.Type)))
	return acc, nil
}

// nextAccountNumber 產生帳號；序號已被占用時往後遞增。
func nextAccountNumber(tx *gorm.DB, owner *User) (string, error) {
	base := strings.NewReplacer(".", "", "-", "").Replace(owner.RUT)
	var count int64
	if err := tx.Model(&Account{}).Where("owner_id = ?", owner.ID).Count(&count).Error; err != nil {
		return "", fmt.Errorf("count accounts: %w", err)
	}
	for seq := count + 1; seq < count+100; seq++ {
		number := fmt.Sprintf("%s%02d", base, seq)
		if len(number) > maxAccountNumberLen {
			return "", fmt.Errorf("generated account number too long: %w", ErrInvalidInput)
		}
		var taken int64
		if err := tx.Model(&Account{}).Where("account_number = ?", number).Count(&taken).Error; err != nil {
			return "", fmt.Errorf("check account number: %w", err)
		}
		if taken == 0 {
			return number, nil
		}
	}
	return "", fmt.Errorf("no free account number for %s: %w", base, ErrInvalidInput)
}

// Accounts 列出使用者的帳戶，新開立者在前。
func (b *Bank) Accounts(ctx context.Context, ownerID uint) ([]Account, error) {
	var out []Account
	err := b.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").Order("id DESC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return out, nil
}

// Account 依 ID 取得帳戶目前狀態。
func (b *Bank) Account(ctx context.Context, id uint) (*Account, error) {
	var a Account
	if err := b.db.WithContext(ctx).First(&a, id).Error; err != nil {
		return nil, notFound("account", id, err)
	}
	return &a, nil
}

// ownedAccount 取得屬於 ownerID 的帳戶；不屬於時視為不存在。
func (b *Bank) ownedAccount(ctx context.Context, ownerID, id uint) (*Account, error) {
	var a Account
	err := b.db.WithContext(ctx).Where("id = ? AND owner_id = ?", id, ownerID).First(&a).Error
	if err != nil {
		return nil, notFound("account", id, err)
	}
	return &a, nil
}

// TotalBalance 回傳全系統餘額總和。轉帳不會改變此值。
func (b *Bank) TotalBalance(ctx context.Context) (decimal.Decimal, error) {
	var accounts []Account
	if err := b.db.WithContext(ctx).Select("balance").Find(&accounts).Error; err != nil {
		return decimal.Zero, fmt.Errorf("sum balances: %w", err)
	}
	total := decimal.Zero
	for _, a := range accounts {
		total = total.Add(a.Balance)
	}
	return total, nil
}
