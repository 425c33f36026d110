// internal/bank/ledger.go
//
// 交易明細查詢與分頁。

package bank

import (
	"context"
	"fmt"
	"strconv"

	"gorm.io/gorm"
)

// Page 為一頁查詢結果。
type Page[T any] struct {
	Items       []T   `json:"items"`
	Number      int   `json:"page"`
	NumPages    int   `json:"num_pages"`
	Total       int64 `json:"total"`
	HasNext     bool  `json:"has_next"`
	HasPrevious bool  `json:"has_previous"`
}

// PageNumber 解析頁碼字串；空字串或非整數回傳 1。
// 超出範圍的頁碼（含 <= 0）由 paginate 換成最後一頁。
func PageNumber(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 1
	}
	return n
}

// paginate 先計數再取出第 number 頁；沒有資料時仍回傳空的第 1 頁。
// preloads 只套用在取資料的查詢上。
func paginate[T any](q *gorm.DB, order string, number, size int, preloads ...string) (Page[T], error) {
	var p Page[T]
	if err := q.Session(&gorm.Session{}).Count(&p.Total).Error; err != nil {
		return p, fmt.Errorf("count: %w", err)
	}
	p.NumPages = 1
	if p.Total > 0 {
		p.NumPages = int((p.Total + int64(size) - 1) / int64(size))
	}
	if number < 1 || number > p.NumPages {
		number = p.NumPages
	}
	p.Number = number
	p.HasPrevious = number > 1
	p.HasNext = number < p.NumPages

	p.Items = make([]T, 0, size)
	fetch := q.Session(&gorm.Session{})
	for _, name := range preloads {
		fetch = fetch.Preload(name)
	}
	err := fetch.
		Order(order).
		Offset((number - 1) * size).
		Limit(size).
		Find(&p.Items).Error
	if err != nil {
		return p, fmt.Errorf("fetch page: %w", err)
	}
	return p, nil
}

// Ledger 回傳使用者所有帳戶的明細（新者在前）的第 page 頁。
func (b *Bank) Ledger(ctx context.Context, userID uint, page int) (Page[Transaction], error) {
	db := b.db.WithContext(ctx)
	q := db.Model(&Transaction{}).
		Where("account_id IN (?)", db.Model(&Account{}).Select("id").Where("owner_id = ?", userID))
	p, err := paginate[Transaction](q, "date DESC, id DESC", page, b.pageSize, "Account")
	if err != nil {
		return p, fmt.Errorf("ledger: %w", err)
	}
	return p, nil
}

// AccountLedger 回傳單一帳戶的全部明細（新者在前）。帳戶不屬於 userID 時視為不存在。
func (b *Bank) AccountLedger(ctx context.Context, userID, accountID uint) ([]Transaction, error) {
	if _, err := b.ownedAccount(ctx, userID, accountID); err != nil {
		return nil, err
	}
	var out []Transaction
	err := b.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("date DESC").Order("id DESC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("account ledger: %w", err)
	}
	return out, nil
}

// LedgerAll 回傳使用者的全部明細，供匯出使用。
func (b *Bank) LedgerAll(ctx context.Context, userID uint) ([]Transaction, error) {
	db := b.db.WithContext(ctx)
	var out []Transaction
	err := db.Preload("Account").
		Where("account_id IN (?)", db.Model(&Account{}).Select("id").Where("owner_id = ?", userID)).
		Order("date DESC").Order("id DESC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("ledger export: %w", err)
	}
	return out, nil
}

// Dashboard 為登入後首頁：使用者的帳戶與分頁明細。
type Dashboard struct {
	Accounts  []Account         `json:"accounts"`
	Movements Page[Transaction] `json:"movements"`
}

// Dashboard 組合帳戶列表與明細分頁。
func (b *Bank) Dashboard(ctx context.Context, userID uint, page int) (*Dashboard, error) {
	accounts, err := b.Accounts(ctx, userID)
	if err != nil {
		return nil, err
	}
	movements, err := b.Ledger(ctx, userID, page)
	if err != nil {
		return nil, err
	}
	return &Dashboard{Accounts: accounts, Movements: movements}, nil
}
