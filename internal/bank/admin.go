// internal/bank/admin.go
//
// 管理後台查詢：跨使用者的列表、篩選與搜尋（不分大小寫）。

package bank

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// likePattern 將搜尋字串轉為小寫 LIKE 樣式。
func likePattern(q string) string {
	q = strings.ToLower(strings.TrimSpace(q))
	q = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(q)
	return "%" + q + "%"
}

// SearchUsers 依 username / email / RUT 搜尋使用者；q 為空時列出全部。
func (b *Bank) SearchUsers(ctx context.Context, q string) ([]User, error) {
	db := b.db.WithContext(ctx).Order("username ASC")
	if strings.TrimSpace(q) != "" {
		p := likePattern(q)
		db = db.Where(`LOWER(username) LIKE ? ESCAPE '\' OR LOWER(email) LIKE ? ESCAPE '\' OR LOWER(rut) LIKE ? ESCAPE '\'`, p, p, p)
	}
	var out []User
	if err := db.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	return out, nil
}

// AllAccounts 列出所有帳戶（含擁有者），新者在前。
func (b *Bank) AllAccounts(ctx context.Context) ([]Account, error) {
	var out []Account
	err := b.db.WithContext(ctx).Preload("Owner").
		Order("created_at DESC").Order("id DESC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return out, nil
}

// AllContacts 列出所有聯絡人（含建立者、目的帳戶與其擁有者）。
func (b *Bank) AllContacts(ctx context.Context) ([]Contact, error) {
	var out []Contact
	err := b.db.WithContext(ctx).Preload("Owner").Preload("LinkedAccount.Owner").
		Order("alias ASC").Order("id ASC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	return out, nil
}

// TransferFilter 為後台轉帳列表的篩選條件；零值代表不篩選。
type TransferFilter struct {
	Status TransferStatus
	// Query 比對聯絡人別名或來源帳號
	Query string
}

// AllTransfers 依條件列出轉帳，新者在前。
func (b *Bank) AllTransfers(ctx context.Context, f TransferFilter) ([]Transfer, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, fmt.Errorf("status %q: %w", f.Status, ErrInvalidInput)
	}
	db := b.db.WithContext(ctx)
	q := db.Preload("OriginAccount").Preload("Contact")
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if strings.TrimSpace(f.Query) != "" {
		p := likePattern(f.Query)
		q = q.Where(
			db.Where("contact_id IN (?)", subquery(db, &Contact{}, `LOWER(alias) LIKE ? ESCAPE '\'`, p)).
				Or("origin_account_id IN (?)", subquery(db, &Account{}, `LOWER(account_number) LIKE ? ESCAPE '\'`, p)),
		)
	}
	var out []Transfer
	if err := q.Order("created_at DESC").Order("id DESC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list transfers: %w", err)
	}
	return out, nil
}

func subquery(db *gorm.DB, model any, where string, args ...any) *gorm.DB {
	return db.Model(model).Select("id").Where(where, args...)
}

// TransactionFilter 為後台明細列表的篩選條件。
type TransactionFilter struct {
	Type TransactionType
	// Query 比對描述或帳號
	Query string
}

// AllTransactions 依條件列出明細，新者在前。
func (b *Bank) AllTransactions(ctx context.Context, f TransactionFilter) ([]Transaction, error) {
	if f.Type != "" && !f.Type.Valid() {
		return nil, fmt.Errorf("type %q: %w", f.Type, ErrInvalidInput)
	}
	db := b.db.WithContext(ctx)
	q := db.Preload("Account")
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if strings.TrimSpace(f.Query) != "" {
		p := likePattern(f.Query)
		q = q.Where(
			db.Where(`LOWER(description) LIKE ? ESCAPE '\'`, p).
				Or("account_id IN (?)", subquery(db, &Account{}, `LOWER(account_number) LIKE ? ESCAPE '\'`, p)),
		)
	}
	var out []Transaction
	if err := q.Order("date DESC").Order("id DESC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return out, nil
}
