// Package bank 定義核心領域模型與業務規則。
// 本檔定義帳戶與交易明細結構，不含任何 HTTP 細節。

package bank

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountType 為帳戶類型代碼。
type AccountType string

const (
	AccountChecking AccountType = "CC"
	AccountSavings  AccountType = "CA"
	AccountSalary   AccountType = "CS"
)

// Valid 回報是否為已知的帳戶類型。
func (t AccountType) Valid() bool {
	switch t {
	case AccountChecking, AccountSavings, AccountSalary:
		return true
	}
	return false
}

// Label 回傳顯示用名稱。
func (t AccountType) Label() string {
	switch t {
	case AccountChecking:
		return "Checking account"
	case AccountSavings:
		return "Savings account"
	case AccountSalary:
		return "Salary account"
	}
	return string(t)
}

// Account 為銀行帳戶。
// Balance 以 numeric(14,2) 儲存，任何已提交的轉帳之後都不得為負。
// Number 全系統唯一；Owner 被刪除時帳戶一併刪除（見 DeleteUser）。
type Account struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	OwnerID   uint            `gorm:"index;not null" json:"owner_id"`
	Owner     *User           `gorm:"constraint:OnDelete:CASCADE" json:"owner,omitempty"`
	Number    string          `gorm:"column:account_number;size:20;uniqueIndex;not null" json:"account_number"`
	Type      AccountType     `gorm:"column:account_type;size:2;not null" json:"account_type"`
	Balance   decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
}

// TransactionType 為明細方向。
type TransactionType string

const (
	TransactionIncome  TransactionType = "Income"
	TransactionExpense TransactionType = "Expense"
)

// Valid 回報是否為已知的方向。
func (t TransactionType) Valid() bool {
	return t == TransactionIncome || t == TransactionExpense
}

// Transaction 為帳戶的一筆明細（收入或支出）。
// 僅由轉帳流程寫入，之後不再修改；每筆完成的轉帳恰好產生兩筆。
type Transaction struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	AccountID   uint            `gorm:"index;not null" json:"account_id"`
	Account     *Account        `gorm:"constraint:OnDelete:CASCADE" json:"account,omitempty"`
	Type        TransactionType `gorm:"size:10;not null" json:"type"`
	Amount      decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount"`
	Date        time.Time       `gorm:"index;not null" json:"date"`
	Description string          `gorm:"size:255" json:"description"`
}

// 金額欄位為 numeric(14,2)：最多兩位小數，絕對值小於 10^12。
var maxMoney = decimal.New(1, 12)

// fitsMoney 回報金額能否無損存入 numeric(14,2) 欄位。
// 超過兩位小數的值在 PostgreSQL 會被四捨五入（0.001 → 0.00），因此一律拒絕。
func fitsMoney(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(2)) && d.Abs().LessThan(maxMoney)
}

// validAmount 回報是否為合法的轉帳金額：大於 0 且符合欄位精度。
func validAmount(d decimal.Decimal) bool {
	return d.IsPositive() && fitsMoney(d)
}

// Signed 回傳帶正負號的金額：支出為負、收入為正。
func (t Transaction) Signed() decimal.Decimal {
	if t.Type == TransactionExpense {
		return t.Amount.Neg()
	}
	return t.Amount
}
