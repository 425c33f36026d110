// internal/storage/model.go
//
// 定義 JSON 快照（備份）的序列化格式。
// 此層只描述資料結構，帳戶與明細的轉換由 bank 層負責。
package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// SnapshotVersion 為目前的快照格式版本。
const SnapshotVersion = 2

// Meta 為快照中繼資料：儲存方式、版本、建立時間與備註。
type Meta struct {
	Storage   string    `json:"storage"`
	Version   int       `json:"version"`
	Timestamp time.Time `json:"timestamp"`
	Note      string    `json:"note,omitempty"`
}

// PersistLine 為一筆明細（ledger line）的序列化格式。
type PersistLine struct {
	ID          uint            `json:"id"`
	Type        string          `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Date        time.Time       `json:"date"`
	Description string          `json:"description,omitempty"`
}

// PersistAccount 為帳戶與其明細的序列化格式。
type PersistAccount struct {
	ID      uint            `json:"id"`
	Number  string          `json:"account_number"`
	OwnerID uint            `json:"owner_id"`
	Type    string          `json:"account_type"`
	Balance decimal.Decimal `json:"balance"`
	Lines   []PersistLine   `json:"lines"`
}

// Snapshot 為帳本的完整快照。
type Snapshot struct {
	Meta      Meta             `json:"_meta"`
	Transfers int64            `json:"transfers"`
	Accounts  []PersistAccount `json:"accounts"`
}

// TotalBalance 回傳所有帳戶餘額總和。
func (s Snapshot) TotalBalance() decimal.Decimal {
	total := decimal.Zero
	for _, a := range s.Accounts {
		total = total.Add(a.Balance)
	}
	return total
}

// LineCount 回傳明細總筆數。
func (s Snapshot) LineCount() int {
	n := 0
	for _, a := range s.Accounts {
		n += len(a.Lines)
	}
	return n
}
