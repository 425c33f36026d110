// internal/server/views.go
//
// 回應用的檢視結構。聯絡人與轉帳會帶到其他使用者的帳戶，
// 只輸出帳號與擁有者名稱，不外流對方的餘額、RUT 或 email。
package server

import (
	"time"

	"aceitubank/internal/bank"

	"github.com/shopspring/decimal"
)

type accountView struct {
	ID        uint             `json:"id"`
	Number    string           `json:"account_number"`
	Type      bank.AccountType `json:"account_type"`
	TypeLabel string           `json:"account_type_label"`
	Balance   decimal.Decimal  `json:"balance"`
	Owner     string           `json:"owner,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

func newAccountView(a bank.Account) accountView {
	v := accountView{
		ID:        a.ID,
		Number:    a.Number,
		Type:      a.Type,
		TypeLabel: a.Type.Label(),
		Balance:   a.Balance,
		CreatedAt: a.CreatedAt,
	}
	if a.Owner != nil {
		v.Owner = a.Owner.Username
	}
	return v
}

func accountViews(in []bank.Account) []accountView {
	out := make([]accountView, 0, len(in))
	for _, a := range in {
		out = append(out, newAccountView(a))
	}
	return out
}

type contactView struct {
	ID            uint      `json:"id"`
	Alias         string    `json:"alias"`
	AccountNumber string    `json:"account_number"`
	AccountOwner  string    `json:"account_owner"`
	Owner         string    `json:"owner,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func newContactView(c bank.Contact) contactView {
	v := contactView{ID: c.ID, Alias: c.Alias, CreatedAt: c.CreatedAt}
	if c.Owner != nil {
		v.Owner = c.Owner.Username
	}
	if c.LinkedAccount != nil {
		v.AccountNumber = c.LinkedAccount.Number
		if c.LinkedAccount.Owner != nil {
			v.AccountOwner = c.LinkedAccount.Owner.Username
		}
	}
	return v
}

func contactViews(in []bank.Contact) []contactView {
	out := make([]contactView, 0, len(in))
	for _, c := range in {
		out = append(out, newContactView(c))
	}
	return out
}

type transferView struct {
	ID            uint                `json:"id"`
	OriginAccount string              `json:"origin_account"`
	ContactID     uint                `json:"contact_id"`
	ContactAlias  string              `json:"contact_alias"`
	Amount        decimal.Decimal     `json:"amount"`
	Note          string              `json:"note"`
	Status        bank.TransferStatus `json:"status"`
	CreatedAt     time.Time           `json:"created_at"`
}

func newTransferView(t bank.Transfer) transferView {
	v := transferView{
		ID:        t.ID,
		ContactID: t.ContactID,
		Amount:    t.Amount,
		Note:      t.Note,
		Status:    t.Status,
		CreatedAt: t.CreatedAt,
	}
	if t.OriginAccount != nil {
		v.OriginAccount = t.OriginAccount.Number
	}
	if t.Contact != nil {
		v.ContactAlias = t.Contact.Alias
	}
	return v
}

func transferViews(in []bank.Transfer) []transferView {
	out := make([]transferView, 0, len(in))
	for _, t := range in {
		out = append(out, newTransferView(t))
	}
	return out
}

type transactionView struct {
	ID          uint                 `json:"id"`
	Account     string               `json:"account_number"`
	Type        bank.TransactionType `json:"type"`
	Amount      decimal.Decimal      `json:"amount"`
	Signed      decimal.Decimal      `json:"signed_amount"`
	Date        time.Time            `json:"date"`
	Description string               `json:"description"`
}

func newTransactionView(t bank.Transaction) transactionView {
	v := transactionView{
		ID:          t.ID,
		Type:        t.Type,
		Amount:      t.Amount,
		Signed:      t.Signed(),
		Date:        t.Date,
		Description: t.Description,
	}
	if t.Account != nil {
		v.Account = t.Account.Number
	}
	return v
}

func transactionViews(in []bank.Transaction) []transactionView {
	out := make([]transactionView, 0, len(in))
	for _, t := range in {
		out = append(out, newTransactionView(t))
	}
	return out
}

// pageView 為分頁明細的回應結構。
type pageView struct {
	Items       []transactionView `json:"items"`
	Page        int               `json:"page"`
	NumPages    int               `json:"num_pages"`
	Total       int64             `json:"total"`
	HasNext     bool              `json:"has_next"`
	HasPrevious bool              `json:"has_previous"`
}

func newPageView(p bank.Page[bank.Transaction]) pageView {
	return pageView{
		Items:       transactionViews(p.Items),
		Page:        p.Number,
		NumPages:    p.NumPages,
		Total:       p.Total,
		HasNext:     p.HasNext,
		HasPrevious: p.HasPrevious,
	}
}
