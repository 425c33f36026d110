// internal/bank/transfer.go
//
// 轉帳流程：唯一真正需要處理並行存取的操作。
// 在單一資料庫交易中完成「鎖定 → 檢查餘額 → 扣款 → 入帳 → 兩筆明細 → 轉帳紀錄」，
// 任一步驟失敗則整筆回滾，不留下任何部分寫入。

package bank

import (
	"context"
	"errors"
	"fmt"
	"time"

	"aceitubank/internal/metrics"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TransferStatus 為轉帳狀態。
type TransferStatus string

const (
	TransferPending   TransferStatus = "Pending"
	TransferCompleted TransferStatus = "Completed"
	TransferFailed    TransferStatus = "Failed"
)

// Valid 回報是否為已知狀態。
func (s TransferStatus) Valid() bool {
	switch s {
	case TransferPending, TransferCompleted, TransferFailed:
		return true
	}
	return false
}

// Transfer 為一次轉帳的稽核紀錄。建立後不再修改；
// 對應的兩筆 Transaction 與它在同一個資料庫交易中寫入。
type Transfer struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	OriginAccountID uint            `gorm:"index;not null" json:"origin_account_id"`
	OriginAccount   *Account        `gorm:"constraint:OnDelete:CASCADE" json:"origin_account,omitempty"`
	ContactID       uint            `gorm:"index;not null" json:"contact_id"`
	Contact         *Contact        `gorm:"constraint:OnDelete:RESTRICT" json:"contact,omitempty"`
	Amount          decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount"`
	Note            string          `gorm:"type:text" json:"note"`
	Status          TransferStatus  `gorm:"size:12;not null;default:Pending;index" json:"status"`
	CreatedAt       time.Time       `gorm:"index" json:"created_at"`
}

// transition 只允許 Pending→Completed 與 Pending→Failed。
func (t *Transfer) transition(to TransferStatus) error {
	if t.Status != TransferPending || (to != TransferCompleted && to != TransferFailed) {
		return fmt.Errorf("%s -> %s: %w", t.Status, to, ErrInvalidTransition)
	}
	t.Status = to
	return nil
}

// TransferRequest 為轉帳參數。
type TransferRequest struct {
	OriginAccountID uint            `json:"origin_account_id"`
	ContactID       uint            `json:"contact_id"`
	Amount          decimal.Decimal `json:"amount"`
	Note            string          `json:"note"`
}

const maxDescriptionLen = 255

// PerformTransfer 由來源帳戶轉帳到聯絡人連結的帳戶。
//
// 兩個帳戶列一律依帳戶 ID 由小到大以 SELECT ... FOR UPDATE 鎖定，
// 互相轉帳的兩筆並行請求因此以相同順序取鎖，不會死結。
// 金額 <= 0 或超過兩位小數回傳 ErrInvalidAmount、餘額不足回傳 ErrInsufficientFunds；
// 兩者與任何資料庫錯誤一樣，都不會留下任何寫入。
func (b *Bank) PerformTransfer(ctx context.Context, req TransferRequest) (*Transfer, error) {
	start := time.Now()
	t, err := b.performTransfer(ctx, req)
	b.metrics.RecordTransfer(transferOutcome(err), req.Amount.InexactFloat64(), time.Since(start))

	if err != nil {
		lvl := b.log.Info
		if transferOutcome(err) == metrics.OutcomeError {
			lvl = b.log.Error
		}
		lvl("transfer rejected",
			zap.Uint("origin_account_id", req.OriginAccountID),
			zap.Uint("contact_id", req.ContactID),
			zap.String("amount", req.Amount.String()),
			zap.Error(err))
		return nil, err
	}
	b.log.Info("transfer completed",
		zap.Uint("transfer_id", t.ID),
		zap.Uint("origin_account_id", t.OriginAccountID),
		zap.Uint("contact_id", t.ContactID),
		zap.String("amount", t.Amount.String()))
	return t, nil
}

func (b *Bank) performTransfer(ctx context.Context, req TransferRequest) (*Transfer, error) {
	// 1. 金額檢查在開啟交易前完成
	if !validAmount(req.Amount) {
		return nil, ErrInvalidAmount
	}

	var out *Transfer
	err := b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var contact Contact
		if err := tx.First(&contact, req.ContactID).Error; err != nil {
			return notFound("contact", req.ContactID, err)
		}
		if contact.LinkedAccountID == req.OriginAccountID {
			return ErrSameAccount
		}

		locked, err := lockAccounts(tx, req.OriginAccountID, contact.LinkedAccountID)
		if err != nil {
			return err
		}
		origin, dest := locked[req.OriginAccountID], locked[contact.LinkedAccountID]

		// 2. 已鎖定的最新餘額
		if origin.Balance.LessThan(req.Amount) {
			return ErrInsufficientFunds
		}
		// 入帳後超出欄位上限同樣視為金額非法
		if !fitsMoney(dest.Balance.Add(req.Amount)) {
			return ErrInvalidAmount
		}

		owners, err := usernames(tx, origin.OwnerID, dest.OwnerID)
		if err != nil {
			return err
		}
		now := b.now()

		// 3. 扣款與支出明細
		origin.Balance = origin.Balance.Sub(req.Amount)
		if err := tx.Model(origin).Update("balance", origin.Balance).Error; err != nil {
			return fmt.Errorf("debit account %d: %w", origin.ID, err)
		}
		if err := tx.Create(&Transaction{
			AccountID:   origin.ID,
			Type:        TransactionExpense,
			Amount:      req.Amount,
			Date:        now,
			Description: truncate(fmt.Sprintf("Transfer to %s (%s)", contact.Alias, owners[dest.OwnerID]), maxDescriptionLen),
		}).Error; err != nil {
			return fmt.Errorf("record expense: %w", err)
		}

		// 4. 入帳與收入明細
		dest.Balance = dest.Balance.Add(req.Amount)
		if err := tx.Model(dest).Update("balance", dest.Balance).Error; err != nil {
			return fmt.Errorf("credit account %d: %w", dest.ID, err)
		}
		if err := tx.Create(&Transaction{
			AccountID:   dest.ID,
			Type:        TransactionIncome,
			Amount:      req.Amount,
			Date:        now,
			Description: truncate(fmt.Sprintf("Transfer received from %s", owners[origin.OwnerID]), maxDescriptionLen),
		}).Error; err != nil {
			return fmt.Errorf("record income: %w", err)
		}

		// 5. 轉帳紀錄：Pending → Completed 後才寫入
		t := &Transfer{
			OriginAccountID: origin.ID,
			ContactID:       contact.ID,
			Amount:          req.Amount,
			Note:            req.Note,
			Status:          TransferPending,
			CreatedAt:       now,
		}
		if err := t.transition(TransferCompleted); err != nil {
			return err
		}
		if err := tx.Create(t).Error; err != nil {
			return fmt.Errorf("record transfer: %w", err)
		}
		out = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// lockAccounts 依 ID 由小到大逐列鎖定並重新載入帳戶。
// SQLite 會忽略 FOR UPDATE，由單一連線保證序列化。
func lockAccounts(tx *gorm.DB, a, b uint) (map[uint]*Account, error) {
	ids := []uint{a, b}
	if b < a {
		ids = []uint{b, a}
	}
	out := make(map[uint]*Account, 2)
	for _, id := range ids {
		var acc Account
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&acc, id).Error
		if err != nil {
			return nil, notFound("account", id, err)
		}
		out[id] = &acc
	}
	return out, nil
}

func usernames(tx *gorm.DB, ids ...uint) (map[uint]string, error) {
	var users []User
	if err := tx.Select("id", "username").Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("load owners: %w", err)
	}
	out := make(map[uint]string, len(users))
	for _, u := range users {
		out[u.ID] = u.Username
	}
	return out, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// transferOutcome 將錯誤對應到指標標籤。
func transferOutcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeCompleted
	case errors.Is(err, ErrInvalidAmount):
		return metrics.OutcomeInvalidAmount
	case errors.Is(err, ErrInsufficientFunds):
		return metrics.OutcomeInsufficientFunds
	case errors.Is(err, ErrSameAccount):
		return metrics.OutcomeSameAccount
	case errors.Is(err, ErrNotFound):
		return metrics.OutcomeNotFound
	default:
		return metrics.OutcomeError
	}
}

// Transfer 以使用者身分轉帳：來源帳戶與聯絡人都必須屬於 userID，否則視為不存在。
func (b *Bank) Transfer(ctx context.Context, userID uint, req TransferRequest) (*Transfer, error) {
	// 非法金額不需查詢擁有權，直接交給 PerformTransfer 回報（並計入指標）
	if !validAmount(req.Amount) {
		return b.PerformTransfer(ctx, req)
	}
	if _, err := b.ownedAccount(ctx, userID, req.OriginAccountID); err != nil {
		return nil, err
	}
	if _, err := b.Contact(ctx, userID, req.ContactID); err != nil {
		return nil, err
	}
	return b.PerformTransfer(ctx, req)
}

// Transfers 列出使用者帳戶發出的轉帳，新者在前。
func (b *Bank) Transfers(ctx context.Context, userID uint) ([]Transfer, error) {
	var out []Transfer
	err := b.db.WithContext(ctx).
		Preload("OriginAccount").
		Preload("Contact").
		Where("origin_account_id IN (?)", b.db.Model(&Account{}).Select("id").Where("owner_id = ?", userID)).
		Order("created_at DESC").Order("id DESC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list transfers: %w", err)
	}
	return out, nil
}
