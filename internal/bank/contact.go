// internal/bank/contact.go
//
// 聯絡人：使用者替他人帳戶取的別名，轉帳時作為目的地。

package bank

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"aceitubank/internal/storage"

	"gorm.io/gorm"
)

// Contact 為使用者替某個帳戶取的別名，轉帳時作為目的地。
// 同一使用者的 (alias) 與 (linked account) 皆唯一。
// 已被轉帳引用的聯絡人不可刪除（OnDelete:RESTRICT）。
type Contact struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	OwnerID         uint      `gorm:"not null;index:idx_contact_owner_alias,unique;index:idx_contact_owner_account,unique" json:"owner_id"`
	Owner           *User     `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Alias           string    `gorm:"size:100;not null;index:idx_contact_owner_alias,unique" json:"alias"`
	LinkedAccountID uint      `gorm:"not null;index:idx_contact_owner_account,unique" json:"linked_account_id"`
	LinkedAccount   *Account  `gorm:"constraint:OnDelete:CASCADE" json:"linked_account,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// ContactRequest 為新增／修改聯絡人的表單：以收款人 RUT 與帳號找出目的帳戶。
type ContactRequest struct {
	Alias         string `json:"alias"`
	RUT           string `json:"rut"`
	AccountNumber string `json:"account_number"`
}

const maxAliasLen = 100

func (r *ContactRequest) validate() error {
	r.Alias = strings.TrimSpace(r.Alias)
	r.RUT = NormalizeRUT(r.RUT)
	r.AccountNumber = strings.TrimSpace(r.AccountNumber)
	if r.Alias == "" || len(r.Alias) > maxAliasLen {
		return fmt.Errorf("alias must be 1-%d characters: %w", maxAliasLen, ErrInvalidInput)
	}
	if r.RUT == "" || len(r.RUT) > maxRUTLen {
		return fmt.Errorf("rut must be 1-%d characters: %w", maxRUTLen, ErrInvalidInput)
	}
	if r.AccountNumber == "" || len(r.AccountNumber) > maxAccountNumberLen {
		return fmt.Errorf("account number must be 1-%d characters: %w", maxAccountNumberLen, ErrInvalidInput)
	}
	return nil
}

// resolveLinkedAccount 依 RUT 找使用者、再依 (使用者, 帳號) 找帳戶。任一失敗皆回傳 ErrContactMismatch。
func resolveLinkedAccount(tx *gorm.DB, rut, number string) (*Account, error) {
	var owner User
	if err := tx.Where("rut = ?", rut).First(&owner).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrContactMismatch
		}
		return nil, fmt.Errorf("lookup rut: %w", err)
	}
	var acc Account
	if err := tx.Where("owner_id = ? AND account_number = ?", owner.ID, number).First(&acc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrContactMismatch
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}
	acc.Owner = &owner
	return &acc, nil
}

// checkContactUnique 檢查別名與目的帳戶是否已被同一使用者的其他聯絡人使用。
func checkContactUnique(tx *gorm.DB, ownerID, selfID uint, alias string, accountID uint) error {
	var count int64
	err := tx.Model(&Contact{}).
		Where("owner_id = ? AND id <> ? AND (alias = ? OR linked_account_id = ?)", ownerID, selfID, alias, accountID).
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("check contact: %w", err)
	}
	if count > 0 {
		return ErrDuplicateContact
	}
	return nil
}

// Contacts 列出使用者的聯絡人（依別名排序，含目的帳戶與其擁有者）。
func (b *Bank) Contacts(ctx context.Context, ownerID uint) ([]Contact, error) {
	var out []Contact
	err := b.db.WithContext(ctx).
		Preload("LinkedAccount.Owner").
		Where("owner_id = ?", ownerID).
		Order("alias ASC").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	return out, nil
}

// Contact 取得屬於 ownerID 的聯絡人。
func (b *Bank) Contact(ctx context.Context, ownerID, id uint) (*Contact, error) {
	var c Contact
	err := b.db.WithContext(ctx).
		Preload("LinkedAccount.Owner").
		Where("id = ? AND owner_id = ?", id, ownerID).
		First(&c).Error
	if err != nil {
		return nil, notFound("contact", id, err)
	}
	return &c, nil
}

// CreateContact 新增聯絡人。
func (b *Bank) CreateContact(ctx context.Context, ownerID uint, req ContactRequest) (*Contact, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	var c *Contact
	err := b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		acc, err := resolveLinkedAccount(tx, req.RUT, req.AccountNumber)
		if err != nil {
			return err
		}
		if err := checkContactUnique(tx, ownerID, 0, req.Alias, acc.ID); err != nil {
			return err
		}
		c = &Contact{OwnerID: ownerID, Alias: req.Alias, LinkedAccountID: acc.ID, CreatedAt: b.now()}
		if err := tx.Create(c).Error; err != nil {
			if storage.IsUniqueViolation(err) {
				return ErrDuplicateContact
			}
			return fmt.Errorf("create contact: %w", err)
		}
		c.LinkedAccount = acc
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateContact 修改聯絡人的別名或目的帳戶。
func (b *Bank) UpdateContact(ctx context.Context, ownerID, id uint, req ContactRequest) (*Contact, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	var c Contact
	err := b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND owner_id = ?", id, ownerID).First(&c).Error; err != nil {
			return notFound("contact", id, err)
		}
		acc, err := resolveLinkedAccount(tx, req.RUT, req.AccountNumber)
		if err != nil {
			return err
		}
		if err := checkContactUnique(tx, ownerID, c.ID, req.Alias, acc.ID); err != nil {
			return err
		}
		err = tx.Model(&c).Updates(map[string]any{
			"alias":             req.Alias,
			"linked_account_id": acc.ID,
		}).Error
		if err != nil {
			if storage.IsUniqueViolation(err) {
				return ErrDuplicateContact
			}
			return fmt.Errorf("update contact: %w", err)
		}
		c.Alias = req.Alias
		c.LinkedAccountID = acc.ID
		c.LinkedAccount = acc
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// DeleteContact 刪除聯絡人；已有轉帳引用時回傳 ErrContactInUse。
func (b *Bank) DeleteContact(ctx context.Context, ownerID, id uint) error {
	return b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c Contact
		if err := tx.Where("id = ? AND owner_id = ?", id, ownerID).First(&c).Error; err != nil {
			return notFound("contact", id, err)
		}
		var refs int64
		if err := tx.Model(&Transfer{}).Where("contact_id = ?", c.ID).Count(&refs).Error; err != nil {
			return fmt.Errorf("count transfers: %w", err)
		}
		if refs > 0 {
			return ErrContactInUse
		}
		if err := tx.Delete(&c).Error; err != nil {
			if storage.IsForeignKeyViolation(err) {
				return ErrContactInUse
			}
			return fmt.Errorf("delete contact: %w", err)
		}
		return nil
	})
}
