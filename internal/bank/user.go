// internal/bank/user.go
//
// 使用者註冊、登入驗證與 session 管理。

package bank

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"aceitubank/internal/auth"
	"aceitubank/internal/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// User 為系統使用者，以唯一的 RUT（智利身分證號）識別。
// 密碼只保存 bcrypt 雜湊，JSON 輸出時略去。
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"size:150;uniqueIndex;not null" json:"username"`
	Email        string    `gorm:"size:254" json:"email"`
	RUT          string    `gorm:"column:rut;size:12;uniqueIndex;not null" json:"rut"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	IsStaff      bool      `gorm:"not null;default:false" json:"is_staff"`
	CreatedAt    time.Time `json:"created_at"`
}

// Session 為一次登入；ID 同時是 token 的 jti。登出時標記 Revoked。
type Session struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	User      *User     `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	ExpiresAt time.Time `gorm:"index;not null" json:"expires_at"`
	Revoked   bool      `gorm:"index;not null;default:false" json:"revoked"`
	CreatedAt time.Time `json:"created_at"`
}

var usernameRe = regexp.MustCompile(`^[\w.@+-]{1,150}$`)

const maxRUTLen = 12

// NormalizeRUT 去除空白與千分位點並轉大寫（驗證碼 k → K），保留連字號。
func NormalizeRUT(rut string) string {
	rut = strings.TrimSpace(rut)
	rut = strings.ReplaceAll(rut, ".", "")
	rut = strings.ReplaceAll(rut, " ", "")
	return strings.ToUpper(rut)
}

// SignupRequest 為註冊表單。
type SignupRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	RUT             string `json:"rut"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

func (r *SignupRequest) validate() error {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.TrimSpace(r.Email)
	r.RUT = NormalizeRUT(r.RUT)

	if !usernameRe.MatchString(r.Username) {
		return fmt.Errorf("username must be 1-150 letters, digits or @.+-_: %w", ErrInvalidInput)
	}
	if r.RUT == "" || len(r.RUT) > maxRUTLen {
		return fmt.Errorf("rut must be 1-%d characters: %w", maxRUTLen, ErrInvalidInput)
	}
	if r.Email != "" && !strings.Contains(r.Email, "@") {
		return fmt.Errorf("invalid email: %w", ErrInvalidInput)
	}
	if r.Password != r.PasswordConfirm {
		return fmt.Errorf("passwords do not match: %w", ErrInvalidInput)
	}
	return nil
}

// Register 建立使用者。username 或 RUT 重複時回傳 ErrDuplicateUser。
func (b *Bank) Register(ctx context.Context, req SignupRequest) (*User, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	hash, err := auth.HashPassword(req.Password, b.bcryptCost)
	if err != nil {
		if errors.Is(err, auth.ErrWeakPassword) {
			return nil, fmt.Errorf("%v: %w", err, ErrInvalidInput)
		}
		return nil, err
	}

	u := &User{
		Username:     req.Username,
		Email:        req.Email,
		RUT:          req.RUT,
		PasswordHash: hash,
		CreatedAt:    b.now(),
	}
	err = b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&User{}).
			Where("LOWER(username) = LOWER(?) OR rut = ?", u.Username, u.RUT).
			Count(&count).Error; err != nil {
			return fmt.Errorf("check user: %w", err)
		}
		if count > 0 {
			return ErrDuplicateUser
		}
		if err := tx.Create(u).Error; err != nil {
			if storage.IsUniqueViolation(err) {
				return ErrDuplicateUser
			}
			return fmt.Errorf("create user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	b.log.Info("user registered", zap.Uint("user_id", u.ID), zap.String("username", u.Username))
	return u, nil
}

// Authenticate 以帳號密碼驗證使用者（username 不分大小寫）。
func (b *Bank) Authenticate(ctx context.Context, username, password string) (*User, error) {
	var u User
	err := b.db.WithContext(ctx).
		Where("LOWER(username) = LOWER(?)", strings.TrimSpace(username)).
		First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			b.metrics.RecordLogin(false)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !auth.CheckPassword(u.PasswordHash, password) {
		b.metrics.RecordLogin(false)
		return nil, ErrInvalidCredentials
	}
	b.metrics.RecordLogin(true)
	return &u, nil
}

// User 依 ID 取得使用者。
func (b *Bank) User(ctx context.Context, id uint) (*User, error) {
	var u User
	if err := b.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, notFound("user", id, err)
	}
	return &u, nil
}

// SetStaff 設定使用者的管理員權限。
func (b *Bank) SetStaff(ctx context.Context, username string, staff bool) (*User, error) {
	var u User
	db := b.db.WithContext(ctx)
	if err := db.Where("username = ?", username).First(&u).Error; err != nil {
		return nil, notFound("user", username, err)
	}
	if err := db.Model(&u).Update("is_staff", staff).Error; err != nil {
		return nil, fmt.Errorf("update staff flag: %w", err)
	}
	u.IsStaff = staff
	return &u, nil
}

// OpenSession 為使用者建立 ttl 內有效的 session。
func (b *Bank) OpenSession(ctx context.Context, userID uint, ttl time.Duration) (*Session, error) {
	now := b.now()
	s := &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	if err := b.db.WithContext(ctx).Create(s).Error; err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return s, nil
}

// ActiveSession 取得未撤銷且未過期的 session（含使用者）。
func (b *Bank) ActiveSession(ctx context.Context, id string) (*Session, error) {
	var s Session
	err := b.db.WithContext(ctx).Preload("User").
		Where("id = ? AND revoked = ? AND expires_at > ?", id, false, b.now()).
		First(&s).Error
	if err != nil {
		return nil, notFound("session", id, err)
	}
	if s.User == nil {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return &s, nil
}

// RevokeSession 撤銷 session；重複撤銷不視為錯誤。
func (b *Bank) RevokeSession(ctx context.Context, id string) error {
	err := b.db.WithContext(ctx).Model(&Session{}).Where("id = ?", id).Update("revoked", true).Error
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

// DeleteUser 刪除使用者並連帶刪除其帳戶、聯絡人、session、明細、由其帳戶發出的轉帳，
// 以及任何人連到其帳戶的聯絡人。若其他使用者的轉帳引用了將被刪除的聯絡人，回傳 ErrProtected。
func (b *Bank) DeleteUser(ctx context.Context, id uint) error {
	err := b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var u User
		if err := tx.First(&u, id).Error; err != nil {
			return notFound("user", id, err)
		}

		accountIDs := tx.Model(&Account{}).Select("id").Where("owner_id = ?", id)
		contactIDs := tx.Model(&Contact{}).Select("id").
			Where("owner_id = ? OR linked_account_id IN (?)", id, accountIDs)

		var protected int64
		if err := tx.Model(&Transfer{}).
			Where("contact_id IN (?) AND origin_account_id NOT IN (?)", contactIDs, accountIDs).
			Count(&protected).Error; err != nil {
			return fmt.Errorf("check protected transfers: %w", err)
		}
		if protected > 0 {
			return ErrProtected
		}

		steps := []struct {
			name  string
			model any
			query string
			args  []any
		}{
			{"transactions", &Transaction{}, "account_id IN (?)", []any{accountIDs}},
			{"transfers", &Transfer{}, "origin_account_id IN (?) OR contact_id IN (?)", []any{accountIDs, contactIDs}},
			{"contacts", &Contact{}, "owner_id = ? OR linked_account_id IN (?)", []any{id, accountIDs}},
			{"accounts", &Account{}, "owner_id = ?", []any{id}},
			{"sessions", &Session{}, "user_id = ?", []any{id}},
		}
		for _, s := range steps {
			if err := tx.Where(s.query, s.args...).Delete(s.model).Error; err != nil {
				return fmt.Errorf("delete %s: %w", s.name, err)
			}
		}
		if err := tx.Delete(&u).Error; err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	b.log.Info("user deleted", zap.Uint("user_id", id))
	return nil
}
