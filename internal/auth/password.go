// Package auth 提供密碼雜湊與 session token 簽發/驗證，不含任何資料庫存取。
package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrWeakPassword 代表密碼不符合最低長度或超過 bcrypt 上限。
var ErrWeakPassword = errors.New("password must be 8-72 characters")

// MinPasswordLen 為最短密碼長度。
const MinPasswordLen = 8

// HashPassword 以 bcrypt 雜湊密碼；cost <= 0 時使用 bcrypt.DefaultCost。
func HashPassword(password string, cost int) (string, error) {
	if len(password) < MinPasswordLen || len(password) > 72 {
		return "", ErrWeakPassword
	}
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword 比對明文與雜湊。
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
