// internal/bank/bank_test.go
//
// 測試共用的輔助函式，以及帳戶與快照相關測試。
// 每個測試使用獨立的 SQLite 記憶體資料庫，不依賴外部服務。

package bank

import (
	"context"
	"errors"
	"strings"
	"testing"

	"aceitubank/internal/config"
	"aceitubank/internal/metrics/memory"
	"aceitubank/internal/storage"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

// newTestBank 建立以記憶體資料庫為底的 Bank，並回傳其 metrics 收集器。
func newTestBank(t *testing.T, opts ...Option) (*Bank, *memory.MemoryCollector) {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := storage.Open(config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    "file:" + name + "?mode=memory&cache=shared",
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { storage.Close(db) })
	if err := Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	mc := memory.NewMemoryCollector()
	opts = append([]Option{WithBcryptCost(bcrypt.MinCost), WithMetrics(mc)}, opts...)
	return NewBank(db, opts...), mc
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// mustUser 註冊使用者，密碼固定為 "password123"。
func mustUser(t *testing.T, b *Bank, username, rut string) *User {
	t.Helper()
	u, err := b.Register(context.Background(), SignupRequest{
		Username:        username,
		Email:           username + "@example.com",
		RUT:             rut,
		Password:        "password123",
		PasswordConfirm: "password123",
	})
	if err != nil {
		t.Fatalf("Register(%s): %v", username, err)
	}
	return u
}

func mustAccount(t *testing.T, b *Bank, ownerID uint, balance string) *Account {
	t.Helper()
	a, err := b.OpenAccount(context.Background(), OpenAccountRequest{
		OwnerID: ownerID,
		Type:    AccountChecking,
		Balance: dec(balance),
	})
	if err != nil {
		t.Fatalf("OpenAccount(owner=%d): %v", ownerID, err)
	}
	return a
}

// mustContact 讓 owner 新增一個指向 target 帳戶的聯絡人。
func mustContact(t *testing.T, b *Bank, ownerID uint, alias string, target *User, acc *Account) *Contact {
	t.Helper()
	c, err := b.CreateContact(context.Background(), ownerID, ContactRequest{
		Alias:         alias,
		RUT:           target.RUT,
		AccountNumber: acc.Number,
	})
	if err != nil {
		t.Fatalf("CreateContact(%s): %v", alias, err)
	}
	return c
}

func balanceOf(t *testing.T, b *Bank, id uint) decimal.Decimal {
	t.Helper()
	a, err := b.Account(context.Background(), id)
	if err != nil {
		t.Fatalf("Account(%d): %v", id, err)
	}
	return a.Balance
}

func countRows(t *testing.T, b *Bank, model any) int64 {
	t.Helper()
	var n int64
	if err := b.db.Model(model).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func TestOpenAccountGeneratesNumber(t *testing.T) {
	b, _ := newTestBank(t)
	u := mustUser(t, b, "ana", "12.345.678-9")

	a1 := mustAccount(t, b, u.ID, "0")
	a2 := mustAccount(t, b, u.ID, "10.50")
	if a1.Number != "12345678901" || a2.Number != "12345678902" {
		t.Fatalf("numbers = %q, %q", a1.Number, a2.Number)
	}
	if got := balanceOf(t, b, a2.ID); !got.Equal(dec("10.5")) {
		t.Fatalf("balance = %s want 10.50", got)
	}

	accounts, err := b.Accounts(context.Background(), u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(accounts) != 2 || accounts[0].ID != a2.ID {
		t.Fatalf("accounts should be newest first: %+v", accounts)
	}
}

func TestOpenAccountSkipsTakenNumber(t *testing.T) {
	b, _ := newTestBank(t)
	u := mustUser(t, b, "ana", "11111111-1")
	ctx := context.Background()

	if _, err := b.OpenAccount(ctx, OpenAccountRequest{OwnerID: u.ID, Type: AccountSavings, Number: "11111111102"}); err != nil {
		t.Fatal(err)
	}
	// 帳戶數 1 → 序號 02 已占用，應跳到 03
	a := mustAccount(t, b, u.ID, "0")
	if a.Number != "11111111103" {
		t.Fatalf("number = %q want 11111111103", a.Number)
	}
}

func TestOpenAccountValidation(t *testing.T) {
	b, _ := newTestBank(t)
	u := mustUser(t, b, "ana", "1-9")
	ctx := context.Background()

	if _, err := b.OpenAccount(ctx, OpenAccountRequest{OwnerID: u.ID, Type: AccountChecking, Balance: dec("-1")}); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("negative balance: want ErrInvalidAmount, got %v", err)
	}
	for _, bal := range []string{"10.005", "1000000000000"} {
		if _, err := b.OpenAccount(ctx, OpenAccountRequest{OwnerID: u.ID, Type: AccountChecking, Balance: dec(bal)}); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("balance %s: want ErrInvalidAmount, got %v", bal, err)
		}
	}
	if _, err := b.OpenAccount(ctx, OpenAccountRequest{OwnerID: u.ID, Type: "XX"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("bad type: want ErrInvalidInput, got %v", err)
	}
	if _, err := b.OpenAccount(ctx, OpenAccountRequest{OwnerID: 999, Type: AccountChecking}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing owner: want ErrNotFound, got %v", err)
	}
	mustAccount(t, b, u.ID, "0")
	_, err := b.OpenAccount(ctx, OpenAccountRequest{OwnerID: u.ID, Type: AccountChecking, Number: "1901"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("duplicate number: want ErrInvalidInput, got %v", err)
	}
}

func TestSnapshot(t *testing.T) {
	b, _ := newTestBank(t)
	ctx := context.Background()
	alice := mustUser(t, b, "alice", "1-1")
	bob := mustUser(t, b, "bob", "2-2")
	a := mustAccount(t, b, alice.ID, "300")
	bb := mustAccount(t, b, bob.ID, "200")
	c := mustContact(t, b, alice.ID, "Bob", bob, bb)

	if _, err := b.Transfer(ctx, alice.ID, TransferRequest{OriginAccountID: a.ID, ContactID: c.ID, Amount: dec("50")}); err != nil {
		t.Fatal(err)
	}

	snap, err := b.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if len(snap.Accounts) != 2 || snap.Transfers != 1 || snap.LineCount() != 2 {
		t.Fatalf("snapshot accounts=%d transfers=%d lines=%d", len(snap.Accounts), snap.Transfers, snap.LineCount())
	}
	if !snap.TotalBalance().Equal(dec("500")) {
		t.Fatalf("total = %s want 500", snap.TotalBalance())
	}
	if snap.Meta.Version != 2 {
		t.Fatalf("version = %d", snap.Meta.Version)
	}
	for _, pa := range snap.Accounts {
		if len(pa.Lines) != 1 {
			t.Fatalf("account %s lines = %d want 1", pa.Number, len(pa.Lines))
		}
	}
}
