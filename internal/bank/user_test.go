package bank

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRegisterValidation(t *testing.T) {
	b, _ := newTestBank(t)
	ctx := context.Background()
	mustUser(t, b, "ana", "12.345.678-K")

	cases := []struct {
		name string
		req  SignupRequest
		want error
	}{
		{"duplicate username", SignupRequest{Username: "ANA", RUT: "1-1", Password: "password123", PasswordConfirm: "password123"}, ErrDuplicateUser},
		{"duplicate rut", SignupRequest{Username: "other", RUT: "12345678-k", Password: "password123", PasswordConfirm: "password123"}, ErrDuplicateUser},
		{"password mismatch", SignupRequest{Username: "x", RUT: "2-2", Password: "password123", PasswordConfirm: "password124"}, ErrInvalidInput},
		{"short password", SignupRequest{Username: "x", RUT: "2-2", Password: "short", PasswordConfirm: "short"}, ErrInvalidInput},
		{"bad username", SignupRequest{Username: "has space", RUT: "2-2", Password: "password123", PasswordConfirm: "password123"}, ErrInvalidInput},
		{"missing rut", SignupRequest{Username: "x", Password: "password123", PasswordConfirm: "password123"}, ErrInvalidInput},
		{"bad email", SignupRequest{Username: "x", RUT: "2-2", Email: "nope", Password: "password123", PasswordConfirm: "password123"}, ErrInvalidInput},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := b.Register(ctx, tc.req); !errors.Is(err, tc.want) {
				t.Fatalf("want %v, got %v", tc.want, err)
			}
		})
	}
}

func TestNormalizeRUT(t *testing.T) {
	if got := NormalizeRUT(" 12.345.678-k "); got != "12345678-K" {
		t.Fatalf("NormalizeRUT = %q", got)
	}
}

func TestAuthenticate(t *testing.T) {
	b, mc := newTestBank(t)
	ctx := context.Background()
	u := mustUser(t, b, "Ana", "1-9")

	got, err := b.Authenticate(ctx, "ana", "password123")
	if err != nil || got.ID != u.ID {
		t.Fatalf("Authenticate: %v %+v", err, got)
	}
	if _, err := b.Authenticate(ctx, "ana", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("bad password: want ErrInvalidCredentials, got %v", err)
	}
	if _, err := b.Authenticate(ctx, "ghost", "password123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown user: want ErrInvalidCredentials, got %v", err)
	}
	if ok, failed := mc.Logins(); ok != 1 || failed != 2 {
		t.Fatalf("logins ok=%d failed=%d", ok, failed)
	}
}

func TestSessions(t *testing.T) {
	b, _ := newTestBank(t)
	ctx := context.Background()
	u := mustUser(t, b, "ana", "1-9")

	s, err := b.OpenSession(ctx, u.ID, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	active, err := b.ActiveSession(ctx, s.ID)
	if err != nil {
		t.Fatalf("ActiveSession: %v", err)
	}
	if active.User == nil || active.User.Username != "ana" {
		t.Fatalf("session user = %+v", active.User)
	}

	if err := b.RevokeSession(ctx, s.ID); err != nil {
		t.Fatal(err)
	}
	if err := b.RevokeSession(ctx, s.ID); err != nil {
		t.Fatalf("second revoke: %v", err)
	}
	if _, err := b.ActiveSession(ctx, s.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("revoked session: want ErrNotFound, got %v", err)
	}

	expired, err := b.OpenSession(ctx, u.ID, -time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.ActiveSession(ctx, expired.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expired session: want ErrNotFound, got %v", err)
	}
}

func TestSetStaff(t *testing.T) {
	b, _ := newTestBank(t)
	ctx := context.Background()
	mustUser(t, b, "ana", "1-9")

	u, err := b.SetStaff(ctx, "ana", true)
	if err != nil || !u.IsStaff {
		t.Fatalf("SetStaff: %v %+v", err, u)
	}
	reloaded, err := b.User(ctx, u.ID)
	if err != nil || !reloaded.IsStaff {
		t.Fatalf("reloaded: %v %+v", err, reloaded)
	}
	if _, err := b.SetStaff(ctx, "ghost", true); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown user: want ErrNotFound, got %v", err)
	}
}

func TestDeleteUserCascades(t *testing.T) {
	f := newTransferFixture(t, "100", "0")
	ctx := context.Background()
	if _, err := f.b.Transfer(ctx, f.alice.ID, TransferRequest{OriginAccountID: f.from.ID, ContactID: f.contact.ID, Amount: dec("10")}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.b.OpenSession(ctx, f.alice.ID, time.Hour); err != nil {
		t.Fatal(err)
	}

	if err := f.b.DeleteUser(ctx, f.alice.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if _, err := f.b.User(ctx, f.alice.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("user should be gone, got %v", err)
	}
	for name, model := range map[string]any{"transfers": &Transfer{}, "contacts": &Contact{}, "sessions": &Session{}} {
		if n := countRows(t, f.b, model); n != 0 {
			t.Fatalf("%s left = %d", name, n)
		}
	}
	// 只剩 bob 的帳戶與其收入明細
	if n := countRows(t, f.b, &Account{}); n != 1 {
		t.Fatalf("accounts left = %d", n)
	}
	if n := countRows(t, f.b, &Transaction{}); n != 1 {
		t.Fatalf("lines left = %d", n)
	}
	if got := balanceOf(t, f.b, f.to.ID); !got.Equal(dec("10")) {
		t.Fatalf("bob balance = %s", got)
	}
}

func TestDeleteUserProtected(t *testing.T) {
	f := newTransferFixture(t, "100", "0")
	ctx := context.Background()
	if _, err := f.b.Transfer(ctx, f.alice.ID, TransferRequest{OriginAccountID: f.from.ID, ContactID: f.contact.ID, Amount: dec("10")}); err != nil {
		t.Fatal(err)
	}

	// alice 的轉帳引用了指向 bob 帳戶的聯絡人，刪除 bob 會被擋下
	if err := f.b.DeleteUser(ctx, f.bob.ID); !errors.Is(err, ErrProtected) {
		t.Fatalf("want ErrProtected, got %v", err)
	}
	if _, err := f.b.User(ctx, f.bob.ID); err != nil {
		t.Fatalf("bob should still exist: %v", err)
	}
	if n := countRows(t, f.b, &Transfer{}); n != 1 {
		t.Fatalf("transfers = %d want 1", n)
	}
	if err := f.b.DeleteUser(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing user: want ErrNotFound, got %v", err)
	}
}
