// internal/storage/jsonstore_test.go
//
// 驗證 JSON 快照的寫入與讀回，以及原子寫入不留下暫存檔。
package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestJSONSnapshotRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "ledger.json")

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	orig := Snapshot{
		Meta:      Meta{Note: "test"},
		Transfers: 1,
		Accounts: []PersistAccount{
			{ID: 1, Number: "1111111101", OwnerID: 1, Type: "CC", Balance: decimal.RequireFromString("50000"),
				Lines: []PersistLine{{ID: 1, Type: "Expense", Amount: decimal.RequireFromString("50000"), Date: now}}},
			{ID: 2, Number: "2222222201", OwnerID: 2, Type: "CA", Balance: decimal.RequireFromString("50000.50"),
				Lines: []PersistLine{{ID: 2, Type: "Income", Amount: decimal.RequireFromString("50000"), Date: now}}},
		},
	}

	if err := SaveSnapshot(path, orig); err != nil {
		t.Fatalf("SaveSnapshot err=%v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("tmp file should be renamed away, stat err=%v", err)
	}

	loaded, err := LoadSnapshot(path)
	if err != nil {
		t.Fatalf("LoadSnapshot err=%v", err)
	}
	if loaded.Transfers != 1 || len(loaded.Accounts) != 2 || loaded.LineCount() != 2 {
		t.Fatalf("mismatch: loaded=%+v", loaded)
	}
	if loaded.Meta.Storage != "json_snapshot" || loaded.Meta.Version != SnapshotVersion || loaded.Meta.Timestamp.IsZero() {
		t.Fatalf("meta mismatch: %+v", loaded.Meta)
	}
	if !loaded.TotalBalance().Equal(decimal.RequireFromString("100000.50")) {
		t.Fatalf("total = %s", loaded.TotalBalance())
	}
	if !loaded.Accounts[1].Balance.Equal(orig.Accounts[1].Balance) {
		t.Fatalf("balance lost precision: %s", loaded.Accounts[1].Balance)
	}
}

func TestLoadSnapshotMissing(t *testing.T) {
	if _, err := LoadSnapshot(filepath.Join(t.TempDir(), "missing.json")); !os.IsNotExist(err) {
		t.Fatalf("want not-exist error, got %v", err)
	}
}

func TestSnapshotFileName(t *testing.T) {
	got := SnapshotFileName(time.Date(2025, 1, 2, 15, 4, 5, 0, time.UTC))
	if got != "ledger_20250102T150405.json" {
		t.Fatalf("SnapshotFileName = %q", got)
	}
}
