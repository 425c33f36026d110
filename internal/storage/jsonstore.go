// internal/storage/jsonstore.go
//
// JSON 快照的讀寫。寫入採「原子寫入」：先寫 .tmp 再以 rename() 取代原檔，
// 中途失敗時原檔保持完整。
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// LoadSnapshot 讀取指定路徑的 JSON 快照。
func LoadSnapshot(path string) (Snapshot, error) {
	var snap Snapshot
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(&snap); err != nil {
		return snap, fmt.Errorf("decode snapshot %s: %w", path, err)
	}
	return snap, nil
}

// SaveSnapshot 將 Snapshot 以縮排 JSON 原子寫入 path，必要時建立上層目錄。
func SaveSnapshot(path string, snap Snapshot) error {
	snap.Meta.Storage = "json_snapshot"
	snap.Meta.Version = SnapshotVersion
	if snap.Meta.Timestamp.IsZero() {
		snap.Meta.Timestamp = time.Now()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	tmp := path + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}

	// 原子替換
	return os.Rename(tmp, path)
}

// SnapshotFileName 依時間產生快照檔名，例如 ledger_20250102T150405.json。
func SnapshotFileName(t time.Time) string {
	return "ledger_" + t.UTC().Format("20060102T150405") + ".json"
}
