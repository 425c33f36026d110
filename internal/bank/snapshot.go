// internal/bank/snapshot.go
//
// 將帳本匯出成 storage.Snapshot（帳戶、餘額與全部明細），供備份使用。

package bank

import (
	"context"
	"fmt"

	"aceitubank/internal/storage"

	"gorm.io/gorm"
)

// Snapshot 在單一讀取交易內匯出帳本，確保餘額與明細一致。
func (b *Bank) Snapshot(ctx context.Context) (storage.Snapshot, error) {
	snap := storage.Snapshot{
		Meta: storage.Meta{
			Version:   storage.SnapshotVersion,
			Timestamp: b.now(),
		},
	}
	err := b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var accounts []Account
		if err := tx.Order("id ASC").Find(&accounts).Error; err != nil {
			return fmt.Errorf("load accounts: %w", err)
		}
		var lines []Transaction
		if err := tx.Order("account_id ASC").Order("id ASC").Find(&lines).Error; err != nil {
			return fmt.Errorf("load transactions: %w", err)
		}
		if err := tx.Model(&Transfer{}).Count(&snap.Transfers).Error; err != nil {
			return fmt.Errorf("count transfers: %w", err)
		}

		byAccount := make(map[uint][]storage.PersistLine, len(accounts))
		for _, l := range lines {
			byAccount[l.AccountID] = append(byAccount[l.AccountID], storage.PersistLine{
				ID:          l.ID,
				Type:        string(l.Type),
				Amount:      l.Amount,
				Date:        l.Date,
				Description: l.Description,
			})
		}
		for _, a := range accounts {
			snap.Accounts = append(snap.Accounts, storage.PersistAccount{
				ID:      a.ID,
				Number:  a.Number,
				OwnerID: a.OwnerID,
				Type:    string(a.Type),
				Balance: a.Balance,
				Lines:   byAccount[a.ID],
			})
		}
		return nil
	})
	if err != nil {
		return storage.Snapshot{}, fmt.Errorf("snapshot: %w", err)
	}
	return snap, nil
}
