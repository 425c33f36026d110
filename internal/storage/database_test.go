package storage

import (
	"errors"
	"fmt"
	"testing"

	"aceitubank/internal/config"

	"github.com/lib/pq"
)

type widget struct {
	ID   uint   `gorm:"primaryKey"`
	Code string `gorm:"uniqueIndex;not null"`
}

func TestOpenSQLiteMemory(t *testing.T) {
	db, err := Open(config.DatabaseConfig{Driver: "sqlite", DSN: "file:storage_open?mode=memory&cache=shared"})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer Close(db)

	if err := db.AutoMigrate(&widget{}); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	if err := db.Create(&widget{Code: "a"}).Error; err != nil {
		t.Fatalf("create: %v", err)
	}
	err = db.Create(&widget{Code: "a"}).Error
	if !IsUniqueViolation(err) {
		t.Fatalf("duplicate insert should be a unique violation, got %v", err)
	}
}

func TestOpenUnsupportedDriver(t *testing.T) {
	if _, err := Open(config.DatabaseConfig{Driver: "oracle"}); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestIsUniqueViolationPQ(t *testing.T) {
	wrapped := fmt.Errorf("insert contact: %w", &pq.Error{Code: "23505"})
	if !IsUniqueViolation(wrapped) {
		t.Error("pq 23505 should be a unique violation")
	}
	if IsUniqueViolation(&pq.Error{Code: "23503"}) {
		t.Error("pq 23503 is not a unique violation")
	}
	if !IsForeignKeyViolation(&pq.Error{Code: "23503"}) {
		t.Error("pq 23503 should be a foreign key violation")
	}
	if IsUniqueViolation(errors.New("boom")) || IsUniqueViolation(nil) {
		t.Error("plain errors are not unique violations")
	}
}
