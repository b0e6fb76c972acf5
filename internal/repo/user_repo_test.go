package repo

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ordersync/go-order-backend/internal/domain"
)

func newUserRepoDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("user_repo_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	// Ensure the file handle is released before TempDir cleanup (Windows needs this).
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func TestCreateUser_Success_PersistsAndSetsFields(t *testing.T) {
	db := newUserRepoDB(t, &domain.User{})

	start := time.Now().UTC().Add(-time.Minute)
	u, err := CreateUser(context.Background(), db, "a@example.com", "hash", domain.RoleUser)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u.ID == "" || u.Email != "a@example.com" || u.Password != "hash" || u.Role != domain.RoleUser {
		t.Fatalf("unexpected User fields: %+v", u)
	}
	if u.CreatedAt.Before(start) {
		t.Fatalf("CreatedAt seems unset/really old: %v", u.CreatedAt)
	}

	var got domain.User
	if err := db.First(&got, "id = ?", u.ID).Error; err != nil {
		t.Fatalf("load created user: %v", err)
	}
	if got.Email != "a@example.com" {
		t.Fatalf("round-trip mismatch: %+v", got)
	}
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	db := newUserRepoDB(t, &domain.User{})

	if _, err := CreateUser(context.Background(), db, "dup@example.com", "h1", domain.RoleUser); err != nil {
		t.Fatalf("first CreateUser: %v", err)
	}
	if _, err := CreateUser(context.Background(), db, "dup@example.com", "h2", domain.RoleUser); err == nil {
		t.Fatalf("expected unique violation for duplicate email")
	}
}

func TestGetUser_ByIDAndEmail(t *testing.T) {
	db := newUserRepoDB(t, &domain.User{})

	u, err := CreateUser(context.Background(), db, "b@example.com", "hash", domain.RoleAdmin)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	got, err := GetUser(context.Background(), db, u.ID)
	if err != nil || got.Email != "b@example.com" {
		t.Fatalf("GetUser: got=%+v err=%v", got, err)
	}

	got, err = GetUserByEmail(context.Background(), db, "b@example.com")
	if err != nil || got.ID != u.ID {
		t.Fatalf("GetUserByEmail: got=%+v err=%v", got, err)
	}
}

func TestGetUser_NotFound(t *testing.T) {
	db := newUserRepoDB(t, &domain.User{})

	if _, err := GetUser(context.Background(), db, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := GetUserByEmail(context.Background(), db, "nobody@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
