package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"gorm.io/gorm"

	"github.com/ordersync/go-order-backend/internal/domain"
	"github.com/ordersync/go-order-backend/internal/repo"
)

func newOrderSvcDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := repo.OpenSQLite(filepath.Join(t.TempDir(), "order_svc_test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func seedOrderOwner(t *testing.T, db *gorm.DB, email string) *domain.User {
	t.Helper()
	u, err := repo.CreateUser(context.Background(), db, email, "hash", domain.RoleUser)
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func TestOrderCreate_AlsoCreatesRoom(t *testing.T) {
	db := newOrderSvcDB(t)
	chat := NewChatService(db)
	svc := NewOrderService(db, chat)
	u := seedOrderOwner(t, db, "u@example.com")

	o, err := svc.Create(context.Background(), u.ID, "  ten widgets  ", 10)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if o.Status != domain.StatusReview || o.Description != "ten widgets" {
		t.Fatalf("unexpected order: %+v", o)
	}

	room, err := repo.GetRoomByOrder(context.Background(), db, o.ID)
	if err != nil || room.IsClosed {
		t.Fatalf("expected open room for new order: room=%+v err=%v", room, err)
	}
}

func TestOrderCreate_Validation(t *testing.T) {
	db := newOrderSvcDB(t)
	svc := NewOrderService(db, NewChatService(db))
	u := seedOrderOwner(t, db, "u@example.com")

	cases := []struct {
		desc string
		qty  int
	}{
		{"", 1},
		{"   ", 1},
		{"ok", 0},
		{"ok", -5},
	}
	for _, c := range cases {
		if _, err := svc.Create(context.Background(), u.ID, c.desc, c.qty); !errors.Is(err, ErrInvalidOrder) {
			t.Fatalf("desc=%q qty=%d: expected ErrInvalidOrder, got %v", c.desc, c.qty, err)
		}
	}
}

func TestOrderCreate_AtomicWithRoom(t *testing.T) {
	db := newOrderSvcDB(t)
	svc := NewOrderService(db, NewChatService(db))
	u := seedOrderOwner(t, db, "u@example.com")

	// Force the room insert to fail mid-transaction; the order insert must
	// roll back with it.
	if err := db.Migrator().DropTable(&domain.ChatRoom{}); err != nil {
		t.Fatalf("drop table: %v", err)
	}
	if _, err := svc.Create(context.Background(), u.ID, "doomed", 1); err == nil {
		t.Fatalf("expected room insert failure to surface")
	}

	var count int64
	if err := db.Model(&domain.Order{}).Count(&count).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if count != 0 {
		t.Fatalf("order survived a failed transaction, count=%d", count)
	}
}

func TestOrderUpdate_GatedOnChatClosed(t *testing.T) {
	db := newOrderSvcDB(t)
	chat := NewChatService(db)
	svc := NewOrderService(db, chat)
	u := seedOrderOwner(t, db, "u@example.com")
	admin, err := repo.CreateUser(context.Background(), db, "admin@example.com", "hash", domain.RoleAdmin)
	if err != nil {
		t.Fatalf("seed admin: %v", err)
	}

	o, err := svc.Create(context.Background(), u.ID, "widgets", 2)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// review → processing while the room is open is rejected.
	if _, err := svc.Update(context.Background(), o.ID, "widgets", 2, domain.StatusProcessing); !errors.Is(err, ErrChatStillOpen) {
		t.Fatalf("expected ErrChatStillOpen, got %v", err)
	}

	if _, err := chat.CloseRoom(context.Background(), IdentityOf(admin), o.ID, "reviewed"); err != nil {
		t.Fatalf("CloseRoom: %v", err)
	}
	got, err := svc.Update(context.Background(), o.ID, "widgets", 2, domain.StatusProcessing)
	if err != nil || got.Status != domain.StatusProcessing {
		t.Fatalf("Update after close: got=%+v err=%v", got, err)
	}

	// Later transitions skip the gate.
	got, err = svc.Update(context.Background(), o.ID, "widgets", 2, domain.StatusCompleted)
	if err != nil || got.Status != domain.StatusCompleted {
		t.Fatalf("Update to completed: got=%+v err=%v", got, err)
	}
}

func TestOrderUpdate_ValidationAndNotFound(t *testing.T) {
	db := newOrderSvcDB(t)
	svc := NewOrderService(db, NewChatService(db))
	u := seedOrderOwner(t, db, "u@example.com")
	o, err := svc.Create(context.Background(), u.ID, "x", 1)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := svc.Update(context.Background(), o.ID, "x", 1, "shipped"); !errors.Is(err, ErrInvalidOrder) {
		t.Fatalf("expected ErrInvalidOrder for unknown status, got %v", err)
	}
	if _, err := svc.Update(context.Background(), "missing", "x", 1, domain.StatusCancelled); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
	// Cancelling does not require a closed room.
	got, err := svc.Update(context.Background(), o.ID, "x", 1, domain.StatusCancelled)
	if err != nil || got.Status != domain.StatusCancelled {
		t.Fatalf("cancel: got=%+v err=%v", got, err)
	}
}

func TestOrderListMine_PaginationAndFlags(t *testing.T) {
	db := newOrderSvcDB(t)
	chat := NewChatService(db)
	svc := NewOrderService(db, chat)
	u := seedOrderOwner(t, db, "u@example.com")
	admin, err := repo.CreateUser(context.Background(), db, "admin@example.com", "hash", domain.RoleAdmin)
	if err != nil {
		t.Fatalf("seed admin: %v", err)
	}

	var ids []string
	for i := 0; i < 3; i++ {
		o, err := svc.Create(context.Background(), u.ID, "order", 1)
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		ids = append(ids, o.ID)
	}
	if _, err := chat.CloseRoom(context.Background(), IdentityOf(admin), ids[0], "done"); err != nil {
		t.Fatalf("CloseRoom: %v", err)
	}

	views, total, err := svc.ListMine(context.Background(), u.ID, 1, 10)
	if err != nil || total != 3 || len(views) != 3 {
		t.Fatalf("ListMine: n=%d total=%d err=%v", len(views), total, err)
	}
	closedSeen := 0
	for _, v := range views {
		if v.ChatClosed {
			closedSeen++
			if v.ID != ids[0] {
				t.Fatalf("wrong order flagged closed: %+v", v)
			}
		}
	}
	if closedSeen != 1 {
		t.Fatalf("expected exactly one closed flag, got %d", closedSeen)
	}

	// Out-of-range page is empty but total is intact.
	views, total, err = svc.ListMine(context.Background(), u.ID, 5, 10)
	if err != nil || total != 3 || len(views) != 0 {
		t.Fatalf("out-of-range page: n=%d total=%d err=%v", len(views), total, err)
	}
}

func TestOrderListAll_OwnerEmailNoCredentials(t *testing.T) {
	db := newOrderSvcDB(t)
	svc := NewOrderService(db, NewChatService(db))
	u := seedOrderOwner(t, db, "owner@example.com")
	if _, err := svc.Create(context.Background(), u.ID, "x", 1); err != nil {
		t.Fatalf("Create: %v", err)
	}

	views, err := svc.ListAll(context.Background())
	if err != nil || len(views) != 1 {
		t.Fatalf("ListAll: n=%d err=%v", len(views), err)
	}
	if views[0].OwnerEmail != "owner@example.com" {
		t.Fatalf("owner email missing: %+v", views[0])
	}
	// The embedded association is cleared so password hashes never leak.
	if views[0].User.Password != "" || views[0].User.Email != "" {
		t.Fatalf("embedded user not scrubbed: %+v", views[0].User)
	}
}

func TestOrderDelete_CascadesRoomAndMessages(t *testing.T) {
	db := newOrderSvcDB(t)
	chat := NewChatService(db)
	svc := NewOrderService(db, chat)
	u := seedOrderOwner(t, db, "u@example.com")

	o, err := svc.Create(context.Background(), u.ID, "x", 1)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := chat.Append(context.Background(), IdentityOf(u), o.ID, "hello"); err != nil {
		t.Fatalf("Append: %v", err)
	}

	if err := svc.Delete(context.Background(), o.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.GetRoomByOrder(context.Background(), db, o.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("room survived order delete: %v", err)
	}
	var msgs int64
	if err := db.Model(&domain.Message{}).Count(&msgs).Error; err != nil {
		t.Fatalf("count messages: %v", err)
	}
	if msgs != 0 {
		t.Fatalf("messages survived cascade, count=%d", msgs)
	}

	if err := svc.Delete(context.Background(), o.ID); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound on double delete, got %v", err)
	}
}
