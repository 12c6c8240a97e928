package store

import (
	"context"
	"testing"

	"docrev/internal/models"
)

func TestCreateAndLookupUser(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	user := &models.User{
		Username:     "p.ivanov",
		Name:         "Pavel Ivanov",
		Role:         string(models.RoleEngineer),
		PasswordHash: "$2a$10$fake",
		IsActive:     true,
	}
	if err := st.CreateUser(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if user.ID == "" {
		t.Fatal("expected generated user id")
	}

	byName, err := st.GetUserByUsername(ctx, "p.ivanov")
	if err != nil {
		t.Fatalf("get by username: %v", err)
	}
	if byName == nil || byName.ID != user.ID || byName.Role != string(models.RoleEngineer) {
		t.Fatalf("unexpected user: %+v", byName)
	}

	missing, err := st.GetUser(ctx, "no-such-id")
	if err != nil {
		t.Fatalf("get missing user: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for missing user, got %+v", missing)
	}
}

func TestListActiveAdminIDs(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	active := &models.User{Username: "admin1", Name: "A1", Role: string(models.RoleAdmin), PasswordHash: "h", IsActive: true}
	retired := &models.User{Username: "admin2", Name: "A2", Role: string(models.RoleAdmin), PasswordHash: "h", IsActive: false}
	engineer := &models.User{Username: "eng", Name: "E", Role: string(models.RoleEngineer), PasswordHash: "h", IsActive: true}
	for _, u := range []*models.User{active, retired, engineer} {
		if err := st.CreateUser(ctx, u); err != nil {
			t.Fatalf("create %s: %v", u.Username, err)
		}
	}

	ids, err := st.ListActiveAdminIDs(ctx)
	if err != nil {
		t.Fatalf("list admins: %v", err)
	}
	if len(ids) != 1 || ids[0] != active.ID {
		t.Fatalf("expected only active admin, got %v", ids)
	}
}

func TestNotificationsRoundTrip(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	user := &models.User{Username: "watcher", Name: "W", Role: string(models.RoleAdmin), PasswordHash: "h", IsActive: true}
	if err := st.CreateUser(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}

	if err := st.InsertNotification(ctx, &models.Notification{
		UserID:  user.ID,
		Message: "import finished",
		Payload: map[string]any{"created_count": float64(3)},
	}); err != nil {
		t.Fatalf("insert notification: %v", err)
	}

	got, err := st.ListNotifications(ctx, user.ID, true)
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(got))
	}
	if got[0].Message != "import finished" || got[0].IsRead {
		t.Fatalf("unexpected notification: %+v", got[0])
	}
	if got[0].Payload["created_count"] != float64(3) {
		t.Fatalf("unexpected payload: %+v", got[0].Payload)
	}
}

func TestNotificationRollsBackWithTx(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	user := &models.User{Username: "rollback", Name: "R", Role: string(models.RoleAdmin), PasswordHash: "h", IsActive: true}
	if err := st.CreateUser(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}

	tx, err := st.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := tx.InsertNotification(ctx, &models.Notification{UserID: user.ID, Message: "staged"}); err != nil {
		t.Fatalf("insert in tx: %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("rollback: %v", err)
	}

	got, err := st.ListNotifications(ctx, user.ID, false)
	if err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected queued notification rolled back, got %d", len(got))
	}
}
