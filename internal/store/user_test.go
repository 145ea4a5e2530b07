package store

import (
	"testing"

	"github.com/suqify/grocerynet/internal/database"
	"github.com/suqify/grocerynet/internal/model"
)

func setupUserTestDB(t *testing.T) *UserStore {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewUserStore(db)
}

func TestUserCreateAndLookup(t *testing.T) {
	us := setupUserTestDB(t)

	u, err := us.Create("supplier1", "s1@example.com", "hash", "Sara", "Aziz", model.RoleSupplier)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if u.Role != model.RoleSupplier {
		t.Errorf("role = %q, want %q", u.Role, model.RoleSupplier)
	}

	got, err := us.GetByUsername("supplier1")
	if err != nil {
		t.Fatalf("get by username: %v", err)
	}
	if got == nil || got.ID != u.ID {
		t.Fatalf("get by username = %v, want user %d", got, u.ID)
	}

	missing, err := us.GetByUsername("nobody")
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for unknown username")
	}
}

func TestUserUsernameUnique(t *testing.T) {
	us := setupUserTestDB(t)

	if _, err := us.Create("supplier1", "a@example.com", "hash", "", "", model.RoleSupplier); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := us.Create("supplier1", "b@example.com", "hash", "", "", model.RoleSupplier); err == nil {
		t.Fatal("duplicate username should fail")
	}
}

func TestUserUnknownRoleRejected(t *testing.T) {
	us := setupUserTestDB(t)

	if _, err := us.Create("ghost", "g@example.com", "hash", "", "", model.Role("manager")); err == nil {
		t.Fatal("unprovisioned role should violate the roles foreign key")
	}
}

func TestUserCountByRole(t *testing.T) {
	us := setupUserTestDB(t)

	us.Create("admin1", "a@example.com", "hash", "", "", model.RoleAdmin)
	us.Create("supplier1", "s1@example.com", "hash", "", "", model.RoleSupplier)
	us.Create("supplier2", "s2@example.com", "hash", "", "", model.RoleSupplier)

	admins, err := us.CountByRole(model.RoleAdmin)
	if err != nil {
		t.Fatalf("count admins: %v", err)
	}
	if admins != 1 {
		t.Errorf("admins = %d, want 1", admins)
	}

	suppliers, err := us.CountByRole(model.RoleSupplier)
	if err != nil {
		t.Fatalf("count suppliers: %v", err)
	}
	if suppliers != 2 {
		t.Errorf("suppliers = %d, want 2", suppliers)
	}
}
