package store

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/suqify/grocerynet/internal/database"
)

func setupIncomeTestDB(t *testing.T) (*UserStore, *GroceryStore, *IncomeStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewUserStore(db), NewGroceryStore(db), NewIncomeStore(db)
}

func TestIncomeCreateAndGet(t *testing.T) {
	us, gs, ins := setupIncomeTestDB(t)

	supplier := createSupplier(t, us, "supplier1")
	g, _ := gs.Create("Jeddah Branch", "Jeddah", &supplier.ID)

	amount := decimal.RequireFromString("1500.75")
	in, err := ins.Create(g.ID, amount, "2025-09-30")
	if err != nil {
		t.Fatalf("create income: %v", err)
	}
	if !in.Amount.Equal(amount) {
		t.Errorf("amount = %s, want %s", in.Amount, amount)
	}
	if in.Date != "2025-09-30" {
		t.Errorf("date = %q, want %q", in.Date, "2025-09-30")
	}
}

func TestIncomeDuplicateDateRejected(t *testing.T) {
	us, gs, ins := setupIncomeTestDB(t)

	supplier := createSupplier(t, us, "supplier1")
	g, _ := gs.Create("Jeddah Branch", "Jeddah", &supplier.ID)

	if _, err := ins.Create(g.ID, decimal.RequireFromString("100"), "2025-09-30"); err != nil {
		t.Fatalf("first create: %v", err)
	}

	_, err := ins.Create(g.ID, decimal.RequireFromString("200"), "2025-09-30")
	if !errors.Is(err, ErrDuplicateDate) {
		t.Fatalf("second create err = %v, want ErrDuplicateDate", err)
	}

	// A different grocery may use the same date.
	other, _ := gs.Create("Riyadh Branch", "Riyadh", nil)
	if _, err := ins.Create(other.ID, decimal.RequireFromString("300"), "2025-09-30"); err != nil {
		t.Fatalf("create for other grocery: %v", err)
	}
}

func TestIncomeSoftDeleteFreesDate(t *testing.T) {
	us, gs, ins := setupIncomeTestDB(t)

	supplier := createSupplier(t, us, "supplier1")
	g, _ := gs.Create("Jeddah Branch", "Jeddah", &supplier.ID)

	in, _ := ins.Create(g.ID, decimal.RequireFromString("100"), "2025-09-30")

	exists, err := ins.ExistsForDate(g.ID, "2025-09-30")
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if !exists {
		t.Fatal("expected income to exist for date")
	}

	if err := ins.SoftDelete(in.ID); err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	exists, err = ins.ExistsForDate(g.ID, "2025-09-30")
	if err != nil {
		t.Fatalf("exists after delete: %v", err)
	}
	if exists {
		t.Error("soft-deleted income should not count toward the date")
	}

	// The partial unique index only covers non-deleted rows, so the date
	// can be re-entered.
	if _, err := ins.Create(g.ID, decimal.RequireFromString("150"), "2025-09-30"); err != nil {
		t.Fatalf("re-create after soft delete: %v", err)
	}
}

func TestIncomeTenantScoping(t *testing.T) {
	us, gs, ins := setupIncomeTestDB(t)

	supplier1 := createSupplier(t, us, "supplier1")
	supplier2 := createSupplier(t, us, "supplier2")
	g1, _ := gs.Create("Jeddah Branch", "Jeddah", &supplier1.ID)
	g2, _ := gs.Create("Riyadh Branch", "Riyadh", &supplier2.ID)

	mine, _ := ins.Create(g1.ID, decimal.RequireFromString("100"), "2025-09-29")
	theirs, _ := ins.Create(g2.ID, decimal.RequireFromString("200"), "2025-09-29")

	list, err := ins.ListVisible(asSupplier(supplier1))
	if err != nil {
		t.Fatalf("list visible: %v", err)
	}
	if len(list) != 1 || list[0].ID != mine.ID {
		t.Fatalf("supplier1 incomes = %v, want only income %d", list, mine.ID)
	}

	got, err := ins.GetVisible(theirs.ID, asSupplier(supplier1))
	if err != nil {
		t.Fatalf("get visible: %v", err)
	}
	if got != nil {
		t.Error("supplier1 should not see supplier2's income")
	}

	all, err := ins.ListVisible(asAdmin())
	if err != nil {
		t.Fatalf("admin list: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("admin incomes len = %d, want 2", len(all))
	}
}
