package store

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/suqify/grocerynet/internal/database"
)

func setupItemTestDB(t *testing.T) (*UserStore, *GroceryStore, *ItemStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewUserStore(db), NewGroceryStore(db), NewItemStore(db)
}

func TestItemCRUD(t *testing.T) {
	us, gs, is := setupItemTestDB(t)

	supplier := createSupplier(t, us, "supplier1")
	g, _ := gs.Create("Jeddah Branch", "Jeddah", &supplier.ID)

	price := decimal.RequireFromString("4.25")
	it, err := is.Create(g.ID, "Olive Oil", "pantry", "aisle 3", price)
	if err != nil {
		t.Fatalf("create item: %v", err)
	}
	if it.Name != "Olive Oil" {
		t.Errorf("name = %q, want %q", it.Name, "Olive Oil")
	}
	if !it.Price.Equal(price) {
		t.Errorf("price = %s, want %s", it.Price, price)
	}

	updated, err := is.Update(it.ID, "Olive Oil 1L", "pantry", "aisle 4", decimal.RequireFromString("5.00"))
	if err != nil {
		t.Fatalf("update item: %v", err)
	}
	if updated.Name != "Olive Oil 1L" {
		t.Errorf("updated name = %q, want %q", updated.Name, "Olive Oil 1L")
	}
	if updated.LocationInGrocery != "aisle 4" {
		t.Errorf("location = %q, want %q", updated.LocationInGrocery, "aisle 4")
	}

	if err := is.SoftDelete(it.ID); err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	got, err := is.GetVisible(it.ID, asSupplier(supplier))
	if err != nil {
		t.Fatalf("get visible: %v", err)
	}
	if got != nil {
		t.Error("deleted item should be invisible")
	}
	raw, _ := is.GetByID(it.ID)
	if raw == nil || !raw.IsDeleted {
		t.Error("soft-deleted item should remain in storage with is_deleted set")
	}
}

func TestItemTenantScoping(t *testing.T) {
	us, gs, is := setupItemTestDB(t)

	supplier1 := createSupplier(t, us, "supplier1")
	supplier2 := createSupplier(t, us, "supplier2")
	g1, _ := gs.Create("Jeddah Branch", "Jeddah", &supplier1.ID)
	g2, _ := gs.Create("Riyadh Branch", "Riyadh", &supplier2.ID)

	mine, _ := is.Create(g1.ID, "Dates", "produce", "front", decimal.RequireFromString("10.00"))
	theirs, _ := is.Create(g2.ID, "Honey", "pantry", "aisle 1", decimal.RequireFromString("30.00"))

	list, err := is.ListVisible(asSupplier(supplier1))
	if err != nil {
		t.Fatalf("list visible: %v", err)
	}
	if len(list) != 1 || list[0].ID != mine.ID {
		t.Fatalf("supplier1 items = %v, want only item %d", list, mine.ID)
	}

	got, err := is.GetVisible(theirs.ID, asSupplier(supplier1))
	if err != nil {
		t.Fatalf("get visible: %v", err)
	}
	if got != nil {
		t.Error("supplier1 should not see supplier2's item")
	}

	// Admin sees items from every supplier's grocery.
	all, err := is.ListVisible(asAdmin())
	if err != nil {
		t.Fatalf("admin list: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("admin items len = %d, want 2", len(all))
	}
}

func TestItemCascadeOnGroceryHardDelete(t *testing.T) {
	us, gs, is := setupItemTestDB(t)

	supplier := createSupplier(t, us, "supplier1")
	g, _ := gs.Create("Jeddah Branch", "Jeddah", &supplier.ID)
	it, _ := is.Create(g.ID, "Dates", "produce", "front", decimal.RequireFromString("10.00"))

	// The application never hard-deletes groceries; the cascade exists for
	// admin tooling working directly against the database.
	if _, err := is.db.Exec(`DELETE FROM groceries WHERE id = ?`, g.ID); err != nil {
		t.Fatalf("hard delete grocery: %v", err)
	}

	got, err := is.GetByID(it.ID)
	if err != nil {
		t.Fatalf("get item: %v", err)
	}
	if got != nil {
		t.Error("item should cascade away with its grocery")
	}
}
