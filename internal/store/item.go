package store

import (
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/suqify/grocerynet/internal/authz"
	"github.com/suqify/grocerynet/internal/model"
)

type ItemStore struct {
	db *sql.DB
}

func NewItemStore(db *sql.DB) *ItemStore {
	return &ItemStore{db: db}
}

func scanItem(scanner interface{ Scan(...any) error }) (*model.Item, error) {
	var it model.Item
	var price string
	var deleted int

	err := scanner.Scan(&it.ID, &it.GroceryID, &it.Name, &it.ItemType, &it.LocationInGrocery, &price, &deleted, &it.CreatedAt, &it.UpdatedAt)
	if err != nil {
		return nil, err
	}

	it.IsDeleted = deleted != 0
	it.Price, err = decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("parse price %q: %w", price, err)
	}
	return &it, nil
}

const itemCols = `id, grocery_id, name, item_type, location_in_grocery, price, is_deleted, created_at, updated_at`

func (s *ItemStore) Create(groceryID int64, name, itemType, location string, price decimal.Decimal) (*model.Item, error) {
	result, err := s.db.Exec(
		`INSERT INTO items (grocery_id, name, item_type, location_in_grocery, price) VALUES (?, ?, ?, ?, ?)`,
		groceryID, name, itemType, location, price.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert item: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

// GetByID is an unscoped key lookup that also returns soft-deleted rows.
func (s *ItemStore) GetByID(id int64) (*model.Item, error) {
	row := s.db.QueryRow(`SELECT `+itemCols+` FROM items WHERE id = ?`, id)
	it, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return it, nil
}

// GetVisible scopes the lookup through the item's grocery: suppliers only
// see items of the grocery they are responsible for.
func (s *ItemStore) GetVisible(id int64, p authz.Principal) (*model.Item, error) {
	var row *sql.Row
	if p.IsAdmin() {
		row = s.db.QueryRow(`SELECT `+itemCols+` FROM items WHERE id = ? AND is_deleted = 0`, id)
	} else {
		row = s.db.QueryRow(
			`SELECT i.id, i.grocery_id, i.name, i.item_type, i.location_in_grocery, i.price, i.is_deleted, i.created_at, i.updated_at
			 FROM items i JOIN groceries g ON g.id = i.grocery_id
			 WHERE i.id = ? AND i.is_deleted = 0 AND g.responsible_person_id = ?`,
			id, p.UserID,
		)
	}
	it, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get visible item: %w", err)
	}
	return it, nil
}

func (s *ItemStore) ListVisible(p authz.Principal) ([]model.Item, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if p.IsAdmin() {
		rows, err = s.db.Query(`SELECT ` + itemCols + ` FROM items WHERE is_deleted = 0 ORDER BY id ASC`)
	} else {
		rows, err = s.db.Query(
			`SELECT i.id, i.grocery_id, i.name, i.item_type, i.location_in_grocery, i.price, i.is_deleted, i.created_at, i.updated_at
			 FROM items i JOIN groceries g ON g.id = i.grocery_id
			 WHERE i.is_deleted = 0 AND g.responsible_person_id = ? ORDER BY i.id ASC`,
			p.UserID,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, *it)
	}
	return items, rows.Err()
}

func (s *ItemStore) Update(id int64, name, itemType, location string, price decimal.Decimal) (*model.Item, error) {
	_, err := s.db.Exec(
		`UPDATE items SET name = ?, item_type = ?, location_in_grocery = ?, price = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		name, itemType, location, price.String(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update item: %w", err)
	}
	return s.GetByID(id)
}

func (s *ItemStore) SoftDelete(id int64) error {
	_, err := s.db.Exec(
		`UPDATE items SET is_deleted = 1, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		id,
	)
	if err != nil {
		return fmt.Errorf("soft delete item: %w", err)
	}
	return nil
}
