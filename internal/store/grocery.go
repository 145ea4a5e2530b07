package store

import (
	"database/sql"
	"fmt"

	"github.com/suqify/grocerynet/internal/authz"
	"github.com/suqify/grocerynet/internal/model"
)

type GroceryStore struct {
	db *sql.DB
}

func NewGroceryStore(db *sql.DB) *GroceryStore {
	return &GroceryStore{db: db}
}

func scanGrocery(scanner interface{ Scan(...any) error }) (*model.Grocery, error) {
	var g model.Grocery
	var responsible sql.NullInt64
	var deleted int

	err := scanner.Scan(&g.ID, &g.Name, &g.Location, &responsible, &deleted, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return nil, err
	}

	g.IsDeleted = deleted != 0
	if responsible.Valid {
		g.ResponsiblePersonID = &responsible.Int64
	}
	return &g, nil
}

const groceryCols = `id, name, location, responsible_person_id, is_deleted, created_at, updated_at`

func (s *GroceryStore) Create(name, location string, responsiblePersonID *int64) (*model.Grocery, error) {
	var owner sql.NullInt64
	if responsiblePersonID != nil {
		owner = sql.NullInt64{Int64: *responsiblePersonID, Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO groceries (name, location, responsible_person_id) VALUES (?, ?, ?)`,
		name, location, owner,
	)
	if err != nil {
		return nil, fmt.Errorf("insert grocery: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

// GetByID is an unscoped key lookup: it returns the row even when
// soft-deleted. Request paths go through GetVisible instead.
func (s *GroceryStore) GetByID(id int64) (*model.Grocery, error) {
	row := s.db.QueryRow(`SELECT `+groceryCols+` FROM groceries WHERE id = ?`, id)
	g, err := scanGrocery(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get grocery: %w", err)
	}
	return g, nil
}

// GetVisible returns the grocery only if it is inside the principal's scope:
// admins see every non-deleted grocery, suppliers only their own. An
// out-of-scope id yields nil so the caller answers not-found rather than
// forbidden.
func (s *GroceryStore) GetVisible(id int64, p authz.Principal) (*model.Grocery, error) {
	var row *sql.Row
	if p.IsAdmin() {
		row = s.db.QueryRow(`SELECT `+groceryCols+` FROM groceries WHERE id = ? AND is_deleted = 0`, id)
	} else {
		row = s.db.QueryRow(`SELECT `+groceryCols+` FROM groceries WHERE id = ? AND responsible_person_id = ? AND is_deleted = 0`, id, p.UserID)
	}
	g, err := scanGrocery(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get visible grocery: %w", err)
	}
	return g, nil
}

func (s *GroceryStore) ListVisible(p authz.Principal) ([]model.Grocery, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if p.IsAdmin() {
		rows, err = s.db.Query(`SELECT ` + groceryCols + ` FROM groceries WHERE is_deleted = 0 ORDER BY id ASC`)
	} else {
		rows, err = s.db.Query(`SELECT `+groceryCols+` FROM groceries WHERE responsible_person_id = ? AND is_deleted = 0 ORDER BY id ASC`, p.UserID)
	}
	if err != nil {
		return nil, fmt.Errorf("list groceries: %w", err)
	}
	defer rows.Close()

	var groceries []model.Grocery
	for rows.Next() {
		g, err := scanGrocery(rows)
		if err != nil {
			return nil, fmt.Errorf("scan grocery: %w", err)
		}
		groceries = append(groceries, *g)
	}
	return groceries, rows.Err()
}

// GetOwned resolves a supplier's single assigned non-deleted grocery, or nil
// when none is assigned. The schema permits more than one; by convention the
// oldest assignment wins.
func (s *GroceryStore) GetOwned(userID int64) (*model.Grocery, error) {
	row := s.db.QueryRow(
		`SELECT `+groceryCols+` FROM groceries WHERE responsible_person_id = ? AND is_deleted = 0 ORDER BY id ASC LIMIT 1`,
		userID,
	)
	g, err := scanGrocery(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get owned grocery: %w", err)
	}
	return g, nil
}

func (s *GroceryStore) Update(id int64, name, location string, responsiblePersonID *int64) (*model.Grocery, error) {
	var owner sql.NullInt64
	if responsiblePersonID != nil {
		owner = sql.NullInt64{Int64: *responsiblePersonID, Valid: true}
	}

	_, err := s.db.Exec(
		`UPDATE groceries SET name = ?, location = ?, responsible_person_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		name, location, owner, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update grocery: %w", err)
	}
	return s.GetByID(id)
}

// SoftDelete flips the deletion flag. The row stays in storage for direct
// key lookups but disappears from every scoped query. Repeating the call is
// a no-op.
func (s *GroceryStore) SoftDelete(id int64) error {
	_, err := s.db.Exec(
		`UPDATE groceries SET is_deleted = 1, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		id,
	)
	if err != nil {
		return fmt.Errorf("soft delete grocery: %w", err)
	}
	return nil
}
