package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/suqify/grocerynet/internal/authz"
	"github.com/suqify/grocerynet/internal/model"
)

// ErrDuplicateDate is returned when an insert loses the race against the
// partial unique index on (grocery_id, date). Callers pre-check for an
// existing record, but two concurrent requests can both pass the check; the
// index decides the winner.
var ErrDuplicateDate = errors.New("income already recorded for this date")

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	return errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}

type IncomeStore struct {
	db *sql.DB
}

func NewIncomeStore(db *sql.DB) *IncomeStore {
	return &IncomeStore{db: db}
}

func scanIncome(scanner interface{ Scan(...any) error }) (*model.DailyIncome, error) {
	var in model.DailyIncome
	var amount string
	var deleted int

	err := scanner.Scan(&in.ID, &in.GroceryID, &amount, &in.Date, &deleted, &in.CreatedAt, &in.UpdatedAt)
	if err != nil {
		return nil, err
	}

	in.IsDeleted = deleted != 0
	in.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	return &in, nil
}

const incomeCols = `id, grocery_id, amount, date, is_deleted, created_at, updated_at`

func (s *IncomeStore) Create(groceryID int64, amount decimal.Decimal, date string) (*model.DailyIncome, error) {
	result, err := s.db.Exec(
		`INSERT INTO daily_incomes (grocery_id, amount, date) VALUES (?, ?, ?)`,
		groceryID, amount.String(), date,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateDate
		}
		return nil, fmt.Errorf("insert income: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

// ExistsForDate reports whether a non-deleted income already exists for the
// grocery and date.
func (s *IncomeStore) ExistsForDate(groceryID int64, date string) (bool, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM daily_incomes WHERE grocery_id = ? AND date = ? AND is_deleted = 0`,
		groceryID, date,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check income date: %w", err)
	}
	return count > 0, nil
}

// GetByID is an unscoped key lookup that also returns soft-deleted rows.
func (s *IncomeStore) GetByID(id int64) (*model.DailyIncome, error) {
	row := s.db.QueryRow(`SELECT `+incomeCols+` FROM daily_incomes WHERE id = ?`, id)
	in, err := scanIncome(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get income: %w", err)
	}
	return in, nil
}

func (s *IncomeStore) GetVisible(id int64, p authz.Principal) (*model.DailyIncome, error) {
	var row *sql.Row
	if p.IsAdmin() {
		row = s.db.QueryRow(`SELECT `+incomeCols+` FROM daily_incomes WHERE id = ? AND is_deleted = 0`, id)
	} else {
		row = s.db.QueryRow(
			`SELECT d.id, d.grocery_id, d.amount, d.date, d.is_deleted, d.created_at, d.updated_at
			 FROM daily_incomes d JOIN groceries g ON g.id = d.grocery_id
			 WHERE d.id = ? AND d.is_deleted = 0 AND g.responsible_person_id = ?`,
			id, p.UserID,
		)
	}
	in, err := scanIncome(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get visible income: %w", err)
	}
	return in, nil
}

func (s *IncomeStore) ListVisible(p authz.Principal) ([]model.DailyIncome, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if p.IsAdmin() {
		rows, err = s.db.Query(`SELECT ` + incomeCols + ` FROM daily_incomes WHERE is_deleted = 0 ORDER BY date ASC, id ASC`)
	} else {
		rows, err = s.db.Query(
			`SELECT d.id, d.grocery_id, d.amount, d.date, d.is_deleted, d.created_at, d.updated_at
			 FROM daily_incomes d JOIN groceries g ON g.id = d.grocery_id
			 WHERE d.is_deleted = 0 AND g.responsible_person_id = ? ORDER BY d.date ASC, d.id ASC`,
			p.UserID,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("list incomes: %w", err)
	}
	defer rows.Close()

	var incomes []model.DailyIncome
	for rows.Next() {
		in, err := scanIncome(rows)
		if err != nil {
			return nil, fmt.Errorf("scan income: %w", err)
		}
		incomes = append(incomes, *in)
	}
	return incomes, rows.Err()
}

func (s *IncomeStore) Update(id int64, amount decimal.Decimal, date string) (*model.DailyIncome, error) {
	_, err := s.db.Exec(
		`UPDATE daily_incomes SET amount = ?, date = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		amount.String(), date, id,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateDate
		}
		return nil, fmt.Errorf("update income: %w", err)
	}
	return s.GetByID(id)
}

func (s *IncomeStore) SoftDelete(id int64) error {
	_, err := s.db.Exec(
		`UPDATE daily_incomes SET is_deleted = 1, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		id,
	)
	if err != nil {
		return fmt.Errorf("soft delete income: %w", err)
	}
	return nil
}
