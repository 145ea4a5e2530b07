package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailyIncome records one grocery's takings for one calendar day. At most one
// non-deleted record may exist per (grocery, date).
type DailyIncome struct {
	ID        int64           `json:"id"`
	GroceryID int64           `json:"grocery"`
	Amount    decimal.Decimal `json:"amount"`
	Date      string          `json:"date"`
	IsDeleted bool            `json:"is_deleted"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
