package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Item struct {
	ID                int64           `json:"id"`
	GroceryID         int64           `json:"grocery"`
	Name              string          `json:"name"`
	ItemType          string          `json:"item_type"`
	LocationInGrocery string          `json:"location_in_grocery"`
	Price             decimal.Decimal `json:"price"`
	IsDeleted         bool            `json:"is_deleted"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}
