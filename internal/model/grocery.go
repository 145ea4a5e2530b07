package model

import "time"

// Grocery is a single branch managed by at most one supplier. The responsible
// person reference becomes nil when that user is removed.
type Grocery struct {
	ID                  int64     `json:"id"`
	Name                string    `json:"name"`
	Location            string    `json:"location"`
	ResponsiblePersonID *int64    `json:"responsible_person"`
	IsDeleted           bool      `json:"-"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// Owner reports the responsible person, if one is assigned. Items and daily
// incomes inherit their ownership from the grocery they belong to.
func (g *Grocery) Owner() (int64, bool) {
	if g.ResponsiblePersonID == nil {
		return 0, false
	}
	return *g.ResponsiblePersonID, true
}
