// Package authz decides per-object access. The tenant-scoped query layer in
// internal/store narrows what a principal can see at all; this package gates
// what they may do with an object once it is visible.
package authz

import "github.com/suqify/grocerynet/internal/model"

// Principal is the authenticated identity making a request.
type Principal struct {
	UserID   int64
	Username string
	Role     model.Role
}

func (p Principal) IsAdmin() bool {
	return p.Role == model.RoleAdmin
}

// Action classifies an operation as safe or mutating.
type Action int

const (
	ActionRead Action = iota
	ActionWrite
)

// Owned is implemented by anything whose write access is governed by a
// responsible person. Groceries carry the owner directly; items and daily
// incomes resolve ownership through their grocery, so callers pass the
// owning grocery here.
type Owned interface {
	// Owner returns the responsible person's user id, or false when no
	// owner is assigned.
	Owner() (int64, bool)
}

// Allowed evaluates the permission rules for one principal, action and
// target. Reads are allowed for every authenticated principal so suppliers
// can see each other's catalogs; writes require admin role or ownership.
// When no ownership fact applies the answer is deny.
func Allowed(p Principal, action Action, obj Owned) bool {
	if p.UserID == 0 {
		return false
	}
	if p.IsAdmin() {
		return true
	}
	if action == ActionRead {
		return true
	}
	if obj == nil {
		return false
	}
	owner, ok := obj.Owner()
	if !ok {
		return false
	}
	return owner == p.UserID
}
