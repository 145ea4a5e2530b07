package handler

import (
	"net/http"

	"github.com/suqify/grocerynet/internal/authz"
	"github.com/suqify/grocerynet/internal/model"
	"github.com/suqify/grocerynet/internal/store"
)

// resolveTargetGrocery decides which grocery a write lands on. Admins must
// name an existing grocery. Suppliers always write to the grocery they are
// responsible for: naming another one is refused, naming none defaults to
// their own, and having none at all is a 403 because the supplier is real
// but has nothing to write to.
func resolveTargetGrocery(p authz.Principal, requested *int64, groceries *store.GroceryStore) (*model.Grocery, int, string) {
	if p.IsAdmin() {
		if requested == nil {
			return nil, http.StatusBadRequest, "grocery is required"
		}
		grocery, err := groceries.GetVisible(*requested, p)
		if err != nil {
			return nil, http.StatusInternalServerError, "failed to resolve grocery"
		}
		if grocery == nil {
			return nil, http.StatusBadRequest, "grocery does not exist"
		}
		return grocery, 0, ""
	}

	owned, err := groceries.GetOwned(p.UserID)
	if err != nil {
		return nil, http.StatusInternalServerError, "failed to resolve grocery"
	}
	if owned == nil {
		return nil, http.StatusForbidden, "you are not responsible for any grocery"
	}
	if requested != nil && *requested != owned.ID {
		return nil, http.StatusForbidden, "you can only write to your own grocery"
	}
	return owned, 0, ""
}

// canWriteThrough reports whether the principal may modify records that
// belong to the given grocery.
func canWriteThrough(p authz.Principal, grocery *model.Grocery) bool {
	return authz.Allowed(p, authz.ActionWrite, grocery)
}
