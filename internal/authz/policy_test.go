package authz

import (
	"testing"

	"github.com/suqify/grocerynet/internal/model"
)

func grocery(ownerID *int64) *model.Grocery {
	return &model.Grocery{ID: 1, Name: "Jeddah Branch", ResponsiblePersonID: ownerID}
}

func TestAllowedAnonymousDenied(t *testing.T) {
	owner := int64(7)
	if Allowed(Principal{}, ActionRead, grocery(&owner)) {
		t.Error("anonymous read should be denied")
	}
	if Allowed(Principal{}, ActionWrite, grocery(&owner)) {
		t.Error("anonymous write should be denied")
	}
}

func TestAllowedAdminEverything(t *testing.T) {
	admin := Principal{UserID: 1, Role: model.RoleAdmin}
	other := int64(7)

	if !Allowed(admin, ActionWrite, grocery(&other)) {
		t.Error("admin write to someone else's grocery should be allowed")
	}
	if !Allowed(admin, ActionWrite, grocery(nil)) {
		t.Error("admin write to unowned grocery should be allowed")
	}
	if !Allowed(admin, ActionWrite, nil) {
		t.Error("admin write with no ownership fact should be allowed")
	}
}

func TestAllowedCrossTenantRead(t *testing.T) {
	supplier := Principal{UserID: 2, Role: model.RoleSupplier}
	other := int64(7)

	if !Allowed(supplier, ActionRead, grocery(&other)) {
		t.Error("authenticated read of another tenant's object should be allowed")
	}
}

func TestAllowedWriteRequiresOwnership(t *testing.T) {
	supplier := Principal{UserID: 2, Role: model.RoleSupplier}
	self := int64(2)
	other := int64(7)

	if !Allowed(supplier, ActionWrite, grocery(&self)) {
		t.Error("owner write should be allowed")
	}
	if Allowed(supplier, ActionWrite, grocery(&other)) {
		t.Error("non-owner write should be denied")
	}
}

func TestAllowedFailsClosed(t *testing.T) {
	supplier := Principal{UserID: 2, Role: model.RoleSupplier}

	if Allowed(supplier, ActionWrite, grocery(nil)) {
		t.Error("write to unowned grocery should be denied")
	}
	if Allowed(supplier, ActionWrite, nil) {
		t.Error("write with no ownership fact should be denied")
	}
}
