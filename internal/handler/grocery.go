package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/suqify/grocerynet/internal/auth"
	"github.com/suqify/grocerynet/internal/authz"
	"github.com/suqify/grocerynet/internal/events"
	"github.com/suqify/grocerynet/internal/model"
	"github.com/suqify/grocerynet/internal/store"
)

type GroceryHandler struct {
	groceries *store.GroceryStore
	bus       *events.Bus
	logger    *slog.Logger
}

func NewGroceryHandler(groceries *store.GroceryStore, bus *events.Bus, logger *slog.Logger) *GroceryHandler {
	return &GroceryHandler{groceries: groceries, bus: bus, logger: logger.With("component", "groceries")}
}

func (h *GroceryHandler) List(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	groceries, err := h.groceries.ListVisible(p)
	if err != nil {
		h.logger.Error("list groceries", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list groceries")
		return
	}
	if groceries == nil {
		groceries = []model.Grocery{}
	}
	writeJSON(w, http.StatusOK, groceries)
}

func (h *GroceryHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	grocery, err := h.groceries.GetVisible(id, p)
	if err != nil {
		h.logger.Error("get grocery", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get grocery")
		return
	}
	if grocery == nil {
		writeError(w, http.StatusNotFound, "grocery not found")
		return
	}
	writeJSON(w, http.StatusOK, grocery)
}

// Create registers a new grocery branch. Only admins may create branches;
// suppliers get 403 rather than 404 because the collection itself is visible
// to them.
func (h *GroceryHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	if !p.IsAdmin() {
		writeError(w, http.StatusForbidden, "only admins can create groceries")
		return
	}

	var req struct {
		Name              string `json:"name"`
		Location          string `json:"location"`
		ResponsiblePerson *int64 `json:"responsible_person"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	grocery, err := h.groceries.Create(req.Name, req.Location, req.ResponsiblePerson)
	if err != nil {
		h.logger.Error("create grocery", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create grocery")
		return
	}

	h.bus.Publish(events.Event{Entity: events.EntityGrocery, Action: events.ActionCreated, ID: grocery.ID})
	writeJSON(w, http.StatusCreated, grocery)
}

// Update applies a partial update. Fields absent from the body keep their
// current values.
func (h *GroceryHandler) Update(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.groceries.GetVisible(id, p)
	if err != nil {
		h.logger.Error("get grocery", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get grocery")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "grocery not found")
		return
	}
	if !authz.Allowed(p, authz.ActionWrite, existing) {
		writeError(w, http.StatusForbidden, "you do not have permission to modify this grocery")
		return
	}

	// responsible_person stays raw so an explicit null (unassign) can be
	// told apart from the field being absent (keep).
	var req struct {
		Name              *string         `json:"name"`
		Location          *string         `json:"location"`
		ResponsiblePerson json.RawMessage `json:"responsible_person"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	name := existing.Name
	if req.Name != nil {
		name = strings.TrimSpace(*req.Name)
		if name == "" {
			writeError(w, http.StatusBadRequest, "name cannot be empty")
			return
		}
	}
	location := existing.Location
	if req.Location != nil {
		location = *req.Location
	}
	responsible := existing.ResponsiblePersonID
	if len(req.ResponsiblePerson) > 0 {
		// Assignment is an admin decision either way.
		if string(req.ResponsiblePerson) == "null" {
			if !p.IsAdmin() {
				writeError(w, http.StatusForbidden, "only admins can reassign groceries")
				return
			}
			responsible = nil
		} else {
			var userID int64
			if err := json.Unmarshal(req.ResponsiblePerson, &userID); err != nil {
				writeError(w, http.StatusBadRequest, "responsible_person must be a user id or null")
				return
			}
			if !p.IsAdmin() && userID != p.UserID {
				writeError(w, http.StatusForbidden, "only admins can reassign groceries")
				return
			}
			responsible = &userID
		}
	}

	grocery, err := h.groceries.Update(id, name, location, responsible)
	if err != nil {
		h.logger.Error("update grocery", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update grocery")
		return
	}

	h.bus.Publish(events.Event{Entity: events.EntityGrocery, Action: events.ActionUpdated, ID: grocery.ID})
	writeJSON(w, http.StatusOK, grocery)
}

// Delete flags the grocery as deleted. The row survives for audit and for
// restoring by hand; it simply stops appearing in any listing.
func (h *GroceryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.groceries.GetVisible(id, p)
	if err != nil {
		h.logger.Error("get grocery", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get grocery")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "grocery not found")
		return
	}
	if !authz.Allowed(p, authz.ActionWrite, existing) {
		writeError(w, http.StatusForbidden, "you do not have permission to delete this grocery")
		return
	}

	if err := h.groceries.SoftDelete(id); err != nil {
		h.logger.Error("delete grocery", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete grocery")
		return
	}

	h.bus.Publish(events.Event{Entity: events.EntityGrocery, Action: events.ActionDeleted, ID: id})
	w.WriteHeader(http.StatusNoContent)
}
