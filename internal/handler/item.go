package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/suqify/grocerynet/internal/auth"
	"github.com/suqify/grocerynet/internal/events"
	"github.com/suqify/grocerynet/internal/model"
	"github.com/suqify/grocerynet/internal/store"
)

type ItemHandler struct {
	items     *store.ItemStore
	groceries *store.GroceryStore
	bus       *events.Bus
	logger    *slog.Logger
}

func NewItemHandler(items *store.ItemStore, groceries *store.GroceryStore, bus *events.Bus, logger *slog.Logger) *ItemHandler {
	return &ItemHandler{items: items, groceries: groceries, bus: bus, logger: logger.With("component", "items")}
}

func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	items, err := h.items.ListVisible(p)
	if err != nil {
		h.logger.Error("list items", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list items")
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *ItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	item, err := h.items.GetVisible(id, p)
	if err != nil {
		h.logger.Error("get item", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get item")
		return
	}
	if item == nil {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())

	var req struct {
		Name              string `json:"name"`
		ItemType          string `json:"item_type"`
		Price             string `json:"price"`
		LocationInGrocery string `json:"location_in_grocery"`
		Grocery           *int64 `json:"grocery"`
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
	price, err := decimal.NewFromString(req.Price)
	if err != nil || price.IsNegative() {
		writeError(w, http.StatusBadRequest, "price must be a non-negative decimal")
		return
	}

	grocery, status, msg := resolveTargetGrocery(p, req.Grocery, h.groceries)
	if status != 0 {
		writeError(w, status, msg)
		return
	}

	item, err := h.items.Create(grocery.ID, req.Name, req.ItemType, req.LocationInGrocery, price)
	if err != nil {
		h.logger.Error("create item", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create item")
		return
	}

	h.bus.Publish(events.Event{Entity: events.EntityItem, Action: events.ActionCreated, ID: item.ID})
	writeJSON(w, http.StatusCreated, item)
}

func (h *ItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.items.GetVisible(id, p)
	if err != nil {
		h.logger.Error("get item", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get item")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}

	owner, err := h.groceries.GetByID(existing.GroceryID)
	if err != nil {
		h.logger.Error("get owning grocery", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get item")
		return
	}
	if !canWriteThrough(p, owner) {
		writeError(w, http.StatusForbidden, "you do not have permission to modify this item")
		return
	}

	var req struct {
		Name              *string `json:"name"`
		ItemType          *string `json:"item_type"`
		Price             *string `json:"price"`
		LocationInGrocery *string `json:"location_in_grocery"`
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
	itemType := existing.ItemType
	if req.ItemType != nil {
		itemType = *req.ItemType
	}
	location := existing.LocationInGrocery
	if req.LocationInGrocery != nil {
		location = *req.LocationInGrocery
	}
	price := existing.Price
	if req.Price != nil {
		price, err = decimal.NewFromString(*req.Price)
		if err != nil || price.IsNegative() {
			writeError(w, http.StatusBadRequest, "price must be a non-negative decimal")
			return
		}
	}

	item, err := h.items.Update(id, name, itemType, location, price)
	if err != nil {
		h.logger.Error("update item", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update item")
		return
	}

	h.bus.Publish(events.Event{Entity: events.EntityItem, Action: events.ActionUpdated, ID: item.ID})
	writeJSON(w, http.StatusOK, item)
}

func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.items.GetVisible(id, p)
	if err != nil {
		h.logger.Error("get item", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get item")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}

	owner, err := h.groceries.GetByID(existing.GroceryID)
	if err != nil {
		h.logger.Error("get owning grocery", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get item")
		return
	}
	if !canWriteThrough(p, owner) {
		writeError(w, http.StatusForbidden, "you do not have permission to delete this item")
		return
	}

	if err := h.items.SoftDelete(id); err != nil {
		h.logger.Error("delete item", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete item")
		return
	}

	h.bus.Publish(events.Event{Entity: events.EntityItem, Action: events.ActionDeleted, ID: id})
	w.WriteHeader(http.StatusNoContent)
}
