package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/suqify/grocerynet/internal/auth"
	"github.com/suqify/grocerynet/internal/events"
	"github.com/suqify/grocerynet/internal/model"
	"github.com/suqify/grocerynet/internal/store"
)

const dateLayout = "2006-01-02"

type IncomeHandler struct {
	incomes   *store.IncomeStore
	groceries *store.GroceryStore
	bus       *events.Bus
	logger    *slog.Logger
}

func NewIncomeHandler(incomes *store.IncomeStore, groceries *store.GroceryStore, bus *events.Bus, logger *slog.Logger) *IncomeHandler {
	return &IncomeHandler{incomes: incomes, groceries: groceries, bus: bus, logger: logger.With("component", "incomes")}
}

func (h *IncomeHandler) List(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	incomes, err := h.incomes.ListVisible(p)
	if err != nil {
		h.logger.Error("list incomes", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list daily incomes")
		return
	}
	if incomes == nil {
		incomes = []model.DailyIncome{}
	}
	writeJSON(w, http.StatusOK, incomes)
}

func (h *IncomeHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	income, err := h.incomes.GetVisible(id, p)
	if err != nil {
		h.logger.Error("get income", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get daily income")
		return
	}
	if income == nil {
		writeError(w, http.StatusNotFound, "daily income not found")
		return
	}
	writeJSON(w, http.StatusOK, income)
}

// Create records one day's takings. A second record for the same grocery and
// date is refused: the pre-check answers 403, and the unique index backs it
// up with a 409 if two requests race past the pre-check.
func (h *IncomeHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())

	var req struct {
		Amount  string `json:"amount"`
		Date    string `json:"date"`
		Grocery *int64 `json:"grocery"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || amount.IsNegative() {
		writeError(w, http.StatusBadRequest, "amount must be a non-negative decimal")
		return
	}
	if _, err := time.Parse(dateLayout, req.Date); err != nil {
		writeError(w, http.StatusBadRequest, "date must be formatted YYYY-MM-DD")
		return
	}

	grocery, status, msg := resolveTargetGrocery(p, req.Grocery, h.groceries)
	if status != 0 {
		writeError(w, status, msg)
		return
	}

	exists, err := h.incomes.ExistsForDate(grocery.ID, req.Date)
	if err != nil {
		h.logger.Error("check income date", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create daily income")
		return
	}
	if exists {
		writeError(w, http.StatusForbidden, "income for this date already exists")
		return
	}

	income, err := h.incomes.Create(grocery.ID, amount, req.Date)
	if errors.Is(err, store.ErrDuplicateDate) {
		writeError(w, http.StatusConflict, "income for this date already exists")
		return
	}
	if err != nil {
		h.logger.Error("create income", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create daily income")
		return
	}

	h.bus.Publish(events.Event{Entity: events.EntityIncome, Action: events.ActionCreated, ID: income.ID})
	writeJSON(w, http.StatusCreated, income)
}

func (h *IncomeHandler) Update(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.incomes.GetVisible(id, p)
	if err != nil {
		h.logger.Error("get income", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get daily income")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "daily income not found")
		return
	}

	owner, err := h.groceries.GetByID(existing.GroceryID)
	if err != nil {
		h.logger.Error("get owning grocery", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get daily income")
		return
	}
	if !canWriteThrough(p, owner) {
		writeError(w, http.StatusForbidden, "you do not have permission to modify this daily income")
		return
	}

	var req struct {
		Amount *string `json:"amount"`
		Date   *string `json:"date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	amount := existing.Amount
	if req.Amount != nil {
		amount, err = decimal.NewFromString(*req.Amount)
		if err != nil || amount.IsNegative() {
			writeError(w, http.StatusBadRequest, "amount must be a non-negative decimal")
			return
		}
	}
	date := existing.Date
	if req.Date != nil {
		if _, err := time.Parse(dateLayout, *req.Date); err != nil {
			writeError(w, http.StatusBadRequest, "date must be formatted YYYY-MM-DD")
			return
		}
		date = *req.Date
	}

	if date != existing.Date {
		exists, err := h.incomes.ExistsForDate(existing.GroceryID, date)
		if err != nil {
			h.logger.Error("check income date", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to update daily income")
			return
		}
		if exists {
			writeError(w, http.StatusForbidden, "income for this date already exists")
			return
		}
	}

	income, err := h.incomes.Update(id, amount, date)
	if errors.Is(err, store.ErrDuplicateDate) {
		writeError(w, http.StatusConflict, "income for this date already exists")
		return
	}
	if err != nil {
		h.logger.Error("update income", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update daily income")
		return
	}

	h.bus.Publish(events.Event{Entity: events.EntityIncome, Action: events.ActionUpdated, ID: income.ID})
	writeJSON(w, http.StatusOK, income)
}

func (h *IncomeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	existing, err := h.incomes.GetVisible(id, p)
	if err != nil {
		h.logger.Error("get income", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get daily income")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "daily income not found")
		return
	}

	owner, err := h.groceries.GetByID(existing.GroceryID)
	if err != nil {
		h.logger.Error("get owning grocery", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get daily income")
		return
	}
	if !canWriteThrough(p, owner) {
		writeError(w, http.StatusForbidden, "you do not have permission to delete this daily income")
		return
	}

	if err := h.incomes.SoftDelete(id); err != nil {
		h.logger.Error("delete income", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete daily income")
		return
	}

	h.bus.Publish(events.Event{Entity: events.EntityIncome, Action: events.ActionDeleted, ID: id})
	w.WriteHeader(http.StatusNoContent)
}
