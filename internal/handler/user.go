package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/suqify/grocerynet/internal/model"
	"github.com/suqify/grocerynet/internal/store"
)

type UserHandler struct {
	users  *store.UserStore
	logger *slog.Logger
}

func NewUserHandler(users *store.UserStore, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger.With("component", "users")}
}

// CreateSupplier registers a new supplier account. Admin only; the route is
// gated by the admin middleware.
func (h *UserHandler) CreateSupplier(w http.ResponseWriter, r *http.Request) {
	h.createUser(w, r, model.RoleSupplier)
}

// CreateAdmin registers another admin account. Admin only.
func (h *UserHandler) CreateAdmin(w http.ResponseWriter, r *http.Request) {
	h.createUser(w, r, model.RoleAdmin)
}

func (h *UserHandler) createUser(w http.ResponseWriter, r *http.Request, role model.Role) {
	var req struct {
		Username  string `json:"username"`
		Password  string `json:"password"`
		Email     string `json:"email"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" {
		writeError(w, http.StatusBadRequest, "username is required")
		return
	}
	if req.Password == "" {
		writeError(w, http.StatusBadRequest, "password is required")
		return
	}

	existing, err := h.users.GetByUsername(req.Username)
	if err != nil {
		h.logger.Error("check username", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}
	if existing != nil {
		writeError(w, http.StatusBadRequest, "a user with that username already exists")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("hash password", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	user, err := h.users.Create(req.Username, req.Email, string(hash), req.FirstName, req.LastName, role)
	if err != nil {
		h.logger.Error("create user", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	h.logger.Info("user created", "username", user.Username, "role", string(role))
	writeJSON(w, http.StatusCreated, user)
}
