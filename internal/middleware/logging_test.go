package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/suqify/grocerynet/internal/model"
)

func TestRequestLoggerBasicFields(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/groceries/99", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	if line["method"] != "GET" || line["path"] != "/api/groceries/99" {
		t.Errorf("unexpected request fields: %v", line)
	}
	if line["status"] != float64(http.StatusNotFound) {
		t.Errorf("status = %v, want 404", line["status"])
	}
	if line["level"] != "WARN" {
		t.Errorf("level = %v, want WARN for 4xx", line["level"])
	}
	if _, ok := line["user"]; ok {
		t.Error("anonymous request logged a user")
	}
}

func TestRequestLoggerIncludesPrincipal(t *testing.T) {
	tokens, users := setupAuth(t)
	user, err := users.Create("supplier1", "s1@example.com", "x", "", "", model.RoleSupplier)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	token, err := tokens.Mint(user)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := RequestLogger(logger)(RequireAuth(tokens, users)(inner))

	req := httptest.NewRequest(http.MethodGet, "/api/groceries", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	if line["user"] != "supplier1" {
		t.Errorf("user = %v, want supplier1", line["user"])
	}
	if line["role"] != string(model.RoleSupplier) {
		t.Errorf("role = %v, want %s", line["role"], model.RoleSupplier)
	}
}
