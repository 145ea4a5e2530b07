package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/suqify/grocerynet/internal/model"
)

func TestMintAndParse(t *testing.T) {
	tokens := NewTokens("test-secret")

	u := &model.User{ID: 42, Username: "supplier1", Role: model.RoleSupplier}
	signed, err := tokens.Mint(u)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	claims, err := tokens.Parse(signed)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != 42 {
		t.Errorf("UserID = %d, want 42", claims.UserID)
	}
	if claims.Username != "supplier1" {
		t.Errorf("Username = %q, want %q", claims.Username, "supplier1")
	}
	if claims.Role != model.RoleSupplier {
		t.Errorf("Role = %q, want %q", claims.Role, model.RoleSupplier)
	}
}

func TestParseWrongSecret(t *testing.T) {
	signed, err := NewTokens("secret-a").Mint(&model.User{ID: 1, Username: "x", Role: model.RoleAdmin})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	_, err = NewTokens("secret-b").Parse(signed)
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestParseExpired(t *testing.T) {
	tokens := NewTokens("test-secret")
	tokens.ttl = -time.Minute

	signed, err := tokens.Mint(&model.User{ID: 1, Username: "x", Role: model.RoleSupplier})
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	_, err = tokens.Parse(signed)
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}

func TestParseGarbage(t *testing.T) {
	_, err := NewTokens("test-secret").Parse("not-a-token")
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("err = %v, want ErrInvalidToken", err)
	}
}
