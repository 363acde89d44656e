package httpapi

import (
	"context"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"onestoppos/backend/internal/domain"
)

type userStoreStub struct {
	users []domain.UserAccount
}

func (s *userStoreStub) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.users = append(s.users, user)
	return nil
}

func (s *userStoreStub) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	return s.users, nil
}

func hashForTest(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return string(hash)
}

func TestLoginIssuesParseableToken(t *testing.T) {
	store := &userStoreStub{users: []domain.UserAccount{{
		Username:  "admin",
		Password:  hashForTest(t, "correct-horse"),
		Role:      "admin",
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}}}
	auth := NewAuthManager("test-secret", time.Hour, store)

	resp, err := auth.Login(domain.LoginRequest{Username: "Admin", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if resp.Role != "admin" {
		t.Fatalf("role = %q, want admin", resp.Role)
	}

	actor, err := auth.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if actor.Username != "admin" || actor.Role != "admin" {
		t.Fatalf("actor = %+v", actor)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	store := &userStoreStub{users: []domain.UserAccount{{
		Username: "cashier",
		Password: hashForTest(t, "right"),
		Role:     "cashier",
		Active:   true,
	}}}
	auth := NewAuthManager("test-secret", time.Hour, store)

	if _, err := auth.Login(domain.LoginRequest{Username: "cashier", Password: "wrong"}); err == nil {
		t.Fatal("expected error for wrong password")
	}
}

func TestLoginRejectsInactiveAccount(t *testing.T) {
	store := &userStoreStub{users: []domain.UserAccount{{
		Username: "retired",
		Password: hashForTest(t, "secret"),
		Role:     "cashier",
		Active:   false,
	}}}
	auth := NewAuthManager("test-secret", time.Hour, store)

	if _, err := auth.Login(domain.LoginRequest{Username: "retired", Password: "secret"}); err == nil {
		t.Fatal("expected error for inactive account")
	}
}

func TestLoginNeverAcceptsPlainTextStoredPassword(t *testing.T) {
	store := &userStoreStub{users: []domain.UserAccount{{
		Username: "legacy",
		Password: "plain-text",
		Role:     "cashier",
		Active:   true,
	}}}
	auth := NewAuthManager("test-secret", time.Hour, store)

	if _, err := auth.Login(domain.LoginRequest{Username: "legacy", Password: "plain-text"}); err == nil {
		t.Fatal("plain-text stored password must not authenticate")
	}
}

func TestParseTokenRejectsForeignSecret(t *testing.T) {
	store := &userStoreStub{users: []domain.UserAccount{{
		Username: "admin",
		Password: hashForTest(t, "pw"),
		Role:     "admin",
		Active:   true,
	}}}
	issuer := NewAuthManager("secret-a", time.Hour, store)
	verifier := NewAuthManager("secret-b", time.Hour, store)

	resp, err := issuer.Login(domain.LoginRequest{Username: "admin", Password: "pw"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := verifier.ParseToken(resp.AccessToken); err == nil {
		t.Fatal("token signed under a different secret must not verify")
	}
}
