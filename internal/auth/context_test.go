package auth

import (
	"context"
	"testing"

	"github.com/dukerupert/shoplist/internal/model"
)

func TestWithSessionAndFromContext(t *testing.T) {
	s := model.Session{
		Status: model.StatusAuthenticated,
		Token:  "tok",
		Email:  "a@b.co",
	}

	ctx := WithSession(context.Background(), s)
	got, ok := FromContext(ctx)
	if !ok {
		t.Fatal("expected session in context")
	}
	if got.Status != model.StatusAuthenticated {
		t.Errorf("Status = %q, want %q", got.Status, model.StatusAuthenticated)
	}
	if got.Email != "a@b.co" {
		t.Errorf("Email = %q, want %q", got.Email, "a@b.co")
	}
}

func TestFromContextMissing(t *testing.T) {
	_, ok := FromContext(context.Background())
	if ok {
		t.Error("expected false for missing session")
	}
}

func TestEmailMissing(t *testing.T) {
	if Email(context.Background()) != "" {
		t.Error("expected empty email for missing context")
	}
}

func TestIsAuthenticated(t *testing.T) {
	ctx := WithSession(context.Background(), model.Session{Status: model.StatusAuthenticated, Token: "t"})
	if !IsAuthenticated(ctx) {
		t.Error("expected IsAuthenticated = true")
	}
}

func TestIsAuthenticatedPending(t *testing.T) {
	ctx := WithSession(context.Background(), model.Session{Status: model.StatusPendingTwoFactor, PendingEmail: "a@b.co"})
	if IsAuthenticated(ctx) {
		t.Error("expected IsAuthenticated = false while pending")
	}
}
