package store

import (
	"context"
	"testing"
	"time"

	"github.com/dukerupert/shoplist/internal/database"
	"github.com/dukerupert/shoplist/internal/model"
	"github.com/dukerupert/shoplist/internal/secret"
)

func setupCredentialStore(t *testing.T, sealer *secret.Sealer) *CredentialStore {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewCredentialStore(db, sealer)
}

func TestCredentialLoadEmpty(t *testing.T) {
	s := setupCredentialStore(t, nil)

	cred, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cred != nil {
		t.Error("expected nil credential")
	}
}

func TestCredentialSaveReplaces(t *testing.T) {
	s := setupCredentialStore(t, nil)
	ctx := context.Background()
	exp := time.Now().Add(time.Hour).UTC().Truncate(time.Second)

	if err := s.Save(ctx, model.StoredCredential{Email: "old@b.co", Token: "old"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Save(ctx, model.StoredCredential{Email: "a@b.co", Token: "tok", ExpiresAt: &exp}); err != nil {
		t.Fatalf("save: %v", err)
	}

	cred, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cred == nil {
		t.Fatal("expected credential")
	}
	if cred.Email != "a@b.co" || cred.Token != "tok" {
		t.Errorf("credential = %+v", cred)
	}
	if cred.ExpiresAt == nil || !cred.ExpiresAt.Equal(exp) {
		t.Errorf("expires at = %v, want %v", cred.ExpiresAt, exp)
	}

	var n int
	s.db.QueryRow(`SELECT COUNT(*) FROM credentials`).Scan(&n)
	if n != 1 {
		t.Errorf("rows = %d, want 1", n)
	}
}

func TestCredentialClear(t *testing.T) {
	s := setupCredentialStore(t, nil)
	ctx := context.Background()

	s.Save(ctx, model.StoredCredential{Email: "a@b.co", Token: "tok"})
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	cred, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cred != nil {
		t.Error("expected nil after clear")
	}
}

func TestCredentialSealed(t *testing.T) {
	s := setupCredentialStore(t, secret.NewSealer("passphrase"))
	ctx := context.Background()

	if err := s.Save(ctx, model.StoredCredential{Email: "a@b.co", Token: "secret-token"}); err != nil {
		t.Fatalf("save: %v", err)
	}

	var raw []byte
	if err := s.db.QueryRow(`SELECT token FROM credentials`).Scan(&raw); err != nil {
		t.Fatal(err)
	}
	if string(raw) == "secret-token" {
		t.Error("expected token sealed at rest")
	}

	cred, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cred.Token != "secret-token" {
		t.Errorf("token = %q", cred.Token)
	}

	// Without the passphrase the sealed token cannot be read.
	plain := NewCredentialStore(s.db, nil)
	if _, err := plain.Load(ctx); err == nil {
		t.Error("expected error loading sealed token without passphrase")
	}
}
