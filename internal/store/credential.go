package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dukerupert/shoplist/internal/model"
	"github.com/dukerupert/shoplist/internal/secret"
)

// CredentialStore keeps at most one session credential. Tokens are sealed
// when a sealer is configured.
type CredentialStore struct {
	db     *sql.DB
	sealer *secret.Sealer
}

// NewCredentialStore creates a store. sealer may be nil.
func NewCredentialStore(db *sql.DB, sealer *secret.Sealer) *CredentialStore {
	return &CredentialStore{db: db, sealer: sealer}
}

// Save replaces the stored credential.
func (s *CredentialStore) Save(ctx context.Context, cred model.StoredCredential) error {
	token := []byte(cred.Token)
	sealed := false
	if s.sealer != nil {
		var err error
		token, err = s.sealer.Seal(token)
		if err != nil {
			return fmt.Errorf("seal token: %w", err)
		}
		sealed = true
	}

	var expiresAt sql.NullTime
	if cred.ExpiresAt != nil {
		expiresAt = sql.NullTime{Time: cred.ExpiresAt.UTC(), Valid: true}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM credentials`); err != nil {
		return fmt.Errorf("delete credentials: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO credentials (email, token, sealed, expires_at) VALUES (?, ?, ?, ?)`,
		cred.Email, token, sealed, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("insert credential: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Load returns the stored credential, or nil if there is none.
func (s *CredentialStore) Load(ctx context.Context) (*model.StoredCredential, error) {
	var cred model.StoredCredential
	var token []byte
	var sealed bool
	var expiresAt sql.NullTime

	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, token, sealed, expires_at, created_at FROM credentials ORDER BY id DESC LIMIT 1`,
	).Scan(&cred.ID, &cred.Email, &token, &sealed, &expiresAt, &cred.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get credential: %w", err)
	}

	if sealed {
		if s.sealer == nil {
			return nil, fmt.Errorf("credential is sealed and no passphrase is configured")
		}
		token, err = s.sealer.Open(token)
		if err != nil {
			return nil, fmt.Errorf("open token: %w", err)
		}
	}
	cred.Token = string(token)
	if expiresAt.Valid {
		cred.ExpiresAt = &expiresAt.Time
	}
	return &cred, nil
}

// Clear removes any stored credential.
func (s *CredentialStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM credentials`); err != nil {
		return fmt.Errorf("delete credentials: %w", err)
	}
	return nil
}
