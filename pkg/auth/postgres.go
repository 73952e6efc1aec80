package auth

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/atelierhq/atelier/pkg/apperr"
)

// PostgresVerifier resolves bearer tokens against the api_tokens table.
// Tokens are stored as SHA-256 hashes, so a plain credential never touches
// the database or its logs.
type PostgresVerifier struct {
	db *sql.DB
}

// NewPostgresVerifier creates a verifier backed by the given database.
func NewPostgresVerifier(db *sql.DB) *PostgresVerifier {
	return &PostgresVerifier{db: db}
}

// Verify looks up the credential's owner. Unknown and revoked tokens are
// indistinguishable to the caller.
func (v *PostgresVerifier) Verify(ctx context.Context, credential string) (*Principal, error) {
	sum := sha256.Sum256([]byte(credential))
	hash := hex.EncodeToString(sum[:])

	principal := &Principal{}
	err := v.db.QueryRowContext(ctx, `
		SELECT u.id, u.username, u.role, u.status
		FROM api_tokens t
		JOIN users u ON u.id = t.user_id
		WHERE t.token_hash = $1 AND t.revoked_at IS NULL
	`, hash).Scan(&principal.ID, &principal.Username, &principal.PlatformRole, &principal.Status)
	if err == sql.ErrNoRows {
		return nil, apperr.Unauthenticated("unknown credential")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to verify credential: %w", err)
	}

	principal.VerifiedAt = time.Now()
	return principal, nil
}
