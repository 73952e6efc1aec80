package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelierhq/atelier/pkg/apperr"
)

func TestPostgresVerifier(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	verifier := NewPostgresVerifier(db)

	hashOf := func(token string) string {
		sum := sha256.Sum256([]byte(token))
		return hex.EncodeToString(sum[:])
	}

	t.Run("resolves a known token to its principal", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`WHERE t.token_hash = $1 AND t.revoked_at IS NULL`)).
			WithArgs(hashOf("tok-abc")).
			WillReturnRows(sqlmock.NewRows([]string{"id", "username", "role", "status"}).
				AddRow(int64(42), "ada", "user", "active"))

		principal, err := verifier.Verify(context.Background(), "tok-abc")
		require.NoError(t, err)
		assert.Equal(t, int64(42), principal.ID)
		assert.Equal(t, RoleUser, principal.PlatformRole)
		assert.Equal(t, StatusActive, principal.Status)
		assert.False(t, principal.VerifiedAt.IsZero())
	})

	t.Run("unknown token is unauthenticated", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`WHERE t.token_hash = $1`)).
			WithArgs(hashOf("tok-bogus")).
			WillReturnRows(sqlmock.NewRows([]string{"id", "username", "role", "status"}))

		_, err := verifier.Verify(context.Background(), "tok-bogus")
		assert.Equal(t, apperr.CodeUnauthenticated, apperr.CodeOf(err))
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}
