package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelierhq/atelier/pkg/auth"
)

// tokenVerifier maps bearer tokens to principals for tests.
type tokenVerifier map[string]*auth.Principal

func (v tokenVerifier) Verify(_ context.Context, credential string) (*auth.Principal, error) {
	principal, ok := v[credential]
	if !ok {
		return nil, assert.AnError
	}
	return principal, nil
}

func newTestServer(t *testing.T) (http.Handler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	verifier := tokenVerifier{
		"user-token":      {ID: 42, Username: "ada", PlatformRole: auth.RoleUser, Status: auth.StatusActive},
		"admin-token":     {ID: 1, Username: "root", PlatformRole: auth.RoleAdmin, Status: auth.StatusActive},
		"suspended-token": {ID: 7, Username: "mallory", PlatformRole: auth.RoleUser, Status: auth.StatusSuspended},
	}

	server := NewServer(ServerConfig{DB: db, Verifier: verifier})
	return server.Handler(), mock
}

func doRequest(handler http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error.Code
}

const membershipQuery = `SELECT role FROM group_members WHERE group_id = \$1 AND user_id = \$2`

func TestCreateGroup(t *testing.T) {
	t.Run("requires authentication", func(t *testing.T) {
		handler, mock := newTestServer(t)

		rec := doRequest(handler, http.MethodPost, "/api/v1/groups", "", `{"name":"Studio","slug":"studio-north"}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "unauthenticated", errorCode(t, rec))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects a suspended account", func(t *testing.T) {
		handler, mock := newTestServer(t)

		rec := doRequest(handler, http.MethodPost, "/api/v1/groups", "suspended-token", `{"name":"Studio","slug":"studio-north"}`)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "forbidden", errorCode(t, rec))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("creates a group for an active user", func(t *testing.T) {
		handler, mock := newTestServer(t)
		now := time.Now()

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO groups`)).
			WithArgs("studio-north", "Studio North", "", sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(7), now, now))
		mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO group_members`)).
			WithArgs(int64(7), int64(42)).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		rec := doRequest(handler, http.MethodPost, "/api/v1/groups", "user-token", `{"name":"Studio North","slug":"studio-north"}`)
		require.Equal(t, http.StatusCreated, rec.Code)

		var body struct {
			Data struct {
				ID   int64  `json:"id"`
				Slug string `json:"slug"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, int64(7), body.Data.ID)
		assert.Equal(t, "studio-north", body.Data.Slug)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("maps validation failures to 400", func(t *testing.T) {
		handler, mock := newTestServer(t)

		rec := doRequest(handler, http.MethodPost, "/api/v1/groups", "user-token", `{"name":"","slug":"studio-north"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "validation", errorCode(t, rec))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestListGroups(t *testing.T) {
	t.Run("is public and clamps the limit", func(t *testing.T) {
		handler, mock := newTestServer(t)

		mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM groups`)).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(150))
		mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY created_at DESC LIMIT $1 OFFSET $2`)).
			WithArgs(100, 100).
			WillReturnRows(sqlmock.NewRows([]string{"id", "slug", "name", "description", "status", "created_at", "updated_at"}))

		rec := doRequest(handler, http.MethodGet, "/api/v1/groups?limit=500&page=2", "", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Data       []json.RawMessage `json:"data"`
			Pagination struct {
				Page  int `json:"page"`
				Limit int `json:"limit"`
				Total int `json:"total"`
				Pages int `json:"pages"`
			} `json:"pagination"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.NotNil(t, body.Data)
		assert.Equal(t, 2, body.Pagination.Page)
		assert.Equal(t, 100, body.Pagination.Limit)
		assert.Equal(t, 150, body.Pagination.Total)
		assert.Equal(t, 2, body.Pagination.Pages)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ignores an unknown sort field", func(t *testing.T) {
		handler, mock := newTestServer(t)

		mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM groups`)).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		rec := doRequest(handler, http.MethodGet, "/api/v1/groups?sort=password;DROP.TABLE", "", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGetGroup(t *testing.T) {
	t.Run("missing group maps to 404", func(t *testing.T) {
		handler, mock := newTestServer(t)

		mock.ExpectQuery(regexp.QuoteMeta(`FROM groups WHERE id = $1`)).
			WithArgs(int64(404)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "slug", "name", "description", "status", "created_at", "updated_at"}))

		rec := doRequest(handler, http.MethodGet, "/api/v1/groups/404", "", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "not_found", errorCode(t, rec))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("non-numeric path resolves by slug", func(t *testing.T) {
		handler, mock := newTestServer(t)
		now := time.Now()

		mock.ExpectQuery(regexp.QuoteMeta(`FROM groups WHERE slug = $1`)).
			WithArgs("studio-north").
			WillReturnRows(sqlmock.NewRows([]string{"id", "slug", "name", "description", "status", "created_at", "updated_at"}).
				AddRow(int64(7), "studio-north", "Studio North", "", "active", now, now))

		rec := doRequest(handler, http.MethodGet, "/api/v1/groups/studio-north", "", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDeleteGroup(t *testing.T) {
	t.Run("owner deletes the group and memberships", func(t *testing.T) {
		handler, mock := newTestServer(t)

		mock.ExpectQuery(membershipQuery).
			WithArgs(int64(7), int64(42)).
			WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow("owner"))
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT id FROM groups WHERE id = $1`)).
			WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM group_members`)).
			WithArgs(int64(7)).
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM groups`)).
			WithArgs(int64(7)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		rec := doRequest(handler, http.MethodDelete, "/api/v1/groups/7", "user-token", "")
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("manager cannot delete", func(t *testing.T) {
		handler, mock := newTestServer(t)

		mock.ExpectQuery(membershipQuery).
			WithArgs(int64(7), int64(42)).
			WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow("manager"))

		rec := doRequest(handler, http.MethodDelete, "/api/v1/groups/7", "user-token", "")
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("platform admin without membership cannot delete", func(t *testing.T) {
		handler, mock := newTestServer(t)

		mock.ExpectQuery(membershipQuery).
			WithArgs(int64(7), int64(1)).
			WillReturnRows(sqlmock.NewRows([]string{"role"}))

		rec := doRequest(handler, http.MethodDelete, "/api/v1/groups/7", "admin-token", "")
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("malformed id maps to 400 before any lookup", func(t *testing.T) {
		handler, mock := newTestServer(t)

		rec := doRequest(handler, http.MethodDelete, "/api/v1/groups/abc", "user-token", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMemberEndpoints(t *testing.T) {
	t.Run("member can list members", func(t *testing.T) {
		handler, mock := newTestServer(t)
		now := time.Now()

		mock.ExpectQuery(membershipQuery).
			WithArgs(int64(7), int64(42)).
			WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow("member"))
		mock.ExpectQuery(regexp.QuoteMeta(`FROM groups WHERE id = $1`)).
			WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "slug", "name", "description", "status", "created_at", "updated_at"}).
				AddRow(int64(7), "studio-north", "Studio North", "", "active", now, now))
		mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY m.joined_at ASC`)).
			WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "group_id", "user_id", "role", "username", "joined_at"}).
				AddRow(int64(1), int64(7), int64(42), "member", "ada", now))

		rec := doRequest(handler, http.MethodGet, "/api/v1/groups/7/members", "user-token", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("member cannot add members", func(t *testing.T) {
		handler, mock := newTestServer(t)

		mock.ExpectQuery(membershipQuery).
			WithArgs(int64(7), int64(42)).
			WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow("member"))

		rec := doRequest(handler, http.MethodPost, "/api/v1/groups/7/members", "user-token", `{"user_id":43,"role":"member"}`)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate membership maps to 409", func(t *testing.T) {
		handler, mock := newTestServer(t)
		now := time.Now()

		mock.ExpectQuery(membershipQuery).
			WithArgs(int64(7), int64(42)).
			WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow("manager"))
		mock.ExpectQuery(regexp.QuoteMeta(`FROM groups WHERE id = $1`)).
			WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "slug", "name", "description", "status", "created_at", "updated_at"}).
				AddRow(int64(7), "studio-north", "Studio North", "", "active", now, now))
		mock.ExpectExec(regexp.QuoteMeta(`ON CONFLICT (group_id, user_id) DO NOTHING`)).
			WithArgs(int64(7), int64(43), "member").
			WillReturnResult(sqlmock.NewResult(0, 0))

		rec := doRequest(handler, http.MethodPost, "/api/v1/groups/7/members", "user-token", `{"user_id":43,"role":"member"}`)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "conflict", errorCode(t, rec))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPublicGalleryEndpoints(t *testing.T) {
	t.Run("lists only published galleries", func(t *testing.T) {
		handler, mock := newTestServer(t)
		now := time.Now()

		mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM galleries WHERE status = $1`)).
			WithArgs("published").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		mock.ExpectQuery(regexp.QuoteMeta(`FROM galleries WHERE status = $1 ORDER BY created_at DESC`)).
			WithArgs("published", 20, 0).
			WillReturnRows(sqlmock.NewRows([]string{"id", "owner_id", "title", "description", "status", "created_at", "updated_at"}).
				AddRow(int64(3), int64(42), "Winter Light", "", "published", now, now))

		rec := doRequest(handler, http.MethodGet, "/api/v1/galleries", "", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("hidden gallery maps to 404", func(t *testing.T) {
		handler, mock := newTestServer(t)

		mock.ExpectQuery(regexp.QuoteMeta(`WHERE id = $1 AND status = $2`)).
			WithArgs(int64(4), "published").
			WillReturnRows(sqlmock.NewRows([]string{"id", "owner_id", "title", "description", "status", "created_at", "updated_at"}))

		rec := doRequest(handler, http.MethodGet, "/api/v1/galleries/4", "", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAdminEndpoints(t *testing.T) {
	t.Run("regular user cannot list users", func(t *testing.T) {
		handler, mock := newTestServer(t)

		rec := doRequest(handler, http.MethodGet, "/api/v1/admin/users", "user-token", "")
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("admin lists users", func(t *testing.T) {
		handler, mock := newTestServer(t)
		now := time.Now()

		mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM users`)).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY created_at DESC LIMIT $1 OFFSET $2`)).
			WithArgs(20, 0).
			WillReturnRows(sqlmock.NewRows([]string{"id", "username", "email", "role", "status", "created_at", "updated_at"}).
				AddRow(int64(42), "ada", "ada@example.com", "user", "active", now, now))

		rec := doRequest(handler, http.MethodGet, "/api/v1/admin/users", "admin-token", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("suspending an already suspended user maps to 409", func(t *testing.T) {
		handler, mock := newTestServer(t)

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT status FROM users WHERE id = $1 FOR UPDATE`)).
			WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("suspended"))
		mock.ExpectRollback()

		rec := doRequest(handler, http.MethodPost, "/api/v1/admin/users/7/suspend", "admin-token", "")
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "conflict", errorCode(t, rec))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("stats snapshot zero-fills every collection", func(t *testing.T) {
		handler, mock := newTestServer(t)

		for _, table := range []string{"users", "groups", "galleries", "artworks"} {
			mock.ExpectQuery(`SELECT status, COUNT\(\*\) FROM ` + table + ` GROUP BY status`).
				WillReturnRows(sqlmock.NewRows([]string{"status", "count"}))
		}
		mock.ExpectQuery(regexp.QuoteMeta(`LEFT JOIN users u ON u.id = a.principal_id`)).
			WithArgs(10).
			WillReturnRows(sqlmock.NewRows([]string{"id", "action", "entity_type", "entity_id", "principal_id", "occurred_at", "username"}))

		rec := doRequest(handler, http.MethodGet, "/api/v1/admin/stats", "admin-token", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Data struct {
				Collections map[string]struct {
					Total    int            `json:"total"`
					ByStatus map[string]int `json:"byStatus"`
				} `json:"collections"`
				RecentActivity []json.RawMessage `json:"recentActivity"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Len(t, body.Data.Collections, 4)
		assert.Equal(t, 0, body.Data.Collections["galleries"].Total)
		assert.Contains(t, body.Data.Collections["galleries"].ByStatus, "hidden")
		assert.NotNil(t, body.Data.RecentActivity)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
