package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubVerifier struct {
	principal *Principal
	err       error
}

func (v *stubVerifier) Verify(_ context.Context, _ string) (*Principal, error) {
	return v.principal, v.err
}

func TestMiddlewareAttachesPrincipal(t *testing.T) {
	want := &Principal{ID: 7, Username: "vera", PlatformRole: RoleUser, Status: StatusActive}
	m := NewMiddleware(&stubVerifier{principal: want})

	var got *Principal
	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = PrincipalFrom(r.Context())
	}))

	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Authorization", "Bearer tok_abc")
	handler.ServeHTTP(httptest.NewRecorder(), r)

	assert.Equal(t, want, got)
}

func TestMiddlewareMissingHeaderPassesThroughUnauthenticated(t *testing.T) {
	m := NewMiddleware(&stubVerifier{err: errors.New("should not be called")})

	called := false
	var got *Principal
	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		got = PrincipalFrom(r.Context())
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/", nil))

	assert.True(t, called)
	assert.Nil(t, got)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMiddlewareRejectsInvalidCredential(t *testing.T) {
	m := NewMiddleware(&stubVerifier{err: errors.New("expired")})

	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Authorization", "Bearer tok_expired")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "unauthenticated")
}

func TestMiddlewareRejectsMalformedHeader(t *testing.T) {
	m := NewMiddleware(&stubVerifier{principal: &Principal{ID: 1}})

	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPrincipalHelpers(t *testing.T) {
	assert.False(t, (*Principal)(nil).IsAdmin())
	assert.False(t, (*Principal)(nil).IsActive())

	admin := &Principal{PlatformRole: RoleAdmin, Status: StatusSuspended}
	assert.True(t, admin.IsAdmin())
	assert.False(t, admin.IsActive())

	user := &Principal{PlatformRole: RoleUser, Status: StatusActive}
	assert.False(t, user.IsAdmin())
	assert.True(t, user.IsActive())
}
