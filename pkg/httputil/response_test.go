package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelierhq/atelier/pkg/apperr"
)

func TestWriteData(t *testing.T) {
	w := httptest.NewRecorder()
	err := WriteData(w, map[string]string{"slug": "studio-alpha"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body map[string]map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "studio-alpha", body["data"]["slug"])
}

func TestWriteListEncodesNilAsEmptyArray(t *testing.T) {
	type group struct{}
	tests := []struct {
		name string
		data interface{}
	}{
		{"untyped nil", nil},
		{"typed nil slice", []group(nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			err := WriteList(w, tt.data, NewMeta(1, 20, 0))
			require.NoError(t, err)

			var body struct {
				Data       []interface{} `json:"data"`
				Pagination Meta          `json:"pagination"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.NotNil(t, body.Data)
			assert.Empty(t, body.Data)
			assert.Equal(t, 0, body.Pagination.Pages)
		})
	}
}

func TestWriteErrorMapsTaxonomy(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"unauthenticated", apperr.Unauthenticated("missing credentials"), http.StatusUnauthorized, "unauthenticated"},
		{"forbidden", apperr.Forbidden("account not active"), http.StatusForbidden, "forbidden"},
		{"not found", apperr.NotFound("group not found"), http.StatusNotFound, "not_found"},
		{"conflict", apperr.Conflict("already suspended"), http.StatusConflict, "conflict"},
		{"validation", apperr.Validation("name is required"), http.StatusBadRequest, "validation"},
		{"unclassified masked as internal", errors.New("pq: relation missing"), http.StatusInternalServerError, "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest("GET", "/test", nil)
			WriteError(w, r, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)

			var body ErrorBody
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body.Error.Code)
			assert.NotEmpty(t, body.Error.Message)
		})
	}
}

func TestWriteErrorNeverLeaksInternalDetail(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/test", nil)
	WriteError(w, r, errors.New("pq: password authentication failed for user postgres"))

	assert.NotContains(t, w.Body.String(), "password")
	assert.Contains(t, w.Body.String(), "internal error")
}

func TestWriteNoContent(t *testing.T) {
	w := httptest.NewRecorder()
	WriteNoContent(w)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}
