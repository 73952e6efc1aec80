package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/atelierhq/atelier/pkg/artworks"
	"github.com/atelierhq/atelier/pkg/httputil"
)

// ArtworkHandlers serves the public artwork endpoints.
type ArtworkHandlers struct {
	service *artworks.PostgresService
}

// NewArtworkHandlers creates the handler set.
func NewArtworkHandlers(service *artworks.PostgresService) *ArtworkHandlers {
	return &ArtworkHandlers{service: service}
}

// RegisterRoutes declares the artwork routes. Both are public and only ever
// expose published artworks.
func (h *ArtworkHandlers) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/v1/artworks", h.list).Methods("GET")
	r.HandleFunc("/api/v1/artworks/{id}", h.get).Methods("GET")
}

func (h *ArtworkHandlers) list(w http.ResponseWriter, r *http.Request) {
	params := httputil.NormalizeRequest(r, "created_at", artworks.ListSortFields)
	list, meta, err := h.service.ListPublished(r.Context(), params)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteList(w, list, meta)
}

func (h *ArtworkHandlers) get(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	artwork, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteData(w, artwork)
}
