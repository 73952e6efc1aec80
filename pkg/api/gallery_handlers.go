package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/atelierhq/atelier/pkg/galleries"
	"github.com/atelierhq/atelier/pkg/httputil"
)

// GalleryHandlers serves the public gallery endpoints.
type GalleryHandlers struct {
	service *galleries.PostgresService
}

// NewGalleryHandlers creates the handler set.
func NewGalleryHandlers(service *galleries.PostgresService) *GalleryHandlers {
	return &GalleryHandlers{service: service}
}

// RegisterRoutes declares the gallery routes. Both are public and only ever
// expose published galleries.
func (h *GalleryHandlers) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/v1/galleries", h.list).Methods("GET")
	r.HandleFunc("/api/v1/galleries/{id}", h.get).Methods("GET")
}

func (h *GalleryHandlers) list(w http.ResponseWriter, r *http.Request) {
	params := httputil.NormalizeRequest(r, "created_at", galleries.ListSortFields)
	list, meta, err := h.service.ListPublished(r.Context(), params)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteList(w, list, meta)
}

func (h *GalleryHandlers) get(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	gallery, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteData(w, gallery)
}
