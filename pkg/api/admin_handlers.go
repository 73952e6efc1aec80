package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/atelierhq/atelier/pkg/auth"
	"github.com/atelierhq/atelier/pkg/httputil"
	"github.com/atelierhq/atelier/pkg/rbac"
	"github.com/atelierhq/atelier/pkg/stats"
	"github.com/atelierhq/atelier/pkg/users"
)

// AdminHandlers serves the platform-admin endpoints: user administration
// and the stats dashboard.
type AdminHandlers struct {
	users *users.PostgresService
	stats *stats.Engine
	guard *rbac.Guard
}

// NewAdminHandlers creates the handler set.
func NewAdminHandlers(userService *users.PostgresService, engine *stats.Engine, guard *rbac.Guard) *AdminHandlers {
	return &AdminHandlers{users: userService, stats: engine, guard: guard}
}

// RegisterRoutes declares the admin routes. Every route requires an active
// principal with the admin platform role; membership roles play no part
// here.
func (h *AdminHandlers) RegisterRoutes(r *mux.Router) {
	asAdmin := h.guard.Protect(rbac.Authenticated(), rbac.Active(), rbac.PlatformRoleSufficient(auth.RoleAdmin))

	r.Handle("/api/v1/admin/users", asAdmin(http.HandlerFunc(h.listUsers))).Methods("GET")
	r.Handle("/api/v1/admin/users/{id}", asAdmin(http.HandlerFunc(h.getUser))).Methods("GET")
	r.Handle("/api/v1/admin/users/{id}/suspend", asAdmin(http.HandlerFunc(h.suspendUser))).Methods("POST")
	r.Handle("/api/v1/admin/users/{id}/reactivate", asAdmin(http.HandlerFunc(h.reactivateUser))).Methods("POST")
	r.Handle("/api/v1/admin/stats", asAdmin(http.HandlerFunc(h.getStats))).Methods("GET")
}

func (h *AdminHandlers) listUsers(w http.ResponseWriter, r *http.Request) {
	params := httputil.NormalizeRequest(r, "created_at", users.ListSortFields)
	list, meta, err := h.users.List(r.Context(), params)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteList(w, list, meta)
}

func (h *AdminHandlers) getUser(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	user, err := h.users.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteData(w, user)
}

func (h *AdminHandlers) suspendUser(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	principal := auth.PrincipalFrom(r.Context())
	if err := h.users.Suspend(r.Context(), id, principal.ID); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteNoContent(w)
}

func (h *AdminHandlers) reactivateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	principal := auth.PrincipalFrom(r.Context())
	if err := h.users.Reactivate(r.Context(), id, principal.ID); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteNoContent(w)
}

func (h *AdminHandlers) getStats(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.stats.Collect(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteData(w, snapshot)
}
