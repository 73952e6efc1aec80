package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/atelierhq/atelier/pkg/auth"
	"github.com/atelierhq/atelier/pkg/groups"
	"github.com/atelierhq/atelier/pkg/httputil"
	"github.com/atelierhq/atelier/pkg/rbac"
)

// GroupHandlers serves the group and membership endpoints.
type GroupHandlers struct {
	service *groups.PostgresService
	guard   *rbac.Guard
}

// NewGroupHandlers creates the handler set.
func NewGroupHandlers(service *groups.PostgresService, guard *rbac.Guard) *GroupHandlers {
	return &GroupHandlers{service: service, guard: guard}
}

// RegisterRoutes declares the group routes and the gate chain each one
// requires. Listing and lookup are public; everything that mutates needs an
// authenticated, active principal, and resource-scoped operations also need
// a sufficient membership role.
func (h *GroupHandlers) RegisterRoutes(r *mux.Router) {
	authed := h.guard.Protect(rbac.Authenticated(), rbac.Active())
	asMember := h.guard.ProtectResource("id", rbac.Authenticated(), rbac.Active(), rbac.ResourceRoleSufficient(rbac.RoleMember))
	asManager := h.guard.ProtectResource("id", rbac.Authenticated(), rbac.Active(), rbac.ResourceRoleSufficient(rbac.RoleManager))
	asOwner := h.guard.ProtectResource("id", rbac.Authenticated(), rbac.Active(), rbac.ResourceRoleSufficient(rbac.RoleOwner))

	r.Handle("/api/v1/groups", authed(http.HandlerFunc(h.create))).Methods("POST")
	r.HandleFunc("/api/v1/groups", h.list).Methods("GET")
	r.HandleFunc("/api/v1/groups/{id:[0-9]+}", h.get).Methods("GET")
	r.HandleFunc("/api/v1/groups/{slug}", h.getBySlug).Methods("GET")
	r.Handle("/api/v1/groups/{id}", asManager(http.HandlerFunc(h.update))).Methods("PATCH")
	r.Handle("/api/v1/groups/{id}", asOwner(http.HandlerFunc(h.delete))).Methods("DELETE")

	r.Handle("/api/v1/groups/{id}/members", asMember(http.HandlerFunc(h.listMembers))).Methods("GET")
	r.Handle("/api/v1/groups/{id}/members", asManager(http.HandlerFunc(h.addMember))).Methods("POST")
	r.Handle("/api/v1/groups/{id}/members/{userId}", asManager(http.HandlerFunc(h.updateMemberRole))).Methods("PUT")
	r.Handle("/api/v1/groups/{id}/members/{userId}", asManager(http.HandlerFunc(h.removeMember))).Methods("DELETE")

	r.Handle("/api/v1/groups/{id}/transfer", asOwner(http.HandlerFunc(h.transferOwnership))).Methods("POST")
}

func (h *GroupHandlers) create(w http.ResponseWriter, r *http.Request) {
	var input groups.CreateInput
	if !httputil.ParseJSONOrError(w, r, &input) {
		return
	}

	principal := auth.PrincipalFrom(r.Context())
	group, err := h.service.Create(r.Context(), principal.ID, input)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteCreated(w, group)
}

func (h *GroupHandlers) list(w http.ResponseWriter, r *http.Request) {
	params := httputil.NormalizeRequest(r, "created_at", groups.ListSortFields)
	list, meta, err := h.service.List(r.Context(), params)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteList(w, list, meta)
}

func (h *GroupHandlers) get(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	group, err := h.service.Get(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteData(w, group)
}

func (h *GroupHandlers) getBySlug(w http.ResponseWriter, r *http.Request) {
	slug, err := httputil.ParsePathString(r, "slug")
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	group, err := h.service.GetBySlug(r.Context(), slug)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteData(w, group)
}

func (h *GroupHandlers) update(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	var input groups.UpdateInput
	if !httputil.ParseJSONOrError(w, r, &input) {
		return
	}

	principal := auth.PrincipalFrom(r.Context())
	group, err := h.service.Update(r.Context(), id, principal.ID, input)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteData(w, group)
}

func (h *GroupHandlers) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	principal := auth.PrincipalFrom(r.Context())
	if err := h.service.Delete(r.Context(), id, principal.ID); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteNoContent(w)
}

func (h *GroupHandlers) listMembers(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	members, err := h.service.ListMembers(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteData(w, members)
}

type addMemberRequest struct {
	UserID int64             `json:"user_id"`
	Role   rbac.ResourceRole `json:"role"`
}

func (h *GroupHandlers) addMember(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	var req addMemberRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	principal := auth.PrincipalFrom(r.Context())
	if err := h.service.AddMember(r.Context(), id, req.UserID, req.Role, principal.ID); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, httputil.DataResponse{Data: req})
}

type updateMemberRoleRequest struct {
	Role rbac.ResourceRole `json:"role"`
}

func (h *GroupHandlers) updateMemberRole(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	userID, ok := httputil.ParsePathInt64OrError(w, r, "userId")
	if !ok {
		return
	}
	var req updateMemberRoleRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	principal := auth.PrincipalFrom(r.Context())
	if err := h.service.UpdateMemberRole(r.Context(), id, userID, req.Role, principal.ID); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteNoContent(w)
}

func (h *GroupHandlers) removeMember(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	userID, ok := httputil.ParsePathInt64OrError(w, r, "userId")
	if !ok {
		return
	}

	principal := auth.PrincipalFrom(r.Context())
	if err := h.service.RemoveMember(r.Context(), id, userID, principal.ID); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteNoContent(w)
}

type transferOwnershipRequest struct {
	NewOwnerID int64 `json:"new_owner_id"`
}

func (h *GroupHandlers) transferOwnership(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}
	var req transferOwnershipRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	principal := auth.PrincipalFrom(r.Context())
	if err := h.service.TransferOwnership(r.Context(), id, principal.ID, req.NewOwnerID); err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteNoContent(w)
}
