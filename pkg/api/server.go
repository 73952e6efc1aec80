// Package api assembles the HTTP surface: the router, per-resource
// handlers, and the guard chain each route declares. Authorization is
// decided here declaratively; handlers assume their gates have already
// passed.
package api

import (
	"database/sql"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/atelierhq/atelier/pkg/activity"
	"github.com/atelierhq/atelier/pkg/artworks"
	"github.com/atelierhq/atelier/pkg/auth"
	"github.com/atelierhq/atelier/pkg/galleries"
	"github.com/atelierhq/atelier/pkg/groups"
	"github.com/atelierhq/atelier/pkg/httputil"
	"github.com/atelierhq/atelier/pkg/rbac"
	"github.com/atelierhq/atelier/pkg/stats"
	"github.com/atelierhq/atelier/pkg/users"
)

// ServerConfig carries the server's collaborators. Trail and RateLimit are
// optional; Verifier is required for any authenticated route to work.
type ServerConfig struct {
	DB       *sql.DB
	Verifier auth.Verifier
	Trail    activity.Sink

	// RateLimit, when set, wraps the API inside the auth middleware so
	// authenticated traffic is keyed by principal.
	RateLimit func(http.Handler) http.Handler
}

// Server is the API server.
type Server struct {
	router    *mux.Router
	authmw    *auth.Middleware
	rateLimit func(http.Handler) http.Handler

	groupHandlers   *GroupHandlers
	galleryHandlers *GalleryHandlers
	artworkHandlers *ArtworkHandlers
	adminHandlers   *AdminHandlers
}

// NewServer creates the API server and registers all routes.
func NewServer(cfg ServerConfig) *Server {
	guard := rbac.NewGuard(rbac.NewResolver(cfg.DB))

	s := &Server{
		router:          mux.NewRouter(),
		authmw:          auth.NewMiddleware(cfg.Verifier),
		rateLimit:       cfg.RateLimit,
		groupHandlers:   NewGroupHandlers(groups.NewPostgresService(cfg.DB, cfg.Trail), guard),
		galleryHandlers: NewGalleryHandlers(galleries.NewPostgresService(cfg.DB)),
		artworkHandlers: NewArtworkHandlers(artworks.NewPostgresService(cfg.DB)),
		adminHandlers: NewAdminHandlers(
			users.NewPostgresService(cfg.DB, cfg.Trail),
			stats.NewEngine(cfg.DB, activity.NewReader(cfg.DB), nil),
			guard,
		),
	}

	s.groupHandlers.RegisterRoutes(s.router)
	s.galleryHandlers.RegisterRoutes(s.router)
	s.artworkHandlers.RegisterRoutes(s.router)
	s.adminHandlers.RegisterRoutes(s.router)

	return s
}

// Handler returns the full middleware stack around the router. Order
// matters: the request ID comes first so every later log line carries it,
// and rate limiting runs after auth so it can key by principal.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.router
	if s.rateLimit != nil {
		h = s.rateLimit(h)
	}
	return httputil.Chain(
		httputil.RequestIDMiddleware,
		httputil.LoggingMiddleware,
		httputil.RecoveryMiddleware,
		s.authmw.Handler,
	)(h)
}

// Router exposes the bare router for tests.
func (s *Server) Router() *mux.Router {
	return s.router
}
