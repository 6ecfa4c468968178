package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/ghmd86/document-hub-sub000/internal/cache"
	"github.com/ghmd86/document-hub-sub000/internal/enquiry"
)

// API holds the dependencies and the router for the document hub REST surface.
// It follows the Dependency Injection pattern to facilitate testing.
type API struct {
	// Router is the Chi multiplexer that handles HTTP requests.
	Router *chi.Mux

	// enquiries runs the document enquiry pipeline.
	enquiries *enquiry.Service

	// tplCache backs the cache administration endpoints. May be nil, in
	// which case those endpoints report the cache as disabled.
	tplCache *cache.TemplateCache

	logger *slog.Logger
}

// NewAPI creates the API and registers all routes.
// Panics if the enquiry service is nil.
func NewAPI(enquiries *enquiry.Service, tplCache *cache.TemplateCache, log *slog.Logger) *API {
	if enquiries == nil {
		panic("api: enquiry service cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}

	api := &API{
		Router:    chi.NewRouter(),
		enquiries: enquiries,
		tplCache:  tplCache,
		logger:    log,
	}

	api.configureRoutes()
	return api
}

// configureRoutes registers the global middleware stack and API endpoints.
func (a *API) configureRoutes() {
	a.Router.Use(middleware.RequestID)
	a.Router.Use(middleware.RealIP)
	a.Router.Use(RequestLogger(a.logger))
	a.Router.Use(middleware.Recoverer)
	a.Router.Use(render.SetContentType(render.ContentTypeJSON))

	a.Router.Get("/health", a.handleHealthCheck)

	a.Router.Route("/api/v1", func(r chi.Router) {
		r.Post("/documents/enquiry", a.handleDocumentEnquiry)

		r.Route("/templates", func(r chi.Router) {
			r.Get("/{type}/{version}", a.handleGetTemplate)
			r.Route("/cache", func(r chi.Router) {
				r.Get("/stats", a.handleCacheStats)
				r.Post("/invalidate", a.handleCacheInvalidate)
				r.Post("/invalidate/all", a.handleCacheInvalidateAll)
			})
		})
	})
}

// handleHealthCheck reports basic liveness. Database and cache reachability
// are validated at startup; this endpoint only confirms the HTTP path works.
func (a *API) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]string{"status": "ok"})
}
