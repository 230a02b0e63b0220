// Package server exposes the dashboard data over a JSON API. Each request
// recomputes filtering, aggregation and zoning synchronously on the calling
// goroutine; the loaded Dataset and boundary geometry are shared read-only
// caches. The chart/widget layer on top of this API is an external consumer.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sells-group/biodash/internal/dataset"
	"github.com/sells-group/biodash/internal/geo"
)

// Server holds the shared read-only caches and the per-session filter
// states behind the dashboard API.
type Server struct {
	cache    *dataset.Cache
	geo      *geo.Service
	sessions *SessionStore
}

// New builds a Server over the given dataset cache and boundary service.
func New(cache *dataset.Cache, geoSvc *geo.Service) *Server {
	return &Server{
		cache:    cache,
		geo:      geoSvc,
		sessions: NewSessionStore(),
	}
}

// Router builds the chi router for the dashboard API.
func (s *Server) Router(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/sessions", s.handleCreateSession)
		r.Get("/sessions/{id}", s.handleGetSession)
		r.Put("/sessions/{id}/filter", s.handleUpdateFilter)

		// Data endpoints require a loadable dataset.
		r.Group(func(r chi.Router) {
			r.Use(s.requireData)

			r.Get("/filters", s.handleFilters)
			r.Get("/metrics", s.handleMetrics)
			r.Get("/states/top", s.handleTopStates)
			r.Get("/states/{name}", s.handleStateDetail)
			r.Get("/districts/top", s.handleTopDistricts)
			r.Get("/trend", s.handleTrend)
			r.Get("/age-split", s.handleAgeSplit)
			r.Get("/summary", s.handleSummary)
			r.Get("/zones", s.handleZones)
			r.Get("/heatmap/state-district", s.handleHeatmapStateDistrict)
			r.Get("/heatmap/state-date", s.handleHeatmapStateDate)
			r.Get("/export", s.handleExport)
			r.Get("/export/summary", s.handleExportSummary)
		})

		r.Get("/map/boundaries", s.handleBoundaries)
	})

	return r
}

// requireData turns the empty-dataset condition into a terminal "no data"
// response instead of serving empty charts.
func (s *Server) requireData(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ds, err := s.cache.Dataset(r.Context())
		if err != nil || ds.Empty() {
			writeError(w, http.StatusServiceUnavailable, "no data available")
			return
		}
		next.ServeHTTP(w, r)
	})
}
