// Package server exposes the coverage indexes and result store over an HTTP
// API consumed by the map frontend and the external eligibility checker.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/airscope/coverage-cli/internal/config"
	"github.com/airscope/coverage-cli/internal/spatial"
	"github.com/airscope/coverage-cli/internal/store"
	"github.com/airscope/coverage-cli/pkg/geocode"
)

// Server holds the request handlers' dependencies.
type Server struct {
	cfg      *config.Config
	store    store.Store
	results  *spatial.ResultsIndex
	inputs   *spatial.InputIndex
	geocoder geocode.Client
}

// New assembles a Server from its collaborators.
func New(cfg *config.Config, st store.Store, results *spatial.ResultsIndex, inputs *spatial.InputIndex, gc geocode.Client) *Server {
	return &Server{
		cfg:      cfg,
		store:    st,
		results:  results,
		inputs:   inputs,
		geocoder: gc,
	}
}

// Router builds the chi mux with all routes and middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/status", s.handleStatus)

	r.Route("/api", func(r chi.Router) {
		r.Get("/nearest-eligible", s.handleNearestEligible)
		r.Get("/nearest", s.handleNearest)
		r.Get("/map-data", s.handleMapData)
		r.Post("/reload", s.handleReload)
		r.Post("/results", s.handleSaveResult)
		r.Get("/results/fresh", s.handleFreshResult)
	})

	return r
}

// requestLogger logs one line per request through the global zap logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("server: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
