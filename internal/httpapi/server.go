// Package httpapi is the REST and websocket surface of the fusion API.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/kenya-ifp/fusion-api/internal/alerts"
	"github.com/kenya-ifp/fusion-api/internal/apperrors"
	"github.com/kenya-ifp/fusion-api/internal/auth"
	"github.com/kenya-ifp/fusion-api/internal/config"
	"github.com/kenya-ifp/fusion-api/internal/correlation"
	"github.com/kenya-ifp/fusion-api/internal/intelligence"
	"github.com/kenya-ifp/fusion-api/internal/metrics"
	"github.com/kenya-ifp/fusion-api/internal/models"
	"github.com/kenya-ifp/fusion-api/internal/realtime"
	"github.com/kenya-ifp/fusion-api/internal/storage"
)

// Jobs are the background tasks exposed for on-demand runs and status.
type Jobs interface {
	RunDigest(ctx context.Context) (*models.Digest, error)
	GetMetrics() string
}

// Deps are the services the API is built from. Jobs and Metrics may be nil.
type Deps struct {
	Config       *config.Config
	Auth         *auth.Service
	Intelligence *intelligence.Service
	Alerts       *alerts.Service
	Correlation  *correlation.Service
	Topic        *realtime.Topic
	Jobs         Jobs
	Metrics      *metrics.Metrics
	Reports      storage.ReportRepository
	AlertStore   storage.AlertRepository
	Predictions  storage.PredictionRepository
}

type Server struct {
	config       *config.Config
	auth         *auth.Service
	intelligence *intelligence.Service
	alerts       *alerts.Service
	correlation  *correlation.Service
	topic        *realtime.Topic
	jobs         Jobs
	metrics      *metrics.Metrics
	reports      storage.ReportRepository
	alertStore   storage.AlertRepository
	predictions  storage.PredictionRepository
	limiter      *RateLimiter
	started      time.Time
}

func NewServer(d Deps) *Server {
	return &Server{
		config:       d.Config,
		auth:         d.Auth,
		intelligence: d.Intelligence,
		alerts:       d.Alerts,
		correlation:  d.Correlation,
		topic:        d.Topic,
		jobs:         d.Jobs,
		metrics:      d.Metrics,
		reports:      d.Reports,
		alertStore:   d.AlertStore,
		predictions:  d.Predictions,
		limiter:      NewRateLimiter(d.Config.RateLimitMaxRequests, d.Config.RateLimitWindow),
		started:      time.Now(),
	}
}

// Handler builds the routed, CORS-wrapped handler.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, apperrors.NotFound("Route not found"))
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, envelope{
			Error:     &errorBody{Code: apperrors.KindValidation, Message: "Method not allowed"},
			Timestamp: timestamp(),
		})
	})
	router.Use(recoverPanics, s.logRequests, securityHeaders)

	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	if s.metrics != nil {
		router.Handle("/metrics", s.metricsHandler()).Methods(http.MethodGet)
	}
	router.Handle("/ws/intelligence-feed", realtime.NewFeedHandler(s.topic, s.auth, s.config.CORSOrigins))

	api := router.PathPrefix("/api/v1").Subrouter()

	public := api.NewRoute().Subrouter()
	public.Use(s.rateLimit)
	public.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)
	public.HandleFunc("/auth/refresh", s.handleRefresh).Methods(http.MethodPost)

	protected := api.NewRoute().Subrouter()
	protected.Use(s.authenticate, s.rateLimit)
	protected.HandleFunc("/auth/logout", s.handleLogout).Methods(http.MethodPost)

	protected.HandleFunc("/intelligence/submit", s.handleSubmitIntelligence).Methods(http.MethodPost)
	protected.HandleFunc("/intelligence/search", s.handleSearchIntelligence).Methods(http.MethodGet)
	protected.HandleFunc("/intelligence/{id}", s.handleGetIntelligence).Methods(http.MethodGet)

	protected.HandleFunc("/alerts/create", s.handleCreateAlert).Methods(http.MethodPost)
	protected.HandleFunc("/alerts", s.handleListAlerts).Methods(http.MethodGet)
	protected.HandleFunc("/alerts/{id}/acknowledge", s.handleAcknowledgeAlert).Methods(http.MethodPost)

	protected.HandleFunc("/correlation/analyze", s.handleAnalyze).Methods(http.MethodPost)
	protected.HandleFunc("/correlation/predictions", s.handlePredictions).Methods(http.MethodGet)

	protected.HandleFunc("/access/check", s.handleAccessCheck).Methods(http.MethodPost)
	protected.HandleFunc("/system/status", s.handleSystemStatus).Methods(http.MethodGet)

	secret := protected.PathPrefix("/digest").Subrouter()
	secret.Use(RequireClearance(models.Secret))
	secret.HandleFunc("/trigger", s.handleTriggerDigest).Methods(http.MethodPost)

	c := cors.New(cors.Options{
		AllowedOrigins:   s.config.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           600,
	})
	return c.Handler(router)
}
