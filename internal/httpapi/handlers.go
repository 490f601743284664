package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/kenya-ifp/fusion-api/internal/alerts"
	"github.com/kenya-ifp/fusion-api/internal/apperrors"
	"github.com/kenya-ifp/fusion-api/internal/correlation"
	"github.com/kenya-ifp/fusion-api/internal/intelligence"
	"github.com/kenya-ifp/fusion-api/internal/models"
	"github.com/kenya-ifp/fusion-api/internal/rules"
	"github.com/kenya-ifp/fusion-api/internal/validation"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"service":   "Kenya Intelligence Fusion Platform API",
		"version":   "1.0.0",
		"timestamp": timestamp(),
	}, "Service is running")
}

func (s *Server) metricsHandler() http.Handler {
	h := s.metrics.Handler()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.metrics.SetSubscribers(s.topic.Subscribers())
		h.ServeHTTP(w, r)
	})
}

type loginRequest struct {
	Username string        `json:"username"`
	Password string        `json:"password"`
	Agency   models.Agency `json:"agency"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		respondError(w, r, err)
		return
	}

	session, err := s.auth.Login(r.Context(), req.Username, req.Password, models.Agency(strings.ToUpper(string(req.Agency))))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, session, "Login successful")
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		respondError(w, r, err)
		return
	}

	session, err := s.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, session, "Token refreshed")
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.Logout(r.Context(), caller(r)); err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, nil, "Logout successful")
}

func (s *Server) handleSubmitIntelligence(w http.ResponseWriter, r *http.Request) {
	var req intelligence.SubmitRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		respondError(w, r, err)
		return
	}

	result, err := s.intelligence.Submit(r.Context(), req, caller(r).UserID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if s.metrics != nil {
		s.metrics.ReportSubmitted(string(req.Agency), string(result.ThreatLevel))
	}
	respond(w, http.StatusCreated, result, "Intelligence report submitted successfully")
}

func (s *Server) handleSearchIntelligence(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := intelligence.SearchQuery{
		Query:    q.Get("query"),
		Category: q.Get("threat_category"),
		County:   q.Get("county"),
	}

	var err error
	if query.Agency, err = queryAgency(q); err != nil {
		respondError(w, r, err)
		return
	}
	if query.Classification, err = queryClassification(q); err != nil {
		respondError(w, r, err)
		return
	}
	if query.ThreatLevel, err = queryThreatLevel(q); err != nil {
		respondError(w, r, err)
		return
	}
	if query.From, err = queryTime(q, "date_from", false); err != nil {
		respondError(w, r, err)
		return
	}
	if query.To, err = queryTime(q, "date_to", true); err != nil {
		respondError(w, r, err)
		return
	}
	if query.Limit, err = queryInt(q, "limit"); err != nil {
		respondError(w, r, err)
		return
	}
	if query.Offset, err = queryInt(q, "offset"); err != nil {
		respondError(w, r, err)
		return
	}

	result, err := s.intelligence.Search(r.Context(), query, caller(r).ClearanceLevel)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, result, "Intelligence reports retrieved successfully")
}

func (s *Server) handleGetIntelligence(w http.ResponseWriter, r *http.Request) {
	detail, err := s.intelligence.Get(r.Context(), mux.Vars(r)["id"], caller(r).ClearanceLevel)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, detail, "Intelligence report retrieved successfully")
}

func (s *Server) handleCreateAlert(w http.ResponseWriter, r *http.Request) {
	var req alerts.CreateRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		respondError(w, r, err)
		return
	}

	result, err := s.alerts.Create(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if s.metrics != nil {
		s.metrics.AlertCreated(string(req.ThreatLevel))
	}
	respond(w, http.StatusCreated, result, "Alert created and broadcast successfully")
}

func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var query alerts.ListQuery

	agency, err := queryAgency(q)
	if err != nil {
		respondError(w, r, err)
		return
	}
	query.Agency = string(agency)
	if query.ThreatLevel, err = queryThreatLevel(q); err != nil {
		respondError(w, r, err)
		return
	}
	if query.Status, err = queryAlertStatus(q); err != nil {
		respondError(w, r, err)
		return
	}
	if query.From, err = queryTime(q, "date_from", false); err != nil {
		respondError(w, r, err)
		return
	}
	if query.To, err = queryTime(q, "date_to", true); err != nil {
		respondError(w, r, err)
		return
	}
	if query.Limit, err = queryInt(q, "limit"); err != nil {
		respondError(w, r, err)
		return
	}
	if query.Offset, err = queryInt(q, "offset"); err != nil {
		respondError(w, r, err)
		return
	}

	result, err := s.alerts.List(r.Context(), query)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, result, "Alerts retrieved successfully")
}

type acknowledgeRequest struct {
	ResponseNotes string `json:"response_notes"`
}

func (s *Server) handleAcknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	var req acknowledgeRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		respondError(w, r, err)
		return
	}

	actor := caller(r).Agency
	result, err := s.alerts.Acknowledge(r.Context(), mux.Vars(r)["id"], actor, req.ResponseNotes)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if s.metrics != nil {
		s.metrics.AlertAcknowledged(string(actor))
	}
	respond(w, http.StatusOK, result, "Alert acknowledged successfully")
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req correlation.AnalyzeRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		respondError(w, r, err)
		return
	}

	claims := caller(r)
	analysis, err := s.correlation.Analyze(r.Context(), req, claims.UserID, claims.ClearanceLevel)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, analysis, "Threat analysis completed successfully")
}

func (s *Server) handlePredictions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := correlation.PredictionQuery{
		County:     q.Get("county"),
		ThreatType: q.Get("threat_type"),
	}

	var err error
	if query.MinConfidence, err = queryFloat(q, "min_confidence"); err != nil {
		respondError(w, r, err)
		return
	}
	if query.TimeRangeHours, err = queryInt(q, "time_range_hours"); err != nil {
		respondError(w, r, err)
		return
	}
	if query.Limit, err = queryInt(q, "limit"); err != nil {
		respondError(w, r, err)
		return
	}

	result, err := s.correlation.Predictions(r.Context(), query, caller(r).ClearanceLevel)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, result, "Predictions retrieved successfully")
}

type accessCheckRequest struct {
	ClearanceLevel models.Classification `json:"clearance_level"`
	Classification models.Classification `json:"classification" validate:"required"`
}

type accessCheckResult struct {
	Allowed        bool                  `json:"allowed"`
	ClearanceLevel models.Classification `json:"clearance_level"`
	Classification models.Classification `json:"classification"`
}

// handleAccessCheck evaluates the clearance rule. An unrecognised clearance
// is denied rather than rejected.
func (s *Server) handleAccessCheck(w http.ResponseWriter, r *http.Request) {
	var req accessCheckRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		respondError(w, r, err)
		return
	}
	if err := validation.Struct(req); err != nil {
		respondError(w, r, err)
		return
	}
	if !req.Classification.Valid() {
		respondError(w, r, apperrors.Validation("Invalid classification: %s", req.Classification))
		return
	}

	clearance := req.ClearanceLevel
	if clearance == "" {
		clearance = caller(r).ClearanceLevel
	}

	allowed := rules.HasAccess(clearance, req.Classification)
	if s.metrics != nil {
		s.metrics.AccessChecked(allowed)
	}
	respond(w, http.StatusOK, accessCheckResult{
		Allowed:        allowed,
		ClearanceLevel: clearance,
		Classification: req.Classification,
	}, "Access check completed")
}

type systemStatus struct {
	Status              string          `json:"status"`
	UptimeSeconds       int64           `json:"uptime_seconds"`
	ConnectedClients    int             `json:"connected_clients"`
	ConnectionsByAgency map[string]int  `json:"connections_by_agency"`
	Reports             int             `json:"intelligence_reports"`
	Alerts              int             `json:"alerts"`
	Predictions         int             `json:"predictions"`
	Jobs                json.RawMessage `json:"jobs,omitempty"`
}

func (s *Server) handleSystemStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	status := systemStatus{
		Status:              "operational",
		UptimeSeconds:       int64(time.Since(s.started).Seconds()),
		ConnectedClients:    s.topic.Subscribers(),
		ConnectionsByAgency: s.topic.SubscribersByAgency(),
	}

	var err error
	if status.Reports, err = s.reports.Count(ctx); err != nil {
		respondError(w, r, err)
		return
	}
	if status.Alerts, err = s.alertStore.Count(ctx); err != nil {
		respondError(w, r, err)
		return
	}
	if status.Predictions, err = s.predictions.Count(ctx); err != nil {
		respondError(w, r, err)
		return
	}
	if s.jobs != nil {
		status.Jobs = json.RawMessage(s.jobs.GetMetrics())
	}
	if s.metrics != nil {
		s.metrics.SetSubscribers(status.ConnectedClients)
	}

	respond(w, http.StatusOK, status, "System status retrieved successfully")
}

func (s *Server) handleTriggerDigest(w http.ResponseWriter, r *http.Request) {
	if s.jobs == nil {
		respondError(w, r, apperrors.NotFound("Digest is not configured"))
		return
	}

	digest, err := s.jobs.RunDigest(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, digest, "Digest generated successfully")
}
