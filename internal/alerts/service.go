// Package alerts creates, lists and acknowledges threat alerts.
package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/kenya-ifp/fusion-api/internal/apperrors"
	"github.com/kenya-ifp/fusion-api/internal/models"
	"github.com/kenya-ifp/fusion-api/internal/rules"
	"github.com/kenya-ifp/fusion-api/internal/storage"
	"github.com/kenya-ifp/fusion-api/internal/validation"
)

const (
	UpdateAcknowledged = "acknowledged"

	sideEffectTimeout = 30 * time.Second
)

// Broadcaster pushes alerts to live subscribers.
type Broadcaster interface {
	BroadcastAlert(alert models.Alert)
	BroadcastAlertUpdate(alert models.Alert, updateType string, actorAgency models.Agency)
}

// Notifier delivers alerts to out-of-band channels.
type Notifier interface {
	SendAlert(ctx context.Context, alert models.Alert) error
}

// CreateRequest is the client payload for a new alert.
type CreateRequest struct {
	ThreatLevel            models.ThreatLevel `json:"threat_level" validate:"required"`
	Title                  string             `json:"title" validate:"required"`
	Description            string             `json:"description" validate:"required"`
	AgenciesToNotify       []string           `json:"agencies_to_notify" validate:"required"`
	Location               *models.Location   `json:"location"`
	RecommendedActions     []string           `json:"recommended_actions"`
	ExpiresAt              *time.Time         `json:"expires_at"`
	RelatedIntelligenceIDs []string           `json:"related_intelligence_ids"`
}

type CreateResult struct {
	AlertID                    string             `json:"alert_id"`
	Status                     models.AlertStatus `json:"status"`
	AgenciesNotified           []string           `json:"agencies_notified"`
	EstimatedResponseTimeHours float64            `json:"estimated_response_time_hours"`
	EstimatedImpact            int64              `json:"estimated_impact_kes"`
}

type AckResult struct {
	AlertID        string             `json:"alert_id"`
	Status         models.AlertStatus `json:"status"`
	AcknowledgedBy string             `json:"acknowledged_by"`
	AcknowledgedAt time.Time          `json:"acknowledged_at"`
}

type Service struct {
	alerts      storage.AlertRepository
	broadcaster Broadcaster
	notifier    Notifier
	archive     storage.Archive
	now         func() time.Time
	async       func(func())
}

// NewService creates the service. notifier and archive may be nil.
func NewService(alerts storage.AlertRepository, broadcaster Broadcaster, notifier Notifier, archive storage.Archive) *Service {
	return &Service{
		alerts:      alerts,
		broadcaster: broadcaster,
		notifier:    notifier,
		archive:     archive,
		now:         time.Now,
		async:       func(f func()) { go f() },
	}
}

// Create validates and stores an alert, pushes it to live subscribers and
// hands it to the notification channels in the background.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if !req.ThreatLevel.Valid() {
		return nil, apperrors.Validation("Unknown threat_level %q", req.ThreatLevel)
	}
	agencies, err := normalizeAgencies(req.AgenciesToNotify)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if req.ExpiresAt != nil && !req.ExpiresAt.After(now) {
		return nil, apperrors.Validation("expires_at must be in the future")
	}

	alert := models.Alert{
		ID:                     uuid.NewString(),
		ThreatLevel:            req.ThreatLevel,
		Title:                  validation.Sanitize(req.Title),
		Description:            validation.Sanitize(req.Description),
		AgenciesNotified:       agencies,
		Location:               req.Location,
		RecommendedActions:     validation.SanitizeAll(req.RecommendedActions),
		Status:                 models.AlertSent,
		CreatedAt:              now,
		ExpiresAt:              req.ExpiresAt,
		RelatedIntelligenceIDs: req.RelatedIntelligenceIDs,
	}
	if alert.Title == "" || alert.Description == "" {
		return nil, apperrors.Validation("Title and description must contain text")
	}
	if len(alert.RecommendedActions) == 0 {
		alert.RecommendedActions = rules.EscalationActions(alert.ThreatLevel)
	}
	if alert.RelatedIntelligenceIDs == nil {
		alert.RelatedIntelligenceIDs = []string{}
	}
	alert.EstimatedImpact = rules.EstimateAlertImpact(alert.ThreatLevel, req.Description)

	if err := s.alerts.Create(ctx, alert); err != nil {
		return nil, fmt.Errorf("store alert: %w", err)
	}

	s.broadcaster.BroadcastAlert(alert)
	s.async(func() { s.dispatch(alert) })

	logrus.Infof("Alert %s (%s) sent to %s", alert.ID, alert.ThreatLevel, strings.Join(agencies, ", "))
	return &CreateResult{
		AlertID:                    alert.ID,
		Status:                     alert.Status,
		AgenciesNotified:           agencies,
		EstimatedResponseTimeHours: rules.EstimateResponseTime(alert.ThreatLevel, len(agencies)),
		EstimatedImpact:            alert.EstimatedImpact,
	}, nil
}

func normalizeAgencies(codes []string) ([]string, error) {
	seen := make(map[string]bool, len(codes))
	out := make([]string, 0, len(codes))
	for _, code := range codes {
		code = strings.ToUpper(strings.TrimSpace(code))
		if !models.Agency(code).Notifiable() {
			return nil, apperrors.Validation("Unknown agency %q in agencies_to_notify", code)
		}
		if !seen[code] {
			seen[code] = true
			out = append(out, code)
		}
	}
	if len(out) == 0 {
		return nil, apperrors.Validation("Missing required fields: agencies_to_notify")
	}
	return out, nil
}

// dispatch runs the best-effort side channels. Failures are logged only.
func (s *Service) dispatch(alert models.Alert) {
	ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
	defer cancel()

	if s.archive != nil {
		data, err := json.Marshal(alert)
		if err == nil {
			err = s.archive.Store(ctx, storage.AlertBlobName(alert.ID, alert.CreatedAt), data)
		}
		if err != nil {
			logrus.Errorf("Failed to archive alert %s: %v", alert.ID, err)
		}
	}

	if s.notifier != nil {
		if err := s.notifier.SendAlert(ctx, alert); err != nil {
			logrus.Errorf("Failed to send notifications for alert %s: %v", alert.ID, err)
		}
	}
}

// Get returns one alert.
func (s *Service) Get(ctx context.Context, id string) (models.Alert, error) {
	alert, err := s.alerts.Get(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return models.Alert{}, apperrors.NotFound("Alert not found")
	}
	return alert, err
}

// Acknowledge moves an alert to acknowledged on behalf of actor's agency.
// It does not check that the agency was notified and does not guard against
// repeated acknowledgement; each call records the latest acknowledger.
func (s *Service) Acknowledge(ctx context.Context, id string, actor models.Agency, notes string) (*AckResult, error) {
	now := s.now().UTC()
	cleanNotes := validation.Sanitize(notes)

	alert, err := s.alerts.Update(ctx, id, func(a *models.Alert) error {
		a.Status = models.AlertAcknowledged
		a.AcknowledgedBy = string(actor)
		a.AcknowledgedAt = &now
		if cleanNotes != "" {
			a.ResponseNotes = cleanNotes
		}
		return nil
	})
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperrors.NotFound("Alert not found")
	}
	if err != nil {
		return nil, fmt.Errorf("acknowledge alert: %w", err)
	}

	s.broadcaster.BroadcastAlertUpdate(alert, UpdateAcknowledged, actor)

	logrus.Infof("Alert %s acknowledged by %s", alert.ID, actor)
	return &AckResult{
		AlertID:        alert.ID,
		Status:         alert.Status,
		AcknowledgedBy: alert.AcknowledgedBy,
		AcknowledgedAt: now,
	}, nil
}
