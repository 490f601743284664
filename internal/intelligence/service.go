// Package intelligence accepts, scores, stores and searches intelligence
// reports.
package intelligence

import (
	"context"
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

const unratedReliability = "F"

// Publisher receives metadata of every accepted report.
type Publisher interface {
	BroadcastIntelligence(report models.Report, agencies []string)
}

// SubmitRequest is the client payload for a new report. Threat level is
// never accepted from the client. An omitted source reliability is recorded
// as grade F, reliability cannot be judged.
type SubmitRequest struct {
	Agency            models.Agency         `json:"agency" validate:"required"`
	Classification    models.Classification `json:"classification" validate:"required"`
	DataType          models.DataType       `json:"data_type" validate:"required"`
	Category          string                `json:"threat_category" validate:"required"`
	Title             string                `json:"title" validate:"required"`
	Content           string                `json:"content" validate:"required"`
	Location          *models.Location      `json:"location"`
	ConfidenceScore   *float64              `json:"confidence_score" validate:"required"`
	SourceReliability string                `json:"source_reliability"`
	CorrelationTags   []string              `json:"correlation_tags"`
}

// SubmitResult is returned for an accepted report.
type SubmitResult struct {
	IntelligenceID     string             `json:"intelligence_id"`
	Status             string             `json:"status"`
	CorrelationsFound  int                `json:"correlations_found"`
	ThreatLevel        models.ThreatLevel `json:"threat_level"`
	EstimatedImpact    int64              `json:"estimated_impact_kes"`
	RecommendedActions []string           `json:"recommended_actions"`
	AgenciesToNotify   []string           `json:"agencies_to_notify"`
}

// Detail is a single report together with the reports it correlates with.
type Detail struct {
	Intelligence models.Report   `json:"intelligence"`
	Correlations []models.Report `json:"correlations"`
}

type Service struct {
	reports   storage.ReportRepository
	publisher Publisher
	now       func() time.Time
}

// NewService creates the service. publisher may be nil.
func NewService(reports storage.ReportRepository, publisher Publisher) *Service {
	return &Service{reports: reports, publisher: publisher, now: time.Now}
}

// Submit validates, classifies and stores a report on behalf of createdBy.
func (s *Service) Submit(ctx context.Context, req SubmitRequest, createdBy string) (*SubmitResult, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	confidence := *req.ConfidenceScore
	if confidence < 0 || confidence > 1 {
		return nil, apperrors.Validation("Confidence score must be between 0 and 1")
	}
	if strings.TrimSpace(req.SourceReliability) == "" {
		req.SourceReliability = unratedReliability
	}
	if err := validateEnums(req); err != nil {
		return nil, err
	}

	report := models.Report{
		ID:                uuid.NewString(),
		Agency:            req.Agency,
		Classification:    req.Classification,
		DataType:          req.DataType,
		Category:          validation.Sanitize(req.Category),
		Title:             validation.Sanitize(req.Title),
		Content:           validation.Sanitize(req.Content),
		Location:          sanitizeLocation(req.Location),
		ConfidenceScore:   confidence,
		SourceReliability: strings.ToUpper(req.SourceReliability),
		CorrelationTags:   validation.SanitizeAll(req.CorrelationTags),
		CreatedAt:         s.now().UTC(),
		CreatedBy:         createdBy,
		Status:            models.ReportActive,
	}
	if report.Title == "" || report.Content == "" || report.Category == "" {
		return nil, apperrors.Validation("Title, content and threat_category must contain text")
	}
	// Rules see the submitted text, not the stored plain text.
	category := strings.TrimSpace(req.Category)
	report.ThreatLevel = rules.ClassifyThreat(req.Content, category, report.ConfidenceScore)

	if err := s.reports.Create(ctx, report); err != nil {
		return nil, fmt.Errorf("store report: %w", err)
	}

	correlated, err := s.correlated(ctx, report)
	if err != nil {
		return nil, err
	}

	agencies := rules.AgenciesToNotify(report.ThreatLevel, category)
	result := &SubmitResult{
		IntelligenceID:     report.ID,
		Status:             "submitted",
		CorrelationsFound:  len(correlated),
		ThreatLevel:        report.ThreatLevel,
		EstimatedImpact:    rules.EstimateReportImpact(report.ThreatLevel, category),
		RecommendedActions: rules.SubmissionActions(report.ThreatLevel),
		AgenciesToNotify:   agencies,
	}
	if result.CorrelationsFound > 0 {
		result.Status = "correlated"
	}

	if s.publisher != nil {
		s.publisher.BroadcastIntelligence(report, agencies)
	}

	logrus.Infof("Report %s from %s classified %s (%d correlations)", report.ID, report.Agency, report.ThreatLevel, len(correlated))
	return result, nil
}

func validateEnums(req SubmitRequest) error {
	switch {
	case !req.Agency.Valid():
		return apperrors.Validation("Unknown agency %q", req.Agency)
	case !req.Classification.Valid():
		return apperrors.Validation("Unknown classification %q", req.Classification)
	case !req.DataType.Valid():
		return apperrors.Validation("Unknown data_type %q", req.DataType)
	case !models.ValidReliability(strings.ToUpper(req.SourceReliability)):
		return apperrors.Validation("source_reliability must be a grade from A to F")
	}
	if loc := req.Location; loc != nil {
		if loc.Latitude < -90 || loc.Latitude > 90 || loc.Longitude < -180 || loc.Longitude > 180 {
			return apperrors.Validation("Location coordinates are out of range")
		}
	}
	return nil
}

func sanitizeLocation(loc *models.Location) *models.Location {
	if loc == nil {
		return nil
	}
	clean := *loc
	clean.County = validation.Sanitize(loc.County)
	clean.Constituency = validation.Sanitize(loc.Constituency)
	return &clean
}

// Get returns a report the caller is cleared for, with its correlated reports.
func (s *Service) Get(ctx context.Context, id string, clearance models.Classification) (*Detail, error) {
	report, err := s.reports.Get(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperrors.NotFound("Intelligence report not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}

	if !rules.HasAccess(clearance, report.Classification) {
		return nil, apperrors.AccessDenied("Insufficient clearance level")
	}

	correlated, err := s.correlated(ctx, report)
	if err != nil {
		return nil, err
	}
	visible := make([]models.Report, 0, len(correlated))
	for _, r := range correlated {
		if rules.HasAccess(clearance, r.Classification) {
			visible = append(visible, r)
		}
	}
	return &Detail{Intelligence: report, Correlations: visible}, nil
}

// Resolve returns the reports among ids the caller is cleared for. Unknown
// ids are skipped.
func (s *Service) Resolve(ctx context.Context, ids []string, clearance models.Classification) ([]models.Report, error) {
	out := make([]models.Report, 0, len(ids))
	for _, id := range ids {
		report, err := s.reports.Get(ctx, id)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("resolve report %s: %w", id, err)
		}
		if rules.HasAccess(clearance, report.Classification) {
			out = append(out, report)
		}
	}
	return out, nil
}

// correlated returns the other reports sharing the category, a county or a tag.
func (s *Service) correlated(ctx context.Context, report models.Report) ([]models.Report, error) {
	tags := make(map[string]struct{}, len(report.CorrelationTags))
	for _, tag := range report.CorrelationTags {
		tags[tag] = struct{}{}
	}
	county := strings.ToLower(report.County())

	matches, err := s.reports.Find(ctx, func(other models.Report) bool {
		if other.ID == report.ID {
			return false
		}
		if strings.EqualFold(other.Category, report.Category) {
			return true
		}
		if county != "" && strings.ToLower(other.County()) == county {
			return true
		}
		for _, tag := range other.CorrelationTags {
			if _, ok := tags[tag]; ok {
				return true
			}
		}
		return false
	})
	if err != nil {
		return nil, fmt.Errorf("find correlations: %w", err)
	}
	return matches, nil
}
