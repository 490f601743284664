// Package correlation serves threat analyses. The analysis outputs are
// canned placeholders marked synthetic: no real linkage between reports is
// computed. Only the report lookup, the overall scoring and the routing are
// derived from input.
package correlation

import (
	"context"
	"fmt"
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
	AnalysisCorrelation   = "correlation"
	AnalysisPrediction    = "prediction"
	AnalysisNetwork       = "network"
	AnalysisComprehensive = "comprehensive"

	defaultTimeHorizonHours     = 72
	defaultCorrelationThreshold = 0.7
	modelVersion                = "KENYA_AI_v1.0"
)

// ReportResolver looks up the reports an analysis runs over, honouring clearance.
type ReportResolver interface {
	Resolve(ctx context.Context, ids []string, clearance models.Classification) ([]models.Report, error)
}

// PredictionPublisher announces generated predictions.
type PredictionPublisher interface {
	BroadcastPrediction(prediction models.Prediction, level models.ThreatLevel, agencies []string)
}

type AnalyzeRequest struct {
	IntelligenceIDs      []string `json:"intelligence_ids" validate:"required"`
	AnalysisType         string   `json:"analysis_type" validate:"omitempty,oneof=correlation prediction network comprehensive"`
	TimeHorizonHours     int      `json:"time_horizon_hours" validate:"omitempty,min=1,max=8760"`
	CorrelationThreshold *float64 `json:"correlation_threshold" validate:"omitempty,min=0,max=1"`
}

type Analysis struct {
	AnalysisID         string                  `json:"analysis_id"`
	AnalysisType       string                  `json:"analysis_type"`
	ThreatLevel        models.ThreatLevel      `json:"threat_level"`
	ConfidenceScore    float64                 `json:"confidence_score"`
	Correlations       []models.Correlation    `json:"correlations"`
	Predictions        []models.Prediction     `json:"predictions"`
	NetworkAnalysis    *models.NetworkAnalysis `json:"network_analysis,omitempty"`
	RecommendedActions []string                `json:"recommended_actions"`
	AgenciesToNotify   []string                `json:"agencies_to_notify"`
	EstimatedImpact    int64                   `json:"estimated_impact_kes"`
	ProcessingTimeMs   int64                   `json:"processing_time_ms"`
	Synthetic          bool                    `json:"synthetic"`
}

type Service struct {
	reports     ReportResolver
	predictions storage.PredictionRepository
	publisher   PredictionPublisher
	now         func() time.Time
}

// NewService creates the service. publisher may be nil.
func NewService(reports ReportResolver, predictions storage.PredictionRepository, publisher PredictionPublisher) *Service {
	return &Service{reports: reports, predictions: predictions, publisher: publisher, now: time.Now}
}

// Analyze runs the placeholder analysis over the reports the caller may read.
func (s *Service) Analyze(ctx context.Context, req AnalyzeRequest, caller string, clearance models.Classification) (*Analysis, error) {
	start := time.Now()

	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if len(req.IntelligenceIDs) == 0 {
		return nil, apperrors.Validation("Intelligence IDs are required")
	}
	analysisType := req.AnalysisType
	if analysisType == "" {
		analysisType = AnalysisCorrelation
	}
	horizon := req.TimeHorizonHours
	if horizon == 0 {
		horizon = defaultTimeHorizonHours
	}
	threshold := defaultCorrelationThreshold
	if req.CorrelationThreshold != nil {
		threshold = *req.CorrelationThreshold
	}

	reports, err := s.reports.Resolve(ctx, req.IntelligenceIDs, clearance)
	if err != nil {
		return nil, err
	}
	if len(reports) == 0 {
		reports = []models.Report{placeholderReport(req.IntelligenceIDs[0], caller, s.now())}
	}

	now := s.now().UTC()
	correlations := correlate(reports, threshold, now)
	predictions := predict(reports, correlations, horizon, now)

	var network *models.NetworkAnalysis
	if analysisType == AnalysisNetwork || analysisType == AnalysisComprehensive {
		network = networkFor(reports)
	}

	level := overallLevel(correlations, predictions)
	agencies := rules.AgenciesToNotify(level, categories(reports)...)

	for _, p := range predictions {
		if err := s.predictions.Create(ctx, p); err != nil {
			return nil, fmt.Errorf("store prediction: %w", err)
		}
		if s.publisher != nil {
			s.publisher.BroadcastPrediction(p, level, agencies)
		}
	}

	analysis := &Analysis{
		AnalysisID:         uuid.NewString(),
		AnalysisType:       analysisType,
		ThreatLevel:        level,
		ConfidenceScore:    confidenceScore(correlations, predictions),
		Correlations:       correlations,
		Predictions:        predictions,
		NetworkAnalysis:    network,
		RecommendedActions: rules.EscalationActions(level),
		AgenciesToNotify:   agencies,
		EstimatedImpact:    rules.EstimateAnalysisImpact(level, sumCorrelationImpact(correlations), sumPredictionImpact(predictions)),
		ProcessingTimeMs:   time.Since(start).Milliseconds(),
		Synthetic:          true,
	}

	logrus.Infof("Analysis %s (%s) over %d reports: %s", analysis.AnalysisID, analysisType, len(reports), level)
	return analysis, nil
}

func placeholderReport(id, caller string, now time.Time) models.Report {
	return models.Report{
		ID:                id,
		Agency:            models.AgencyNIS,
		Classification:    models.Secret,
		DataType:          models.HUMINT,
		Category:          "terrorism",
		Title:             "Placeholder intelligence report",
		Content:           "Placeholder content for correlation analysis",
		ConfidenceScore:   0.85,
		SourceReliability: "A",
		CorrelationTags:   []string{"terrorism", "nairobi"},
		ThreatLevel:       models.ThreatHigh,
		CreatedAt:         now.UTC(),
		CreatedBy:         caller,
		Status:            models.ReportActive,
	}
}

func categories(reports []models.Report) []string {
	out := make([]string, 0, len(reports))
	for _, r := range reports {
		out = append(out, r.Category)
	}
	return out
}
