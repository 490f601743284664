package correlation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kenya-ifp/fusion-api/internal/apperrors"
	"github.com/kenya-ifp/fusion-api/internal/models"
	"github.com/kenya-ifp/fusion-api/internal/rules"
	"github.com/kenya-ifp/fusion-api/internal/storage"
)

type fakeResolver map[string]models.Report

func (f fakeResolver) Resolve(_ context.Context, ids []string, clearance models.Classification) ([]models.Report, error) {
	out := []models.Report{}
	for _, id := range ids {
		if r, ok := f[id]; ok && rules.HasAccess(clearance, r.Classification) {
			out = append(out, r)
		}
	}
	return out, nil
}

// MockPublisher is a mock implementation of PredictionPublisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) BroadcastPrediction(prediction models.Prediction, level models.ThreatLevel, agencies []string) {
	m.Called(prediction, level, agencies)
}

func newTestService() (*Service, *MockPublisher) {
	resolver := fakeResolver{
		"r1": {ID: "r1", Classification: models.Confidential, Category: "smuggling", Location: &models.Location{County: "Busia", Latitude: 0.46, Longitude: 34.11}},
		"r2": {ID: "r2", Classification: models.Restricted, Category: "corruption"},
		"r3": {ID: "r3", Classification: models.Secret, Category: "terrorism"},
	}
	publisher := new(MockPublisher)
	publisher.On("BroadcastPrediction", mock.Anything, mock.Anything, mock.Anything).Return()
	return NewService(resolver, storage.NewPredictionStore(), publisher), publisher
}

func threshold(v float64) *float64 { return &v }

func TestAnalyze_Validation(t *testing.T) {
	svc, _ := newTestService()

	tests := []struct {
		name string
		req  AnalyzeRequest
	}{
		{"missing ids", AnalyzeRequest{}},
		{"empty ids", AnalyzeRequest{IntelligenceIDs: []string{}}},
		{"unknown type", AnalyzeRequest{IntelligenceIDs: []string{"r1"}, AnalysisType: "astrology"}},
		{"threshold out of range", AnalyzeRequest{IntelligenceIDs: []string{"r1"}, CorrelationThreshold: threshold(1.5)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Analyze(context.Background(), tt.req, "user-1", models.Secret)
			assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
		})
	}
}

func TestAnalyze_SingleUnknownIDUsesPlaceholder(t *testing.T) {
	svc, publisher := newTestService()

	analysis, err := svc.Analyze(context.Background(), AnalyzeRequest{IntelligenceIDs: []string{"ghost"}}, "user-1", models.Secret)
	require.NoError(t, err)

	assert.True(t, analysis.Synthetic)
	assert.Equal(t, AnalysisCorrelation, analysis.AnalysisType)
	assert.Empty(t, analysis.Correlations)
	assert.Empty(t, analysis.Predictions)
	assert.Nil(t, analysis.NetworkAnalysis)
	assert.Equal(t, models.ThreatLow, analysis.ThreatLevel)
	assert.Zero(t, analysis.ConfidenceScore)
	assert.Zero(t, analysis.EstimatedImpact)
	assert.Equal(t, []string{"NIS", "DCI", "KDF"}, analysis.AgenciesToNotify)
	assert.Equal(t, rules.EscalationActions(models.ThreatLow), analysis.RecommendedActions)
	publisher.AssertNotCalled(t, "BroadcastPrediction", mock.Anything, mock.Anything, mock.Anything)
}

func TestAnalyze_TwoReports(t *testing.T) {
	ctx := context.Background()
	svc, publisher := newTestService()

	analysis, err := svc.Analyze(ctx, AnalyzeRequest{IntelligenceIDs: []string{"r1", "r2"}, TimeHorizonHours: 48}, "user-1", models.Secret)
	require.NoError(t, err)

	require.Len(t, analysis.Correlations, 1)
	corr := analysis.Correlations[0]
	assert.Equal(t, "r1", corr.PrimaryID)
	assert.Equal(t, []string{"r2"}, corr.CorrelatedIDs)
	assert.Equal(t, 0.85, corr.Score)
	assert.True(t, corr.Synthetic)

	require.Len(t, analysis.Predictions, 1)
	pred := analysis.Predictions[0]
	assert.Equal(t, "smuggling", pred.ThreatType)
	assert.Equal(t, "Busia", pred.PredictedLocation.County)
	assert.Equal(t, [2]float64{0.46, 34.11}, pred.PredictedLocation.Coordinates)
	assert.Equal(t, "48 hours", pred.Timeframe)
	assert.Equal(t, models.Confidential, pred.Classification)

	assert.Equal(t, models.ThreatHigh, analysis.ThreatLevel)
	assert.InDelta(t, 0.835, analysis.ConfidenceScore, 1e-9)
	assert.Equal(t, int64(1_250_000_000), analysis.EstimatedImpact)
	assert.Equal(t, []string{"NIS", "KRA", "DCI", "KDF", "EACC"}, analysis.AgenciesToNotify)
	assert.Equal(t, rules.EscalationActions(models.ThreatHigh), analysis.RecommendedActions)

	publisher.AssertCalled(t, "BroadcastPrediction", pred, models.ThreatHigh, analysis.AgenciesToNotify)

	stored, err := svc.Predictions(ctx, PredictionQuery{}, models.Secret)
	require.NoError(t, err)
	require.Equal(t, 1, stored.TotalPredictions)
	assert.Equal(t, pred.ID, stored.Predictions[0].ID)

	hidden, err := svc.Predictions(ctx, PredictionQuery{}, models.Restricted)
	require.NoError(t, err)
	assert.Zero(t, hidden.TotalPredictions)
}

func TestAnalyze_ClearanceAndThreshold(t *testing.T) {
	svc, _ := newTestService()

	t.Run("hidden report drops out", func(t *testing.T) {
		analysis, err := svc.Analyze(context.Background(), AnalyzeRequest{IntelligenceIDs: []string{"r2", "r3"}}, "user-1", models.Restricted)
		require.NoError(t, err)
		assert.Empty(t, analysis.Correlations)
		assert.Equal(t, []string{"EACC", "DCI", "KRA"}, analysis.AgenciesToNotify)
	})

	t.Run("threshold above canned score", func(t *testing.T) {
		analysis, err := svc.Analyze(context.Background(), AnalyzeRequest{IntelligenceIDs: []string{"r1", "r2"}, CorrelationThreshold: threshold(0.9)}, "user-1", models.Secret)
		require.NoError(t, err)
		assert.Empty(t, analysis.Correlations)
		assert.Empty(t, analysis.Predictions)
		assert.Equal(t, models.ThreatLow, analysis.ThreatLevel)
	})
}

func TestAnalyze_Network(t *testing.T) {
	svc, _ := newTestService()

	for _, kind := range []string{AnalysisNetwork, AnalysisComprehensive} {
		analysis, err := svc.Analyze(context.Background(), AnalyzeRequest{IntelligenceIDs: []string{"r1"}, AnalysisType: kind}, "user-1", models.Secret)
		require.NoError(t, err)
		require.NotNil(t, analysis.NetworkAnalysis, kind)
		assert.Equal(t, "smuggling", analysis.NetworkAnalysis.NetworkType)
		assert.True(t, analysis.NetworkAnalysis.Synthetic)
	}
}

func TestOverallLevel(t *testing.T) {
	tests := []struct {
		score    float64
		expected models.ThreatLevel
	}{
		{0.95, models.ThreatCritical},
		{0.9, models.ThreatHigh},
		{0.71, models.ThreatHigh},
		{0.7, models.ThreatMedium},
		{0.5, models.ThreatLow},
	}
	for _, tt := range tests {
		got := overallLevel([]models.Correlation{{Score: tt.score}}, nil)
		assert.Equal(t, tt.expected, got, "score %v", tt.score)
	}
	assert.Equal(t, models.ThreatLow, overallLevel(nil, nil))
}

func TestPredictions_Filters(t *testing.T) {
	ctx := context.Background()
	store := storage.NewPredictionStore()
	svc := NewService(fakeResolver{}, store, nil)
	now := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	seed := []models.Prediction{
		{ID: "p1", ThreatType: "terrorism", PredictedLocation: models.PredictedLocation{County: "Nairobi"}, Confidence: 0.82, CreatedAt: now.Add(-time.Hour)},
		{ID: "p2", ThreatType: "cattle rustling", PredictedLocation: models.PredictedLocation{County: "Baringo"}, Confidence: 0.4, CreatedAt: now.Add(-2 * time.Hour)},
		{ID: "p3", ThreatType: "smuggling", PredictedLocation: models.PredictedLocation{County: "Busia"}, Confidence: 0.9, CreatedAt: now.Add(-200 * time.Hour)},
		{ID: "p4", ThreatType: "Terrorism financing", PredictedLocation: models.PredictedLocation{County: "nairobi"}, Confidence: 0.6, CreatedAt: now.Add(-10 * time.Hour)},
	}
	for _, p := range seed {
		require.NoError(t, store.Create(ctx, p))
	}

	tests := []struct {
		name  string
		query PredictionQuery
		ids   []string
	}{
		{"defaults drop low confidence and old", PredictionQuery{}, []string{"p1", "p4"}},
		{"county", PredictionQuery{County: "NAIROBI"}, []string{"p1", "p4"}},
		{"threat type substring", PredictionQuery{ThreatType: "financ"}, []string{"p4"}},
		{"min confidence", PredictionQuery{MinConfidence: threshold(0.3)}, []string{"p1", "p2", "p4"}},
		{"time range", PredictionQuery{TimeRangeHours: 300}, []string{"p1", "p3", "p4"}},
		{"limit", PredictionQuery{Limit: 1}, []string{"p1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := svc.Predictions(ctx, tt.query, models.Secret)
			require.NoError(t, err)
			ids := []string{}
			for _, p := range result.Predictions {
				ids = append(ids, p.ID)
			}
			assert.Equal(t, tt.ids, ids)
			assert.Equal(t, len(tt.ids), result.TotalPredictions)
		})
	}
}

func TestPredictions_ClearanceAndRange(t *testing.T) {
	ctx := context.Background()
	store := storage.NewPredictionStore()
	svc := NewService(fakeResolver{}, store, nil)
	now := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	seed := []models.Prediction{
		{ID: "secret", ThreatType: "terrorism", Classification: models.Secret, PredictedLocation: models.PredictedLocation{County: "Garissa", Coordinates: [2]float64{-0.45, 39.64}}, Confidence: 0.82, CreatedAt: now.Add(-time.Hour)},
		{ID: "restricted", ThreatType: "fraud", Classification: models.Restricted, Confidence: 0.82, CreatedAt: now.Add(-time.Hour)},
		{ID: "old", ThreatType: "fraud", Classification: models.Unclassified, Confidence: 0.82, CreatedAt: now.Add(-2 * 365 * 24 * time.Hour)},
	}
	for _, p := range seed {
		require.NoError(t, store.Create(ctx, p))
	}

	ids := func(list *PredictionList) []string {
		out := []string{}
		for _, p := range list.Predictions {
			out = append(out, p.ID)
		}
		return out
	}

	tests := []struct {
		name      string
		clearance models.Classification
		query     PredictionQuery
		ids       []string
	}{
		{"secret sees all recent", models.Secret, PredictionQuery{}, []string{"secret", "restricted"}},
		{"unclassified sees nothing classified", models.Unclassified, PredictionQuery{}, []string{}},
		{"unknown clearance sees nothing classified", "", PredictionQuery{}, []string{}},
		{"huge range is clamped to a year", models.Secret, PredictionQuery{TimeRangeHours: 1 << 62}, []string{"secret", "restricted"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := svc.Predictions(ctx, tt.query, tt.clearance)
			require.NoError(t, err)
			assert.Equal(t, tt.ids, ids(result))
		})
	}
}
