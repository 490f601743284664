package correlation

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kenya-ifp/fusion-api/internal/models"
	"github.com/kenya-ifp/fusion-api/internal/rules"
)

const (
	stubCorrelationScore  = 0.85
	stubCorrelationImpact = 250_000_000
	stubPredictionScore   = 0.82
	stubPredictionImpact  = 375_000_000
	stubPredictionRadius  = 15
	stubPredictionTrigger = 0.7
	stubNetworkValue      = 150_000_000
)

var defaultPredictedLocation = models.PredictedLocation{
	County:             "Nairobi",
	Coordinates:        [2]float64{-1.2921, 36.8219},
	ConfidenceRadiusKm: stubPredictionRadius,
}

// correlate emits one canned correlation when at least two reports are given
// and its fixed score clears the threshold.
func correlate(reports []models.Report, threshold float64, now time.Time) []models.Correlation {
	if len(reports) < 2 || stubCorrelationScore < threshold {
		return []models.Correlation{}
	}

	ids := make([]string, 0, len(reports)-1)
	for _, r := range reports[1:] {
		ids = append(ids, r.ID)
	}
	return []models.Correlation{{
		ID:                 uuid.NewString(),
		PrimaryID:          reports[0].ID,
		CorrelatedIDs:      ids,
		Type:               "semantic",
		Score:              stubCorrelationScore,
		Method:             "STATIC_PLACEHOLDER",
		ThreatLevel:        models.ThreatHigh,
		PredictedImpact:    stubCorrelationImpact,
		RecommendedActions: rules.SubmissionActions(models.ThreatHigh),
		AgenciesToNotify:   rules.AgenciesToNotify(models.ThreatHigh, categories(reports)...),
		CreatedAt:          now,
		Synthetic:          true,
	}}
}

// predict emits one canned prediction when a correlation scores above 0.7.
func predict(reports []models.Report, correlations []models.Correlation, horizonHours int, now time.Time) []models.Prediction {
	triggered := false
	for _, c := range correlations {
		if c.Score > stubPredictionTrigger {
			triggered = true
			break
		}
	}
	if !triggered {
		return []models.Prediction{}
	}

	primary := reports[0]
	location := defaultPredictedLocation
	if primary.Location != nil && primary.Location.County != "" {
		location.County = primary.Location.County
		location.Coordinates = [2]float64{primary.Location.Latitude, primary.Location.Longitude}
	}

	return []models.Prediction{{
		ID:                uuid.NewString(),
		ThreatType:        primary.Category,
		PredictedLocation: location,
		Confidence:        stubPredictionScore,
		Timeframe:         fmt.Sprintf("%d hours", horizonHours),
		PredictedImpact:   stubPredictionImpact,
		ModelVersion:      modelVersion,
		Classification:    highestClassification(reports),
		InputFeatures: models.PredictionFeatures{
			HistoricalPatterns:  0.8,
			SeasonalFactors:     0.6,
			EconomicIndicators:  0.7,
			SocialTensionIndex:  0.5,
			CrossBorderActivity: 0.4,
		},
		Status:      "pending",
		CreatedAt:   now,
		LastUpdated: now,
		Synthetic:   true,
	}}
}

func networkFor(reports []models.Report) *models.NetworkAnalysis {
	return &models.NetworkAnalysis{
		NetworkID:   uuid.NewString(),
		NetworkType: reports[0].Category,
		KeyEntities: []models.NetworkEntity{
			{EntityID: "entity-1", EntityType: "person", Name: "Suspect Alpha", CentralityScore: 0.85, ThreatLevel: "HIGH", Connections: 12},
			{EntityID: "entity-2", EntityType: "organization", Name: "Shell Company Beta", CentralityScore: 0.72, ThreatLevel: "MEDIUM", Connections: 8},
		},
		Connections: []models.NetworkLink{
			{SourceID: "entity-1", TargetID: "entity-2", ConnectionType: "financial", Strength: 0.9, EvidenceCount: 5},
		},
		EstimatedValue:       stubNetworkValue,
		AgenciesTracking:     []string{"NIS", "DCI", "FRC"},
		VulnerabilityPoints:  []string{"Communication intercepts", "Financial transactions", "Border crossings"},
		DisruptionStrategies: []string{"Coordinated arrests", "Asset freezing", "Communication monitoring"},
		Synthetic:            true,
	}
}

// overallLevel maps the highest correlation or prediction score onto a tier.
func overallLevel(correlations []models.Correlation, predictions []models.Prediction) models.ThreatLevel {
	maxScore := 0.0
	for _, c := range correlations {
		if c.Score > maxScore {
			maxScore = c.Score
		}
	}
	for _, p := range predictions {
		if p.Confidence > maxScore {
			maxScore = p.Confidence
		}
	}

	switch {
	case maxScore > 0.9:
		return models.ThreatCritical
	case maxScore > 0.7:
		return models.ThreatHigh
	case maxScore > 0.5:
		return models.ThreatMedium
	default:
		return models.ThreatLow
	}
}

// confidenceScore is the mean of the average correlation score and the
// average prediction confidence, each 0 when absent.
func confidenceScore(correlations []models.Correlation, predictions []models.Prediction) float64 {
	if len(correlations) == 0 && len(predictions) == 0 {
		return 0
	}

	var avgCorrelation, avgPrediction float64
	if len(correlations) > 0 {
		for _, c := range correlations {
			avgCorrelation += c.Score
		}
		avgCorrelation /= float64(len(correlations))
	}
	if len(predictions) > 0 {
		for _, p := range predictions {
			avgPrediction += p.Confidence
		}
		avgPrediction /= float64(len(predictions))
	}

	score := (avgCorrelation + avgPrediction) / 2
	if score > 1 {
		score = 1
	}
	return score
}

func sumCorrelationImpact(correlations []models.Correlation) int64 {
	var total int64
	for _, c := range correlations {
		total += c.PredictedImpact
	}
	return total
}

func sumPredictionImpact(predictions []models.Prediction) int64 {
	var total int64
	for _, p := range predictions {
		total += p.PredictedImpact
	}
	return total
}

func highestClassification(reports []models.Report) models.Classification {
	highest := models.Unclassified
	for _, r := range reports {
		if rules.ClearanceRank(r.Classification) > rules.ClearanceRank(highest) {
			highest = r.Classification
		}
	}
	return highest
}
