package correlation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kenya-ifp/fusion-api/internal/models"
	"github.com/kenya-ifp/fusion-api/internal/rules"
)

const (
	DefaultMinConfidence    = 0.5
	DefaultTimeRangeHours   = 168
	MaxTimeRangeHours       = 8760
	DefaultPredictionsLimit = 20
	MaxPredictionsLimit     = 200
)

// PredictionQuery filters stored predictions.
type PredictionQuery struct {
	County         string
	ThreatType     string
	MinConfidence  *float64
	TimeRangeHours int
	Limit          int
}

type PredictionList struct {
	Predictions      []models.Prediction `json:"predictions"`
	TotalPredictions int                 `json:"total_predictions"`
}

// Predictions lists stored predictions created within the time range that
// the given clearance may read.
func (s *Service) Predictions(ctx context.Context, q PredictionQuery, clearance models.Classification) (*PredictionList, error) {
	minConfidence := DefaultMinConfidence
	if q.MinConfidence != nil {
		minConfidence = *q.MinConfidence
	}
	hours := q.TimeRangeHours
	if hours <= 0 {
		hours = DefaultTimeRangeHours
	}
	if hours > MaxTimeRangeHours {
		hours = MaxTimeRangeHours
	}
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultPredictionsLimit
	}
	if limit > MaxPredictionsLimit {
		limit = MaxPredictionsLimit
	}
	since := s.now().Add(-time.Duration(hours) * time.Hour)
	threatType := strings.ToLower(q.ThreatType)

	matches, err := s.predictions.Find(ctx, func(p models.Prediction) bool {
		if !rules.HasAccess(clearance, p.Classification) {
			return false
		}
		if q.County != "" && !strings.EqualFold(p.PredictedLocation.County, q.County) {
			return false
		}
		if threatType != "" && !strings.Contains(strings.ToLower(p.ThreatType), threatType) {
			return false
		}
		return p.Confidence >= minConfidence && !p.CreatedAt.Before(since)
	})
	if err != nil {
		return nil, fmt.Errorf("list predictions: %w", err)
	}

	if len(matches) > limit {
		matches = matches[:limit]
	}
	return &PredictionList{Predictions: matches, TotalPredictions: len(matches)}, nil
}
