package rules

import (
	"math"

	"github.com/kenya-ifp/fusion-api/internal/models"
)

const defaultResponseHours = 24.0

var baseResponseHours = map[models.ThreatLevel]float64{
	models.ThreatCritical: 0.5,
	models.ThreatHigh:     2,
	models.ThreatMedium:   8,
	models.ThreatLow:      24,
}

// EstimateResponseTime returns the expected response time in hours, rounded to
// one decimal. More agencies respond faster: 30% off above three, 15% off above one.
func EstimateResponseTime(level models.ThreatLevel, agencyCount int) float64 {
	hours, ok := baseResponseHours[level]
	if !ok {
		hours = defaultResponseHours
	}

	switch {
	case agencyCount > 3:
		hours *= 0.7
	case agencyCount > 1:
		hours *= 0.85
	}

	return math.Round(hours*10) / 10
}
