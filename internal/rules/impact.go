package rules

import (
	"math"
	"strings"

	"github.com/kenya-ifp/fusion-api/internal/models"
)

// Monetary values are in Kenyan shillings.
const (
	defaultCategoryImpact int64 = 5_000_000
	defaultAlertImpact    int64 = 25_000_000
)

var categoryBaseImpact = map[string]int64{
	"terrorism":  500_000_000,
	"corruption": 100_000_000,
	"cybercrime": 50_000_000,
	"smuggling":  25_000_000,
	"fraud":      10_000_000,
}

var reportLevelMultiplier = map[models.ThreatLevel]float64{
	models.ThreatCritical: 5,
	models.ThreatHigh:     3,
	models.ThreatMedium:   2,
	models.ThreatLow:      1,
}

var alertBaseImpact = map[models.ThreatLevel]int64{
	models.ThreatCritical: 1_000_000_000,
	models.ThreatHigh:     500_000_000,
	models.ThreatMedium:   100_000_000,
	models.ThreatLow:      25_000_000,
}

var (
	highImpactKeywords   = []string{"terrorism", "bomb", "assassination", "coup"}
	mediumImpactKeywords = []string{"corruption", "smuggling", "cybercrime"}
)

var analysisLevelMultiplier = map[models.ThreatLevel]float64{
	models.ThreatCritical: 3,
	models.ThreatHigh:     2,
	models.ThreatMedium:   1.5,
	models.ThreatLow:      1,
}

// EstimateReportImpact is the submission variant: a per-category base value
// scaled by the threat level.
func EstimateReportImpact(level models.ThreatLevel, category string) int64 {
	base, ok := categoryBaseImpact[normalizeCategory(category)]
	if !ok {
		base = defaultCategoryImpact
	}
	return scale(base, multiplierFor(reportLevelMultiplier, level))
}

// EstimateAlertImpact is the alert variant: a per-level base value doubled for
// high-impact description keywords, or scaled by 1.5 for medium-impact ones.
func EstimateAlertImpact(level models.ThreatLevel, description string) int64 {
	base, ok := alertBaseImpact[level]
	if !ok {
		base = defaultAlertImpact
	}

	lower := strings.ToLower(description)
	multiplier := 1.0
	switch {
	case containsAny(lower, highImpactKeywords):
		multiplier = 2
	case containsAny(lower, mediumImpactKeywords):
		multiplier = 1.5
	}
	return scale(base, multiplier)
}

// EstimateAnalysisImpact sums correlation and prediction impacts and scales the
// total by the overall analysis level.
func EstimateAnalysisImpact(level models.ThreatLevel, correlationImpact, predictionImpact int64) int64 {
	return scale(correlationImpact+predictionImpact, multiplierFor(analysisLevelMultiplier, level))
}

func multiplierFor(table map[models.ThreatLevel]float64, level models.ThreatLevel) float64 {
	if m, ok := table[level]; ok {
		return m
	}
	return 1
}

func scale(base int64, multiplier float64) int64 {
	return int64(math.Round(float64(base) * multiplier))
}
