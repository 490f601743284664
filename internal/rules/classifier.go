// Package rules holds the deterministic threat-scoring and notification-routing
// tables. Every function here is pure: output depends only on its arguments
// and the static tables below.
package rules

import (
	"strings"

	"github.com/kenya-ifp/fusion-api/internal/models"
)

type classifierTier struct {
	level         models.ThreatLevel
	keywords      []string
	minConfidence float64
}

// Tiers are evaluated in order; the first match wins.
var classifierTiers = []classifierTier{
	{
		level:         models.ThreatCritical,
		keywords:      []string{"terrorism", "bomb", "attack", "assassination", "coup"},
		minConfidence: 0.8,
	},
	{
		level:         models.ThreatHigh,
		keywords:      []string{"smuggling", "corruption", "money laundering", "cybercrime"},
		minConfidence: 0.7,
	},
	{
		level:         models.ThreatMedium,
		keywords:      []string{"fraud", "theft", "illegal", "suspicious"},
		minConfidence: 0.6,
	},
}

// ClassifyThreat derives a threat level from report content and confidence.
// A tier matches when the case-folded content contains one of its keywords and
// confidence is strictly above the tier's minimum. The category is accepted for
// symmetry with the other rules but does not influence the result.
func ClassifyThreat(content, category string, confidence float64) models.ThreatLevel {
	lower := strings.ToLower(content)
	for _, tier := range classifierTiers {
		if containsAny(lower, tier.keywords) && confidence > tier.minConfidence {
			return tier.level
		}
	}
	return models.ThreatLow
}

func containsAny(text string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			return true
		}
	}
	return false
}

func normalizeCategory(category string) string {
	return strings.ToLower(strings.TrimSpace(category))
}
