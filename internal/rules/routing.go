package rules

import "github.com/kenya-ifp/fusion-api/internal/models"

// primaryAgency is added for every CRITICAL or HIGH threat.
const primaryAgency = "NIS"

var categoryAgencies = map[string][]string{
	"terrorism":  {"NIS", "DCI", "KDF"},
	"corruption": {"EACC", "DCI", "KRA"},
	"cybercrime": {"DCI", "NIS"},
	"smuggling":  {"KRA", "DCI", "KDF"},
}

var defaultCategoryAgencies = []string{"DCI"}

var submissionActions = map[models.ThreatLevel][]string{
	models.ThreatCritical: {
		"Immediate deployment of response teams",
		"Coordinate with all relevant agencies",
		"Activate emergency protocols",
	},
	models.ThreatHigh: {
		"Enhanced surveillance and monitoring",
		"Coordinate with partner agencies",
		"Prepare response teams",
	},
	models.ThreatMedium: {
		"Continue monitoring situation",
		"Gather additional intelligence",
	},
	models.ThreatLow: {
		"File for future reference",
		"Monitor for pattern development",
	},
}

var escalationActions = map[models.ThreatLevel][]string{
	models.ThreatCritical: {
		"IMMEDIATE: Activate emergency response protocols",
		"IMMEDIATE: Deploy all available resources",
		"IMMEDIATE: Coordinate with all relevant agencies",
	},
	models.ThreatHigh: {
		"URGENT: Enhanced surveillance and monitoring",
		"URGENT: Prepare response teams",
		"URGENT: Increase inter-agency coordination",
	},
	models.ThreatMedium: {
		"Monitor situation closely",
		"Gather additional intelligence",
		"Prepare contingency plans",
	},
	models.ThreatLow: {
		"Continue routine monitoring",
		"File for pattern analysis",
	},
}

// SubmissionActions returns the recommended actions attached to a newly submitted report.
func SubmissionActions(level models.ThreatLevel) []string {
	return actionsFor(submissionActions, level)
}

// EscalationActions returns the IMMEDIATE/URGENT phrased actions used for alerts and analyses.
func EscalationActions(level models.ThreatLevel) []string {
	return actionsFor(escalationActions, level)
}

func actionsFor(table map[models.ThreatLevel][]string, level models.ThreatLevel) []string {
	actions, ok := table[level]
	if !ok {
		actions = table[models.ThreatLow]
	}
	out := make([]string, len(actions))
	copy(out, actions)
	return out
}

// AgenciesToNotify returns the deduplicated agency codes for a threat, in
// insertion order: the primary agency first for CRITICAL/HIGH, then the
// agencies of each category in turn.
func AgenciesToNotify(level models.ThreatLevel, categories ...string) []string {
	set := newOrderedSet()
	if level == models.ThreatCritical || level == models.ThreatHigh {
		set.add(primaryAgency)
	}
	for _, category := range categories {
		agencies, ok := categoryAgencies[normalizeCategory(category)]
		if !ok {
			agencies = defaultCategoryAgencies
		}
		set.add(agencies...)
	}
	return set.items
}

type orderedSet struct {
	seen  map[string]struct{}
	items []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: make(map[string]struct{}), items: []string{}}
}

func (s *orderedSet) add(values ...string) {
	for _, v := range values {
		if _, ok := s.seen[v]; ok {
			continue
		}
		s.seen[v] = struct{}{}
		s.items = append(s.items, v)
	}
}
