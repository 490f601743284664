package notifications

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kenya-ifp/fusion-api/internal/models"
)

// TeamsMessage represents a Microsoft Teams message
type TeamsMessage struct {
	Type       string         `json:"@type"`
	Context    string         `json:"@context"`
	ThemeColor string         `json:"themeColor,omitempty"`
	Title      string         `json:"title"`
	Text       string         `json:"text"`
	Sections   []TeamsSection `json:"sections,omitempty"`
}

type TeamsSection struct {
	ActivityTitle    string      `json:"activityTitle,omitempty"`
	ActivitySubtitle string      `json:"activitySubtitle,omitempty"`
	ActivityText     string      `json:"activityText,omitempty"`
	Facts            []TeamsFact `json:"facts,omitempty"`
	Markdown         bool        `json:"markdown,omitempty"`
}

type TeamsFact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

var levelColors = map[models.ThreatLevel]string{
	models.ThreatCritical: "d13438",
	models.ThreatHigh:     "ff8c00",
	models.ThreatMedium:   "ffb900",
	models.ThreatLow:      "107c10",
}

func newCard(title, text string) *TeamsMessage {
	return &TeamsMessage{
		Type:    "MessageCard",
		Context: "https://schema.org/extensions",
		Title:   title,
		Text:    text,
	}
}

func buildAlertCard(alert models.Alert) *TeamsMessage {
	card := newCard(fmt.Sprintf("%s Threat Alert: %s", alert.ThreatLevel, alert.Title), alert.Description)
	card.ThemeColor = levelColors[alert.ThreatLevel]

	facts := []TeamsFact{
		{Name: "Threat Level", Value: string(alert.ThreatLevel)},
		{Name: "Agencies", Value: strings.Join(alert.AgenciesNotified, ", ")},
		{Name: "Estimated Impact", Value: formatKES(alert.EstimatedImpact)},
		{Name: "Created", Value: alert.CreatedAt.Format("2006-01-02 15:04:05 UTC")},
	}
	if alert.Location != nil && alert.Location.County != "" {
		facts = append(facts, TeamsFact{Name: "County", Value: alert.Location.County})
	}
	if alert.ExpiresAt != nil {
		facts = append(facts, TeamsFact{Name: "Expires", Value: alert.ExpiresAt.Format("2006-01-02 15:04:05 UTC")})
	}
	card.Sections = append(card.Sections, TeamsSection{ActivityTitle: "Details", Facts: facts, Markdown: true})

	if len(alert.RecommendedActions) > 0 {
		card.Sections = append(card.Sections, TeamsSection{
			ActivityTitle: "Recommended Actions",
			ActivityText:  "- " + strings.Join(alert.RecommendedActions, "\n- "),
			Markdown:      true,
		})
	}
	return card
}

func buildDigestCard(digest *models.Digest) *TeamsMessage {
	card := newCard(
		fmt.Sprintf("Fusion Centre Digest - %s", periodTitle(digest.Period)),
		fmt.Sprintf("%d reports and %d alerts in the last %s", digest.TotalReports, digest.TotalAlerts, periodNoun(digest.Period)),
	)

	facts := []TeamsFact{
		{Name: "Reports", Value: fmt.Sprintf("%d", digest.TotalReports)},
		{Name: "Alerts", Value: fmt.Sprintf("%d", digest.TotalAlerts)},
		{Name: "Generated", Value: digest.GeneratedAt.Format("2006-01-02 15:04:05 UTC")},
	}
	for _, level := range []models.ThreatLevel{models.ThreatCritical, models.ThreatHigh, models.ThreatMedium, models.ThreatLow} {
		facts = append(facts, TeamsFact{Name: string(level), Value: fmt.Sprintf("%d", digest.ByLevel[string(level)])})
	}
	card.Sections = append(card.Sections, TeamsSection{ActivityTitle: "Summary", Facts: facts, Markdown: true})

	if len(digest.ByAgency) > 0 {
		card.Sections = append(card.Sections, TeamsSection{
			ActivityTitle: "By Agency",
			Facts:         sortedFacts(digest.ByAgency),
		})
	}

	if len(digest.TopAlerts) > 0 {
		var lines []string
		for _, a := range digest.TopAlerts {
			lines = append(lines, fmt.Sprintf("**%s** %s (%s)", a.ThreatLevel, a.Title, a.CreatedAt.Format("Jan 2 15:04")))
		}
		card.Sections = append(card.Sections, TeamsSection{
			ActivityTitle: "Top Alerts",
			ActivityText:  strings.Join(lines, "\n\n"),
			Markdown:      true,
		})
	}
	return card
}

func sortedFacts(counts map[string]int) []TeamsFact {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	facts := make([]TeamsFact, 0, len(keys))
	for _, k := range keys {
		facts = append(facts, TeamsFact{Name: k, Value: fmt.Sprintf("%d", counts[k])})
	}
	return facts
}

func periodTitle(period string) string {
	if period == "" {
		return ""
	}
	return strings.ToUpper(period[:1]) + period[1:]
}

func periodNoun(period string) string {
	if period == "weekly" {
		return "week"
	}
	return "day"
}

// formatKES renders an amount with thousands separators.
func formatKES(amount int64) string {
	s := fmt.Sprintf("%d", amount)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "KES -" + b.String()
	}
	return "KES " + b.String()
}
