package httpapi

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kenya-ifp/fusion-api/internal/apperrors"
	"github.com/kenya-ifp/fusion-api/internal/models"
)

const dateLayout = "2006-01-02"

// queryTime parses an RFC3339 timestamp or a YYYY-MM-DD date. A bare date
// used as an upper bound covers the whole day.
func queryTime(q url.Values, name string, upper bool) (*time.Time, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, apperrors.Validation("Invalid %s: expected RFC3339 timestamp or YYYY-MM-DD", name)
	}
	if upper {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

func queryInt(q url.Values, name string) (int, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperrors.Validation("Invalid %s: must be a non-negative integer", name)
	}
	return n, nil
}

func queryFloat(q url.Values, name string) (*float64, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, apperrors.Validation("Invalid %s: must be a number", name)
	}
	return &f, nil
}

func queryThreatLevel(q url.Values) (models.ThreatLevel, error) {
	raw := strings.ToUpper(strings.TrimSpace(q.Get("threat_level")))
	if raw == "" {
		return "", nil
	}
	level := models.ThreatLevel(raw)
	if !level.Valid() {
		return "", apperrors.Validation("Invalid threat_level: %s", raw)
	}
	return level, nil
}

func queryClassification(q url.Values) (models.Classification, error) {
	raw := strings.ToUpper(strings.TrimSpace(q.Get("classification")))
	if raw == "" {
		return "", nil
	}
	c := models.Classification(raw)
	if !c.Valid() {
		return "", apperrors.Validation("Invalid classification: %s", raw)
	}
	return c, nil
}

func queryAgency(q url.Values) (models.Agency, error) {
	raw := strings.ToUpper(strings.TrimSpace(q.Get("agency")))
	if raw == "" {
		return "", nil
	}
	a := models.Agency(raw)
	if !a.Notifiable() {
		return "", apperrors.Validation("Invalid agency: %s", raw)
	}
	return a, nil
}

func queryAlertStatus(q url.Values) (models.AlertStatus, error) {
	raw := strings.ToLower(strings.TrimSpace(q.Get("status")))
	switch models.AlertStatus(raw) {
	case "":
		return "", nil
	case models.AlertSent, models.AlertAcknowledged, models.AlertResolved:
		return models.AlertStatus(raw), nil
	}
	return "", apperrors.Validation("Invalid status: %s", raw)
}
