package alerts

import (
	"context"
	"fmt"
	"time"

	"github.com/kenya-ifp/fusion-api/internal/models"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

// ListQuery filters alerts. Zero-valued fields do not filter.
type ListQuery struct {
	Agency      string
	ThreatLevel models.ThreatLevel
	Status      models.AlertStatus
	From        *time.Time
	To          *time.Time
	Limit       int
	Offset      int
}

type ListResult struct {
	Alerts     []models.Alert `json:"alerts"`
	TotalCount int            `json:"total_count"`
}

func (q ListQuery) matches(a models.Alert) bool {
	if q.Agency != "" && !contains(a.AgenciesNotified, q.Agency) {
		return false
	}
	if q.ThreatLevel != "" && a.ThreatLevel != q.ThreatLevel {
		return false
	}
	if q.Status != "" && a.Status != q.Status {
		return false
	}
	if q.From != nil && a.CreatedAt.Before(*q.From) {
		return false
	}
	if q.To != nil && a.CreatedAt.After(*q.To) {
		return false
	}
	return true
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

// List returns a page of alerts in creation order.
func (s *Service) List(ctx context.Context, q ListQuery) (*ListResult, error) {
	if q.Limit <= 0 {
		q.Limit = DefaultListLimit
	}
	if q.Limit > MaxListLimit {
		q.Limit = MaxListLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	matches, err := s.alerts.Find(ctx, q.matches)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}

	result := &ListResult{Alerts: []models.Alert{}, TotalCount: len(matches)}
	if q.Offset < len(matches) {
		end := q.Offset + q.Limit
		if end > len(matches) {
			end = len(matches)
		}
		result.Alerts = matches[q.Offset:end]
	}
	return result, nil
}
