package intelligence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kenya-ifp/fusion-api/internal/models"
	"github.com/kenya-ifp/fusion-api/internal/rules"
)

const (
	DefaultSearchLimit = 50
	MaxSearchLimit     = 500
)

// SearchQuery filters reports. Zero-valued fields do not filter.
type SearchQuery struct {
	Query          string
	Agency         models.Agency
	Classification models.Classification
	Category       string
	County         string
	ThreatLevel    models.ThreatLevel
	From           *time.Time
	To             *time.Time
	Limit          int
	Offset         int
}

// SearchResult is one page of matching reports.
type SearchResult struct {
	Reports    []models.Report `json:"intelligence_reports"`
	TotalCount int             `json:"total_count"`
	Page       int             `json:"page"`
	Limit      int             `json:"limit"`
}

func (q SearchQuery) normalized() SearchQuery {
	if q.Limit <= 0 {
		q.Limit = DefaultSearchLimit
	}
	if q.Limit > MaxSearchLimit {
		q.Limit = MaxSearchLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	q.Query = strings.ToLower(strings.TrimSpace(q.Query))
	return q
}

func (q SearchQuery) matches(r models.Report) bool {
	switch {
	case q.Query != "" &&
		!strings.Contains(strings.ToLower(r.Title), q.Query) &&
		!strings.Contains(strings.ToLower(r.Content), q.Query):
		return false
	case q.Agency != "" && r.Agency != q.Agency:
		return false
	case q.Classification != "" && r.Classification != q.Classification:
		return false
	case q.Category != "" && !strings.EqualFold(r.Category, q.Category):
		return false
	case q.County != "" && !strings.EqualFold(r.County(), q.County):
		return false
	case q.ThreatLevel != "" && r.ThreatLevel != q.ThreatLevel:
		return false
	case q.From != nil && r.CreatedAt.Before(*q.From):
		return false
	case q.To != nil && r.CreatedAt.After(*q.To):
		return false
	}
	return true
}

// Search returns a page of reports visible at the given clearance. Reports
// above the clearance are excluded before counting, so the total never
// reveals their existence.
func (s *Service) Search(ctx context.Context, query SearchQuery, clearance models.Classification) (*SearchResult, error) {
	q := query.normalized()

	matches, err := s.reports.Find(ctx, func(r models.Report) bool {
		return rules.HasAccess(clearance, r.Classification) && q.matches(r)
	})
	if err != nil {
		return nil, fmt.Errorf("search reports: %w", err)
	}

	result := &SearchResult{
		Reports:    []models.Report{},
		TotalCount: len(matches),
		Page:       q.Offset/q.Limit + 1,
		Limit:      q.Limit,
	}
	if q.Offset < len(matches) {
		end := q.Offset + q.Limit
		if end > len(matches) {
			end = len(matches)
		}
		result.Reports = matches[q.Offset:end]
	}
	return result, nil
}
