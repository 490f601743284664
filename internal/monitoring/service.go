// Package monitoring runs the background jobs: the periodic situation digest
// and the OSINT feed sync.
package monitoring

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kenya-ifp/fusion-api/internal/apperrors"
	"github.com/kenya-ifp/fusion-api/internal/config"
	"github.com/kenya-ifp/fusion-api/internal/intelligence"
	"github.com/kenya-ifp/fusion-api/internal/models"
	"github.com/kenya-ifp/fusion-api/internal/notifications"
	"github.com/kenya-ifp/fusion-api/internal/sources"
	"github.com/kenya-ifp/fusion-api/internal/storage"
)

const (
	topAlertCount         = 5
	feedWindow            = 24 * time.Hour
	seenRetention         = 7 * 24 * time.Hour
	feedReliability       = "C"
	defaultFeedConfidence = 0.5
)

// Submitter accepts reports through the normal submission pipeline.
type Submitter interface {
	Submit(ctx context.Context, req intelligence.SubmitRequest, createdBy string) (*intelligence.SubmitResult, error)
}

// Recorder receives job outcomes for export.
type Recorder interface {
	DigestRun(err error)
	FeedItemsIngested(source string, n int)
}

// Service runs the digest and feed jobs
type Service struct {
	config    *config.Config
	reports   storage.ReportRepository
	alerts    storage.AlertRepository
	archive   storage.Archive
	notifier  notifications.Notifier
	submitter Submitter
	recorder  Recorder
	sources   []sources.Source
	seen      map[string]time.Time
	metrics   *Metrics
	mu        sync.RWMutex
	now       func() time.Time
}

// Metrics holds job metrics
type Metrics struct {
	LastDigest         time.Time      `json:"last_digest"`
	LastDigestDuration string         `json:"last_digest_duration"`
	DigestRuns         int            `json:"digest_runs"`
	LastFeedSync       time.Time      `json:"last_feed_sync"`
	FeedItemsIngested  int            `json:"feed_items_ingested"`
	SourceMetrics      map[string]int `json:"source_metrics"`
	ErrorCount         int            `json:"error_count"`
}

// NewService creates a new monitoring service. archive, notifier and
// recorder may be nil.
func NewService(cfg *config.Config, reports storage.ReportRepository, alerts storage.AlertRepository,
	archive storage.Archive, notifier notifications.Notifier, submitter Submitter, recorder Recorder) *Service {
	service := &Service{
		config:    cfg,
		reports:   reports,
		alerts:    alerts,
		archive:   archive,
		notifier:  notifier,
		submitter: submitter,
		recorder:  recorder,
		seen:      make(map[string]time.Time),
		metrics: &Metrics{
			SourceMetrics: make(map[string]int),
		},
		now: time.Now,
	}

	service.initializeSources()

	return service
}

func (s *Service) initializeSources() {
	for _, src := range sources.NewSources(s.config.FeedURLs) {
		if !src.IsEnabled() {
			logrus.Warnf("Skipping feed %s: only http(s) URLs are supported", src.GetName())
			continue
		}
		s.sources = append(s.sources, src)
	}
}

// digestWindow is the look-back period of a digest for the configured schedule.
func digestWindow(period string) time.Duration {
	if period == "weekly" {
		return 7 * 24 * time.Hour
	}
	return 24 * time.Hour
}

// RunDigest summarises the reports and alerts of the configured period,
// archives the digest and sends it to the notification channels.
func (s *Service) RunDigest(ctx context.Context) (*models.Digest, error) {
	start := s.now()
	period := s.config.DigestSchedule
	since := start.Add(-digestWindow(period))
	logrus.Infof("Starting %s digest for activity since %s", period, since.Format(time.RFC3339))

	digest, err := s.collectDigest(ctx, period, since, start)
	if err == nil {
		s.storeDigest(ctx, digest)
		if s.notifier != nil {
			err = s.notifier.SendDigest(ctx, digest)
		}
	}

	s.mu.Lock()
	s.metrics.LastDigest = start
	s.metrics.LastDigestDuration = s.now().Sub(start).String()
	s.metrics.DigestRuns++
	if err != nil {
		s.metrics.ErrorCount++
	}
	s.mu.Unlock()

	if s.recorder != nil {
		s.recorder.DigestRun(err)
	}
	if err != nil {
		logrus.Errorf("Digest run failed: %v", err)
		return digest, fmt.Errorf("digest run failed: %w", err)
	}

	logrus.Infof("Digest completed: %d reports, %d alerts", digest.TotalReports, digest.TotalAlerts)
	return digest, nil
}

func (s *Service) collectDigest(ctx context.Context, period string, since, now time.Time) (*models.Digest, error) {
	reports, err := s.reports.Find(ctx, func(r models.Report) bool {
		return !r.CreatedAt.Before(since)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load reports: %w", err)
	}

	alerts, err := s.alerts.Find(ctx, func(a models.Alert) bool {
		return !a.CreatedAt.Before(since)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load alerts: %w", err)
	}

	return buildDigest(period, now, reports, alerts), nil
}

func buildDigest(period string, now time.Time, reports []models.Report, alerts []models.Alert) *models.Digest {
	digest := &models.Digest{
		GeneratedAt:  now.UTC(),
		Period:       period,
		TotalReports: len(reports),
		TotalAlerts:  len(alerts),
		ByLevel:      make(map[string]int),
		ByAgency:     make(map[string]int),
		ByCategory:   make(map[string]int),
	}

	for _, r := range reports {
		digest.ByLevel[string(r.ThreatLevel)]++
		digest.ByAgency[string(r.Agency)]++
		digest.ByCategory[r.Category]++
	}

	digest.TopAlerts = topAlerts(alerts, topAlertCount)
	return digest
}

// topAlerts orders alerts by severity, then estimated impact, then recency.
func topAlerts(alerts []models.Alert, n int) []models.Alert {
	sorted := make([]models.Alert, len(alerts))
	copy(sorted, alerts)

	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.ThreatLevel.Severity() != b.ThreatLevel.Severity() {
			return a.ThreatLevel.Severity() > b.ThreatLevel.Severity()
		}
		if a.EstimatedImpact != b.EstimatedImpact {
			return a.EstimatedImpact > b.EstimatedImpact
		}
		return a.CreatedAt.After(b.CreatedAt)
	})

	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

func (s *Service) storeDigest(ctx context.Context, digest *models.Digest) {
	if s.archive == nil {
		return
	}

	data, err := json.Marshal(digest)
	if err != nil {
		logrus.Errorf("Failed to marshal digest: %v", err)
		return
	}

	if err := s.archive.Store(ctx, storage.DigestBlobName(digest.Period, digest.GeneratedAt), data); err != nil {
		logrus.Errorf("Failed to archive digest: %v", err)
	}
}

// RunFeedSync pulls recent items from every configured feed and submits the
// ones not seen before as OSINT reports.
func (s *Service) RunFeedSync(ctx context.Context) error {
	if len(s.sources) == 0 {
		return nil
	}

	start := s.now()
	logrus.Infof("Starting feed sync across %d sources", len(s.sources))

	type batch struct {
		source string
		items  []models.FeedItem
	}

	var wg sync.WaitGroup
	batches := make(chan batch, len(s.sources))
	errorsChan := make(chan error, len(s.sources))

	for _, source := range s.sources {
		wg.Add(1)
		go func(src sources.Source) {
			defer wg.Done()

			items, err := src.FetchItems(ctx, feedWindow)
			if err != nil {
				logrus.Errorf("Error fetching from %s: %v", src.GetName(), err)
				errorsChan <- err
				return
			}

			logrus.Infof("Found %d items from %s", len(items), src.GetName())
			batches <- batch{source: src.GetName(), items: items}
		}(source)
	}

	go func() {
		wg.Wait()
		close(batches)
		close(errorsChan)
	}()

	ingested := make(map[string]int)
	submitErrors := 0
	for b := range batches {
		for _, item := range b.items {
			ok, err := s.ingest(ctx, item)
			if err != nil {
				logrus.Errorf("Failed to submit feed item %s from %s: %v", item.ID, b.source, err)
				submitErrors++
				continue
			}
			if ok {
				ingested[b.source]++
			}
		}
	}

	fetchErrors := 0
	for range errorsChan {
		fetchErrors++
	}

	s.pruneSeen(start)

	total := 0
	s.mu.Lock()
	for source, n := range ingested {
		s.metrics.SourceMetrics[source] += n
		total += n
	}
	s.metrics.FeedItemsIngested += total
	s.metrics.LastFeedSync = start
	s.metrics.ErrorCount += fetchErrors + submitErrors
	s.mu.Unlock()

	if s.recorder != nil {
		for source, n := range ingested {
			s.recorder.FeedItemsIngested(source, n)
		}
	}

	logrus.Infof("Feed sync completed in %v: %d new reports, %d errors", s.now().Sub(start), total, fetchErrors+submitErrors)
	if fetchErrors == len(s.sources) {
		return fmt.Errorf("all %d feeds failed", fetchErrors)
	}
	return nil
}

// ingest submits one item unless it was seen before. Items rejected by
// validation are remembered so they are not retried.
func (s *Service) ingest(ctx context.Context, item models.FeedItem) (bool, error) {
	key := item.Source + "/" + item.ID

	s.mu.Lock()
	_, dup := s.seen[key]
	s.mu.Unlock()
	if dup {
		return false, nil
	}

	_, err := s.submitter.Submit(ctx, feedRequest(s.config.FeedAgency, item), "feed:"+item.Source)
	if err != nil && !apperrors.Is(err, apperrors.KindValidation) {
		return false, err
	}

	s.mu.Lock()
	s.seen[key] = s.now()
	s.mu.Unlock()

	if err != nil {
		logrus.Warnf("Feed item %s from %s rejected: %v", item.ID, item.Source, err)
		return false, nil
	}
	return true, nil
}

func feedRequest(agency string, item models.FeedItem) intelligence.SubmitRequest {
	confidence := defaultFeedConfidence
	if c := item.Confidence; c != nil && *c >= 0 && *c <= 1 {
		confidence = *c
	}
	category := item.Category
	if category == "" {
		category = "general"
	}
	content := item.Content
	if content == "" {
		content = item.Title
	}

	req := intelligence.SubmitRequest{
		Agency:            models.Agency(agency),
		Classification:    models.Unclassified,
		DataType:          models.OSINT,
		Category:          category,
		Title:             item.Title,
		Content:           content,
		ConfidenceScore:   &confidence,
		SourceReliability: feedReliability,
		CorrelationTags:   []string{"osint", item.Source},
	}
	if item.County != "" {
		req.Location = &models.Location{County: item.County}
	}
	return req
}

func (s *Service) pruneSeen(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, at := range s.seen {
		if now.Sub(at) > seenRetention {
			delete(s.seen, key)
		}
	}
}

// GetMetrics returns current metrics as JSON
func (s *Service) GetMetrics() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, _ := json.MarshalIndent(s.metrics, "", "  ")
	return string(data)
}
