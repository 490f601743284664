package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"github.com/kenya-ifp/fusion-api/internal/models"
)

// maxItemsPerFetch bounds how many entries a single feed may contribute per run.
const maxItemsPerFetch = 200

// JSONFeedSource reads a JSON document of feed items. The document may be a
// bare array or an object with an "items" array.
type JSONFeedSource struct {
	name   string
	url    string
	client *resty.Client
	now    func() time.Time
}

type feedDocument struct {
	Items []models.FeedItem `json:"items"`
}

// NewJSONFeedSource creates a source for the feed at feedURL. The source is
// named after the feed's host, path and query; userinfo is dropped.
func NewJSONFeedSource(feedURL string) *JSONFeedSource {
	return &JSONFeedSource{
		name: sourceName(feedURL),
		url:  feedURL,
		client: resty.New().
			SetTimeout(30*time.Second).
			SetHeader("User-Agent", "Fusion-API/1.0").
			SetHeader("Accept", "application/json"),
		now: time.Now,
	}
}

func sourceName(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil || u.Host == "" {
		return feedURL
	}
	name := u.Host + strings.TrimSuffix(u.Path, "/")
	if u.RawQuery != "" {
		name += "?" + u.RawQuery
	}
	return name
}

// NewSources builds one source per configured feed URL.
func NewSources(feedURLs []string) []Source {
	var out []Source
	for _, u := range feedURLs {
		out = append(out, NewJSONFeedSource(u))
	}
	return out
}

func (f *JSONFeedSource) GetName() string {
	return f.name
}

func (f *JSONFeedSource) IsEnabled() bool {
	return strings.HasPrefix(f.url, "http://") || strings.HasPrefix(f.url, "https://")
}

func (f *JSONFeedSource) FetchItems(ctx context.Context, since time.Duration) ([]models.FeedItem, error) {
	resp, err := f.client.R().
		SetContext(ctx).
		Get(f.url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed %s: %w", f.name, err)
	}

	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("feed %s returned status %d", f.name, resp.StatusCode())
	}

	items, err := decodeItems(resp.Body())
	if err != nil {
		return nil, fmt.Errorf("failed to decode feed %s: %w", f.name, err)
	}

	cutoff := f.now().Add(-since)
	var fresh []models.FeedItem
	for _, item := range items {
		if item.ID == "" || strings.TrimSpace(item.Title) == "" {
			logrus.Debugf("Skipping feed item without id or title from %s", f.name)
			continue
		}
		if !item.PublishedAt.IsZero() && item.PublishedAt.Before(cutoff) {
			continue
		}
		item.Source = f.name
		fresh = append(fresh, item)
		if len(fresh) >= maxItemsPerFetch {
			break
		}
	}

	return fresh, nil
}

func decodeItems(body []byte) ([]models.FeedItem, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []models.FeedItem
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, err
		}
		return items, nil
	}

	var doc feedDocument
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, err
	}
	return doc.Items, nil
}
