// Package realtime carries the live intelligence feed: a bounded event log
// that subscribers read through their own cursors, the websocket endpoint
// that serves it, and an optional Redis stream relay.
package realtime

import (
	"time"

	"github.com/kenya-ifp/fusion-api/internal/models"
)

type EventType string

const (
	EventThreatAlert      EventType = "threat_alert"
	EventNewIntelligence  EventType = "new_intelligence"
	EventPredictionUpdate EventType = "prediction_update"
)

// Event is one message on the feed. Seq is assigned by the topic.
type Event struct {
	Seq                 uint64                `json:"seq"`
	Type                EventType             `json:"type"`
	Data                map[string]any        `json:"data"`
	Timestamp           time.Time             `json:"timestamp"`
	ClassificationLevel models.Classification `json:"classification_level"`
	Priority            models.ThreatLevel    `json:"priority"`
	SourceAgency        string                `json:"source_agency,omitempty"`
	AgenciesAuthorized  []string              `json:"agencies_authorized"`
}
