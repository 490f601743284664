package realtime

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kenya-ifp/fusion-api/internal/models"
	"github.com/kenya-ifp/fusion-api/internal/rules"
)

const relayTimeout = 5 * time.Second

// Relay forwards published events to another process.
type Relay interface {
	Relay(ctx context.Context, evt Event) error
}

// Broadcaster turns domain records into feed events. Delivery is fire and
// forget: Publish returns as soon as the event is in the log.
type Broadcaster struct {
	topic *Topic
	relay Relay
}

// NewBroadcaster publishes to topic and, when relay is non-nil, mirrors
// every event to it in the background.
func NewBroadcaster(topic *Topic, relay Relay) *Broadcaster {
	return &Broadcaster{topic: topic, relay: relay}
}

// Topic returns the underlying topic for subscribers.
func (b *Broadcaster) Topic() *Topic {
	return b.topic
}

// BroadcastAlert announces a newly created alert to every subscriber.
func (b *Broadcaster) BroadcastAlert(alert models.Alert) {
	b.publish(Event{
		Type:                EventThreatAlert,
		Data:                map[string]any{"alert": alert},
		ClassificationLevel: models.Unclassified,
		Priority:            alert.ThreatLevel,
		AgenciesAuthorized:  alert.AgenciesNotified,
	})
}

// BroadcastAlertUpdate announces a lifecycle change made by actor's agency.
func (b *Broadcaster) BroadcastAlertUpdate(alert models.Alert, updateType string, actorAgency models.Agency) {
	b.publish(Event{
		Type: EventThreatAlert,
		Data: map[string]any{
			"alert":                alert,
			"update_type":          updateType,
			"acknowledging_agency": actorAgency,
		},
		ClassificationLevel: models.Unclassified,
		Priority:            alert.ThreatLevel,
		SourceAgency:        string(actorAgency),
		AgenciesAuthorized:  alert.AgenciesNotified,
	})
}

// BroadcastIntelligence announces a new report. Only metadata is sent; the
// event carries the report's classification so subscribers without the
// clearance never see it.
func (b *Broadcaster) BroadcastIntelligence(report models.Report, agencies []string) {
	b.publish(Event{
		Type: EventNewIntelligence,
		Data: map[string]any{
			"intelligence": map[string]any{
				"id":              report.ID,
				"agency":          report.Agency,
				"classification":  report.Classification,
				"data_type":       report.DataType,
				"threat_category": report.Category,
				"threat_level":    report.ThreatLevel,
				"title":           report.Title,
				"county":          report.County(),
				"created_at":      report.CreatedAt,
			},
		},
		ClassificationLevel: report.Classification,
		Priority:            report.ThreatLevel,
		SourceAgency:        string(report.Agency),
		AgenciesAuthorized:  agencies,
	})
}

// BroadcastPrediction announces a generated prediction. The event is at
// least CONFIDENTIAL and never below the prediction's own classification.
func (b *Broadcaster) BroadcastPrediction(prediction models.Prediction, level models.ThreatLevel, agencies []string) {
	classification := models.Confidential
	if rules.ClearanceRank(prediction.Classification) > rules.ClearanceRank(classification) {
		classification = prediction.Classification
	}
	b.publish(Event{
		Type:                EventPredictionUpdate,
		Data:                map[string]any{"prediction": prediction},
		ClassificationLevel: classification,
		Priority:            level,
		AgenciesAuthorized:  agencies,
	})
}

func (b *Broadcaster) publish(evt Event) {
	if evt.AgenciesAuthorized == nil {
		evt.AgenciesAuthorized = []string{}
	}
	published := b.topic.Publish(evt)
	logrus.Debugf("Feed event %d (%s) published to %d subscribers", published.Seq, published.Type, b.topic.Subscribers())

	if b.relay == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), relayTimeout)
		defer cancel()
		if err := b.relay.Relay(ctx, published); err != nil {
			logrus.Errorf("Failed to relay feed event %d: %v", published.Seq, err)
		}
	}()
}
