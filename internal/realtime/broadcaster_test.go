package realtime

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kenya-ifp/fusion-api/internal/models"
)

type recordingRelay struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (r *recordingRelay) Relay(_ context.Context, evt Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return r.err
}

func (r *recordingRelay) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func TestBroadcaster_Alerts(t *testing.T) {
	relay := &recordingRelay{}
	b := NewBroadcaster(NewTopic(16), relay)
	sub, err := b.Topic().Subscribe(models.Unclassified, models.AgencyKDF)
	require.NoError(t, err)

	alert := models.Alert{ID: "a1", ThreatLevel: models.ThreatCritical, AgenciesNotified: []string{"NIS", "KDF"}}
	b.BroadcastAlert(alert)
	b.BroadcastAlertUpdate(alert, "acknowledged", models.AgencyKDF)

	created := nextOrFail(t, sub)
	assert.Equal(t, EventThreatAlert, created.Type)
	assert.Equal(t, models.ThreatCritical, created.Priority)
	assert.Equal(t, []string{"NIS", "KDF"}, created.AgenciesAuthorized)
	assert.Equal(t, alert, created.Data["alert"])

	update := nextOrFail(t, sub)
	assert.Equal(t, "acknowledged", update.Data["update_type"])
	assert.Equal(t, models.AgencyKDF, update.Data["acknowledging_agency"])
	assert.Equal(t, "KDF", update.SourceAgency)

	assert.Eventually(t, func() bool { return relay.count() == 2 }, time.Second, 10*time.Millisecond)
}

func TestBroadcaster_PredictionKeepsSourceClassification(t *testing.T) {
	b := NewBroadcaster(NewTopic(16), nil)
	confidential, err := b.Topic().Subscribe(models.Confidential, models.AgencyDCI)
	require.NoError(t, err)
	secret, err := b.Topic().Subscribe(models.Secret, models.AgencyNIS)
	require.NoError(t, err)

	b.BroadcastPrediction(models.Prediction{ID: "p1", Classification: models.Secret}, models.ThreatHigh, []string{"NIS"})
	b.BroadcastPrediction(models.Prediction{ID: "p2", Classification: models.Restricted}, models.ThreatHigh, []string{"NIS"})

	evt := nextOrFail(t, secret)
	assert.Equal(t, models.Secret, evt.ClassificationLevel)

	evt = nextOrFail(t, confidential)
	assert.Equal(t, models.Confidential, evt.ClassificationLevel)
	assert.Equal(t, "p2", evt.Data["prediction"].(models.Prediction).ID)
}

func TestBroadcaster_IntelligenceIsClearanceScoped(t *testing.T) {
	b := NewBroadcaster(NewTopic(16), nil)
	low, err := b.Topic().Subscribe(models.Restricted, models.AgencyKRA)
	require.NoError(t, err)
	high, err := b.Topic().Subscribe(models.Secret, models.AgencyNIS)
	require.NoError(t, err)

	b.BroadcastIntelligence(models.Report{
		ID:             "r1",
		Agency:         models.AgencyNIS,
		Classification: models.Secret,
		Title:          "Cell movement",
		Content:        "full body never leaves the service",
		ThreatLevel:    models.ThreatHigh,
	}, []string{"NIS"})
	b.BroadcastAlert(models.Alert{ID: "a1", ThreatLevel: models.ThreatLow})

	evt := nextOrFail(t, high)
	assert.Equal(t, EventNewIntelligence, evt.Type)
	meta := evt.Data["intelligence"].(map[string]any)
	assert.Equal(t, "r1", meta["id"])
	assert.NotContains(t, meta, "content")

	evt = nextOrFail(t, low)
	assert.Equal(t, EventThreatAlert, evt.Type)
	assert.Equal(t, []string{}, evt.AgenciesAuthorized)
}

func TestBroadcaster_RelayFailureDoesNotBlock(t *testing.T) {
	relay := &recordingRelay{err: errors.New("redis down")}
	b := NewBroadcaster(NewTopic(4), relay)
	sub, err := b.Topic().Subscribe(models.Secret, models.AgencyNIS)
	require.NoError(t, err)

	b.BroadcastAlert(models.Alert{ID: "a1"})
	assert.Equal(t, uint64(1), nextOrFail(t, sub).Seq)
	assert.Eventually(t, func() bool { return relay.count() == 1 }, time.Second, 10*time.Millisecond)
}
