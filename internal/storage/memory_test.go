package storage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kenya-ifp/fusion-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollection_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewReportStore()

	require.NoError(t, store.Create(ctx, models.Report{ID: "r1", Title: "first"}))
	require.NoError(t, store.Create(ctx, models.Report{ID: "r2", Title: "second"}))

	got, err := store.Get(ctx, "r2")
	require.NoError(t, err)
	assert.Equal(t, "second", got.Title)

	err = store.Create(ctx, models.Report{ID: "r1"})
	assert.ErrorIs(t, err, ErrDuplicateID)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCollection_FindKeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	store := NewReportStore()
	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, store.Create(ctx, models.Report{ID: id, Category: "fraud"}))
	}
	require.NoError(t, store.Create(ctx, models.Report{ID: "d", Category: "terrorism"}))

	all, err := store.Find(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	fraud, err := store.Find(ctx, func(r models.Report) bool { return r.Category == "fraud" })
	require.NoError(t, err)
	ids := make([]string, 0, len(fraud))
	for _, r := range fraud {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"c", "a", "b"}, ids)
}

func TestCollection_Update(t *testing.T) {
	ctx := context.Background()
	store := NewAlertStore()
	require.NoError(t, store.Create(ctx, models.Alert{ID: "a1", Status: models.AlertSent}))

	updated, err := store.Update(ctx, "a1", func(a *models.Alert) error {
		a.Status = models.AlertAcknowledged
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, models.AlertAcknowledged, updated.Status)

	stored, err := store.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, models.AlertAcknowledged, stored.Status)

	t.Run("failed mutation leaves record unchanged", func(t *testing.T) {
		_, err := store.Update(ctx, "a1", func(a *models.Alert) error {
			a.Status = models.AlertResolved
			return errors.New("rejected")
		})
		require.Error(t, err)

		stored, err := store.Get(ctx, "a1")
		require.NoError(t, err)
		assert.Equal(t, models.AlertAcknowledged, stored.Status)
	})

	t.Run("unknown id", func(t *testing.T) {
		count, _ := store.Count(ctx)
		_, err := store.Update(ctx, "nope", func(a *models.Alert) error { return nil })
		assert.ErrorIs(t, err, ErrNotFound)
		after, _ := store.Count(ctx)
		assert.Equal(t, count, after)
	})
}

func TestCollection_ConcurrentCreate(t *testing.T) {
	ctx := context.Background()
	store := NewPredictionStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = store.Create(ctx, models.Prediction{ID: time.Duration(i).String()})
		}(i)
	}
	wg.Wait()

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 50, count)
}

func TestCollection_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := NewReportStore()
	assert.ErrorIs(t, store.Create(ctx, models.Report{ID: "x"}), context.Canceled)
	_, err := store.Find(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBlobNames(t *testing.T) {
	at := time.Date(2026, 3, 9, 14, 30, 5, 0, time.UTC)
	assert.Equal(t, "alerts/2026/03/09/abc.json", AlertBlobName("abc", at))
	assert.Equal(t, "digests/2026-03-09T143005-daily.json", DigestBlobName("daily", at))
}

func TestNewRedisClient_InvalidURL(t *testing.T) {
	_, err := NewRedisClient(context.Background(), "not-a-redis-url")
	assert.ErrorContains(t, err, "invalid REDIS_URL")
}
