// Package storage holds the in-process record repositories and the blob
// archive used for exported alerts and digests.
package storage

import (
	"context"
	"errors"

	"github.com/kenya-ifp/fusion-api/internal/models"
)

var (
	ErrNotFound    = errors.New("record not found")
	ErrDuplicateID = errors.New("record id already exists")
)

// ReportRepository stores submitted intelligence reports.
type ReportRepository interface {
	Create(ctx context.Context, report models.Report) error
	Get(ctx context.Context, id string) (models.Report, error)
	Find(ctx context.Context, match func(models.Report) bool) ([]models.Report, error)
	Count(ctx context.Context) (int, error)
}

// AlertRepository stores threat alerts. Alerts are never deleted; Update is
// the only mutation.
type AlertRepository interface {
	Create(ctx context.Context, alert models.Alert) error
	Get(ctx context.Context, id string) (models.Alert, error)
	Find(ctx context.Context, match func(models.Alert) bool) ([]models.Alert, error)
	Update(ctx context.Context, id string, mutate func(*models.Alert) error) (models.Alert, error)
	Count(ctx context.Context) (int, error)
}

// PredictionRepository stores generated threat predictions.
type PredictionRepository interface {
	Create(ctx context.Context, prediction models.Prediction) error
	Find(ctx context.Context, match func(models.Prediction) bool) ([]models.Prediction, error)
	Count(ctx context.Context) (int, error)
}

// Archive is write-mostly blob storage for exported records.
type Archive interface {
	Store(ctx context.Context, name string, data []byte) error
	Retrieve(ctx context.Context, name string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, name string) error
}
