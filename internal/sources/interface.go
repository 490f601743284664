// Package sources pulls open-source intelligence items from external feeds.
package sources

import (
	"context"
	"time"

	"github.com/kenya-ifp/fusion-api/internal/models"
)

// Source interface defines the contract for all data sources
type Source interface {
	GetName() string
	FetchItems(ctx context.Context, since time.Duration) ([]models.FeedItem, error)
	IsEnabled() bool
}
