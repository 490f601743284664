// Package notifications delivers alerts and situation digests to Microsoft
// Teams, per-agency webhooks and email.
package notifications

import (
	"context"

	"github.com/kenya-ifp/fusion-api/internal/models"
)

// Notifier defines the contract for notification services
type Notifier interface {
	SendDigest(ctx context.Context, digest *models.Digest) error
	SendAlert(ctx context.Context, alert models.Alert) error
}
