package storage

import (
	"fmt"
	"time"
)

// AlertBlobName is the archive path of an exported alert.
func AlertBlobName(id string, createdAt time.Time) string {
	return fmt.Sprintf("alerts/%s/%s.json", createdAt.UTC().Format("2006/01/02"), id)
}

// DigestBlobName is the archive path of a generated digest.
func DigestBlobName(period string, generatedAt time.Time) string {
	return fmt.Sprintf("digests/%s-%s.json", generatedAt.UTC().Format("2006-01-02T150405"), period)
}
