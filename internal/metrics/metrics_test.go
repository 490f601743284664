package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()

	m.ReportSubmitted("NIS", "CRITICAL")
	m.ReportSubmitted("NIS", "CRITICAL")
	m.AlertCreated("HIGH")
	m.AccessChecked(true)
	m.AccessChecked(false)
	m.AccessChecked(false)
	m.FeedItemsIngested("osint.example.org", 3)
	m.DigestRun(nil)
	m.DigestRun(errors.New("smtp down"))
	m.SetSubscribers(4)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.reportsSubmitted.WithLabelValues("NIS", "CRITICAL")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.alertsCreated.WithLabelValues("HIGH")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.accessChecks.WithLabelValues("denied")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.feedItems.WithLabelValues("osint.example.org")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.digestRuns.WithLabelValues("failure")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.wsClients))
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveRequest(http.MethodGet, "/api/v1/alerts", http.StatusOK, 20*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `fusion_http_requests_total{method="GET",route="/api/v1/alerts",status="200"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
