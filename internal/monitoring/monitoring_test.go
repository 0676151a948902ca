package monitoring

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersAccumulate(t *testing.T) {
	t.Parallel()
	s := NewService(Config{})

	s.DetectionRecorded("low")
	s.DetectionRecorded("low")
	s.DetectionRecorded("medium")
	s.FalseDetectionReported()
	s.HiveReset()
	s.SweepCompleted(time.Second, 3, 1)
	s.SweepSkipped()
	s.RecordEvent("image.deleted", map[string]string{"hiveId": "hv1"})
	s.NotificationResult("risk_alert", "sent")

	assert.Equal(t, 2.0, testutil.ToFloat64(s.detections.WithLabelValues("low")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.detections.WithLabelValues("medium")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.falseDetections))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.resets))
	assert.Equal(t, 3.0, testutil.ToFloat64(s.deactivations))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.sweepFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.sweepsSkipped))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.events.WithLabelValues("image.deleted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.notifications.WithLabelValues("risk_alert", "sent")))
}

func TestServicesDoNotShareRegistries(t *testing.T) {
	t.Parallel()

	a := NewService(Config{})
	b := NewService(Config{})
	a.HiveReset()

	assert.Equal(t, 1.0, testutil.ToFloat64(a.resets))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.resets))
}

func TestHandlerExposesMetrics(t *testing.T) {
	t.Parallel()
	s := NewService(Config{})
	s.ObserveHTTP(http.MethodPost, "/v1/saveImage", http.StatusOK, 20*time.Millisecond)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `hivehub_http_requests_total{method="POST",route="/v1/saveImage",status="200"} 1`)
}

func TestMetricsPathDefault(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "/metrics", NewService(Config{}).MetricsPath())
	assert.Equal(t, "/internal/metrics", NewService(Config{MetricsPath: "/internal/metrics"}).MetricsPath())
}
