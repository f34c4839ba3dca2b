package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/projects", "GET", 200, 10*time.Millisecond)
	m.RecordRequest("/projects", "GET", 200, 30*time.Millisecond)
	m.RecordError("/projects", "POST", "VALIDATION_FAILED")
	m.RecordNotificationFailure()

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.Requests["/projects|GET|200"])
	assert.Equal(t, int64(20), snap.AvgLatencyMillis["/projects|GET|200"])
	assert.Equal(t, int64(1), snap.Errors["/projects|POST|VALIDATION_FAILED"])
	assert.Equal(t, int64(1), snap.NotificationFailures)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/", "GET", 200, time.Millisecond)
	m.RecordError("/", "GET", "X")
	m.RecordNotificationFailure()
	assert.Empty(t, m.Snapshot().Requests)
}
