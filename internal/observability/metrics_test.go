package observability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/members/:id", "GET", 200, 10*time.Millisecond)
	m.RecordRequest("/members/:id", "GET", 200, 30*time.Millisecond)
	m.RecordRequest("/auth/login", "POST", 401, time.Millisecond)
	m.RecordError("/auth/login", "POST", "UNAUTHENTICATED")

	snap := m.Snapshot()
	require.Len(t, snap.Requests, 2)
	assert.Equal(t, "/auth/login|POST|401", snap.Requests[0].Key)
	assert.Equal(t, int64(2), snap.Requests[1].Count)
	assert.InDelta(t, 20.0, snap.Requests[1].AvgLatencyMS, 0.001)
	require.Len(t, snap.Errors, 1)
	assert.Equal(t, "/auth/login|POST|UNAUTHENTICATED", snap.Errors[0].Key)
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/", "GET", 200, time.Millisecond)
	m.RecordError("/", "GET", "X")
	assert.Empty(t, m.Snapshot().Requests)
}
