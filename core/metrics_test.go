package core

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"universe-gateway/models"
)

func TestMetricsRecord(t *testing.T) {
	m := NewMetrics()
	m.Record(&models.GenerationLog{Kind: "feed", Outcome: "success", Duration: 1200, Records: 6, Dropped: 2})
	m.Record(&models.GenerationLog{Kind: "feed", Outcome: "transport_failure", Duration: 10000, Fallback: true})
	m.Record(&models.GenerationLog{Kind: "cocreate", Outcome: "unconfigured", Fallback: true})

	assert.InDelta(t, 1, testutil.ToFloat64(m.Generations.WithLabelValues("feed", "success")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Fallbacks.WithLabelValues("feed")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Fallbacks.WithLabelValues("cocreate")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.DroppedTotal), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(m.Latency))
}

func TestMultiRecorder(t *testing.T) {
	a, b := &memoryRecorder{}, &memoryRecorder{}
	rec := MultiRecorder{a, nil, b}

	entry := &models.GenerationLog{Kind: "feed", Outcome: "success"}
	rec.Record(entry)

	assert.Same(t, entry, a.Last())
	assert.Same(t, entry, b.Last())
}
