package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BatmanBruc/bat-bot-search/internal/metrics"
	"github.com/BatmanBruc/bat-bot-search/store"
	"github.com/BatmanBruc/bat-bot-search/types"
)

type flakySink struct {
	mu       sync.Mutex
	failures int
	calls    int
	records  []types.UsageRecord
}

func (s *flakySink) AppendUsage(_ context.Context, rec types.UsageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failures > 0 {
		s.failures--
		return errors.New("db unavailable")
	}
	s.records = append(s.records, rec)
	return nil
}

func TestWriterDrainsOnStop(t *testing.T) {
	mem := store.NewMemoryStore()
	w := NewWriter(mem, Config{Workers: 3, QueueSize: 8, Backoff: time.Millisecond}, nil, nil)
	w.Start()

	ctx := context.Background()
	for i := 0; i < 50; i++ {
		require.NoError(t, w.AppendUsage(ctx, types.UsageRecord{UserID: int64(i), ChatID: 1, Tier: types.TierFree}))
	}
	w.Stop()

	assert.Len(t, mem.UsageRecords(), 50)
}

func TestWriterWritesSynchronouslyWhenStopped(t *testing.T) {
	mem := store.NewMemoryStore()
	w := NewWriter(mem, Config{}, nil, nil)

	require.NoError(t, w.AppendUsage(context.Background(), types.UsageRecord{UserID: 1, SearchTerm: "x"}))
	recs := mem.UsageRecords()
	require.Len(t, recs, 1)
	assert.Equal(t, "x", recs[0].SearchTerm)

	w.Start()
	w.Stop()
	w.Stop()
}

func TestWriterRetriesTransientFailures(t *testing.T) {
	sink := &flakySink{failures: 2}
	w := NewWriter(sink, Config{MaxAttempts: 3, Backoff: time.Millisecond}, nil, nil)

	require.NoError(t, w.AppendUsage(context.Background(), types.UsageRecord{UserID: 7}))
	assert.Equal(t, 3, sink.calls)
	assert.Len(t, sink.records, 1)
}

func TestWriterCountsExhaustedRecords(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewAccessMetrics(reg)
	sink := &flakySink{failures: 10}
	w := NewWriter(sink, Config{MaxAttempts: 2, Backoff: time.Millisecond}, nil, m)

	err := w.AppendUsage(context.Background(), types.UsageRecord{UserID: 7})
	require.Error(t, err)
	assert.Equal(t, 2, sink.calls)

	families, err := reg.Gather()
	require.NoError(t, err)
	var got float64
	for _, f := range families {
		if f.GetName() == "ledger_write_failures_total" {
			got = f.GetMetric()[0].GetCounter().GetValue()
		}
	}
	assert.Equal(t, float64(1), got)
}
