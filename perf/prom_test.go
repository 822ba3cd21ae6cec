package perf

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordTick(t *testing.T) {
	r := NewRegistry()
	r.RecordTick(5, 4, 2, 1, time.Millisecond)
	r.RecordTick(6, 5, 1, 0, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.Ticks))
	assert.Equal(t, 6.0, testutil.ToFloat64(r.Nodes))
	assert.Equal(t, 5.0, testutil.ToFloat64(r.Links))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Packets))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.Phase))
}

func TestRecordOutcomes(t *testing.T) {
	r := NewRegistry()
	r.RecordPacket("arrived")
	r.RecordPacket("arrived")
	r.RecordPacket("aborted")
	r.RecordRepair("island")

	assert.Equal(t, 2.0, testutil.ToFloat64(r.PacketsTotal.WithLabelValues("arrived")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.PacketsTotal.WithLabelValues("aborted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.RepairsTotal.WithLabelValues("island")))

	families, err := r.Gatherer().Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "weft_packets_total")
	assert.Contains(t, names, "weft_repair_links_total")
}

func TestDefaultIsShared(t *testing.T) {
	assert.Same(t, Default(), Default())
}
