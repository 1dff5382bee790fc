package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"wattwise/internal"
)

func TestObserveRun(t *testing.T) {
	r := NewRegistry()
	r.ObserveRun(internal.RunStats{
		Seen:     10,
		Accepted: 7,
		Rejected: map[internal.RejectReason]int{internal.RejectLowRate: 2, internal.RejectDuplicate: 1},
	}, "ok")
	r.ObserveRun(internal.RunStats{Seen: 3, Accepted: 1}, "ok")

	assert.Equal(t, 13.0, testutil.ToFloat64(r.RecordsSeen))
	assert.Equal(t, 8.0, testutil.ToFloat64(r.RecordsAccepted))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.RecordsRejected.WithLabelValues("low_rate")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.Runs.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.LastAccepted))
}

func TestNilRegistryIsNoop(t *testing.T) {
	var r *Registry
	r.ObserveRun(internal.RunStats{Seen: 1}, "ok")
	r.ObserveStep("engine", 0.1)
	r.ObserveFetchError()
}
