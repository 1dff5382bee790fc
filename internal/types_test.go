package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunStatsReasonsSorted(t *testing.T) {
	stats := RunStats{Rejected: map[RejectReason]int{
		RejectShortTerm: 2,
		RejectDuplicate: 1,
		RejectNoData:    0,
		RejectException: 3,
		RejectLowRate:   4,
	}}
	for i := 0; i < 5; i++ {
		assert.Equal(t, []RejectReason{RejectDuplicate, RejectException, RejectLowRate, RejectShortTerm}, stats.Reasons())
	}
	assert.Equal(t, 10, stats.TotalRejected())
	assert.Empty(t, RunStats{}.Reasons())
}
