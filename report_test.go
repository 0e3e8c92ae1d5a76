package multisend

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReport(t *testing.T) {
	r := newReport()
	assert.False(t, r.AnySucceeded())
	assert.Empty(t, r.Failed())

	msgs := testMessages(6)
	r.recordFailure(Batch{Number: 2, Messages: []Message{msgs[5], msgs[3]}})
	r.recordSuccess(3, "ABC")
	r.recordFailure(Batch{Number: 4, Messages: []Message{msgs[0]}})

	assert.True(t, r.AnySucceeded())
	assert.Equal(t, 1, r.Succeeded())
	assert.Equal(t, []uint64{1, 4, 6}, failedIDs(r))
	assert.True(t, r.IsFailed(4))
	assert.False(t, r.IsFailed(2))
	assert.Equal(t, []Outcome{
		{BatchNumber: 2},
		{BatchNumber: 3, Success: true, TxHash: "ABC"},
		{BatchNumber: 4},
	}, r.Outcomes)

	r.Remaining = []Batch{{Number: 5, Messages: []Message{msgs[2], msgs[1]}}}
	ids := make([]uint64, 0)
	for _, m := range r.Undelivered() {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []uint64{1, 2, 3, 4, 6}, ids)
}

func TestZeroReport(t *testing.T) {
	var r Report
	assert.Nil(t, r.Failed())
	assert.False(t, r.IsFailed(1))
	assert.False(t, r.AnySucceeded())
}
