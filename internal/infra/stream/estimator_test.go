package stream

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type estimateRecorder struct {
	mu      sync.Mutex
	taskIDs []string
	tokens  []int
}

func (r *estimateRecorder) record(taskID string, tokens int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.taskIDs = append(r.taskIDs, taskID)
	r.tokens = append(r.tokens, tokens)
}

func (r *estimateRecorder) snapshot() ([]string, []int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.taskIDs...), append([]int(nil), r.tokens...)
}

func TestCostEstimator_CoalescesBurstIntoOneReport(t *testing.T) {
	rec := &estimateRecorder{}
	est := NewCostEstimator(20*time.Millisecond, rec.record)

	est.Observe("t1", "aaaa")
	est.Observe("t1", "bbbb")
	est.Observe("t1", "cccc")

	require.Eventually(t, func() bool {
		ids, _ := rec.snapshot()
		return len(ids) == 1
	}, time.Second, 5*time.Millisecond)

	ids, tokens := rec.snapshot()
	assert.Equal(t, []string{"t1"}, ids)
	assert.Equal(t, []int{3}, tokens)

	// The reported burst is consumed; quiet time adds nothing.
	time.Sleep(50 * time.Millisecond)
	ids, _ = rec.snapshot()
	assert.Len(t, ids, 1)
}

func TestCostEstimator_TracksTasksIndependently(t *testing.T) {
	rec := &estimateRecorder{}
	est := NewCostEstimator(20*time.Millisecond, rec.record)

	est.Observe("t1", "12345678")
	est.Observe("t2", "1234")

	require.Eventually(t, func() bool {
		ids, _ := rec.snapshot()
		return len(ids) == 2
	}, time.Second, 5*time.Millisecond)

	ids, tokens := rec.snapshot()
	got := map[string]int{}
	for i, id := range ids {
		got[id] = tokens[i]
	}
	assert.Equal(t, map[string]int{"t1": 2, "t2": 1}, got)
}

func TestCostEstimator_CancelDropsPendingEstimate(t *testing.T) {
	rec := &estimateRecorder{}
	est := NewCostEstimator(20*time.Millisecond, rec.record)

	est.Observe("t1", "aaaa")
	est.CancelTask("t1")

	time.Sleep(60 * time.Millisecond)
	ids, _ := rec.snapshot()
	assert.Empty(t, ids)
}

func TestCostEstimator_EmptyFragmentIsIgnored(t *testing.T) {
	rec := &estimateRecorder{}
	est := NewCostEstimator(20*time.Millisecond, rec.record)

	est.Observe("t1", "")

	time.Sleep(60 * time.Millisecond)
	ids, _ := rec.snapshot()
	assert.Empty(t, ids)
}
