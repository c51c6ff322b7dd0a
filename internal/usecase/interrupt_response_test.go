package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikan-dev/splice/internal/domain"
	"github.com/mikan-dev/splice/internal/testutil"
	"github.com/mikan-dev/splice/internal/usecase/shared"
)

func newInterruptResponse(tasks *testutil.MockTaskRepository, pair *testutil.MockPairExecutor, hooks *testutil.MockHooks, interrupts *shared.Interrupts) *InterruptResponse {
	return NewInterruptResponse(tasks, pair, hooks, &testutil.MockEventPublisher{}, interrupts, nil, testClock(), testutil.NopLogger{}, testRepoRoot)
}

// streamCancelRecorder records which tasks had their stream state dropped.
type streamCancelRecorder struct {
	cancelled []string
}

func (r *streamCancelRecorder) CancelTask(taskID string) {
	r.cancelled = append(r.cancelled, taskID)
}

func TestInterruptResponse_ScopedCancelsOneOperation(t *testing.T) {
	interrupts := shared.NewInterrupts()
	opCtx, done := interrupts.Register(context.Background(), "t1", "op-1")
	defer done()
	uc := newInterruptResponse(testutil.NewMockTaskRepository(), &testutil.MockPairExecutor{}, &testutil.MockHooks{}, interrupts)

	out, err := uc.Execute(context.Background(), InterruptResponseInput{TaskID: "t1", InterruptID: "op-1"})
	require.NoError(t, err)

	assert.True(t, out.Scoped)
	assert.Equal(t, 1, out.Cancelled)
	assert.ErrorIs(t, opCtx.Err(), context.Canceled)
}

func TestInterruptResponse_ScopedUnknownIDIsNoop(t *testing.T) {
	tasks := testutil.NewMockTaskRepository()
	tasks.Tasks["t1"] = &domain.Task{ID: "t1", RepoRoot: testRepoRoot, Status: domain.StatusInProgress}
	uc := newInterruptResponse(tasks, &testutil.MockPairExecutor{}, &testutil.MockHooks{}, shared.NewInterrupts())

	out, err := uc.Execute(context.Background(), InterruptResponseInput{TaskID: "t1", InterruptID: "gone"})
	require.NoError(t, err)

	assert.True(t, out.Scoped)
	assert.Equal(t, 0, out.Cancelled)
	// A scoped interrupt never touches the task itself.
	assert.Equal(t, domain.StatusInProgress, tasks.Tasks["t1"].Status)
}

func TestInterruptResponse_TaskWideCancelsEverything(t *testing.T) {
	tasks := testutil.NewMockTaskRepository()
	tasks.Tasks["t1"] = &domain.Task{ID: "t1", RepoRoot: testRepoRoot, Status: domain.StatusInProgress}
	interrupts := shared.NewInterrupts()
	ctxA, doneA := interrupts.Register(context.Background(), "t1", "op-a")
	defer doneA()
	ctxB, doneB := interrupts.Register(context.Background(), "t1", "op-b")
	defer doneB()
	pair := &testutil.MockPairExecutor{}
	hooks := &testutil.MockHooks{}
	uc := newInterruptResponse(tasks, pair, hooks, interrupts)

	out, err := uc.Execute(context.Background(), InterruptResponseInput{TaskID: "t1"})
	require.NoError(t, err)

	assert.Equal(t, 2, out.Cancelled)
	assert.ErrorIs(t, ctxA.Err(), context.Canceled)
	assert.ErrorIs(t, ctxB.Err(), context.Canceled)
	assert.Equal(t, []string{"t1"}, pair.Interrupted)

	task := tasks.Tasks["t1"]
	assert.Equal(t, domain.StatusInterrupted, task.Status)
	assert.False(t, task.Interrupted.IsZero())

	// Any dangling question gets the negative default answer.
	require.Len(t, hooks.Events, 1)
	assert.Equal(t, domain.HookQuestionAnswered, hooks.Events[0].Point)
	assert.Equal(t, "no", hooks.Events[0].Text)
}

func TestInterruptResponse_TaskWideDropsStreamBuffers(t *testing.T) {
	tasks := testutil.NewMockTaskRepository()
	tasks.Tasks["t1"] = &domain.Task{ID: "t1", RepoRoot: testRepoRoot, Status: domain.StatusInProgress}
	streams := &streamCancelRecorder{}
	uc := NewInterruptResponse(tasks, &testutil.MockPairExecutor{}, &testutil.MockHooks{}, &testutil.MockEventPublisher{},
		shared.NewInterrupts(), []StreamCanceler{streams}, testClock(), testutil.NopLogger{}, testRepoRoot)

	_, err := uc.Execute(context.Background(), InterruptResponseInput{TaskID: "t1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"t1"}, streams.cancelled)
}

func TestInterruptResponse_ScopedLeavesStreamBuffers(t *testing.T) {
	interrupts := shared.NewInterrupts()
	_, done := interrupts.Register(context.Background(), "t1", "op-1")
	defer done()
	streams := &streamCancelRecorder{}
	uc := NewInterruptResponse(testutil.NewMockTaskRepository(), &testutil.MockPairExecutor{}, &testutil.MockHooks{},
		&testutil.MockEventPublisher{}, interrupts, []StreamCanceler{streams}, testClock(), testutil.NopLogger{}, testRepoRoot)

	_, err := uc.Execute(context.Background(), InterruptResponseInput{TaskID: "t1", InterruptID: "op-1"})
	require.NoError(t, err)
	assert.Empty(t, streams.cancelled)
}

func TestInterruptResponse_IdleTaskKeepsStatus(t *testing.T) {
	tasks := testutil.NewMockTaskRepository()
	tasks.Tasks["t1"] = &domain.Task{ID: "t1", RepoRoot: testRepoRoot, Status: domain.StatusReadyForReview}
	uc := newInterruptResponse(tasks, &testutil.MockPairExecutor{}, &testutil.MockHooks{}, shared.NewInterrupts())

	out, err := uc.Execute(context.Background(), InterruptResponseInput{TaskID: "t1"})
	require.NoError(t, err)
	assert.Equal(t, 0, out.Cancelled)
	assert.Equal(t, domain.StatusReadyForReview, tasks.Tasks["t1"].Status)
}

func TestInterruptResponse_TaskNotFound(t *testing.T) {
	uc := newInterruptResponse(testutil.NewMockTaskRepository(), &testutil.MockPairExecutor{}, &testutil.MockHooks{}, shared.NewInterrupts())
	_, err := uc.Execute(context.Background(), InterruptResponseInput{TaskID: "missing"})
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
}
