package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikan-dev/splice/internal/domain"
	"github.com/mikan-dev/splice/internal/testutil"
	"github.com/mikan-dev/splice/internal/usecase/shared"
)

func newCompact(tasks *testutil.MockTaskRepository, gen *testutil.MockTextGenerator, flight *shared.Flight) *CompactConversation {
	return NewCompactConversation(tasks, gen, &testutil.MockEventPublisher{}, flight, domain.NewDefaultConfig(), testClock(), testutil.NopLogger{}, testRepoRoot)
}

func TestCompactConversation_ReplacesWithSummary(t *testing.T) {
	tasks := testutil.NewMockTaskRepository()
	tasks.Tasks["t1"] = &domain.Task{
		ID: "t1", RepoRoot: testRepoRoot, Status: domain.StatusReadyForReview,
		Messages: []domain.ContextMessage{
			userMessage("add retry logic", 0),
			assistantMessage("added with backoff", 1),
			userMessage("cap it at five attempts", 2),
			assistantMessage("capped", 3),
		},
	}
	gen := &testutil.MockTextGenerator{Response: "Retry logic added, capped at five attempts."}
	uc := newCompact(tasks, gen, shared.NewFlight())

	out, err := uc.Execute(context.Background(), CompactConversationInput{TaskID: "t1"})
	require.NoError(t, err)

	assert.Equal(t, 4, out.Replaced)
	assert.Equal(t, "Retry logic added, capped at five attempts.", out.Summary)

	msgs := tasks.Tasks["t1"].Messages
	require.Len(t, msgs, 1)
	assert.Equal(t, domain.RoleAssistant, msgs[0].Role)
	assert.Equal(t, out.Summary, msgs[0].PlainText())
	assert.Equal(t, 0, msgs[0].Seq)

	// The summary is produced with the reduced profile.
	require.Len(t, gen.Profiles, 1)
	assert.Equal(t, "reduced", gen.Profiles[0])
	assert.Contains(t, gen.Prompts[0], "add retry logic")
	assert.Contains(t, gen.Prompts[0], "capped")
}

func TestCompactConversation_FailureKeepsConversation(t *testing.T) {
	tasks := testutil.NewMockTaskRepository()
	original := []domain.ContextMessage{
		userMessage("do the thing", 0),
		assistantMessage("done", 1),
	}
	tasks.Tasks["t1"] = &domain.Task{
		ID: "t1", RepoRoot: testRepoRoot, Status: domain.StatusReadyForReview,
		Messages: original,
	}
	gen := &testutil.MockTextGenerator{GenErr: errors.New("agent unavailable")}
	flight := shared.NewFlight()
	uc := newCompact(tasks, gen, flight)

	_, err := uc.Execute(context.Background(), CompactConversationInput{TaskID: "t1"})
	require.Error(t, err)

	assert.Equal(t, original, tasks.Tasks["t1"].Messages)
	assert.False(t, flight.InFlight("t1"))
}

func TestCompactConversation_EmptyConversationIsNoop(t *testing.T) {
	tasks := testutil.NewMockTaskRepository()
	tasks.Tasks["t1"] = &domain.Task{ID: "t1", RepoRoot: testRepoRoot, Status: domain.StatusTodo}
	gen := &testutil.MockTextGenerator{}
	uc := newCompact(tasks, gen, shared.NewFlight())

	out, err := uc.Execute(context.Background(), CompactConversationInput{TaskID: "t1"})
	require.NoError(t, err)
	assert.Zero(t, out.Replaced)
	assert.Empty(t, gen.Prompts)
}

func TestCompactConversation_TaskNotFound(t *testing.T) {
	uc := newCompact(testutil.NewMockTaskRepository(), &testutil.MockTextGenerator{}, shared.NewFlight())
	_, err := uc.Execute(context.Background(), CompactConversationInput{TaskID: "missing"})
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
}
