package events

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikan-dev/splice/internal/domain"
)

func readEnvelopes(t *testing.T, dir string) []map[string]any {
	t.Helper()
	f, err := os.Open(filepath.Join(dir, eventsFileName))
	require.NoError(t, err)
	defer f.Close()

	var out []map[string]any
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var env map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &env))
		out = append(out, env)
	}
	require.NoError(t, sc.Err())
	return out
}

func TestFilePublisher_AppendsEnvelopes(t *testing.T) {
	dir := t.TempDir()
	p := NewFilePublisher(dir, nil)
	defer p.Close()

	p.SendLog(domain.LogEvent{TaskID: "t1", Level: "info", Message: "hello"})
	p.SendNotification(domain.NotificationEvent{TaskID: "t1", Title: "done"})

	envs := readEnvelopes(t, dir)
	require.Len(t, envs, 2)

	assert.Equal(t, string(domain.EventLog), envs[0]["kind"])
	payload := envs[0]["payload"].(map[string]any)
	assert.Equal(t, "hello", payload["message"])

	assert.Equal(t, string(domain.EventNotification), envs[1]["kind"])
	assert.NotEmpty(t, envs[1]["time"])
}

func TestFilePublisher_CreatesDirectoryLazily(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "splice")
	p := NewFilePublisher(dir, nil)
	defer p.Close()

	_, err := os.Stat(dir)
	require.True(t, os.IsNotExist(err))

	p.SendResponseChunk(domain.ResponseChunkEvent{TaskID: "t1", MessageID: "m1", Text: "x"})

	envs := readEnvelopes(t, dir)
	require.Len(t, envs, 1)
	assert.Equal(t, string(domain.EventResponseChunk), envs[0]["kind"])
}

func TestFilePublisher_SurvivesAcrossClose(t *testing.T) {
	dir := t.TempDir()

	p := NewFilePublisher(dir, nil)
	p.SendTaskUpdated(domain.TaskUpdatedEvent{TaskID: "t1"})
	require.NoError(t, p.Close())

	p2 := NewFilePublisher(dir, nil)
	defer p2.Close()
	p2.SendTaskUpdated(domain.TaskUpdatedEvent{TaskID: "t1"})

	envs := readEnvelopes(t, dir)
	assert.Len(t, envs, 2)
}

func TestFilePublisher_CloseIsIdempotent(t *testing.T) {
	p := NewFilePublisher(t.TempDir(), nil)
	p.SendLog(domain.LogEvent{Message: "x"})
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
}
