package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskdeck/internal/api"
	"github.com/BuzzLyutic/taskdeck/internal/devserver"
	"github.com/BuzzLyutic/taskdeck/internal/model"
)

const (
	cliUser  = "cli-user"
	cliToken = "cli-token"
)

func startServer(t *testing.T) (string, *devserver.MemoryStore) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("TASKDECK_USER_ID", "")
	t.Setenv("TASKDECK_TOKEN", "")
	t.Setenv("TASKDECK_API_URL", "")

	logger := zap.NewNop()
	store := devserver.NewMemoryStore()
	h := devserver.NewTaskHandler(store, logger, map[string]string{cliToken: cliUser})
	server := httptest.NewServer(devserver.NewRouter(h, logger))
	t.Cleanup(server.Close)
	return server.URL, store
}

func run(t *testing.T, url string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--api-url", url, "--token", cliToken, "--user", cliUser}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCLI_Workflow(t *testing.T) {
	url, store := startServer(t)

	out, err := run(t, url, "add", "Buy milk", "-d", "2 litres")
	require.NoError(t, err)
	assert.Contains(t, out, "Task created successfully!")
	assert.Contains(t, out, "#1 [ ] Buy milk")
	assert.Contains(t, out, "2 litres")

	_, err = run(t, url, "add", "Call mom")
	require.NoError(t, err)

	out, err = run(t, url, "done", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "#1 [x] Buy milk")
	assert.NotContains(t, out, "successfully", "toggling prints no success message")

	out, err = run(t, url, "list", "--status", "pending")
	require.NoError(t, err)
	assert.Contains(t, out, "Call mom")
	assert.NotContains(t, out, "Buy milk")

	out, err = run(t, url, "counts")
	require.NoError(t, err)
	assert.Equal(t, "all: 2\npending: 1\ncompleted: 1\n", out)

	out, err = run(t, url, "edit", "2", "--title", "Call dad")
	require.NoError(t, err)
	assert.Contains(t, out, "Call dad")

	out, err = run(t, url, "show", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "#2 [ ] Call dad")

	out, err = run(t, url, "rm", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Task deleted successfully!")

	tasks, err := store.List(context.Background(), cliUser, model.FilterAll, model.SortCreated)
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
}

func TestCLI_Errors(t *testing.T) {
	url, _ := startServer(t)

	t.Run("missing task", func(t *testing.T) {
		_, err := run(t, url, "rm", "99")
		assert.ErrorIs(t, err, api.ErrNotFound)
	})

	t.Run("invalid id", func(t *testing.T) {
		_, err := run(t, url, "show", "abc")
		assert.ErrorContains(t, err, `invalid task id "abc"`)
	})

	t.Run("empty title", func(t *testing.T) {
		_, err := run(t, url, "add", "   ")
		assert.Error(t, err)
	})

	t.Run("bad sort", func(t *testing.T) {
		_, err := run(t, url, "list", "--sort", "priority")
		assert.Error(t, err)
	})

	t.Run("no user", func(t *testing.T) {
		root := newRootCmd()
		root.SetOut(&bytes.Buffer{})
		root.SetArgs([]string{"--api-url", url, "list"})
		err := root.Execute()
		assert.ErrorContains(t, err, "no user id")
	})
}

func TestCLI_Health(t *testing.T) {
	url, _ := startServer(t)

	out, err := run(t, url, "health")
	require.NoError(t, err)
	assert.Contains(t, out, "status: healthy")
}
