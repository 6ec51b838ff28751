package api_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskdeck/internal/api"
	"github.com/BuzzLyutic/taskdeck/internal/devserver"
	"github.com/BuzzLyutic/taskdeck/internal/model"
)

const (
	userID = "user-42"
	token  = "secret"
)

func setupServer(t *testing.T) (*api.Client, *devserver.MemoryStore) {
	t.Helper()
	store := devserver.NewMemoryStore()
	logger := zap.NewNop()
	h := devserver.NewTaskHandler(store, logger, map[string]string{token: userID})
	server := httptest.NewServer(devserver.NewRouter(h, logger))
	t.Cleanup(server.Close)

	return api.NewClient(server.URL, logger, api.WithToken(token)), store
}

func TestClient_FullWorkflow(t *testing.T) {
	client, _ := setupServer(t)
	ctx := context.Background()

	created, err := client.Create(ctx, userID, model.TaskCreate{Title: "Buy milk"})
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	assert.Equal(t, "Buy milk", created.Title)
	assert.False(t, created.Completed)

	fetched, err := client.Get(ctx, userID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, fetched.ID)

	title := "Buy oat milk"
	updated, err := client.Update(ctx, userID, created.ID, model.TaskUpdate{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)

	toggled, err := client.ToggleComplete(ctx, userID, created.ID)
	require.NoError(t, err)
	assert.True(t, toggled.Completed)

	completed, err := client.List(ctx, userID, model.FilterCompleted, model.SortCreated)
	require.NoError(t, err)
	assert.Len(t, completed, 1)

	pending, err := client.List(ctx, userID, model.FilterPending, model.SortCreated)
	require.NoError(t, err)
	assert.Empty(t, pending)
	assert.NotNil(t, pending)

	require.NoError(t, client.Delete(ctx, userID, created.ID))

	_, err = client.Get(ctx, userID, created.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, api.ErrNotFound)

	apiErr, ok := api.AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, api.CodeNotFound, apiErr.Code)
}

func TestClient_Errors(t *testing.T) {
	client, store := setupServer(t)
	ctx := context.Background()

	t.Run("validation", func(t *testing.T) {
		_, err := client.Create(ctx, userID, model.TaskCreate{Title: " "})
		assert.ErrorIs(t, err, api.ErrValidation)
	})

	t.Run("internal", func(t *testing.T) {
		store.SetError("List", errors.New("db gone"))
		defer store.SetError("List", nil)

		_, err := client.List(ctx, userID, model.FilterAll, model.SortCreated)
		assert.ErrorIs(t, err, api.ErrInternal)
		assert.Contains(t, err.Error(), "Internal server error")
	})

	t.Run("access denied", func(t *testing.T) {
		_, err := client.List(ctx, "another-user", model.FilterAll, model.SortCreated)
		assert.ErrorIs(t, err, api.ErrForbidden)
	})

	t.Run("not authenticated", func(t *testing.T) {
		client.SetToken("")
		defer client.SetToken(token)

		_, err := client.List(ctx, userID, model.FilterAll, model.SortCreated)
		assert.ErrorIs(t, err, api.ErrUnauthorized)
		apiErr, ok := api.AsAPIError(err)
		require.True(t, ok)
		assert.Equal(t, api.CodeNotAuthenticated, apiErr.Code)
	})
}

func TestClient_NonJSONError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer server.Close()

	client := api.NewClient(server.URL, zap.NewNop())
	_, err := client.Get(context.Background(), userID, 1)

	apiErr, ok := api.AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, "An error occurred", apiErr.Message)
	assert.Equal(t, api.CodeUnknown, apiErr.Code)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.ErrorIs(t, err, api.ErrInternal)
}

func TestClient_RequestHeaders(t *testing.T) {
	reqs := make(chan *http.Request, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqs <- r.Clone(context.Background())
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte("[]"))
	}))
	defer server.Close()

	client := api.NewClient(server.URL+"/", zap.NewNop(), api.WithToken("abc"))
	_, err := client.List(context.Background(), userID, model.FilterAll, model.SortTitle)
	require.NoError(t, err)

	got := <-reqs
	assert.Equal(t, "/api/"+userID+"/tasks", got.URL.Path)
	assert.Equal(t, "sort=title", got.URL.RawQuery, "status=all is omitted")
	assert.Equal(t, "Bearer abc", got.Header.Get("Authorization"))
	assert.NotEmpty(t, got.Header.Get("X-Request-Id"))
}

func TestClient_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := api.NewClient(server.URL, zap.NewNop(), api.WithTimeout(20*time.Millisecond))
	_, err := client.Health(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, api.ErrTransport)

	_, isAPIErr := api.AsAPIError(err)
	assert.False(t, isAPIErr)
}

func TestClient_Health(t *testing.T) {
	client, _ := setupServer(t)
	h, err := client.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", h.Status)
	assert.Equal(t, "connected", h.Database)
}

func TestClient_HealthUsesServiceRoot(t *testing.T) {
	paths := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths <- r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy","database":"connected"}`))
	}))
	defer server.Close()

	client := api.NewClient(server.URL, zap.NewNop())
	_, err := client.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/", <-paths)
}

func TestClient_WithTimeoutLeavesCallerClientAlone(t *testing.T) {
	hc := &http.Client{Timeout: time.Minute}
	api.NewClient("http://localhost", zap.NewNop(), api.WithHTTPClient(hc), api.WithTimeout(time.Second))
	assert.Equal(t, time.Minute, hc.Timeout)

	api.NewClient("http://localhost", zap.NewNop(), api.WithHTTPClient(http.DefaultClient), api.WithTimeout(time.Second))
	assert.Zero(t, http.DefaultClient.Timeout)
}
