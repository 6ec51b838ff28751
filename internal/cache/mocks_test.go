package cache

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/BuzzLyutic/taskdeck/internal/api"
	"github.com/BuzzLyutic/taskdeck/internal/model"
)

// MockTaskAPI - мок удалённого сервиса задач
type MockTaskAPI struct {
	mock.Mock
}

func (m *MockTaskAPI) List(ctx context.Context, userID string, status model.FilterStatus, sort model.SortOption) ([]model.Task, error) {
	args := m.Called(ctx, userID, status, sort)
	tasks, _ := args.Get(0).([]model.Task)
	return tasks, args.Error(1)
}

func (m *MockTaskAPI) Get(ctx context.Context, userID string, id int64) (model.Task, error) {
	args := m.Called(ctx, userID, id)
	return args.Get(0).(model.Task), args.Error(1)
}

func (m *MockTaskAPI) Create(ctx context.Context, userID string, data model.TaskCreate) (model.Task, error) {
	args := m.Called(ctx, userID, data)
	return args.Get(0).(model.Task), args.Error(1)
}

func (m *MockTaskAPI) Update(ctx context.Context, userID string, id int64, data model.TaskUpdate) (model.Task, error) {
	args := m.Called(ctx, userID, id, data)
	return args.Get(0).(model.Task), args.Error(1)
}

func (m *MockTaskAPI) ToggleComplete(ctx context.Context, userID string, id int64) (model.Task, error) {
	args := m.Called(ctx, userID, id)
	return args.Get(0).(model.Task), args.Error(1)
}

func (m *MockTaskAPI) Delete(ctx context.Context, userID string, id int64) error {
	args := m.Called(ctx, userID, id)
	return args.Error(0)
}

func (m *MockTaskAPI) Health(ctx context.Context) (api.Health, error) {
	args := m.Called(ctx)
	return args.Get(0).(api.Health), args.Error(1)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordingNotifier struct {
	mu        sync.Mutex
	successes []Op
	failures  []Op
}

func (n *recordingNotifier) Success(op Op, _ model.Task) {
	n.mu.Lock()
	n.successes = append(n.successes, op)
	n.mu.Unlock()
}

func (n *recordingNotifier) Failure(op Op, _ error) {
	n.mu.Lock()
	n.failures = append(n.failures, op)
	n.mu.Unlock()
}
