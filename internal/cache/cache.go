// Package cache keeps a per-user replica of the remote task list and applies
// mutations optimistically: the local list changes first, the request runs
// outside the lock, and the list is reconciled with the server response. A
// failed mutation undoes only its own change to the list.
package cache

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskdeck/internal/api"
	"github.com/BuzzLyutic/taskdeck/internal/model"
	"github.com/BuzzLyutic/taskdeck/internal/view"
)

const DefaultDedupeInterval = 5 * time.Second

type Op string

const (
	OpFetch  Op = "fetch"
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpToggle Op = "toggle"
	OpDelete Op = "delete"
)

// MutationError reports a mutation that was rolled back.
type MutationError struct {
	Op     Op
	UserID string
	TaskID int64
	Err    error
}

func (e *MutationError) Error() string {
	if e.Op == OpCreate {
		return fmt.Sprintf("%s task: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s task %d: %v", e.Op, e.TaskID, e.Err)
}

func (e *MutationError) Unwrap() error { return e.Err }

type entry struct {
	tasks     []model.Task
	loaded    bool
	fetchedAt time.Time

	// rev changes on every local write; a fetch that started at an older
	// rev must not overwrite optimistic state.
	rev uint64

	fetching       *fetchCall
	staleRequested bool
	// refetch is set when a rollback could not undo its change cleanly;
	// the next read waits for a fresh list.
	refetch bool
}

type fetchCall struct {
	done chan struct{}
	err  error
}

type TaskCache struct {
	api      api.TaskAPI
	logger   *zap.Logger
	notifier Notifier
	now      func() time.Time
	dedupe   time.Duration
	sort     model.SortOption

	mu         sync.Mutex
	entries    map[string]*entry
	nextTempID int64
}

type Option func(*TaskCache)

func WithNotifier(n Notifier) Option {
	return func(c *TaskCache) { c.notifier = n }
}

// WithDedupeInterval sets how long a fetched list counts as fresh.
func WithDedupeInterval(d time.Duration) Option {
	return func(c *TaskCache) { c.dedupe = d }
}

func WithClock(now func() time.Time) Option {
	return func(c *TaskCache) { c.now = now }
}

// WithFetchSort sets the sort parameter sent with list requests.
func WithFetchSort(s model.SortOption) Option {
	return func(c *TaskCache) { c.sort = s }
}

func New(remote api.TaskAPI, logger *zap.Logger, opts ...Option) *TaskCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &TaskCache{
		api:     remote,
		logger:  logger,
		now:     time.Now,
		dedupe:  DefaultDedupeInterval,
		sort:    model.SortCreated,
		entries: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.notifier == nil {
		c.notifier = NewLogNotifier(logger)
	}
	return c
}

// Tasks returns the filtered and sorted view of the user's list. The first
// read fetches from the server; later reads are served from memory, and a
// read of data older than the dedupe interval marks the entry for background
// revalidation.
func (c *TaskCache) Tasks(ctx context.Context, userID string, f model.FilterStatus, s model.SortOption) ([]model.Task, error) {
	c.mu.Lock()
	e := c.entryLocked(userID)
	loaded, refetch := e.loaded, e.refetch
	if loaded && c.now().Sub(e.fetchedAt) >= c.dedupe {
		e.staleRequested = true
	}
	c.mu.Unlock()

	switch {
	case !loaded:
		if err := c.load(ctx, userID); err != nil {
			return nil, err
		}
	case refetch:
		if err := c.load(ctx, userID); err != nil {
			c.logger.Warn("refetch after rollback failed, serving cached list",
				zap.String("user_id", userID), zap.Error(err))
		}
	}
	return view.Apply(c.Snapshot(userID), f, s), nil
}

// Task returns one task, from the cache when present and from the server
// otherwise.
func (c *TaskCache) Task(ctx context.Context, userID string, id int64) (model.Task, error) {
	c.mu.Lock()
	if e, ok := c.entries[userID]; ok {
		if i := indexOf(e.tasks, id); i >= 0 {
			t := e.tasks[i]
			c.mu.Unlock()
			return t, nil
		}
	}
	c.mu.Unlock()

	t, err := c.api.Get(ctx, userID, id)
	if err != nil {
		return t, err
	}

	c.mu.Lock()
	if e, ok := c.entries[userID]; ok && e.loaded {
		e.tasks = upsert(e.tasks, t)
		e.rev++
	}
	c.mu.Unlock()
	return t, nil
}

// Snapshot returns a copy of the cached list in cache order.
func (c *TaskCache) Snapshot(userID string) []model.Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[userID]
	if !ok {
		return []model.Task{}
	}
	return cloneTasks(e.tasks)
}

func (c *TaskCache) Counts(userID string) view.Counts {
	return view.Count(c.Snapshot(userID))
}

// Revalidate refetches the user's list. Concurrent calls share one request.
func (c *TaskCache) Revalidate(ctx context.Context, userID string) error {
	return c.load(ctx, userID)
}

// Invalidate drops the user's entry; the next read fetches again.
func (c *TaskCache) Invalidate(userID string) {
	c.mu.Lock()
	delete(c.entries, userID)
	c.mu.Unlock()
}

// load fetches the list once for all concurrent callers. The request runs
// detached from any single caller, so one caller giving up does not fail the
// others; each caller still stops waiting when its own ctx is done.
func (c *TaskCache) load(ctx context.Context, userID string) error {
	c.mu.Lock()
	e := c.entryLocked(userID)
	call := e.fetching
	if call == nil {
		call = &fetchCall{done: make(chan struct{})}
		e.fetching = call
		go c.fetch(context.WithoutCancel(ctx), userID, e, call, e.rev)
	}
	c.mu.Unlock()

	select {
	case <-call.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	if call.err != nil {
		return fmt.Errorf("%s tasks: %w", OpFetch, call.err)
	}
	return nil
}

func (c *TaskCache) fetch(ctx context.Context, userID string, e *entry, call *fetchCall, startRev uint64) {
	tasks, err := c.api.List(ctx, userID, model.FilterAll, c.sort)

	c.mu.Lock()
	defer c.mu.Unlock()
	defer close(call.done)
	e.fetching = nil
	call.err = err
	if err != nil {
		c.logger.Warn("fetch tasks failed", zap.String("user_id", userID), zap.Error(err))
		return
	}
	if e.loaded && e.rev != startRev {
		// локальная мутация успела изменить список, ответ устарел
		c.logger.Debug("discarding fetch overlapped by mutation", zap.String("user_id", userID))
		return
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	e.tasks = tasks
	e.loaded = true
	e.fetchedAt = c.now()
	e.staleRequested = false
	e.refetch = false
	e.rev++
}

// claimStale picks one entry that was read while stale and has no fetch in
// flight, and clears its request flag.
func (c *TaskCache) claimStale() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for userID, e := range c.entries {
		if e.staleRequested && e.fetching == nil {
			e.staleRequested = false
			return userID, true
		}
	}
	return "", false
}

func (c *TaskCache) entryLocked(userID string) *entry {
	e, ok := c.entries[userID]
	if !ok {
		e = &entry{tasks: []model.Task{}}
		c.entries[userID] = e
	}
	return e
}

// CreateTask prepends a provisional task, then swaps it for the server's copy.
func (c *TaskCache) CreateTask(ctx context.Context, userID string, data model.TaskCreate) (model.Task, error) {
	data, err := data.Normalize()
	if err != nil {
		return model.Task{}, err
	}

	c.mu.Lock()
	c.nextTempID--
	tempID := c.nextTempID
	c.mu.Unlock()

	now := c.now()
	provisional := model.Task{
		ID:        tempID,
		UserID:    userID,
		Title:     data.Title,
		Completed: false,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if data.Description != nil && *data.Description != "" {
		d := *data.Description
		provisional.Description = &d
	}

	return c.mutate(ctx, mutation{
		op:     OpCreate,
		userID: userID,
		taskID: tempID,
		optimistic: func(tasks []model.Task) []model.Task {
			return append([]model.Task{provisional}, tasks...)
		},
		remote: func(ctx context.Context) (model.Task, error) {
			return c.api.Create(ctx, userID, data)
		},
		reconcile: func(tasks []model.Task, server model.Task) []model.Task {
			if i := indexOf(tasks, tempID); i >= 0 {
				tasks = slices.Delete(tasks, i, i+1)
			}
			if i := indexOf(tasks, server.ID); i >= 0 {
				tasks[i] = server
				return tasks
			}
			return append([]model.Task{server}, tasks...)
		},
	})
}

// UpdateTask merges the set fields into the cached task before the request.
func (c *TaskCache) UpdateTask(ctx context.Context, userID string, id int64, data model.TaskUpdate) (model.Task, error) {
	data, err := data.Normalize()
	if err != nil {
		return model.Task{}, err
	}

	return c.mutate(ctx, mutation{
		op:     OpUpdate,
		userID: userID,
		taskID: id,
		optimistic: func(tasks []model.Task) []model.Task {
			if i := indexOf(tasks, id); i >= 0 {
				t := data.Apply(tasks[i])
				t.UpdatedAt = c.now()
				tasks[i] = t
			}
			return tasks
		},
		remote: func(ctx context.Context) (model.Task, error) {
			return c.api.Update(ctx, userID, id, data)
		},
		reconcile: replace,
	})
}

func (c *TaskCache) ToggleComplete(ctx context.Context, userID string, id int64) (model.Task, error) {
	return c.mutate(ctx, mutation{
		op:     OpToggle,
		userID: userID,
		taskID: id,
		optimistic: func(tasks []model.Task) []model.Task {
			if i := indexOf(tasks, id); i >= 0 {
				tasks[i].Completed = !tasks[i].Completed
				tasks[i].UpdatedAt = c.now()
			}
			return tasks
		},
		remote: func(ctx context.Context) (model.Task, error) {
			return c.api.ToggleComplete(ctx, userID, id)
		},
		reconcile: replace,
	})
}

func (c *TaskCache) DeleteTask(ctx context.Context, userID string, id int64) error {
	var removed model.Task
	_, err := c.mutate(ctx, mutation{
		op:     OpDelete,
		userID: userID,
		taskID: id,
		optimistic: func(tasks []model.Task) []model.Task {
			if i := indexOf(tasks, id); i >= 0 {
				removed = tasks[i]
				return slices.Delete(tasks, i, i+1)
			}
			return tasks
		},
		remote: func(ctx context.Context) (model.Task, error) {
			return removed, c.api.Delete(ctx, userID, id)
		},
		reconcile: func(tasks []model.Task, _ model.Task) []model.Task {
			if i := indexOf(tasks, id); i >= 0 {
				return slices.Delete(tasks, i, i+1)
			}
			return tasks
		},
	})
	return err
}

type mutation struct {
	op         Op
	userID     string
	taskID     int64
	optimistic func([]model.Task) []model.Task
	remote     func(context.Context) (model.Task, error)
	reconcile  func([]model.Task, model.Task) []model.Task
}

func (c *TaskCache) mutate(ctx context.Context, m mutation) (model.Task, error) {
	c.mu.Lock()
	e := c.entryLocked(m.userID)
	before, at := lookup(e.tasks, m.taskID)
	e.tasks = m.optimistic(cloneTasks(e.tasks))
	after, _ := lookup(e.tasks, m.taskID)
	e.rev++
	c.mu.Unlock()

	result, err := m.remote(ctx)

	c.mu.Lock()
	if err != nil {
		var clean bool
		e.tasks, clean = undo(e.tasks, m.taskID, before, after, at)
		e.rev++
		e.staleRequested = true
		if !clean {
			e.refetch = true
		}
		c.mu.Unlock()

		c.logger.Info("optimistic mutation rolled back",
			zap.String("op", string(m.op)),
			zap.String("user_id", m.userID),
			zap.Int64("task_id", m.taskID),
			zap.Bool("clean", clean),
			zap.Error(err),
		)
		mErr := &MutationError{Op: m.op, UserID: m.userID, TaskID: m.taskID, Err: err}
		c.notifier.Failure(m.op, mErr)
		return model.Task{}, mErr
	}
	e.tasks = m.reconcile(e.tasks, result)
	e.rev++
	c.mu.Unlock()

	c.notifier.Success(m.op, result)
	return result, nil
}

// undo reverts one mutation's change to task id: before is the task as it was
// (nil if absent) at index at, after is what the mutation left (nil if
// removed). It reports false when another write has since touched the task,
// in which case the list is left alone for the next fetch to correct.
func undo(tasks []model.Task, id int64, before, after *model.Task, at int) ([]model.Task, bool) {
	i := indexOf(tasks, id)
	switch {
	case after != nil:
		if i < 0 {
			return tasks, before == nil
		}
		if !sameTask(tasks[i], *after) {
			return tasks, false
		}
		if before == nil {
			return slices.Delete(tasks, i, i+1), true
		}
		tasks[i] = *before
		return tasks, true
	case before != nil:
		if i >= 0 {
			return tasks, true
		}
		return slices.Insert(tasks, min(at, len(tasks)), *before), true
	}
	return tasks, true
}

func lookup(tasks []model.Task, id int64) (*model.Task, int) {
	i := indexOf(tasks, id)
	if i < 0 {
		return nil, -1
	}
	t := tasks[i]
	return &t, i
}

func sameTask(a, b model.Task) bool {
	return a.ID == b.ID &&
		a.Title == b.Title &&
		a.Completed == b.Completed &&
		a.UpdatedAt.Equal(b.UpdatedAt) &&
		(a.Description == nil) == (b.Description == nil) &&
		(a.Description == nil || *a.Description == *b.Description)
}

func replace(tasks []model.Task, server model.Task) []model.Task {
	if i := indexOf(tasks, server.ID); i >= 0 {
		tasks[i] = server
	}
	return tasks
}

func upsert(tasks []model.Task, t model.Task) []model.Task {
	if i := indexOf(tasks, t.ID); i >= 0 {
		tasks[i] = t
		return tasks
	}
	return append(tasks, t)
}

func indexOf(tasks []model.Task, id int64) int {
	return slices.IndexFunc(tasks, func(t model.Task) bool { return t.ID == id })
}

func cloneTasks(tasks []model.Task) []model.Task {
	out := make([]model.Task, len(tasks))
	copy(out, tasks)
	return out
}
