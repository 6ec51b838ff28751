package devserver

import (
	"context"
	"sync"
	"time"

	"github.com/BuzzLyutic/taskdeck/internal/model"
	"github.com/BuzzLyutic/taskdeck/internal/view"
)

// MemoryStore keeps tasks in process memory. Errors registered with SetError
// are returned by the named method until cleared, which lets tests drive the
// client's failure paths.
type MemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	tasks  []model.Task
	errs   map[string]error
	now    func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		errs: make(map[string]error),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// SetError makes method ("List", "Create", ...) fail with err. A nil err clears it.
func (s *MemoryStore) SetError(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.errs, method)
		return
	}
	s.errs[method] = err
}

func (s *MemoryStore) injected(method string) error {
	return s.errs[method]
}

func (s *MemoryStore) List(ctx context.Context, userID string, filter model.FilterStatus, sort model.SortOption) ([]model.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.injected("List"); err != nil {
		return nil, err
	}

	owned := make([]model.Task, 0)
	for _, t := range s.tasks {
		if t.UserID == userID {
			owned = append(owned, t)
		}
	}
	return view.Apply(owned, filter, sort), nil
}

func (s *MemoryStore) Get(ctx context.Context, userID string, id int64) (model.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.injected("Get"); err != nil {
		return model.Task{}, err
	}
	i := s.find(userID, id)
	if i < 0 {
		return model.Task{}, ErrorNotFound
	}
	return s.tasks[i], nil
}

func (s *MemoryStore) Create(ctx context.Context, userID string, data model.TaskCreate) (model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("Create"); err != nil {
		return model.Task{}, err
	}

	s.nextID++
	now := s.now()
	t := model.Task{
		ID:          s.nextID,
		UserID:      userID,
		Title:       data.Title,
		Description: data.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.tasks = append(s.tasks, t)
	return t, nil
}

func (s *MemoryStore) Update(ctx context.Context, userID string, id int64, data model.TaskUpdate) (model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("Update"); err != nil {
		return model.Task{}, err
	}
	i := s.find(userID, id)
	if i < 0 {
		return model.Task{}, ErrorNotFound
	}
	t := data.Apply(s.tasks[i])
	t.UpdatedAt = s.now()
	s.tasks[i] = t
	return t, nil
}

func (s *MemoryStore) ToggleComplete(ctx context.Context, userID string, id int64) (model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("ToggleComplete"); err != nil {
		return model.Task{}, err
	}
	i := s.find(userID, id)
	if i < 0 {
		return model.Task{}, ErrorNotFound
	}
	s.tasks[i].Completed = !s.tasks[i].Completed
	s.tasks[i].UpdatedAt = s.now()
	return s.tasks[i], nil
}

func (s *MemoryStore) Delete(ctx context.Context, userID string, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.injected("Delete"); err != nil {
		return err
	}
	i := s.find(userID, id)
	if i < 0 {
		return ErrorNotFound
	}
	s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
	return nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.injected("Ping")
}

func (s *MemoryStore) find(userID string, id int64) int {
	for i, t := range s.tasks {
		if t.ID == id && t.UserID == userID {
			return i
		}
	}
	return -1
}
