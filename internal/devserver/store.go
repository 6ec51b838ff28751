package devserver

import (
	"context"
	"errors"

	"github.com/BuzzLyutic/taskdeck/internal/model"
)

var ErrorNotFound = errors.New("not found")

// Store определяет интерфейс хранилища задач тестового сервера
type Store interface {
	List(ctx context.Context, userID string, filter model.FilterStatus, sort model.SortOption) ([]model.Task, error)
	Get(ctx context.Context, userID string, id int64) (model.Task, error)
	Create(ctx context.Context, userID string, data model.TaskCreate) (model.Task, error)
	Update(ctx context.Context, userID string, id int64, data model.TaskUpdate) (model.Task, error)
	ToggleComplete(ctx context.Context, userID string, id int64) (model.Task, error)
	Delete(ctx context.Context, userID string, id int64) error
	Ping(ctx context.Context) error
}
