package api

import (
	"context"

	"github.com/BuzzLyutic/taskdeck/internal/model"
)

// TaskAPI описывает удалённый сервис задач, с которым синхронизируется кэш
type TaskAPI interface {
	List(ctx context.Context, userID string, status model.FilterStatus, sort model.SortOption) ([]model.Task, error)
	Get(ctx context.Context, userID string, id int64) (model.Task, error)
	Create(ctx context.Context, userID string, data model.TaskCreate) (model.Task, error)
	Update(ctx context.Context, userID string, id int64, data model.TaskUpdate) (model.Task, error)
	ToggleComplete(ctx context.Context, userID string, id int64) (model.Task, error)
	Delete(ctx context.Context, userID string, id int64) error
	Health(ctx context.Context) (Health, error)
}

type Health struct {
	Status   string `json:"status"`
	Database string `json:"database,omitempty"`
}
