package devserver

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BuzzLyutic/taskdeck/internal/model"
)

//go:embed migrations/*.sql
var migrations embed.FS

const taskColumns = `id, user_id, title, description, completed, created_at, updated_at`

type PGStore struct { // Хранилище поверх PostgreSQL
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{
		pool: pool,
	}
}

// Migrate applies the embedded schema files in name order.
func (s *PGStore) Migrate(ctx context.Context) error {
	names, err := fs.Glob(migrations, "migrations/*.up.sql")
	if err != nil {
		return err
	}
	sort.Strings(names)
	for _, name := range names {
		sql, err := migrations.ReadFile(name)
		if err != nil {
			return err
		}
		if _, err := s.pool.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("apply %s: %w", name, err)
		}
	}
	return nil
}

func (s *PGStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PGStore) List(ctx context.Context, userID string, filter model.FilterStatus, sortBy model.SortOption) ([]model.Task, error) {
	var completed *bool
	switch filter {
	case model.FilterPending:
		v := false
		completed = &v
	case model.FilterCompleted:
		v := true
		completed = &v
	}

	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE user_id = $1 AND ($2::boolean IS NULL OR completed = $2)
		ORDER BY ` + orderBy(sortBy)

	rows, err := s.pool.Query(ctx, query, userID, completed)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]model.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func orderBy(s model.SortOption) string {
	switch s {
	case model.SortTitle:
		return "title, id"
	case model.SortUpdated:
		return "updated_at DESC, id DESC"
	default:
		return "created_at DESC, id DESC"
	}
}

func (s *PGStore) Get(ctx context.Context, userID string, id int64) (model.Task, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE id = $1 AND user_id = $2
	`, id, userID)
	t, err := scanTask(row)
	return t, s.mapError(err)
}

func (s *PGStore) Create(ctx context.Context, userID string, data model.TaskCreate) (model.Task, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO tasks (user_id, title, description)
		VALUES ($1, $2, $3)
		RETURNING `+taskColumns,
		userID, data.Title, data.Description)
	t, err := scanTask(row)
	return t, s.mapError(err)
}

func (s *PGStore) Update(ctx context.Context, userID string, id int64, data model.TaskUpdate) (model.Task, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE tasks
		SET title = COALESCE($3, title),
		    description = COALESCE($4, description),
		    updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING `+taskColumns,
		id, userID, data.Title, data.Description)
	t, err := scanTask(row)
	return t, s.mapError(err)
}

func (s *PGStore) ToggleComplete(ctx context.Context, userID string, id int64) (model.Task, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE tasks
		SET completed = NOT completed, updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING `+taskColumns,
		id, userID)
	t, err := scanTask(row)
	return t, s.mapError(err)
}

func (s *PGStore) Delete(ctx context.Context, userID string, id int64) error {
	cmd, err := s.pool.Exec(ctx, "DELETE FROM tasks WHERE id = $1 AND user_id = $2", id, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrorNotFound
	}
	return nil
}

func scanTask(row pgx.Row) (model.Task, error) {
	var t model.Task
	err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.Completed, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func (s *PGStore) mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrorNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23514", "22001": // check_violation, string_data_right_truncation
			return fmt.Errorf("%w: %s", model.ErrValidation, pgErr.Message)
		}
	}
	return err
}
