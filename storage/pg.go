package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"taskboard/domain"
)

const taskColumns = `id, title, description, priority, category, status, due_date, ord, created_at, updated_at`

// PgStore is a PostgreSQL-backed task store.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore creates a PgStore.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

// EnsureTable creates the tasks table if it doesn't exist.
func (s *PgStore) EnsureTable(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS tasks (
			id          TEXT PRIMARY KEY,
			title       TEXT NOT NULL,
			description TEXT NOT NULL,
			priority    TEXT NOT NULL DEFAULT 'medium',
			category    TEXT NOT NULL DEFAULT 'work',
			status      TEXT NOT NULL,
			due_date    TEXT NOT NULL DEFAULT '',
			ord         INTEGER NOT NULL DEFAULT 0,
			created_at  TIMESTAMPTZ NOT NULL,
			updated_at  TIMESTAMPTZ NOT NULL
		)`)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS idx_tasks_status_ord ON tasks(status, ord)`)
	return err
}

func (s *PgStore) List(ctx context.Context) ([]domain.Task, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY created_at ASC`)
	if err != nil {
		return nil, &domain.StoreError{Op: "list tasks", Err: err}
	}
	defer rows.Close()
	tasks, err := scanTaskRows(rows)
	if err != nil {
		return nil, &domain.StoreError{Op: "list tasks", Err: err}
	}
	return tasks, nil
}

func (s *PgStore) Get(ctx context.Context, id string) (domain.Task, error) {
	t, err := scanTask(s.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
	if err != nil {
		return domain.Task{}, pgError("get task", id, err)
	}
	return t, nil
}

func (s *PgStore) Create(ctx context.Context, d domain.Draft) (domain.Task, error) {
	t, err := domain.NewTask(d, domain.Now())
	if err != nil {
		return domain.Task{}, err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		t.ID, t.Title, t.Description, t.Priority, t.Category, t.Status, t.DueDate, t.Order, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return domain.Task{}, &domain.StoreError{Op: "create task", Err: err}
	}
	return t, nil
}

// Update locks the row, merges the patch and writes the result back in one
// transaction.
func (s *PgStore) Update(ctx context.Context, id string, p domain.Patch) (domain.Task, error) {
	if err := p.Validate(); err != nil {
		return domain.Task{}, err
	}
	var updated domain.Task
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		current, err := scanTask(tx.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			return pgError("update task", id, err)
		}
		updated = p.Apply(current, domain.Now())
		_, err = tx.Exec(ctx, `
			UPDATE tasks SET title = $2, description = $3, priority = $4, category = $5, status = $6,
				due_date = $7, ord = $8, updated_at = $9
			WHERE id = $1`,
			id, updated.Title, updated.Description, updated.Priority, updated.Category, updated.Status,
			updated.DueDate, updated.Order, updated.UpdatedAt)
		if err != nil {
			return &domain.StoreError{Op: "update task", Err: err}
		}
		return nil
	})
	if err != nil {
		return domain.Task{}, asStoreError("update task", err)
	}
	return updated, nil
}

func (s *PgStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return &domain.StoreError{Op: "delete task", Err: err}
	}
	if tag.RowsAffected() == 0 {
		return &domain.NotFoundError{ID: id}
	}
	return nil
}

// Reorder updates every listed row inside one transaction.
func (s *PgStore) Reorder(ctx context.Context, status domain.Status, ids []string) ([]domain.Task, error) {
	if err := domain.ValidateReorder(status, ids); err != nil {
		return nil, err
	}
	now := domain.Now()
	var updated []domain.Task
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		seen := make(map[string]struct{}, len(ids))
		for pos, id := range ids {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			t, err := scanTask(tx.QueryRow(ctx, `
				UPDATE tasks SET status = $2, ord = $3, updated_at = $4
				WHERE id = $1
				RETURNING `+taskColumns, id, status, pos, now))
			if errors.Is(err, pgx.ErrNoRows) {
				continue
			}
			if err != nil {
				return fmt.Errorf("reorder task %s: %w", id, err)
			}
			updated = append(updated, t)
		}
		return nil
	})
	if err != nil {
		return nil, &domain.StoreError{Op: "reorder tasks", Err: err}
	}
	if updated == nil {
		updated = []domain.Task{}
	}
	domain.SortByOrder(updated)
	return updated, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (domain.Task, error) {
	var t domain.Task
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Priority, &t.Category, &t.Status, &t.DueDate, &t.Order, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return domain.Task{}, err
	}
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	return t, nil
}

func scanTaskRows(rows pgx.Rows) ([]domain.Task, error) {
	tasks := []domain.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration: %w", err)
	}
	return tasks, nil
}

func pgError(op, id string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return &domain.NotFoundError{ID: id}
	}
	return &domain.StoreError{Op: op, Err: err}
}

// asStoreError passes typed domain errors through and wraps anything else.
func asStoreError(op string, err error) error {
	var nf *domain.NotFoundError
	var se *domain.StoreError
	if errors.As(err, &nf) || errors.As(err, &se) {
		return err
	}
	return &domain.StoreError{Op: op, Err: err}
}
