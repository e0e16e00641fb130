package client

import (
	"context"
	"fmt"
	"slices"
	"sync"

	log "github.com/sirupsen/logrus"

	"taskboard/domain"
)

// Manager holds the session's task list and keeps it in step with a
// repository. Local state changes only after the repository accepted the
// write, so a failed call leaves memory untouched.
type Manager struct {
	repo     domain.Repository
	notifier Notifier
	logger   *log.Logger

	mu    sync.RWMutex
	tasks []domain.Task
}

// NewManager creates a Manager over repo. A nil notifier logs notifications.
func NewManager(repo domain.Repository, notifier Notifier, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.StandardLogger()
	}
	if notifier == nil {
		notifier = LogNotifier{Logger: logger}
	}
	return &Manager{repo: repo, notifier: notifier, logger: logger}
}

// LoadTasks replaces the in-memory list. When the repository keeps a local
// durable copy the list is written there as well.
func (m *Manager) LoadTasks(ctx context.Context, tasks []domain.Task) error {
	if snap, ok := m.repo.(domain.Snapshotter); ok {
		if err := snap.ReplaceAll(ctx, tasks); err != nil {
			return m.failed("load tasks", "Failed to save tasks", err)
		}
	}
	m.mu.Lock()
	m.tasks = slices.Clone(tasks)
	m.mu.Unlock()
	return nil
}

// Refresh reloads the list from the repository.
func (m *Manager) Refresh(ctx context.Context) error {
	tasks, err := m.repo.List(ctx)
	if err != nil {
		return m.failed("list tasks", "Failed to load tasks", err)
	}
	m.mu.Lock()
	m.tasks = tasks
	m.mu.Unlock()
	return nil
}

func (m *Manager) AddTask(ctx context.Context, d domain.Draft) (domain.Task, error) {
	t, err := m.repo.Create(ctx, d)
	if err != nil {
		return domain.Task{}, m.failed("create task", "Failed to create task", err)
	}
	m.mu.Lock()
	m.tasks = append([]domain.Task{t}, m.tasks...)
	m.mu.Unlock()
	m.succeeded("Task created successfully")
	return t, nil
}

func (m *Manager) UpdateTask(ctx context.Context, id string, p domain.Patch) (domain.Task, error) {
	t, err := m.repo.Update(ctx, id, p)
	if err != nil {
		return domain.Task{}, m.failed("update task", "Failed to update task", err)
	}
	m.replace(t)
	m.succeeded("Task updated successfully")
	return t, nil
}

func (m *Manager) UpdateStatus(ctx context.Context, id string, status domain.Status) (domain.Task, error) {
	return m.UpdateTask(ctx, id, domain.Patch{Status: &status})
}

func (m *Manager) RemoveTask(ctx context.Context, id string) error {
	if err := m.repo.Delete(ctx, id); err != nil {
		return m.failed("delete task", "Failed to delete task", err)
	}
	m.mu.Lock()
	m.tasks = slices.DeleteFunc(m.tasks, func(t domain.Task) bool { return t.ID == id })
	m.mu.Unlock()
	m.succeeded("Task deleted successfully")
	return nil
}

// ReorderTasks persists the order of sublist as the new order of the status
// column and swaps that column in memory for the returned records.
func (m *Manager) ReorderTasks(ctx context.Context, status domain.Status, sublist []domain.Task) ([]domain.Task, error) {
	updated, err := m.repo.Reorder(ctx, status, domain.IDs(sublist))
	if err != nil {
		return nil, m.failed("reorder tasks", "Failed to reorder tasks", err)
	}
	m.replaceColumn(status, updated)
	m.succeeded("Tasks reordered successfully")
	return updated, nil
}

// MoveTask applies a drag end. A drop inside a column reorders it; a drop
// into another column moves the task to its end and then compacts the
// column it left.
func (m *Manager) MoveTask(ctx context.Context, ev domain.DragEnd) error {
	plan := domain.PlanDrop(m.Tasks(), ev)
	switch plan.Kind {
	case domain.DropReorder:
		_, err := m.ReorderTasks(ctx, plan.Status, plan.Tasks)
		return err
	case domain.DropMove:
		moved, err := m.repo.Update(ctx, plan.TaskID, plan.Patch)
		if err != nil {
			return m.failed("move task", "Failed to move task", err)
		}
		from := m.statusOf(plan.TaskID)
		m.replace(moved)
		if from != "" && len(plan.Source) > 0 {
			compacted, err := m.repo.Reorder(ctx, from, domain.IDs(plan.Source))
			if err != nil {
				return m.failed("reorder tasks", "Failed to reorder tasks", err)
			}
			m.replaceColumn(from, compacted)
		}
		m.succeeded("Task moved successfully")
		return nil
	default:
		return nil
	}
}

// Tasks returns a copy of the in-memory list.
func (m *Manager) Tasks() []domain.Task {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.tasks)
}

func (m *Manager) Column(status domain.Status) []domain.Task {
	return domain.Column(m.Tasks(), status)
}

func (m *Manager) Filter(q domain.Query) []domain.Task {
	return domain.Filter(m.Tasks(), q)
}

func (m *Manager) Stats() domain.Stats {
	return domain.Summarize(m.Tasks())
}

func (m *Manager) statusOf(id string) domain.Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.tasks {
		if t.ID == id {
			return t.Status
		}
	}
	return ""
}

func (m *Manager) replace(t domain.Task) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.tasks {
		if m.tasks[i].ID == t.ID {
			m.tasks[i] = t
			return
		}
	}
	m.tasks = append(m.tasks, t)
}

func (m *Manager) replaceColumn(status domain.Status, column []domain.Task) {
	ids := make(map[string]struct{}, len(column))
	for _, t := range column {
		ids[t.ID] = struct{}{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := make([]domain.Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		if _, ok := ids[t.ID]; ok {
			continue
		}
		if t.Status == status {
			continue
		}
		kept = append(kept, t)
	}
	m.tasks = append(kept, column...)
}

// failed logs and reports err. A LogNotifier on the manager's own logger
// already writes the entry, so it is not logged twice.
func (m *Manager) failed(op, message string, err error) error {
	if ln, ok := m.notifier.(LogNotifier); !ok || ln.logger() != m.logger {
		m.logger.WithError(err).WithField("op", op).Error(message)
	}
	m.notifier.Notify(Notification{Level: LevelError, Op: op, Message: message, Err: err})
	return fmt.Errorf("%s: %w", op, err)
}

func (m *Manager) succeeded(message string) {
	m.notifier.Notify(Notification{Level: LevelSuccess, Message: message})
}
