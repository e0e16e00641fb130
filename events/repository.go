package events

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"taskboard/domain"
)

// Repository publishes an event after every successful mutation of the
// wrapped repository. Publish failures are logged and never fail the call.
type Repository struct {
	domain.Repository
	pub Publisher
}

func NewRepository(base domain.Repository, pub Publisher) *Repository {
	return &Repository{Repository: base, pub: pub}
}

func (r *Repository) Create(ctx context.Context, d domain.Draft) (domain.Task, error) {
	t, err := r.Repository.Create(ctx, d)
	if err != nil {
		return domain.Task{}, err
	}
	r.publish(ctx, Event{Type: TaskCreated, TaskIDs: []string{t.ID}, Status: t.Status})
	return t, nil
}

func (r *Repository) Update(ctx context.Context, id string, p domain.Patch) (domain.Task, error) {
	t, err := r.Repository.Update(ctx, id, p)
	if err != nil {
		return domain.Task{}, err
	}
	r.publish(ctx, Event{Type: TaskUpdated, TaskIDs: []string{t.ID}, Status: t.Status})
	return t, nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	if err := r.Repository.Delete(ctx, id); err != nil {
		return err
	}
	r.publish(ctx, Event{Type: TaskDeleted, TaskIDs: []string{id}})
	return nil
}

func (r *Repository) Reorder(ctx context.Context, status domain.Status, ids []string) ([]domain.Task, error) {
	tasks, err := r.Repository.Reorder(ctx, status, ids)
	if err != nil {
		return nil, err
	}
	r.publish(ctx, Event{Type: TasksReordered, TaskIDs: domain.IDs(tasks), Status: status})
	return tasks, nil
}

func (r *Repository) publish(ctx context.Context, ev Event) {
	if r.pub == nil {
		return
	}
	ev.Time = time.Now().UnixNano()
	if err := r.pub.Publish(ctx, ev); err != nil {
		log.WithError(err).WithFields(log.Fields{"event": ev.Type, "tasks": ev.TaskIDs}).Warn("publish board event failed")
	}
}
