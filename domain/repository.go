package domain

import "context"

// Repository is the authoritative task store shared by the HTTP service and
// the client state manager.
type Repository interface {
	List(ctx context.Context) ([]Task, error)
	Get(ctx context.Context, id string) (Task, error)
	Create(ctx context.Context, d Draft) (Task, error)
	Update(ctx context.Context, id string, p Patch) (Task, error)
	Delete(ctx context.Context, id string) error
	// Reorder assigns order = position in ids and the given status to every
	// listed task that exists. It returns the updated tasks sorted by order.
	Reorder(ctx context.Context, status Status, ids []string) ([]Task, error)
}

// Snapshotter is implemented by stores that can overwrite their whole
// collection, such as the local durable cache.
type Snapshotter interface {
	ReplaceAll(ctx context.Context, tasks []Task) error
}

// ValidateReorder checks reorder arguments before any store is touched.
func ValidateReorder(status Status, ids []string) error {
	if status == "" {
		return &ValidationError{Field: "status", Reason: "required"}
	}
	if !status.Valid() {
		return &ValidationError{Field: "status", Reason: "unknown value " + string(status)}
	}
	if ids == nil {
		return &ValidationError{Field: "tasks", Reason: "required"}
	}
	return nil
}
