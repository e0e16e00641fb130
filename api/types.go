package api

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"taskboard/domain"
	"taskboard/events"
)

// Deduper prevents processing of duplicate create requests.
type Deduper interface {
	// Add records the idempotency key and returns true if it was newly added.
	Add(ctx context.Context, scope, key string) (bool, error)
	// Remove deletes a previously added key, used when downstream processing fails.
	Remove(ctx context.Context, scope, key string) error
}

// Options carries the optional collaborators of the HTTP API.
type Options struct {
	Deduper        Deduper
	Broker         *events.Broker
	Logger         *log.Logger
	RequestTimeout time.Duration
}

type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type reorderRequest struct {
	Status domain.Status `json:"status"`
	Tasks  []struct {
		ID string `json:"id"`
	} `json:"tasks"`
}

const (
	msgInvalidTask    = "Invalid task data"
	msgInvalidPayload = "Invalid request payload"
	msgNotFound       = "Task not found"
	msgDuplicate      = "Duplicate request"
	msgFetchTasks     = "Failed to fetch tasks"
	msgFetchTask      = "Failed to fetch task"
	msgCreateTask     = "Failed to create task"
	msgUpdateTask     = "Failed to update task"
	msgDeleteTask     = "Failed to delete task"
	msgReorderTasks   = "Failed to reorder tasks"
)

const (
	// requestMaxSize bounds JSON request bodies.
	requestMaxSize        = 64 << 10
	headerIdempotencyKey  = "Idempotency-Key"
	defaultRequestTimeout = 10 * time.Second
)
