package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"taskboard/domain"
)

type handlers struct {
	repo    domain.Repository
	deduper Deduper
	log     *log.Logger
	timeout time.Duration
}

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, repo domain.Repository, opts Options) {
	if opts.Logger == nil {
		opts.Logger = log.StandardLogger()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}
	h := &handlers{repo: repo, deduper: opts.Deduper, log: opts.Logger, timeout: opts.RequestTimeout}

	obs := Instrument(opts.Logger)
	e.GET("/tasks", h.listTasks, obs)
	e.POST("/tasks", h.createTask, obs)
	e.GET("/tasks/stats", h.stats, obs)
	e.POST("/tasks/reorder", h.reorderTasks, obs)
	e.GET("/tasks/:id", h.getTask, obs)
	e.PATCH("/tasks/:id", h.updateTask, obs)
	e.DELETE("/tasks/:id", h.deleteTask, obs)
	e.GET("/tasks/stream", streamTasks(repo, opts.Broker, opts.Logger))
	e.GET("/healthz", h.healthz)
}

// withStore runs fn under the request timeout and records its duration.
func withStore[T any](c echo.Context, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
	defer cancel()
	start := time.Now()
	v, err := fn(ctx)
	metricsFrom(c).ObserveStore(time.Since(start))
	return v, err
}

func (h *handlers) healthz(c echo.Context) error {
	_, err := withStore(c, h.timeout, h.repo.List)
	if err != nil {
		h.log.WithError(err).Warn("health check failed")
		return c.NoContent(http.StatusServiceUnavailable)
	}
	return c.NoContent(http.StatusOK)
}

func (h *handlers) listTasks(c echo.Context) error {
	tasks, err := withStore(c, h.timeout, h.repo.List)
	if err != nil {
		return h.fail(c, err, msgFetchTasks)
	}
	q := domain.Query{
		Search:   c.QueryParam("search"),
		Category: domain.Category(c.QueryParam("category")),
		Status:   domain.Status(c.QueryParam("status")),
	}
	if q != (domain.Query{}) {
		tasks = domain.Filter(tasks, q)
	}
	metricsFrom(c).SetTasksReturned(len(tasks))
	return c.JSON(http.StatusOK, tasks)
}

func (h *handlers) stats(c echo.Context) error {
	tasks, err := withStore(c, h.timeout, h.repo.List)
	if err != nil {
		return h.fail(c, err, msgFetchTasks)
	}
	return c.JSON(http.StatusOK, domain.Summarize(tasks))
}

func (h *handlers) getTask(c echo.Context) error {
	id := c.Param("id")
	task, err := withStore(c, h.timeout, func(ctx context.Context) (domain.Task, error) {
		return h.repo.Get(ctx, id)
	})
	if err != nil {
		return h.fail(c, err, msgFetchTask)
	}
	metricsFrom(c).SetTasksReturned(1)
	return c.JSON(http.StatusOK, task)
}

func (h *handlers) createTask(c echo.Context) error {
	var draft domain.Draft
	if err := decodeBody(c, &draft); err != nil {
		metricsFrom(c).SetErrorStage("decode")
		return c.JSON(http.StatusBadRequest, errorResponse{Error: msgInvalidTask})
	}

	key := strings.TrimSpace(c.Request().Header.Get(headerIdempotencyKey))
	if key != "" && h.deduper != nil {
		added, err := h.deduper.Add(c.Request().Context(), "create", key)
		if err != nil {
			h.log.WithError(err).WithField("key", key).Warn("idempotency check failed; processing request")
		} else if !added {
			metricsFrom(c).SetErrorStage("idempotency")
			return c.JSON(http.StatusConflict, errorResponse{Error: msgDuplicate})
		}
	}

	task, err := withStore(c, h.timeout, func(ctx context.Context) (domain.Task, error) {
		return h.repo.Create(ctx, draft)
	})
	if err != nil {
		if key != "" && h.deduper != nil {
			if rerr := h.deduper.Remove(context.WithoutCancel(c.Request().Context()), "create", key); rerr != nil {
				h.log.WithError(rerr).WithField("key", key).Warn("release idempotency key failed")
			}
		}
		if domain.IsValidation(err) {
			metricsFrom(c).SetErrorStage("validate")
			return c.JSON(http.StatusBadRequest, errorResponse{Error: msgInvalidTask})
		}
		return h.fail(c, err, msgCreateTask)
	}
	metricsFrom(c).SetTasksReturned(1)
	return c.JSON(http.StatusCreated, task)
}

func (h *handlers) updateTask(c echo.Context) error {
	id := c.Param("id")
	var patch domain.Patch
	if err := decodeBody(c, &patch); err != nil {
		metricsFrom(c).SetErrorStage("decode")
		return c.JSON(http.StatusBadRequest, errorResponse{Error: msgInvalidTask})
	}
	task, err := withStore(c, h.timeout, func(ctx context.Context) (domain.Task, error) {
		return h.repo.Update(ctx, id, patch)
	})
	if err != nil {
		return h.fail(c, err, msgUpdateTask)
	}
	metricsFrom(c).SetTasksReturned(1)
	return c.JSON(http.StatusOK, task)
}

func (h *handlers) deleteTask(c echo.Context) error {
	id := c.Param("id")
	_, err := withStore(c, h.timeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, h.repo.Delete(ctx, id)
	})
	if err != nil {
		return h.fail(c, err, msgDeleteTask)
	}
	return c.JSON(http.StatusOK, messageResponse{Message: fmt.Sprintf("Task %s deleted successfully", id)})
}

func (h *handlers) reorderTasks(c echo.Context) error {
	var req reorderRequest
	if err := decodeBody(c, &req); err != nil || req.Status == "" || req.Tasks == nil {
		metricsFrom(c).SetErrorStage("decode")
		return c.JSON(http.StatusBadRequest, errorResponse{Error: msgInvalidPayload})
	}
	ids := make([]string, len(req.Tasks))
	for i, t := range req.Tasks {
		ids[i] = t.ID
	}
	tasks, err := withStore(c, h.timeout, func(ctx context.Context) ([]domain.Task, error) {
		return h.repo.Reorder(ctx, req.Status, ids)
	})
	if err != nil {
		if domain.IsValidation(err) {
			metricsFrom(c).SetErrorStage("validate")
			return c.JSON(http.StatusBadRequest, errorResponse{Error: msgInvalidPayload})
		}
		return h.fail(c, err, msgReorderTasks)
	}
	metricsFrom(c).SetTasksReturned(len(tasks))
	return c.JSON(http.StatusOK, tasks)
}

// fail maps a repository error to its response. Details stay in the log.
func (h *handlers) fail(c echo.Context, err error, fallback string) error {
	m := metricsFrom(c)
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		m.SetErrorStage("validate")
		return c.JSON(http.StatusBadRequest, errorResponse{Error: msgInvalidTask})
	case errors.Is(err, domain.ErrNotFound):
		m.SetErrorStage("not_found")
		return c.JSON(http.StatusNotFound, errorResponse{Error: msgNotFound})
	default:
		m.SetErrorStage("storage")
		h.log.WithError(err).WithFields(log.Fields{
			"method": c.Request().Method,
			"path":   c.Request().URL.Path,
		}).Error(fallback)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: fallback})
	}
}

func decodeBody(c echo.Context, v any) error {
	lr := io.LimitReader(c.Request().Body, requestMaxSize)
	dec := sonic.ConfigStd.NewDecoder(lr)
	return dec.Decode(v)
}
