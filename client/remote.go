package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"

	"taskboard/domain"
)

// Remote is a domain.Repository that talks to the task HTTP API.
type Remote struct {
	BaseURL string
	HTTP    *http.Client
}

// NewRemote creates a Remote for baseURL with the given request timeout.
func NewRemote(baseURL string, timeout time.Duration) *Remote {
	return &Remote{BaseURL: strings.TrimRight(baseURL, "/"), HTTP: &http.Client{Timeout: timeout}}
}

type apiError struct {
	Error string `json:"error"`
}

type reorderBody struct {
	Status domain.Status  `json:"status"`
	Tasks  []reorderEntry `json:"tasks"`
}

type reorderEntry struct {
	ID     string        `json:"id"`
	Order  int           `json:"order"`
	Status domain.Status `json:"status"`
}

func (r *Remote) List(ctx context.Context) ([]domain.Task, error) {
	var tasks []domain.Task
	if err := r.do(ctx, http.MethodGet, "/tasks", nil, nil, &tasks, ""); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *Remote) Get(ctx context.Context, id string) (domain.Task, error) {
	var t domain.Task
	err := r.do(ctx, http.MethodGet, "/tasks/"+url.PathEscape(id), nil, nil, &t, id)
	return t, err
}

// Create posts the draft with a fresh Idempotency-Key so a retried request
// cannot create the task twice.
func (r *Remote) Create(ctx context.Context, d domain.Draft) (domain.Task, error) {
	var t domain.Task
	headers := map[string]string{"Idempotency-Key": uuid.NewString()}
	err := r.do(ctx, http.MethodPost, "/tasks", headers, d, &t, "")
	return t, err
}

func (r *Remote) Update(ctx context.Context, id string, p domain.Patch) (domain.Task, error) {
	var t domain.Task
	err := r.do(ctx, http.MethodPatch, "/tasks/"+url.PathEscape(id), nil, p, &t, id)
	return t, err
}

func (r *Remote) Delete(ctx context.Context, id string) error {
	return r.do(ctx, http.MethodDelete, "/tasks/"+url.PathEscape(id), nil, nil, nil, id)
}

func (r *Remote) Reorder(ctx context.Context, status domain.Status, ids []string) ([]domain.Task, error) {
	if err := domain.ValidateReorder(status, ids); err != nil {
		return nil, err
	}
	body := reorderBody{Status: status, Tasks: make([]reorderEntry, len(ids))}
	for i, id := range ids {
		body.Tasks[i] = reorderEntry{ID: id, Order: i, Status: status}
	}
	var tasks []domain.Task
	if err := r.do(ctx, http.MethodPost, "/tasks/reorder", nil, body, &tasks, ""); err != nil {
		return nil, err
	}
	return tasks, nil
}

// do sends one JSON request and maps error statuses back to domain errors.
func (r *Remote) do(ctx context.Context, method, path string, headers map[string]string, body, out any, id string) error {
	var reader io.Reader
	if body != nil {
		data, err := sonic.Marshal(body)
		if err != nil {
			return &domain.StoreError{Op: method + " " + path, Err: err}
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, r.BaseURL+path, reader)
	if err != nil {
		return &domain.StoreError{Op: method + " " + path, Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := r.HTTP.Do(req)
	if err != nil {
		return &domain.StoreError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return &domain.StoreError{Op: method + " " + path, Err: err}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var ae apiError
		_ = sonic.Unmarshal(data, &ae)
		switch resp.StatusCode {
		case http.StatusNotFound:
			return &domain.NotFoundError{ID: id}
		case http.StatusBadRequest:
			return &domain.ValidationError{Field: "request", Reason: ae.Error}
		default:
			return &domain.StoreError{Op: method + " " + path, Err: fmt.Errorf("status %d: %s", resp.StatusCode, ae.Error)}
		}
	}
	if out == nil {
		return nil
	}
	if err := sonic.Unmarshal(data, out); err != nil {
		return &domain.StoreError{Op: method + " " + path, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
