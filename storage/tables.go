package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	log "github.com/sirupsen/logrus"

	"taskboard/domain"
)

const (
	edmInt32 = "Edm.Int32"
	edmInt64 = "Edm.Int64"

	// maxBatchSize is the entity group transaction limit of Table Storage.
	maxBatchSize = 100
	// maxUpdateAttempts bounds ETag conflict retries for a single update.
	maxUpdateAttempts = 5
)

// TableStore persists tasks as Azure Table entities: one partition per
// board and one row per task.
type TableStore struct {
	table *aztables.Client
	board string
}

// NewTableStore creates a TableStore from the given connection string.
func NewTableStore(connStr, table, board string) (*TableStore, error) {
	tablesClientOptions := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 3,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &tablesClientOptions)
	if err != nil {
		return nil, err
	}
	return &TableStore{table: svc.NewClient(table), board: board}, nil
}

// entityKeys addresses a row. The service owned Timestamp property is
// never sent.
type entityKeys struct {
	PartitionKey string `json:"PartitionKey"`
	RowKey       string `json:"RowKey"`
}

type taskEntity struct {
	entityKeys
	Title         string `json:"Title"`
	Description   string `json:"Description"`
	Priority      string `json:"Priority"`
	Category      string `json:"Category"`
	Status        string `json:"Status"`
	DueDate       string `json:"DueDate"`
	Order         int    `json:"Order"`
	OrderType     string `json:"Order@odata.type,omitempty"`
	CreatedAt     int64  `json:"CreatedAt,string"`
	CreatedAtType string `json:"CreatedAt@odata.type,omitempty"`
	UpdatedAt     int64  `json:"UpdatedAt,string"`
	UpdatedAtType string `json:"UpdatedAt@odata.type,omitempty"`
}

// taskUpdate carries the properties merged by a reorder.
type taskUpdate struct {
	entityKeys
	Status        string `json:"Status"`
	Order         int    `json:"Order"`
	OrderType     string `json:"Order@odata.type"`
	UpdatedAt     int64  `json:"UpdatedAt,string"`
	UpdatedAtType string `json:"UpdatedAt@odata.type"`
}

func (s *TableStore) toEntity(t domain.Task) taskEntity {
	return taskEntity{
		entityKeys:    entityKeys{PartitionKey: s.board, RowKey: t.ID},
		Title:         t.Title,
		Description:   t.Description,
		Priority:      string(t.Priority),
		Category:      string(t.Category),
		Status:        string(t.Status),
		DueDate:       t.DueDate,
		Order:         t.Order,
		OrderType:     edmInt32,
		CreatedAt:     t.CreatedAt.UnixMicro(),
		CreatedAtType: edmInt64,
		UpdatedAt:     t.UpdatedAt.UnixMicro(),
		UpdatedAtType: edmInt64,
	}
}

func decodeTaskEntity(data []byte) (domain.Task, error) {
	var ent taskEntity
	if err := json.Unmarshal(data, &ent); err != nil {
		return domain.Task{}, err
	}
	return domain.Task{
		ID:          ent.RowKey,
		Title:       ent.Title,
		Description: ent.Description,
		Priority:    domain.Priority(ent.Priority),
		Category:    domain.Category(ent.Category),
		Status:      domain.Status(ent.Status),
		DueDate:     ent.DueDate,
		Order:       ent.Order,
		CreatedAt:   time.UnixMicro(ent.CreatedAt).UTC(),
		UpdatedAt:   time.UnixMicro(ent.UpdatedAt).UTC(),
	}, nil
}

func (s *TableStore) List(ctx context.Context) ([]domain.Task, error) {
	filter := partitionFilter(s.board)
	pager := s.table.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	tasks := []domain.Task{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, &domain.StoreError{Op: "list tasks", Err: err}
		}
		for _, e := range resp.Entities {
			task, err := decodeTaskEntity(e)
			if err != nil {
				return nil, &domain.StoreError{Op: "decode task", Err: err}
			}
			tasks = append(tasks, task)
		}
	}
	return tasks, nil
}

func (s *TableStore) get(ctx context.Context, id string) (domain.Task, azcore.ETag, error) {
	resp, err := s.table.GetEntity(ctx, s.board, id, nil)
	if err != nil {
		if isStatus(err, http.StatusNotFound) {
			return domain.Task{}, "", &domain.NotFoundError{ID: id}
		}
		return domain.Task{}, "", &domain.StoreError{Op: "get task", Err: err}
	}
	task, err := decodeTaskEntity(resp.Value)
	if err != nil {
		return domain.Task{}, "", &domain.StoreError{Op: "decode task", Err: err}
	}
	return task, resp.ETag, nil
}

func (s *TableStore) Get(ctx context.Context, id string) (domain.Task, error) {
	task, _, err := s.get(ctx, id)
	return task, err
}

func (s *TableStore) Create(ctx context.Context, d domain.Draft) (domain.Task, error) {
	task, err := domain.NewTask(d, domain.Now())
	if err != nil {
		return domain.Task{}, err
	}
	payload, err := json.Marshal(s.toEntity(task))
	if err != nil {
		return domain.Task{}, &domain.StoreError{Op: "encode task", Err: err}
	}
	if _, err := s.table.AddEntity(ctx, payload, nil); err != nil {
		return domain.Task{}, &domain.StoreError{Op: "add task", Err: err}
	}
	return task, nil
}

// Update merges the patch under optimistic concurrency, re-reading the
// entity whenever another writer changed it first.
func (s *TableStore) Update(ctx context.Context, id string, p domain.Patch) (domain.Task, error) {
	if err := p.Validate(); err != nil {
		return domain.Task{}, err
	}
	for attempt := 1; ; attempt++ {
		current, etag, err := s.get(ctx, id)
		if err != nil {
			return domain.Task{}, err
		}
		updated := p.Apply(current, domain.Now())
		err = s.replace(ctx, updated, etag)
		if err == nil {
			return updated, nil
		}
		if !errors.Is(err, domain.ErrConcurrencyConflict) {
			return domain.Task{}, err
		}
		if attempt >= maxUpdateAttempts {
			return domain.Task{}, &domain.StoreError{Op: "update task", Err: err}
		}
		log.WithFields(log.Fields{"task": id, "attempt": attempt}).Debug("task update conflict, retrying")
	}
}

func (s *TableStore) replace(ctx context.Context, t domain.Task, etag azcore.ETag) error {
	payload, err := json.Marshal(s.toEntity(t))
	if err != nil {
		return &domain.StoreError{Op: "encode task", Err: err}
	}
	_, err = s.table.UpdateEntity(ctx, payload, &aztables.UpdateEntityOptions{IfMatch: &etag, UpdateMode: aztables.UpdateModeReplace})
	switch {
	case err == nil:
		return nil
	case isStatus(err, http.StatusPreconditionFailed):
		return domain.ErrConcurrencyConflict
	case isStatus(err, http.StatusNotFound):
		return &domain.NotFoundError{ID: t.ID}
	default:
		return &domain.StoreError{Op: "update task", Err: err}
	}
}

func (s *TableStore) Delete(ctx context.Context, id string) error {
	_, err := s.table.DeleteEntity(ctx, s.board, id, nil)
	if err != nil {
		if isStatus(err, http.StatusNotFound) {
			return &domain.NotFoundError{ID: id}
		}
		return &domain.StoreError{Op: "delete task", Err: err}
	}
	return nil
}

// Reorder merges status and order into every listed task that exists. Each
// chunk of up to maxBatchSize tasks is submitted as one transaction.
func (s *TableStore) Reorder(ctx context.Context, status domain.Status, ids []string) ([]domain.Task, error) {
	if err := domain.ValidateReorder(status, ids); err != nil {
		return nil, err
	}
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	_, updated := domain.ApplyReorder(all, status, ids, domain.Now())

	for start := 0; start < len(updated); start += maxBatchSize {
		end := min(start+maxBatchSize, len(updated))
		actions := make([]aztables.TransactionAction, 0, end-start)
		for _, t := range updated[start:end] {
			payload, err := json.Marshal(taskUpdate{
				entityKeys:    entityKeys{PartitionKey: s.board, RowKey: t.ID},
				Status:        string(t.Status),
				Order:         t.Order,
				OrderType:     edmInt32,
				UpdatedAt:     t.UpdatedAt.UnixMicro(),
				UpdatedAtType: edmInt64,
			})
			if err != nil {
				return nil, &domain.StoreError{Op: "encode reorder", Err: err}
			}
			actions = append(actions, aztables.TransactionAction{ActionType: aztables.TransactionTypeUpdateMerge, Entity: payload})
		}
		if _, err := s.table.SubmitTransaction(ctx, actions, nil); err != nil {
			return nil, &domain.StoreError{Op: "reorder tasks", Err: fmt.Errorf("batch %d: %w", start/maxBatchSize, err)}
		}
	}
	return updated, nil
}

// partitionFilter matches every entity of board. Quotes are doubled as
// OData string literals require.
func partitionFilter(board string) string {
	return "PartitionKey eq '" + strings.ReplaceAll(board, "'", "''") + "'"
}

func isStatus(err error, code int) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == code
}
