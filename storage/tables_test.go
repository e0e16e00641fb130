package storage

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/google/uuid"

	"taskboard/domain"
)

func TestPartitionFilterEscapesQuotes(t *testing.T) {
	cases := map[string]string{
		"board":       "PartitionKey eq 'board'",
		"bob's":       "PartitionKey eq 'bob''s'",
		"' or 1 eq 1": "PartitionKey eq ''' or 1 eq 1'",
	}
	for board, want := range cases {
		if got := partitionFilter(board); got != want {
			t.Fatalf("partitionFilter(%q) = %q, want %q", board, got, want)
		}
	}
}

func TestTaskEntityRoundTrip(t *testing.T) {
	s := &TableStore{board: "board"}
	created := time.UnixMicro(1_700_000_000_123_456).UTC()
	task := domain.Task{
		ID: "t1", Title: "Title", Description: "Desc", Priority: domain.PriorityHigh,
		Category: domain.CategoryUrgent, Status: domain.StatusInProgress, DueDate: "2025-02-01",
		Order: 3, CreatedAt: created, UpdatedAt: created.Add(time.Second),
	}

	payload, err := json.Marshal(s.toEntity(task))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, want := range []string{`"PartitionKey":"board"`, `"RowKey":"t1"`, `"CreatedAt@odata.type":"Edm.Int64"`, `"CreatedAt":"1700000000123456"`} {
		if !strings.Contains(string(payload), want) {
			t.Fatalf("expected %s in %s", want, payload)
		}
	}

	got, err := decodeTaskEntity(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !got.CreatedAt.Equal(task.CreatedAt) || !got.UpdatedAt.Equal(task.UpdatedAt) {
		t.Fatalf("timestamps mismatch: %v %v", got.CreatedAt, got.UpdatedAt)
	}
	got.CreatedAt, got.UpdatedAt = task.CreatedAt, task.UpdatedAt
	if got != task {
		t.Fatalf("round trip mismatch:\n got %#v\nwant %#v", got, task)
	}
}

func TestIsStatus(t *testing.T) {
	err := &azcore.ResponseError{StatusCode: http.StatusPreconditionFailed}
	if !isStatus(err, http.StatusPreconditionFailed) {
		t.Fatalf("expected precondition failed to match")
	}
	if isStatus(errors.New("plain"), http.StatusNotFound) {
		t.Fatalf("plain errors must not match")
	}
}

// TestTableStoreContract runs against Azurite or a real account when
// STORAGE_CONNECTION_STRING_LOCAL is set.
func TestTableStoreContract(t *testing.T) {
	connStr := os.Getenv("STORAGE_CONNECTION_STRING_LOCAL")
	if connStr == "" {
		t.Skip("STORAGE_CONNECTION_STRING_LOCAL not set")
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, nil)
	if err != nil {
		t.Fatalf("service client: %v", err)
	}
	table := "tasks" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	if _, err := svc.CreateTable(context.Background(), table, nil); err != nil {
		t.Fatalf("create table: %v", err)
	}
	t.Cleanup(func() { _, _ = svc.DeleteTable(context.Background(), table, nil) })

	runRepositoryContract(t, func(t *testing.T) domain.Repository {
		store, err := NewTableStore(connStr, table, uuid.NewString())
		if err != nil {
			t.Fatalf("new table store: %v", err)
		}
		return store
	})
}
