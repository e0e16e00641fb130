package storage

import (
	"context"
	"errors"
	"reflect"
	"slices"
	"testing"

	"taskboard/domain"
)

// runRepositoryContract exercises the behaviour every backend must share.
func runRepositoryContract(t *testing.T, newRepo func(t *testing.T) domain.Repository) {
	t.Helper()
	ctx := context.Background()

	t.Run("create assigns identity", func(t *testing.T) {
		repo := newRepo(t)
		a, err := repo.Create(ctx, domain.Draft{Title: "Buy milk", Description: "2L", Status: domain.StatusTodo})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		b, err := repo.Create(ctx, domain.Draft{Title: "Buy bread", Description: "rye", Status: domain.StatusTodo})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if a.ID == "" || a.ID == b.ID {
			t.Fatalf("expected unique ids, got %q %q", a.ID, b.ID)
		}
		if !a.CreatedAt.Equal(a.UpdatedAt) {
			t.Fatalf("expected createdAt == updatedAt")
		}
		got, err := repo.Get(ctx, a.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Title != "Buy milk" || !got.CreatedAt.Equal(a.CreatedAt) {
			t.Fatalf("unexpected stored task: %#v", got)
		}
	})

	t.Run("create rejects invalid drafts", func(t *testing.T) {
		repo := newRepo(t)
		for _, d := range []domain.Draft{
			{Description: "d", Status: domain.StatusTodo},
			{Title: "t", Status: domain.StatusTodo},
			{Title: "t", Description: "d"},
		} {
			if _, err := repo.Create(ctx, d); !domain.IsValidation(err) {
				t.Fatalf("expected validation error for %#v, got %v", d, err)
			}
		}
		tasks, err := repo.List(ctx)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(tasks) != 0 {
			t.Fatalf("expected empty store, got %d tasks", len(tasks))
		}
	})

	t.Run("update merges and refreshes updatedAt", func(t *testing.T) {
		repo := newRepo(t)
		created, err := repo.Create(ctx, domain.Draft{Title: "t", Description: "d", Status: domain.StatusTodo, Priority: domain.PriorityLow})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		status := domain.StatusCompleted
		updated, err := repo.Update(ctx, created.ID, domain.Patch{Status: &status})
		if err != nil {
			t.Fatalf("update: %v", err)
		}
		if updated.ID != created.ID || !updated.CreatedAt.Equal(created.CreatedAt) {
			t.Fatalf("identity changed: %#v", updated)
		}
		if updated.Status != domain.StatusCompleted || updated.Priority != domain.PriorityLow || updated.Title != "t" {
			t.Fatalf("unexpected merge: %#v", updated)
		}
		if !updated.UpdatedAt.After(created.UpdatedAt) {
			t.Fatalf("expected updatedAt to advance: %v -> %v", created.UpdatedAt, updated.UpdatedAt)
		}
	})

	t.Run("update and get unknown id", func(t *testing.T) {
		repo := newRepo(t)
		title := "x"
		if _, err := repo.Update(ctx, "missing", domain.Patch{Title: &title}); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected not found on update, got %v", err)
		}
		if _, err := repo.Get(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected not found on get, got %v", err)
		}
	})

	t.Run("delete first task and unknown id", func(t *testing.T) {
		repo := newRepo(t)
		first, err := repo.Create(ctx, domain.Draft{Title: "first", Description: "d", Status: domain.StatusTodo})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		second, err := repo.Create(ctx, domain.Draft{Title: "second", Description: "d", Status: domain.StatusTodo})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if err := repo.Delete(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
		if err := repo.Delete(ctx, first.ID); err != nil {
			t.Fatalf("delete first: %v", err)
		}
		tasks, err := repo.List(ctx)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if ids := domain.IDs(tasks); !reflect.DeepEqual(ids, []string{second.ID}) {
			t.Fatalf("unexpected remaining tasks: %v", ids)
		}
	})

	t.Run("create then delete restores the set", func(t *testing.T) {
		repo := newRepo(t)
		if _, err := repo.Create(ctx, domain.Draft{Title: "keep", Description: "d", Status: domain.StatusTodo}); err != nil {
			t.Fatalf("create: %v", err)
		}
		before, _ := repo.List(ctx)
		tmp, err := repo.Create(ctx, domain.Draft{Title: "tmp", Description: "d", Status: domain.StatusTodo})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if err := repo.Delete(ctx, tmp.ID); err != nil {
			t.Fatalf("delete: %v", err)
		}
		after, _ := repo.List(ctx)
		a, b := domain.IDs(before), domain.IDs(after)
		slices.Sort(a)
		slices.Sort(b)
		if !reflect.DeepEqual(a, b) {
			t.Fatalf("set changed: %v -> %v", a, b)
		}
	})

	t.Run("reorder ranks the listed column only", func(t *testing.T) {
		repo := newRepo(t)
		mk := func(title string, status domain.Status, order int) domain.Task {
			task, err := repo.Create(ctx, domain.Draft{Title: title, Description: "d", Status: status, Order: order})
			if err != nil {
				t.Fatalf("create %s: %v", title, err)
			}
			return task
		}
		a := mk("A", domain.StatusTodo, 0)
		b := mk("B", domain.StatusTodo, 1)
		c := mk("C", domain.StatusTodo, 2)
		x := mk("X", domain.StatusCompleted, 0)

		updated, err := repo.Reorder(ctx, domain.StatusTodo, []string{c.ID, a.ID, b.ID, "missing"})
		if err != nil {
			t.Fatalf("reorder: %v", err)
		}
		if ids := domain.IDs(updated); !reflect.DeepEqual(ids, []string{c.ID, a.ID, b.ID}) {
			t.Fatalf("unexpected reorder result: %v", ids)
		}
		want := map[string]int{a.ID: 1, b.ID: 2, c.ID: 0, x.ID: 0}
		tasks, err := repo.List(ctx)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		for _, task := range tasks {
			if task.Order != want[task.ID] {
				t.Fatalf("task %s order = %d, want %d", task.Title, task.Order, want[task.ID])
			}
			if task.ID == x.ID && (task.Status != domain.StatusCompleted || !task.UpdatedAt.Equal(x.UpdatedAt)) {
				t.Fatalf("other column touched: %#v", task)
			}
			if task.ID == a.ID && task.Title != "A" {
				t.Fatalf("reorder lost fields: %#v", task)
			}
		}
	})

	t.Run("reorder validates input", func(t *testing.T) {
		repo := newRepo(t)
		if _, err := repo.Reorder(ctx, "", []string{}); !domain.IsValidation(err) {
			t.Fatalf("expected validation error, got %v", err)
		}
		if _, err := repo.Reorder(ctx, domain.StatusTodo, nil); !domain.IsValidation(err) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})
}
