package domain

import (
	"slices"
	"time"
)

// SortByOrder sorts tasks by order ascending. Ties keep the older task first.
func SortByOrder(tasks []Task) {
	slices.SortStableFunc(tasks, func(a, b Task) int {
		if a.Order != b.Order {
			return a.Order - b.Order
		}
		return a.CreatedAt.Compare(b.CreatedAt)
	})
}

// Column returns a sorted copy of the tasks that belong to status.
func Column(tasks []Task, status Status) []Task {
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if t.Status == status {
			out = append(out, t)
		}
	}
	SortByOrder(out)
	return out
}

// MoveIndex returns a copy of items with the element at from moved to to.
// Out of range indexes return an unchanged copy.
func MoveIndex[T any](items []T, from, to int) []T {
	out := slices.Clone(items)
	if from < 0 || from >= len(out) || to < 0 || to >= len(out) || from == to {
		return out
	}
	item := out[from]
	out = slices.Delete(out, from, from+1)
	return slices.Insert(out, to, item)
}

// IDs extracts task ids keeping their order.
func IDs(tasks []Task) []string {
	ids := make([]string, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	return ids
}

// ApplyReorder rewrites status, order and updatedAt for every task of all
// whose id is listed in ids. Unknown ids are skipped and duplicates keep
// their first position. It returns the full collection and the updated
// subset sorted by order.
func ApplyReorder(all []Task, status Status, ids []string, now time.Time) ([]Task, []Task) {
	pos := make(map[string]int, len(ids))
	for i, id := range ids {
		if _, dup := pos[id]; !dup {
			pos[id] = i
		}
	}
	out := slices.Clone(all)
	updated := make([]Task, 0, len(ids))
	for i := range out {
		p, ok := pos[out[i].ID]
		if !ok {
			continue
		}
		out[i].Status = status
		out[i].Order = p
		out[i].UpdatedAt = now
		updated = append(updated, out[i])
	}
	SortByOrder(updated)
	return out, updated
}
