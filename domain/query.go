package domain

import "strings"

// Query narrows a task list the way the board toolbar does.
type Query struct {
	Search   string
	Category Category
	Status   Status
}

// CategoryAll disables category filtering.
const CategoryAll Category = "all"

// Filter returns the tasks matching q. Search is a case-insensitive
// substring match on title and description.
func Filter(tasks []Task, q Query) []Task {
	needle := strings.ToLower(strings.TrimSpace(q.Search))
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if q.Category != "" && q.Category != CategoryAll && t.Category != q.Category {
			continue
		}
		if q.Status != "" && t.Status != q.Status {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(t.Title), needle) &&
			!strings.Contains(strings.ToLower(t.Description), needle) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Stats counts tasks per column.
type Stats struct {
	Total      int `json:"total"`
	Todo       int `json:"todo"`
	InProgress int `json:"inProgress"`
	Completed  int `json:"completed"`
}

func Summarize(tasks []Task) Stats {
	s := Stats{Total: len(tasks)}
	for _, t := range tasks {
		switch t.Status {
		case StatusTodo:
			s.Todo++
		case StatusInProgress:
			s.InProgress++
		case StatusCompleted:
			s.Completed++
		}
	}
	return s
}
