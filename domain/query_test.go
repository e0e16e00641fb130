package domain

import (
	"reflect"
	"testing"
)

func TestFilter(t *testing.T) {
	tasks := []Task{
		{ID: "1", Title: "Buy milk", Description: "2L", Category: CategoryPersonal, Status: StatusTodo},
		{ID: "2", Title: "Deploy", Description: "ship the MILK service", Category: CategoryWork, Status: StatusCompleted},
		{ID: "3", Title: "Call bank", Description: "loan", Category: CategoryUrgent, Status: StatusTodo},
	}
	tests := []struct {
		name string
		q    Query
		want []string
	}{
		{name: "no filter", q: Query{}, want: []string{"1", "2", "3"}},
		{name: "all category", q: Query{Category: CategoryAll}, want: []string{"1", "2", "3"}},
		{name: "search title and description", q: Query{Search: "milk"}, want: []string{"1", "2"}},
		{name: "search and category", q: Query{Search: "milk", Category: CategoryWork}, want: []string{"2"}},
		{name: "status", q: Query{Status: StatusTodo}, want: []string{"1", "3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IDs(Filter(tasks, tt.q)); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Filter(%+v) = %v, want %v", tt.q, got, tt.want)
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	got := Summarize([]Task{{Status: StatusTodo}, {Status: StatusCompleted}, {Status: StatusCompleted}, {Status: StatusInProgress}})
	want := Stats{Total: 4, Todo: 1, InProgress: 1, Completed: 2}
	if got != want {
		t.Fatalf("Summarize = %+v, want %+v", got, want)
	}
}
