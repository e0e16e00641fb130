package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status names the column a task belongs to.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
)

// Statuses lists the board columns from left to right.
var Statuses = []Status{StatusTodo, StatusInProgress, StatusCompleted}

func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

type Category string

const (
	CategoryWork     Category = "work"
	CategoryPersonal Category = "personal"
	CategoryUrgent   Category = "urgent"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryWork, CategoryPersonal, CategoryUrgent:
		return true
	}
	return false
}

// DueDateLayout is the date format produced by the board's date picker.
const DueDateLayout = "2006-01-02"

// Task represents a single board item.
type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Priority    Priority  `json:"priority"`
	Category    Category  `json:"category"`
	Status      Status    `json:"status"`
	DueDate     string    `json:"dueDate"`
	Order       int       `json:"order"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Draft carries the caller supplied fields of a task that does not exist yet.
type Draft struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    Priority `json:"priority"`
	Category    Category `json:"category"`
	Status      Status   `json:"status"`
	DueDate     string   `json:"dueDate"`
	Order       int      `json:"order"`
}

// Patch is a partial update. Nil fields are left untouched. Identity and
// timestamp fields may be present on the wire and are ignored.
type Patch struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	Priority    *Priority `json:"priority,omitempty"`
	Category    *Category `json:"category,omitempty"`
	Status      *Status   `json:"status,omitempty"`
	DueDate     *string   `json:"dueDate,omitempty"`
	Order       *int      `json:"order,omitempty"`
}

// Empty reports whether the patch carries no field changes.
func (p Patch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Priority == nil && p.Category == nil &&
		p.Status == nil && p.DueDate == nil && p.Order == nil
}

// Validate checks the draft before a task is created from it.
func (d Draft) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return &ValidationError{Field: "title", Reason: "required"}
	}
	if strings.TrimSpace(d.Description) == "" {
		return &ValidationError{Field: "description", Reason: "required"}
	}
	if d.Status == "" {
		return &ValidationError{Field: "status", Reason: "required"}
	}
	if !d.Status.Valid() {
		return &ValidationError{Field: "status", Reason: "unknown value " + string(d.Status)}
	}
	if d.Priority != "" && !d.Priority.Valid() {
		return &ValidationError{Field: "priority", Reason: "unknown value " + string(d.Priority)}
	}
	if d.Category != "" && !d.Category.Valid() {
		return &ValidationError{Field: "category", Reason: "unknown value " + string(d.Category)}
	}
	if err := validateDueDate(d.DueDate); err != nil {
		return err
	}
	if d.Order < 0 {
		return &ValidationError{Field: "order", Reason: "must not be negative"}
	}
	return nil
}

// Validate checks every field the patch sets.
func (p Patch) Validate() error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if p.Description != nil && strings.TrimSpace(*p.Description) == "" {
		return &ValidationError{Field: "description", Reason: "must not be empty"}
	}
	if p.Status != nil && !p.Status.Valid() {
		return &ValidationError{Field: "status", Reason: "unknown value " + string(*p.Status)}
	}
	if p.Priority != nil && !p.Priority.Valid() {
		return &ValidationError{Field: "priority", Reason: "unknown value " + string(*p.Priority)}
	}
	if p.Category != nil && !p.Category.Valid() {
		return &ValidationError{Field: "category", Reason: "unknown value " + string(*p.Category)}
	}
	if p.DueDate != nil {
		if err := validateDueDate(*p.DueDate); err != nil {
			return err
		}
	}
	if p.Order != nil && *p.Order < 0 {
		return &ValidationError{Field: "order", Reason: "must not be negative"}
	}
	return nil
}

func validateDueDate(v string) error {
	if v == "" {
		return nil
	}
	if _, err := time.Parse(DueDateLayout, v); err == nil {
		return nil
	}
	if _, err := time.Parse(time.RFC3339, v); err == nil {
		return nil
	}
	return &ValidationError{Field: "dueDate", Reason: "expected YYYY-MM-DD or RFC 3339"}
}

// NewTask validates the draft and builds a task with a fresh id. Empty
// priority and category fall back to medium and work.
func NewTask(d Draft, now time.Time) (Task, error) {
	if err := d.Validate(); err != nil {
		return Task{}, err
	}
	if d.Priority == "" {
		d.Priority = PriorityMedium
	}
	if d.Category == "" {
		d.Category = CategoryWork
	}
	return Task{
		ID:          uuid.NewString(),
		Title:       d.Title,
		Description: d.Description,
		Priority:    d.Priority,
		Category:    d.Category,
		Status:      d.Status,
		DueDate:     d.DueDate,
		Order:       d.Order,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Apply merges the patch into t and stamps updatedAt. The id and createdAt
// are never changed.
func (p Patch) Apply(t Task, now time.Time) Task {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.DueDate != nil {
		t.DueDate = *p.DueDate
	}
	if p.Order != nil {
		t.Order = *p.Order
	}
	t.UpdatedAt = now
	return t
}
