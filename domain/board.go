package domain

// DragEnd describes where a dragged card was released. OverID names the card
// it was dropped on; when empty, OverColumn names the column area instead.
type DragEnd struct {
	ActiveID   string
	OverID     string
	OverColumn Status
}

type DropKind int

const (
	DropNone DropKind = iota
	DropReorder
	DropMove
)

// DropPlan is the repository work a drag end translates into.
type DropPlan struct {
	Kind   DropKind
	TaskID string
	// Status is the column that receives the task.
	Status Status
	// Tasks is the destination column in its new order for DropReorder.
	Tasks []Task
	// Patch moves the task for DropMove.
	Patch Patch
	// Source is the remaining source column for DropMove, to be compacted.
	Source []Task
}

// PlanDrop computes the effect of a drag end on tasks. Dropping within a
// column moves the card to the target position. Dropping into another column
// appends the card to the end of that column.
func PlanDrop(tasks []Task, ev DragEnd) DropPlan {
	var active *Task
	var over *Task
	for i := range tasks {
		switch tasks[i].ID {
		case ev.ActiveID:
			active = &tasks[i]
		case ev.OverID:
			over = &tasks[i]
		}
	}
	if active == nil || ev.ActiveID == ev.OverID {
		return DropPlan{}
	}

	target := ev.OverColumn
	if over != nil {
		target = over.Status
	}
	if !target.Valid() {
		return DropPlan{}
	}

	if target == active.Status {
		col := Column(tasks, target)
		from, to := -1, len(col)-1
		for i, t := range col {
			if t.ID == active.ID {
				from = i
			}
			if over != nil && t.ID == over.ID {
				to = i
			}
		}
		if from == to {
			return DropPlan{}
		}
		return DropPlan{
			Kind:   DropReorder,
			TaskID: active.ID,
			Status: target,
			Tasks:  MoveIndex(col, from, to),
		}
	}

	dest := Column(tasks, target)
	order := len(dest)
	source := Column(tasks, active.Status)
	remaining := make([]Task, 0, len(source))
	for _, t := range source {
		if t.ID != active.ID {
			remaining = append(remaining, t)
		}
	}
	return DropPlan{
		Kind:   DropMove,
		TaskID: active.ID,
		Status: target,
		Patch:  Patch{Status: &target, Order: &order},
		Source: remaining,
	}
}
