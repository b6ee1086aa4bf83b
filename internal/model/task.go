package model

import (
	"fmt"
	"strings"
	"time"

	"hunnydu/internal/schedule"
)

// Subtask limits per task.
const (
	MaxSubtasks = 5
	MinSubtasks = 1
)

// Task is a recurring chore. It owns its subtasks and is loaded, mutated and
// saved as one unit.
type Task struct {
	ID         uint            `gorm:"primaryKey"`
	Name       string          `gorm:"not null"`
	Period     schedule.Period `gorm:"size:7;not null"`
	AssigneeID uint            `gorm:"index;not null"`
	Assignee   *User           `gorm:"foreignKey:AssigneeID"`
	NextDue    time.Time       `gorm:"index;not null"`
	Subtasks   []Subtask       `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Subtask is one checklist item of a task.
type Subtask struct {
	ID         uint   `gorm:"primaryKey"`
	TaskID     uint   `gorm:"index;not null"`
	Name       string `gorm:"not null"`
	IsComplete bool   `gorm:"default:false"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// CompletionEvent is emitted when the last open subtask of a task is completed.
type CompletionEvent struct {
	TaskID       uint
	TaskName     string
	AssigneeID   uint
	AssigneeName string
	FamilyID     *uint
	NextDue      time.Time
	CompletedAt  time.Time
}

// Outcome reports what a subtask operation did to its task.
type Outcome struct {
	// Changed is false when the call was a no-op, e.g. completing a subtask
	// that was already complete.
	Changed bool
	// TaskCompleted is set when the call closed the whole checklist and the
	// due date rolled forward.
	TaskCompleted bool
	PreviousDue   time.Time
}

// NewTask validates the input and computes the first due date from now.
// A task without explicit subtasks gets a single subtask carrying its name.
func NewTask(name string, period schedule.Period, assigneeID uint, subtaskNames []string, now time.Time) (*Task, error) {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return nil, fmt.Errorf("%w: name is required", ErrInvalidTask)
	case !period.Valid():
		return nil, fmt.Errorf("%w: period %q", ErrInvalidTask, string(period))
	case assigneeID == 0:
		return nil, fmt.Errorf("%w: assignee is required", ErrInvalidTask)
	}

	var subtasks []Subtask
	for _, raw := range subtaskNames {
		if st := strings.TrimSpace(raw); st != "" {
			subtasks = append(subtasks, Subtask{Name: st})
		}
	}
	if len(subtasks) > MaxSubtasks {
		return nil, fmt.Errorf("%w: %d subtasks, at most %d allowed", ErrCapacityExceeded, len(subtasks), MaxSubtasks)
	}
	if len(subtasks) == 0 {
		subtasks = []Subtask{{Name: name}}
	}

	return &Task{
		Name:       name,
		Period:     period,
		AssigneeID: assigneeID,
		NextDue:    schedule.InitialDue(period, now),
		Subtasks:   subtasks,
	}, nil
}

// Overdue reports whether the due date has passed at now.
func (t *Task) Overdue(now time.Time) bool {
	return t.NextDue.Before(now)
}

// AllComplete reports whether every subtask is checked off.
func (t *Task) AllComplete() bool {
	if len(t.Subtasks) == 0 {
		return false
	}
	for _, st := range t.Subtasks {
		if !st.IsComplete {
			return false
		}
	}
	return true
}

func (t *Task) subtask(id uint) (*Subtask, error) {
	for i := range t.Subtasks {
		if t.Subtasks[i].ID == id {
			return &t.Subtasks[i], nil
		}
	}
	return nil, fmt.Errorf("subtask %d of task %d: %w", id, t.ID, ErrNotFound)
}

// AddSubtask appends a new open subtask.
func (t *Task) AddSubtask(name string) (*Subtask, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: subtask name is required", ErrInvalidTask)
	}
	if len(t.Subtasks) >= MaxSubtasks {
		return nil, fmt.Errorf("task %d: %w", t.ID, ErrCapacityExceeded)
	}
	t.Subtasks = append(t.Subtasks, Subtask{TaskID: t.ID, Name: name})
	return &t.Subtasks[len(t.Subtasks)-1], nil
}

// RemoveSubtask drops a subtask and re-checks the checklist, since removing
// the last open item can complete the task.
func (t *Task) RemoveSubtask(id uint, now time.Time) (Outcome, error) {
	if _, err := t.subtask(id); err != nil {
		return Outcome{}, err
	}
	if len(t.Subtasks) <= MinSubtasks {
		return Outcome{}, fmt.Errorf("task %d: %w", t.ID, ErrMinimumViolation)
	}
	kept := t.Subtasks[:0]
	for _, st := range t.Subtasks {
		if st.ID != id {
			kept = append(kept, st)
		}
	}
	t.Subtasks = kept

	out := Outcome{Changed: true, PreviousDue: t.NextDue}
	out.TaskCompleted = t.DetermineCompletion(now)
	return out, nil
}

// CompleteSubtask checks off a subtask and runs the completion cascade.
func (t *Task) CompleteSubtask(id uint, now time.Time) (Outcome, error) {
	st, err := t.subtask(id)
	if err != nil {
		return Outcome{}, err
	}
	out := Outcome{PreviousDue: t.NextDue}
	if st.IsComplete {
		return out, nil
	}
	st.IsComplete = true
	out.Changed = true
	out.TaskCompleted = t.DetermineCompletion(now)
	return out, nil
}

// UncompleteSubtask reopens a subtask. The due date is never rolled back.
func (t *Task) UncompleteSubtask(id uint) (Outcome, error) {
	st, err := t.subtask(id)
	if err != nil {
		return Outcome{}, err
	}
	out := Outcome{PreviousDue: t.NextDue}
	if !st.IsComplete {
		return out, nil
	}
	st.IsComplete = false
	out.Changed = true
	return out, nil
}

// DetermineCompletion completes the task when every subtask is done.
func (t *Task) DetermineCompletion(now time.Time) bool {
	if !t.AllComplete() {
		return false
	}
	t.Complete(now)
	return true
}

// Complete reopens the checklist and moves the due date to the next cycle.
func (t *Task) Complete(now time.Time) {
	for i := range t.Subtasks {
		t.Subtasks[i].IsComplete = false
	}
	t.NextDue = schedule.Advance(t.Period, t.NextDue, now)
}

// CompletionEvent describes the completion that just happened at now.
func (t *Task) CompletionEvent(now time.Time) CompletionEvent {
	ev := CompletionEvent{
		TaskID:      t.ID,
		TaskName:    t.Name,
		AssigneeID:  t.AssigneeID,
		NextDue:     t.NextDue,
		CompletedAt: now,
	}
	if t.Assignee != nil {
		ev.AssigneeName = t.Assignee.Username
		ev.FamilyID = t.Assignee.FamilyID
	}
	return ev
}
