package model

import (
	"errors"
	"testing"
	"time"

	"hunnydu/internal/schedule"
)

var created = time.Date(2021, 1, 4, 9, 0, 0, 0, time.UTC) // Monday

func newTestTask(t *testing.T, period schedule.Period, names ...string) *Task {
	t.Helper()
	task, err := NewTask("dishes", period, 1, names, created)
	if err != nil {
		t.Fatalf("NewTask returned error: %v", err)
	}
	task.ID = 10
	for i := range task.Subtasks {
		task.Subtasks[i].ID = uint(i + 1)
		task.Subtasks[i].TaskID = task.ID
	}
	return task
}

func TestNewTaskValidation(t *testing.T) {
	cases := []struct {
		name     string
		taskName string
		period   schedule.Period
		assignee uint
		subtasks []string
		want     error
	}{
		{"missing name", " ", schedule.Daily, 1, nil, ErrInvalidTask},
		{"missing period", "x", "", 1, nil, ErrInvalidTask},
		{"unknown period", "x", "y", 1, nil, ErrInvalidTask},
		{"missing assignee", "x", schedule.Daily, 0, nil, ErrInvalidTask},
		{"too many subtasks", "x", schedule.Daily, 1, []string{"a", "b", "c", "d", "e", "f"}, ErrCapacityExceeded},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewTask(tc.taskName, tc.period, tc.assignee, tc.subtasks, created)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestNewTaskDefaultsAndDueDate(t *testing.T) {
	task := newTestTask(t, schedule.Weekly)
	if len(task.Subtasks) != 1 || task.Subtasks[0].Name != "dishes" {
		t.Fatalf("expected a single default subtask, got %+v", task.Subtasks)
	}
	want := time.Date(2021, 1, 9, 23, 59, 59, 0, time.UTC)
	if !task.NextDue.Equal(want) {
		t.Fatalf("expected due %v, got %v", want, task.NextDue)
	}
}

func TestCompletionCascade(t *testing.T) {
	task := newTestTask(t, schedule.Daily, "wash", "dry")
	firstDue := task.NextDue
	now := created.Add(2 * time.Hour)

	out, err := task.CompleteSubtask(1, now)
	if err != nil {
		t.Fatalf("complete subtask 1: %v", err)
	}
	if !out.Changed || out.TaskCompleted {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if !task.Subtasks[0].IsComplete || task.Subtasks[1].IsComplete {
		t.Fatalf("unexpected subtask state %+v", task.Subtasks)
	}
	if !task.NextDue.Equal(firstDue) {
		t.Fatalf("due date moved after partial completion: %v", task.NextDue)
	}

	out, err = task.CompleteSubtask(2, now)
	if err != nil {
		t.Fatalf("complete subtask 2: %v", err)
	}
	if !out.TaskCompleted || !out.PreviousDue.Equal(firstDue) {
		t.Fatalf("expected task completion, got %+v", out)
	}
	for _, st := range task.Subtasks {
		if st.IsComplete {
			t.Fatalf("subtask %d was not reset", st.ID)
		}
	}
	want := time.Date(2021, 1, 5, 23, 59, 59, 0, time.UTC)
	if !task.NextDue.Equal(want) {
		t.Fatalf("expected due %v, got %v", want, task.NextDue)
	}
}

func TestCompleteAlreadyCompleteIsNoop(t *testing.T) {
	task := newTestTask(t, schedule.Weekly, "wash", "dry")
	if _, err := task.CompleteSubtask(1, created); err != nil {
		t.Fatal(err)
	}
	due := task.NextDue
	out, err := task.CompleteSubtask(1, created)
	if err != nil {
		t.Fatal(err)
	}
	if out.Changed || out.TaskCompleted {
		t.Fatalf("expected no-op, got %+v", out)
	}
	if !task.NextDue.Equal(due) || !task.Subtasks[0].IsComplete || task.Subtasks[1].IsComplete {
		t.Fatalf("state changed on no-op: %+v", task)
	}
}

func TestUncompleteSubtask(t *testing.T) {
	task := newTestTask(t, schedule.Daily, "wash", "dry")
	out, err := task.UncompleteSubtask(1)
	if err != nil {
		t.Fatal(err)
	}
	if out.Changed {
		t.Fatal("uncompleting an open subtask should be a no-op")
	}
	if _, err := task.CompleteSubtask(1, created); err != nil {
		t.Fatal(err)
	}
	due := task.NextDue
	out, err = task.UncompleteSubtask(1)
	if err != nil {
		t.Fatal(err)
	}
	if !out.Changed || task.Subtasks[0].IsComplete {
		t.Fatalf("expected subtask reopened, got %+v", task.Subtasks[0])
	}
	if !task.NextDue.Equal(due) {
		t.Fatal("uncomplete must not touch the due date")
	}
}

func TestSubtaskNotFound(t *testing.T) {
	task := newTestTask(t, schedule.Daily)
	if _, err := task.CompleteSubtask(99, created); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := task.UncompleteSubtask(99); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := task.RemoveSubtask(99, created); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAddSubtaskCapacity(t *testing.T) {
	task := newTestTask(t, schedule.Daily, "a", "b", "c", "d")
	if _, err := task.AddSubtask("e"); err != nil {
		t.Fatalf("fifth subtask rejected: %v", err)
	}
	if _, err := task.AddSubtask("f"); !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}
	if len(task.Subtasks) != MaxSubtasks {
		t.Fatalf("expected %d subtasks, got %d", MaxSubtasks, len(task.Subtasks))
	}
}

func TestRemoveSubtaskFloor(t *testing.T) {
	task := newTestTask(t, schedule.Daily, "only")
	if _, err := task.RemoveSubtask(1, created); !errors.Is(err, ErrMinimumViolation) {
		t.Fatalf("expected ErrMinimumViolation, got %v", err)
	}
	if len(task.Subtasks) != 1 {
		t.Fatal("subtask removed despite rejection")
	}
}

func TestRemoveOpenSubtaskCompletesTask(t *testing.T) {
	task := newTestTask(t, schedule.Monthly, "wash", "dry")
	if _, err := task.CompleteSubtask(1, created); err != nil {
		t.Fatal(err)
	}
	out, err := task.RemoveSubtask(2, created)
	if err != nil {
		t.Fatal(err)
	}
	if !out.TaskCompleted {
		t.Fatal("removing the last open subtask should complete the task")
	}
	if len(task.Subtasks) != 1 || task.Subtasks[0].IsComplete {
		t.Fatalf("unexpected subtasks after cascade: %+v", task.Subtasks)
	}
	want := time.Date(2021, 3, 1, 23, 59, 59, 0, time.UTC)
	if !task.NextDue.Equal(want) {
		t.Fatalf("expected due %v, got %v", want, task.NextDue)
	}
}

func TestCompletionEvent(t *testing.T) {
	family := uint(3)
	task := newTestTask(t, schedule.Daily)
	task.Assignee = &User{ID: 1, Username: "sam", FamilyID: &family}
	ev := task.CompletionEvent(created)
	if ev.TaskID != 10 || ev.AssigneeName != "sam" || ev.FamilyID == nil || *ev.FamilyID != 3 {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestActorCapabilities(t *testing.T) {
	member := Actor{UserID: 1, Capabilities: CapabilitiesForRole(RoleUser)}
	if err := member.Require(CapComplete); err != nil {
		t.Fatalf("member should complete: %v", err)
	}
	if err := member.Require(CapCreate); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	admin := Actor{UserID: 2, Capabilities: []Capability{CapAdmin}}
	if err := admin.Require(CapCreate, CapManage); err != nil {
		t.Fatalf("admin should pass every check: %v", err)
	}
}

func TestUserLocalNow(t *testing.T) {
	now := time.Date(2021, 1, 8, 20, 0, 0, 0, time.UTC)
	cases := []struct {
		offset int
		want   time.Time
	}{
		{0, now},
		{-600, time.Date(2021, 1, 9, 6, 0, 0, 0, time.UTC)},
		{300, time.Date(2021, 1, 8, 15, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		if got := (User{TZOffset: tc.offset}).LocalNow(now); !got.Equal(tc.want) {
			t.Fatalf("offset %d: LocalNow = %v, want %v", tc.offset, got, tc.want)
		}
	}
	if ValidTZOffset(MaxTZOffset+1) || !ValidTZOffset(-MaxTZOffset) {
		t.Fatal("ValidTZOffset bounds are wrong")
	}
}
