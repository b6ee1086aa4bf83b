package api

import (
	"time"

	"hunnydu/internal/model"
)

// localeDate matches the short date clients already parse (MM/DD/YY).
const localeDate = "01/02/06"

type SubtaskView struct {
	ID         uint   `json:"id"`
	TaskID     uint   `json:"task_id"`
	Name       string `json:"subtask_name"`
	IsComplete bool   `json:"is_complete"`
}

type TaskView struct {
	ID         uint          `json:"id"`
	Name       string        `json:"taskname"`
	Period     string        `json:"period"`
	NextDue    string        `json:"next_due"`
	Overdue    bool          `json:"overdue"`
	Subtasks   []SubtaskView `json:"subtasks"`
	Assignee   string        `json:"assignee"`
	AssigneeID uint          `json:"assignee_id"`
}

type OutcomeView struct {
	Changed       bool `json:"changed"`
	TaskCompleted bool `json:"task_completed"`
}

func newSubtaskView(st model.Subtask) SubtaskView {
	return SubtaskView{ID: st.ID, TaskID: st.TaskID, Name: st.Name, IsComplete: st.IsComplete}
}

func newTaskView(task model.Task, now time.Time) TaskView {
	view := TaskView{
		ID:         task.ID,
		Name:       task.Name,
		Period:     task.Period.String(),
		NextDue:    task.NextDue.Format(localeDate),
		Overdue:    task.Overdue(now),
		Subtasks:   make([]SubtaskView, 0, len(task.Subtasks)),
		AssigneeID: task.AssigneeID,
	}
	if task.Assignee != nil {
		view.Assignee = task.Assignee.Username
	}
	for _, st := range task.Subtasks {
		view.Subtasks = append(view.Subtasks, newSubtaskView(st))
	}
	return view
}

func newTaskViews(tasks []model.Task, now time.Time) []TaskView {
	views := make([]TaskView, 0, len(tasks))
	for _, task := range tasks {
		views = append(views, newTaskView(task, now))
	}
	return views
}
