package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"hunnydu/internal/model"
	"hunnydu/internal/repository"
)

const dueSoonWindow = 48 * time.Hour

// ReminderService builds human-readable summaries for periodic notifications.
type ReminderService struct {
	taskRepo *repository.TaskRepository
}

func NewReminderService(taskRepo *repository.TaskRepository) *ReminderService {
	return &ReminderService{taskRepo: taskRepo}
}

// Digest lists the user's overdue tasks and the ones due within two days.
// It reports false when there is nothing worth sending.
func (s *ReminderService) Digest(ctx context.Context, user model.User, now time.Time) (string, bool, error) {
	tasks, err := s.taskRepo.ListByAssignee(ctx, user.ID)
	if err != nil {
		return "", false, err
	}

	var overdue, dueSoon []model.Task
	for _, task := range tasks {
		switch {
		case task.Overdue(now):
			overdue = append(overdue, task)
		case task.NextDue.Sub(now) <= dueSoonWindow:
			dueSoon = append(dueSoon, task)
		}
	}
	if len(overdue) == 0 && len(dueSoon) == 0 {
		return "", false, nil
	}

	var builder strings.Builder
	builder.WriteString("📋 <b>Chore digest</b>\n")
	builder.WriteString(fmt.Sprintf("🗓 %s\n\n", now.Format("01/02/2006")))

	builder.WriteString("⚠️ <b>Overdue</b>\n")
	if len(overdue) == 0 {
		builder.WriteString("— nothing overdue\n")
	}
	for _, task := range overdue {
		builder.WriteString(FormatTask(task, now))
	}

	builder.WriteString("\n⏳ <b>Due soon</b>\n")
	if len(dueSoon) == 0 {
		builder.WriteString("— nothing due in the next two days\n")
	}
	for _, task := range dueSoon {
		builder.WriteString(FormatTask(task, now))
	}

	return strings.TrimSpace(builder.String()), true, nil
}

// FormatTask renders one task as an HTML line with its checklist progress.
func FormatTask(task model.Task, now time.Time) string {
	var sb strings.Builder

	icon := "🟢"
	switch {
	case task.Overdue(now):
		icon = "⚠️"
	case task.NextDue.Sub(now) <= dueSoonWindow:
		icon = "⏳"
	}

	done := 0
	for _, st := range task.Subtasks {
		if st.IsComplete {
			done++
		}
	}

	sb.WriteString(fmt.Sprintf("%s %s <i>(%s)</i>", icon, html.EscapeString(strings.TrimSpace(task.Name)), task.Period.String()))
	if task.Overdue(now) {
		sb.WriteString(fmt.Sprintf("\n   ⏰ due %s — <b>overdue</b>", task.NextDue.Format("2006-01-02")))
	} else {
		sb.WriteString(fmt.Sprintf("\n   ⏰ due %s", task.NextDue.Format("2006-01-02")))
	}
	sb.WriteString(fmt.Sprintf("\n   ✅ %d/%d done", done, len(task.Subtasks)))

	sb.WriteByte('\n')
	return sb.String()
}
