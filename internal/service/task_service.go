package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"hunnydu/internal/model"
	"hunnydu/internal/repository"
	"hunnydu/internal/schedule"
)

// Publisher receives completion events once the cascade has been committed.
type Publisher interface {
	Publish(ev model.CompletionEvent)
}

// TaskInput represents data required to create a task.
type TaskInput struct {
	Name       string
	Period     string
	AssigneeID uint
	Subtasks   []string
}

// Board is what a user sees: their own tasks and the whole family's.
type Board struct {
	Tasks       []model.Task
	FamilyTasks []model.Task
}

// TaskService wraps task-related business logic.
type TaskService struct {
	taskRepo *repository.TaskRepository
	userRepo *repository.UserRepository
	events   Publisher
	log      *zap.SugaredLogger
}

func NewTaskService(taskRepo *repository.TaskRepository, userRepo *repository.UserRepository, events Publisher, log *zap.SugaredLogger) *TaskService {
	return &TaskService{taskRepo: taskRepo, userRepo: userRepo, events: events, log: log}
}

func (s *TaskService) CreateTask(ctx context.Context, actor model.Actor, input TaskInput, now time.Time) (*model.Task, error) {
	if err := actor.Require(model.CapCreate); err != nil {
		return nil, err
	}
	if input.Period == "" {
		return nil, fmt.Errorf("%w: period is required", model.ErrInvalidTask)
	}
	period, err := schedule.ParsePeriod(input.Period)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidTask, err)
	}
	task, err := model.NewTask(input.Name, period, input.AssigneeID, input.Subtasks, now)
	if err != nil {
		return nil, err
	}
	scope, err := s.scopeFor(ctx, actor)
	if err != nil {
		return nil, err
	}
	assignee, err := s.userRepo.FindByID(ctx, input.AssigneeID)
	if err != nil {
		return nil, err
	}
	if !scope.reaches(assignee) {
		return nil, fmt.Errorf("%w: user %d is not in your family", model.ErrForbidden, assignee.ID)
	}

	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, err
	}
	task.Assignee = assignee
	s.log.Infow("task created", "taskID", task.ID, "period", period.String(), "assigneeID", assignee.ID, "nextDue", task.NextDue)
	return task, nil
}

// GetTask returns a task visible to the actor: their own, their family's, or
// any task for admins.
func (s *TaskService) GetTask(ctx context.Context, actor model.Actor, taskID uint) (*model.Task, error) {
	scope, err := s.scopeFor(ctx, actor)
	if err != nil {
		return nil, err
	}
	task, err := s.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := scope.authorize(task); err != nil {
		return nil, err
	}
	return task, nil
}

// ListTasks returns the actor's own tasks and, if they belong to a family,
// every task of that family.
func (s *TaskService) ListTasks(ctx context.Context, actor model.Actor) (*Board, error) {
	user, err := s.userRepo.FindByID(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	board := &Board{}
	if board.Tasks, err = s.taskRepo.ListByAssignee(ctx, user.ID); err != nil {
		return nil, err
	}
	if user.FamilyID != nil {
		if board.FamilyTasks, err = s.taskRepo.ListByFamily(ctx, *user.FamilyID); err != nil {
			return nil, err
		}
	}
	return board, nil
}

func (s *TaskService) AddSubtask(ctx context.Context, actor model.Actor, taskID uint, name string) (*model.Subtask, error) {
	if err := actor.Require(model.CapManage); err != nil {
		return nil, err
	}
	scope, err := s.scopeFor(ctx, actor)
	if err != nil {
		return nil, err
	}
	task, err := s.taskRepo.Update(ctx, taskID, func(t *model.Task) error {
		if err := scope.authorize(t); err != nil {
			return err
		}
		_, err := t.AddSubtask(name)
		return err
	})
	if err != nil {
		return nil, err
	}
	added := task.Subtasks[len(task.Subtasks)-1]
	return &added, nil
}

// DeleteSubtask removes a subtask. The task may complete as a result.
func (s *TaskService) DeleteSubtask(ctx context.Context, actor model.Actor, subtaskID uint, now time.Time) (*model.Task, model.Outcome, error) {
	if err := actor.Require(model.CapManage); err != nil {
		return nil, model.Outcome{}, err
	}
	return s.mutateSubtask(ctx, actor, subtaskID, now, func(t *model.Task) (model.Outcome, error) {
		return t.RemoveSubtask(subtaskID, now)
	})
}

func (s *TaskService) CompleteSubtask(ctx context.Context, actor model.Actor, subtaskID uint, now time.Time) (*model.Task, model.Outcome, error) {
	if err := actor.Require(model.CapComplete); err != nil {
		return nil, model.Outcome{}, err
	}
	return s.mutateSubtask(ctx, actor, subtaskID, now, func(t *model.Task) (model.Outcome, error) {
		return t.CompleteSubtask(subtaskID, now)
	})
}

func (s *TaskService) UncompleteSubtask(ctx context.Context, actor model.Actor, subtaskID uint) (*model.Task, model.Outcome, error) {
	if err := actor.Require(model.CapComplete); err != nil {
		return nil, model.Outcome{}, err
	}
	return s.mutateSubtask(ctx, actor, subtaskID, time.Time{}, func(t *model.Task) (model.Outcome, error) {
		return t.UncompleteSubtask(subtaskID)
	})
}

// ToggleSubtask completes an open subtask or reopens a completed one.
func (s *TaskService) ToggleSubtask(ctx context.Context, actor model.Actor, subtaskID uint, now time.Time) (*model.Task, model.Outcome, error) {
	if err := actor.Require(model.CapComplete); err != nil {
		return nil, model.Outcome{}, err
	}
	return s.mutateSubtask(ctx, actor, subtaskID, now, func(t *model.Task) (model.Outcome, error) {
		for _, st := range t.Subtasks {
			if st.ID == subtaskID && st.IsComplete {
				return t.UncompleteSubtask(subtaskID)
			}
		}
		return t.CompleteSubtask(subtaskID, now)
	})
}

func (s *TaskService) DeleteTask(ctx context.Context, actor model.Actor, taskID uint) error {
	if err := actor.Require(model.CapManage); err != nil {
		return err
	}
	scope, err := s.scopeFor(ctx, actor)
	if err != nil {
		return err
	}
	if err := s.taskRepo.Delete(ctx, taskID, scope.authorize); err != nil {
		return err
	}
	s.log.Infow("task deleted", "taskID", taskID, "by", actor.UserID)
	return nil
}

// mutateSubtask runs op inside the task's transaction and publishes the
// completion event only after the commit succeeded.
func (s *TaskService) mutateSubtask(ctx context.Context, actor model.Actor, subtaskID uint, now time.Time, op func(*model.Task) (model.Outcome, error)) (*model.Task, model.Outcome, error) {
	scope, err := s.scopeFor(ctx, actor)
	if err != nil {
		return nil, model.Outcome{}, err
	}
	var out model.Outcome
	task, err := s.taskRepo.UpdateBySubtask(ctx, subtaskID, func(t *model.Task) error {
		if err := scope.authorize(t); err != nil {
			return err
		}
		var err error
		out, err = op(t)
		return err
	})
	if err != nil {
		if !isDomainError(err) {
			s.log.Errorw("subtask update failed", "subtaskID", subtaskID, "error", err)
		}
		return nil, model.Outcome{}, err
	}
	if out.TaskCompleted {
		s.log.Infow("task cycle completed", "taskID", task.ID, "previousDue", out.PreviousDue, "nextDue", task.NextDue)
		s.events.Publish(task.CompletionEvent(now))
	}
	return task, out, nil
}

// familyScope is the set of users an actor may act for. It is resolved before
// a transaction opens: the store has a single connection, so the closure
// itself must not query.
type familyScope struct {
	userID   uint
	familyID *uint
	all      bool
}

func (s *TaskService) scopeFor(ctx context.Context, actor model.Actor) (familyScope, error) {
	if actor.Can(model.CapAdmin) {
		return familyScope{userID: actor.UserID, all: true}, nil
	}
	user, err := s.userRepo.FindByID(ctx, actor.UserID)
	if errors.Is(err, model.ErrNotFound) {
		return familyScope{}, fmt.Errorf("%w: unknown caller %d", model.ErrForbidden, actor.UserID)
	}
	if err != nil {
		return familyScope{}, err
	}
	return familyScope{userID: user.ID, familyID: user.FamilyID}, nil
}

func (sc familyScope) reaches(user *model.User) bool {
	switch {
	case sc.all:
		return true
	case user == nil:
		return false
	case user.ID == sc.userID:
		return true
	}
	return sc.familyID != nil && user.FamilyID != nil && *sc.familyID == *user.FamilyID
}

func (sc familyScope) authorize(task *model.Task) error {
	if task.AssigneeID == sc.userID || sc.reaches(task.Assignee) {
		return nil
	}
	return fmt.Errorf("%w: task %d belongs to another family", model.ErrForbidden, task.ID)
}

func isDomainError(err error) bool {
	for _, target := range []error{model.ErrNotFound, model.ErrCapacityExceeded, model.ErrMinimumViolation, model.ErrInvalidTask, model.ErrInvalidInput, model.ErrForbidden} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
