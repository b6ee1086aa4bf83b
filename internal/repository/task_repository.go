package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"hunnydu/internal/model"
)

// TaskRepository persists tasks together with their subtasks.
type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Omit("Assignee").Create(task).Error
	})
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (r *TaskRepository) FindByID(ctx context.Context, taskID uint) (*model.Task, error) {
	return loadTask(r.db.WithContext(ctx), taskID)
}

// Update loads the task, lets fn mutate it in memory and writes the whole
// aggregate back in the same transaction. An error from fn rolls back.
func (r *TaskRepository) Update(ctx context.Context, taskID uint, fn func(*model.Task) error) (*model.Task, error) {
	var task *model.Task
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if task, err = loadTask(tx, taskID); err != nil {
			return err
		}
		if err := fn(task); err != nil {
			return err
		}
		return saveTask(tx, task)
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// UpdateBySubtask is Update for the task owning subtaskID.
func (r *TaskRepository) UpdateBySubtask(ctx context.Context, subtaskID uint, fn func(*model.Task) error) (*model.Task, error) {
	var task *model.Task
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var st model.Subtask
		if err := tx.Select("id", "task_id").First(&st, subtaskID).Error; err != nil {
			return notFound(err, "subtask %d", subtaskID)
		}
		var err error
		if task, err = loadTask(tx, st.TaskID); err != nil {
			return err
		}
		if err := fn(task); err != nil {
			return err
		}
		return saveTask(tx, task)
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// Delete removes a task and all of its subtasks. A non-nil check sees the
// loaded task first and can veto the delete.
func (r *TaskRepository) Delete(ctx context.Context, taskID uint, check func(*model.Task) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if check != nil {
			task, err := loadTask(tx, taskID)
			if err != nil {
				return err
			}
			if err := check(task); err != nil {
				return err
			}
		}
		if err := tx.Where("task_id = ?", taskID).Delete(&model.Subtask{}).Error; err != nil {
			return fmt.Errorf("delete subtasks: %w", err)
		}
		res := tx.Delete(&model.Task{}, taskID)
		if res.Error != nil {
			return fmt.Errorf("delete task: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("task %d: %w", taskID, model.ErrNotFound)
		}
		return nil
	})
}

// ListByAssignee returns the user's tasks, soonest due first.
func (r *TaskRepository) ListByAssignee(ctx context.Context, userID uint) ([]model.Task, error) {
	var tasks []model.Task
	if err := withChildren(r.db.WithContext(ctx)).
		Where("assignee_id = ?", userID).
		Order("next_due ASC, id ASC").
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

// ListByFamily returns tasks assigned to any member of the family.
func (r *TaskRepository) ListByFamily(ctx context.Context, familyID uint) ([]model.Task, error) {
	var tasks []model.Task
	if err := withChildren(r.db.WithContext(ctx)).
		Select("tasks.*").
		Joins("JOIN users ON users.id = tasks.assignee_id").
		Where("users.family_id = ?", familyID).
		Order("tasks.next_due ASC, tasks.id ASC").
		Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list family tasks: %w", err)
	}
	return tasks, nil
}

func withChildren(db *gorm.DB) *gorm.DB {
	return db.Preload("Assignee").Preload("Subtasks", func(db *gorm.DB) *gorm.DB {
		return db.Order("id ASC")
	})
}

func loadTask(db *gorm.DB, taskID uint) (*model.Task, error) {
	var task model.Task
	if err := withChildren(db).First(&task, taskID).Error; err != nil {
		return nil, notFound(err, "task %d", taskID)
	}
	return &task, nil
}

// saveTask writes the task row, upserts its subtasks and drops subtasks that
// are no longer part of the aggregate.
func saveTask(tx *gorm.DB, task *model.Task) error {
	if err := tx.Omit(clause.Associations).Save(task).Error; err != nil {
		return fmt.Errorf("save task: %w", err)
	}
	ids := make([]uint, 0, len(task.Subtasks))
	for i := range task.Subtasks {
		st := &task.Subtasks[i]
		st.TaskID = task.ID
		if err := tx.Save(st).Error; err != nil {
			return fmt.Errorf("save subtask: %w", err)
		}
		ids = append(ids, st.ID)
	}
	stale := tx.Where("task_id = ?", task.ID)
	if len(ids) > 0 {
		stale = stale.Where("id NOT IN ?", ids)
	}
	if err := stale.Delete(&model.Subtask{}).Error; err != nil {
		return fmt.Errorf("prune subtasks: %w", err)
	}
	return nil
}
