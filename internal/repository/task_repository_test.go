package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"hunnydu/internal/model"
	"hunnydu/internal/schedule"
)

var now = time.Date(2021, 1, 4, 10, 0, 0, 0, time.UTC)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := NewDB(":memory:", zap.NewNop().Sugar())
	if err != nil {
		t.Fatalf("NewDB returned error: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func seedTask(t *testing.T, db *gorm.DB, subtasks ...string) (*model.User, *model.Task) {
	t.Helper()
	ctx := context.Background()
	families := NewFamilyRepository(db)
	family, err := families.Create(ctx, "smiths")
	if err != nil {
		t.Fatal(err)
	}
	user := &model.User{Username: "sam", Email: "sam@example.com", FamilyID: &family.ID}
	if err := NewUserRepository(db).Create(ctx, user); err != nil {
		t.Fatal(err)
	}
	task, err := model.NewTask("dishes", schedule.Daily, user.ID, subtasks, now)
	if err != nil {
		t.Fatal(err)
	}
	if err := NewTaskRepository(db).Create(ctx, task); err != nil {
		t.Fatal(err)
	}
	return user, task
}

func TestCreateAndFindTask(t *testing.T) {
	db := openTestDB(t)
	_, task := seedTask(t, db, "wash", "dry")
	repo := NewTaskRepository(db)

	got, err := repo.FindByID(context.Background(), task.ID)
	if err != nil {
		t.Fatalf("FindByID returned error: %v", err)
	}
	if got.Assignee == nil || got.Assignee.Username != "sam" {
		t.Fatalf("assignee not loaded: %+v", got.Assignee)
	}
	if len(got.Subtasks) != 2 || got.Subtasks[0].Name != "wash" || got.Subtasks[1].Name != "dry" {
		t.Fatalf("unexpected subtasks %+v", got.Subtasks)
	}
	if !got.NextDue.Equal(task.NextDue) {
		t.Fatalf("expected due %v, got %v", task.NextDue, got.NextDue)
	}

	if _, err := repo.FindByID(context.Background(), 999); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateBySubtaskPersistsCascade(t *testing.T) {
	db := openTestDB(t)
	_, task := seedTask(t, db, "wash", "dry")
	repo := NewTaskRepository(db)
	ctx := context.Background()

	for _, st := range task.Subtasks {
		id := st.ID
		if _, err := repo.UpdateBySubtask(ctx, id, func(tk *model.Task) error {
			_, err := tk.CompleteSubtask(id, now)
			return err
		}); err != nil {
			t.Fatalf("complete subtask %d: %v", id, err)
		}
	}

	got, err := repo.FindByID(ctx, task.ID)
	if err != nil {
		t.Fatal(err)
	}
	for _, st := range got.Subtasks {
		if st.IsComplete {
			t.Fatalf("subtask %d should be reset", st.ID)
		}
	}
	want := time.Date(2021, 1, 5, 23, 59, 59, 0, time.UTC)
	if !got.NextDue.Equal(want) {
		t.Fatalf("expected due %v, got %v", want, got.NextDue)
	}
}

func TestUpdateRollsBackOnError(t *testing.T) {
	db := openTestDB(t)
	_, task := seedTask(t, db, "wash")
	repo := NewTaskRepository(db)
	ctx := context.Background()
	boom := errors.New("boom")

	_, err := repo.Update(ctx, task.ID, func(tk *model.Task) error {
		tk.Subtasks[0].IsComplete = true
		tk.NextDue = tk.NextDue.AddDate(1, 0, 0)
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected fn error, got %v", err)
	}
	got, err := repo.FindByID(ctx, task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Subtasks[0].IsComplete || !got.NextDue.Equal(task.NextDue) {
		t.Fatalf("changes leaked past rollback: %+v", got)
	}
}

func TestUpdateAddsAndPrunesSubtasks(t *testing.T) {
	db := openTestDB(t)
	_, task := seedTask(t, db, "wash", "dry")
	repo := NewTaskRepository(db)
	ctx := context.Background()

	if _, err := repo.Update(ctx, task.ID, func(tk *model.Task) error {
		_, err := tk.AddSubtask("put away")
		return err
	}); err != nil {
		t.Fatal(err)
	}
	removed := task.Subtasks[0].ID
	if _, err := repo.Update(ctx, task.ID, func(tk *model.Task) error {
		_, err := tk.RemoveSubtask(removed, now)
		return err
	}); err != nil {
		t.Fatal(err)
	}

	got, err := repo.FindByID(ctx, task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Subtasks) != 2 || got.Subtasks[0].Name != "dry" || got.Subtasks[1].Name != "put away" {
		t.Fatalf("unexpected subtasks %+v", got.Subtasks)
	}
}

func TestDeleteCascadesSubtasks(t *testing.T) {
	db := openTestDB(t)
	_, task := seedTask(t, db, "wash", "dry")
	repo := NewTaskRepository(db)
	ctx := context.Background()

	if err := repo.Delete(ctx, task.ID, nil); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	var count int64
	if err := db.Model(&model.Subtask{}).Where("task_id = ?", task.ID).Count(&count).Error; err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Fatalf("expected subtasks removed, %d left", count)
	}
	if err := repo.Delete(ctx, task.ID, nil); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
	if _, err := repo.UpdateBySubtask(ctx, task.Subtasks[0].ID, func(*model.Task) error { return nil }); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for deleted subtask, got %v", err)
	}
}

func TestDeleteCheckCanVeto(t *testing.T) {
	db := openTestDB(t)
	_, task := seedTask(t, db, "wash")
	repo := NewTaskRepository(db)
	ctx := context.Background()

	var seen *model.Task
	err := repo.Delete(ctx, task.ID, func(t *model.Task) error {
		seen = t
		return model.ErrForbidden
	})
	if !errors.Is(err, model.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if seen == nil || seen.Assignee == nil || seen.Assignee.Username != "sam" {
		t.Fatalf("check should see the task with its assignee, got %+v", seen)
	}
	if _, err := repo.FindByID(ctx, task.ID); err != nil {
		t.Fatalf("vetoed task should survive: %v", err)
	}
	if err := repo.Delete(ctx, task.ID+100, func(*model.Task) error { return nil }); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing task, got %v", err)
	}
}

func TestListByFamily(t *testing.T) {
	db := openTestDB(t)
	user, task := seedTask(t, db)
	ctx := context.Background()

	other := &model.User{Username: "alex", Email: "alex@example.com", FamilyID: user.FamilyID}
	if err := NewUserRepository(db).Create(ctx, other); err != nil {
		t.Fatal(err)
	}
	later, err := model.NewTask("laundry", schedule.Weekly, other.ID, nil, now)
	if err != nil {
		t.Fatal(err)
	}
	repo := NewTaskRepository(db)
	if err := repo.Create(ctx, later); err != nil {
		t.Fatal(err)
	}

	tasks, err := repo.ListByFamily(ctx, *user.FamilyID)
	if err != nil {
		t.Fatalf("ListByFamily returned error: %v", err)
	}
	if len(tasks) != 2 || tasks[0].ID != task.ID || tasks[1].ID != later.ID {
		t.Fatalf("unexpected family tasks %+v", tasks)
	}
	if tasks[1].Assignee == nil || tasks[1].Assignee.Username != "alex" {
		t.Fatalf("assignee not preloaded: %+v", tasks[1].Assignee)
	}

	own, err := repo.ListByAssignee(ctx, user.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(own) != 1 || own[0].ID != task.ID {
		t.Fatalf("unexpected own tasks %+v", own)
	}
}

func TestLeadersAndTelegramLink(t *testing.T) {
	db := openTestDB(t)
	user, _ := seedTask(t, db)
	ctx := context.Background()
	users := NewUserRepository(db)

	leader := &model.User{Username: "pat", Email: "pat@example.com", Role: model.RoleLeader, FamilyID: user.FamilyID}
	if err := users.Create(ctx, leader); err != nil {
		t.Fatal(err)
	}
	leaders, err := NewFamilyRepository(db).Leaders(ctx, *user.FamilyID)
	if err != nil {
		t.Fatal(err)
	}
	if len(leaders) != 1 || leaders[0].ID != leader.ID {
		t.Fatalf("unexpected leaders %+v", leaders)
	}

	if err := users.LinkTelegram(ctx, leader.ID, 4242); err != nil {
		t.Fatal(err)
	}
	got, err := users.FindByTelegramID(ctx, 4242)
	if err != nil || got.ID != leader.ID {
		t.Fatalf("FindByTelegramID = %+v, %v", got, err)
	}
	if err := users.LinkTelegram(ctx, 999, 1); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
