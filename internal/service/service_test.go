package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"hunnydu/internal/model"
	"hunnydu/internal/repository"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.CompletionEvent
}

func (p *recordingPublisher) Publish(ev model.CompletionEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

type fixture struct {
	db       *gorm.DB
	tasks    *TaskService
	families *FamilyService
	reminder *ReminderService
	events   *recordingPublisher
	family   *model.Family
	leader   *model.User
	member   *model.User
}

func (f *fixture) leaderActor() model.Actor {
	return model.Actor{UserID: f.leader.ID, Capabilities: model.CapabilitiesForRole(model.RoleLeader)}
}

func (f *fixture) memberActor() model.Actor {
	return model.Actor{UserID: f.member.ID, Capabilities: model.CapabilitiesForRole(model.RoleUser)}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureAt(t, ":memory:")
}

func newFixtureAt(t *testing.T, dsn string) *fixture {
	t.Helper()
	log := zap.NewNop().Sugar()
	db, err := repository.NewDB(dsn, log)
	if err != nil {
		t.Fatalf("NewDB returned error: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	taskRepo := repository.NewTaskRepository(db)
	userRepo := repository.NewUserRepository(db)
	familyRepo := repository.NewFamilyRepository(db)
	f := &fixture{
		db:       db,
		events:   &recordingPublisher{},
		families: NewFamilyService(familyRepo, userRepo),
		reminder: NewReminderService(taskRepo),
	}
	f.tasks = NewTaskService(taskRepo, userRepo, f.events, log)

	ctx := context.Background()
	if f.family, err = f.families.CreateFamily(ctx, "smiths"); err != nil {
		t.Fatal(err)
	}
	if f.leader, err = f.families.RegisterMember(ctx, MemberInput{Username: "pat", Email: "pat@example.com", Role: model.RoleLeader, FamilyID: &f.family.ID}); err != nil {
		t.Fatal(err)
	}
	if f.member, err = f.families.RegisterMember(ctx, MemberInput{Username: "sam", Email: "sam@example.com", FamilyID: &f.family.ID}); err != nil {
		t.Fatal(err)
	}
	return f
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

// otherFamily registers a leader of a second family "joneses".
func (f *fixture) otherFamily(t *testing.T) (*model.User, model.Actor) {
	t.Helper()
	ctx := context.Background()
	family, err := f.families.CreateFamily(ctx, "joneses")
	if err != nil {
		t.Fatal(err)
	}
	leader, err := f.families.RegisterMember(ctx, MemberInput{Username: "jo", Role: model.RoleLeader, FamilyID: &family.ID})
	if err != nil {
		t.Fatal(err)
	}
	return leader, model.Actor{UserID: leader.ID, Capabilities: model.CapabilitiesForRole(model.RoleLeader)}
}

func at(y int, m time.Month, d, hour int) time.Time {
	return time.Date(y, m, d, hour, 0, 0, 0, time.UTC)
}
