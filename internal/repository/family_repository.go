package repository

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"hunnydu/internal/model"
)

// FamilyRepository manages families.
type FamilyRepository struct {
	db *gorm.DB
}

func NewFamilyRepository(db *gorm.DB) *FamilyRepository {
	return &FamilyRepository{db: db}
}

func (r *FamilyRepository) Create(ctx context.Context, name string) (*model.Family, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: family name is required", model.ErrInvalidInput)
	}
	family := model.Family{Name: name}
	if err := r.db.WithContext(ctx).Create(&family).Error; err != nil {
		return nil, fmt.Errorf("create family: %w", err)
	}
	return &family, nil
}

func (r *FamilyRepository) GetByID(ctx context.Context, id uint) (*model.Family, error) {
	var family model.Family
	if err := r.db.WithContext(ctx).Preload("Members").First(&family, id).Error; err != nil {
		return nil, notFound(err, "family %d", id)
	}
	return &family, nil
}

// Leaders lists members of the family allowed to manage its tasks.
func (r *FamilyRepository) Leaders(ctx context.Context, familyID uint) ([]model.User, error) {
	var users []model.User
	if err := r.db.WithContext(ctx).
		Where("family_id = ? AND role IN ?", familyID, []string{model.RoleLeader, model.RoleAdmin}).
		Order("username ASC").
		Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list leaders: %w", err)
	}
	return users, nil
}
