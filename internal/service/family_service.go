package service

import (
	"context"
	"fmt"
	"strings"

	"hunnydu/internal/model"
	"hunnydu/internal/repository"
)

// FamilyService provides helpers around families and their members.
type FamilyService struct {
	familyRepo *repository.FamilyRepository
	userRepo   *repository.UserRepository
}

func NewFamilyService(familyRepo *repository.FamilyRepository, userRepo *repository.UserRepository) *FamilyService {
	return &FamilyService{familyRepo: familyRepo, userRepo: userRepo}
}

func (s *FamilyService) CreateFamily(ctx context.Context, name string) (*model.Family, error) {
	return s.familyRepo.Create(ctx, name)
}

// MemberInput is the profile of a user joining a family.
type MemberInput struct {
	Username string
	Email    string
	Role     string
	FamilyID *uint
	TZOffset int
}

// RegisterMember stores a user provisioned by the identity service.
func (s *FamilyService) RegisterMember(ctx context.Context, input MemberInput) (*model.User, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", model.ErrInvalidInput)
	}
	role := input.Role
	switch role {
	case "":
		role = model.RoleUser
	case model.RoleUser, model.RoleLeader, model.RoleAdmin:
	default:
		return nil, fmt.Errorf("%w: unknown role %q", model.ErrInvalidInput, role)
	}
	if !model.ValidTZOffset(input.TZOffset) {
		return nil, fmt.Errorf("%w: tz offset %d out of range", model.ErrInvalidInput, input.TZOffset)
	}
	if input.FamilyID != nil {
		if _, err := s.familyRepo.GetByID(ctx, *input.FamilyID); err != nil {
			return nil, err
		}
	}
	user := &model.User{
		Username: username,
		Email:    strings.TrimSpace(input.Email),
		Role:     role,
		FamilyID: input.FamilyID,
		TZOffset: input.TZOffset,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *FamilyService) GetFamily(ctx context.Context, id uint) (*model.Family, error) {
	return s.familyRepo.GetByID(ctx, id)
}

// Leaders returns who gets told when a task of the family is completed.
func (s *FamilyService) Leaders(ctx context.Context, familyID uint) ([]model.User, error) {
	return s.familyRepo.Leaders(ctx, familyID)
}

func (s *FamilyService) Member(ctx context.Context, userID uint) (*model.User, error) {
	return s.userRepo.FindByID(ctx, userID)
}

func (s *FamilyService) MemberByTelegram(ctx context.Context, telegramID int64) (*model.User, error) {
	return s.userRepo.FindByTelegramID(ctx, telegramID)
}

// LinkTelegram attaches a Telegram chat to the user for notifications.
func (s *FamilyService) LinkTelegram(ctx context.Context, userID uint, telegramID int64) error {
	if telegramID == 0 {
		return fmt.Errorf("%w: telegram id is required", model.ErrInvalidInput)
	}
	return s.userRepo.LinkTelegram(ctx, userID, telegramID)
}

// Subscribers returns every user with a linked Telegram chat.
func (s *FamilyService) Subscribers(ctx context.Context) ([]model.User, error) {
	return s.userRepo.ListWithTelegram(ctx)
}
