package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/upright-backend/internal/data/repos"
	"github.com/yungbote/upright-backend/internal/domain"
	"github.com/yungbote/upright-backend/internal/platform/ctxutil"
	"github.com/yungbote/upright-backend/internal/platform/logger"
)

type ProfileUpdate struct {
	Username  *string `json:"username,omitempty"`
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
}

type UserService interface {
	GetMe(ctx context.Context) (*domain.User, error)
	UpdateProfile(ctx context.Context, update ProfileUpdate) (*domain.User, error)
}

type userService struct {
	db    *gorm.DB
	log   *logger.Logger
	users repos.UserRepo
}

func NewUserService(db *gorm.DB, baseLog *logger.Logger, users repos.UserRepo) UserService {
	return &userService{
		db:    db,
		log:   baseLog.With("service", "UserService"),
		users: users,
	}
}

func (s *userService) GetMe(ctx context.Context) (*domain.User, error) {
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, fmt.Errorf("unauthorized")
	}
	users, err := s.users.GetByIDs(ctx, nil, []uuid.UUID{rd.UserID})
	if err != nil {
		return nil, fmt.Errorf("retrieve user: %w", err)
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("user not found")
	}
	return users[0], nil
}

func (s *userService) UpdateProfile(ctx context.Context, update ProfileUpdate) (*domain.User, error) {
	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, fmt.Errorf("unauthorized")
	}

	fields := map[string]any{}
	if update.Username != nil {
		username := strings.ToLower(strings.TrimSpace(*update.Username))
		if username == "" {
			return nil, fmt.Errorf("username cannot be empty")
		}
		fields["username"] = username
	}
	if update.FirstName != nil {
		fields["first_name"] = strings.TrimSpace(*update.FirstName)
	}
	if update.LastName != nil {
		fields["last_name"] = strings.TrimSpace(*update.LastName)
	}

	if len(fields) > 0 {
		if err := s.users.UpdateProfile(ctx, nil, rd.UserID, fields); err != nil {
			return nil, fmt.Errorf("update profile: %w", err)
		}
	}
	return s.GetMe(ctx)
}
