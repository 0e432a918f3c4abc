package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/upright-backend/internal/data/repos"
	"github.com/yungbote/upright-backend/internal/domain"
	"github.com/yungbote/upright-backend/internal/identity"
	"github.com/yungbote/upright-backend/internal/platform/logger"
)

var (
	ErrFriendNotFound = fmt.Errorf("user not found")
	ErrSelfFriend     = fmt.Errorf("cannot add yourself as a friend")
	ErrBadFriendInput = fmt.Errorf("missing or invalid identifier")
)

type FriendView struct {
	ID          uuid.UUID `json:"id"`
	FriendKey   int64     `json:"friendKey"`
	OwnerEmail  string    `json:"ownerEmail"`
	DisplayName string    `json:"displayName"`
	Email       string    `json:"email"`
	Username    string    `json:"username"`
}

type FriendService interface {
	List(ctx context.Context, ownerEmail string) []FriendView
	// Add resolves the friend identifier (email or username) against the user
	// registry and stores the edge. Returns the stored view and whether the
	// edge already existed.
	Add(ctx context.Context, ownerEmail, friendIdentifier string) (*FriendView, bool, error)
}

type friendService struct {
	db      *gorm.DB
	log     *logger.Logger
	friends repos.FriendRepo
	users   repos.UserRepo
}

func NewFriendService(db *gorm.DB, baseLog *logger.Logger, friends repos.FriendRepo, users repos.UserRepo) FriendService {
	return &friendService{
		db:      db,
		log:     baseLog.With("service", "FriendService"),
		friends: friends,
		users:   users,
	}
}

func (s *friendService) List(ctx context.Context, ownerEmail string) []FriendView {
	rows, err := s.friends.ListByOwnerEmail(ctx, nil, ownerEmail, 200)
	if err != nil {
		s.log.Warn("Friend list query failed, returning empty list", "error", err)
		return []FriendView{}
	}
	views := make([]FriendView, 0, len(rows))
	for _, row := range rows {
		views = append(views, toFriendView(row))
	}
	return views
}

func (s *friendService) Add(ctx context.Context, ownerEmail, friendIdentifier string) (*FriendView, bool, error) {
	ownerEmail = strings.ToLower(strings.TrimSpace(ownerEmail))
	friendIdentifier = strings.ToLower(strings.TrimSpace(friendIdentifier))
	if ownerEmail == "" || !strings.Contains(ownerEmail, "@") {
		return nil, false, fmt.Errorf("%w: userEmail", ErrBadFriendInput)
	}
	if friendIdentifier == "" {
		return nil, false, fmt.Errorf("%w: friend identifier", ErrBadFriendInput)
	}

	var matches []*domain.User
	var err error
	if strings.Contains(friendIdentifier, "@") {
		matches, err = s.users.GetByEmails(ctx, nil, []string{friendIdentifier})
	} else {
		matches, err = s.users.GetByUsernames(ctx, nil, []string{friendIdentifier})
	}
	if err != nil {
		return nil, false, fmt.Errorf("lookup friend: %w", err)
	}
	if len(matches) == 0 {
		return nil, false, ErrFriendNotFound
	}
	match := matches[0]

	friendEmail := strings.ToLower(strings.TrimSpace(match.Email))
	if friendEmail == ownerEmail {
		return nil, false, ErrSelfFriend
	}
	friendUsername := strings.ToLower(strings.TrimSpace(match.Username))
	if friendUsername == "" {
		friendUsername = strings.SplitN(friendEmail, "@", 2)[0]
	}

	friend := &domain.Friend{
		ID:          uuid.New(),
		FriendKey:   identity.FriendKey(ownerEmail, friendUsername),
		OwnerEmail:  ownerEmail,
		DisplayName: match.DisplayName(),
		Email:       friendEmail,
		Username:    friendUsername,
	}
	stored, existed, err := s.friends.Upsert(ctx, nil, friend)
	if err != nil {
		return nil, false, fmt.Errorf("save friend: %w", err)
	}
	view := toFriendView(stored)
	return &view, existed, nil
}

func toFriendView(row *domain.Friend) FriendView {
	displayName := strings.TrimSpace(row.DisplayName)
	if displayName == "" {
		displayName = strings.TrimSpace(row.Username)
	}
	if displayName == "" {
		displayName = strings.TrimSpace(row.Email)
	}
	if displayName == "" {
		displayName = "Unknown"
	}
	return FriendView{
		ID:          row.ID,
		FriendKey:   row.FriendKey,
		OwnerEmail:  row.OwnerEmail,
		DisplayName: displayName,
		Email:       row.Email,
		Username:    row.Username,
	}
}
