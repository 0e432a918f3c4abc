package repos

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/upright-backend/internal/domain"
	"github.com/yungbote/upright-backend/internal/platform/logger"
)

type FriendRepo interface {
	// Upsert inserts the edge or leaves the existing row untouched when the
	// same friend_key is already present. Returns the stored row.
	Upsert(ctx context.Context, tx *gorm.DB, friend *domain.Friend) (*domain.Friend, bool, error)
	GetByFriendKey(ctx context.Context, tx *gorm.DB, friendKey int64) (*domain.Friend, error)
	ListByOwnerEmail(ctx context.Context, tx *gorm.DB, ownerEmail string, limit int) ([]*domain.Friend, error)
}

type friendRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFriendRepo(db *gorm.DB, baseLog *logger.Logger) FriendRepo {
	repoLog := baseLog.With("repo", "FriendRepo")
	return &friendRepo{db: db, log: repoLog}
}

func (r *friendRepo) Upsert(ctx context.Context, tx *gorm.DB, friend *domain.Friend) (*domain.Friend, bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if friend == nil {
		return nil, false, nil
	}

	existing, err := r.GetByFriendKey(ctx, transaction, friend.FriendKey)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, true, nil
	}

	if err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "friend_key"}},
			DoNothing: true,
		}).
		Create(friend).Error; err != nil {
		return nil, false, err
	}

	stored, err := r.GetByFriendKey(ctx, transaction, friend.FriendKey)
	if err != nil {
		return nil, false, err
	}
	return stored, false, nil
}

func (r *friendRepo) GetByFriendKey(ctx context.Context, tx *gorm.DB, friendKey int64) (*domain.Friend, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result domain.Friend
	err := transaction.WithContext(ctx).
		Where("friend_key = ?", friendKey).
		First(&result).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *friendRepo) ListByOwnerEmail(ctx context.Context, tx *gorm.DB, ownerEmail string, limit int) ([]*domain.Friend, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*domain.Friend
	if toLowerTrim(ownerEmail) == "" {
		return results, nil
	}
	if limit <= 0 {
		limit = 200
	}

	if err := transaction.WithContext(ctx).
		Where("owner_email = ?", toLowerTrim(ownerEmail)).
		Order("created_at DESC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
