package repos

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/upright-backend/internal/domain"
	"github.com/yungbote/upright-backend/internal/platform/logger"
)

type RecommendationRepo interface {
	GetByUserKey(ctx context.Context, tx *gorm.DB, userKey int64) (*domain.WeeklyRecommendation, error)
	// Upsert replaces the user's cached recommendation (unique on user_key).
	Upsert(ctx context.Context, tx *gorm.DB, rec *domain.WeeklyRecommendation) (*domain.WeeklyRecommendation, error)
}

type recommendationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRecommendationRepo(db *gorm.DB, baseLog *logger.Logger) RecommendationRepo {
	repoLog := baseLog.With("repo", "RecommendationRepo")
	return &recommendationRepo{db: db, log: repoLog}
}

func (r *recommendationRepo) GetByUserKey(ctx context.Context, tx *gorm.DB, userKey int64) (*domain.WeeklyRecommendation, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result domain.WeeklyRecommendation
	err := transaction.WithContext(ctx).
		Where("user_key = ?", userKey).
		First(&result).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *recommendationRepo) Upsert(ctx context.Context, tx *gorm.DB, rec *domain.WeeklyRecommendation) (*domain.WeeklyRecommendation, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if rec == nil {
		return nil, nil
	}

	if err := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_key"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"recommendation",
				"model",
				"source_latest_data_at",
				"session_snapshot",
				"generated_at",
				"updated_at",
			}),
		}).
		Create(rec).Error; err != nil {
		return nil, err
	}

	return r.GetByUserKey(ctx, transaction, rec.UserKey)
}
