package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/upright-backend/internal/domain"
	"github.com/yungbote/upright-backend/internal/platform/logger"
)

// SessionTotals are the lifetime accumulations the score is derived from.
type SessionTotals struct {
	Minutes         int64
	BadPostureCount int64
	TooCloseCount   int64
}

type SessionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, sessions []*domain.PostureSession) ([]*domain.PostureSession, error)
	// LockUserKey takes a transaction-scoped advisory lock on the user key.
	// Row locks alone cannot serialize concurrent event application when the
	// user has no open row yet, so the ledger takes this lock first. Callers
	// must hold a transaction; the lock releases on commit/rollback.
	LockUserKey(ctx context.Context, tx *gorm.DB, userKey int64) error
	// GetOpenForUpdate locks the user's open session row (FOR UPDATE) so the
	// read-then-mutate sequence in the ledger is serialized per user. Callers
	// must hold a transaction. Returns nil when no session is open.
	GetOpenForUpdate(ctx context.Context, tx *gorm.DB, userKey int64) (*domain.PostureSession, error)
	// GetLatestForUpdate locks the most recently started session regardless of
	// open/closed state. Returns nil when the user has no sessions at all.
	GetLatestForUpdate(ctx context.Context, tx *gorm.DB, userKey int64) (*domain.PostureSession, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, fields map[string]any) error
	GetByID(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) (*domain.PostureSession, error)
	ListByUserKey(ctx context.Context, tx *gorm.DB, userKey int64, limit int) ([]*domain.PostureSession, error)
	// ListInWindow returns the user's sessions whose start falls in [from, to].
	ListInWindow(ctx context.Context, tx *gorm.DB, userKey int64, from, to time.Time) ([]*domain.PostureSession, error)
	Totals(ctx context.Context, tx *gorm.DB, userKey int64) (SessionTotals, error)
	// LatestDataAt is max(coalesce(ended_at, started_at)) across the user's
	// sessions; nil when no sessions exist.
	LatestDataAt(ctx context.Context, tx *gorm.DB, userKey int64) (*time.Time, error)
	CountByUserKey(ctx context.Context, tx *gorm.DB, userKey int64) (int64, error)
}

type sessionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSessionRepo(db *gorm.DB, baseLog *logger.Logger) SessionRepo {
	repoLog := baseLog.With("repo", "SessionRepo")
	return &sessionRepo{db: db, log: repoLog}
}

func (r *sessionRepo) Create(ctx context.Context, tx *gorm.DB, sessions []*domain.PostureSession) ([]*domain.PostureSession, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(sessions) == 0 {
		return []*domain.PostureSession{}, nil
	}

	if err := transaction.WithContext(ctx).Create(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *sessionRepo) LockUserKey(ctx context.Context, tx *gorm.DB, userKey int64) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	// SQLite serializes writers on its own and has no advisory locks.
	if transaction.Dialector.Name() != "postgres" {
		return nil
	}
	return transaction.WithContext(ctx).Exec("SELECT pg_advisory_xact_lock(?)", userKey).Error
}

func (r *sessionRepo) GetOpenForUpdate(ctx context.Context, tx *gorm.DB, userKey int64) (*domain.PostureSession, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result domain.PostureSession
	err := transaction.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_key = ? AND ended_at IS NULL", userKey).
		Order("started_at DESC").
		First(&result).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *sessionRepo) GetLatestForUpdate(ctx context.Context, tx *gorm.DB, userKey int64) (*domain.PostureSession, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result domain.PostureSession
	err := transaction.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_key = ?", userKey).
		Order("started_at DESC").
		First(&result).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *sessionRepo) UpdateFields(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID, fields map[string]any) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	if len(fields) == 0 {
		return nil
	}

	return transaction.WithContext(ctx).
		Model(&domain.PostureSession{}).
		Where("id = ?", sessionID).
		Updates(fields).Error
}

func (r *sessionRepo) GetByID(ctx context.Context, tx *gorm.DB, sessionID uuid.UUID) (*domain.PostureSession, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var result domain.PostureSession
	err := transaction.WithContext(ctx).
		Where("id = ?", sessionID).
		First(&result).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *sessionRepo) ListByUserKey(ctx context.Context, tx *gorm.DB, userKey int64, limit int) ([]*domain.PostureSession, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*domain.PostureSession
	q := transaction.WithContext(ctx).
		Where("user_key = ?", userKey).
		Order("started_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *sessionRepo) ListInWindow(ctx context.Context, tx *gorm.DB, userKey int64, from, to time.Time) ([]*domain.PostureSession, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var results []*domain.PostureSession
	if err := transaction.WithContext(ctx).
		Where("user_key = ? AND started_at >= ? AND started_at <= ?", userKey, from, to).
		Order("started_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *sessionRepo) Totals(ctx context.Context, tx *gorm.DB, userKey int64) (SessionTotals, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var totals SessionTotals
	row := struct {
		Minutes         int64
		BadPostureCount int64
		TooCloseCount   int64
	}{}
	if err := transaction.WithContext(ctx).
		Model(&domain.PostureSession{}).
		Select("COALESCE(SUM(minutes), 0) AS minutes, COALESCE(SUM(bad_posture_count), 0) AS bad_posture_count, COALESCE(SUM(too_close_count), 0) AS too_close_count").
		Where("user_key = ?", userKey).
		Scan(&row).Error; err != nil {
		return totals, err
	}
	totals.Minutes = row.Minutes
	totals.BadPostureCount = row.BadPostureCount
	totals.TooCloseCount = row.TooCloseCount
	return totals, nil
}

func (r *sessionRepo) LatestDataAt(ctx context.Context, tx *gorm.DB, userKey int64) (*time.Time, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var row struct {
		Latest *time.Time
	}
	if err := transaction.WithContext(ctx).
		Model(&domain.PostureSession{}).
		Select("MAX(COALESCE(ended_at, started_at)) AS latest").
		Where("user_key = ?", userKey).
		Scan(&row).Error; err != nil {
		return nil, err
	}
	return row.Latest, nil
}

func (r *sessionRepo) CountByUserKey(ctx context.Context, tx *gorm.DB, userKey int64) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&domain.PostureSession{}).
		Where("user_key = ?", userKey).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
