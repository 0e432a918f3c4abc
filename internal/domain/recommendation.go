package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// WeeklyRecommendation caches the coach's weekly advice per user key.
// SourceLatestDataAt records the newest session timestamp seen when the
// text was generated; the cache goes stale once session data advances a
// week past it.
type WeeklyRecommendation struct {
	ID                 uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserKey            int64          `gorm:"uniqueIndex;not null;column:user_key" json:"user_key"`
	Recommendation     string         `gorm:"not null;column:recommendation" json:"recommendation"`
	Model              string         `gorm:"column:model" json:"model"`
	SourceLatestDataAt *time.Time     `gorm:"column:source_latest_data_at" json:"source_latest_data_at,omitempty"`
	SessionSnapshot    datatypes.JSON `gorm:"type:jsonb;column:session_snapshot" json:"session_snapshot,omitempty"`
	GeneratedAt        time.Time      `gorm:"not null;default:now();column:generated_at" json:"generated_at"`
	CreatedAt          time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (WeeklyRecommendation) TableName() string { return "weekly_recommendation" }
