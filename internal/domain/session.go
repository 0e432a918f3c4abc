package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// PostureSession is one continuous monitoring interval for one user key.
// At most one row per user key may have a null EndedAt.
type PostureSession struct {
	ID              uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserKey         int64          `gorm:"not null;index:idx_posture_session_user_key" json:"user_key"`
	UserID          *uuid.UUID     `gorm:"type:uuid;index" json:"user_id,omitempty"`
	User            *User          `gorm:"constraint:OnDelete:SET NULL;foreignKey:UserID;references:ID" json:"user,omitempty"`
	StartedAt       time.Time      `gorm:"not null;index" json:"started_at"`
	EndedAt         *time.Time     `gorm:"index" json:"ended_at,omitempty"`
	Activity        *string        `gorm:"column:activity" json:"activity,omitempty"`
	BadPostureCount int            `gorm:"not null;default:0;column:bad_posture_count" json:"bad_posture_count"`
	TooCloseCount   int            `gorm:"not null;default:0;column:too_close_count" json:"too_close_count"`
	Minutes         int            `gorm:"not null;default:0;column:minutes" json:"minutes"`
	LastEventMeta   datatypes.JSON `gorm:"type:jsonb;column:last_event_meta" json:"last_event_meta,omitempty"`
	CreatedAt       time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (PostureSession) TableName() string { return "posture_session" }

// Open reports whether the session has no recorded end.
func (s *PostureSession) Open() bool {
	return s != nil && s.EndedAt == nil
}

// DurationMinutes prefers the stored minutes and falls back to the
// elapsed wall time against now for a still-open session.
func (s *PostureSession) DurationMinutes(now time.Time) int {
	if s == nil {
		return 0
	}
	if s.Minutes > 0 {
		return s.Minutes
	}
	end := now
	if s.EndedAt != nil {
		end = *s.EndedAt
	}
	d := end.Sub(s.StartedAt)
	if d < 0 {
		return 0
	}
	return int(d.Minutes())
}
