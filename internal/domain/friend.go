package domain

import (
	"time"

	"github.com/google/uuid"
)

// Friend is one edge of an owner's friend list. FriendKey is a
// deterministic hash of "ownerEmail:friendUsername" so re-adding the
// same friend is a no-op.
type Friend struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	FriendKey   int64     `gorm:"uniqueIndex;not null;column:friend_key" json:"friend_key"`
	OwnerEmail  string    `gorm:"not null;index;column:owner_email" json:"owner_email"`
	DisplayName string    `gorm:"column:display_name" json:"display_name"`
	Email       string    `gorm:"column:email" json:"email"`
	Username    string    `gorm:"column:username" json:"username"`
	CreatedAt   time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Friend) TableName() string { return "friend" }
