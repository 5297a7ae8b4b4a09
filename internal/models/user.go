package models

import (
	"time"
)

// User is the profile record owned by the identity service. This service
// only reads it to decorate the global leaderboard.
type User struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Username   string    `gorm:"uniqueIndex;size:64;not null" json:"username"`
	ProfilePic *string   `gorm:"size:512" json:"profile_pic,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName specifies the table name for User model
func (User) TableName() string {
	return "users"
}
