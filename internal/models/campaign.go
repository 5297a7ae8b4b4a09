package models

import (
	"time"
)

const (
	CampaignStatusActive = "active"
	CampaignStatusClosed = "closed"
)

// Campaign is a giveaway owned by a single user.
type Campaign struct {
	ID             string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	OwnerID        string     `gorm:"type:varchar(36);not null;index" json:"owner_id"`
	Name           string     `gorm:"size:200;not null" json:"name"`
	Slug           string     `gorm:"size:240;not null;index" json:"slug"`
	DestinationURL string     `gorm:"size:1024;not null" json:"destination_url"`
	Status         string     `gorm:"size:20;not null;default:active;index" json:"status"` // active, closed
	EndsAt         *time.Time `gorm:"index" json:"ends_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (Campaign) TableName() string {
	return "campaigns"
}

// IsActive reports whether the campaign still accepts referrals.
func (c *Campaign) IsActive() bool {
	return c.Status == CampaignStatusActive
}
