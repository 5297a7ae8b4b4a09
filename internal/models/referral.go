package models

import (
	"time"
)

// ReferralRecord credits one admission key's referrals in a campaign to a
// referrer. There is at most one record per (campaign, admission key).
type ReferralRecord struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	CampaignID    string    `gorm:"type:varchar(36);not null;uniqueIndex:ux_referral_campaign_key,priority:1;index:idx_referral_campaign_count,priority:1" json:"campaign_id"`
	AdmissionKey  string    `gorm:"size:128;not null;uniqueIndex:ux_referral_campaign_key,priority:2" json:"-"`
	KeyConfidence string    `gorm:"size:8;not null;default:high" json:"-"`
	ReferrerName  string    `gorm:"size:64;not null;index" json:"referrer_name"`
	Count         int       `gorm:"not null;default:1;index:idx_referral_campaign_count,priority:2" json:"referral_count"`
	FirstSeenAt   time.Time `gorm:"not null" json:"first_seen_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (ReferralRecord) TableName() string {
	return "referral_records"
}

// ReferrerTally is a referrer's summed count, as read from the store.
type ReferrerTally struct {
	ReferrerName string `json:"referrer_name"`
	Total        int64  `json:"total"`
}
