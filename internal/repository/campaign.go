package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"giveaway-referrals/internal/admission"
	"giveaway-referrals/internal/models"
)

// CreateCampaign inserts a new campaign
func (r *Repository) CreateCampaign(ctx context.Context, campaign *models.Campaign) error {
	if err := r.db.WithContext(ctx).Create(campaign).Error; err != nil {
		return storeFailure("create campaign", err)
	}
	return nil
}

// GetCampaign retrieves a campaign by ID
func (r *Repository) GetCampaign(ctx context.Context, campaignID string) (*models.Campaign, error) {
	var campaign models.Campaign
	err := r.db.WithContext(ctx).Where("id = ?", campaignID).Take(&campaign).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, admission.ErrCampaignNotFound
	}
	if err != nil {
		return nil, storeFailure("get campaign", err)
	}
	return &campaign, nil
}

// CampaignExists reports whether a campaign with this ID exists
func (r *Repository) CampaignExists(ctx context.Context, campaignID string) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Campaign{}).
		Where("id = ?", campaignID).
		Count(&n).Error; err != nil {
		return false, storeFailure("campaign exists", err)
	}
	return n > 0, nil
}

// CampaignStatus returns the lifecycle status of a campaign
func (r *Repository) CampaignStatus(ctx context.Context, campaignID string) (string, error) {
	campaign, err := r.GetCampaign(ctx, campaignID)
	if err != nil {
		return "", err
	}
	return campaign.Status, nil
}

// CampaignOwner returns the owner of a campaign
func (r *Repository) CampaignOwner(ctx context.Context, campaignID string) (string, error) {
	campaign, err := r.GetCampaign(ctx, campaignID)
	if err != nil {
		return "", err
	}
	return campaign.OwnerID, nil
}

// UpdateOwnedCampaign applies updates to a campaign after checking, under a
// row lock, that ownerID owns it.
func (r *Repository) UpdateOwnedCampaign(ctx context.Context, campaignID, ownerID string, updates map[string]interface{}) (*models.Campaign, error) {
	var campaign models.Campaign
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockOwned(tx, campaignID, ownerID, &campaign); err != nil {
			return err
		}
		if err := tx.Model(&models.Campaign{}).Where("id = ?", campaignID).Updates(updates).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", campaignID).Take(&campaign).Error
	})
	if err != nil {
		return nil, storeFailure("update campaign", err)
	}
	return &campaign, nil
}

// DeleteCampaign removes a campaign and all of its referral records in one
// transaction. It returns the number of records removed.
func (r *Repository) DeleteCampaign(ctx context.Context, campaignID, ownerID string) (int64, error) {
	var removed int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var campaign models.Campaign
		if err := lockOwned(tx, campaignID, ownerID, &campaign); err != nil {
			return err
		}

		n, err := deleteRecords(tx, campaignID)
		if err != nil {
			return err
		}
		removed = n

		return tx.Where("id = ?", campaignID).Delete(&models.Campaign{}).Error
	})
	if err != nil {
		return 0, storeFailure("delete campaign", err)
	}
	return removed, nil
}

func lockOwned(tx *gorm.DB, campaignID, ownerID string, campaign *models.Campaign) error {
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", campaignID).
		Take(campaign).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return admission.ErrCampaignNotFound
	}
	if err != nil {
		return err
	}
	if campaign.OwnerID != ownerID {
		return admission.ErrNotOwner
	}
	return nil
}

// ListActiveCampaigns returns active campaigns, newest first
func (r *Repository) ListActiveCampaigns(ctx context.Context) ([]models.Campaign, error) {
	var campaigns []models.Campaign
	if err := r.db.WithContext(ctx).
		Where("status = ?", models.CampaignStatusActive).
		Order("created_at DESC").
		Find(&campaigns).Error; err != nil {
		return nil, storeFailure("list active campaigns", err)
	}
	return campaigns, nil
}

// ListCampaignsByOwner returns every campaign an owner created
func (r *Repository) ListCampaignsByOwner(ctx context.Context, ownerID string) ([]models.Campaign, error) {
	var campaigns []models.Campaign
	if err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&campaigns).Error; err != nil {
		return nil, storeFailure("list owner campaigns", err)
	}
	return campaigns, nil
}

// CloseExpiredCampaigns closes active campaigns whose end time has passed.
func (r *Repository) CloseExpiredCampaigns(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.Campaign{}).
		Where("status = ? AND ends_at IS NOT NULL AND ends_at <= ?", models.CampaignStatusActive, now).
		Updates(map[string]interface{}{
			"status":     models.CampaignStatusClosed,
			"updated_at": now,
		})
	if result.Error != nil {
		return 0, storeFailure("close expired campaigns", result.Error)
	}
	return result.RowsAffected, nil
}
