package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"giveaway-referrals/internal/admission"
	"giveaway-referrals/internal/identity"
	"giveaway-referrals/internal/models"
)

// Outcome is the result of an attribution commit.
type Outcome int

const (
	OutcomeRejected Outcome = iota
	OutcomeInserted
	OutcomeIncremented
)

func (o Outcome) String() string {
	switch o {
	case OutcomeInserted:
		return "inserted"
	case OutcomeIncremented:
		return "incremented"
	default:
		return "rejected"
	}
}

// Attribution is one admitted referral to commit.
type Attribution struct {
	CampaignID   string
	ReferrerName string
	Key          identity.Key
}

// TryInsertOrIncrement commits an admitted referral as one atomic unit.
//
// The campaign row is read under a share lock so a concurrent close or
// delete cannot interleave, then a single INSERT ... ON CONFLICT on
// (campaign_id, admission_key) decides the outcome in the database:
//   - dedup: DO NOTHING; a conflict means OutcomeRejected.
//   - accumulate: DO UPDATE count+1 only when the stored referrer matches;
//     a conflict with another referrer means OutcomeRejected.
//
// Exactly one concurrent caller per (campaign, key) can see OutcomeInserted.
// Rejected commits return admission.ErrDuplicateOrigin alongside the outcome.
func (r *Repository) TryInsertOrIncrement(ctx context.Context, a Attribution, mode admission.Mode) (Outcome, int, error) {
	outcome := OutcomeRejected
	var count int

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var campaign models.Campaign
		err := tx.Clauses(clause.Locking{Strength: "SHARE"}).
			Select("id", "status").
			Where("id = ?", a.CampaignID).
			Take(&campaign).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return admission.ErrCampaignNotFound
		}
		if err != nil {
			return err
		}
		if !campaign.IsActive() {
			return admission.ErrCampaignClosed
		}

		now := time.Now().UTC()
		record := models.ReferralRecord{
			CampaignID:    a.CampaignID,
			AdmissionKey:  a.Key.Value,
			KeyConfidence: string(a.Key.Confidence),
			ReferrerName:  a.ReferrerName,
			Count:         1,
			FirstSeenAt:   now,
			UpdatedAt:     now,
		}

		conflict := clause.OnConflict{
			Columns: []clause.Column{{Name: "campaign_id"}, {Name: "admission_key"}},
		}
		if mode == admission.ModeAccumulate {
			conflict.DoUpdates = clause.Assignments(map[string]interface{}{
				"count":      gorm.Expr("referral_records.count + 1"),
				"updated_at": now,
			})
			conflict.Where = clause.Where{Exprs: []clause.Expression{
				clause.Expr{SQL: "referral_records.referrer_name = excluded.referrer_name"},
			}}
		} else {
			conflict.DoNothing = true
		}

		result := tx.Clauses(conflict, clause.Returning{Columns: []clause.Column{{Name: "id"}, {Name: "count"}}}).
			Create(&record)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return admission.ErrDuplicateOrigin
		}

		count = record.Count
		if count == 1 {
			outcome = OutcomeInserted
		} else {
			outcome = OutcomeIncremented
		}
		return nil
	})
	if err != nil {
		return OutcomeRejected, 0, storeFailure("attribution commit", err)
	}
	return outcome, count, nil
}

// FindRecord returns the record stored for (campaign, key), or nil.
func (r *Repository) FindRecord(ctx context.Context, campaignID, admissionKey string) (*models.ReferralRecord, error) {
	var record models.ReferralRecord
	err := r.db.WithContext(ctx).
		Where("campaign_id = ? AND admission_key = ?", campaignID, admissionKey).
		Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storeFailure("find record", err)
	}
	return &record, nil
}

// DeleteCampaignRecords removes every record of a campaign in one statement.
func (r *Repository) DeleteCampaignRecords(ctx context.Context, campaignID string) (int64, error) {
	n, err := deleteRecords(r.db.WithContext(ctx), campaignID)
	if err != nil {
		return 0, storeFailure("delete campaign records", err)
	}
	return n, nil
}

func deleteRecords(tx *gorm.DB, campaignID string) (int64, error) {
	result := tx.Where("campaign_id = ?", campaignID).Delete(&models.ReferralRecord{})
	return result.RowsAffected, result.Error
}

// ListByCampaign returns a campaign's raw records, highest count first.
func (r *Repository) ListByCampaign(ctx context.Context, campaignID string) ([]models.ReferralRecord, error) {
	var records []models.ReferralRecord
	if err := r.db.WithContext(ctx).
		Where("campaign_id = ?", campaignID).
		Order("count DESC").
		Order("referrer_name ASC").
		Order("id ASC").
		Find(&records).Error; err != nil {
		return nil, storeFailure("list campaign records", err)
	}
	return records, nil
}

// SumByReferrer totals a referrer's counts across every campaign.
func (r *Repository) SumByReferrer(ctx context.Context, referrerName string) (int64, error) {
	var total int64
	row := r.db.WithContext(ctx).Model(&models.ReferralRecord{}).
		Where("referrer_name = ?", referrerName).
		Select("COALESCE(SUM(count), 0)").Row()
	if err := row.Scan(&total); err != nil {
		return 0, storeFailure("sum by referrer", err)
	}
	return total, nil
}

// TallyByCampaign sums counts per referrer within one campaign.
func (r *Repository) TallyByCampaign(ctx context.Context, campaignID string) ([]models.ReferrerTally, error) {
	var tallies []models.ReferrerTally
	if err := r.db.WithContext(ctx).Model(&models.ReferralRecord{}).
		Select("referrer_name, SUM(count) AS total").
		Where("campaign_id = ?", campaignID).
		Group("referrer_name").
		Scan(&tallies).Error; err != nil {
		return nil, storeFailure("tally campaign", err)
	}
	return tallies, nil
}

// TallyByReferrer sums counts per referrer across all campaigns, whatever
// their status.
func (r *Repository) TallyByReferrer(ctx context.Context) ([]models.ReferrerTally, error) {
	var tallies []models.ReferrerTally
	if err := r.db.WithContext(ctx).Model(&models.ReferralRecord{}).
		Select("referrer_name, SUM(count) AS total").
		Group("referrer_name").
		Scan(&tallies).Error; err != nil {
		return nil, storeFailure("tally referrers", err)
	}
	return tallies, nil
}
