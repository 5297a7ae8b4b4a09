package services

import (
	"context"
	"errors"
	"log"
	"time"

	"giveaway-referrals/internal/admission"
	"giveaway-referrals/internal/identity"
	"giveaway-referrals/internal/models"
	"giveaway-referrals/internal/repository"
)

// AttributionStore is the write side of the attribution store plus the
// campaign lookups admission needs.
type AttributionStore interface {
	GetCampaign(ctx context.Context, campaignID string) (*models.Campaign, error)
	FindRecord(ctx context.Context, campaignID, admissionKey string) (*models.ReferralRecord, error)
	TryInsertOrIncrement(ctx context.Context, a repository.Attribution, mode admission.Mode) (repository.Outcome, int, error)
}

// Submission is a referral event as received from the HTTP surface.
type Submission struct {
	CampaignID   string
	ReferrerName string
	ClientIP     string
	SessionToken string
	// Requester is the authenticated username, empty for anonymous visitors.
	Requester string
}

// SubmitResult describes an admitted referral.
type SubmitResult struct {
	Outcome        repository.Outcome
	Count          int
	Key            identity.Key
	DestinationURL string
}

type ReferralService struct {
	store        AttributionStore
	policy       *admission.Policy
	leaderboards *LeaderboardService
	retryBackoff time.Duration
}

// NewReferralService creates a ReferralService. leaderboards may be nil when
// no cache needs invalidating.
func NewReferralService(store AttributionStore, policy *admission.Policy, leaderboards *LeaderboardService, retryBackoff time.Duration) *ReferralService {
	return &ReferralService{
		store:        store,
		policy:       policy,
		leaderboards: leaderboards,
		retryBackoff: retryBackoff,
	}
}

// Submit resolves the submitter's admission key, applies the admission
// policy to a read of current state and commits admitted referrals
// atomically. Rejections come back as admission errors; a store that stays
// unavailable after one retry comes back as admission.ErrStoreUnavailable.
// In accumulate mode the commit is not retried: a failure reported after the
// increment reached the database would otherwise count the visit twice.
func (s *ReferralService) Submit(ctx context.Context, sub Submission) (*SubmitResult, error) {
	key := identity.Resolve(identity.Event{
		ClientIP:     sub.ClientIP,
		SessionToken: sub.SessionToken,
	})
	req := admission.Request{
		CampaignID:   sub.CampaignID,
		ReferrerName: sub.ReferrerName,
		AdmissionKey: key.Value,
		Requester:    sub.Requester,
	}
	if err := s.policy.Validate(req); err != nil {
		return nil, err
	}

	var (
		campaign *models.Campaign
		state    *admission.CampaignState
		existing *admission.Existing
	)
	err := s.withRetry(ctx, "admission read", func() error {
		c, err := s.store.GetCampaign(ctx, sub.CampaignID)
		if errors.Is(err, admission.ErrCampaignNotFound) {
			campaign, state = nil, nil
			return nil
		}
		if err != nil {
			return err
		}
		campaign = c
		state = &admission.CampaignState{ID: c.ID, OwnerID: c.OwnerID, Active: c.IsActive()}

		record, err := s.store.FindRecord(ctx, sub.CampaignID, key.Value)
		if err != nil {
			return err
		}
		existing = nil
		if record != nil {
			existing = &admission.Existing{ReferrerName: record.ReferrerName, Count: record.Count}
		}
		return nil
	})
	if err != nil {
		return nil, s.failure(sub, err)
	}

	if err := s.policy.Decide(req, state, existing); err != nil {
		return nil, err
	}

	var (
		outcome repository.Outcome
		count   int
	)
	commit := func() error {
		var err error
		outcome, count, err = s.store.TryInsertOrIncrement(ctx, repository.Attribution{
			CampaignID:   sub.CampaignID,
			ReferrerName: sub.ReferrerName,
			Key:          key,
		}, s.policy.Mode())
		return err
	}
	if s.policy.Mode() == admission.ModeAccumulate {
		err = commit()
	} else {
		err = s.withRetry(ctx, "attribution commit", commit)
	}
	if err != nil {
		if admission.IsRejection(err) {
			return nil, err
		}
		return nil, s.failure(sub, err)
	}

	if s.leaderboards != nil {
		s.leaderboards.Invalidate(ctx, sub.CampaignID)
	}

	log.Printf("[Referral] campaign=%s referrer=%q outcome=%s count=%d low_confidence=%t",
		sub.CampaignID, sub.ReferrerName, outcome, count, key.LowConfidence())

	return &SubmitResult{
		Outcome:        outcome,
		Count:          count,
		Key:            key,
		DestinationURL: campaign.DestinationURL,
	}, nil
}

// withRetry runs fn and retries it once after the backoff when the store
// reports a transient failure.
func (s *ReferralService) withRetry(ctx context.Context, op string, fn func() error) error {
	err := fn()
	if err == nil || !errors.Is(err, admission.ErrStoreUnavailable) {
		return err
	}

	log.Printf("[Referral] %s failed, retrying in %s: %v", op, s.retryBackoff, err)
	timer := time.NewTimer(s.retryBackoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return err
	case <-timer.C:
	}
	return fn()
}

func (s *ReferralService) failure(sub Submission, err error) error {
	log.Printf("[Referral] Error: campaign=%s referrer=%q: %v", sub.CampaignID, sub.ReferrerName, err)
	return err
}
