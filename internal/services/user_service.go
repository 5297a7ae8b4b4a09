package services

import (
	"context"

	"giveaway-referrals/internal/models"
)

// UserStore is the profile side of the repository.
type UserStore interface {
	GetUser(ctx context.Context, userID string) (*models.User, error)
	ListCampaignsByOwner(ctx context.Context, ownerID string) ([]models.Campaign, error)
	SumByReferrer(ctx context.Context, referrerName string) (int64, error)
}

// Profile is what a signed-in user sees about themselves
type Profile struct {
	User           *models.User      `json:"user"`
	Campaigns      []models.Campaign `json:"giveaways"`
	TotalReferrals int64             `json:"total_referrals"`
}

// UserService handles user-related business logic
type UserService struct {
	store UserStore
}

// NewUserService creates a new UserService
func NewUserService(store UserStore) *UserService {
	return &UserService{store: store}
}

// GetProfile returns the user, the campaigns they own and their referral
// total across every campaign. The total is keyed by username, the same name
// referrers submit.
func (s *UserService) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	campaigns, err := s.store.ListCampaignsByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}

	total, err := s.store.SumByReferrer(ctx, user.Username)
	if err != nil {
		return nil, err
	}

	return &Profile{User: user, Campaigns: campaigns, TotalReferrals: total}, nil
}
