package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gosimple/slug"

	"giveaway-referrals/internal/admission"
	"giveaway-referrals/internal/leaderboard"
	"giveaway-referrals/internal/models"
)

// CampaignStore is the campaign side of the repository.
type CampaignStore interface {
	CreateCampaign(ctx context.Context, campaign *models.Campaign) error
	GetCampaign(ctx context.Context, campaignID string) (*models.Campaign, error)
	UpdateOwnedCampaign(ctx context.Context, campaignID, ownerID string, updates map[string]interface{}) (*models.Campaign, error)
	DeleteCampaign(ctx context.Context, campaignID, ownerID string) (int64, error)
	ListActiveCampaigns(ctx context.Context) ([]models.Campaign, error)
	ListCampaignsByOwner(ctx context.Context, ownerID string) ([]models.Campaign, error)
}

// CreateCampaignInput holds the owner-supplied fields of a new campaign
type CreateCampaignInput struct {
	Name           string     `json:"name" validate:"required,max=200"`
	DestinationURL string     `json:"destination_url" validate:"required,http_url,max=1024"`
	EndsAt         *time.Time `json:"ends_at"`
}

// Dashboard is the owner's view of a campaign
type Dashboard struct {
	Campaign *models.Campaign    `json:"campaign"`
	Board    []leaderboard.Entry `json:"leaderboard"`
}

// CampaignService handles owner operations on campaigns. Every mutating call
// takes the acting owner explicitly.
type CampaignService struct {
	store        CampaignStore
	leaderboards *LeaderboardService
	validate     *validator.Validate
}

// NewCampaignService creates a new CampaignService
func NewCampaignService(store CampaignStore, leaderboards *LeaderboardService) *CampaignService {
	return &CampaignService{
		store:        store,
		leaderboards: leaderboards,
		validate:     validator.New(),
	}
}

// Create creates an active campaign owned by ownerID
func (s *CampaignService) Create(ctx context.Context, ownerID string, in CreateCampaignInput) (*models.Campaign, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("%w: owner is required", admission.ErrInvalidInput)
	}
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", admission.ErrInvalidInput, err)
	}
	if in.EndsAt != nil && !in.EndsAt.After(time.Now()) {
		return nil, fmt.Errorf("%w: ends_at must be in the future", admission.ErrInvalidInput)
	}

	id := uuid.NewString()
	campaign := &models.Campaign{
		ID:             id,
		OwnerID:        ownerID,
		Name:           in.Name,
		Slug:           campaignSlug(in.Name, id),
		DestinationURL: in.DestinationURL,
		Status:         models.CampaignStatusActive,
	}
	if in.EndsAt != nil {
		endsAt := in.EndsAt.UTC()
		campaign.EndsAt = &endsAt
	}

	if err := s.store.CreateCampaign(ctx, campaign); err != nil {
		return nil, err
	}

	log.Printf("[Campaign] created %s (%s) for owner %s", campaign.ID, campaign.Slug, ownerID)
	return campaign, nil
}

func campaignSlug(name, id string) string {
	base := slug.Make(name)
	if base == "" {
		return id[:8]
	}
	return base + "-" + id[:8]
}

// Close stops a campaign from accepting referrals. Its records still count
// toward global totals.
func (s *CampaignService) Close(ctx context.Context, campaignID, ownerID string) (*models.Campaign, error) {
	return s.store.UpdateOwnedCampaign(ctx, campaignID, ownerID, map[string]interface{}{
		"status": models.CampaignStatusClosed,
	})
}

// UpdateDestination changes where admitted referrals are redirected
func (s *CampaignService) UpdateDestination(ctx context.Context, campaignID, ownerID, destinationURL string) (*models.Campaign, error) {
	if err := s.validate.Var(destinationURL, "required,http_url,max=1024"); err != nil {
		return nil, fmt.Errorf("%w: destination must be an http(s) url", admission.ErrInvalidInput)
	}
	return s.store.UpdateOwnedCampaign(ctx, campaignID, ownerID, map[string]interface{}{
		"destination_url": destinationURL,
	})
}

// Delete removes a campaign and its referral records
func (s *CampaignService) Delete(ctx context.Context, campaignID, ownerID string) error {
	removed, err := s.store.DeleteCampaign(ctx, campaignID, ownerID)
	if err != nil {
		return err
	}
	if s.leaderboards != nil {
		s.leaderboards.Invalidate(ctx, campaignID)
	}

	log.Printf("[Campaign] deleted %s with %d referral records", campaignID, removed)
	return nil
}

// Dashboard returns a campaign and its board, for its owner only
func (s *CampaignService) Dashboard(ctx context.Context, campaignID, ownerID string) (*Dashboard, error) {
	campaign, err := s.store.GetCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if campaign.OwnerID != ownerID {
		return nil, admission.ErrNotOwner
	}

	board, err := s.leaderboards.RankCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	return &Dashboard{Campaign: campaign, Board: board}, nil
}

// ListActive returns every active campaign, newest first
func (s *CampaignService) ListActive(ctx context.Context) ([]models.Campaign, error) {
	return s.store.ListActiveCampaigns(ctx)
}

// ListByOwner returns the campaigns ownerID created
func (s *CampaignService) ListByOwner(ctx context.Context, ownerID string) ([]models.Campaign, error) {
	return s.store.ListCampaignsByOwner(ctx, ownerID)
}
