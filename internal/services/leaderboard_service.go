package services

import (
	"context"
	"log"

	"giveaway-referrals/internal/admission"
	"giveaway-referrals/internal/leaderboard"
	"giveaway-referrals/internal/models"
)

// LeaderboardStore is the read side of the attribution store.
type LeaderboardStore interface {
	CampaignExists(ctx context.Context, campaignID string) (bool, error)
	TallyByCampaign(ctx context.Context, campaignID string) ([]models.ReferrerTally, error)
	TallyByReferrer(ctx context.Context) ([]models.ReferrerTally, error)
	SumByReferrer(ctx context.Context, referrerName string) (int64, error)
	ProfileImages(ctx context.Context, usernames []string) (map[string]string, error)
}

// LeaderboardService computes boards on demand. Reads may be stale by one
// write or by the cache TTL.
type LeaderboardService struct {
	store LeaderboardStore
	cache LeaderboardCache
}

// NewLeaderboardService creates a LeaderboardService. cache may be nil.
func NewLeaderboardService(store LeaderboardStore, cache LeaderboardCache) *LeaderboardService {
	return &LeaderboardService{store: store, cache: cache}
}

// RankCampaign ranks the referrers of one campaign.
func (s *LeaderboardService) RankCampaign(ctx context.Context, campaignID string) ([]leaderboard.Entry, error) {
	key := campaignBoardKey(campaignID)
	if entries, ok := s.cached(ctx, key); ok {
		return entries, nil
	}

	exists, err := s.store.CampaignExists(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, admission.ErrCampaignNotFound
	}

	tallies, err := s.store.TallyByCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	entries := leaderboard.Rank(toTallies(tallies))
	s.remember(ctx, key, entries)
	return entries, nil
}

// RankGlobal ranks referrers across every campaign, closed ones included,
// and attaches each referrer's profile picture.
func (s *LeaderboardService) RankGlobal(ctx context.Context) ([]leaderboard.Entry, error) {
	if entries, ok := s.cached(ctx, globalBoardKey); ok {
		return entries, nil
	}

	tallies, err := s.store.TallyByReferrer(ctx)
	if err != nil {
		return nil, err
	}
	entries := leaderboard.Rank(toTallies(tallies))

	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.ReferrerName
	}
	images, err := s.store.ProfileImages(ctx, names)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i].ProfilePic = images[entries[i].ReferrerName]
	}

	s.remember(ctx, globalBoardKey, entries)
	return entries, nil
}

// ReferrerTotal is a referrer's count summed across all campaigns.
func (s *LeaderboardService) ReferrerTotal(ctx context.Context, referrerName string) (int64, error) {
	return s.store.SumByReferrer(ctx, referrerName)
}

// Invalidate drops the global board and, when campaignID is set, that
// campaign's board.
func (s *LeaderboardService) Invalidate(ctx context.Context, campaignID string) {
	if s.cache == nil {
		return
	}
	keys := []string{globalBoardKey}
	if campaignID != "" {
		keys = append(keys, campaignBoardKey(campaignID))
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		log.Printf("[Leaderboard] Warning: cache invalidation failed: %v", err)
	}
}

func (s *LeaderboardService) cached(ctx context.Context, key string) ([]leaderboard.Entry, bool) {
	if s.cache == nil {
		return nil, false
	}
	entries, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		log.Printf("[Leaderboard] Warning: cache read failed: %v", err)
		return nil, false
	}
	return entries, ok
}

func (s *LeaderboardService) remember(ctx context.Context, key string, entries []leaderboard.Entry) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, entries); err != nil {
		log.Printf("[Leaderboard] Warning: cache write failed: %v", err)
	}
}

func toTallies(rows []models.ReferrerTally) []leaderboard.Tally {
	out := make([]leaderboard.Tally, len(rows))
	for i, r := range rows {
		out[i] = leaderboard.Tally{ReferrerName: r.ReferrerName, Count: r.Total}
	}
	return out
}
