package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// ExpiryStore closes campaigns whose end time has passed
type ExpiryStore interface {
	CloseExpiredCampaigns(ctx context.Context, now time.Time) (int64, error)
}

// CampaignExpiryJob periodically closes overdue campaigns. Closed campaigns
// keep counting toward global totals, so no board is invalidated.
type CampaignExpiryJob struct {
	store     ExpiryStore
	scheduler gocron.Scheduler
	now       func() time.Time
}

func NewCampaignExpiryJob(store ExpiryStore) *CampaignExpiryJob {
	return &CampaignExpiryJob{
		store: store,
		now:   time.Now,
	}
}

// Start schedules the job every interval and runs it once immediately
func (j *CampaignExpiryJob) Start(interval time.Duration) error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if _, err := j.RunOnce(context.Background()); err != nil {
				log.Printf("[Scheduler] Campaign expiry failed: %v", err)
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		_ = sched.Shutdown()
		return fmt.Errorf("failed to schedule campaign expiry: %w", err)
	}

	sched.Start()
	j.scheduler = sched
	return nil
}

// Stop shuts the scheduler down, waiting for a running pass to finish
func (j *CampaignExpiryJob) Stop() error {
	if j.scheduler == nil {
		return nil
	}
	return j.scheduler.Shutdown()
}

// RunOnce closes every active campaign whose end time has passed
func (j *CampaignExpiryJob) RunOnce(ctx context.Context) (int64, error) {
	closed, err := j.store.CloseExpiredCampaigns(ctx, j.now().UTC())
	if err != nil {
		return 0, err
	}
	if closed > 0 {
		log.Printf("[Scheduler] Closed %d expired campaigns", closed)
	}
	return closed, nil
}
