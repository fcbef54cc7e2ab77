package services

import (
	"context"
	"fmt"
	"time"

	"notification-system/pkg/logger"

	"github.com/robfig/cron/v3"
)

// ResyncScheduler periodically re-fetches the snapshot so unread-count
// divergence after failed mutations heals without user action.
type ResyncScheduler struct {
	cron     *cron.Cron
	sync     *FeedSynchronizer
	interval time.Duration
	log      logger.Logger
}

func NewResyncScheduler(sync *FeedSynchronizer, interval time.Duration, log logger.Logger) *ResyncScheduler {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &ResyncScheduler{
		cron:     cron.New(cron.WithSeconds()),
		sync:     sync,
		interval: interval,
		log:      log,
	}
}

func (s *ResyncScheduler) Start(ctx context.Context) error {
	s.log.Info("Starting feed resync scheduler", "interval", s.interval)

	_, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.interval), func() {
		refreshCtx, cancel := context.WithTimeout(ctx, refreshTimeout)
		defer cancel()

		if err := s.sync.Refresh(refreshCtx); err != nil {
			s.log.Error("Scheduled feed resync failed", "error", err)
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

func (s *ResyncScheduler) Stop() error {
	s.log.Info("Stopping feed resync scheduler")
	s.cron.Stop()
	return nil
}
