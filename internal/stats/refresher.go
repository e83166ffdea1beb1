package stats

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/lostfound/community/pkg/logging"
)

// Refresher recomputes community statistics on a fixed interval
type Refresher struct {
	service  *Service
	interval time.Duration
	logger   *zap.Logger
}

// NewRefresher creates a refresher
func NewRefresher(service *Service, interval time.Duration) *Refresher {
	return &Refresher{
		service:  service,
		interval: interval,
		logger:   logging.WithComponent("refresher"),
	}
}

// Run refreshes until ctx is cancelled. Failures are logged and retried on
// the next tick.
func (r *Refresher) Run(ctx context.Context) error {
	r.logger.Info("Starting stats refresher", zap.Duration("interval", r.interval))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			stats, err := r.service.Refresh(ctx)
			if err != nil {
				r.logger.Error("Failed to refresh stats", zap.Error(err))
			} else {
				r.logger.Debug("Refreshed stats",
					zap.Int64("total_items", stats.TotalItems),
					zap.Int64("active_items", stats.ActiveItems),
					zap.Int64("returned_items", stats.ReturnedItems),
					zap.Int64("community_members", stats.CommunityMembers))
			}

			r.wait(ctx)
		}
	}
}

// wait waits for the interval or until context is cancelled
func (r *Refresher) wait(ctx context.Context) {
	timer := time.NewTimer(r.interval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
