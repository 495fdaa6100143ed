package service

import (
	"context"
	"time"

	"order-sync-gateway/internal/core/ports"
	"order-sync-gateway/pkg/logger"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// TrackingPoller periodically asks the pipeline to poll the fulfillment
// provider for records still awaiting tracking.
type TrackingPoller struct {
	sync     ports.OrderSyncService
	interval time.Duration
	log      zerolog.Logger
}

// NewTrackingPoller creates a poller that runs every interval.
func NewTrackingPoller(sync ports.OrderSyncService, interval time.Duration, log zerolog.Logger) *TrackingPoller {
	if interval <= 0 {
		interval = time.Minute
	}
	return &TrackingPoller{
		sync:     sync,
		interval: interval,
		log:      log.With().Str("worker", "tracking_poller").Logger(),
	}
}

// Run polls once immediately and then on every tick until ctx is done.
func (p *TrackingPoller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.log.Info().Dur("interval", p.interval).Msg("tracking poller started")
	p.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			p.log.Info().Msg("tracking poller stopped")
			return nil
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *TrackingPoller) poll(ctx context.Context) {
	ctx = logger.WithCorrelationID(ctx, p.log, "poll-"+uuid.NewString()[:8])

	start := time.Now()
	finished, err := p.sync.PollTracking(ctx)
	if err != nil {
		if ctx.Err() == nil {
			p.log.Error().Err(err).Msg("tracking poll round failed")
		}
		return
	}
	p.log.Debug().
		Int("finished", finished).
		Dur("elapsed", time.Since(start)).
		Msg("tracking poll round complete")
}
