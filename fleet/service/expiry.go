package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// minExpiryInterval keeps tiny TTLs from spinning the ticker
const minExpiryInterval = time.Second

// RunIdleExpiry removes idle rovers every maxAge/2 until ctx is done.
// A non-positive maxAge disables expiry and returns immediately.
func RunIdleExpiry(ctx context.Context, svc RoverService, maxAge time.Duration, logger zerolog.Logger) {
	if maxAge <= 0 {
		return
	}

	interval := maxAge / 2
	if interval < minExpiryInterval {
		interval = minExpiryInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := svc.ExpireIdle(ctx, maxAge)
			if err != nil {
				logger.Warn().Err(err).Msg("idle expiry failed")
				continue
			}
			if len(removed) > 0 {
				logger.Info().Strs("rover_ids", removed).Msg("expired idle rovers")
			}
		}
	}
}
