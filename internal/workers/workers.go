package workers

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// DeliveryPruner removes delivery log rows older than a cutoff.
type DeliveryPruner interface {
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// PruneDeliveries runs one pruning pass.
func PruneDeliveries(ctx context.Context, repo DeliveryPruner, retention time.Duration, now time.Time) (int64, error) {
	n, err := repo.PruneBefore(ctx, now.Add(-retention))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.Info().Int64("rows", n).Dur("retention", retention).Msg("pruned webhook deliveries")
	}
	return n, nil
}

// RunDeliveryPruner prunes on every tick until ctx is done.
func RunDeliveryPruner(ctx context.Context, repo DeliveryPruner, retention, interval time.Duration) {
	if retention <= 0 || interval <= 0 {
		log.Info().Msg("delivery pruner disabled")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if _, err := PruneDeliveries(ctx, repo, retention, now); err != nil {
				log.Error().Err(err).Msg("Error pruning webhook deliveries")
			}
		}
	}
}
