package cron

import (
	"context"
	"fmt"

	"github.com/shopkit-labs/shopkit-backend/pkg/logger"
	"github.com/shopkit-labs/shopkit-backend/pkg/metrics"
)

const cartExpiryJobName = "cart_expiry_sweep"

type expiredCartSweeper interface {
	CleanupExpiredCarts(ctx context.Context) (int64, error)
}

// CartExpiryJob abandons guest carts whose TTL has lapsed.
type CartExpiryJob struct {
	logg    *logger.Logger
	sweeper expiredCartSweeper
	metrics *metrics.CronJobMetrics
}

// NewCartExpiryJob builds the expiry sweep job.
func NewCartExpiryJob(logg *logger.Logger, sweeper expiredCartSweeper, m *metrics.CronJobMetrics) (*CartExpiryJob, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if sweeper == nil {
		return nil, fmt.Errorf("cart sweeper required")
	}
	return &CartExpiryJob{logg: logg, sweeper: sweeper, metrics: m}, nil
}

// Name implements Job.
func (j *CartExpiryJob) Name() string {
	return cartExpiryJobName
}

// Run implements Job. The sweep is idempotent; an already-swept cart is never
// touched twice.
func (j *CartExpiryJob) Run(ctx context.Context) error {
	swept, err := j.sweeper.CleanupExpiredCarts(ctx)
	if err != nil {
		return fmt.Errorf("cleanup expired carts: %w", err)
	}

	j.metrics.AddSwept(cartExpiryJobName, swept)
	j.logg.Info(j.logg.WithField(ctx, "swept", swept), "expired carts abandoned")
	return nil
}
