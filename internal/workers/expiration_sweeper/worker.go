package expiration_sweeper

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/settlepay/settlement_service/internal/domain/services/paymentrequest"
	"github.com/settlepay/settlement_service/pkg/metrics"
)

const defaultSchedule = "@every 1m"

// Sweeper expires overdue payment requests and frees their wallets
type Sweeper interface {
	HandleExpired(ctx context.Context) (*paymentrequest.SweepResult, error)
}

// Worker runs the expiration sweep on a cron schedule. Runs never overlap.
type Worker struct {
	sweeper  Sweeper
	schedule string
	timeout  time.Duration
	cron     *cron.Cron
	logger   *zap.Logger
}

// NewWorker creates an expiration worker. An empty schedule runs every minute.
func NewWorker(sweeper Sweeper, schedule string, logger *zap.Logger) *Worker {
	if schedule == "" {
		schedule = defaultSchedule
	}
	return &Worker{
		sweeper:  sweeper,
		schedule: schedule,
		timeout:  5 * time.Minute,
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		logger:   logger.Named("expiration_sweeper"),
	}
}

func (w *Worker) Start() error {
	if _, err := w.cron.AddFunc(w.schedule, w.run); err != nil {
		return fmt.Errorf("invalid expiration schedule %q: %w", w.schedule, err)
	}

	w.cron.Start()
	w.logger.Info("Expiration sweeper started", zap.String("schedule", w.schedule))
	return nil
}

func (w *Worker) run() {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	if _, err := w.RunOnce(ctx); err != nil {
		w.logger.Error("Expiration sweep failed", zap.Error(err))
	}
}

// RunOnce performs a single sweep and records its outcome
func (w *Worker) RunOnce(ctx context.Context) (*paymentrequest.SweepResult, error) {
	start := time.Now()
	result, err := w.sweeper.HandleExpired(ctx)
	metrics.ExpirationSweepDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.ExpirationSweepsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	outcome := "ok"
	if result.Failed > 0 {
		outcome = "partial"
	}
	metrics.ExpirationSweepsTotal.WithLabelValues(outcome).Inc()

	if result.Expired > 0 || result.Released > 0 || result.Failed > 0 {
		w.logger.Info("Expiration sweep finished",
			zap.Int("expired", result.Expired),
			zap.Int("released", result.Released),
			zap.Int("failed", result.Failed),
			zap.Duration("duration", time.Since(start)))
	}
	return result, nil
}

// Shutdown stops scheduling and waits up to timeout for a running sweep
func (w *Worker) Shutdown(timeout time.Duration) error {
	done := w.cron.Stop()

	select {
	case <-done.Done():
		w.logger.Info("Expiration sweeper stopped")
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("expiration sweep still running after %s", timeout)
	}
}
