package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bsm/redislock"
	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/backoffice/internal/jobs"
)

const quotationSweepLockKey = "lock:quotations:expire"

// Sweeper expires quotations whose validity ended before the given day.
type Sweeper interface {
	ExpireSweep(ctx context.Context, today time.Time) (int, error)
}

// QuotationExpiryJob runs the expiry sweep. Only one worker sweeps at a time;
// the others skip while the lock is held.
type QuotationExpiryJob struct {
	Sweeper Sweeper
	Locker  *redislock.Client
	LockTTL time.Duration
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewQuotationExpiryJob wires dependencies for the sweep handler.
func NewQuotationExpiryJob(sweeper Sweeper, locker *redislock.Client, logger *slog.Logger, metrics *jobmetrics.Metrics) *QuotationExpiryJob {
	return &QuotationExpiryJob{
		Sweeper: sweeper,
		Locker:  locker,
		LockTTL: 5 * time.Minute,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes TaskQuotationExpire tasks.
func (j *QuotationExpiryJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Sweeper == nil {
		return errors.New("quotation expiry: handler not configured")
	}
	var payload QuotationExpirePayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("quotation expiry payload: %v: %w", err, asynq.SkipRetry)
		}
	}
	day := j.clock()
	if payload.Day != "" {
		parsed, err := time.Parse("2006-01-02", payload.Day)
		if err != nil {
			return fmt.Errorf("quotation expiry day %q: %v: %w", payload.Day, err, asynq.SkipRetry)
		}
		day = parsed
	}
	logger := j.logger().With(slog.String("day", day.Format("2006-01-02")))

	if j.Locker != nil {
		lock, err := j.Locker.Obtain(ctx, quotationSweepLockKey, j.LockTTL, nil)
		if errors.Is(err, redislock.ErrNotObtained) {
			logger.Info("quotation sweep already running elsewhere, skipping")
			return nil
		}
		if err != nil {
			return fmt.Errorf("quotation expiry lock: %w", err)
		}
		defer func() {
			if err := lock.Release(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
				logger.Warn("release quotation sweep lock", slog.Any("error", err))
			}
		}()
	}

	tracker := j.Metrics.Track(TaskQuotationExpire)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	expired, err := j.Sweeper.ExpireSweep(ctx, day)
	if err != nil {
		logger.Error("quotation sweep failed", slog.Any("error", err))
		return err
	}
	j.Metrics.AddProcessed(TaskQuotationExpire, expired)
	logger.Info("quotation sweep completed", slog.Int("expired", expired))
	return nil
}

func (j *QuotationExpiryJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
