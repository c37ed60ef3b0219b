package jobs

import (
	"context"
	"time"

	"github.com/wolfman30/careconnect/pkg/logging"
)

// Job names.
const (
	NameOutbox         = "outbox_delivery"
	NameOTPSweep       = "otp_sweep"
	NameProcessedPurge = "processed_events_purge"
	NameRateLimitSweep = "rate_limit_sweep"
)

type outboxRunner interface {
	RunOnce(ctx context.Context) (int, error)
}

type otpSweeper interface {
	SweepExpiredOTPs(ctx context.Context) (int64, error)
}

type processedPurger interface {
	PurgeOlderThan(ctx context.Context, age time.Duration) (int64, error)
}

type limiterSweeper interface {
	Sweep(maxIdle time.Duration) int
}

// OutboxJob drains queued notifications.
func OutboxJob(schedule string, d outboxRunner, logger *logging.Logger) Job {
	return Job{
		Name:     NameOutbox,
		Schedule: schedule,
		Timeout:  time.Minute,
		Run: func(ctx context.Context) error {
			n, err := d.RunOnce(ctx)
			if n > 0 {
				logger.Info("outbox batch processed", "entries", n)
			}
			return err
		},
	}
}

// OTPSweepJob clears expired password reset codes.
func OTPSweepJob(s otpSweeper, logger *logging.Logger) Job {
	return Job{
		Name:     NameOTPSweep,
		Schedule: "@hourly",
		Run: func(ctx context.Context) error {
			n, err := s.SweepExpiredOTPs(ctx)
			if n > 0 {
				logger.Info("expired reset codes cleared", "count", n)
			}
			return err
		},
	}
}

// ProcessedPurgeJob drops webhook claims older than retention.
func ProcessedPurgeJob(p processedPurger, retention time.Duration, logger *logging.Logger) Job {
	return Job{
		Name:     NameProcessedPurge,
		Schedule: "@daily",
		Run: func(ctx context.Context) error {
			n, err := p.PurgeOlderThan(ctx, retention)
			if n > 0 {
				logger.Info("processed events purged", "count", n)
			}
			return err
		},
	}
}

// RateLimitSweepJob forgets idle client buckets.
func RateLimitSweepJob(l limiterSweeper, maxIdle time.Duration) Job {
	return Job{
		Name:     NameRateLimitSweep,
		Schedule: "@every 5m",
		Run: func(context.Context) error {
			l.Sweep(maxIdle)
			return nil
		},
	}
}
