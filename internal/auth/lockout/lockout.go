// Package lockout throttles repeated failed logins. Failures are counted per
// email+IP pair over a sliding window; once the limit is hit, further attempts
// are refused until the window expires. Successful logins clear the counter.
package lockout

import (
	"context"
	"log/slog"
	"strings"
	"time"

	dErrors "clavis/pkg/domain-errors"
)

const (
	// DefaultMaxFailures is the attempt budget per window.
	DefaultMaxFailures = 5
	// DefaultWindow is the sliding window length.
	DefaultWindow = 15 * time.Minute
)

// Store counts failures. Implementations expire counters after the window.
type Store interface {
	// RecordFailure increments the counter and returns the new value.
	RecordFailure(ctx context.Context, key string) (int64, error)
	// Failures returns the current counter value, zero when absent.
	Failures(ctx context.Context, key string) (int64, error)
	// Clear removes the counter.
	Clear(ctx context.Context, key string) error
}

// Service enforces the lockout policy. Store errors degrade open: a broken
// counter backend must not block every login in the fleet.
type Service struct {
	store       Store
	logger      *slog.Logger
	maxFailures int64
}

func New(store Store, logger *slog.Logger) *Service {
	return &Service{
		store:       store,
		logger:      logger,
		maxFailures: DefaultMaxFailures,
	}
}

// Check fails with CodeRateLimited when the pair has exhausted its budget.
func (s *Service) Check(ctx context.Context, email, ip string) error {
	failures, err := s.store.Failures(ctx, Key(email, ip))
	if err != nil {
		s.logger.WarnContext(ctx, "lockout check degraded open", "error", err)
		return nil
	}
	if failures >= s.maxFailures {
		return dErrors.New(dErrors.CodeRateLimited, "too many failed login attempts")
	}
	return nil
}

// RecordFailure registers one failed attempt.
func (s *Service) RecordFailure(ctx context.Context, email, ip string) {
	count, err := s.store.RecordFailure(ctx, Key(email, ip))
	if err != nil {
		s.logger.WarnContext(ctx, "lockout failure not recorded", "error", err)
		return
	}
	if count == s.maxFailures {
		s.logger.WarnContext(ctx, "login lockout engaged", "failures", count)
	}
}

// Clear resets the counter after a successful login.
func (s *Service) Clear(ctx context.Context, email, ip string) {
	if err := s.store.Clear(ctx, Key(email, ip)); err != nil {
		s.logger.WarnContext(ctx, "lockout clear failed", "error", err)
	}
}

// Key derives the counter key. Email is lower-cased so case variants share one
// budget.
func Key(email, ip string) string {
	return "lockout:" + strings.ToLower(email) + ":" + ip
}
