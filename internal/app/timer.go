package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"quiz-attempt-service/internal/session"
)

// RunTimer ticks every live attempt once per interval until ctx is done.
// It is the only clock the sessions see.
func (s *AttemptService) RunTimer(ctx context.Context, interval time.Duration) error {
	seconds := int(interval / time.Second)
	if seconds < 1 {
		seconds = 1
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.TickAll(ctx, seconds)
		}
	}
}

// TickAll advances the countdown of every active attempt by seconds, persists
// attempts that timed out, retries results that failed to persist and evicts
// submitted attempts past the retention window.
func (s *AttemptService) TickAll(ctx context.Context, seconds int) {
	now := s.now()
	attempts := s.attempts.All()
	s.metrics.InFlight(len(attempts))

	for _, attempt := range attempts {
		attempt.mu.Lock()
		phase := attempt.session.Phase()
		switch phase {
		case session.Active:
			before := attempt.session.TimeRemaining()
			result, err := attempt.session.Tick(seconds)
			if err != nil {
				attempt.mu.Unlock()
				s.log.Warn("tick failed", zap.String("attempt_id", attempt.id), zap.Error(err))
				continue
			}
			if result == nil && attempt.session.TimeRemaining() == before {
				// untimed quiz: nothing to store or push
				attempt.mu.Unlock()
				continue
			}
			attempt.broadcastLocked()
			attempt.mu.Unlock()
			if result != nil {
				if err := s.finalize(ctx, attempt); err != nil {
					continue
				}
			} else if err := s.attempts.Save(ctx, attempt); err != nil {
				s.log.Warn("save attempt failed", zap.String("attempt_id", attempt.id), zap.Error(err))
			}
		case session.Submitted:
			persisted := attempt.persisted
			expired := persisted && now.Sub(attempt.submittedAt) >= s.retention
			attempt.mu.Unlock()
			if !persisted {
				_ = s.finalize(ctx, attempt)
			} else if expired {
				s.attempts.Delete(ctx, attempt.id)
			}
		default:
			attempt.mu.Unlock()
			s.attempts.Delete(ctx, attempt.id)
		}
	}
}
