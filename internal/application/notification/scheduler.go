package notification

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/fitnease/comms/internal/domain"
)

// DispatchDue delivers every scheduled notification whose time has passed.
// The conditional MarkSent makes the pass safe to run concurrently: a row
// already claimed by another pass is skipped, not re-delivered.
func (s *service) DispatchDue(ctx context.Context) (int, error) {
	due, err := s.repo.ListDue(ctx, s.now().UTC())
	if err != nil {
		return 0, err
	}

	dispatched := 0
	for i := range due {
		n := due[i]
		at := s.now().UTC()
		if err := s.repo.MarkSent(ctx, n.NotificationID, at); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				continue
			}
			slog.Error("mark notification sent failed",
				"notification_id", n.NotificationID, "error", err)
			continue
		}
		n.IsSent = true
		n.SentAt = &at
		n.UpdatedAt = at

		// Delivery uses the same pipeline as an immediate send. No origin
		// socket: scheduled rows reach every connected client.
		s.deliver(&n, "")
		dispatched++
	}
	if dispatched > 0 {
		slog.Info("scheduled notifications dispatched", "count", dispatched)
	}
	return dispatched, nil
}

// Scheduler periodically dispatches due notifications.
type Scheduler struct {
	service  Service
	interval time.Duration
}

func NewScheduler(service Service, interval time.Duration) *Scheduler {
	return &Scheduler{service: service, interval: interval}
}

// Run blocks until ctx is cancelled, dispatching on each tick.
func (w *Scheduler) Run(ctx context.Context) {
	slog.Info("notification scheduler started", "interval", w.interval)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("notification scheduler stopped")
			return
		case <-ticker.C:
			if _, err := w.service.DispatchDue(ctx); err != nil {
				slog.Error("dispatch due notifications failed", "error", err)
			}
		}
	}
}
