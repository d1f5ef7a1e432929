package river

import (
	"context"
	"log/slog"
	"time"

	"github.com/riverqueue/river"

	"github.com/neomorfeo/roomlist/internal/contracts"
)

// Deliverer hands a notification to the owner-facing channel.
type Deliverer interface {
	Deliver(ctx context.Context, n contracts.ModerationNotification) error
}

// LogDeliverer only records the notification. Used when no webhook is configured.
type LogDeliverer struct{}

func (LogDeliverer) Deliver(ctx context.Context, n contracts.ModerationNotification) error {
	slog.InfoContext(ctx, "moderation notification (no webhook configured)",
		"event_id", n.EventID, "owner_id", n.OwnerID, "room_id", n.RoomID, "status", n.Status)
	return nil
}

// NotificationWorker delivers moderation notification jobs. A returned error
// makes River retry the job with backoff.
type NotificationWorker struct {
	river.WorkerDefaults[NotificationJobArgs]
	deliverer Deliverer
	logger    *slog.Logger
}

// Timeout bounds a single delivery attempt.
func (w *NotificationWorker) Timeout(*river.Job[NotificationJobArgs]) time.Duration {
	return 30 * time.Second
}

// Work processes a single notification job.
func (w *NotificationWorker) Work(ctx context.Context, job *river.Job[NotificationJobArgs]) error {
	w.logger.InfoContext(ctx, "delivering moderation notification",
		"event_id", job.Args.EventID,
		"room_id", job.Args.RoomID,
		"status", job.Args.Status,
		"job_id", job.ID,
		"attempt", job.Attempt,
	)

	if err := w.deliverer.Deliver(ctx, job.Args.ModerationNotification); err != nil {
		w.logger.WarnContext(ctx, "notification delivery failed",
			"event_id", job.Args.EventID, "attempt", job.Attempt, "error", err)
		return err
	}
	return nil
}
