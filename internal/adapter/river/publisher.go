package river

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/riverqueue/river"

	"github.com/neomorfeo/roomlist/internal/contracts"
	"github.com/neomorfeo/roomlist/internal/domain"
)

// Compile-time check: Notifier implements domain.Notifier.
var _ domain.Notifier = (*Notifier)(nil)

// NotificationJobArgs carries a validated moderation notification.
// River serializes it as JSON into its job queue table, so the worker never
// needs to read the room back.
type NotificationJobArgs struct {
	contracts.ModerationNotification
}

// Kind returns the unique job type identifier used by River's job routing.
func (NotificationJobArgs) Kind() string { return "room.moderation_notification" }

// InsertOpts bounds retries of a failing delivery.
func (NotificationJobArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{MaxAttempts: 8}
}

// Client is the River client type parameterized for SQLite (*sql.Tx).
type Client = river.Client[*sql.Tx]

// Notifier implements domain.Notifier by enqueuing River jobs.
type Notifier struct {
	client *Client
	now    func() time.Time
}

// NewNotifier creates a notifier backed by the given River client.
func NewNotifier(client *Client) *Notifier {
	return &Notifier{client: client, now: time.Now}
}

// Notify checks the payload against its contract and enqueues it for delivery.
func (p *Notifier) Notify(ctx context.Context, n domain.Notification) error {
	payload := contracts.NewModerationNotification(n, uuid.NewString(), p.now())
	if err := payload.Validate(); err != nil {
		return fmt.Errorf("notification contract: %w", err)
	}

	if _, err := p.client.Insert(ctx, NotificationJobArgs{ModerationNotification: payload}, nil); err != nil {
		return fmt.Errorf("enqueuing notification job: %w", err)
	}
	return nil
}
