package river

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riversqlite"
	"github.com/riverqueue/river/rivermigrate"
)

const defaultMaxWorkers = 2

// Option tunes the queue built by Setup.
type Option func(*settings)

type settings struct {
	logger     *slog.Logger
	maxWorkers int
}

// WithLogger routes River's own logs and the worker's logs to l.
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// WithMaxWorkers sets how many notifications are delivered concurrently.
func WithMaxWorkers(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.maxWorkers = n
		}
	}
}

// Setup migrates River's tables on db and returns a client with the notification
// worker registered. A nil deliverer only logs. The caller owns Start and Stop.
func Setup(ctx context.Context, db *sql.DB, deliverer Deliverer, opts ...Option) (*Client, error) {
	cfg := settings{logger: slog.Default(), maxWorkers: defaultMaxWorkers}
	for _, opt := range opts {
		opt(&cfg)
	}

	driver := riversqlite.New(db)

	// River's schema lives beside the goose-managed rooms schema, versioned separately.
	migrator, err := rivermigrate.New(driver, &rivermigrate.Config{Logger: cfg.logger})
	if err != nil {
		return nil, fmt.Errorf("creating river migrator: %w", err)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		return nil, fmt.Errorf("running river migrations: %w", err)
	}

	if deliverer == nil {
		deliverer = LogDeliverer{}
	}
	workers := river.NewWorkers()
	if err := river.AddWorkerSafely(workers, &NotificationWorker{deliverer: deliverer, logger: cfg.logger}); err != nil {
		return nil, fmt.Errorf("registering notification worker: %w", err)
	}

	client, err := river.NewClient(driver, &river.Config{
		Logger: cfg.logger,
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: cfg.maxWorkers},
		},
		Workers: workers,
	})
	if err != nil {
		return nil, fmt.Errorf("creating river client: %w", err)
	}
	return client, nil
}
