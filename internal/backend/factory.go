package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"budgie/internal/amqp"
	"budgie/internal/ledger"
	"budgie/internal/ledger/memory"
	"budgie/internal/storage"
	"budgie/internal/storage/postgres"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		store   ledger.Store
		closeFn CleanupFunc
		err     error
	)
	switch config.Type {
	case SQLiteBackend:
		store, closeFn, err = f.createSQLiteStore(config)
	case PostgresBackend:
		store, closeFn, err = f.createPostgresStore(ctx, config)
	case MemoryBackend:
		store = f.createMemoryStore(config)
	default:
		err = fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	publisher := f.createPublisher(config)

	return &BackendResult{
		Store:     store,
		Publisher: publisher,
		Cleanup: func() error {
			var errs []error
			if publisher != nil {
				errs = append(errs, publisher.Close())
			}
			if closeFn != nil {
				errs = append(errs, closeFn())
			}
			return errors.Join(errs...)
		},
	}, nil
}

func (f *DefaultFactory) createSQLiteStore(config Config) (ledger.Store, CleanupFunc, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return repo, repo.Close, nil
}

func (f *DefaultFactory) createPostgresStore(ctx context.Context, config Config) (ledger.Store, CleanupFunc, error) {
	pg, err := postgres.Open(ctx, config.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize Postgres storage: %w", err)
	}
	f.logger.Info("Initialized Postgres backend")
	return pg, pg.Close, nil
}

func (f *DefaultFactory) createMemoryStore(config Config) ledger.Store {
	if config.SeedUser == "" {
		f.logger.Info("Initialized memory backend")
		return memory.New()
	}
	cats := config.SeedCategories
	if len(cats) == 0 {
		cats = DefaultCategories
	}
	f.logger.Info("Initialized memory backend", "seed_user", config.SeedUser, "categories", len(cats))
	return memory.NewSeeded(config.SeedUser, cats...)
}

// createPublisher connects the optional event bus. A failed dial is logged
// and the backend runs without events.
func (f *DefaultFactory) createPublisher(config Config) *amqp.Client {
	if config.AMQPURL == "" {
		return nil
	}
	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
	if err != nil {
		f.logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
		return nil
	}
	f.logger.Info("Initialized AMQP client", "exchange", config.AMQPExchange, "queue", config.AMQPQueue)
	return client
}
