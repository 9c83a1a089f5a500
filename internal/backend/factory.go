package backend

import (
	"context"
	"fmt"
	"log/slog"

	"caffeine/internal/adapters"
	"caffeine/internal/amqp"
	"caffeine/internal/backend/memory"
	"caffeine/internal/core"
	"caffeine/internal/services"
	"caffeine/internal/storage"
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
	policy := core.NewRolePolicy(config.AdminPrincipals)

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(config, policy)
	case MemoryBackend:
		return f.createMemoryBackend(policy)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(config Config, policy core.RolePolicy) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	// AMQP is optional; without it entries are simply not mirrored.
	var amqpClient *amqp.Client
	if config.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without sync", "error", err)
			amqpClient = nil
		} else {
			f.logger.Info("Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	var publisher services.Publisher
	if amqpClient != nil {
		publisher = amqpClient
	}
	entryService := services.NewEntryService(repo, publisher)
	adapter := adapters.NewSQLiteAdapter(repo, entryService, policy)

	f.logger.Info("Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"amqp_enabled", amqpClient != nil)

	return &BackendResult{
		Backend: adapter,
		Cleanup: entryService.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(policy core.RolePolicy) (*BackendResult, error) {
	f.logger.Info("Initialized memory backend")
	return &BackendResult{Backend: memory.New(policy)}, nil
}

var (
	_ Backend = (*adapters.SQLiteAdapter)(nil)
	_ Backend = (*memory.Store)(nil)
)
