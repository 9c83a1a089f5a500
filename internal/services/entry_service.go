package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"caffeine/internal/core"
)

// EntryRepository is the storage used by EntryService.
type EntryRepository interface {
	CreateEntry(ctx context.Context, caller core.Principal, drinkName string, amountMg int64, consumptionTime time.Time) (core.Entry, error)
	DeleteEntry(ctx context.Context, caller core.Principal, id int64) (core.Entry, bool, error)
	Close() error
}

// Publisher announces entry changes to the sync worker.
type Publisher interface {
	PublishEntrySync(ctx context.Context, id int64, principal core.Principal) error
	PublishEntryDelete(ctx context.Context, principal core.Principal, e core.Entry) error
	Close() error
}

// EntryService saves entries locally and then announces them over AMQP.
// Publishing is best effort: a failed publish never fails the write, and the
// sync sweep picks the entry up later.
type EntryService struct {
	storage   EntryRepository
	publisher Publisher
}

// NewEntryService accepts a nil publisher when AMQP is not configured.
func NewEntryService(storage EntryRepository, publisher Publisher) *EntryService {
	return &EntryService{storage: storage, publisher: publisher}
}

func (s *EntryService) CreateEntry(ctx context.Context, caller core.Principal, drinkName string, amountMg int64, consumptionTime time.Time) (core.Entry, error) {
	e, err := s.storage.CreateEntry(ctx, caller, drinkName, amountMg, consumptionTime)
	if err != nil {
		return core.Entry{}, fmt.Errorf("save entry: %w", err)
	}

	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP publisher not available, skipping sync message", "id", e.ID)
		return e, nil
	}
	if err := s.publisher.PublishEntrySync(ctx, e.ID, caller); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message", "id", e.ID, "error", err)
	}
	return e, nil
}

// DeleteEntry reports false when the caller owns no entry with that id.
func (s *EntryService) DeleteEntry(ctx context.Context, caller core.Principal, id int64) (bool, error) {
	e, ok, err := s.storage.DeleteEntry(ctx, caller, id)
	if err != nil {
		return false, fmt.Errorf("delete entry: %w", err)
	}
	if !ok {
		return false, nil
	}

	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP publisher not available, skipping delete message", "id", id)
		return true, nil
	}
	if err := s.publisher.PublishEntryDelete(ctx, caller, e); err != nil {
		slog.ErrorContext(ctx, "Failed to publish delete message", "id", id, "error", err)
	}
	return true, nil
}

// Close closes both storage and AMQP connections
func (s *EntryService) Close() error {
	var errs []error
	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("close entry service: %w", err)
	}
	return nil
}
