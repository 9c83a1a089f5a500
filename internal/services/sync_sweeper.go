package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"caffeine/internal/core"
	"caffeine/internal/storage"
)

// SyncSweeperConfig holds configuration for the sync sweeper
type SyncSweeperConfig struct {
	// Interval is how often pending entries are republished (default: 5m)
	Interval time.Duration

	// BatchSize is the max number of entries republished per sweep (default: 50)
	BatchSize int

	// MinAge skips entries younger than this, whose first message may still be in flight (default: 1m)
	MinAge time.Duration
}

func DefaultSyncSweeperConfig() SyncSweeperConfig {
	return SyncSweeperConfig{
		Interval:  5 * time.Minute,
		BatchSize: 50,
		MinAge:    time.Minute,
	}
}

type PendingSource interface {
	GetPendingSyncEntries(ctx context.Context, limit int) ([]storage.PendingSyncEntry, error)
}

type SyncPublisher interface {
	PublishEntrySync(ctx context.Context, id int64, principal core.Principal) error
}

// SyncSweeper republishes sync messages for entries the journal has not
// confirmed, covering publishes lost while the broker was unreachable.
type SyncSweeper struct {
	source    PendingSource
	publisher SyncPublisher
	config    SyncSweeperConfig
	now       func() time.Time

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewSyncSweeper(source PendingSource, publisher SyncPublisher, config SyncSweeperConfig) *SyncSweeper {
	return &SyncSweeper{
		source:    source,
		publisher: publisher,
		config:    config,
		now:       time.Now,
	}
}

// Start begins the sweep loop. Returns an error if already running.
func (p *SyncSweeper) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return fmt.Errorf("sync sweeper is already running")
	}
	if p.config.Interval <= 0 {
		return fmt.Errorf("sync sweeper interval must be positive")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Sync sweeper started",
		"interval", p.config.Interval,
		"batch_size", p.config.BatchSize)
	return nil
}

// Stop signals the loop and waits for it, bounded by ctx.
func (p *SyncSweeper) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	stopCh, doneCh := p.stopCh, p.doneCh
	p.mu.Unlock()

	close(stopCh)
	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Sync sweeper stopped gracefully")
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Sync sweeper stop timed out")
		return ctx.Err()
	}
}

func (p *SyncSweeper) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *SyncSweeper) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.SweepOnce(ctx); err != nil {
				slog.ErrorContext(ctx, "Sync sweep failed", "error", err)
			}
		}
	}
}

// SweepOnce republishes one batch and returns how many messages were sent.
func (p *SyncSweeper) SweepOnce(ctx context.Context) (int, error) {
	pending, err := p.source.GetPendingSyncEntries(ctx, p.config.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("list pending entries: %w", err)
	}

	cutoff := p.now().Add(-p.config.MinAge)
	sent := 0
	for _, e := range pending {
		if e.CreatedAt.After(cutoff) {
			continue
		}
		if err := p.publisher.PublishEntrySync(ctx, e.ID, e.Principal); err != nil {
			return sent, fmt.Errorf("republish entry %d: %w", e.ID, err)
		}
		sent++
	}
	if sent > 0 {
		slog.InfoContext(ctx, "Republished pending entries", "count", sent)
	}
	return sent, nil
}
