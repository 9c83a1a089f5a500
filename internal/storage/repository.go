package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"caffeine/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

// EntryRecord is an entry together with its owner, as needed by the sync worker.
type EntryRecord struct {
	Principal core.Principal
	Entry     core.Entry
	Synced    bool
}

// PendingSyncEntry identifies an entry that has not reached the journal yet.
type PendingSyncEntry struct {
	ID        int64
	Principal core.Principal
	CreatedAt time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if _, err := Migrate(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection serializes writers and avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func toCoreEntry(e Entry) core.Entry {
	return core.Entry{
		ID:              e.ID,
		DrinkName:       e.DrinkName,
		AmountMg:        e.AmountMg,
		ConsumptionTime: core.FromMillis(e.ConsumptionTimeMs),
	}
}

func (r *SQLiteRepository) CreateEntry(ctx context.Context, caller core.Principal, drinkName string, amountMg int64, consumptionTime time.Time) (core.Entry, error) {
	row, err := r.queries.CreateEntry(ctx, CreateEntryParams{
		Principal:         caller.String(),
		DrinkName:         strings.TrimSpace(drinkName),
		AmountMg:          amountMg,
		ConsumptionTimeMs: consumptionTime.UnixMilli(),
		CreatedAtMs:       r.now().UnixMilli(),
	})
	if err != nil {
		return core.Entry{}, fmt.Errorf("create entry: %w", err)
	}

	slog.InfoContext(ctx, "Entry saved to SQLite",
		"id", row.ID,
		"drink_name", row.DrinkName,
		"amount_mg", row.AmountMg)

	return toCoreEntry(row), nil
}

// DeleteEntry removes the caller's entry. The bool is false when no entry
// with that id belongs to the caller.
func (r *SQLiteRepository) DeleteEntry(ctx context.Context, caller core.Principal, id int64) (core.Entry, bool, error) {
	row, err := r.queries.DeleteEntry(ctx, DeleteEntryParams{ID: id, Principal: caller.String()})
	if errors.Is(err, sql.ErrNoRows) {
		return core.Entry{}, false, nil
	}
	if err != nil {
		return core.Entry{}, false, fmt.Errorf("delete entry %d: %w", id, err)
	}
	slog.InfoContext(ctx, "Entry deleted from SQLite", "id", id)
	return toCoreEntry(row), true, nil
}

// GetEntry returns the entry with the given id regardless of owner.
// It returns sql.ErrNoRows (wrapped) when the entry does not exist.
func (r *SQLiteRepository) GetEntry(ctx context.Context, id int64) (*EntryRecord, error) {
	row, err := r.queries.GetEntry(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get entry by id: %w", err)
	}
	return &EntryRecord{
		Principal: core.Principal(row.Principal),
		Entry:     toCoreEntry(row),
		Synced:    row.SyncStatus == "synced",
	}, nil
}

func (r *SQLiteRepository) CreatePreset(ctx context.Context, caller core.Principal, drinkName string, defaultAmountMg int64) (core.Preset, error) {
	row, err := r.queries.CreatePreset(ctx, CreatePresetParams{
		Principal:       caller.String(),
		DrinkName:       strings.TrimSpace(drinkName),
		DefaultAmountMg: defaultAmountMg,
		CreatedAtMs:     r.now().UnixMilli(),
	})
	if err != nil {
		return core.Preset{}, fmt.Errorf("create preset: %w", err)
	}
	return core.Preset{ID: row.ID, DrinkName: row.DrinkName, DefaultAmountMg: row.DefaultAmountMg}, nil
}

// GetUserData loads presets, entries (newest first) and settings for caller.
func (r *SQLiteRepository) GetUserData(ctx context.Context, caller core.Principal) (core.UserData, error) {
	presets, err := r.queries.ListPresetsByPrincipal(ctx, caller.String())
	if err != nil {
		return core.UserData{}, fmt.Errorf("list presets: %w", err)
	}
	entries, err := r.queries.ListEntriesByPrincipal(ctx, caller.String())
	if err != nil {
		return core.UserData{}, fmt.Errorf("list entries: %w", err)
	}

	data := core.UserData{
		Presets:  make([]core.Preset, len(presets)),
		Entries:  make([]core.Entry, len(entries)),
		Settings: core.UserSettings{DailyLimitMg: core.DefaultDailyLimitMg},
	}
	for i, p := range presets {
		data.Presets[i] = core.Preset{ID: p.ID, DrinkName: p.DrinkName, DefaultAmountMg: p.DefaultAmountMg}
	}
	for i, e := range entries {
		data.Entries[i] = toCoreEntry(e)
	}

	settings, err := r.queries.GetSettings(ctx, caller.String())
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return core.UserData{}, fmt.Errorf("get settings: %w", err)
	default:
		data.Settings.DailyLimitMg = settings.DailyLimitMg
	}
	return data, nil
}

func (r *SQLiteRepository) SaveSettings(ctx context.Context, caller core.Principal, settings core.UserSettings) error {
	err := r.queries.UpsertSettings(ctx, UpsertSettingsParams{
		Principal:    caller.String(),
		DailyLimitMg: settings.DailyLimitMg,
		UpdatedAtMs:  r.now().UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// GetProfile returns nil when the principal never saved a profile.
func (r *SQLiteRepository) GetProfile(ctx context.Context, p core.Principal) (*core.UserProfile, error) {
	row, err := r.queries.GetProfile(ctx, p.String())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &core.UserProfile{Name: row.Name}, nil
}

func (r *SQLiteRepository) SaveProfile(ctx context.Context, p core.Principal, profile core.UserProfile) error {
	err := r.queries.UpsertProfile(ctx, UpsertProfileParams{
		Principal:   p.String(),
		Name:        strings.TrimSpace(profile.Name),
		UpdatedAtMs: r.now().UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

// GetAssignedRole returns the role stored for p, or nil when none was assigned.
func (r *SQLiteRepository) GetAssignedRole(ctx context.Context, p core.Principal) (*core.UserRole, error) {
	row, err := r.queries.GetRole(ctx, p.String())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get role: %w", err)
	}
	role, err := core.ParseRole(row.Role)
	if err != nil {
		return nil, fmt.Errorf("stored role for %s: %w", p, err)
	}
	return &role, nil
}

func (r *SQLiteRepository) AssignRole(ctx context.Context, assignedBy, user core.Principal, role core.UserRole) error {
	err := r.queries.UpsertRole(ctx, UpsertRoleParams{
		Principal:   user.String(),
		Role:        string(role),
		AssignedBy:  assignedBy.String(),
		UpdatedAtMs: r.now().UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("assign role: %w", err)
	}
	slog.InfoContext(ctx, "Role assigned", "user", user, "role", role, "assigned_by", assignedBy)
	return nil
}

// GetPendingSyncEntries returns entries that still need to reach the journal.
func (r *SQLiteRepository) GetPendingSyncEntries(ctx context.Context, limit int) ([]PendingSyncEntry, error) {
	rows, err := r.queries.GetPendingSyncEntries(ctx, int64(limit))
	if err != nil {
		return nil, fmt.Errorf("get pending sync entries: %w", err)
	}
	out := make([]PendingSyncEntry, len(rows))
	for i, e := range rows {
		out[i] = PendingSyncEntry{
			ID:        e.ID,
			Principal: core.Principal(e.Principal),
			CreatedAt: core.FromMillis(e.CreatedAtMs),
		}
	}
	return out, nil
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, id int64) error {
	err := r.queries.MarkEntrySynced(ctx, MarkEntrySyncedParams{SyncedAtMs: r.now().UnixMilli(), ID: id})
	if err != nil {
		return fmt.Errorf("mark entry synced: %w", err)
	}
	slog.InfoContext(ctx, "Entry marked as synced", "id", id)
	return nil
}

func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id int64) error {
	if err := r.queries.MarkEntrySyncError(ctx, id); err != nil {
		return fmt.Errorf("mark entry sync error: %w", err)
	}
	slog.WarnContext(ctx, "Entry marked with sync error", "id", id)
	return nil
}
