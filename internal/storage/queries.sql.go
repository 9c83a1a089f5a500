package storage

import (
	"context"
)

const entryColumns = `id, principal, drink_name, amount_mg, consumption_time_ms, created_at_ms, sync_status, synced_at_ms`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row rowScanner) (Entry, error) {
	var i Entry
	err := row.Scan(
		&i.ID,
		&i.Principal,
		&i.DrinkName,
		&i.AmountMg,
		&i.ConsumptionTimeMs,
		&i.CreatedAtMs,
		&i.SyncStatus,
		&i.SyncedAtMs,
	)
	return i, err
}

const createEntry = `-- name: CreateEntry :one
INSERT INTO entries (principal, drink_name, amount_mg, consumption_time_ms, created_at_ms)
VALUES (?, ?, ?, ?, ?)
RETURNING ` + entryColumns

type CreateEntryParams struct {
	Principal         string
	DrinkName         string
	AmountMg          int64
	ConsumptionTimeMs int64
	CreatedAtMs       int64
}

func (q *Queries) CreateEntry(ctx context.Context, arg CreateEntryParams) (Entry, error) {
	row := q.db.QueryRowContext(ctx, createEntry,
		arg.Principal,
		arg.DrinkName,
		arg.AmountMg,
		arg.ConsumptionTimeMs,
		arg.CreatedAtMs,
	)
	return scanEntry(row)
}

const getEntry = `-- name: GetEntry :one
SELECT ` + entryColumns + ` FROM entries WHERE id = ?`

func (q *Queries) GetEntry(ctx context.Context, id int64) (Entry, error) {
	return scanEntry(q.db.QueryRowContext(ctx, getEntry, id))
}

const deleteEntry = `-- name: DeleteEntry :one
DELETE FROM entries WHERE id = ? AND principal = ?
RETURNING ` + entryColumns

type DeleteEntryParams struct {
	ID        int64
	Principal string
}

func (q *Queries) DeleteEntry(ctx context.Context, arg DeleteEntryParams) (Entry, error) {
	return scanEntry(q.db.QueryRowContext(ctx, deleteEntry, arg.ID, arg.Principal))
}

const listEntriesByPrincipal = `-- name: ListEntriesByPrincipal :many
SELECT ` + entryColumns + ` FROM entries
WHERE principal = ?
ORDER BY consumption_time_ms DESC, id DESC`

func (q *Queries) ListEntriesByPrincipal(ctx context.Context, principal string) ([]Entry, error) {
	return q.listEntries(ctx, listEntriesByPrincipal, principal)
}

const getPendingSyncEntries = `-- name: GetPendingSyncEntries :many
SELECT ` + entryColumns + ` FROM entries
WHERE sync_status != 'synced'
ORDER BY created_at_ms ASC, id ASC
LIMIT ?`

func (q *Queries) GetPendingSyncEntries(ctx context.Context, limit int64) ([]Entry, error) {
	return q.listEntries(ctx, getPendingSyncEntries, limit)
}

func (q *Queries) listEntries(ctx context.Context, query string, args ...interface{}) ([]Entry, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Entry
	for rows.Next() {
		i, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const markEntrySynced = `-- name: MarkEntrySynced :exec
UPDATE entries SET sync_status = 'synced', synced_at_ms = ? WHERE id = ?`

type MarkEntrySyncedParams struct {
	SyncedAtMs int64
	ID         int64
}

func (q *Queries) MarkEntrySynced(ctx context.Context, arg MarkEntrySyncedParams) error {
	_, err := q.db.ExecContext(ctx, markEntrySynced, arg.SyncedAtMs, arg.ID)
	return err
}

const markEntrySyncError = `-- name: MarkEntrySyncError :exec
UPDATE entries SET sync_status = 'error' WHERE id = ?`

func (q *Queries) MarkEntrySyncError(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, markEntrySyncError, id)
	return err
}

const createPreset = `-- name: CreatePreset :one
INSERT INTO presets (principal, drink_name, default_amount_mg, created_at_ms)
VALUES (?, ?, ?, ?)
RETURNING id, principal, drink_name, default_amount_mg, created_at_ms`

type CreatePresetParams struct {
	Principal       string
	DrinkName       string
	DefaultAmountMg int64
	CreatedAtMs     int64
}

func (q *Queries) CreatePreset(ctx context.Context, arg CreatePresetParams) (Preset, error) {
	row := q.db.QueryRowContext(ctx, createPreset, arg.Principal, arg.DrinkName, arg.DefaultAmountMg, arg.CreatedAtMs)
	var i Preset
	err := row.Scan(&i.ID, &i.Principal, &i.DrinkName, &i.DefaultAmountMg, &i.CreatedAtMs)
	return i, err
}

const listPresetsByPrincipal = `-- name: ListPresetsByPrincipal :many
SELECT id, principal, drink_name, default_amount_mg, created_at_ms FROM presets
WHERE principal = ?
ORDER BY id ASC`

func (q *Queries) ListPresetsByPrincipal(ctx context.Context, principal string) ([]Preset, error) {
	rows, err := q.db.QueryContext(ctx, listPresetsByPrincipal, principal)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Preset
	for rows.Next() {
		var i Preset
		if err := rows.Scan(&i.ID, &i.Principal, &i.DrinkName, &i.DefaultAmountMg, &i.CreatedAtMs); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getSettings = `-- name: GetSettings :one
SELECT principal, daily_limit_mg, updated_at_ms FROM settings WHERE principal = ?`

func (q *Queries) GetSettings(ctx context.Context, principal string) (Setting, error) {
	row := q.db.QueryRowContext(ctx, getSettings, principal)
	var i Setting
	err := row.Scan(&i.Principal, &i.DailyLimitMg, &i.UpdatedAtMs)
	return i, err
}

const upsertSettings = `-- name: UpsertSettings :exec
INSERT INTO settings (principal, daily_limit_mg, updated_at_ms) VALUES (?, ?, ?)
ON CONFLICT (principal) DO UPDATE SET daily_limit_mg = excluded.daily_limit_mg, updated_at_ms = excluded.updated_at_ms`

type UpsertSettingsParams struct {
	Principal    string
	DailyLimitMg int64
	UpdatedAtMs  int64
}

func (q *Queries) UpsertSettings(ctx context.Context, arg UpsertSettingsParams) error {
	_, err := q.db.ExecContext(ctx, upsertSettings, arg.Principal, arg.DailyLimitMg, arg.UpdatedAtMs)
	return err
}

const getProfile = `-- name: GetProfile :one
SELECT principal, name, updated_at_ms FROM profiles WHERE principal = ?`

func (q *Queries) GetProfile(ctx context.Context, principal string) (Profile, error) {
	row := q.db.QueryRowContext(ctx, getProfile, principal)
	var i Profile
	err := row.Scan(&i.Principal, &i.Name, &i.UpdatedAtMs)
	return i, err
}

const upsertProfile = `-- name: UpsertProfile :exec
INSERT INTO profiles (principal, name, updated_at_ms) VALUES (?, ?, ?)
ON CONFLICT (principal) DO UPDATE SET name = excluded.name, updated_at_ms = excluded.updated_at_ms`

type UpsertProfileParams struct {
	Principal   string
	Name        string
	UpdatedAtMs int64
}

func (q *Queries) UpsertProfile(ctx context.Context, arg UpsertProfileParams) error {
	_, err := q.db.ExecContext(ctx, upsertProfile, arg.Principal, arg.Name, arg.UpdatedAtMs)
	return err
}

const getRole = `-- name: GetRole :one
SELECT principal, role, assigned_by, updated_at_ms FROM roles WHERE principal = ?`

func (q *Queries) GetRole(ctx context.Context, principal string) (Role, error) {
	row := q.db.QueryRowContext(ctx, getRole, principal)
	var i Role
	err := row.Scan(&i.Principal, &i.Role, &i.AssignedBy, &i.UpdatedAtMs)
	return i, err
}

const upsertRole = `-- name: UpsertRole :exec
INSERT INTO roles (principal, role, assigned_by, updated_at_ms) VALUES (?, ?, ?, ?)
ON CONFLICT (principal) DO UPDATE SET role = excluded.role, assigned_by = excluded.assigned_by, updated_at_ms = excluded.updated_at_ms`

type UpsertRoleParams struct {
	Principal   string
	Role        string
	AssignedBy  string
	UpdatedAtMs int64
}

func (q *Queries) UpsertRole(ctx context.Context, arg UpsertRoleParams) error {
	_, err := q.db.ExecContext(ctx, upsertRole, arg.Principal, arg.Role, arg.AssignedBy, arg.UpdatedAtMs)
	return err
}
