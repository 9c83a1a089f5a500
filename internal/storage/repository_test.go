package storage

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"caffeine/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "caffeine.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestMigrateIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.db")
	v1, err := Migrate(path)
	if err != nil {
		t.Fatalf("first migrate: %v", err)
	}
	v2, err := Migrate(path)
	if err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	if v1 != 1 || v2 != 1 {
		t.Fatalf("unexpected versions %d %d", v1, v2)
	}
}

func TestEntryRoundTripAndOwnership(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	at := time.Date(2025, 7, 1, 9, 30, 0, 123_000_000, time.UTC)

	e, err := repo.CreateEntry(ctx, "ada", " Latte ", 120, at)
	if err != nil {
		t.Fatalf("CreateEntry: %v", err)
	}
	if e.ID == 0 || e.DrinkName != "Latte" || !e.ConsumptionTime.Equal(at) {
		t.Fatalf("unexpected entry %+v", e)
	}

	rec, err := repo.GetEntry(ctx, e.ID)
	if err != nil {
		t.Fatalf("GetEntry: %v", err)
	}
	if rec.Principal != "ada" || rec.Entry.AmountMg != 120 {
		t.Fatalf("unexpected record %+v", rec)
	}

	if _, ok, err := repo.DeleteEntry(ctx, "bob", e.ID); err != nil || ok {
		t.Fatalf("delete by other principal: ok=%v err=%v", ok, err)
	}
	deleted, ok, err := repo.DeleteEntry(ctx, "ada", e.ID)
	if err != nil || !ok {
		t.Fatalf("delete: ok=%v err=%v", ok, err)
	}
	if deleted.DrinkName != "Latte" {
		t.Fatalf("deleted entry should be returned, got %+v", deleted)
	}
	if _, err := repo.GetEntry(ctx, e.ID); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestGetUserData(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	base := time.Date(2025, 7, 1, 8, 0, 0, 0, time.UTC)

	data, err := repo.GetUserData(ctx, "ada")
	if err != nil {
		t.Fatalf("GetUserData: %v", err)
	}
	if data.Settings.DailyLimitMg != core.DefaultDailyLimitMg || len(data.Entries) != 0 {
		t.Fatalf("unexpected empty data %+v", data)
	}

	older, _ := repo.CreateEntry(ctx, "ada", "Tea", 40, base)
	newer, _ := repo.CreateEntry(ctx, "ada", "Coffee", 95, base.Add(2*time.Hour))
	repo.CreateEntry(ctx, "bob", "Cola", 30, base)
	if _, err := repo.CreatePreset(ctx, "ada", "Espresso", 63); err != nil {
		t.Fatalf("CreatePreset: %v", err)
	}
	if err := repo.SaveSettings(ctx, "ada", core.UserSettings{DailyLimitMg: 0}); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}

	data, err = repo.GetUserData(ctx, "ada")
	if err != nil {
		t.Fatalf("GetUserData: %v", err)
	}
	if len(data.Entries) != 2 || data.Entries[0].ID != newer.ID || data.Entries[1].ID != older.ID {
		t.Fatalf("entries should be newest first, got %+v", data.Entries)
	}
	if len(data.Presets) != 1 || data.Presets[0].DefaultAmountMg != 63 {
		t.Fatalf("unexpected presets %+v", data.Presets)
	}
	if data.Settings.DailyLimitMg != 0 {
		t.Fatalf("explicit zero limit should be kept, got %d", data.Settings.DailyLimitMg)
	}

	if err := repo.SaveSettings(ctx, "ada", core.UserSettings{DailyLimitMg: 250}); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}
	data, _ = repo.GetUserData(ctx, "ada")
	if data.Settings.DailyLimitMg != 250 {
		t.Fatalf("settings should be replaced, got %d", data.Settings.DailyLimitMg)
	}
}

func TestProfilesAndRoles(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	p, err := repo.GetProfile(ctx, "ada")
	if err != nil || p != nil {
		t.Fatalf("expected no profile, got %+v %v", p, err)
	}
	if err := repo.SaveProfile(ctx, "ada", core.UserProfile{Name: "Ada"}); err != nil {
		t.Fatalf("SaveProfile: %v", err)
	}
	if err := repo.SaveProfile(ctx, "ada", core.UserProfile{Name: "Ada L."}); err != nil {
		t.Fatalf("SaveProfile: %v", err)
	}
	p, _ = repo.GetProfile(ctx, "ada")
	if p == nil || p.Name != "Ada L." {
		t.Fatalf("unexpected profile %+v", p)
	}

	role, err := repo.GetAssignedRole(ctx, "ada")
	if err != nil || role != nil {
		t.Fatalf("expected no role, got %v %v", role, err)
	}
	if err := repo.AssignRole(ctx, "root", "ada", core.RoleAdmin); err != nil {
		t.Fatalf("AssignRole: %v", err)
	}
	role, _ = repo.GetAssignedRole(ctx, "ada")
	if role == nil || *role != core.RoleAdmin {
		t.Fatalf("unexpected role %v", role)
	}
}

func TestSyncBookkeeping(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	at := time.Now()

	a, _ := repo.CreateEntry(ctx, "ada", "Coffee", 95, at)
	b, _ := repo.CreateEntry(ctx, "ada", "Tea", 40, at)

	pending, err := repo.GetPendingSyncEntries(ctx, 10)
	if err != nil || len(pending) != 2 {
		t.Fatalf("expected 2 pending, got %v %v", pending, err)
	}

	if err := repo.MarkSynced(ctx, a.ID); err != nil {
		t.Fatalf("MarkSynced: %v", err)
	}
	if err := repo.MarkSyncError(ctx, b.ID); err != nil {
		t.Fatalf("MarkSyncError: %v", err)
	}
	if rec, _ := repo.GetEntry(ctx, a.ID); rec == nil || !rec.Synced {
		t.Fatalf("entry %d should be marked synced", a.ID)
	}
	pending, _ = repo.GetPendingSyncEntries(ctx, 10)
	if len(pending) != 1 || pending[0].ID != b.ID || pending[0].Principal != "ada" {
		t.Fatalf("only the failed entry should remain pending, got %+v", pending)
	}
}
