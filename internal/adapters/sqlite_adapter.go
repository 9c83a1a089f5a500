package adapters

import (
	"context"
	"time"

	"caffeine/internal/core"
	"caffeine/internal/services"
	"caffeine/internal/storage"
)

// SQLiteAdapter exposes the SQLite repository and entry service as a
// backend.Backend. Entry writes go through the service so they are announced
// to the sync worker; everything else talks to the repository directly.
type SQLiteAdapter struct {
	storage *storage.SQLiteRepository
	service *services.EntryService
	policy  core.RolePolicy
}

func NewSQLiteAdapter(storage *storage.SQLiteRepository, service *services.EntryService, policy core.RolePolicy) *SQLiteAdapter {
	return &SQLiteAdapter{
		storage: storage,
		service: service,
		policy:  policy,
	}
}

func (a *SQLiteAdapter) AddCaffeineEntry(ctx context.Context, caller core.Principal, drinkName string, amountMg int64, consumptionTime time.Time) (core.Entry, error) {
	if err := core.RequireCaller(caller); err != nil {
		return core.Entry{}, err
	}
	if err := core.ValidateNewEntry(drinkName, amountMg, consumptionTime); err != nil {
		return core.Entry{}, err
	}
	return a.service.CreateEntry(ctx, caller, drinkName, amountMg, consumptionTime)
}

func (a *SQLiteAdapter) DeleteCaffeineEntry(ctx context.Context, caller core.Principal, entryID int64) (bool, error) {
	if err := core.RequireCaller(caller); err != nil {
		return false, err
	}
	return a.service.DeleteEntry(ctx, caller, entryID)
}

func (a *SQLiteAdapter) AddCaffeinePreset(ctx context.Context, caller core.Principal, drinkName string, defaultAmountMg int64) (core.Preset, error) {
	if err := core.RequireCaller(caller); err != nil {
		return core.Preset{}, err
	}
	if err := core.ValidateNewPreset(drinkName, defaultAmountMg); err != nil {
		return core.Preset{}, err
	}
	return a.storage.CreatePreset(ctx, caller, drinkName, defaultAmountMg)
}

func (a *SQLiteAdapter) GetUserData(ctx context.Context, caller core.Principal) (core.UserData, error) {
	if err := core.RequireCaller(caller); err != nil {
		return core.UserData{}, err
	}
	return a.storage.GetUserData(ctx, caller)
}

func (a *SQLiteAdapter) UpdateUserSettings(ctx context.Context, caller core.Principal, settings core.UserSettings) error {
	if err := core.RequireCaller(caller); err != nil {
		return err
	}
	if err := settings.Validate(); err != nil {
		return err
	}
	return a.storage.SaveSettings(ctx, caller, settings)
}

func (a *SQLiteAdapter) GetCallerUserProfile(ctx context.Context, caller core.Principal) (*core.UserProfile, error) {
	if err := core.RequireCaller(caller); err != nil {
		return nil, err
	}
	return a.storage.GetProfile(ctx, caller)
}

func (a *SQLiteAdapter) GetUserProfile(ctx context.Context, caller, user core.Principal) (*core.UserProfile, error) {
	if err := core.RequireCaller(caller); err != nil {
		return nil, err
	}
	if caller != user {
		role, err := a.GetCallerUserRole(ctx, caller)
		if err != nil {
			return nil, err
		}
		if role != core.RoleAdmin {
			return nil, core.ErrForbidden
		}
	}
	return a.storage.GetProfile(ctx, user)
}

func (a *SQLiteAdapter) SaveCallerUserProfile(ctx context.Context, caller core.Principal, profile core.UserProfile) error {
	if err := core.RequireCaller(caller); err != nil {
		return err
	}
	if err := profile.Validate(); err != nil {
		return err
	}
	return a.storage.SaveProfile(ctx, caller, profile)
}

func (a *SQLiteAdapter) GetCallerUserRole(ctx context.Context, caller core.Principal) (core.UserRole, error) {
	if caller.IsAnonymous() {
		return core.RoleGuest, nil
	}
	assigned, err := a.storage.GetAssignedRole(ctx, caller)
	if err != nil {
		return "", err
	}
	return a.policy.Role(caller, assigned), nil
}

func (a *SQLiteAdapter) IsCallerAdmin(ctx context.Context, caller core.Principal) (bool, error) {
	role, err := a.GetCallerUserRole(ctx, caller)
	if err != nil {
		return false, err
	}
	return role == core.RoleAdmin, nil
}

func (a *SQLiteAdapter) AssignCallerUserRole(ctx context.Context, caller, user core.Principal, role core.UserRole) error {
	if err := core.RequireCaller(caller); err != nil {
		return err
	}
	if err := role.Validate(); err != nil {
		return err
	}
	if user.IsAnonymous() {
		return core.ErrInvalidPrincipal
	}
	admin, err := a.IsCallerAdmin(ctx, caller)
	if err != nil {
		return err
	}
	if !admin {
		return core.ErrForbidden
	}
	return a.storage.AssignRole(ctx, caller, user, role)
}

// Ping checks that the database is reachable.
func (a *SQLiteAdapter) Ping(ctx context.Context) error {
	return a.storage.Ping(ctx)
}
