// Package dataaccess mediates every read and write between the views and the
// data backend. Reads go through keyed query stores; successful writes
// invalidate the keys whose data they changed.
package dataaccess

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"caffeine/internal/backend"
	"caffeine/internal/cache"
	"caffeine/internal/core"
)

// ErrEntryNotFound is returned when a delete matched no entry owned by the caller.
var ErrEntryNotFound = errors.New("entry not found")

// Logical query keys, scoped per principal.
const (
	KeyUserData           = "userData"
	KeyCurrentUserProfile = "currentUserProfile"
)

func scopedKey(name string, p core.Principal) string {
	return name + ":" + p.String()
}

type Service struct {
	backend  backend.Backend
	userData *cache.QueryStore[core.UserData]
	profiles *cache.QueryStore[core.ProfileState]
	logger   *slog.Logger
}

// Stores groups the query stores a Service reads through.
type Stores struct {
	UserData *cache.QueryStore[core.UserData]
	Profiles *cache.QueryStore[core.ProfileState]
}

// NewStores creates both query stores with the same bounds.
func NewStores(maxSize int, ttl time.Duration) Stores {
	return Stores{
		UserData: cache.NewQueryStore[core.UserData](maxSize, ttl),
		Profiles: cache.NewQueryStore[core.ProfileState](maxSize, ttl),
	}
}

// Register adds the stores to m for periodic expiry sweeps.
func (s Stores) Register(m *cache.Manager) {
	m.Register(s.UserData)
	m.Register(s.Profiles)
}

func New(b backend.Backend, stores Stores, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		backend:  b,
		userData: stores.UserData,
		profiles: stores.Profiles,
		logger:   logger.With("component", "dataaccess"),
	}
}

// GetUserData returns the caller's presets, entries and settings. The slices
// are copies; callers may reorder them freely.
func (s *Service) GetUserData(ctx context.Context, caller core.Principal) (core.UserData, error) {
	if err := core.RequireCaller(caller); err != nil {
		return core.UserData{}, err
	}
	key := scopedKey(KeyUserData, caller)
	data, hit, err := s.userData.Fetch(ctx, key, func(ctx context.Context) (core.UserData, error) {
		return s.backend.GetUserData(ctx, caller)
	})
	if err != nil {
		return core.UserData{}, fmt.Errorf("get user data: %w", err)
	}
	s.logger.DebugContext(ctx, "User data read", "key", key, "cache_hit", hit, "entries", len(data.Entries))
	return core.UserData{
		Presets:  slices.Clone(data.Presets),
		Entries:  slices.Clone(data.Entries),
		Settings: data.Settings,
	}, nil
}

// GetCallerUserProfile reports whether the caller completed setup.
func (s *Service) GetCallerUserProfile(ctx context.Context, caller core.Principal) (core.ProfileState, error) {
	if err := core.RequireCaller(caller); err != nil {
		return core.Uninitialized, err
	}
	key := scopedKey(KeyCurrentUserProfile, caller)
	state, _, err := s.profiles.Fetch(ctx, key, func(ctx context.Context) (core.ProfileState, error) {
		p, err := s.backend.GetCallerUserProfile(ctx, caller)
		if err != nil {
			return core.Uninitialized, err
		}
		return core.ProfileStateFrom(p), nil
	})
	if err != nil {
		return core.Uninitialized, fmt.Errorf("get caller profile: %w", err)
	}
	return state, nil
}

func (s *Service) AddCaffeineEntry(ctx context.Context, caller core.Principal, drinkName string, amountMg int64, consumptionTime time.Time) (core.Entry, error) {
	drinkName = strings.TrimSpace(drinkName)
	if err := core.ValidateNewEntry(drinkName, amountMg, consumptionTime); err != nil {
		return core.Entry{}, err
	}
	if err := core.RequireCaller(caller); err != nil {
		return core.Entry{}, err
	}
	entry, err := s.backend.AddCaffeineEntry(ctx, caller, drinkName, amountMg, consumptionTime)
	if err != nil {
		return core.Entry{}, fmt.Errorf("add caffeine entry: %w", err)
	}
	s.invalidate(ctx, KeyUserData, caller)
	return entry, nil
}

func (s *Service) AddCaffeinePreset(ctx context.Context, caller core.Principal, drinkName string, defaultAmountMg int64) (core.Preset, error) {
	drinkName = strings.TrimSpace(drinkName)
	if err := core.ValidateNewPreset(drinkName, defaultAmountMg); err != nil {
		return core.Preset{}, err
	}
	if err := core.RequireCaller(caller); err != nil {
		return core.Preset{}, err
	}
	preset, err := s.backend.AddCaffeinePreset(ctx, caller, drinkName, defaultAmountMg)
	if err != nil {
		return core.Preset{}, fmt.Errorf("add caffeine preset: %w", err)
	}
	s.invalidate(ctx, KeyUserData, caller)
	return preset, nil
}

// DeleteCaffeineEntry returns ErrEntryNotFound when the backend reports no
// deletion; nothing is invalidated in that case.
func (s *Service) DeleteCaffeineEntry(ctx context.Context, caller core.Principal, entryID int64) error {
	if err := core.RequireCaller(caller); err != nil {
		return err
	}
	deleted, err := s.backend.DeleteCaffeineEntry(ctx, caller, entryID)
	if err != nil {
		return fmt.Errorf("delete caffeine entry: %w", err)
	}
	if !deleted {
		return fmt.Errorf("delete caffeine entry %d: %w", entryID, ErrEntryNotFound)
	}
	s.invalidate(ctx, KeyUserData, caller)
	return nil
}

func (s *Service) UpdateUserSettings(ctx context.Context, caller core.Principal, settings core.UserSettings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	if err := core.RequireCaller(caller); err != nil {
		return err
	}
	if err := s.backend.UpdateUserSettings(ctx, caller, settings); err != nil {
		return fmt.Errorf("update user settings: %w", err)
	}
	s.invalidate(ctx, KeyUserData, caller)
	return nil
}

func (s *Service) SaveCallerUserProfile(ctx context.Context, caller core.Principal, profile core.UserProfile) error {
	profile.Name = strings.TrimSpace(profile.Name)
	if err := profile.Validate(); err != nil {
		return err
	}
	if err := core.RequireCaller(caller); err != nil {
		return err
	}
	if err := s.backend.SaveCallerUserProfile(ctx, caller, profile); err != nil {
		return fmt.Errorf("save caller profile: %w", err)
	}
	s.invalidate(ctx, KeyCurrentUserProfile, caller)
	return nil
}

// GetUserProfile reads another user's profile. Not cached.
func (s *Service) GetUserProfile(ctx context.Context, caller, user core.Principal) (*core.UserProfile, error) {
	if user.IsAnonymous() {
		return nil, core.ErrInvalidPrincipal
	}
	return s.backend.GetUserProfile(ctx, caller, user)
}

func (s *Service) GetCallerUserRole(ctx context.Context, caller core.Principal) (core.UserRole, error) {
	return s.backend.GetCallerUserRole(ctx, caller)
}

func (s *Service) IsCallerAdmin(ctx context.Context, caller core.Principal) (bool, error) {
	return s.backend.IsCallerAdmin(ctx, caller)
}

func (s *Service) AssignCallerUserRole(ctx context.Context, caller, user core.Principal, role core.UserRole) error {
	if user.IsAnonymous() {
		return core.ErrInvalidPrincipal
	}
	if err := role.Validate(); err != nil {
		return err
	}
	return s.backend.AssignCallerUserRole(ctx, caller, user, role)
}

func (s *Service) invalidate(ctx context.Context, name string, caller core.Principal) {
	key := scopedKey(name, caller)
	switch name {
	case KeyUserData:
		s.userData.Invalidate(key)
	case KeyCurrentUserProfile:
		s.profiles.Invalidate(key)
	}
	s.logger.DebugContext(ctx, "Query invalidated", "key", key)
}
