// Package memory is an in-process implementation of the data backend.
// State lives for the life of the process.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"caffeine/internal/core"
)

type userState struct {
	entries  []core.Entry
	presets  []core.Preset
	settings *core.UserSettings
	profile  *core.UserProfile
	role     *core.UserRole
}

type Store struct {
	mu     sync.Mutex
	policy core.RolePolicy
	nextID int64
	users  map[core.Principal]*userState
}

func New(policy core.RolePolicy) *Store {
	return &Store{
		policy: policy,
		users:  make(map[core.Principal]*userState),
	}
}

// user returns the state of p, creating it on first use. Callers hold s.mu.
func (s *Store) user(p core.Principal) *userState {
	u, ok := s.users[p]
	if !ok {
		u = &userState{}
		s.users[p] = u
	}
	return u
}

func (s *Store) newID() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) AddCaffeineEntry(_ context.Context, caller core.Principal, drinkName string, amountMg int64, consumptionTime time.Time) (core.Entry, error) {
	if err := core.RequireCaller(caller); err != nil {
		return core.Entry{}, err
	}
	if err := core.ValidateNewEntry(drinkName, amountMg, consumptionTime); err != nil {
		return core.Entry{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e := core.Entry{
		ID:              s.newID(),
		DrinkName:       strings.TrimSpace(drinkName),
		AmountMg:        amountMg,
		ConsumptionTime: time.UnixMilli(consumptionTime.UnixMilli()),
	}
	u := s.user(caller)
	u.entries = append(u.entries, e)
	return e, nil
}

func (s *Store) DeleteCaffeineEntry(_ context.Context, caller core.Principal, entryID int64) (bool, error) {
	if err := core.RequireCaller(caller); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[caller]
	if !ok {
		return false, nil
	}
	i := slices.IndexFunc(u.entries, func(e core.Entry) bool { return e.ID == entryID })
	if i < 0 {
		return false, nil
	}
	u.entries = slices.Delete(u.entries, i, i+1)
	return true, nil
}

func (s *Store) AddCaffeinePreset(_ context.Context, caller core.Principal, drinkName string, defaultAmountMg int64) (core.Preset, error) {
	if err := core.RequireCaller(caller); err != nil {
		return core.Preset{}, err
	}
	if err := core.ValidateNewPreset(drinkName, defaultAmountMg); err != nil {
		return core.Preset{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p := core.Preset{ID: s.newID(), DrinkName: strings.TrimSpace(drinkName), DefaultAmountMg: defaultAmountMg}
	u := s.user(caller)
	u.presets = append(u.presets, p)
	return p, nil
}

// GetUserData returns copies of the caller's presets and entries, newest entry first.
func (s *Store) GetUserData(_ context.Context, caller core.Principal) (core.UserData, error) {
	if err := core.RequireCaller(caller); err != nil {
		return core.UserData{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	data := core.UserData{Settings: core.UserSettings{DailyLimitMg: core.DefaultDailyLimitMg}}
	u, ok := s.users[caller]
	if !ok {
		return data, nil
	}
	data.Presets = slices.Clone(u.presets)
	data.Entries = slices.Clone(u.entries)
	slices.SortStableFunc(data.Entries, func(a, b core.Entry) int {
		return b.ConsumptionTime.Compare(a.ConsumptionTime)
	})
	if u.settings != nil {
		data.Settings = *u.settings
	}
	return data, nil
}

func (s *Store) UpdateUserSettings(_ context.Context, caller core.Principal, settings core.UserSettings) error {
	if err := core.RequireCaller(caller); err != nil {
		return err
	}
	if err := settings.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user(caller).settings = &settings
	return nil
}

func (s *Store) GetCallerUserProfile(ctx context.Context, caller core.Principal) (*core.UserProfile, error) {
	if err := core.RequireCaller(caller); err != nil {
		return nil, err
	}
	return s.profileOf(caller), nil
}

// GetUserProfile lets admins read any profile and users read their own.
func (s *Store) GetUserProfile(_ context.Context, caller, user core.Principal) (*core.UserProfile, error) {
	if err := core.RequireCaller(caller); err != nil {
		return nil, err
	}
	if caller != user && s.roleOf(caller) != core.RoleAdmin {
		return nil, core.ErrForbidden
	}
	return s.profileOf(user), nil
}

func (s *Store) profileOf(p core.Principal) *core.UserProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[p]
	if !ok || u.profile == nil {
		return nil
	}
	cp := *u.profile
	return &cp
}

func (s *Store) SaveCallerUserProfile(_ context.Context, caller core.Principal, profile core.UserProfile) error {
	if err := core.RequireCaller(caller); err != nil {
		return err
	}
	if err := profile.Validate(); err != nil {
		return err
	}
	profile.Name = strings.TrimSpace(profile.Name)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user(caller).profile = &profile
	return nil
}

func (s *Store) roleOf(p core.Principal) core.UserRole {
	s.mu.Lock()
	defer s.mu.Unlock()
	var assigned *core.UserRole
	if u, ok := s.users[p]; ok {
		assigned = u.role
	}
	return s.policy.Role(p, assigned)
}

func (s *Store) GetCallerUserRole(_ context.Context, caller core.Principal) (core.UserRole, error) {
	return s.roleOf(caller), nil
}

func (s *Store) IsCallerAdmin(_ context.Context, caller core.Principal) (bool, error) {
	return s.roleOf(caller) == core.RoleAdmin, nil
}

func (s *Store) AssignCallerUserRole(_ context.Context, caller, user core.Principal, role core.UserRole) error {
	if err := core.RequireCaller(caller); err != nil {
		return err
	}
	if err := role.Validate(); err != nil {
		return err
	}
	if user.IsAnonymous() {
		return core.ErrInvalidPrincipal
	}
	if s.roleOf(caller) != core.RoleAdmin {
		return core.ErrForbidden
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user(user).role = &role
	return nil
}
