package backend

import (
	"context"
	"time"

	"caffeine/internal/core"
)

// Ports implemented by every data backend. Each call carries the caller's
// principal; anonymous callers get core.ErrUnauthorized.
type (
	EntryStore interface {
		AddCaffeineEntry(ctx context.Context, caller core.Principal, drinkName string, amountMg int64, consumptionTime time.Time) (core.Entry, error)
		// DeleteCaffeineEntry reports false when the entry does not exist or
		// belongs to another principal.
		DeleteCaffeineEntry(ctx context.Context, caller core.Principal, entryID int64) (bool, error)
	}

	PresetStore interface {
		AddCaffeinePreset(ctx context.Context, caller core.Principal, drinkName string, defaultAmountMg int64) (core.Preset, error)
	}

	UserDataReader interface {
		GetUserData(ctx context.Context, caller core.Principal) (core.UserData, error)
	}

	SettingsWriter interface {
		UpdateUserSettings(ctx context.Context, caller core.Principal, settings core.UserSettings) error
	}

	// ProfileStore returns a nil profile when none was saved.
	ProfileStore interface {
		GetCallerUserProfile(ctx context.Context, caller core.Principal) (*core.UserProfile, error)
		GetUserProfile(ctx context.Context, caller, user core.Principal) (*core.UserProfile, error)
		SaveCallerUserProfile(ctx context.Context, caller core.Principal, profile core.UserProfile) error
	}

	RoleManager interface {
		GetCallerUserRole(ctx context.Context, caller core.Principal) (core.UserRole, error)
		IsCallerAdmin(ctx context.Context, caller core.Principal) (bool, error)
		AssignCallerUserRole(ctx context.Context, caller, user core.Principal, role core.UserRole) error
	}
)

// Backend is the full remote data contract used by the data access layer.
type Backend interface {
	EntryStore
	PresetStore
	UserDataReader
	SettingsWriter
	ProfileStore
	RoleManager
}

// CleanupFunc releases resources held by a backend.
type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup function
type BackendResult struct {
	Backend Backend
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// AdminPrincipals are always resolved to the admin role.
	AdminPrincipals []string
}

type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
