package core

import (
	"errors"
	"strings"
	"time"
)

// DefaultDailyLimitMg is the daily limit reported for users who never saved settings.
const DefaultDailyLimitMg int64 = 400

const (
	maxDrinkNameLen   = 100
	maxProfileNameLen = 80
)

const (
	RoleAdmin UserRole = "admin"
	RoleUser  UserRole = "user"
	RoleGuest UserRole = "guest"
)

type (
	// Principal identifies a caller. The zero value is the anonymous caller.
	Principal string

	UserRole string

	// Entry is one recorded caffeine consumption event.
	Entry struct {
		ID              int64
		DrinkName       string
		AmountMg        int64
		ConsumptionTime time.Time
	}

	// Preset is a named template used to fill the entry form.
	Preset struct {
		ID              int64
		DrinkName       string
		DefaultAmountMg int64
	}

	UserSettings struct {
		DailyLimitMg int64
	}

	UserProfile struct {
		Name string
	}

	// UserData is the combined read shape for the calling user.
	UserData struct {
		Presets  []Preset
		Entries  []Entry
		Settings UserSettings
	}
)

var (
	ErrEmptyDrinkName      = errors.New("empty drink name")
	ErrDrinkNameTooLong    = errors.New("drink name too long (max 100 characters)")
	ErrNegativeAmount      = errors.New("amount must not be negative")
	ErrNegativeLimit       = errors.New("daily limit must not be negative")
	ErrZeroConsumptionTime = errors.New("consumption time cannot be zero")
	ErrEmptyProfileName    = errors.New("empty profile name")
	ErrProfileNameTooLong  = errors.New("profile name too long (max 80 characters)")
	ErrInvalidRole         = errors.New("invalid role")
)

// IsAnonymous reports whether the principal carries no identity.
func (p Principal) IsAnonymous() bool {
	return strings.TrimSpace(string(p)) == ""
}

func (p Principal) String() string {
	return string(p)
}

func (r UserRole) Validate() error {
	switch r {
	case RoleAdmin, RoleUser, RoleGuest:
		return nil
	default:
		return ErrInvalidRole
	}
}

// ParseRole converts a string into a UserRole.
func ParseRole(s string) (UserRole, error) {
	r := UserRole(strings.ToLower(strings.TrimSpace(s)))
	if err := r.Validate(); err != nil {
		return "", err
	}
	return r, nil
}

// ConsumptionMillis returns the consumption time as milliseconds since the Unix epoch.
func (e Entry) ConsumptionMillis() int64 {
	return e.ConsumptionTime.UnixMilli()
}

// FromMillis converts milliseconds since the Unix epoch into a time.Time.
func FromMillis(ms int64) time.Time {
	return time.UnixMilli(ms)
}

func validateDrinkName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyDrinkName
	}
	if len(name) > maxDrinkNameLen {
		return ErrDrinkNameTooLong
	}
	return nil
}

// ValidateNewEntry checks the fields of an entry before it is sent to the backend.
func ValidateNewEntry(drinkName string, amountMg int64, consumptionTime time.Time) error {
	if err := validateDrinkName(drinkName); err != nil {
		return err
	}
	if amountMg < 0 {
		return ErrNegativeAmount
	}
	if consumptionTime.IsZero() {
		return ErrZeroConsumptionTime
	}
	return nil
}

// ValidateNewPreset checks the fields of a preset before it is sent to the backend.
func ValidateNewPreset(drinkName string, defaultAmountMg int64) error {
	if err := validateDrinkName(drinkName); err != nil {
		return err
	}
	if defaultAmountMg < 0 {
		return ErrNegativeAmount
	}
	return nil
}

func (s UserSettings) Validate() error {
	if s.DailyLimitMg < 0 {
		return ErrNegativeLimit
	}
	return nil
}

func (p UserProfile) Validate() error {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return ErrEmptyProfileName
	}
	if len(name) > maxProfileNameLen {
		return ErrProfileNameTooLong
	}
	return nil
}

// IsValidationError reports whether err is one of the input validation errors above.
func IsValidationError(err error) bool {
	for _, target := range []error{
		ErrEmptyDrinkName, ErrDrinkNameTooLong, ErrNegativeAmount, ErrNegativeLimit,
		ErrZeroConsumptionTime, ErrEmptyProfileName, ErrProfileNameTooLong, ErrInvalidRole,
		ErrInvalidAmount, ErrInvalidPrincipal,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
