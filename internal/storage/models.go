package storage

import "database/sql"

// Timestamps are milliseconds since the Unix epoch.

type Entry struct {
	ID                int64
	Principal         string
	DrinkName         string
	AmountMg          int64
	ConsumptionTimeMs int64
	CreatedAtMs       int64
	SyncStatus        string
	SyncedAtMs        sql.NullInt64
}

type Preset struct {
	ID              int64
	Principal       string
	DrinkName       string
	DefaultAmountMg int64
	CreatedAtMs     int64
}

type Setting struct {
	Principal    string
	DailyLimitMg int64
	UpdatedAtMs  int64
}

type Profile struct {
	Principal   string
	Name        string
	UpdatedAtMs int64
}

type Role struct {
	Principal   string
	Role        string
	AssignedBy  string
	UpdatedAtMs int64
}
