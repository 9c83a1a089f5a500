// Package sheets defines the journal that mirrors caffeine entries into a
// spreadsheet, one row per entry.
package sheets

import (
	"context"
	"time"

	"caffeine/internal/core"
)

// Row is one journal line.
type Row struct {
	ID              int64
	Principal       core.Principal
	DrinkName       string
	AmountMg        int64
	ConsumptionTime time.Time
}

// RowFromEntry builds the journal row of an entry owned by p.
func RowFromEntry(p core.Principal, e core.Entry) Row {
	return Row{
		ID:              e.ID,
		Principal:       p,
		DrinkName:       e.DrinkName,
		AmountMg:        e.AmountMg,
		ConsumptionTime: e.ConsumptionTime,
	}
}

// Ports for outbound adapters. Both operations are idempotent: appending an
// id that is already present and deleting an absent id succeed without change.
type (
	JournalWriter interface {
		AppendEntry(ctx context.Context, row Row) error
	}

	JournalDeleter interface {
		DeleteEntry(ctx context.Context, id int64) error
	}

	Journal interface {
		JournalWriter
		JournalDeleter
	}
)
