// Package memory is an in-process journal used when no spreadsheet is
// configured and in tests.
package memory

import (
	"context"
	"slices"
	"sync"

	"caffeine/internal/sheets"
)

type Journal struct {
	mu   sync.Mutex
	rows []sheets.Row
}

var _ sheets.Journal = (*Journal)(nil)

func New() *Journal {
	return &Journal{}
}

func (j *Journal) AppendEntry(_ context.Context, row sheets.Row) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if slices.ContainsFunc(j.rows, func(r sheets.Row) bool { return r.ID == row.ID }) {
		return nil
	}
	j.rows = append(j.rows, row)
	return nil
}

func (j *Journal) DeleteEntry(_ context.Context, id int64) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.rows = slices.DeleteFunc(j.rows, func(r sheets.Row) bool { return r.ID == id })
	return nil
}

// Rows returns a copy of the journal in insertion order.
func (j *Journal) Rows() []sheets.Row {
	j.mu.Lock()
	defer j.mu.Unlock()
	return slices.Clone(j.rows)
}
