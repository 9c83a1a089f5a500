package google

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"caffeine/internal/sheets"
)

// Journal columns: A date, B time, C principal, D drink, E amount mg, F entry id.
const (
	idColumn    = "F"
	columnCount = 6
)

var header = []any{"Date", "Time", "User", "Drink", "Amount (mg)", "Entry ID"}

func formatRow(r sheets.Row, loc *time.Location) []any {
	t := r.ConsumptionTime.In(loc)
	return []any{
		t.Format("2006-01-02"),
		t.Format("15:04"),
		r.Principal.String(),
		r.DrinkName,
		r.AmountMg,
		strconv.FormatInt(r.ID, 10),
	}
}

// findRow returns the zero-based index of the row whose id cell equals id,
// or -1. values is the id column as returned by the Sheets API.
func findRow(values [][]any, id int64) int {
	want := strconv.FormatInt(id, 10)
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(row[0])) == want {
			return i
		}
	}
	return -1
}
