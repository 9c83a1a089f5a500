package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"caffeine/internal/sheets"
)

const defaultSheetName = "Caffeine"

type Journal struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	loc           *time.Location

	// Appends read the next free row first, so they must not interleave.
	mu      sync.Mutex
	sheetID *int64
}

var _ sheets.Journal = (*Journal)(nil)

// NewFromEnv creates a journal using environment variables.
// Required: GOOGLE_SPREADSHEET_ID. Optional: GOOGLE_SHEET_NAME (default "Caffeine").
// Credentials come from GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE
// or GOOGLE_APPLICATION_CREDENTIALS. Dates are written in loc.
func NewFromEnv(ctx context.Context, loc *time.Location) (*Journal, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	sheetName := strings.TrimSpace(os.Getenv("GOOGLE_SHEET_NAME"))
	if sheetName == "" {
		sheetName = defaultSheetName
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	if loc == nil {
		loc = time.Local
	}
	return &Journal{svc: svc, spreadsheetID: spreadsheetID, sheetName: sheetName, loc: loc}, nil
}

func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	credsJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	credsFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if credsJSON == "" && credsFile == "" {
		credsFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var creds []byte
	switch {
	case credsJSON != "":
		creds = []byte(credsJSON)
	case credsFile != "":
		b, err := os.ReadFile(credsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		creds = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created", "component", "sheets")
	return svc, nil
}

func (j *Journal) readIDs(ctx context.Context) ([][]any, error) {
	rng := fmt.Sprintf("%s!%s:%s", j.sheetName, idColumn, idColumn)
	resp, err := j.svc.Spreadsheets.Values.Get(j.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}

func (j *Journal) write(ctx context.Context, rowNum int, values []any) error {
	rng := fmt.Sprintf("%s!A%d:F%d", j.sheetName, rowNum, rowNum)
	vr := &gsheet.ValueRange{Values: [][]any{values}}
	_, err := j.svc.Spreadsheets.Values.Update(j.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}
	return nil
}

// AppendEntry writes row after the last used line. A header is written into
// an empty sheet first.
func (j *Journal) AppendEntry(ctx context.Context, row sheets.Row) error {
	if j.svc == nil {
		return errors.New("sheets service not initialized")
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	ids, err := j.readIDs(ctx)
	if err != nil {
		return err
	}
	if findRow(ids, row.ID) >= 0 {
		slog.InfoContext(ctx, "Entry already in journal", "component", "sheets", "id", row.ID)
		return nil
	}

	next := len(ids) + 1
	if len(ids) == 0 {
		if err := j.write(ctx, 1, header); err != nil {
			return err
		}
		next = 2
	}
	if err := j.write(ctx, next, formatRow(row, j.loc)); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Entry appended to journal", "component", "sheets", "id", row.ID, "row", next)
	return nil
}

// DeleteEntry removes the row holding id. Missing rows are not an error.
func (j *Journal) DeleteEntry(ctx context.Context, id int64) error {
	if j.svc == nil {
		return errors.New("sheets service not initialized")
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	ids, err := j.readIDs(ctx)
	if err != nil {
		return err
	}
	idx := findRow(ids, id)
	if idx < 0 {
		slog.InfoContext(ctx, "Entry not in journal, nothing to delete", "component", "sheets", "id", id)
		return nil
	}

	sheetID, err := j.resolveSheetID(ctx)
	if err != nil {
		return err
	}
	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(idx),
					EndIndex:   int64(idx + 1),
				},
			},
		}},
	}
	if _, err := j.svc.Spreadsheets.BatchUpdate(j.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete journal row %d: %w", idx+1, err)
	}
	slog.InfoContext(ctx, "Entry removed from journal", "component", "sheets", "id", id, "row", idx+1)
	return nil
}

// resolveSheetID looks up the numeric id of the journal tab. Callers hold j.mu.
func (j *Journal) resolveSheetID(ctx context.Context) (int64, error) {
	if j.sheetID != nil {
		return *j.sheetID, nil
	}
	ss, err := j.svc.Spreadsheets.Get(j.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == j.sheetName {
			id := s.Properties.SheetId
			j.sheetID = &id
			return id, nil
		}
	}
	return 0, fmt.Errorf("sheet %q not found", j.sheetName)
}
