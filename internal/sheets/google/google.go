package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"timeledger/internal/cache"
	"timeledger/internal/log"
	"timeledger/internal/sheets"
)

const (
	sheetIDCacheSize = 256
	sheetIDCacheTTL  = 30 * time.Minute
)

// Client talks to the Sheets API for any spreadsheet the service account can open.
type Client struct {
	svc      *gsheet.Service
	sheetIDs *cache.LRUCache[int64] // "<spreadsheet>!<title>" -> sheetId
	logger   *log.Logger
}

var _ sheets.Workbooks = (*Client)(nil)

func New(svc *gsheet.Service, logger *log.Logger) *Client {
	return &Client{
		svc:      svc,
		sheetIDs: cache.NewLRUCache[int64](sheetIDCacheSize, sheetIDCacheTTL),
		logger:   logger.WithComponent(log.ComponentSheets),
	}
}

// NewWithOptions builds the Sheets service from client options.
func NewWithOptions(ctx context.Context, logger *log.Logger, opts ...goption.ClientOption) (*Client, error) {
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return New(svc, logger), nil
}

// NewFromEnv creates a client with Service Account credentials taken from
// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or
// GOOGLE_APPLICATION_CREDENTIALS, in that order.
func NewFromEnv(ctx context.Context, logger *log.Logger) (*Client, error) {
	creds, err := credentialsFromEnv(logger)
	if err != nil {
		return nil, err
	}
	return NewWithOptions(ctx, logger,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
}

func credentialsFromEnv(logger *log.Logger) ([]byte, error) {
	inline := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	file := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	switch {
	case inline != "":
		logger.Debug("using inline service account credentials", "json_length", len(inline))
		return []byte(inline), nil
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		logger.Debug("read service account credentials", "path", file, "size", len(b))
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// SheetIDs exposes the sheet-ID cache for periodic cleanup.
func (c *Client) SheetIDs() cache.Cleaner {
	return c.sheetIDs
}

// ReadTable returns raw values: numbers as float64, booleans as bool, dates
// and times as serial numbers so no locale ever reorders day and month.
func (c *Client) ReadTable(ctx context.Context, ref sheets.TableRef) ([][]any, error) {
	resp, err := c.svc.Spreadsheets.Values.Get(ref.SpreadsheetID, quoteSheet(ref.Sheet)).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("SERIAL_NUMBER").
		Context(ctx).Do()
	if err != nil {
		return nil, mapError("read", ref, err)
	}
	return resp.Values, nil
}

// ReplaceTable clears the sheet and writes rows from A1, adding the sheet first
// when it does not exist. Values are stored as given; text such as
// "2024-03-05" or "3/2024" is never reinterpreted as a date.
func (c *Client) ReplaceTable(ctx context.Context, ref sheets.TableRef, rows [][]any) error {
	if _, err := c.ensureSheet(ctx, ref); err != nil {
		return err
	}
	rng := quoteSheet(ref.Sheet)
	if _, err := c.svc.Spreadsheets.Values.Clear(ref.SpreadsheetID, rng, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return c.forget(ref, mapError("clear", ref, err))
	}
	if len(rows) == 0 {
		return nil
	}
	vr := &gsheet.ValueRange{Values: rows}
	if _, err := c.svc.Spreadsheets.Values.Update(ref.SpreadsheetID, rng+"!A1", vr).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return c.forget(ref, mapError("write", ref, err))
	}
	c.logger.Debug("table replaced", log.FieldSpreadsheetID, ref.SpreadsheetID, log.FieldSheet, ref.Sheet, log.FieldRows, len(rows))
	return nil
}

// BoldRows clears bold on the whole sheet, then bolds each listed row.
func (c *Client) BoldRows(ctx context.Context, ref sheets.TableRef, rows []int) error {
	sheetID, found, err := c.lookupSheet(ctx, ref)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: %s", sheets.ErrSheetNotFound, ref)
	}
	reqs := []*gsheet.Request{boldRequest(&gsheet.GridRange{SheetId: sheetID, ForceSendFields: []string{"SheetId"}}, false)}
	for _, r := range rows {
		reqs = append(reqs, boldRequest(&gsheet.GridRange{
			SheetId:         sheetID,
			StartRowIndex:   int64(r),
			EndRowIndex:     int64(r) + 1,
			ForceSendFields: []string{"SheetId", "StartRowIndex"},
		}, true))
	}
	_, err = c.svc.Spreadsheets.BatchUpdate(ref.SpreadsheetID, &gsheet.BatchUpdateSpreadsheetRequest{Requests: reqs}).
		Context(ctx).Do()
	if err != nil {
		return c.forget(ref, mapError("format", ref, err))
	}
	return nil
}

// forget drops cached sheet IDs that err shows to be stale and returns err.
func (c *Client) forget(ref sheets.TableRef, err error) error {
	switch {
	case errors.Is(err, sheets.ErrSpreadsheetNotFound):
		c.sheetIDs.DeletePrefix(ref.SpreadsheetID + "!")
	case errors.Is(err, sheets.ErrSheetNotFound):
		c.sheetIDs.Delete(ref.String())
	}
	return err
}

func boldRequest(rng *gsheet.GridRange, bold bool) *gsheet.Request {
	return &gsheet.Request{
		RepeatCell: &gsheet.RepeatCellRequest{
			Range: rng,
			Cell: &gsheet.CellData{
				UserEnteredFormat: &gsheet.CellFormat{
					TextFormat: &gsheet.TextFormat{Bold: bold, ForceSendFields: []string{"Bold"}},
				},
			},
			Fields: "userEnteredFormat.textFormat.bold",
		},
	}
}

func (c *Client) ensureSheet(ctx context.Context, ref sheets.TableRef) (int64, error) {
	id, found, err := c.lookupSheet(ctx, ref)
	if err != nil || found {
		return id, err
	}
	resp, err := c.svc.Spreadsheets.BatchUpdate(ref.SpreadsheetID, &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: ref.Sheet}},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return 0, mapError("add sheet", ref, err)
	}
	if len(resp.Replies) == 0 || resp.Replies[0].AddSheet == nil || resp.Replies[0].AddSheet.Properties == nil {
		return 0, fmt.Errorf("add sheet %s: empty reply", ref)
	}
	id = resp.Replies[0].AddSheet.Properties.SheetId
	c.sheetIDs.Set(ref.String(), id)
	c.logger.Info("sheet created", log.FieldSpreadsheetID, ref.SpreadsheetID, log.FieldSheet, ref.Sheet)
	return id, nil
}

// lookupSheet resolves a sheet title to its numeric ID, caching every title
// of the spreadsheet on a miss.
func (c *Client) lookupSheet(ctx context.Context, ref sheets.TableRef) (int64, bool, error) {
	if id, ok := c.sheetIDs.Get(ref.String()); ok {
		return id, true, nil
	}
	ss, err := c.svc.Spreadsheets.Get(ref.SpreadsheetID).
		Fields("sheets.properties(sheetId,title)").Context(ctx).Do()
	if err != nil {
		return 0, false, mapError("open", ref, err)
	}
	var (
		id    int64
		found bool
	)
	for _, s := range ss.Sheets {
		if s.Properties == nil {
			continue
		}
		key := sheets.TableRef{SpreadsheetID: ref.SpreadsheetID, Sheet: s.Properties.Title}.String()
		c.sheetIDs.Set(key, s.Properties.SheetId)
		if s.Properties.Title == ref.Sheet {
			id, found = s.Properties.SheetId, true
		}
	}
	return id, found, nil
}

// quoteSheet renders a sheet title as an A1 range prefix.
func quoteSheet(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

func mapError(op string, ref sheets.TableRef, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch {
		case gerr.Code == http.StatusNotFound:
			return fmt.Errorf("%s %s: %w: %v", op, ref, sheets.ErrSpreadsheetNotFound, err)
		case gerr.Code == http.StatusBadRequest && strings.Contains(gerr.Message, "Unable to parse range"):
			return fmt.Errorf("%s %s: %w: %v", op, ref, sheets.ErrSheetNotFound, err)
		}
	}
	return fmt.Errorf("%s %s: %w", op, ref, err)
}
