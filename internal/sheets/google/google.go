// Package google exports ledger transactions to a Google Sheets tab, one row
// per transaction keyed by the transaction id in column A.
package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"budget/internal/core"
	"budget/internal/log"
	ports "budget/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// DefaultSheetName is the tab used when Config.SheetName is empty.
const DefaultSheetName = "Transactions"

// Header is written by EnsureHeader and describes the row layout.
var Header = []any{"ID", "Date", "Description", "Amount", "Category", "Type", "Currency"}

const (
	colID       = 0
	colCategory = 4
)

var _ ports.Exporter = (*Client)(nil)

type Config struct {
	SpreadsheetID string
	SheetName     string
	// CredentialsJSON takes precedence over CredentialsFile.
	CredentialsJSON string
	CredentialsFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string
	logger        *log.Logger

	// sheetID is the numeric tab id needed by row deletion; resolved once.
	mu      sync.Mutex
	sheetID *int64
}

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config, logger *log.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithService(svc, cfg.SpreadsheetID, cfg.SheetName, logger), nil
}

// NewWithService wraps an already configured service.
func NewWithService(svc *gsheet.Service, spreadsheetID, sheet string, logger *log.Logger) *Client {
	if strings.TrimSpace(sheet) == "" {
		sheet = DefaultSheetName
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &Client{
		svc:           svc,
		spreadsheetID: strings.TrimSpace(spreadsheetID),
		sheet:         sheet,
		logger:        logger.WithComponent(log.ComponentSheets),
	}
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
// Falls back to GOOGLE_APPLICATION_CREDENTIALS when neither JSON nor file is set.
func newSheetsService(ctx context.Context, cfg Config, logger *log.Logger) (*gsheet.Service, error) {
	if logger == nil {
		logger = log.Discard()
	}
	credentialsJSON := []byte(strings.TrimSpace(cfg.CredentialsJSON))
	file := strings.TrimSpace(cfg.CredentialsFile)
	if len(credentialsJSON) == 0 && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case len(credentialsJSON) > 0:
		logger.InfoContext(ctx, "Using inline service account credentials")
	case file != "":
		logger.InfoContext(ctx, "Reading service account credentials", "path", file)
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// EnsureHeader writes the header row when the tab is empty.
func (c *Client) EnsureHeader(ctx context.Context) error {
	values, err := c.readColumns(ctx, "A1:G1")
	if err != nil {
		return err
	}
	if len(values) > 0 {
		return nil
	}
	vr := &gsheet.ValueRange{Values: [][]any{Header}}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, c.rng("A1:G1"), vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return upstream("write header", err)
	}
	return nil
}

// AppendTransaction adds one row for tx unless a row with its id exists.
func (c *Client) AppendTransaction(ctx context.Context, tx core.Transaction) (string, error) {
	if err := tx.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	ids, err := c.readColumns(ctx, "A:A")
	if err != nil {
		return "", err
	}
	if rows := matchingRows(ids, colID, tx.ID); len(rows) > 0 {
		c.logger.DebugContext(ctx, "Row already exported", log.FieldTxID, tx.ID)
		return c.rng(fmt.Sprintf("A%d:G%d", rows[0]+1, rows[0]+1)), nil
	}

	vr := &gsheet.ValueRange{Values: [][]any{transactionRow(tx)}}
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, c.rng("A:G"), vr).
		ValueInputOption("USER_ENTERED").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return "", upstream("append row", err)
	}
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		return resp.Updates.UpdatedRange, nil
	}
	return c.rng("A:G"), nil
}

func (c *Client) RemoveTransaction(ctx context.Context, id string) error {
	ids, err := c.readColumns(ctx, "A:A")
	if err != nil {
		return err
	}
	_, err = c.deleteRows(ctx, matchingRows(ids, colID, id))
	return err
}

func (c *Client) RemoveCategory(ctx context.Context, name string) (int, error) {
	values, err := c.readColumns(ctx, "A:G")
	if err != nil {
		return 0, err
	}
	return c.deleteRows(ctx, matchingRows(values, colCategory, name))
}

func (c *Client) readColumns(ctx context.Context, cols string) ([][]any, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, c.rng(cols)).
		ValueRenderOption("UNFORMATTED_VALUE").Context(ctx).Do()
	if err != nil {
		return nil, upstream("read "+cols, err)
	}
	return resp.Values, nil
}

// deleteRows removes the zero-based rows in a single batch, bottom-up so the
// indices stay valid while earlier rows shift.
func (c *Client) deleteRows(ctx context.Context, rows []int) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	sheetID, err := c.resolveSheetID(ctx)
	if err != nil {
		return 0, err
	}
	sort.Sort(sort.Reverse(sort.IntSlice(rows)))
	reqs := make([]*gsheet.Request, 0, len(rows))
	for _, r := range rows {
		reqs = append(reqs, &gsheet.Request{DeleteDimension: &gsheet.DeleteDimensionRequest{
			Range: &gsheet.DimensionRange{
				SheetId:    sheetID,
				Dimension:  "ROWS",
				StartIndex: int64(r),
				EndIndex:   int64(r) + 1,
			},
		}})
	}
	_, err = c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, &gsheet.BatchUpdateSpreadsheetRequest{Requests: reqs}).
		Context(ctx).Do()
	if err != nil {
		return 0, upstream("delete rows", err)
	}
	c.logger.InfoContext(ctx, "Deleted sheet rows", "count", len(rows))
	return len(rows), nil
}

func (c *Client) resolveSheetID(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sheetID != nil {
		return *c.sheetID, nil
	}
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, upstream("get spreadsheet", err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == c.sheet {
			id := s.Properties.SheetId
			c.sheetID = &id
			return id, nil
		}
	}
	return 0, upstream("get spreadsheet", fmt.Errorf("sheet %q not found", c.sheet))
}

func (c *Client) rng(cols string) string {
	return fmt.Sprintf("%s!%s", c.sheet, cols)
}

func upstream(op string, err error) error {
	return &core.UpstreamError{Service: "sheets", Err: fmt.Errorf("%s: %w", op, err)}
}
