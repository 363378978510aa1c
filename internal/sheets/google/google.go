package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"planilla/internal/core"
	ports "planilla/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
}

// Ensure interface conformance
var _ ports.PayoutPublisher = (*Client)(nil)

// Credentials selects the service account used to reach the Sheets API.
// JSON wins over File; with neither set GOOGLE_APPLICATION_CREDENTIALS is tried.
type Credentials struct {
	JSON string
	File string
}

// New creates a Sheets client for one spreadsheet using service account credentials.
func New(ctx context.Context, spreadsheetID string, creds Credentials) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	svc, err := newSheetsService(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{svc: svc, spreadsheetID: spreadsheetID}, nil
}

func credentialsJSON(creds Credentials) ([]byte, error) {
	serviceAccountJSON := strings.TrimSpace(creds.JSON)
	serviceAccountFile := strings.TrimSpace(creds.File)

	// Also check the standard Google Cloud environment variable
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case serviceAccountJSON != "":
		return []byte(serviceAccountJSON), nil
	case serviceAccountFile != "":
		b, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

func newSheetsService(ctx context.Context, creds Credentials) (*gsheet.Service, error) {
	b, err := credentialsJSON(creds)
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Creating Google Sheets service with Service Account",
		"credentials_size", len(b),
		"scope", gsheet.SpreadsheetsScope)

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(b),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// PublishPayout writes the payout table to the week's tab, creating the tab
// on first use and clearing stale rows on re-export.
func (c *Client) PublishPayout(ctx context.Context, s core.WeeklySummary) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	title := ports.TabTitle(s.Week)
	if err := c.ensureTab(ctx, title); err != nil {
		return "", err
	}

	quoted := ports.QuoteTitle(title)
	_, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, quoted+"!A:Z", &gsheet.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("clear tab %s: %w", title, err)
	}

	values := ports.PayoutValues(s)
	rng := fmt.Sprintf("%s!A1:E%d", quoted, len(values))
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("update %s: %w", rng, err)
	}

	slog.InfoContext(ctx, "Payout written to Google Sheets",
		"week_id", s.Week.ID,
		"tab", title,
		"rows", len(values))

	return rng, nil
}

func (c *Client) ensureTab(ctx context.Context, title string) error {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read spreadsheet: %w", err)
	}
	if hasTab(ss, title) {
		return nil
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{
				Properties: &gsheet.SheetProperties{Title: title},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add tab %s: %w", title, err)
	}
	slog.InfoContext(ctx, "Created sheet tab", "tab", title)
	return nil
}

func hasTab(ss *gsheet.Spreadsheet, title string) bool {
	if ss == nil {
		return false
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == title {
			return true
		}
	}
	return false
}
