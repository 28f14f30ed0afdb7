// Package google implements the spreadsheet store on the Google Sheets API,
// authorized with the signed-in user's access token.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	ports "github.com/mcarneiro/airbnb-organizer/internal/sheets"
)

// lastColumn bounds the data area of every range.
const lastColumn = "Z"

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
}

// Ensure interface conformance
var _ ports.Store = (*Client)(nil)

// TokenFunc exposes the current session token as an oauth2.TokenSource. An
// empty or expired token fails with sheets.ErrUnauthenticated before any
// request is sent.
type TokenFunc func() (accessToken string, expiresAt time.Time)

func (f TokenFunc) Token() (*oauth2.Token, error) {
	tok, exp := f()
	if tok == "" {
		return nil, fmt.Errorf("no access token: %w", ports.ErrUnauthenticated)
	}
	if !exp.IsZero() && !time.Now().Before(exp) {
		return nil, fmt.Errorf("access token expired at %s: %w", exp.Format(time.RFC3339), ports.ErrUnauthenticated)
	}
	return &oauth2.Token{AccessToken: tok, TokenType: "Bearer", Expiry: exp}, nil
}

// New creates a client for one spreadsheet.
func New(ctx context.Context, spreadsheetID string, ts oauth2.TokenSource) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	hc := newHTTPClientWithPooling()
	hc.Transport = &oauth2.Transport{Source: ts, Base: hc.Transport}
	svc, err := gsheet.NewService(ctx, goption.WithHTTPClient(hc))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets client created", "spreadsheet_id", spreadsheetID)
	return newClient(svc, spreadsheetID), nil
}

func newClient(svc *gsheet.Service, spreadsheetID string) *Client {
	return &Client{svc: svc, spreadsheetID: spreadsheetID}
}

// Opener returns a sheets.Opener sharing one token source.
func Opener(ts oauth2.TokenSource) ports.Opener {
	return func(ctx context.Context, spreadsheetID string) (ports.Store, error) {
		return New(ctx, spreadsheetID, ts)
	}
}

// newHTTPClientWithPooling creates an HTTP client optimized for Google Sheets API
// with connection pooling, proper timeouts, and keep-alive settings
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       50,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second, // Overall request timeout
	}
}

func (c *Client) Exists(ctx context.Context, name string) (bool, error) {
	resp, err := c.svc.Spreadsheets.Get(c.spreadsheetID).
		Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return false, classify("get spreadsheet", c.spreadsheetID, err)
	}
	for _, sh := range resp.Sheets {
		if sh.Properties != nil && sh.Properties.Title == name {
			return true, nil
		}
	}
	return false, nil
}

func (c *Client) Create(ctx context.Context, name string, columns []string) error {
	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: name}},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return classify("add sheet", name, err)
	}

	header := make([]any, len(columns))
	for i, col := range columns {
		header[i] = col
	}
	rng := fmt.Sprintf("%s!A1", name)
	vr := &gsheet.ValueRange{Values: [][]any{header}}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return classify("write header", rng, err)
	}
	slog.InfoContext(ctx, "Created sheet range", "range", name, "columns", len(columns))
	return nil
}

// ReadRange requests unformatted values so numbers come back as float64 and
// dates as serial numbers, independent of the spreadsheet locale.
func (c *Client) ReadRange(ctx context.Context, name string) ([][]any, error) {
	rng := dataRange(name)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("SERIAL_NUMBER").
		Context(ctx).Do()
	if err != nil {
		return nil, classify("read", rng, err)
	}
	return resp.Values, nil
}

func (c *Client) ClearRange(ctx context.Context, name string) error {
	rng := dataRange(name)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return classify("clear", rng, err)
	}
	return nil
}

// WriteRange stores rows as given. RAW input keeps user text such as notes
// starting with "=" from being evaluated as formulas.
func (c *Client) WriteRange(ctx context.Context, name string, rows [][]any) error {
	if len(rows) == 0 {
		return nil
	}
	rng := fmt.Sprintf("%s!A2", name)
	vr := &gsheet.ValueRange{Values: rows}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return classify("write", rng, err)
	}
	return nil
}

func dataRange(name string) string {
	return fmt.Sprintf("%s!A2:%s", name, lastColumn)
}

// authReasons are the 403 reasons that a fresh sign-in resolves. A plain
// permission denial on the spreadsheet is not one of them.
var authReasons = map[string]bool{
	"authError":                       true,
	"ACCESS_TOKEN_SCOPE_INSUFFICIENT": true,
	"ACCESS_TOKEN_EXPIRED":            true,
}

// classify maps API failures onto the store's sentinel errors. A 401, or a
// 403 carrying an auth reason, is ErrUnauthenticated; everything else is
// ErrUnavailable.
func classify(op, target string, err error) error {
	if errors.Is(err, ports.ErrUnauthenticated) {
		return fmt.Errorf("%s %s: %w", op, target, err)
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && isAuthFailure(gerr) {
		return fmt.Errorf("%s %s: %w: %w", op, target, ports.ErrUnauthenticated, err)
	}
	return fmt.Errorf("%s %s: %w: %w", op, target, ports.ErrUnavailable, err)
}

func isAuthFailure(gerr *googleapi.Error) bool {
	switch gerr.Code {
	case http.StatusUnauthorized:
		return true
	case http.StatusForbidden:
		for _, item := range gerr.Errors {
			if authReasons[item.Reason] {
				return true
			}
		}
		for _, d := range gerr.Details {
			if m, ok := d.(map[string]any); ok {
				if reason, _ := m["reason"].(string); authReasons[reason] {
					return true
				}
			}
		}
	}
	return false
}
