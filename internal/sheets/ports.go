// Package sheets defines the remote spreadsheet store the organizer syncs
// with, the named ranges it uses and the row codec for each range.
package sheets

import (
	"context"
	"errors"
)

var (
	// ErrUnauthenticated means the access token was rejected or has expired.
	ErrUnauthenticated = errors.New("remote store: unauthenticated")
	// ErrUnavailable covers network failures and server errors.
	ErrUnavailable = errors.New("remote store: unavailable")
	// ErrRangeNotFound is returned when reading or writing a range that was
	// never created.
	ErrRangeNotFound = errors.New("remote store: range not found")
)

// Ports for outbound adapters.
type (
	// Store is a spreadsheet with named ranges. Each range has a header row
	// followed by data rows. Cell values are strings, float64 or bool.
	Store interface {
		Exists(ctx context.Context, name string) (bool, error)
		// Create adds the range and writes its header row.
		Create(ctx context.Context, name string, columns []string) error
		// ReadRange returns the data rows, without the header.
		ReadRange(ctx context.Context, name string) ([][]any, error)
		// ClearRange removes every data row and keeps the header.
		ClearRange(ctx context.Context, name string) error
		// WriteRange writes rows starting right below the header.
		WriteRange(ctx context.Context, name string, rows [][]any) error
	}

	// Opener returns the store for a spreadsheet ID.
	Opener func(ctx context.Context, spreadsheetID string) (Store, error)
)
