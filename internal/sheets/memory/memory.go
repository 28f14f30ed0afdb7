// Package memory is an in-process spreadsheet store used for development
// and tests.
package memory

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mcarneiro/airbnb-organizer/internal/sheets"
)

var _ sheets.Store = (*Store)(nil)

type table struct {
	columns []string
	rows    [][]any
}

type Store struct {
	mu     sync.Mutex
	tables map[string]*table
	err    error
}

func New() *Store {
	return &Store{tables: make(map[string]*table)}
}

// NewFromDir seeds the store from "<range>.csv" files in base. The first CSV
// record is the header. Missing files are skipped.
func NewFromDir(base string) (*Store, error) {
	s := New()
	for _, r := range sheets.Ranges() {
		records, err := readCSV(filepath.Join(base, r.Name+".csv"))
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			continue
		}
		t := &table{columns: records[0]}
		for _, rec := range records[1:] {
			row := make([]any, len(rec))
			for i, v := range rec {
				row[i] = v
			}
			t.rows = append(t.rows, row)
		}
		s.tables[r.Name] = t
	}
	return s, nil
}

// SetError makes every operation fail with err until it is called with nil.
func (s *Store) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *Store) Exists(_ context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	_, ok := s.tables[name]
	return ok, nil
}

// Create is a no-op for a range that already exists.
func (s *Store) Create(_ context.Context, name string, columns []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if _, ok := s.tables[name]; ok {
		return nil
	}
	s.tables[name] = &table{columns: append([]string(nil), columns...)}
	return nil
}

func (s *Store) ReadRange(_ context.Context, name string) ([][]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.lookup(name)
	if err != nil {
		return nil, err
	}
	return copyRows(t.rows), nil
}

func (s *Store) ClearRange(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.lookup(name)
	if err != nil {
		return err
	}
	t.rows = nil
	return nil
}

// WriteRange overwrites rows from the top of the data area. Rows below the
// written block are kept, as in a real spreadsheet.
func (s *Store) WriteRange(_ context.Context, name string, rows [][]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.lookup(name)
	if err != nil {
		return err
	}
	in := copyRows(rows)
	if len(in) < len(t.rows) {
		in = append(in, t.rows[len(in):]...)
	}
	t.rows = in
	return nil
}

// Header returns the column names of a range, or nil if it does not exist.
func (s *Store) Header(name string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[name]
	if !ok {
		return nil
	}
	return append([]string(nil), t.columns...)
}

func (s *Store) lookup(name string) (*table, error) {
	if s.err != nil {
		return nil, s.err
	}
	t, ok := s.tables[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, sheets.ErrRangeNotFound)
	}
	return t, nil
}

func copyRows(in [][]any) [][]any {
	if in == nil {
		return nil
	}
	out := make([][]any, len(in))
	for i, r := range in {
		out[i] = append([]any(nil), r...)
	}
	return out
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open seed %s: %w", path, err)
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.Comment = '#'
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read seed %s: %w", path, err)
	}
	for _, rec := range records {
		for i := range rec {
			rec[i] = strings.TrimSpace(rec[i])
		}
	}
	return records, nil
}

// Registry hands out one Store per spreadsheet ID.
type Registry struct {
	mu     sync.Mutex
	base   string
	stores map[string]*Store
}

// NewRegistry returns a registry. When base is not empty, new stores are
// seeded from base/<spreadsheet id>/.
func NewRegistry(base string) *Registry {
	return &Registry{base: base, stores: make(map[string]*Store)}
}

// Open satisfies sheets.Opener.
func (r *Registry) Open(_ context.Context, spreadsheetID string) (sheets.Store, error) {
	return r.Store(spreadsheetID)
}

// Store returns the store for id, creating it on first use.
func (r *Registry) Store(id string) (*Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.stores[id]; ok {
		return s, nil
	}
	s := New()
	if r.base != "" {
		seeded, err := NewFromDir(filepath.Join(r.base, id))
		if err != nil {
			return nil, err
		}
		s = seeded
	}
	r.stores[id] = s
	return s, nil
}
