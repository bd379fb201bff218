package memory

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"timeledger/internal/sheets"
)

var _ sheets.Workbooks = (*Store)(nil)

// Store keeps spreadsheets in process: spreadsheet ID -> sheet name -> rows.
type Store struct {
	mu    sync.Mutex
	books map[string]map[string][][]any
	bold  map[sheets.TableRef][]int
}

func New() *Store {
	return &Store{
		books: make(map[string]map[string][][]any),
		bold:  make(map[sheets.TableRef][]int),
	}
}

type seedFile struct {
	Spreadsheets map[string]map[string][][]any `yaml:"spreadsheets"`
}

// NewFromFile seeds a store from a YAML fixture of the form
//
//	spreadsheets:
//	  <id>:
//	    <sheet>:
//	      - [header, ...]
//	      - [cell, ...]
func NewFromFile(path string) (*Store, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var seed seedFile
	if err := yaml.Unmarshal(b, &seed); err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	s := New()
	for id, book := range seed.Spreadsheets {
		s.AddSpreadsheet(id)
		for sheet, rows := range book {
			s.Put(sheets.TableRef{SpreadsheetID: id, Sheet: sheet}, rows)
		}
	}
	return s, nil
}

// AddSpreadsheet registers an empty spreadsheet.
func (s *Store) AddSpreadsheet(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.books[id]; !ok {
		s.books[id] = make(map[string][][]any)
	}
}

// Put stores rows under ref, creating the spreadsheet if needed.
func (s *Store) Put(ref sheets.TableRef, rows [][]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	book, ok := s.books[ref.SpreadsheetID]
	if !ok {
		book = make(map[string][][]any)
		s.books[ref.SpreadsheetID] = book
	}
	book[ref.Sheet] = copyRows(rows)
}

func (s *Store) ReadTable(_ context.Context, ref sheets.TableRef) ([][]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	book, ok := s.books[ref.SpreadsheetID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", sheets.ErrSpreadsheetNotFound, ref.SpreadsheetID)
	}
	rows, ok := book[ref.Sheet]
	if !ok {
		return nil, fmt.Errorf("%w: %s", sheets.ErrSheetNotFound, ref)
	}
	return copyRows(rows), nil
}

// ReplaceTable swaps the sheet content in one step under the store lock.
func (s *Store) ReplaceTable(_ context.Context, ref sheets.TableRef, rows [][]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	book, ok := s.books[ref.SpreadsheetID]
	if !ok {
		return fmt.Errorf("%w: %s", sheets.ErrSpreadsheetNotFound, ref.SpreadsheetID)
	}
	book[ref.Sheet] = copyRows(rows)
	delete(s.bold, ref)
	return nil
}

func (s *Store) BoldRows(_ context.Context, ref sheets.TableRef, rows []int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	book, ok := s.books[ref.SpreadsheetID]
	if !ok {
		return fmt.Errorf("%w: %s", sheets.ErrSpreadsheetNotFound, ref.SpreadsheetID)
	}
	if _, ok := book[ref.Sheet]; !ok {
		return fmt.Errorf("%w: %s", sheets.ErrSheetNotFound, ref)
	}
	sorted := append([]int(nil), rows...)
	sort.Ints(sorted)
	s.bold[ref] = sorted
	return nil
}

// Bolded returns the rows last bolded on ref.
func (s *Store) Bolded(ref sheets.TableRef) []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.bold[ref]...)
}

func copyRows(in [][]any) [][]any {
	out := make([][]any, len(in))
	for i, row := range in {
		out[i] = append([]any(nil), row...)
	}
	return out
}
