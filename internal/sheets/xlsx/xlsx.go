// Package xlsx stores spreadsheets as local .xlsx workbooks, one file per
// spreadsheet ID, using excelize.
package xlsx

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/xuri/excelize/v2"

	"timeledger/internal/log"
	"timeledger/internal/sheets"
)

const ext = ".xlsx"

// Store reads and writes <dir>/<spreadsheet ID>.xlsx.
type Store struct {
	dir    string
	mu     sync.Mutex
	logger *log.Logger
}

var _ sheets.Workbooks = (*Store)(nil)

func New(dir string, logger *log.Logger) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("xlsx: empty directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("xlsx: create %s: %w", dir, err)
	}
	return &Store{dir: dir, logger: logger.WithComponent(log.ComponentSheets)}, nil
}

// Path returns the workbook file backing a spreadsheet ID.
func (s *Store) Path(id string) (string, error) {
	if id == "" || filepath.Base(id) != id || id == "." || id == ".." {
		return "", fmt.Errorf("%w: invalid workbook id %q", sheets.ErrSpreadsheetNotFound, id)
	}
	if !strings.HasSuffix(strings.ToLower(id), ext) {
		id += ext
	}
	return filepath.Join(s.dir, id), nil
}

// Create writes an empty workbook for id unless one exists.
func (s *Store) Create(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	path, err := s.Path(id)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	f := excelize.NewFile()
	defer f.Close()
	return s.save(f, path)
}

func (s *Store) ReadTable(_ context.Context, ref sheets.TableRef) ([][]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, _, err := s.open(ref.SpreadsheetID)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if !hasSheet(f, ref.Sheet) {
		return nil, fmt.Errorf("%w: %s", sheets.ErrSheetNotFound, ref)
	}
	rows, err := f.GetRows(ref.Sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", ref, err)
	}
	dec := newCellDecoder(f, ref.Sheet)
	out := make([][]any, len(rows))
	for i, row := range rows {
		out[i] = make([]any, len(row))
		for j, v := range row {
			out[i][j] = dec.decode(j+1, i+1, v)
		}
	}
	return out, nil
}

// ReplaceTable writes rows into a fresh sheet that then takes the old one's
// name, and swaps the file in with a rename.
func (s *Store) ReplaceTable(_ context.Context, ref sheets.TableRef, rows [][]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, path, err := s.open(ref.SpreadsheetID)
	if err != nil {
		return err
	}
	defer f.Close()

	target := ref.Sheet
	existed := hasSheet(f, ref.Sheet)
	if existed {
		target = tempSheetName(f)
	}
	if _, err := f.NewSheet(target); err != nil {
		return fmt.Errorf("add sheet %s: %w", ref, err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := append([]any(nil), row...)
		if err := f.SetSheetRow(target, cell, &values); err != nil {
			return fmt.Errorf("write %s row %d: %w", ref, i+1, err)
		}
	}
	if existed {
		if err := f.DeleteSheet(ref.Sheet); err != nil {
			return fmt.Errorf("drop %s: %w", ref, err)
		}
		if err := f.SetSheetName(target, ref.Sheet); err != nil {
			return fmt.Errorf("rename %s: %w", ref, err)
		}
	}
	if err := s.save(f, path); err != nil {
		return err
	}
	s.logger.Debug("table replaced", log.FieldSpreadsheetID, ref.SpreadsheetID, log.FieldSheet, ref.Sheet, log.FieldRows, len(rows))
	return nil
}

// BoldRows resets the font of the used range, then bolds the listed rows.
func (s *Store) BoldRows(_ context.Context, ref sheets.TableRef, rows []int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, path, err := s.open(ref.SpreadsheetID)
	if err != nil {
		return err
	}
	defer f.Close()
	if !hasSheet(f, ref.Sheet) {
		return fmt.Errorf("%w: %s", sheets.ErrSheetNotFound, ref)
	}
	values, err := f.GetRows(ref.Sheet)
	if err != nil {
		return fmt.Errorf("read %s: %w", ref, err)
	}
	width := 1
	for _, row := range values {
		width = max(width, len(row))
	}
	lastCol, err := excelize.ColumnNumberToName(width)
	if err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("bold style: %w", err)
	}
	if len(values) > 0 {
		if err := f.SetCellStyle(ref.Sheet, "A1", fmt.Sprintf("%s%d", lastCol, len(values)), 0); err != nil {
			return fmt.Errorf("reset style %s: %w", ref, err)
		}
	}
	for _, r := range rows {
		if err := f.SetCellStyle(ref.Sheet, fmt.Sprintf("A%d", r+1), fmt.Sprintf("%s%d", lastCol, r+1), bold); err != nil {
			return fmt.Errorf("bold %s row %d: %w", ref, r, err)
		}
	}
	return s.save(f, path)
}

func (s *Store) open(id string) (*excelize.File, string, error) {
	path, err := s.Path(id)
	if err != nil {
		return nil, "", err
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, "", fmt.Errorf("%w: %s", sheets.ErrSpreadsheetNotFound, id)
		}
		return nil, "", fmt.Errorf("open %s: %w", path, err)
	}
	return f, path, nil
}

// save writes to a temp file in the same directory and renames it over path.
func (s *Store) save(f *excelize.File, path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("create temp workbook: %w", err)
	}
	defer os.Remove(tmp.Name())
	if err := f.Write(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("write workbook: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close workbook: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

func hasSheet(f *excelize.File, name string) bool {
	idx, err := f.GetSheetIndex(name)
	return err == nil && idx >= 0
}

func tempSheetName(f *excelize.File) string {
	for i := 0; ; i++ {
		name := fmt.Sprintf("tmp-%d", i)
		if !hasSheet(f, name) {
			return name
		}
	}
}
