// Package table maps header-addressed sheet tables onto typed columns.
//
// A Schema is bound once per table read; the resulting Binding resolves
// column keys to cell positions for every data row.
package table

import (
	"fmt"
	"strings"

	"timeledger/internal/core"
)

// Column describes one logical column and the header texts it may appear under.
type Column struct {
	Key      string
	Names    []string
	Fallback int // positional index used when no header matches; -1 for none
	Optional bool
}

// Col declares a required column matched by any of names.
func Col(key string, names ...string) Column {
	if len(names) == 0 {
		names = []string{key}
	}
	return Column{Key: key, Names: names, Fallback: -1}
}

// At sets the positional fallback.
func (c Column) At(index int) Column {
	c.Fallback = index
	return c
}

// Opt marks the column as optional.
func (c Column) Opt() Column {
	c.Optional = true
	return c
}

type Schema struct {
	Table   string
	Columns []Column
}

// Binding maps column keys to positions in a row.
type Binding struct {
	table string
	index map[string]int
}

// Bind resolves every column against header. Missing required columns fail
// the whole table.
func (s Schema) Bind(header []any) (Binding, error) {
	b, missing := s.resolve(header)
	if len(missing) > 0 {
		return Binding{}, fmt.Errorf("%s: %w: %s; got headers=%v",
			s.Table, core.ErrMissingColumns, strings.Join(missing, ", "), Texts(header))
	}
	return b, nil
}

// BindAny resolves what it can. It only fails when no column is recognised.
func (s Schema) BindAny(header []any) (Binding, error) {
	b, _ := s.resolve(header)
	if len(b.index) == 0 {
		return Binding{}, fmt.Errorf("%s: %w: no recognised columns; got headers=%v",
			s.Table, core.ErrMissingColumns, Texts(header))
	}
	return b, nil
}

func (s Schema) resolve(header []any) (Binding, []string) {
	headers := Texts(header)
	b := Binding{table: s.Table, index: make(map[string]int, len(s.Columns))}
	claimed := make(map[int]bool, len(s.Columns))
	for _, c := range s.Columns {
		for _, name := range c.Names {
			if idx := indexOf(headers, name); idx >= 0 {
				b.index[c.Key] = idx
				claimed[idx] = true
				break
			}
		}
	}
	// Positional fallbacks only take columns no header name claimed.
	var missing []string
	for _, c := range s.Columns {
		if _, ok := b.index[c.Key]; ok {
			continue
		}
		if c.Fallback >= 0 && c.Fallback < len(headers) && !claimed[c.Fallback] {
			b.index[c.Key] = c.Fallback
			claimed[c.Fallback] = true
			continue
		}
		if !c.Optional {
			missing = append(missing, c.Names[0])
		}
	}
	return b, missing
}

// Has reports whether the column was found.
func (b Binding) Has(key string) bool {
	_, ok := b.index[key]
	return ok
}

// Value returns the raw cell for key, or nil.
func (b Binding) Value(row []any, key string) any {
	idx, ok := b.index[key]
	if !ok || idx >= len(row) {
		return nil
	}
	return row[idx]
}

// Text returns the trimmed cell text for key.
func (b Binding) Text(row []any, key string) string {
	return Text(b.Value(row, key))
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(target)) {
			return i
		}
	}
	return -1
}
