// Package core provides the ledger domain types and the time and cost rules
// every job shares.
//
// This file contains amount parsing from sheet cell renderings.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a rendered amount into a decimal.
//
// It tolerates currency symbols, spaces and a thousands separator. A lone
// comma followed by exactly three digits groups thousands ("1,234" -> 1234);
// otherwise a lone comma is the decimal separator ("12,50" -> 12.50). When
// both appear, the one that comes first groups thousands.
//
// Examples:
//
//	ParseAmount("12.34")      -> 12.34, true
//	ParseAmount("€ 12,34")    -> 12.34, true
//	ParseAmount("$1,234.50")  -> 1234.50, true
//	ParseAmount("1,234")      -> 1234, true
//	ParseAmount("0,125")      -> 0.125, true
//	ParseAmount("(15.00)")    -> -15.00, true
//	ParseAmount("abc")        -> 0, false
func ParseAmount(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}
	s = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsDigit(r), r == '.', r == ',', r == '-', r == '+':
			return r
		default:
			return -1
		}
	}, s)
	if s == "" {
		return decimal.Zero, false
	}

	dot := strings.LastIndex(s, ".")
	comma := strings.LastIndex(s, ",")
	switch {
	case dot >= 0 && comma >= 0 && comma > dot:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case dot >= 0 && comma >= 0:
		s = strings.ReplaceAll(s, ",", "")
	case comma >= 0 && strings.Count(s, ",") == 1 && !groupsThousands(s, comma):
		s = strings.Replace(s, ",", ".", 1)
	case comma >= 0:
		s = strings.ReplaceAll(s, ",", "")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	if neg {
		d = d.Neg()
	}
	return d, true
}

// groupsThousands reports whether the single comma at i separates a thousands
// group: three digits follow it and a non-zero integer part of one to three
// digits precedes it.
func groupsThousands(s string, i int) bool {
	head := strings.TrimLeft(s[:i], "+-")
	tail := s[i+1:]
	if len(tail) != 3 || strings.ContainsAny(tail, "+-") {
		return false
	}
	if len(head) == 0 || len(head) > 3 || strings.ContainsAny(head, "+-") {
		return false
	}
	return strings.TrimLeft(head, "0") != ""
}
