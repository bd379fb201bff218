package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"1.0", "1", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{" 2.50 ", "2.5", true},
		{"€ 12,34", "12.34", true},
		{"$1,234.50", "1234.5", true},
		{"1.234,50", "1234.5", true},
		{"1,234", "1234", true},
		{"12,345", "12345", true},
		{"-1,234", "-1234", true},
		{"€ 1,500", "1500", true},
		{"0,125", "0.125", true},
		{"1234,567", "1234.567", true},
		{"1,2345", "1.2345", true},
		{"-15", "-15", true},
		{"(15.00)", "-15", true},
		{"0", "0", true},
		{"abc", "0", false},
		{"1.2.3", "0", false},
		{"", "0", false},
		{"-", "0", false},
	}
	for _, tc := range cases {
		got, ok := ParseAmount(tc.in)
		if ok != tc.ok {
			t.Fatalf("%q expected ok=%v, got %v (%s)", tc.in, tc.ok, ok, got)
		}
		if ok && !got.Equal(decimal.RequireFromString(tc.out)) {
			t.Fatalf("%q expected %s, got %s", tc.in, tc.out, got)
		}
	}
}
