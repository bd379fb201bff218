package sheets

import "testing"

func TestSpreadsheetID(t *testing.T) {
	cases := map[string]string{
		"https://docs.google.com/spreadsheets/d/1AbC-d_E/edit#gid=0": "1AbC-d_E",
		"https://docs.google.com/spreadsheets/d/XYZ":                 "XYZ",
		"  1AbCdE  ": "1AbCdE",
		"ana.xlsx":   "ana.xlsx",
		"":           "",
	}
	for in, want := range cases {
		if got := SpreadsheetID(in); got != want {
			t.Errorf("SpreadsheetID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTableRefString(t *testing.T) {
	if got := (TableRef{SpreadsheetID: "abc", Sheet: "Ledger"}).String(); got != "abc!Ledger" {
		t.Fatalf("String() = %q", got)
	}
}
