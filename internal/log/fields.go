package log

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldJob           = "job"
	FieldRunID         = "run_id"
	FieldSourceRow     = "source_row"
	FieldOwner         = "owner"
	FieldSpreadsheetID = "spreadsheet_id"
	FieldSheet         = "sheet"
	FieldRows          = "rows"
	FieldWritten       = "written"
	FieldSkipped       = "skipped"
	FieldDuration      = "duration_ms"
	FieldError         = "error"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldStatusCode    = "status_code"
	FieldSchedule      = "schedule"
	FieldBackend       = "backend"
	FieldRequestID     = "request_id"
	FieldClientIP      = "client_ip"
)

// Components
const (
	ComponentApp        = "app"
	ComponentCollector  = "collector"
	ComponentReconciler = "reconciler"
	ComponentReporter   = "reporter"
	ComponentRunner     = "runner"
	ComponentScheduler  = "scheduler"
	ComponentSheets     = "sheets"
	ComponentJournal    = "journal"
	ComponentNotify     = "notify"
	ComponentHTTP       = "http"
	ComponentCache      = "cache"
	ComponentBackend    = "backend"
)

// Fields is a builder for structured log attributes.
type Fields map[string]any

func NewFields() Fields {
	return make(Fields)
}

// WithError adds the error field when err is non-nil.
func (f Fields) WithError(err error) Fields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithTable adds the spreadsheet and sheet a message refers to.
func (f Fields) WithTable(spreadsheetID, sheet string) Fields {
	f[FieldSpreadsheetID] = spreadsheetID
	f[FieldSheet] = sheet
	return f
}

// WithStats adds run counters.
func (f Fields) WithStats(written, skipped int) Fields {
	f[FieldWritten] = written
	f[FieldSkipped] = skipped
	return f
}

// ToSlice converts Fields to slog's alternating key/value form.
func (f Fields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
