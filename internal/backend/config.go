package backend

import (
	"fmt"

	"timeledger/internal/config"
)

// Type names a workbook backend.
type Type string

const (
	SheetsBackend Type = config.BackendSheets
	XLSXBackend   Type = config.BackendXLSX
	MemoryBackend Type = config.BackendMemory
)

// String implements fmt.Stringer
func (t Type) String() string {
	return string(t)
}

// IsValid returns true if the backend type is valid
func (t Type) IsValid() bool {
	switch t {
	case SheetsBackend, XLSXBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// Config holds what backend creation needs
type Config struct {
	Type Type

	// Spreadsheet that must exist before the first job runs
	MasterSpreadsheetID string

	// xlsx
	XLSXDir string

	// memory, optional YAML seed
	MemorySeedFile string
}

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}
	t := Type(appConfig.DataBackend)
	if !t.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}
	return Config{
		Type:                t,
		MasterSpreadsheetID: appConfig.GoogleSpreadsheetID,
		XLSXDir:             appConfig.XLSXDir,
		MemorySeedFile:      appConfig.MemorySeedFile,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}
	if c.Type == XLSXBackend && c.XLSXDir == "" {
		return fmt.Errorf("xlsx directory is required for xlsx backend")
	}
	return nil
}

// Types returns all valid backend types
func Types() []Type {
	return []Type{SheetsBackend, XLSXBackend, MemoryBackend}
}
