package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"

	"timeledger/internal/log"
	"timeledger/internal/scheduler"
)

type Config struct {
	// Backend selection
	DataBackend string `yaml:"data_backend"`

	// Master spreadsheet holding registry, ledger, payments and the monthly report
	GoogleSpreadsheetID string `yaml:"google_spreadsheet_id"`

	// Sheet names
	RegistrySheet     string `yaml:"registry_sheet"`
	LedgerSheet       string `yaml:"ledger_sheet"`
	PaymentsSheet     string `yaml:"payments_sheet"`
	MasterReportSheet string `yaml:"master_report_sheet"`
	SourceSheet       string `yaml:"source_sheet"`
	WorkerReportSheet string `yaml:"worker_report_sheet"`

	// Local backends
	XLSXDir        string `yaml:"xlsx_dir"`
	MemorySeedFile string `yaml:"memory_seed_file"`

	// Run journal, empty disables it
	SQLiteDBPath string `yaml:"sqlite_db_path"`

	// AMQP, empty URL disables notifications and remote run requests
	AMQPURL      string `yaml:"amqp_url"`
	AMQPExchange string `yaml:"amqp_exchange"`
	AMQPQueue    string `yaml:"amqp_queue"`

	// Schedules, "off" disables a job in the worker
	CollectSchedule   string `yaml:"collect_schedule"`
	ReconcileSchedule string `yaml:"reconcile_schedule"`
	ReportSchedule    string `yaml:"report_schedule"`
	Timezone          string `yaml:"timezone"`

	RunTimeout time.Duration `yaml:"run_timeout"`
	CacheSweep time.Duration `yaml:"cache_sweep"`
	StatusPort string        `yaml:"status_port"`
	LogLevel   string        `yaml:"log_level"`
}

const (
	BackendSheets = "sheets"
	BackendXLSX   = "xlsx"
	BackendMemory = "memory"
)

// Defaults returns the configuration used when nothing is set.
func Defaults() *Config {
	return &Config{
		DataBackend: BackendMemory,

		RegistrySheet:     "Sources",
		LedgerSheet:       "Ledger",
		PaymentsSheet:     "Payments",
		MasterReportSheet: "Monthly Report",
		SourceSheet:       "Timesheet",
		WorkerReportSheet: "Monthly Summary",

		XLSXDir: "./data/workbooks",

		AMQPExchange: "timeledger",
		AMQPQueue:    "run_requests",

		CollectSchedule:   "*/15 * * * *",
		ReconcileSchedule: "0 6 * * *",
		ReportSchedule:    "0 7 * * 1",
		Timezone:          "UTC",

		RunTimeout: 5 * time.Minute,
		CacheSweep: 10 * time.Minute,
		StatusPort: "8081",
		LogLevel:   "info",
	}
}

// Load builds the configuration from defaults, the optional YAML file named
// by CONFIG_FILE, then the environment.
func Load() (*Config, error) {
	cfg := Defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

// LoadFile overlays the keys present in a YAML file.
func (c *Config) LoadFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	strs := map[string]*string{
		"DATA_BACKEND":             &c.DataBackend,
		"GOOGLE_SPREADSHEET_ID":    &c.GoogleSpreadsheetID,
		"REGISTRY_SHEET_NAME":      &c.RegistrySheet,
		"LEDGER_SHEET_NAME":        &c.LedgerSheet,
		"PAYMENTS_SHEET_NAME":      &c.PaymentsSheet,
		"MASTER_REPORT_SHEET_NAME": &c.MasterReportSheet,
		"SOURCE_SHEET_NAME":        &c.SourceSheet,
		"WORKER_REPORT_SHEET_NAME": &c.WorkerReportSheet,
		"XLSX_DIR":                 &c.XLSXDir,
		"MEMORY_SEED_FILE":         &c.MemorySeedFile,
		"SQLITE_DB_PATH":           &c.SQLiteDBPath,
		"AMQP_URL":                 &c.AMQPURL,
		"AMQP_EXCHANGE":            &c.AMQPExchange,
		"AMQP_QUEUE":               &c.AMQPQueue,
		"COLLECT_SCHEDULE":         &c.CollectSchedule,
		"RECONCILE_SCHEDULE":       &c.ReconcileSchedule,
		"REPORT_SCHEDULE":          &c.ReportSchedule,
		"TIMEZONE":                 &c.Timezone,
		"STATUS_PORT":              &c.StatusPort,
		"LOG_LEVEL":                &c.LogLevel,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	c.RunTimeout = getEnvDuration("RUN_TIMEOUT", c.RunTimeout)
	c.CacheSweep = getEnvDuration("CACHE_SWEEP_INTERVAL", c.CacheSweep)
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	switch c.DataBackend {
	case BackendSheets, BackendMemory:
	case BackendXLSX:
		if c.XLSXDir == "" {
			errors = append(errors, "XLSX directory is required when using xlsx backend")
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of [sheets xlsx memory]", c.DataBackend))
	}

	if c.GoogleSpreadsheetID == "" {
		errors = append(errors, "master spreadsheet ID (GOOGLE_SPREADSHEET_ID) is required")
	}

	sheetNames := []struct{ key, value string }{
		{"registry", c.RegistrySheet},
		{"ledger", c.LedgerSheet},
		{"payments", c.PaymentsSheet},
		{"master report", c.MasterReportSheet},
		{"source", c.SourceSheet},
		{"worker report", c.WorkerReportSheet},
	}
	for _, s := range sheetNames {
		if strings.TrimSpace(s.value) == "" {
			errors = append(errors, fmt.Sprintf("%s sheet name cannot be empty", s.key))
		}
	}

	for _, s := range []struct{ job, spec string }{
		{"collect", c.CollectSchedule},
		{"reconcile", c.ReconcileSchedule},
		{"report", c.ReportSchedule},
	} {
		if scheduler.Disabled(s.spec) {
			continue
		}
		if err := scheduler.Validate(s.spec); err != nil {
			errors = append(errors, fmt.Sprintf("invalid %s schedule: %v", s.job, err))
		}
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errors = append(errors, fmt.Sprintf("invalid timezone '%s': %v", c.Timezone, err))
	}

	if c.RunTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid run timeout %v: must be at least 1 second", c.RunTimeout))
	} else if c.RunTimeout > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid run timeout %v: must be at most 24 hours", c.RunTimeout))
	}
	if c.CacheSweep < time.Second {
		errors = append(errors, fmt.Sprintf("invalid cache sweep interval %v: must be at least 1 second", c.CacheSweep))
	}

	if c.StatusPort != "" {
		if port, err := strconv.Atoi(c.StatusPort); err != nil {
			errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.StatusPort))
		} else if port < 1 || port > 65535 {
			errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if !log.ValidLevel(c.LogLevel) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of [debug info warn error]", c.LogLevel))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// Location returns the scheduling time zone, UTC when it cannot be loaded.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
