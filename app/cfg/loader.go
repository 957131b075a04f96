package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Pipeline directories
	MarkerDir     string `long:"marker-dir" env:"MARKER_DIR" default:"./marker" description:"Directory containing raw marker YAML files"`
	OutputDir     string `long:"output-dir" env:"OUTPUT_DIR" default:"./final_marker_set" description:"Directory for accepted, normalized markers"`
	QuarantineDir string `long:"quarantine-dir" env:"QUARANTINE_DIR" default:"./quarantine" description:"Directory for quarantined markers and error payloads"`

	// Report configuration
	ReportPath   string `long:"report-path" env:"REPORT_PATH" default:"./normalize_report.tsv" description:"Path of the TSV diagnostic report"`
	AppendReport bool   `long:"append-report" env:"APPEND_REPORT" description:"Append to an existing report instead of overwriting it"`

	// Validation configuration
	MinExamples int `long:"min-examples" env:"MIN_EXAMPLES" default:"5" description:"Minimum number of examples a marker must carry"`

	// Database configuration
	DBPath string `long:"db-path" env:"DB_PATH" default:"./marker-comb.db" description:"Path of the SQLite database file"`

	// Application configuration
	Port              string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	WorkerCount       int    `long:"worker-count" env:"WORKER_COUNT" default:"5" description:"Number of background workers for marker processing"`
	SchedulerInterval int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"30" description:"Scheduler interval in seconds"`
	APIAccessKey      string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// Application metadata
	Timezone string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, Europe/Berlin)"`
	Debug    bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		MarkerDir:         raw.MarkerDir,
		OutputDir:         raw.OutputDir,
		QuarantineDir:     raw.QuarantineDir,
		ReportPath:        raw.ReportPath,
		AppendReport:      raw.AppendReport,
		MinExamples:       raw.MinExamples,
		DBPath:            raw.DBPath,
		Port:              raw.Port,
		WorkerCount:       raw.WorkerCount,
		SchedulerInterval: raw.SchedulerInterval,
		APIAccessKey:      raw.APIAccessKey,
		Timezone:          raw.Timezone,
		Debug:             raw.Debug,
		Version:           GetVersion(),
	}

	if cfg.MinExamples < 1 {
		return nil, fmt.Errorf("min-examples must be at least 1, got %d", cfg.MinExamples)
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
