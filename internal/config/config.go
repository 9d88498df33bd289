// Package config loads the TOML configuration: Jira connection, tracking
// modes, analysis window, output paths, dashboard, and rate limits.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"effortwatch/internal/mode"
)

// TokenEnv overrides jira.auth_token when set, so the token can stay out of
// the config file.
const TokenEnv = "EFFORTWATCH_JIRA_TOKEN"

type Config struct {
	Jira      Jira                   `toml:"jira"`
	Modes     map[string]ModeSection `toml:"modes"`
	Analysis  Analysis               `toml:"analysis"`
	Paths     Paths                  `toml:"paths"`
	Dashboard Dashboard              `toml:"dashboard"`
	Limits    Limits                 `toml:"limits"`
	Tracing   Tracing                `toml:"tracing"`
}

type Jira struct {
	BaseURL   string        `toml:"base_url"`
	AuthToken string        `toml:"auth_token"`
	Project   string        `toml:"project"`
	Statuses  []string      `toml:"statuses"`
	Timeout   time.Duration `toml:"timeout"`
}

// ModeSection overrides or extends a built-in tracking mode. Empty fields
// keep the built-in value when the id matches one.
type ModeSection struct {
	IssueTypes []string  `toml:"issue_types"`
	FieldID    string    `toml:"field_id"`
	FieldName  string    `toml:"field_name"`
	BasePoints []float64 `toml:"base_points"`
}

type Analysis struct {
	StartDate  string    `toml:"start_date"`
	BasePoints []float64 `toml:"base_points"`
}

type Paths struct {
	DataDir   string `toml:"data_dir"`
	HistoryDB string `toml:"history_db"`
}

type Dashboard struct {
	Addr       string        `toml:"addr"`
	WatchGlobs []string      `toml:"watch_globs"`
	Debounce   time.Duration `toml:"debounce"`
}

type Limits struct {
	RequestsPerSecond float64 `toml:"requests_per_second"`
	Burst             int     `toml:"burst"`
	PageSize          int     `toml:"page_size"`
}

type Tracing struct {
	OTLPEndpoint string `toml:"otlp_endpoint"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)

	if token := os.Getenv(TokenEnv); token != "" {
		cfg.Jira.AuthToken = token
	}

	if err := validateJira(&cfg); err != nil {
		return nil, err
	}
	if err := validateModes(&cfg); err != nil {
		return nil, err
	}
	if err := validateAnalysis(&cfg); err != nil {
		return nil, err
	}
	if err := validatePaths(&cfg); err != nil {
		return nil, err
	}
	if err := validateDashboard(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Jira.Project) == "" {
		cfg.Jira.Project = "OPT"
	}
	if len(cfg.Jira.Statuses) == 0 {
		cfg.Jira.Statuses = []string{"Done", "UAT PARTNER", "UAT REPORTER"}
	}
	if cfg.Jira.Timeout <= 0 {
		cfg.Jira.Timeout = 30 * time.Second
	}

	if strings.TrimSpace(cfg.Analysis.StartDate) == "" {
		cfg.Analysis.StartDate = "2025-03-01"
	}

	if strings.TrimSpace(cfg.Paths.DataDir) == "" {
		cfg.Paths.DataDir = "data"
	}
	if strings.TrimSpace(cfg.Paths.HistoryDB) == "" {
		cfg.Paths.HistoryDB = filepath.Join(cfg.Paths.DataDir, "history.db")
	}

	if strings.TrimSpace(cfg.Dashboard.Addr) == "" {
		cfg.Dashboard.Addr = "127.0.0.1:3000"
	}
	if len(cfg.Dashboard.WatchGlobs) == 0 {
		cfg.Dashboard.WatchGlobs = []string{"*-data.json"}
	}
	if cfg.Dashboard.Debounce == 0 {
		cfg.Dashboard.Debounce = 500 * time.Millisecond
	}

	if cfg.Limits.RequestsPerSecond <= 0 {
		cfg.Limits.RequestsPerSecond = 4
	}
	if cfg.Limits.Burst <= 0 {
		cfg.Limits.Burst = 2
	}
	if cfg.Limits.PageSize <= 0 {
		cfg.Limits.PageSize = 100
	}
}

func validateJira(cfg *Config) error {
	if strings.TrimSpace(cfg.Jira.BaseURL) == "" {
		return fmt.Errorf("jira.base_url must not be empty")
	}
	if strings.TrimSpace(cfg.Jira.AuthToken) == "" {
		return fmt.Errorf("jira.auth_token must be set (or export %s)", TokenEnv)
	}
	for i, status := range cfg.Jira.Statuses {
		if strings.TrimSpace(status) == "" {
			return fmt.Errorf("jira.statuses[%d] must not be empty", i)
		}
	}
	return nil
}

func validateModes(cfg *Config) error {
	builtin := make(map[string]bool, 3)
	for _, m := range mode.Builtins() {
		builtin[m.ID] = true
	}
	for id, section := range cfg.Modes {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("modes table keys must not be empty")
		}
		if builtin[id] {
			continue
		}
		// New modes need the full field pair; built-ins already carry one.
		if strings.TrimSpace(section.FieldID) == "" {
			return fmt.Errorf("modes.%s.field_id must not be empty", id)
		}
		if strings.TrimSpace(section.FieldName) == "" {
			return fmt.Errorf("modes.%s.field_name must not be empty", id)
		}
		if len(section.IssueTypes) == 0 {
			return fmt.Errorf("modes.%s.issue_types must not be empty", id)
		}
	}
	return nil
}

func validateAnalysis(cfg *Config) error {
	if _, err := time.Parse("2006-01-02", cfg.Analysis.StartDate); err != nil {
		return fmt.Errorf("analysis.start_date must be YYYY-MM-DD, got %q", cfg.Analysis.StartDate)
	}
	for i, points := range cfg.Analysis.BasePoints {
		if points <= 0 {
			return fmt.Errorf("analysis.base_points[%d] must be positive, got %v", i, points)
		}
	}
	return nil
}

func validatePaths(cfg *Config) error {
	if strings.TrimSpace(cfg.Paths.DataDir) == "" {
		return fmt.Errorf("paths.data_dir must not be empty")
	}
	if strings.TrimSpace(cfg.Paths.HistoryDB) == "" {
		return fmt.Errorf("paths.history_db must not be empty")
	}
	return nil
}

func validateDashboard(cfg *Config) error {
	if strings.TrimSpace(cfg.Dashboard.Addr) == "" {
		return fmt.Errorf("dashboard.addr must not be empty")
	}
	if cfg.Dashboard.Debounce < 0 {
		return fmt.Errorf("dashboard.debounce must not be negative")
	}
	return nil
}

// StartDate parses analysis.start_date; Load already validated the format.
func (c *Config) StartDate() time.Time {
	t, _ := time.Parse("2006-01-02", c.Analysis.StartDate)
	return t
}

// DataFile is the dataset path for one mode and direction, e.g.
// data/dev-up-data.json.
func (c *Config) DataFile(modeID, direction string) string {
	return filepath.Join(c.Paths.DataDir, fmt.Sprintf("%s-%s-data.json", modeID, direction))
}

// ReportFile is the text report path alongside the dataset.
func (c *Config) ReportFile(modeID, direction string) string {
	return filepath.Join(c.Paths.DataDir, fmt.Sprintf("%s-%s-report.txt", modeID, direction))
}

// TrackingModes merges the config's modes table over the built-ins: matching
// ids override field by field, new ids are appended. The analysis-level base
// points apply to any mode without its own override.
func (c *Config) TrackingModes() []mode.TrackingMode {
	modes := mode.Builtins()
	index := make(map[string]int, len(modes))
	for i, m := range modes {
		index[m.ID] = i
	}

	if len(c.Analysis.BasePoints) > 0 {
		for i := range modes {
			modes[i].BasePoints = append([]float64(nil), c.Analysis.BasePoints...)
		}
	}

	for id, section := range c.Modes {
		merged := mode.TrackingMode{ID: id}
		if i, ok := index[id]; ok {
			merged = modes[i]
		} else if len(c.Analysis.BasePoints) > 0 {
			merged.BasePoints = append([]float64(nil), c.Analysis.BasePoints...)
		}
		if len(section.IssueTypes) > 0 {
			merged.IssueTypes = section.IssueTypes
		}
		if section.FieldID != "" {
			merged.FieldID = section.FieldID
		}
		if section.FieldName != "" {
			merged.FieldName = section.FieldName
		}
		if len(section.BasePoints) > 0 {
			merged.BasePoints = section.BasePoints
		}
		if i, ok := index[id]; ok {
			modes[i] = merged
		} else {
			index[id] = len(modes)
			modes = append(modes, merged)
		}
	}

	return modes
}
