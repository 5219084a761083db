package slidecast

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/brunobiangulo/slidecast/parser"
)

// Config holds all configuration for the slidecast engine.
type Config struct {
	// DBPath is the full path to the SQLite database file.
	// If empty, defaults to ~/.slidecast/<DBName>.db
	DBPath string `json:"db_path" yaml:"db_path"`

	// DBName is the name for the database (used when DBPath is empty).
	DBName string `json:"db_name" yaml:"db_name"`

	// StorageDir controls where the database is created when DBPath
	// is not explicitly set. Options: "home" (default) uses ~/.slidecast/,
	// "local" uses the current working directory.
	StorageDir string `json:"storage_dir" yaml:"storage_dir"`

	// OutputDir is where compiled PDFs are looked up as
	// <OutputDir>/temp_pdf/<name>.pdf.
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// Slide labels
	TitleLabel  string `json:"title_label" yaml:"title_label"`
	AuthorLabel string `json:"author_label" yaml:"author_label"`
	OutlineText string `json:"outline_text" yaml:"outline_text"`

	// Page estimate
	ProbePageCount   bool   `json:"probe_page_count" yaml:"probe_page_count"`
	PageCountTimeout string `json:"page_count_timeout" yaml:"page_count_timeout"` // Go duration, e.g. "5s"

	// Concurrency bounds batch parsing and ingestion.
	Concurrency int `json:"concurrency" yaml:"concurrency"`
}

// DefaultConfig returns a Config with sensible defaults.
// Database is stored in ~/.slidecast/slidecast.db by default.
func DefaultConfig() Config {
	return Config{
		DBName:           "slidecast",
		StorageDir:       "home",
		OutputDir:        "output",
		TitleLabel:       parser.DefaultTitleLabel,
		AuthorLabel:      parser.DefaultAuthorLabel,
		OutlineText:      parser.DefaultOutlineText,
		ProbePageCount:   true,
		PageCountTimeout: parser.DefaultPageCountTimeout.String(),
		Concurrency:      4,
	}
}

// LoadConfig reads a YAML or JSON config file over DefaultConfig and then
// applies SLIDECAST_* environment overrides. An empty path skips the file.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("reading config: %w", err)
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".json":
			err = json.Unmarshal(data, &cfg)
		default:
			err = yaml.Unmarshal(data, &cfg)
		}
		if err != nil {
			return cfg, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
		}
	}

	cfg.applyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv overrides fields from SLIDECAST_* variables. Unparseable
// numbers and booleans are ignored.
func (c *Config) applyEnv(getenv func(string) string) {
	str := map[string]*string{
		"SLIDECAST_DB_PATH":            &c.DBPath,
		"SLIDECAST_DB_NAME":            &c.DBName,
		"SLIDECAST_STORAGE_DIR":        &c.StorageDir,
		"SLIDECAST_OUTPUT_DIR":         &c.OutputDir,
		"SLIDECAST_TITLE_LABEL":        &c.TitleLabel,
		"SLIDECAST_AUTHOR_LABEL":       &c.AuthorLabel,
		"SLIDECAST_OUTLINE_TEXT":       &c.OutlineText,
		"SLIDECAST_PAGE_COUNT_TIMEOUT": &c.PageCountTimeout,
	}
	for key, field := range str {
		if v := getenv(key); v != "" {
			*field = v
		}
	}
	if v := getenv("SLIDECAST_PROBE_PAGE_COUNT"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.ProbePageCount = b
		}
	}
	if v := getenv("SLIDECAST_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Concurrency = n
		}
	}
}

// Validate reports configuration values that cannot work.
func (c *Config) Validate() error {
	if c.Concurrency < 0 {
		return fmt.Errorf("%w: concurrency must be >= 0, got %d", ErrInvalidConfig, c.Concurrency)
	}
	switch c.StorageDir {
	case "", "home", "local", "cwd":
	default:
		return fmt.Errorf("%w: storage_dir %q (want home or local)", ErrInvalidConfig, c.StorageDir)
	}
	if c.PageCountTimeout != "" {
		d, err := time.ParseDuration(c.PageCountTimeout)
		if err != nil {
			return fmt.Errorf("%w: page_count_timeout: %v", ErrInvalidConfig, err)
		}
		if d <= 0 {
			return fmt.Errorf("%w: page_count_timeout must be positive", ErrInvalidConfig)
		}
	}
	return nil
}

// resolveDBPath computes the final database path from config fields.
func (c *Config) resolveDBPath() string {
	if c.DBPath != "" {
		return c.DBPath
	}

	name := c.DBName
	if name == "" {
		name = "slidecast"
	}

	switch c.StorageDir {
	case "local", "cwd":
		return name + ".db"
	default: // "home" or empty
		home, err := os.UserHomeDir()
		if err != nil {
			return name + ".db" // fallback to cwd
		}
		return filepath.Join(home, ".slidecast", name+".db")
	}
}

// ParserOptions converts the config into options for the parser registry.
func (c *Config) ParserOptions() parser.Options {
	opts := parser.Options{
		TitleLabel:  c.TitleLabel,
		AuthorLabel: c.AuthorLabel,
		OutlineText: c.OutlineText,
		OutputDir:   c.OutputDir,
	}
	if c.ProbePageCount {
		timeout := parser.DefaultPageCountTimeout
		if d, err := time.ParseDuration(c.PageCountTimeout); err == nil && d > 0 {
			timeout = d
		}
		opts.PageCounters = parser.DefaultPageCounters(timeout)
	}
	return opts
}

// Workers is the number of files parsed or ingested at once. Zero
// concurrency means one per CPU.
func (c *Config) Workers() int {
	if c.Concurrency <= 0 {
		return runtime.NumCPU()
	}
	return c.Concurrency
}
