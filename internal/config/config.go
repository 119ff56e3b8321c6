// Package config provides configuration loading and management for the sync service.
package config

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/stacklok/tvmaze-sync/internal/catalog"
	"github.com/stacklok/tvmaze-sync/internal/filtering"
	"github.com/stacklok/tvmaze-sync/internal/telemetry"
)

const (
	// DefaultTVMazeURL is the public TVMaze API
	DefaultTVMazeURL = "https://api.tvmaze.com"

	// DefaultStoragePath is where the cache and state files live
	DefaultStoragePath = "/data"

	// DatabaseFileName is the name of the show cache inside the storage path
	DatabaseFileName = "shows.db"

	// StateFileName is the name of the progress record inside the storage path
	StateFileName = "state.json"

	// EnvPrefix prefixes the environment variables read by the command line
	EnvPrefix = "TVMAZE_SYNC"
)

// Update windows accepted by the TVMaze updates endpoint
const (
	UpdateWindowDay   = "day"
	UpdateWindowWeek  = "week"
	UpdateWindowMonth = "month"
)

var (
	updateWindows = []string{UpdateWindowDay, UpdateWindowWeek, UpdateWindowMonth}
	monitorModes  = []string{"all", "future", "missing", "existing", "pilot", "firstSeason", "latestSeason", "none"}
	logLevels     = []string{"DEBUG", "INFO", "WARN", "WARNING", "ERROR", "CRITICAL"}
	logFormats    = []string{"json", "text"}
)

// Option defines the interface for configuration options
type Option func(*loaderConfig) error

// loaderConfig defines the configuration for loading a configuration
type loaderConfig struct {
	path      string
	skipEnv   bool
	lookupEnv func(string) (string, bool)
}

// WithConfigPath loads configuration from a YAML file
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return fmt.Errorf("path is required")
		}

		// Resolve symlinks; this calls filepath.Clean internally.
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return fmt.Errorf("failed to evaluate symlinks: %w", err)
		}

		if !filepath.IsAbs(realPath) {
			if !filepath.IsLocal(realPath) {
				return fmt.Errorf("path is not local or contains invalid traversal: %s", path)
			}
		}

		cfg.path = realPath
		return nil
	}
}

// WithoutEnvOverrides disables environment variable overrides
func WithoutEnvOverrides() Option {
	return func(cfg *loaderConfig) error {
		cfg.skipEnv = true
		return nil
	}
}

// WithEnvLookup replaces os.LookupEnv for ${VAR} substitution
func WithEnvLookup(lookup func(string) (string, bool)) Option {
	return func(cfg *loaderConfig) error {
		if lookup == nil {
			return fmt.Errorf("lookup function is required")
		}
		cfg.lookupEnv = lookup
		return nil
	}
}

// Config represents the root configuration structure
type Config struct {
	TVMaze     TVMazeConfig      `yaml:"tvmaze"`
	Sync       SyncConfig        `yaml:"sync"`
	Exclude    ExcludeConfig     `yaml:"exclude"`
	Selections []SelectionConfig `yaml:"selections"`
	Sonarr     SonarrConfig      `yaml:"sonarr"`
	Storage    StorageConfig     `yaml:"storage"`
	Logging    LoggingConfig     `yaml:"logging"`
	Server     ServerConfig      `yaml:"server"`
	Telemetry  *telemetry.Config `yaml:"telemetry,omitempty"`

	// DryRun evaluates and logs forward decisions without adding anything to
	// Sonarr. It defaults to true and must be disabled explicitly.
	DryRun bool `yaml:"dry_run"`
}

// TVMazeConfig defines the upstream catalog client settings
type TVMazeConfig struct {
	// BaseURL is the TVMaze API root
	BaseURL string `yaml:"base_url,omitempty"`

	// APIKey is the optional premium API key
	APIKey string `yaml:"api_key,omitempty"`

	// RateLimit is the number of requests allowed per RateWindow
	RateLimit int `yaml:"rate_limit"`

	// RateWindow is the sliding window of the rate limit
	RateWindow Duration `yaml:"rate_window"`

	// RateLimitedDelay is how long to wait after a 429 without Retry-After
	RateLimitedDelay Duration `yaml:"rate_limited_delay"`

	// UpdateWindow is the trailing window used for incremental sync: day, week or month
	UpdateWindow string `yaml:"update_window"`

	// Timeout bounds a single HTTP request
	Timeout Duration `yaml:"timeout"`
}

// SyncConfig defines the sync cycle schedule
type SyncConfig struct {
	PollInterval Duration `yaml:"poll_interval"`
	RetryDelay   Duration `yaml:"retry_delay"`
	AbandonAfter Duration `yaml:"abandon_after"`

	// StopTimeout bounds how long shutdown waits for a running cycle
	StopTimeout Duration `yaml:"stop_timeout"`

	// ReconcileOnStart forwards cached admitted shows missing from Sonarr at startup
	ReconcileOnStart bool `yaml:"reconcile_on_start"`

	// ProbeMisses is the number of consecutive 404s that ends the new-id probe
	ProbeMisses int `yaml:"probe_misses"`
}

// ExcludeConfig lists values that reject a show unconditionally
type ExcludeConfig struct {
	Genres    []string `yaml:"genres,omitempty"`
	Types     []string `yaml:"types,omitempty"`
	Languages []string `yaml:"languages,omitempty"`
	Countries []string `yaml:"countries,omitempty"`
	Networks  []string `yaml:"networks,omitempty"`
}

// SelectionConfig is a named set of constraints that must all hold
type SelectionConfig struct {
	Name      string           `yaml:"name,omitempty"`
	Languages []string         `yaml:"languages,omitempty"`
	Countries []string         `yaml:"countries,omitempty"`
	Genres    []string         `yaml:"genres,omitempty"`
	Types     []string         `yaml:"types,omitempty"`
	Networks  []string         `yaml:"networks,omitempty"`
	Status    []string         `yaml:"status,omitempty"`
	Premiered *DateRangeConfig `yaml:"premiered,omitempty"`
	Ended     *DateRangeConfig `yaml:"ended,omitempty"`
	Rating    *RangeConfig     `yaml:"rating,omitempty"`
	Runtime   *RangeConfig     `yaml:"runtime,omitempty"`
}

// DateRangeConfig is an inclusive range of ISO dates (YYYY-MM-DD)
type DateRangeConfig struct {
	After  string `yaml:"after,omitempty"`
	Before string `yaml:"before,omitempty"`
}

// RangeConfig is an inclusive numeric range
type RangeConfig struct {
	Min *float64 `yaml:"min,omitempty"`
	Max *float64 `yaml:"max,omitempty"`
}

// SonarrConfig defines the downstream Sonarr instance and how series are added
type SonarrConfig struct {
	URL             string     `yaml:"url"`
	APIKey          string     `yaml:"api_key"`
	RootFolder      IDOrName   `yaml:"root_folder"`
	QualityProfile  IDOrName   `yaml:"quality_profile"`
	LanguageProfile IDOrName   `yaml:"language_profile,omitempty"`
	Monitor         string     `yaml:"monitor"`
	SearchOnAdd     bool       `yaml:"search_on_add"`
	SeasonFolder    bool       `yaml:"season_folder"`
	Tags            []IDOrName `yaml:"tags,omitempty"`
	Timeout         Duration   `yaml:"timeout"`
}

// StorageConfig defines where local state is kept
type StorageConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig defines log output
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ServerConfig defines the HTTP control surface
type ServerConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// IDOrName references a Sonarr object either by numeric id or by name
type IDOrName struct {
	ID   int
	Name string
}

// ParseIDOrName interprets s as an id when it is an integer and as a name otherwise
func ParseIDOrName(s string) IDOrName {
	s = strings.TrimSpace(s)
	if id, err := strconv.Atoi(s); err == nil {
		return IDOrName{ID: id}
	}
	return IDOrName{Name: s}
}

// UnmarshalYAML implements yaml.Unmarshaler
func (v *IDOrName) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected an id or a name", node.Line)
	}
	if node.ShortTag() == "!!int" {
		id, err := strconv.Atoi(node.Value)
		if err != nil {
			return fmt.Errorf("line %d: invalid id %q: %w", node.Line, node.Value, err)
		}
		*v = IDOrName{ID: id}
		return nil
	}
	*v = IDOrName{Name: node.Value}
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (v IDOrName) MarshalYAML() (any, error) {
	if v.Name != "" {
		return v.Name, nil
	}
	return v.ID, nil
}

// IsZero reports whether neither an id nor a name is set
func (v IDOrName) IsZero() bool {
	return v.ID == 0 && v.Name == ""
}

// String implements fmt.Stringer
func (v IDOrName) String() string {
	if v.Name != "" {
		return v.Name
	}
	if v.ID != 0 {
		return strconv.Itoa(v.ID)
	}
	return ""
}

// Default returns the configuration used for every key that is not set
func Default() *Config {
	return &Config{
		TVMaze: TVMazeConfig{
			BaseURL:          DefaultTVMazeURL,
			RateLimit:        20,
			RateWindow:       Duration(10 * time.Second),
			RateLimitedDelay: Duration(10 * time.Second),
			UpdateWindow:     UpdateWindowWeek,
			Timeout:          Duration(30 * time.Second),
		},
		Sync: SyncConfig{
			PollInterval:     Duration(6 * time.Hour),
			RetryDelay:       Duration(week),
			AbandonAfter:     Duration(year),
			StopTimeout:      Duration(5 * time.Minute),
			ReconcileOnStart: true,
			ProbeMisses:      10,
		},
		Sonarr: SonarrConfig{
			Monitor:      "all",
			SearchOnAdd:  true,
			SeasonFolder: true,
			Timeout:      Duration(30 * time.Second),
		},
		Storage: StorageConfig{Path: DefaultStoragePath},
		Logging: LoggingConfig{Level: "INFO", Format: "json"},
		Server:  ServerConfig{Enabled: true, Port: 8080},
		DryRun:  true,
	}
}

// LoadConfig loads configuration from an optional YAML file, substitutes
// ${VAR} references, applies environment overrides and validates the result.
// Without a path the configuration comes from defaults and the environment.
func LoadConfig(opts ...Option) (*Config, error) {
	loaderCfg := &loaderConfig{lookupEnv: os.LookupEnv}
	for _, opt := range opts {
		if err := opt(loaderCfg); err != nil {
			return nil, err
		}
	}

	config := Default()

	if loaderCfg.path != "" {
		data, err := os.ReadFile(loaderCfg.path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := decode(data, config, loaderCfg.lookupEnv); err != nil {
			return nil, err
		}
	}

	if !loaderCfg.skipEnv {
		if err := applyEnvOverrides(config); err != nil {
			return nil, fmt.Errorf("invalid environment override: %w", err)
		}
	}

	config.normalize()

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// decode parses data into config after substituting ${VAR} references in scalar values
func decode(data []byte, config *Config, lookup func(string) (string, bool)) error {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if root.Kind == 0 {
		// empty document
		return nil
	}
	if err := substituteEnv(&root, lookup); err != nil {
		return err
	}
	if err := root.Decode(config); err != nil {
		return fmt.Errorf("failed to parse YAML config: %w", err)
	}
	return nil
}

func (c *Config) normalize() {
	c.Sonarr.URL = strings.TrimRight(c.Sonarr.URL, "/")
	c.TVMaze.BaseURL = strings.TrimRight(c.TVMaze.BaseURL, "/")
	c.Logging.Level = strings.ToUpper(c.Logging.Level)
	for i := range c.Selections {
		if c.Selections[i].Name == "" {
			c.Selections[i].Name = fmt.Sprintf("selection[%d]", i)
		}
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c == nil {
		return fmt.Errorf("config cannot be nil")
	}

	return errors.Join(
		c.TVMaze.validate(),
		c.Sync.validate(),
		validateSelections(c.Selections),
		c.Sonarr.validate(),
		c.Storage.validate(),
		c.Logging.validate(),
		c.Server.validate(),
		c.Telemetry.Validate(),
	)
}

func (t *TVMazeConfig) validate() error {
	var errs []error
	if _, err := url.ParseRequestURI(t.BaseURL); err != nil {
		errs = append(errs, fmt.Errorf("tvmaze.base_url is invalid: %w", err))
	}
	if t.RateLimit < 1 {
		errs = append(errs, fmt.Errorf("tvmaze.rate_limit must be positive, got %d", t.RateLimit))
	}
	if t.RateWindow <= 0 {
		errs = append(errs, fmt.Errorf("tvmaze.rate_window must be positive"))
	}
	if !slices.Contains(updateWindows, t.UpdateWindow) {
		errs = append(errs, fmt.Errorf("tvmaze.update_window must be one of %s, got %q",
			strings.Join(updateWindows, ", "), t.UpdateWindow))
	}
	return errors.Join(errs...)
}

func (s *SyncConfig) validate() error {
	var errs []error
	for name, d := range map[string]Duration{
		"poll_interval": s.PollInterval,
		"retry_delay":   s.RetryDelay,
		"abandon_after": s.AbandonAfter,
		"stop_timeout":  s.StopTimeout,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("sync.%s must be positive", name))
		}
	}
	if s.ProbeMisses < 0 {
		errs = append(errs, fmt.Errorf("sync.probe_misses must not be negative"))
	}
	return errors.Join(errs...)
}

func validateSelections(selections []SelectionConfig) error {
	var errs []error
	seen := make(map[string]bool, len(selections))
	for i := range selections {
		sel := &selections[i]
		prefix := fmt.Sprintf("selections[%d] (%s)", i, sel.Name)

		if seen[sel.Name] {
			errs = append(errs, fmt.Errorf("%s: duplicate selection name", prefix))
		}
		seen[sel.Name] = true

		errs = append(errs,
			sel.Premiered.validate(prefix+".premiered"),
			sel.Ended.validate(prefix+".ended"),
			sel.Rating.validate(prefix+".rating"),
			sel.Runtime.validate(prefix+".runtime"),
		)
	}
	return errors.Join(errs...)
}

func (r *DateRangeConfig) validate(prefix string) error {
	if r == nil {
		return nil
	}
	var errs []error
	after, errAfter := parseOptionalDate(r.After)
	if errAfter != nil {
		errs = append(errs, fmt.Errorf("%s.after: %q must be ISO date format (YYYY-MM-DD)", prefix, r.After))
	}
	before, errBefore := parseOptionalDate(r.Before)
	if errBefore != nil {
		errs = append(errs, fmt.Errorf("%s.before: %q must be ISO date format (YYYY-MM-DD)", prefix, r.Before))
	}
	if after != nil && before != nil && after.After(*before) {
		errs = append(errs, fmt.Errorf("%s: after must not be later than before", prefix))
	}
	return errors.Join(errs...)
}

func (r *RangeConfig) validate(prefix string) error {
	if r == nil || r.Min == nil || r.Max == nil {
		return nil
	}
	if *r.Min > *r.Max {
		return fmt.Errorf("%s: min %v is greater than max %v", prefix, *r.Min, *r.Max)
	}
	return nil
}

func (s *SonarrConfig) validate() error {
	var errs []error
	if s.URL == "" {
		errs = append(errs, fmt.Errorf("sonarr.url is required"))
	} else if u, err := url.ParseRequestURI(s.URL); err != nil || u.Host == "" {
		errs = append(errs, fmt.Errorf("sonarr.url must be an absolute URL, got %q", s.URL))
	}
	if s.APIKey == "" {
		errs = append(errs, fmt.Errorf("sonarr.api_key is required"))
	}
	if s.RootFolder.IsZero() {
		errs = append(errs, fmt.Errorf("sonarr.root_folder is required"))
	}
	if s.QualityProfile.IsZero() {
		errs = append(errs, fmt.Errorf("sonarr.quality_profile is required"))
	}
	if !slices.Contains(monitorModes, s.Monitor) {
		errs = append(errs, fmt.Errorf("sonarr.monitor must be one of %s, got %q",
			strings.Join(monitorModes, ", "), s.Monitor))
	}
	return errors.Join(errs...)
}

func (s *StorageConfig) validate() error {
	if s.Path == "" {
		return fmt.Errorf("storage.path is required")
	}
	return nil
}

func (l *LoggingConfig) validate() error {
	var errs []error
	if !slices.Contains(logLevels, l.Level) {
		errs = append(errs, fmt.Errorf("logging.level must be one of %s, got %q",
			strings.Join(logLevels, ", "), l.Level))
	}
	if !slices.Contains(logFormats, l.Format) {
		errs = append(errs, fmt.Errorf("logging.format must be one of %s, got %q",
			strings.Join(logFormats, ", "), l.Format))
	}
	return errors.Join(errs...)
}

func (s *ServerConfig) validate() error {
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", s.Port)
	}
	return nil
}

// GetDatabasePath returns the path of the show cache
func (s *StorageConfig) GetDatabasePath() string {
	return filepath.Join(s.Path, DatabaseFileName)
}

// GetStatePath returns the path of the progress record
func (s *StorageConfig) GetStatePath() string {
	return filepath.Join(s.Path, StateFileName)
}

// GetAddress returns the listen address of the HTTP server
func (s *ServerConfig) GetAddress() string {
	return fmt.Sprintf(":%d", s.Port)
}

// Filters converts the validated filter section into the evaluator's form
func (c *Config) Filters() *filtering.Config {
	out := &filtering.Config{
		Exclude: filtering.Exclude{
			Genres:    slices.Clone(c.Exclude.Genres),
			Types:     slices.Clone(c.Exclude.Types),
			Languages: slices.Clone(c.Exclude.Languages),
			Countries: slices.Clone(c.Exclude.Countries),
			Networks:  slices.Clone(c.Exclude.Networks),
		},
		Selections: make([]filtering.Selection, 0, len(c.Selections)),
	}

	for _, sel := range c.Selections {
		out.Selections = append(out.Selections, filtering.Selection{
			Name:      sel.Name,
			Languages: slices.Clone(sel.Languages),
			Countries: slices.Clone(sel.Countries),
			Genres:    slices.Clone(sel.Genres),
			Types:     slices.Clone(sel.Types),
			Networks:  slices.Clone(sel.Networks),
			Status:    slices.Clone(sel.Status),
			Premiered: sel.Premiered.toFilter(),
			Ended:     sel.Ended.toFilter(),
			Rating:    sel.Rating.toFloat(),
			Runtime:   sel.Runtime.toInt(),
		})
	}
	return out
}

func (r *DateRangeConfig) toFilter() *filtering.DateRange {
	if r == nil {
		return nil
	}
	after, _ := parseOptionalDate(r.After)
	before, _ := parseOptionalDate(r.Before)
	return &filtering.DateRange{After: after, Before: before}
}

func (r *RangeConfig) toFloat() *filtering.FloatRange {
	if r == nil {
		return nil
	}
	return &filtering.FloatRange{Min: r.Min, Max: r.Max}
}

// toInt rounds fractional bounds inwards so the integer range never admits a
// value the configured range excludes
func (r *RangeConfig) toInt() *filtering.IntRange {
	if r == nil {
		return nil
	}
	out := &filtering.IntRange{}
	if r.Min != nil {
		v := int(math.Ceil(*r.Min))
		out.Min = &v
	}
	if r.Max != nil {
		v := int(math.Floor(*r.Max))
		out.Max = &v
	}
	return out
}

func parseOptionalDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(catalog.DateLayout, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
