package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var envRefPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// substituteEnv replaces ${VAR} in every scalar value of the document.
// When VAR_FILE is set the file it points to is read instead, so secrets
// can be mounted as files. A reference that resolves to nothing is an error.
func substituteEnv(node *yaml.Node, lookup func(string) (string, bool)) error {
	if node.Kind == yaml.ScalarNode {
		if !strings.Contains(node.Value, "${") {
			return nil
		}
		var firstErr error
		node.Value = envRefPattern.ReplaceAllStringFunc(node.Value, func(ref string) string {
			name := envRefPattern.FindStringSubmatch(ref)[1]
			value, err := resolveEnvRef(name, lookup)
			if err != nil && firstErr == nil {
				firstErr = fmt.Errorf("line %d: %w", node.Line, err)
			}
			return value
		})
		// The substituted value is re-typed from its content, so
		// "port: ${PORT}" still decodes as an integer.
		if node.Style == 0 {
			node.Tag = ""
		}
		return firstErr
	}

	for _, child := range node.Content {
		if err := substituteEnv(child, lookup); err != nil {
			return err
		}
	}
	return nil
}

func resolveEnvRef(name string, lookup func(string) (string, bool)) (string, error) {
	fileVar := name + "_FILE"
	if path, ok := lookup(fileVar); ok {
		data, err := os.ReadFile(path) // #nosec G304 -- path comes from the operator's environment
		if err != nil {
			return "", fmt.Errorf("failed to read file from %s: %w", fileVar, err)
		}
		return strings.TrimSpace(string(data)), nil
	}
	if value, ok := lookup(name); ok {
		return value, nil
	}
	return "", fmt.Errorf("environment variable ${%s} not found", name)
}

// envOverride maps a config key to the environment variables that override it.
// The first variable that is set wins.
type envOverride struct {
	key   string
	envs  []string
	apply func(c *Config, raw string) error
}

var envOverrides = []envOverride{
	{"tvmaze.api_key", []string{"TVMAZE_API_KEY"}, setString(func(c *Config) *string { return &c.TVMaze.APIKey })},
	{"tvmaze.rate_limit", []string{"TVMAZE_RATE_LIMIT"}, setInt(func(c *Config) *int { return &c.TVMaze.RateLimit })},
	{"tvmaze.update_window", []string{"TVMAZE_UPDATE_WINDOW"}, setString(func(c *Config) *string { return &c.TVMaze.UpdateWindow })},

	{"sync.poll_interval", []string{"SYNC_POLL_INTERVAL", "POLL_INTERVAL"}, setDuration(func(c *Config) *Duration { return &c.Sync.PollInterval })},
	{"sync.retry_delay", []string{"SYNC_RETRY_DELAY"}, setDuration(func(c *Config) *Duration { return &c.Sync.RetryDelay })},
	{"sync.abandon_after", []string{"SYNC_ABANDON_AFTER"}, setDuration(func(c *Config) *Duration { return &c.Sync.AbandonAfter })},

	{"exclude.genres", []string{"EXCLUDE_GENRES"}, setList(func(c *Config) *[]string { return &c.Exclude.Genres })},
	{"exclude.types", []string{"EXCLUDE_TYPES"}, setList(func(c *Config) *[]string { return &c.Exclude.Types })},
	{"exclude.languages", []string{"EXCLUDE_LANGUAGES"}, setList(func(c *Config) *[]string { return &c.Exclude.Languages })},
	{"exclude.countries", []string{"EXCLUDE_COUNTRIES"}, setList(func(c *Config) *[]string { return &c.Exclude.Countries })},
	{"exclude.networks", []string{"EXCLUDE_NETWORKS"}, setList(func(c *Config) *[]string { return &c.Exclude.Networks })},

	{"sonarr.url", []string{"SONARR_URL"}, setString(func(c *Config) *string { return &c.Sonarr.URL })},
	{"sonarr.api_key", []string{"SONARR_API_KEY"}, setString(func(c *Config) *string { return &c.Sonarr.APIKey })},
	{"sonarr.root_folder", []string{"SONARR_ROOT_FOLDER"}, setIDOrName(func(c *Config) *IDOrName { return &c.Sonarr.RootFolder })},
	{"sonarr.quality_profile", []string{"SONARR_QUALITY_PROFILE"}, setIDOrName(func(c *Config) *IDOrName { return &c.Sonarr.QualityProfile })},
	{"sonarr.language_profile", []string{"SONARR_LANGUAGE_PROFILE"}, setIDOrName(func(c *Config) *IDOrName { return &c.Sonarr.LanguageProfile })},
	{"sonarr.monitor", []string{"SONARR_MONITOR"}, setString(func(c *Config) *string { return &c.Sonarr.Monitor })},
	{"sonarr.search_on_add", []string{"SONARR_SEARCH_ON_ADD"}, setBool(func(c *Config) *bool { return &c.Sonarr.SearchOnAdd })},
	{"sonarr.tags", []string{"SONARR_TAGS"}, func(c *Config, raw string) error {
		c.Sonarr.Tags = nil
		for _, item := range splitList(raw) {
			c.Sonarr.Tags = append(c.Sonarr.Tags, ParseIDOrName(item))
		}
		return nil
	}},

	{"storage.path", []string{"STORAGE_PATH"}, setString(func(c *Config) *string { return &c.Storage.Path })},
	{"logging.level", []string{"LOGGING_LEVEL", "LOG_LEVEL"}, setString(func(c *Config) *string { return &c.Logging.Level })},
	{"logging.format", []string{"LOGGING_FORMAT"}, setString(func(c *Config) *string { return &c.Logging.Format })},
	{"server.enabled", []string{"SERVER_ENABLED"}, setBool(func(c *Config) *bool { return &c.Server.Enabled })},
	{"server.port", []string{"SERVER_PORT"}, setInt(func(c *Config) *int { return &c.Server.Port })},
	{"dry_run", []string{"DRY_RUN"}, setBool(func(c *Config) *bool { return &c.DryRun })},
}

// applyEnvOverrides applies the documented environment variables on top of
// the file configuration. Selections can only be set in the file.
func applyEnvOverrides(c *Config) error {
	v := viper.New()
	for _, o := range envOverrides {
		if err := v.BindEnv(append([]string{o.key}, o.envs...)...); err != nil {
			return fmt.Errorf("failed to bind %s: %w", o.key, err)
		}
	}

	for _, o := range envOverrides {
		if !v.IsSet(o.key) {
			continue
		}
		if err := o.apply(c, v.GetString(o.key)); err != nil {
			return fmt.Errorf("%s: %w", o.envs[0], err)
		}
	}
	return nil
}

func setString(field func(*Config) *string) func(*Config, string) error {
	return func(c *Config, raw string) error {
		*field(c) = raw
		return nil
	}
}

func setInt(field func(*Config) *int) func(*Config, string) error {
	return func(c *Config, raw string) error {
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("must be an integer, got %q", raw)
		}
		*field(c) = n
		return nil
	}
}

func setBool(field func(*Config) *bool) func(*Config, string) error {
	return func(c *Config, raw string) error {
		switch strings.ToLower(strings.TrimSpace(raw)) {
		case "true", "1", "yes", "on":
			*field(c) = true
		default:
			*field(c) = false
		}
		return nil
	}
}

func setDuration(field func(*Config) *Duration) func(*Config, string) error {
	return func(c *Config, raw string) error {
		d, err := ParseDuration(strings.TrimSpace(raw))
		if err != nil {
			return err
		}
		*field(c) = Duration(d)
		return nil
	}
}

func setList(field func(*Config) *[]string) func(*Config, string) error {
	return func(c *Config, raw string) error {
		*field(c) = splitList(raw)
		return nil
	}
}

func setIDOrName(field func(*Config) *IDOrName) func(*Config, string) error {
	return func(c *Config, raw string) error {
		*field(c) = ParseIDOrName(raw)
		return nil
	}
}

// splitList splits a comma separated value, dropping empty items
func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
