package config

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	day  = 24 * time.Hour
	week = 7 * day
	year = 365 * day
)

var durationPattern = regexp.MustCompile(`^(\d+)\s*([smhdwy])$`)

// ParseDuration parses a duration such as "30s", "6h", "1w" or "1y".
// Values accepted by time.ParseDuration are accepted as well.
func ParseDuration(s string) (time.Duration, error) {
	if m := durationPattern.FindStringSubmatch(s); m != nil {
		n, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q: %w", s, err)
		}
		unit := map[string]time.Duration{
			"s": time.Second,
			"m": time.Minute,
			"h": time.Hour,
			"d": day,
			"w": week,
			"y": year,
		}[m[2]]
		return time.Duration(n) * unit, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: use a number followed by s, m, h, d, w or y", s)
	}
	return d, nil
}

// Duration is a time.Duration read from a duration string
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return fmt.Errorf("line %d: duration must be a string: %w", node.Line, err)
	}
	parsed, err := ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// String implements fmt.Stringer using the largest whole unit
func (d Duration) String() string {
	v := time.Duration(d)
	for _, u := range []struct {
		suffix string
		unit   time.Duration
	}{{"y", year}, {"w", week}, {"d", day}} {
		if v >= u.unit && v%u.unit == 0 {
			return fmt.Sprintf("%d%s", v/u.unit, u.suffix)
		}
	}
	return v.String()
}
