package filtering

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/stacklok/tvmaze-sync/internal/catalog"
)

// Evaluator evaluates shows against a fixed configuration
type Evaluator interface {
	// Evaluate returns the decision for show. It never fails.
	Evaluate(show *catalog.Show) Decision

	// Fingerprint returns the fingerprint of the evaluator's configuration
	Fingerprint() string
}

type defaultEvaluator struct {
	cfg         *Config
	params      ForwardParams
	fingerprint string
}

var _ Evaluator = (*defaultEvaluator)(nil)

// NewEvaluator creates an Evaluator for cfg. Admitted shows carry params
// bound to the show.
func NewEvaluator(cfg *Config, params ForwardParams) Evaluator {
	if cfg == nil {
		cfg = &Config{}
	}
	return &defaultEvaluator{
		cfg:         cfg,
		params:      params,
		fingerprint: Fingerprint(cfg),
	}
}

func (e *defaultEvaluator) Evaluate(show *catalog.Show) Decision {
	d := Evaluate(show, e.cfg)
	if admit, ok := d.(Admit); ok {
		admit.Params = e.params.For(show)
		return admit
	}
	return d
}

func (e *defaultEvaluator) Fingerprint() string {
	return e.fingerprint
}

// Evaluate decides what happens to show under cfg. Admit decisions carry
// only the show's own identifiers in Params.
func Evaluate(show *catalog.Show, cfg *Config) Decision {
	if !show.HasTVDB() {
		return Defer{}
	}
	if cfg == nil {
		cfg = &Config{}
	}

	if reject, excluded := matchExclude(show, &cfg.Exclude); excluded {
		return reject
	}

	if len(cfg.Selections) == 0 {
		return Reject{Message: "No selections configured", Category: CategoryNoSelection}
	}

	for i := range cfg.Selections {
		sel := &cfg.Selections[i]
		if matchSelection(show, sel) {
			name := sel.Name
			if name == "" {
				name = "unnamed selection"
			}
			return Admit{Selection: name, Params: ForwardParams{}.For(show)}
		}
	}

	return Reject{Message: "No selection matched", Category: CategoryNoSelection}
}

func matchExclude(show *catalog.Show, exc *Exclude) (Reject, bool) {
	if overlap := intersect(exc.Genres, show.Genres); len(overlap) > 0 {
		return Reject{
			Message:  "Excluded genre: " + strings.Join(overlap, ", "),
			Category: CategoryGenre,
		}, true
	}

	checks := []struct {
		category string
		label    string
		value    string
		excluded []string
	}{
		{CategoryType, "type", show.Type, exc.Types},
		{CategoryLanguage, "language", show.Language, exc.Languages},
		{CategoryCountry, "country", show.Country, exc.Countries},
		{CategoryNetwork, "network", show.Network, exc.Networks},
	}
	for _, c := range checks {
		if contains(c.excluded, c.value) {
			return Reject{
				Message:  fmt.Sprintf("Excluded %s: %s", c.label, c.value),
				Category: c.category,
			}, true
		}
	}

	return Reject{}, false
}

func matchSelection(show *catalog.Show, sel *Selection) bool {
	if len(sel.Languages) > 0 && !contains(sel.Languages, show.Language) {
		return false
	}
	if len(sel.Countries) > 0 && !contains(sel.Countries, show.Country) {
		return false
	}
	if len(sel.Genres) > 0 && len(intersect(sel.Genres, show.Genres)) == 0 {
		return false
	}
	if len(sel.Types) > 0 && !contains(sel.Types, show.Type) {
		return false
	}
	if len(sel.Networks) > 0 && !contains(sel.Networks, show.Network) {
		return false
	}
	if len(sel.Status) > 0 && !contains(sel.Status, show.Status) {
		return false
	}
	if !sel.Premiered.contains(show.Premiered) {
		return false
	}
	if !sel.Ended.contains(show.Ended) {
		return false
	}
	if !sel.Rating.contains(show.Rating) {
		return false
	}
	return sel.Runtime.contains(show.Runtime)
}

func (r *DateRange) contains(t *time.Time) bool {
	if r == nil || (r.After == nil && r.Before == nil) {
		return true
	}
	if t == nil {
		return false
	}
	day := truncateDay(*t)
	if r.After != nil && day.Before(truncateDay(*r.After)) {
		return false
	}
	if r.Before != nil && day.After(truncateDay(*r.Before)) {
		return false
	}
	return true
}

func (r *FloatRange) contains(v *float64) bool {
	if r == nil || (r.Min == nil && r.Max == nil) {
		return true
	}
	if v == nil {
		return false
	}
	if r.Min != nil && *v < *r.Min {
		return false
	}
	return r.Max == nil || *v <= *r.Max
}

func (r *IntRange) contains(v *int) bool {
	if r == nil || (r.Min == nil && r.Max == nil) {
		return true
	}
	if v == nil {
		return false
	}
	if r.Min != nil && *v < *r.Min {
		return false
	}
	return r.Max == nil || *v <= *r.Max
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// contains reports whether value is in list. An unknown value never matches.
func contains(list []string, value string) bool {
	return value != "" && slices.Contains(list, value)
}

// intersect returns the sorted, de-duplicated values present in both lists
func intersect(a, b []string) []string {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	var out []string
	for _, v := range b {
		if v != "" && slices.Contains(a, v) && !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	slices.Sort(out)
	return out
}
