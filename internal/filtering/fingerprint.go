package filtering

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"slices"

	"github.com/stacklok/tvmaze-sync/internal/catalog"
)

// fingerprintLength is the number of hex characters kept from the digest
const fingerprintLength = 16

type canonicalConfig struct {
	Exclude    canonicalExclude     `json:"exclude"`
	Selections []canonicalSelection `json:"selections"`
}

type canonicalExclude struct {
	Countries []string `json:"countries"`
	Genres    []string `json:"genres"`
	Languages []string `json:"languages"`
	Networks  []string `json:"networks"`
	Types     []string `json:"types"`
}

type canonicalSelection struct {
	Countries []string       `json:"countries"`
	Ended     canonicalRange `json:"ended"`
	Genres    []string       `json:"genres"`
	Languages []string       `json:"languages"`
	Name      string         `json:"name"`
	Networks  []string       `json:"networks"`
	Premiered canonicalRange `json:"premiered"`
	Rating    canonicalRange `json:"rating"`
	Runtime   canonicalRange `json:"runtime"`
	Status    []string       `json:"status"`
	Types     []string       `json:"types"`
}

type canonicalRange struct {
	Lower any `json:"lower"`
	Upper any `json:"upper"`
}

// Fingerprint returns a short stable hash of cfg. List order inside a
// dimension does not change the fingerprint; selection order does.
func Fingerprint(cfg *Config) string {
	if cfg == nil {
		cfg = &Config{}
	}

	canon := canonicalConfig{
		Exclude: canonicalExclude{
			Countries: sortedCopy(cfg.Exclude.Countries),
			Genres:    sortedCopy(cfg.Exclude.Genres),
			Languages: sortedCopy(cfg.Exclude.Languages),
			Networks:  sortedCopy(cfg.Exclude.Networks),
			Types:     sortedCopy(cfg.Exclude.Types),
		},
		Selections: make([]canonicalSelection, 0, len(cfg.Selections)),
	}
	for _, sel := range cfg.Selections {
		canon.Selections = append(canon.Selections, canonicalSelection{
			Countries: sortedCopy(sel.Countries),
			Ended:     dateRange(sel.Ended),
			Genres:    sortedCopy(sel.Genres),
			Languages: sortedCopy(sel.Languages),
			Name:      sel.Name,
			Networks:  sortedCopy(sel.Networks),
			Premiered: dateRange(sel.Premiered),
			Rating:    floatRange(sel.Rating),
			Runtime:   intRange(sel.Runtime),
			Status:    sortedCopy(sel.Status),
			Types:     sortedCopy(sel.Types),
		})
	}

	// Only strings, numbers and nil are marshalled, so this cannot fail.
	data, _ := json.Marshal(canon)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:fingerprintLength]
}

func sortedCopy(values []string) []string {
	out := slices.Clone(values)
	if out == nil {
		out = []string{}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func dateRange(r *DateRange) canonicalRange {
	var out canonicalRange
	if r == nil {
		return out
	}
	if r.After != nil {
		out.Lower = r.After.Format(catalog.DateLayout)
	}
	if r.Before != nil {
		out.Upper = r.Before.Format(catalog.DateLayout)
	}
	return out
}

func floatRange(r *FloatRange) canonicalRange {
	var out canonicalRange
	if r == nil {
		return out
	}
	if r.Min != nil {
		out.Lower = *r.Min
	}
	if r.Max != nil {
		out.Upper = *r.Max
	}
	return out
}

func intRange(r *IntRange) canonicalRange {
	var out canonicalRange
	if r == nil {
		return out
	}
	if r.Min != nil {
		out.Lower = *r.Min
	}
	if r.Max != nil {
		out.Upper = *r.Max
	}
	return out
}
