package filtering

import (
	"slices"
	"time"

	"github.com/stacklok/tvmaze-sync/internal/catalog"
)

// Rejection and deferral categories
const (
	CategoryGenre       = "genre"
	CategoryType        = "type"
	CategoryLanguage    = "language"
	CategoryCountry     = "country"
	CategoryNetwork     = "network"
	CategoryNoSelection = "no-selection-match"
	CategoryTVDB        = "tvdb"
)

// Config is the validated filter configuration
type Config struct {
	Exclude    Exclude
	Selections []Selection
}

// Exclude lists values that reject a show regardless of the selections
type Exclude struct {
	Genres    []string
	Types     []string
	Languages []string
	Countries []string
	Networks  []string
}

// Selection is a named conjunction of constraints. Empty lists and nil
// ranges do not constrain.
type Selection struct {
	Name      string
	Languages []string
	Countries []string
	Genres    []string
	Types     []string
	Networks  []string
	Status    []string
	Premiered *DateRange
	Ended     *DateRange
	Rating    *FloatRange
	Runtime   *IntRange
}

// DateRange is an inclusive range of calendar dates
type DateRange struct {
	After  *time.Time
	Before *time.Time
}

// FloatRange is an inclusive numeric range
type FloatRange struct {
	Min *float64
	Max *float64
}

// IntRange is an inclusive integer range
type IntRange struct {
	Min *int
	Max *int
}

// ForwardParams is everything Sonarr needs to add a series. The Sonarr
// specific fields are resolved and validated once at startup.
type ForwardParams struct {
	TVDBID            int64  `json:"tvdb_id"`
	Title             string `json:"title"`
	RootFolder        string `json:"root_folder"`
	QualityProfileID  int    `json:"quality_profile_id"`
	LanguageProfileID *int   `json:"language_profile_id,omitempty"`
	Monitor           string `json:"monitor"`
	SearchOnAdd       bool   `json:"search_on_add"`
	SeasonFolder      bool   `json:"season_folder"`
	Tags              []int  `json:"tags"`
}

// For returns a copy of the params bound to show
func (p ForwardParams) For(show *catalog.Show) ForwardParams {
	out := p
	out.Tags = slices.Clone(p.Tags)
	if show != nil {
		out.Title = show.Title
		if show.TVDBID != nil {
			out.TVDBID = *show.TVDBID
		}
	}
	return out
}
