package catalog

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// DateLayout is the layout of premiere and end dates
const DateLayout = "2006-01-02"

// ErrInvalidShow is returned when an upstream payload cannot be mapped to a Show
var ErrInvalidShow = errors.New("invalid show payload")

// RawShow is a show document exactly as returned by the TVMaze API
type RawShow []byte

// ParseShow maps a TVMaze show document onto a Show.
//
// Country comes from the network and falls back to the web channel, so
// streaming-only shows still carry a country. Malformed dates are dropped
// rather than failing the whole show.
func ParseShow(raw RawShow) (*Show, error) {
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("%w: not valid JSON", ErrInvalidShow)
	}
	doc := gjson.ParseBytes(raw)

	id := doc.Get("id")
	if id.Type != gjson.Number || id.Int() <= 0 {
		return nil, fmt.Errorf("%w: missing id", ErrInvalidShow)
	}

	show := &Show{
		ID:        id.Int(),
		Title:     doc.Get("name").String(),
		IMDBID:    doc.Get("externals.imdb").String(),
		Language:  doc.Get("language").String(),
		Type:      doc.Get("type").String(),
		Status:    doc.Get("status").String(),
		Premiered: parseDate(doc.Get("premiered")),
		Ended:     parseDate(doc.Get("ended")),
		Genres:    []string{},
		UpdatedAt: doc.Get("updated").Int(),
	}
	if show.Title == "" {
		show.Title = "Unknown"
	}

	if tvdb := doc.Get("externals.thetvdb"); tvdb.Type == gjson.Number && tvdb.Int() > 0 {
		v := tvdb.Int()
		show.TVDBID = &v
	}

	network := doc.Get("network")
	webChannel := doc.Get("webChannel")
	if network.IsObject() {
		show.Network = network.Get("name").String()
		show.Country = network.Get("country.code").String()
	}
	if webChannel.IsObject() {
		show.WebChannel = webChannel.Get("name").String()
		if show.Country == "" {
			show.Country = webChannel.Get("country.code").String()
		}
	}

	for _, g := range doc.Get("genres").Array() {
		if g.Type == gjson.String && g.String() != "" {
			show.Genres = append(show.Genres, g.String())
		}
	}

	if rating := doc.Get("rating.average"); rating.Type == gjson.Number {
		v := rating.Float()
		show.Rating = &v
	}
	if runtime := doc.Get("runtime"); runtime.Type == gjson.Number {
		v := int(runtime.Int())
		show.Runtime = &v
	}

	return show, nil
}

func parseDate(r gjson.Result) *time.Time {
	if r.Type != gjson.String {
		return nil
	}
	t, err := time.Parse(DateLayout, r.String())
	if err != nil {
		return nil
	}
	return &t
}

// FormatReason builds the stored form of a filter reason
func FormatReason(category, reason string) string {
	if category == "" {
		return reason
	}
	return category + ": " + reason
}

// CategoryOf extracts the category prefix from a stored filter reason
func CategoryOf(reason string) string {
	category, _, found := strings.Cut(reason, ":")
	if !found {
		return reason
	}
	return strings.TrimSpace(category)
}
