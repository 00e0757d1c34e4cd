package ruv

import (
	"fmt"
	"time"
)

// Content types recognized by the OZ catalog.
const (
	ContentTypeEpisode = "episode"
	ContentTypeMovie   = "movie"
	ContentTypeNews    = "news"
)

// Category codes used in RUV's EPG feed.
const (
	categoryMovie = "7"
	categoryNews  = "3"
	categorySport = "5"
)

// Event is one scheduled broadcast from the EPG feed, normalized.
type Event struct {
	ID            string
	SerieID       string
	Title         string
	Description   string
	Category      string
	Start         time.Time
	End           time.Time
	ImageURL      string
	EpisodeNumber int
	Rights        []Right
	StreamScope   string
}

// Right is a single rights entry attached to an event.
type Right struct {
	Type    string
	Action  string
	Expires time.Time
}

// Details holds the richer series information RUV sometimes attaches to the
// feed, keyed by series id.
type Details struct {
	Title       string
	Description string
}

// Schedule is a normalized EPG feed: the scheduled events plus any series
// details blocks found alongside them.
type Schedule struct {
	Events  []Event
	Details map[string]Details
}

// AsRunEvent is one confirmed broadcast from the as-run feed.
type AsRunEvent struct {
	ID    string
	State string
	Start time.Time
	End   time.Time
}

// The state code RUV reports for an item that actually aired.
const AsRunStateAired = "4"

// ContentType derives the catalog content type from the event's category
// code. Anything uncategorized is treated as an episode.
func (e Event) ContentType() string {
	switch e.Category {
	case categoryMovie:
		return ContentTypeMovie
	case categoryNews, categorySport:
		return ContentTypeNews
	}
	return ContentTypeEpisode
}

// IsEpisode reports whether the event belongs to a series. A series id can
// show up on movies too; the movie classification wins.
func (e Event) IsEpisode() bool {
	return e.SerieID != "" && e.ContentType() != ContentTypeMovie
}

// VODExpiry returns the expiry of an "allowed" vod rights entry, if the
// event carries one.
func (e Event) VODExpiry() (time.Time, bool) {
	for _, r := range e.Rights {
		if r.Type == "vod" && r.Action == "allowed" && !r.Expires.IsZero() {
			return r.Expires, true
		}
	}
	return time.Time{}, false
}

// ISO8601 is the timestamp form the catalog expects: always an explicit
// numeric offset, never the "Z" shorthand.
const ISO8601 = "2006-01-02T15:04:05-07:00"

// Timestamp layouts seen across RUV's feeds. The offset-less ones are taken
// as UTC, which holds year-round in Iceland.
var timeLayouts = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseTime parses a timestamp in any of the feed's native formats.
func ParseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// FormatTime renders a timestamp in the canonical ISO-8601 form.
func FormatTime(t time.Time) string {
	return t.Format(ISO8601)
}
