// Package ruv fetches RUV's EPG and as-run XML feeds and normalizes them
// into event records the importer can work with.
package ruv

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
)

// DefaultBaseURL is where RUV publishes their feed files.
const DefaultBaseURL = "http://muninn.ruv.is/files"

// Client fetches feeds for a single station.
type Client struct {
	httpClient *http.Client
	baseURL    string
	station    string
}

// NewClient creates a feed client for the given station.
func NewClient(baseURL, station string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		station:    station,
	}
}

// FetchSchedule fetches and normalizes the station's EPG feed.
func (c *Client) FetchSchedule(ctx context.Context) (*Schedule, error) {
	body, err := c.get(ctx, fmt.Sprintf("%s/xml/%s", c.baseURL, c.station))
	if err != nil {
		return nil, err
	}

	return ParseSchedule(body)
}

// FetchAsRun fetches and normalizes the station's as-run feed.
func (c *Client) FetchAsRun(ctx context.Context) ([]AsRunEvent, error) {
	body, err := c.get(ctx, fmt.Sprintf("%s/asrun/%s", c.baseURL, c.station))
	if err != nil {
		return nil, err
	}

	return ParseAsRun(body)
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating feed request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &TransportError{URL: url, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}

	return body, nil
}

// Raw shapes of the EPG feed elements.
type (
	xmlEvent struct {
		ID        string `xml:"event-id,attr"`
		SerieID   string `xml:"serie-id,attr"`
		StartTime string `xml:"start-time,attr"`
		EndTime   string `xml:"end-time,attr"`

		Title       string `xml:"title"`
		Description string `xml:"description"`
		Image       string `xml:"image"`

		Category struct {
			Value string `xml:"value,attr"`
		} `xml:"category"`
		Episode struct {
			Number string `xml:"number,attr"`
		} `xml:"episode"`
		Rights []struct {
			Type    string `xml:"type,attr"`
			Action  string `xml:"action,attr"`
			Expires string `xml:"expires,attr"`
		} `xml:"rights"`
		Stream struct {
			Scope string `xml:"scope,attr"`
		} `xml:"stream"`

		Details []xmlDetails `xml:"details"`
	}

	xmlDetails struct {
		ID                string `xml:"id,attr"`
		SeriesTitle       string `xml:"series-title"`
		SeriesDescription string `xml:"series-description"`
	}

	xmlAsRunEvent struct {
		ID    string `xml:"id"`
		State string `xml:"state"`
		Start string `xml:"start"`
		Stop  string `xml:"stop"`
	}
)

// ParseSchedule walks the EPG XML and produces one Event per <event>
// element. Events whose timestamps don't parse are logged and skipped, and
// <details> blocks are collected wherever they appear in the document.
func ParseSchedule(data []byte) (*Schedule, error) {
	sched := &Schedule{
		Details: make(map[string]Details),
	}

	decoder := xml.NewDecoder(bytes.NewReader(data))
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error parsing schedule feed: %w", err)
		}

		se, ok := token.(xml.StartElement)
		if !ok {
			continue
		}

		switch se.Name.Local {
		case "event":
			var raw xmlEvent
			if err := decoder.DecodeElement(&raw, &se); err != nil {
				slog.Warn("skipping undecodable event element", "error", err)
				continue
			}

			// Details nested inside the event are swallowed by the element
			// decode above, so collect them here.
			for _, d := range raw.Details {
				addDetails(sched.Details, d)
			}

			event, err := normalizeEvent(raw)
			if err != nil {
				slog.Warn("skipping malformed event", "error", err)
				continue
			}
			sched.Events = append(sched.Events, event)

		case "details":
			var d xmlDetails
			if err := decoder.DecodeElement(&d, &se); err != nil {
				slog.Warn("skipping undecodable details element", "error", err)
				continue
			}
			addDetails(sched.Details, d)
		}
	}

	return sched, nil
}

func addDetails(m map[string]Details, d xmlDetails) {
	if d.ID == "" {
		return
	}
	m[d.ID] = Details{
		Title:       sanitize(d.SeriesTitle),
		Description: sanitize(d.SeriesDescription),
	}
}

func normalizeEvent(raw xmlEvent) (Event, error) {
	start, err := ParseTime(raw.StartTime)
	if err != nil {
		return Event{}, &MalformedEventError{EventID: raw.ID, Err: fmt.Errorf("start time: %w", err)}
	}
	end, err := ParseTime(raw.EndTime)
	if err != nil {
		return Event{}, &MalformedEventError{EventID: raw.ID, Err: fmt.Errorf("end time: %w", err)}
	}

	event := Event{
		ID:          raw.ID,
		SerieID:     raw.SerieID,
		Title:       sanitize(raw.Title),
		Description: sanitize(raw.Description),
		Category:    raw.Category.Value,
		Start:       start,
		End:         end,
		ImageURL:    strings.TrimSpace(raw.Image),
		StreamScope: raw.Stream.Scope,
	}

	if n, err := strconv.Atoi(raw.Episode.Number); err == nil {
		event.EpisodeNumber = n
	}

	for _, r := range raw.Rights {
		right := Right{Type: r.Type, Action: r.Action}
		if expires, err := ParseTime(r.Expires); err == nil {
			right.Expires = expires
		}
		event.Rights = append(event.Rights, right)
	}

	return event, nil
}

// ParseAsRun walks the as-run XML and produces one AsRunEvent per <event>
// element.
//
// Items with an unusable end time are logged and skipped. A missing start
// time falls back to the previous item's end time (carry-last-end). That
// leans on the feed being chronological, which RUV has not put in writing.
// TODO: confirm with RUV that as-run items are always emitted in broadcast
// order.
func ParseAsRun(data []byte) ([]AsRunEvent, error) {
	var (
		events  []AsRunEvent
		lastEnd time.Time
	)

	decoder := xml.NewDecoder(bytes.NewReader(data))
	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error parsing as-run feed: %w", err)
		}

		se, ok := token.(xml.StartElement)
		if !ok || se.Name.Local != "event" {
			continue
		}

		var raw xmlAsRunEvent
		if err := decoder.DecodeElement(&raw, &se); err != nil {
			slog.Warn("skipping undecodable as-run element", "error", err)
			continue
		}

		end, err := ParseTime(strings.TrimSpace(raw.Stop))
		if err != nil {
			merr := &MalformedEventError{EventID: raw.ID, Err: fmt.Errorf("end time: %w", err)}
			slog.Warn("skipping as-run item", "error", merr)
			continue
		}

		start, err := ParseTime(strings.TrimSpace(raw.Start))
		if err != nil {
			if lastEnd.IsZero() {
				merr := &MalformedEventError{EventID: raw.ID, Err: fmt.Errorf("start time: %w", err)}
				slog.Warn("skipping as-run item", "error", merr)
				continue
			}
			slog.Warn("as-run item has no usable start time, carrying previous end time forward",
				"eventId", raw.ID)
			start = lastEnd
		}

		lastEnd = end
		events = append(events, AsRunEvent{
			ID:    strings.TrimSpace(raw.ID),
			State: strings.TrimSpace(raw.State),
			Start: start,
			End:   end,
		})
	}

	return events, nil
}

var stripPolicy = bluemonday.StrictPolicy()

// Removes markup from feed text and caps its length; descriptions coming
// out of RUV occasionally carry stray tags.
func sanitize(s string) string {
	s = stripPolicy.Sanitize(s)
	s = html.UnescapeString(s)
	s = strings.TrimSpace(s)
	if len(s) > 2048 {
		s = s[:2048]
	}

	return s
}
