package ruv

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentType(t *testing.T) {
	tests := []struct {
		name     string
		category string
		expected string
	}{
		{
			name:     "no category defaults to episode",
			category: "",
			expected: ContentTypeEpisode,
		},
		{
			name:     "movie code",
			category: "7",
			expected: ContentTypeMovie,
		},
		{
			name:     "news code",
			category: "3",
			expected: ContentTypeNews,
		},
		{
			name:     "sport code maps to news",
			category: "5",
			expected: ContentTypeNews,
		},
		{
			name:     "unknown code defaults to episode",
			category: "2",
			expected: ContentTypeEpisode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := Event{Category: tt.category}
			assert.Equal(t, tt.expected, ev.ContentType())
		})
	}
}

func TestIsEpisode(t *testing.T) {
	// A series id alone makes an episode
	assert.True(t, Event{SerieID: "042"}.IsEpisode())

	// No series id, no episode
	assert.False(t, Event{}.IsEpisode())

	// The movie classification wins even when a series id is present
	assert.False(t, Event{SerieID: "042", Category: "7"}.IsEpisode())
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "iso with offset", input: "2024-01-01T20:00:00+00:00"},
		{name: "iso zulu", input: "2024-01-01T20:00:00Z"},
		{name: "iso without offset", input: "2024-01-01T20:00:00"},
		{name: "space separated", input: "2024-01-01 20:00:00"},
	}

	expected := time.Date(2024, 1, 1, 20, 0, 0, 0, time.UTC)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTime(tt.input)
			require.NoError(t, err)
			assert.True(t, got.Equal(expected), "got %s", got)
		})
	}

	_, err := ParseTime("")
	assert.Error(t, err)
	_, err = ParseTime("whenever")
	assert.Error(t, err)
}

func TestFormatTime(t *testing.T) {
	// Always a numeric offset, never the Z shorthand
	got := FormatTime(time.Date(2024, 1, 1, 20, 0, 0, 0, time.UTC))
	assert.Equal(t, "2024-01-01T20:00:00+00:00", got)
}

func TestVODExpiry(t *testing.T) {
	expires := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	ev := Event{Rights: []Right{
		{Type: "linear", Action: "allowed", Expires: expires},
		{Type: "vod", Action: "denied", Expires: expires},
	}}
	_, ok := ev.VODExpiry()
	assert.False(t, ok)

	ev.Rights = append(ev.Rights, Right{Type: "vod", Action: "allowed", Expires: expires})
	got, ok := ev.VODExpiry()
	require.True(t, ok)
	assert.True(t, got.Equal(expires))
}
