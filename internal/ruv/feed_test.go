package ruv

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testScheduleXML = `<?xml version="1.0" encoding="UTF-8"?>
<schedule>
  <service id="ruv">
    <event event-id="5001" serie-id="042" start-time="2024-01-01 20:00:00" end-time="2024-01-01 20:30:00">
      <title>Show</title>
      <description>Ep 1</description>
      <episode number="3"/>
      <image>https://img.ruv.is/5001.jpg</image>
    </event>
    <details id="042">
      <series-title>Show: The Series</series-title>
      <series-description>All about the show.</series-description>
    </details>
    <event event-id="5002" serie-id="099" start-time="2024-01-01 21:00:00" end-time="2024-01-01 22:40:00">
      <title>Some Film</title>
      <description></description>
      <category value="7">Kvikmyndir</category>
    </event>
    <event event-id="5003" start-time="2024-01-01 22:40:00" end-time="2024-01-01 23:00:00">
      <title>Evening News</title>
      <description>Headlines</description>
      <category value="3">Fréttatengt</category>
      <rights type="vod" action="allowed" expires="2024-02-01 00:00:00"/>
      <stream scope="global"/>
    </event>
    <event event-id="5004" start-time="whenever" end-time="2024-01-01 23:30:00">
      <title>Broken</title>
    </event>
  </service>
</schedule>`

func TestParseSchedule(t *testing.T) {
	sched, err := ParseSchedule([]byte(testScheduleXML))
	require.NoError(t, err)

	// The event with the unparsable start time is dropped
	require.Len(t, sched.Events, 3)

	ep := sched.Events[0]
	assert.Equal(t, "5001", ep.ID)
	assert.Equal(t, "042", ep.SerieID)
	assert.Equal(t, "Show", ep.Title)
	assert.Equal(t, "Ep 1", ep.Description)
	assert.Equal(t, 3, ep.EpisodeNumber)
	assert.Equal(t, "https://img.ruv.is/5001.jpg", ep.ImageURL)
	assert.True(t, ep.Start.Equal(time.Date(2024, 1, 1, 20, 0, 0, 0, time.UTC)))
	assert.True(t, ep.End.Equal(time.Date(2024, 1, 1, 20, 30, 0, 0, time.UTC)))
	assert.True(t, ep.IsEpisode())

	movie := sched.Events[1]
	assert.Equal(t, ContentTypeMovie, movie.ContentType())
	assert.False(t, movie.IsEpisode())
	assert.Empty(t, movie.Description)

	news := sched.Events[2]
	assert.Equal(t, ContentTypeNews, news.ContentType())
	assert.Equal(t, "global", news.StreamScope)
	expires, ok := news.VODExpiry()
	require.True(t, ok)
	assert.True(t, expires.Equal(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)))

	require.Contains(t, sched.Details, "042")
	assert.Equal(t, "Show: The Series", sched.Details["042"].Title)
	assert.Equal(t, "All about the show.", sched.Details["042"].Description)
}

func TestParseSchedule_SanitizesText(t *testing.T) {
	const feed = `<schedule><service>
	<event event-id="1" start-time="2024-01-01 20:00:00" end-time="2024-01-01 21:00:00">
		<title> Show &amp; Tell </title>
		<description>&lt;b&gt;Bold&lt;/b&gt; claims</description>
	</event>
	</service></schedule>`

	sched, err := ParseSchedule([]byte(feed))
	require.NoError(t, err)
	require.Len(t, sched.Events, 1)

	assert.Equal(t, "Show & Tell", sched.Events[0].Title)
	assert.Equal(t, "Bold claims", sched.Events[0].Description)
}

const testAsRunXML = `<?xml version="1.0" encoding="UTF-8"?>
<events>
  <event>
    <id>5001</id>
    <state>4</state>
    <start>2024-01-01 20:00:02</start>
    <stop>2024-01-01 20:31:12</stop>
  </event>
  <event>
    <id>5002</id>
    <state>4</state>
    <start></start>
    <stop>2024-01-01 21:00:00</stop>
  </event>
  <event>
    <id>5003</id>
    <state>2</state>
    <start>2024-01-01 21:00:00</start>
    <stop>bogus</stop>
  </event>
  <event>
    <id>5004</id>
    <state>4</state>
    <start>2024-01-01 21:30:00</start>
    <stop>2024-01-01 22:00:00</stop>
  </event>
</events>`

func TestParseAsRun(t *testing.T) {
	events, err := ParseAsRun([]byte(testAsRunXML))
	require.NoError(t, err)

	// The item with the bogus stop time is dropped; the one with the empty
	// start carries the previous item's end time forward.
	require.Len(t, events, 3)

	assert.Equal(t, "5001", events[0].ID)
	assert.Equal(t, "4", events[0].State)
	assert.True(t, events[0].Start.Equal(time.Date(2024, 1, 1, 20, 0, 2, 0, time.UTC)))

	assert.Equal(t, "5002", events[1].ID)
	assert.True(t, events[1].Start.Equal(events[0].End), "start should fall back to the previous end time")

	assert.Equal(t, "5004", events[2].ID)
}

func TestParseAsRun_FirstItemWithoutStartIsSkipped(t *testing.T) {
	const feed = `<events>
	<event><id>1</id><state>4</state><start></start><stop>2024-01-01 21:00:00</stop></event>
	<event><id>2</id><state>4</state><start>2024-01-01 21:00:00</start><stop>2024-01-01 22:00:00</stop></event>
	</events>`

	events, err := ParseAsRun([]byte(feed))
	require.NoError(t, err)

	// No previous end time to carry, so the first item is dropped
	require.Len(t, events, 1)
	assert.Equal(t, "2", events[0].ID)
}

func TestFetchSchedule(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/xml/ruv", r.URL.Path)
		w.Write([]byte(testScheduleXML))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "ruv")
	sched, err := c.FetchSchedule(context.Background())
	require.NoError(t, err)
	assert.Len(t, sched.Events, 3)
}

func TestFetchAsRun(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/asrun/ruv", r.URL.Path)
		w.Write([]byte(testAsRunXML))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "ruv")
	events, err := c.FetchAsRun(context.Background())
	require.NoError(t, err)
	assert.Len(t, events, 3)
}

func TestFetch_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "ruv")
	_, err := c.FetchSchedule(context.Background())
	require.Error(t, err)

	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, http.StatusServiceUnavailable, terr.Status)
}
