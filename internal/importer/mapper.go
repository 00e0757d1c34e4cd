package importer

import (
	"github.com/ozinc/ruv-import/internal/oz"
	"github.com/ozinc/ruv-import/internal/ruv"
)

// All external ids coming out of RUV's feeds get this prefix before they
// hit the catalog.
const externalIDPrefix = "ruv-"

// Parent collections in the OZ catalog. Episodes land under the general
// shows collection unless their category maps to a dedicated one; movies
// attach straight to the movies collection.
const (
	defaultParentCollectionID = "f4003614-238c-4835-b676-cbae4ee52299" // Þættir
	movieCollectionID         = "74ea2aa5-44a1-4114-aeea-f818bf7f7d21" // Kvikmyndir
)

var categoryParentCollections = map[string]string{
	"1": "13a8d77b-0386-4319-9c12-633ff54f8c53", // Börn -> Barnaefni
	"3": "44bc1184-b669-4619-828b-70576c62df4a", // Fréttatengt -> Fréttir
	"5": "79364670-48e4-46c8-8a1f-896f41117536", // Íþróttir -> Íþróttir
}

// collectionProps builds the collection payload for an episode's series.
// The event title names the collection unless the feed carried a richer
// details block for the series.
func collectionProps(event ruv.Event, details map[string]ruv.Details) oz.Properties {
	parentID := defaultParentCollectionID
	if p, ok := categoryParentCollections[event.Category]; ok {
		parentID = p
	}

	props := oz.Properties{
		"externalId": externalIDPrefix + event.SerieID,
		"type":       "general",
		"name":       event.Title,
		"parentId":   parentID,
	}

	if d, ok := details[event.SerieID]; ok {
		if d.Title != "" {
			props["name"] = d.Title
		}
		if d.Description != "" {
			props["description"] = d.Description
		}
	}

	return props
}

// videoProps builds the video payload for an event. collectionID may be
// empty for uncategorized singles.
func videoProps(event ruv.Event, collectionID string) oz.Properties {
	contentType := event.ContentType()

	metadata := map[string]any{}
	if event.Description != "" {
		metadata["description"] = event.Description
	}
	if event.IsEpisode() && event.EpisodeNumber > 0 {
		// RUV has no notion of season numbers in their EPG data; their tech
		// folks say it is coming.
		metadata["episodeNumber"] = event.EpisodeNumber
	}
	if contentType == ruv.ContentTypeNews {
		metadata["date"] = ruv.FormatTime(event.Start)
	}

	// Availability runs until the event ends unless an allowed vod right
	// pushes the expiry out.
	playableUntil := event.End
	if expires, ok := event.VODExpiry(); ok {
		playableUntil = expires
	}

	countries := []string{"IS"}
	if event.StreamScope == "global" {
		countries = []string{"GLOBAL"}
	}

	props := oz.Properties{
		"externalId":        externalIDPrefix + event.ID,
		"sourceType":        "stream",
		"contentType":       contentType,
		"title":             event.Title,
		"published":         true,
		"playbackCountries": countries,
		"playableFrom":      ruv.FormatTime(event.Start),
		"playableUntil":     ruv.FormatTime(playableUntil),
	}
	if collectionID != "" {
		props["collectionId"] = collectionID
	}
	if event.ImageURL != "" {
		props["posterUrl"] = event.ImageURL
	}
	if len(metadata) > 0 {
		props["metadata"] = metadata
	}

	return props
}

// slotProps builds the slot scheduling the video at the event's start time.
// End time is left open so the slot lasts until the next one.
func slotProps(event ruv.Event, videoID, streamID string) oz.Properties {
	return oz.Properties{
		"externalId": externalIDPrefix + event.ID,
		"type":       "regular",
		"startTime":  ruv.FormatTime(event.Start),
		"videoId":    videoID,
		"streamId":   streamID,
	}
}
