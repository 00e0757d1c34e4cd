// Package importer maps normalized feed events onto catalog entities and
// reconciles them with the OZ API.
package importer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ozinc/ruv-import/internal/journal"
	"github.com/ozinc/ruv-import/internal/oz"
	"github.com/ozinc/ruv-import/internal/ruv"
	"github.com/ozinc/ruv-import/logger"
)

// Catalog is the surface of the OZ client the importer needs.
type Catalog interface {
	FetchByExternalID(ctx context.Context, kind oz.Kind, externalID string, extra ...oz.Query) (*oz.Entity, error)
	Create(ctx context.Context, kind oz.Kind, props oz.Properties) (*oz.Entity, error)
	Update(ctx context.Context, kind oz.Kind, props oz.Properties, extra ...oz.Query) (*oz.Entity, error)
}

// Feed is the surface of the RUV feed client the importer needs.
type Feed interface {
	FetchSchedule(ctx context.Context) (*ruv.Schedule, error)
	FetchAsRun(ctx context.Context) ([]ruv.AsRunEvent, error)
}

// Config scopes a run. Both values are fixed per invocation; nothing shared
// gets mutated between runs.
type Config struct {
	ChannelID string
	StreamID  string
}

// Importer drives the per-feed-kind pipelines.
type Importer struct {
	feed    Feed
	catalog Catalog
	journal *journal.Recorder // nil disables the journal
	cfg     Config
}

// New creates an Importer. rec may be nil.
func New(feed Feed, catalog Catalog, cfg Config, rec *journal.Recorder) *Importer {
	return &Importer{
		feed:    feed,
		catalog: catalog,
		journal: rec,
		cfg:     cfg,
	}
}

// ImportEPG runs the scheduled-broadcast pipeline: every event in the EPG
// feed becomes a collection (for episodes), a video, and a slot, upserted
// in that dependency order.
func (im *Importer) ImportEPG(ctx context.Context) error {
	runID := im.beginRun(ctx, "epg")

	sched, err := im.feed.FetchSchedule(ctx)
	if err != nil {
		im.finishRun(ctx, runID, err)
		return fmt.Errorf("error fetching schedule: %w", err)
	}
	slog.InfoContext(ctx, "found scheduled items", "count", len(sched.Events))

	for _, event := range sched.Events {
		if err := im.importScheduled(ctx, runID, event, sched.Details); err != nil {
			im.finishRun(ctx, runID, err)
			return err
		}
	}

	im.finishRun(ctx, runID, nil)
	return nil
}

func (im *Importer) importScheduled(ctx context.Context, runID string, event ruv.Event, details map[string]ruv.Details) error {
	ctx = logger.Ctx(ctx, slog.String("eventId", event.ID))

	// Collections go first: the video payload embeds the collection's
	// catalog id, so it has to be resolved before the video is sent.
	collectionID := ""
	if event.IsEpisode() {
		id, outcome, err := im.upsert(ctx, oz.KindCollection, collectionProps(event, details))
		if err != nil {
			return err
		}
		im.record(ctx, runID, oz.KindCollection, externalIDPrefix+event.SerieID, outcome)
		collectionID = id
	}
	if event.ContentType() == ruv.ContentTypeMovie {
		collectionID = movieCollectionID
	}

	videoID, outcome, err := im.upsert(ctx, oz.KindVideo, videoProps(event, collectionID))
	if err != nil {
		return err
	}
	im.record(ctx, runID, oz.KindVideo, externalIDPrefix+event.ID, outcome)

	_, outcome, err = im.upsert(ctx, oz.KindSlot, slotProps(event, videoID, im.cfg.StreamID))
	if err != nil {
		return err
	}
	im.record(ctx, runID, oz.KindSlot, externalIDPrefix+event.ID, outcome)

	return nil
}

// Ingestion status a video holds until its file shows up.
const ingestionAwaitingFile = "awaitingFile"

// ImportAsRun runs the broadcast-confirmation pipeline. As-run never
// creates records; it only enriches slots the EPG pass already put there.
func (im *Importer) ImportAsRun(ctx context.Context) error {
	runID := im.beginRun(ctx, "asrun")

	events, err := im.feed.FetchAsRun(ctx)
	if err != nil {
		im.finishRun(ctx, runID, err)
		return fmt.Errorf("error fetching as-run feed: %w", err)
	}
	slog.InfoContext(ctx, "found as-run items", "count", len(events))

	for _, event := range events {
		if err := im.confirmAired(ctx, runID, event); err != nil {
			im.finishRun(ctx, runID, err)
			return err
		}
	}

	im.finishRun(ctx, runID, nil)
	return nil
}

func (im *Importer) confirmAired(ctx context.Context, runID string, event ruv.AsRunEvent) error {
	externalID := externalIDPrefix + event.ID
	ctx = logger.Ctx(ctx, slog.String("externalId", externalID))

	slot, err := im.catalog.FetchByExternalID(ctx, oz.KindSlot, externalID,
		oz.Query{Key: "include", Value: "video"})
	if err != nil {
		return fmt.Errorf("error fetching slot %s: %w", externalID, err)
	}
	if slot == nil {
		slog.WarnContext(ctx, "as-run slot does not exist")
		im.record(ctx, runID, oz.KindSlot, externalID, journal.OutcomeSkipped)
		return nil
	}

	video := slot.Properties.Object("video")
	if event.State != ruv.AsRunStateAired || video.String("ingestionStatus") != ingestionAwaitingFile {
		slog.DebugContext(ctx, "as-run slot needs no confirmation",
			"state", event.State,
			"ingestionStatus", video.String("ingestionStatus"))
		im.record(ctx, runID, oz.KindSlot, externalID, journal.OutcomeSkipped)
		return nil
	}

	slog.InfoContext(ctx, "previously unaired episode has aired, vodifying",
		"videoId", video.String("id"))

	// The only extra data as-run gives us is when the video actually ran.
	metadata := slot.Properties.Object("metadata")
	if metadata == nil {
		metadata = oz.Properties{}
	}
	metadata["started"] = ruv.FormatTime(event.Start)
	metadata["ended"] = ruv.FormatTime(event.End)

	props := oz.Properties{
		"externalId": externalID,
		"metadata":   metadata,
	}
	if _, _, err := im.upsert(ctx, oz.KindSlot, props, oz.Query{Key: "vodify", Value: "true"}); err != nil {
		return err
	}
	im.record(ctx, runID, oz.KindSlot, externalID, journal.OutcomeVodified)

	return nil
}

func (im *Importer) beginRun(ctx context.Context, action string) string {
	runID, err := im.journal.BeginRun(ctx, action, im.cfg.ChannelID, im.cfg.StreamID)
	if err != nil {
		slog.WarnContext(ctx, "journal write failed", "error", err)
		return ""
	}
	return runID
}

func (im *Importer) finishRun(ctx context.Context, runID string, runErr error) {
	status, errMsg := journal.StatusDone, ""
	if runErr != nil {
		status, errMsg = journal.StatusFailed, runErr.Error()
	}
	if err := im.journal.FinishRun(ctx, runID, status, errMsg); err != nil {
		slog.WarnContext(ctx, "journal write failed", "error", err)
	}
}

func (im *Importer) record(ctx context.Context, runID string, kind oz.Kind, externalID, outcome string) {
	if err := im.journal.RecordEvent(ctx, runID, kind.String(), externalID, outcome); err != nil {
		slog.WarnContext(ctx, "journal write failed", "error", err)
	}
}
