package importer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ozinc/ruv-import/internal/journal"
	"github.com/ozinc/ruv-import/internal/oz"
)

// upsert reconciles one entity payload against the catalog, keyed on the
// payload's external id: create when the catalog has never seen it, patch
// otherwise. It returns the record's catalog id along with what happened.
//
// Re-running with identical properties is a no-op for catalog content: the
// patch carries the same values and touches nothing else.
func (im *Importer) upsert(ctx context.Context, kind oz.Kind, props oz.Properties, extra ...oz.Query) (string, string, error) {
	externalID := props.String("externalId")

	existing, err := im.catalog.FetchByExternalID(ctx, kind, externalID)
	if err != nil {
		return "", "", fmt.Errorf("error fetching %s %s: %w", kind, externalID, err)
	}

	if existing == nil {
		slog.InfoContext(ctx, "creating", "kind", kind.String(), "externalId", externalID)
		created, err := im.catalog.Create(ctx, kind, props)
		if err != nil {
			return "", "", fmt.Errorf("error creating %s %s: %w", kind, externalID, err)
		}
		return created.ID, journal.OutcomeCreated, nil
	}

	// Attach the actual catalog id to the payload we're about to send.
	props["id"] = existing.ID
	slog.InfoContext(ctx, "already exists, updating",
		"kind", kind.String(), "externalId", externalID, "id", existing.ID)
	updated, err := im.catalog.Update(ctx, kind, props, extra...)
	if err != nil {
		return "", "", fmt.Errorf("error updating %s %s: %w", kind, externalID, err)
	}
	if updated == nil {
		// The record vanished between the fetch and the patch. Keep the id
		// we already resolved rather than failing the run.
		slog.WarnContext(ctx, "record vanished during update",
			"kind", kind.String(), "externalId", externalID)
		return existing.ID, journal.OutcomeUpdated, nil
	}

	return updated.ID, journal.OutcomeUpdated, nil
}
