package importer

import (
	"context"
	"fmt"

	"github.com/ozinc/ruv-import/internal/oz"
	"github.com/ozinc/ruv-import/internal/ruv"
)

// fakeCatalog is an in-memory stand-in for the OZ API with the same
// create/patch semantics: creates assign ids, updates patch only the keys
// present in the payload.
type fakeCatalog struct {
	store  map[string]map[string]oz.Properties // kind -> externalId -> record
	nextID int

	fetches int
	creates int
	updates int

	lastCreatePayload oz.Properties
	lastUpdatePayload oz.Properties
	lastUpdateQuery   []oz.Query

	vanishOnUpdate bool
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{store: map[string]map[string]oz.Properties{}}
}

func (f *fakeCatalog) bucket(kind oz.Kind) map[string]oz.Properties {
	b, ok := f.store[kind.String()]
	if !ok {
		b = map[string]oz.Properties{}
		f.store[kind.String()] = b
	}
	return b
}

// seed plants a record as if a previous run had created it.
func (f *fakeCatalog) seed(kind oz.Kind, props oz.Properties) {
	f.bucket(kind)[props.String("externalId")] = clone(props)
}

// get returns the stored record for assertions.
func (f *fakeCatalog) get(kind oz.Kind, externalID string) oz.Properties {
	return f.bucket(kind)[externalID]
}

func (f *fakeCatalog) FetchByExternalID(_ context.Context, kind oz.Kind, externalID string, _ ...oz.Query) (*oz.Entity, error) {
	f.fetches++

	props, ok := f.bucket(kind)[externalID]
	if !ok {
		return nil, nil
	}
	return &oz.Entity{ID: props.String("id"), Properties: clone(props)}, nil
}

func (f *fakeCatalog) Create(_ context.Context, kind oz.Kind, props oz.Properties) (*oz.Entity, error) {
	f.creates++
	f.lastCreatePayload = clone(props)

	if props.String("id") != "" {
		return nil, fmt.Errorf("create payload must not carry an id, got %q", props.String("id"))
	}

	f.nextID++
	stored := clone(props)
	stored["id"] = fmt.Sprintf("%s-%d", kind.String(), f.nextID)
	f.bucket(kind)[props.String("externalId")] = stored

	return &oz.Entity{ID: stored.String("id"), Properties: clone(stored)}, nil
}

func (f *fakeCatalog) Update(_ context.Context, kind oz.Kind, props oz.Properties, extra ...oz.Query) (*oz.Entity, error) {
	f.updates++
	f.lastUpdatePayload = clone(props)
	f.lastUpdateQuery = extra

	if f.vanishOnUpdate {
		return nil, nil
	}

	id := props.String("id")
	for externalID, stored := range f.bucket(kind) {
		if stored.String("id") != id {
			continue
		}
		// Patch semantics: only the keys present in the payload change
		for k, v := range props {
			stored[k] = v
		}
		f.bucket(kind)[externalID] = stored
		return &oz.Entity{ID: id, Properties: clone(stored)}, nil
	}

	return nil, nil
}

func clone(p oz.Properties) oz.Properties {
	out := oz.Properties{}
	for k, v := range p {
		out[k] = v
	}
	return out
}

// fakeFeed hands back canned feed contents.
type fakeFeed struct {
	schedule *ruv.Schedule
	asrun    []ruv.AsRunEvent
}

func (f *fakeFeed) FetchSchedule(context.Context) (*ruv.Schedule, error) {
	return f.schedule, nil
}

func (f *fakeFeed) FetchAsRun(context.Context) ([]ruv.AsRunEvent, error) {
	return f.asrun, nil
}
