// Package oz is a thin authenticated client for the OZ media catalog API.
package oz

// Kind identifies one of the catalog's entity kinds and carries the request
// routing for it. The set is closed: collection, video and slot.
type Kind struct {
	name     string
	resource string
}

var (
	KindCollection = Kind{name: "collection", resource: "collections"}
	KindVideo      = Kind{name: "video", resource: "videos"}
	KindSlot       = Kind{name: "slot", resource: "slots"}
)

func (k Kind) String() string {
	return k.name
}

// Properties is an entity payload: field name to value, kind-specific.
type Properties map[string]any

// String returns the string value under key, or "" when absent or not a
// string.
func (p Properties) String(key string) string {
	v, _ := p[key].(string)
	return v
}

// Object returns the nested object under key, or nil.
func (p Properties) Object(key string) Properties {
	switch v := p[key].(type) {
	case Properties:
		return v
	case map[string]any:
		return Properties(v)
	}
	return nil
}

// Entity is a catalog record as returned by the API. ID is the
// catalog-assigned identifier; it exists only once the record does.
type Entity struct {
	ID         string
	Properties Properties
}

func entityFromProps(p Properties) *Entity {
	return &Entity{
		ID:         p.String("id"),
		Properties: p,
	}
}
