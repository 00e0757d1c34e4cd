package ruv

import "fmt"

// TransportError reports that a feed could not be fetched: either the
// request itself failed or the endpoint answered with a non-200 status.
type TransportError struct {
	URL    string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("feed fetch %s: %s", e.URL, e.Err)
	}
	return fmt.Sprintf("feed fetch %s: unexpected status %d", e.URL, e.Status)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// MalformedEventError reports a single feed item that could not be
// normalized. Callers recover by skipping the item.
type MalformedEventError struct {
	EventID string
	Err     error
}

func (e *MalformedEventError) Error() string {
	return fmt.Sprintf("malformed event %s: %s", e.EventID, e.Err)
}

func (e *MalformedEventError) Unwrap() error {
	return e.Err
}
