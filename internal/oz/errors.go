package oz

import "fmt"

// AuthError reports missing credentials or a rejected token exchange.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("catalog auth: %s", e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// RemoteError reports an unexpected status from the catalog API.
type RemoteError struct {
	Op     string
	Status int
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("catalog: %s returned unexpected status %d", e.Op, e.Status)
}
