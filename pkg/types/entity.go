package types

import "net/url"

// Entity is a domain record with a server-assigned numeric ID.
type Entity interface {
	EntityID() int64
}

// Filter is a partial predicate over entity fields that can be sent to the
// remote service as URL query parameters. Zero-valued fields are omitted.
type Filter interface {
	Query() url.Values
}

// LoadingState is the single-flight status of an entity store.
type LoadingState string

// Loading states. A store starts idle and moves to loading on every action,
// then to success or error when the action settles.
const (
	LoadingIdle    LoadingState = "idle"
	LoadingPending LoadingState = "loading"
	LoadingSuccess LoadingState = "success"
	LoadingError   LoadingState = "error"
)

// String returns the state name.
func (s LoadingState) String() string {
	return string(s)
}
