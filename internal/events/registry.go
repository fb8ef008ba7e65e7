package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// ErrUnknownType indicates a persisted event whose type is not registered.
var ErrUnknownType = errors.New("unknown event type")

// Registry turns persisted payloads back into concrete events.
type Registry struct {
	types map[string]func() Event
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{types: make(map[string]func() Event)}
}

// Register decodes events named eventType into a fresh *T.
func Register[T any, P interface {
	*T
	Event
}](r *Registry, eventType string) {
	r.types[eventType] = func() Event { return P(new(T)) }
}

// Decode rebuilds the concrete event stored in raw.
func (r *Registry) Decode(raw RawEvent) (Event, error) {
	newEvent, ok := r.types[raw.EventType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, raw.EventType)
	}
	e := newEvent()
	if err := json.Unmarshal([]byte(raw.Payload), e); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", raw.EventType, err)
	}
	return e, nil
}

var defaultRegistry = sync.OnceValue(func() *Registry {
	r := NewRegistry()
	Register[RunStarted](r, EventRunStarted)
	Register[RunFinished](r, EventRunFinished)
	Register[TargetResolved](r, EventTargetResolved)
	Register[TargetFailed](r, EventTargetFailed)
	Register[TargetSkipped](r, EventTargetSkipped)
	Register[DownloadCompleted](r, EventDownloadCompleted)
	return r
})

// DefaultRegistry knows every run and target event. It is shared and must
// not be extended.
func DefaultRegistry() *Registry {
	return defaultRegistry()
}
