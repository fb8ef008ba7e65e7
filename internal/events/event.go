// Package events records what a run did. Events are published on an
// in-process bus and persisted to SQLite for later inspection.
package events

import "time"

// Event is the base interface all events implement.
type Event interface {
	EventType() string
	EntityType() string // "run" or "target"
	EntityKey() string
	OccurredAt() time.Time
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	Type      string    `json:"type"`
	Entity    string    `json:"entity_type"`
	Key       string    `json:"entity_key"`
	Timestamp time.Time `json:"occurred_at"`
}

func (e BaseEvent) EventType() string     { return e.Type }
func (e BaseEvent) EntityType() string    { return e.Entity }
func (e BaseEvent) EntityKey() string     { return e.Key }
func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }

// NewBaseEvent creates a BaseEvent with the current timestamp.
func NewBaseEvent(eventType, entityType, key string) BaseEvent {
	return BaseEvent{
		Type:      eventType,
		Entity:    entityType,
		Key:       key,
		Timestamp: time.Now(),
	}
}

// TargetKey builds the entity key of one target: "{page_url}#{angle}".
func TargetKey(pageURL, angle string) string {
	return pageURL + "#" + angle
}
