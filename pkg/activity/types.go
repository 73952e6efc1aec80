// Package activity maintains the append-only activity log. Records are
// produced by state-changing operations through a buffered, best-effort
// side channel: recording never blocks and never fails the operation that
// produced it. The stats engine consumes the log read-only.
package activity

import "time"

// Entity types recorded in the log.
const (
	EntityGroup   = "group"
	EntityGallery = "gallery"
	EntityArtwork = "artwork"
	EntityUser    = "user"
)

// Actions recorded in the log.
const (
	ActionCreated     = "created"
	ActionUpdated     = "updated"
	ActionDeleted     = "deleted"
	ActionSuspended     = "suspended"
	ActionReactivated   = "reactivated"
	ActionTransferred   = "ownership_transferred"
	ActionMemberAdded   = "member_added"
	ActionMemberRemoved = "member_removed"
)

// Record is one append-only log entry.
type Record struct {
	Action      string    `json:"action"`
	EntityType  string    `json:"entityType"`
	EntityID    string    `json:"entityId"`
	PrincipalID int64     `json:"principalId"`
	OccurredAt  time.Time `json:"occurredAt"`
}

// Entry is a record joined against principal identity for display. Username
// is nil when the principal has since been deleted; the entry itself is
// never dropped.
type Entry struct {
	ID          int64     `json:"id"`
	Action      string    `json:"action"`
	EntityType  string    `json:"entityType"`
	EntityID    string    `json:"entityId"`
	PrincipalID int64     `json:"principalId"`
	Username    *string   `json:"username"`
	OccurredAt  time.Time `json:"occurredAt"`
}

// Sink accepts activity records. Implementations must not block the caller.
type Sink interface {
	Record(rec Record)
}

// NopSink discards every record. Useful in tests and tools that do not keep
// an activity trail.
type NopSink struct{}

// Record implements Sink.
func (NopSink) Record(Record) {}
