package models

import "time"

type EventAction string

const (
	ActionRequestCreated     EventAction = "request_created"
	ActionStatusChange       EventAction = "status_change"
	ActionAssignment         EventAction = "assignment"
	ActionPublicLinkEnabled  EventAction = "public_link_enabled"
	ActionPublicLinkDisabled EventAction = "public_link_disabled"
	ActionPublicLinkExpired  EventAction = "public_link_expired"
	ActionCommentAdded       EventAction = "comment_added"
	ActionMediaAdded         EventAction = "media_added"
	ActionMediaRemoved       EventAction = "media_removed"
)

// Event is the descriptor handed to the audit log and notification
// collaborators. From and To carry status values for status changes and
// assignee ids for assignments.
type Event struct {
	ID        string            `json:"id"`
	Action    EventAction       `json:"action"`
	RequestID string            `json:"requestId"`
	From      string            `json:"from,omitempty"`
	To        string            `json:"to,omitempty"`
	Actor     string            `json:"actor"`
	Timestamp time.Time         `json:"timestamp"`
	Meta      map[string]string `json:"meta,omitempty"`
}
