// Package audit provides the escalation audit trail: structured events for
// reminders, escalations, and scan runs, forwarded to configurable sinks
// (log, Kafka) with asynchronous queued delivery.
package audit

import (
	"time"

	"github.com/google/uuid"
)

// EventType identifies an escalation audit event.
type EventType string

const (
	EventReminderSent      EventType = "instance.reminder_sent"
	EventInstanceEscalated EventType = "instance.escalated"
	EventRunCompleted      EventType = "run.completed"
	EventRunFailed         EventType = "run.failed"
)

// Event is a single audit record. InstanceID is empty for run-level events.
type Event struct {
	ID         string            `json:"id"`
	Type       EventType         `json:"type"`
	Timestamp  time.Time         `json:"timestamp"`
	InstanceID string            `json:"instanceID,omitempty"`
	Details    map[string]string `json:"details,omitempty"`
}

// NewEvent creates an event with a fresh ID and UTC timestamp.
func NewEvent(eventType EventType, instanceID string, details map[string]string) *Event {
	return &Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		InstanceID: instanceID,
		Details:    details,
	}
}
