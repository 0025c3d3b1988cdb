// Package workflow defines the approval workflow instance model, the SLA
// evaluator, and the collaborator contracts (store, notifier) consumed by the
// escalation engine.
package workflow

import (
	"context"
	"errors"
	"time"
)

// Instance is a single in-flight approval workflow instance as read from the
// store. The engine never owns or persists instances; it only classifies them
// and asks the store to advance them.
type Instance struct {
	// ID is an opaque, unique instance identifier.
	ID string `json:"instanceID"`

	// StageStartedAt marks entry into the current approval stage. The SLA
	// clock for the stage starts here.
	StageStartedAt time.Time `json:"stageStartedAt"`

	// SLAHours is the maximum duration (in hours) the instance may remain
	// in the current stage. Must be > 0.
	SLAHours float64 `json:"slaHours"`

	// Tier is the current escalation tier, informational only.
	Tier int `json:"tier"`
}

// ReminderKind identifies the type of notification sent for an instance.
type ReminderKind string

const (
	KindSLAWarning ReminderKind = "sla_warning"
	KindEscalation ReminderKind = "escalation"
	KindOverdue    ReminderKind = "overdue"
)

// ParseReminderKind validates a user-supplied reminder type string.
func ParseReminderKind(s string) (ReminderKind, error) {
	switch ReminderKind(s) {
	case KindSLAWarning, KindEscalation, KindOverdue:
		return ReminderKind(s), nil
	}
	return "", errors.New("unknown reminder kind: " + s)
}

// Store is the workflow store collaborator. Implementations are expected to
// be safe for concurrent use.
type Store interface {
	// ListPendingInstances returns all instances currently awaiting
	// approval (not completed or cancelled).
	ListPendingInstances(ctx context.Context) ([]Instance, error)

	// AdvanceToNextTier moves a breached instance to its next escalation
	// tier. Returns false if the instance was already at its final tier or
	// no longer pending; advancing such an instance is a no-op.
	AdvanceToNextTier(ctx context.Context, instanceID string) (bool, error)

	// ApproverContacts returns the notification addresses for the current
	// approvers of an instance.
	ApproverContacts(ctx context.Context, instanceID string) ([]string, error)
}

// Notifier is the outbound notification collaborator. Delivery is
// at-least-once; duplicate notifications for the same instance and kind are
// acceptable.
type Notifier interface {
	Deliver(ctx context.Context, msg Notification) error
	Name() string
}

// Notification is a single composed message handed to a Notifier.
type Notification struct {
	InstanceID string
	Kind       ReminderKind
	Recipients []string
	Subject    string
	Body       string
}
