// Package engine implements the workflow escalation engine: the periodic SLA
// scan over pending approval instances, the reminder/escalation dispatcher,
// and the HTTP controller exposing manual triggers and metrics.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/exp/maps"

	"github.com/openhrm/escalation-engine/pkg/notify"
	"github.com/openhrm/escalation-engine/pkg/workflow"
)

// ErrDeliveryFailed indicates a reminder could not be delivered after all
// retry attempts were exhausted.
var ErrDeliveryFailed = errors.New("reminder delivery failed")

// ErrInstanceNotPending is returned for manual reminders addressing an
// instance that is not currently awaiting approval.
var ErrInstanceNotPending = errors.New("instance is not pending approval")

// DispatcherConfig tunes retry behavior and message rendering.
type DispatcherConfig struct {
	// MaxAttempts is the number of delivery attempts per reminder.
	// Default: 3
	MaxAttempts int
	// InitialBackoff is the delay before the first retry; it doubles per
	// attempt. Default: 500ms
	InitialBackoff time.Duration
	// BaseURL, when set, is linked from reminder mails.
	BaseURL string
	// BrandingName overrides the product name in messages.
	BrandingName string
}

// Dispatcher composes and sends a reminder or escalation notice for one
// instance, retrying transient delivery failures with exponential backoff.
type Dispatcher struct {
	store    workflow.Store
	notifier workflow.Notifier
	config   DispatcherConfig
	log      *zap.SugaredLogger

	// now is swappable in tests.
	now func() time.Time
}

// NewDispatcher creates a Dispatcher with defaults applied.
func NewDispatcher(store workflow.Store, notifier workflow.Notifier, cfg DispatcherConfig, log *zap.SugaredLogger) *Dispatcher {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 500 * time.Millisecond
	}
	return &Dispatcher{
		store:    store,
		notifier: notifier,
		config:   cfg,
		log:      log.Named("dispatcher"),
		now:      time.Now,
	}
}

// SendReminderFor sends a notice of the given kind for an already-loaded
// instance. Delivery is at-least-once: a duplicate reminder is acceptable, a
// silently lost one is not.
func (d *Dispatcher) SendReminderFor(ctx context.Context, inst workflow.Instance, kind workflow.ReminderKind) error {
	contacts, err := d.store.ApproverContacts(ctx, inst.ID)
	if err != nil {
		return fmt.Errorf("looking up approver contacts for %s: %w", inst.ID, err)
	}

	// Deduplicate while keeping the recipient set stable for logging.
	unique := make(map[string]struct{}, len(contacts))
	for _, c := range contacts {
		unique[c] = struct{}{}
	}
	recipients := maps.Keys(unique)
	if len(recipients) == 0 {
		return fmt.Errorf("%w: no approver contacts for instance %s", ErrDeliveryFailed, inst.ID)
	}

	subject, body, err := notify.Compose(kind, notify.MessageParams{
		InstanceID:   inst.ID,
		Tier:         inst.Tier,
		SLAHours:     inst.SLAHours,
		ElapsedHours: d.now().Sub(inst.StageStartedAt).Hours(),
		URL:          d.instanceURL(inst.ID),
		BrandingName: d.config.BrandingName,
	})
	if err != nil {
		return fmt.Errorf("composing %s message for %s: %w", kind, inst.ID, err)
	}

	msg := workflow.Notification{
		InstanceID: inst.ID,
		Kind:       kind,
		Recipients: recipients,
		Subject:    subject,
		Body:       body,
	}
	return d.deliverWithRetry(ctx, msg)
}

// SendReminder resolves an instance by ID among the pending set and sends a
// notice of the given kind. Used by the manual reminder trigger.
func (d *Dispatcher) SendReminder(ctx context.Context, instanceID string, kind workflow.ReminderKind) error {
	instances, err := d.store.ListPendingInstances(ctx)
	if err != nil {
		return fmt.Errorf("resolving instance %s: %w", instanceID, err)
	}
	for _, inst := range instances {
		if inst.ID == instanceID {
			return d.SendReminderFor(ctx, inst, kind)
		}
	}
	return fmt.Errorf("%w: %s", ErrInstanceNotPending, instanceID)
}

func (d *Dispatcher) deliverWithRetry(ctx context.Context, msg workflow.Notification) error {
	var lastErr error
	backoff := d.config.InitialBackoff

	for attempt := 1; attempt <= d.config.MaxAttempts; attempt++ {
		lastErr = d.notifier.Deliver(ctx, msg)
		if lastErr == nil {
			if attempt > 1 {
				d.log.Infow("Reminder delivered after retry",
					"instance", msg.InstanceID, "kind", msg.Kind, "attempt", attempt)
			}
			return nil
		}

		if attempt < d.config.MaxAttempts {
			d.log.Warnw("Reminder delivery failed, retrying",
				"instance", msg.InstanceID,
				"kind", msg.Kind,
				"attempt", attempt,
				"backoff", backoff,
				"error", lastErr)
			select {
			case <-ctx.Done():
				return fmt.Errorf("%w: %s", ErrDeliveryFailed, ctx.Err())
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}

	d.log.Errorw("Reminder delivery failed after all attempts",
		"instance", msg.InstanceID,
		"kind", msg.Kind,
		"attempts", d.config.MaxAttempts,
		"notifier", d.notifier.Name(),
		"error", lastErr)
	return fmt.Errorf("%w after %d attempts: %s", ErrDeliveryFailed, d.config.MaxAttempts, lastErr)
}

func (d *Dispatcher) instanceURL(instanceID string) string {
	if d.config.BaseURL == "" {
		return ""
	}
	return d.config.BaseURL + "/approvals/" + instanceID
}
