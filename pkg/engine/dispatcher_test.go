package engine

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openhrm/escalation-engine/pkg/system"
	"github.com/openhrm/escalation-engine/pkg/workflow"
)

func testInstance(now time.Time) workflow.Instance {
	return workflow.Instance{
		ID:             "req-1",
		StageStartedAt: now.Add(-22 * time.Hour),
		SLAHours:       24,
		Tier:           1,
	}
}

func newTestDispatcher(store workflow.Store, notifier workflow.Notifier) *Dispatcher {
	return NewDispatcher(store, notifier, DispatcherConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		BaseURL:        "https://hr.example.com",
	}, system.NewTestLogger())
}

func TestSendReminderForDelivers(t *testing.T) {
	store := &fakeStore{contacts: map[string][]string{"req-1": {"lead@example.com"}}}
	notifier := &fakeNotifier{}
	d := newTestDispatcher(store, notifier)

	err := d.SendReminderFor(context.Background(), testInstance(time.Now()), workflow.KindSLAWarning)
	require.NoError(t, err)

	require.Len(t, notifier.delivered, 1)
	msg := notifier.delivered[0]
	assert.Equal(t, "req-1", msg.InstanceID)
	assert.Equal(t, workflow.KindSLAWarning, msg.Kind)
	assert.Equal(t, []string{"lead@example.com"}, msg.Recipients)
	assert.Contains(t, msg.Subject, "req-1")
	assert.Contains(t, msg.Body, "https://hr.example.com/approvals/req-1")
}

func TestSendReminderForRetriesTransientFailures(t *testing.T) {
	store := &fakeStore{}
	notifier := &fakeNotifier{failFirst: 2}
	d := newTestDispatcher(store, notifier)

	err := d.SendReminderFor(context.Background(), testInstance(time.Now()), workflow.KindEscalation)
	require.NoError(t, err)

	// Two failures, delivered on the third attempt.
	assert.Equal(t, 3, notifier.attempts["req-1/escalation"])
	assert.Len(t, notifier.delivered, 1)
}

func TestSendReminderForExhaustsRetries(t *testing.T) {
	store := &fakeStore{}
	notifier := &fakeNotifier{failFirst: 10}
	d := newTestDispatcher(store, notifier)

	err := d.SendReminderFor(context.Background(), testInstance(time.Now()), workflow.KindSLAWarning)
	assert.ErrorIs(t, err, ErrDeliveryFailed)
	assert.Equal(t, 3, notifier.attempts["req-1/sla_warning"])
}

func TestSendReminderForDeduplicatesRecipients(t *testing.T) {
	store := &fakeStore{contacts: map[string][]string{
		"req-1": {"a@example.com", "b@example.com", "a@example.com"},
	}}
	notifier := &fakeNotifier{}
	d := newTestDispatcher(store, notifier)

	err := d.SendReminderFor(context.Background(), testInstance(time.Now()), workflow.KindSLAWarning)
	require.NoError(t, err)

	got := notifier.delivered[0].Recipients
	sort.Strings(got)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, got)
}

func TestSendReminderForNoContacts(t *testing.T) {
	store := &fakeStore{contacts: map[string][]string{"req-1": {}}}
	d := newTestDispatcher(store, &fakeNotifier{})

	err := d.SendReminderFor(context.Background(), testInstance(time.Now()), workflow.KindSLAWarning)
	assert.ErrorIs(t, err, ErrDeliveryFailed)
}

func TestSendReminderForContactLookupFailure(t *testing.T) {
	store := &fakeStore{contactErr: map[string]error{"req-1": errors.New("store down")}}
	notifier := &fakeNotifier{}
	d := newTestDispatcher(store, notifier)

	err := d.SendReminderFor(context.Background(), testInstance(time.Now()), workflow.KindSLAWarning)
	assert.Error(t, err)
	assert.Empty(t, notifier.delivered)
}

func TestSendReminderResolvesPendingInstance(t *testing.T) {
	now := time.Now()
	store := &fakeStore{instances: []workflow.Instance{testInstance(now)}}
	notifier := &fakeNotifier{}
	d := newTestDispatcher(store, notifier)

	err := d.SendReminder(context.Background(), "req-1", workflow.KindOverdue)
	require.NoError(t, err)
	assert.Equal(t, workflow.KindOverdue, notifier.delivered[0].Kind)
}

func TestSendReminderUnknownInstance(t *testing.T) {
	store := &fakeStore{}
	d := newTestDispatcher(store, &fakeNotifier{})

	err := d.SendReminder(context.Background(), "req-missing", workflow.KindOverdue)
	assert.ErrorIs(t, err, ErrInstanceNotPending)
}

func TestSendReminderForCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := &fakeStore{}
	notifier := &fakeNotifier{failFirst: 10}
	d := NewDispatcher(store, notifier, DispatcherConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Minute, // retry wait must lose to the cancelled context
	}, system.NewTestLogger())

	// First attempt fails; the retry wait observes cancellation.
	err := d.SendReminderFor(ctx, testInstance(time.Now()), workflow.KindSLAWarning)
	assert.ErrorIs(t, err, ErrDeliveryFailed)
	assert.Equal(t, 1, notifier.attempts["req-1/sla_warning"])
}
