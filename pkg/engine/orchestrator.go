package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/openhrm/escalation-engine/pkg/audit"
	"github.com/openhrm/escalation-engine/pkg/metrics"
	"github.com/openhrm/escalation-engine/pkg/workflow"
)

// ErrRunInProgress is returned when RunOnce is invoked while a previous run
// is still in flight. Runs never overlap; overlapping scans could escalate
// the same instance twice.
var ErrRunInProgress = errors.New("escalation run already in progress")

// RunResult summarizes one orchestration pass. It is created fresh per run
// and immutable once returned.
type RunResult struct {
	TotalChecked int           `json:"totalChecked"`
	Escalated    int           `json:"escalated"`
	Reminded     int           `json:"reminded"`
	Duration     time.Duration `json:"-"`

	// DurationSeconds mirrors Duration for JSON consumers.
	DurationSeconds float64 `json:"durationSeconds"`
}

// Orchestrator runs the periodic SLA scan: it pulls pending instances from
// the store, classifies each against its SLA, dispatches warnings and
// escalations, and rolls results up into metrics and a run summary.
type Orchestrator struct {
	store      workflow.Store
	dispatcher *Dispatcher
	evaluator  workflow.Evaluator
	recorder   *metrics.Recorder
	auditSink  audit.Sink
	log        *zap.SugaredLogger

	// runGuard enforces single-run mutual exclusion.
	runGuard sync.Mutex

	// now is swappable in tests.
	now func() time.Time
}

// NewOrchestrator wires the orchestrator with its collaborators. The audit
// sink may be nil; auditing is then skipped.
func NewOrchestrator(store workflow.Store, dispatcher *Dispatcher, evaluator workflow.Evaluator,
	recorder *metrics.Recorder, auditSink audit.Sink, log *zap.SugaredLogger,
) *Orchestrator {
	return &Orchestrator{
		store:      store,
		dispatcher: dispatcher,
		evaluator:  evaluator,
		recorder:   recorder,
		auditSink:  auditSink,
		log:        log.Named("orchestrator"),
		now:        time.Now,
	}
}

// RunOnce executes one full scan. Only a store query failure aborts the run
// and propagates; every per-instance failure is logged, counted, and skipped
// so the rest of the batch still gets processed. A concurrent invocation is
// rejected with ErrRunInProgress.
func (o *Orchestrator) RunOnce(ctx context.Context) (RunResult, error) {
	if !o.runGuard.TryLock() {
		return RunResult{}, ErrRunInProgress
	}
	defer o.runGuard.Unlock()

	start := o.now()
	o.log.Debug("Starting escalation scan")

	instances, err := o.store.ListPendingInstances(ctx)
	if err != nil {
		o.recorder.IncFailures()
		o.log.Errorw("Escalation scan aborted, store query failed", "error", err)
		o.emitAudit(audit.EventRunFailed, "", map[string]string{"error": err.Error()})
		return o.finish(RunResult{}, start), fmt.Errorf("listing pending instances: %w", err)
	}

	var result RunResult
	nearBreach := 0
	for i := range instances {
		if ctx.Err() != nil {
			// Cancellation is not transactional: actions already
			// dispatched remain valid, the rest of the batch waits
			// for the next interval.
			o.log.Warnw("Escalation scan cancelled mid-batch",
				"processed", result.TotalChecked, "total", len(instances))
			break
		}
		o.processInstance(ctx, instances[i], &result, &nearBreach)
		result.TotalChecked++
	}

	o.recorder.SetPending(len(instances))
	o.recorder.SetNearBreach(nearBreach)

	result = o.finish(result, start)
	o.log.Infow("Escalation scan complete",
		"checked", result.TotalChecked,
		"reminded", result.Reminded,
		"escalated", result.Escalated,
		"duration", result.Duration)
	o.emitAudit(audit.EventRunCompleted, "", map[string]string{
		"checked":   strconv.Itoa(result.TotalChecked),
		"reminded":  strconv.Itoa(result.Reminded),
		"escalated": strconv.Itoa(result.Escalated),
	})
	return result, nil
}

// processInstance handles a single instance. All failures are contained
// here; none may abort the batch.
func (o *Orchestrator) processInstance(ctx context.Context, inst workflow.Instance, result *RunResult, nearBreach *int) {
	o.recorder.IncChecked()

	status, err := o.evaluator.Evaluate(inst.StageStartedAt, inst.SLAHours, o.now())
	if err != nil {
		o.recorder.IncFailures()
		o.log.Errorw("Skipping instance with invalid SLA configuration",
			"instance", inst.ID, "slaHours", inst.SLAHours, "error", err)
		return
	}

	switch status {
	case workflow.StatusOK:
		// Nothing to do.

	case workflow.StatusWarning:
		*nearBreach++
		if err := o.dispatcher.SendReminderFor(ctx, inst, workflow.KindSLAWarning); err != nil {
			o.recorder.IncFailures()
			o.log.Errorw("Failed to send SLA warning", "instance", inst.ID, "error", err)
			return
		}
		result.Reminded++
		o.recorder.IncReminded()
		o.emitAudit(audit.EventReminderSent, inst.ID, map[string]string{"kind": string(workflow.KindSLAWarning)})

	case workflow.StatusBreached:
		// The breach happened whether or not anyone gets notified.
		o.recorder.IncBreached()
		o.escalate(ctx, inst, result)
	}
}

// escalate notifies the next approver tier and advances the instance in the
// store. The instance counts as escalated only when both succeed.
func (o *Orchestrator) escalate(ctx context.Context, inst workflow.Instance, result *RunResult) {
	if err := o.dispatcher.SendReminderFor(ctx, inst, workflow.KindEscalation); err != nil {
		o.recorder.IncFailures()
		o.log.Errorw("Failed to send escalation notice", "instance", inst.ID, "error", err)
		return
	}

	advanced, err := o.store.AdvanceToNextTier(ctx, inst.ID)
	if err != nil {
		o.recorder.IncFailures()
		o.log.Errorw("Failed to advance instance tier", "instance", inst.ID, "error", err)
		return
	}
	if !advanced {
		// Already at the final tier, or handled by a concurrent actor.
		o.log.Infow("Instance not advanced, already at final tier", "instance", inst.ID, "tier", inst.Tier)
		return
	}

	result.Escalated++
	o.recorder.IncEscalated()
	o.emitAudit(audit.EventInstanceEscalated, inst.ID, map[string]string{
		"fromTier": strconv.Itoa(inst.Tier),
		"toTier":   strconv.Itoa(inst.Tier + 1),
	})
}

func (o *Orchestrator) finish(result RunResult, start time.Time) RunResult {
	result.Duration = o.now().Sub(start)
	result.DurationSeconds = result.Duration.Seconds()
	o.recorder.ObserveRunDuration(result.DurationSeconds)
	return result
}

func (o *Orchestrator) emitAudit(eventType audit.EventType, instanceID string, details map[string]string) {
	if o.auditSink == nil {
		return
	}
	if err := o.auditSink.Write(context.Background(), audit.NewEvent(eventType, instanceID, details)); err != nil {
		o.log.Warnw("Failed to write audit event", "type", eventType, "error", err)
	}
}
