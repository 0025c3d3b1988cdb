package workflow

import (
	"errors"
	"fmt"
	"time"
)

// SLAStatus classifies how an instance stands against its stage SLA.
type SLAStatus string

const (
	StatusOK       SLAStatus = "ok"
	StatusWarning  SLAStatus = "warning"
	StatusBreached SLAStatus = "breached"
)

// DefaultWarningThreshold is the fraction of the SLA after which an instance
// is considered approaching its deadline.
const DefaultWarningThreshold = 0.9

// ErrInvalidConfiguration indicates malformed SLA parameters for a single
// instance. It is fatal to that evaluation only, never to a whole run.
var ErrInvalidConfiguration = errors.New("invalid SLA configuration")

// Evaluator classifies instances against their SLA. It is pure and
// deterministic: the same inputs always yield the same status.
type Evaluator struct {
	// WarningThreshold is the fraction of the SLA (0 < t < 1) at which an
	// instance moves from ok to warning.
	WarningThreshold float64
}

// NewEvaluator returns an Evaluator with the given warning threshold, falling
// back to DefaultWarningThreshold when the value is out of range.
func NewEvaluator(warningThreshold float64) Evaluator {
	if warningThreshold <= 0 || warningThreshold >= 1 {
		warningThreshold = DefaultWarningThreshold
	}
	return Evaluator{WarningThreshold: warningThreshold}
}

// Evaluate classifies an instance given the entry time into its current
// stage, the configured SLA in hours, and the current time. Ties favor the
// more urgent classification: elapsed == SLA is breached, elapsed == the
// warning boundary is warning. Clock skew (stageStartedAt after now) is
// tolerated and yields ok.
func (e Evaluator) Evaluate(stageStartedAt time.Time, slaHours float64, now time.Time) (SLAStatus, error) {
	if slaHours <= 0 {
		return "", fmt.Errorf("%w: slaHours must be positive, got %v", ErrInvalidConfiguration, slaHours)
	}

	elapsed := now.Sub(stageStartedAt).Hours()
	switch {
	case elapsed >= slaHours:
		return StatusBreached, nil
	case elapsed >= e.WarningThreshold*slaHours:
		return StatusWarning, nil
	default:
		return StatusOK, nil
	}
}
