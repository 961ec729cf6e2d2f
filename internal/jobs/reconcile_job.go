package jobs

import (
	"context"
	"errors"
	"fmt"

	"caritauyuk.id/catalog/internal/services"
)

// ReconcileJobName identifies the like-counter reconciler.
const ReconcileJobName = "reconcile-likes"

// ReconcileJob adapts the reconcile service to the scheduler.
type ReconcileJob struct {
	service services.ReconcileService
}

// NewReconcileJob wraps service.
func NewReconcileJob(service services.ReconcileService) (*ReconcileJob, error) {
	if service == nil {
		return nil, errors.New("reconcile job: service is required")
	}
	return &ReconcileJob{service: service}, nil
}

// Name implements Job.
func (j *ReconcileJob) Name() string { return ReconcileJobName }

// Run implements Job. Per-row repair failures are reported as an error after the pass.
func (j *ReconcileJob) Run(ctx context.Context) error {
	report, err := j.service.Run(ctx)
	if err != nil {
		return err
	}
	if report.Failed > 0 {
		return &PartialFailure{Failed: report.Failed, Checked: report.Checked}
	}
	return nil
}

// PartialFailure reports counters that could not be repaired during a pass.
type PartialFailure struct {
	Failed  int
	Checked int
}

func (e *PartialFailure) Error() string {
	return fmt.Sprintf("reconcile: %d of %d counters could not be repaired", e.Failed, e.Checked)
}
