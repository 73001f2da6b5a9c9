package jobs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ledgerline/transfer-engine-backend/internal/data"
	"github.com/ledgerline/transfer-engine-backend/internal/locker"
	"github.com/ledgerline/transfer-engine-backend/internal/monitor"
	"github.com/ledgerline/transfer-engine-backend/internal/services"
)

const (
	StaleTransfersSweepJobIntervalSeconds = 30
	// StaleTransfersSweepDelay is how long a transfer may sit in an in-flight status without
	// progress before its outstanding request is re-published. It must comfortably exceed the
	// consumer's worst-case backoff so the sweep does not duplicate work still in flight.
	StaleTransfersSweepDelay = 5 * time.Minute
	StaleTransfersBatchSize  = 100
)

// StaleTransfersSweepJob re-publishes the outstanding balance-change request for transfers
// stuck in one in-flight status. One instance runs per status, each under its own lease and
// its own tuning knobs.
type StaleTransfersSweepJob struct {
	orchestrator    *services.TransferOrchestrator
	locker          locker.Locker
	monitorService  monitor.MonitorServiceInterface
	status          data.TransferStatus
	intervalSeconds int
	delay           time.Duration
	batchSize       int
	lockAtMostFor   time.Duration
	lockAtLeastFor  time.Duration
}

var _ Job = (*StaleTransfersSweepJob)(nil)

func NewStaleTransfersSweepJob(orchestrator *services.TransferOrchestrator, lckr locker.Locker, monitorService monitor.MonitorServiceInterface, status data.TransferStatus, opts SweepJobOptions) *StaleTransfersSweepJob {
	if opts.IntervalSeconds < DefaultMinimumJobIntervalSeconds {
		opts.IntervalSeconds = StaleTransfersSweepJobIntervalSeconds
	}
	return &StaleTransfersSweepJob{
		orchestrator:    orchestrator,
		locker:          lckr,
		monitorService:  monitorService,
		status:          status,
		intervalSeconds: opts.IntervalSeconds,
		delay:           opts.delayOrDefault(StaleTransfersSweepDelay),
		batchSize:       opts.batchSizeOrDefault(StaleTransfersBatchSize),
		lockAtMostFor:   opts.lockAtMostForOrDefault(),
		lockAtLeastFor:  opts.lockAtLeastForOrDefault(),
	}
}

func (j StaleTransfersSweepJob) GetInterval() time.Duration {
	return time.Duration(j.intervalSeconds) * time.Second
}

func (j StaleTransfersSweepJob) GetName() string {
	return fmt.Sprintf("stale_%s_transfers_sweep_job", strings.ToLower(string(j.status)))
}

func (j StaleTransfersSweepJob) Execute(ctx context.Context) error {
	err := runWithLease(ctx, j.locker, j.monitorService, j.GetName(), j.lockAtMostFor, j.lockAtLeastFor, func(ctx context.Context) error {
		return j.orchestrator.SweepStaleTransfers(ctx, j.status, j.delay, j.batchSize)
	})
	if err != nil {
		return fmt.Errorf("executing %s: %w", j.GetName(), err)
	}
	return nil
}
