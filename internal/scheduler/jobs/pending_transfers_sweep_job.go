package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/ledgerline/transfer-engine-backend/internal/locker"
	"github.com/ledgerline/transfer-engine-backend/internal/monitor"
	"github.com/ledgerline/transfer-engine-backend/internal/services"
)

const (
	PendingTransfersSweepJobName            = "pending_transfers_sweep_job"
	PendingTransfersSweepJobIntervalSeconds = 10
	// PendingTransfersSweepDelay is how old a PENDING transfer must be before the sweep picks
	// it up, leaving the cancellation API a head start on fresh rows.
	PendingTransfersSweepDelay = 30 * time.Second
	PendingTransfersBatchSize  = 100
)

// PendingTransfersSweepJob drives PENDING transfers into DEBIT_PROCESSING. The lease keeps a
// single replica sweeping at a time; the state machine keeps a raced row from being driven
// twice.
type PendingTransfersSweepJob struct {
	orchestrator    *services.TransferOrchestrator
	locker          locker.Locker
	monitorService  monitor.MonitorServiceInterface
	intervalSeconds int
	delay           time.Duration
	batchSize       int
	lockAtMostFor   time.Duration
	lockAtLeastFor  time.Duration
}

var _ Job = (*PendingTransfersSweepJob)(nil)

func NewPendingTransfersSweepJob(orchestrator *services.TransferOrchestrator, lckr locker.Locker, monitorService monitor.MonitorServiceInterface, opts SweepJobOptions) *PendingTransfersSweepJob {
	if opts.IntervalSeconds < DefaultMinimumJobIntervalSeconds {
		opts.IntervalSeconds = PendingTransfersSweepJobIntervalSeconds
	}
	return &PendingTransfersSweepJob{
		orchestrator:    orchestrator,
		locker:          lckr,
		monitorService:  monitorService,
		intervalSeconds: opts.IntervalSeconds,
		delay:           opts.delayOrDefault(PendingTransfersSweepDelay),
		batchSize:       opts.batchSizeOrDefault(PendingTransfersBatchSize),
		lockAtMostFor:   opts.lockAtMostForOrDefault(),
		lockAtLeastFor:  opts.lockAtLeastForOrDefault(),
	}
}

func (j PendingTransfersSweepJob) GetInterval() time.Duration {
	return time.Duration(j.intervalSeconds) * time.Second
}

func (j PendingTransfersSweepJob) GetName() string {
	return PendingTransfersSweepJobName
}

func (j PendingTransfersSweepJob) Execute(ctx context.Context) error {
	err := runWithLease(ctx, j.locker, j.monitorService, PendingTransfersSweepJobName, j.lockAtMostFor, j.lockAtLeastFor, func(ctx context.Context) error {
		return j.orchestrator.SweepPendingTransfers(ctx, j.delay, j.batchSize)
	})
	if err != nil {
		return fmt.Errorf("executing PendingTransfersSweepJob: %w", err)
	}
	return nil
}
