package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/transfer-engine-backend/internal/data"
	"github.com/ledgerline/transfer-engine-backend/internal/locker"
	"github.com/ledgerline/transfer-engine-backend/internal/services"
)

func Test_NewStaleTransfersSweepJob(t *testing.T) {
	t.Run("name is derived from the watched status", func(t *testing.T) {
		debitJob := NewStaleTransfersSweepJob(nil, nil, nil, data.DebitProcessingTransferStatus, SweepJobOptions{IntervalSeconds: 30})
		assert.Equal(t, "stale_debit_processing_transfers_sweep_job", debitJob.GetName())

		creditJob := NewStaleTransfersSweepJob(nil, nil, nil, data.CreditProcessingTransferStatus, SweepJobOptions{IntervalSeconds: 30})
		assert.Equal(t, "stale_credit_processing_transfers_sweep_job", creditJob.GetName())
	})

	t.Run("uses the default interval when given one below the minimum", func(t *testing.T) {
		job := NewStaleTransfersSweepJob(nil, nil, nil, data.DebitProcessingTransferStatus, SweepJobOptions{})
		assert.Equal(t, StaleTransfersSweepJobIntervalSeconds*time.Second, job.GetInterval())
	})

	t.Run("zero options fall back to the job defaults", func(t *testing.T) {
		job := NewStaleTransfersSweepJob(nil, nil, nil, data.DebitProcessingTransferStatus, SweepJobOptions{})
		assert.Equal(t, StaleTransfersSweepDelay, job.delay)
		assert.Equal(t, StaleTransfersBatchSize, job.batchSize)
		assert.Equal(t, DefaultLockAtMostFor, job.lockAtMostFor)
		assert.Equal(t, DefaultLockAtLeastFor, job.lockAtLeastFor)
	})
}

func Test_StaleTransfersSweepJob_Execute(t *testing.T) {
	ctx := context.Background()

	t.Run("sweeps the watched status while holding the lease", func(t *testing.T) {
		jobName := "stale_credit_processing_transfers_sweep_job"
		lease := &locker.Lease{Name: jobName}

		lckr := &locker.MockLocker{}
		lckr.On("Acquire", ctx, jobName, DefaultLockAtMostFor, DefaultLockAtLeastFor).Return(lease, nil).Once()
		lckr.On("Release", ctx, lease).Return(nil).Once()
		defer lckr.AssertExpectations(t)

		transferService := &services.MockTransferService{}
		transferService.On("GetInFlightStaleThan", ctx, data.CreditProcessingTransferStatus, mock.AnythingOfType("time.Time"), StaleTransfersBatchSize).
			Return(nil, nil).Once()
		defer transferService.AssertExpectations(t)

		orchestrator := services.NewTransferOrchestrator(transferService, &services.MockBalanceService{}, nil, nil)
		job := NewStaleTransfersSweepJob(orchestrator, lckr, nil, data.CreditProcessingTransferStatus, SweepJobOptions{IntervalSeconds: 30})

		require.NoError(t, job.Execute(ctx))
	})

	t.Run("skips the sweep when the lease is held elsewhere", func(t *testing.T) {
		jobName := "stale_debit_processing_transfers_sweep_job"

		lckr := &locker.MockLocker{}
		lckr.On("Acquire", ctx, jobName, DefaultLockAtMostFor, DefaultLockAtLeastFor).Return(nil, nil).Once()
		defer lckr.AssertExpectations(t)

		transferService := &services.MockTransferService{}
		defer transferService.AssertNotCalled(t, "GetInFlightStaleThan")

		orchestrator := services.NewTransferOrchestrator(transferService, &services.MockBalanceService{}, nil, nil)
		job := NewStaleTransfersSweepJob(orchestrator, lckr, nil, data.DebitProcessingTransferStatus, SweepJobOptions{IntervalSeconds: 30})

		require.NoError(t, job.Execute(ctx))
	})

	t.Run("returns a wrapped error naming the job when the sweep fails", func(t *testing.T) {
		jobName := "stale_debit_processing_transfers_sweep_job"
		lease := &locker.Lease{Name: jobName}

		lckr := &locker.MockLocker{}
		lckr.On("Acquire", ctx, jobName, DefaultLockAtMostFor, DefaultLockAtLeastFor).Return(lease, nil).Once()
		lckr.On("Release", ctx, lease).Return(nil).Once()
		defer lckr.AssertExpectations(t)

		transferService := &services.MockTransferService{}
		transferService.On("GetInFlightStaleThan", ctx, data.DebitProcessingTransferStatus, mock.AnythingOfType("time.Time"), StaleTransfersBatchSize).
			Return(nil, errors.New("query timeout")).Once()
		defer transferService.AssertExpectations(t)

		orchestrator := services.NewTransferOrchestrator(transferService, &services.MockBalanceService{}, nil, nil)
		job := NewStaleTransfersSweepJob(orchestrator, lckr, nil, data.DebitProcessingTransferStatus, SweepJobOptions{IntervalSeconds: 30})

		err := job.Execute(ctx)
		assert.ErrorContains(t, err, "executing stale_debit_processing_transfers_sweep_job")
	})
}
