package scheduler

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/ledgerline/transfer-engine-backend/internal/data"
	"github.com/ledgerline/transfer-engine-backend/internal/locker"
	"github.com/ledgerline/transfer-engine-backend/internal/monitor"
	"github.com/ledgerline/transfer-engine-backend/internal/scheduler/jobs"
	"github.com/ledgerline/transfer-engine-backend/internal/services"
)

// Scheduler manages a list of jobs and executes them at their specified intervals.
// It uses a job queue to distribute jobs to workers.
type Scheduler struct {
	jobs     map[string]jobs.Job
	cancel   context.CancelFunc
	jobQueue chan jobs.Job
	// enqueuedJobs is used to keep track of enqueued jobs to avoid enqueuing the same job
	// multiple times in case it takes longer to execute than its interval.
	enqueuedJobs sync.Map
}

type SchedulerJobRegisterOption func(*Scheduler)

// SchedulerWorkerCount is the number of workers that will be started to process jobs
const SchedulerWorkerCount = 5

// StartScheduler initializes and starts the scheduler. This method blocks until the scheduler
// is stopped by a signal.
func StartScheduler(schedulerJobRegisters ...SchedulerJobRegisterOption) {
	ctx, cancel := context.WithCancel(context.Background())

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	scheduler := newScheduler(cancel)
	for _, schedulerJobRegister := range schedulerJobRegisters {
		schedulerJobRegister(scheduler)
	}

	scheduler.start(ctx)

	<-signalChan

	scheduler.stop()
}

func newScheduler(cancel context.CancelFunc) *Scheduler {
	return &Scheduler{
		jobs:     make(map[string]jobs.Job),
		cancel:   cancel,
		jobQueue: make(chan jobs.Job),
	}
}

// addJob adds a job to the scheduler. This method does not start the job. To start the job,
// call start().
func (s *Scheduler) addJob(job jobs.Job) {
	log.Infof("registering job to scheduler [name: %s], [interval: %s]", job.GetName(), job.GetInterval())
	s.jobs[job.GetName()] = job
}

// start starts the scheduler and all jobs. Workers pull from the shared queue; one goroutine
// per job waits on its ticker and enqueues.
func (s *Scheduler) start(ctx context.Context) {
	if len(s.jobs) == 0 {
		log.Ctx(ctx).Info("No jobs to start")
		s.stop()
		return
	}
	log.Ctx(ctx).Infof("Starting scheduler with %d workers...", SchedulerWorkerCount)

	for i := 1; i <= SchedulerWorkerCount; i++ {
		go worker(ctx, i, s)
	}

	for _, job := range s.jobs {
		go func(job jobs.Job) {
			ticker := time.NewTicker(job.GetInterval())
			for {
				select {
				case <-ticker.C:
					jobName := job.GetName()
					if _, alreadyEnqueued := s.enqueuedJobs.LoadOrStore(jobName, true); !alreadyEnqueued {
						log.Ctx(ctx).Debugf("Enqueuing job: %s", jobName)
						s.jobQueue <- job
					} else {
						log.Ctx(ctx).Debugf("Skipping job %s, already in queue", jobName)
					}
				case <-ctx.Done():
					ticker.Stop()
					return
				}
			}
		}(job)
	}
}

func (s *Scheduler) stop() {
	log.Info("Stopping scheduler...")
	s.cancel()
}

// worker is a goroutine that processes jobs from the job queue.
func worker(ctx context.Context, workerID int, scheduler *Scheduler) {
	defer func() {
		if r := recover(); r != nil {
			log.Ctx(ctx).Errorf("Worker %d encountered a panic while processing a job: %v", workerID, r)
		}
	}()
	for {
		select {
		case job := <-scheduler.jobQueue:
			log.Ctx(ctx).Debugf("Processing job %s on worker %d", job.GetName(), workerID)
			if err := job.Execute(ctx); err != nil {
				log.Ctx(ctx).Errorf("error processing job %s on worker %d: %s", job.GetName(), workerID, err.Error())
			}
			scheduler.enqueuedJobs.Delete(job.GetName())
		case <-ctx.Done():
			log.Ctx(ctx).Infof("Worker %d stopping...", workerID)
			return
		}
	}
}

// WithPendingTransfersSweepJobOption registers the PENDING sweep.
func WithPendingTransfersSweepJobOption(orchestrator *services.TransferOrchestrator, lckr locker.Locker, monitorService monitor.MonitorServiceInterface, opts jobs.SweepJobOptions) SchedulerJobRegisterOption {
	return func(s *Scheduler) {
		s.addJob(jobs.NewPendingTransfersSweepJob(orchestrator, lckr, monitorService, opts))
	}
}

// WithStaleTransfersSweepJobOption registers one stale sweep per in-flight status.
func WithStaleTransfersSweepJobOption(orchestrator *services.TransferOrchestrator, lckr locker.Locker, monitorService monitor.MonitorServiceInterface, status data.TransferStatus, opts jobs.SweepJobOptions) SchedulerJobRegisterOption {
	return func(s *Scheduler) {
		s.addJob(jobs.NewStaleTransfersSweepJob(orchestrator, lckr, monitorService, status, opts))
	}
}
