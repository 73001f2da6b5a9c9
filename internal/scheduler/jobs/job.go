package jobs

import (
	"context"
	"time"
)

const DefaultMinimumJobIntervalSeconds = 5

type Job interface {
	Execute(context.Context) error
	GetInterval() time.Duration
	GetName() string
}

// SweepJobOptions carries one sweep job's tuning knobs. Zero or negative values fall back to
// the job's defaults.
type SweepJobOptions struct {
	IntervalSeconds    int
	DelaySeconds       int
	BatchSize          int
	LockAtMostSeconds  int
	LockAtLeastSeconds int
}

func (o SweepJobOptions) delayOrDefault(defaultDelay time.Duration) time.Duration {
	if o.DelaySeconds > 0 {
		return time.Duration(o.DelaySeconds) * time.Second
	}
	return defaultDelay
}

func (o SweepJobOptions) batchSizeOrDefault(defaultBatchSize int) int {
	if o.BatchSize > 0 {
		return o.BatchSize
	}
	return defaultBatchSize
}

func (o SweepJobOptions) lockAtMostForOrDefault() time.Duration {
	if o.LockAtMostSeconds > 0 {
		return time.Duration(o.LockAtMostSeconds) * time.Second
	}
	return DefaultLockAtMostFor
}

func (o SweepJobOptions) lockAtLeastForOrDefault() time.Duration {
	if o.LockAtLeastSeconds > 0 {
		return time.Duration(o.LockAtLeastSeconds) * time.Second
	}
	return DefaultLockAtLeastFor
}
