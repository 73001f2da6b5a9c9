package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/ledgerline/transfer-engine-backend/internal/locker"
	"github.com/ledgerline/transfer-engine-backend/internal/monitor"
)

const (
	// DefaultLockAtMostFor caps how long a dead holder can keep a sweep lease hostage.
	DefaultLockAtMostFor = 10 * time.Minute
	// DefaultLockAtLeastFor keeps the lease held briefly after release so replicas with
	// skewed tickers do not run the same sweep back to back.
	DefaultLockAtLeastFor = 10 * time.Second
)

// runWithLease runs fn only when the named lease can be acquired. When another replica holds
// the lease the run is skipped silently, except for a counter bump: with every replica
// ticking on the same interval, skipping is the common case, not a problem.
func runWithLease(ctx context.Context, lckr locker.Locker, monitorService monitor.MonitorServiceInterface, name string, atMostFor, atLeastFor time.Duration, fn func(ctx context.Context) error) error {
	lease, err := lckr.Acquire(ctx, name, atMostFor, atLeastFor)
	if err != nil {
		return fmt.Errorf("acquiring lease %q: %w", name, err)
	}
	if lease == nil {
		log.Ctx(ctx).Debugf("lease %q held elsewhere, skipping run", name)
		monitorSkipped(monitorService, name)
		return nil
	}
	defer func() {
		if releaseErr := lckr.Release(ctx, lease); releaseErr != nil {
			log.Ctx(ctx).Errorf("releasing lease %q: %s", name, releaseErr.Error())
		}
	}()

	return fn(ctx)
}

func monitorSkipped(monitorService monitor.MonitorServiceInterface, name string) {
	if monitorService == nil {
		return
	}
	labels := monitor.SweepLabels{Job: name}.ToMap()
	if err := monitorService.MonitorCounters(monitor.SweepLeaseSkippedCounterTag, labels); err != nil {
		log.Errorf("monitoring counter %s: %s", monitor.SweepLeaseSkippedCounterTag, err.Error())
	}
}
