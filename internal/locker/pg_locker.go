package locker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/ledgerline/transfer-engine-backend/db"
)

// PGLocker implements Locker over the scheduler_locks table. A name is free when its row is
// absent or its lock_until has passed; acquisition upserts the row in a single statement so
// two replicas racing for the same name resolve on the primary-key conflict.
type PGLocker struct {
	dbConnectionPool db.DBConnectionPool
	holderID         string
}

var _ Locker = (*PGLocker)(nil)

func NewPGLocker(dbConnectionPool db.DBConnectionPool) *PGLocker {
	return &PGLocker{
		dbConnectionPool: dbConnectionPool,
		holderID:         uuid.NewString(),
	}
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// HolderID identifies this replica in the lock table.
func (l *PGLocker) HolderID() string {
	return l.holderID
}

func (l *PGLocker) Acquire(ctx context.Context, name string, atMostFor, atLeastFor time.Duration) (*Lease, error) {
	if atMostFor <= 0 {
		return nil, fmt.Errorf("atMostFor must be positive")
	}

	const query = `
		INSERT INTO scheduler_locks (name, locked_by, locked_at, lock_until)
		VALUES ($1, $2, NOW(), NOW() + $3 * INTERVAL '1 second')
		ON CONFLICT (name) DO UPDATE
		SET locked_by = EXCLUDED.locked_by,
			locked_at = EXCLUDED.locked_at,
			lock_until = EXCLUDED.lock_until
		WHERE scheduler_locks.lock_until <= NOW()
		RETURNING locked_at
	`

	var lockedAt time.Time
	err := l.dbConnectionPool.GetContext(ctx, &lockedAt, query, name, l.holderID, atMostFor.Seconds())
	if err != nil {
		if isNoRows(err) {
			// Held elsewhere, or still inside another holder's at-least-for floor.
			return nil, nil
		}
		return nil, fmt.Errorf("acquiring lease %q: %w", name, err)
	}

	return &Lease{
		Name:       name,
		HolderID:   l.holderID,
		AcquiredAt: lockedAt,
		AtMostFor:  atMostFor,
		AtLeastFor: atLeastFor,
	}, nil
}

func (l *PGLocker) Release(ctx context.Context, lease *Lease) error {
	if lease == nil {
		return nil
	}

	// The floor holds from acquisition: re-acquisition stays blocked until
	// locked_at + at-least-for even when the job finished early. The locked_by guard makes
	// release a no-op when the row was taken over after the hard expiry.
	const query = `
		UPDATE scheduler_locks
		SET lock_until = GREATEST(NOW(), locked_at + $3 * INTERVAL '1 second')
		WHERE name = $1 AND locked_by = $2
	`

	result, err := l.dbConnectionPool.ExecContext(ctx, query, lease.Name, lease.HolderID, lease.AtLeastFor.Seconds())
	if err != nil {
		return fmt.Errorf("releasing lease %q: %w", lease.Name, err)
	}

	numRowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting number of rows affected: %w", err)
	}
	if numRowsAffected == 0 {
		log.Ctx(ctx).Warnf("lease %q was taken over before release by holder %s", lease.Name, lease.HolderID)
	}

	return nil
}
