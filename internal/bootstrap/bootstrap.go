// Package bootstrap ensures the entity tables exist before the process
// serves any traffic, safely under N concurrently starting workers sharing
// one store. One worker wins the store's advisory lock and creates the
// tables; every worker, winner or not, verifies the schema for itself
// before reporting readiness.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"catalog-rest-api/internal/repository"
)

// LockName is the fixed identifier of the bootstrap mutex shared by all
// workers.
const LockName = "catalog:schema-bootstrap"

// ErrLockTimeout reports that the lock could not be acquired and the schema
// never became verifiable. The process must not serve traffic.
var ErrLockTimeout = errors.New("bootstrap lock timeout")

// State is the observable bootstrap phase.
type State int

const (
	StateNotStarted State = iota
	StateAcquiringLock
	StateMigrating
	StateVerified
	StateLockTimeout
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "NotStarted"
	case StateAcquiringLock:
		return "AcquiringLock"
	case StateMigrating:
		return "Migrating"
	case StateVerified:
		return "Verified"
	case StateLockTimeout:
		return "LockTimeout"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Options tune the bootstrap waits.
type Options struct {
	// LockWait bounds the advisory lock acquisition.
	LockWait time.Duration

	// VerifyWait bounds how long a worker that lost the lock waits for
	// another worker to finish creating the tables.
	VerifyWait time.Duration
}

const (
	defaultLockWait   = 10 * time.Second
	defaultVerifyWait = 30 * time.Second
)

// Bootstrapper drives the startup schema migration exactly once across
// concurrently starting workers.
type Bootstrapper struct {
	locker repository.AdvisoryLocker
	schema repository.SchemaManager

	lockWait   time.Duration
	verifyWait time.Duration

	mu    sync.Mutex
	state State
}

// New creates a bootstrapper over the store's lock and schema primitives.
func New(locker repository.AdvisoryLocker, schema repository.SchemaManager, opts Options) *Bootstrapper {
	if opts.LockWait <= 0 {
		opts.LockWait = defaultLockWait
	}
	if opts.VerifyWait <= 0 {
		opts.VerifyWait = defaultVerifyWait
	}
	return &Bootstrapper{
		locker:     locker,
		schema:     schema,
		lockWait:   opts.LockWait,
		verifyWait: opts.VerifyWait,
		state:      StateNotStarted,
	}
}

// State returns the current bootstrap phase.
func (b *Bootstrapper) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Verified reports whether bootstrap completed successfully.
func (b *Bootstrapper) Verified() bool {
	return b.State() == StateVerified
}

func (b *Bootstrapper) setState(s State) {
	b.mu.Lock()
	b.state = s
	b.mu.Unlock()
}

// Run performs the bootstrap protocol. A nil return guarantees the state is
// Verified; any error means the process must not serve traffic.
func (b *Bootstrapper) Run(ctx context.Context) error {
	b.setState(StateAcquiringLock)

	acquired, err := b.locker.AcquireLock(ctx, LockName, b.lockWait)
	if err != nil {
		return fmt.Errorf("bootstrap: acquiring lock: %w", err)
	}

	if acquired {
		b.setState(StateMigrating)

		// Check-and-create while holding the lock: a worker that wins the
		// lock after another already migrated has nothing to do.
		var migrateErr error
		exists, checkErr := b.schema.TablesExist(ctx)
		if checkErr != nil || !exists {
			migrateErr = b.schema.CreateTables(ctx)
		}

		// The lock is released unconditionally, including on migration
		// failure, so a crashed migration never wedges other workers.
		if relErr := b.locker.ReleaseLock(ctx, LockName); relErr != nil {
			log.Printf("[Bootstrap] Failed to release lock: %v", relErr)
		}
		if migrateErr != nil {
			return fmt.Errorf("bootstrap: creating tables: %w", migrateErr)
		}
		log.Printf("[Bootstrap] Schema migration complete")
	} else {
		log.Printf("[Bootstrap] Lock held elsewhere, waiting for another worker to finish")
	}

	if err := b.verify(ctx, acquired); err != nil {
		return err
	}

	b.setState(StateVerified)
	log.Printf("[Bootstrap] Schema verified, worker ready")
	return nil
}

// verify polls the table existence check with backoff until it passes or
// the verify window closes.
func (b *Bootstrapper) verify(ctx context.Context, heldLock bool) error {
	deadline := time.Now().Add(b.verifyWait)
	backoff := 100 * time.Millisecond

	for {
		ok, err := b.schema.TablesExist(ctx)
		if err == nil && ok {
			return nil
		}
		if err != nil {
			log.Printf("[Bootstrap] Verification check failed: %v", err)
		}

		if time.Now().After(deadline) {
			if !heldLock {
				b.setState(StateLockTimeout)
				return fmt.Errorf("bootstrap: schema never became ready: %w", ErrLockTimeout)
			}
			return fmt.Errorf("bootstrap: schema verification failed after migration")
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("bootstrap: %w", ctx.Err())
		case <-time.After(backoff):
		}
		if backoff < 2*time.Second {
			backoff *= 2
		}
	}
}
