package bootstrap

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore simulates the store's advisory lock and schema primitives so
// lock-timeout and concurrent-acquirer scenarios run deterministically.
type fakeStore struct {
	mu          sync.Mutex
	locked      bool
	tables      bool
	createCalls int

	denyLock   bool
	acquireErr error
	createErr  error
}

func (s *fakeStore) AcquireLock(ctx context.Context, name string, wait time.Duration) (bool, error) {
	if s.acquireErr != nil {
		return false, s.acquireErr
	}

	deadline := time.Now().Add(wait)
	for {
		s.mu.Lock()
		if !s.denyLock && !s.locked {
			s.locked = true
			s.mu.Unlock()
			return true, nil
		}
		s.mu.Unlock()

		if time.Now().After(deadline) {
			return false, nil
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(time.Millisecond):
		}
	}
}

func (s *fakeStore) ReleaseLock(ctx context.Context, name string) error {
	s.mu.Lock()
	s.locked = false
	s.mu.Unlock()
	return nil
}

func (s *fakeStore) CreateTables(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createCalls++
	if s.createErr != nil {
		return s.createErr
	}
	s.tables = true
	return nil
}

func (s *fakeStore) TablesExist(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tables, nil
}

func (s *fakeStore) lockHeld() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locked
}

func TestBootstrapMigratesAndVerifies(t *testing.T) {
	store := &fakeStore{}
	b := New(store, store, Options{LockWait: 100 * time.Millisecond, VerifyWait: 100 * time.Millisecond})
	require.Equal(t, StateNotStarted, b.State())

	require.NoError(t, b.Run(context.Background()))

	assert.Equal(t, StateVerified, b.State())
	assert.True(t, b.Verified())
	assert.Equal(t, 1, store.createCalls)
	assert.False(t, store.lockHeld(), "lock must be released after migration")
}

func TestBootstrapRidesOnCompletedMigration(t *testing.T) {
	// The lock is never granted, but another worker already created the
	// tables: this worker must still reach Verified without migrating.
	store := &fakeStore{denyLock: true, tables: true}
	b := New(store, store, Options{LockWait: 10 * time.Millisecond, VerifyWait: 100 * time.Millisecond})

	require.NoError(t, b.Run(context.Background()))

	assert.Equal(t, StateVerified, b.State())
	assert.Zero(t, store.createCalls)
}

func TestBootstrapLockTimeoutIsFatal(t *testing.T) {
	store := &fakeStore{denyLock: true}
	b := New(store, store, Options{LockWait: 10 * time.Millisecond, VerifyWait: 50 * time.Millisecond})

	err := b.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLockTimeout)
	assert.Equal(t, StateLockTimeout, b.State())
	assert.False(t, b.Verified())
}

func TestBootstrapAcquireErrorPropagates(t *testing.T) {
	storeErr := errors.New("store connection refused")
	store := &fakeStore{acquireErr: storeErr}
	b := New(store, store, Options{LockWait: 10 * time.Millisecond, VerifyWait: 50 * time.Millisecond})

	err := b.Run(context.Background())
	assert.ErrorIs(t, err, storeErr)
	assert.False(t, b.Verified())
}

func TestBootstrapReleasesLockOnMigrationFailure(t *testing.T) {
	store := &fakeStore{createErr: errors.New("create failed")}
	b := New(store, store, Options{LockWait: 100 * time.Millisecond, VerifyWait: 50 * time.Millisecond})

	err := b.Run(context.Background())
	require.Error(t, err)
	assert.False(t, store.lockHeld(), "lock must be released even when migration fails")
	assert.False(t, b.Verified())
}

func TestBootstrapConcurrentWorkersMigrateOnce(t *testing.T) {
	store := &fakeStore{}

	const workers = 4
	bs := make([]*Bootstrapper, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		bs[i] = New(store, store, Options{LockWait: time.Second, VerifyWait: time.Second})
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = bs[i].Run(context.Background())
		}(i)
	}
	wg.Wait()

	// Exactly one worker creates the tables; every worker ends Verified.
	assert.Equal(t, 1, store.createCalls)
	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i], "worker %d", i)
		assert.Equal(t, StateVerified, bs[i].State(), "worker %d", i)
	}
	assert.False(t, store.lockHeld())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "NotStarted", StateNotStarted.String())
	assert.Equal(t, "AcquiringLock", StateAcquiringLock.String())
	assert.Equal(t, "Migrating", StateMigrating.String())
	assert.Equal(t, "Verified", StateVerified.String())
	assert.Equal(t, "LockTimeout", StateLockTimeout.String())
}
