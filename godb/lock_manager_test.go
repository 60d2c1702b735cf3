package godb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockManagerSharedLocksCoexist(t *testing.T) {
	lm := NewLockManager()
	pid := PageID{TableID: 1, PageNumber: 0}

	require.NoError(t, lm.acquire(1, pid, Shared))
	require.NoError(t, lm.acquire(2, pid, Shared))
	assert.True(t, lm.holdsLock(1, pid))
	assert.True(t, lm.holdsLock(2, pid))
}

func TestLockManagerExclusiveBlocksShared(t *testing.T) {
	lm := NewLockManager()
	pid := PageID{TableID: 1, PageNumber: 0}
	require.NoError(t, lm.acquire(1, pid, Exclusive))

	granted := make(chan error, 1)
	go func() { granted <- lm.acquire(2, pid, Shared) }()

	select {
	case <-granted:
		t.Fatal("shared lock should not be granted while exclusive is held")
	case <-time.After(50 * time.Millisecond):
	}

	lm.release(1, pid, true)
	select {
	case err := <-granted:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("shared lock was never granted after release")
	}
}

func TestLockManagerReentryIsNoop(t *testing.T) {
	lm := NewLockManager()
	pid := PageID{TableID: 1, PageNumber: 0}
	require.NoError(t, lm.acquire(1, pid, Shared))
	require.NoError(t, lm.acquire(1, pid, Shared))
	require.NoError(t, lm.acquire(1, pid, Exclusive))
	require.NoError(t, lm.acquire(1, pid, Exclusive))
}

func TestLockManagerUpgradeWaitsForSoleSharedHolder(t *testing.T) {
	lm := NewLockManager()
	pid := PageID{TableID: 1, PageNumber: 0}
	require.NoError(t, lm.acquire(1, pid, Shared))
	require.NoError(t, lm.acquire(2, pid, Shared))

	upgraded := make(chan error, 1)
	go func() { upgraded <- lm.acquire(1, pid, Exclusive) }()

	select {
	case <-upgraded:
		t.Fatal("upgrade should block while another transaction holds shared")
	case <-time.After(50 * time.Millisecond):
	}

	lm.release(2, pid, true)
	select {
	case err := <-upgraded:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("upgrade never granted once sole shared holder")
	}
}

func TestLockManagerDeadlockDetected(t *testing.T) {
	lm := NewLockManager()
	p1 := PageID{TableID: 1, PageNumber: 0}
	p2 := PageID{TableID: 1, PageNumber: 1}

	require.NoError(t, lm.acquire(1, p1, Shared))
	require.NoError(t, lm.acquire(2, p2, Shared))

	done1 := make(chan error, 1)
	go func() { done1 <- lm.acquire(1, p2, Exclusive) }()

	// Give T1's wait-for edge time to register before T2 requests p1.
	time.Sleep(20 * time.Millisecond)
	err := lm.acquire(2, p1, Exclusive)

	if err != nil {
		gerr, ok := err.(GoDBError)
		require.True(t, ok)
		assert.Equal(t, DeadlockError, gerr.Code)

		// Unblock T1's still-pending upgrade so its goroutine doesn't leak.
		lm.release(2, p2, true)
		select {
		case err1 := <-done1:
			require.NoError(t, err1)
		case <-time.After(time.Second):
			t.Fatal("T1 should complete once T2 releases its shared hold")
		}
		return
	}

	// T2's request was granted (not yet cyclic); T1's must then deadlock.
	select {
	case err1 := <-done1:
		require.Error(t, err1)
	case <-time.After(time.Second):
		t.Fatal("expected one of the two upgrade requests to deadlock")
	}
}

func TestLockManagerReleaseAllClearsState(t *testing.T) {
	lm := NewLockManager()
	p1 := PageID{TableID: 1, PageNumber: 0}
	p2 := PageID{TableID: 1, PageNumber: 1}
	require.NoError(t, lm.acquire(5, p1, Shared))
	require.NoError(t, lm.acquire(5, p2, Exclusive))

	lm.releaseAll(5)
	assert.False(t, lm.holdsLock(5, p1))
	assert.False(t, lm.holdsLock(5, p2))
	assert.Nil(t, lm.pagesHeld(5))
}
