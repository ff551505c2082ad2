package transaction

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/herondb/herondb/internal/file"
)

var ErrLockAbort = errors.New("lock abort")
var ErrLockDoesNotExist = errors.New("lock does not exist")

// DefaultMaxWait is how long a lock request waits before aborting.
// The timeout doubles as the deadlock-avoidance mechanism.
const DefaultMaxWait = 10 * time.Second

type blockKey struct {
	filename string
	blkNum   int
}

func makeKey(block *file.BlockID) blockKey {
	return blockKey{
		filename: block.Filename(),
		blkNum:   block.Number(),
	}
}

// LockTable is the process-wide table of block locks.
// The state per block is a single integer: 0 or absent means free,
// a positive value counts shared holders, and -1 marks one exclusive
// holder.
type LockTable struct {
	locks   map[blockKey]int
	waiters map[blockKey]chan struct{}
	maxWait time.Duration
	mu      sync.Mutex
}

func NewLockTable(maxWait time.Duration) *LockTable {
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}
	return &LockTable{
		locks:   make(map[blockKey]int),
		waiters: make(map[blockKey]chan struct{}),
		maxWait: maxWait,
	}
}

// sLock acquires a shared lock on the block, waiting while an exclusive
// lock is held. Returns ErrLockAbort if the wait exceeds maxWait.
func (lt *LockTable) sLock(block *file.BlockID) error {
	key := makeKey(block)
	deadline := time.Now().Add(lt.maxWait)

	for {
		lt.mu.Lock()
		if lt.locks[key] != -1 {
			lt.locks[key]++
			lt.mu.Unlock()
			return nil
		}

		waiter := lt.waiterChan(key)
		lt.mu.Unlock()

		log.Debug().Str("block", block.String()).Msg("waiting for S lock")
		if err := waitForNotify(waiter, deadline); err != nil {
			log.Debug().Str("block", block.String()).Msg("S lock wait timed out")
			return err
		}
	}
}

// xLock upgrades the caller's shared lock to exclusive. The caller must
// already hold a shared lock, so the grant condition is that no other
// sharer remains: the count is exactly 1 (just the caller). Returns
// ErrLockAbort if the wait exceeds maxWait.
func (lt *LockTable) xLock(block *file.BlockID) error {
	key := makeKey(block)
	deadline := time.Now().Add(lt.maxWait)

	for {
		lt.mu.Lock()
		if lt.locks[key] == 1 {
			lt.locks[key] = -1
			lt.mu.Unlock()
			return nil
		}

		waiter := lt.waiterChan(key)
		lt.mu.Unlock()

		log.Debug().Str("block", block.String()).Msg("waiting for X lock")
		if err := waitForNotify(waiter, deadline); err != nil {
			log.Debug().Str("block", block.String()).Msg("X lock wait timed out")
			return err
		}
	}
}

// unlock releases one hold on the block: the exclusive lock or the last
// shared lock removes the entry, otherwise the sharer count drops by
// one. All waiters are woken either way, since an upgrader may be
// waiting for the sharer count to reach one.
func (lt *LockTable) unlock(block *file.BlockID) error {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	key := makeKey(block)
	val, exists := lt.locks[key]

	switch {
	case !exists:
		return ErrLockDoesNotExist
	case val == -1 || val == 1:
		delete(lt.locks, key)
	case val > 1:
		lt.locks[key]--
	default:
		return ErrLockDoesNotExist
	}

	lt.notifyAll(key)
	return nil
}

// waiterChan returns the notification channel for the block, creating
// it if needed. Must be called with the mutex held.
func (lt *LockTable) waiterChan(key blockKey) chan struct{} {
	ch, ok := lt.waiters[key]
	if !ok {
		ch = make(chan struct{})
		lt.waiters[key] = ch
	}
	return ch
}

// notifyAll wakes every goroutine waiting on the block by closing the
// current notification channel. Must be called with the mutex held.
func (lt *LockTable) notifyAll(key blockKey) {
	if ch, ok := lt.waiters[key]; ok {
		close(ch)
		delete(lt.waiters, key)
	}
}

// waitForNotify blocks until the waiter channel is closed or the
// deadline passes.
func waitForNotify(waiter <-chan struct{}, deadline time.Time) error {
	timeout := time.Until(deadline)
	if timeout <= 0 {
		return ErrLockAbort
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-waiter:
		return nil
	case <-timer.C:
		return ErrLockAbort
	}
}

// HasXLock returns true if the block has an exclusive lock
func (lt *LockTable) HasXLock(block *file.BlockID) bool {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	return lt.locks[makeKey(block)] == -1
}

// HasSLock returns true if the block has one or more shared locks
func (lt *LockTable) HasSLock(block *file.BlockID) bool {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	return lt.locks[makeKey(block)] > 0
}
