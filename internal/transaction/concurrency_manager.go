package transaction

import (
	"sync"

	"github.com/herondb/herondb/internal/file"
)

// ConcurrencyManager implements strict two-phase locking for one
// transaction. Each transaction has its own ConcurrencyManager; all of
// them share a single LockTable. Locks accumulate as the transaction
// runs and are released together at commit or rollback.
type ConcurrencyManager struct {
	lockTable *LockTable
	locks     map[blockKey]string // "S" for shared, "X" for exclusive
	mu        sync.Mutex
}

func NewConcurrencyManager(lockTable *LockTable) *ConcurrencyManager {
	return &ConcurrencyManager{
		lockTable: lockTable,
		locks:     make(map[blockKey]string),
	}
}

func (cm *ConcurrencyManager) sLock(block *file.BlockID) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	key := makeKey(block)

	// Any lock we already hold covers a read
	if _, exists := cm.locks[key]; exists {
		return nil
	}

	err := cm.lockTable.sLock(block)
	if err != nil {
		return err
	}

	cm.locks[key] = "S"
	return nil
}

func (cm *ConcurrencyManager) xLock(block *file.BlockID) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	key := makeKey(block)

	if cm.locks[key] == "X" {
		return nil
	}

	// The upgrade protocol requires holding a shared lock first; the
	// lock table then waits until we are the only sharer left.
	if _, exists := cm.locks[key]; !exists {
		err := cm.lockTable.sLock(block)
		if err != nil {
			return err
		}
		cm.locks[key] = "S"
	}

	err := cm.lockTable.xLock(block)
	if err != nil {
		return err
	}

	cm.locks[key] = "X"
	return nil
}

// release drops every lock this transaction holds.
func (cm *ConcurrencyManager) release() error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	for key := range cm.locks {
		block := file.NewBlockID(key.filename, key.blkNum)

		err := cm.lockTable.unlock(block)
		if err != nil {
			return err
		}
	}

	cm.locks = make(map[blockKey]string)

	return nil
}
