package transaction

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/herondb/herondb/internal/buffer"
	"github.com/herondb/herondb/internal/file"
	dblog "github.com/herondb/herondb/internal/log"
)

// Transaction provides ACID access to blocks. It composes a
// ConcurrencyManager (strict 2PL over the shared lock table), a
// RecoveryManager (write-ahead logging and undo), and a BufferList
// (the buffers this transaction has pinned).
//
// A Transaction is not safe for concurrent use; each one must be driven
// by a single goroutine. The managers it is built on are shared and
// synchronize internally.
type Transaction struct {
	fileManager        *file.Manager
	logManager         *dblog.Manager
	bufferManager      *buffer.Manager
	recoveryManager    *RecoveryManager
	concurrencyManager *ConcurrencyManager

	txNum      int
	bufferList *BufferList
}

// NewTransaction creates a new transaction. Its Start record is
// appended to the log immediately.
func NewTransaction(fileManager *file.Manager, logManager *dblog.Manager, bufferManager *buffer.Manager, lockTable *LockTable, txNums *TxNumberSource) (*Transaction, error) {
	txNum := txNums.Next()

	t := &Transaction{
		fileManager:        fileManager,
		logManager:         logManager,
		bufferManager:      bufferManager,
		concurrencyManager: NewConcurrencyManager(lockTable),
		txNum:              txNum,
		bufferList:         NewBufferList(bufferManager),
	}

	recoveryManager, err := NewRecoveryManager(txNum, t, logManager, bufferManager)
	if err != nil {
		return nil, fmt.Errorf("tx %d: writing start record: %w", txNum, err)
	}
	t.recoveryManager = recoveryManager

	return t, nil
}

// TxNum returns this transaction's number.
func (t *Transaction) TxNum() int {
	return t.txNum
}

// Commit makes the transaction's changes durable, releases its locks,
// and unpins its buffers.
func (t *Transaction) Commit() error {
	err := t.recoveryManager.Commit()
	if err != nil {
		return fmt.Errorf("tx %d: commit: %w", t.txNum, err)
	}
	err = t.concurrencyManager.release()
	if err != nil {
		return fmt.Errorf("tx %d: releasing locks: %w", t.txNum, err)
	}
	t.bufferList.UnpinAll()
	log.Info().Int("tx", t.txNum).Msg("transaction committed")
	return nil
}

// Rollback undoes the transaction's changes, releases its locks, and
// unpins its buffers.
func (t *Transaction) Rollback() error {
	err := t.recoveryManager.Rollback()
	if err != nil {
		return fmt.Errorf("tx %d: rollback: %w", t.txNum, err)
	}
	err = t.concurrencyManager.release()
	if err != nil {
		return fmt.Errorf("tx %d: releasing locks: %w", t.txNum, err)
	}
	t.bufferList.UnpinAll()
	log.Info().Int("tx", t.txNum).Msg("transaction rolled back")
	return nil
}

// Recover restores the database to a state reflecting only committed
// transactions. It is run on a fresh transaction at startup. The
// highest transaction number found in the log is returned so the
// caller can reseed its counter.
func (t *Transaction) Recover() (int, error) {
	err := t.bufferManager.FlushAll(t.txNum)
	if err != nil {
		return 0, fmt.Errorf("tx %d: recover: %w", t.txNum, err)
	}
	maxTxNum, err := t.recoveryManager.Recover()
	if err != nil {
		return 0, fmt.Errorf("tx %d: recover: %w", t.txNum, err)
	}
	log.Info().Int("tx", t.txNum).Int("maxTxSeen", maxTxNum).Msg("recovery complete")
	return maxTxNum, nil
}

// Pin pins the block on behalf of this transaction and returns its
// buffer.
func (t *Transaction) Pin(blk *file.BlockID) (*buffer.Buffer, error) {
	buff, err := t.bufferList.Pin(blk)
	if err != nil {
		return nil, fmt.Errorf("tx %d: pin %v: %w", t.txNum, blk, err)
	}
	return buff, nil
}

// Unpin releases one pin on the block.
func (t *Transaction) Unpin(blk *file.BlockID) {
	t.bufferList.Unpin(blk)
}

// GetInt reads the integer at the given offset of the block, which must
// be pinned. A shared lock is acquired first.
func (t *Transaction) GetInt(blk *file.BlockID, offset int) (int, error) {
	err := t.concurrencyManager.sLock(blk)
	if err != nil {
		return 0, fmt.Errorf("tx %d: slock %v: %w", t.txNum, blk, err)
	}
	buff := t.bufferList.GetBuffer(blk)
	return buff.Contents().GetInt(offset), nil
}

// GetString reads the string at the given offset of the block, which
// must be pinned. A shared lock is acquired first.
func (t *Transaction) GetString(blk *file.BlockID, offset int) (string, error) {
	err := t.concurrencyManager.sLock(blk)
	if err != nil {
		return "", fmt.Errorf("tx %d: slock %v: %w", t.txNum, blk, err)
	}
	buff := t.bufferList.GetBuffer(blk)
	return buff.Contents().GetString(offset), nil
}

// SetInt writes an integer at the given offset of the block under an
// exclusive lock. When okToLog is set the pre-image goes to the log
// first; undo passes it as false so restoring old values leaves no
// trace.
func (t *Transaction) SetInt(blk *file.BlockID, offset int, val int, okToLog bool) error {
	err := t.concurrencyManager.xLock(blk)
	if err != nil {
		return fmt.Errorf("tx %d: xlock %v: %w", t.txNum, blk, err)
	}
	buff := t.bufferList.GetBuffer(blk)
	lsn := -1
	if okToLog {
		lsn, err = t.recoveryManager.SetInt(buff, offset)
		if err != nil {
			return fmt.Errorf("tx %d: logging setint: %w", t.txNum, err)
		}
	}
	buff.Contents().SetInt(offset, val)
	buff.SetModified(t.txNum, lsn)
	return nil
}

// SetString writes a string at the given offset of the block under an
// exclusive lock. When okToLog is set the pre-image goes to the log
// first.
func (t *Transaction) SetString(blk *file.BlockID, offset int, val string, okToLog bool) error {
	err := t.concurrencyManager.xLock(blk)
	if err != nil {
		return fmt.Errorf("tx %d: xlock %v: %w", t.txNum, blk, err)
	}
	buff := t.bufferList.GetBuffer(blk)
	lsn := -1
	if okToLog {
		lsn, err = t.recoveryManager.SetString(buff, offset)
		if err != nil {
			return fmt.Errorf("tx %d: logging setstring: %w", t.txNum, err)
		}
	}
	buff.Contents().SetString(offset, val)
	buff.SetModified(t.txNum, lsn)
	return nil
}

// Size returns the number of blocks in the file, under a shared lock on
// the file's end-of-file sentinel.
func (t *Transaction) Size(filename string) (int, error) {
	eofBlock := file.NewBlockID(filename, file.EndOfFile)
	err := t.concurrencyManager.sLock(eofBlock)
	if err != nil {
		return 0, fmt.Errorf("tx %d: slock %v: %w", t.txNum, eofBlock, err)
	}
	return t.fileManager.Length(filename)
}

// Append extends the file by one block, under an exclusive lock on the
// file's end-of-file sentinel.
func (t *Transaction) Append(filename string) (*file.BlockID, error) {
	eofBlock := file.NewBlockID(filename, file.EndOfFile)
	err := t.concurrencyManager.xLock(eofBlock)
	if err != nil {
		return nil, fmt.Errorf("tx %d: xlock %v: %w", t.txNum, eofBlock, err)
	}
	return t.fileManager.Append(filename)
}

// BlockSize returns the engine's block size.
func (t *Transaction) BlockSize() int {
	return t.fileManager.BlockSize()
}

// AvailableBuffs returns the number of unpinned frames in the pool.
func (t *Transaction) AvailableBuffs() int {
	return t.bufferManager.Available()
}
