package transaction

import (
	"slices"

	"github.com/herondb/herondb/internal/buffer"
	"github.com/herondb/herondb/internal/log"
)

// RecoveryManager implements undo-only recovery with force-at-commit.
// Each transaction has a RecoveryManager; all of them share a single
// log manager and buffer manager. The engine itself uses one on a fresh
// transaction to recover after a crash.
type RecoveryManager struct {
	txNum         int
	transaction   *Transaction
	logManager    *log.Manager
	bufferManager *buffer.Manager
}

// NewRecoveryManager creates the recovery manager for a transaction and
// appends its Start record.
func NewRecoveryManager(txNum int, transaction *Transaction, logManager *log.Manager, bufferManager *buffer.Manager) (*RecoveryManager, error) {
	_, err := WriteStartLogRecord(logManager, txNum)
	if err != nil {
		return nil, err
	}
	return &RecoveryManager{
		txNum:         txNum,
		transaction:   transaction,
		logManager:    logManager,
		bufferManager: bufferManager,
	}, nil
}

// Commit makes the transaction durable: modified buffers are written
// out, a Commit record is appended, and the log is forced through it.
// Once the force completes the outcome survives any crash.
func (rm *RecoveryManager) Commit() error {
	err := rm.bufferManager.FlushAll(rm.txNum)
	if err != nil {
		return err
	}
	lsn, err := WriteCommitLogRecord(rm.logManager, rm.txNum)
	if err != nil {
		return err
	}
	return rm.logManager.Flush(lsn)
}

// Rollback undoes every change the transaction made, then appends and
// forces a Rollback record.
func (rm *RecoveryManager) Rollback() error {
	err := rm.doRollback()
	if err != nil {
		return err
	}
	err = rm.bufferManager.FlushAll(rm.txNum)
	if err != nil {
		return err
	}
	lsn, err := WriteRollbackLogRecord(rm.logManager, rm.txNum)
	if err != nil {
		return err
	}
	return rm.logManager.Flush(lsn)
}

// Recover undoes the changes of every transaction that has neither a
// Commit nor a Rollback record in the log, then appends and forces a
// quiescent Checkpoint. It returns the highest transaction number seen
// in the log so the engine can reseed its transaction counter.
func (rm *RecoveryManager) Recover() (int, error) {
	maxTxNum, err := rm.doRecovery()
	if err != nil {
		return 0, err
	}
	err = rm.bufferManager.FlushAll(rm.txNum)
	if err != nil {
		return 0, err
	}
	lsn, err := WriteCheckpointLogRecord(rm.logManager)
	if err != nil {
		return 0, err
	}
	return maxTxNum, rm.logManager.Flush(lsn)
}

// SetInt logs an integer modification before it occurs.
// It reads the current value from the buffer at the specified offset,
// writes a SetInt log record carrying that pre-image, and returns the
// record's LSN.
func (rm *RecoveryManager) SetInt(buf *buffer.Buffer, offset int) (int, error) {
	oldVal := buf.Contents().GetInt(offset)
	return WriteSetIntLogRecord(rm.logManager, rm.txNum, buf.Block(), offset, oldVal)
}

// SetString logs a string modification before it occurs.
// It reads the current value from the buffer at the specified offset,
// writes a SetString log record carrying that pre-image, and returns
// the record's LSN.
func (rm *RecoveryManager) SetString(buf *buffer.Buffer, offset int) (int, error) {
	oldVal := buf.Contents().GetString(offset)
	return WriteSetStringLogRecord(rm.logManager, rm.txNum, buf.Block(), offset, oldVal)
}

// doRollback scans the log backwards and undoes each record belonging
// to this transaction, stopping at the transaction's Start record.
func (rm *RecoveryManager) doRollback() error {
	iter, err := rm.logManager.Iterator()
	if err != nil {
		return err
	}

	for iter.HasNext() {
		logBytes, err := iter.Next()
		if err != nil {
			return err
		}
		record, err := CreateLogRecord(logBytes)
		if err != nil {
			return err
		}

		if record.TxNumber() == rm.txNum {
			if record.Op() == LogRecordStart {
				break
			}
			err = record.Undo(rm.transaction)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// doRecovery reads the log backwards and undoes the records of every
// unfinished transaction. It stops at the start of the log or at a
// Checkpoint record, before which everything is settled.
func (rm *RecoveryManager) doRecovery() (int, error) {
	finishedTxs := []int{}
	maxTxNum := 0

	iter, err := rm.logManager.Iterator()
	if err != nil {
		return 0, err
	}

	for iter.HasNext() {
		logBytes, err := iter.Next()
		if err != nil {
			return 0, err
		}
		record, err := CreateLogRecord(logBytes)
		if err != nil {
			return 0, err
		}

		if record.Op() == LogRecordCheckpoint {
			return maxTxNum, nil
		}

		if record.TxNumber() > maxTxNum {
			maxTxNum = record.TxNumber()
		}

		if record.Op() == LogRecordCommit || record.Op() == LogRecordRollback {
			finishedTxs = append(finishedTxs, record.TxNumber())
		}

		if !slices.Contains(finishedTxs, record.TxNumber()) {
			err = record.Undo(rm.transaction)
			if err != nil {
				return 0, err
			}
		}
	}
	return maxTxNum, nil
}
