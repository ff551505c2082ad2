package log

import (
	"errors"
	"sync"

	"github.com/herondb/herondb/internal/file"
)

// Manager manages the log file for the database.
// It provides methods to append log records and iterate over them.
type Manager struct {
	fileManager  *file.Manager
	logFilename  string
	logPage      *file.Page
	currentBlk   *file.BlockID
	latestLSN    int
	lastSavedLSN int
	mu           sync.Mutex
}

// NewManager creates a new log manager.
// The log manager maintains a single "current block" where new records are appended.
// If the log file is empty, it creates and initializes the first block.
// If the log file exists, it uses the last block as the current block.
//
// Block initialization:
//   - New blocks have boundary set to blockSize (indicating completely empty)
//   - Existing blocks are read to get their current state (boundary + existing records)
func NewManager(fm *file.Manager, logFilename string) (*Manager, error) {
	logPage := file.NewPage(fm.BlockSize())

	logSize, err := fm.Length(logFilename)
	if err != nil {
		return nil, errors.New("not able to get size of log file: " + err.Error())
	}

	var currentBlk *file.BlockID

	if logSize == 0 {
		currentBlk, err = appendNewBlock(fm, logFilename, logPage)
		if err != nil {
			return nil, err
		}
	} else {
		// Blocks are zero-indexed, so the last existing block is logSize-1.
		// That block becomes the current log block for appending new records.
		currentBlk = file.NewBlockID(logFilename, logSize-1)
		err = fm.Read(currentBlk, logPage)
		if err != nil {
			return nil, errors.New("not able to read last block from log file: " + err.Error())
		}
	}

	return &Manager{
		fileManager:  fm,
		logFilename:  logFilename,
		logPage:      logPage,
		currentBlk:   currentBlk,
		latestLSN:    0,
		lastSavedLSN: 0,
	}, nil
}

// appendNewBlock extends the log file by one block whose boundary is set
// to blockSize, marking it completely empty.
func appendNewBlock(fm *file.Manager, logFilename string, logPage *file.Page) (*file.BlockID, error) {
	blk, err := fm.Append(logFilename)
	if err != nil {
		return nil, errors.New("not able to append block to log file: " + err.Error())
	}
	logPage.SetInt(0, fm.BlockSize())
	err = fm.Write(blk, logPage)
	if err != nil {
		return nil, errors.New("not able to write block to log file: " + err.Error())
	}
	return blk, nil
}

// Close flushes the log and closes any open resources.
func (lm *Manager) Close() error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	return lm.flush()
}

// Flush forces the current log page to disk if the given LSN has not
// been saved yet.
func (lm *Manager) Flush(lsn int) error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if lsn >= lm.lastSavedLSN {
		return lm.flush()
	}
	return nil
}

// Iterator returns an iterator over the log records from most recent to
// oldest. The log is flushed first so the iterator sees every record.
func (lm *Manager) Iterator() (*LogIterator, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	err := lm.flush()
	if err != nil {
		return nil, errors.New("not able to flush log page to disk: " + err.Error())
	}
	return NewLogIterator(lm.fileManager, lm.currentBlk)
}

// flush is an internal method that writes the current log page to disk.
// It assumes that the mutex is already locked.
func (lm *Manager) flush() error {
	err := lm.fileManager.Write(lm.currentBlk, lm.logPage)
	if err != nil {
		return errors.New("not able to write log page to disk: " + err.Error())
	}
	lm.lastSavedLSN = lm.latestLSN
	return nil
}

// Append adds a new log record to the log file.
// It returns the LSN assigned to this record. The record is not forced
// to disk; call Flush with the returned LSN for that.
//
// Block Layout:
//
//	[0-3]: boundary pointer (4 bytes) - points to start of used space (where records begin)
//	[4 to boundary-1]: free space
//	[boundary to blockSize-1]: log records (newest at boundary, oldest at end)
//
// Records grow downward from the boundary. When a record does not fit in
// the space between offset 4 and the boundary, the current block is
// flushed and a fresh block is started.
func (lm *Manager) Append(logrec []byte) (int, error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	boundary := lm.logPage.GetInt(0)
	bytesNeeded := len(logrec) + 4

	// The record must fit entirely within [4, boundary] in the current
	// block, leaving the boundary slot itself intact.
	if boundary-bytesNeeded < 4 {
		err := lm.flush()
		if err != nil {
			return 0, err
		}

		lm.currentBlk, err = appendNewBlock(lm.fileManager, lm.logFilename, lm.logPage)
		if err != nil {
			return 0, err
		}

		boundary = lm.logPage.GetInt(0)
	}

	// Records grow downward from the boundary
	recpos := boundary - bytesNeeded
	lm.logPage.SetBytes(recpos, logrec)

	// The new boundary marks the start of used space
	lm.logPage.SetInt(0, recpos)
	lm.latestLSN++

	return lm.latestLSN, nil
}
