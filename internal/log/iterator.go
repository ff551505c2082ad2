package log

import "github.com/herondb/herondb/internal/file"

// LogIterator provides a way to iterate over log records.
// ITERATION STRATEGY:
// - Start at the current block's boundary (newest record in that block)
// - Read records moving toward blockSize (newest to oldest within block)
// - When block is exhausted, move to previous block and repeat
type LogIterator struct {
	fm         *file.Manager
	blk        *file.BlockID
	page       *file.Page
	currentPos int
	boundary   int
}

// NewLogIterator creates a new iterator for the log file, starting at the given block.
func NewLogIterator(fm *file.Manager, blk *file.BlockID) (*LogIterator, error) {
	it := &LogIterator{
		fm:   fm,
		blk:  blk,
		page: file.NewPage(fm.BlockSize()),
	}
	if err := it.moveToBlock(blk); err != nil {
		return nil, err
	}
	return it, nil
}

// HasNext returns true if there are more log records to read.
func (it *LogIterator) HasNext() bool {
	return it.currentPos < it.fm.BlockSize() || it.blk.Number() > 0
}

// Next returns the next log record, moving from the most recent record
// toward the oldest.
func (it *LogIterator) Next() ([]byte, error) {
	// If we've read all records in the current block, move to the previous block
	if it.currentPos >= it.fm.BlockSize() {
		it.blk = file.NewBlockID(it.blk.Filename(), it.blk.Number()-1)
		if err := it.moveToBlock(it.blk); err != nil {
			return nil, err
		}
	}

	// Read current record and advance position
	rec := it.page.GetBytes(it.currentPos)
	it.currentPos += 4 + len(rec) // Move past this record (4 bytes length + data)
	return rec, nil
}

// moveToBlock moves the iterator to the specified block and reads its contents.
func (it *LogIterator) moveToBlock(blk *file.BlockID) error {
	if err := it.fm.Read(blk, it.page); err != nil {
		return err
	}
	it.boundary = it.page.GetInt(0)
	// Start at the boundary (newest record)
	it.currentPos = it.boundary
	return nil
}
