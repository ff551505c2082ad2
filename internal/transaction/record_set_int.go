package transaction

import (
	"github.com/herondb/herondb/internal/file"
	"github.com/herondb/herondb/internal/log"
)

type SetIntLogRecord struct {
	txNum    int
	offset   int
	oldValue int
	block    *file.BlockID
}

// NewSetIntLogRecord creates a new SetIntLogRecord
// Page format: [op(4)] [txNum(4)] [filename(4+len(filename))] [blockNum(4)] [offset(4)] [oldValue(4)]
func NewSetIntLogRecord(page *file.Page) *SetIntLogRecord {
	opPos := 0
	txNumPos := opPos + LogRecordTypeSize()
	txNum := page.GetInt(txNumPos)

	fileNamePos := txNumPos + 4
	fileName := page.GetString(fileNamePos)

	blockNumPos := fileNamePos + file.MaxLength(len(fileName))
	blockNum := page.GetInt(blockNumPos)

	offsetPos := blockNumPos + 4
	offset := page.GetInt(offsetPos)

	oldValuePos := offsetPos + 4
	oldValue := page.GetInt(oldValuePos)

	return &SetIntLogRecord{
		txNum:    txNum,
		offset:   offset,
		oldValue: oldValue,
		block:    file.NewBlockID(fileName, blockNum),
	}
}

// Op returns the operation type for this log record
func (s *SetIntLogRecord) Op() LogRecordType {
	return LogRecordSetInt
}

// TxNumber returns the transaction number associated with this log record
func (s *SetIntLogRecord) TxNumber() int {
	return s.txNum
}

// Undo restores the pre-image at the recorded offset. The write goes
// through the transaction's own pin/set path with logging off, so the
// undo itself generates no log records.
func (s *SetIntLogRecord) Undo(tx *Transaction) error {
	_, err := tx.Pin(s.block)
	if err != nil {
		return err
	}
	err = tx.SetInt(s.block, s.offset, s.oldValue, false)
	if err != nil {
		return err
	}
	tx.Unpin(s.block)
	return nil
}

// WriteSetIntLogRecord writes a SetIntLogRecord to the log manager
func WriteSetIntLogRecord(lm *log.Manager, txNum int, blk *file.BlockID, offset int, oldValue int) (int, error) {
	opPos := 0
	txNumPos := opPos + LogRecordTypeSize()
	fileNamePos := txNumPos + 4
	blockNumPos := fileNamePos + file.MaxLength(len(blk.Filename()))
	offsetPos := blockNumPos + 4
	oldValuePos := offsetPos + 4
	finalLen := oldValuePos + 4

	page := file.NewPage(finalLen)
	page.SetInt(opPos, int(LogRecordSetInt))
	page.SetInt(txNumPos, txNum)
	page.SetString(fileNamePos, blk.Filename())
	page.SetInt(blockNumPos, blk.Number())
	page.SetInt(offsetPos, offset)
	page.SetInt(oldValuePos, oldValue)

	return lm.Append(page.Bytes())
}
