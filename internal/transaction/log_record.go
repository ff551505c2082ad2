package transaction

import (
	"fmt"

	"github.com/herondb/herondb/internal/file"
)

type LogRecordType int

func LogRecordTypeSize() int {
	return 4
}

// Log operation type constants
const (
	LogRecordCheckpoint LogRecordType = 0
	LogRecordStart      LogRecordType = 1
	LogRecordCommit     LogRecordType = 2
	LogRecordRollback   LogRecordType = 3
	LogRecordSetInt     LogRecordType = 4
	LogRecordSetString  LogRecordType = 5
)

// LogRecord is one entry in the write-ahead log. SET records carry the
// pre-image of a change; Undo re-applies it through the given
// transaction with logging turned off.
type LogRecord interface {
	Op() LogRecordType
	TxNumber() int
	Undo(tx *Transaction) error
}

// CreateLogRecord decodes the record bytes into the correct LogRecord
// based on the operation type in the first field.
func CreateLogRecord(bytes []byte) (LogRecord, error) {
	page := file.NewPageFromBytes(bytes)

	op := page.GetInt(0)
	switch LogRecordType(op) {
	case LogRecordCheckpoint:
		return NewCheckpointLogRecord(page), nil
	case LogRecordStart:
		return NewStartLogRecord(page), nil
	case LogRecordCommit:
		return NewCommitLogRecord(page), nil
	case LogRecordRollback:
		return NewRollbackLogRecord(page), nil
	case LogRecordSetInt:
		return NewSetIntLogRecord(page), nil
	case LogRecordSetString:
		return NewSetStringLogRecord(page), nil
	default:
		return nil, fmt.Errorf("invalid log record type %d", op)
	}
}
