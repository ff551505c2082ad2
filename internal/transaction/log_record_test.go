package transaction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/herondb/herondb/internal/file"
)

func TestSetIntLogRecord_RoundTrip(t *testing.T) {
	env := newTestEnv(t)
	blk := file.NewBlockID("testfile", 3)

	_, err := WriteSetIntLogRecord(env.lm, 7, blk, 80, -42)
	require.NoError(t, err)

	record := latestRecord(t, env)
	setInt, ok := record.(*SetIntLogRecord)
	require.True(t, ok)

	assert.Equal(t, LogRecordSetInt, setInt.Op())
	assert.Equal(t, 7, setInt.TxNumber())
	assert.Equal(t, 80, setInt.offset)
	assert.Equal(t, -42, setInt.oldValue)
	assert.True(t, setInt.block.Equals(blk))
}

func TestSetStringLogRecord_RoundTrip(t *testing.T) {
	env := newTestEnv(t)
	blk := file.NewBlockID("testfile", 1)

	_, err := WriteSetStringLogRecord(env.lm, 2, blk, 40, "one")
	require.NoError(t, err)

	record := latestRecord(t, env)
	setString, ok := record.(*SetStringLogRecord)
	require.True(t, ok)

	assert.Equal(t, LogRecordSetString, setString.Op())
	assert.Equal(t, 2, setString.TxNumber())
	assert.Equal(t, 40, setString.offset)
	assert.Equal(t, "one", setString.oldValue)
	assert.True(t, setString.block.Equals(blk))
}

func TestLifecycleRecords_RoundTrip(t *testing.T) {
	env := newTestEnv(t)

	_, err := WriteStartLogRecord(env.lm, 5)
	require.NoError(t, err)
	record := latestRecord(t, env)
	assert.Equal(t, LogRecordStart, record.Op())
	assert.Equal(t, 5, record.TxNumber())

	_, err = WriteCommitLogRecord(env.lm, 5)
	require.NoError(t, err)
	record = latestRecord(t, env)
	assert.Equal(t, LogRecordCommit, record.Op())
	assert.Equal(t, 5, record.TxNumber())

	_, err = WriteRollbackLogRecord(env.lm, 5)
	require.NoError(t, err)
	record = latestRecord(t, env)
	assert.Equal(t, LogRecordRollback, record.Op())

	_, err = WriteCheckpointLogRecord(env.lm)
	require.NoError(t, err)
	record = latestRecord(t, env)
	assert.Equal(t, LogRecordCheckpoint, record.Op())
	assert.Equal(t, -1, record.TxNumber())
}

func TestCreateLogRecord_RejectsUnknownType(t *testing.T) {
	page := file.NewPage(8)
	page.SetInt(0, 99)

	_, err := CreateLogRecord(page.Bytes())
	assert.Error(t, err)
}

// latestRecord decodes the most recently appended log record.
func latestRecord(t *testing.T, env *testEnv) LogRecord {
	t.Helper()
	iter, err := env.lm.Iterator()
	require.NoError(t, err)
	require.True(t, iter.HasNext())

	bytes, err := iter.Next()
	require.NoError(t, err)
	record, err := CreateLogRecord(bytes)
	require.NoError(t, err)
	return record
}
