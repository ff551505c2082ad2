package transaction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/herondb/herondb/internal/file"
)

func TestRollback_RestoresPreImages(t *testing.T) {
	env := newTestEnv(t)
	block := file.NewBlockID("testfile", 0)

	// Committed baseline
	tx1 := env.newTx(t)
	_, err := tx1.Pin(block)
	require.NoError(t, err)
	require.NoError(t, tx1.SetInt(block, 80, 7, true))
	require.NoError(t, tx1.SetString(block, 40, "old", true))
	require.NoError(t, tx1.Commit())

	// tx2 scribbles over both values, then rolls back
	tx2 := env.newTx(t)
	_, err = tx2.Pin(block)
	require.NoError(t, err)
	require.NoError(t, tx2.SetInt(block, 80, 9, true))
	require.NoError(t, tx2.SetString(block, 40, "new", true))
	require.NoError(t, tx2.SetInt(block, 80, 10, true))
	require.NoError(t, tx2.Rollback())

	// Every byte tx2 touched is back to the committed state
	tx3 := env.newTx(t)
	_, err = tx3.Pin(block)
	require.NoError(t, err)
	intVal, err := tx3.GetInt(block, 80)
	require.NoError(t, err)
	strVal, err := tx3.GetString(block, 40)
	require.NoError(t, err)
	assert.Equal(t, 7, intVal)
	assert.Equal(t, "old", strVal)
	require.NoError(t, tx3.Commit())
}

// The crash scenario: an uncommitted change reaches disk, the process
// dies, and recovery on a fresh set of managers puts the pre-image back.
func TestRecover_UndoesUncommittedChanges(t *testing.T) {
	dir := t.TempDir()
	env := newTestEnvAt(t, dir, 10)
	block := file.NewBlockID("testfile", 0)

	tx1 := env.newTx(t)
	_, err := tx1.Pin(block)
	require.NoError(t, err)
	require.NoError(t, tx1.SetInt(block, 80, 7, true))
	require.NoError(t, tx1.Commit())

	// tx2 writes 9 but never commits; the dirty page is forced out, as
	// an eviction would
	tx2 := env.newTx(t)
	_, err = tx2.Pin(block)
	require.NoError(t, err)
	require.NoError(t, tx2.SetInt(block, 80, 9, true))
	require.NoError(t, env.bm.FlushAll(tx2.TxNum()))

	// Crash: the buffer pool, lock table, and counter are lost; only
	// the files survive
	env2 := newTestEnvAt(t, dir, 10)

	recoveryTx := env2.newTx(t)
	maxTxNum, err := recoveryTx.Recover()
	require.NoError(t, err)
	assert.Equal(t, tx2.TxNum(), maxTxNum, "Recovery reports the highest tx number in the log")
	require.NoError(t, recoveryTx.Commit())

	// The uncommitted write is gone
	tx := env2.newTx(t)
	_, err = tx.Pin(block)
	require.NoError(t, err)
	val, err := tx.GetInt(block, 80)
	require.NoError(t, err)
	assert.Equal(t, 7, val)
	require.NoError(t, tx.Commit())
}

func TestRecover_StopsAtCheckpoint(t *testing.T) {
	dir := t.TempDir()
	env := newTestEnvAt(t, dir, 10)
	block := file.NewBlockID("testfile", 0)

	tx1 := env.newTx(t)
	_, err := tx1.Pin(block)
	require.NoError(t, err)
	require.NoError(t, tx1.SetInt(block, 80, 7, true))
	require.NoError(t, tx1.Commit())

	// tx2's write reaches disk without a commit, then a checkpoint
	// declares everything before it settled
	tx2 := env.newTx(t)
	_, err = tx2.Pin(block)
	require.NoError(t, err)
	require.NoError(t, tx2.SetInt(block, 80, 9, true))
	require.NoError(t, env.bm.FlushAll(tx2.TxNum()))
	lsn, err := WriteCheckpointLogRecord(env.lm)
	require.NoError(t, err)
	require.NoError(t, env.lm.Flush(lsn))

	// Recovery after a crash stops at the checkpoint, so tx2's write
	// is left in place even though no commit record follows it
	env2 := newTestEnvAt(t, dir, 10)
	recoveryTx := env2.newTx(t)
	maxTxNum, err := recoveryTx.Recover()
	require.NoError(t, err)
	assert.Equal(t, recoveryTx.TxNum(), maxTxNum, "Nothing beyond the checkpoint is scanned")
	require.NoError(t, recoveryTx.Commit())

	tx := env2.newTx(t)
	_, err = tx.Pin(block)
	require.NoError(t, err)
	val, err := tx.GetInt(block, 80)
	require.NoError(t, err)
	assert.Equal(t, 9, val)
	require.NoError(t, tx.Commit())
}

func TestTxNumberSource_Reseed(t *testing.T) {
	src := NewTxNumberSource()
	assert.Equal(t, 1, src.Next())
	assert.Equal(t, 2, src.Next())

	src.Reseed(10)
	assert.Equal(t, 11, src.Next())

	// Reseeding backwards is ignored
	src.Reseed(3)
	assert.Equal(t, 12, src.Next())
}
