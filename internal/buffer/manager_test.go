package buffer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/herondb/herondb/internal/file"
	dblog "github.com/herondb/herondb/internal/log"
)

func newTestPool(t *testing.T, numBuffs int, maxWait time.Duration) (*file.Manager, *Manager) {
	t.Helper()
	fm, err := file.NewManager(t.TempDir(), 400)
	require.NoError(t, err)
	t.Cleanup(func() { fm.Close() })

	lm, err := dblog.NewManager(fm, "test.log")
	require.NoError(t, err)

	bm, err := NewManager(fm, lm, numBuffs, maxWait)
	require.NoError(t, err)
	return fm, bm
}

func TestManager_PinAndAvailable(t *testing.T) {
	_, bm := newTestPool(t, 3, DefaultMaxWait)

	assert.Equal(t, 3, bm.Available())

	blk := file.NewBlockID("testfile", 0)
	buff, err := bm.Pin(blk)
	require.NoError(t, err)
	assert.Equal(t, 2, bm.Available())

	// Pinning the same block again reuses the frame
	buff2, err := bm.Pin(blk)
	require.NoError(t, err)
	assert.Same(t, buff, buff2)
	assert.Equal(t, 2, bm.Available())

	bm.Unpin(buff)
	assert.Equal(t, 2, bm.Available(), "Frame is still pinned once")
	bm.Unpin(buff2)
	assert.Equal(t, 3, bm.Available())
}

func TestManager_EvictionWritesDirtyPage(t *testing.T) {
	_, bm := newTestPool(t, 1, DefaultMaxWait)

	blkA := file.NewBlockID("testfile", 0)
	blkB := file.NewBlockID("testfile", 1)

	// Write to page A and unpin it
	buff, err := bm.Pin(blkA)
	require.NoError(t, err)
	buff.Contents().SetString(0, "hello")
	buff.SetModified(1, -1)
	bm.Unpin(buff)

	// Pinning B takes the only frame, flushing A to disk first
	buff, err = bm.Pin(blkB)
	require.NoError(t, err)
	buff.Contents().SetString(0, "world")
	buff.SetModified(1, -1)
	bm.Unpin(buff)

	// Fetching A again reads the flushed contents back
	buff, err = bm.Pin(blkA)
	require.NoError(t, err)
	assert.Equal(t, "hello", buff.Contents().GetString(0))
	bm.Unpin(buff)
}

func TestManager_PinTimesOutWhenPoolExhausted(t *testing.T) {
	_, bm := newTestPool(t, 1, 300*time.Millisecond)

	blkA := file.NewBlockID("testfile", 0)
	blkB := file.NewBlockID("testfile", 1)

	_, err := bm.Pin(blkA)
	require.NoError(t, err)

	start := time.Now()
	_, err = bm.Pin(blkB)
	assert.ErrorIs(t, err, ErrBufferAbort)
	assert.GreaterOrEqual(t, time.Since(start), 300*time.Millisecond)
}

func TestManager_WaiterWokenByUnpin(t *testing.T) {
	_, bm := newTestPool(t, 1, 5*time.Second)

	blkA := file.NewBlockID("testfile", 0)
	blkB := file.NewBlockID("testfile", 1)

	buffA, err := bm.Pin(blkA)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := bm.Pin(blkB)
		done <- err
	}()

	// The waiter cannot proceed until A is unpinned
	select {
	case <-done:
		t.Fatal("Pin succeeded while the pool was exhausted")
	case <-time.After(100 * time.Millisecond):
	}

	bm.Unpin(buffA)
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Waiter was not woken by unpin")
	}
}

func TestManager_ClockSweepEvictsColdestFrame(t *testing.T) {
	_, bm := newTestPool(t, 3, DefaultMaxWait)

	blocks := make([]*file.BlockID, 4)
	for i := range blocks {
		blocks[i] = file.NewBlockID("testfile", i)
	}

	// Touch blocks 0..2 once each, leaving them unpinned with equal usage
	for i := range 3 {
		buff, err := bm.Pin(blocks[i])
		require.NoError(t, err)
		bm.Unpin(buff)
	}

	// The hand decrements usage around the pool, then takes the frame it
	// started from: block 0's
	buff, err := bm.Pin(blocks[3])
	require.NoError(t, err)
	assert.True(t, bm.bufferpool[0].Block().Equals(blocks[3]))
	assert.Nil(t, bm.findExistingBuffer(blocks[0]), "Block 0 was evicted")
	bm.Unpin(buff)
}

func TestManager_FlushAllCleansTransactionBuffers(t *testing.T) {
	fm, bm := newTestPool(t, 3, DefaultMaxWait)

	blk := file.NewBlockID("testfile", 0)
	buff, err := bm.Pin(blk)
	require.NoError(t, err)
	buff.Contents().SetInt(80, 42)
	buff.SetModified(7, -1)

	require.NoError(t, bm.FlushAll(7))
	assert.Equal(t, -1, buff.ModifyingTx(), "Flushed buffer is clean")

	// The write reached disk
	page := file.NewPage(400)
	require.NoError(t, fm.Read(blk, page))
	assert.Equal(t, 42, page.GetInt(80))
	bm.Unpin(buff)
}
