package buffer

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/herondb/herondb/internal/file"
	dblog "github.com/herondb/herondb/internal/log"
)

var ErrBufferAbort = errors.New("buffer request aborted")

// DefaultMaxWait is how long Pin waits for a frame before giving up.
const DefaultMaxWait = 10 * time.Second

// maxUsageCount caps how far repeated pins can raise a frame's usage
// count, bounding the number of sweeps before the frame becomes a
// victim candidate again.
const maxUsageCount = 5

// Manager manages a pool of buffers.
// Victim selection is a clock sweep: a rotating hand passes over the
// pool, skipping pinned frames and decrementing the usage count of
// unpinned ones until it finds an unpinned frame with usage zero.
type Manager struct {
	bufferpool   []*Buffer
	numAvailable int
	clockHand    int
	maxTime      time.Duration
	mu           sync.Mutex
	cond         *sync.Cond
}

func NewManager(fileManager *file.Manager, logManager *dblog.Manager, numOfBuffer int, maxWait time.Duration) (*Manager, error) {
	if numOfBuffer <= 0 {
		return nil, errors.New("number of buffers must be positive")
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}

	bufferpool := make([]*Buffer, 0, numOfBuffer)
	for range numOfBuffer {
		bufferpool = append(bufferpool, NewBuffer(fileManager, logManager))
	}

	bm := &Manager{
		bufferpool:   bufferpool,
		numAvailable: numOfBuffer,
		maxTime:      maxWait,
	}
	bm.cond = sync.NewCond(&bm.mu)
	return bm, nil
}

// Available returns the number of unpinned frames.
func (bm *Manager) Available() int {
	bm.mu.Lock()
	defer bm.mu.Unlock()
	return bm.numAvailable
}

// FlushAll writes every frame modified by the given transaction back to
// disk.
func (bm *Manager) FlushAll(txnum int) error {
	bm.mu.Lock()
	defer bm.mu.Unlock()

	for _, buff := range bm.bufferpool {
		if buff.ModifyingTx() == txnum {
			err := buff.flush()
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func (bm *Manager) Unpin(buff *Buffer) {
	bm.mu.Lock()
	defer bm.mu.Unlock()

	buff.unpin()
	if !buff.IsPinned() {
		bm.numAvailable++
		// Wake up all waiting goroutines
		bm.cond.Broadcast()
	}
}

// Pin pins a buffer to the specified block.
// If the block is already in a buffer, that buffer is returned.
// Otherwise an unpinned victim frame is chosen and assigned to the block.
// Returns ErrBufferAbort if no buffer becomes available within the
// timeout period.
func (bm *Manager) Pin(blk *file.BlockID) (*Buffer, error) {
	bm.mu.Lock()
	defer bm.mu.Unlock()

	startTime := time.Now()
	buff, err := bm.tryToPin(blk)
	if err != nil {
		return nil, err
	}

	// If no buffer available, wait with timeout
	for buff == nil && time.Since(startTime) < bm.maxTime {
		// Start a goroutine to wake us up after 100ms if no one else does
		go func() {
			time.Sleep(100 * time.Millisecond)
			bm.cond.Broadcast()
		}()

		// Sleep until someone calls Broadcast()
		bm.cond.Wait()
		buff, err = bm.tryToPin(blk)
		if err != nil {
			return nil, err
		}
	}

	if buff == nil {
		log.Warn().Str("block", blk.String()).Dur("waited", time.Since(startTime)).
			Msg("no frame became available, aborting pin")
		return nil, ErrBufferAbort
	}
	return buff, nil
}

// tryToPin attempts to pin a buffer to the specified block.
// Returns nil if no buffer is available.
func (bm *Manager) tryToPin(blk *file.BlockID) (*Buffer, error) {
	// 1. Check if the block is already in a buffer
	buff := bm.findExistingBuffer(blk)

	// 2. If not, run the clock sweep for a victim and load the block into it
	if buff == nil {
		buff = bm.chooseUnpinnedBuffer()
		if buff == nil {
			return nil, nil
		}

		err := buff.loadBlock(blk)
		if err != nil {
			return nil, err
		}
		buff.usageCount = 0
	}

	// 3. If the buffer wasn't already pinned, it no longer counts as available
	if !buff.IsPinned() {
		bm.numAvailable--
	}

	buff.pin()
	if buff.usageCount < maxUsageCount {
		buff.usageCount++
	}

	return buff, nil
}

func (bm *Manager) findExistingBuffer(blk *file.BlockID) *Buffer {
	for _, b := range bm.bufferpool {
		if b.Block() != nil && b.Block().Equals(blk) {
			return b
		}
	}
	return nil
}

// chooseUnpinnedBuffer runs the clock sweep. The hand selects the first
// unpinned frame whose usage count is zero, decrementing the usage of
// unpinned frames it passes. Seeing every frame pinned in a single
// sweep means nothing can be evicted right now.
func (bm *Manager) chooseUnpinnedBuffer() *Buffer {
	consecutivePinned := 0
	for consecutivePinned < len(bm.bufferpool) {
		buff := bm.bufferpool[bm.clockHand]
		bm.clockHand = (bm.clockHand + 1) % len(bm.bufferpool)

		if buff.IsPinned() {
			consecutivePinned++
			continue
		}
		consecutivePinned = 0

		if buff.usageCount == 0 {
			return buff
		}
		buff.usageCount--
	}
	return nil
}
