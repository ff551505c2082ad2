package file

import "fmt"

// EndOfFile is the sentinel block number that names a whole file rather
// than a block inside it. Transactions lock it before reading or
// extending the file's length.
const EndOfFile = -1

// BlockID identifies a block by the file that contains it and its
// position within that file.
type BlockID struct {
	filename string
	blkNum   int
}

// NewBlockID creates a new BlockID instance
func NewBlockID(filename string, blkNum int) *BlockID {
	return &BlockID{
		filename: filename,
		blkNum:   blkNum,
	}
}

// Filename returns the name of the file containing this block
func (b *BlockID) Filename() string {
	return b.filename
}

// Number returns the block number
func (b *BlockID) Number() int {
	return b.blkNum
}

// Equals reports whether two BlockIDs name the same block
func (b *BlockID) Equals(other *BlockID) bool {
	return other != nil && b.filename == other.filename && b.blkNum == other.blkNum
}

func (b *BlockID) String() string {
	return fmt.Sprintf("[file %s, block %d]", b.filename, b.blkNum)
}
