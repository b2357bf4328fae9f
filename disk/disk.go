package disk

import "errors"

// Block is a 512-byte buffer, one device sector
type Block = []byte

const BlockSize uint64 = 512

var (
	ErrOutOfBounds = errors.New("block address out of bounds")
	ErrBlockSize   = errors.New("buffer is not block-sized")
	ErrClosed      = errors.New("disk is closed")
)

// Disk provides access to a logical block-based disk
//
// Every call is synchronous: it returns only once the device has completed
// the transfer. There is no partial-transfer signal.
type Disk interface {
	// Read reads a disk block by address
	//
	// Expects a < Size().
	Read(a uint64) (Block, error)

	// ReadTo reads the disk block at a and stores the result in b
	//
	// Expects a < Size().
	ReadTo(a uint64, b Block) error

	// Write updates a disk block by address
	//
	// Expects a < Size().
	Write(a uint64, v Block) error

	// Size reports how big the disk is, in blocks
	Size() (uint64, error)

	// Barrier ensures data is persisted.
	//
	// When it returns, all outstanding writes are guaranteed to be durably on
	// disk
	Barrier() error

	// Close releases any resources used by the disk and makes it unusable.
	Close() error
}
