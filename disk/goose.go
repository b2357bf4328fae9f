package disk

import (
	"fmt"

	gdisk "github.com/tchajed/goose/machine/disk"
)

const sectorsPerGooseBlock = gdisk.BlockSize / BlockSize

var _ Disk = (*gooseDisk)(nil)

// gooseDisk exposes a goose disk, whose blocks are 4096 bytes, as a disk of
// 512-byte sectors. Sector writes are read-modify-write of the enclosing goose
// block.
type gooseDisk struct {
	d gdisk.Disk
}

func FromGoose(d gdisk.Disk) Disk {
	return gooseDisk{d: d}
}

// NewGooseMemDisk returns an in-memory goose disk with room for at least
// numBlocks 512-byte blocks.
func NewGooseMemDisk(numBlocks uint64) Disk {
	n := (numBlocks + sectorsPerGooseBlock - 1) / sectorsPerGooseBlock
	return FromGoose(gdisk.NewMemDisk(n))
}

func (g gooseDisk) locate(a uint64) (uint64, uint64, error) {
	if a >= g.d.Size()*sectorsPerGooseBlock {
		return 0, 0, fmt.Errorf("sector %v: %w", a, ErrOutOfBounds)
	}
	return a / sectorsPerGooseBlock, (a % sectorsPerGooseBlock) * BlockSize, nil
}

func (g gooseDisk) ReadTo(a uint64, buf Block) error {
	if uint64(len(buf)) != BlockSize {
		return ErrBlockSize
	}
	blkno, off, err := g.locate(a)
	if err != nil {
		return err
	}
	blk := g.d.Read(blkno)
	copy(buf, blk[off:off+BlockSize])
	return nil
}

func (g gooseDisk) Read(a uint64) (Block, error) {
	buf := make(Block, BlockSize)
	err := g.ReadTo(a, buf)
	return buf, err
}

func (g gooseDisk) Write(a uint64, v Block) error {
	if uint64(len(v)) != BlockSize {
		return fmt.Errorf("v is %d bytes: %w", len(v), ErrBlockSize)
	}
	blkno, off, err := g.locate(a)
	if err != nil {
		return err
	}
	blk := g.d.Read(blkno)
	copy(blk[off:off+BlockSize], v)
	g.d.Write(blkno, blk)
	return nil
}

func (g gooseDisk) Size() (uint64, error) {
	return g.d.Size() * sectorsPerGooseBlock, nil
}

func (g gooseDisk) Barrier() error {
	g.d.Barrier()
	return nil
}

func (g gooseDisk) Close() error {
	g.d.Close()
	return nil
}
