// Package super describes the on-disk layout of a device.
//
// Block 0 is unused, block 1 holds the superblock, then follow the log
// region (reserved, never read), the inode region, one inode bitmap block,
// one data bitmap block, and the data region. Bitmaps hold one byte per unit.
package super

import (
	"fmt"

	"github.com/tchajed/marshal"

	"github.com/mit-pdos/go-kfs/addr"
	"github.com/mit-pdos/go-kfs/buf"
	"github.com/mit-pdos/go-kfs/common"
	"github.com/mit-pdos/go-kfs/disk"
	"github.com/mit-pdos/go-kfs/util"
)

const (
	MAGIC uint64 = 0x6b66732d73757062 // "kfs-supb"

	LOGSTART   common.Bnum = 2
	NLOGBLOCK  uint64      = 8
	NBITMAPBLK uint64      = 2

	// DefaultInodeBlocks gives 128 inodes.
	DefaultInodeBlocks uint64 = 32

	// one bitmap block per region caps both the inode and data counts
	MAXUNITS uint64 = disk.BlockSize

	encodedSize uint64 = 8 + 8 + 4*8
)

type Superblock struct {
	Magic       uint64
	Size        uint64 // total device size in blocks
	Device      common.Dev
	NLogBlock   uint32
	NInodeBlock uint32
	NDataBlock  uint32
	LogStart    uint32
	InodeStart  uint32
	BitmapStart uint32
	DataStart   uint32
}

// MkLayout computes the layout of an nblocks device with ninodeblocks blocks
// of inodes.
func MkLayout(dev common.Dev, nblocks uint64, ninodeblocks uint64) (*Superblock, error) {
	if ninodeblocks == 0 || ninodeblocks*common.INODEBLK > MAXUNITS {
		return nil, fmt.Errorf("%d inode blocks: %w", ninodeblocks, common.ErrInvalidArgument)
	}
	inodeStart := LOGSTART + NLOGBLOCK
	bitmapStart := inodeStart + ninodeblocks
	dataStart := bitmapStart + NBITMAPBLK
	if nblocks <= dataStart {
		return nil, fmt.Errorf("%d blocks, need more than %d: %w",
			nblocks, dataStart, common.ErrInvalidArgument)
	}
	sb := &Superblock{
		Magic:       MAGIC,
		Size:        nblocks,
		Device:      dev,
		NLogBlock:   uint32(NLOGBLOCK),
		NInodeBlock: uint32(ninodeblocks),
		NDataBlock:  uint32(util.Min(nblocks-dataStart, MAXUNITS)),
		LogStart:    uint32(LOGSTART),
		InodeStart:  uint32(inodeStart),
		BitmapStart: uint32(bitmapStart),
		DataStart:   uint32(dataStart),
	}
	util.DPrintf(1, "layout: %+v\n", sb)
	return sb, nil
}

func (sb *Superblock) Encode() []byte {
	enc := marshal.NewEnc(encodedSize)
	enc.PutInt(sb.Magic)
	enc.PutInt(sb.Size)
	enc.PutInt32(uint32(sb.Device))
	enc.PutInt32(sb.NLogBlock)
	enc.PutInt32(sb.NInodeBlock)
	enc.PutInt32(sb.NDataBlock)
	enc.PutInt32(sb.LogStart)
	enc.PutInt32(sb.InodeStart)
	enc.PutInt32(sb.BitmapStart)
	enc.PutInt32(sb.DataStart)
	return enc.Finish()
}

func Decode(data []byte) *Superblock {
	dec := marshal.NewDec(data[:encodedSize])
	sb := &Superblock{}
	sb.Magic = dec.GetInt()
	sb.Size = dec.GetInt()
	sb.Device = common.Dev(dec.GetInt32())
	sb.NLogBlock = dec.GetInt32()
	sb.NInodeBlock = dec.GetInt32()
	sb.NDataBlock = dec.GetInt32()
	sb.LogStart = dec.GetInt32()
	sb.InodeStart = dec.GetInt32()
	sb.BitmapStart = dec.GetInt32()
	sb.DataStart = dec.GetInt32()
	return sb
}

// ReadSuperblock reads the superblock of dev through the block cache.
func ReadSuperblock(bc *buf.Bcache, dev common.Dev) (*Superblock, error) {
	b, err := bc.Read(dev, common.SUPERBLK)
	if err != nil {
		return nil, fmt.Errorf("read superblock: %w", err)
	}
	sb := Decode(b.Data)
	bc.Release(b)
	if sb.Magic != MAGIC {
		return nil, fmt.Errorf("device %d: magic %#x: %w", dev, sb.Magic, common.ErrBadSuperblock)
	}
	if uint64(sb.DataStart)+uint64(sb.NDataBlock) > sb.Size ||
		uint64(sb.NInodeBlock)*common.INODEBLK > MAXUNITS {
		return nil, fmt.Errorf("device %d: inconsistent layout %+v: %w", dev, sb, common.ErrBadSuperblock)
	}
	return sb, nil
}

// WriteSuperblock writes sb to block 1 of dev.
func WriteSuperblock(bc *buf.Bcache, sb *Superblock, dev common.Dev) error {
	b := buf.MkBuf(dev, common.SUPERBLK)
	b.Install(addr.MkAddr(common.SUPERBLK, 0), sb.Encode())
	if err := bc.Write(b); err != nil {
		return fmt.Errorf("write superblock: %w", err)
	}
	return nil
}

func (sb *Superblock) NInode() uint64 {
	return uint64(sb.NInodeBlock) * common.INODEBLK
}

func (sb *Superblock) Inum2Addr(inum common.Inum) addr.Addr {
	return addr.MkAddr(common.Bnum(sb.InodeStart)+common.Bnum(uint64(inum)/common.INODEBLK),
		(uint64(inum)%common.INODEBLK)*common.INODESZ)
}

func (sb *Superblock) InodeBitmap() common.Bnum {
	return common.Bnum(sb.BitmapStart)
}

func (sb *Superblock) DataBitmap() common.Bnum {
	return common.Bnum(sb.BitmapStart) + 1
}

// DataBnum is the block number of data unit n.
func (sb *Superblock) DataBnum(n uint64) common.Bnum {
	return common.Bnum(sb.DataStart) + common.Bnum(n)
}

// DataIndex is the data unit of block bn; ok is false outside the data region.
func (sb *Superblock) DataIndex(bn common.Bnum) (n uint64, ok bool) {
	if bn < common.Bnum(sb.DataStart) || bn >= common.Bnum(sb.DataStart)+common.Bnum(sb.NDataBlock) {
		return 0, false
	}
	return uint64(bn - common.Bnum(sb.DataStart)), true
}
