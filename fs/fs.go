// Package fs implements the filesystem on top of the block and inode caches.
//
// A FileSys owns all state of one mounted device: the caches, the
// allocators, the root and working directories, and the open file table.
// It does no locking; callers serialize operations.
package fs

import (
	"fmt"
	"time"

	"github.com/mit-pdos/go-kfs/alloc"
	"github.com/mit-pdos/go-kfs/buf"
	"github.com/mit-pdos/go-kfs/common"
	"github.com/mit-pdos/go-kfs/disk"
	"github.com/mit-pdos/go-kfs/file"
	"github.com/mit-pdos/go-kfs/inode"
	"github.com/mit-pdos/go-kfs/super"
	"github.com/mit-pdos/go-kfs/util"
)

type FileSys struct {
	bc      *buf.Bcache
	ic      *inode.Icache
	sb      *super.Superblock
	dev     common.Dev
	ialloc  *alloc.Alloc
	balloc  *alloc.Alloc
	root    *inode.Inode
	cwd     *inode.Inode
	cwdName string
	oft     *file.Table
	clock   func() uint32
}

func now() uint32 {
	return uint32(time.Now().Unix())
}

func mkFileSys(d disk.Disk, dev common.Dev) *FileSys {
	bc := buf.MkBcache(common.NBUF, common.NBUFHASH)
	bc.MountDevice(dev, d)
	return &FileSys{
		bc:      bc,
		dev:     dev,
		cwdName: "/",
		oft:     file.MkTable(),
		clock:   now,
	}
}

func (fs *FileSys) attach(sb *super.Superblock) {
	fs.sb = sb
	fs.ic = inode.MkIcache(fs.bc, common.NINODE, common.NINODEHASH)
	fs.ic.MountDevice(fs.dev, sb)
	fs.ialloc = alloc.MkAlloc(fs.bc, fs.dev, sb.InodeBitmap(), sb.NInode())
	fs.balloc = alloc.MkAlloc(fs.bc, fs.dev, sb.DataBitmap(), uint64(sb.NDataBlock))
}

// Mkfs formats d as device dev with ninodeblocks blocks of inodes, and
// mounts it. The root directory is inode 1; inode 0 is never allocated.
func Mkfs(d disk.Disk, dev common.Dev, ninodeblocks uint64) (*FileSys, error) {
	sz, err := d.Size()
	if err != nil {
		return nil, fmt.Errorf("mkfs: %w: %w", common.ErrIO, err)
	}
	sb, err := super.MkLayout(dev, sz, ninodeblocks)
	if err != nil {
		return nil, fmt.Errorf("mkfs: %w", err)
	}
	fs := mkFileSys(d, dev)
	if err := super.WriteSuperblock(fs.bc, sb, dev); err != nil {
		return nil, err
	}
	for bn := common.Bnum(sb.InodeStart); bn < common.Bnum(sb.BitmapStart); bn++ {
		if err := fs.bc.Write(buf.MkBuf(dev, bn)); err != nil {
			return nil, fmt.Errorf("mkfs: %w", err)
		}
	}
	fs.attach(sb)
	if err := fs.ialloc.Format(); err != nil {
		return nil, err
	}
	if err := fs.balloc.Format(); err != nil {
		return nil, err
	}
	if err := fs.ialloc.MarkUsed(uint64(common.NULLINUM)); err != nil {
		return nil, err
	}
	root, err := fs.mkInode(inode.I_DIR, inode.M_READ|inode.M_WRITE|inode.M_EXEC)
	if err != nil {
		return nil, fmt.Errorf("mkfs: root: %w", err)
	}
	if root.Inum != common.ROOTINUM {
		panic("mkfs: root inode")
	}
	fs.root = root
	fs.cwd = root
	util.DPrintf(1, "mkfs: %d blocks, %d inodes, %d data blocks\n",
		sb.Size, sb.NInode(), sb.NDataBlock)
	if err := fs.bc.Barrier(); err != nil {
		return nil, err
	}
	return fs, nil
}

// Mount loads the filesystem on d, formatted earlier by Mkfs.
func Mount(d disk.Disk, dev common.Dev) (*FileSys, error) {
	fs := mkFileSys(d, dev)
	sb, err := super.ReadSuperblock(fs.bc, dev)
	if err != nil {
		return nil, fmt.Errorf("mount: %w", err)
	}
	sz, err := d.Size()
	if err != nil {
		return nil, fmt.Errorf("mount: %w: %w", common.ErrIO, err)
	}
	if sb.Size > sz {
		return nil, fmt.Errorf("mount: superblock size %d > device size %d: %w",
			sb.Size, sz, common.ErrBadSuperblock)
	}
	fs.attach(sb)
	root, err := fs.ic.Get(dev, common.ROOTINUM)
	if err != nil {
		return nil, fmt.Errorf("mount: root: %w", err)
	}
	if !root.IsDir() {
		return nil, fmt.Errorf("mount: root %v: %w", root, common.ErrBadSuperblock)
	}
	fs.root = root
	fs.cwd = root
	util.DPrintf(1, "mount: %+v\n", sb)
	return fs, nil
}

// Sync flushes the device.
func (fs *FileSys) Sync() error {
	return fs.bc.Barrier()
}

func (fs *FileSys) Super() *super.Superblock {
	return fs.sb
}

func (fs *FileSys) Dev() common.Dev {
	return fs.dev
}

// Check verifies the cache invariants.
func (fs *FileSys) Check() error {
	if err := fs.bc.Check(); err != nil {
		return fmt.Errorf("block cache: %w", err)
	}
	if err := fs.ic.Check(); err != nil {
		return fmt.Errorf("inode cache: %w", err)
	}
	return nil
}

func (fs *FileSys) AllocInode() (common.Inum, error) {
	n, err := fs.ialloc.AllocNum()
	if err != nil {
		return common.NULLINUM, fmt.Errorf("alloc inode: %w", err)
	}
	return common.Inum(n), nil
}

func (fs *FileSys) FreeInode(inum common.Inum) error {
	if inum == common.NULLINUM {
		return fmt.Errorf("free inode 0: %w", common.ErrInvalidArgument)
	}
	return fs.ialloc.FreeNum(uint64(inum))
}

// AllocData allocates a data block and zeroes it on the device.
func (fs *FileSys) AllocData() (common.Bnum, error) {
	n, err := fs.balloc.AllocNum()
	if err != nil {
		return common.NULLBNUM, fmt.Errorf("alloc data: %w", err)
	}
	bn := fs.sb.DataBnum(n)
	if err := fs.bc.Write(buf.MkBuf(fs.dev, bn)); err != nil {
		return common.NULLBNUM, err
	}
	return bn, nil
}

func (fs *FileSys) FreeData(bn common.Bnum) error {
	n, ok := fs.sb.DataIndex(bn)
	if !ok {
		return fmt.Errorf("free data %d: %w", bn, common.ErrInvalidArgument)
	}
	return fs.balloc.FreeNum(n)
}

// mkInode allocates an inode of type t with one zeroed data block, and writes
// it back.
func (fs *FileSys) mkInode(t inode.Itype, mode uint32) (*inode.Inode, error) {
	inum, err := fs.AllocInode()
	if err != nil {
		return nil, err
	}
	ip, err := fs.ic.Alloc(fs.dev, inum, t, mode, fs.clock())
	if err != nil {
		return nil, err
	}
	bn, err := fs.AllocData()
	if err != nil {
		return nil, err
	}
	ip.SetBlock(0, bn)
	if err := fs.ic.Flush(ip); err != nil {
		return nil, err
	}
	util.DPrintf(5, "mkInode %v\n", ip)
	return ip, nil
}

// FsStat summarizes space use.
type FsStat struct {
	Blocks     uint64
	BlockSize  uint64
	Inodes     uint64
	FreeInodes uint64
	DataBlocks uint64
	FreeData   uint64
	FreeBufs   uint64
	FreeIcache uint64
	OpenFiles  uint64
}

func (fs *FileSys) Statfs() (FsStat, error) {
	freeInodes, err := fs.ialloc.NumFree()
	if err != nil {
		return FsStat{}, err
	}
	freeData, err := fs.balloc.NumFree()
	if err != nil {
		return FsStat{}, err
	}
	return FsStat{
		Blocks:     fs.sb.Size,
		BlockSize:  disk.BlockSize,
		Inodes:     fs.sb.NInode(),
		FreeInodes: freeInodes,
		DataBlocks: uint64(fs.sb.NDataBlock),
		FreeData:   freeData,
		FreeBufs:   fs.bc.NFree(),
		FreeIcache: fs.ic.NFree(),
		OpenFiles:  fs.oft.NOpen(),
	}, nil
}
