package common

import (
	"github.com/mit-pdos/go-kfs/disk"
)

const (
	SECTORSZ  uint64 = 512
	SECPERBLK uint64 = disk.BlockSize / SECTORSZ

	NBUF       uint64 = 128 // block cache slots
	NBUFHASH   uint64 = 128
	NINODE     uint64 = 128 // inode cache slots
	NINODEHASH uint64 = 128

	INODESZ  uint64 = 128 // on-disk size
	INODEBLK uint64 = disk.BlockSize / INODESZ
	NDIRECT  uint64 = 20 // direct block pointers per inode

	NAMELEN   uint64 = 28
	DENTRYSZ  uint64 = 4 + NAMELEN
	DENTRYBLK uint64 = disk.BlockSize / DENTRYSZ
	NTERM     uint64 = 10 // path components

	NOPENFILE uint64 = 128

	SUPERBLK Bnum = 1
	MAXFILE  uint64 = NDIRECT * disk.BlockSize
)

type Inum uint64
type Bnum = uint64
type Dev uint32

const (
	NULLINUM Inum = 0
	ROOTINUM Inum = 1
	NULLBNUM Bnum = 0
)
