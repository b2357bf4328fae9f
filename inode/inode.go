package inode

import (
	"fmt"

	"github.com/mit-pdos/go-kfs/cache"
	"github.com/mit-pdos/go-kfs/common"
)

type LoadState int

const (
	Empty   LoadState = iota // bound to an identity, contents not read
	Loading                  // device read in progress
	Loaded
)

func (s LoadState) String() string {
	switch s {
	case Empty:
		return "empty"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	}
	return fmt.Sprintf("LoadState(%d)", int(s))
}

type Inode struct {
	Inum   common.Inum
	Dev    common.Dev
	Access uint64 // cache hits since the inode was bound to its slot
	Disk   DiskInode
	state  LoadState
	slot   *cache.Cslot[ikey, *Inode]
}

func (ip *Inode) String() string {
	return fmt.Sprintf("# %d/%d %v sz %d %v", ip.Dev, ip.Inum, ip.Disk.Type, ip.Disk.Size, ip.state)
}

func (ip *Inode) State() LoadState {
	return ip.state
}

func (ip *Inode) Size() uint64 {
	return ip.Disk.Size
}

func (ip *Inode) IsDir() bool {
	return ip.Disk.Type == I_DIR
}

// Block returns the i'th direct block pointer.
func (ip *Inode) Block(i uint64) common.Bnum {
	return common.Bnum(ip.Disk.Blocks[i])
}

func (ip *Inode) SetBlock(i uint64, bn common.Bnum) {
	if ip.Disk.Blocks[i] == 0 && bn != common.NULLBNUM {
		ip.Disk.Nblock += 1
	} else if ip.Disk.Blocks[i] != 0 && bn == common.NULLBNUM {
		ip.Disk.Nblock -= 1
	}
	ip.Disk.Blocks[i] = uint32(bn)
}

type Stat struct {
	Dev    common.Dev
	Inum   common.Inum
	Type   Itype
	Mode   uint32
	Nlink  uint32
	Size   uint64
	Nblock uint32
	Atime  uint32
	Ctime  uint32
	Mtime  uint32
}

func (ip *Inode) Stat() Stat {
	return Stat{
		Dev:    ip.Dev,
		Inum:   ip.Inum,
		Type:   ip.Disk.Type,
		Mode:   ip.Disk.Mode,
		Nlink:  ip.Disk.Nlink,
		Size:   ip.Disk.Size,
		Nblock: ip.Disk.Nblock,
		Atime:  ip.Disk.Atime,
		Ctime:  ip.Disk.Ctime,
		Mtime:  ip.Disk.Mtime,
	}
}
