package fs

import (
	"errors"
	"fmt"

	"github.com/mit-pdos/go-kfs/addr"
	"github.com/mit-pdos/go-kfs/common"
	"github.com/mit-pdos/go-kfs/dir"
	"github.com/mit-pdos/go-kfs/disk"
	"github.com/mit-pdos/go-kfs/inode"
	"github.com/mit-pdos/go-kfs/util"
)

// scanDir calls f on entry i of dp for every entry within dp's size, block
// by block, until f returns true.
func (fs *FileSys) scanDir(dp *inode.Inode, f func(i uint64, de dir.Dentry) bool) error {
	if !dp.IsDir() {
		return fmt.Errorf("inode %d: %w", dp.Inum, common.ErrNotADirectory)
	}
	nent := dp.Size() / common.DENTRYSZ
	for blk := uint64(0); blk*common.DENTRYBLK < nent; blk++ {
		bn := dp.Block(blk)
		if bn == common.NULLBNUM {
			continue
		}
		b, err := fs.bc.Read(fs.dev, bn)
		if err != nil {
			return err
		}
		stop := false
		for j := uint64(0); j < common.DENTRYBLK; j++ {
			i := blk*common.DENTRYBLK + j
			if i >= nent {
				break
			}
			de := dir.Decode(b.Object(addr.MkAddr(bn, j*common.DENTRYSZ), common.DENTRYSZ))
			if f(i, de) {
				stop = true
				break
			}
		}
		fs.bc.Release(b)
		if stop {
			break
		}
	}
	return nil
}

// lookupIn returns the entry of dp named name, and its index.
func (fs *FileSys) lookupIn(dp *inode.Inode, name string) (common.Inum, uint64, error) {
	inum := common.NULLINUM
	idx := uint64(0)
	err := fs.scanDir(dp, func(i uint64, de dir.Dentry) bool {
		if !de.IsFree() && de.Name == name {
			inum = de.Inum
			idx = i
			return true
		}
		return false
	})
	if err != nil {
		return common.NULLINUM, 0, err
	}
	if inum == common.NULLINUM {
		return common.NULLINUM, 0, fmt.Errorf("%q: %w", name, common.ErrNotFound)
	}
	return inum, idx, nil
}

func (fs *FileSys) resolve(p dir.Path) (*inode.Inode, error) {
	ip := fs.cwd
	if p.Abs {
		ip = fs.root
	}
	for _, name := range p.Comps {
		if !ip.IsDir() {
			return nil, fmt.Errorf("%v: %w", p, common.ErrNotADirectory)
		}
		inum, _, err := fs.lookupIn(ip, name)
		if err != nil {
			return nil, fmt.Errorf("%v: %w", p, err)
		}
		ip, err = fs.ic.Get(fs.dev, inum)
		if err != nil {
			return nil, err
		}
	}
	util.DPrintf(10, "resolve %v: %v\n", p, ip)
	return ip, nil
}

// NameLookup returns the inode named by path. Absolute paths start at the
// root, relative ones at the working directory.
func (fs *FileSys) NameLookup(path string) (*inode.Inode, error) {
	p, err := dir.SplitPath(path)
	if err != nil {
		return nil, err
	}
	return fs.resolve(p)
}

// lookupParent resolves the directory that holds the last component of path.
func (fs *FileSys) lookupParent(path string) (*inode.Inode, string, error) {
	p, err := dir.SplitPath(path)
	if err != nil {
		return nil, "", err
	}
	parent, name, ok := p.Parent()
	if !ok {
		return nil, "", fmt.Errorf("%q: %w", path, common.ErrInvalidPath)
	}
	dp, err := fs.resolve(parent)
	if err != nil {
		return nil, "", err
	}
	if !dp.IsDir() {
		return nil, "", fmt.Errorf("%v: %w", parent, common.ErrNotADirectory)
	}
	return dp, name, nil
}

// checkNew fails with ErrExists if dp already has an entry named name.
func (fs *FileSys) checkNew(dp *inode.Inode, name string) error {
	_, _, err := fs.lookupIn(dp, name)
	if err == nil {
		return fmt.Errorf("%q: %w", name, common.ErrExists)
	}
	if errors.Is(err, common.ErrNotFound) {
		return nil
	}
	return err
}

// checkRoom fails with ErrOutOfSpace if dp cannot take another entry.
func checkRoom(dp *inode.Inode) error {
	if dp.Size()+common.DENTRYSZ > common.MAXFILE {
		return fmt.Errorf("directory %d full: %w", dp.Inum, common.ErrOutOfSpace)
	}
	return nil
}

// appendEntry writes de at the end of dp, allocating dp's next block when
// the entry starts a new one, and writes dp back.
func (fs *FileSys) appendEntry(dp *inode.Inode, de dir.Dentry) error {
	if err := checkRoom(dp); err != nil {
		return err
	}
	blk := dp.Size() / disk.BlockSize
	off := dp.Size() % disk.BlockSize
	if dp.Block(blk) == common.NULLBNUM {
		bn, err := fs.AllocData()
		if err != nil {
			return err
		}
		dp.SetBlock(blk, bn)
	}
	bn := dp.Block(blk)
	b, err := fs.bc.Read(fs.dev, bn)
	if err != nil {
		return err
	}
	b.Install(addr.MkAddr(bn, off), de.Encode())
	err = fs.bc.Write(b)
	fs.bc.Release(b)
	if err != nil {
		return err
	}
	dp.Disk.Size += common.DENTRYSZ
	dp.Disk.Mtime = fs.clock()
	return fs.ic.Flush(dp)
}

// clearEntry zeroes entry i of dp in place.
func (fs *FileSys) clearEntry(dp *inode.Inode, i uint64) error {
	blk, off := dir.Locate(i)
	bn := dp.Block(blk)
	b, err := fs.bc.Read(fs.dev, bn)
	if err != nil {
		return err
	}
	b.Install(addr.MkAddr(bn, off), make([]byte, common.DENTRYSZ))
	err = fs.bc.Write(b)
	fs.bc.Release(b)
	if err != nil {
		return err
	}
	dp.Disk.Mtime = fs.clock()
	return fs.ic.Flush(dp)
}

func (fs *FileSys) isEmptyDir(dp *inode.Inode) (bool, error) {
	empty := true
	err := fs.scanDir(dp, func(i uint64, de dir.Dentry) bool {
		if !de.IsFree() {
			empty = false
			return true
		}
		return false
	})
	return empty, err
}
