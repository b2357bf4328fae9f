package fs

import (
	"fmt"
	gopath "path"

	"github.com/mit-pdos/go-kfs/common"
	"github.com/mit-pdos/go-kfs/dir"
	"github.com/mit-pdos/go-kfs/file"
	"github.com/mit-pdos/go-kfs/inode"
	"github.com/mit-pdos/go-kfs/util"
)

// Create makes a new regular file at path and opens it. The parent is the
// directory named by all but the last component, or the working directory
// for a single-component relative path.
func (fs *FileSys) Create(path string, mode uint32) (file.Fd, error) {
	util.DPrintf(1, "Create %q %#x\n", path, mode)
	dp, name, err := fs.lookupParent(path)
	if err != nil {
		return 0, err
	}
	if err := fs.checkNew(dp, name); err != nil {
		return 0, err
	}
	if err := checkRoom(dp); err != nil {
		return 0, err
	}
	ip, err := fs.mkInode(inode.I_FILE, mode)
	if err != nil {
		return 0, err
	}
	if err := fs.appendEntry(dp, dir.MkDentry(ip.Inum, name)); err != nil {
		return 0, err
	}
	return fs.oft.InstallNext(file.File{Type: file.F_REG, Mode: mode, Ip: ip})
}

// MakeDirectory makes an empty directory called name in the working
// directory.
func (fs *FileSys) MakeDirectory(name string) error {
	util.DPrintf(1, "MakeDirectory %q\n", name)
	if err := dir.ValidName(name); err != nil {
		return err
	}
	dp := fs.cwd
	if err := fs.checkNew(dp, name); err != nil {
		return err
	}
	if err := checkRoom(dp); err != nil {
		return err
	}
	ip, err := fs.mkInode(inode.I_DIR, inode.M_READ|inode.M_WRITE|inode.M_EXEC)
	if err != nil {
		return err
	}
	return fs.appendEntry(dp, dir.MkDentry(ip.Inum, name))
}

// Remove deletes the entry named by path and frees its inode and blocks.
// The entry is zeroed in place. Directories must be empty; the root, the
// working directory and open files cannot be removed.
func (fs *FileSys) Remove(path string) error {
	util.DPrintf(1, "Remove %q\n", path)
	p, err := dir.SplitPath(path)
	if err != nil {
		return err
	}
	if len(p.Comps) == 0 {
		return fmt.Errorf("remove root: %w", common.ErrBusy)
	}
	dp, name, err := fs.lookupParent(path)
	if err != nil {
		return err
	}
	inum, idx, err := fs.lookupIn(dp, name)
	if err != nil {
		return err
	}
	ip, err := fs.ic.Get(fs.dev, inum)
	if err != nil {
		return err
	}
	if ip == fs.root || ip == fs.cwd || fs.oft.Refs(ip) > 0 {
		return fmt.Errorf("remove %q: %w", path, common.ErrBusy)
	}
	if ip.IsDir() {
		empty, err := fs.isEmptyDir(ip)
		if err != nil {
			return err
		}
		if !empty {
			return fmt.Errorf("remove %q: %w", path, common.ErrNotEmpty)
		}
	}
	if err := fs.clearEntry(dp, idx); err != nil {
		return err
	}
	for i := uint64(0); i < common.NDIRECT; i++ {
		bn := ip.Block(i)
		if bn == common.NULLBNUM {
			continue
		}
		if err := fs.FreeData(bn); err != nil {
			return err
		}
		ip.SetBlock(i, common.NULLBNUM)
	}
	ip.Disk = inode.DiskInode{}
	if err := fs.ic.Flush(ip); err != nil {
		return err
	}
	if err := fs.FreeInode(inum); err != nil {
		return err
	}
	fs.ic.Release(ip)
	return nil
}

// ChangeDirectory makes the directory named by path the working directory.
func (fs *FileSys) ChangeDirectory(path string) error {
	util.DPrintf(1, "ChangeDirectory %q\n", path)
	p, err := dir.SplitPath(path)
	if err != nil {
		return err
	}
	ip, err := fs.resolve(p)
	if err != nil {
		return err
	}
	if !ip.IsDir() {
		return fmt.Errorf("%q: %w", path, common.ErrNotADirectory)
	}
	fs.cwd = ip
	if p.Abs {
		fs.cwdName = p.String()
	} else {
		fs.cwdName = gopath.Join(fs.cwdName, p.String())
	}
	return nil
}

// Cwd is the path of the working directory.
func (fs *FileSys) Cwd() string {
	return fs.cwdName
}

// List returns the names in the working directory, in the order they were
// added. Removed entries are skipped.
func (fs *FileSys) List() ([]string, error) {
	names := make([]string, 0)
	err := fs.scanDir(fs.cwd, func(i uint64, de dir.Dentry) bool {
		if !de.IsFree() {
			names = append(names, de.Name)
		}
		return false
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

type DirEnt struct {
	Name string
	Stat inode.Stat
}

// ReadDir lists the directory named by path with the inode of each entry.
func (fs *FileSys) ReadDir(path string) ([]DirEnt, error) {
	dp, err := fs.NameLookup(path)
	if err != nil {
		return nil, err
	}
	var des []dir.Dentry
	err = fs.scanDir(dp, func(i uint64, de dir.Dentry) bool {
		if !de.IsFree() {
			des = append(des, de)
		}
		return false
	})
	if err != nil {
		return nil, err
	}
	ents := make([]DirEnt, 0, len(des))
	for _, de := range des {
		ip, err := fs.ic.Get(fs.dev, de.Inum)
		if err != nil {
			return nil, err
		}
		ents = append(ents, DirEnt{Name: de.Name, Stat: ip.Stat()})
	}
	return ents, nil
}
