package fs

import (
	"errors"
	"fmt"

	"github.com/mit-pdos/go-kfs/addr"
	"github.com/mit-pdos/go-kfs/buf"
	"github.com/mit-pdos/go-kfs/common"
	"github.com/mit-pdos/go-kfs/disk"
	"github.com/mit-pdos/go-kfs/file"
	"github.com/mit-pdos/go-kfs/inode"
	"github.com/mit-pdos/go-kfs/util"
)

func ftype(t inode.Itype) file.Ftype {
	switch t {
	case inode.I_FILE:
		return file.F_REG
	case inode.I_DEV:
		return file.F_DEV
	case inode.I_PIPE:
		return file.F_PIPE
	case inode.I_SOCK:
		return file.F_SOCK
	}
	return file.F_NONE
}

// Open opens the file named by path at offset 0, creating it if it does not
// exist.
func (fs *FileSys) Open(path string, mode uint32) (file.Fd, error) {
	util.DPrintf(1, "Open %q %#x\n", path, mode)
	ip, err := fs.NameLookup(path)
	if errors.Is(err, common.ErrNotFound) {
		return fs.Create(path, mode)
	}
	if err != nil {
		return 0, err
	}
	if ip.IsDir() {
		return 0, fmt.Errorf("open %q: %w", path, common.ErrWrongType)
	}
	return fs.oft.InstallFree(file.File{Type: ftype(ip.Disk.Type), Mode: mode, Ip: ip})
}

func (fs *FileSys) Close(fd file.Fd) error {
	util.DPrintf(1, "Close %d\n", fd)
	return fs.oft.Close(fd)
}

func (fs *FileSys) getFile(fd file.Fd, mode uint32) (*file.File, error) {
	f, err := fs.oft.Get(fd)
	if err != nil {
		return nil, err
	}
	if f.Mode&mode == 0 {
		return nil, fmt.Errorf("fd %d mode %#x: %w", fd, f.Mode, common.ErrBadFd)
	}
	if f.Type != file.F_REG {
		return nil, fmt.Errorf("fd %d: %w", fd, common.ErrWrongType)
	}
	return f, nil
}

// Read fills p from fd's offset and advances the offset. The whole range
// must lie within the file.
func (fs *FileSys) Read(fd file.Fd, p []byte) (int, error) {
	f, err := fs.getFile(fd, inode.M_READ)
	if err != nil {
		return 0, err
	}
	ip := f.Ip
	n := uint64(len(p))
	if util.SumOverflows(f.Off, n) || f.Off+n > ip.Size() {
		return 0, fmt.Errorf("read %d at %d of %d: %w", n, f.Off, ip.Size(), common.ErrRange)
	}
	util.DPrintf(5, "Read %v off %d n %d\n", ip, f.Off, n)
	done := uint64(0)
	for done < n {
		pos := f.Off + done
		blk := pos / disk.BlockSize
		off := pos % disk.BlockSize
		cnt := util.Min(disk.BlockSize-off, n-done)
		bn := ip.Block(blk)
		if bn == common.NULLBNUM {
			clear(p[done : done+cnt])
		} else {
			b, err := fs.bc.Read(fs.dev, bn)
			if err != nil {
				return int(done), err
			}
			copy(p[done:done+cnt], b.Object(addr.MkAddr(bn, off), cnt))
			fs.bc.Release(b)
		}
		done += cnt
	}
	f.Off += n
	return int(n), nil
}

// Write appends p at the end of fd's file. All blocks the write touches are
// allocated before any data is written. The size grows by len(p) even when
// a device write fails; that error is returned.
func (fs *FileSys) Write(fd file.Fd, p []byte) (int, error) {
	f, err := fs.getFile(fd, inode.M_WRITE)
	if err != nil {
		return 0, err
	}
	ip := f.Ip
	n := uint64(len(p))
	if n == 0 {
		return 0, nil
	}
	size := ip.Size()
	first := size / disk.BlockSize
	last := (size + n - 1) / disk.BlockSize
	if util.SumOverflows(size, n) || last >= common.NDIRECT {
		return 0, fmt.Errorf("write %d at %d: %w", n, size, common.ErrOutOfSpace)
	}
	util.DPrintf(5, "Write %v n %d blocks %d-%d\n", ip, n, first, last)

	for i := first; i <= last; i++ {
		if ip.Block(i) != common.NULLBNUM {
			continue
		}
		bn, err := fs.AllocData()
		if err != nil {
			// keep the blocks allocated so far reachable
			if ferr := fs.ic.Flush(ip); ferr != nil {
				return 0, ferr
			}
			return 0, err
		}
		ip.SetBlock(i, bn)
	}

	var werr error
	for done := uint64(0); done < n; {
		pos := size + done
		bn := ip.Block(pos / disk.BlockSize)
		off := pos % disk.BlockSize
		cnt := util.Min(disk.BlockSize-off, n-done)
		var b *buf.Buf
		if cnt == disk.BlockSize {
			b = buf.MkBuf(fs.dev, bn)
		} else {
			b, werr = fs.bc.Read(fs.dev, bn)
			if werr != nil {
				break
			}
		}
		b.Install(addr.MkAddr(bn, off), p[done:done+cnt])
		werr = fs.bc.Write(b)
		fs.bc.Release(b)
		if werr != nil {
			break
		}
		done += cnt
	}

	ip.Disk.Size += n
	ip.Disk.Mtime = fs.clock()
	if err := fs.ic.Flush(ip); err != nil && werr == nil {
		werr = err
	}
	return int(n), werr
}

// Seek sets fd's read offset.
func (fs *FileSys) Seek(fd file.Fd, off uint64) error {
	f, err := fs.oft.Get(fd)
	if err != nil {
		return err
	}
	if off > f.Ip.Size() {
		return fmt.Errorf("seek %d of %d: %w", off, f.Ip.Size(), common.ErrRange)
	}
	f.Off = off
	return nil
}

// Eof reports whether fd's offset is at the end of its file.
func (fs *FileSys) Eof(fd file.Fd) (bool, error) {
	f, err := fs.oft.Get(fd)
	if err != nil {
		return false, err
	}
	return f.Off >= f.Ip.Size(), nil
}

// Cat returns the whole content of the file named by path.
func (fs *FileSys) Cat(path string) ([]byte, error) {
	ip, err := fs.NameLookup(path)
	if err != nil {
		return nil, err
	}
	if ip.IsDir() {
		return nil, fmt.Errorf("cat %q: %w", path, common.ErrWrongType)
	}
	fd, err := fs.oft.InstallFree(file.File{Type: ftype(ip.Disk.Type), Mode: inode.M_READ, Ip: ip})
	if err != nil {
		return nil, err
	}
	defer fs.oft.Close(fd)
	data := make([]byte, ip.Size())
	if _, err := fs.Read(fd, data); err != nil {
		return nil, err
	}
	return data, nil
}

func (fs *FileSys) Stat(path string) (inode.Stat, error) {
	ip, err := fs.NameLookup(path)
	if err != nil {
		return inode.Stat{}, err
	}
	return ip.Stat(), nil
}

// Fstat returns the inode of fd.
func (fs *FileSys) Fstat(fd file.Fd) (inode.Stat, error) {
	f, err := fs.oft.Get(fd)
	if err != nil {
		return inode.Stat{}, err
	}
	return f.Ip.Stat(), nil
}
