// Package file implements the open file table.
package file

import (
	"fmt"

	"github.com/mit-pdos/go-kfs/common"
	"github.com/mit-pdos/go-kfs/inode"
	"github.com/mit-pdos/go-kfs/util"
)

type Ftype int

const (
	F_NONE Ftype = 0
	F_REG  Ftype = 1
	F_DEV  Ftype = 2
	F_PIPE Ftype = 3
	F_SOCK Ftype = 4
)

type Fd uint64

type File struct {
	Type Ftype
	Off  uint64
	Mode uint32
	Ip   *inode.Inode
}

const nword = (common.NOPENFILE + 31) / 32

// Table holds NOPENFILE descriptors. A liveness bit per descriptor records
// which are open; next is the descriptor InstallNext tries first.
type Table struct {
	fds  [common.NOPENFILE]File
	live [nword]uint32
	next uint64
}

func MkTable() *Table {
	return &Table{}
}

func (t *Table) isLive(fd uint64) bool {
	return t.live[fd/32]&(1<<(fd%32)) != 0
}

func (t *Table) setLive(fd uint64) {
	t.live[fd/32] |= 1 << (fd % 32)
}

func (t *Table) clearLive(fd uint64) {
	t.live[fd/32] &^= 1 << (fd % 32)
}

func (t *Table) install(fd uint64, f File) Fd {
	t.fds[fd] = f
	t.setLive(fd)
	if fd >= t.next {
		t.next = fd + 1
	}
	util.DPrintf(5, "install fd %d: %v\n", fd, f.Ip)
	return Fd(fd)
}

// InstallNext installs f at the next descriptor of the counter. Once the
// counter runs past the table it falls back to InstallFree.
func (t *Table) InstallNext(f File) (Fd, error) {
	if t.next < common.NOPENFILE && !t.isLive(t.next) {
		return t.install(t.next, f), nil
	}
	return t.InstallFree(f)
}

// InstallFree installs f at the lowest free descriptor.
func (t *Table) InstallFree(f File) (Fd, error) {
	for fd := uint64(0); fd < common.NOPENFILE; fd++ {
		if !t.isLive(fd) {
			return t.install(fd, f), nil
		}
	}
	return 0, common.ErrTableFull
}

func (t *Table) Get(fd Fd) (*File, error) {
	if uint64(fd) >= common.NOPENFILE || !t.isLive(uint64(fd)) {
		return nil, fmt.Errorf("fd %d: %w", fd, common.ErrBadFd)
	}
	return &t.fds[fd], nil
}

func (t *Table) Close(fd Fd) error {
	if _, err := t.Get(fd); err != nil {
		return err
	}
	t.fds[fd] = File{}
	t.clearLive(uint64(fd))
	return nil
}

// Refs counts open descriptors referring to ip.
func (t *Table) Refs(ip *inode.Inode) uint64 {
	n := uint64(0)
	for fd := uint64(0); fd < common.NOPENFILE; fd++ {
		if t.isLive(fd) && t.fds[fd].Ip == ip {
			n += 1
		}
	}
	return n
}

func (t *Table) NOpen() uint64 {
	n := uint64(0)
	for fd := uint64(0); fd < common.NOPENFILE; fd++ {
		if t.isLive(fd) {
			n += 1
		}
	}
	return n
}
