// buf holds disk blocks, and sub-block objects packed into them
package buf

import (
	"fmt"

	"github.com/mit-pdos/go-kfs/addr"
	"github.com/mit-pdos/go-kfs/cache"
	"github.com/mit-pdos/go-kfs/common"
	"github.com/mit-pdos/go-kfs/disk"
	"github.com/mit-pdos/go-kfs/util"
)

type Status int

const (
	Unused Status = iota // contents not read from the device
	Valid                // contents match the device
	Dirty                // modified since the last device transfer
)

func (s Status) String() string {
	switch s {
	case Unused:
		return "unused"
	case Valid:
		return "valid"
	case Dirty:
		return "dirty"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// A Buf is one disk block. Bufs handed out by a Bcache live in a cache slot
// and stay valid until released; MkBuf makes a standalone Buf.
type Buf struct {
	Dev    common.Dev
	Blkno  common.Bnum
	Data   disk.Block
	status Status
	lruCnt uint64
	slot   *cache.Cslot[bkey, *Buf]
}

func MkBuf(dev common.Dev, blkno common.Bnum) *Buf {
	return &Buf{
		Dev:    dev,
		Blkno:  blkno,
		Data:   make(disk.Block, disk.BlockSize),
		status: Unused,
	}
}

func (buf *Buf) String() string {
	return fmt.Sprintf("%d/%d %v", buf.Dev, buf.Blkno, buf.status)
}

func (buf *Buf) Status() Status {
	return buf.status
}

func (buf *Buf) IsDirty() bool {
	return buf.status == Dirty
}

func (buf *Buf) SetDirty() {
	buf.status = Dirty
}

// Uses counts cache hits since the block was bound to its slot.
func (buf *Buf) Uses() uint64 {
	return buf.lruCnt
}

func (buf *Buf) Cached() bool {
	return buf.slot != nil
}

func (buf *Buf) checkAddr(a addr.Addr, sz uint64) {
	if a.Blkno != buf.Blkno || a.Off+sz > disk.BlockSize {
		panic(fmt.Sprintf("buf %v: bad object %v size %d", buf, a, sz))
	}
}

// Object returns the sz bytes of the object at a, aliasing the block.
func (buf *Buf) Object(a addr.Addr, sz uint64) []byte {
	buf.checkAddr(a, sz)
	return buf.Data[a.Off : a.Off+sz]
}

// Install copies data into the object at a and marks the block dirty.
func (buf *Buf) Install(a addr.Addr, data []byte) {
	util.DPrintf(10, "%v: install %v\n", buf, a)
	buf.checkAddr(a, uint64(len(data)))
	copy(buf.Data[a.Off:], data)
	buf.SetDirty()
}
