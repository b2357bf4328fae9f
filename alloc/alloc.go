package alloc

import (
	"fmt"

	"github.com/mit-pdos/go-kfs/addr"
	"github.com/mit-pdos/go-kfs/buf"
	"github.com/mit-pdos/go-kfs/common"
	"github.com/mit-pdos/go-kfs/disk"
	"github.com/mit-pdos/go-kfs/util"
)

const (
	UNITFREE byte = 0
	UNITUSED byte = 1
)

// Alloc allocates and frees numbers 0..len-1 using an on-disk map with one
// byte per number, starting at block start. Every change is written to the
// device before it returns. Callers serialize access.
type Alloc struct {
	bc    *buf.Bcache
	dev   common.Dev
	start common.Bnum
	len   uint64
}

func MkAlloc(bc *buf.Bcache, dev common.Dev, start common.Bnum, len uint64) *Alloc {
	a := &Alloc{
		bc:    bc,
		dev:   dev,
		start: start,
		len:   len,
	}
	return a
}

func (a *Alloc) Len() uint64 {
	return a.len
}

func (a *Alloc) nblocks() uint64 {
	return util.RoundUp(a.len, disk.BlockSize)
}

// Format clears the whole map.
func (a *Alloc) Format() error {
	for i := uint64(0); i < a.nblocks(); i++ {
		b := buf.MkBuf(a.dev, a.start+common.Bnum(i))
		if err := a.bc.Write(b); err != nil {
			return fmt.Errorf("format bitmap: %w", err)
		}
	}
	return nil
}

// readUnit returns the cached map block holding number n, and n's address
// in it. The caller releases the block.
func (a *Alloc) readUnit(n uint64) (*buf.Buf, addr.Addr, error) {
	ad := addr.MkByteAddr(a.start, n)
	b, err := a.bc.Read(a.dev, ad.Blkno)
	if err != nil {
		return nil, ad, err
	}
	return b, ad, nil
}

func (a *Alloc) setUnit(n uint64, v byte) error {
	if n >= a.len {
		return fmt.Errorf("unit %d of %d: %w", n, a.len, common.ErrInvalidArgument)
	}
	b, ad, err := a.readUnit(n)
	if err != nil {
		return err
	}
	defer a.bc.Release(b)
	b.Install(ad, []byte{v})
	return a.bc.Write(b)
}

// AllocNum claims the lowest free number.
func (a *Alloc) AllocNum() (uint64, error) {
	for blk := uint64(0); blk < a.nblocks(); blk++ {
		b, _, err := a.readUnit(blk * disk.BlockSize)
		if err != nil {
			return 0, err
		}
		for off := uint64(0); off < disk.BlockSize; off++ {
			n := blk*disk.BlockSize + off
			if n >= a.len {
				break
			}
			if b.Data[off] != UNITFREE {
				continue
			}
			b.Install(addr.MkAddr(b.Blkno, off), []byte{UNITUSED})
			err := a.bc.Write(b)
			a.bc.Release(b)
			if err != nil {
				return 0, err
			}
			util.DPrintf(5, "alloc %d/%d: %d\n", a.dev, a.start, n)
			return n, nil
		}
		a.bc.Release(b)
	}
	return 0, fmt.Errorf("bitmap %d/%d: %w", a.dev, a.start, common.ErrOutOfSpace)
}

func (a *Alloc) FreeNum(n uint64) error {
	util.DPrintf(5, "free %d/%d: %d\n", a.dev, a.start, n)
	return a.setUnit(n, UNITFREE)
}

func (a *Alloc) MarkUsed(n uint64) error {
	return a.setUnit(n, UNITUSED)
}

func (a *Alloc) IsUsed(n uint64) (bool, error) {
	if n >= a.len {
		return false, fmt.Errorf("unit %d of %d: %w", n, a.len, common.ErrInvalidArgument)
	}
	b, ad, err := a.readUnit(n)
	if err != nil {
		return false, err
	}
	used := b.Object(ad, 1)[0] != UNITFREE
	a.bc.Release(b)
	return used, nil
}

func (a *Alloc) NumFree() (uint64, error) {
	n := uint64(0)
	for blk := uint64(0); blk < a.nblocks(); blk++ {
		b, _, err := a.readUnit(blk * disk.BlockSize)
		if err != nil {
			return 0, err
		}
		for off := uint64(0); off < disk.BlockSize && blk*disk.BlockSize+off < a.len; off++ {
			if b.Data[off] == UNITFREE {
				n += 1
			}
		}
		a.bc.Release(b)
	}
	return n, nil
}
