package addr

import (
	"fmt"

	"github.com/mit-pdos/go-kfs/common"
	"github.com/mit-pdos/go-kfs/disk"
)

// Addr identifies the start of a disk object.
//
// Blkno is the block number containing the object, and Off is the location of
// the object within the block (expressed as a byte offset). The size of the
// object is determined by the context in which Addr is used.
type Addr struct {
	Blkno common.Bnum
	Off   uint64 // offset in bytes
}

func (a Addr) Flatid() uint64 {
	return uint64(a.Blkno)*disk.BlockSize + a.Off
}

func (a Addr) String() string {
	return fmt.Sprintf("%d+%d", a.Blkno, a.Off)
}

func MkAddr(blkno common.Bnum, off uint64) Addr {
	return Addr{Blkno: blkno, Off: off}
}

// MkByteAddr locates unit n of a byte-per-unit map starting at block start.
func MkByteAddr(start common.Bnum, n uint64) Addr {
	return MkAddr(start+common.Bnum(n/disk.BlockSize), n%disk.BlockSize)
}
