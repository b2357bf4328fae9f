package inode

import (
	"fmt"

	"github.com/tchajed/marshal"

	"github.com/mit-pdos/go-kfs/common"
)

type Itype uint32

const (
	I_NONE Itype = 0
	I_FILE Itype = 1
	I_DEV  Itype = 2
	I_PIPE Itype = 3
	I_SOCK Itype = 4
	I_DIR  Itype = 5
)

func (t Itype) String() string {
	switch t {
	case I_NONE:
		return "none"
	case I_FILE:
		return "file"
	case I_DEV:
		return "dev"
	case I_PIPE:
		return "pipe"
	case I_SOCK:
		return "sock"
	case I_DIR:
		return "dir"
	}
	return fmt.Sprintf("Itype(%d)", uint32(t))
}

const (
	M_NONE  uint32 = 0x0
	M_READ  uint32 = 0x1
	M_WRITE uint32 = 0x2
	M_EXEC  uint32 = 0x4
)

// DiskInode is the on-disk inode, INODESZ bytes: ten 32-bit fields, the
// 64-bit size, and NDIRECT 32-bit block pointers. A zero pointer is a hole.
type DiskInode struct {
	Uid    uint32
	Gid    uint32
	Mode   uint32
	Type   Itype
	Flag   uint32
	Atime  uint32
	Ctime  uint32
	Mtime  uint32
	Nlink  uint32
	Nblock uint32
	Size   uint64
	Blocks [common.NDIRECT]uint32
}

func (di *DiskInode) Encode() []byte {
	enc := marshal.NewEnc(common.INODESZ)
	enc.PutInt32(di.Uid)
	enc.PutInt32(di.Gid)
	enc.PutInt32(di.Mode)
	enc.PutInt32(uint32(di.Type))
	enc.PutInt32(di.Flag)
	enc.PutInt32(di.Atime)
	enc.PutInt32(di.Ctime)
	enc.PutInt32(di.Mtime)
	enc.PutInt32(di.Nlink)
	enc.PutInt32(di.Nblock)
	enc.PutInt(di.Size)
	for _, bn := range di.Blocks {
		enc.PutInt32(bn)
	}
	return enc.Finish()
}

func Decode(data []byte) DiskInode {
	dec := marshal.NewDec(data[:common.INODESZ])
	var di DiskInode
	di.Uid = dec.GetInt32()
	di.Gid = dec.GetInt32()
	di.Mode = dec.GetInt32()
	di.Type = Itype(dec.GetInt32())
	di.Flag = dec.GetInt32()
	di.Atime = dec.GetInt32()
	di.Ctime = dec.GetInt32()
	di.Mtime = dec.GetInt32()
	di.Nlink = dec.GetInt32()
	di.Nblock = dec.GetInt32()
	di.Size = dec.GetInt()
	for i := range di.Blocks {
		di.Blocks[i] = dec.GetInt32()
	}
	return di
}
