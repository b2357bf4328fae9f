package inode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mit-pdos/go-kfs/buf"
	"github.com/mit-pdos/go-kfs/common"
	"github.com/mit-pdos/go-kfs/disk"
	"github.com/mit-pdos/go-kfs/super"
)

func mkIcache(t *testing.T, ninode uint64) (*Icache, *buf.Bcache) {
	bc := buf.MkBcache(16, 16)
	bc.MountDevice(0, disk.NewMemDisk(256))
	sb, err := super.MkLayout(0, 256, 4)
	require.NoError(t, err)
	ic := MkIcache(bc, ninode, 8)
	ic.MountDevice(0, sb)
	return ic, bc
}

func TestDiskInodeSize(t *testing.T) {
	di := DiskInode{Type: I_DIR, Size: 1000, Nlink: 2}
	di.Blocks[common.NDIRECT-1] = 77
	data := di.Encode()
	assert.Equal(t, common.INODESZ, uint64(len(data)))
	assert.Equal(t, di, Decode(data))
}

func TestLookupHit(t *testing.T) {
	assert := assert.New(t)
	ic, _ := mkIcache(t, 4)
	ip, err := ic.Lookup(0, 3)
	require.NoError(t, err)
	assert.Equal(Empty, ip.State())
	ip2, err := ic.Lookup(0, 3)
	require.NoError(t, err)
	assert.Same(ip, ip2)
	assert.Equal(uint64(1), ip2.Access)
	assert.NoError(ic.Check())

	_, err = ic.Lookup(0, common.NULLINUM)
	assert.ErrorIs(err, common.ErrInvalidArgument)
	_, err = ic.Lookup(0, 16)
	assert.ErrorIs(err, common.ErrInvalidArgument)
	_, err = ic.Lookup(1, 3)
	assert.ErrorIs(err, common.ErrNoDevice)
}

func TestLookupExhausted(t *testing.T) {
	assert := assert.New(t)
	ic, _ := mkIcache(t, 2)
	_, err := ic.Lookup(0, 1)
	require.NoError(t, err)
	ip, err := ic.Lookup(0, 2)
	require.NoError(t, err)
	_, err = ic.Lookup(0, 3)
	assert.ErrorIs(err, common.ErrCacheExhausted)
	ic.Release(ip)
	_, err = ic.Lookup(0, 3)
	assert.NoError(err)
	assert.False(ic.Cached(0, 2))
}

func TestFlushGet(t *testing.T) {
	assert := assert.New(t)
	ic, bc := mkIcache(t, 4)
	ip, err := ic.Alloc(0, 5, I_FILE, M_READ|M_WRITE, 100)
	require.NoError(t, err)
	ip.SetBlock(0, 300)
	ip.Disk.Size = 12
	require.NoError(t, ic.Flush(ip))
	ic.Release(ip)
	assert.Equal(bc.Len(), bc.NFree())

	ip, err = ic.Get(0, 5)
	require.NoError(t, err)
	assert.Equal(Loaded, ip.State())
	assert.Equal(I_FILE, ip.Disk.Type)
	assert.Equal(uint64(12), ip.Size())
	assert.Equal(common.Bnum(300), ip.Block(0))
	assert.Equal(uint32(1), ip.Disk.Nblock)

	// neighbor in the same block is untouched
	ip4, err := ic.Get(0, 4)
	require.NoError(t, err)
	assert.Equal(I_NONE, ip4.Disk.Type)

	st := ip.Stat()
	assert.Equal(common.Inum(5), st.Inum)
	assert.Equal(uint32(100), st.Mtime)
}
