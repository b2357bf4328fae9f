package alloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mit-pdos/go-kfs/buf"
	"github.com/mit-pdos/go-kfs/common"
	"github.com/mit-pdos/go-kfs/disk"
)

func mkAlloc(t *testing.T, max uint64) (*Alloc, *buf.Bcache) {
	bc := buf.MkBcache(8, 8)
	bc.MountDevice(0, disk.NewMemDisk(16))
	a := MkAlloc(bc, 0, 4, max)
	require.NoError(t, a.Format())
	return a, bc
}

func TestAlloc(t *testing.T) {
	assert := assert.New(t)
	max := uint64(32)
	a, bc := mkAlloc(t, max)

	free, err := a.NumFree()
	require.NoError(t, err)
	assert.Equal(max, free, "everything should be initially free")

	for i := uint64(0); i < 3; i++ {
		n, err := a.AllocNum()
		require.NoError(t, err)
		assert.Equal(i, n, "first fit")
	}
	require.NoError(t, a.MarkUsed(3))
	n, err := a.AllocNum()
	require.NoError(t, err)
	assert.Equal(uint64(4), n, "should not allocate something marked used")

	free, _ = a.NumFree()
	assert.Equal(max-5, free)

	require.NoError(t, a.FreeNum(1))
	n, err = a.AllocNum()
	require.NoError(t, err)
	assert.Equal(uint64(1), n, "lowest free number is reused")
	assert.Equal(bc.Len(), bc.NFree(), "no block left checked out")
}

func TestAllocFull(t *testing.T) {
	assert := assert.New(t)
	a, _ := mkAlloc(t, 4)
	for i := 0; i < 4; i++ {
		_, err := a.AllocNum()
		require.NoError(t, err)
	}
	_, err := a.AllocNum()
	assert.ErrorIs(err, common.ErrOutOfSpace)
	assert.ErrorIs(a.FreeNum(4), common.ErrInvalidArgument)
}

func TestAllocPersists(t *testing.T) {
	assert := assert.New(t)
	d := disk.NewMemDisk(16)
	bc := buf.MkBcache(8, 8)
	bc.MountDevice(0, d)
	a := MkAlloc(bc, 0, 4, 600)
	require.NoError(t, a.Format())
	for i := 0; i < 513; i++ {
		_, err := a.AllocNum()
		require.NoError(t, err)
	}
	blk, err := d.Read(5)
	require.NoError(t, err)
	assert.Equal(UNITUSED, blk[0], "number 512 lives in the second map block")
	assert.Equal(UNITFREE, blk[1])

	// a fresh allocator over the same device sees the same map
	a2 := MkAlloc(buf.MkBcache(8, 8), 0, 4, 600)
	a2.bc.MountDevice(0, d)
	used, err := a2.IsUsed(512)
	require.NoError(t, err)
	assert.True(used)
	free, err := a2.NumFree()
	require.NoError(t, err)
	assert.Equal(uint64(600-513), free)
}
