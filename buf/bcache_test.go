package buf

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mit-pdos/go-kfs/addr"
	"github.com/mit-pdos/go-kfs/common"
	"github.com/mit-pdos/go-kfs/disk"
)

var errInjected = errors.New("injected")

type faultyDisk struct {
	disk.Disk
	failWrites bool
	failReads  bool
	reads      int
}

func (d *faultyDisk) ReadTo(a uint64, b disk.Block) error {
	d.reads++
	if d.failReads {
		return errInjected
	}
	return d.Disk.ReadTo(a, b)
}

func (d *faultyDisk) Write(a uint64, v disk.Block) error {
	if d.failWrites {
		return errInjected
	}
	return d.Disk.Write(a, v)
}

func mkBcache(t *testing.T, nbuf uint64) (*Bcache, *faultyDisk) {
	d := &faultyDisk{Disk: disk.NewMemDisk(64)}
	bc := MkBcache(nbuf, 8)
	bc.MountDevice(0, d)
	return bc, d
}

func TestLookupHit(t *testing.T) {
	assert := assert.New(t)
	bc, _ := mkBcache(t, 4)
	b, err := bc.Lookup(0, 5)
	require.NoError(t, err)
	assert.Equal(Unused, b.Status())
	b2, err := bc.Lookup(0, 5)
	require.NoError(t, err)
	assert.Same(b, b2)
	assert.Equal(uint64(1), b2.Uses())
	assert.Equal(uint64(3), bc.NFree())
	assert.NoError(bc.Check())
}

func TestLookupExhausted(t *testing.T) {
	assert := assert.New(t)
	bc, _ := mkBcache(t, 2)
	_, err := bc.Lookup(0, 1)
	require.NoError(t, err)
	b, err := bc.Lookup(0, 2)
	require.NoError(t, err)
	_, err = bc.Lookup(0, 3)
	assert.ErrorIs(err, common.ErrCacheExhausted)

	assert.True(b.Cached())
	bc.Release(b)
	assert.False(b.Cached())
	_, err = bc.Lookup(0, 3)
	assert.NoError(err)
	assert.NoError(bc.Check())
}

func TestReleaseStandalone(t *testing.T) {
	assert := assert.New(t)
	bc, _ := mkBcache(t, 2)
	b := MkBuf(0, 9)
	assert.False(b.Cached())
	bc.Release(b)
	assert.Equal(uint64(2), bc.NFree())
	assert.NoError(bc.Check())
}

func TestDeviceFolding(t *testing.T) {
	assert := assert.New(t)
	bc := MkBcache(4, 4)
	d0 := disk.NewMemDisk(8)
	d1 := disk.NewMemDisk(8)
	bc.MountDevice(0, d0)
	bc.MountDevice(1, d1)

	b0 := MkBuf(0, 3)
	b0.Data[0] = 'a'
	require.NoError(t, bc.Write(b0))
	b1 := MkBuf(1, 3)
	b1.Data[0] = 'b'
	require.NoError(t, bc.Write(b1))

	r0, err := bc.Read(0, 3)
	require.NoError(t, err)
	r1, err := bc.Read(1, 3)
	require.NoError(t, err)
	assert.NotSame(r0, r1)
	assert.Equal(byte('a'), r0.Data[0])
	assert.Equal(byte('b'), r1.Data[0])
	assert.NotEqual(hashKey(bkey{0, 3}), hashKey(bkey{1, 3}))
}

func TestReadCached(t *testing.T) {
	assert := assert.New(t)
	bc, d := mkBcache(t, 4)
	b, err := bc.Read(0, 7)
	require.NoError(t, err)
	assert.Equal(Valid, b.Status())
	assert.Equal(1, d.reads)

	b2, err := bc.Read(0, 7)
	require.NoError(t, err)
	assert.Same(b, b2)
	assert.Equal(1, d.reads, "cached block should not be read again")
}

func TestWriteUpdatesCached(t *testing.T) {
	assert := assert.New(t)
	bc, d := mkBcache(t, 4)
	cached, err := bc.Read(0, 2)
	require.NoError(t, err)

	w := MkBuf(0, 2)
	w.Data[10] = 42
	require.NoError(t, bc.Write(w))
	assert.Equal(byte(42), cached.Data[10])

	blk, err := d.Read(2)
	require.NoError(t, err)
	assert.Equal(byte(42), blk[10])

	// standalone write of an uncached block leaves no slot behind
	free := bc.NFree()
	require.NoError(t, bc.Write(MkBuf(0, 3)))
	assert.Equal(free, bc.NFree())
}

func TestIOErrors(t *testing.T) {
	assert := assert.New(t)
	bc, d := mkBcache(t, 4)
	d.failReads = true
	_, err := bc.Read(0, 1)
	assert.ErrorIs(err, common.ErrIO)
	assert.ErrorIs(err, errInjected)
	assert.Equal(uint64(4), bc.NFree())

	d.failWrites = true
	err = bc.Write(MkBuf(0, 1))
	assert.ErrorIs(err, common.ErrIO)

	_, err = bc.Read(9, 1)
	assert.ErrorIs(err, common.ErrNoDevice)
}

func TestObjectInstall(t *testing.T) {
	assert := assert.New(t)
	b := MkBuf(0, 4)
	a := addr.MkAddr(4, 100)
	b.Install(a, []byte{1, 2, 3})
	assert.True(b.IsDirty())
	assert.Equal([]byte{1, 2, 3}, b.Object(a, 3))
	assert.Panics(func() { b.Object(addr.MkAddr(5, 0), 1) })
	assert.Panics(func() { b.Object(addr.MkAddr(4, disk.BlockSize-1), 2) })
}
