package file

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mit-pdos/go-kfs/common"
	"github.com/mit-pdos/go-kfs/inode"
)

func TestInstallNext(t *testing.T) {
	assert := assert.New(t)
	tbl := MkTable()
	ip := &inode.Inode{Inum: 3}
	fd0, err := tbl.InstallNext(File{Type: F_REG, Ip: ip})
	require.NoError(t, err)
	fd1, err := tbl.InstallNext(File{Type: F_REG, Ip: ip})
	require.NoError(t, err)
	assert.Equal(Fd(0), fd0)
	assert.Equal(Fd(1), fd1)

	require.NoError(t, tbl.Close(fd0))
	fd2, err := tbl.InstallNext(File{Type: F_REG})
	require.NoError(t, err)
	assert.Equal(Fd(2), fd2, "counter does not reuse closed descriptors")
	assert.Equal(uint64(1), tbl.Refs(ip))
}

func TestInstallFree(t *testing.T) {
	assert := assert.New(t)
	tbl := MkTable()
	for i := 0; i < 3; i++ {
		_, err := tbl.InstallNext(File{})
		require.NoError(t, err)
	}
	require.NoError(t, tbl.Close(1))
	fd, err := tbl.InstallFree(File{Off: 9})
	require.NoError(t, err)
	assert.Equal(Fd(1), fd)
	f, err := tbl.Get(fd)
	require.NoError(t, err)
	assert.Equal(uint64(9), f.Off)

	fd, err = tbl.InstallNext(File{})
	require.NoError(t, err)
	assert.Equal(Fd(3), fd)
}

func TestTableFull(t *testing.T) {
	assert := assert.New(t)
	tbl := MkTable()
	for i := uint64(0); i < common.NOPENFILE; i++ {
		_, err := tbl.InstallNext(File{})
		require.NoError(t, err)
	}
	_, err := tbl.InstallNext(File{})
	assert.ErrorIs(err, common.ErrTableFull)
	_, err = tbl.InstallFree(File{})
	assert.ErrorIs(err, common.ErrTableFull)

	require.NoError(t, tbl.Close(5))
	fd, err := tbl.InstallNext(File{})
	require.NoError(t, err)
	assert.Equal(Fd(5), fd)
	assert.Equal(common.NOPENFILE, tbl.NOpen())
}

func TestBadFd(t *testing.T) {
	assert := assert.New(t)
	tbl := MkTable()
	_, err := tbl.Get(0)
	assert.ErrorIs(err, common.ErrBadFd)
	assert.ErrorIs(tbl.Close(Fd(common.NOPENFILE)), common.ErrBadFd)
	fd, _ := tbl.InstallNext(File{})
	require.NoError(t, tbl.Close(fd))
	assert.ErrorIs(tbl.Close(fd), common.ErrBadFd)
}
