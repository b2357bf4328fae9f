package disk

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkBlock(b byte) Block {
	block := make(Block, BlockSize)
	for i := range block {
		block[i] = b
	}
	return block
}

func testReadWrite(t *testing.T, d Disk) {
	assert := assert.New(t)

	sz, err := d.Size()
	require.NoError(t, err)
	assert.GreaterOrEqual(sz, uint64(10))

	b, err := d.Read(3)
	require.NoError(t, err)
	assert.Equal(mkBlock(0), b, "fresh disk should be zeroed")

	require.NoError(t, d.Write(3, mkBlock(7)))
	require.NoError(t, d.Write(4, mkBlock(8)))
	b, err = d.Read(3)
	require.NoError(t, err)
	assert.Equal(mkBlock(7), b)
	b, err = d.Read(4)
	require.NoError(t, err)
	assert.Equal(mkBlock(8), b, "neighbouring block should be independent")

	_, err = d.Read(sz)
	assert.ErrorIs(err, ErrOutOfBounds)
	assert.ErrorIs(d.Write(sz, mkBlock(1)), ErrOutOfBounds)
	assert.ErrorIs(d.Write(0, make(Block, 10)), ErrBlockSize)
	assert.NoError(d.Barrier())
}

func TestMemDisk(t *testing.T) {
	testReadWrite(t, NewMemDisk(16))
}

func TestFileDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disk.img")
	d, err := NewFileDisk(path, 16)
	require.NoError(t, err)
	testReadWrite(t, d)
	require.NoError(t, d.Close())

	d, err = NewFileDisk(path, 16)
	require.NoError(t, err)
	defer d.Close()
	b, err := d.Read(4)
	require.NoError(t, err)
	assert.Equal(t, mkBlock(8), b, "file disk should persist across reopen")
}

func TestGooseDisk(t *testing.T) {
	d := NewGooseMemDisk(16)
	sz, err := d.Size()
	require.NoError(t, err)
	assert.Equal(t, uint64(16), sz, "16 sectors fit exactly in two goose blocks")
	testReadWrite(t, d)
}

func TestQueueSync(t *testing.T) {
	q := MkQueue(NewMemDisk(16), 4)
	defer q.Shutdown()
	testReadWrite(t, q)
}

func TestQueueAsync(t *testing.T) {
	assert := assert.New(t)
	q := MkQueue(NewMemDisk(64), 8)

	var reqs []*Request
	for i := uint64(0); i < 32; i++ {
		reqs = append(reqs, q.SubmitWrite(i, mkBlock(byte(i))))
	}
	for _, r := range reqs {
		assert.NoError(<-r.Done())
	}

	var wg sync.WaitGroup
	bufs := make([]Block, 32)
	for i := range bufs {
		bufs[i] = make(Block, BlockSize)
		r := q.SubmitRead(uint64(i), bufs[i])
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(r.Wait())
		}()
	}
	wg.Wait()
	for i, b := range bufs {
		assert.Equal(mkBlock(byte(i)), b, "block %d", i)
	}

	assert.ErrorIs(q.SubmitRead(100, make(Block, BlockSize)).Wait(), ErrOutOfBounds)

	q.Shutdown()
	assert.ErrorIs(q.SubmitRead(0, make(Block, BlockSize)).Wait(), ErrClosed,
		"submit after shutdown should fail")
}
