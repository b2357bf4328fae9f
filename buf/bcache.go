package buf

import (
	"fmt"

	"github.com/mit-pdos/go-kfs/cache"
	"github.com/mit-pdos/go-kfs/common"
	"github.com/mit-pdos/go-kfs/disk"
	"github.com/mit-pdos/go-kfs/util"
)

type bkey struct {
	dev   common.Dev
	blkno common.Bnum
}

// blocks on different devices with the same number land on different chains
func hashKey(k bkey) uint64 {
	return uint64(k.blkno)*common.SECPERBLK + uint64(k.dev)
}

// Bcache is the block buffer cache: a fixed pool of block-sized buffers,
// indexed by (device, block number).
//
// Bufs are not reference counted. A Buf returned by Lookup or Read stays bound
// to its block until Release, which makes its slot reusable at once.
type Bcache struct {
	cache *cache.Cache[bkey, *Buf]
	devs  map[common.Dev]disk.Disk
}

func MkBcache(nbuf uint64, nhash uint64) *Bcache {
	bc := &Bcache{
		devs: make(map[common.Dev]disk.Disk),
	}
	bc.cache = cache.MkCache[bkey, *Buf](nbuf, nhash, hashKey,
		func(id int) *Buf {
			return &Buf{Data: make(disk.Block, disk.BlockSize)}
		})
	return bc
}

func (bc *Bcache) MountDevice(dev common.Dev, d disk.Disk) {
	bc.devs[dev] = d
}

func (bc *Bcache) Device(dev common.Dev) (disk.Disk, error) {
	d, ok := bc.devs[dev]
	if !ok {
		return nil, fmt.Errorf("device %d: %w", dev, common.ErrNoDevice)
	}
	return d, nil
}

// Lookup returns the cached buffer for (dev, blkno), binding a free slot to it
// on a miss. A hit returns the same Buf as earlier lookups. A freshly bound
// buffer is Unused; the caller fills it.
func (bc *Bcache) Lookup(dev common.Dev, blkno common.Bnum) (*Buf, error) {
	s, hit, err := bc.cache.Lookup(bkey{dev: dev, blkno: blkno})
	if err != nil {
		return nil, fmt.Errorf("block %d/%d: %w", dev, blkno, err)
	}
	b := s.Obj
	if hit {
		b.lruCnt += 1
		if b.status == Unused {
			b.status = Valid
		}
		return b, nil
	}
	b.Dev = dev
	b.Blkno = blkno
	b.status = Unused
	b.lruCnt = 0
	b.slot = s
	return b, nil
}

// Release returns b's slot to the tail of the free pool. b must not be used
// afterwards.
func (bc *Bcache) Release(b *Buf) {
	if !b.Cached() {
		return
	}
	util.DPrintf(15, "release %v\n", b)
	s := b.slot
	b.slot = nil
	b.status = Unused
	bc.cache.FreeSlot(s)
}

// Read returns the buffer for (dev, blkno), reading it from the device unless
// it is already cached.
func (bc *Bcache) Read(dev common.Dev, blkno common.Bnum) (*Buf, error) {
	d, err := bc.Device(dev)
	if err != nil {
		return nil, err
	}
	if s := bc.cache.LookupSlot(bkey{dev: dev, blkno: blkno}); s != nil && s.Obj.status != Unused {
		s.Obj.lruCnt += 1
		return s.Obj, nil
	}
	b, err := bc.Lookup(dev, blkno)
	if err != nil {
		return nil, err
	}
	util.DPrintf(10, "read %d/%d\n", dev, blkno)
	if err := d.ReadTo(blkno, b.Data); err != nil {
		bc.Release(b)
		return nil, fmt.Errorf("read %d/%d: %w: %w", dev, blkno, common.ErrIO, err)
	}
	b.status = Valid
	return b, nil
}

// Write writes b to its device at once. The canonical cached buffer for b's
// block, if any, takes b's contents. A standalone b does not stay cached.
func (bc *Bcache) Write(b *Buf) error {
	d, err := bc.Device(b.Dev)
	if err != nil {
		return err
	}
	c := b
	if s := bc.cache.LookupSlot(bkey{dev: b.Dev, blkno: b.Blkno}); s != nil {
		c = s.Obj
		if c != b {
			copy(c.Data, b.Data)
		}
	}
	util.DPrintf(10, "write %v\n", b)
	if err := d.Write(b.Blkno, c.Data); err != nil {
		return fmt.Errorf("write %d/%d: %w: %w", b.Dev, b.Blkno, common.ErrIO, err)
	}
	c.status = Valid
	b.status = Valid
	return nil
}

// Barrier flushes every mounted device.
func (bc *Bcache) Barrier() error {
	for dev, d := range bc.devs {
		if err := d.Barrier(); err != nil {
			return fmt.Errorf("barrier %d: %w: %w", dev, common.ErrIO, err)
		}
	}
	return nil
}

func (bc *Bcache) NFree() uint64 {
	return bc.cache.NFree()
}

func (bc *Bcache) Len() uint64 {
	return bc.cache.Len()
}

func (bc *Bcache) Check() error {
	return bc.cache.Check()
}
