package inode

import (
	"fmt"

	"github.com/mit-pdos/go-kfs/buf"
	"github.com/mit-pdos/go-kfs/cache"
	"github.com/mit-pdos/go-kfs/common"
	"github.com/mit-pdos/go-kfs/super"
	"github.com/mit-pdos/go-kfs/util"
)

type ikey struct {
	dev  common.Dev
	inum common.Inum
}

func hashKey(k ikey) uint64 {
	return uint64(k.inum)
}

// Icache is the inode cache: a fixed pool of in-memory inodes indexed by
// (device, inode number). An inode stays cached until Release.
type Icache struct {
	cache *cache.Cache[ikey, *Inode]
	bc    *buf.Bcache
	sbs   map[common.Dev]*super.Superblock
}

func MkIcache(bc *buf.Bcache, ninode uint64, nhash uint64) *Icache {
	ic := &Icache{
		bc:  bc,
		sbs: make(map[common.Dev]*super.Superblock),
	}
	ic.cache = cache.MkCache[ikey, *Inode](ninode, nhash, hashKey,
		func(id int) *Inode {
			return &Inode{}
		})
	return ic
}

func (ic *Icache) MountDevice(dev common.Dev, sb *super.Superblock) {
	ic.sbs[dev] = sb
}

func (ic *Icache) superOf(dev common.Dev, inum common.Inum) (*super.Superblock, error) {
	sb, ok := ic.sbs[dev]
	if !ok {
		return nil, fmt.Errorf("inode %d/%d: %w", dev, inum, common.ErrNoDevice)
	}
	if inum == common.NULLINUM || uint64(inum) >= sb.NInode() {
		return nil, fmt.Errorf("inode %d/%d: %w", dev, inum, common.ErrInvalidArgument)
	}
	return sb, nil
}

// Lookup returns the cached inode for (dev, inum). A hit increments its access
// count. A miss binds a free slot in the Empty state without reading the
// device.
func (ic *Icache) Lookup(dev common.Dev, inum common.Inum) (*Inode, error) {
	if _, err := ic.superOf(dev, inum); err != nil {
		return nil, err
	}
	s, hit, err := ic.cache.Lookup(ikey{dev: dev, inum: inum})
	if err != nil {
		return nil, fmt.Errorf("inode %d/%d: %w", dev, inum, err)
	}
	ip := s.Obj
	if hit {
		ip.Access += 1
		return ip, nil
	}
	ip.Inum = inum
	ip.Dev = dev
	ip.Access = 0
	ip.Disk = DiskInode{}
	ip.state = Empty
	ip.slot = s
	return ip, nil
}

// Get returns the inode for (dev, inum), loading it from the inode region if
// it is not loaded yet.
func (ic *Icache) Get(dev common.Dev, inum common.Inum) (*Inode, error) {
	ip, err := ic.Lookup(dev, inum)
	if err != nil {
		return nil, err
	}
	if ip.state == Loaded {
		return ip, nil
	}
	sb := ic.sbs[dev]
	a := sb.Inum2Addr(inum)
	ip.state = Loading
	b, err := ic.bc.Read(dev, a.Blkno)
	if err != nil {
		ic.Release(ip)
		return nil, fmt.Errorf("load inode %d: %w", inum, err)
	}
	ip.Disk = Decode(b.Object(a, common.INODESZ))
	ic.bc.Release(b)
	ip.state = Loaded
	util.DPrintf(5, "load %v\n", ip)
	return ip, nil
}

// Alloc binds (dev, inum) to a fresh inode of type t, without reading the
// device. The caller flushes it.
func (ic *Icache) Alloc(dev common.Dev, inum common.Inum, t Itype, mode uint32, now uint32) (*Inode, error) {
	ip, err := ic.Lookup(dev, inum)
	if err != nil {
		return nil, err
	}
	ip.Disk = DiskInode{
		Mode:  mode,
		Type:  t,
		Nlink: 1,
		Atime: now,
		Ctime: now,
		Mtime: now,
	}
	ip.state = Loaded
	return ip, nil
}

// Flush writes ip back to its slot in the inode region.
func (ic *Icache) Flush(ip *Inode) error {
	if ip.state != Loaded {
		panic(fmt.Sprintf("flush %v", ip))
	}
	sb, err := ic.superOf(ip.Dev, ip.Inum)
	if err != nil {
		return err
	}
	a := sb.Inum2Addr(ip.Inum)
	b, err := ic.bc.Read(ip.Dev, a.Blkno)
	if err != nil {
		return fmt.Errorf("flush inode %d: %w", ip.Inum, err)
	}
	defer ic.bc.Release(b)
	b.Install(a, ip.Disk.Encode())
	if err := ic.bc.Write(b); err != nil {
		return fmt.Errorf("flush inode %d: %w", ip.Inum, err)
	}
	util.DPrintf(5, "flush %v\n", ip)
	return nil
}

// Release returns ip's slot to the free pool. ip must not be used
// afterwards.
func (ic *Icache) Release(ip *Inode) {
	if ip.slot == nil {
		return
	}
	s := ip.slot
	ip.slot = nil
	ip.state = Empty
	ic.cache.FreeSlot(s)
}

func (ic *Icache) Cached(dev common.Dev, inum common.Inum) bool {
	return ic.cache.LookupSlot(ikey{dev: dev, inum: inum}) != nil
}

func (ic *Icache) NFree() uint64 {
	return ic.cache.NFree()
}

func (ic *Icache) Check() error {
	return ic.cache.Check()
}
