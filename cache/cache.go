// Package cache implements a fixed pool of cache slots.
//
// Every slot is either Free, and then linked on the free list, or InUse under
// exactly one key, and then linked on the hash chain for that key. Links are
// slot indices rather than pointers, so a slot can be rebound to another key
// without leaving stale references behind. There is no eviction: a slot
// leaves its hash chain only through FreeSlot.
//
// A Cache does no locking; callers serialize access.
package cache

import (
	"fmt"

	"github.com/mit-pdos/go-kfs/common"
)

type SlotState int

const (
	Free SlotState = iota
	InUse
)

func (s SlotState) String() string {
	switch s {
	case Free:
		return "free"
	case InUse:
		return "in-use"
	}
	return fmt.Sprintf("SlotState(%d)", int(s))
}

const nilSlot = -1

type Cslot[K comparable, T any] struct {
	Obj T

	id    int
	state SlotState
	key   K

	prev, next   int // free list
	hprev, hnext int // hash chain
}

func (s *Cslot[K, T]) Id() int {
	return s.id
}

func (s *Cslot[K, T]) State() SlotState {
	return s.state
}

// Key returns the slot's key; ok is false for a free slot.
func (s *Cslot[K, T]) Key() (key K, ok bool) {
	if s.state != InUse {
		return key, false
	}
	return s.key, true
}

type Cache[K comparable, T any] struct {
	slots    []Cslot[K, T]
	hash     []int
	hashfn   func(K) uint64
	freeHead int
	freeTail int
	nfree    uint64
}

// MkCache makes a cache with nslot slots and nhash hash chains. mk builds the
// object held by slot id; objects live as long as the cache.
func MkCache[K comparable, T any](nslot uint64, nhash uint64, hashfn func(K) uint64, mk func(id int) T) *Cache[K, T] {
	if nslot == 0 || nhash == 0 {
		panic("MkCache")
	}
	c := &Cache[K, T]{
		slots:    make([]Cslot[K, T], nslot),
		hash:     make([]int, nhash),
		hashfn:   hashfn,
		freeHead: nilSlot,
		freeTail: nilSlot,
	}
	for i := range c.hash {
		c.hash[i] = nilSlot
	}
	for i := range c.slots {
		s := &c.slots[i]
		s.id = i
		s.state = Free
		s.hprev = nilSlot
		s.hnext = nilSlot
		s.Obj = mk(i)
		c.pushFree(i)
	}
	return c
}

func (c *Cache[K, T]) chain(k K) uint64 {
	return c.hashfn(k) % uint64(len(c.hash))
}

func (c *Cache[K, T]) pushFree(i int) {
	s := &c.slots[i]
	s.next = nilSlot
	s.prev = c.freeTail
	if c.freeTail == nilSlot {
		c.freeHead = i
	} else {
		c.slots[c.freeTail].next = i
	}
	c.freeTail = i
	c.nfree += 1
}

func (c *Cache[K, T]) popFree() int {
	i := c.freeHead
	if i == nilSlot {
		return nilSlot
	}
	s := &c.slots[i]
	c.freeHead = s.next
	if c.freeHead == nilSlot {
		c.freeTail = nilSlot
	} else {
		c.slots[c.freeHead].prev = nilSlot
	}
	s.next = nilSlot
	s.prev = nilSlot
	c.nfree -= 1
	return i
}

func (c *Cache[K, T]) linkHash(i int) {
	s := &c.slots[i]
	h := c.chain(s.key)
	s.hprev = nilSlot
	s.hnext = c.hash[h]
	if s.hnext != nilSlot {
		c.slots[s.hnext].hprev = i
	}
	c.hash[h] = i
}

func (c *Cache[K, T]) unlinkHash(i int) {
	s := &c.slots[i]
	if s.hprev == nilSlot {
		c.hash[c.chain(s.key)] = s.hnext
	} else {
		c.slots[s.hprev].hnext = s.hnext
	}
	if s.hnext != nilSlot {
		c.slots[s.hnext].hprev = s.hprev
	}
	s.hprev = nilSlot
	s.hnext = nilSlot
}

// LookupSlot returns the slot holding k, or nil.
func (c *Cache[K, T]) LookupSlot(k K) *Cslot[K, T] {
	for i := c.hash[c.chain(k)]; i != nilSlot; i = c.slots[i].hnext {
		if c.slots[i].key == k {
			return &c.slots[i]
		}
	}
	return nil
}

// Lookup returns the slot for k. On a hit, hit is true and the slot is the
// same one returned by earlier lookups of k. On a miss the head of the free
// list is bound to k and linked into its hash chain; the caller must
// initialize the slot's object. If no slot is free, Lookup returns
// ErrCacheExhausted.
func (c *Cache[K, T]) Lookup(k K) (s *Cslot[K, T], hit bool, err error) {
	s = c.LookupSlot(k)
	if s != nil {
		return s, true, nil
	}
	i := c.popFree()
	if i == nilSlot {
		return nil, false, common.ErrCacheExhausted
	}
	s = &c.slots[i]
	s.state = InUse
	s.key = k
	c.linkHash(i)
	return s, false, nil
}

// FreeSlot unlinks s from its hash chain and appends it to the tail of the
// free list.
func (c *Cache[K, T]) FreeSlot(s *Cslot[K, T]) {
	if s.state != InUse || &c.slots[s.id] != s {
		panic("FreeSlot")
	}
	c.unlinkHash(s.id)
	var zero K
	s.key = zero
	s.state = Free
	c.pushFree(s.id)
}

func (c *Cache[K, T]) NFree() uint64 {
	return c.nfree
}

func (c *Cache[K, T]) Len() uint64 {
	return uint64(len(c.slots))
}

// Apply calls f on every in-use slot.
func (c *Cache[K, T]) Apply(f func(s *Cslot[K, T])) {
	for i := range c.slots {
		if c.slots[i].state == InUse {
			f(&c.slots[i])
		}
	}
}

// Check verifies that every slot is on exactly one of the free list or the
// hash chain for its key, and that keys are unique.
func (c *Cache[K, T]) Check() error {
	seen := make([]bool, len(c.slots))
	nfree := uint64(0)
	prev := nilSlot
	for i := c.freeHead; i != nilSlot; i = c.slots[i].next {
		if seen[i] {
			return fmt.Errorf("slot %d: free list cycle", i)
		}
		if c.slots[i].state != Free {
			return fmt.Errorf("slot %d: %v on free list", i, c.slots[i].state)
		}
		if c.slots[i].prev != prev {
			return fmt.Errorf("slot %d: bad free prev link", i)
		}
		seen[i] = true
		prev = i
		nfree += 1
	}
	if prev != c.freeTail {
		return fmt.Errorf("free tail %d, expected %d", c.freeTail, prev)
	}
	if nfree != c.nfree {
		return fmt.Errorf("free count %d, expected %d", c.nfree, nfree)
	}
	keys := make(map[K]int)
	for h, head := range c.hash {
		prev := nilSlot
		for i := head; i != nilSlot; i = c.slots[i].hnext {
			s := &c.slots[i]
			if seen[i] {
				return fmt.Errorf("slot %d: on two lists", i)
			}
			if s.state != InUse {
				return fmt.Errorf("slot %d: %v on hash chain", i, s.state)
			}
			if c.chain(s.key) != uint64(h) {
				return fmt.Errorf("slot %d: on chain %d, hashes to %d", i, h, c.chain(s.key))
			}
			if s.hprev != prev {
				return fmt.Errorf("slot %d: bad hash prev link", i)
			}
			if j, ok := keys[s.key]; ok {
				return fmt.Errorf("slots %d and %d: duplicate key %v", j, i, s.key)
			}
			keys[s.key] = i
			seen[i] = true
			prev = i
		}
	}
	for i, ok := range seen {
		if !ok {
			return fmt.Errorf("slot %d: on no list", i)
		}
	}
	return nil
}
