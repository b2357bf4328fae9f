package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mit-pdos/go-kfs/common"
)

func mkTestCache(nslot, nhash uint64) *Cache[uint64, *int] {
	return MkCache[uint64, *int](nslot, nhash,
		func(k uint64) uint64 { return k },
		func(id int) *int { v := id; return &v })
}

func TestLookupHitSameSlot(t *testing.T) {
	assert := assert.New(t)
	c := mkTestCache(4, 2)

	s, hit, err := c.Lookup(7)
	assert.NoError(err)
	assert.False(hit)
	assert.Equal(InUse, s.State())

	s2, hit, err := c.Lookup(7)
	assert.NoError(err)
	assert.True(hit)
	assert.Same(s, s2)
	assert.Equal(uint64(3), c.NFree())
	assert.NoError(c.Check())
}

func TestLookupExhausted(t *testing.T) {
	assert := assert.New(t)
	c := mkTestCache(3, 2)
	for k := uint64(0); k < 3; k++ {
		_, _, err := c.Lookup(k)
		require.NoError(t, err)
	}
	_, _, err := c.Lookup(100)
	assert.ErrorIs(err, common.ErrCacheExhausted)

	// cached keys still hit
	_, hit, err := c.Lookup(1)
	assert.NoError(err)
	assert.True(hit)
	assert.NoError(c.Check())
}

func TestFreeSlotFifo(t *testing.T) {
	assert := assert.New(t)
	c := mkTestCache(2, 1)
	a, _, _ := c.Lookup(1)
	b, _, _ := c.Lookup(2)
	c.FreeSlot(b)
	c.FreeSlot(a)
	assert.Nil(c.LookupSlot(1))
	assert.Nil(c.LookupSlot(2))

	// freed slots are reused in release order
	s, hit, err := c.Lookup(3)
	assert.NoError(err)
	assert.False(hit)
	assert.Equal(b.Id(), s.Id())
	assert.NoError(c.Check())
}

func TestSharedChain(t *testing.T) {
	assert := assert.New(t)
	c := mkTestCache(8, 1)
	var slots []*Cslot[uint64, *int]
	for k := uint64(0); k < 5; k++ {
		s, _, err := c.Lookup(k)
		require.NoError(t, err)
		slots = append(slots, s)
	}
	c.FreeSlot(slots[2])
	c.FreeSlot(slots[0])
	c.FreeSlot(slots[4])
	assert.NoError(c.Check())
	for _, k := range []uint64{1, 3} {
		s := c.LookupSlot(k)
		if assert.NotNil(s) {
			key, ok := s.Key()
			assert.True(ok)
			assert.Equal(k, key)
		}
	}
	_, ok := slots[0].Key()
	assert.False(ok)
}

func TestObjStable(t *testing.T) {
	assert := assert.New(t)
	c := mkTestCache(1, 1)
	s, _, _ := c.Lookup(5)
	obj := s.Obj
	c.FreeSlot(s)
	s2, _, err := c.Lookup(6)
	assert.NoError(err)
	assert.Equal(s.Id(), s2.Id())
	assert.Same(obj, s2.Obj)
}

func TestDoubleFreePanics(t *testing.T) {
	c := mkTestCache(2, 2)
	s, _, _ := c.Lookup(5)
	c.FreeSlot(s)
	assert.Panics(t, func() { c.FreeSlot(s) })
}

func TestApply(t *testing.T) {
	c := mkTestCache(4, 2)
	c.Lookup(1)
	c.Lookup(2)
	n := 0
	c.Apply(func(s *Cslot[uint64, *int]) { n++ })
	assert.Equal(t, 2, n)
}
