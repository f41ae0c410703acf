// chd.go - fast minimal perfect hashing for massive key sets
//
// This is an implementation of CHD in http://cmph.sourceforge.net/papers/esa09.pdf -
// inspired by this https://gist.github.com/pervognsen/b21f6dd13f4bcb4ff2123f0d78fcfd17
//
// (c) Sudhi Herle 2018
//
// License GPLv2
//
// If you need a commercial license for this work, please contact
// the author.
//
// This software does not come with any express or implied
// warranty; it is provided "as is". No claim  is made to its
// suitability for any purpose.

package mphf

import (
	"fmt"
	"io"
	"math/bits"
	"sort"
)

// number of times we will try to build the table
const _MaxSeed uint32 = 65536 * 2

// chdBuilder constructs a MPHF from a set of uint64 keys using the
// Compress Hash Displace algorithm.
type chdBuilder struct {
	keys []uint64
	salt uint64
	load float64
}

func newChdBuilder(load float64) (keyHashBuilder, error) {
	if load <= 0 || load > 1 {
		return nil, fmt.Errorf("chd: invalid load factor %f", load)
	}
	return &chdBuilder{
		keys: make([]uint64, 0, 1024),
		salt: rand64(),
		load: load,
	}, nil
}

func (c *chdBuilder) Add(key uint64) error {
	c.keys = append(c.keys, key)
	return nil
}

type bucket struct {
	slot uint64
	keys []uint64
}
type buckets []bucket

func (b buckets) Len() int           { return len(b) }
func (b buckets) Less(i, j int) bool { return len(b[i].keys) > len(b[j].keys) }
func (b buckets) Swap(i, j int)      { b[i], b[j] = b[j], b[i] }

// Freeze builds a constant-time lookup table using the CHD algorithm at
// the given load factor. Lower load factors speed up construction;
// suggested values are 0.75-0.9.
func (c *chdBuilder) Freeze() (keyHash, error) {
	m := uint64(float64(len(c.keys)) / c.load)
	m = nextpow2(m)
	if m == 0 {
		m = 1
	}
	bkts := make(buckets, m)
	seeds := make([]uint32, m)

	for i := range bkts {
		bkts[i].slot = uint64(i)
	}

	for _, key := range c.keys {
		j := rhash(0, key, m, c.salt)
		b := &bkts[j]
		b.keys = append(b.keys, key)
	}

	occ := newBitVector(m)
	bOcc := newBitVector(m)

	sort.Sort(bkts)

	var maxseed uint32
	for i := range bkts {
		b := &bkts[i]
	seedloop:
		for s := uint32(1); s < _MaxSeed; s++ {
			bOcc.Reset()
			for _, key := range b.keys {
				h := rhash(s, key, m, c.salt)
				if occ.IsSet(h) || bOcc.IsSet(h) {
					continue seedloop
				}
				bOcc.Set(h)
			}
			occ.Merge(bOcc)
			seeds[b.slot] = s
			if s > maxseed {
				maxseed = s
			}
			goto nextBucket
		}

		return nil, fmt.Errorf("chd: no MPH after %d tries", _MaxSeed)
	nextBucket:
	}

	t := &chd{
		seed: makeSeeds(seeds, maxseed),
		salt: c.salt,
		occ:  occ,
		n:    len(c.keys),
	}
	t.buildRanks()
	return t, nil
}

func makeSeeds(s []uint32, max uint32) seeder {
	switch {
	case max < 256:
		return newU8(s)
	case max < 65536:
		return newU16(s)
	default:
		return newU32(s)
	}
}

// chd represents a frozen PHF for the given set of keys. The seed table
// maps keys into an intermediate power-of-2 table; the occupancy
// bitvector compresses that to a minimal [0, n) rank.
type chd struct {
	seed seeder
	salt uint64
	occ  *bitVector

	// cumulative population before each word of occ; rebuilt on load,
	// never serialized
	ranks []uint64

	n int
}

// buildRanks memoizes per-word cumulative ranks so rank() is O(1).
func (c *chd) buildRanks() {
	c.ranks = make([]uint64, c.occ.Words())
	var p uint64
	for i, w := range c.occ.v {
		c.ranks[i] = p
		p += uint64(bits.OnesCount64(w))
	}
}

// rank returns the number of occupied slots strictly before slot i.
func (c *chd) rank(i uint64) uint64 {
	return c.ranks[i/64] + uint64(bits.OnesCount64(c.occ.v[i/64]<<(64-i%64)))
}

func (c *chd) Len() int {
	return c.n
}

// Find returns a unique integer representing the minimal hash for key
// 'k'. The return value is meaningful ONLY for keys in the original key
// set. Callers must verify the resolved slot's stored key matches k.
func (c *chd) Find(k uint64) (uint64, bool) {
	m := uint64(c.seed.length())
	h := rhash(0, k, m, c.salt)
	i := rhash(c.seed.seed(h), k, m, c.salt)
	if !c.occ.IsSet(i) {
		return 0, false
	}
	return c.rank(i), true
}

func (c *chd) seedSize() byte {
	return c.seed.seedsize()
}

// CHD marshalled header - 3 x 64-bit words
const _chdHeaderSize = 24

// seeder abstracts a compressed seed table of 1, 2 or 4 bytes per seed.
type seeder interface {
	seed(uint64) uint32
	marshal(w io.Writer) (int, error)
	unmarshal(b []byte) error
	seedsize() byte
	length() int
}

var (
	_ seeder = &u8Seeder{}
	_ seeder = &u16Seeder{}
	_ seeder = &u32Seeder{}
)

type u8Seeder struct{ seeds []uint8 }

func newU8(v []uint32) seeder {
	bs := make([]byte, len(v))
	for i, a := range v {
		bs[i] = byte(a & 0xff)
	}
	return &u8Seeder{seeds: bs}
}
func (u *u8Seeder) seed(v uint64) uint32          { return uint32(u.seeds[v]) }
func (u *u8Seeder) length() int                   { return len(u.seeds) }
func (u *u8Seeder) seedsize() byte                { return 1 }
func (u *u8Seeder) marshal(w io.Writer) (int, error) { return writeAll(w, u.seeds) }
func (u *u8Seeder) unmarshal(b []byte) error {
	u.seeds = b
	return nil
}

type u16Seeder struct{ seeds []uint16 }

func newU16(v []uint32) seeder {
	us := make([]uint16, len(v))
	for i, a := range v {
		us[i] = uint16(a & 0xffff)
	}
	return &u16Seeder{seeds: us}
}
func (u *u16Seeder) seed(v uint64) uint32 { return uint32(u.seeds[v]) }
func (u *u16Seeder) length() int          { return len(u.seeds) }
func (u *u16Seeder) seedsize() byte       { return 2 }
func (u *u16Seeder) marshal(w io.Writer) (int, error) {
	return writeAll(w, u16sToByteSlice(u.seeds))
}
func (u *u16Seeder) unmarshal(b []byte) error {
	if len(b)%2 != 0 {
		return fmt.Errorf("chd: partial seeds of size 2 (saw %d bytes)", len(b))
	}
	u.seeds = bsToUint16Slice(b)
	return nil
}

type u32Seeder struct{ seeds []uint32 }

func newU32(v []uint32) seeder { return &u32Seeder{seeds: v} }
func (u *u32Seeder) seed(v uint64) uint32 { return u.seeds[v] }
func (u *u32Seeder) length() int          { return len(u.seeds) }
func (u *u32Seeder) seedsize() byte       { return 4 }
func (u *u32Seeder) marshal(w io.Writer) (int, error) {
	return writeAll(w, u32sToByteSlice(u.seeds))
}
func (u *u32Seeder) unmarshal(b []byte) error {
	if len(b)%4 != 0 {
		return fmt.Errorf("chd: partial seeds of size 4 (saw %d bytes)", len(b))
	}
	u.seeds = bsToUint32Slice(b)
	return nil
}

// DumpMeta dumps CHD metadata to io.Writer 'w'
func (c *chd) DumpMeta(w io.Writer) {
	switch c.seed.(type) {
	case *u8Seeder:
		fmt.Fprintf(w, "  CHD with 8-bit seeds <salt %#x>\n", c.salt)
	case *u16Seeder:
		fmt.Fprintf(w, "  CHD with 16-bit seeds <salt %#x>\n", c.salt)
	case *u32Seeder:
		fmt.Fprintf(w, "  CHD with 32-bit seeds <salt %#x>\n", c.salt)
	}
}

// rhash hashes key with a given seed and returns the result modulo 'sz'.
// 'sz' is guaranteed to be a power of 2, so modulo is a mask.
// Borrowed from Zi Long Tan's superfast hash.
func rhash(seed uint32, key, sz, salt uint64) uint64 {
	const m uint64 = 0x880355f21e6d1965
	var h uint64 = key

	h *= m
	h ^= mix(salt)
	h *= m
	h ^= mix(uint64(seed))
	h *= m

	return mix(h) & (sz - 1)
}
