// bbhash.go - fast minimal perfect hashing for massive key sets
//
// Implements the BBHash algorithm in: https://arxiv.org/abs/1702.03154
//
// Inspired by D Gryski's implementation of bbHash (https://github.com/dgryski/go-boomphf)
//
// (c) Sudhi Herle 2018
//
// License GPLv2
// If you need a commercial license for this work, please contact
// the author.
//
// This software does not come with any express or implied
// warranty; it is provided "as is". No claim  is made to its
// suitability for any purpose.

package mphf

import (
	"bytes"
	"fmt"
	"io"
	"runtime"
	"sync"
)

// bbHash represents a computed minimal perfect hash for a given set of
// keys using the bbHash algorithm.
type bbHash struct {
	bits  []*bitVector
	ranks []uint64
	salt  uint64
	g     float64
	n     int
}

// state used by goroutines during concurrent construction
type state struct {
	sync.Mutex

	A    *bitVector
	coll *bitVector
	redo []uint64

	lvl uint32

	bb *bbHash
}

// Gamma is an expansion factor for each of the bitvectors we build.
// Empirically 2.0 balances speed and space usage.
const _Gamma float64 = 2.0

// Maximum number of construction levels we will attempt.
const _MaxLevel uint32 = 4000

// Minimum number of keys before bbhash switches to the concurrent
// construction algorithm.
const minParallelKeys int = 20000

type bbHashBuilder struct {
	keys []uint64
	g    float64
}

func newBBHashBuilder(g float64) (keyHashBuilder, error) {
	if g < 1.0 {
		g = _Gamma
	}
	return &bbHashBuilder{
		keys: make([]uint64, 0, 1024),
		g:    g,
	}, nil
}

func (b *bbHashBuilder) Add(key uint64) error {
	b.keys = append(b.keys, key)
	return nil
}

// Freeze builds the minimal perfect hash. It switches to a concurrent
// construction algorithm when the key count exceeds minParallelKeys.
func (b *bbHashBuilder) Freeze() (keyHash, error) {
	bb := &bbHash{
		salt: rand64(),
		g:    b.g,
		n:    len(b.keys),
	}

	s := bb.newState()

	var err error
	if bb.n > minParallelKeys {
		err = s.concurrent(b.keys)
	} else {
		err = s.singleThread(b.keys)
	}
	if err != nil {
		return nil, err
	}

	return bb, nil
}

func (bb *bbHash) Len() int { return bb.n }

// Find returns a unique integer representing the minimal hash for key
// 'k'. The return value is meaningful ONLY for keys in the original key
// set provided at construction time.
func (bb *bbHash) Find(k uint64) (uint64, bool) {
	for lvl, bv := range bb.bits {
		i := bhash(k, bb.salt, uint32(lvl)) % bv.Size()

		if !bv.IsSet(i) {
			continue
		}

		rank := 1 + bb.ranks[lvl] + bv.Rank(i)
		return rank - 1, true
	}

	return 0, false
}

// DumpMeta dumps the metadata of the underlying bbhash
func (bb *bbHash) DumpMeta(w io.Writer) {
	var b bytes.Buffer
	b.WriteString(fmt.Sprintf("bbHash: salt %#x; %d levels\n", bb.salt, len(bb.bits)))
	for i, bv := range bb.bits {
		b.WriteString(fmt.Sprintf("  %d: %d bits\n", i, bv.Size()))
	}
	w.Write(b.Bytes())
}

func (bb *bbHash) bvSize() uint64 {
	return uint64(float64(bb.n) * bb.g)
}

func (bb *bbHash) newState() *state {
	sz := bb.bvSize()
	return &state{
		A:    newBitVector(sz),
		coll: newBitVector(sz),
		redo: make([]uint64, 0, sz),
		bb:   bb,
	}
}

// singleThread runs the bbHash algorithm serially.
func (s *state) singleThread(keys []uint64) error {
	A := s.A

	for {
		preprocess(s, keys)
		A.Reset()
		assign(s, keys)

		keys, A = s.nextLevel()
		if keys == nil {
			break
		}

		if s.lvl > _MaxLevel {
			return fmt.Errorf("bbhash: can't find minimal perfect hash after %d levels", s.lvl)
		}
	}
	s.bb.preComputeRank()
	return nil
}

// concurrent runs the bbHash algorithm on a sharded set of keys.
// entry: len(keys) > minParallelKeys
func (s *state) concurrent(keys []uint64) error {
	ncpu := runtime.NumCPU()
	A := s.A

	for {
		nkey := uint64(len(keys))
		z := nkey / uint64(ncpu)
		r := nkey % uint64(ncpu)

		var wg sync.WaitGroup

		wg.Add(ncpu)
		for i := 0; i < ncpu; i++ {
			x := z * uint64(i)
			y := x + z
			if i == ncpu-1 {
				y += r
			}
			go func(x, y uint64) {
				preprocess(s, keys[x:y])
				wg.Done()
			}(x, y)
		}
		wg.Wait()

		A.Reset()
		wg.Add(ncpu)
		for i := 0; i < ncpu; i++ {
			x := z * uint64(i)
			y := x + z
			if i == ncpu-1 {
				y += r
			}
			go func(x, y uint64) {
				assign(s, keys[x:y])
				wg.Done()
			}(x, y)
		}
		wg.Wait()

		keys, A = s.nextLevel()
		if keys == nil {
			break
		}

		if len(keys) < minParallelKeys {
			return s.singleThread(keys)
		}

		if s.lvl > _MaxLevel {
			return fmt.Errorf("bbhash: can't find minimal perfect hash after %d levels", s.lvl)
		}
	}

	s.bb.preComputeRank()
	return nil
}

// preprocess detects colliding bits for this level.
func preprocess(s *state, keys []uint64) {
	A := s.A
	coll := s.coll
	salt := s.bb.salt
	sz := A.Size()
	for _, k := range keys {
		i := bhash(k, salt, s.lvl) % sz

		if coll.IsSet(i) {
			continue
		}
		if A.IsSet(i) {
			coll.Set(i)
			continue
		}
		A.Set(i)
	}
}

// assign records non-colliding bits; colliding keys are pushed to the
// redo list for the next level.
func assign(s *state, keys []uint64) {
	A := s.A
	coll := s.coll
	salt := s.bb.salt
	sz := A.Size()
	redo := make([]uint64, 0, len(keys)/4)
	for _, k := range keys {
		i := bhash(k, salt, s.lvl) % sz

		if coll.IsSet(i) {
			redo = append(redo, k)
			continue
		}
		A.Set(i)
	}

	if len(redo) > 0 {
		s.appendRedo(redo)
	}
}

func (s *state) appendRedo(k []uint64) {
	s.Lock()
	s.redo = append(s.redo, k...)
	s.Unlock()
}

// nextLevel appends the current bitvector to bb.bits and starts a new
// level. Always called from a single-threaded synchronization point.
func (s *state) nextLevel() ([]uint64, *bitVector) {
	s.bb.bits = append(s.bb.bits, s.A)
	s.A = nil

	keys := s.redo
	if len(keys) == 0 {
		return nil, nil
	}

	s.redo = s.redo[:0]
	s.A = newBitVector(s.bb.bvSize())
	s.coll.Reset()
	s.lvl++
	return keys, s.A
}

// preComputeRank memoizes the cumulative rank at the start of each level
// so Find() can answer queries without rescanning prior levels.
func (bb *bbHash) preComputeRank() {
	var pop uint64
	bb.ranks = make([]uint64, len(bb.bits))

	for l, bv := range bb.bits {
		bb.ranks[l] = pop
		pop += bv.ComputeRank()
	}
}

// bhash runs one round of Zi Long Tan's superfast hash.
func bhash(key, salt uint64, lvl uint32) uint64 {
	const m uint64 = 0x880355f21e6d1965
	var h uint64 = m

	h ^= mix(key)
	h *= m
	h ^= mix(salt)
	h *= m
	h ^= mix(uint64(lvl))
	h *= m
	return mix(h)
}
