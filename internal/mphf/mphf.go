// mphf.go - minimal perfect hash function over opaque byte-string keys
//
// (c) Sudhi Herle 2018 original CHD/BBHash implementation
//
// License GPLv2
//
// If you need a commercial license for this work, please contact
// the author.
//
// This software does not come with any express or implied
// warranty; it is provided "as is". No claim  is made to its
// suitability for any purpose.

// Package mphf adapts the CHD and BBHash minimal perfect hashing
// algorithms to operate over fixed-length opaque keys instead of
// pre-hashed uint64 values. Each key is folded to a uint64 with
// siphash-2-4 under a per-construction random salt before being handed
// to the chosen algorithm; the salt is persisted alongside the table so
// a reloaded MPHF evaluates consistently.
package mphf

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/dchest/siphash"
)

// Backend selects the underlying perfect-hashing algorithm.
type Backend byte

const (
	// CHD is Compress-Hash-Displace; fast construction, compact tables.
	CHD Backend = iota
	// BBHash scales to very large key sets via concurrent construction.
	BBHash
)

var (
	// ErrDuplicateHash is returned when Build cannot converge because the
	// underlying algorithm ran out of seeds to try; this happens for a
	// correctly-deduplicated key set only if two distinct keys fold to
	// the exact same uint64 (astronomically unlikely) or the load/gamma
	// parameter is too aggressive for the key count.
	ErrDuplicateHash = errors.New("mphf: could not build perfect hash (collision or bad load factor)")

	// ErrTooSmall is returned when unmarshalling from a buffer that is
	// too short to contain a valid header.
	ErrTooSmall = errors.New("mphf: not enough data to unmarshal")
)

// keyHash is the interface both CHD and BBHash satisfy once the caller's
// keys have already been folded to uint64.
type keyHash interface {
	Find(k uint64) (uint64, bool)
	Len() int
	MarshalBinary(w io.Writer) (int, error)
	DumpMeta(w io.Writer)
}

type keyHashBuilder interface {
	Add(key uint64) error
	Freeze() (keyHash, error)
}

// MPHF is a minimal perfect hash function over a fixed set of opaque
// byte-string keys, evaluating to a slot in [0, n).
type MPHF struct {
	backend Backend
	salt    [16]byte
	table   keyHash
}

// Builder accumulates distinct keys before freezing them into an MPHF.
type Builder struct {
	backend Backend
	salt    [16]byte
	keys    []uint64
	// param is the CHD load factor, or the BBHash gamma expansion factor,
	// depending on backend.
	param float64
}

// NewBuilder creates a Builder for the given backend. param is the CHD
// load factor (0, 1] when backend is CHD, or the BBHash gamma expansion
// factor (>= 1.0) when backend is BBHash.
func NewBuilder(backend Backend, param float64) (*Builder, error) {
	var salt [16]byte
	if _, err := ioReadRandom(salt[:]); err != nil {
		return nil, fmt.Errorf("mphf: can't generate salt: %w", err)
	}

	switch backend {
	case CHD:
		if param <= 0 || param > 1 {
			return nil, fmt.Errorf("mphf: invalid CHD load factor %f", param)
		}
	case BBHash:
		if param < 1.0 {
			param = 2.0
		}
	default:
		return nil, fmt.Errorf("mphf: unknown backend %d", backend)
	}

	return &Builder{
		backend: backend,
		salt:    salt,
		keys:    make([]uint64, 0, 1024),
		param:   param,
	}, nil
}

// foldKey hashes an opaque key down to the uint64 domain the underlying
// algorithms operate on.
func (b *Builder) foldKey(key []byte) uint64 {
	return siphash.Hash(binary.LittleEndian.Uint64(b.salt[:8]), binary.LittleEndian.Uint64(b.salt[8:]), key)
}

// Add folds key and records it for the next Build. Callers are
// responsible for ensuring keys are distinct; Build only detects the
// fallout of a folding collision, not a literal duplicate.
func (b *Builder) Add(key []byte) {
	b.keys = append(b.keys, b.foldKey(key))
}

// Build constructs the minimal perfect hash over all keys added so far.
func (b *Builder) Build() (*MPHF, error) {
	var bld keyHashBuilder
	var err error

	backend := b.backend

	switch {
	case len(b.keys) == 0:
		// BBHash's level construction has nothing to converge on for
		// an empty key set; the CHD table degenerates gracefully
		backend = CHD
		bld, err = newChdBuilder(0.85)
	case backend == CHD:
		bld, err = newChdBuilder(b.param)
	case backend == BBHash:
		bld, err = newBBHashBuilder(b.param)
	}
	if err != nil {
		return nil, err
	}

	for _, k := range b.keys {
		if err := bld.Add(k); err != nil {
			return nil, err
		}
	}

	table, err := bld.Freeze()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateHash, err)
	}

	return &MPHF{
		backend: backend,
		salt:    b.salt,
		table:   table,
	}, nil
}

// Len returns the number of slots in the frozen table (== number of keys).
func (m *MPHF) Len() int {
	return m.table.Len()
}

// Eval returns the slot assigned to key, in [0, Len()). The result is
// only meaningful for keys that were part of the original key set; for
// any other key it returns an arbitrary slot in range.
func (m *MPHF) Eval(key []byte) uint64 {
	h := siphash.Hash(binary.LittleEndian.Uint64(m.salt[:8]), binary.LittleEndian.Uint64(m.salt[8:]), key)
	i, _ := m.table.Find(h)
	return i
}

// MarshalBinary serializes the MPHF (salt, backend tag, and table) to w.
func (m *MPHF) MarshalBinary(w io.Writer) (int, error) {
	var hdr [17]byte
	hdr[0] = byte(m.backend)
	copy(hdr[1:], m.salt[:])

	n, err := writeAll(w, hdr[:])
	if err != nil {
		return n, err
	}

	tn, err := m.table.MarshalBinary(w)
	return n + tn, err
}

// Load deserializes an MPHF previously written by MarshalBinary. buf is
// assumed to be backed by a read-only memory map or equivalent and must
// remain valid for the lifetime of the returned MPHF.
func Load(buf []byte) (*MPHF, error) {
	if len(buf) < 17 {
		return nil, ErrTooSmall
	}

	backend := Backend(buf[0])
	var salt [16]byte
	copy(salt[:], buf[1:17])
	rest := buf[17:]

	var table keyHash
	var err error

	switch backend {
	case CHD:
		table, err = loadChd(rest)
	case BBHash:
		table, err = loadBBHash(rest)
	default:
		return nil, fmt.Errorf("mphf: unknown backend tag %d", backend)
	}
	if err != nil {
		return nil, err
	}

	return &MPHF{backend: backend, salt: salt, table: table}, nil
}

// DumpMeta writes human-readable diagnostics about the underlying table.
func (m *MPHF) DumpMeta(w io.Writer) {
	m.table.DumpMeta(w)
}
