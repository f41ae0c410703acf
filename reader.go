// reader.go -- query interface for a finalized Shard
//
// (c) Sudhi Herle 2018 original DB reader this is adapted from
//
// License GPLv2
//
// If you need a commercial license for this work, please contact
// the author.
//
// This software does not come with any express or implied
// warranty; it is provided "as is". No claim  is made to its
// suitability for any purpose.

package shard

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/hashicorp/golang-lru/arc/v2"
	"github.com/opencoff/go-mmap"

	"github.com/opencoff/go-shard/internal/mphf"
)

// Shard is the query interface for a previously finalized Shard file
// (built using a Builder). A Shard is safe for concurrent use: every
// object read is one positional read syscall, and the only state that
// changes after Open is the index entry cache, which does its own
// locking.
type Shard struct {
	hdr Header

	mp *mphf.MPHF

	// resolved index entries are opportunistically cached per key;
	// payloads are not cached - object sizes are unbounded and readers
	// are meant to stay memory-efficient.
	cache *arc.ARCCache[[KeyLen]byte, indexEntry]

	// memory mapped index region, IndexSize bytes
	index []byte

	// original mmap covering index + hash regions
	mm *mmap.Mapping
	fd *os.File
	fn string
}

// Open opens the Shard file at 'fn' and prepares it for lookups: the
// header is read and validated, the index and hash regions are memory
// mapped read-only and the serialized MPHF is loaded for queries.
func Open(fn string) (s *Shard, err error) {
	fd, err := os.Open(fn)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", fn, ErrNotFound)
		}
		return nil, ioError(fn, "open", err)
	}

	defer func() {
		if err != nil {
			fd.Close()
		}
	}()

	st, err := fd.Stat()
	if err != nil {
		return nil, ioError(fn, "stat", err)
	}

	fsz := st.Size()
	if fsz < headerSize {
		return nil, badFormat(fn, "file too small (%d bytes)", fsz)
	}

	var hdrb [headerSize]byte
	if _, err := io.ReadFull(fd, hdrb[:]); err != nil {
		return nil, ioError(fn, "read header", err)
	}

	hdr, err := decodeHeader(hdrb[:])
	if err != nil {
		return nil, badFormat(fn, "%s", err)
	}
	if err := hdr.validate(fsz); err != nil {
		return nil, badFormat(fn, "%s", err)
	}

	// the hash region must be non-empty; even an empty key set
	// serializes to a few bytes of MPHF header.
	if uint64(fsz) <= hdr.HashPosition {
		return nil, badFormat(fn, "missing hash region")
	}

	// map index + hash regions in one go; the object region is read
	// positionally per lookup and never mapped. mmap offsets must be
	// page aligned, so the mapping starts at the page holding the
	// index and the leading bytes are skipped.
	pgsz := int64(os.Getpagesize())
	moff := int64(hdr.IndexPosition) &^ (pgsz - 1)
	mapsz := fsz - moff
	mm := mmap.New(fd)

	mapping, err := mm.Map(mapsz, moff, mmap.PROT_READ, mmap.F_READAHEAD)
	if err != nil {
		return nil, ioError(fn, fmt.Sprintf("mmap %d bytes at off %d", mapsz, moff), err)
	}

	defer func() {
		if err != nil {
			mapping.Unmap()
		}
	}()

	bs := mapping.Bytes()[int64(hdr.IndexPosition)-moff:]

	mp, err := mphf.Load(bs[hdr.IndexSize:])
	if err != nil {
		return nil, badFormat(fn, "can't load hash: %s", err)
	}
	if uint64(mp.Len()) != hdr.ObjectsCount {
		return nil, badFormat(fn, "hash covers %d keys, header says %d", mp.Len(), hdr.ObjectsCount)
	}

	cache, err := arc.NewARC[[KeyLen]byte, indexEntry](128)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fn, err)
	}

	s = &Shard{
		hdr:   *hdr,
		mp:    mp,
		cache: cache,
		index: bs[:hdr.IndexSize],
		mm:    mapping,
		fd:    fd,
		fn:    fn,
	}
	return s, nil
}

// KeyLength returns the fixed key width this Shard stores.
func (s *Shard) KeyLength() int {
	return KeyLen
}

// Len returns the number of objects stored in the Shard.
func (s *Shard) Len() int {
	return int(s.hdr.ObjectsCount)
}

// Header returns a copy of the file header for diagnostics.
func (s *Shard) Header() Header {
	return s.hdr
}

// Filename returns the path this Shard was opened from.
func (s *Shard) Filename() string {
	return s.fn
}

// Close releases the mapping and the file handle. The Shard must not be
// used after Close.
func (s *Shard) Close() error {
	s.mm.Unmap()
	err := s.fd.Close()
	s.cache.Purge()
	s.mp = nil
	s.index = nil
	s.fd = nil
	s.fn = ""
	return err
}

// resolve maps a key to its index entry: one MPHF evaluation and one
// fixed-size read at a computed offset. The stored-key comparison is
// what turns an arbitrary MPHF slot for an absent key into a clean
// ErrNotFound.
func (s *Shard) resolve(key []byte) (indexEntry, error) {
	var e indexEntry

	// a key of the wrong width can't have been stored
	if len(key) != KeyLen {
		return e, fmt.Errorf("%s: key %x: %w", s.fn, key, ErrNotFound)
	}

	if s.hdr.ObjectsCount == 0 {
		return e, fmt.Errorf("%s: key %x: %w", s.fn, key, ErrNotFound)
	}

	var k [KeyLen]byte
	copy(k[:], key)

	if e, ok := s.cache.Get(k); ok {
		return e, nil
	}

	i := s.mp.Eval(key)
	if i >= s.hdr.ObjectsCount {
		return e, badFormat(s.fn, "hash slot %d out of range (%d objects)", i, s.hdr.ObjectsCount)
	}

	e = decodeIndexEntry(s.index[i*IndexEntrySize : (i+1)*IndexEntrySize])
	if e.Key != k {
		return e, fmt.Errorf("%s: key %x: %w", s.fn, key, ErrNotFound)
	}

	// the object range must fall inside the object region; phrased so a
	// hostile offset or size can't wrap around
	end := s.hdr.ObjectsPosition + s.hdr.ObjectsSize
	if e.ObjectOffset < s.hdr.ObjectsPosition || e.ObjectOffset > end ||
		e.ObjectSize > end-e.ObjectOffset {
		return e, badFormat(s.fn, "corrupted index entry for key %x: %d bytes at %d", key, e.ObjectSize, e.ObjectOffset)
	}

	s.cache.Add(k, e)
	return e, nil
}

// SizeOf returns the stored size, in bytes, of the object identified by
// 'key' without reading its payload.
func (s *Shard) SizeOf(key []byte) (uint64, error) {
	e, err := s.resolve(key)
	if err != nil {
		return 0, err
	}
	return e.ObjectSize, nil
}

// Lookup fetches the object identified by 'key'. Fetching is O(1): one
// MPHF evaluation, one index entry read and one positional read of the
// payload.
func (s *Shard) Lookup(key []byte) ([]byte, error) {
	e, err := s.resolve(key)
	if err != nil {
		return nil, err
	}

	val := make([]byte, e.ObjectSize)
	if _, err := s.fd.ReadAt(val, int64(e.ObjectOffset)); err != nil {
		return nil, ioError(s.fn, fmt.Sprintf("read %d bytes at %d", e.ObjectSize, e.ObjectOffset), err)
	}
	return val, nil
}

// IterFunc calls 'fp' once for every stored key. Keys come out in MPHF
// slot order - a permutation of insertion order that callers must not
// ascribe meaning to. If fp returns non-nil the iteration stops and the
// error is propagated.
func (s *Shard) IterFunc(fp func(key []byte) error) error {
	for i := uint64(0); i < s.hdr.ObjectsCount; i++ {
		e := decodeIndexEntry(s.index[i*IndexEntrySize : (i+1)*IndexEntrySize])
		if err := fp(e.Key[:]); err != nil {
			return err
		}
	}
	return nil
}

// Keys returns every stored key as a freshly allocated slice.
func (s *Shard) Keys() [][]byte {
	keys := make([][]byte, 0, s.hdr.ObjectsCount)
	s.IterFunc(func(k []byte) error {
		keys = append(keys, append([]byte(nil), k...))
		return nil
	})
	return keys
}
