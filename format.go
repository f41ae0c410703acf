// format.go -- on-disk layout of a Shard: header, index entries, offset math
//
// (c) Sudhi Herle 2018 original DB layout this is adapted from
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
	"encoding/binary"
	"fmt"
)

// KeyLen is the fixed width, in bytes, of every key stored in a Shard.
// It is frozen at build time for a given deployment: a Shard built with
// a different key length cannot be read by this package.
const KeyLen = 32

// IndexEntrySize is the on-disk width of one index entry: the key
// followed by a big enough pair of uint64s to hold the object's offset
// and size.
const IndexEntrySize = KeyLen + 16

// headerSize is the fixed size of the header region at offset 0.
const headerSize = 512

// Version is the format revision this package reads and writes.
const Version = 1

// magic identifies the file format and its version. Version 1 is the
// only version this package knows how to read or write.
const magic uint64 = 0x3144524148534f47 // "GOSHARD1" read as little-endian bytes

// maxObjectsCount bounds header.ObjectsCount against corrupt or hostile
// headers; it is not a design limit, just a sanity ceiling.
const maxObjectsCount = 1 << 40

// Header is the fixed 512-byte region at the start of every Shard file.
// All multi-byte integers are little-endian. Reserved bytes are always
// written as zero and never interpreted on read.
type Header struct {
	Magic           uint64
	ObjectsCount    uint64
	ObjectsPosition uint64
	ObjectsSize     uint64
	IndexPosition   uint64
	IndexSize       uint64
	HashPosition    uint64
}

// encode serializes h into a headerSize-byte little-endian buffer.
func (h *Header) encode() []byte {
	b := make([]byte, headerSize)
	le := binary.LittleEndian
	le.PutUint64(b[0:8], h.Magic)
	le.PutUint64(b[8:16], h.ObjectsCount)
	le.PutUint64(b[16:24], h.ObjectsPosition)
	le.PutUint64(b[24:32], h.ObjectsSize)
	le.PutUint64(b[32:40], h.IndexPosition)
	le.PutUint64(b[40:48], h.IndexSize)
	le.PutUint64(b[48:56], h.HashPosition)
	// b[56:512] stays zero: reserved.
	return b
}

// decodeHeader parses a headerSize-byte buffer into a Header, without
// validating it against the invariants in validate().
func decodeHeader(b []byte) (*Header, error) {
	if len(b) < headerSize {
		return nil, fmt.Errorf("short header: got %d bytes, want %d", len(b), headerSize)
	}

	le := binary.LittleEndian
	h := &Header{
		Magic:           le.Uint64(b[0:8]),
		ObjectsCount:    le.Uint64(b[8:16]),
		ObjectsPosition: le.Uint64(b[16:24]),
		ObjectsSize:     le.Uint64(b[24:32]),
		IndexPosition:   le.Uint64(b[32:40]),
		IndexSize:       le.Uint64(b[40:48]),
		HashPosition:    le.Uint64(b[48:56]),
	}
	return h, nil
}

// validate checks h against the invariants fixed by the format: version,
// region offsets, and that every region fits within a file of size fsz.
func (h *Header) validate(fsz int64) error {
	if h.Magic != magic {
		return fmt.Errorf("bad magic/version %#x", h.Magic)
	}
	if h.ObjectsPosition != headerSize {
		return fmt.Errorf("objects_position is %d, want %d", h.ObjectsPosition, headerSize)
	}
	if h.ObjectsCount > maxObjectsCount {
		return fmt.Errorf("objects_count %d exceeds limit %d", h.ObjectsCount, maxObjectsCount)
	}
	if h.IndexPosition != h.ObjectsPosition+h.ObjectsSize {
		return fmt.Errorf("index_position %d != objects_position+objects_size (%d)",
			h.IndexPosition, h.ObjectsPosition+h.ObjectsSize)
	}
	wantIndexSize := h.ObjectsCount * IndexEntrySize
	if h.IndexSize != wantIndexSize {
		return fmt.Errorf("index_size %d != objects_count*%d (%d)", h.IndexSize, IndexEntrySize, wantIndexSize)
	}
	if h.HashPosition != h.IndexPosition+h.IndexSize {
		return fmt.Errorf("hash_position %d != index_position+index_size (%d)",
			h.HashPosition, h.IndexPosition+h.IndexSize)
	}
	if int64(h.HashPosition) > fsz {
		return fmt.Errorf("hash_position %d is beyond end of file (%d bytes)", h.HashPosition, fsz)
	}
	return nil
}

// indexEntry is the fixed-width on-disk record stored at each MPHF slot.
type indexEntry struct {
	Key          [KeyLen]byte
	ObjectOffset uint64
	ObjectSize   uint64
}

func (e *indexEntry) encode() []byte {
	b := make([]byte, IndexEntrySize)
	copy(b[:KeyLen], e.Key[:])
	le := binary.LittleEndian
	le.PutUint64(b[KeyLen:KeyLen+8], e.ObjectOffset)
	le.PutUint64(b[KeyLen+8:KeyLen+16], e.ObjectSize)
	return b
}

func decodeIndexEntry(b []byte) indexEntry {
	var e indexEntry
	copy(e.Key[:], b[:KeyLen])
	le := binary.LittleEndian
	e.ObjectOffset = le.Uint64(b[KeyLen : KeyLen+8])
	e.ObjectSize = le.Uint64(b[KeyLen+8 : KeyLen+16])
	return e
}
