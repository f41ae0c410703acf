// format_test.go -- header and index entry encoding
//
// (c) Sudhi Herle 2018
//
// Author: Sudhi Herle <sudhi@herle.net>
//
// This software does not come with any express or implied
// warranty; it is provided "as is". No claim  is made to its
// suitability for any purpose.

package shard

import (
	"testing"
)

func TestHeaderEncodeDecode(t *testing.T) {
	assert := newAsserter(t)

	h := Header{
		Magic:           magic,
		ObjectsCount:    3,
		ObjectsPosition: headerSize,
		ObjectsSize:     100,
		IndexPosition:   headerSize + 100,
		IndexSize:       3 * IndexEntrySize,
		HashPosition:    headerSize + 100 + 3*IndexEntrySize,
	}

	b := h.encode()
	assert(len(b) == headerSize, "encoded header: exp %d bytes, saw %d", headerSize, len(b))

	// reserved region stays zero
	for i := 56; i < headerSize; i++ {
		assert(b[i] == 0, "reserved byte %d is %#x", i, b[i])
	}

	g, err := decodeHeader(b)
	assert(err == nil, "decode: %s", err)
	assert(*g == h, "decode mismatch: exp %+v, saw %+v", h, *g)

	err = g.validate(int64(h.HashPosition) + 64)
	assert(err == nil, "validate: %s", err)
}

func TestHeaderValidate(t *testing.T) {
	assert := newAsserter(t)

	good := Header{
		Magic:           magic,
		ObjectsCount:    1,
		ObjectsPosition: headerSize,
		ObjectsSize:     10,
		IndexPosition:   headerSize + 10,
		IndexSize:       IndexEntrySize,
		HashPosition:    headerSize + 10 + IndexEntrySize,
	}
	fsz := int64(good.HashPosition) + 64

	assert(good.validate(fsz) == nil, "good header rejected")

	h := good
	h.Magic = 0
	assert(h.validate(fsz) != nil, "zero magic accepted")

	h = good
	h.ObjectsPosition = 1024
	assert(h.validate(fsz) != nil, "bad objects_position accepted")

	h = good
	h.IndexPosition++
	assert(h.validate(fsz) != nil, "bad index_position accepted")

	h = good
	h.IndexSize += IndexEntrySize
	assert(h.validate(fsz) != nil, "bad index_size accepted")

	h = good
	h.HashPosition++
	assert(h.validate(fsz) != nil, "bad hash_position accepted")

	h = good
	h.ObjectsCount = maxObjectsCount + 1
	assert(h.validate(fsz) != nil, "oversized objects_count accepted")

	assert(good.validate(int64(good.HashPosition)-1) != nil, "hash region beyond EOF accepted")
}

func TestIndexEntryEncodeDecode(t *testing.T) {
	assert := newAsserter(t)

	var e indexEntry
	copy(e.Key[:], repKey('K'))
	e.ObjectOffset = 0x1122334455667788
	e.ObjectSize = 0x99aabbccddeeff00

	b := e.encode()
	assert(len(b) == IndexEntrySize, "encoded entry: exp %d bytes, saw %d", IndexEntrySize, len(b))

	g := decodeIndexEntry(b)
	assert(g == e, "decode mismatch: exp %+v, saw %+v", e, g)
}
