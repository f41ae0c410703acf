// bbhash_marshal.go - Marshal/Unmarshal for the bbHash data structure
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
	"encoding/binary"
	"fmt"
	"io"
)

// MarshalBinary encodes the hash into a binary form suitable for durable
// storage. A subsequent call to loadBBHash() reconstructs the instance.
func (bb *bbHash) MarshalBinary(w io.Writer) (int, error) {
	// Header: 2 64-bit words:
	//   o byte version
	//   o byte[3] resv
	//   o uint32 n-bitvectors
	//   o uint64 salt
	var x [16]byte

	le := binary.LittleEndian
	x[0] = 1
	le.PutUint32(x[4:8], uint32(len(bb.bits)))
	le.PutUint64(x[8:], bb.salt)

	n, err := writeAll(w, x[:])
	if err != nil {
		return n, err
	}

	for _, bv := range bb.bits {
		m, err := bv.MarshalBinary(w)
		n += m
		if err != nil {
			return n, err
		}
	}

	return n, nil
}

// loadBBHash reads a previously marshalled bbHash from buf, which is
// assumed to be memory-mapped.
func loadBBHash(buf []byte) (keyHash, error) {
	if len(buf) < 16 {
		return nil, ErrTooSmall
	}

	le := binary.LittleEndian
	ver := buf[0]
	nbits := le.Uint32(buf[4:8])
	salt := le.Uint64(buf[8:16])

	if ver != 1 {
		return nil, fmt.Errorf("bbhash: unsupported version %d", ver)
	}
	if nbits == 0 || nbits > uint32(_MaxLevel) {
		return nil, fmt.Errorf("bbhash: too many levels %d (max %d)", nbits, _MaxLevel)
	}

	bb := &bbHash{
		bits: make([]*bitVector, nbits),
		salt: salt,
	}

	buf = buf[16:]
	for i := uint32(0); i < nbits; i++ {
		bv, n, err := unmarshalBitVector(buf)
		if err != nil {
			return nil, err
		}
		bb.bits[i] = bv
		buf = buf[n:]
	}

	bb.preComputeRank()

	// the key count is the total population across all levels
	var n uint64
	for _, bv := range bb.bits {
		n += bv.ComputeRank()
	}
	bb.n = int(n)
	return bb, nil
}
