// chd_marshal.go -- marshal/unmarshal a CHD instance
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
	"encoding/binary"
	"fmt"
	"io"
)

// MarshalBinary encodes the hash into a binary form suitable for durable
// storage. A subsequent call to loadChd() reconstructs the instance.
func (c *chd) MarshalBinary(w io.Writer) (int, error) {
	// Header: 3 64-bit words:
	//   o version byte
	//   o seed-size byte
	//   o resv [2]byte
	//   o nseeds uint32
	//   o salt 8 bytes
	//   o nkeys 8 bytes
	// followed by the seed table and the occupancy bitvector.
	var x [_chdHeaderSize]byte

	x[0] = 1
	x[1] = c.seedSize()
	binary.LittleEndian.PutUint32(x[4:8], uint32(c.seed.length()))
	binary.LittleEndian.PutUint64(x[8:16], c.salt)
	binary.LittleEndian.PutUint64(x[16:24], uint64(c.n))

	nw, err := writeAll(w, x[:])
	if err != nil {
		return nw, err
	}

	m, err := c.seed.marshal(w)
	nw += m
	if err != nil {
		return nw, err
	}

	m, err = c.occ.MarshalBinary(w)
	return nw + m, err
}

// loadChd reads a previously marshalled chd instance from buf, which is
// assumed to be memory-mapped and laid out immediately after the header.
func loadChd(buf []byte) (keyHash, error) {
	if len(buf) < _chdHeaderSize {
		return nil, ErrTooSmall
	}

	hdr := buf[:_chdHeaderSize]
	buf = buf[_chdHeaderSize:]
	if hdr[0] != 1 {
		return nil, fmt.Errorf("chd: unsupported version %d", hdr[0])
	}

	size := uint32(hdr[1])
	n := binary.LittleEndian.Uint32(hdr[4:8])
	salt := binary.LittleEndian.Uint64(hdr[8:16])
	nkeys := binary.LittleEndian.Uint64(hdr[16:24])

	need := uint64(n) * uint64(size)
	if uint64(len(buf)) < need {
		return nil, ErrTooSmall
	}
	vals := buf[:need]

	var seed seeder
	var err error

	switch size {
	case 1:
		u8 := &u8Seeder{}
		err = u8.unmarshal(vals)
		seed = u8
	case 2:
		u16 := &u16Seeder{}
		err = u16.unmarshal(vals)
		seed = u16
	case 4:
		u32 := &u32Seeder{}
		err = u32.unmarshal(vals)
		seed = u32
	default:
		return nil, fmt.Errorf("chd: unknown seed-size %d", size)
	}
	if err != nil {
		return nil, err
	}

	if n != uint32(seed.length()) {
		return nil, fmt.Errorf("chd: mismatch in number of seeds: exp %d, saw %d", n, seed.length())
	}

	occ, _, err := unmarshalBitVector(buf[need:])
	if err != nil {
		return nil, err
	}
	if occ.Size() < uint64(n) {
		return nil, fmt.Errorf("chd: occupancy bitvector covers %d slots, want %d", occ.Size(), n)
	}

	t := &chd{seed: seed, salt: salt, occ: occ, n: int(nkeys)}
	t.buildRanks()
	return t, nil
}
