// endian.go -- little-endian slice<->byte conversions for serialized tables
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

import "encoding/binary"

func u16sToByteSlice(v []uint16) []byte {
	b := make([]byte, len(v)*2)
	for i, x := range v {
		binary.LittleEndian.PutUint16(b[i*2:], x)
	}
	return b
}

func bsToUint16Slice(b []byte) []uint16 {
	n := len(b) / 2
	v := make([]uint16, n)
	for i := 0; i < n; i++ {
		v[i] = binary.LittleEndian.Uint16(b[i*2:])
	}
	return v
}

func u32sToByteSlice(v []uint32) []byte {
	b := make([]byte, len(v)*4)
	for i, x := range v {
		binary.LittleEndian.PutUint32(b[i*4:], x)
	}
	return b
}

func bsToUint32Slice(b []byte) []uint32 {
	n := len(b) / 4
	v := make([]uint32, n)
	for i := 0; i < n; i++ {
		v[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	return v
}

func u64sToByteSlice(v []uint64) []byte {
	b := make([]byte, len(v)*8)
	for i, x := range v {
		binary.LittleEndian.PutUint64(b[i*8:], x)
	}
	return b
}

func bsToUint64Slice(b []byte) []uint64 {
	n := len(b) / 8
	v := make([]uint64, n)
	for i := 0; i < n; i++ {
		v[i] = binary.LittleEndian.Uint64(b[i*8:])
	}
	return v
}
