// mphf_test.go -- test suite for the byte-key MPHF wrapper
//
// (c) Sudhi Herle 2018 original algorithm; adapted wrapper tests.
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
	"bytes"
	"fmt"
	"testing"
)

func testKeys(n int) [][]byte {
	keys := make([][]byte, n)
	for i := range keys {
		keys[i] = []byte(fmt.Sprintf("key-%08d-%s", i, keyw[i%len(keyw)]))
	}
	return keys
}

func TestMPHFRoundTrip(t *testing.T) {
	assert := newAsserter(t)

	keys := testKeys(len(keyw))

	b, err := NewBuilder(CHD, 0.9)
	assert(err == nil, "construction failed: %s", err)

	for _, k := range keys {
		b.Add(k)
	}

	m, err := b.Build()
	assert(err == nil, "build failed: %s", err)
	assert(m.Len() == len(keys), "len mismatch; exp %d, saw %d", len(keys), m.Len())

	seen := make(map[uint64]bool)
	for _, k := range keys {
		i := m.Eval(k)
		assert(i < uint64(m.Len()), "slot %d out of range for key %s", i, k)
		assert(!seen[i], "slot %d assigned to two keys", i)
		seen[i] = true
	}
}

func TestMPHFMarshalRoundTrip(t *testing.T) {
	assert := newAsserter(t)

	keys := testKeys(len(keyw))

	b, err := NewBuilder(BBHash, 2.0)
	assert(err == nil, "construction failed: %s", err)
	for _, k := range keys {
		b.Add(k)
	}

	m, err := b.Build()
	assert(err == nil, "build failed: %s", err)

	var buf bytes.Buffer
	_, err = m.MarshalBinary(&buf)
	assert(err == nil, "marshal failed: %s", err)

	m2, err := Load(buf.Bytes())
	assert(err == nil, "load failed: %s", err)
	assert(m2.Len() == m.Len(), "len mismatch after reload; exp %d, saw %d", m.Len(), m2.Len())

	for _, k := range keys {
		assert(m.Eval(k) == m2.Eval(k), "eval mismatch for key %s", k)
	}
}
