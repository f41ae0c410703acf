// helpers_test.go - helper routines for tests
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

package shard

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"runtime"
	"testing"
)

var keep bool

func init() {
	flag.BoolVar(&keep, "keep", false, "Keep test shards")
}

func newAsserter(t *testing.T) func(cond bool, msg string, args ...interface{}) {
	return func(cond bool, msg string, args ...interface{}) {
		if cond {
			return
		}

		_, file, line, ok := runtime.Caller(1)
		if !ok {
			file = "???"
			line = 0
		}

		s := fmt.Sprintf(msg, args...)
		t.Fatalf("%s: %d: Assertion failed: %s\n", file, line, s)
	}
}

// tmpShard returns a fresh file name under the test temp dir and a
// cleanup func honoring -keep.
func tmpShard(t *testing.T) (string, func()) {
	fn := fmt.Sprintf("%s/shard%d.db", os.TempDir(), rand.Int())
	return fn, func() {
		if keep {
			t.Logf("shard %s retained after test\n", fn)
		} else {
			os.Remove(fn)
		}
	}
}

// repKey makes a KeyLen-byte key of one repeated byte.
func repKey(b byte) []byte {
	k := make([]byte, KeyLen)
	for i := range k {
		k[i] = b
	}
	return k
}

// seqKey encodes i as a big-endian integer padded to KeyLen bytes, the
// same bytes hex("%064X" % i) decodes to.
func seqKey(i uint64) []byte {
	k := make([]byte, KeyLen)
	for j := KeyLen - 1; i > 0; j-- {
		k[j] = byte(i & 0xff)
		i >>= 8
	}
	return k
}

func randKey() []byte {
	k := make([]byte, KeyLen)
	rand.Read(k)
	return k
}
