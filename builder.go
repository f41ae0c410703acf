// builder.go -- two-phase construction of a Shard file
//
// (c) Sudhi Herle 2018 original DB writer this is adapted from
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
	"fmt"
	"io"
	"os"

	"github.com/opencoff/go-shard/internal/mphf"
)

// Build phases: objects are streamed first, then Finalize computes the
// minimal perfect hash over the collected keys, lays the index down in
// MPHF slot order, serializes the MPHF and writes the header last. A
// crash before the header write leaves an all-zero header and the file
// is rejected on Open.

// default CHD load factor; same default the example tooling uses.
const chdLoad = 0.85

// writer state
type wstate int

const (
	_Aborted wstate = -1
	_Open    wstate = 0
	_Frozen  wstate = 1
)

// pending is the bookkeeping for one written object, in insertion order.
type pending struct {
	key [KeyLen]byte
	off uint64
	sz  uint64
}

// Builder constructs a Shard file. It is single-use and single-threaded:
// Write() exactly 'count' objects, then Finalize() once. On any error
// path call Abort() (or use WithBuilder) so the partial file is
// unlinked.
type Builder struct {
	fd *os.File
	fn string

	backend mphf.Backend
	param   float64

	// declared object count; Write past this fails.
	declared uint64

	// insertion-ordered object records
	objs []pending

	// running write cursor within fd
	off uint64

	state wstate
}

// NewBuilder creates (truncating if necessary) the Shard file at 'fn',
// sized for exactly 'count' objects, using the CHD perfect hash. The
// header region is reserved immediately; it is filled in by Finalize.
func NewBuilder(fn string, count uint64) (*Builder, error) {
	return newBuilder(fn, count, mphf.CHD, chdLoad)
}

// NewBBHashBuilder is like NewBuilder but uses the BBHash perfect hash,
// which construct concurrently and behaves better on very large key
// sets. 'gamma' is the BBHash expansion factor (>= 1.0; 2.0 if zero).
func NewBBHashBuilder(fn string, count uint64, gamma float64) (*Builder, error) {
	return newBuilder(fn, count, mphf.BBHash, gamma)
}

func newBuilder(fn string, count uint64, backend mphf.Backend, param float64) (*Builder, error) {
	fd, err := os.OpenFile(fn, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return nil, ioError(fn, "create", err)
	}

	w := &Builder{
		fd:       fd,
		fn:       fn,
		backend:  backend,
		param:    param,
		declared: count,
		objs:     make([]pending, 0, count),
		off:      headerSize,
	}

	// Reserve the header region; Finalize writes the real bytes once
	// every other region is durable.
	var z [headerSize]byte
	if _, err := writeAll(fd, z[:]); err != nil {
		w.abort()
		return nil, ioError(fn, "reserve header", err)
	}

	return w, nil
}

// Filename returns the path of the Shard being built.
func (w *Builder) Filename() string {
	return w.fn
}

// Count returns the number of objects written so far.
func (w *Builder) Count() int {
	return len(w.objs)
}

// Write appends one object to the Shard and records its key. The key
// must be exactly KeyLen bytes; keys must be distinct across the whole
// build (duplicates are detected at Finalize).
func (w *Builder) Write(key []byte, obj []byte) error {
	if w.state != _Open {
		return ErrFrozen
	}

	if len(key) != KeyLen {
		return fmt.Errorf("%s: expected %d byte key, have %d: %w", w.fn, KeyLen, len(key), ErrBadKeyLength)
	}

	if uint64(len(w.objs)) >= w.declared {
		return fmt.Errorf("%s: declared %d objects: %w", w.fn, w.declared, ErrTooManyObjects)
	}

	p := pending{
		off: w.off,
		sz:  uint64(len(obj)),
	}
	copy(p.key[:], key)

	if len(obj) > 0 {
		if _, err := writeAll(w.fd, obj); err != nil {
			return ioError(w.fn, "write object", err)
		}
	}

	w.off += p.sz
	w.objs = append(w.objs, p)
	return nil
}

// Abort stops a construction and unlinks the partial file.
func (w *Builder) Abort() error {
	if w.state != _Open {
		return ErrFrozen
	}

	return w.abort()
}

func (w *Builder) abort() error {
	w.state = _Aborted
	if err := os.Remove(w.fd.Name()); err != nil {
		return err
	}

	return w.fd.Close()
}

// Finalize computes the minimal perfect hash over the written keys,
// writes the index region in MPHF slot order followed by the serialized
// MPHF, then writes the header and closes the file. On any error the
// partial file is unlinked.
func (w *Builder) Finalize() (err error) {
	if w.state != _Open {
		return ErrFrozen
	}

	defer func(e *error) {
		// undo the partial file
		if *e != nil {
			w.abort()
		}
	}(&err)

	n := uint64(len(w.objs))
	if n != w.declared {
		return fmt.Errorf("%s: declared %d, wrote %d: %w", w.fn, w.declared, n, ErrCountMismatch)
	}

	objectsSize := w.off - headerSize

	mb, err := mphf.NewBuilder(w.backend, w.param)
	if err != nil {
		return fmt.Errorf("%s: %w", w.fn, err)
	}

	seen := make(map[[KeyLen]byte]bool, n)
	for i := range w.objs {
		p := &w.objs[i]
		if seen[p.key] {
			return fmt.Errorf("%s: key %x: %w", w.fn, p.key[:], ErrDuplicateKey)
		}
		seen[p.key] = true
		mb.Add(p.key[:])
	}

	mp, err := mb.Build()
	if err != nil {
		return fmt.Errorf("%s: %w", w.fn, err)
	}

	// Lay the index down in slot order. A correct MPHF over distinct
	// keys is a bijection onto [0, n); anything else is a bug.
	slots := make([]indexEntry, n)
	taken := make([]bool, n)
	for i := range w.objs {
		p := &w.objs[i]
		j := mp.Eval(p.key[:])
		if j >= n {
			return fmt.Errorf("%s: key %x: slot %d out of range: %w", w.fn, p.key[:], j, ErrInternal)
		}
		if taken[j] {
			return fmt.Errorf("%s: key %x: slot %d collision: %w", w.fn, p.key[:], j, ErrInternal)
		}
		taken[j] = true
		slots[j] = indexEntry{
			Key:          p.key,
			ObjectOffset: p.off,
			ObjectSize:   p.sz,
		}
	}

	rw := &regionWriter{w: w.fd}
	for i := range slots {
		rw.Write(slots[i].encode())
	}
	if rw.err != nil {
		return ioError(w.fn, "write index", rw.err)
	}

	if _, err := mp.MarshalBinary(rw); err != nil {
		return ioError(w.fn, "write hash", err)
	}

	hdr := Header{
		Magic:           magic,
		ObjectsCount:    n,
		ObjectsPosition: headerSize,
		ObjectsSize:     objectsSize,
		IndexPosition:   headerSize + objectsSize,
		IndexSize:       n * IndexEntrySize,
		HashPosition:    headerSize + objectsSize + n*IndexEntrySize,
	}

	if _, err := w.fd.Seek(0, 0); err != nil {
		return ioError(w.fn, "seek header", err)
	}
	if _, err := writeAll(w.fd, hdr.encode()); err != nil {
		return ioError(w.fn, "write header", err)
	}

	if err := w.fd.Sync(); err != nil {
		return ioError(w.fn, "sync", err)
	}
	if err := w.fd.Close(); err != nil {
		return ioError(w.fn, "close", err)
	}

	w.state = _Frozen
	return nil
}

// regionWriter streams the index and hash regions during Finalize,
// absorbing the first write error so the per-slot loop and the MPHF
// marshalling don't need a check at every write.
type regionWriter struct {
	w   io.Writer
	err error
}

func (r *regionWriter) Write(b []byte) (int, error) {
	if r.err != nil {
		return 0, r.err
	}

	n, err := r.w.Write(b)
	if err == nil && n != len(b) {
		err = shortWrite(n, len(b))
	}
	r.err = err
	return n, err
}

// WithBuilder creates a Builder for 'fn', hands it to 'fp', and
// finalizes the Shard when fp returns nil. When fp returns an error the
// partial file is unlinked and the error returned unchanged.
func WithBuilder(fn string, count uint64, fp func(w *Builder) error) error {
	w, err := NewBuilder(fn, count)
	if err != nil {
		return err
	}

	if err := fp(w); err != nil {
		w.Abort()
		return err
	}

	return w.Finalize()
}
