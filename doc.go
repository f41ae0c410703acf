// doc.go - top level documentation
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

// Package shard implements a write-once, read-many on-disk container
// for a fixed set of opaque binary objects, each addressed by a
// fixed-length key and retrievable in O(1) disk operations.
//
// A Shard file holds a 512-byte header, the object payloads packed
// contiguously in insertion order, a dense index ordered by a minimal
// perfect hash of the keys, and the serialized hash itself. The header
// is written last, so a build interrupted at any point leaves a file
// that Open rejects.
//
// Construction is two-phase via the 'Builder' object: stream exactly
// the declared number of key/object pairs with Write, then Finalize
// computes the perfect hash and lays down the index and header. Once
// finalized the file is immutable; any number of 'Shard' readers - in
// one process or many - can open it concurrently and look up objects
// by key with no coordination.
//
// Keys are opaque KeyLen-byte strings, typically content digests. The
// caller must ensure keys are distinct within one Shard; Finalize
// rejects duplicates.
package shard
