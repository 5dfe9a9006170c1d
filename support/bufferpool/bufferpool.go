// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Package bufferpool recycles the chunk buffers used by stream workers.
package bufferpool

import (
	"sync"
)

// Pool maintains a pool of buffers. It offers a new buffer when one is
// unavailable.
type Pool struct {
	// Size is the size of the buffers in this pool.
	Size int

	base sync.Pool
}

// pools maps buffer sizes to their shared *Pool.
var pools sync.Map

// ForSize returns the process-wide Pool of size-byte buffers.
func ForSize(size int) *Pool {
	if p, ok := pools.Load(size); ok {
		return p.(*Pool)
	}
	p, _ := pools.LoadOrStore(size, &Pool{Size: size})
	return p.(*Pool)
}

// Get returns a buffer, allocating one if one is not available.
//
// The buffer's contents are undefined. The caller should return it to the pool
// by calling its Release method when done with it.
func (bp *Pool) Get() *Buffer {
	b, ok := bp.base.Get().(*Buffer)
	if !ok {
		// Create a blank buffer. When it is released, it will be added back to
		// pool.
		b = &Buffer{
			bytes: make([]byte, bp.Size),
		}
	}
	b.pool = bp
	return b
}

// Buffer contains a byte buffer that can be released into a Pool for reuse.
//
// A Buffer is owned by a single user at a time. Failure to release a Buffer
// will not cause a memory leak, but will prevent its reuse.
type Buffer struct {
	bytes []byte
	pool  *Pool
}

// Bytes returns this buffer's byte slice.
func (b *Buffer) Bytes() []byte { return b.bytes }

// Release returns the buffer to its buffer pool.
//
// A Buffer must only be released once, and must not be used afterwards.
func (b *Buffer) Release() {
	var pool *Pool
	pool, b.pool = b.pool, nil
	if pool == nil {
		panic("buffer released twice")
	}
	pool.base.Put(b)
}
