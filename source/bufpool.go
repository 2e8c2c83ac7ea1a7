package source

import (
	"sync"
)

// BufferPool recycles frame buffers of a fixed size so decoding a stream
// does not allocate a new buffer per frame
type BufferPool struct {
	pool sync.Pool
	size int
}

// NewBufferPool returns a pool of buffers of size bytes
func NewBufferPool(size int) *BufferPool {

	b := &BufferPool{size: size}

	b.pool.New = func() any {
		buf := make([]byte, size)
		return &buf
	}

	return b
}

// Size returns the length of the buffers in the pool
func (b *BufferPool) Size() int {
	return b.size
}

// Get returns a buffer of Size bytes.  Its contents are undefined.
func (b *BufferPool) Get() []byte {
	buf := b.pool.Get().(*[]byte)
	return (*buf)[:b.size]
}

// Put returns a buffer to the pool.  Buffers of another capacity are
// discarded.
func (b *BufferPool) Put(buf []byte) {

	if cap(buf) != b.size {
		return
	}

	buf = buf[:b.size]
	b.pool.Put(&buf)
}
