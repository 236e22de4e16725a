// Package gpumirror translates query deltas into GPU-buffer-shaped byte
// writes without ever re-uploading unchanged data. It models buffer layout
// bookkeeping only — offsets, byte ranges, relocation — and never touches
// a real graphics API; concrete pipelines, shaders, and mesh formats are
// out of scope.
//
// No library in the example pack provides a GPU buffer abstraction, so this
// package is built on the standard library only; see DESIGN.md for why no
// third-party dependency could serve this concern.
package gpumirror

import (
	"github.com/reactivescene/recs/query"
)

// GPUBuffer is the minimal sink an adapter writes into: a byte range update
// at a caller-chosen offset. A real embedder backs this with an actual GPU
// buffer handle; tests back it with an in-memory byte slice (see
// fake_buffer_test.go's fakeBuffer).
type GPUBuffer interface {
	WriteAt(offset int, data []byte)
	Size() int
	Grow(newSize int)
}

// Std140Encoder packs a value V into its std140-compatible byte
// representation. Concrete layouts (vec4 alignment, matrix column padding,
// etc.) are the embedder's responsibility; the mirror adapter only needs to
// know the encoded size and how to produce the bytes.
type Std140Encoder[V any] interface {
	Encode(v V) []byte
	Size() int
}

// UniformBufferCollection maintains one GPU buffer per key, each updated at
// a fixed field offset. Multiple field updaters (one per struct field) can
// target the same underlying buffer at different offsets, coordinated by
// the caller for std140 struct layout.
type UniformBufferCollection[K comparable, V any] struct {
	enc       Std140Encoder[V]
	fieldOff  int
	bufSize   int
	newBuffer func() GPUBuffer
	buffers   map[K]GPUBuffer
}

func NewUniformBufferCollection[K comparable, V any](
	enc Std140Encoder[V], fieldOffset, totalBufferSize int, newBuffer func() GPUBuffer,
) *UniformBufferCollection[K, V] {
	return &UniformBufferCollection[K, V]{
		enc: enc, fieldOff: fieldOffset, bufSize: totalBufferSize,
		newBuffer: newBuffer, buffers: make(map[K]GPUBuffer),
	}
}

// UpdateUniforms applies one frame's change set: drops the buffer for every
// removed key, and writes the encoded value at fieldOff of the existing or
// freshly-created buffer for every inserted-or-updated key.
func (u *UniformBufferCollection[K, V]) UpdateUniforms(changes map[K]query.ValueChange[V]) {
	for key, change := range changes {
		if change.IsRemoved() {
			delete(u.buffers, key)
			continue
		}
		buf, ok := u.buffers[key]
		if !ok {
			buf = u.newBuffer()
			buf.Grow(u.bufSize)
			u.buffers[key] = buf
		}
		v, _ := change.NewValue()
		buf.WriteAt(u.fieldOff, u.enc.Encode(v))
	}
}

// Buffer returns the GPU buffer currently backing key, if any.
func (u *UniformBufferCollection[K, V]) Buffer(key K) (GPUBuffer, bool) {
	b, ok := u.buffers[key]
	return b, ok
}

// Len reports how many live per-key buffers the collection currently holds.
func (u *UniformBufferCollection[K, V]) Len() int { return len(u.buffers) }
