package gpumirror

import (
	"math"

	"github.com/reactivescene/recs/query"
)

// Mat4 is a column-major 4x4 matrix, the payload type world-transform
// derivation (query.DeriveTree) produces for a scene-graph node.
type Mat4 [16]float32

// CullMode tags whether a node's world matrix is culled against the frustum
// on the host (CPU reads the mirrored value) or left to the device (GPU
// shader performs the test against the mirrored buffer).
type CullMode uint8

const (
	CullOnHost CullMode = iota
	CullOnDevice
)

// Mat4Encoder packs a Mat4 into its std140 column-major byte layout (16
// float32, no additional padding: a mat4 is already 16-byte aligned per
// column).
type Mat4Encoder struct{}

func (Mat4Encoder) Size() int { return 16 * 4 }

func (Mat4Encoder) Encode(m Mat4) []byte {
	out := make([]byte, 16*4)
	for i, f := range m {
		b := math.Float32bits(f)
		out[i*4+0] = byte(b)
		out[i*4+1] = byte(b >> 8)
		out[i*4+2] = byte(b >> 16)
		out[i*4+3] = byte(b >> 24)
	}
	return out
}

// TransformMirror consumes world-transform deltas (the output of
// query.DeriveTree over a scene graph's parent-pointer relation) and pushes
// them into both a CPU-side cache and a GPU-side mirror in a single pass,
// tagged by whether subsequent culling is performed on host or device.
type TransformMirror[K comparable] struct {
	cpu      map[K]Mat4
	gpu      *CommonStorageBufferImpl[K, Mat4]
	cullMode func(K) CullMode
	hostOnly map[K]Mat4 // subset of cpu holding nodes culled on host, kept in sync
}

func NewTransformMirror[K comparable](buf GPUBuffer, initialCap int, cullMode func(K) CullMode) *TransformMirror[K] {
	return &TransformMirror[K]{
		cpu:      make(map[K]Mat4),
		gpu:      NewCommonStorageBuffer[K, Mat4](Mat4Encoder{}, buf, initialCap),
		cullMode: cullMode,
		hostOnly: make(map[K]Mat4),
	}
}

// Apply pushes one frame's derived world-matrix changes into the CPU cache
// and the GPU mirror. Host-culled nodes are additionally kept in a
// host-readable subset view so frustum culling never has to touch the full
// cache.
func (m *TransformMirror[K]) Apply(changes map[K]query.ValueChange[Mat4]) {
	for key, change := range changes {
		if change.IsRemoved() {
			delete(m.cpu, key)
			delete(m.hostOnly, key)
			continue
		}
		v, _ := change.NewValue()
		m.cpu[key] = v
		if m.cullMode(key) == CullOnHost {
			m.hostOnly[key] = v
		} else {
			delete(m.hostOnly, key)
		}
	}
	m.gpu.UpdateStorage(changes)
}

// WorldMatrix returns the current CPU-side cached world matrix for key.
func (m *TransformMirror[K]) WorldMatrix(key K) (Mat4, bool) {
	v, ok := m.cpu[key]
	return v, ok
}

// HostCullSet returns the nodes currently tagged for host-side frustum
// culling, for a culling pass to iterate without scanning device-culled
// nodes.
func (m *TransformMirror[K]) HostCullSet() map[K]Mat4 { return m.hostOnly }
