// Package serialize implements the core's optional snapshot and replay-log
// subsystem: a database snapshot is, per ECG, an allocator bitmap plus a
// per-component byte dump in column order; a replay log is, per component,
// a stream of framed `{kind, idx, payload}` records bounded by the
// component's Start/End transaction brackets.
//
// No library in the example pack provides a fixed-width binary codec, so
// this package is built on encoding/binary and the standard library; see
// DESIGN.md for why no third-party dependency could serve this concern.
package serialize

import "math"

// Codec encodes and decodes one component's value to and from its fixed
// byte width, the serialization analogue of gpumirror.Std140Encoder. Payload
// width is always Size() bytes: the component's fixed size.
type Codec[V any] interface {
	Encode(v V) []byte
	Decode(b []byte) V
	Size() int
}

// Uint32Codec is a fixed-width codec for uint32-valued components.
type Uint32Codec struct{}

func (Uint32Codec) Size() int { return 4 }
func (Uint32Codec) Encode(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}
func (Uint32Codec) Decode(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

// Float32Codec is a fixed-width codec for float32-valued components (the
// common case for scalar scene attributes like a light's intensity).
type Float32Codec struct{}

func (Float32Codec) Size() int { return 4 }
func (Float32Codec) Encode(v float32) []byte {
	return Uint32Codec{}.Encode(math.Float32bits(v))
}
func (Float32Codec) Decode(b []byte) float32 {
	return math.Float32frombits(Uint32Codec{}.Decode(b))
}

// Vec3Codec is a fixed-width codec for a [3]float32 component, e.g. a scene
// node's translation or color.
type Vec3Codec struct{}

func (Vec3Codec) Size() int { return 12 }
func (Vec3Codec) Encode(v [3]float32) []byte {
	out := make([]byte, 0, 12)
	fc := Float32Codec{}
	for _, f := range v {
		out = append(out, fc.Encode(f)...)
	}
	return out
}
func (Vec3Codec) Decode(b []byte) [3]float32 {
	var out [3]float32
	fc := Float32Codec{}
	for i := range out {
		out[i] = fc.Decode(b[i*4 : i*4+4])
	}
	return out
}
