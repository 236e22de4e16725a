package handle

// EntityKind names one of the entity types registered with a database. It is
// a small process-wide id, not a reflect.Type, so it stays comparable and
// cheap to use as a map key across the whole query layer.
type EntityKind uint32

// EntityHandle is a RawEntityHandle branded with the Go type it is meant to
// index into. The brand is erased at runtime (E is a phantom type parameter
// that no field uses) but prevents a caller from handing a Mesh handle to an API
// expecting a Material handle at compile time.
type EntityHandle[E any] struct {
	Raw RawEntityHandle
}

// Untyped drops the compile-time brand, e.g. to store the handle in a
// foreign-key column that only deals in RawEntityHandle.
func (h EntityHandle[E]) Untyped() RawEntityHandle { return h.Raw }

// IsValid reports whether the wrapped raw handle looks like it was ever
// issued. It does not check liveness against an Arena.
func (h EntityHandle[E]) IsValid() bool { return h.Raw.IsValid() }

func (h EntityHandle[E]) String() string { return h.Raw.String() }

// Retype rebinds a raw handle to a new phantom entity type. Used at the
// boundary where a generic writer (ecdb.EntityWriter) hands back a raw
// allocation and the typed wrapper needs to be reconstructed.
func Retype[E any](raw RawEntityHandle) EntityHandle[E] {
	return EntityHandle[E]{Raw: raw}
}
