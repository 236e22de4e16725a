// Package ecdb implements the column-oriented entity-component store: a
// process-wide Database of EntityComponentGroups, each holding one column
// (a map keyed by slot index) per declared component, written through a single exclusive
// EntityWriter per group and observed through per-component event sources.
// Referential-integrity enforcement is explicitly left to the writer's
// caller.
package ecdb

import (
	"fmt"
	"sync"

	"github.com/reactivescene/recs/handle"
)

// ComponentID names one declared component within an ECG.
type ComponentID uint32

// Database owns every declared EntityComponentGroup, plus the registry of
// owning foreign-key relations used to cascade deletes across groups.
type Database struct {
	mu        sync.RWMutex
	ecgs      map[handle.EntityKind]*EntityComponentGroup
	next      handle.EntityKind
	owningFKs []owningFK
}

// owningFK records one Owning() foreign-key relation: deleting an entity of
// targetKind deletes every source entity whose fk column points at it.
type owningFK struct {
	source     *EntityComponentGroup
	colID      ComponentID
	targetKind handle.EntityKind
}

func NewDatabase() *Database {
	return &Database{ecgs: make(map[handle.EntityKind]*EntityComponentGroup)}
}

// DeclareEntity registers a new entity kind and returns its group. Each call
// allocates a fresh EntityKind; declaring the "same" logical entity twice is
// the caller's bookkeeping mistake, mirrored in Go by having the caller hold
// onto the returned *EntityComponentGroup rather than re-declaring.
func (d *Database) DeclareEntity(name string) *EntityComponentGroup {
	d.mu.Lock()
	defer d.mu.Unlock()

	kind := d.next
	d.next++

	ecg := &EntityComponentGroup{
		name:        name,
		kind:        kind,
		db:          d,
		arena:       handle.New(),
		components:  make(map[ComponentID]*componentColumn),
		foreignKeys: make(map[ComponentID]foreignKeyInfo),
	}
	d.ecgs[kind] = ecg
	return ecg
}

// ECG looks up a previously declared group by kind.
func (d *Database) ECG(kind handle.EntityKind) (*EntityComponentGroup, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ecg, ok := d.ecgs[kind]
	return ecg, ok
}

type foreignKeyInfo struct {
	targetKind handle.EntityKind
	owning     bool // owning FK cascades delete on target removal
}

// EntityComponentGroup (ECG) is one entity kind's arena plus its component
// columns.
type EntityComponentGroup struct {
	mu          sync.RWMutex
	name        string
	kind        handle.EntityKind
	db          *Database
	arena       *handle.Arena
	components  map[ComponentID]*componentColumn
	foreignKeys map[ComponentID]foreignKeyInfo
	nextComp    ComponentID
}

func (e *EntityComponentGroup) Kind() handle.EntityKind { return e.kind }
func (e *EntityComponentGroup) Name() string            { return e.name }

// Arena exposes the group's generational allocator, for the serialize
// package's allocator-bitmap snapshot and for diagnostics.
func (e *EntityComponentGroup) Arena() *handle.Arena { return e.arena }

// DeclareComponent registers a typed column. Every call allocates a fresh
// column with its own id: declarations are keyed by the returned handle,
// not by a type-identity registry, so the duplicate-declaration hazard a
// type-keyed store must guard against cannot arise here. Calling this twice
// simply creates two independent columns — callers are expected to declare
// once at bootstrap and hold the handle, the same way DeclareEntity expects
// its group pointer to be kept rather than re-looked-up.
func DeclareComponent[V any](e *EntityComponentGroup) *ComponentHandle[V] {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.nextComp
	e.nextComp++

	col := newComponentColumn[V]()
	e.components[id] = col

	return &ComponentHandle[V]{id: id, ecg: e}
}

// DeclareComponentWithDefault registers a typed column that is populated
// with def on every NewEntity allocation, so a freshly created entity
// immediately holds a value (and its subscribers immediately see a
// Delta(default, nil)) without an explicit first Write.
func DeclareComponentWithDefault[V any](e *EntityComponentGroup, def V) *ComponentHandle[V] {
	c := DeclareComponent[V](e)
	e.mu.Lock()
	col := e.components[c.id]
	col.defaultVal = def
	col.hasDefault = true
	e.mu.Unlock()
	return c
}

// DeclareForeignKey registers a column whose values are handles into
// target's arena. opts may mark the relation as owning, enabling cascade
// delete.
func DeclareForeignKey[Target any](e *EntityComponentGroup, target *EntityComponentGroup, opts ...ForeignKeyOption) *ComponentHandle[handle.RawEntityHandle] {
	fh := DeclareComponent[handle.RawEntityHandle](e)

	e.mu.Lock()
	info := foreignKeyInfo{targetKind: target.kind}
	for _, opt := range opts {
		opt(&info)
	}
	e.foreignKeys[fh.id] = info
	e.mu.Unlock()

	if info.owning {
		e.db.mu.Lock()
		e.db.owningFKs = append(e.db.owningFKs, owningFK{source: e, colID: fh.id, targetKind: target.kind})
		e.db.mu.Unlock()
	}

	return fh
}

// ForeignKeyOption configures a DeclareForeignKey call.
type ForeignKeyOption func(*foreignKeyInfo)

// Owning marks a foreign-key relation such that deleting the referenced
// entity cascades into deleting the referencing entity.
func Owning() ForeignKeyOption {
	return func(i *foreignKeyInfo) { i.owning = true }
}

// AccessComponent runs fn with a checked read view over c's column: the
// view dereferences a handle to its current value only while the handle's
// generation is still live. This is the reader-side counterpart of
// EntityWriter's Read that needs no writer at all.
func AccessComponent[V any](c *ComponentHandle[V], fn func(view func(h handle.RawEntityHandle) (V, bool))) {
	col := c.column()
	fn(func(h handle.RawEntityHandle) (V, bool) {
		var zero V
		if !c.ecg.arena.IsLive(h) {
			return zero, false
		}
		v, ok := col.data[h.Index]
		if !ok {
			return zero, false
		}
		return v.(V), true
	})
}

// owningFKsTargeting returns every owning relation whose target is kind.
func (d *Database) owningFKsTargeting(kind handle.EntityKind) []owningFK {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []owningFK
	for _, fk := range d.owningFKs {
		if fk.targetKind == kind {
			out = append(out, fk)
		}
	}
	return out
}

func (e *EntityComponentGroup) componentByID(id ComponentID) *componentColumn {
	e.mu.RLock()
	defer e.mu.RUnlock()
	col, ok := e.components[id]
	if !ok {
		panic(fmt.Sprintf("ecdb: unknown component id %d on entity group %q", id, e.name))
	}
	return col
}
