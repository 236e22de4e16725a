package ecdb

import (
	"testing"
)

type parentEntity struct{}
type childEntity struct{}

func TestRevRefIndexTracksForeignKeyChanges(t *testing.T) {
	db := NewDatabase()
	parents := db.DeclareEntity("parent")
	children := db.DeclareEntity("child")
	parentOf := DeclareForeignKey[parentEntity](children, parents)

	idx := WatchRevRef(parentOf)

	pw := TypedWriter[parentEntity](parents)
	p1 := pw.NewEntity()
	p2 := pw.NewEntity()

	cw := TypedWriter[childEntity](children)
	c1 := cw.NewEntity()
	c2 := cw.NewEntity()

	Write(cw, parentOf, c1, p1.Raw)
	Write(cw, parentOf, c2, p1.Raw)

	sources := idx.Sources(p1.Raw)
	if len(sources) != 2 {
		t.Fatalf("expected 2 children pointing at p1, got %d", len(sources))
	}

	// move c2 to point at p2 instead.
	Write(cw, parentOf, c2, p2.Raw)

	if got := idx.Sources(p1.Raw); len(got) != 1 || got[0].Index != c1.Raw.Index {
		t.Fatalf("expected only c1 left under p1 after c2 moved, got %v", got)
	}
	if got := idx.Sources(p2.Raw); len(got) != 1 || got[0].Index != c2.Raw.Index {
		t.Fatalf("expected c2 under p2, got %v", got)
	}
}

func TestOwningForeignKeyOption(t *testing.T) {
	db := NewDatabase()
	parents := db.DeclareEntity("parent")
	children := db.DeclareEntity("child")
	fk := DeclareForeignKey[parentEntity](children, parents, Owning())

	children.mu.RLock()
	info, ok := children.foreignKeys[fk.id]
	children.mu.RUnlock()
	if !ok || !info.owning {
		t.Fatalf("expected foreign key to be recorded as owning")
	}
}
