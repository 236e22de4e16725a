package serialize

import (
	"bytes"
	"testing"

	"github.com/reactivescene/recs/ecdb"
)

type sceneNode struct{}

func TestDumpAndLoadComponentRoundTrips(t *testing.T) {
	db := ecdb.NewDatabase()
	ecg := db.DeclareEntity("node")
	position := ecdb.DeclareComponent[[3]float32](ecg)

	w := ecdb.TypedWriter[sceneNode](ecg)
	a := w.NewEntity()
	b := w.NewEntity()
	ecdb.Write(w, position, a, [3]float32{1, 2, 3})
	ecdb.Write(w, position, b, [3]float32{4, 5, 6})

	dump := DumpComponent(position, Vec3Codec{})

	// restore into a fresh component on a fresh group sharing the same slot
	// numbering, simulating a process restart loading a snapshot.
	db2 := ecdb.NewDatabase()
	ecg2 := db2.DeclareEntity("node")
	position2 := ecdb.DeclareComponent[[3]float32](ecg2)

	if err := LoadComponent(position2, Vec3Codec{}, dump.Data); err != nil {
		t.Fatalf("unexpected error loading component: %v", err)
	}

	snap := position2.Snapshot()
	if snap[a.Raw.Index] != ([3]float32{1, 2, 3}) {
		t.Errorf("slot %d: expected restored value (1,2,3), got %v", a.Raw.Index, snap[a.Raw.Index])
	}
	if snap[b.Raw.Index] != ([3]float32{4, 5, 6}) {
		t.Errorf("slot %d: expected restored value (4,5,6), got %v", b.Raw.Index, snap[b.Raw.Index])
	}
}

func TestEntityGroupSnapshotWriteReadRoundTrips(t *testing.T) {
	db := ecdb.NewDatabase()
	ecg := db.DeclareEntity("node")
	position := ecdb.DeclareComponent[[3]float32](ecg)

	w := ecdb.TypedWriter[sceneNode](ecg)
	a := w.NewEntity()
	ecdb.Write(w, position, a, [3]float32{9, 9, 9})

	dump := DumpComponent(position, Vec3Codec{})
	snapshot := SnapshotEntityGroup(ecg, dump)

	var buf bytes.Buffer
	if _, err := snapshot.WriteTo(&buf); err != nil {
		t.Fatalf("unexpected write error: %v", err)
	}

	parsed, err := ReadEntityGroupSnapshot(&buf)
	if err != nil {
		t.Fatalf("unexpected read error: %v", err)
	}
	if parsed.Name != "node" {
		t.Errorf("expected name 'node', got %q", parsed.Name)
	}
	if len(parsed.Generations) == 0 || parsed.Generations[a.Raw.Index] != a.Raw.Generation {
		t.Errorf("expected generation bitmap to record slot %d's generation %d, got %v",
			a.Raw.Index, a.Raw.Generation, parsed.Generations)
	}
	if len(parsed.Components) != 1 || parsed.Components[0].ID != position.ID() {
		t.Fatalf("expected one component dump for position, got %+v", parsed.Components)
	}
}
