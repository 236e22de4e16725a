package serialize

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sort"

	"github.com/reactivescene/recs/ecdb"
)

// ComponentDump is one component's byte dump within an EntityGroupSnapshot:
// a length-prefixed, index-sorted sequence of (idx uint32, payload) pairs.
type ComponentDump struct {
	ID   ecdb.ComponentID
	Data []byte
}

// DumpComponent snapshots c's entire current column into a ComponentDump,
// sorted by slot index for a deterministic byte-for-byte snapshot.
func DumpComponent[V any](c *ecdb.ComponentHandle[V], codec Codec[V]) ComponentDump {
	snap := c.Snapshot()
	idxs := make([]uint32, 0, len(snap))
	for idx := range snap {
		idxs = append(idxs, idx)
	}
	sort.Slice(idxs, func(i, j int) bool { return idxs[i] < idxs[j] })

	var buf bytes.Buffer
	writeUint32(&buf, uint32(len(idxs)))
	for _, idx := range idxs {
		writeUint32(&buf, idx)
		buf.Write(codec.Encode(snap[idx]))
	}
	return ComponentDump{ID: c.ID(), Data: buf.Bytes()}
}

// LoadComponent restores c's column from data, as produced by DumpComponent.
func LoadComponent[V any](c *ecdb.ComponentHandle[V], codec Codec[V], data []byte) error {
	r := bytes.NewReader(data)
	count, err := readUint32(r)
	if err != nil {
		return fmt.Errorf("serialize: reading component dump header: %w", err)
	}

	out := make(map[uint32]V, count)
	payload := make([]byte, codec.Size())
	for i := uint32(0); i < count; i++ {
		idx, err := readUint32(r)
		if err != nil {
			return fmt.Errorf("serialize: reading entry %d index: %w", i, err)
		}
		if _, err := io.ReadFull(r, payload); err != nil {
			return fmt.Errorf("serialize: reading entry %d payload: %w", i, err)
		}
		out[idx] = codec.Decode(payload)
	}
	c.Restore(out)
	return nil
}

// EntityGroupSnapshot is one ECG's allocator bitmap plus every requested
// component's dump, in the order the caller supplied them (column order).
type EntityGroupSnapshot struct {
	Name        string
	Generations []uint32 // index i: slot i's generation, 0 means free
	Components  []ComponentDump
}

// SnapshotEntityGroup captures ecg's allocator bitmap alongside the
// already-computed component dumps the caller passes in (built via
// DumpComponent, one call per declared component).
func SnapshotEntityGroup(ecg *ecdb.EntityComponentGroup, dumps ...ComponentDump) EntityGroupSnapshot {
	arena := ecg.Arena()
	capacity := arena.Capacity()
	gens := make([]uint32, capacity)
	for i := int64(0); i < capacity; i++ {
		if h, ok := arena.HandleFor(uint32(i)); ok {
			gens[i] = h.Generation
		}
	}
	return EntityGroupSnapshot{Name: ecg.Name(), Generations: gens, Components: dumps}
}

// WriteTo serializes the snapshot to w: name, generation bitmap, then each
// component dump prefixed by its id and byte length.
func (s EntityGroupSnapshot) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	writeUint32(&buf, uint32(len(s.Name)))
	buf.WriteString(s.Name)
	writeUint32(&buf, uint32(len(s.Generations)))
	for _, g := range s.Generations {
		writeUint32(&buf, g)
	}
	writeUint32(&buf, uint32(len(s.Components)))
	for _, c := range s.Components {
		writeUint32(&buf, uint32(c.ID))
		writeUint32(&buf, uint32(len(c.Data)))
		buf.Write(c.Data)
	}
	n, err := w.Write(buf.Bytes())
	return int64(n), err
}

// ReadEntityGroupSnapshot parses a snapshot previously written by WriteTo.
func ReadEntityGroupSnapshot(r io.Reader) (EntityGroupSnapshot, error) {
	var s EntityGroupSnapshot

	nameLen, err := readUint32(r)
	if err != nil {
		return s, err
	}
	nameBytes := make([]byte, nameLen)
	if _, err := io.ReadFull(r, nameBytes); err != nil {
		return s, err
	}
	s.Name = string(nameBytes)

	genCount, err := readUint32(r)
	if err != nil {
		return s, err
	}
	s.Generations = make([]uint32, genCount)
	for i := range s.Generations {
		g, err := readUint32(r)
		if err != nil {
			return s, err
		}
		s.Generations[i] = g
	}

	compCount, err := readUint32(r)
	if err != nil {
		return s, err
	}
	s.Components = make([]ComponentDump, compCount)
	for i := range s.Components {
		id, err := readUint32(r)
		if err != nil {
			return s, err
		}
		dataLen, err := readUint32(r)
		if err != nil {
			return s, err
		}
		data := make([]byte, dataLen)
		if _, err := io.ReadFull(r, data); err != nil {
			return s, err
		}
		s.Components[i] = ComponentDump{ID: ecdb.ComponentID(id), Data: data}
	}
	return s, nil
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func readUint32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}
