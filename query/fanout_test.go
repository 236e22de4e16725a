package query

import "testing"

func TestFanoutComposesKeyRemappingWithValueLookup(t *testing.T) {
	nodeToMaterial := FromMap(map[uint32]uint32{1: 10, 2: 20, 3: 10})
	albedo := FromMap(map[uint32]string{10: "red"})

	out := Fanout[uint32, uint32, string](nodeToMaterial, albedo)

	if v, ok := out.Access(1); !ok || v != "red" {
		t.Errorf("node 1 -> material 10 -> red, got %v, %v", v, ok)
	}
	if v, ok := out.Access(3); !ok || v != "red" {
		t.Errorf("node 3 -> material 10 -> red, got %v, %v", v, ok)
	}
	if out.Contains(2) {
		t.Errorf("node 2 points at material 20, which has no albedo entry")
	}
	if out.Contains(99) {
		t.Errorf("node 99 has no remapping entry at all")
	}
}

func TestFanoutChangesOnTargetValueEditFansOutToEveryReferencingKey(t *testing.T) {
	// Two nodes (1, 3) reference material 10; one (2) references 20.
	nodeToMaterialView := map[uint32]uint32{1: 10, 2: 20, 3: 10}
	nodeToMaterial := NewDualQuery(nodeToMaterialView, map[uint32]ValueChange[uint32]{})
	rev := IntoRevRef[uint32, uint32](nodeToMaterial)

	albedoChanges := FromMap(map[uint32]ValueChange[string]{
		10: NewDelta("bright-red", ptr("red")),
	})
	albedoView := FromMap(map[uint32]string{10: "bright-red", 20: "blue"})

	out := FanoutChanges[uint32, uint32, string](
		FromMap(map[uint32]ValueChange[uint32]{}), nodeToMaterial.View(), rev.InverseView(),
		albedoChanges, albedoView,
	)

	if len(out) != 2 {
		t.Fatalf("expected exactly 2 fanned-out changes (nodes 1 and 3), got %d: %+v", len(out), out)
	}
	if c, ok := out[1]; !ok || c.New != "bright-red" {
		t.Errorf("node 1 should fan out to bright-red, got %+v, %v", c, ok)
	}
	if c, ok := out[3]; !ok || c.New != "bright-red" {
		t.Errorf("node 3 should fan out to bright-red, got %+v, %v", c, ok)
	}
	if _, ok := out[2]; ok {
		t.Errorf("node 2 references a different material and should not appear")
	}
}

func TestFanoutChangesOnRemappingEditReEmitsUnderNewKey(t *testing.T) {
	// Node 1 is repointed from material 10 to material 20.
	nodeToMaterialView := map[uint32]uint32{1: 20}
	nodeToMaterialChanges := map[uint32]ValueChange[uint32]{
		1: NewDelta[uint32](20, ptr[uint32](10)),
	}
	nodeToMaterial := NewDualQuery(nodeToMaterialView, nodeToMaterialChanges)
	rev := IntoRevRef[uint32, uint32](nodeToMaterial)

	albedoView := FromMap(map[uint32]string{10: "red", 20: "blue"})

	out := FanoutChanges[uint32, uint32, string](
		nodeToMaterial.Changes(), nodeToMaterial.View(), rev.InverseView(),
		FromMap(map[uint32]ValueChange[string]{}), albedoView,
	)

	if c, ok := out[1]; !ok || c.New != "blue" {
		t.Errorf("node 1 should re-emit under its new target's value, got %+v, %v", c, ok)
	}
}
