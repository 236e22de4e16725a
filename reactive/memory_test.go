package reactive

import "testing"

func TestSlotPersistsAcrossFrames(t *testing.T) {
	m := NewFunctionMemory()

	run := func() int {
		m.Begin()
		defer m.End()
		count := Slot(m, func() int { return 0 }, nil)
		*count++
		return *count
	}

	if v := run(); v != 1 {
		t.Fatalf("expected 1 on first frame, got %d", v)
	}
	if v := run(); v != 2 {
		t.Fatalf("expected state to persist to 2 on second frame, got %d", v)
	}
}

func TestSlotDestroysUnvisitedTail(t *testing.T) {
	m := NewFunctionMemory()
	destroyed := false

	m.Begin()
	Slot(m, func() int { return 1 }, nil)
	Slot(m, func() int { return 2 }, func(int) { destroyed = true })
	m.End()

	m.Begin()
	Slot(m, func() int { return 1 }, nil) // second hook call omitted this frame
	m.End()

	if !destroyed {
		t.Errorf("expected the no-longer-visited cell's destructor to run")
	}
}

func TestReentryPanics(t *testing.T) {
	m := NewFunctionMemory()
	m.Begin()
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on hook re-entry")
		}
	}()
	m.Begin()
}

func TestKeyedScopeIsolatesSlotsPerKey(t *testing.T) {
	m := NewFunctionMemory()

	run := func() (a, b int) {
		m.Begin()
		defer m.End()
		m.KeyedScope("a", func(sub *FunctionMemory) {
			c := Slot(sub, func() int { return 0 }, nil)
			*c++
			a = *c
		})
		m.KeyedScope("b", func(sub *FunctionMemory) {
			c := Slot(sub, func() int { return 100 }, nil)
			*c++
			b = *c
		})
		return
	}

	a1, b1 := run()
	if a1 != 1 || b1 != 101 {
		t.Fatalf("expected independent per-key initial state, got a=%d b=%d", a1, b1)
	}
	a2, b2 := run()
	if a2 != 2 || b2 != 102 {
		t.Fatalf("expected independent per-key persistence, got a=%d b=%d", a2, b2)
	}
}
