package reactive

import (
	"context"
	"testing"
)

func TestMapUseResultPreservesVariant(t *testing.T) {
	r := ResolveStageReady(3)
	mapped := MapUseResult(r, func(v int) string { return "x" })
	if !mapped.IsResolveStage() {
		t.Errorf("map should preserve the ResolveStageReady variant")
	}
	v, _ := mapped.IfReady()
	if v != "x" {
		t.Errorf("expected mapped value 'x', got %q", v)
	}
}

func TestJoinBothReadyIsSynchronous(t *testing.T) {
	a := ResolveStageReady(2)
	b := ResolveStageReady(3)
	joined := JoinUseResult(a, b, func(x, y int) int { return x + y })
	if !joined.IsResolveStage() {
		t.Fatalf("joining two resolve-ready results should stay resolve-ready")
	}
	v, _ := joined.IfReady()
	if v != 5 {
		t.Errorf("expected 5, got %d", v)
	}
}

func TestJoinWithFutureRunsBothConcurrently(t *testing.T) {
	a := SpawnStageFuture(func(ctx context.Context) (int, error) { return 2, nil })
	b := SpawnStageReady(3)
	joined := JoinUseResult(a, b, func(x, y int) int { return x + y })

	fut, ok := joined.IfSpawnStageFuture()
	if !ok {
		t.Fatalf("expected a join involving a future to itself be a future")
	}
	v, err := fut(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 5 {
		t.Errorf("expected joined value 5, got %d", v)
	}
}

func TestExpectResolveStagePanicsOnWrongStage(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic calling ExpectResolveStage on a spawn-stage result")
		}
	}()
	SpawnStageReady(1).ExpectResolveStage()
}

func TestJoinPanicsOnNotInStage(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic joining a NotInStage source")
		}
	}()
	JoinUseResult(NotInStage[int](), ResolveStageReady(1), func(a, b int) int { return a + b })
}
