package initiative

import (
	"errors"
	"reflect"
	"testing"

	"github.com/Noquela/duat-server/internal/hourglass"
)

func poolCfg(capacity, starting int, rate float64) hourglass.Config {
	cfg := hourglass.DefaultConfig()
	cfg.Capacity = capacity
	cfg.StartingAmount = starting
	cfg.RegenRate = rate
	return cfg
}

func newTestScheduler(t *testing.T, pool hourglass.Config, actors ...string) *Scheduler {
	t.Helper()
	s := NewScheduler(DefaultConfig())
	for _, id := range actors {
		if err := s.AddActor(id, pool); err != nil {
			t.Fatalf("add actor %s: %v", id, err)
		}
	}
	return s
}

func mustEnqueue(t *testing.T, s *Scheduler, actorID string, kind Kind, cost int, priority Priority, castDuration float64) {
	t.Helper()
	accepted, err := s.Enqueue(actorID, kind, cost, priority, castDuration)
	if err != nil {
		t.Fatalf("enqueue for %s: %v", actorID, err)
	}
	if !accepted {
		t.Fatalf("expected enqueue for %s to be accepted", actorID)
	}
}

func TestUnknownActorIsAnError(t *testing.T) {
	s := NewScheduler(DefaultConfig())
	if accepted, err := s.Enqueue("ghost", PlayCard{CardID: "x"}, 1, PriorityNormal, 0); accepted || !errors.Is(err, ErrUnknownActor) {
		t.Fatalf("expected unknown-actor error, got accepted=%v err=%v", accepted, err)
	}
	if _, err := s.DequeueAll("ghost"); !errors.Is(err, ErrUnknownActor) {
		t.Fatalf("expected unknown-actor error from DequeueAll, got %v", err)
	}
	if _, err := s.PreviewState("ghost"); !errors.Is(err, ErrUnknownActor) {
		t.Fatalf("expected unknown-actor error from PreviewState, got %v", err)
	}
	if _, err := s.PoolState("ghost"); !errors.Is(err, ErrUnknownActor) {
		t.Fatalf("expected unknown-actor error from PoolState, got %v", err)
	}
}

func TestEnqueueHorizon(t *testing.T) {
	s := newTestScheduler(t, poolCfg(6, 0, 0.5), "p")
	if accepted, _ := s.Enqueue("p", PlayCard{CardID: "a"}, 4, PriorityNormal, 0); !accepted {
		t.Fatalf("cost 4 at 0.5 u/s is 8s away and must be admitted")
	}
	if accepted, _ := s.Enqueue("p", PlayCard{CardID: "b"}, 6, PriorityNormal, 0); accepted {
		t.Fatalf("cost 6 at 0.5 u/s is 12s away and must be rejected")
	}

	stalled := newTestScheduler(t, poolCfg(6, 3, 0), "p")
	if accepted, _ := stalled.Enqueue("p", PlayCard{CardID: "c"}, 3, PriorityNormal, 0); !accepted {
		t.Fatalf("an affordable cost must be admitted even with stalled regeneration")
	}
	if accepted, _ := stalled.Enqueue("p", PlayCard{CardID: "d"}, 4, PriorityNormal, 0); accepted {
		t.Fatalf("an unaffordable cost with stalled regeneration must be rejected")
	}
}

func TestEnqueueRejectsCostAboveCapacity(t *testing.T) {
	s := newTestScheduler(t, poolCfg(6, 6, 5.0), "p")
	accepted, err := s.Enqueue("p", PlayCard{CardID: "big"}, 10, PriorityNormal, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if accepted {
		t.Fatalf("a cost above capacity can never be afforded and must be rejected")
	}
}

func TestCastLifecycle(t *testing.T) {
	s := newTestScheduler(t, poolCfg(6, 3, 0.5), "p")
	mustEnqueue(t, s, "p", PlayCard{CardID: "bolt"}, 2, PriorityNormal, 1.0)

	if out := s.Tick(0); len(out) != 0 {
		t.Fatalf("nothing should execute on the admission tick, got %d", len(out))
	}
	snap, _ := s.PoolState("p")
	if snap.Amount != 1 {
		t.Fatalf("cost must be spent at cast start, expected 1 grain, got %d", snap.Amount)
	}
	rows, _ := s.PreviewState("p")
	if len(rows) != 1 || rows[0].Status != StatusCasting {
		t.Fatalf("expected one casting entry, got %+v", rows)
	}

	if out := s.Tick(0.5); len(out) != 0 {
		t.Fatalf("cast must not complete early, got %d executions", len(out))
	}
	out := s.Tick(0.5)
	if len(out) != 1 {
		t.Fatalf("expected execution after the full cast time, got %d", len(out))
	}
	a := out[0]
	if a.State() != StateExecuted || a.ExecutedAt() != 1.0 || a.CastStartedAt() != 0 {
		t.Fatalf("unexpected execution stamps: state=%v executedAt=%v castStartedAt=%v", a.State(), a.ExecutedAt(), a.CastStartedAt())
	}
	snap, _ = s.PoolState("p")
	if snap.Amount != 1 {
		t.Fatalf("cost must be deducted exactly once, expected 1 grain, got %d", snap.Amount)
	}
	if rows, _ := s.PreviewState("p"); len(rows) != 0 {
		t.Fatalf("executed action must leave the queue, got %+v", rows)
	}
}

func TestRegenerationPrecedesQueueWalk(t *testing.T) {
	s := newTestScheduler(t, poolCfg(6, 1, 1.0), "p")
	mustEnqueue(t, s, "p", EndTurn{}, 2, PriorityNormal, 0)
	s.Tick(1.0)
	snap, _ := s.PoolState("p")
	if snap.Amount != 0 {
		t.Fatalf("the grain regenerated this tick must be spendable in the same tick, got %d", snap.Amount)
	}
}

func TestInstantPromotedBeforeNormal(t *testing.T) {
	s := newTestScheduler(t, poolCfg(6, 2, 0), "p")
	mustEnqueue(t, s, "p", PlayCard{CardID: "slow"}, 2, PriorityNormal, 0)
	mustEnqueue(t, s, "p", PlayCard{CardID: "quick"}, 2, PriorityInstant, 0)
	s.Tick(0)
	rows, _ := s.PreviewState("p")
	if len(rows) != 2 {
		t.Fatalf("expected both entries queued, got %d", len(rows))
	}
	if rows[0].Priority != "instant" || rows[0].Status != StatusReady {
		t.Fatalf("the instant action must be served first, got %+v", rows[0])
	}
	if rows[1].Status != StatusWaitingForSand {
		t.Fatalf("the normal action must wait for sand, got %+v", rows[1])
	}
}

func TestEqualPriorityFIFO(t *testing.T) {
	s := newTestScheduler(t, poolCfg(6, 0, 1.0), "p")
	mustEnqueue(t, s, "p", EndTurn{}, 2, PriorityNormal, 0)
	s.Tick(0.1)
	mustEnqueue(t, s, "p", EndTurn{}, 2, PriorityNormal, 0)
	s.Tick(1.9)
	rows, _ := s.PreviewState("p")
	if len(rows) != 2 {
		t.Fatalf("expected two entries, got %d", len(rows))
	}
	if rows[0].ID != 1 || rows[0].Status != StatusReady {
		t.Fatalf("the earlier-queued action must cast first, got %+v", rows[0])
	}
	if rows[1].ID != 2 || rows[1].Status != StatusWaitingForSand {
		t.Fatalf("the later-queued action must keep waiting, got %+v", rows[1])
	}
}

func TestUnaffordableActionNeverDropped(t *testing.T) {
	s := newTestScheduler(t, poolCfg(6, 0, 0.5), "p")
	mustEnqueue(t, s, "p", PlayCard{CardID: "stall"}, 4, PriorityNormal, 0)
	if err := s.SetRegenRate("p", 0); err != nil {
		t.Fatalf("set rate: %v", err)
	}
	for i := 0; i < 20; i++ {
		if out := s.Tick(1.0); len(out) != 0 {
			t.Fatalf("nothing should execute while the cost is unaffordable")
		}
	}
	rows, _ := s.PreviewState("p")
	if len(rows) != 1 || rows[0].Status != StatusWaitingForSand {
		t.Fatalf("the starved action must stay queued, got %+v", rows)
	}
	if rows[0].TimeRemaining != -1 {
		t.Fatalf("stalled regeneration must report no estimate, got %v", rows[0].TimeRemaining)
	}
}

func TestWindowOpensOnCardExecution(t *testing.T) {
	s := newTestScheduler(t, poolCfg(6, 6, 0), "p")
	mustEnqueue(t, s, "p", PlayCard{CardID: "strike"}, 2, PriorityNormal, 0)
	s.Tick(0)
	out := s.Tick(0)
	if len(out) != 1 {
		t.Fatalf("expected the card to execute, got %d", len(out))
	}
	ws := s.WindowState()
	if !ws.Open || ws.Remaining != 1.5 || ws.TriggerID != out[0].ID {
		t.Fatalf("expected a fresh 1.5s window held by the card, got %+v", ws)
	}
	s.Tick(0.75)
	if ws := s.WindowState(); !ws.Open || ws.Remaining != 0.75 {
		t.Fatalf("expected 0.75s left, got %+v", ws)
	}
	s.Tick(0.75)
	if ws := s.WindowState(); ws.Open {
		t.Fatalf("window must close once the duration elapses, got %+v", ws)
	}
	s.Tick(1.0)
	if ws := s.WindowState(); ws.Open {
		t.Fatalf("window must stay closed absent a new trigger, got %+v", ws)
	}
}

func TestWindowNotOpenedByInstantOrNonCard(t *testing.T) {
	kinds := []struct {
		name     string
		kind     Kind
		priority Priority
	}{
		{name: "instant card", kind: PlayCard{CardID: "flash"}, priority: PriorityInstant},
		{name: "end turn", kind: EndTurn{}, priority: PriorityNormal},
		{name: "ability", kind: Ability{AbilityKey: "howl"}, priority: PriorityNormal},
	}
	for _, tc := range kinds {
		s := newTestScheduler(t, poolCfg(6, 6, 0), "p")
		mustEnqueue(t, s, "p", tc.kind, 0, tc.priority, 0)
		s.Tick(0)
		if out := s.Tick(0); len(out) != 1 {
			t.Fatalf("%s: expected execution, got %d", tc.name, len(out))
		}
		if ws := s.WindowState(); ws.Open {
			t.Fatalf("%s: execution must not open a reaction window", tc.name)
		}
	}
}

func TestWindowNotResetBySecondExecution(t *testing.T) {
	s := newTestScheduler(t, poolCfg(6, 6, 0), "a", "b")
	mustEnqueue(t, s, "a", PlayCard{CardID: "first"}, 0, PriorityNormal, 1.0)
	mustEnqueue(t, s, "b", PlayCard{CardID: "second"}, 0, PriorityNormal, 2.0)
	s.Tick(0)
	out := s.Tick(1.0)
	if len(out) != 1 || out[0].ActorID != "a" {
		t.Fatalf("expected only the first card to execute, got %+v", out)
	}
	firstID := out[0].ID
	out = s.Tick(1.0)
	if len(out) != 1 || out[0].ActorID != "b" {
		t.Fatalf("expected the second card to execute, got %+v", out)
	}
	ws := s.WindowState()
	if !ws.Open || ws.Remaining != 0.5 || ws.TriggerID != firstID {
		t.Fatalf("the second execution must not touch the open window, got %+v", ws)
	}
}

func TestWindowBlocksNonInstantCastStart(t *testing.T) {
	s := newTestScheduler(t, poolCfg(6, 6, 0), "a", "b")
	mustEnqueue(t, s, "a", PlayCard{CardID: "opener"}, 0, PriorityNormal, 0)
	s.Tick(0)
	s.Tick(0)
	if ws := s.WindowState(); !ws.Open {
		t.Fatalf("expected an open window, got %+v", ws)
	}

	mustEnqueue(t, s, "b", EndTurn{}, 0, PriorityNormal, 0)
	mustEnqueue(t, s, "b", PlayCard{CardID: "counter"}, 0, PriorityInstant, 0)
	s.Tick(0)
	rows, _ := s.PreviewState("b")
	if rows[0].Priority != "instant" || rows[0].Status != StatusReady {
		t.Fatalf("instant actions must cast through the window, got %+v", rows[0])
	}
	if rows[1].Status != StatusReadyToCast {
		t.Fatalf("normal actions must hold at queued while the window is open, got %+v", rows[1])
	}

	s.Tick(2.0)
	rows, _ = s.PreviewState("b")
	if len(rows) != 1 || rows[0].Kind != KindEndTurn || rows[0].Status != StatusReady {
		t.Fatalf("once the window closes the held action must cast, got %+v", rows)
	}
}

func TestReactionEnqueueRequiresOpenWindow(t *testing.T) {
	s := newTestScheduler(t, poolCfg(6, 6, 0), "a", "b")
	if accepted, err := s.EnqueueReaction("b", Reaction{CardID: "counter"}, 1, 0); accepted || err != nil {
		t.Fatalf("reactions must be refused while no window is open, got accepted=%v err=%v", accepted, err)
	}
	if _, err := s.EnqueueReaction("ghost", Reaction{CardID: "counter"}, 1, 0); !errors.Is(err, ErrUnknownActor) {
		t.Fatalf("expected unknown-actor error, got %v", err)
	}

	mustEnqueue(t, s, "a", PlayCard{CardID: "opener"}, 0, PriorityNormal, 0)
	s.Tick(0)
	s.Tick(0)
	accepted, err := s.EnqueueReaction("b", Reaction{CardID: "counter"}, 1, 0)
	if err != nil || !accepted {
		t.Fatalf("expected the reaction to be admitted, got accepted=%v err=%v", accepted, err)
	}
	rows, _ := s.PreviewState("b")
	if rows[0].Kind != KindReaction || rows[0].Priority != "instant" {
		t.Fatalf("reactions must ride at instant priority, got %+v", rows[0])
	}
	s.Tick(0)
	rows, _ = s.PreviewState("b")
	if rows[0].Status != StatusReady {
		t.Fatalf("the reaction must cast while the window is open, got %+v", rows[0])
	}
}

func TestDequeueAllKeepsSpentSand(t *testing.T) {
	s := newTestScheduler(t, poolCfg(6, 6, 0), "p")
	mustEnqueue(t, s, "p", PlayCard{CardID: "ritual"}, 2, PriorityNormal, 5.0)
	mustEnqueue(t, s, "p", PlayCard{CardID: "followup"}, 5, PriorityNormal, 0)
	s.Tick(0)
	snap, _ := s.PoolState("p")
	if snap.Amount != 4 {
		t.Fatalf("expected the first cast to spend 2, got %d", snap.Amount)
	}
	removed, err := s.DequeueAll("p")
	if err != nil || removed != 2 {
		t.Fatalf("expected 2 removals, got removed=%d err=%v", removed, err)
	}
	if out := s.Tick(5.0); len(out) != 0 {
		t.Fatalf("cleared actions must never execute, got %d", len(out))
	}
	snap, _ = s.PoolState("p")
	if snap.Amount != 4 {
		t.Fatalf("clearing the queue must not refund spent sand, got %d", snap.Amount)
	}
}

func TestPreviewIdempotent(t *testing.T) {
	s := newTestScheduler(t, poolCfg(6, 3, 0.5), "p")
	mustEnqueue(t, s, "p", PlayCard{CardID: "bolt"}, 2, PriorityNormal, 3.0)
	mustEnqueue(t, s, "p", PlayCard{CardID: "nova"}, 6, PriorityLow, 1.0)
	s.Tick(0.5)
	first, err := s.PreviewState("p")
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	second, _ := s.PreviewState("p")
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("consecutive previews with no tick in between must match:\n%+v\n%+v", first, second)
	}
}

func TestExecutionRemovalDoesNotSkipSuccessor(t *testing.T) {
	s := newTestScheduler(t, poolCfg(6, 6, 0), "p")
	mustEnqueue(t, s, "p", EndTurn{}, 0, PriorityNormal, 0)
	mustEnqueue(t, s, "p", EndTurn{}, 0, PriorityNormal, 0)
	s.Tick(0)
	out := s.Tick(0)
	if len(out) != 2 {
		t.Fatalf("removing the executed head must not skip its successor, got %d executions", len(out))
	}
	if out[0].ID != 1 || out[1].ID != 2 {
		t.Fatalf("executions must come back in queue order, got %d then %d", out[0].ID, out[1].ID)
	}
}

func TestIdentitiesAreMonotonic(t *testing.T) {
	s := newTestScheduler(t, poolCfg(6, 6, 0), "p")
	for i := 0; i < 3; i++ {
		mustEnqueue(t, s, "p", EndTurn{}, 0, PriorityNormal, 0)
	}
	rows, _ := s.PreviewState("p")
	for i, row := range rows {
		if row.ID != uint64(i+1) {
			t.Fatalf("expected sequential ids, got %+v", rows)
		}
	}
	if _, err := s.DequeueAll("p"); err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	mustEnqueue(t, s, "p", EndTurn{}, 0, PriorityNormal, 0)
	rows, _ = s.PreviewState("p")
	if rows[0].ID != 4 {
		t.Fatalf("identities must never be reused, got %d", rows[0].ID)
	}
}

func TestPoolBoundsHoldUnderLoad(t *testing.T) {
	s := newTestScheduler(t, poolCfg(6, 0, 1.3), "p")
	for i := 0; i < 40; i++ {
		rows, _ := s.PreviewState("p")
		if len(rows) == 0 {
			mustEnqueue(t, s, "p", EndTurn{}, 3, PriorityNormal, 0.5)
		}
		s.Tick(0.7)
		snap, _ := s.PoolState("p")
		if snap.Amount < 0 || snap.Amount > snap.Capacity {
			t.Fatalf("pool left its bounds at tick %d: %+v", i, snap)
		}
	}
}

func TestCastStampsResonanceAndMomentum(t *testing.T) {
	s := newTestScheduler(t, poolCfg(8, 8, 0), "p")
	mustEnqueue(t, s, "p", EndTurn{}, 5, PriorityNormal, 0)
	mustEnqueue(t, s, "p", EndTurn{}, 3, PriorityNormal, 0)
	s.Tick(0)
	out := s.Tick(0)
	if len(out) != 2 {
		t.Fatalf("expected both executions, got %d", len(out))
	}
	if out[0].Resonant() || out[0].MomentumStacks() != 0 {
		t.Fatalf("first cast against a full glass must not resonate or stack, got %+v", out[0])
	}
	if !out[1].Resonant() {
		t.Fatalf("a cost matching the remaining sand must resonate")
	}
	if out[1].MomentumStacks() != 1 {
		t.Fatalf("a cheaper follow-up must extend the streak, got %d", out[1].MomentumStacks())
	}
}

func TestCardAlignmentDriftsFavor(t *testing.T) {
	s := newTestScheduler(t, poolCfg(6, 6, 0), "p")
	mustEnqueue(t, s, "p", PlayCard{CardID: "hex", Alignment: hourglass.AlignmentChaos}, 0, PriorityNormal, 0)
	s.Tick(0)
	s.Tick(0)
	snap, _ := s.PoolState("p")
	if snap.Favor != -1 {
		t.Fatalf("a chaos-aligned card must pull favor down, got %d", snap.Favor)
	}
}

func TestPoolSnapshotEstimates(t *testing.T) {
	s := newTestScheduler(t, poolCfg(6, 6, 0.5), "p")
	snap, _ := s.PoolState("p")
	if snap.TimeUntilNextUnit != -1 {
		t.Fatalf("a full pool must report no next-grain estimate, got %v", snap.TimeUntilNextUnit)
	}
	low := newTestScheduler(t, poolCfg(6, 2, 0.5), "p")
	snap, _ = low.PoolState("p")
	if snap.TimeUntilNextUnit != 2.0 {
		t.Fatalf("expected 2s to the next grain, got %v", snap.TimeUntilNextUnit)
	}
}

func TestSchedulerIncreaseCapacity(t *testing.T) {
	s := newTestScheduler(t, poolCfg(6, 2, 0.5), "p")
	ok, err := s.IncreaseCapacity("p", 2)
	if err != nil || !ok {
		t.Fatalf("expected growth within the ceiling, got ok=%v err=%v", ok, err)
	}
	snap, _ := s.PoolState("p")
	if snap.Capacity != 8 || snap.Amount != 4 {
		t.Fatalf("expected capacity 8 and amount 4, got %+v", snap)
	}
	ok, err = s.IncreaseCapacity("p", 1)
	if err != nil || ok {
		t.Fatalf("expected growth past the ceiling to be refused, got ok=%v err=%v", ok, err)
	}
	if _, err := s.IncreaseCapacity("ghost", 1); !errors.Is(err, ErrUnknownActor) {
		t.Fatalf("expected unknown-actor error, got %v", err)
	}
}
