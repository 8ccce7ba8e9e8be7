package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Noquela/duat-server/internal/config"
	"github.com/Noquela/duat-server/internal/hourglass"
	"github.com/Noquela/duat-server/internal/initiative"
)

type fakeResolver struct {
	executed []ExecutedAction
	outcomes []Outcome
}

func (f *fakeResolver) ActionsExecuted(sessionID uint, actions []ExecutedAction) {
	f.executed = append(f.executed, actions...)
}

func (f *fakeResolver) RunFinished(sessionID uint, outcome Outcome) {
	f.outcomes = append(f.outcomes, outcome)
}

func testPool() hourglass.Config {
	return hourglass.Config{
		Capacity:           6,
		StartingAmount:     6,
		RegenRate:          0.5,
		CapacityCeiling:    8,
		MomentumCap:        3,
		ResonanceTolerance: 1,
	}
}

func testEncounter(runDuration float64, enemies ...config.Enemy) config.Encounter {
	return config.Encounter{
		Key:         "test-trial",
		Name:        "Test Trial",
		RunDuration: runDuration,
		Scheduler:   initiative.DefaultConfig(),
		PlayerPool:  testPool(),
		Enemies:     enemies,
	}
}

func newTestRunner(t *testing.T, enc config.Encounter, resolver Resolver, humans ...Member) *Runner {
	t.Helper()
	r, err := NewRunner(7, enc, humans, resolver, 5*time.Millisecond)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	return r
}

func waitDone(t *testing.T, r *Runner) {
	t.Helper()
	select {
	case <-r.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("runner did not finish in time")
	}
}

func TestRunnerStepExecutesQueuedActions(t *testing.T) {
	resolver := &fakeResolver{}
	r := newTestRunner(t, testEncounter(100), resolver, Member{ActorID: "p1", Name: "Alpha"})

	if ok, err := r.sched.Enqueue("p1", initiative.EndTurn{}, 2, initiative.PriorityNormal, 0); err != nil || !ok {
		t.Fatalf("enqueue failed: ok=%v err=%v", ok, err)
	}
	r.step(0.5)
	if len(resolver.executed) != 0 {
		t.Fatalf("expected cast tick to execute nothing")
	}
	r.step(0.5)
	if len(resolver.executed) != 1 {
		t.Fatalf("expected one execution, got %d", len(resolver.executed))
	}
	got := resolver.executed[0]
	if got.ActorID != "p1" || got.Kind != initiative.KindEndTurn || got.Cost != 2 {
		t.Fatalf("unexpected executed view: %+v", got)
	}
	if got.ExecutedAt != 1.0 {
		t.Fatalf("expected execution at clock 1.0, got %v", got.ExecutedAt)
	}
	if r.executedBy["p1"] != 1 {
		t.Fatalf("execution counter not updated: %v", r.executedBy)
	}
}

func TestRunnerScriptedEnemyFires(t *testing.T) {
	resolver := &fakeResolver{}
	enemy := config.Enemy{
		ActorID: "shade",
		Name:    "River Shade",
		Pool:    testPool(),
		Timeline: []config.TimelineEntry{
			{At: 1.0, Kind: initiative.KindPlayCard, CardID: "drown", Cost: 2, Priority: initiative.PriorityNormal},
		},
	}
	r := newTestRunner(t, testEncounter(100, enemy), resolver, Member{ActorID: "p1", Name: "Alpha"})

	for i := 0; i < 8; i++ {
		r.step(0.5)
	}
	count := 0
	for _, ex := range resolver.executed {
		if ex.ActorID == "shade" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected the one-shot scripted card to execute once, got %d", count)
	}
}

func TestRunnerRepeatingScriptKeepsFiring(t *testing.T) {
	resolver := &fakeResolver{}
	enemy := config.Enemy{
		ActorID: "shade",
		Pool:    testPool(),
		Timeline: []config.TimelineEntry{
			{At: 0, Every: 2.0, Kind: initiative.KindEndTurn, Cost: 0, Priority: initiative.PriorityInstant},
		},
	}
	r := newTestRunner(t, testEncounter(100, enemy), resolver, Member{ActorID: "p1", Name: "Alpha"})

	for i := 0; i < 12; i++ {
		r.step(0.5)
	}
	count := 0
	for _, ex := range resolver.executed {
		if ex.ActorID == "shade" {
			count++
		}
	}
	// Fires at 0, 2 and 4 on a six second clock; each needs two ticks to
	// pass through the queue.
	if count != 3 {
		t.Fatalf("expected three scripted executions, got %d", count)
	}
}

func TestRunnerFinishesAtRunDuration(t *testing.T) {
	resolver := &fakeResolver{}
	r := newTestRunner(t, testEncounter(1.0), resolver, Member{ActorID: "p1", Name: "Alpha"})

	if finished := r.step(0.5); finished {
		t.Fatalf("run ended early")
	}
	if finished := r.step(0.5); !finished {
		t.Fatalf("run should end once the clock reaches the duration")
	}
	if len(resolver.outcomes) != 1 {
		t.Fatalf("expected one outcome, got %d", len(resolver.outcomes))
	}
	out := resolver.outcomes[0]
	if out.Reason != ReasonCompleted || out.Clock != 1.0 {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	select {
	case <-r.Done():
	default:
		t.Fatalf("done channel not closed after finish")
	}
}

func TestRunnerWinnerByExecutions(t *testing.T) {
	resolver := &fakeResolver{}
	r := newTestRunner(t, testEncounter(1.0), resolver,
		Member{ActorID: "p1", Name: "Alpha"},
		Member{ActorID: "p2", Name: "Beta"},
	)

	r.sched.Enqueue("p1", initiative.EndTurn{}, 0, initiative.PriorityInstant, 0)
	r.sched.Enqueue("p1", initiative.EndTurn{}, 0, initiative.PriorityInstant, 0)
	r.sched.Enqueue("p2", initiative.EndTurn{}, 0, initiative.PriorityInstant, 0)

	r.step(0.5)
	r.step(0.5)
	if resolver.outcomes[0].Winner != "Alpha" {
		t.Fatalf("expected Alpha to win, got %q", resolver.outcomes[0].Winner)
	}
}

func TestRunnerTieHasNoWinner(t *testing.T) {
	resolver := &fakeResolver{}
	r := newTestRunner(t, testEncounter(1.0), resolver,
		Member{ActorID: "p1", Name: "Alpha"},
		Member{ActorID: "p2", Name: "Beta"},
	)

	r.sched.Enqueue("p1", initiative.EndTurn{}, 0, initiative.PriorityInstant, 0)
	r.sched.Enqueue("p2", initiative.EndTurn{}, 0, initiative.PriorityInstant, 0)

	r.step(0.5)
	r.step(0.5)
	if got := resolver.outcomes[0].Winner; got != "" {
		t.Fatalf("expected no winner on tie, got %q", got)
	}
}

func TestRunnerDuplicateActorRejected(t *testing.T) {
	_, err := NewRunner(1, testEncounter(10), []Member{
		{ActorID: "p1", Name: "Alpha"},
		{ActorID: "p1", Name: "Clone"},
	}, &fakeResolver{}, time.Millisecond)
	if !errors.Is(err, initiative.ErrDuplicateActor) {
		t.Fatalf("expected duplicate actor error, got %v", err)
	}
}

func TestRunnerRunToCompletion(t *testing.T) {
	resolver := &fakeResolver{}
	enemy := config.Enemy{
		ActorID: "shade",
		Pool:    testPool(),
		Timeline: []config.TimelineEntry{
			{At: 0, Every: 2.0, Kind: initiative.KindEndTurn, Cost: 0, Priority: initiative.PriorityInstant},
		},
	}
	r := newTestRunner(t, testEncounter(6.0, enemy), resolver, Member{ActorID: "p1", Name: "Alpha"})

	out := r.RunToCompletion(0.5)
	if out.Reason != ReasonCompleted || out.Clock != 6.0 {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	count := 0
	for _, ex := range resolver.executed {
		if ex.ActorID == "shade" {
			count++
		}
	}
	if count != 3 {
		t.Fatalf("expected three scripted executions over the run, got %d", count)
	}
	if _, err := r.State(); !errors.Is(err, ErrRunnerStopped) {
		t.Fatalf("expected command API to report stopped, got %v", err)
	}
}

func TestRunnerStopReportsAbandoned(t *testing.T) {
	resolver := &fakeResolver{}
	r := newTestRunner(t, testEncounter(1000), resolver, Member{ActorID: "p1", Name: "Alpha"})

	go r.Run(context.Background())
	r.Stop()
	waitDone(t, r)

	if len(resolver.outcomes) != 1 || resolver.outcomes[0].Reason != ReasonAbandoned {
		t.Fatalf("expected abandoned outcome, got %+v", resolver.outcomes)
	}
}

func TestRunnerCommandPath(t *testing.T) {
	resolver := &fakeResolver{}
	r := newTestRunner(t, testEncounter(0.05), resolver, Member{ActorID: "p1", Name: "Alpha"})

	go r.Run(context.Background())

	ok, err := r.Enqueue("p1", initiative.EndTurn{}, 0, initiative.PriorityInstant, 0)
	if err != nil || !ok {
		t.Fatalf("enqueue through command path failed: ok=%v err=%v", ok, err)
	}
	waitDone(t, r)

	if len(resolver.executed) == 0 {
		t.Fatalf("expected the enqueued action to execute before the run ended")
	}
	if _, err := r.Enqueue("p1", initiative.EndTurn{}, 0, initiative.PriorityInstant, 0); !errors.Is(err, ErrRunnerStopped) {
		t.Fatalf("expected ErrRunnerStopped after finish, got %v", err)
	}
	if _, err := r.State(); !errors.Is(err, ErrRunnerStopped) {
		t.Fatalf("expected ErrRunnerStopped from State after finish, got %v", err)
	}
}

func TestRunnerStateSnapshot(t *testing.T) {
	resolver := &fakeResolver{}
	enemy := config.Enemy{ActorID: "shade", Name: "River Shade", Pool: testPool()}
	r := newTestRunner(t, testEncounter(1000, enemy), resolver, Member{ActorID: "p1", Name: "Alpha"})

	ctx, cancel := context.WithCancel(context.Background())
	go r.Run(ctx)

	snap, err := r.State()
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if snap.SessionID != 7 {
		t.Fatalf("unexpected session id %d", snap.SessionID)
	}
	if len(snap.Actors) != 2 {
		t.Fatalf("expected two actors in snapshot, got %d", len(snap.Actors))
	}
	if snap.Window.Open {
		t.Fatalf("window should start closed")
	}
	if snap.Actors[0].Pool.Amount != 6 {
		t.Fatalf("expected starting pool amount, got %+v", snap.Actors[0].Pool)
	}

	cancel()
	waitDone(t, r)
}

func TestRunnerSubscribeStream(t *testing.T) {
	resolver := &fakeResolver{}
	r := newTestRunner(t, testEncounter(0.05), resolver, Member{ActorID: "p1", Name: "Alpha"})

	events, cancelSub := r.Subscribe()
	defer cancelSub()

	go r.Run(context.Background())
	waitDone(t, r)

	ticks, finished := 0, 0
	for ev := range events {
		switch ev.Type {
		case EventTick:
			ticks++
		case EventFinished:
			finished++
			if ev.Outcome == nil || ev.Outcome.Reason != ReasonCompleted {
				t.Fatalf("finished event missing outcome: %+v", ev)
			}
		}
	}
	if ticks == 0 {
		t.Fatalf("expected tick events on the stream")
	}
	if finished != 1 {
		t.Fatalf("expected exactly one finished event, got %d", finished)
	}
}

func TestRunnerSubscribeAfterFinish(t *testing.T) {
	resolver := &fakeResolver{}
	r := newTestRunner(t, testEncounter(0.01), resolver, Member{ActorID: "p1", Name: "Alpha"})

	go r.Run(context.Background())
	waitDone(t, r)

	events, cancelSub := r.Subscribe()
	defer cancelSub()
	if _, open := <-events; open {
		t.Fatalf("expected a closed channel when subscribing after finish")
	}
}

func TestScriptCursorCadence(t *testing.T) {
	entries := []config.TimelineEntry{
		{At: 1.0, Every: 2.0, Kind: initiative.KindEndTurn},
		{At: 0, Kind: initiative.KindEndTurn},
	}
	c := newScriptCursor("shade", entries)

	if got := c.due(0); len(got) != 1 || got[0].At != 0 {
		t.Fatalf("expected only the one-shot entry at clock 0, got %v", got)
	}
	if got := c.due(0.5); len(got) != 0 {
		t.Fatalf("one-shot entry fired twice: %v", got)
	}
	if got := c.due(1.0); len(got) != 1 || got[0].Every != 2.0 {
		t.Fatalf("repeating entry should fire at 1.0, got %v", got)
	}
	if got := c.due(2.9); len(got) != 0 {
		t.Fatalf("repeating entry fired early: %v", got)
	}
	if got := c.due(3.0); len(got) != 1 {
		t.Fatalf("repeating entry should fire at 3.0, got %v", got)
	}
	// A large clock jump yields a single catch-up firing, not a burst.
	if got := c.due(9.5); len(got) != 1 {
		t.Fatalf("expected one catch-up firing, got %v", got)
	}
	if got := c.due(9.6); len(got) != 0 {
		t.Fatalf("cadence did not advance past the jump: %v", got)
	}
}
