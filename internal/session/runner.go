// Package session hosts the live runtime of a started session: one
// goroutine per run that owns the initiative scheduler, advances its
// virtual clock on a wall ticker, feeds scripted enemies, and fans
// events out to stream subscribers.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Noquela/duat-server/internal/config"
	"github.com/Noquela/duat-server/internal/constants"
	"github.com/Noquela/duat-server/internal/initiative"
	"github.com/Noquela/duat-server/internal/logging"
)

// ErrRunnerStopped is returned for calls against a session whose run loop
// already exited.
var ErrRunnerStopped = errors.New("session runner stopped")

// Reasons reported in a run's outcome.
const (
	ReasonCompleted = "completed"
	ReasonAbandoned = "abandoned"
)

const subscriberBuffer = 32

// Member is one actor registered on the session scheduler.
type Member struct {
	ActorID  string `json:"actor_id"`
	Name     string `json:"name"`
	Scripted bool   `json:"scripted"`
}

// ExecutedAction is the JSON view of an executed scheduler action, shared
// by the journal resolver and the event stream.
type ExecutedAction struct {
	ID             uint64  `json:"id"`
	ActorID        string  `json:"actor_id"`
	Kind           string  `json:"kind"`
	Priority       string  `json:"priority"`
	Cost           int     `json:"cost"`
	Resonant       bool    `json:"resonant"`
	MomentumStacks int     `json:"momentum_stacks"`
	QueuedAt       float64 `json:"queued_at"`
	ExecutedAt     float64 `json:"executed_at"`
}

// Outcome summarizes a finished run.
type Outcome struct {
	Reason string  `json:"reason"`
	Winner string  `json:"winner"`
	Clock  float64 `json:"clock"`
}

// Resolver consumes what the run loop produces. Both callbacks run on the
// loop goroutine, so implementations must not call back into the runner.
type Resolver interface {
	ActionsExecuted(sessionID uint, actions []ExecutedAction)
	RunFinished(sessionID uint, outcome Outcome)
}

// Event types fanned out to stream subscribers.
const (
	EventTick     = "tick"
	EventFinished = "finished"
)

type Event struct {
	Type     string                 `json:"type"`
	Now      float64                `json:"now"`
	Window   initiative.WindowState `json:"window"`
	Actors   []ActorState           `json:"actors,omitempty"`
	Executed []ExecutedAction       `json:"executed,omitempty"`
	Outcome  *Outcome               `json:"outcome,omitempty"`
}

// ActorState pairs a member with its live pool and queue view.
type ActorState struct {
	Member Member                     `json:"member"`
	Pool   initiative.PoolSnapshot    `json:"pool"`
	Queue  []initiative.ActionPreview `json:"queue"`
}

// StateSnapshot is the full session view served to clients on demand.
type StateSnapshot struct {
	SessionID uint                   `json:"session_id"`
	Now       float64                `json:"now"`
	Window    initiative.WindowState `json:"window"`
	Actors    []ActorState           `json:"actors"`
}

// Runner owns one started session. The scheduler is touched only from the
// run loop; external calls are funneled through the command inbox.
type Runner struct {
	sessionID   uint
	encounter   string
	runDuration float64
	interval    time.Duration
	sched       *initiative.Scheduler
	members     []Member
	scripts     []*scriptCursor
	resolver    Resolver

	commands chan func()
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	outcome  Outcome

	executedBy map[string]int

	subMu       sync.Mutex
	subscribers map[chan Event]struct{}
	subsClosed  bool
}

// NewRunner assembles the scheduler for an encounter: one pool per human
// participant plus every scripted enemy the profile declares. The resolver
// must be non-nil.
func NewRunner(sessionID uint, enc config.Encounter, humans []Member, resolver Resolver, interval time.Duration) (*Runner, error) {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	r := &Runner{
		sessionID:   sessionID,
		encounter:   enc.Key,
		runDuration: enc.RunDuration,
		interval:    interval,
		sched:       initiative.NewScheduler(enc.Scheduler),
		resolver:    resolver,
		commands:    make(chan func(), subscriberBuffer),
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
		executedBy:  make(map[string]int),
		subscribers: make(map[chan Event]struct{}),
	}
	for _, m := range humans {
		if err := r.sched.AddActor(m.ActorID, enc.PlayerPool); err != nil {
			return nil, err
		}
		m.Scripted = false
		r.members = append(r.members, m)
	}
	for _, e := range enc.Enemies {
		if err := r.sched.AddActor(e.ActorID, e.Pool); err != nil {
			return nil, err
		}
		r.members = append(r.members, Member{ActorID: e.ActorID, Name: e.Name, Scripted: true})
		if len(e.Timeline) > 0 {
			r.scripts = append(r.scripts, newScriptCursor(e.ActorID, e.Timeline))
		}
	}
	return r, nil
}

// Run drives the session until the encounter clock runs out, Stop is
// called, or ctx is canceled. It must be called exactly once.
func (r *Runner) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	dt := r.interval.Seconds()

	logging.Info("session runner started", logging.Fields{
		constants.LogFieldSessionID: r.sessionID,
		constants.LogFieldEncounter: r.encounter,
	})
	for {
		select {
		case <-ctx.Done():
			r.finish(ReasonAbandoned)
			return
		case <-r.stop:
			r.finish(ReasonAbandoned)
			return
		case cmd := <-r.commands:
			cmd()
		case <-ticker.C:
			if r.step(dt) {
				return
			}
		}
	}
}

// RunToCompletion drives the session clock synchronously with a fixed
// virtual step and no wall-clock pacing. It serves offline simulation and
// replaces Run; the command API reports the runner stopped once it
// returns.
func (r *Runner) RunToCompletion(dt float64) Outcome {
	if dt <= 0 {
		dt = r.interval.Seconds()
	}
	for !r.step(dt) {
	}
	return r.outcome
}

// Stop asks the run loop to exit. The final resolver callbacks still run.
func (r *Runner) Stop() { r.stopOnce.Do(func() { close(r.stop) }) }

// Done is closed once the run loop exited and the outcome was resolved.
func (r *Runner) Done() <-chan struct{} { return r.done }

// Members returns the registered actors. The slice is fixed at build time.
func (r *Runner) Members() []Member {
	out := make([]Member, len(r.members))
	copy(out, r.members)
	return out
}

// step advances the virtual clock by dt and reports whether the run ended.
func (r *Runner) step(dt float64) bool {
	r.pumpScripts()
	executed := r.sched.Tick(dt)

	var views []ExecutedAction
	if len(executed) > 0 {
		views = make([]ExecutedAction, 0, len(executed))
		for _, a := range executed {
			views = append(views, executedView(a))
			r.executedBy[a.ActorID]++
		}
		r.resolver.ActionsExecuted(r.sessionID, views)
	}
	r.broadcast(Event{
		Type:     EventTick,
		Now:      r.sched.Now(),
		Window:   r.sched.WindowState(),
		Actors:   r.actorStates(),
		Executed: views,
	})

	if r.sched.Now() >= r.runDuration {
		r.finish(ReasonCompleted)
		return true
	}
	return false
}

func (r *Runner) pumpScripts() {
	now := r.sched.Now()
	for _, cur := range r.scripts {
		for _, entry := range cur.due(now) {
			kind := kindFromEntry(entry)
			ok, err := r.sched.Enqueue(cur.actorID, kind, entry.Cost, entry.Priority, entry.CastDuration)
			if err != nil || !ok {
				logging.Warn("scripted action not admitted", logging.Fields{
					constants.LogFieldSessionID: r.sessionID,
					constants.LogFieldActorID:   cur.actorID,
					constants.LogFieldKind:      kind.Name(),
					constants.LogFieldCost:      entry.Cost,
				})
			}
		}
	}
}

func (r *Runner) finish(reason string) {
	outcome := Outcome{Reason: reason, Winner: r.winner(), Clock: r.sched.Now()}
	r.outcome = outcome
	r.resolver.RunFinished(r.sessionID, outcome)
	r.broadcast(Event{Type: EventFinished, Now: r.sched.Now(), Window: r.sched.WindowState(), Outcome: &outcome})
	close(r.done)
	r.closeSubscribers()
	logging.Info("session runner finished", logging.Fields{
		constants.LogFieldSessionID: r.sessionID,
		constants.LogFieldReason:    reason,
	})
}

// winner returns the display name of the human actor with the most
// executed actions, or empty on a tie or when nothing ran.
func (r *Runner) winner() string {
	best := ""
	bestCount := 0
	tied := false
	for _, m := range r.members {
		if m.Scripted {
			continue
		}
		c := r.executedBy[m.ActorID]
		switch {
		case c > bestCount:
			best, bestCount, tied = m.Name, c, false
		case c == bestCount && c > 0:
			tied = true
		}
	}
	if tied || bestCount == 0 {
		return ""
	}
	return best
}

func (r *Runner) actorStates() []ActorState {
	out := make([]ActorState, 0, len(r.members))
	for _, m := range r.members {
		pool, err := r.sched.PoolState(m.ActorID)
		if err != nil {
			continue
		}
		queue, err := r.sched.PreviewState(m.ActorID)
		if err != nil {
			continue
		}
		out = append(out, ActorState{Member: m, Pool: pool, Queue: queue})
	}
	return out
}

func executedView(a *initiative.PendingAction) ExecutedAction {
	return ExecutedAction{
		ID:             a.ID,
		ActorID:        a.ActorID,
		Kind:           a.Kind.Name(),
		Priority:       a.Priority.String(),
		Cost:           a.Cost,
		Resonant:       a.Resonant(),
		MomentumStacks: a.MomentumStacks(),
		QueuedAt:       a.QueuedAt,
		ExecutedAt:     a.ExecutedAt(),
	}
}

func kindFromEntry(entry config.TimelineEntry) initiative.Kind {
	switch entry.Kind {
	case initiative.KindAbility:
		return initiative.Ability{AbilityKey: entry.AbilityKey, TargetID: entry.TargetID}
	case initiative.KindEndTurn:
		return initiative.EndTurn{}
	default:
		return initiative.PlayCard{CardID: entry.CardID, TargetID: entry.TargetID, Alignment: entry.Alignment}
	}
}

// --- Command plumbing ---

// do runs fn on the loop goroutine and waits for it.
func (r *Runner) do(fn func()) error {
	ran := make(chan struct{})
	wrapped := func() {
		fn()
		close(ran)
	}
	select {
	case r.commands <- wrapped:
	case <-r.done:
		return ErrRunnerStopped
	}
	select {
	case <-ran:
		return nil
	case <-r.done:
		return ErrRunnerStopped
	}
}

// Enqueue submits an action for actorID through the admission gate.
func (r *Runner) Enqueue(actorID string, kind initiative.Kind, cost int, priority initiative.Priority, castDuration float64) (bool, error) {
	var admitted bool
	var err error
	if doErr := r.do(func() {
		admitted, err = r.sched.Enqueue(actorID, kind, cost, priority, castDuration)
	}); doErr != nil {
		return false, doErr
	}
	return admitted, err
}

// EnqueueReaction submits a reaction; it lands only while the reaction
// window is open.
func (r *Runner) EnqueueReaction(actorID string, kind initiative.Kind, cost int, castDuration float64) (bool, error) {
	var admitted bool
	var err error
	if doErr := r.do(func() {
		admitted, err = r.sched.EnqueueReaction(actorID, kind, cost, castDuration)
	}); doErr != nil {
		return false, doErr
	}
	return admitted, err
}

// DequeueAll clears actorID's queue and returns how many actions were
// removed. Sand already spent stays spent.
func (r *Runner) DequeueAll(actorID string) (int, error) {
	var removed int
	var err error
	if doErr := r.do(func() {
		removed, err = r.sched.DequeueAll(actorID)
	}); doErr != nil {
		return 0, doErr
	}
	return removed, err
}

// State captures a full snapshot of the running session.
func (r *Runner) State() (StateSnapshot, error) {
	var snap StateSnapshot
	if err := r.do(func() {
		snap = StateSnapshot{
			SessionID: r.sessionID,
			Now:       r.sched.Now(),
			Window:    r.sched.WindowState(),
			Actors:    r.actorStates(),
		}
	}); err != nil {
		return StateSnapshot{}, err
	}
	return snap, nil
}

// --- Subscriptions ---

// Subscribe registers a stream consumer. Events are dropped rather than
// blocking the run loop when the consumer falls behind. The returned
// cancel is safe to call after the runner finished.
func (r *Runner) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)
	r.subMu.Lock()
	defer r.subMu.Unlock()
	if r.subsClosed {
		close(ch)
		return ch, func() {}
	}
	r.subscribers[ch] = struct{}{}
	cancel := func() {
		r.subMu.Lock()
		defer r.subMu.Unlock()
		if _, ok := r.subscribers[ch]; ok {
			delete(r.subscribers, ch)
			close(ch)
		}
	}
	return ch, cancel
}

func (r *Runner) broadcast(ev Event) {
	r.subMu.Lock()
	defer r.subMu.Unlock()
	for ch := range r.subscribers {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (r *Runner) closeSubscribers() {
	r.subMu.Lock()
	defer r.subMu.Unlock()
	r.subsClosed = true
	for ch := range r.subscribers {
		close(ch)
		delete(r.subscribers, ch)
	}
}
