package initiative

import (
	"errors"
	"math"
	"sort"

	"github.com/Noquela/duat-server/internal/hourglass"
)

// Sentinel errors for caller mistakes. Expected game outcomes (an
// unaffordable enqueue, a closed window) are reported through boolean
// returns instead.
var (
	ErrUnknownActor   = errors.New("unknown actor")
	ErrDuplicateActor = errors.New("duplicate actor")
	ErrNilKind        = errors.New("nil action kind")
)

// Config carries the scheduler-level tunables; per-actor pool tuning
// rides in through AddActor.
type Config struct {
	WindowDuration float64 `json:"window_duration" yaml:"window_duration"`
	EnqueueHorizon float64 `json:"enqueue_horizon" yaml:"enqueue_horizon"`
}

// DefaultConfig returns the reference tuning: a 1.5s reaction window
// and a 10s affordability horizon.
func DefaultConfig() Config {
	return Config{WindowDuration: 1.5, EnqueueHorizon: 10.0}
}

// Scheduler owns the per-actor queues and pools and drives the action
// state machine. It is not safe for concurrent use; each combat session
// wraps one scheduler in its own goroutine.
type Scheduler struct {
	cfg    Config
	pools  map[string]*hourglass.Pool
	queues map[string][]*PendingAction
	actors []string // registration order fixes the walk order
	window ReactionWindow
	now    float64
	nextID uint64
}

// NewScheduler builds an empty scheduler with the given tuning,
// falling back to the reference values for non-positive knobs.
func NewScheduler(cfg Config) *Scheduler {
	def := DefaultConfig()
	if cfg.WindowDuration <= 0 {
		cfg.WindowDuration = def.WindowDuration
	}
	if cfg.EnqueueHorizon <= 0 {
		cfg.EnqueueHorizon = def.EnqueueHorizon
	}
	return &Scheduler{
		cfg:    cfg,
		pools:  make(map[string]*hourglass.Pool),
		queues: make(map[string][]*PendingAction),
	}
}

// AddActor registers an actor with a fresh pool built from poolCfg.
func (s *Scheduler) AddActor(actorID string, poolCfg hourglass.Config) error {
	if _, ok := s.pools[actorID]; ok {
		return ErrDuplicateActor
	}
	s.pools[actorID] = hourglass.NewPool(poolCfg)
	s.queues[actorID] = nil
	s.actors = append(s.actors, actorID)
	return nil
}

// Actors returns the actor ids in walk order.
func (s *Scheduler) Actors() []string {
	out := make([]string, len(s.actors))
	copy(out, s.actors)
	return out
}

// Now returns the scheduler's virtual clock in seconds.
func (s *Scheduler) Now() float64 { return s.now }

// Enqueue admits an intent into the actor's queue when the cost is
// affordable now or within the configured horizon. It reports
// admission; a false return leaves no trace in the scheduler.
func (s *Scheduler) Enqueue(actorID string, kind Kind, cost int, priority Priority, castDuration float64) (bool, error) {
	pool, ok := s.pools[actorID]
	if !ok {
		return false, ErrUnknownActor
	}
	if kind == nil {
		return false, ErrNilKind
	}
	if cost < 0 || castDuration < 0 {
		return false, nil
	}
	if !s.affordableWithinHorizon(pool, cost) {
		return false, nil
	}
	s.nextID++
	a := &PendingAction{
		ID:           s.nextID,
		ActorID:      actorID,
		Kind:         kind,
		Priority:     priority,
		Cost:         cost,
		CastDuration: castDuration,
		QueuedAt:     s.now,
	}
	q := append(s.queues[actorID], a)
	sort.SliceStable(q, func(i, j int) bool {
		if q[i].Priority != q[j].Priority {
			return q[i].Priority < q[j].Priority
		}
		if q[i].QueuedAt != q[j].QueuedAt {
			return q[i].QueuedAt < q[j].QueuedAt
		}
		return q[i].ID < q[j].ID
	})
	s.queues[actorID] = q
	return true, nil
}

// EnqueueReaction admits an intent only while the reaction window is
// open, forcing Instant priority so it can cut in ahead of everything
// the trigger left behind.
func (s *Scheduler) EnqueueReaction(actorID string, kind Kind, cost int, castDuration float64) (bool, error) {
	if _, ok := s.pools[actorID]; !ok {
		return false, ErrUnknownActor
	}
	if !s.window.IsOpen() {
		return false, nil
	}
	return s.Enqueue(actorID, kind, cost, PriorityInstant, castDuration)
}

// A cost above the pool's capacity can never be afforded, whatever the
// horizon says.
func (s *Scheduler) affordableWithinHorizon(pool *hourglass.Pool, cost int) bool {
	if cost > pool.Capacity() {
		return false
	}
	if pool.CanAfford(cost) {
		return true
	}
	rate := pool.RegenRate()
	if rate <= 0 {
		return false
	}
	return float64(cost-pool.Amount())/rate <= s.cfg.EnqueueHorizon
}

// DequeueAll drops every queued intent for the actor and returns how
// many were removed. Sand already spent by a casting action stays
// spent.
func (s *Scheduler) DequeueAll(actorID string) (int, error) {
	if _, ok := s.pools[actorID]; !ok {
		return 0, ErrUnknownActor
	}
	n := len(s.queues[actorID])
	s.queues[actorID] = nil
	return n, nil
}

// IncreaseCapacity grows an actor's pool within its ceiling and grants
// the same amount of sand.
func (s *Scheduler) IncreaseCapacity(actorID string, amount int) (bool, error) {
	pool, ok := s.pools[actorID]
	if !ok {
		return false, ErrUnknownActor
	}
	return pool.IncreaseCapacity(amount), nil
}

// SetRegenRate replaces an actor's base regeneration rate.
func (s *Scheduler) SetRegenRate(actorID string, rate float64) error {
	pool, ok := s.pools[actorID]
	if !ok {
		return ErrUnknownActor
	}
	pool.SetRegenRate(rate)
	return nil
}

// PoolSnapshot is a read-only view of one actor's pool for gauges.
// TimeUntilNextUnit is -1 when the pool is full or regeneration is
// stalled, keeping the value JSON-friendly.
type PoolSnapshot struct {
	ActorID           string  `json:"actor_id"`
	Amount            int     `json:"amount"`
	Capacity          int     `json:"capacity"`
	RegenRate         float64 `json:"regen_rate"`
	TimeUntilNextUnit float64 `json:"time_until_next_unit"`
	MomentumStacks    int     `json:"momentum_stacks"`
	MomentumReduction int     `json:"momentum_reduction"`
	Favor             int     `json:"favor"`
}

// PoolState snapshots an actor's pool.
func (s *Scheduler) PoolState(actorID string) (PoolSnapshot, error) {
	pool, ok := s.pools[actorID]
	if !ok {
		return PoolSnapshot{}, ErrUnknownActor
	}
	next := pool.TimeUntilNextUnit()
	if math.IsInf(next, 1) {
		next = -1
	}
	return PoolSnapshot{
		ActorID:           actorID,
		Amount:            pool.Amount(),
		Capacity:          pool.Capacity(),
		RegenRate:         pool.RegenRate(),
		TimeUntilNextUnit: next,
		MomentumStacks:    pool.MomentumStacks(),
		MomentumReduction: pool.MomentumReduction(),
		Favor:             pool.Favor(),
	}, nil
}

// WindowState is a read-only view of the reaction window.
type WindowState struct {
	Open      bool    `json:"open"`
	Remaining float64 `json:"remaining"`
	TriggerID uint64  `json:"trigger_id,omitempty"`
}

// WindowState reports the reaction window for projections.
func (s *Scheduler) WindowState() WindowState {
	ws := WindowState{Open: s.window.IsOpen(), Remaining: s.window.Remaining()}
	if t := s.window.Triggering(); t != nil {
		ws.TriggerID = t.ID
	}
	return ws
}
