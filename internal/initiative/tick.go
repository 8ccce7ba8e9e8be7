package initiative

import (
	"github.com/Noquela/duat-server/internal/constants"
	"github.com/Noquela/duat-server/internal/hourglass"
	"github.com/Noquela/duat-server/internal/logging"
)

// Tick advances the virtual clock by deltaTime seconds: pools
// regenerate first, the reaction window counts down, then every queue
// is walked front to back with each action moved at most one
// state-machine step. Executed actions are removed from their queues
// and returned in walk order; the return value is the caller's only
// notification channel.
func (s *Scheduler) Tick(deltaTime float64) []*PendingAction {
	if deltaTime < 0 {
		deltaTime = 0
	}
	s.now += deltaTime
	for _, actorID := range s.actors {
		s.pools[actorID].Regenerate(deltaTime)
	}
	s.window.Tick(deltaTime)

	var executed []*PendingAction
	for _, actorID := range s.actors {
		executed = s.walkQueue(actorID, executed)
	}
	return executed
}

// walkQueue advances one actor's queue. Removal on execution shifts the
// successor into the current slot, so the index only advances when the
// current entry stays put.
func (s *Scheduler) walkQueue(actorID string, executed []*PendingAction) []*PendingAction {
	pool := s.pools[actorID]
	q := s.queues[actorID]
	i := 0
	for i < len(q) {
		a := q[i]
		switch {
		case a.state == StateQueued && s.canStartCasting(a, pool):
			s.startCasting(a, pool)
			i++
		case a.state == StateCasting && s.castComplete(a):
			q = append(q[:i], q[i+1:]...)
			s.execute(a, pool)
			executed = append(executed, a)
		default:
			i++
		}
	}
	s.queues[actorID] = q
	return executed
}

func (s *Scheduler) canStartCasting(a *PendingAction, pool *hourglass.Pool) bool {
	if !pool.CanAfford(a.Cost) {
		return false
	}
	return a.Priority == PriorityInstant || !s.window.IsOpen()
}

// startCasting spends the cost and stamps the cast. A spend failing
// right after the affordability check is logged and leaves the action
// Queued for the next tick.
func (s *Scheduler) startCasting(a *PendingAction, pool *hourglass.Pool) {
	resonant := pool.CheckResonance(a.Cost)
	if !pool.Spend(a.Cost) {
		logging.Warn("spend failed after affordability check", logging.Fields{
			constants.LogFieldActorID:  a.ActorID,
			constants.LogFieldActionID: a.ID,
			constants.LogFieldCost:     a.Cost,
		})
		return
	}
	pool.UpdateMomentum(a.Cost)
	a.resonant = resonant
	a.momentumStacks = pool.MomentumStacks()
	a.state = StateCasting
	a.castStartedAt = s.now
}

func (s *Scheduler) castComplete(a *PendingAction) bool {
	if a.Priority == PriorityInstant || a.CastDuration <= 0 {
		return true
	}
	return s.now-a.castStartedAt >= a.CastDuration
}

// execute finalizes an action. A non-Instant card play arms the
// reaction window, and the pool drifts toward the card's alignment.
func (s *Scheduler) execute(a *PendingAction, pool *hourglass.Pool) {
	a.state = StateExecuted
	a.executedAt = s.now
	if card, ok := a.Kind.(PlayCard); ok {
		if a.Priority != PriorityInstant {
			s.window.Open(a, s.cfg.WindowDuration)
		}
		if card.Alignment != "" {
			pool.AlignFavor(card.Alignment)
		}
	}
}
