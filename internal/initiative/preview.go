package initiative

// ActionPreview is one row of a read-only queue projection.
type ActionPreview struct {
	ID            uint64  `json:"id"`
	Kind          string  `json:"kind"`
	Priority      string  `json:"priority"`
	Cost          int     `json:"cost"`
	CastDuration  float64 `json:"cast_duration"`
	Status        Status  `json:"status"`
	TimeRemaining float64 `json:"time_remaining"`
}

// PreviewState projects an actor's queue without mutating anything; two
// calls with no tick in between return identical results. TimeRemaining
// is the cast time left while casting, the projected wait while sand is
// short, and -1 when regeneration is stalled.
func (s *Scheduler) PreviewState(actorID string) ([]ActionPreview, error) {
	pool, ok := s.pools[actorID]
	if !ok {
		return nil, ErrUnknownActor
	}
	q := s.queues[actorID]
	out := make([]ActionPreview, 0, len(q))
	for _, a := range q {
		p := ActionPreview{
			ID:           a.ID,
			Kind:         a.Kind.Name(),
			Priority:     a.Priority.String(),
			Cost:         a.Cost,
			CastDuration: a.CastDuration,
		}
		switch {
		case a.state == StateCasting && s.castComplete(a):
			p.Status = StatusReady
		case a.state == StateCasting:
			p.Status = StatusCasting
			p.TimeRemaining = a.CastDuration - (s.now - a.castStartedAt)
		case pool.CanAfford(a.Cost):
			p.Status = StatusReadyToCast
		default:
			p.Status = StatusWaitingForSand
			if rate := pool.RegenRate(); rate > 0 {
				p.TimeRemaining = float64(a.Cost-pool.Amount()) / rate
			} else {
				p.TimeRemaining = -1
			}
		}
		out = append(out, p)
	}
	return out, nil
}
