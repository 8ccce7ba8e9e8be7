// Package hourglass implements the per-actor regenerating sand pool that
// gates action scheduling: capacity-bounded grains, fractional
// regeneration, and the cast modifiers derived from spending patterns
// (momentum, resonance, divine favor).
package hourglass

import "math"

// Alignment classifies a played card's cosmic leaning for favor drift.
type Alignment string

const (
	AlignmentOrder   Alignment = "order"
	AlignmentChaos   Alignment = "chaos"
	AlignmentBalance Alignment = "balance"
)

const (
	favorMax          = 10
	favorMin          = -10
	maxMomentumStacks = 5
)

// Config carries the tunables for a single pool. Encounter profiles
// override the reference values from DefaultConfig.
type Config struct {
	Capacity           int     `json:"capacity" yaml:"capacity"`
	StartingAmount     int     `json:"starting_amount" yaml:"starting_amount"`
	RegenRate          float64 `json:"regen_rate" yaml:"regen_rate"`
	CapacityCeiling    int     `json:"capacity_ceiling" yaml:"capacity_ceiling"`
	MomentumCap        int     `json:"momentum_cap" yaml:"momentum_cap"`
	ResonanceTolerance int     `json:"resonance_tolerance" yaml:"resonance_tolerance"`
}

// DefaultConfig returns the reference tuning: a six-grain hourglass
// regenerating half a grain per second under a ceiling of eight.
func DefaultConfig() Config {
	return Config{
		Capacity:           6,
		StartingAmount:     6,
		RegenRate:          0.5,
		CapacityCeiling:    8,
		MomentumCap:        3,
		ResonanceTolerance: 1,
	}
}

// Pool tracks one actor's sand. The scheduler is the only writer during
// combat: it spends at cast start and regenerates at the top of each
// tick. Everyone else reads.
type Pool struct {
	capacity int
	current  int
	rate     float64 // base units per second
	frac     float64 // fractional progress toward the next grain

	ceiling      int
	momentumCap  int
	resonanceTol int

	momentumStacks int
	lastCost       int
	hasLastCost    bool

	favor int
}

// NewPool builds a pool from cfg. The starting amount is clamped into
// [0, capacity] and the ceiling is raised to at least the capacity.
func NewPool(cfg Config) *Pool {
	p := &Pool{
		capacity:     cfg.Capacity,
		rate:         cfg.RegenRate,
		ceiling:      cfg.CapacityCeiling,
		momentumCap:  cfg.MomentumCap,
		resonanceTol: cfg.ResonanceTolerance,
	}
	if p.capacity < 1 {
		p.capacity = 1
	}
	if p.ceiling < p.capacity {
		p.ceiling = p.capacity
	}
	if p.momentumCap < 0 {
		p.momentumCap = 0
	}
	if p.resonanceTol < 0 {
		p.resonanceTol = 0
	}
	p.current = clamp(cfg.StartingAmount, 0, p.capacity)
	return p
}

// Amount returns the whole grains currently available.
func (p *Pool) Amount() int { return p.current }

// Capacity returns the current maximum amount.
func (p *Pool) Capacity() int { return p.capacity }

// RegenRate returns the base regeneration rate in units per second.
func (p *Pool) RegenRate() float64 { return p.rate }

// SetRegenRate replaces the base regeneration rate.
func (p *Pool) SetRegenRate(rate float64) { p.rate = rate }

// CanAfford reports whether cost grains are available right now.
func (p *Pool) CanAfford(cost int) bool { return p.current >= cost }

// Spend removes cost grains when affordable; it never partial-spends.
func (p *Pool) Spend(cost int) bool {
	if cost < 0 || cost > p.current {
		return false
	}
	p.current -= cost
	return true
}

// SetAmount forces the amount, clamped into [0, capacity].
func (p *Pool) SetAmount(value int) {
	p.current = clamp(value, 0, p.capacity)
}

// Regenerate advances fractional progress by rate*deltaTime and converts
// whole crossings into grains, capped at capacity. The remainder
// persists across calls, so tick granularity never loses progress.
func (p *Pool) Regenerate(deltaTime float64) {
	if deltaTime <= 0 || p.rate <= 0 {
		return
	}
	p.frac += p.rate * deltaTime
	grains := int(p.frac)
	if grains == 0 {
		return
	}
	p.frac -= float64(grains)
	p.current += grains
	if p.current > p.capacity {
		p.current = p.capacity
	}
}

// IncreaseCapacity raises capacity by amount and grants the same amount
// of sand. It refuses, without mutation, changes that would pass the
// ceiling or shrink the pool.
func (p *Pool) IncreaseCapacity(amount int) bool {
	if amount < 0 {
		return false
	}
	if p.capacity+amount > p.ceiling {
		return false
	}
	p.capacity += amount
	p.current += amount
	return true
}

// TimeUntilNextUnit reports seconds until the next grain arrives, or
// +Inf when the pool is full or regeneration is stalled.
func (p *Pool) TimeUntilNextUnit() float64 {
	if p.current >= p.capacity || p.rate <= 0 {
		return math.Inf(1)
	}
	return (1.0 - p.frac) / p.rate
}

// UpdateMomentum advances the streak bookkeeping after a cast: a cost
// strictly below the previous one extends the streak, anything else
// breaks it.
func (p *Pool) UpdateMomentum(cost int) {
	if p.hasLastCost && cost < p.lastCost {
		p.momentumStacks++
		if p.momentumStacks > maxMomentumStacks {
			p.momentumStacks = maxMomentumStacks
		}
	} else {
		p.momentumStacks = 0
	}
	p.lastCost = cost
	p.hasLastCost = true
}

// MomentumStacks returns the raw streak length.
func (p *Pool) MomentumStacks() int { return p.momentumStacks }

// MomentumReduction returns the streak usable as a cost reducer,
// bounded by the configured cap.
func (p *Pool) MomentumReduction() int {
	if p.momentumStacks > p.momentumCap {
		return p.momentumCap
	}
	return p.momentumStacks
}

// CheckResonance reports whether cost lands within the resonance
// tolerance of the current amount.
func (p *Pool) CheckResonance(cost int) bool {
	diff := cost - p.current
	if diff < 0 {
		diff = -diff
	}
	return diff <= p.resonanceTol
}

// DynamicRate computes the effective regeneration rate for the given
// combat inputs without touching pool state, so every caller sees the
// same number for the same inputs. Low health speeds the glass up, a
// near-full pool slows it down, blessings and favor push it further.
func (p *Pool) DynamicRate(healthRatio float64, blessed bool) float64 {
	rate := p.rate
	switch {
	case healthRatio < 0.3:
		rate *= 1.5
	case healthRatio < 0.6:
		rate *= 1.2
	}
	if p.current >= p.capacity-1 {
		rate *= 0.5
	}
	if blessed {
		rate *= 1.25
	}
	switch {
	case p.favor > 5:
		rate *= 1.3
	case p.favor < -5:
		rate *= 0.7
	}
	return rate
}

// AlignFavor drifts divine favor toward the played card's leaning.
// Balanced cards leave it untouched.
func (p *Pool) AlignFavor(a Alignment) {
	switch a {
	case AlignmentOrder:
		if p.favor < favorMax {
			p.favor++
		}
	case AlignmentChaos:
		if p.favor > favorMin {
			p.favor--
		}
	}
}

// Favor returns the current divine favor score.
func (p *Pool) Favor() int { return p.favor }

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
