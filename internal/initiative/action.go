// Package initiative implements the hour-glass action scheduler: per-actor
// ordered queues of pending actions gated by sand pools, advanced one
// state-machine step per virtual-time tick, with a shared reaction window
// for priority interrupts.
package initiative

import (
	"fmt"

	"github.com/Noquela/duat-server/internal/hourglass"
)

// Priority orders simultaneously eligible actions; lower values are
// served first.
type Priority int

const (
	PriorityInstant Priority = iota
	PriorityHigh
	PriorityNormal
	PriorityLow
)

func (p Priority) String() string {
	switch p {
	case PriorityInstant:
		return "instant"
	case PriorityHigh:
		return "high"
	case PriorityNormal:
		return "normal"
	case PriorityLow:
		return "low"
	}
	return "unknown"
}

// ParsePriority maps the wire name of a priority class to its value.
func ParsePriority(s string) (Priority, error) {
	switch s {
	case "instant":
		return PriorityInstant, nil
	case "high":
		return PriorityHigh, nil
	case "normal":
		return PriorityNormal, nil
	case "low":
		return PriorityLow, nil
	}
	return 0, fmt.Errorf("unknown priority %q", s)
}

// Kind names used for journaling and wire payloads.
const (
	KindPlayCard = "play_card"
	KindEndTurn  = "end_turn"
	KindReaction = "reaction"
	KindAbility  = "ability"
)

// Kind is the closed set of things an actor can queue. Each variant
// carries only the payload its execution needs.
type Kind interface {
	Name() string
	isKind()
}

// PlayCard commits a card against an optional target. Alignment feeds
// divine favor drift when the card resolves.
type PlayCard struct {
	CardID    string
	TargetID  string
	Alignment hourglass.Alignment
}

// EndTurn yields the remainder of the actor's initiative.
type EndTurn struct{}

// Reaction answers the action that opened the current reaction window.
type Reaction struct {
	CardID   string
	TargetID string
}

// Ability triggers an innate ability rather than a card.
type Ability struct {
	AbilityKey string
	TargetID   string
}

func (PlayCard) Name() string { return KindPlayCard }
func (PlayCard) isKind()      {}

func (EndTurn) Name() string { return KindEndTurn }
func (EndTurn) isKind()      {}

func (Reaction) Name() string { return KindReaction }
func (Reaction) isKind()      {}

func (Ability) Name() string { return KindAbility }
func (Ability) isKind()      {}

// State is a pending action's position in its lifecycle.
type State int

const (
	StateQueued State = iota
	StateCasting
	StateExecuted
)

// Status labels a queue entry for read-only projections.
type Status string

const (
	StatusWaitingForSand Status = "waiting_for_sand"
	StatusReadyToCast    Status = "ready_to_cast"
	StatusCasting        Status = "casting"
	StatusReady          Status = "ready"
)

// PendingAction is one queued intent. Identity is a per-scheduler
// sequence number, so ordering stays deterministic under any clock.
type PendingAction struct {
	ID           uint64
	ActorID      string
	Kind         Kind
	Priority     Priority
	Cost         int
	CastDuration float64
	QueuedAt     float64

	state          State
	castStartedAt  float64
	executedAt     float64
	resonant       bool
	momentumStacks int
}

// State reports where the action sits in its lifecycle.
func (a *PendingAction) State() State { return a.state }

// CastStartedAt returns the virtual timestamp of the cost spend. It is
// meaningful only once the action has left Queued.
func (a *PendingAction) CastStartedAt() float64 { return a.castStartedAt }

// ExecutedAt returns the virtual timestamp of execution.
func (a *PendingAction) ExecutedAt() float64 { return a.executedAt }

// Resonant reports whether the cost matched the pool at cast start.
func (a *PendingAction) Resonant() bool { return a.resonant }

// MomentumStacks returns the streak length recorded at cast start.
func (a *PendingAction) MomentumStacks() int { return a.momentumStacks }
