package game

import (
	"time"

	"gorm.io/gorm"
)

type Session struct {
	gorm.Model
	Name     string `json:"name" gorm:"size:32"`
	Private  bool   `json:"private"`
	JoinCode string `json:"join_code" gorm:"unique"`
	// EncounterKey selects the encounter profile (loaded from the encounters
	// directory) that drives this session's scheduler and scripted enemies.
	EncounterKey string        `json:"encounter_key"`
	Participants []Participant `json:"participants"`
	Status       string        `json:"status"`
	Winner       string        `json:"winner"`
	Message      string        `json:"message"`
	// LastActivityAt is bumped on join/start and lets the background scanner
	// abandon lobbies nobody touched for too long.
	LastActivityAt time.Time `json:"last_activity_at"`
	StatsCounted   bool      `json:"-"`
}

type Participant struct {
	gorm.Model
	SessionID   uint   `json:"-"`
	PlayerUUID  string `json:"player_uuid"`
	PlayerName  string `json:"player_name"`
	PlayerEmail string `json:"player_email"`
	// ActorID is the identity this participant's pool and queue are registered
	// under in the session scheduler. It equals PlayerUUID for human players.
	ActorID string `json:"actor_id"`
	Host    bool   `json:"host"`
	// Aggregates accumulated while the session runs; folded into the global
	// player profile once the session ends.
	SandSpent       int  `json:"sand_spent"`
	ActionsExecuted int  `json:"actions_executed"`
	ResonantCasts   int  `json:"resonant_casts"`
	Resigned        bool `json:"resigned"`
}

// Store per-session participants in a dedicated table for clarity
func (Participant) TableName() string { return "session_participants" }

// ActionRecord is one executed action appended to a session's journal. Times
// are virtual seconds since the session clock started, not wall clock.
type ActionRecord struct {
	gorm.Model
	SessionID      uint    `json:"-" gorm:"index"`
	ActionID       uint64  `json:"action_id"`
	ActorID        string  `json:"actor_id"`
	Kind           string  `json:"kind"`
	Priority       string  `json:"priority"`
	Cost           int     `json:"cost"`
	Resonant       bool    `json:"resonant"`
	MomentumStacks int     `json:"momentum_stacks"`
	QueuedAt       float64 `json:"queued_at"`
	ExecutedAt     float64 `json:"executed_at"`
}

func (ActionRecord) TableName() string { return "action_journal" }

// PlayerProfile stores unique player identity and aggregate stats.
type PlayerProfile struct {
	gorm.Model
	PlayerUUID      string `gorm:"index"`
	PlayerName      string
	Email           string `gorm:"uniqueIndex"`
	SessionsPlayed  int
	Victories       int
	Abandons        int
	ActionsExecuted int
	SandSpent       int
	ResonantCasts   int
}

func (PlayerProfile) TableName() string { return "player_profiles" }
