package game

// SessionStatus represents a session's lifecycle state. Using constants
// avoids typos and keeps references consistent.
type SessionStatus string

const (
	// StatusWaiting means the lobby exists but the host has not started it.
	StatusWaiting SessionStatus = "waiting"
	StatusRunning SessionStatus = "running"
	// StatusFinished marks a run that ended normally (victory or wipe).
	StatusFinished SessionStatus = "finished"
	// StatusAbandoned marks a lobby expired by the background scanner or a
	// run every participant left.
	StatusAbandoned SessionStatus = "abandoned"
)
