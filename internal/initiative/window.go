package initiative

// ReactionWindow is the shared interrupt gate: while open, only
// Instant-priority actions may begin casting. The first qualifying
// execution owns the window; later ones neither reset nor extend it.
type ReactionWindow struct {
	triggering *PendingAction
	remaining  float64
}

// Open arms the window for duration seconds. It is a no-op while a
// window is already open and for non-positive durations.
func (w *ReactionWindow) Open(triggering *PendingAction, duration float64) {
	if w.IsOpen() || duration <= 0 {
		return
	}
	w.triggering = triggering
	w.remaining = duration
}

// Tick counts the window down and closes it at zero.
func (w *ReactionWindow) Tick(deltaTime float64) {
	if !w.IsOpen() || deltaTime <= 0 {
		return
	}
	w.remaining -= deltaTime
	if w.remaining <= 0 {
		w.remaining = 0
		w.triggering = nil
	}
}

// IsOpen reports whether the window is currently armed.
func (w *ReactionWindow) IsOpen() bool { return w.remaining > 0 }

// Remaining returns the seconds left, zero when closed.
func (w *ReactionWindow) Remaining() float64 { return w.remaining }

// Triggering returns the action that opened the window, nil when closed.
func (w *ReactionWindow) Triggering() *PendingAction { return w.triggering }
