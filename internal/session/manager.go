package session

import "sync"

// Manager tracks the live runner for every started session.
type Manager struct {
	mu      sync.Mutex
	runners map[uint]*Runner
}

func NewManager() *Manager {
	return &Manager{runners: make(map[uint]*Runner)}
}

func (m *Manager) Add(sessionID uint, r *Runner) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runners[sessionID] = r
}

func (m *Manager) Get(sessionID uint) (*Runner, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runners[sessionID]
	return r, ok
}

func (m *Manager) Remove(sessionID uint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.runners, sessionID)
}

// Count returns how many sessions are currently live.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.runners)
}
