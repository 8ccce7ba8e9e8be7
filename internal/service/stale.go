package service

import (
	"time"

	"github.com/Noquela/duat-server/internal/constants"
	"github.com/Noquela/duat-server/internal/game"
	"github.com/Noquela/duat-server/internal/logging"
)

// ExpireStaleSessions abandons waiting lobbies whose last activity is at or
// before cutoff and returns how many were expired. Running sessions are
// never touched; their runner owns their lifecycle.
func ExpireStaleSessions(repo interface {
	FindStaleWaitingSessions(cutoff time.Time) ([]game.Session, error)
	UpdateSession(s *game.Session) error
}, cutoff time.Time) (int, error) {
	sessions, err := repo.FindStaleWaitingSessions(cutoff)
	if err != nil {
		return 0, err
	}
	expired := 0
	for i := range sessions {
		s := &sessions[i]
		if game.SessionStatus(s.Status) != game.StatusWaiting {
			continue
		}
		s.Status = string(game.StatusAbandoned)
		s.Message = "The lobby expired due to inactivity."
		if err := repo.UpdateSession(s); err != nil {
			logging.Error("failed to expire stale session", err, logging.Fields{
				constants.LogFieldSessionID: s.ID,
			})
			continue
		}
		expired++
	}
	return expired, nil
}
