package main

import (
	"time"

	"github.com/Noquela/duat-server/internal/constants"
	"github.com/Noquela/duat-server/internal/game"
	"github.com/Noquela/duat-server/internal/logging"
	"github.com/Noquela/duat-server/internal/service"
)

// startStaleLobbyScanner periodically abandons waiting lobbies nobody
// touched within ttl. Running sessions are owned by their runner and are
// never expired here.
func startStaleLobbyScanner(repo interface {
	FindStaleWaitingSessions(time.Time) ([]game.Session, error)
	UpdateSession(*game.Session) error
}, ttl time.Duration) {
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			cutoff := time.Now().Add(-ttl)
			n, err := service.ExpireStaleSessions(repo, cutoff)
			if err != nil {
				logging.Error("stale lobby scanner failed", err, nil)
				continue
			}
			if n > 0 {
				logging.Info("expired stale lobbies", logging.Fields{constants.LogFieldCount: n})
			}
		}
	}()
}
