package api

import (
	"github.com/Noquela/duat-server/internal/service"
	"github.com/Noquela/duat-server/internal/storage"
)

// SessionHandler groups all session-related HTTP handlers.
type SessionHandler struct {
	repo    storage.Repository
	runtime service.Runtime
}

// NewSessionHandler creates a new SessionHandler with the given repository
// and the shared session runtime (runner manager, encounter catalog and
// journal resolver).
func NewSessionHandler(repo storage.Repository, runtime service.Runtime) *SessionHandler {
	return &SessionHandler{repo: repo, runtime: runtime}
}
