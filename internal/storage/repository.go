package storage

import (
	"time"

	"github.com/Noquela/duat-server/internal/game"
)

type Repository interface {
	CreateSession(s *game.Session) error
	GetSessionByID(id uint) (*game.Session, error)
	FindSessionByJoinCode(code string) (*game.Session, error)
	// GetPublicSessions returns recent, joinable public lobbies.
	GetPublicSessions() ([]game.Session, error)
	UpdateSession(s *game.Session) error
	RemoveParticipantByUUID(sessionID uint, playerUUID string) error

	// AppendActionRecords writes executed actions to the session journal.
	// Records already present (same session and action id) are skipped, so
	// the runner may flush batches without tracking what was persisted.
	AppendActionRecords(records []game.ActionRecord) error
	GetActionJournal(sessionID uint, limit int) ([]game.ActionRecord, error)

	UpsertProfile(email, uuid, name string) error
	// UpdateStatsOnSessionEnd folds each participant's session aggregates
	// into the global player profiles.
	UpdateStatsOnSessionEnd(s *game.Session) error
	GetStatsByEmail(email string) (*game.PlayerProfile, error)
	SaveProfile(p *game.PlayerProfile) error
	// Leaderboard
	GetTopPlayers(limit int) ([]game.PlayerProfile, error)

	// FindStaleWaitingSessions returns lobbies still waiting whose last
	// activity is at or before the provided cutoff. The caller decides how
	// to expire them.
	FindStaleWaitingSessions(cutoff time.Time) ([]game.Session, error)
}
