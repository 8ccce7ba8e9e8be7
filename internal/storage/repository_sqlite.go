package storage

import (
	"time"

	"github.com/Noquela/duat-server/internal/game"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type sqliteRepository struct {
	db *gorm.DB
}

func NewSQLiteRepository(db *gorm.DB) Repository {
	return &sqliteRepository{db: db}
}

func (r *sqliteRepository) CreateSession(s *game.Session) error {
	return r.db.Create(s).Error
}

func (r *sqliteRepository) GetSessionByID(id uint) (*game.Session, error) {
	var s game.Session
	if err := r.db.Preload("Participants").First(&s, id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *sqliteRepository) FindSessionByJoinCode(code string) (*game.Session, error) {
	var s game.Session
	err := r.db.Preload("Participants").Where("join_code = ?", code).First(&s).Error
	return &s, err
}

func (r *sqliteRepository) GetPublicSessions() ([]game.Session, error) {
	var sessions []game.Session
	fifteenMinutesAgo := time.Now().Add(-15 * time.Minute)
	if err := r.db.Preload("Participants").
		Where("private = ? AND status = ? AND created_at > ?", false, string(game.StatusWaiting), fifteenMinutesAgo).
		Order("created_at desc").Find(&sessions).Error; err != nil {
		return nil, err
	}
	// Only return lobbies with at least one participant
	filtered := make([]game.Session, 0, len(sessions))
	for i := range sessions {
		if len(sessions[i].Participants) >= 1 {
			filtered = append(filtered, sessions[i])
		}
	}
	return filtered, nil
}

func (r *sqliteRepository) UpdateSession(s *game.Session) error {
	return r.db.Session(&gorm.Session{FullSaveAssociations: true}).Save(s).Error
}

func (r *sqliteRepository) RemoveParticipantByUUID(sessionID uint, playerUUID string) error {
	tx := r.db.Begin()
	if tx.Error != nil {
		return tx.Error
	}

	var p game.Participant
	if err := tx.Where("session_id = ? AND player_uuid = ?", sessionID, playerUUID).First(&p).Error; err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Delete(&p).Error; err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}

func (r *sqliteRepository) AppendActionRecords(records []game.ActionRecord) error {
	if len(records) == 0 {
		return nil
	}
	// The unique (session_id, action_id) index makes replayed batches
	// harmless: conflicting rows are already in the journal.
	return r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&records).Error
}

func (r *sqliteRepository) GetActionJournal(sessionID uint, limit int) ([]game.ActionRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	var records []game.ActionRecord
	if err := r.db.Where("session_id = ?", sessionID).
		Order("executed_at ASC").
		Order("action_id ASC").
		Limit(limit).
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *sqliteRepository) UpsertProfile(email, uuid, name string) error {
	p := game.PlayerProfile{Email: email, PlayerUUID: uuid, PlayerName: name}
	// Keyed by the unique email column so sign-in refreshes name and UUID
	// without disturbing accumulated stats.
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{"player_uuid", "player_name"}),
	}).Create(&p).Error
}

func (r *sqliteRepository) UpdateStatsOnSessionEnd(s *game.Session) error {
	// Helper to upsert and add deltas
	upsert := func(part game.Participant, victories int) error {
		if part.PlayerEmail == "" {
			return nil
		}
		var ps game.PlayerProfile
		if err := r.db.Where("email = ?", part.PlayerEmail).First(&ps).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				ps = game.PlayerProfile{Email: part.PlayerEmail, PlayerUUID: part.PlayerUUID, PlayerName: part.PlayerName}
			} else {
				return err
			}
		}
		ps.PlayerName = part.PlayerName
		ps.PlayerUUID = part.PlayerUUID
		ps.SessionsPlayed++
		ps.Victories += victories
		if part.Resigned {
			ps.Abandons++
		}
		ps.ActionsExecuted += part.ActionsExecuted
		ps.SandSpent += part.SandSpent
		ps.ResonantCasts += part.ResonantCasts
		return r.db.Save(&ps).Error
	}
	for _, part := range s.Participants {
		victories := 0
		if s.Winner != "" && part.PlayerName == s.Winner {
			victories = 1
		}
		if err := upsert(part, victories); err != nil {
			return err
		}
	}
	return nil
}

func (r *sqliteRepository) GetStatsByEmail(email string) (*game.PlayerProfile, error) {
	var ps game.PlayerProfile
	if err := r.db.Where("email = ?", email).First(&ps).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return &game.PlayerProfile{Email: email}, nil
		}
		return nil, err
	}
	return &ps, nil
}

func (r *sqliteRepository) SaveProfile(p *game.PlayerProfile) error {
	return r.db.Save(p).Error
}

// GetTopPlayers returns top N players ordered by Victories desc, then
// SessionsPlayed desc.
func (r *sqliteRepository) GetTopPlayers(limit int) ([]game.PlayerProfile, error) {
	if limit <= 0 {
		limit = 10
	}
	var profiles []game.PlayerProfile
	if err := r.db.Model(&game.PlayerProfile{}).
		Order("victories DESC").
		Order("sessions_played DESC").
		Limit(limit).
		Find(&profiles).Error; err != nil {
		return nil, err
	}
	return profiles, nil
}

func (r *sqliteRepository) FindStaleWaitingSessions(cutoff time.Time) ([]game.Session, error) {
	var sessions []game.Session
	if err := r.db.Preload("Participants").
		Where("status = ? AND last_activity_at <= ?", string(game.StatusWaiting), cutoff).
		Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}
