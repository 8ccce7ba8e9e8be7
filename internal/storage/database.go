package storage

import (
	"github.com/Noquela/duat-server/internal/game"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func OpenAndMigrate(dataSourceName string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dataSourceName), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	err = db.AutoMigrate(&game.Session{}, &game.Participant{}, &game.ActionRecord{}, &game.PlayerProfile{})
	if err != nil {
		return nil, err
	}

	// Enforce one journal row per executed action. The runner flushes
	// batches and relies on ON CONFLICT DO NOTHING against this index.
	if execErr := db.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_action_journal_session_action ON action_journal(session_id, action_id);").Error; execErr != nil {
		return nil, execErr
	}
	return db, nil
}
