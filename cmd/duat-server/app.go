package main

import (
	"github.com/Noquela/duat-server/internal/config"
	"github.com/Noquela/duat-server/internal/logging"
	"github.com/Noquela/duat-server/internal/storage"
)

func loadConfigOrExit(path string) *config.LoadedConfig {
	cfg, err := config.LoadConfig(path)
	if err != nil {
		logging.Fatal("Missing or invalid duat configuration", err, logging.Fields{"config_path": path})
	}
	return cfg
}

func loadEncountersOrExit(dir string, cfg *config.LoadedConfig) *config.EncounterSet {
	set, err := config.LoadEncounters(dir, cfg)
	if err != nil {
		logging.Fatal("Missing or invalid encounter profiles", err, logging.Fields{"encounters_dir": dir})
	}
	return set
}

func createRepositoryOrExit(dbPath string) storage.Repository {
	db, err := storage.OpenAndMigrate(dbPath)
	if err != nil {
		logging.Fatal("Failed to initialize database", err, nil)
	}
	return storage.NewSQLiteRepository(db)
}
