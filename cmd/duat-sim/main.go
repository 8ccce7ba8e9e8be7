package main

// duat-sim replays an encounter profile offline: the scripted enemies run
// against the scheduler with no human participants and the executed-action
// journal is printed as JSON. It exists to validate encounter timelines
// before shipping them to the server.

import (
	"encoding/json"
	"flag"
	"os"
	"time"

	"github.com/Noquela/duat-server/internal/config"
	"github.com/Noquela/duat-server/internal/hourglass"
	"github.com/Noquela/duat-server/internal/initiative"
	"github.com/Noquela/duat-server/internal/logging"
	"github.com/Noquela/duat-server/internal/session"
)

type collector struct {
	executed []session.ExecutedAction
}

func (c *collector) ActionsExecuted(sessionID uint, actions []session.ExecutedAction) {
	c.executed = append(c.executed, actions...)
}

func (c *collector) RunFinished(sessionID uint, outcome session.Outcome) {}

type report struct {
	Encounter string                   `json:"encounter"`
	Duration  float64                  `json:"duration"`
	Outcome   session.Outcome          `json:"outcome"`
	Executed  []session.ExecutedAction `json:"executed"`
	ByActor   map[string]int           `json:"executed_by_actor"`
}

func main() {
	configPath := flag.String("config", "", "server config file; reference tuning when empty")
	encountersDir := flag.String("encounters", "encounters", "directory of encounter profiles")
	encounterKey := flag.String("encounter", "", "profile key to replay; catalog default when empty")
	dt := flag.Float64("dt", 0.1, "virtual seconds advanced per step")
	flag.Parse()

	if *dt <= 0 {
		logging.Fatal("dt must be positive", nil, nil)
	}

	cfg := &config.LoadedConfig{
		ServerAddress: ":8080",
		Scheduler:     initiative.DefaultConfig(),
		PlayerPool:    hourglass.DefaultConfig(),
		TickInterval:  100 * time.Millisecond,
		WaitingTTL:    10 * time.Minute,
	}
	if *configPath != "" {
		loaded, err := config.LoadConfig(*configPath)
		if err != nil {
			logging.Fatal("Missing or invalid duat configuration", err, logging.Fields{"config_path": *configPath})
		}
		cfg = loaded
	}

	encounters, err := config.LoadEncounters(*encountersDir, cfg)
	if err != nil {
		logging.Fatal("Missing or invalid encounter profiles", err, logging.Fields{"encounters_dir": *encountersDir})
	}
	key := *encounterKey
	if key == "" {
		key = encounters.Default().Key
	}
	enc, ok := encounters.Get(key)
	if !ok {
		logging.Fatal("Unknown encounter profile", nil, logging.Fields{"encounter": key, "available": encounters.Keys()})
	}

	col := &collector{}
	runner, err := session.NewRunner(0, enc, nil, col, cfg.TickInterval)
	if err != nil {
		logging.Fatal("Failed to build session runtime", err, logging.Fields{"encounter": key})
	}
	outcome := runner.RunToCompletion(*dt)

	byActor := make(map[string]int)
	for _, ex := range col.executed {
		byActor[ex.ActorID]++
	}
	rep := report{
		Encounter: enc.Key,
		Duration:  enc.RunDuration,
		Outcome:   outcome,
		Executed:  col.executed,
		ByActor:   byActor,
	}
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(rep); err != nil {
		logging.Fatal("Failed to encode report", err, nil)
	}
}
