package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Noquela/duat-server/internal/hourglass"
	"github.com/Noquela/duat-server/internal/initiative"
	"github.com/Noquela/duat-server/internal/keys"
)

// TimelineEntry is one scripted action an encounter enemy enqueues at a
// fixed point on the session clock. A positive Every repeats the entry at
// that cadence after the first firing.
type TimelineEntry struct {
	At           float64
	Every        float64
	Kind         string
	CardID       string
	AbilityKey   string
	TargetID     string
	Cost         int
	Priority     initiative.Priority
	CastDuration float64
	Alignment    hourglass.Alignment
}

// Enemy is a scripted opponent registered on the session scheduler beside
// the human participants.
type Enemy struct {
	ActorID  string
	Name     string
	Pool     hourglass.Config
	Timeline []TimelineEntry
}

// Encounter is one fully merged profile: scheduler tuning, the pool handed
// to each human participant, and the scripted enemy cast.
type Encounter struct {
	Key         string
	Name        string
	Description string
	// RunDuration is the trial length in virtual seconds; the session
	// finishes once the clock passes it.
	RunDuration float64
	Scheduler   initiative.Config
	PlayerPool  hourglass.Config
	Enemies     []Enemy
}

type rawTimelineEntry struct {
	At           float64 `yaml:"at"`
	Every        float64 `yaml:"every"`
	Kind         string  `yaml:"kind"`
	CardID       string  `yaml:"card_id"`
	AbilityKey   string  `yaml:"ability_key"`
	TargetID     string  `yaml:"target_id"`
	Cost         int     `yaml:"cost"`
	Priority     string  `yaml:"priority"`
	CastDuration float64 `yaml:"cast_duration"`
	Alignment    string  `yaml:"alignment"`
}

type rawEnemy struct {
	ActorID  string             `yaml:"actor_id"`
	Name     string             `yaml:"name"`
	Pool     *hourglass.Config  `yaml:"pool"`
	Timeline []rawTimelineEntry `yaml:"timeline"`
}

type rawEncounter struct {
	Key         string             `yaml:"key"`
	Name        string             `yaml:"name"`
	Description string             `yaml:"description"`
	RunDuration float64            `yaml:"run_duration"`
	Scheduler   *initiative.Config `yaml:"scheduler"`
	PlayerPool  *hourglass.Config  `yaml:"player_pool"`
	Enemies     []rawEnemy         `yaml:"enemies"`
}

// EncounterSet is the loaded encounter catalog, keyed by profile key.
type EncounterSet struct {
	byKey map[string]Encounter
	keys  []string
}

// NewEncounterSet builds a catalog from already merged profiles. It is the
// programmatic counterpart of LoadEncounters for callers that assemble
// encounters in code.
func NewEncounterSet(encounters ...Encounter) (*EncounterSet, error) {
	if len(encounters) == 0 {
		return nil, fmt.Errorf("at least one encounter profile is required")
	}
	set := &EncounterSet{byKey: make(map[string]Encounter, len(encounters))}
	for _, enc := range encounters {
		if strings.TrimSpace(enc.Key) == "" {
			return nil, fmt.Errorf("encounter profile missing key")
		}
		if _, exists := set.byKey[enc.Key]; exists {
			return nil, fmt.Errorf("duplicate encounter key '%s'", enc.Key)
		}
		set.byKey[enc.Key] = enc
		set.keys = append(set.keys, enc.Key)
	}
	sort.Strings(set.keys)
	return set, nil
}

// LoadEncounters reads every *.yaml/*.yml file under dir and merges each
// profile over the server defaults. At least one profile is required.
func LoadEncounters(dir string, defaults *LoadedConfig) (*EncounterSet, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read encounters directory %s: %w", dir, err)
	}

	set := &EncounterSet{byKey: make(map[string]Encounter)}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		enc, err := loadEncounterFile(path, defaults)
		if err != nil {
			return nil, err
		}
		if _, exists := set.byKey[enc.Key]; exists {
			return nil, fmt.Errorf("encounter file %s: duplicate encounter key '%s'", path, enc.Key)
		}
		set.byKey[enc.Key] = enc
		set.keys = append(set.keys, enc.Key)
	}
	if len(set.keys) == 0 {
		return nil, fmt.Errorf("encounters directory %s contains no profiles", dir)
	}
	sort.Strings(set.keys)
	return set, nil
}

// Get returns the encounter for key.
func (s *EncounterSet) Get(key string) (Encounter, bool) {
	enc, ok := s.byKey[key]
	return enc, ok
}

// Keys returns every loaded encounter key in sorted order.
func (s *EncounterSet) Keys() []string {
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}

// Default returns the first encounter by sorted key; it is used when a
// session is created without naming a profile.
func (s *EncounterSet) Default() Encounter {
	return s.byKey[s.keys[0]]
}

func loadEncounterFile(path string, defaults *LoadedConfig) (Encounter, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Encounter{}, fmt.Errorf("failed to read encounter file %s: %w", path, err)
	}
	var raw rawEncounter
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return Encounter{}, fmt.Errorf("failed to parse encounter file %s: %w", path, err)
	}
	// A missing key falls back to the canonical form of the display name.
	if strings.TrimSpace(raw.Key) == "" {
		raw.Key = keys.FromName(raw.Name)
	}
	if raw.Key == "" {
		return Encounter{}, fmt.Errorf("encounter file %s: missing 'key' and 'name'", path)
	}

	enc := Encounter{
		Key:         raw.Key,
		Name:        raw.Name,
		Description: raw.Description,
		RunDuration: raw.RunDuration,
		Scheduler:   defaults.Scheduler,
		PlayerPool:  defaults.PlayerPool,
	}
	if enc.Name == "" {
		enc.Name = enc.Key
	}
	if enc.RunDuration <= 0 {
		enc.RunDuration = 120
	}
	if raw.Scheduler != nil {
		enc.Scheduler = *raw.Scheduler
	}
	if raw.PlayerPool != nil {
		enc.PlayerPool = *raw.PlayerPool
	}
	if err := validateScheduler(path, enc.Scheduler); err != nil {
		return Encounter{}, err
	}
	if err := validatePool(path, "player_pool", enc.PlayerPool); err != nil {
		return Encounter{}, err
	}

	actorSet := make(map[string]struct{}, len(raw.Enemies))
	for i, re := range raw.Enemies {
		if strings.TrimSpace(re.ActorID) == "" {
			re.ActorID = keys.FromName(re.Name)
		}
		if re.ActorID == "" {
			return Encounter{}, fmt.Errorf("encounter file %s: enemy %d missing 'actor_id' and 'name'", path, i)
		}
		if _, exists := actorSet[re.ActorID]; exists {
			return Encounter{}, fmt.Errorf("encounter file %s: duplicate enemy actor_id '%s'", path, re.ActorID)
		}
		actorSet[re.ActorID] = struct{}{}

		enemy := Enemy{
			ActorID: re.ActorID,
			Name:    re.Name,
			Pool:    defaults.PlayerPool,
		}
		if enemy.Name == "" {
			enemy.Name = enemy.ActorID
		}
		if re.Pool != nil {
			enemy.Pool = *re.Pool
		}
		if err := validatePool(path, fmt.Sprintf("enemies[%d].pool", i), enemy.Pool); err != nil {
			return Encounter{}, err
		}
		for j, rt := range re.Timeline {
			te, err := parseTimelineEntry(rt)
			if err != nil {
				return Encounter{}, fmt.Errorf("encounter file %s: enemy '%s' timeline entry %d: %w", path, re.ActorID, j, err)
			}
			enemy.Timeline = append(enemy.Timeline, te)
		}
		sort.SliceStable(enemy.Timeline, func(a, b int) bool {
			return enemy.Timeline[a].At < enemy.Timeline[b].At
		})
		enc.Enemies = append(enc.Enemies, enemy)
	}
	return enc, nil
}

func parseTimelineEntry(rt rawTimelineEntry) (TimelineEntry, error) {
	te := TimelineEntry{
		At:           rt.At,
		Every:        rt.Every,
		Kind:         rt.Kind,
		CardID:       rt.CardID,
		AbilityKey:   rt.AbilityKey,
		TargetID:     rt.TargetID,
		Cost:         rt.Cost,
		CastDuration: rt.CastDuration,
	}
	if te.At < 0 || te.Every < 0 {
		return te, fmt.Errorf("'at' and 'every' must not be negative")
	}
	if te.Cost < 0 {
		return te, fmt.Errorf("'cost' must not be negative")
	}
	if te.CastDuration < 0 {
		return te, fmt.Errorf("'cast_duration' must not be negative")
	}

	switch rt.Kind {
	case initiative.KindPlayCard:
		if strings.TrimSpace(rt.CardID) == "" {
			return te, fmt.Errorf("kind '%s' requires 'card_id'", rt.Kind)
		}
	case initiative.KindAbility:
		if strings.TrimSpace(rt.AbilityKey) == "" {
			return te, fmt.Errorf("kind '%s' requires 'ability_key'", rt.Kind)
		}
	case initiative.KindEndTurn:
	default:
		return te, fmt.Errorf("unknown timeline kind '%s'", rt.Kind)
	}

	prio := initiative.PriorityNormal
	if rt.Priority != "" {
		parsed, err := initiative.ParsePriority(rt.Priority)
		if err != nil {
			return te, err
		}
		prio = parsed
	}
	te.Priority = prio

	switch hourglass.Alignment(rt.Alignment) {
	case "", hourglass.AlignmentOrder, hourglass.AlignmentChaos, hourglass.AlignmentBalance:
		te.Alignment = hourglass.Alignment(rt.Alignment)
	default:
		return te, fmt.Errorf("unknown alignment '%s'", rt.Alignment)
	}
	return te, nil
}
