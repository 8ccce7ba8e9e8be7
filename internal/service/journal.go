package service

import (
	"fmt"
	"sync"

	"github.com/Noquela/duat-server/internal/constants"
	"github.com/Noquela/duat-server/internal/game"
	"github.com/Noquela/duat-server/internal/logging"
	"github.com/Noquela/duat-server/internal/session"
)

// JournalRepo is the repository slice the journal resolver writes through.
type JournalRepo interface {
	GetSessionByID(id uint) (*game.Session, error)
	UpdateSession(s *game.Session) error
	AppendActionRecords(records []game.ActionRecord) error
	UpdateStatsOnSessionEnd(s *game.Session) error
}

type actorTotals struct {
	executed  int
	sandSpent int
	resonant  int
}

// JournalResolver persists executed actions to the session journal and
// finalizes the session row once its run ends. One instance serves every
// runner; per-session aggregates are guarded by the mutex.
type JournalResolver struct {
	repo JournalRepo

	mu     sync.Mutex
	totals map[uint]map[string]*actorTotals
}

func NewJournalResolver(repo JournalRepo) *JournalResolver {
	return &JournalResolver{
		repo:   repo,
		totals: make(map[uint]map[string]*actorTotals),
	}
}

func (j *JournalResolver) ActionsExecuted(sessionID uint, actions []session.ExecutedAction) {
	records := make([]game.ActionRecord, 0, len(actions))

	j.mu.Lock()
	byActor := j.totals[sessionID]
	if byActor == nil {
		byActor = make(map[string]*actorTotals)
		j.totals[sessionID] = byActor
	}
	for _, a := range actions {
		records = append(records, game.ActionRecord{
			SessionID:      sessionID,
			ActionID:       a.ID,
			ActorID:        a.ActorID,
			Kind:           a.Kind,
			Priority:       a.Priority,
			Cost:           a.Cost,
			Resonant:       a.Resonant,
			MomentumStacks: a.MomentumStacks,
			QueuedAt:       a.QueuedAt,
			ExecutedAt:     a.ExecutedAt,
		})
		t := byActor[a.ActorID]
		if t == nil {
			t = &actorTotals{}
			byActor[a.ActorID] = t
		}
		t.executed++
		t.sandSpent += a.Cost
		if a.Resonant {
			t.resonant++
		}
	}
	j.mu.Unlock()

	if err := j.repo.AppendActionRecords(records); err != nil {
		logging.Error("failed to append action journal", err, logging.Fields{
			constants.LogFieldSessionID: sessionID,
			constants.LogFieldCount:     len(records),
		})
	}
}

func (j *JournalResolver) RunFinished(sessionID uint, outcome session.Outcome) {
	totals := j.takeTotals(sessionID)

	s, err := j.repo.GetSessionByID(sessionID)
	if err != nil || s == nil {
		logging.Error("failed to load session for finalization", err, logging.Fields{
			constants.LogFieldSessionID: sessionID,
		})
		return
	}
	if game.SessionStatus(s.Status) != game.StatusRunning {
		return
	}

	for i := range s.Participants {
		if t, ok := totals[s.Participants[i].ActorID]; ok {
			s.Participants[i].ActionsExecuted += t.executed
			s.Participants[i].SandSpent += t.sandSpent
			s.Participants[i].ResonantCasts += t.resonant
		}
	}

	if outcome.Reason == session.ReasonCompleted {
		s.Status = string(game.StatusFinished)
		s.Winner = outcome.Winner
		if outcome.Winner != "" {
			s.Message = fmt.Sprintf("%s claimed the trial.", outcome.Winner)
		} else {
			s.Message = "The trial ended with the scales balanced."
		}
	} else {
		s.Status = string(game.StatusAbandoned)
		s.Message = "The run was abandoned."
	}

	if !s.StatsCounted {
		if err := j.repo.UpdateStatsOnSessionEnd(s); err != nil {
			logging.Error("failed to update player stats", err, logging.Fields{
				constants.LogFieldSessionID: sessionID,
			})
		} else {
			s.StatsCounted = true
		}
	}
	if err := j.repo.UpdateSession(s); err != nil {
		logging.Error("failed to finalize session", err, logging.Fields{
			constants.LogFieldSessionID: sessionID,
		})
	}
}

func (j *JournalResolver) takeTotals(sessionID uint) map[string]*actorTotals {
	j.mu.Lock()
	defer j.mu.Unlock()
	totals := j.totals[sessionID]
	delete(j.totals, sessionID)
	return totals
}
