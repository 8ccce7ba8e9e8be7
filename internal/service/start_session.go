package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Noquela/duat-server/internal/config"
	"github.com/Noquela/duat-server/internal/constants"
	"github.com/Noquela/duat-server/internal/game"
	"github.com/Noquela/duat-server/internal/logging"
	"github.com/Noquela/duat-server/internal/session"
)

// SessionRepo is the minimal repository interface required by the session
// lifecycle services.
type SessionRepo interface {
	GetSessionByID(id uint) (*game.Session, error)
	UpdateSession(s *game.Session) error
}

var (
	ErrSessionNotFound       = errors.New("session not found")
	ErrSessionAlreadyStarted = errors.New("session already starting or started")
	ErrNotEnoughParticipants = errors.New("not enough participants")
	ErrOnlyHostCanStart      = errors.New("only the host can start the session")
	ErrUnknownEncounter      = errors.New("unknown encounter profile")
)

// Runtime bundles what a started session needs to run.
type Runtime struct {
	Manager      *session.Manager
	Encounters   *config.EncounterSet
	Resolver     session.Resolver
	TickInterval time.Duration
}

// StartSession performs all server-side initialization when the host starts
// a lobby: it builds the scheduler from the encounter profile, registers
// every participant, launches the run loop and flips the session to
// running. The runner lives until the encounter clock runs out or ctx is
// canceled.
func StartSession(ctx context.Context, repo SessionRepo, rt Runtime, sessionID uint, requesterUUID string) (*game.Session, error) {
	s, err := repo.GetSessionByID(sessionID)
	if err != nil || s == nil {
		return nil, ErrSessionNotFound
	}
	if game.SessionStatus(s.Status) != game.StatusWaiting {
		return nil, ErrSessionAlreadyStarted
	}
	if len(s.Participants) == 0 {
		return nil, ErrNotEnoughParticipants
	}
	isHost := false
	for i := range s.Participants {
		if s.Participants[i].PlayerUUID == requesterUUID && s.Participants[i].Host {
			isHost = true
			break
		}
	}
	if !isHost {
		return nil, ErrOnlyHostCanStart
	}

	enc, ok := rt.Encounters.Get(s.EncounterKey)
	if !ok {
		return nil, ErrUnknownEncounter
	}

	humans := make([]session.Member, 0, len(s.Participants))
	for _, p := range s.Participants {
		humans = append(humans, session.Member{ActorID: p.ActorID, Name: p.PlayerName})
	}
	runner, err := session.NewRunner(s.ID, enc, humans, rt.Resolver, rt.TickInterval)
	if err != nil {
		return nil, fmt.Errorf("failed to build session runtime: %w", err)
	}

	s.Status = string(game.StatusRunning)
	s.Message = fmt.Sprintf("The %s trial has begun.", enc.Name)
	s.LastActivityAt = time.Now()
	if err := repo.UpdateSession(s); err != nil {
		return nil, err
	}

	rt.Manager.Add(s.ID, runner)
	go runner.Run(ctx)
	go func() {
		<-runner.Done()
		rt.Manager.Remove(s.ID)
	}()

	logging.Info("session started", logging.Fields{
		constants.LogFieldSessionID: s.ID,
		constants.LogFieldEncounter: enc.Key,
		constants.LogFieldCount:     len(humans),
	})
	return s, nil
}
