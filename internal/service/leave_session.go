package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/Noquela/duat-server/internal/constants"
	"github.com/Noquela/duat-server/internal/game"
	"github.com/Noquela/duat-server/internal/logging"
	"github.com/Noquela/duat-server/internal/session"
)

// LeaveRepo is the repository slice needed when a participant leaves.
type LeaveRepo interface {
	GetSessionByID(id uint) (*game.Session, error)
	UpdateSession(s *game.Session) error
	RemoveParticipantByUUID(sessionID uint, playerUUID string) error
}

var ErrParticipantNotFound = errors.New("participant not in session")

// LeaveSession removes a participant from a waiting lobby, or marks them
// resigned in a running session. In a lobby the last leaver abandons it
// and a leaving host hands it to the next participant. In a running
// session the leaver's queue is cleared (spent sand stays spent) and the
// run stops once everyone resigned.
func LeaveSession(repo LeaveRepo, manager *session.Manager, sessionID uint, playerUUID string) (*game.Session, error) {
	s, err := repo.GetSessionByID(sessionID)
	if err != nil || s == nil {
		return nil, ErrSessionNotFound
	}
	idx := -1
	for i := range s.Participants {
		if s.Participants[i].PlayerUUID == playerUUID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, ErrParticipantNotFound
	}

	switch game.SessionStatus(s.Status) {
	case game.StatusWaiting:
		wasHost := s.Participants[idx].Host
		if err := repo.RemoveParticipantByUUID(s.ID, playerUUID); err != nil {
			return nil, err
		}
		rest := make([]game.Participant, 0, len(s.Participants)-1)
		for i := range s.Participants {
			if i != idx {
				rest = append(rest, s.Participants[i])
			}
		}
		s.Participants = rest
		if len(s.Participants) == 0 {
			s.Status = string(game.StatusAbandoned)
			s.Message = "The lobby was abandoned."
		} else if wasHost {
			s.Participants[0].Host = true
			s.Message = fmt.Sprintf("%s now hosts the lobby.", s.Participants[0].PlayerName)
		}
		s.LastActivityAt = time.Now()
		if err := repo.UpdateSession(s); err != nil {
			return nil, err
		}
		return s, nil

	case game.StatusRunning:
		part := &s.Participants[idx]
		part.Resigned = true
		allResigned := true
		for i := range s.Participants {
			if !s.Participants[i].Resigned {
				allResigned = false
				break
			}
		}
		if err := repo.UpdateSession(s); err != nil {
			return nil, err
		}
		if runner, ok := manager.Get(s.ID); ok {
			if _, err := runner.DequeueAll(part.ActorID); err != nil && !errors.Is(err, session.ErrRunnerStopped) {
				logging.Error("failed to clear queue for resigned participant", err, logging.Fields{
					constants.LogFieldSessionID: s.ID,
					constants.LogFieldActorID:   part.ActorID,
				})
			}
			if allResigned {
				runner.Stop()
			}
		}
		return s, nil

	default:
		// Finished or abandoned runs have nothing left to leave.
		return s, nil
	}
}
