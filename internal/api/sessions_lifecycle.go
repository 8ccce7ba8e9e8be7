package api

import (
	"context"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/Noquela/duat-server/internal/constants"
	"github.com/Noquela/duat-server/internal/game"
	"github.com/Noquela/duat-server/internal/logging"
	"github.com/Noquela/duat-server/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type CreateSessionPayload struct {
	PlayerName  string `json:"player_name"`
	PlayerEmail string `json:"player_email"`
	Name        string `json:"name"`
	Encounter   string `json:"encounter"`
	Private     bool   `json:"private"`
}

// CreateSession creates a new session lobby and returns IDs and join code.
func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req CreateSessionPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: constants.ErrInvalidRequest})
		return
	}
	// Derive identity from session
	if v := sessionEmail(c); v != "" {
		req.PlayerEmail = v
	}
	if v, ok := c.Get("userName"); ok && req.PlayerName == "" {
		req.PlayerName, _ = v.(string)
	}

	if utf8.RuneCountInString(req.Name) > constants.MaxSessionNameLen {
		c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: constants.ErrInvalidRequest})
		return
	}

	encounterKey := req.Encounter
	if encounterKey == "" {
		encounterKey = h.runtime.Encounters.Default().Key
	}
	if _, ok := h.runtime.Encounters.Get(encounterKey); !ok {
		c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: constants.ErrUnknownEncounter})
		return
	}

	joinCode := generateJoinCode()
	playerUUID := uuid.NewString()

	newSession := game.Session{
		Name:         req.Name,
		Private:      req.Private,
		JoinCode:     joinCode,
		EncounterKey: encounterKey,
		Status:       string(game.StatusWaiting),
		Participants: []game.Participant{
			{
				PlayerUUID:  playerUUID,
				PlayerName:  req.PlayerName,
				PlayerEmail: req.PlayerEmail,
				ActorID:     playerUUID,
				Host:        true,
			},
		},
		Message:        "Session created. Waiting for a challenger.",
		LastActivityAt: time.Now(),
	}

	// Upsert player profile (name/email/uuid)
	_ = h.repo.UpsertProfile(req.PlayerEmail, playerUUID, req.PlayerName)

	if err := h.repo.CreateSession(&newSession); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{constants.JSONKeyError: constants.ErrFailedCreateSession})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"session_id":  newSession.ID,
		"join_code":   joinCode,
		"player_uuid": playerUUID,
	})
}

type JoinSessionPayload struct {
	JoinCode    string `json:"join_code"`
	PlayerName  string `json:"player_name"`
	PlayerEmail string `json:"player_email"`
}

// JoinSession allows a second player to join a lobby via join code.
// Joining a lobby the caller already belongs to returns their existing
// participant rather than an error.
func (h *SessionHandler) JoinSession(c *gin.Context) {
	var req JoinSessionPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: constants.ErrInvalidRequest})
		return
	}
	if v := sessionEmail(c); v != "" {
		req.PlayerEmail = v
	}
	if v, ok := c.Get("userName"); ok && req.PlayerName == "" {
		req.PlayerName, _ = v.(string)
	}

	code := normalizeJoinCode(req.JoinCode)
	if code == "" || !joinCodeRegex.MatchString(code) {
		c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: constants.ErrInvalidSessionID})
		return
	}
	s, err := h.repo.FindSessionByJoinCode(code)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{constants.JSONKeyError: constants.ErrSessionNotFound})
		return
	}

	if existing := findParticipantByEmail(s, req.PlayerEmail); existing != nil {
		c.JSON(http.StatusOK, gin.H{
			"session_id":  s.ID,
			"join_code":   s.JoinCode,
			"player_uuid": existing.PlayerUUID,
			"message":     "Already in session",
		})
		return
	}

	if game.SessionStatus(s.Status) != game.StatusWaiting {
		c.JSON(http.StatusConflict, gin.H{constants.JSONKeyError: constants.ErrSessionAlreadyStarted})
		return
	}
	if len(s.Participants) >= constants.MaxParticipants {
		c.JSON(http.StatusConflict, gin.H{constants.JSONKeyError: constants.ErrSessionFull})
		return
	}

	playerUUID := uuid.NewString()
	s.Participants = append(s.Participants, game.Participant{
		PlayerUUID:  playerUUID,
		PlayerName:  req.PlayerName,
		PlayerEmail: req.PlayerEmail,
		ActorID:     playerUUID,
	})
	s.Message = "A challenger joined. The host may begin the trial."
	s.LastActivityAt = time.Now()

	_ = h.repo.UpsertProfile(req.PlayerEmail, playerUUID, req.PlayerName)

	if err := h.repo.UpdateSession(s); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{constants.JSONKeyError: constants.ErrFailedUpdateSession})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id":  s.ID,
		"join_code":   s.JoinCode,
		"player_uuid": playerUUID,
		"message":     "Successfully joined session",
	})
}

// StartSession builds the scheduler for the lobby's encounter and launches
// the run loop. Only the host may start.
func (h *SessionHandler) StartSession(c *gin.Context) {
	id, ok := parseSessionID(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: constants.ErrInvalidSessionID})
		return
	}
	email := sessionEmail(c)
	if email == "" {
		c.JSON(http.StatusUnauthorized, gin.H{constants.JSONKeyError: constants.ErrAuthRequired})
		return
	}
	s, err := h.repo.GetSessionByID(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{constants.JSONKeyError: constants.ErrSessionNotFound})
		return
	}
	caller := findParticipantByEmail(s, email)
	if caller == nil {
		c.JSON(http.StatusForbidden, gin.H{constants.JSONKeyError: constants.ErrParticipantNotInSession})
		return
	}

	// The runner outlives this request; it stops on its own once the
	// encounter clock runs out.
	started, err := service.StartSession(context.Background(), h.repo, h.runtime, id, caller.PlayerUUID)
	if err != nil {
		switch err {
		case service.ErrSessionNotFound:
			c.JSON(http.StatusNotFound, gin.H{constants.JSONKeyError: constants.ErrSessionNotFound})
		case service.ErrSessionAlreadyStarted:
			c.JSON(http.StatusConflict, gin.H{constants.JSONKeyError: constants.ErrSessionAlreadyStarted})
		case service.ErrNotEnoughParticipants:
			c.JSON(http.StatusConflict, gin.H{constants.JSONKeyError: constants.ErrNotEnoughParticipants})
		case service.ErrOnlyHostCanStart:
			c.JSON(http.StatusForbidden, gin.H{constants.JSONKeyError: constants.ErrParticipantNotInSession})
		case service.ErrUnknownEncounter:
			c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: constants.ErrUnknownEncounter})
		default:
			logging.Error("failed to start session", err, logging.Fields{constants.LogFieldSessionID: id})
			c.JSON(http.StatusInternalServerError, gin.H{constants.JSONKeyError: constants.ErrFailedUpdateSession})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		constants.JSONKeyMessage: started.Message,
		constants.JSONKeyStatus:  started.Status,
	})
}

// LeaveSession removes the caller from a waiting lobby, or resigns them
// from a running session.
func (h *SessionHandler) LeaveSession(c *gin.Context) {
	id, ok := parseSessionID(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: constants.ErrInvalidSessionID})
		return
	}
	email := sessionEmail(c)
	if email == "" {
		c.JSON(http.StatusUnauthorized, gin.H{constants.JSONKeyError: constants.ErrAuthRequired})
		return
	}
	s, err := h.repo.GetSessionByID(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{constants.JSONKeyError: constants.ErrSessionNotFound})
		return
	}
	caller := findParticipantByEmail(s, email)
	if caller == nil {
		c.JSON(http.StatusForbidden, gin.H{constants.JSONKeyError: constants.ErrParticipantNotInSession})
		return
	}

	updated, err := service.LeaveSession(h.repo, h.runtime.Manager, id, caller.PlayerUUID)
	if err != nil {
		switch err {
		case service.ErrSessionNotFound:
			c.JSON(http.StatusNotFound, gin.H{constants.JSONKeyError: constants.ErrSessionNotFound})
		case service.ErrParticipantNotFound:
			c.JSON(http.StatusForbidden, gin.H{constants.JSONKeyError: constants.ErrParticipantNotInSession})
		default:
			logging.Error("failed to leave session", err, logging.Fields{constants.LogFieldSessionID: id})
			c.JSON(http.StatusInternalServerError, gin.H{constants.JSONKeyError: constants.ErrFailedUpdateSession})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		constants.JSONKeyMessage: "Participant removed",
		constants.JSONKeyStatus:  updated.Status,
	})
}
