package api

import (
	"errors"
	"net/http"

	"github.com/Noquela/duat-server/internal/constants"
	"github.com/Noquela/duat-server/internal/game"
	"github.com/Noquela/duat-server/internal/hourglass"
	"github.com/Noquela/duat-server/internal/initiative"
	"github.com/Noquela/duat-server/internal/session"

	"github.com/gin-gonic/gin"
)

type ActionRequest struct {
	Kind         string  `json:"kind"`
	CardID       string  `json:"card_id"`
	AbilityKey   string  `json:"ability_key"`
	TargetID     string  `json:"target_id"`
	Alignment    string  `json:"alignment"`
	Cost         int     `json:"cost"`
	Priority     string  `json:"priority"`
	CastDuration float64 `json:"cast_duration"`
}

// resolveRunner loads the session, checks the caller is a live participant
// and returns their actor ID together with the session's runner. It writes
// the error response itself and returns ok=false when the request cannot
// proceed.
func (h *SessionHandler) resolveRunner(c *gin.Context) (string, *session.Runner, bool) {
	id, ok := parseSessionID(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: constants.ErrInvalidSessionID})
		return "", nil, false
	}
	email := sessionEmail(c)
	if email == "" {
		c.JSON(http.StatusUnauthorized, gin.H{constants.JSONKeyError: constants.ErrAuthRequired})
		return "", nil, false
	}
	s, err := h.repo.GetSessionByID(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{constants.JSONKeyError: constants.ErrSessionNotFound})
		return "", nil, false
	}
	caller := findParticipantByEmail(s, email)
	if caller == nil || caller.Resigned {
		c.JSON(http.StatusForbidden, gin.H{constants.JSONKeyError: constants.ErrParticipantNotInSession})
		return "", nil, false
	}
	if game.SessionStatus(s.Status) != game.StatusRunning {
		c.JSON(http.StatusConflict, gin.H{constants.JSONKeyError: constants.ErrSessionNotInProgress})
		return "", nil, false
	}
	runner, ok := h.runtime.Manager.Get(id)
	if !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{constants.JSONKeyError: constants.ErrSessionRunnerUnavailable})
		return "", nil, false
	}
	return caller.ActorID, runner, true
}

func buildActionKind(req ActionRequest) (initiative.Kind, string) {
	switch req.Kind {
	case initiative.KindPlayCard:
		if req.CardID == "" {
			return nil, constants.ErrInvalidRequest
		}
		alignment := hourglass.AlignmentBalance
		switch req.Alignment {
		case "":
		case string(hourglass.AlignmentOrder), string(hourglass.AlignmentChaos), string(hourglass.AlignmentBalance):
			alignment = hourglass.Alignment(req.Alignment)
		default:
			return nil, constants.ErrInvalidRequest
		}
		return initiative.PlayCard{CardID: req.CardID, TargetID: req.TargetID, Alignment: alignment}, ""
	case initiative.KindAbility:
		if req.AbilityKey == "" {
			return nil, constants.ErrInvalidRequest
		}
		return initiative.Ability{AbilityKey: req.AbilityKey, TargetID: req.TargetID}, ""
	case initiative.KindEndTurn:
		return initiative.EndTurn{}, ""
	default:
		// Reactions have their own endpoint tied to the open window.
		return nil, constants.ErrUnknownActionKind
	}
}

// EnqueueAction queues an action on the caller's initiative track. The
// scheduler decides admission; a rejected action costs nothing.
func (h *SessionHandler) EnqueueAction(c *gin.Context) {
	var req ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: constants.ErrInvalidRequest})
		return
	}
	actorID, runner, ok := h.resolveRunner(c)
	if !ok {
		return
	}

	kind, errMsg := buildActionKind(req)
	if kind == nil {
		c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: errMsg})
		return
	}
	priority := initiative.PriorityNormal
	if req.Priority != "" {
		p, err := initiative.ParsePriority(req.Priority)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: constants.ErrUnknownPriority})
			return
		}
		priority = p
	}
	if req.Cost < 0 || req.CastDuration < 0 {
		c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: constants.ErrInvalidRequest})
		return
	}

	admitted, err := runner.Enqueue(actorID, kind, req.Cost, priority, req.CastDuration)
	if err != nil {
		writeEnqueueError(c, err)
		return
	}
	if !admitted {
		c.JSON(http.StatusConflict, gin.H{constants.JSONKeyError: constants.ErrActionRejected, constants.JSONKeyAccepted: false})
		return
	}
	c.JSON(http.StatusOK, gin.H{constants.JSONKeyAccepted: true, constants.JSONKeyMessage: "Action queued"})
}

// EnqueueReaction queues a reaction against the currently open reaction
// window. Only the first reaction to arrive while the window is open is
// admitted.
func (h *SessionHandler) EnqueueReaction(c *gin.Context) {
	var req ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: constants.ErrInvalidRequest})
		return
	}
	actorID, runner, ok := h.resolveRunner(c)
	if !ok {
		return
	}
	if req.CardID == "" {
		c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: constants.ErrInvalidRequest})
		return
	}
	if req.Cost < 0 || req.CastDuration < 0 {
		c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: constants.ErrInvalidRequest})
		return
	}

	kind := initiative.Reaction{CardID: req.CardID, TargetID: req.TargetID}
	admitted, err := runner.EnqueueReaction(actorID, kind, req.Cost, req.CastDuration)
	if err != nil {
		writeEnqueueError(c, err)
		return
	}
	if !admitted {
		c.JSON(http.StatusConflict, gin.H{constants.JSONKeyError: constants.ErrReactionWindowClosed, constants.JSONKeyAccepted: false})
		return
	}
	c.JSON(http.StatusOK, gin.H{constants.JSONKeyAccepted: true, constants.JSONKeyMessage: "Reaction queued"})
}

// DequeueActions clears every action the caller still has queued or
// casting. Spent sand is not refunded.
func (h *SessionHandler) DequeueActions(c *gin.Context) {
	actorID, runner, ok := h.resolveRunner(c)
	if !ok {
		return
	}
	removed, err := runner.DequeueAll(actorID)
	if err != nil {
		writeEnqueueError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{constants.JSONKeyRemoved: removed})
}

func writeEnqueueError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, session.ErrRunnerStopped):
		c.JSON(http.StatusConflict, gin.H{constants.JSONKeyError: constants.ErrSessionRunnerUnavailable})
	case errors.Is(err, initiative.ErrUnknownActor):
		c.JSON(http.StatusForbidden, gin.H{constants.JSONKeyError: constants.ErrParticipantNotInSession})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{constants.JSONKeyError: constants.ErrFailedEnqueueAction})
	}
}
