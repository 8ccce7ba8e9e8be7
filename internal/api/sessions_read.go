package api

import (
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/Noquela/duat-server/internal/constants"
	"github.com/Noquela/duat-server/internal/service"
	"github.com/Noquela/duat-server/internal/session"

	"github.com/gin-gonic/gin"
)

// ListEncounters returns the available encounter profiles.
func (h *SessionHandler) ListEncounters(c *gin.Context) {
	keys := h.runtime.Encounters.Keys()
	out := make([]gin.H, 0, len(keys))
	for _, key := range keys {
		enc, ok := h.runtime.Encounters.Get(key)
		if !ok {
			continue
		}
		out = append(out, gin.H{
			"key":          enc.Key,
			"name":         enc.Name,
			"description":  enc.Description,
			"run_duration": enc.RunDuration,
			"enemies":      len(enc.Enemies),
		})
	}
	c.JSON(http.StatusOK, out)
}

// ListPublicSessions returns recent public lobbies waiting for players.
func (h *SessionHandler) ListPublicSessions(c *gin.Context) {
	sessions, err := h.repo.GetPublicSessions()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{constants.JSONKeyError: constants.ErrFailedFetchSessions})
		return
	}
	out, err := MarshalForContext(c, sessions)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{constants.JSONKeyError: constants.ErrFailedFetchSessions})
		return
	}
	c.JSON(http.StatusOK, out)
}

// ListLeaderboard returns the top players by victories (desc), limited to top 10 by default.
func (h *SessionHandler) ListLeaderboard(c *gin.Context) {
	// optional ?limit=N
	limit := 10
	if s := c.Query("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	players, err := service.Leaderboard(h.repo, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{constants.JSONKeyError: constants.ErrFailedFetchLeaderboard})
		return
	}
	out, err := MarshalIntoSnakeTimestamps(players)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{constants.JSONKeyError: constants.ErrFailedFetchLeaderboard})
		return
	}
	c.JSON(http.StatusOK, out)
}

// GetSession returns a session by ID. For running sessions the response
// also carries a live snapshot of every actor's pool and queue taken from
// the runner.
func (h *SessionHandler) GetSession(c *gin.Context) {
	id, ok := parseSessionID(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: constants.ErrInvalidSessionID})
		return
	}
	s, err := h.repo.GetSessionByID(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{constants.JSONKeyError: constants.ErrSessionNotFound})
		return
	}
	out, err := MarshalForContext(c, s)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{constants.JSONKeyError: constants.ErrFailedFetchSessions})
		return
	}

	var live *session.StateSnapshot
	if runner, ok := h.runtime.Manager.Get(id); ok {
		if snap, err := runner.State(); err == nil {
			live = &snap
		}
	}
	c.JSON(http.StatusOK, gin.H{"session": out, "live": live})
}

// GetSessionJournal returns the executed-action journal for a session in
// execution order.
func (h *SessionHandler) GetSessionJournal(c *gin.Context) {
	id, ok := parseSessionID(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: constants.ErrInvalidSessionID})
		return
	}
	if _, err := h.repo.GetSessionByID(id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{constants.JSONKeyError: constants.ErrSessionNotFound})
		return
	}
	limit := 100
	if s := c.Query("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}
	records, err := h.repo.GetActionJournal(id, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{constants.JSONKeyError: constants.ErrFailedFetchSessions})
		return
	}
	out, err := MarshalIntoSnakeTimestamps(records)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{constants.JSONKeyError: constants.ErrFailedFetchSessions})
		return
	}
	c.JSON(http.StatusOK, out)
}

// GetPlayerStats returns aggregated stats for a given player email.
func (h *SessionHandler) GetPlayerStats(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		email = sessionEmail(c)
	}
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: constants.ErrEmailRequired})
		return
	}
	ps, err := service.PlayerStats(h.repo, email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{constants.JSONKeyError: constants.ErrFailedFetchStats})
		return
	}
	c.JSON(http.StatusOK, ps)
}

// UpdatePlayerProfile updates the authenticated player's display name.
func (h *SessionHandler) UpdatePlayerProfile(c *gin.Context) {
	var body struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: constants.ErrInvalidRequest})
		return
	}
	// Require authenticated email from context (no fallbacks).
	email := sessionEmail(c)
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: constants.ErrEmailRequired})
		return
	}
	// Validate display name using the same Unicode-aware pattern as the
	// frontend. Accept letters, marks, numbers, apostrophe, dot, hyphen
	// and spaces, length 4-40.
	var playerNameRegex = regexp.MustCompile(`^[\p{L}\p{M}\p{N}.'\- ]{4,40}$`)

	trimmed := strings.TrimSpace(body.Name)
	if !playerNameRegex.MatchString(trimmed) {
		c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: "Invalid player name"})
		return
	}

	ps, err := h.repo.GetStatsByEmail(email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{constants.JSONKeyError: constants.ErrFailedFetchStats})
		return
	}
	ps.PlayerName = trimmed
	if err := h.repo.SaveProfile(ps); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{constants.JSONKeyError: constants.ErrFailedUpdateSession})
		return
	}
	c.JSON(http.StatusOK, gin.H{constants.JSONKeyStatus: "ok"})
}
