package api

import (
	"net/http"
	"time"

	"github.com/Noquela/duat-server/internal/constants"
	"github.com/Noquela/duat-server/internal/logging"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Maximum message size allowed from peer.
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow cross-origin requests for the dev frontend
	},
}

// StreamSession upgrades the request to a websocket and streams tick and
// finished events for a running session. The first frame is a full state
// snapshot; a slow consumer misses events rather than stalling the runner.
func (h *SessionHandler) StreamSession(c *gin.Context) {
	id, ok := parseSessionID(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{constants.JSONKeyError: constants.ErrInvalidSessionID})
		return
	}
	runner, ok := h.runtime.Manager.Get(id)
	if !ok {
		c.JSON(http.StatusConflict, gin.H{constants.JSONKeyError: constants.ErrSessionRunnerUnavailable})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logging.Error("failed to upgrade stream connection", err, logging.Fields{constants.LogFieldSessionID: id})
		return
	}

	events, cancel := runner.Subscribe()

	if snap, err := runner.State(); err == nil {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(gin.H{"type": "state", "state": snap}); err != nil {
			cancel()
			conn.Close()
			return
		}
	}

	// Reader consumes control frames and detects the peer going away.
	go func() {
		defer func() {
			cancel()
			conn.Close()
		}()
		conn.SetReadLimit(maxMessageSize)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(pongWait))
			return nil
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		cancel()
		conn.Close()
	}()
	for {
		select {
		case ev, ok := <-events:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The runner finished and closed the stream.
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
