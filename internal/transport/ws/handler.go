package ws

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// maxPlayerIDLength bounds client supplied player IDs and resume tokens
const maxPlayerIDLength = 64

// Handler upgrades /ws requests into player connections
type Handler struct {
	rooms    Rooms
	opts     Options
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(rooms Rooms, opts Options, logger *zap.Logger) *Handler {
	return &Handler{
		rooms: rooms,
		opts:  opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: logger,
	}
}

// ServeHTTP upgrades the request. The connection joins no room until it
// sends createRoom or joinRoom. A client that passes back both its previous
// playerId and the resume token it was given can rejoin its seat; anything
// less gets a fresh identity.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	playerID, token := query.Get("playerId"), query.Get("token")
	if len(playerID) > maxPlayerIDLength || len(token) > maxPlayerIDLength {
		http.Error(w, "playerId or token is too long", http.StatusBadRequest)
		return
	}

	resumed := playerID != "" && token != ""
	if !resumed {
		playerID = uuid.NewString()
		token = uuid.NewString()
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("upgrade failed", zap.Error(err))
		return
	}

	h.logger.Info("player connected",
		zap.String("playerId", playerID),
		zap.Bool("resumed", resumed))

	NewClient(conn, h.rooms, playerID, token, h.opts, h.logger).Run()

	h.logger.Debug("player disconnected", zap.String("playerId", playerID))
}
