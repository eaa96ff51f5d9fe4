package ws

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sasha-s/go-deadlock"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"sketchguess/internal/app"
	"sketchguess/internal/domain"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10 // < pongWait

	// outbound frames queued per connection before dropping
	sendBufferSize = 256
)

// Rooms is the part of the room hub a client talks to
type Rooms interface {
	CreateRoom(client app.ClientConnection, name string, avatar domain.Avatar) (*app.RoomSession, error)
	JoinRoom(roomCode string, client app.ClientConnection, name string, avatar domain.Avatar) (*app.RoomSession, error)
}

// Options tunes per-connection limits
type Options struct {
	ChatPerSecond   float64
	ChatBurst       int
	DrawPerSecond   float64
	DrawBurst       int
	MaxMessageBytes int64
}

// DefaultOptions returns the standard per-connection limits
func DefaultOptions() Options {
	return Options{
		ChatPerSecond:   3,
		ChatBurst:       6,
		DrawPerSecond:   120,
		DrawBurst:       240,
		MaxMessageBytes: 16 * 1024,
	}
}

// Client is one player's websocket. It belongs to at most one room at a
// time and only its read pump touches session.
type Client struct {
	conn     *websocket.Conn
	rooms    Rooms
	session  *app.RoomSession
	playerID string
	token    string
	opts     Options
	send     chan []byte
	done     chan struct{}
	base     *zap.Logger
	logger   *zap.Logger
	mu       deadlock.Mutex
	closed   bool

	chatLimiter *rate.Limiter
	drawLimiter *rate.Limiter
}

// NewClient creates a new WebSocket client speaking for playerID. token is
// the resume token the client proves its seat with on rejoin.
func NewClient(conn *websocket.Conn, rooms Rooms, playerID, token string, opts Options, logger *zap.Logger) *Client {
	return &Client{
		conn:        conn,
		rooms:       rooms,
		playerID:    playerID,
		token:       token,
		opts:        opts,
		send:        make(chan []byte, sendBufferSize),
		done:        make(chan struct{}),
		base:        logger,
		logger:      logger.With(zap.String("playerId", playerID)),
		chatLimiter: rate.NewLimiter(rate.Limit(opts.ChatPerSecond), opts.ChatBurst),
		drawLimiter: rate.NewLimiter(rate.Limit(opts.DrawPerSecond), opts.DrawBurst),
	}
}

// GetPlayerID returns the player ID bound to the connection
func (c *Client) GetPlayerID() string {
	return c.playerID
}

// GetResumeToken returns the token that proves ownership of the player ID
func (c *Client) GetResumeToken() string {
	return c.token
}

// rekey gives the connection a fresh identity after it claimed a seat it
// could not prove it owns
func (c *Client) rekey() {
	previous := c.playerID
	c.playerID = uuid.NewString()
	c.token = uuid.NewString()
	c.logger = c.base.With(zap.String("playerId", c.playerID))
	c.logger.Info("player id reassigned", zap.String("claimedId", previous))
}

// Send queues message for the write pump. A full queue drops the message.
func (c *Client) Send(message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	select {
	case c.send <- data:
		return nil
	default:
		c.logger.Warn("send buffer full, message dropped")
		return nil
	}
}

// Close closes the socket, which ends both pumps
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	c.closed = true
	close(c.done)
	return c.conn.Close()
}

// Run blocks until the connection is gone
func (c *Client) Run() {
	go c.writePump()
	c.readPump()
}

func (c *Client) readPump() {
	defer func() {
		if c.session != nil {
			if err := c.session.Disconnect(c.playerID, c); err != nil && !errors.Is(err, domain.ErrRoomClosed) {
				c.logger.Debug("disconnect failed", zap.Error(err))
			}
			c.session = nil
		}
		c.Close()
	}()

	c.conn.SetReadLimit(c.opts.MaxMessageBytes)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Debug("websocket read error", zap.Error(err))
			}
			break
		}

		c.handleMessage(message)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(data []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError(ErrCodeInvalidMessage, "Invalid message format")
		return
	}

	if eventType, ok := relayed[msg.Type]; ok {
		c.handleRelay(eventType, msg.Payload)
		return
	}

	switch msg.Type {
	case MsgCreateRoom:
		c.handleCreateRoom(msg.Payload)
	case MsgJoinRoom:
		c.handleJoinRoom(msg.Payload)
	case MsgUpdateSettings:
		c.handleUpdateSettings(msg.Payload)
	case MsgStartGame:
		c.handleStartGame()
	case MsgSelectWord:
		c.handleSelectWord(msg.Payload)
	case MsgChat:
		c.handleChat(msg.Payload)
	case MsgPing:
		c.sendPong()
	default:
		c.sendError(ErrCodeInvalidMessage, "Unknown message type")
	}
}

func (c *Client) handleCreateRoom(raw json.RawMessage) {
	payload, err := decodePayload[CreateRoomPayload](raw)
	if err != nil {
		c.sendError(ErrCodeInvalidMessage, "Invalid payload")
		return
	}

	c.leaveRoom()

	session, err := c.rooms.CreateRoom(c, payload.Name, payload.Avatar)
	if err != nil {
		c.reportError("createRoom", err)
		return
	}
	c.session = session
}

func (c *Client) handleJoinRoom(raw json.RawMessage) {
	payload, err := decodePayload[JoinRoomPayload](raw)
	if err != nil {
		c.sendError(ErrCodeInvalidMessage, "Invalid payload")
		return
	}

	code := app.NormalizeRoomCode(payload.Code)
	if code == "" {
		c.sendError(ErrCodeRoomNotFound, "Room not found")
		return
	}

	if c.session != nil && c.session.GetRoomCode() != code {
		c.leaveRoom()
	}

	session, err := c.rooms.JoinRoom(code, c, payload.Name, payload.Avatar)
	if errors.Is(err, domain.ErrSeatTaken) {
		c.rekey()
		session, err = c.rooms.JoinRoom(code, c, payload.Name, payload.Avatar)
	}
	if err != nil {
		c.reportError("joinRoom", err)
		return
	}
	c.session = session
}

func (c *Client) handleUpdateSettings(raw json.RawMessage) {
	payload, err := decodePayload[UpdateSettingsPayload](raw)
	if err != nil {
		c.sendError(ErrCodeInvalidMessage, "Invalid payload")
		return
	}

	c.inRoom("updateSettings", func(s *app.RoomSession) error {
		return s.UpdateSettings(c.playerID, payload.Rounds, payload.DrawTime)
	})
}

func (c *Client) handleStartGame() {
	c.inRoom("startGame", func(s *app.RoomSession) error {
		return s.StartGame(c.playerID)
	})
}

func (c *Client) handleSelectWord(raw json.RawMessage) {
	payload, err := decodePayload[SelectWordPayload](raw)
	if err != nil {
		c.sendError(ErrCodeInvalidMessage, "Invalid payload")
		return
	}

	c.inRoom("selectWord", func(s *app.RoomSession) error {
		return s.SelectWord(c.playerID, payload.Word)
	})
}

func (c *Client) handleChat(raw json.RawMessage) {
	payload, err := decodePayload[ChatPayload](raw)
	if err != nil {
		c.sendError(ErrCodeInvalidMessage, "Invalid payload")
		return
	}

	if !c.chatLimiter.Allow() {
		c.sendError(ErrCodeRateLimited, "You are sending messages too fast")
		return
	}

	c.inRoom("chat", func(s *app.RoomSession) error {
		return s.Chat(c.playerID, payload.Message)
	})
}

// handleRelay forwards drawing data from the drawer
func (c *Client) handleRelay(eventType domain.EventType, raw json.RawMessage) {
	if !c.drawLimiter.Allow() {
		c.logger.Debug("drawing event rate limited", zap.String("type", string(eventType)))
		return
	}

	c.inRoom(string(eventType), func(s *app.RoomSession) error {
		return s.Relay(c.playerID, eventType, raw)
	})
}

// inRoom runs op against the client's room. Messages sent outside a room are ignored.
func (c *Client) inRoom(op string, fn func(s *app.RoomSession) error) {
	if c.session == nil {
		c.logger.Debug("message outside a room ignored", zap.String("op", op))
		return
	}

	if err := fn(c.session); err != nil {
		if errors.Is(err, domain.ErrRoomClosed) || errors.Is(err, app.ErrRoomFailed) {
			c.session = nil
		}
		c.reportError(op, err)
	}
}

// leaveRoom leaves the current room, if any
func (c *Client) leaveRoom() {
	if c.session == nil {
		return
	}

	if err := c.session.Leave(c.playerID); err != nil && !errors.Is(err, domain.ErrRoomClosed) {
		c.logger.Debug("leave failed", zap.Error(err))
	}
	c.session = nil
}

// reportError maps a room error to an error message. Errors caused by stale
// or unauthorised actions are dropped.
func (c *Client) reportError(op string, err error) {
	switch {
	case errors.Is(err, domain.ErrRoomNotFound), errors.Is(err, domain.ErrRoomClosed):
		c.sendError(ErrCodeRoomNotFound, "Room not found")
	case errors.Is(err, domain.ErrRoomFull):
		c.sendError(ErrCodeRoomFull, "Room is full")
	case errors.Is(err, domain.ErrInsufficientPlayers):
		c.sendError(ErrCodeInsufficientPlayers, "Need at least 2 players to start")
	case domain.IsSilent(err), errors.Is(err, domain.ErrEmptyMessage), errors.Is(err, domain.ErrPlayerNotFound):
		c.logger.Debug("action ignored", zap.String("op", op), zap.Error(err))
	default:
		c.logger.Warn("action failed", zap.String("op", op), zap.Error(err))
		c.sendError(ErrCodeInternalError, "Something went wrong")
	}
}

func (c *Client) sendError(code, message string) {
	_ = c.Send(NewServerMessage(MsgError, &ErrorPayload{Code: code, Message: message}))
}

func (c *Client) sendPong() {
	_ = c.Send(NewServerMessage(MsgPong, nil))
}

// decodePayload decodes a message payload. A missing payload decodes to the zero value.
func decodePayload[T any](raw json.RawMessage) (T, error) {
	var payload T
	if len(raw) == 0 || string(raw) == "null" {
		return payload, nil
	}
	err := json.Unmarshal(raw, &payload)
	return payload, err
}
