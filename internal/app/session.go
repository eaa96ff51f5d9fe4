package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/sasha-s/go-deadlock"
	"go.uber.org/zap"

	"sketchguess/internal/domain"
	"sketchguess/internal/words"
)

// ErrRoomFailed is returned when a room operation panicked and the room was torn down
var ErrRoomFailed = errors.New("room failed")

// ErrNotRelayable is returned for drawing events the server does not relay
var ErrNotRelayable = errors.New("event cannot be relayed")

// Timing holds the fixed delays of the game loop
type Timing struct {
	PickTimeout   time.Duration
	TurnEndGrace  time.Duration
	RoundEndDelay time.Duration
	TickInterval  time.Duration
	WordChoices   int
}

// DefaultTiming returns the standard game loop delays
func DefaultTiming() Timing {
	return Timing{
		PickTimeout:   15 * time.Second,
		TurnEndGrace:  1500 * time.Millisecond,
		RoundEndDelay: 4 * time.Second,
		TickInterval:  time.Second,
		WordChoices:   3,
	}
}

// SessionDeps are the collaborators of a RoomSession
type SessionDeps struct {
	Members    Membership
	Words      words.Provider
	Clock      Clock
	Rand       *rand.Rand
	Logger     *zap.Logger
	OnTeardown func(code string)
}

// RoomSession owns one room: its state, its timers and its members. Every
// operation and every timer callback runs under the session lock, so at most
// one mutation of a room is in flight at a time.
type RoomSession struct {
	room    *domain.Room
	mu      deadlock.Mutex
	members Membership
	words   words.Provider
	clock   Clock
	rng     *rand.Rand
	timing  Timing
	timers  *turnTimers
	logger  *zap.Logger

	onTeardown   func(code string)
	closed       bool
	released     bool
	lastActivity time.Time
}

// NewRoomSession creates a session around a fresh room
func NewRoomSession(code string, limits domain.Limits, timing Timing, deps SessionDeps) *RoomSession {
	if deps.Clock == nil {
		deps.Clock = RealClock()
	}
	if deps.Rand == nil {
		deps.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	room := domain.NewRoom(code, domain.DefaultSettings(), limits)
	room.CreatedAt = deps.Clock.Now()

	return &RoomSession{
		room:         room,
		members:      deps.Members,
		words:        deps.Words,
		clock:        deps.Clock,
		rng:          deps.Rand,
		timing:       timing,
		timers:       newTurnTimers(),
		logger:       deps.Logger.With(zap.String("roomCode", code)),
		onTeardown:   deps.OnTeardown,
		lastActivity: room.CreatedAt,
	}
}

// GetRoomCode returns the room code
func (s *RoomSession) GetRoomCode() string {
	return s.room.Code
}

// GetCreatedAt returns when the room was created
func (s *RoomSession) GetCreatedAt() time.Time {
	return s.room.CreatedAt
}

// GetLastActivity returns when the room last handled an operation
func (s *RoomSession) GetLastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// GetPlayerCount returns the number of players
func (s *RoomSession) GetPlayerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.room.Players)
}

// GetState returns the current room state
func (s *RoomSession) GetState() domain.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room.State
}

// CanJoin checks if a new player fits in the room
func (s *RoomSession) CanJoin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed && len(s.room.Players) < s.room.Limits.MaxPlayers
}

// Summary is the public description of a room
type Summary struct {
	Code        string          `json:"code"`
	State       domain.Phase    `json:"state"`
	PlayerCount int             `json:"playerCount"`
	MaxPlayers  int             `json:"maxPlayers"`
	Settings    domain.Settings `json:"settings"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// GetSummary returns the public description of the room
func (s *RoomSession) GetSummary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Summary{
		Code:        s.room.Code,
		State:       s.room.State,
		PlayerCount: len(s.room.Players),
		MaxPlayers:  s.room.Limits.MaxPlayers,
		Settings:    s.room.Settings,
		CreatedAt:   s.room.CreatedAt,
	}
}

// Join adds a player to the room. Joining again with a known player ID and
// its resume token rebinds the connection and replays the room snapshot.
func (s *RoomSession) Join(client ClientConnection, name string, avatar domain.Avatar) error {
	return s.guard("join", func() error {
		return s.join(client, name, avatar, domain.EventRoomJoined)
	})
}

// Disconnect removes the player bound to client. It is a no-op when the
// player has since reconnected on another connection.
func (s *RoomSession) Disconnect(playerID string, client ClientConnection) error {
	return s.guard("disconnect", func() error {
		if !s.members.Unregister(playerID, client) {
			return nil
		}
		return s.leave(playerID)
	})
}

// Leave removes a player regardless of which connection it is bound to
func (s *RoomSession) Leave(playerID string) error {
	return s.guard("leave", func() error {
		s.members.Unregister(playerID, nil)
		return s.leave(playerID)
	})
}

// UpdateSettings changes rounds and draw time (host only)
func (s *RoomSession) UpdateSettings(playerID string, rounds, drawTime int) error {
	return s.guard("updateSettings", func() error {
		if err := s.room.UpdateSettings(playerID, rounds, drawTime); err != nil {
			return err
		}

		s.logger.Debug("settings updated",
			zap.Int("rounds", s.room.Settings.Rounds),
			zap.Int("drawTime", s.room.Settings.DrawTime))
		s.members.SendAll(s.event(domain.EventSettingsUpdated, s.room.Settings))
		return nil
	})
}

// StartGame starts the first round (host only)
func (s *RoomSession) StartGame(playerID string) error {
	return s.guard("startGame", func() error {
		if err := s.room.StartGame(playerID); err != nil {
			return err
		}

		s.logger.Info("game started",
			zap.Int("players", len(s.room.Players)),
			zap.Int("rounds", s.room.Settings.Rounds))
		s.startTurn()
		return nil
	})
}

// SelectWord picks one of the offered words (drawer only)
func (s *RoomSession) SelectWord(playerID, word string) error {
	return s.guard("selectWord", func() error {
		if err := s.room.SelectWord(playerID, word); err != nil {
			return err
		}
		s.beginDrawing()
		return nil
	})
}

// Chat handles a chat line, which doubles as a guess while drawing
func (s *RoomSession) Chat(playerID, text string) error {
	return s.guard("chat", func() error {
		res, err := s.room.SubmitChat(playerID, text)
		if err != nil {
			return err
		}

		switch res.Kind {
		case domain.GuessChat:
			s.members.SendAll(s.chatEvent(domain.ChatMessage, res.Player, res.Message))

		case domain.GuessClose:
			s.members.SendTo(playerID, s.chatEvent(domain.ChatClose, nil, fmt.Sprintf("\"%s\" is close!", res.Message)))

		case domain.GuessSolverChat:
			event := s.chatEvent(domain.ChatGuessed, res.Player, res.Message)
			s.members.SendTo(s.room.CurrentDrawer, event)
			for id := range s.room.GuessedPlayers {
				s.members.SendTo(id, event)
			}

		case domain.GuessCorrect:
			s.logger.Debug("word guessed",
				zap.String("playerId", playerID),
				zap.Int("points", res.Points),
				zap.Int("drawerBonus", res.DrawerBonus))
			s.members.SendAll(s.event(domain.EventCorrectGuess, &domain.CorrectGuessPayload{
				PlayerID:   res.Player.ID,
				PlayerName: res.Player.Name,
				Points:     res.Points,
				Players:    s.room.PlayerInfos(),
			}))
			if res.AllGuessed {
				s.scheduleGraceEnd()
			}
		}

		return nil
	})
}

// Relay forwards a drawing event from the drawer to everyone else. The
// payload is passed through untouched.
func (s *RoomSession) Relay(playerID string, eventType domain.EventType, payload json.RawMessage) error {
	switch eventType {
	case domain.EventDraw, domain.EventClearCanvas, domain.EventUndoStroke, domain.EventFill:
	default:
		return fmt.Errorf("%w: %s", ErrNotRelayable, eventType)
	}

	return s.guard(string(eventType), func() error {
		if !s.room.IsDrawer(playerID) {
			return domain.ErrNotDrawer
		}
		if s.room.State != domain.PhaseDrawing && s.room.State != domain.PhasePicking {
			return domain.ErrInvalidPhase
		}

		var body interface{}
		if len(payload) > 0 {
			body = payload
		}
		s.members.SendAllExcept(playerID, s.event(eventType, body))
		return nil
	})
}

// Close stops all timers and closes every member connection
func (s *RoomSession) Close() {
	s.mu.Lock()
	s.closed = true
	s.released = true
	s.timers.stopAll()
	s.mu.Unlock()

	s.members.Close()
}

// guard runs fn under the session lock. A panic tears the room down
// instead of crashing the process, and an emptied room is released once
// the lock is dropped.
func (s *RoomSession) guard(op string, fn func() error) (err error) {
	release := false

	func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("room operation panicked",
					zap.String("op", op),
					zap.Any("panic", r),
					zap.Stack("stack"))
				s.timers.stopAll()
				s.closed = true
				err = ErrRoomFailed
			}

			if s.closed && !s.released {
				s.released = true
				release = true
			}
		}()

		if s.closed {
			err = domain.ErrRoomClosed
			return
		}

		s.lastActivity = s.clock.Now()
		err = fn()
	}()

	if release && s.onTeardown != nil {
		s.onTeardown(s.room.Code)
	}

	return err
}

// schedule runs fn after d unless the timer was stopped or replaced first
func (s *RoomSession) schedule(name string, d time.Duration, fn func()) {
	var timer Timer
	timer = s.clock.AfterFunc(d, func() {
		_ = s.guard("timer:"+name, func() error {
			if !s.timers.owns(name, timer) {
				return nil
			}
			s.timers.done(name)
			fn()
			return nil
		})
	})
	s.timers.set(name, timer)
}

// every runs fn each d until the timer set is stopped
func (s *RoomSession) every(name string, d time.Duration, fn func()) {
	s.schedule(name, d, func() {
		s.every(name, d, fn)
		fn()
	})
}

func (s *RoomSession) join(client ClientConnection, name string, avatar domain.Avatar, confirm domain.EventType) error {
	candidate := domain.NewPlayer(client.GetPlayerID(), name, avatar)
	candidate.ResumeToken = client.GetResumeToken()

	player, existing, err := s.room.AddPlayer(candidate)
	if err != nil {
		if errors.Is(err, domain.ErrSeatTaken) {
			s.logger.Warn("rejoin without a valid resume token", zap.String("playerId", candidate.ID))
		}
		return err
	}

	if previous := s.members.Register(player.ID, client); previous != nil {
		s.logger.Debug("replacing player connection", zap.String("playerId", player.ID))
		previous.Close()
	}

	s.members.SendTo(player.ID, s.event(confirm, s.snapshotFor(player.ID)))

	if existing {
		s.logger.Info("player rejoined", zap.String("playerId", player.ID))
		if s.room.State == domain.PhasePicking && s.room.IsDrawer(player.ID) {
			s.members.SendTo(player.ID, s.event(domain.EventWordChoices, &domain.WordChoicesPayload{Words: s.room.WordChoices}))
		}
		return nil
	}

	s.logger.Info("player joined",
		zap.String("playerId", player.ID),
		zap.String("name", player.Name),
		zap.Int("players", len(s.room.Players)))
	s.members.SendAllExcept(player.ID, s.event(domain.EventPlayerJoined, &domain.PlayerJoinedPayload{
		Player:  player.ToInfo(),
		Players: s.room.PlayerInfos(),
	}))

	return nil
}

func (s *RoomSession) leave(playerID string) error {
	dep, err := s.room.RemovePlayer(playerID)
	if err != nil {
		return err
	}

	s.logger.Info("player left",
		zap.String("playerId", playerID),
		zap.Int("players", len(s.room.Players)))

	if dep.Empty {
		s.timers.stopAll()
		s.closed = true
		return nil
	}

	if dep.NewHostID != "" {
		s.members.SendTo(dep.NewHostID, s.event(domain.EventBecameHost, nil))
	}

	s.members.SendAll(s.event(domain.EventPlayerLeft, &domain.PlayerLeftPayload{
		PlayerID:   playerID,
		PlayerName: dep.Player.Name,
		HostID:     s.room.HostID,
		Players:    s.room.PlayerInfos(),
	}))

	switch {
	case s.room.State.IsActive() && len(s.room.Players) < s.room.Limits.MinPlayers:
		s.abortGame("Not enough players to continue.")
	case dep.WasDrawer && (s.room.State == domain.PhasePicking || s.room.State == domain.PhaseDrawing):
		s.endTurn()
	case s.room.AllGuessed():
		s.scheduleGraceEnd()
	}

	return nil
}

func (s *RoomSession) snapshotFor(playerID string) *domain.RoomPayload {
	payload := &domain.RoomPayload{
		Code:     s.room.Code,
		PlayerID: playerID,
		IsHost:   s.room.IsHost(playerID),
		Players:  s.room.PlayerInfos(),
		Settings: s.room.Settings,
	}

	if player, err := s.room.GetPlayer(playerID); err == nil {
		payload.ResumeToken = player.ResumeToken
	}

	if s.room.State != domain.PhaseWaiting {
		payload.Game = s.room.GameState()
	}
	if s.room.State == domain.PhaseDrawing && s.room.IsDrawer(playerID) {
		payload.Word = s.room.CurrentWord
	}

	return payload
}

func (s *RoomSession) startTurn() {
	s.timers.stopAll()

	drawer, ok, err := s.room.BeginTurn()
	if err != nil {
		s.logger.Error("failed to begin turn", zap.Error(err))
		return
	}
	if !ok {
		s.endGame()
		return
	}

	choices := s.words.Choose(s.rng, s.timing.WordChoices, s.room.UsedWords)
	if err := s.room.OfferWords(choices); err != nil {
		s.logger.Error("failed to offer words", zap.Error(err))
		return
	}

	s.logger.Debug("turn started",
		zap.String("drawerId", drawer.ID),
		zap.Int("round", s.room.CurrentRound))

	s.members.SendTo(drawer.ID, s.event(domain.EventWordChoices, &domain.WordChoicesPayload{Words: s.room.WordChoices}))
	s.members.SendAll(s.event(domain.EventGameState, s.room.GameState()))

	if len(choices) == 0 {
		s.logger.Warn("vocabulary exhausted, skipping turn")
		s.endTurn()
		return
	}

	s.schedule(timerPick, s.timing.PickTimeout, s.autoPick)
}

func (s *RoomSession) autoPick() {
	drawerID := s.room.CurrentDrawer

	if _, err := s.room.AutoSelectWord(s.rng); err != nil {
		s.logger.Debug("auto pick skipped", zap.Error(err))
		return
	}

	s.logger.Debug("word picked automatically", zap.String("drawerId", drawerID))
	s.members.SendTo(drawerID, s.event(domain.EventWordChoices, &domain.WordChoicesPayload{Words: []string{}}))
	s.beginDrawing()
}

func (s *RoomSession) beginDrawing() {
	s.timers.stopAll()

	s.members.SendTo(s.room.CurrentDrawer, s.event(domain.EventCurrentWord, &domain.CurrentWordPayload{Word: s.room.CurrentWord}))
	s.members.SendAll(s.event(domain.EventGameState, s.room.GameState()))

	s.every(timerTick, s.timing.TickInterval, s.tick)
	s.every(timerHint, s.room.HintInterval(), s.revealHint)
}

func (s *RoomSession) tick() {
	timeLeft, expired, err := s.room.Tick()
	if err != nil {
		return
	}

	s.members.SendAll(s.event(domain.EventTimer, &domain.TimerPayload{TimeLeft: timeLeft}))

	if expired {
		s.endTurn()
	}
}

func (s *RoomSession) revealHint() {
	if hint, ok := s.room.RevealLetter(s.rng); ok {
		s.members.SendAll(s.event(domain.EventHint, &domain.HintPayload{Hint: hint}))
	}
}

func (s *RoomSession) scheduleGraceEnd() {
	if s.timers.has(timerGrace) {
		return
	}
	s.schedule(timerGrace, s.timing.TurnEndGrace, func() {
		if s.room.State == domain.PhaseDrawing {
			s.endTurn()
		}
	})
}

func (s *RoomSession) endTurn() {
	s.timers.stopAll()

	word, err := s.room.EndTurn()
	if err != nil {
		s.logger.Debug("end turn skipped", zap.Error(err))
		return
	}

	s.members.SendAll(s.event(domain.EventTurnEnd, &domain.TurnEndPayload{
		Word:    word,
		Players: s.room.PlayerInfos(),
	}))

	s.schedule(timerAdvance, s.timing.RoundEndDelay, s.advance)
}

func (s *RoomSession) advance() {
	if s.room.State != domain.PhaseRoundEnd {
		return
	}

	if !s.room.AdvanceTurn() {
		s.endGame()
		return
	}

	s.startTurn()
}

func (s *RoomSession) endGame() {
	s.timers.stopAll()

	rankings, err := s.room.EndGame()
	if err != nil {
		s.logger.Error("failed to end game", zap.Error(err))
		s.room.Reset()
		return
	}

	s.logger.Info("game over", zap.Int("players", len(rankings)))
	s.members.SendAll(s.event(domain.EventGameOver, &domain.GameOverPayload{Rankings: rankings}))

	s.room.Reset()
}

func (s *RoomSession) abortGame(reason string) {
	s.timers.stopAll()
	s.room.Reset()

	s.logger.Info("game aborted", zap.String("reason", reason))
	s.members.SendAll(s.chatEvent(domain.ChatSystem, nil, reason))
	s.members.SendAll(s.event(domain.EventGameState, s.room.GameState()))
}

func (s *RoomSession) event(eventType domain.EventType, payload interface{}) *domain.GameEvent {
	return domain.NewEvent(eventType, s.room.Code, payload)
}

func (s *RoomSession) chatEvent(kind domain.ChatKind, player *domain.Player, message string) *domain.GameEvent {
	payload := &domain.ChatMessagePayload{Type: kind, Message: message}
	if player != nil {
		payload.PlayerID = player.ID
		payload.PlayerName = player.Name
	}
	return s.event(domain.EventChatMessage, payload)
}
