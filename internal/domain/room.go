package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// MaxChatLength is the longest chat line kept, in runes
	MaxChatLength = 200
)

// Limits bounds the number of players in a room
type Limits struct {
	MinPlayers int
	MaxPlayers int
}

// DefaultLimits returns the default player limits
func DefaultLimits() Limits {
	return Limits{MinPlayers: 2, MaxPlayers: 8}
}

// Rand is the source of randomness used for auto-picks and hint reveals
type Rand interface {
	IntN(n int) int
}

// Room holds the state of one game room. It is not safe for concurrent use;
// callers serialise access per room.
type Room struct {
	Code     string
	HostID   string
	Players  []*Player // join order
	State    Phase
	Settings Settings
	Limits   Limits

	CurrentRound      int
	TurnOrder         []string
	CurrentTurnIndex  int
	CurrentDrawer     string
	CurrentWord       string
	WordChoices       []string
	UsedWords         map[string]struct{}
	RevealedPositions map[int]struct{}
	GuessedPlayers    map[string]struct{}
	TimeLeft          int

	CreatedAt time.Time
}

// NewRoom creates an empty room in the waiting state
func NewRoom(code string, settings Settings, limits Limits) *Room {
	return &Room{
		Code:              code,
		Players:           make([]*Player, 0, limits.MaxPlayers),
		State:             PhaseWaiting,
		Settings:          settings,
		Limits:            limits,
		UsedWords:         make(map[string]struct{}),
		RevealedPositions: make(map[int]struct{}),
		GuessedPlayers:    make(map[string]struct{}),
		CreatedAt:         time.Now(),
	}
}

// AddPlayer appends a player. Adding a player whose ID is already present
// returns the existing entry and existing=true, provided player carries the
// seat's resume token.
func (r *Room) AddPlayer(player *Player) (p *Player, existing bool, err error) {
	if current := r.findPlayer(player.ID); current != nil {
		if !current.CanResume(player.ResumeToken) {
			return nil, false, ErrSeatTaken
		}
		return current, true, nil
	}

	if len(r.Players) >= r.Limits.MaxPlayers {
		return nil, false, ErrRoomFull
	}

	player.IsHost = false
	if r.HostID == "" {
		r.HostID = player.ID
		player.IsHost = true
	}

	r.Players = append(r.Players, player)

	return player, false, nil
}

// Departure describes what changed when a player left
type Departure struct {
	Player    *Player
	NewHostID string // empty unless the host left and was replaced
	WasDrawer bool
	Empty     bool
}

// RemovePlayer removes a player, promoting the oldest remaining player to
// host when the host leaves.
func (r *Room) RemovePlayer(playerID string) (Departure, error) {
	idx := r.playerIndex(playerID)
	if idx == -1 {
		return Departure{}, ErrPlayerNotFound
	}

	player := r.Players[idx]
	r.Players = append(r.Players[:idx], r.Players[idx+1:]...)
	delete(r.GuessedPlayers, playerID)

	dep := Departure{Player: player}

	if r.CurrentDrawer == playerID {
		dep.WasDrawer = true
		r.CurrentDrawer = ""
	}

	if len(r.Players) == 0 {
		r.HostID = ""
		dep.Empty = true
		return dep, nil
	}

	if r.HostID == playerID {
		next := r.Players[0]
		next.IsHost = true
		r.HostID = next.ID
		dep.NewHostID = next.ID
	}

	return dep, nil
}

// GetPlayer returns a player by ID
func (r *Room) GetPlayer(playerID string) (*Player, error) {
	player := r.findPlayer(playerID)
	if player == nil {
		return nil, ErrPlayerNotFound
	}
	return player, nil
}

// IsHost checks if the given player is the host
func (r *Room) IsHost(playerID string) bool {
	return playerID != "" && r.HostID == playerID
}

// IsDrawer checks if the given player is the current drawer
func (r *Room) IsDrawer(playerID string) bool {
	return playerID != "" && r.CurrentDrawer == playerID
}

// UpdateSettings clamps and stores new settings (host only)
func (r *Room) UpdateSettings(playerID string, rounds, drawTime int) error {
	if !r.IsHost(playerID) {
		return ErrNotHost
	}

	r.Settings = NewSettings(rounds, drawTime)
	return nil
}

// StartGame resets scores and enters the first round (host only)
func (r *Room) StartGame(playerID string) error {
	if !r.IsHost(playerID) {
		return ErrNotHost
	}

	if r.State != PhaseWaiting {
		return ErrInvalidPhase
	}

	if len(r.Players) < r.Limits.MinPlayers {
		return ErrInsufficientPlayers
	}

	r.resetGame()
	for _, p := range r.Players {
		p.ResetForGame()
	}

	r.CurrentRound = 1
	r.CurrentTurnIndex = 0
	r.TurnOrder = r.playerIDs()

	return r.transition(PhasePicking)
}

// BeginTurn resolves the drawer at the current turn index, skipping players
// who have left, and enters picking. It returns false when the game is over.
func (r *Room) BeginTurn() (*Player, bool, error) {
	if r.State != PhasePicking && r.State != PhaseRoundEnd {
		return nil, false, ErrInvalidPhase
	}

	for {
		if r.CurrentTurnIndex < len(r.TurnOrder) {
			if drawer := r.findPlayer(r.TurnOrder[r.CurrentTurnIndex]); drawer != nil {
				r.setupTurn(drawer)
				if r.State != PhasePicking {
					if err := r.transition(PhasePicking); err != nil {
						return nil, false, err
					}
				}
				return drawer, true, nil
			}
		}

		if !r.AdvanceTurn() {
			return nil, false, nil
		}
	}
}

// AdvanceTurn moves to the next turn index. At the end of the turn order a
// new round starts with a turn order rebuilt from the live roster. It returns
// false once the last round is complete.
func (r *Room) AdvanceTurn() bool {
	r.CurrentTurnIndex++

	if r.CurrentTurnIndex >= len(r.TurnOrder) {
		r.CurrentTurnIndex = 0
		r.CurrentRound++

		if r.CurrentRound > r.Settings.Rounds {
			return false
		}

		r.TurnOrder = r.playerIDs()
	}

	return true
}

func (r *Room) setupTurn(drawer *Player) {
	for _, p := range r.Players {
		p.ResetForTurn()
	}

	r.GuessedPlayers = make(map[string]struct{})
	r.RevealedPositions = make(map[int]struct{})
	r.CurrentWord = ""
	r.WordChoices = nil
	r.TimeLeft = 0

	r.CurrentDrawer = drawer.ID
	drawer.IsDrawing = true
}

// OfferWords records the words offered to the drawer
func (r *Room) OfferWords(words []string) error {
	if r.State != PhasePicking {
		return ErrInvalidPhase
	}

	r.WordChoices = make([]string, 0, len(words))
	for _, w := range words {
		r.WordChoices = append(r.WordChoices, strings.ToLower(w))
	}
	return nil
}

// SelectWord starts the drawing phase with one of the offered words
func (r *Room) SelectWord(playerID, word string) error {
	if !r.IsDrawer(playerID) {
		return ErrNotDrawer
	}

	if r.State != PhasePicking {
		return ErrInvalidPhase
	}

	word = strings.ToLower(strings.TrimSpace(word))
	if !r.wasOffered(word) {
		return ErrWordNotOffered
	}

	r.CurrentWord = word
	r.UsedWords[word] = struct{}{}
	r.WordChoices = nil
	r.GuessedPlayers = make(map[string]struct{})
	r.RevealedPositions = make(map[int]struct{})
	r.TimeLeft = r.Settings.DrawTime

	return r.transition(PhaseDrawing)
}

// AutoSelectWord picks one of the offered words uniformly at random
func (r *Room) AutoSelectWord(rng Rand) (string, error) {
	if r.State != PhasePicking || len(r.WordChoices) == 0 {
		return "", ErrInvalidPhase
	}

	word := r.WordChoices[rng.IntN(len(r.WordChoices))]
	return word, r.SelectWord(r.CurrentDrawer, word)
}

func (r *Room) wasOffered(word string) bool {
	for _, w := range r.WordChoices {
		if w == word {
			return true
		}
	}
	return false
}

// GuessKind classifies a handled chat line
type GuessKind int

const (
	GuessChat       GuessKind = iota // Broadcast as regular chat
	GuessCorrect                     // Solved the word
	GuessClose                       // Private close-guess feedback
	GuessSolverChat                  // Chat among the drawer and solvers
	GuessDropped                     // Drawer chatting while drawing
)

// GuessResult is the outcome of a chat line
type GuessResult struct {
	Kind        GuessKind
	Player      *Player
	Message     string
	Points      int
	DrawerBonus int
	AllGuessed  bool
}

// SubmitChat handles a chat line. While drawing, lines from players who have
// not solved the word yet are treated as guesses.
func (r *Room) SubmitChat(playerID, text string) (GuessResult, error) {
	player := r.findPlayer(playerID)
	if player == nil {
		return GuessResult{}, ErrPlayerNotFound
	}

	message := normalizeMessage(text)
	if message == "" {
		return GuessResult{}, ErrEmptyMessage
	}

	res := GuessResult{Kind: GuessChat, Player: player, Message: message}

	if r.State != PhaseDrawing || r.CurrentWord == "" {
		return res, nil
	}

	if r.IsDrawer(playerID) {
		res.Kind = GuessDropped
		return res, nil
	}

	if _, solved := r.GuessedPlayers[playerID]; solved {
		res.Kind = GuessSolverChat
		return res, nil
	}

	guess := strings.ToLower(message)
	switch {
	case guess == r.CurrentWord:
		r.awardGuess(player, &res)
	case IsCloseGuess(guess, r.CurrentWord):
		res.Kind = GuessClose
	}

	return res, nil
}

func (r *Room) awardGuess(player *Player, res *GuessResult) {
	r.GuessedPlayers[player.ID] = struct{}{}
	player.GuessedCorrectly = true

	order := len(r.GuessedPlayers)
	res.Kind = GuessCorrect
	res.Points = GuesserScore(r.TimeLeft, r.Settings.DrawTime, order, r.NonDrawerCount())
	player.Score += res.Points

	if drawer := r.findPlayer(r.CurrentDrawer); drawer != nil {
		res.DrawerBonus = DrawerBonus(r.TimeLeft, r.Settings.DrawTime)
		drawer.Score += res.DrawerBonus
	}

	res.AllGuessed = r.AllGuessed()
}

// NonDrawerCount returns the number of players who are not drawing
func (r *Room) NonDrawerCount() int {
	count := 0
	for _, p := range r.Players {
		if p.ID != r.CurrentDrawer {
			count++
		}
	}
	return count
}

// AllGuessed reports whether every non-drawing player solved the word
func (r *Room) AllGuessed() bool {
	if r.State != PhaseDrawing {
		return false
	}
	nonDrawers := r.NonDrawerCount()
	return nonDrawers > 0 && len(r.GuessedPlayers) >= nonDrawers
}

// Tick decrements the countdown. expired is true once time ran out.
func (r *Room) Tick() (timeLeft int, expired bool, err error) {
	if r.State != PhaseDrawing {
		return 0, false, ErrInvalidPhase
	}

	r.TimeLeft--
	return r.TimeLeft, r.TimeLeft <= 0, nil
}

// RevealLetter discloses one random hidden letter. It never reveals the last
// hidden letter and returns false when nothing was revealed.
func (r *Room) RevealLetter(rng Rand) (string, bool) {
	if r.State != PhaseDrawing || r.CurrentWord == "" {
		return "", false
	}

	hidden := UnrevealedPositions(r.CurrentWord, r.RevealedPositions)
	if len(hidden) <= 1 {
		return "", false
	}

	r.RevealedPositions[hidden[rng.IntN(len(hidden))]] = struct{}{}
	return r.Hint(), true
}

// Hint returns the masked word for guessers
func (r *Room) Hint() string {
	return FormatHint(r.CurrentWord, r.RevealedPositions)
}

// HintInterval returns the delay between two letter reveals for the current word
func (r *Room) HintInterval() time.Duration {
	return HintInterval(r.Settings.DrawTime, r.CurrentWord)
}

// EndTurn leaves picking or drawing and returns the word to reveal
func (r *Room) EndTurn() (string, error) {
	if r.State != PhasePicking && r.State != PhaseDrawing {
		return "", ErrInvalidPhase
	}

	word := r.CurrentWord
	r.CurrentWord = ""
	r.WordChoices = nil
	r.RevealedPositions = make(map[int]struct{})

	return word, r.transition(PhaseRoundEnd)
}

// EndGame enters gameOver and returns the final rankings
func (r *Room) EndGame() ([]Ranking, error) {
	if err := r.transition(PhaseGameOver); err != nil {
		return nil, err
	}
	return r.Rankings(), nil
}

// Reset returns the room to waiting and clears every per-game counter
func (r *Room) Reset() {
	r.resetGame()
	for _, p := range r.Players {
		p.ResetForTurn()
	}
	r.State = PhaseWaiting
}

func (r *Room) resetGame() {
	r.CurrentRound = 0
	r.CurrentTurnIndex = 0
	r.TurnOrder = nil
	r.CurrentDrawer = ""
	r.CurrentWord = ""
	r.WordChoices = nil
	r.UsedWords = make(map[string]struct{})
	r.RevealedPositions = make(map[int]struct{})
	r.GuessedPlayers = make(map[string]struct{})
	r.TimeLeft = 0
}

// Rankings sorts players by score, highest first, keeping join order on ties
func (r *Room) Rankings() []Ranking {
	players := r.PlayerInfos()
	sort.SliceStable(players, func(i, j int) bool {
		return players[i].Score > players[j].Score
	})

	rankings := make([]Ranking, len(players))
	for i, p := range players {
		rankings[i] = Ranking{PlayerInfo: p, Rank: i + 1}
	}
	return rankings
}

// PlayerInfos returns value copies of all players in join order
func (r *Room) PlayerInfos() []PlayerInfo {
	players := make([]PlayerInfo, 0, len(r.Players))
	for _, p := range r.Players {
		players = append(players, p.ToInfo())
	}
	return players
}

// GameState returns the public state snapshot. It never includes the word.
func (r *Room) GameState() *GameStatePayload {
	state := &GameStatePayload{
		State:       r.State,
		DrawerID:    r.CurrentDrawer,
		Round:       r.CurrentRound,
		TotalRounds: r.Settings.Rounds,
		Players:     r.PlayerInfos(),
	}

	if drawer := r.findPlayer(r.CurrentDrawer); drawer != nil {
		state.DrawerName = drawer.Name
	}

	if r.State == PhaseDrawing {
		state.Hint = r.Hint()
		state.TimeLeft = r.TimeLeft
	}

	return state
}

func (r *Room) transition(to Phase) error {
	if !r.State.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.State, to)
	}
	r.State = to
	return nil
}

func (r *Room) findPlayer(playerID string) *Player {
	if idx := r.playerIndex(playerID); idx != -1 {
		return r.Players[idx]
	}
	return nil
}

func (r *Room) playerIndex(playerID string) int {
	for i, p := range r.Players {
		if p.ID == playerID {
			return i
		}
	}
	return -1
}

func (r *Room) playerIDs() []string {
	ids := make([]string, 0, len(r.Players))
	for _, p := range r.Players {
		ids = append(ids, p.ID)
	}
	return ids
}

func normalizeMessage(text string) string {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) > MaxChatLength {
		text = string([]rune(text)[:MaxChatLength])
	}
	return text
}
