package app

import (
	"math/rand/v2"
	"sync"
	"time"

	"sketchguess/internal/domain"
)

// fakeClock fires timers only when the test advances it
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	fn      func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := &fakeTimer{clock: c, at: c.now.Add(d), fn: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves time forward, firing due timers in order. Timers scheduled
// by a firing timer fire in the same call when they fall due.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		var next *fakeTimer
		for _, t := range c.timers {
			if t.stopped || t.fired || t.at.After(target) {
				continue
			}
			if next == nil || t.at.Before(next.at) {
				next = t
			}
		}

		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}

		next.fired = true
		c.now = next.at
		c.mu.Unlock()

		next.fn()
	}
}

func (c *fakeClock) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()

	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// fakeClient is a ClientConnection that only records Close
type fakeClient struct {
	id     string
	token  string
	mu     sync.Mutex
	closed bool
	sent   []interface{}
}

func newFakeClient(id string) *fakeClient {
	return &fakeClient{id: id, token: "token-" + id}
}

func (c *fakeClient) Send(message interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, message)
	return nil
}

func (c *fakeClient) GetPlayerID() string {
	return c.id
}

func (c *fakeClient) GetResumeToken() string {
	return c.token
}

func (c *fakeClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeClient) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeClient) received() []interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]interface{}(nil), c.sent...)
}

type delivered struct {
	event      *domain.GameEvent
	broadcast  bool
	recipients map[string]bool
}

// recordingMembers is a synchronous Membership that keeps every event along
// with the players registered when it was sent
type recordingMembers struct {
	mu      sync.Mutex
	clients map[string]ClientConnection
	log     []delivered
	closed  bool
}

func newRecordingMembers() *recordingMembers {
	return &recordingMembers{clients: make(map[string]ClientConnection)}
}

func (m *recordingMembers) Register(playerID string, client ClientConnection) ClientConnection {
	m.mu.Lock()
	defer m.mu.Unlock()

	previous := m.clients[playerID]
	m.clients[playerID] = client
	if previous == client {
		return nil
	}
	return previous
}

func (m *recordingMembers) Unregister(playerID string, client ClientConnection) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.clients[playerID]
	if !ok || (client != nil && current != client) {
		return false
	}
	delete(m.clients, playerID)
	return true
}

func (m *recordingMembers) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
}

func (m *recordingMembers) SendAll(event *domain.GameEvent) {
	m.record(event, true, func(string) bool { return true })
}

func (m *recordingMembers) SendTo(playerID string, event *domain.GameEvent) {
	m.record(event, false, func(id string) bool { return id == playerID })
}

func (m *recordingMembers) SendAllExcept(playerID string, event *domain.GameEvent) {
	m.record(event, false, func(id string) bool { return id != playerID })
}

func (m *recordingMembers) record(event *domain.GameEvent, broadcast bool, match func(string) bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	recipients := make(map[string]bool)
	for id := range m.clients {
		if match(id) {
			recipients[id] = true
		}
	}
	m.log = append(m.log, delivered{event: event, broadcast: broadcast, recipients: recipients})
}

// eventsFor returns the events of a type playerID received, in order
func (m *recordingMembers) eventsFor(playerID string, eventType domain.EventType) []*domain.GameEvent {
	m.mu.Lock()
	defer m.mu.Unlock()

	var events []*domain.GameEvent
	for _, d := range m.log {
		if d.event.Type == eventType && d.recipients[playerID] {
			events = append(events, d.event)
		}
	}
	return events
}

// last returns the latest event of a type playerID received, or nil
func (m *recordingMembers) last(playerID string, eventType domain.EventType) *domain.GameEvent {
	events := m.eventsFor(playerID, eventType)
	if len(events) == 0 {
		return nil
	}
	return events[len(events)-1]
}

// broadcasts counts events of a type sent to the whole room
func (m *recordingMembers) broadcasts(eventType domain.EventType) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, d := range m.log {
		if d.event.Type == eventType && d.broadcast {
			n++
		}
	}
	return n
}

func (m *recordingMembers) clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.log = nil
}

// staticWords offers words from a fixed list, skipping used ones
type staticWords struct {
	words []string
}

func (w staticWords) Choose(_ *rand.Rand, count int, exclude map[string]struct{}) []string {
	choices := make([]string, 0, count)
	for _, word := range w.words {
		if len(choices) == count {
			break
		}
		if _, used := exclude[word]; !used {
			choices = append(choices, word)
		}
	}
	return choices
}

// panicWords fails the room the first time words are needed
type panicWords struct{}

func (panicWords) Choose(*rand.Rand, int, map[string]struct{}) []string {
	panic("vocabulary unavailable")
}

var testWords = staticWords{words: []string{
	"apple", "banana", "cherry", "grape", "lemon",
	"mango", "melon", "peach", "pear", "plum",
}}
