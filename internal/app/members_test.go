package app

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"sketchguess/internal/domain"
)

type MockClientConnection struct {
	mock.Mock
}

func (m *MockClientConnection) Send(message interface{}) error {
	args := m.Called(message)
	return args.Error(0)
}

func (m *MockClientConnection) GetPlayerID() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockClientConnection) GetResumeToken() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockClientConnection) Close() error {
	args := m.Called()
	return args.Error(0)
}

func eventOfType(eventType domain.EventType) interface{} {
	return mock.MatchedBy(func(ev *domain.GameEvent) bool {
		return ev.Type == eventType
	})
}

func TestMembers_Delivery(t *testing.T) {
	m := NewMembers(zap.NewNop(), 16)
	defer m.Close()

	a := &MockClientConnection{}
	b := &MockClientConnection{}
	c := &MockClientConnection{}
	m.Register("a", a)
	m.Register("b", b)
	m.Register("c", c)

	var wg sync.WaitGroup
	wg.Add(6)
	done := func(mock.Arguments) { wg.Done() }

	for _, client := range []*MockClientConnection{a, b, c} {
		client.On("Send", eventOfType(domain.EventGameState)).Return(nil).Run(done).Once()
	}
	a.On("Send", eventOfType(domain.EventCurrentWord)).Return(nil).Run(done).Once()
	b.On("Send", eventOfType(domain.EventDraw)).Return(nil).Run(done).Once()
	c.On("Send", eventOfType(domain.EventDraw)).Return(errors.New("broken pipe")).Run(done).Once()

	m.SendAll(domain.NewEvent(domain.EventGameState, "ROOM01", nil))
	m.SendTo("a", domain.NewEvent(domain.EventCurrentWord, "ROOM01", nil))
	m.SendAllExcept("a", domain.NewEvent(domain.EventDraw, "ROOM01", nil))
	m.SendTo("ghost", domain.NewEvent(domain.EventCurrentWord, "ROOM01", nil))

	delivered := make(chan struct{})
	go func() {
		wg.Wait()
		close(delivered)
	}()

	select {
	case <-delivered:
	case <-time.After(time.Second):
		t.Fatal("events were not delivered")
	}

	a.AssertExpectations(t)
	b.AssertExpectations(t)
	c.AssertExpectations(t)
}

func TestMembers_Register(t *testing.T) {
	m := NewMembers(zap.NewNop(), 16)
	defer m.Close()

	first := &MockClientConnection{}
	second := &MockClientConnection{}

	assert.Nil(t, m.Register("a", first))
	assert.Nil(t, m.Register("a", first), "re-registering the same connection replaces nothing")
	assert.Equal(t, first, m.Register("a", second))

	assert.False(t, m.Unregister("a", first), "stale connection")
	assert.Equal(t, 1, m.Count())
	assert.True(t, m.Unregister("a", second))
	assert.False(t, m.Unregister("a", nil))
	assert.Zero(t, m.Count())
}

func TestMembers_Close(t *testing.T) {
	m := NewMembers(zap.NewNop(), 16)

	client := &MockClientConnection{}
	client.On("Close").Return(nil).Once()
	m.Register("a", client)

	m.Close()
	m.Close()

	client.AssertExpectations(t)
	assert.Zero(t, m.Count())

	// Sends after close are dropped without reaching the client
	m.SendAll(domain.NewEvent(domain.EventGameState, "ROOM01", nil))
	client.AssertNotCalled(t, "Send", mock.Anything)
}
