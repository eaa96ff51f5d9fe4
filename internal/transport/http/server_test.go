package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sketchguess/internal/app"
	"sketchguess/internal/config"
	"sketchguess/internal/domain"
	"sketchguess/internal/words"
)

type stubConn struct{ id string }

func (c stubConn) Send(interface{}) error { return nil }
func (c stubConn) GetPlayerID() string    { return c.id }
func (c stubConn) GetResumeToken() string { return "" }
func (c stubConn) Close() error           { return nil }

func newTestServer(t *testing.T) (*Server, *app.RoomHub) {
	t.Helper()

	cfg, err := config.Load("")
	require.NoError(t, err)

	hub := app.NewRoomHub(app.DefaultHubConfig(), words.NewTieredProvider(words.Default()), zap.NewNop())
	t.Cleanup(hub.Close)

	return NewServer(cfg, hub, zap.NewNop()), hub
}

func get(t *testing.T, s *Server, path string) (int, Response) {
	t.Helper()

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec.Code, resp
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)

	code, resp := get(t, s, "/api/health")
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, resp.Success)
	assert.Equal(t, map[string]interface{}{"status": "ok"}, resp.Data)
}

func TestGetRoom(t *testing.T) {
	s, hub := newTestServer(t)

	session, err := hub.CreateRoom(stubConn{id: "a"}, "Alice", domain.Avatar{})
	require.NoError(t, err)

	code, resp := get(t, s, "/api/rooms/"+strings.ToLower(session.GetRoomCode()))
	require.Equal(t, http.StatusOK, code)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, session.GetRoomCode(), data["code"])
	assert.Equal(t, "waiting", data["state"])
	assert.Equal(t, float64(1), data["playerCount"])
	assert.Equal(t, float64(8), data["maxPlayers"])
	assert.Equal(t, true, data["canJoin"])

	code, resp = get(t, s, "/api/rooms/"+session.GetRoomCode()+"/exists")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, map[string]interface{}{"exists": true}, resp.Data)

	code, resp = get(t, s, "/api/stats")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, map[string]interface{}{"activeRooms": float64(1), "totalPlayers": float64(1)}, resp.Data)
}

func TestGetRoomNotFound(t *testing.T) {
	s, _ := newTestServer(t)

	code, resp := get(t, s, "/api/rooms/NOPE00")
	assert.Equal(t, http.StatusNotFound, code)
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "ROOM_NOT_FOUND", resp.Error.Code)

	_, resp = get(t, s, "/api/rooms/NOPE00/exists")
	assert.Equal(t, map[string]interface{}{"exists": false}, resp.Data)
}

func TestCORSPreflight(t *testing.T) {
	s, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/stats", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
