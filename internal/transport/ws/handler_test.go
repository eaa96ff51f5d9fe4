package ws

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"sketchguess/internal/app"
	"sketchguess/internal/domain"
	"sketchguess/internal/words"
)

type inbound struct {
	Type     string          `json:"type"`
	RoomCode string          `json:"roomCode"`
	Payload  json.RawMessage `json:"payload"`
}

func newTestServer(t *testing.T, opts Options) *httptest.Server {
	t.Helper()

	hub := app.NewRoomHub(app.DefaultHubConfig(), words.NewTieredProvider(words.Default()), zap.NewNop())
	server := httptest.NewServer(NewHandler(hub, opts, zap.NewNop()))
	t.Cleanup(func() {
		server.Close()
		hub.Close()
	})
	return server
}

func dial(t *testing.T, server *httptest.Server, query string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msgType MessageType, payload interface{}) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": msgType, "payload": payload}))
}

// await reads until a message of the given type arrives
func await(t *testing.T, conn *websocket.Conn, msgType string) inbound {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var msg inbound
		require.NoError(t, conn.ReadJSON(&msg), "waiting for %s", msgType)
		if msg.Type == msgType {
			return msg
		}
	}
}

func TestHandler_CreateAndJoin(t *testing.T) {
	server := newTestServer(t, DefaultOptions())

	host := dial(t, server, "")
	send(t, host, MsgCreateRoom, CreateRoomPayload{Name: "Alice"})
	created := await(t, host, "roomCreated")

	var room struct {
		Code     string `json:"code"`
		PlayerID string `json:"playerId"`
		IsHost   bool   `json:"isHost"`
	}
	require.NoError(t, json.Unmarshal(created.Payload, &room))
	assert.Len(t, room.Code, app.DefaultRoomCodeLength)
	assert.True(t, room.IsHost)
	assert.NotEmpty(t, room.PlayerID)

	guest := dial(t, server, "?playerId=guest-1&token=secret-1")
	send(t, guest, MsgJoinRoom, JoinRoomPayload{Code: strings.ToLower(room.Code), Name: "Bob"})
	joined := await(t, guest, "roomJoined")
	assert.Equal(t, room.Code, joined.RoomCode)

	playerJoined := await(t, host, "playerJoined")
	assert.Contains(t, string(playerJoined.Payload), "guest-1")

	send(t, guest, MsgChat, ChatPayload{Message: "hello"})
	chat := await(t, host, "chatMessage")
	assert.Contains(t, string(chat.Payload), "hello")
}

type confirmation struct {
	Code        string `json:"code"`
	PlayerID    string `json:"playerId"`
	ResumeToken string `json:"resumeToken"`
	Word        string `json:"word"`
}

func decodeConfirmation(t *testing.T, msg inbound) confirmation {
	t.Helper()

	var c confirmation
	require.NoError(t, json.Unmarshal(msg.Payload, &c))
	return c
}

func TestHandler_SeatNeedsResumeToken(t *testing.T) {
	server := newTestServer(t, DefaultOptions())

	host := dial(t, server, "")
	send(t, host, MsgCreateRoom, CreateRoomPayload{Name: "Alice"})
	room := decodeConfirmation(t, await(t, host, "roomCreated"))
	require.NotEmpty(t, room.ResumeToken)

	guest := dial(t, server, "")
	send(t, guest, MsgJoinRoom, JoinRoomPayload{Code: room.Code, Name: "Bob"})
	joined := decodeConfirmation(t, await(t, guest, "roomJoined"))
	assert.NotEqual(t, room.ResumeToken, joined.ResumeToken)
	assert.NotContains(t, string(await(t, host, "playerJoined").Payload), room.ResumeToken)

	send(t, host, MsgStartGame, nil)
	var choices domain.WordChoicesPayload
	require.NoError(t, json.Unmarshal(await(t, host, "wordChoices").Payload, &choices))
	require.NotEmpty(t, choices.Words)
	secret := choices.Words[0]
	send(t, host, MsgSelectWord, SelectWordPayload{Word: secret})
	await(t, host, "currentWord")

	for _, query := range []string{
		"?playerId=" + room.PlayerID,
		"?playerId=" + room.PlayerID + "&token=" + joined.ResumeToken,
	} {
		intruder := dial(t, server, query)
		send(t, intruder, MsgJoinRoom, JoinRoomPayload{Code: room.Code, Name: "Mallory"})
		seat := decodeConfirmation(t, await(t, intruder, "roomJoined"))

		assert.NotEqual(t, room.PlayerID, seat.PlayerID, query)
		assert.Empty(t, seat.Word, query)

		// the drawer's socket is still open and sees the newcomer
		assert.Contains(t, string(await(t, host, "playerJoined").Payload), seat.PlayerID)
	}

	owner := dial(t, server, "?playerId="+room.PlayerID+"&token="+room.ResumeToken)
	send(t, owner, MsgJoinRoom, JoinRoomPayload{Code: room.Code, Name: "Alice"})
	resumed := decodeConfirmation(t, await(t, owner, "roomJoined"))
	assert.Equal(t, room.PlayerID, resumed.PlayerID)
	assert.Equal(t, secret, resumed.Word)
}

func TestHandler_Errors(t *testing.T) {
	server := newTestServer(t, DefaultOptions())
	conn := dial(t, server, "")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	msg := await(t, conn, "error")
	assert.Contains(t, string(msg.Payload), ErrCodeInvalidMessage)

	send(t, conn, MsgJoinRoom, JoinRoomPayload{Code: "NOPE00"})
	msg = await(t, conn, "error")
	assert.Contains(t, string(msg.Payload), ErrCodeRoomNotFound)

	send(t, conn, MsgPing, nil)
	await(t, conn, "pong")
}

func TestHandler_StartNeedsTwoPlayers(t *testing.T) {
	server := newTestServer(t, DefaultOptions())
	host := dial(t, server, "")

	send(t, host, MsgCreateRoom, nil)
	await(t, host, "roomCreated")

	send(t, host, MsgStartGame, nil)
	msg := await(t, host, "error")
	assert.Contains(t, string(msg.Payload), ErrCodeInsufficientPlayers)
}

func TestHandler_ChatRateLimit(t *testing.T) {
	opts := DefaultOptions()
	opts.ChatPerSecond = 0.001
	opts.ChatBurst = 2
	server := newTestServer(t, opts)

	conn := dial(t, server, "")
	send(t, conn, MsgCreateRoom, CreateRoomPayload{Name: "Alice"})
	await(t, conn, "roomCreated")

	for i := 0; i < 3; i++ {
		send(t, conn, MsgChat, ChatPayload{Message: "spam"})
	}

	msg := await(t, conn, "error")
	assert.Contains(t, string(msg.Payload), ErrCodeRateLimited)
}

func TestHandler_RejectsLongPlayerID(t *testing.T) {
	server := newTestServer(t, DefaultOptions())

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws?playerId=" + strings.Repeat("x", maxPlayerIDLength+1)
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestDecodePayload(t *testing.T) {
	p, err := decodePayload[SelectWordPayload](nil)
	require.NoError(t, err)
	assert.Empty(t, p.Word)

	p, err = decodePayload[SelectWordPayload](json.RawMessage(`{"word":"apple"}`))
	require.NoError(t, err)
	assert.Equal(t, "apple", p.Word)

	_, err = decodePayload[SelectWordPayload](json.RawMessage(`[1,2]`))
	assert.Error(t, err)
}
