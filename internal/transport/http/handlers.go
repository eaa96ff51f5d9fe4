package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"sketchguess/internal/app"
	"sketchguess/internal/domain"
)

// Response is the envelope of every API reply
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorInfo  `json:"error,omitempty"`
}

// ErrorInfo describes a failed request
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RoomInfo describes a live room to clients before they connect
type RoomInfo struct {
	app.Summary
	CanJoin bool `json:"canJoin"`
}

type roomExists struct {
	Exists bool `json:"exists"`
}

type health struct {
	Status string `json:"status"`
}

type stats struct {
	ActiveRooms  int `json:"activeRooms"`
	TotalPlayers int `json:"totalPlayers"`
}

// GET /api/rooms/{roomCode}
func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	session, ok := s.lookupRoom(w, r)
	if !ok {
		return
	}

	s.writeData(w, &RoomInfo{
		Summary: session.GetSummary(),
		CanJoin: session.CanJoin(),
	})
}

// GET /api/rooms/{roomCode}/exists
func (s *Server) handleRoomExists(w http.ResponseWriter, r *http.Request) {
	_, err := s.hub.GetSession(r.PathValue("roomCode"))
	s.writeData(w, &roomExists{Exists: err == nil})
}

// GET /api/health
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeData(w, &health{Status: "ok"})
}

// GET /api/stats
func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	s.writeData(w, &stats{
		ActiveRooms:  s.hub.GetSessionCount(),
		TotalPlayers: s.hub.GetTotalPlayerCount(),
	})
}

// lookupRoom resolves the room code path value, writing the error reply itself
func (s *Server) lookupRoom(w http.ResponseWriter, r *http.Request) (*app.RoomSession, bool) {
	code := r.PathValue("roomCode")
	if code == "" {
		s.writeError(w, http.StatusBadRequest, "MISSING_ROOM_CODE", "Room code is required")
		return nil, false
	}

	session, err := s.hub.GetSession(code)
	switch {
	case err == nil:
		return session, true
	case errors.Is(err, domain.ErrRoomNotFound):
		s.writeError(w, http.StatusNotFound, "ROOM_NOT_FOUND", "Room not found")
	default:
		s.logger.Error("room lookup failed", zap.String("roomCode", code), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
	return nil, false
}

func (s *Server) writeData(w http.ResponseWriter, data interface{}) {
	s.writeJSON(w, http.StatusOK, &Response{Success: true, Data: data})
}

func (s *Server) writeError(w http.ResponseWriter, status int, code, message string) {
	s.writeJSON(w, status, &Response{Error: &ErrorInfo{Code: code, Message: message}})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, resp *Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Debug("failed to write response", zap.Error(err))
	}
}
