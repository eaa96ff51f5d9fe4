package http

import (
	"bufio"
	"context"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"sketchguess/internal/app"
	"sketchguess/internal/config"
	"sketchguess/internal/transport/ws"
)

// Server serves the room API and the websocket endpoint
type Server struct {
	server *http.Server
	hub    *app.RoomHub
	config *config.Config
	logger *zap.Logger
}

// NewServer wires the routes for hub
func NewServer(cfg *config.Config, hub *app.RoomHub, logger *zap.Logger) *Server {
	s := &Server{
		hub:    hub,
		config: cfg,
		logger: logger,
	}

	mux := http.NewServeMux()
	s.routes(mux)

	s.server = &http.Server{
		Addr:        cfg.GetAddr(),
		Handler:     s.middleware(mux),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	return s
}

// Handler returns the root handler, used by tests
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/rooms/{roomCode}", s.handleGetRoom)
	mux.HandleFunc("GET /api/rooms/{roomCode}/exists", s.handleRoomExists)
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/stats", s.handleStats)

	mux.Handle("GET /ws", ws.NewHandler(s.hub, ws.Options{
		ChatPerSecond:   s.config.Limits.ChatPerSecond,
		ChatBurst:       s.config.Limits.ChatBurst,
		DrawPerSecond:   s.config.Limits.DrawPerSecond,
		DrawBurst:       s.config.Limits.DrawBurst,
		MaxMessageBytes: s.config.Limits.MaxMessageBytes,
	}, s.logger.Named("ws")))
}

func (s *Server) middleware(next http.Handler) http.Handler {
	return s.cors(s.accessLog(next))
}

func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// accessLog logs every request, at info level in development
func (s *Server) accessLog(next http.Handler) http.Handler {
	logAt := s.logger.Debug
	if s.config.IsDevelopment() {
		logAt = s.logger.Info
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		logAt("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)))
	})
}

// Start listens until Shutdown is called
func (s *Server) Start() error {
	s.logger.Info("listening", zap.String("addr", s.server.Addr))
	return s.server.ListenAndServe()
}

// Shutdown stops accepting connections and waits for active requests
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down")
	return s.server.Shutdown(ctx)
}

// statusRecorder captures the reply status. It passes Hijack and Flush
// through so websocket upgrades keep working behind the access log.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

func (rec *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := rec.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, http.ErrNotSupported
	}
	return hijacker.Hijack()
}

func (rec *statusRecorder) Flush() {
	if flusher, ok := rec.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
