package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"go.uber.org/zap"

	"sketchguess/internal/app"
	"sketchguess/internal/config"
	"sketchguess/internal/domain"
	"sketchguess/internal/logger"
	httpTransport "sketchguess/internal/transport/http"
	"sketchguess/internal/words"
)

var CLI struct {
	Config string `help:"Configuration file (yaml, json or toml)." type:"path" short:"c"`
	Debug  bool   `help:"Whether to enable debug logging."`

	Serve struct {
	} `cmd:"" default:"1" help:"Start the game server."`

	Show struct {
	} `cmd:"" name:"config" help:"Print the effective configuration and exit."`
}

func writeError(err error) {
	fmt.Fprintf(os.Stderr, "%s\n", err)
	os.Exit(1)
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("sketchguess"),
		kong.Description("a multiplayer drawing and guessing game server"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}))

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		writeError(err)
	}

	if CLI.Debug {
		cfg.Logging.Level = "debug"
	}

	switch ctx.Command() {
	case "config":
		out, err := cfg.YAML()
		if err != nil {
			writeError(err)
		}
		os.Stdout.Write(out)
	default:
		if err := serve(cfg); err != nil {
			writeError(err)
		}
	}
}

func serve(cfg *config.Config) error {
	log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return err
	}
	defer log.Sync()

	log.Info("starting sketchguess server",
		zap.String("env", cfg.Server.Env),
		zap.String("addr", cfg.GetAddr()))

	vocab := words.Default()
	if cfg.Game.WordsFile != "" {
		if vocab, err = words.Load(cfg.Game.WordsFile); err != nil {
			return err
		}
	}
	log.Info("vocabulary loaded", zap.Int("words", vocab.Size()))

	hub := app.NewRoomHub(app.HubConfig{
		RoomCodeLength: cfg.Game.RoomCodeLength,
		Limits: domain.Limits{
			MinPlayers: cfg.Game.MinPlayers,
			MaxPlayers: cfg.Game.MaxPlayers,
		},
		Timing: app.Timing{
			PickTimeout:   cfg.Game.PickTimeout,
			TurnEndGrace:  cfg.Game.TurnEndGrace,
			RoundEndDelay: cfg.Game.RoundEndDelay,
			TickInterval:  cfg.Game.TickInterval,
			WordChoices:   cfg.Game.WordChoices,
		},
		IdleRoomTimeout: cfg.Game.IdleRoomTimeout,
		CleanupInterval: app.DefaultCleanupInterval,
		EventQueueSize:  app.DefaultEventQueueSize,
	}, words.NewTieredProvider(vocab), log)
	defer hub.Close()

	server := httpTransport.NewServer(cfg, hub, log)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
	return nil
}
