package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. SKETCH_SERVER_PORT
const EnvPrefix = "SKETCH"

// Config holds all application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	Game    GameConfig    `mapstructure:"game" yaml:"game"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Limits  LimitsConfig  `mapstructure:"limits" yaml:"limits"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
	Env  string `mapstructure:"env" yaml:"env"` // "development" or "production"
}

// GameConfig holds game-related configuration
type GameConfig struct {
	MinPlayers      int           `mapstructure:"min_players" yaml:"min_players"`
	MaxPlayers      int           `mapstructure:"max_players" yaml:"max_players"`
	WordChoices     int           `mapstructure:"word_choices" yaml:"word_choices"`
	PickTimeout     time.Duration `mapstructure:"pick_timeout" yaml:"pick_timeout"`
	TurnEndGrace    time.Duration `mapstructure:"turn_end_grace" yaml:"turn_end_grace"`
	RoundEndDelay   time.Duration `mapstructure:"round_end_delay" yaml:"round_end_delay"`
	TickInterval    time.Duration `mapstructure:"tick_interval" yaml:"tick_interval"`
	RoomCodeLength  int           `mapstructure:"room_code_length" yaml:"room_code_length"`
	IdleRoomTimeout time.Duration `mapstructure:"idle_room_timeout" yaml:"idle_room_timeout"`
	WordsFile       string        `mapstructure:"words_file" yaml:"words_file"` // empty uses the built-in vocabulary
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"` // "json" or "console"
}

// LimitsConfig holds per-connection rate limits
type LimitsConfig struct {
	ChatPerSecond   float64 `mapstructure:"chat_per_second" yaml:"chat_per_second"`
	ChatBurst       int     `mapstructure:"chat_burst" yaml:"chat_burst"`
	DrawPerSecond   float64 `mapstructure:"draw_per_second" yaml:"draw_per_second"`
	DrawBurst       int     `mapstructure:"draw_burst" yaml:"draw_burst"`
	MaxMessageBytes int64   `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 3001)
	v.SetDefault("server.env", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("game.min_players", 2)
	v.SetDefault("game.max_players", 8)
	v.SetDefault("game.word_choices", 3)
	v.SetDefault("game.pick_timeout", 15*time.Second)
	v.SetDefault("game.turn_end_grace", 1500*time.Millisecond)
	v.SetDefault("game.round_end_delay", 4*time.Second)
	v.SetDefault("game.tick_interval", time.Second)
	v.SetDefault("game.room_code_length", 6)
	v.SetDefault("game.idle_room_timeout", 2*time.Hour)
	v.SetDefault("game.words_file", "")

	v.SetDefault("limits.chat_per_second", 3)
	v.SetDefault("limits.chat_burst", 6)
	v.SetDefault("limits.draw_per_second", 120)
	v.SetDefault("limits.draw_burst", 240)
	v.SetDefault("limits.max_message_bytes", 16*1024)
}

// Load builds the configuration from defaults, an optional config file and
// SKETCH_* environment variables, in increasing order of precedence.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects settings the game loop cannot run with
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Game.MinPlayers < 2 {
		errs = append(errs, fmt.Errorf("game.min_players must be at least 2"))
	}
	if c.Game.MaxPlayers < c.Game.MinPlayers {
		errs = append(errs, fmt.Errorf("game.max_players must not be below game.min_players"))
	}
	if c.Game.WordChoices < 1 {
		errs = append(errs, fmt.Errorf("game.word_choices must be positive"))
	}
	if c.Game.RoomCodeLength < 4 {
		errs = append(errs, fmt.Errorf("game.room_code_length must be at least 4"))
	}

	durations := map[string]time.Duration{
		"game.pick_timeout":    c.Game.PickTimeout,
		"game.turn_end_grace":  c.Game.TurnEndGrace,
		"game.round_end_delay": c.Game.RoundEndDelay,
		"game.tick_interval":   c.Game.TickInterval,
	}
	for key, d := range durations {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", key))
		}
	}

	if c.Limits.ChatPerSecond <= 0 || c.Limits.DrawPerSecond <= 0 {
		errs = append(errs, fmt.Errorf("limits rates must be positive"))
	}
	if c.Limits.MaxMessageBytes <= 0 {
		errs = append(errs, fmt.Errorf("limits.max_message_bytes must be positive"))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// GetAddr returns the server address in host:port format
func (c *Config) GetAddr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// YAML renders the configuration in the format Load accepts
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}
