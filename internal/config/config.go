// Package config provides Viper-based configuration loading for the
// VinnyVerse client, headless agent, and fake server.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig holds the game server endpoint.
type ServerConfig struct {
	// URL is the WebSocket URL of the game server, e.g. "ws://localhost:8080/".
	URL string `mapstructure:"url"`
}

// SessionConfig holds session loop timing and buffering.
type SessionConfig struct {
	// LoginTimeout bounds the wait for the login reply.
	LoginTimeout time.Duration `mapstructure:"login_timeout"`
	// PollInterval is the receive poll timeout of the inbound activity.
	PollInterval time.Duration `mapstructure:"poll_interval"`
	// WriteTimeout bounds a single outbound frame write.
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
	CommandBuffer int           `mapstructure:"command_buffer"`
	EventBuffer   int           `mapstructure:"event_buffer"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// Display modes accepted by WindowConfig.Mode.
const (
	ModeWindowed   = "windowed"
	ModeBorderless = "borderless"
	ModeFullscreen = "fullscreen"
)

// WindowConfig holds renderer window settings.
type WindowConfig struct {
	Width  int    `mapstructure:"width"`
	Height int    `mapstructure:"height"`
	Title  string `mapstructure:"title"`
	// Mode is one of "windowed", "borderless", "fullscreen".
	Mode string `mapstructure:"mode"`
	// TileSize is the on-screen edge length of one world cell in pixels.
	TileSize int `mapstructure:"tile_size"`
}

// FakeServerConfig holds settings for the local development server.
type FakeServerConfig struct {
	Addr string `mapstructure:"addr"`
	// Tick is the interval between sun steps. Zero disables ticking.
	Tick      time.Duration `mapstructure:"tick"`
	WorldSize int           `mapstructure:"world_size"`
}

// Config is the top-level application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Session    SessionConfig    `mapstructure:"session"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Window     WindowConfig     `mapstructure:"window"`
	FakeServer FakeServerConfig `mapstructure:"fakeserver"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string
	for _, err := range []error{
		validateServer(c.Server),
		validateSession(c.Session),
		validateLogging(c.Logging),
		validateWindow(c.Window),
		validateFakeServer(c.FakeServer),
	} {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateServer(s ServerConfig) error {
	u, err := url.Parse(s.URL)
	if err != nil {
		return fmt.Errorf("server.url is invalid: %v", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("server.url must use ws or wss, got %q", s.URL)
	}
	if u.Host == "" {
		return fmt.Errorf("server.url must include a host, got %q", s.URL)
	}
	return nil
}

func validateSession(s SessionConfig) error {
	var errs []string
	if s.LoginTimeout <= 0 {
		errs = append(errs, "session.login_timeout must be positive")
	}
	if s.PollInterval <= 0 {
		errs = append(errs, "session.poll_interval must be positive")
	}
	if s.WriteTimeout < 0 {
		errs = append(errs, "session.write_timeout must not be negative")
	}
	if s.CommandBuffer < 1 {
		errs = append(errs, fmt.Sprintf("session.command_buffer must be >= 1, got %d", s.CommandBuffer))
	}
	if s.EventBuffer < 1 {
		errs = append(errs, fmt.Sprintf("session.event_buffer must be >= 1, got %d", s.EventBuffer))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

func validateWindow(w WindowConfig) error {
	var errs []string
	if w.Width < 1 || w.Height < 1 {
		errs = append(errs, fmt.Sprintf("window size must be positive, got %dx%d", w.Width, w.Height))
	}
	validModes := map[string]bool{ModeWindowed: true, ModeBorderless: true, ModeFullscreen: true}
	if !validModes[w.Mode] {
		errs = append(errs, fmt.Sprintf("window.mode must be one of [windowed, borderless, fullscreen], got %q", w.Mode))
	}
	if w.TileSize < 1 {
		errs = append(errs, fmt.Sprintf("window.tile_size must be >= 1, got %d", w.TileSize))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateFakeServer(f FakeServerConfig) error {
	var errs []string
	if f.Addr == "" {
		errs = append(errs, "fakeserver.addr must not be empty")
	}
	if f.Tick < 0 {
		errs = append(errs, "fakeserver.tick must not be negative")
	}
	if f.WorldSize < 1 {
		errs = append(errs, fmt.Sprintf("fakeserver.world_size must be >= 1, got %d", f.WorldSize))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result. An empty path loads defaults and
// environment overrides only.
//
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}
	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Default returns the built-in defaults without reading files or the environment.
func Default() Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// Defaults are static and always decode.
	_ = v.Unmarshal(&cfg)
	return cfg
}

func newViper() *viper.Viper {
	v := viper.New()

	// Environment variable overrides with VINNY_ prefix
	v.SetEnvPrefix("VINNY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.url", "ws://localhost:8080/")

	v.SetDefault("session.login_timeout", 750*time.Millisecond)
	v.SetDefault("session.poll_interval", 50*time.Millisecond)
	v.SetDefault("session.write_timeout", 10*time.Second)
	v.SetDefault("session.command_buffer", 64)
	v.SetDefault("session.event_buffer", 256)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("window.width", 1280)
	v.SetDefault("window.height", 720)
	v.SetDefault("window.title", "VinnyVerse")
	v.SetDefault("window.mode", ModeWindowed)
	v.SetDefault("window.tile_size", 24)

	v.SetDefault("fakeserver.addr", ":8080")
	v.SetDefault("fakeserver.tick", time.Second)
	v.SetDefault("fakeserver.world_size", 15)
}
