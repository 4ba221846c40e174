// Package config loads application settings from defaults, environment
// variables and command-line overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/philcn/RaysRenderer/pkg/denoiser"
	"github.com/philcn/RaysRenderer/pkg/svgf"
)

var ErrInvalid = errors.New("invalid configuration")

// Config holds the application configuration
type Config struct {
	Server  ServerConfig  `json:"server"`
	Render  RenderConfig  `json:"render"`
	Filter  svgf.Config   `json:"filter"`
	Compute ComputeConfig `json:"compute"`
	Logging LoggingConfig `json:"logging"`
}

// LoadOptions holds command-line override options. Zero values mean "not set".
type LoadOptions struct {
	Host       string
	Port       string
	LogLevel   string
	Width      int
	Height     int
	Frames     int
	Workers    int
	Iterations int
	Signals    string
}

// ServerConfig holds preview server configuration
type ServerConfig struct {
	Host         string        `json:"host" env:"SERVER_HOST" default:"0.0.0.0"`
	Port         string        `json:"port" env:"SERVER_PORT" default:"8080"`
	ReadTimeout  time.Duration `json:"readTimeout" env:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout time.Duration `json:"writeTimeout" env:"SERVER_WRITE_TIMEOUT" default:"0s"`
	FrameRate    int           `json:"frameRate" env:"SERVER_FRAME_RATE" default:"10"`
}

// RenderConfig holds the procedural input settings
type RenderConfig struct {
	Width       int     `json:"width" env:"SVGF_WIDTH" default:"320"`
	Height      int     `json:"height" env:"SVGF_HEIGHT" default:"180"`
	Frames      int     `json:"frames" env:"SVGF_FRAMES" default:"16"`
	NoiseAmount float32 `json:"noiseAmount" env:"SVGF_NOISE" default:"1"`
	PanSpeed    float32 `json:"panSpeed" env:"SVGF_PAN_SPEED" default:"0"`
	Seed        uint64  `json:"seed" env:"SVGF_SEED" default:"1"`
	Signals     string  `json:"signals" env:"SVGF_SIGNALS" default:""`
}

// ComputeConfig holds worker pool settings
type ComputeConfig struct {
	Workers  int `json:"workers" env:"SVGF_WORKERS" default:"0"`
	TileSize int `json:"tileSize" env:"SVGF_TILE_SIZE" default:"32"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `json:"level" env:"LOG_LEVEL" default:"notice"`
}

// Load loads configuration from environment variables with defaults
func Load() (*Config, error) {
	return LoadWithOverrides(LoadOptions{})
}

// LoadWithOverrides loads configuration with command-line overrides
func LoadWithOverrides(opts LoadOptions) (*Config, error) {
	config := &Config{}

	// Server config
	config.Server.Host = getOverrideOrEnv(opts.Host, "SERVER_HOST", "0.0.0.0")
	config.Server.Port = getOverrideOrEnv(opts.Port, "SERVER_PORT", "8080")
	config.Server.ReadTimeout = getDurationWithDefault("SERVER_READ_TIMEOUT", 30*time.Second)
	// Streams are long lived, so no write deadline by default
	config.Server.WriteTimeout = getDurationWithDefault("SERVER_WRITE_TIMEOUT", 0)
	config.Server.FrameRate = getIntWithDefault("SERVER_FRAME_RATE", 10)

	// Render config
	config.Render.Width = getIntOverrideOrEnv(opts.Width, "SVGF_WIDTH", 320)
	config.Render.Height = getIntOverrideOrEnv(opts.Height, "SVGF_HEIGHT", 180)
	config.Render.Frames = getIntOverrideOrEnv(opts.Frames, "SVGF_FRAMES", 16)
	config.Render.NoiseAmount = getFloatWithDefault("SVGF_NOISE", 1)
	config.Render.PanSpeed = getFloatWithDefault("SVGF_PAN_SPEED", 0)
	config.Render.Seed = uint64(getIntWithDefault("SVGF_SEED", 1))
	config.Render.Signals = getOverrideOrEnv(opts.Signals, "SVGF_SIGNALS", "")

	// Filter config
	defaults := svgf.DefaultConfig()
	config.Filter = defaults
	config.Filter.AtrousIterations = getIntOverrideOrEnv(opts.Iterations, "SVGF_ATROUS_ITERATIONS", defaults.AtrousIterations)
	config.Filter.FeedbackTap = getIntWithDefault("SVGF_FEEDBACK_TAP", defaults.FeedbackTap)
	config.Filter.ColorAlpha = getFloatWithDefault("SVGF_COLOR_ALPHA", defaults.ColorAlpha)
	config.Filter.MomentsAlpha = getFloatWithDefault("SVGF_MOMENTS_ALPHA", defaults.MomentsAlpha)
	config.Filter.PhiColor = getFloatWithDefault("SVGF_PHI_COLOR", defaults.PhiColor)
	config.Filter.PhiNormal = getFloatWithDefault("SVGF_PHI_NORMAL", defaults.PhiNormal)
	config.Filter.MaxHistoryLength = getIntWithDefault("SVGF_MAX_HISTORY", defaults.MaxHistoryLength)

	// Compute config
	config.Compute.Workers = getIntOverrideOrEnv(opts.Workers, "SVGF_WORKERS", 0)
	config.Compute.TileSize = getIntWithDefault("SVGF_TILE_SIZE", 32)

	// Logging config
	config.Logging.Level = strings.ToLower(getOverrideOrEnv(opts.LogLevel, "LOG_LEVEL", "notice"))

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Filter values are clamped rather than rejected
	config.Filter = config.Filter.Clamp()
	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	// Validate server config
	if port, err := strconv.Atoi(c.Server.Port); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("%w: server port %q", ErrInvalid, c.Server.Port)
	}
	if c.Server.FrameRate <= 0 {
		return fmt.Errorf("%w: frame rate must be positive", ErrInvalid)
	}

	// Validate render config
	if c.Render.Width <= 0 || c.Render.Height <= 0 {
		return fmt.Errorf("%w: resolution %dx%d must be positive", ErrInvalid, c.Render.Width, c.Render.Height)
	}
	if c.Render.Frames <= 0 {
		return fmt.Errorf("%w: frame count must be positive", ErrInvalid)
	}
	if c.Render.NoiseAmount < 0 {
		return fmt.Errorf("%w: noise amount must not be negative", ErrInvalid)
	}
	if _, err := denoiser.ParseSignals(c.Render.Signals); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	// Validate compute config
	if c.Compute.Workers < 0 {
		return fmt.Errorf("%w: worker count must not be negative", ErrInvalid)
	}
	if c.Compute.TileSize <= 0 {
		return fmt.Errorf("%w: tile size must be positive", ErrInvalid)
	}

	// Validate logging config
	validLogLevels := map[string]bool{
		"debug":   true,
		"info":    true,
		"notice":  true,
		"warn":    true,
		"warning": true,
		"error":   true,
	}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("%w: log level %q", ErrInvalid, c.Logging.Level)
	}

	return nil
}

// EnabledSignals returns the parsed signal list; Validate guarantees it parses
func (c *Config) EnabledSignals() []denoiser.Signal {
	signals, err := denoiser.ParseSignals(c.Render.Signals)
	if err != nil {
		return denoiser.AllSignals
	}
	return signals
}

// Address returns host:port of the preview server
func (c *Config) Address() string {
	return c.Server.Host + ":" + c.Server.Port
}

// Helper functions for environment variable parsing
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getFloatWithDefault(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatValue)
		}
	}
	return defaultValue
}

func getDurationWithDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getOverrideOrEnv returns command-line override value, env value, or default
func getOverrideOrEnv(override, envKey, defaultValue string) string {
	if override != "" {
		return override
	}
	return getEnvWithDefault(envKey, defaultValue)
}

func getIntOverrideOrEnv(override int, envKey string, defaultValue int) int {
	if override != 0 {
		return override
	}
	return getIntWithDefault(envKey, defaultValue)
}
