package app

import (
	"fmt"
	"image/color"
	"log/slog"
	"os"
	"strings"

	"github.com/mazznoer/csscolorparser"
	"gopkg.in/yaml.v3"

	"github.com/tejashwikalptaru/vaporfx/internal/domain"
	"github.com/tejashwikalptaru/vaporfx/internal/logger"
)

// Default configuration values.
const (
	DefaultAppID      = "com.vaporfx.app"
	DefaultAppName    = "vaporfx"
	DefaultWidth      = 480
	DefaultHeight     = 640
	DefaultFrameRate  = 60
	DefaultSampleRate = 44100
	DefaultFFTSize    = 256
	DefaultWaveColor  = "rgba(0,122,255,0.5)"
)

// Config holds application configuration.
type Config struct {
	// AppID is the unique application identifier
	AppID string `yaml:"app_id"`

	// AppName is the window title
	AppName string `yaml:"app_name"`

	// Width and Height of the window
	Width  int `yaml:"width"`
	Height int `yaml:"height"`

	// FrameRate drives the headless hosts and the level spring
	FrameRate int `yaml:"frame_rate"`

	// Seed for the particle random sources
	Seed uint64 `yaml:"seed"`

	// SampleRate is the capture sample rate
	SampleRate int `yaml:"sample_rate"`

	// FFTSize of the spectrum analyser; a power of two in [32, 32768]
	FFTSize int `yaml:"fft_size"`

	// UseMockAudio replaces the microphone with a synthetic tone
	UseMockAudio bool `yaml:"mock_audio"`

	// Visualizer is the initial style; empty picks one per capture intent
	Visualizer domain.VisualizerStyle `yaml:"visualizer"`

	// WaveColor is the waveform color as a CSS color (rgba(), hex, name) or "multicolor"
	WaveColor string `yaml:"wave_color"`

	// LogLevel is DEBUG, INFO, WARN or ERROR
	LogLevel string `yaml:"log_level"`

	// LogFormat is "text" or "json"
	LogFormat string `yaml:"log_format"`
}

// DefaultConfig returns the default application configuration.
func DefaultConfig() Config {
	loggerCfg := logger.DefaultConfig()
	return Config{
		AppID:        DefaultAppID,
		AppName:      DefaultAppName,
		Width:        DefaultWidth,
		Height:       DefaultHeight,
		FrameRate:    DefaultFrameRate,
		Seed:         1,
		SampleRate:   DefaultSampleRate,
		FFTSize:      DefaultFFTSize,
		UseMockAudio: false,
		WaveColor:    DefaultWaveColor,
		LogLevel:     loggerCfg.Level.String(),
		LogFormat:    loggerCfg.Format,
	}
}

// LoadConfig reads a YAML file over the defaults. The log level environment
// variable still wins over the file.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	if l, ok := logger.ParseLevel(os.Getenv(logger.EnvLevel)); ok {
		cfg.LogLevel = l.String()
	}
	return cfg, cfg.Validate()
}

// SaveConfig writes cfg as YAML.
func SaveConfig(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	switch {
	case c.Width <= 0:
		return domain.NewValidationError("width", c.Width, "must be positive")
	case c.Height <= 0:
		return domain.NewValidationError("height", c.Height, "must be positive")
	case c.FrameRate <= 0 || c.FrameRate > 240:
		return domain.NewValidationError("frame_rate", c.FrameRate, "must be in [1, 240]")
	case c.SampleRate <= 0:
		return domain.NewValidationError("sample_rate", c.SampleRate, "must be positive")
	case c.FFTSize < 32 || c.FFTSize > 32768 || c.FFTSize&(c.FFTSize-1) != 0:
		return domain.NewValidationError("fft_size", c.FFTSize, "must be a power of two in [32, 32768]")
	case c.Visualizer != "" && !c.Visualizer.Valid():
		return domain.NewValidationError("visualizer", c.Visualizer, "must be led_bars, bars or waveform")
	case c.LogFormat != "text" && c.LogFormat != "json":
		return domain.NewValidationError("log_format", c.LogFormat, "must be text or json")
	}
	if _, ok := logger.ParseLevel(c.LogLevel); !ok {
		return domain.NewValidationError("log_level", c.LogLevel, "must be DEBUG, INFO, WARN or ERROR")
	}
	if _, _, err := c.Wave(); err != nil {
		return err
	}
	return nil
}

// LoggerConfig converts the log settings.
func (c Config) LoggerConfig() logger.Config {
	level, ok := logger.ParseLevel(c.LogLevel)
	if !ok {
		level = slog.LevelInfo
	}
	return logger.Config{Level: level, Format: c.LogFormat}
}

// Wave parses WaveColor as any CSS color. multicolor is true for "multicolor".
func (c Config) Wave() (col color.NRGBA, multicolor bool, err error) {
	s := strings.TrimSpace(c.WaveColor)
	if strings.EqualFold(s, "multicolor") {
		return color.NRGBA{}, true, nil
	}
	if s == "" {
		s = DefaultWaveColor
	}

	parsed, err := csscolorparser.Parse(s)
	if err != nil {
		return color.NRGBA{}, false, domain.NewValidationError("wave_color", c.WaveColor, `must be a CSS color or "multicolor"`)
	}
	r, g, b, a := parsed.RGBA255()
	return color.NRGBA{R: r, G: g, B: b, A: a}, false, nil
}
