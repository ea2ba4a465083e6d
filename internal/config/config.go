// Package config loads ringfit settings from config.yaml, RINGFIT_*
// environment variables and built-in defaults, in that order of precedence
// after the environment.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/ayusman/ringfit/internal/capture"
	"github.com/ayusman/ringfit/internal/detector"
	"github.com/ayusman/ringfit/internal/material"
	"github.com/ayusman/ringfit/internal/tryon"
)

// EnvPrefix prefixes environment overrides, e.g. RINGFIT_SERVER_ADDR.
const EnvPrefix = "RINGFIT"

// Config is the resolved application configuration.
type Config struct {
	Server    ServerConfig
	Camera    capture.Constraints
	Detector  detector.Config
	Tryon     TryonConfig
	Selection material.Selection
	DataDir   string
	Tray      bool
	Log       LogConfig
}

// ServerConfig configures the HTTP shell.
type ServerConfig struct {
	Addr      string
	StaticDir string
}

// TryonConfig configures the session controller.
type TryonConfig struct {
	RestartDelay time.Duration
}

// LogConfig configures zerolog.
type LogConfig struct {
	Level  string
	Pretty bool
}

// DBPath is the SQLite file inside the data directory.
func (c Config) DBPath() string {
	return filepath.Join(c.DataDir, "ringfit.db")
}

// SetDefaults registers a default for every key on v.
func SetDefaults(v *viper.Viper) {
	home, _ := os.UserHomeDir()
	det := detector.DefaultConfig()

	v.SetDefault("server.addr", "127.0.0.1:8420")
	v.SetDefault("server.static_dir", "web")

	v.SetDefault("camera.device_id", capture.AutoDevice)
	v.SetDefault("camera.width", capture.DefaultWidth)
	v.SetDefault("camera.height", capture.DefaultHeight)
	v.SetDefault("camera.fps", capture.DefaultFPS)
	v.SetDefault("camera.facing_mode", capture.DefaultFacingMode)
	v.SetDefault("camera.metadata_timeout", capture.DefaultMetadataTimeout)

	v.SetDefault("detector.max_hands", det.MaxHands)
	v.SetDefault("detector.model_complexity", det.ModelComplexity)
	v.SetDefault("detector.min_detection_confidence", det.MinConfidence)
	v.SetDefault("detector.min_tracking_confidence", det.MinTrackingConf)
	v.SetDefault("detector.python", "")
	v.SetDefault("detector.script", "")
	v.SetDefault("detector.idle_timeout", det.IdleTimeout)

	v.SetDefault("tryon.restart_delay", tryon.DefaultRestartDelay)

	v.SetDefault("selection.metal", material.DefaultMetal)
	v.SetDefault("selection.carat", material.DefaultCarat)

	v.SetDefault("data.dir", filepath.Join(home, ".ringfit"))
	v.SetDefault("tray.enabled", true)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", true)
}

// New returns a viper instance with defaults, env binding and the config
// search path set up. An explicit file, when given, replaces the search.
func New(file string) *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		return v
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".ringfit"))
	}
	return v
}

// Load reads configuration. A missing config file is not an error unless
// file names one explicitly.
func Load(file string) (Config, error) {
	v := New(file)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return Config{}, errors.Wrap(err, "read config")
		}
	}

	return FromViper(v)
}

// FromViper resolves a Config from v and validates it.
func FromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Addr:      v.GetString("server.addr"),
			StaticDir: v.GetString("server.static_dir"),
		},
		Camera: capture.Constraints{
			DeviceID:        v.GetInt("camera.device_id"),
			Width:           v.GetInt("camera.width"),
			Height:          v.GetInt("camera.height"),
			FPS:             v.GetInt("camera.fps"),
			FacingMode:      v.GetString("camera.facing_mode"),
			MetadataTimeout: v.GetDuration("camera.metadata_timeout"),
		},
		Detector: detector.Config{
			MaxHands:        v.GetInt("detector.max_hands"),
			ModelComplexity: v.GetInt("detector.model_complexity"),
			MinConfidence:   v.GetFloat64("detector.min_detection_confidence"),
			MinTrackingConf: v.GetFloat64("detector.min_tracking_confidence"),
			Python:          v.GetString("detector.python"),
			Script:          v.GetString("detector.script"),
			IdleTimeout:     v.GetDuration("detector.idle_timeout"),
		},
		Tryon: TryonConfig{
			RestartDelay: v.GetDuration("tryon.restart_delay"),
		},
		Selection: material.Selection{
			Metal: v.GetString("selection.metal"),
			Carat: v.GetFloat64("selection.carat"),
		}.Normalize(),
		DataDir: v.GetString("data.dir"),
		Tray:    v.GetBool("tray.enabled"),
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Pretty: v.GetBool("log.pretty"),
		},
	}

	return cfg, cfg.Validate()
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch {
	case c.Server.Addr == "":
		return errors.New("server.addr is required")
	case c.Camera.DeviceID < capture.AutoDevice:
		return errors.Errorf("camera.device_id must be >= 0 or -1 for auto, got %d", c.Camera.DeviceID)
	case c.Camera.FacingMode != capture.FacingUser && c.Camera.FacingMode != capture.FacingEnvironment:
		return errors.Errorf("camera.facing_mode must be user or environment, got %q", c.Camera.FacingMode)
	case c.Camera.Width <= 0 || c.Camera.Height <= 0:
		return errors.Errorf("camera resolution must be positive, got %dx%d", c.Camera.Width, c.Camera.Height)
	case c.Camera.FPS <= 0:
		return errors.Errorf("camera.fps must be positive, got %d", c.Camera.FPS)
	case c.Camera.MetadataTimeout <= 0:
		return errors.New("camera.metadata_timeout must be positive")
	case c.Detector.MaxHands < 1:
		return errors.Errorf("detector.max_hands must be >= 1, got %d", c.Detector.MaxHands)
	case c.Detector.ModelComplexity < 0 || c.Detector.ModelComplexity > 1:
		return errors.Errorf("detector.model_complexity must be 0 or 1, got %d", c.Detector.ModelComplexity)
	case !unit(c.Detector.MinConfidence) || !unit(c.Detector.MinTrackingConf):
		return errors.New("detector confidence thresholds must be within [0,1]")
	case c.Tryon.RestartDelay < 0:
		return errors.New("tryon.restart_delay must not be negative")
	case c.DataDir == "":
		return errors.New("data.dir is required")
	}
	return nil
}

func unit(v float64) bool { return v >= 0 && v <= 1 }
