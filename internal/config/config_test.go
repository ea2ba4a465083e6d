package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ayusman/ringfit/internal/capture"
	"github.com/ayusman/ringfit/internal/material"
	"github.com/ayusman/ringfit/internal/tryon"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Camera.Width != capture.DefaultWidth || cfg.Camera.Height != capture.DefaultHeight {
		t.Errorf("camera = %dx%d, want %dx%d", cfg.Camera.Width, cfg.Camera.Height, capture.DefaultWidth, capture.DefaultHeight)
	}
	if cfg.Camera.DeviceID != capture.AutoDevice || cfg.Camera.FacingMode != capture.FacingUser {
		t.Errorf("device = %d facing %q, want auto facing user", cfg.Camera.DeviceID, cfg.Camera.FacingMode)
	}
	if cfg.Camera.MetadataTimeout != capture.DefaultMetadataTimeout {
		t.Errorf("metadata timeout = %v", cfg.Camera.MetadataTimeout)
	}
	if cfg.Detector.MaxHands != 1 {
		t.Errorf("max hands = %d, want 1", cfg.Detector.MaxHands)
	}
	if cfg.Tryon.RestartDelay != tryon.DefaultRestartDelay {
		t.Errorf("restart delay = %v", cfg.Tryon.RestartDelay)
	}
	if cfg.Selection != material.DefaultSelection() {
		t.Errorf("selection = %+v, want default", cfg.Selection)
	}
	if cfg.DataDir == "" {
		t.Error("data dir should default to a home directory path")
	}
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	yaml := `
server:
  addr: ":9000"
camera:
  device_id: 2
  facing_mode: environment
  width: 640
  height: 480
  metadata_timeout: 2s
detector:
  min_detection_confidence: 0.6
selection:
  metal: "#b76e79"
  carat: 1.5
tryon:
  restart_delay: 250ms
log:
  level: debug
`
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Addr != ":9000" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
	if cfg.Camera.DeviceID != 2 || cfg.Camera.FacingMode != capture.FacingEnvironment || cfg.Camera.Width != 640 || cfg.Camera.Height != 480 {
		t.Errorf("camera = %+v", cfg.Camera)
	}
	if cfg.Camera.MetadataTimeout != 2*time.Second {
		t.Errorf("metadata timeout = %v, want 2s", cfg.Camera.MetadataTimeout)
	}
	if cfg.Detector.MinConfidence != 0.6 {
		t.Errorf("min confidence = %v", cfg.Detector.MinConfidence)
	}
	if cfg.Selection.Metal != "#b76e79" || cfg.Selection.Carat != 1.5 {
		t.Errorf("selection = %+v", cfg.Selection)
	}
	if cfg.Tryon.RestartDelay != 250*time.Millisecond {
		t.Errorf("restart delay = %v", cfg.Tryon.RestartDelay)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %q", cfg.Log.Level)
	}
	// Unset keys keep their defaults.
	if cfg.Camera.FPS != capture.DefaultFPS {
		t.Errorf("fps = %d, want default", cfg.Camera.FPS)
	}
}

func TestLoad_Env(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("RINGFIT_SERVER_ADDR", ":7000")
	t.Setenv("RINGFIT_CAMERA_WIDTH", "320")
	t.Setenv("RINGFIT_TRAY_ENABLED", "false")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Addr != ":7000" {
		t.Errorf("addr = %q, want :7000", cfg.Server.Addr)
	}
	if cfg.Camera.Width != 320 {
		t.Errorf("width = %d, want 320", cfg.Camera.Width)
	}
	if cfg.Tray {
		t.Error("tray should be disabled by env")
	}
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load() should fail for a named file that does not exist")
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "negative device", env: map[string]string{"RINGFIT_CAMERA_DEVICE_ID": "-2"}},
		{name: "unknown facing mode", env: map[string]string{"RINGFIT_CAMERA_FACING_MODE": "sideways"}},
		{name: "zero fps", env: map[string]string{"RINGFIT_CAMERA_FPS": "0"}},
		{name: "confidence above one", env: map[string]string{"RINGFIT_DETECTOR_MIN_DETECTION_CONFIDENCE": "1.5"}},
		{name: "complexity", env: map[string]string{"RINGFIT_DETECTOR_MODEL_COMPLEXITY": "3"}},
		{name: "negative restart delay", env: map[string]string{"RINGFIT_TRYON_RESTART_DELAY": "-1s"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(""); err == nil {
				t.Error("Load() should reject the configuration")
			}
		})
	}
}

func TestDBPath(t *testing.T) {
	cfg := Config{DataDir: "/var/lib/ringfit"}
	if got := cfg.DBPath(); got != "/var/lib/ringfit/ringfit.db" {
		t.Errorf("DBPath() = %q", got)
	}
}
