package config

import (
	"os"
	"path/filepath"
	"testing"
)

// chdir changes into dir for the duration of the test, mirroring the
// behavior of testing.T.Chdir (not available before Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatal(err)
		}
	})
}

func TestLoad_Defaults(t *testing.T) {
	// Run from an empty directory so no .env file interferes
	chdir(t, t.TempDir())

	cfg := Load()

	if cfg.Addr != ":8080" {
		t.Errorf("expected default addr :8080, got %q", cfg.Addr)
	}
	if cfg.Source != "0" {
		t.Errorf("expected default source 0, got %q", cfg.Source)
	}
	if cfg.Weights != "AUTO" {
		t.Errorf("expected default weights AUTO, got %q", cfg.Weights)
	}
	if cfg.ConfThreshold != 0.25 {
		t.Errorf("expected default conf 0.25, got %v", cfg.ConfThreshold)
	}
	if cfg.InputSize != 640 {
		t.Errorf("expected default imgsz 640, got %d", cfg.InputSize)
	}
	if cfg.IdleFPS != 5 || cfg.ActiveFPS != 15 {
		t.Errorf("expected default fps 5/15, got %d/%d", cfg.IdleFPS, cfg.ActiveFPS)
	}
}

func TestLoad_FromEnvironment(t *testing.T) {
	chdir(t, t.TempDir())

	t.Setenv("AICAMERA_ADDR", ":9090")
	t.Setenv("AICAMERA_SOURCE", "rtsp://cam.local/stream")
	t.Setenv("AICAMERA_CONF", "0.6")
	t.Setenv("AICAMERA_IMGSZ", "416")

	cfg := Load()

	if cfg.Addr != ":9090" {
		t.Errorf("expected addr :9090, got %q", cfg.Addr)
	}
	if cfg.Source != "rtsp://cam.local/stream" {
		t.Errorf("expected rtsp source, got %q", cfg.Source)
	}
	if cfg.ConfThreshold != 0.6 {
		t.Errorf("expected conf 0.6, got %v", cfg.ConfThreshold)
	}
	if cfg.InputSize != 416 {
		t.Errorf("expected imgsz 416, got %d", cfg.InputSize)
	}
}

func TestLoad_DotEnvFile(t *testing.T) {
	tmpDir := t.TempDir()
	envFile := filepath.Join(tmpDir, ".env")
	if err := os.WriteFile(envFile, []byte("AICAMERA_ADDR=:7070\n"), 0644); err != nil {
		t.Fatalf("failed to write .env: %v", err)
	}
	chdir(t, tmpDir)

	cfg := Load()

	if cfg.Addr != ":7070" {
		t.Errorf("expected addr :7070 from .env, got %q", cfg.Addr)
	}
}

func TestLoad_InvalidNumbersFallBack(t *testing.T) {
	chdir(t, t.TempDir())

	t.Setenv("AICAMERA_CONF", "not-a-number")
	t.Setenv("AICAMERA_IMGSZ", "not-a-number")

	cfg := Load()

	if cfg.ConfThreshold != 0.25 {
		t.Errorf("expected fallback conf 0.25, got %v", cfg.ConfThreshold)
	}
	if cfg.InputSize != 640 {
		t.Errorf("expected fallback imgsz 640, got %d", cfg.InputSize)
	}
}

func TestConfig_DatabasePath(t *testing.T) {
	cfg := &Config{DataDir: "/tmp/aicamera"}

	want := filepath.Join("/tmp/aicamera", "aicamera.db")
	if got := cfg.DatabasePath(); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}
