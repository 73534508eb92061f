// Package config loads application settings from the environment, with an
// optional .env file picked up from the working directory.
package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application settings.
type Config struct {
	Addr          string
	Source        string
	Weights       string
	ConfThreshold float64
	NMSThreshold  float64
	InputSize     int
	DataDir       string
	SnapshotDir   string
	PluginDir     string
	StaticDir     string
	IdleFPS       int
	ActiveFPS     int
	IdleTimeoutMs int
	PluginTimeout int
	RetentionDays int
}

// Load reads settings from the environment. A .env file in the working
// directory is loaded first if present; real environment variables win over
// values from the file.
func Load() *Config {
	godotenv.Load()

	return &Config{
		Addr:          getEnv("AICAMERA_ADDR", ":8080"),
		Source:        getEnv("AICAMERA_SOURCE", "0"),
		Weights:       getEnv("AICAMERA_WEIGHTS", "AUTO"),
		ConfThreshold: getEnvAsFloat("AICAMERA_CONF", 0.25),
		NMSThreshold:  getEnvAsFloat("AICAMERA_NMS", 0.45),
		InputSize:     getEnvAsInt("AICAMERA_IMGSZ", 640),
		DataDir:       getEnv("AICAMERA_DATA_DIR", defaultDataDir()),
		SnapshotDir:   getEnv("AICAMERA_SNAPSHOT_DIR", filepath.Join(defaultDataDir(), "snapshots")),
		PluginDir:     getEnv("AICAMERA_PLUGIN_DIR", filepath.Join(".", "plugins")),
		StaticDir:     getEnv("AICAMERA_STATIC_DIR", filepath.Join(".", "web")),
		IdleFPS:       getEnvAsInt("AICAMERA_IDLE_FPS", 5),
		ActiveFPS:     getEnvAsInt("AICAMERA_ACTIVE_FPS", 15),
		IdleTimeoutMs: getEnvAsInt("AICAMERA_IDLE_TIMEOUT_MS", 2000),
		PluginTimeout: getEnvAsInt("AICAMERA_PLUGIN_TIMEOUT_MS", 5000),
		RetentionDays: getEnvAsInt("AICAMERA_RETENTION_DAYS", 30),
	}
}

// DatabasePath returns the sqlite database location under the data directory.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "aicamera.db")
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".aicamera"
	}
	return filepath.Join(home, ".aicamera")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
