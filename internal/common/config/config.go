package config

import (
	"log"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ============================================================
// Configuration
// ============================================================

type Config struct {
	Port         string `yaml:"port"`
	Environment  string `yaml:"environment"`
	ReadTimeout  int    `yaml:"readTimeout"`
	WriteTimeout int    `yaml:"writeTimeout"`

	DBPath string `yaml:"dbPath"`

	// Export grid: a square of GridSize meters split into
	// GridDivisions cells per axis.
	GridSize      float64 `yaml:"gridSize"`
	GridDivisions int     `yaml:"gridDivisions"`

	// MaxHeight is the extrude height at the top of the viewport.
	MaxHeight float64 `yaml:"maxHeight"`
}

// Load builds the configuration: defaults, then the optional YAML
// file named by CONFIG_FILE, then environment variables on top.
func Load() *Config {
	cfg := &Config{
		Port:          "3000",
		Environment:   "development",
		ReadTimeout:   10,
		WriteTimeout:  10,
		DBPath:        "data/db/sites.db",
		GridSize:      200,
		GridDivisions: 100,
		MaxHeight:     120,
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			log.Printf("[CONFIG] %s: %v, using defaults", path, err)
		}
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.Environment = getEnv("ENV", cfg.Environment)
	cfg.ReadTimeout = getEnvAsInt("READ_TIMEOUT", cfg.ReadTimeout)
	cfg.WriteTimeout = getEnvAsInt("WRITE_TIMEOUT", cfg.WriteTimeout)
	cfg.DBPath = getEnv("DB_PATH", cfg.DBPath)
	cfg.GridSize = getEnvAsFloat("GRID_SIZE", cfg.GridSize)
	cfg.GridDivisions = getEnvAsInt("GRID_DIVISIONS", cfg.GridDivisions)
	cfg.MaxHeight = getEnvAsFloat("MAX_HEIGHT", cfg.MaxHeight)

	return cfg
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsFloat(key string, defaultVal float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultVal
}
