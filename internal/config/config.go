package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DatabasePath   string
	HistoryDir     string
	CheckpointPath string
	LogLevel       string
	Port           int
	DevMode        bool

	// Model hyperparameters. Changing WindowSize or HiddenDim invalidates
	// any persisted checkpoint.
	WindowSize int
	HiddenDim  int

	// Training defaults, overridable per request.
	Epochs        int
	Patience      int
	BatchSize     int
	LearningRate  float64
	TrainSamples  int
	ValSamples    int
	LookbackYears int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:           getEnvAsInt("PORT", 8001),
		DevMode:        getEnvAsBool("DEV_MODE", false),
		DatabasePath:   getEnv("DATABASE_PATH", "./data/allocation.db"),
		HistoryDir:     getEnv("HISTORY_DIR", "./data/history"),
		CheckpointPath: getEnv("CHECKPOINT_PATH", "./data/allocation_model.ckpt"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),

		WindowSize: getEnvAsInt("WINDOW_SIZE", 252),
		HiddenDim:  getEnvAsInt("HIDDEN_DIM", 64),

		Epochs:        getEnvAsInt("TRAIN_EPOCHS", 50),
		Patience:      getEnvAsInt("TRAIN_PATIENCE", 10),
		BatchSize:     getEnvAsInt("TRAIN_BATCH_SIZE", 16),
		LearningRate:  getEnvAsFloat("TRAIN_LEARNING_RATE", 1e-4),
		TrainSamples:  getEnvAsInt("TRAIN_SAMPLES", 1000),
		ValSamples:    getEnvAsInt("VAL_SAMPLES", 200),
		LookbackYears: getEnvAsInt("LOOKBACK_YEARS", 5),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}
	if c.HistoryDir == "" {
		return fmt.Errorf("HISTORY_DIR is required")
	}
	if c.WindowSize < 8 {
		return fmt.Errorf("WINDOW_SIZE must be at least 8, got %d", c.WindowSize)
	}
	if c.HiddenDim < 2 {
		return fmt.Errorf("HIDDEN_DIM must be at least 2, got %d", c.HiddenDim)
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
