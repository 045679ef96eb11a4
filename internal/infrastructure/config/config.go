package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/wayfarerhq/impact/internal/domain"
)

// Config holds all configuration for the application.
// loaded from environment variables, no magic defaults for required fields.
type Config struct {
	Database DatabaseConfig
	Auth     AuthConfig
	Redis    RedisConfig
	Engine   EngineConfig
}

// DatabaseConfig contains database connection parameters.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
	Schema   string
}

// AuthConfig contains authentication configuration.
type AuthConfig struct {
	// JWTSecret is the HMAC secret for token validation.
	JWTSecret string
}

// RedisConfig contains redis connection parameters.
// an empty URL disables the leaderboard cache.
type RedisConfig struct {
	URL string
}

// EngineConfig exposes the score engine tunables. every value has a
// production default and can be overridden per environment.
type EngineConfig struct {
	DecayFactor         float64
	SmoothingRate       float64
	MaxHistoryLength    int
	ScorePrecision      int
	MinScore            float64
	MaxScore            float64
	WeightCultural      float64
	WeightSocial        float64
	WeightEnvironmental float64
}

// Params converts the configured tunables into domain engine parameters.
func (c EngineConfig) Params() domain.EngineParams {
	return domain.EngineParams{
		DecayFactor:      c.DecayFactor,
		SmoothingRate:    c.SmoothingRate,
		MaxHistoryLength: c.MaxHistoryLength,
		ScorePrecision:   c.ScorePrecision,
		MinScore:         c.MinScore,
		MaxScore:         c.MaxScore,
		Weights: map[domain.Dimension]float64{
			domain.DimensionCultural:      c.WeightCultural,
			domain.DimensionSocial:        c.WeightSocial,
			domain.DimensionEnvironmental: c.WeightEnvironmental,
		},
	}
}

// ConnectionString returns the postgres connection string.
func (c DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s&search_path=%s",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Name,
		c.SSLMode,
		c.Schema,
	)
}

// Load reads configuration from environment variables.
// loads .env file if present, but doesn't fail if it's missing.
func Load() (*Config, error) {
	// try to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	dbConfig, err := loadDatabaseConfig()
	if err != nil {
		return nil, fmt.Errorf("database config: %w", err)
	}

	authConfig, err := loadAuthConfig()
	if err != nil {
		return nil, fmt.Errorf("auth config: %w", err)
	}

	engineConfig, err := loadEngineConfig()
	if err != nil {
		return nil, fmt.Errorf("engine config: %w", err)
	}

	return &Config{
		Database: dbConfig,
		Auth:     authConfig,
		Redis:    RedisConfig{URL: os.Getenv("REDIS_URL")},
		Engine:   engineConfig,
	}, nil
}

func loadAuthConfig() (AuthConfig, error) {
	config := AuthConfig{
		JWTSecret: os.Getenv("IMPACT_JWT_SECRET"),
	}

	if config.JWTSecret == "" {
		return config, errors.New("IMPACT_JWT_SECRET is required")
	}

	return config, nil
}

func loadDatabaseConfig() (DatabaseConfig, error) {
	config := DatabaseConfig{
		Host:     getEnvOrDefault("DB_HOST", "localhost"),
		Port:     getEnvOrDefault("DB_PORT", "5432"),
		User:     os.Getenv("DB_USER"),
		Password: os.Getenv("DB_PASSWORD"),
		Name:     os.Getenv("DB_NAME"),
		SSLMode:  getEnvOrDefault("DB_SSL_MODE", "require"),
		Schema:   getEnvOrDefault("DB_SCHEMA", "impact"),
	}

	// required fields must be set
	if config.User == "" {
		return config, errors.New("DB_USER is required")
	}
	if config.Password == "" {
		return config, errors.New("DB_PASSWORD is required")
	}
	if config.Name == "" {
		return config, errors.New("DB_NAME is required")
	}

	return config, nil
}

func loadEngineConfig() (EngineConfig, error) {
	config := EngineConfig{
		DecayFactor:         domain.DefaultDecayFactor,
		SmoothingRate:       domain.DefaultSmoothingRate,
		MaxHistoryLength:    domain.DefaultMaxHistoryLength,
		ScorePrecision:      domain.DefaultScorePrecision,
		MinScore:            domain.DefaultMinScore,
		MaxScore:            domain.DefaultMaxScore,
		WeightCultural:      1,
		WeightSocial:        1,
		WeightEnvironmental: 2,
	}

	overrides := []struct {
		key    string
		target *float64
	}{
		{"IMPACT_DECAY_FACTOR", &config.DecayFactor},
		{"IMPACT_SMOOTHING_RATE", &config.SmoothingRate},
		{"IMPACT_MIN_SCORE", &config.MinScore},
		{"IMPACT_MAX_SCORE", &config.MaxScore},
		{"IMPACT_WEIGHT_CULTURAL", &config.WeightCultural},
		{"IMPACT_WEIGHT_SOCIAL", &config.WeightSocial},
		{"IMPACT_WEIGHT_ENVIRONMENTAL", &config.WeightEnvironmental},
	}
	for _, o := range overrides {
		if raw := os.Getenv(o.key); raw != "" {
			value, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return config, fmt.Errorf("%s: %w", o.key, err)
			}
			*o.target = value
		}
	}

	intOverrides := []struct {
		key    string
		target *int
	}{
		{"IMPACT_MAX_HISTORY", &config.MaxHistoryLength},
		{"IMPACT_SCORE_PRECISION", &config.ScorePrecision},
	}
	for _, o := range intOverrides {
		if raw := os.Getenv(o.key); raw != "" {
			value, err := strconv.Atoi(raw)
			if err != nil {
				return config, fmt.Errorf("%s: %w", o.key, err)
			}
			*o.target = value
		}
	}

	if config.DecayFactor <= 0 || config.DecayFactor > 1 {
		return config, errors.New("IMPACT_DECAY_FACTOR must be in (0, 1]")
	}
	if config.SmoothingRate <= 0 || config.SmoothingRate > 1 {
		return config, errors.New("IMPACT_SMOOTHING_RATE must be in (0, 1]")
	}
	if config.MaxHistoryLength <= 0 {
		return config, errors.New("IMPACT_MAX_HISTORY must be positive")
	}
	if config.MinScore >= config.MaxScore {
		return config, errors.New("IMPACT_MIN_SCORE must be below IMPACT_MAX_SCORE")
	}

	return config, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
