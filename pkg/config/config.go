package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	AI       AIConfig
	Coach    CoachConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port            string
	Host            string
	Environment     string
	AllowedOrigins  []string
	ShutdownTimeout int
}

// DatabaseConfig holds database configuration for the durable event log
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int
	MinConns int
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// JWTConfig holds JWT configuration for handshake verification
type JWTConfig struct {
	AccessSecret string
	AccessExpiry time.Duration
}

// AIConfig holds completion-service configuration
type AIConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	RequestTimeout time.Duration
}

// CoachConfig holds tunables for the live coaching pipeline. The interruption
// and rapid-exchange gaps were calibrated empirically; keep the defaults
// unless you have call data saying otherwise.
type CoachConfig struct {
	BufferMaxChunks         int
	BufferTTL               time.Duration
	TalkTimeTTL             time.Duration
	SnapshotRetention       time.Duration
	ConfigTTL               time.Duration
	SuggestionCooldown      time.Duration
	MinContextChunks        int
	ConfidenceGate          float64
	SentimentThreshold      float64
	SentimentSampleInterval int
	InterruptionGap         time.Duration
	RapidExchangeGap        time.Duration
	KeepAliveInterval       time.Duration
	KeepAliveMisses         int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables or defaults")
	}

	config := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			Host:            getEnv("HOST", "0.0.0.0"),
			Environment:     getEnv("ENVIRONMENT", "development"),
			AllowedOrigins:  []string{getEnv("ALLOWED_ORIGINS", "http://localhost:3000")},
			ShutdownTimeout: getEnvAsInt("SHUTDOWN_TIMEOUT", 10),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			Name:     getEnv("DB_NAME", "coaching_engine"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns: getEnvAsInt("DB_MIN_CONNS", 5),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			AccessSecret: getEnv("JWT_ACCESS_SECRET", "your-access-secret-change-in-production"),
			AccessExpiry: getEnvAsDuration("JWT_ACCESS_EXPIRY", "15m"),
		},
		AI: AIConfig{
			APIKey:         getEnv("AI_API_KEY", ""),
			BaseURL:        getEnv("AI_API_URL", "https://api.groq.com"),
			Model:          getEnv("AI_MODEL", "llama-3.1-70b-versatile"),
			RequestTimeout: getEnvAsDuration("AI_REQUEST_TIMEOUT", "10s"),
		},
		Coach: CoachConfig{
			BufferMaxChunks:         getEnvAsInt("COACH_BUFFER_MAX_CHUNKS", 30),
			BufferTTL:               getEnvAsDuration("COACH_BUFFER_TTL", "30m"),
			TalkTimeTTL:             getEnvAsDuration("COACH_TALK_TIME_TTL", "30m"),
			SnapshotRetention:       getEnvAsDuration("COACH_SNAPSHOT_RETENTION", "24h"),
			ConfigTTL:               getEnvAsDuration("COACH_CONFIG_TTL", "168h"),
			SuggestionCooldown:      getEnvAsDuration("COACH_SUGGESTION_COOLDOWN", "30s"),
			MinContextChunks:        getEnvAsInt("COACH_MIN_CONTEXT_CHUNKS", 3),
			ConfidenceGate:          getEnvAsFloat("COACH_CONFIDENCE_GATE", 0.7),
			SentimentThreshold:      getEnvAsFloat("COACH_SENTIMENT_THRESHOLD", -0.3),
			SentimentSampleInterval: getEnvAsInt("COACH_SENTIMENT_SAMPLE_INTERVAL", 5),
			InterruptionGap:         getEnvAsDuration("COACH_INTERRUPTION_GAP", "500ms"),
			RapidExchangeGap:        getEnvAsDuration("COACH_RAPID_EXCHANGE_GAP", "2s"),
			KeepAliveInterval:       getEnvAsDuration("COACH_KEEPALIVE_INTERVAL", "30s"),
			KeepAliveMisses:         getEnvAsInt("COACH_KEEPALIVE_MISSES", 3),
		},
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.JWT.AccessSecret == "" {
		return fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if c.Coach.BufferMaxChunks <= 0 {
		return fmt.Errorf("COACH_BUFFER_MAX_CHUNKS must be positive")
	}
	if c.Coach.SentimentSampleInterval <= 0 {
		return fmt.Errorf("COACH_SENTIMENT_SAMPLE_INTERVAL must be positive")
	}
	return nil
}

// GetDatabaseDSN returns the database connection string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// GetRedisAddr returns the Redis address
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}
	return duration
}
