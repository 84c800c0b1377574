package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort       string
	AppMode       string
	DBHost        string
	DBUser        string
	DBPassword    string
	DBName        string
	DBPort        string
	JWTSecret     string
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	MediaGatewayURL    string
	IdentityGatewayURL string

	// Chat limits
	MaxMessageLength int
	PageSizeDefault  int
	PageSizeMax      int

	// Idle room sweeping
	RoomIdleTimeout time.Duration
	SweepInterval   time.Duration

	// Transcript archive
	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3Endpoint  string
}

func LoadConfig() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return &Config{
		AppPort:       getEnv("APP_PORT", "8080"),
		AppMode:       getEnv("APP_MODE", "debug"),
		DBHost:        getEnv("DB_HOST", "localhost"),
		DBUser:        getEnv("DB_USER", "postgres"),
		DBPassword:    getEnv("DB_PASSWORD", "postgres"),
		DBName:        getEnv("DB_NAME", "watchparty"),
		DBPort:        getEnv("DB_PORT", "5432"),
		JWTSecret:     getEnv("JWT_SECRET", "change-me"),
		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		MediaGatewayURL:    getEnv("MEDIA_GATEWAY_URL", "http://localhost:8081"),
		IdentityGatewayURL: getEnv("IDENTITY_GATEWAY_URL", "http://localhost:8082"),

		MaxMessageLength: getEnvAsInt("MAX_MESSAGE_LENGTH", 4000),
		PageSizeDefault:  getEnvAsInt("PAGE_SIZE_DEFAULT", 50),
		PageSizeMax:      getEnvAsInt("PAGE_SIZE_MAX", 100),

		RoomIdleTimeout: getEnvAsDuration("ROOM_IDLE_TIMEOUT", 4*time.Hour),
		SweepInterval:   getEnvAsDuration("SWEEP_INTERVAL", 5*time.Minute),

		S3Region:    getEnv("S3_REGION", ""),
		S3Bucket:    getEnv("S3_BUCKET", ""),
		S3AccessKey: getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey: getEnv("S3_SECRET_KEY", ""),
		S3Endpoint:  getEnv("S3_ENDPOINT", ""),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return fallback
}
