package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Remote   RemoteConfig
	Realtime RealtimeConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	Environment        string
	LogFilePath        string
	RealtimeLogPath    string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	Connection string
}

type AuthConfig struct {
	JwtSecret       string
	SessionValidity time.Duration
	SweepInterval   time.Duration
}

type RemoteConfig struct {
	ChatBaseURL   string
	SendTimeout   time.Duration
	ProbeTimeout  time.Duration
	ProbeInterval time.Duration
}

type RealtimeConfig struct {
	MaxReconnectAttempts int
	ReconnectBaseDelay   time.Duration
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			RealtimeLogPath:    getEnv("REALTIME_LOG_PATH", "realtime.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", ""),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Auth: AuthConfig{
			JwtSecret:       getEnv("JWT_SECRET", "default_secret"),
			SessionValidity: getEnvAsDuration("SESSION_VALIDITY", 7*24*time.Hour),
			SweepInterval:   getEnvAsDuration("SESSION_SWEEP_INTERVAL", time.Minute),
		},
		Remote: RemoteConfig{
			ChatBaseURL:   getEnv("REMOTE_CHAT_BASE_URL", ""),
			SendTimeout:   getEnvAsDuration("REMOTE_SEND_TIMEOUT", 10*time.Second),
			ProbeTimeout:  getEnvAsDuration("REMOTE_PROBE_TIMEOUT", 5*time.Second),
			ProbeInterval: getEnvAsDuration("REMOTE_PROBE_INTERVAL", 30*time.Second),
		},
		Realtime: RealtimeConfig{
			MaxReconnectAttempts: getEnvAsInt("WS_MAX_RECONNECT_ATTEMPTS", 5),
			ReconnectBaseDelay:   getEnvAsDuration("WS_RECONNECT_BASE_DELAY", 2*time.Second),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
