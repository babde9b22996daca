package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Database DatabaseConfig
	Backend  BackendConfig
	Auth     AuthConfig
	Render   RenderConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type RedisConfig struct {
	Addr string
}

type KafkaConfig struct {
	Brokers  []string
	Topic    string
	MockMode bool
	Enabled  bool
}

type DatabaseConfig struct {
	Driver       string // sqlite or postgres
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

type BackendConfig struct {
	URL     string
	Timeout time.Duration
}

type AuthConfig struct {
	Skip          bool
	OIDCIssuer    string
	KeycloakURL   string
	KeycloakRealm string
	ClientID      string
	ClientSecret  string
}

type RenderConfig struct {
	Scale          float64
	DocumentQRSize int
	PreviewQRSize  int
	Brand          string
	Accent         string
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", ":8086"),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Redis: RedisConfig{
			Addr: getEnv("REDIS_ADDR", ""),
		},
		Kafka: KafkaConfig{
			Brokers:  splitList(getEnv("KAFKA_BROKERS", "localhost:9092")),
			Topic:    getEnv("KAFKA_TOPIC_DOCUMENTS", "zafo.tickets.document_generated"),
			Enabled:  getEnvBool("KAFKA_ENABLED", false),
			MockMode: getEnvBool("KAFKA_MOCK_MODE", false),
		},
		Database: DatabaseConfig{
			Driver:       getEnv("DB_DRIVER", "sqlite"),
			DSN:          getEnv("DB_DSN", "file:ticket_documents.db?cache=shared"),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 10),
			MaxLifetime:  time.Duration(getEnvInt("DB_MAX_LIFETIME_MINUTES", 5)) * time.Minute,
		},
		Backend: BackendConfig{
			URL:     strings.TrimRight(getEnv("BACKEND_URL", "http://localhost:8080"), "/"),
			Timeout: time.Duration(getEnvInt("BACKEND_TIMEOUT_SECONDS", 10)) * time.Second,
		},
		Auth: AuthConfig{
			Skip:          getEnvBool("AUTH_SKIP", false),
			OIDCIssuer:    getEnv("OIDC_ISSUER", ""),
			KeycloakURL:   getEnv("KEYCLOAK_URL", ""),
			KeycloakRealm: getEnv("KEYCLOAK_REALM", ""),
			ClientID:      getEnv("CLIENT_ID", ""),
			ClientSecret:  getEnv("CLIENT_SECRET", ""),
		},
		Render: RenderConfig{
			Scale:          getEnvFloat("RENDER_SCALE", 3),
			DocumentQRSize: getEnvInt("RENDER_QR_SIZE", 120),
			PreviewQRSize:  getEnvInt("RENDER_PREVIEW_QR_SIZE", 80),
			Brand:          getEnv("RENDER_BRAND", "Zafo"),
			Accent:         getEnv("RENDER_ACCENT", "#4f46e5"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
