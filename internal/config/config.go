package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all service configuration loaded from environment variables.
type Config struct {
	Port      string
	LogLevel  string
	LogFormat string

	PostgresDSN   string
	MongoURI      string
	MongoDB       string
	RedisAddr     string
	RedisPassword string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	AIServiceURL      string
	GenerationTimeout time.Duration

	// Identity provider used to verify client-obtained ID tokens.
	IdentityProjectID string
	IdentityIssuer    string
	IdentityPublicKey string

	CookieSecure   bool
	AllowedOrigins []string
}

// Load reads configuration from the environment. A .env file is loaded
// first when present.
func Load() *Config {
	_ = godotenv.Load()

	projectID := getenv("IDENTITY_PROJECT_ID", "")
	return &Config{
		Port:              getenv("PORT", "8080"),
		LogLevel:          getenv("LOG_LEVEL", "info"),
		LogFormat:         getenv("LOG_FORMAT", "json"),
		PostgresDSN:       getenv("POSTGRES_DSN", ""),
		MongoURI:          getenv("MONGO_URI", ""),
		MongoDB:           getenv("MONGO_DB", "sahayak"),
		RedisAddr:         getenv("REDIS_ADDR", "redis:6379"),
		RedisPassword:     getenv("REDIS_PASSWORD", ""),
		MinioEndpoint:     getenv("MINIO_ENDPOINT", "minio:9000"),
		MinioAccessKey:    getenv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey:    getenv("MINIO_SECRET_KEY", ""),
		MinioBucket:       getenv("MINIO_BUCKET", "quiz-submissions"),
		MinioUseSSL:       getenv("MINIO_USE_SSL", "false") == "true",
		AIServiceURL:      getenv("AI_SERVICE_URL", "http://146.148.56.108:8000"),
		GenerationTimeout: time.Duration(getenvInt("GENERATION_TIMEOUT_SECONDS", 0)) * time.Second,
		IdentityProjectID: projectID,
		IdentityIssuer:    getenv("IDENTITY_ISSUER", defaultIssuer(projectID)),
		IdentityPublicKey: unescapePEM(getenv("IDENTITY_PUBLIC_KEY", "")),
		CookieSecure:      getenv("COOKIE_SECURE", "true") == "true",
		AllowedOrigins:    parseOrigins(getenv("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:9002")),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func defaultIssuer(projectID string) string {
	if projectID == "" {
		return ""
	}
	return "https://securetoken.google.com/" + projectID
}

// unescapePEM turns literal "\n" sequences into newlines so a key can be
// passed on a single env line.
func unescapePEM(s string) string {
	return strings.ReplaceAll(s, `\n`, "\n")
}

func parseOrigins(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}
