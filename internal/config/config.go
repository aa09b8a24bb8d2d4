package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port               string
	ListenHost         string
	Env                string
	LogLevel           string
	LogFormat          string
	CORSAllowedOrigins []string
	ChatRatePerSecond  float64
	ChatRateBurst      int

	// Store
	DatabaseDriver string
	SQLitePath     string
	DatabaseURL    string

	// Seeding
	SeedOnStart bool
	SeedDays    int
	SeedEndDate string

	// Assistant
	LLMProvider      string
	GeminiAPIKey     string
	GeminiModelID    string
	BedrockModelID   string
	AssistantTimeout time.Duration
	TranscriptKey    string

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// Clinic facts the assistant is allowed to quote
	ClinicName    string
	ClinicAddress string
	ClinicPhone   string
	ClinicHours   string
}

// Load reads configuration from environment variables. A .env file in the
// working directory is applied first when present; real environment
// variables always win over it.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:               getEnv("PORT", "8080"),
		ListenHost:         getEnv("LISTEN_HOST", "127.0.0.1"),
		Env:                getEnv("ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "json"),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
		ChatRatePerSecond:  getEnvAsFloat("CHAT_RATE_PER_SECOND", 0.5),
		ChatRateBurst:      getEnvAsInt("CHAT_RATE_BURST", 5),

		DatabaseDriver: strings.ToLower(strings.TrimSpace(getEnv("DATABASE_DRIVER", "sqlite"))),
		SQLitePath:     getEnv("SQLITE_PATH", "klinik_awan.db"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),

		SeedOnStart: getEnvAsBool("SEED_ON_START", true),
		SeedDays:    getEnvAsInt("SEED_DAYS", 5),
		SeedEndDate: getEnv("SEED_END_DATE", ""),

		LLMProvider:      strings.ToLower(strings.TrimSpace(getEnv("LLM_PROVIDER", "gemini"))),
		GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
		GeminiModelID:    getEnv("GEMINI_MODEL_ID", "gemini-1.5-flash"),
		BedrockModelID:   getEnv("BEDROCK_MODEL_ID", ""),
		AssistantTimeout: getEnvAsDuration("ASSISTANT_TIMEOUT", 60*time.Second),
		TranscriptKey:    getEnv("TRANSCRIPT_KEY", "frontdesk"),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		ClinicName:    getEnv("CLINIC_NAME", "Klinik Awan"),
		ClinicAddress: getEnv("CLINIC_ADDRESS", "Jalan Merdeka No. 123, Semarang, Jawa Tengah."),
		ClinicPhone:   getEnv("CLINIC_PHONE", "(024) 12345678"),
		ClinicHours:   getEnv("CLINIC_HOURS", "Senin - Jumat, 08:00 - 20:00; Sabtu, 09:00 - 17:00; Minggu Tutup."),
	}
}

// Addr is the listen address for the local HTTP adapter.
func (c *Config) Addr() string {
	return c.ListenHost + ":" + c.Port
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
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

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
