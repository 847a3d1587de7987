package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Environment Environment

	// Server configuration
	ServerPort      string
	ServerHost      string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration

	// Database configuration
	DBDriver   string
	DBPath     string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Redis configuration
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	RedisURL      string

	// Identity configuration
	IdentityProvider string
	SupabaseURL      string
	SupabaseAnonKey  string
	JWTSecret        string

	// Text generation
	LLMAPIKey      string
	LLMAPIURL      string
	LLMModel       string
	LLMMaxTokens   int
	LLMTemperature float64
	LLMTimeout     time.Duration

	// Rate limiting
	RateLimitStore         string
	PlanRateLimitPerMinute int
	PlanRateLimitPerHour   int
	CartRateLimitPerMinute int
	CartRateLimitPerHour   int
	RateLimitSweepSchedule string

	// Cart automation worker
	CartWorkerURL  string
	CartTimeout    time.Duration
	CartMaxRetries int

	// Product images
	ProductSearchURL         string
	ProductPlaceholderURL    string
	ProductRequestsPerSecond float64
	ProductConcurrency       int
	ProductCacheTTL          time.Duration
	S3BucketName             string
	AWSRegion                string

	CORSAllowedOrigins []string
	LogLevel           string
}

// secretKeys may be supplied as Docker secrets named after the lowercased key.
var secretKeys = []string{
	"DB_USER",
	"DB_PASSWORD",
	"REDIS_PASSWORD",
	"REDIS_URL",
	"JWT_SECRET",
	"SUPABASE_ANON_KEY",
	"GROQ_API_KEY",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_READ_TIMEOUT", "15s")
	v.SetDefault("SERVER_WRITE_TIMEOUT", "60s")
	v.SetDefault("SERVER_SHUTDOWN_TIMEOUT", "10s")

	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_PATH", "grocer.db")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_NAME", "grocer")
	v.SetDefault("DB_SSL_MODE", "disable")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("IDENTITY_PROVIDER", "supabase")

	v.SetDefault("LLM_API_URL", "https://api.groq.com/openai/v1/chat/completions")
	v.SetDefault("LLM_MODEL", "llama3-8b-8192")
	v.SetDefault("LLM_MAX_TOKENS", 1000)
	v.SetDefault("LLM_TEMPERATURE", 0.2)
	v.SetDefault("LLM_TIMEOUT", "30s")

	v.SetDefault("RATE_LIMIT_STORE", "memory")
	v.SetDefault("PLAN_RATE_LIMIT_PER_MINUTE", 3)
	v.SetDefault("PLAN_RATE_LIMIT_PER_HOUR", 15)
	v.SetDefault("CART_RATE_LIMIT_PER_MINUTE", 2)
	v.SetDefault("CART_RATE_LIMIT_PER_HOUR", 8)
	v.SetDefault("RATE_LIMIT_SWEEP_SCHEDULE", "@every 1h")

	v.SetDefault("CART_TIMEOUT", "2m")
	v.SetDefault("CART_MAX_RETRIES", 2)

	v.SetDefault("PRODUCT_SEARCH_URL", "https://world.openfoodfacts.org/cgi/search.pl")
	v.SetDefault("PRODUCT_PLACEHOLDER_URL", "/placeholder-food.png")
	v.SetDefault("PRODUCT_REQUESTS_PER_SECOND", 5)
	v.SetDefault("PRODUCT_CONCURRENCY", 4)
	v.SetDefault("PRODUCT_CACHE_TTL", "24h")

	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("LOG_LEVEL", "info")
}

// LoadConfig builds a Config from defaults, environment variables and
// secrets, then validates it for the current environment.
func LoadConfig() (*Config, error) {
	return load(ValidateConfig)
}

// LoadDatabaseConfig is LoadConfig for tools that only touch the database.
func LoadDatabaseConfig() (*Config, error) {
	return load(ValidateDatabaseConfig)
}

func load(validate func(*Config) error) (*Config, error) {
	env := GetEnvironment()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	// Outside CI, secrets may come from mounted files.
	if env.ReadsSecretFiles() {
		for _, key := range secretKeys {
			if secret := readSecret(strings.ToLower(key)); secret != "" {
				if env.IsProduction() || v.GetString(key) == "" {
					v.Set(key, secret)
				}
			}
		}
	}

	apiKey, err := envOrFile(v, "GROQ_API_KEY")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Environment: env,

		ServerPort:      v.GetString("SERVER_PORT"),
		ServerHost:      v.GetString("SERVER_HOST"),
		ReadTimeout:     v.GetDuration("SERVER_READ_TIMEOUT"),
		WriteTimeout:    v.GetDuration("SERVER_WRITE_TIMEOUT"),
		ShutdownTimeout: v.GetDuration("SERVER_SHUTDOWN_TIMEOUT"),

		DBDriver:   strings.ToLower(v.GetString("DB_DRIVER")),
		DBPath:     v.GetString("DB_PATH"),
		DBHost:     v.GetString("DB_HOST"),
		DBPort:     v.GetString("DB_PORT"),
		DBUser:     v.GetString("DB_USER"),
		DBPassword: v.GetString("DB_PASSWORD"),
		DBName:     v.GetString("DB_NAME"),
		DBSSLMode:  v.GetString("DB_SSL_MODE"),

		RedisHost:     v.GetString("REDIS_HOST"),
		RedisPort:     v.GetString("REDIS_PORT"),
		RedisPassword: v.GetString("REDIS_PASSWORD"),
		RedisDB:       v.GetInt("REDIS_DB"),
		RedisURL:      v.GetString("REDIS_URL"),

		IdentityProvider: strings.ToLower(v.GetString("IDENTITY_PROVIDER")),
		SupabaseURL:      v.GetString("SUPABASE_URL"),
		SupabaseAnonKey:  v.GetString("SUPABASE_ANON_KEY"),
		JWTSecret:        v.GetString("JWT_SECRET"),

		LLMAPIKey:      apiKey,
		LLMAPIURL:      v.GetString("LLM_API_URL"),
		LLMModel:       v.GetString("LLM_MODEL"),
		LLMMaxTokens:   v.GetInt("LLM_MAX_TOKENS"),
		LLMTemperature: v.GetFloat64("LLM_TEMPERATURE"),
		LLMTimeout:     v.GetDuration("LLM_TIMEOUT"),

		RateLimitStore:         strings.ToLower(v.GetString("RATE_LIMIT_STORE")),
		PlanRateLimitPerMinute: v.GetInt("PLAN_RATE_LIMIT_PER_MINUTE"),
		PlanRateLimitPerHour:   v.GetInt("PLAN_RATE_LIMIT_PER_HOUR"),
		CartRateLimitPerMinute: v.GetInt("CART_RATE_LIMIT_PER_MINUTE"),
		CartRateLimitPerHour:   v.GetInt("CART_RATE_LIMIT_PER_HOUR"),
		RateLimitSweepSchedule: v.GetString("RATE_LIMIT_SWEEP_SCHEDULE"),

		CartWorkerURL:  v.GetString("CART_AUTOMATION_URL"),
		CartTimeout:    v.GetDuration("CART_TIMEOUT"),
		CartMaxRetries: v.GetInt("CART_MAX_RETRIES"),

		ProductSearchURL:         v.GetString("PRODUCT_SEARCH_URL"),
		ProductPlaceholderURL:    v.GetString("PRODUCT_PLACEHOLDER_URL"),
		ProductRequestsPerSecond: v.GetFloat64("PRODUCT_REQUESTS_PER_SECOND"),
		ProductConcurrency:       v.GetInt("PRODUCT_CONCURRENCY"),
		ProductCacheTTL:          v.GetDuration("PRODUCT_CACHE_TTL"),
		S3BucketName:             v.GetString("S3_BUCKET_NAME"),
		AWSRegion:                v.GetString("AWS_REGION"),

		CORSAllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		LogLevel:           v.GetString("LOG_LEVEL"),
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return c.ServerHost + ":" + c.ServerPort
}

// PostgresDSN returns the lib/pq connection string
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
	)
}

// envOrFile reads key from the environment or from the file named by key_FILE.
func envOrFile(v *viper.Viper, key string) (string, error) {
	if value := strings.TrimSpace(v.GetString(key)); value != "" {
		return value, nil
	}
	path := os.Getenv(key + "_FILE")
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s_FILE: %w", key, err)
	}
	value := strings.TrimSpace(string(data))
	if value == "" {
		return "", fmt.Errorf("%s_FILE is empty", key)
	}
	return value, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// readSecret reads a Docker secret from the secrets directory
func readSecret(name string) string {
	secretsDir := os.Getenv("SECRETS_DIR")
	if secretsDir == "" {
		secretsDir = "/run/secrets"
	}
	secretPath := filepath.Join(secretsDir, name)
	if data, err := os.ReadFile(secretPath); err == nil {
		return strings.TrimSpace(string(data))
	}
	return ""
}
