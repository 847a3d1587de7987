package config

import (
	"strconv"
	"strings"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidationErrors collects every problem found in a Config
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "\n")
}

// Has reports whether field failed validation
func (e ValidationErrors) Has(field string) bool {
	for _, err := range e {
		if err.Field == field {
			return true
		}
	}
	return false
}

// ValidateConfig checks if the configuration meets the requirements for its environment
func ValidateConfig(cfg *Config) error {
	var errs ValidationErrors
	add := func(field, msg string) {
		errs = append(errs, ValidationError{Field: field, Message: msg})
	}

	if port, err := strconv.Atoi(cfg.ServerPort); err != nil || port <= 0 || port > 65535 {
		add("SERVER_PORT", "must be a valid port number")
	}

	validateDatabase(cfg, add)

	switch cfg.IdentityProvider {
	case "supabase":
		if cfg.SupabaseURL == "" {
			add("SUPABASE_URL", "is required for the supabase identity provider")
		}
		if cfg.SupabaseAnonKey == "" {
			add("SUPABASE_ANON_KEY", "is required for the supabase identity provider")
		}
	case "jwt":
		if cfg.JWTSecret == "" {
			add("JWT_SECRET", "is required for the jwt identity provider")
		}
	default:
		add("IDENTITY_PROVIDER", "must be supabase or jwt")
	}

	if cfg.LLMAPIKey == "" && cfg.Environment != Test {
		add("GROQ_API_KEY", "GROQ_API_KEY or GROQ_API_KEY_FILE must be set")
	}

	switch cfg.RateLimitStore {
	case "memory":
	case "redis":
		if cfg.RedisURL == "" && cfg.RedisHost == "" {
			add("REDIS_HOST", "is required for the redis rate limit store")
		}
	default:
		add("RATE_LIMIT_STORE", "must be memory or redis")
	}

	for field, v := range map[string]int{
		"PLAN_RATE_LIMIT_PER_MINUTE": cfg.PlanRateLimitPerMinute,
		"PLAN_RATE_LIMIT_PER_HOUR":   cfg.PlanRateLimitPerHour,
		"CART_RATE_LIMIT_PER_MINUTE": cfg.CartRateLimitPerMinute,
		"CART_RATE_LIMIT_PER_HOUR":   cfg.CartRateLimitPerHour,
	} {
		if v <= 0 {
			add(field, "must be positive")
		}
	}
	if cfg.PlanRateLimitPerMinute > cfg.PlanRateLimitPerHour {
		add("PLAN_RATE_LIMIT_PER_MINUTE", "must not exceed the hourly limit")
	}
	if cfg.CartRateLimitPerMinute > cfg.CartRateLimitPerHour {
		add("CART_RATE_LIMIT_PER_MINUTE", "must not exceed the hourly limit")
	}

	if cfg.CartMaxRetries < 0 {
		add("CART_MAX_RETRIES", "must not be negative")
	}
	if cfg.LLMTemperature < 0 {
		add("LLM_TEMPERATURE", "must not be negative")
	}
	if cfg.LLMTimeout <= 0 {
		add("LLM_TIMEOUT", "must be positive")
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ValidateDatabaseConfig checks only the settings needed to open the database.
func ValidateDatabaseConfig(cfg *Config) error {
	var errs ValidationErrors
	validateDatabase(cfg, func(field, msg string) {
		errs = append(errs, ValidationError{Field: field, Message: msg})
	})
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateDatabase(cfg *Config, add func(field, msg string)) {
	switch cfg.DBDriver {
	case "sqlite":
		if cfg.DBPath == "" {
			add("DB_PATH", "is required for the sqlite driver")
		}
		if cfg.Environment.IsProduction() {
			add("DB_DRIVER", "sqlite is not supported in production")
		}
	case "postgres":
		if cfg.DBHost == "" {
			add("DB_HOST", "is required")
		}
		if cfg.DBName == "" {
			add("DB_NAME", "is required")
		}
		if cfg.DBUser == "" {
			add("DB_USER", "is required")
		}
		if cfg.DBPassword == "" && cfg.Environment.RequiresSecrets() {
			add("DB_PASSWORD", "is required")
		}
	default:
		add("DB_DRIVER", "must be postgres or sqlite")
	}
}
