package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database     DatabaseConfig
	Server       ServerConfig
	Verification VerificationConfig
	Email        EmailConfig
	Auth         AuthConfig
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	AllowedOrigins []string
	StoreBackend   string // "postgres" or "memory"
}

// VerificationConfig holds every knob of the OTP verification core.
// Passed explicitly into the orchestrator so tests can tighten the windows.
type VerificationConfig struct {
	CodeLength       int
	CodeTTL          time.Duration
	LockoutThreshold int
	LockoutCooldown  time.Duration
	AllowedDomains   []string
	CleanupInterval  time.Duration
	DeliveryTimeout  time.Duration
}

type EmailConfig struct {
	Provider      string // "ses" or "log"
	AWSRegion     string
	FromAddress   string
	SubjectPrefix string
}

type AuthConfig struct {
	JWTSecret           string
	VerifiedTokenExpiry time.Duration
	TOTPIssuer          string
	TOTPEncryptionKey   string // 32 bytes for AES-256
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	env := getEnv("ENV", "development")

	cfg := &Config{
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "booking"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
		},
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			AllowedOrigins: parseAllowedOrigins(env),
			StoreBackend:   getEnv("STORE_BACKEND", "postgres"),
		},
		Verification: VerificationConfig{
			CodeLength:       getEnvAsInt("OTP_CODE_LENGTH", 6),
			CodeTTL:          getEnvAsDuration("OTP_CODE_TTL", 10*time.Minute),
			LockoutThreshold: getEnvAsInt("LOCKOUT_THRESHOLD", 5),
			LockoutCooldown:  getEnvAsDuration("LOCKOUT_COOLDOWN", 30*time.Minute),
			AllowedDomains:   parseAllowedDomains(),
			CleanupInterval:  getEnvAsDuration("CHALLENGE_CLEANUP_INTERVAL", 1*time.Hour),
			DeliveryTimeout:  getEnvAsDuration("DELIVERY_TIMEOUT", 5*time.Second),
		},
		Email: EmailConfig{
			Provider:      getEnv("EMAIL_PROVIDER", "ses"),
			AWSRegion:     getEnv("AWS_REGION", "eu-west-1"),
			FromAddress:   getEnv("EMAIL_FROM_ADDRESS", "noreply@icpac.net"),
			SubjectPrefix: getEnv("EMAIL_SUBJECT_PREFIX", "[ICPAC Booking] "),
		},
		Auth: AuthConfig{
			JWTSecret:           jwtSecret,
			VerifiedTokenExpiry: getEnvAsDuration("VERIFIED_TOKEN_EXPIRY", 60*time.Minute),
			TOTPIssuer:          getEnv("TOTP_ISSUER", "ICPAC Booking System"),
			TOTPEncryptionKey:   getEnv("TOTP_ENCRYPTION_KEY", ""),
		},
	}

	if cfg.Server.StoreBackend == "postgres" && cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	// Validate JWT secret strength
	if err := validateJWTSecret(jwtSecret, env); err != nil {
		return nil, err
	}

	if len(cfg.Verification.AllowedDomains) == 0 {
		return nil, fmt.Errorf("ALLOWED_EMAIL_DOMAINS must not be empty")
	}

	return cfg, nil
}

// validateJWTSecret enforces minimum security standards for JWT secret
func validateJWTSecret(secret, env string) error {
	minLength := 16 // Development minimum
	if env == "production" {
		minLength = 32 // Production requires stronger secret (256 bits)
	}

	if len(secret) < minLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("JWT_SECRET cannot be a common weak value")
		}
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func parseAllowedDomains() []string {
	domainsStr := getEnv("ALLOWED_EMAIL_DOMAINS", "icpac.net,igad.int,icpac.net.office")
	domains := strings.Split(domainsStr, ",")
	out := make([]string, 0, len(domains))
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			out = append(out, d)
		}
	}
	return out
}

func parseAllowedOrigins(env string) []string {
	if env == "production" {
		originsStr := getEnv("ALLOWED_ORIGINS", "")
		if originsStr == "" {
			return []string{} // Default to no origins in production
		}
		origins := strings.Split(originsStr, ",")
		for i, origin := range origins {
			origins[i] = strings.TrimSpace(origin)
		}
		return origins
	}

	// Development: allow localhost variants
	return []string{
		"http://localhost:3000",
		"http://localhost:5000",
		"http://localhost:8080",
		"http://127.0.0.1:3000",
		"http://127.0.0.1:5000",
		"http://127.0.0.1:8080",
	}
}
