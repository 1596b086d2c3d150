// Package config loads runtime settings from the environment and an optional
// .env file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DevJWTSecret signs tokens when ENV=development and no JWT_SECRET is set.
const DevJWTSecret = "dev-only-insecure-secret"

// Config holds every setting read from the environment and .env.
type Config struct {
	Port     string `mapstructure:"PORT"`
	Env      string `mapstructure:"ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBHost      string `mapstructure:"DB_HOST"`
	DBPort      string `mapstructure:"DB_PORT"`
	DBUser      string `mapstructure:"DB_USER"`
	DBPassword  string `mapstructure:"DB_PASSWORD"`
	DBName      string `mapstructure:"DB_NAME"`
	DBSSLMode   string `mapstructure:"DB_SSLMODE"`
	DBMaxConns  int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32  `mapstructure:"DB_MIN_CONNS"`

	RedisURL string `mapstructure:"REDIS_URL"`

	JWTSecret    string        `mapstructure:"JWT_SECRET"`
	JWTExpiresIn time.Duration `mapstructure:"JWT_EXPIRES_IN"`

	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`

	SlotDays         int     `mapstructure:"SLOT_DAYS"`
	SlotStartHour    int     `mapstructure:"SLOT_START_HOUR"`
	SlotEndHour      int     `mapstructure:"SLOT_END_HOUR"`
	SlotAvailability float64 `mapstructure:"SLOT_AVAILABILITY"`
	SlotSeed         int64   `mapstructure:"SLOT_SEED"`
}

var keys = []string{
	"PORT", "ENV", "LOG_LEVEL",
	"DATABASE_URL", "DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_SSLMODE",
	"DB_MAX_CONNS", "DB_MIN_CONNS",
	"REDIS_URL",
	"JWT_SECRET", "JWT_EXPIRES_IN",
	"CORS_ORIGINS",
	"SLOT_DAYS", "SLOT_START_HOUR", "SLOT_END_HOUR", "SLOT_AVAILABILITY", "SLOT_SEED",
}

// Load reads configuration. Values already present in the process
// environment win over those in the .env file.
func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "5001")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "clinic")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("JWT_EXPIRES_IN", "168h")
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("SLOT_DAYS", 10)
	v.SetDefault("SLOT_START_HOUR", 9)
	v.SetDefault("SLOT_END_HOUR", 16)
	v.SetDefault("SLOT_AVAILABILITY", 0.7)
	v.SetDefault("SLOT_SEED", 0)

	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.CORSOrigins) == 1 && strings.Contains(cfg.CORSOrigins[0], ",") {
		cfg.CORSOrigins = strings.Split(cfg.CORSOrigins[0], ",")
	}
	for i := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(cfg.CORSOrigins[i])
	}

	if cfg.JWTSecret == "" && cfg.IsDev() {
		cfg.JWTSecret = DevJWTSecret
	}

	return cfg, nil
}

// IsDev reports whether ENV is development.
func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// DSN returns DATABASE_URL when set, otherwise a libpq keyword/value string
// assembled from the DB_* settings.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
	)
}

// Validate checks settings every command relies on.
func (c *Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required outside development"))
	}
	if c.JWTExpiresIn <= 0 {
		errs = append(errs, fmt.Errorf("JWT_EXPIRES_IN must be positive, got %s", c.JWTExpiresIn))
	}
	if c.DBMaxConns < 1 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		errs = append(errs, fmt.Errorf("invalid pool bounds: min=%d max=%d", c.DBMinConns, c.DBMaxConns))
	}
	if c.SlotDays < 1 {
		errs = append(errs, fmt.Errorf("SLOT_DAYS must be at least 1, got %d", c.SlotDays))
	}
	if c.SlotStartHour < 0 || c.SlotEndHour > 24 || c.SlotStartHour >= c.SlotEndHour {
		errs = append(errs, fmt.Errorf("slot window [%d,%d) is invalid", c.SlotStartHour, c.SlotEndHour))
	}
	if c.SlotAvailability < 0 || c.SlotAvailability > 1 {
		errs = append(errs, fmt.Errorf("SLOT_AVAILABILITY must be within [0,1], got %v", c.SlotAvailability))
	}
	return errors.Join(errs...)
}
