package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port            string        `mapstructure:"PORT"`
	Env             string        `mapstructure:"ENV"`
	BaseURL         string        `mapstructure:"BASE_URL"`
	DatabaseURL     string        `mapstructure:"DATABASE_URL"`
	DBMaxConns      int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns      int32         `mapstructure:"DB_MIN_CONNS"`
	JWTSecret       string        `mapstructure:"JWT_SECRET"`
	SaltRounds      int           `mapstructure:"SALT_ROUNDS"`
	AccessTokenTTL  time.Duration `mapstructure:"ACCESS_TOKEN_TTL"`
	RefreshTokenTTL time.Duration `mapstructure:"REFRESH_TOKEN_TTL"`
	FrontendBaseURL string        `mapstructure:"FRONTEND_BASE_URL"`
	CORSOrigins     []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS    float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst  int           `mapstructure:"RATE_LIMIT_BURST"`
	RequestTimeout  time.Duration `mapstructure:"REQUEST_TIMEOUT"`

	AdminUsername    string `mapstructure:"ADMIN_USERNAME"`
	AdminEmail       string `mapstructure:"ADMIN_EMAIL"`
	AdminPassword    string `mapstructure:"ADMIN_PASSWORD"`
	TestUsername     string `mapstructure:"TEST_USERNAME"`
	TestUserEmail    string `mapstructure:"TEST_USER_EMAIL"`
	TestUserPassword string `mapstructure:"TEST_USER_PASSWORD"`
}

var keys = []string{
	"PORT", "ENV", "BASE_URL", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"JWT_SECRET", "SALT_ROUNDS", "ACCESS_TOKEN_TTL", "REFRESH_TOKEN_TTL",
	"FRONTEND_BASE_URL", "CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
	"REQUEST_TIMEOUT",
	"ADMIN_USERNAME", "ADMIN_EMAIL", "ADMIN_PASSWORD",
	"TEST_USERNAME", "TEST_USER_EMAIL", "TEST_USER_PASSWORD",
}

// Load reads configuration from the process environment. A .env file in the
// working directory, when present, fills in variables that are not already set.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("BASE_URL", "http://localhost")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("SALT_ROUNDS", 10)
	v.SetDefault("ACCESS_TOKEN_TTL", "60s")
	v.SetDefault("REFRESH_TOKEN_TTL", "24h")
	v.SetDefault("FRONTEND_BASE_URL", "localhost")
	v.SetDefault("RATE_LIMIT_RPS", 20)
	v.SetDefault("RATE_LIMIT_BURST", 40)
	v.SetDefault("REQUEST_TIMEOUT", "15s")

	// Unmarshal only sees keys viper knows about.
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if origins := v.GetString("CORS_ORIGINS"); origins != "" {
		cfg.CORSOrigins = splitList(origins)
	} else {
		cfg.CORSOrigins = cfg.DefaultCORSOrigins()
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// DefaultCORSOrigins returns the origins of the mobile dev server: the
// frontend host and localhost, both on port 8081.
func (c *Config) DefaultCORSOrigins() []string {
	host := strings.TrimPrefix(strings.TrimPrefix(c.FrontendBaseURL, "http://"), "https://")
	origins := []string{"http://localhost:8081"}
	if host != "" && host != "localhost" {
		origins = append([]string{fmt.Sprintf("http://%s:8081", host)}, origins...)
	}
	return origins
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}

// Validate checks that the configuration is safe to run.
func (c *Config) Validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil || port <= 0 || port >= 65536 {
		return fmt.Errorf("PORT must be a number between 1 and 65535, got %q", c.Port)
	}
	if !strings.HasPrefix(c.BaseURL, "http") {
		return fmt.Errorf("BASE_URL must start with http or https, got %q", c.BaseURL)
	}
	if len(strings.TrimSpace(c.JWTSecret)) < 10 {
		return fmt.Errorf("JWT_SECRET must be at least 10 characters")
	}
	if c.SaltRounds < 10 || c.SaltRounds > 12 {
		return fmt.Errorf("SALT_ROUNDS must be between 10 and 12, got %d", c.SaltRounds)
	}
	if c.AccessTokenTTL <= 0 {
		return fmt.Errorf("ACCESS_TOKEN_TTL must be positive")
	}
	if c.RefreshTokenTTL < c.AccessTokenTTL {
		return fmt.Errorf("REFRESH_TOKEN_TTL must not be shorter than ACCESS_TOKEN_TTL")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
