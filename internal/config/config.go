package config

import (
	"errors"
	"io/fs"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Payment   PaymentConfig
	Sales     SalesConfig
	Report    ReportConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port           string
	Env            string
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Database     string
	Schema       string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Enabled reports whether a Redis host was configured.
func (c RedisConfig) Enabled() bool {
	return c.Host != ""
}

type JWTConfig struct {
	Secret string
	Expiry int // in hours
}

// PaymentConfig carries the mobile-money merchant credentials.
type PaymentConfig struct {
	BaseURL     string
	MerchantUID string
	APIUserID   string
	APIKey      string
	Currency    string
	Timeout     time.Duration
}

type SalesConfig struct {
	// EnforceTotal rejects sales whose totalPrice differs from the sum of
	// the selling prices of their line items.
	EnforceTotal bool
}

type ReportConfig struct {
	Location *time.Location
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// Load reads configuration from the environment, after exporting any
// variables found in ./.env.
func Load() *Config {
	return load(".env")
}

// load exports the variables in envFiles and builds the configuration from
// the process environment. Variables already exported win over the files.
func load(envFiles ...string) *Config {
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			log.Printf("Warning: Could not read %s: %v", file, err)
		}
	}

	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_ENV", "development")
	viper.SetDefault("ALLOWED_ORIGINS", "http://localhost:3000")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SCHEMA", "public")
	viper.SetDefault("DB_MAX_OPEN_CONNS", 30)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 8)
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("JWT_EXPIRY_HOURS", 24*90)
	viper.SetDefault("PAYMENT_BASE_URL", "https://api.waafipay.net/asm")
	viper.SetDefault("PAYMENT_CURRENCY", "USD")
	viper.SetDefault("PAYMENT_TIMEOUT_SECONDS", 30)
	viper.SetDefault("SALES_ENFORCE_TOTAL", false)
	viper.SetDefault("REPORT_TIMEZONE", "UTC")
	viper.SetDefault("RATE_LIMIT_REQUESTS", 20)
	viper.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 60)

	location, err := time.LoadLocation(viper.GetString("REPORT_TIMEZONE"))
	if err != nil {
		log.Printf("Warning: unknown REPORT_TIMEZONE %q, using UTC", viper.GetString("REPORT_TIMEZONE"))
		location = time.UTC
	}

	return &Config{
		Server: ServerConfig{
			Port:           viper.GetString("SERVER_PORT"),
			Env:            viper.GetString("SERVER_ENV"),
			AllowedOrigins: splitList(viper.GetString("ALLOWED_ORIGINS")),
		},
		Database: DatabaseConfig{
			Host:         viper.GetString("DB_HOST"),
			Port:         viper.GetString("DB_PORT"),
			User:         viper.GetString("DB_USER"),
			Password:     viper.GetString("DB_PASSWORD"),
			Database:     viper.GetString("DB_DATABASE"),
			Schema:       viper.GetString("DB_SCHEMA"),
			MaxOpenConns: viper.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns: viper.GetInt("DB_MAX_IDLE_CONNS"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret: viper.GetString("JWT_SECRET"),
			Expiry: viper.GetInt("JWT_EXPIRY_HOURS"),
		},
		Payment: PaymentConfig{
			BaseURL:     viper.GetString("PAYMENT_BASE_URL"),
			MerchantUID: viper.GetString("PAYMENT_MERCHANT_UID"),
			APIUserID:   viper.GetString("PAYMENT_API_USER_ID"),
			APIKey:      viper.GetString("PAYMENT_API_KEY"),
			Currency:    viper.GetString("PAYMENT_CURRENCY"),
			Timeout:     time.Duration(viper.GetInt("PAYMENT_TIMEOUT_SECONDS")) * time.Second,
		},
		Sales: SalesConfig{
			EnforceTotal: viper.GetBool("SALES_ENFORCE_TOTAL"),
		},
		Report: ReportConfig{
			Location: location,
		},
		RateLimit: RateLimitConfig{
			Requests: viper.GetInt("RATE_LIMIT_REQUESTS"),
			Window:   time.Duration(viper.GetInt("RATE_LIMIT_WINDOW_SECONDS")) * time.Second,
		},
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
