package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	NodeEnv   string
	Port      string
	JWTSecret string
	Database  DatabaseConfig
	Ads       AdsConfig
	YouTube   YouTubeConfig
	Review    ReviewConfig
	Server    ServerConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
	Quiet    bool
}

// AdsConfig holds the Google Ads credentials used by the insertion worker
type AdsConfig struct {
	Provider         string // "google_ads" or "log"; empty picks google_ads when credentials are set
	DeveloperToken   string
	ClientID         string
	ClientSecret     string
	RefreshToken     string
	LoginCustomerID  string
	APIVersion       string
	DefaultCPCMicros int64
	DispatchInterval int // in seconds
}

// Enabled reports whether enough credentials are present to talk to Google Ads
func (a AdsConfig) Enabled() bool {
	return a.DeveloperToken != "" && a.ClientID != "" && a.ClientSecret != "" && a.RefreshToken != ""
}

// YouTubeConfig holds the YouTube Data API settings used to enrich ingested videos
type YouTubeConfig struct {
	APIKey string
}

// ReviewConfig holds the bootstrap reviewer account
type ReviewConfig struct {
	BootstrapEmail    string
	BootstrapPassword string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	CORSAllowedOrigins []string
	FrontendDir        string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	cpcMicros, err := strconv.ParseInt(getEnv("DEFAULT_CPC_MICROS", "10000"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_CPC_MICROS: %w", err)
	}

	dispatchInterval, err := strconv.Atoi(getEnv("DISPATCH_INTERVAL_SECONDS", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid DISPATCH_INTERVAL_SECONDS: %w", err)
	}

	return &Config{
		NodeEnv:   getEnv("NODE_ENV", "development"),
		Port:      getEnv("PORT", "8080"),
		JWTSecret: jwtSecret,
		Database: DatabaseConfig{
			Host:     getEnv("PG_HOST", "localhost"),
			Port:     getEnv("PG_PORT", "5432"),
			Username: getEnv("PG_USERNAME", "postgres"),
			Password: os.Getenv("PG_PASSWORD"),
			Database: getEnv("PG_DATABASE", "shopvid"),
			Quiet:    getEnv("DB_QUIET", "false") == "true",
		},
		Ads: AdsConfig{
			Provider:         os.Getenv("ADS_PROVIDER"),
			DeveloperToken:   os.Getenv("GOOGLE_ADS_DEVELOPER_TOKEN"),
			ClientID:         os.Getenv("GOOGLE_CLIENT_ID"),
			ClientSecret:     os.Getenv("GOOGLE_CLIENT_SECRET"),
			RefreshToken:     os.Getenv("GOOGLE_ADS_REFRESH_TOKEN"),
			LoginCustomerID:  strings.ReplaceAll(os.Getenv("GOOGLE_ADS_CUSTOMER_ID"), "-", ""),
			APIVersion:       getEnv("GOOGLE_ADS_API_VERSION", "v17"),
			DefaultCPCMicros: cpcMicros,
			DispatchInterval: dispatchInterval,
		},
		YouTube: YouTubeConfig{
			APIKey: os.Getenv("YOUTUBE_API_KEY"),
		},
		Review: ReviewConfig{
			BootstrapEmail:    os.Getenv("REVIEWER_EMAIL"),
			BootstrapPassword: os.Getenv("REVIEWER_PASSWORD"),
		},
		Server: ServerConfig{
			CORSAllowedOrigins: splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
			FrontendDir:        os.Getenv("FRONTEND_DIR"),
		},
	}, nil
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// splitList parses a comma separated env value, "*" when empty
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
