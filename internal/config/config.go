package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Twitch OAuth（ログインとIGDBの両方で同じクライアント資格情報を使用する）
	TwitchClientID     string
	TwitchClientSecret string
	TwitchRedirectURL  string

	// Session
	SessionSecret string
	SessionMaxAge int // 秒。セッションクレデンシャルの有効期間

	// Catalog providers
	IGDBAPIURL string
	RAWGAPIKey string
	RAWGAPIURL string

	// Populate
	PopulateLimitPerSource int
	FetchTimeout           time.Duration
	FetchMaxSize           int64

	// Rate Limit（req/min/キー）
	RateLimitGeneral  int
	RateLimitPopulate int

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.TwitchClientID = os.Getenv("TWITCH_CLIENT_ID")
	if cfg.TwitchClientID == "" {
		missing = append(missing, "TWITCH_CLIENT_ID")
	}

	cfg.TwitchClientSecret = os.Getenv("TWITCH_CLIENT_SECRET")
	if cfg.TwitchClientSecret == "" {
		missing = append(missing, "TWITCH_CLIENT_SECRET")
	}

	cfg.TwitchRedirectURL = os.Getenv("TWITCH_REDIRECT_URL")
	if cfg.TwitchRedirectURL == "" {
		missing = append(missing, "TWITCH_REDIRECT_URL")
	}

	cfg.SessionSecret = os.Getenv("SESSION_SECRET")
	if cfg.SessionSecret == "" {
		missing = append(missing, "SESSION_SECRET")
	}

	cfg.RAWGAPIKey = os.Getenv("RAWG_API_KEY")
	if cfg.RAWGAPIKey == "" {
		missing = append(missing, "RAWG_API_KEY")
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 604800) // 7日
	cfg.IGDBAPIURL = getEnvString("IGDB_API_URL", "https://api.igdb.com/v4")
	cfg.RAWGAPIURL = getEnvString("RAWG_API_URL", "https://api.rawg.io/api")
	cfg.PopulateLimitPerSource = getEnvInt("POPULATE_LIMIT_PER_SOURCE", 20)
	cfg.FetchTimeout = getEnvDuration("FETCH_TIMEOUT", 10*time.Second)
	cfg.FetchMaxSize = getEnvInt64("FETCH_MAX_SIZE", 5242880)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitPopulate = getEnvInt("RATE_LIMIT_POPULATE", 10)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:5173")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
