package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	DatabaseURL  string
	JWTSecretKey string
	JWTTTL       time.Duration
	ServerPort   int
	LogLevel     slog.Level

	// SiteURL is the public origin of the site, used for sitemap and robots output.
	SiteURL string
	// FrontendURL receives the OAuth redirect with the issued token.
	FrontendURL        string
	CORSAllowedOrigins []string

	Discord   DiscordConfig
	Google    OAuthClientConfig
	R2        R2Config
	Stats     StatsConfig
	Slack     SlackConfig
	Scheduler SchedulerConfig
}

type OAuthClientConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

func (c OAuthClientConfig) Enabled() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.RedirectURL != ""
}

type DiscordConfig struct {
	OAuth             OAuthClientConfig
	BotToken          string
	GuildID           string
	AnnounceChannelID string
}

func (c DiscordConfig) BotEnabled() bool {
	return c.BotToken != "" && c.GuildID != ""
}

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	PublicBaseURL   string
}

func (c R2Config) Enabled() bool {
	return c.AccountID != "" && c.AccessKeyID != "" && c.SecretAccessKey != "" && c.BucketName != "" && c.PublicBaseURL != ""
}

type StatsConfig struct {
	BaseURL string
	APIKey  string
	// RPS is the outbound request budget towards the stats provider.
	RPS float64
}

type SlackConfig struct {
	Token     string
	ChannelID string
}

func (c SlackConfig) Enabled() bool {
	return c.Token != "" && c.ChannelID != ""
}

type SchedulerConfig struct {
	Interval       time.Duration
	AnnounceWindow time.Duration
	CronSecret     string
}

// Load загружает конфигурацию из переменных окружения.
// Опционально подгружает .env файл (полезно для локальной разработки).
func Load() (*Config, error) {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	jwtKey := os.Getenv("JWT_SECRET_KEY")
	if jwtKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}

	port, err := intEnv("SERVER_PORT", 8080)
	if err != nil {
		return nil, err
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	jwtTTL, err := durationEnv("JWT_TTL", 24*time.Hour)
	if err != nil {
		return nil, err
	}

	level, err := parseLogLevel(getEnvOrDefault("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}

	rps, err := floatEnv("STATS_API_RPS", 2)
	if err != nil {
		return nil, err
	}
	if rps <= 0 {
		return nil, fmt.Errorf("STATS_API_RPS must be positive, got %v", rps)
	}

	interval, err := durationEnv("SCHEDULER_INTERVAL", 30*time.Second)
	if err != nil {
		return nil, err
	}
	window, err := durationEnv("ANNOUNCE_WINDOW", 24*time.Hour)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DatabaseURL:        dbURL,
		JWTSecretKey:       jwtKey,
		JWTTTL:             jwtTTL,
		ServerPort:         port,
		LogLevel:           level,
		SiteURL:            strings.TrimRight(getEnvOrDefault("SITE_URL", "http://localhost:3000"), "/"),
		FrontendURL:        strings.TrimRight(getEnvOrDefault("FRONTEND_URL", "http://localhost:3000"), "/"),
		CORSAllowedOrigins: splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
		Discord: DiscordConfig{
			OAuth: OAuthClientConfig{
				ClientID:     os.Getenv("DISCORD_CLIENT_ID"),
				ClientSecret: os.Getenv("DISCORD_CLIENT_SECRET"),
				RedirectURL:  os.Getenv("DISCORD_REDIRECT_URL"),
			},
			BotToken:          os.Getenv("DISCORD_BOT_TOKEN"),
			GuildID:           os.Getenv("DISCORD_GUILD_ID"),
			AnnounceChannelID: os.Getenv("DISCORD_ANNOUNCE_CHANNEL_ID"),
		},
		Google: OAuthClientConfig{
			ClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
			ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
			RedirectURL:  os.Getenv("GOOGLE_REDIRECT_URL"),
		},
		R2: R2Config{
			AccountID:       os.Getenv("R2_ACCOUNT_ID"),
			AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
			BucketName:      os.Getenv("R2_BUCKET_NAME"),
			PublicBaseURL:   os.Getenv("R2_PUBLIC_BASE_URL"),
		},
		Stats: StatsConfig{
			BaseURL: strings.TrimRight(getEnvOrDefault("STATS_API_BASE_URL", "https://api.henrikdev.xyz/valorant"), "/"),
			APIKey:  os.Getenv("STATS_API_KEY"),
			RPS:     rps,
		},
		Slack: SlackConfig{
			Token:     os.Getenv("SLACK_BOT_TOKEN"),
			ChannelID: os.Getenv("SLACK_CHANNEL_ID"),
		},
		Scheduler: SchedulerConfig{
			Interval:       interval,
			AnnounceWindow: window,
			CronSecret:     os.Getenv("CRON_SECRET"),
		},
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func intEnv(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return v, nil
}

func floatEnv(key string, def float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return v, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, d)
	}
	return d, nil
}

func parseLogLevel(raw string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return 0, fmt.Errorf("invalid LOG_LEVEL %q: %w", raw, err)
	}
	return level, nil
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
