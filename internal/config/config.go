package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DiscordToken string   `yaml:"discord_token"`
	Prefix       string   `yaml:"prefix"`
	LogLevel     string   `yaml:"log_level"`
	Environment  string   `yaml:"environment"`
	OwnerIDs     []string `yaml:"owner_ids"`

	// ActivityChannelID mirrors moderation activity into a Discord channel
	// when set.
	ActivityChannelID string `yaml:"activity_channel_id"`

	Database DatabaseConfig `yaml:"database"`
	API      APIConfig      `yaml:"api"`
	OAuth    OAuthConfig    `yaml:"oauth"`
	Session  SessionConfig  `yaml:"session"`
	Commands CommandConfig  `yaml:"commands"`
	Colors   EmbedColors    `yaml:"colors"`
}

type DatabaseConfig struct {
	URL         string `yaml:"url"`
	Path        string `yaml:"path"`
	AutoMigrate bool   `yaml:"auto_migrate"`
}

type APIConfig struct {
	Addr              string   `yaml:"addr"`
	BasePath          string   `yaml:"base_path"`
	DashboardURL      string   `yaml:"dashboard_url"`
	AllowedOrigins    []string `yaml:"allowed_origins"`
	RequestsPerMinute int      `yaml:"requests_per_minute"`
}

type OAuthConfig struct {
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	RedirectURL  string   `yaml:"redirect_url"`
	Scopes       []string `yaml:"scopes"`
	AuthURL      string   `yaml:"auth_url"`
	TokenURL     string   `yaml:"token_url"`
	APIBaseURL   string   `yaml:"api_base_url"`
}

type SessionConfig struct {
	CookieName         string `yaml:"cookie_name"`
	SweepMinutes       int    `yaml:"sweep_minutes"`
	StateTTLMinutes    int    `yaml:"state_ttl_minutes"`
	MaxAgeHours        int    `yaml:"max_age_hours"`
	SecureCookieForced bool   `yaml:"secure_cookie"`
}

type CommandConfig struct {
	CooldownSeconds      int    `yaml:"cooldown_seconds"`
	CooldownSweepSeconds int    `yaml:"cooldown_sweep_seconds"`
	GuildID              string `yaml:"guild_id"`
	Sync                 bool   `yaml:"sync"`
}

type EmbedColors struct {
	Success int `yaml:"success"`
	Error   int `yaml:"error"`
	Warning int `yaml:"warning"`
	Info    int `yaml:"info"`
	Default int `yaml:"default"`
}

func DefaultConfig() Config {
	return Config{
		Prefix:      "!",
		LogLevel:    "info",
		Environment: "development",
		Database:    DatabaseConfig{Path: "data/panel.db", AutoMigrate: true},
		API: APIConfig{
			Addr:              ":3001",
			BasePath:          "/api",
			DashboardURL:      "http://localhost:5173",
			RequestsPerMinute: 120,
		},
		OAuth: OAuthConfig{
			RedirectURL: "http://localhost:3001/api/auth/callback",
			Scopes:      []string{"identify", "guilds"},
			AuthURL:     "https://discord.com/oauth2/authorize",
			TokenURL:    "https://discord.com/api/oauth2/token",
			APIBaseURL:  "https://discord.com/api/v10",
		},
		Session: SessionConfig{
			CookieName:      "session",
			SweepMinutes:    60,
			StateTTLMinutes: 10,
			MaxAgeHours:     24 * 7,
		},
		Commands: CommandConfig{CooldownSeconds: 3, CooldownSweepSeconds: 30, Sync: true},
		Colors: EmbedColors{
			Success: 0x00FF00,
			Error:   0xFF0000,
			Warning: 0xFFAA00,
			Info:    0x0099FF,
			Default: 0x7289DA,
		},
	}
}

func Load() (Config, error) {
	// A missing .env file is the normal case outside local development.
	_ = godotenv.Load()

	cfg := DefaultConfig()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config.yaml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	cfg.Environment = normalizeEnvironment(cfg.Environment)
	cfg.API.BasePath = normalizeBasePath(cfg.API.BasePath)
	if len(cfg.API.AllowedOrigins) == 0 && cfg.API.DashboardURL != "" {
		cfg.API.AllowedOrigins = []string{cfg.API.DashboardURL}
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if c.DiscordToken == "" {
		return errors.New("DISCORD_TOKEN is required")
	}
	if c.OAuth.ClientID == "" {
		return errors.New("CLIENT_ID is required")
	}
	if c.OAuth.ClientSecret == "" {
		return errors.New("CLIENT_SECRET is required")
	}
	if c.Prefix == "" {
		return errors.New("PREFIX must not be empty")
	}
	return nil
}

func (c Config) Production() bool {
	return c.Environment == "production"
}

func (c Config) DefaultCooldown() time.Duration {
	return time.Duration(c.Commands.CooldownSeconds) * time.Second
}

func (c Config) CooldownSweepInterval() time.Duration {
	return time.Duration(c.Commands.CooldownSweepSeconds) * time.Second
}

func (s SessionConfig) SweepInterval() time.Duration {
	return time.Duration(s.SweepMinutes) * time.Minute
}

func (s SessionConfig) StateTTL() time.Duration {
	return time.Duration(s.StateTTLMinutes) * time.Minute
}

func (s SessionConfig) MaxAge() time.Duration {
	return time.Duration(s.MaxAgeHours) * time.Hour
}

func applyEnv(cfg *Config) {
	cfg.DiscordToken = envString("TOKEN", cfg.DiscordToken)
	cfg.DiscordToken = envString("DISCORD_TOKEN", cfg.DiscordToken)
	cfg.Prefix = envString("PREFIX", cfg.Prefix)
	cfg.LogLevel = envString("LOG_LEVEL", cfg.LogLevel)
	cfg.Environment = envString("NODE_ENV", cfg.Environment)
	cfg.Environment = envString("ENVIRONMENT", cfg.Environment)
	cfg.OwnerIDs = envList("OWNER_IDS", cfg.OwnerIDs)
	cfg.ActivityChannelID = envString("ACTIVITY_CHANNEL_ID", cfg.ActivityChannelID)
	cfg.Database.URL = envString("DATABASE_URL", cfg.Database.URL)
	cfg.Database.Path = envString("DATABASE_PATH", cfg.Database.Path)
	cfg.Database.AutoMigrate = envBool("DATABASE_AUTO_MIGRATE", cfg.Database.AutoMigrate)
	if port := os.Getenv("API_PORT"); port != "" {
		cfg.API.Addr = ":" + port
	}
	cfg.API.Addr = envString("API_ADDR", cfg.API.Addr)
	cfg.API.BasePath = envString("API_BASE_PATH", cfg.API.BasePath)
	cfg.API.DashboardURL = envString("DASHBOARD_URL", cfg.API.DashboardURL)
	cfg.API.AllowedOrigins = envList("CORS_ALLOWED_ORIGINS", cfg.API.AllowedOrigins)
	cfg.API.RequestsPerMinute = envInt("API_REQUESTS_PER_MINUTE", cfg.API.RequestsPerMinute)
	cfg.OAuth.ClientID = envString("CLIENT_ID", cfg.OAuth.ClientID)
	cfg.OAuth.ClientSecret = envString("CLIENT_SECRET", cfg.OAuth.ClientSecret)
	cfg.OAuth.RedirectURL = envString("DISCORD_REDIRECT_URI", cfg.OAuth.RedirectURL)
	cfg.OAuth.Scopes = envList("OAUTH_SCOPES", cfg.OAuth.Scopes)
	cfg.Session.SweepMinutes = envInt("SESSION_SWEEP_MINUTES", cfg.Session.SweepMinutes)
	cfg.Session.StateTTLMinutes = envInt("STATE_TTL_MINUTES", cfg.Session.StateTTLMinutes)
	cfg.Session.SecureCookieForced = envBool("SECURE_COOKIE", cfg.Session.SecureCookieForced)
	cfg.Commands.CooldownSeconds = envInt("COOLDOWN_SECONDS", cfg.Commands.CooldownSeconds)
	cfg.Commands.CooldownSweepSeconds = envInt("COOLDOWN_SWEEP_SECONDS", cfg.Commands.CooldownSweepSeconds)
	cfg.Commands.GuildID = envString("COMMAND_GUILD_ID", cfg.Commands.GuildID)
	cfg.Commands.Sync = envBool("SYNC_COMMANDS", cfg.Commands.Sync)
}

func BuildLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.MessageKey = "message"
	cfg.EncoderConfig.LevelKey = "level"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(strings.ToLower(level)))

	return cfg.Build()
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func envString(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		lower := strings.ToLower(value)
		return lower == "1" || lower == "true" || lower == "yes"
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.FieldsFunc(value, func(r rune) bool { return r == ',' || r == ' ' }) {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func normalizeEnvironment(value string) string {
	switch strings.ToLower(value) {
	case "production", "prod":
		return "production"
	default:
		return "development"
	}
}

func normalizeBasePath(value string) string {
	value = strings.TrimRight(strings.TrimSpace(value), "/")
	if value == "" {
		return ""
	}
	if !strings.HasPrefix(value, "/") {
		value = "/" + value
	}
	return value
}
