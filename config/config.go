package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// APIKeyPlaceholder is the token substituted with the Torn API key in the
// catalog source template.
const APIKeyPlaceholder = "[API-KEY]"

// ErrSilent wraps a validation failure when silent_errors is set: the bot
// aborts startup quietly instead of crashing the host process.
var ErrSilent = errors.New("silent configuration abort")

type Config struct {
	Travelbot TravelbotConfig `yaml:"travelbot"`
	Refresh   RefreshConfig   `yaml:"refresh"`
	Source    SourceConfig    `yaml:"source"`
	Reader    ReaderConfig    `yaml:"reader"`
	Discord   DiscordConfig   `yaml:"discord"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type TravelbotConfig struct {
	Name                string `yaml:"name"`
	Version             string `yaml:"version"`
	Command             string `yaml:"command"`
	CommandPrefix       string `yaml:"command_prefix"`
	ChannelName         string `yaml:"channel_name"`
	Debug               bool   `yaml:"debug"`
	SilentErrors        bool   `yaml:"silent_errors"`
	DateFormat          string `yaml:"date_format"`
	DefaultLogsCount    int    `yaml:"default_logs_count"`
	APIKey              string `yaml:"api_key"`
	APIKeyLength        int    `yaml:"api_key_length"`
	CommandPrefixLength int    `yaml:"command_prefix_length"`
	MaxCommandLength    int    `yaml:"max_command_length"`
}

type RefreshConfig struct {
	TickInterval  time.Duration `yaml:"tick_interval"`
	CatalogMaxAge time.Duration `yaml:"catalog_max_age"`
	StockMaxAge   time.Duration `yaml:"stock_max_age"`
}

type SourceConfig struct {
	Catalog CatalogSourceConfig `yaml:"catalog"`
	Stock   StockSourceConfig   `yaml:"stock"`
}

type CatalogSourceConfig struct {
	URL            string               `yaml:"url"`
	ConnectionPool ConnectionPoolConfig `yaml:"connection_pool"`
}

type StockSourceConfig struct {
	URL            string               `yaml:"url"`
	ConnectionPool ConnectionPoolConfig `yaml:"connection_pool"`
}

type ConnectionPoolConfig struct {
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	MaxConnsPerHost int           `yaml:"max_conns_per_host"`
	IdleConnTimeout time.Duration `yaml:"idle_conn_timeout"`
}

type ReaderConfig struct {
	Timeout   time.Duration   `yaml:"timeout"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

type RateLimitConfig struct {
	RequestsPerSecond int `yaml:"requests_per_second"`
	BurstSize         int `yaml:"burst_size"`
}

type DiscordConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Token      string `yaml:"token"`
	GatewayURL string `yaml:"gateway_url"`
	APIBase    string `yaml:"api_base"`
	Intents    int    `yaml:"intents"`
}

type DashboardConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Address         string        `yaml:"address"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	LogHistory      int           `yaml:"log_history"`
}

type LoggingConfig struct {
	Level         string `yaml:"level"`
	Format        string `yaml:"format"`
	Output        string `yaml:"output"`
	MaxAge        int    `yaml:"max_age"`
	DashboardName string `yaml:"dashboard_name"`
}

// defaults mirrors the bot's reference behavior; any field may be overridden
// in the configuration file.
func defaults() Config {
	return Config{
		Travelbot: TravelbotConfig{
			Name:                "TravelBot",
			Command:             "travel",
			CommandPrefix:       "!",
			ChannelName:         "travel-info",
			DateFormat:          "EU",
			DefaultLogsCount:    10,
			APIKeyLength:        16,
			CommandPrefixLength: 1,
			MaxCommandLength:    6,
		},
		Refresh: RefreshConfig{
			TickInterval:  time.Minute,
			CatalogMaxAge: 12 * time.Hour,
			StockMaxAge:   10 * time.Minute,
		},
		Source: SourceConfig{
			Catalog: CatalogSourceConfig{
				URL: "https://api.torn.com/torn/?selections=items&key=" + APIKeyPlaceholder,
			},
			Stock: StockSourceConfig{
				URL: "https://yata.yt/api/v1/travel/export/",
			},
		},
		Reader: ReaderConfig{
			Timeout: 10 * time.Second,
			RateLimit: RateLimitConfig{
				RequestsPerSecond: 5,
				BurstSize:         5,
			},
		},
		Discord: DiscordConfig{
			GatewayURL: "wss://gateway.discord.gg/?v=10&encoding=json",
			APIBase:    "https://discord.com/api/v10",
			// GUILDS | GUILD_MESSAGES | GUILD_MESSAGE_REACTIONS | MESSAGE_CONTENT
			Intents: 1 | 1<<9 | 1<<10 | 1<<15,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// LoadConfig reads, defaults, env-overrides and validates the configuration
// file, producing a typed value consumed thereafter without re-checking. A
// validation failure with silent_errors set is wrapped in ErrSilent.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := defaults()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Secrets come from the environment when present.
	if v := os.Getenv("TORN_API_KEY"); v != "" {
		config.Travelbot.APIKey = strings.TrimSpace(v)
	}
	if v := os.Getenv("DISCORD_TOKEN"); v != "" {
		config.Discord.Token = strings.TrimSpace(v)
	}

	if err := validateConfig(&config); err != nil {
		err = fmt.Errorf("configuration validation failed: %w", err)
		if config.Travelbot.SilentErrors {
			return nil, fmt.Errorf("%w: %w", ErrSilent, err)
		}
		return nil, err
	}

	return &config, nil
}

var (
	commandRegexp = regexp.MustCompile(`^[a-z]+$`)
	apiKeyRegexp  = regexp.MustCompile(`^[0-9a-zA-Z]+$`)
)

func validateConfig(cfg *Config) error {
	bot := &cfg.Travelbot

	if bot.Name == "" {
		return fmt.Errorf("travelbot.name is required")
	}
	if bot.APIKeyLength <= 0 {
		return fmt.Errorf("travelbot.api_key_length must be greater than 0")
	}
	if bot.CommandPrefixLength <= 0 {
		return fmt.Errorf("travelbot.command_prefix_length must be greater than 0")
	}
	if bot.MaxCommandLength <= 0 {
		return fmt.Errorf("travelbot.max_command_length must be greater than 0")
	}
	if bot.DefaultLogsCount <= 0 {
		return fmt.Errorf("travelbot.default_logs_count must be greater than 0")
	}
	if len(bot.CommandPrefix) != bot.CommandPrefixLength {
		return fmt.Errorf("travelbot.command_prefix must be exactly %d character(s)", bot.CommandPrefixLength)
	}
	if !commandRegexp.MatchString(bot.Command) {
		return fmt.Errorf("travelbot.command can only contain lowercase letters")
	}
	if len(bot.Command) > bot.MaxCommandLength {
		return fmt.Errorf("travelbot.command exceeds maximum length %d", bot.MaxCommandLength)
	}
	switch bot.DateFormat {
	case "EU", "US", "ISO":
	default:
		return fmt.Errorf("travelbot.date_format %q is not supported", bot.DateFormat)
	}
	if bot.APIKey == "" {
		return fmt.Errorf("travelbot.api_key is required (set TORN_API_KEY)")
	}
	if len(bot.APIKey) != bot.APIKeyLength || !apiKeyRegexp.MatchString(bot.APIKey) {
		return fmt.Errorf("travelbot.api_key does not match requirements")
	}

	if cfg.Refresh.TickInterval <= 0 {
		return fmt.Errorf("refresh.tick_interval must be greater than 0")
	}
	if cfg.Refresh.CatalogMaxAge <= 0 {
		return fmt.Errorf("refresh.catalog_max_age must be greater than 0")
	}
	if cfg.Refresh.StockMaxAge <= 0 {
		return fmt.Errorf("refresh.stock_max_age must be greater than 0")
	}

	if !strings.Contains(cfg.Source.Catalog.URL, APIKeyPlaceholder) {
		return fmt.Errorf("source.catalog.url does not contain the API key template")
	}
	if err := validateURL(strings.ReplaceAll(cfg.Source.Catalog.URL, APIKeyPlaceholder, "")); err != nil {
		return fmt.Errorf("source.catalog.url: %w", err)
	}
	if err := validateURL(cfg.Source.Stock.URL); err != nil {
		return fmt.Errorf("source.stock.url: %w", err)
	}

	if cfg.Reader.Timeout <= 0 {
		return fmt.Errorf("reader.timeout must be greater than 0")
	}
	if cfg.Reader.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("reader.rate_limit.requests_per_second must be greater than 0")
	}

	if cfg.Discord.Enabled && cfg.Discord.Token == "" {
		return fmt.Errorf("discord.token is required when discord is enabled (set DISCORD_TOKEN)")
	}

	return nil
}

func validateURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("not a well-formed URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("scheme %q is not http(s)", parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}
