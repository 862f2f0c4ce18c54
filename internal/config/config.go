package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full bridge configuration, built once at startup and passed
// into each component constructor. Nothing outside this package reads viper.
type Config struct {
	Protect ProtectConfig
	Discord DiscordConfig
	Server  ServerConfig
	Session SessionConfig
	Log     LogConfig
}

// ProtectConfig covers the UniFi Protect controller connection. The fields
// are optional as a group: without a host the bridge still relays webhook
// payloads, it just never attaches thumbnails.
type ProtectConfig struct {
	Host     string // e.g. https://192.168.1.1
	Username string
	Password string
	APIKey   string // alternative auth for thumbnail-only flows
	Timeout  time.Duration
}

type DiscordConfig struct {
	WebhookURL string
	Timeout    time.Duration
}

type ServerConfig struct {
	Addr         string
	SharedSecret string  // optional; checked against the inbound payload/header
	RateLimitRPS float64 // per-client token refill rate
	RateBurst    int
}

type SessionConfig struct {
	Path string
}

type LogConfig struct {
	Level  string
	Format string // "json" or "console"
}

// Load reads an optional config file plus environment variables and returns
// the resolved configuration. cfgFile may be empty, in which case the user
// config dir and the working directory are searched for "discord-unifi.yaml".
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("discord-unifi")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "discord-unifi"))
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	bindEnvAliases(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine; env vars and defaults still apply. A file
		// that exists but does not parse is an error, discovered or not.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{
		Protect: ProtectConfig{
			Host:     strings.TrimRight(v.GetString("protect.host"), "/"),
			Username: v.GetString("protect.username"),
			Password: v.GetString("protect.password"),
			APIKey:   v.GetString("protect.api_key"),
			Timeout:  v.GetDuration("protect.timeout"),
		},
		Discord: DiscordConfig{
			WebhookURL: v.GetString("discord.webhook_url"),
			Timeout:    v.GetDuration("discord.timeout"),
		},
		Server: ServerConfig{
			Addr:         v.GetString("server.addr"),
			SharedSecret: v.GetString("server.shared_secret"),
			RateLimitRPS: v.GetFloat64("server.rate_limit_rps"),
			RateBurst:    v.GetInt("server.rate_burst"),
		},
		Session: SessionConfig{
			Path: v.GetString("session.path"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
	}

	if cfg.Session.Path == "" {
		cfg.Session.Path = defaultSessionPath()
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("protect.timeout", 30*time.Second)
	v.SetDefault("discord.timeout", 15*time.Second)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.rate_limit_rps", 5.0)
	v.SetDefault("server.rate_burst", 10)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// bindEnvAliases maps the documented flat environment variables onto the
// nested config keys, e.g. UNIFI_HOST -> protect.host.
func bindEnvAliases(v *viper.Viper) {
	aliases := map[string]string{
		"protect.host":         "UNIFI_HOST",
		"protect.username":     "UNIFI_USERNAME",
		"protect.password":     "UNIFI_PASSWORD",
		"protect.api_key":      "UNIFI_API_KEY",
		"discord.webhook_url":  "DISCORD_WEBHOOK_URL",
		"server.addr":          "BRIDGE_ADDR",
		"server.shared_secret": "BRIDGE_SHARED_SECRET",
		"session.path":         "BRIDGE_SESSION_PATH",
		"log.level":            "LOG_LEVEL",
		"log.format":           "LOG_FORMAT",
	}
	for key, env := range aliases {
		_ = v.BindEnv(key, env)
	}
}

// Validate checks the combinations the bridge actually needs at runtime.
func (c *Config) Validate() error {
	if c.Discord.WebhookURL == "" {
		return errors.New("discord webhook URL is required (DISCORD_WEBHOOK_URL)")
	}
	if !strings.HasPrefix(c.Discord.WebhookURL, "http") {
		return fmt.Errorf("discord webhook URL %q is not an http(s) URL", c.Discord.WebhookURL)
	}
	if c.Protect.Host != "" && c.Protect.APIKey == "" {
		if c.Protect.Username == "" || c.Protect.Password == "" {
			return errors.New("protect host is set but credentials are incomplete (need username+password or api key)")
		}
	}
	return nil
}

// ProtectEnabled reports whether the controller connection is configured at
// all. When false, thumbnail lookups are skipped entirely.
func (c *Config) ProtectEnabled() bool {
	return c.Protect.Host != ""
}

func defaultSessionPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "discord-unifi-session")
	}
	return filepath.Join(dir, "discord-unifi", "session")
}
