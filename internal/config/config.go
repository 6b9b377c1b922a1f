// Copyright (c) 2026 John Earle
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads configuration from config.yaml and environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Primary providers.
const (
	ProviderAcumbamail = "acumbamail"
	ProviderSMTP       = "smtp"
)

// BusinessConfig identifies the business receiving refund requests.
type BusinessConfig struct {
	Name     string
	Inbox    string
	Phone    string
	Location *time.Location
}

// PrimaryConfig configures the primary email channel.
type PrimaryConfig struct {
	Provider      string // "acumbamail" or "smtp"
	BaseURL       string
	APIToken      string
	FromEmail     string
	FromName      string
	RecipientName string
	ListID        string
	TrackOpens    bool
	TrackClicks   bool

	SMTPHost      string
	SMTPPort      int
	SMTPUsername  string
	SMTPPassword  string
	SMTPTLSPolicy string
}

// OAuthConfig holds optional client credentials for the webhook relay.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	Scopes       []string
}

// Enabled reports whether client credentials are fully configured.
func (o OAuthConfig) Enabled() bool {
	return o.ClientID != "" && o.ClientSecret != "" && o.TokenURL != ""
}

// WebhookConfig configures the relay fallback channel.
type WebhookConfig struct {
	URL      string
	Priority string
	OAuth    OAuthConfig
}

// Config holds all configuration for the refund intake service.
type Config struct {
	Business BusinessConfig
	Primary  PrimaryConfig
	Webhook  WebhookConfig

	// Per-channel delivery timeout
	ChannelTimeout time.Duration

	// Pending store
	StoreBackend string
	RedisURL     string
	DatabaseURL  string

	// Optional Redis features; an empty queue disables outcome events
	EventsQueue  string
	RepeatTTL    time.Duration
	RepeatDetect bool

	// Server
	Port         int
	AdminEnabled bool
}

// rawConfig mirrors the YAML structure for unmarshalling.
type rawConfig struct {
	Server struct {
		Port         int  `yaml:"port"`
		AdminEnabled bool `yaml:"admin_enabled"`
	} `yaml:"server"`
	Business struct {
		Name     string `yaml:"name"`
		Inbox    string `yaml:"inbox"`
		Phone    string `yaml:"phone"`
		Timezone string `yaml:"timezone"`
	} `yaml:"business"`
	Primary struct {
		Provider      string `yaml:"provider"`
		BaseURL       string `yaml:"base_url"`
		APIToken      string `yaml:"api_token"`
		FromEmail     string `yaml:"from_email"`
		FromName      string `yaml:"from_name"`
		RecipientName string `yaml:"recipient_name"`
		ListID        string `yaml:"list_id"`
		TrackOpens    *bool  `yaml:"track_opens"`
		TrackClicks   *bool  `yaml:"track_clicks"`
		SMTP          struct {
			Host      string `yaml:"host"`
			Port      int    `yaml:"port"`
			Username  string `yaml:"username"`
			Password  string `yaml:"password"`
			TLSPolicy string `yaml:"tls_policy"`
		} `yaml:"smtp"`
	} `yaml:"primary"`
	Webhook struct {
		URL      string `yaml:"url"`
		Priority string `yaml:"priority"`
		OAuth    struct {
			ClientID     string   `yaml:"client_id"`
			ClientSecret string   `yaml:"client_secret"`
			TokenURL     string   `yaml:"token_url"`
			Scopes       []string `yaml:"scopes"`
		} `yaml:"oauth"`
	} `yaml:"webhook"`
	Delivery struct {
		ChannelTimeout string `yaml:"channel_timeout"`
	} `yaml:"delivery"`
	Store struct {
		Backend     string `yaml:"backend"`
		RedisURL    string `yaml:"redis_url"`
		DatabaseURL string `yaml:"database_url"`
	} `yaml:"store"`
	Events struct {
		Queue string `yaml:"queue"`
	} `yaml:"events"`
	Repeat struct {
		Enabled *bool  `yaml:"enabled"`
		TTL     string `yaml:"ttl"`
	} `yaml:"repeat_detection"`
}

// Load reads configuration from config.yaml (with env var expansion) and
// environment variables for non-YAML settings. A .env file in the working
// directory is loaded first when present. A missing config file is not an
// error; every setting has a default or an environment variable.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	configPath := envOrDefault("CONFIG_PATH", "config.yaml")

	var raw rawConfig
	data, err := os.ReadFile(configPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		slog.Info("no config file found, using environment only", "path", configPath)
	case err != nil:
		return nil, fmt.Errorf("read config file %s: %w", configPath, err)
	default:
		if err := parse(data, &raw); err != nil {
			return nil, err
		}
	}

	return build(raw)
}

// parse expands ${VAR} references in data and unmarshals the YAML.
func parse(data []byte, raw *rawConfig) error {
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), raw); err != nil {
		return fmt.Errorf("parse config YAML: %w", err)
	}
	return nil
}

// LoadBytes builds a Config from YAML content without touching the filesystem.
func LoadBytes(data []byte) (*Config, error) {
	var raw rawConfig
	if err := parse(data, &raw); err != nil {
		return nil, err
	}
	return build(raw)
}

func build(raw rawConfig) (*Config, error) {
	cfg := &Config{
		Business: BusinessConfig{
			Name:  firstNonEmpty(raw.Business.Name, "StarGaze Vacations"),
			Inbox: firstNonEmpty(raw.Business.Inbox, "info@stargazevacations.com"),
			Phone: firstNonEmpty(raw.Business.Phone, "1-844-782-7429"),
		},
		Primary: PrimaryConfig{
			Provider:      strings.ToLower(firstNonEmpty(envOrDefault("PRIMARY_PROVIDER", ""), raw.Primary.Provider, ProviderAcumbamail)),
			BaseURL:       firstNonEmpty(raw.Primary.BaseURL, "https://acumbamail.com/api/1"),
			APIToken:      firstNonEmpty(envOrDefault("ACUMBAMAIL_API_TOKEN", ""), raw.Primary.APIToken),
			FromEmail:     firstNonEmpty(raw.Primary.FromEmail, raw.Business.Inbox, "info@stargazevacations.com"),
			FromName:      firstNonEmpty(raw.Primary.FromName, raw.Business.Name, "StarGaze Vacations"),
			RecipientName: firstNonEmpty(raw.Primary.RecipientName, "StarGaze Vacations Support"),
			ListID:        raw.Primary.ListID,
			TrackOpens:    boolOrDefault(raw.Primary.TrackOpens, true),
			TrackClicks:   boolOrDefault(raw.Primary.TrackClicks, true),
			SMTPHost:      firstNonEmpty(envOrDefault("SMTP_HOST", ""), raw.Primary.SMTP.Host),
			SMTPPort:      raw.Primary.SMTP.Port,
			SMTPUsername:  firstNonEmpty(envOrDefault("SMTP_USERNAME", ""), raw.Primary.SMTP.Username),
			SMTPPassword:  firstNonEmpty(envOrDefault("SMTP_PASSWORD", ""), raw.Primary.SMTP.Password),
			SMTPTLSPolicy: firstNonEmpty(raw.Primary.SMTP.TLSPolicy, "mandatory"),
		},
		Webhook: WebhookConfig{
			URL:      firstNonEmpty(envOrDefault("WEBHOOK_URL", ""), raw.Webhook.URL),
			Priority: firstNonEmpty(raw.Webhook.Priority, "high"),
			OAuth: OAuthConfig{
				ClientID:     raw.Webhook.OAuth.ClientID,
				ClientSecret: raw.Webhook.OAuth.ClientSecret,
				TokenURL:     raw.Webhook.OAuth.TokenURL,
				Scopes:       raw.Webhook.OAuth.Scopes,
			},
		},
		ChannelTimeout: envOrDefaultDuration("CHANNEL_TIMEOUT", durationOrDefault(raw.Delivery.ChannelTimeout, 10*time.Second)),
		StoreBackend:   strings.ToLower(firstNonEmpty(envOrDefault("STORE_BACKEND", ""), raw.Store.Backend, BackendRedis)),
		RedisURL:       firstNonEmpty(envOrDefault("REDIS_URL", ""), raw.Store.RedisURL, "redis://localhost:6379/0"),
		DatabaseURL:    firstNonEmpty(envOrDefault("DATABASE_URL", ""), raw.Store.DatabaseURL),
		EventsQueue:    firstNonEmpty(envOrDefault("EVENTS_QUEUE", ""), raw.Events.Queue),
		RepeatDetect:   boolOrDefault(raw.Repeat.Enabled, true),
		RepeatTTL:      durationOrDefault(raw.Repeat.TTL, 24*time.Hour),
		Port:           envOrDefaultInt("PORT", firstPositive(raw.Server.Port, 8080)),
		AdminEnabled:   envOrDefaultBool("ADMIN_ENABLED", raw.Server.AdminEnabled),
	}

	if cfg.Primary.SMTPPort == 0 {
		cfg.Primary.SMTPPort = 587
	}

	tz := firstNonEmpty(envOrDefault("BUSINESS_TIMEZONE", ""), raw.Business.Timezone, "America/New_York")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load business timezone %q: %w", tz, err)
	}
	cfg.Business.Location = loc

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Primary.Provider {
	case ProviderAcumbamail:
	case ProviderSMTP:
		if c.Primary.SMTPHost == "" {
			return fmt.Errorf("primary provider smtp requires primary.smtp.host")
		}
	default:
		return fmt.Errorf("unknown primary provider %q (want acumbamail or smtp)", c.Primary.Provider)
	}

	switch c.StoreBackend {
	case BackendRedis, BackendMemory:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("store backend postgres requires DATABASE_URL")
		}
	default:
		return fmt.Errorf("unknown store backend %q (want redis, postgres or memory)", c.StoreBackend)
	}

	if c.ChannelTimeout <= 0 {
		return fmt.Errorf("delivery channel timeout must be positive, got %s", c.ChannelTimeout)
	}

	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envOrDefaultBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envOrDefaultDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func durationOrDefault(v string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
		return d
	}
	return fallback
}

func boolOrDefault(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
