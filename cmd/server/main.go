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

// StarGaze Refund Desk: intake service
//
// Entry point for the refund request service. It:
//  1. Loads configuration from config.yaml, .env and the environment
//  2. Opens the pending-request store (Redis, PostgreSQL or memory)
//  3. Connects Redis for repeat detection and outcome events when enabled
//  4. Builds the delivery ladder: primary email, webhook relay, local store
//  5. Serves the intake API until SIGTERM/SIGINT
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/stargaze/refunddesk/internal/compose"
	"github.com/stargaze/refunddesk/internal/config"
	"github.com/stargaze/refunddesk/internal/dedup"
	"github.com/stargaze/refunddesk/internal/delivery"
	"github.com/stargaze/refunddesk/internal/models"
	"github.com/stargaze/refunddesk/internal/pipeline"
	"github.com/stargaze/refunddesk/internal/queue"
	"github.com/stargaze/refunddesk/internal/server"
	"github.com/stargaze/refunddesk/internal/store"
)

func main() {
	// Structured JSON logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	slog.Info("starting refund desk intake service")

	// --- Load Configuration ---
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("configuration loaded",
		"primary", cfg.Primary.Provider,
		"store", cfg.StoreBackend,
		"webhook_configured", cfg.Webhook.URL != "",
		"channel_timeout", cfg.ChannelTimeout,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Pending Store ---
	pending, closeStore, err := store.Open(ctx, cfg)
	if err != nil {
		slog.Error("failed to open pending store", "backend", cfg.StoreBackend, "error", err)
		os.Exit(1)
	}
	defer closeStore()
	slog.Info("pending store ready", "backend", cfg.StoreBackend)

	// --- Optional Redis features ---
	var (
		repeat pipeline.RepeatDetector
		events pipeline.EventPublisher
	)
	if cfg.RepeatDetect || cfg.EventsQueue != "" {
		rdb, err := connectRedis(ctx, cfg.RedisURL)
		if err != nil {
			slog.Warn("redis unavailable, repeat detection and events disabled", "error", err)
		} else {
			defer rdb.Close()
			if cfg.RepeatDetect {
				repeat = dedup.NewFilter(rdb, cfg.RepeatTTL)
			}
			if cfg.EventsQueue != "" {
				events = queue.NewPublisher(rdb, cfg.EventsQueue)
			}
		}
	}

	// --- Delivery Channels ---
	contact := models.ContactInfo{Phone: cfg.Business.Phone, Email: cfg.Business.Inbox}

	primary := newPrimary(cfg)
	webhook := delivery.NewWebhook(delivery.WebhookConfig{
		URL:      cfg.Webhook.URL,
		Service:  cfg.Primary.Provider,
		Priority: cfg.Webhook.Priority,
	}, webhookClient(ctx, cfg.Webhook.OAuth))
	local := delivery.NewLocal(pending, contact, cfg.Primary.Provider)

	// --- Pipeline ---
	composer := compose.New(compose.Business{
		Name:  cfg.Business.Name,
		Inbox: cfg.Business.Inbox,
		Phone: cfg.Business.Phone,
	}, cfg.Business.Location)

	p := pipeline.New(pipeline.Config{
		Composer:       composer,
		Stages:         pipeline.DefaultStages(primary, webhook, local),
		ChannelTimeout: cfg.ChannelTimeout,
		BusinessName:   cfg.Business.Name,
		Contact:        contact,
		Repeat:         repeat,
		Events:         events,
	})

	// --- HTTP Server ---
	handler := server.NewHandler(p, pending, cfg.AdminEnabled)
	ready, err := server.Serve(ctx, cfg.Port, handler.Router())
	if err != nil {
		slog.Error("failed to start http server", "error", err)
		os.Exit(1)
	}
	<-ready

	if cfg.AdminEnabled {
		slog.Warn("admin routes enabled; pending requests are readable over HTTP")
	}

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	sig := <-sigCh

	slog.Info("received shutdown signal", "signal", sig)
	cancel()

	// Give the server a moment to drain before the deferred closes run.
	time.Sleep(500 * time.Millisecond)
	slog.Info("refund desk intake service stopped")
}

func connectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, err
	}
	return rdb, nil
}

// newPrimary builds the configured primary email channel.
func newPrimary(cfg *config.Config) delivery.Channel {
	httpClient := &http.Client{Timeout: cfg.ChannelTimeout}

	switch cfg.Primary.Provider {
	case config.ProviderSMTP:
		return delivery.NewSMTP(delivery.SMTPConfig{
			Host:      cfg.Primary.SMTPHost,
			Port:      cfg.Primary.SMTPPort,
			Username:  cfg.Primary.SMTPUsername,
			Password:  cfg.Primary.SMTPPassword,
			FromEmail: cfg.Primary.FromEmail,
			FromName:  cfg.Primary.FromName,
			TLSPolicy: cfg.Primary.SMTPTLSPolicy,
			Timeout:   cfg.ChannelTimeout,
		})
	default:
		if cfg.Primary.APIToken == "" {
			slog.Warn("ACUMBAMAIL_API_TOKEN not set; every submission will fall back")
		}
		return delivery.NewAcumbamail(delivery.AcumbamailConfig{
			BaseURL:       cfg.Primary.BaseURL,
			Token:         cfg.Primary.APIToken,
			FromEmail:     cfg.Primary.FromEmail,
			FromName:      cfg.Primary.FromName,
			RecipientName: cfg.Primary.RecipientName,
			ListID:        cfg.Primary.ListID,
			TrackOpens:    cfg.Primary.TrackOpens,
			TrackClicks:   cfg.Primary.TrackClicks,
		}, httpClient)
	}
}

// webhookClient returns an OAuth2 client-credentials client when the relay
// requires one, and a plain client otherwise.
func webhookClient(ctx context.Context, o config.OAuthConfig) *http.Client {
	if !o.Enabled() {
		return &http.Client{}
	}
	creds := &clientcredentials.Config{
		ClientID:     o.ClientID,
		ClientSecret: o.ClientSecret,
		TokenURL:     o.TokenURL,
		Scopes:       o.Scopes,
	}
	slog.Info("webhook relay uses oauth2 client credentials", "token_url", o.TokenURL)
	return creds.Client(ctx)
}
