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

// StarGaze Refund Desk: pending request tool
//
// Standalone CLI for support staff to inspect or clear refund requests
// that were stored locally because no automated channel delivered them.
//
// Usage:
//
//	go run ./cmd/pending/ -list
//	go run ./cmd/pending/ -clear
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/stargaze/refunddesk/internal/config"
	"github.com/stargaze/refunddesk/internal/store"
)

func main() {
	// Structured JSON logging to stderr; records go to stdout
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// --- CLI Flags ---
	listFlag := flag.Bool("list", false, "Print pending refund requests as JSON")
	clearFlag := flag.Bool("clear", false, "Remove all pending refund requests")
	flag.Parse()

	if *listFlag == *clearFlag {
		fmt.Fprintf(os.Stderr, "Error: exactly one of -list or -clear is required\n\n")
		flag.Usage()
		os.Exit(1)
	}

	// --- Load Configuration ---
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if cfg.StoreBackend == config.BackendMemory {
		slog.Error("memory store is per-process; nothing to inspect")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pending, closeStore, err := store.Open(ctx, cfg)
	if err != nil {
		slog.Error("failed to open pending store", "backend", cfg.StoreBackend, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	if *clearFlag {
		if err := pending.Clear(ctx); err != nil {
			slog.Error("clear failed", "error", err)
			os.Exit(1)
		}
		slog.Info("pending refund requests cleared", "backend", cfg.StoreBackend)
		return
	}

	records, err := pending.List(ctx)
	if err != nil {
		slog.Error("list failed", "error", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		slog.Error("encode records failed", "error", err)
		os.Exit(1)
	}

	slog.Info("pending refund requests listed",
		"backend", cfg.StoreBackend,
		"count", len(records),
	)
}
