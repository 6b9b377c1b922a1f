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

// Package server exposes the refund pipeline over HTTP. Visitors POST the
// refund form; support staff can read and clear the pending store when the
// admin routes are enabled.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/stargaze/refunddesk/internal/models"
	"github.com/stargaze/refunddesk/internal/pipeline"
)

// maxBodyBytes caps the form body; a refund form is a few hundred bytes.
const maxBodyBytes = 64 << 10

// Submitter runs one refund submission.
type Submitter interface {
	Submit(ctx context.Context, form models.RefundRequestForm) pipeline.Outcome
}

// PendingStore is the subset of the pending store the API exposes.
type PendingStore interface {
	List(ctx context.Context) ([]models.PendingRequest, error)
	Clear(ctx context.Context) error
	Ping(ctx context.Context) error
}

// Handler serves the intake API.
type Handler struct {
	submitter Submitter
	store     PendingStore
	admin     bool
}

// NewHandler creates the API handler. The pending-request routes are only
// mounted when admin is true.
func NewHandler(submitter Submitter, store PendingStore, admin bool) *Handler {
	return &Handler{submitter: submitter, store: store, admin: admin}
}

// Router builds the chi router for h.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", h.ready)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/refund-requests", h.submit)

		if h.admin {
			r.Get("/pending-refund-requests", h.listPending)
			r.Delete("/pending-refund-requests", h.clearPending)
		}
	})

	return r
}

// submit handles the refund form. The HTTP status reflects the outcome:
// anything the business will eventually see is a 200.
func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}

	var form models.RefundRequestForm
	if err := json.Unmarshal(body, &form); err != nil {
		slog.Info("refund request body not valid JSON",
			"request_id", requestIDFromContext(r.Context()),
			"body_len", len(body),
		)
		writeError(w, http.StatusBadRequest, "request body must be a JSON refund form")
		return
	}

	out := h.submitter.Submit(r.Context(), form)
	writeJSON(w, statusFor(out.Status), out)
}

func statusFor(s pipeline.Status) int {
	switch s {
	case pipeline.StatusInvalid:
		return http.StatusUnprocessableEntity
	case pipeline.StatusHardFailure:
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

type pendingList struct {
	Items []models.PendingRequest `json:"items"`
}

func (h *Handler) listPending(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.List(r.Context())
	if err != nil {
		slog.Error("list pending requests failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "pending store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, pendingList{Items: items})
}

func (h *Handler) clearPending(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Clear(r.Context()); err != nil {
		slog.Error("clear pending requests failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "pending store unavailable")
		return
	}
	slog.Warn("pending refund requests cleared",
		"request_id", requestIDFromContext(r.Context()),
	)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		slog.Warn("readiness check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// Serve starts the HTTP server on the given port. It binds the port
// immediately and signals readiness via the returned channel before
// starting to accept connections. The server drains in-flight requests
// when ctx is cancelled.
func Serve(ctx context.Context, port int, handler http.Handler) (<-chan struct{}, error) {
	server := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, fmt.Errorf("bind http port %d: %w", port, err)
	}

	ready := make(chan struct{})

	go func() {
		<-ctx.Done()
		slog.Info("http server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("http server shutdown error", "error", err)
			server.Close()
		}
	}()

	go func() {
		slog.Info("http server listening", "port", port)
		close(ready)
		if err := server.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	return ready, nil
}
