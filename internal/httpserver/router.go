// Package httpserver exposes the webhook endpoint plus a handful of
// operational routes. It stays transport-only: decoding and routing
// here, conversation semantics behind the Deps callbacks.
package httpserver

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zaprelay/zaprelay/wasender"
)

// maxWebhookBody caps webhook payloads; real events are a few KB.
const maxWebhookBody = 1 << 20

type Deps struct {
	Logger      *slog.Logger
	Version     string
	PersonaName string
	MenuEnabled bool
	StartedAt   time.Time

	// GenerationReady reports whether a generation backend is
	// configured. When false the service still answers menu turns, so
	// /health reports degraded rather than down.
	GenerationReady bool

	// Enqueue hands a decoded inbound message to the per-user pipeline.
	Enqueue func(ctx context.Context, in wasender.Inbound) error

	// ClearHistory wipes one user's stored conversation.
	ClearHistory func(userID string) error
}

func NewRouter(deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(recoverer(logger))
	r.Use(requestLog(logger))

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"service": "zaprelay",
			"status":  "running",
			"version": deps.Version,
		})
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		if !deps.GenerationReady {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status":     "degraded",
				"generation": false,
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/status", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"service":          "zaprelay",
			"version":          deps.Version,
			"persona":          deps.PersonaName,
			"menu_enabled":     deps.MenuEnabled,
			"generation_ready": deps.GenerationReady,
			"uptime_seconds":   int64(time.Since(deps.StartedAt).Seconds()),
		})
	})

	r.Post("/webhook", handleWebhook(logger, deps))

	r.Post("/clear_history/{userID}", func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(chi.URLParam(r, "userID"))
		if userID == "" {
			writeJSONError(w, http.StatusBadRequest, "bad_request", "user id required")
			return
		}
		if err := deps.ClearHistory(userID); err != nil {
			logger.Error("history_clear_failed", "user", userID, "error", err)
			writeJSONError(w, http.StatusInternalServerError, "internal", "failed to clear history")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "cleared", "user": userID})
	})

	return r
}

// handleWebhook acknowledges everything it can: provider webhooks
// retry on non-2xx, so only malformed requests earn an error status.
func handleWebhook(logger *slog.Logger, deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "bad_request", "unreadable body")
			return
		}

		in, err := wasender.DecodeInbound(body)
		switch {
		case err == nil:
		case errors.Is(err, wasender.ErrNotAMessage), errors.Is(err, wasender.ErrUnsupportedContent):
			// Delivery receipts, media without text and our own outbound
			// echoes all land here. Acknowledge so the provider stops
			// retrying.
			logger.Debug("webhook_ignored", "reason", err.Error())
			writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
			return
		case errors.Is(err, wasender.ErrNoSender):
			writeJSONError(w, http.StatusBadRequest, "bad_request", "event has no sender")
			return
		default:
			writeJSONError(w, http.StatusBadRequest, "bad_request", "malformed webhook payload")
			return
		}

		if err := deps.Enqueue(r.Context(), in); err != nil {
			logger.Error("webhook_enqueue_failed", "sender", in.SenderJID, "error", err)
			writeJSONError(w, http.StatusServiceUnavailable, "overloaded", "message queue unavailable")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "queued"})
	}
}
