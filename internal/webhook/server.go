package webhook

import (
	"context"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hooksink/hooksink/internal/auth"
	"github.com/hooksink/hooksink/internal/metrics"
	"github.com/hooksink/hooksink/internal/store"
)

// Headers consumed from GitHub-style deliveries.
const (
	headerSignature256 = "X-Hub-Signature-256"
	headerSignature    = "X-Hub-Signature"
	headerEvent        = "X-GitHub-Event"
	headerDelivery     = "X-GitHub-Delivery"
)

// Server represents the receiver HTTP server.
type Server struct {
	config    Config
	store     *store.Store
	logger    *slog.Logger
	server    *http.Server
	startedAt time.Time
}

// New creates a new receiver server instance. An empty secret is surfaced
// here, once, so an operator sees the warning at startup rather than per
// request.
func New(config Config, st *store.Store, logger *slog.Logger) *Server {
	if config.MaxBodySize == 0 {
		config.MaxBodySize = DefaultMaxBodySize
	}

	if config.Secret == "" {
		logger.Warn("webhook secret is not set; signature verification is disabled")
	}

	return &Server{
		config:    config,
		store:     st,
		logger:    logger,
		startedAt: time.Now(),
	}
}

// Start starts the HTTP server (blocking until ctx is cancelled).
func (s *Server) Start(ctx context.Context) error {
	router := s.Routes()

	s.server = &http.Server{
		Addr:         s.config.Listen,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("receiver starting", "listen", s.config.Listen, "path", s.config.Path)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("receiver shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("receiver shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("receiver error: %w", err)
	}
}

// Routes configures the HTTP router.
func (s *Server) Routes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	// Method checks live inside the handlers so that a wrong method gets a
	// 405 carrying the Allow header instead of chi's bare response.
	r.Handle(s.config.Path, http.HandlerFunc(s.handleDelivery))
	r.Handle("/events", http.HandlerFunc(s.handleEvents))
	r.Get("/healthz", s.handleHealthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

// loggingMiddleware logs HTTP requests (excludes body content).
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
			"remote_addr", r.RemoteAddr,
		)
	})
}

// handleDelivery handles incoming webhook POST requests: authenticate over
// the raw bytes, decode, store, acknowledge.
func (s *Server) handleDelivery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	start := time.Now()

	// The signature is computed over the exact bytes on the wire, so the
	// body is captured raw before any parsing.
	limited := io.LimitReader(r.Body, s.config.MaxBodySize+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		// Client disconnected or transport failure: nothing is stored from
		// an incomplete body.
		http.Error(w, "failed to read request body", http.StatusInternalServerError)
		return
	}
	if int64(len(body)) > s.config.MaxBodySize {
		http.Error(w, "payload too large", http.StatusRequestEntityTooLarge)
		return
	}

	sig256 := r.Header.Get(headerSignature256)
	sig1 := r.Header.Get(headerSignature)

	if s.config.Secret != "" {
		if err := verifySignature(body, sig256, sig1, s.config.Secret); err != nil {
			// Digests and header presence are safe to log; the secret is not.
			s.logger.Warn("signature mismatch",
				"has_sig256", sig256 != "",
				"has_sig1", sig1 != "",
				"expected_sha256", signatureHex(sha256.New, body, s.config.Secret),
				"expected_sha1", signatureHex(sha1.New, body, s.config.Secret),
				"content_type", r.Header.Get("Content-Type"),
			)
			metrics.DeliveriesRejectedTotal.Inc()
			http.Error(w, "invalid signature", http.StatusUnauthorized)
			return
		}
	}

	payload, decodeErr := decodePayload(body, r.Header.Get("Content-Type"))
	if decodeErr != nil {
		s.logger.Warn("failed to decode payload; storing fallback",
			"error", decodeErr,
			"content_type", r.Header.Get("Content-Type"),
		)
		metrics.DecodeFallbacksTotal.Inc()
	}

	event := r.Header.Get(headerEvent)
	if event == "" {
		event = UnknownEvent
	}
	id := r.Header.Get(headerDelivery)
	if id == "" {
		id = uuid.NewString()
	}

	s.store.Push(store.Record{
		ID:      id,
		Event:   event,
		Payload: payload,
	})

	metrics.DeliveriesTotal.Inc()
	metrics.IngestDuration.Observe(time.Since(start).Seconds())

	s.logger.Info("delivery stored", "event", event, "id", id)

	resp := AckResponse{OK: true, ReceivedEvent: event, ID: id}
	if event == "ping" {
		resp.Pong = true
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// handleEvents handles the read-only GET endpoint.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	if !auth.Allowed(r, s.config.EventsToken) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	limit := DefaultEventsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= DefaultEventsLimit {
			limit = n
		}
	}

	events, count := s.store.Peek(limit)
	s.respondJSON(w, http.StatusOK, EventsResponse{Count: count, Events: events})
}

// handleHealthz handles GET /healthz (no auth).
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, HealthzResponse{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
		StoredEvents:  s.store.Len(),
	})
}

// respondJSON sends a JSON response.
func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// methodNotAllowed rejects with 405 and advertises the allowed method.
func methodNotAllowed(w http.ResponseWriter, allow string) {
	w.Header().Set("Allow", allow)
	http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
}
