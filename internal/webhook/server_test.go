package webhook

import (
	"bytes"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/hooksink/hooksink/internal/store"
)

func newTestServer(cfg Config) (*Server, *store.Store) {
	if cfg.Path == "" {
		cfg.Path = "/hooks/github"
	}
	st := store.New(store.DefaultCapacity)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return New(cfg, st, logger), st
}

func postDelivery(srv *Server, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/hooks/github", bytes.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)
	return rec
}

func TestHandleDeliveryValidSHA256(t *testing.T) {
	secret := "test-secret"
	body := []byte(`{"action":"opened"}`)
	srv, st := newTestServer(Config{Secret: secret})

	rec := postDelivery(srv, body, map[string]string{
		"Content-Type":     "application/json",
		headerSignature256: "sha256=" + signatureHex(sha256.New, body, secret),
		headerEvent:        "pull_request",
		headerDelivery:     "delivery-123",
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body: %s)", rec.Code, http.StatusOK, rec.Body.String())
	}

	var resp AckResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.OK {
		t.Error("response ok = false, want true")
	}
	if resp.ReceivedEvent != "pull_request" {
		t.Errorf("received_event = %q, want pull_request", resp.ReceivedEvent)
	}
	if resp.ID != "delivery-123" {
		t.Errorf("id = %q, want delivery-123", resp.ID)
	}

	records, total := st.Peek(10)
	if total != 1 {
		t.Fatalf("stored %d records, want 1", total)
	}
	r := records[0]
	if r.ID != "delivery-123" || r.Event != "pull_request" {
		t.Errorf("stored record = %+v", r)
	}
	if r.ReceivedAt.IsZero() {
		t.Error("stored record has zero ReceivedAt")
	}
	if m, ok := r.Payload.(map[string]any); !ok || m["action"] != "opened" {
		t.Errorf("stored payload = %v", r.Payload)
	}
}

func TestHandleDeliveryValidSHA1Legacy(t *testing.T) {
	secret := "test-secret"
	body := []byte(`{"ref":"refs/heads/main"}`)
	srv, st := newTestServer(Config{Secret: secret})

	// The sha256 header is present but wrong; the sha1 match must still
	// admit the delivery.
	rec := postDelivery(srv, body, map[string]string{
		"Content-Type":     "application/json",
		headerSignature256: "sha256=" + strings.Repeat("0", 64),
		headerSignature:    "sha1=" + signatureHex(sha1.New, body, secret),
		headerEvent:        "push",
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if st.Len() != 1 {
		t.Errorf("stored %d records, want 1", st.Len())
	}
}

func TestHandleDeliveryInvalidSignature(t *testing.T) {
	srv, st := newTestServer(Config{Secret: "test-secret"})

	rec := postDelivery(srv, []byte(`{"a":1}`), map[string]string{
		"Content-Type":     "application/json",
		headerSignature256: "sha256=" + strings.Repeat("0", 64),
	})

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != "invalid signature" {
		t.Errorf("body = %q, want plain-text invalid signature", got)
	}
	if st.Len() != 0 {
		t.Error("rejected delivery must not be stored")
	}
}

func TestHandleDeliveryMissingSignatureHeaders(t *testing.T) {
	srv, st := newTestServer(Config{Secret: "test-secret"})

	rec := postDelivery(srv, []byte(`{"a":1}`), map[string]string{
		"Content-Type": "application/json",
	})

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if st.Len() != 0 {
		t.Error("rejected delivery must not be stored")
	}
}

func TestHandleDeliveryEmptySecretSkipsVerification(t *testing.T) {
	srv, st := newTestServer(Config{Secret: ""})

	rec := postDelivery(srv, []byte(`{"a":1}`), map[string]string{
		"Content-Type": "application/json",
		headerEvent:    "push",
	})

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if st.Len() != 1 {
		t.Errorf("stored %d records, want 1", st.Len())
	}
}

func TestHandleDeliveryGeneratesFallbackID(t *testing.T) {
	srv, st := newTestServer(Config{})

	rec := postDelivery(srv, []byte(`{}`), map[string]string{
		"Content-Type": "application/json",
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	records, _ := st.Peek(1)
	if records[0].ID == "" {
		t.Error("record should get a generated id when the header is absent")
	}
	if records[0].Event != UnknownEvent {
		t.Errorf("event = %q, want %q", records[0].Event, UnknownEvent)
	}
}

func TestHandleDeliveryMalformedBodyStoredWithFallback(t *testing.T) {
	secret := "test-secret"
	body := []byte(`{bad`)
	srv, st := newTestServer(Config{Secret: secret})

	rec := postDelivery(srv, body, map[string]string{
		"Content-Type":     "application/json",
		headerSignature256: "sha256=" + signatureHex(sha256.New, body, secret),
		headerEvent:        "push",
	})

	// Decode failure is non-fatal: the delivery is authenticated, so it is
	// recorded and acknowledged.
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	records, total := st.Peek(1)
	if total != 1 {
		t.Fatalf("stored %d records, want 1", total)
	}
	m, ok := records[0].Payload.(map[string]any)
	if !ok {
		t.Fatalf("payload type = %T, want fallback map", records[0].Payload)
	}
	if m["parse_error"] == nil {
		t.Error("fallback payload missing parse_error")
	}
	if m["raw"] != "{bad" {
		t.Errorf("fallback raw = %v, want {bad", m["raw"])
	}
}

func TestHandleDeliveryPing(t *testing.T) {
	srv, st := newTestServer(Config{})

	rec := postDelivery(srv, []byte(`{"zen":"Design for failure."}`), map[string]string{
		"Content-Type": "application/json",
		headerEvent:    "ping",
		headerDelivery: "ping-1",
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var resp AckResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Pong {
		t.Error("ping should be acknowledged with pong")
	}
	// Still recorded like any other event.
	if st.Len() != 1 {
		t.Errorf("stored %d records, want 1", st.Len())
	}
}

func TestHandleDeliveryOversizeBody(t *testing.T) {
	srv, st := newTestServer(Config{MaxBodySize: 64})

	rec := postDelivery(srv, bytes.Repeat([]byte("x"), 128), map[string]string{
		"Content-Type": "application/json",
	})

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusRequestEntityTooLarge)
	}
	if st.Len() != 0 {
		t.Error("oversize delivery must not be stored")
	}
}

func TestIngestionEndpointMethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(Config{})

	req := httptest.NewRequest(http.MethodGet, "/hooks/github", nil)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
	if allow := rec.Header().Get("Allow"); allow != http.MethodPost {
		t.Errorf("Allow = %q, want POST", allow)
	}
}

func TestEventsEndpointMethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(Config{})

	req := httptest.NewRequest(http.MethodPost, "/events", nil)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
	if allow := rec.Header().Get("Allow"); allow != http.MethodGet {
		t.Errorf("Allow = %q, want GET", allow)
	}
}

func TestHandleEventsTokenGate(t *testing.T) {
	srv, st := newTestServer(Config{EventsToken: "devtoken"})
	st.Push(store.Record{ID: "a", Event: "push", Payload: map[string]any{}})

	tests := []struct {
		name       string
		target     string
		wantStatus int
	}{
		{"missing token", "/events", http.StatusUnauthorized},
		{"wrong token", "/events?token=nope", http.StatusUnauthorized},
		{"correct token", "/events?token=devtoken", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			rec := httptest.NewRecorder()
			srv.Routes().ServeHTTP(rec, req)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestHandleEventsLimitAndOrdering(t *testing.T) {
	srv, st := newTestServer(Config{})
	for i := 0; i < 60; i++ {
		st.Push(store.Record{ID: fmt.Sprintf("d-%d", i), Event: "push", Payload: map[string]any{}})
	}

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var resp EventsResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp.Count != 60 {
		t.Errorf("count = %d, want 60", resp.Count)
	}
	if len(resp.Events) != DefaultEventsLimit {
		t.Errorf("returned %d events, want %d", len(resp.Events), DefaultEventsLimit)
	}
	if resp.Events[0].ID != "d-59" {
		t.Errorf("first event id = %q, want d-59 (newest first)", resp.Events[0].ID)
	}

	// Explicit smaller limit.
	req = httptest.NewRequest(http.MethodGet, "/events?limit=5", nil)
	rec = httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)
	resp = EventsResponse{}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Events) != 5 {
		t.Errorf("returned %d events, want 5", len(resp.Events))
	}

	// Limits above the cap fall back to the default.
	req = httptest.NewRequest(http.MethodGet, "/events?limit=500", nil)
	rec = httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)
	resp = EventsResponse{}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Events) != DefaultEventsLimit {
		t.Errorf("returned %d events, want %d", len(resp.Events), DefaultEventsLimit)
	}
}

func TestHandleHealthz(t *testing.T) {
	srv, st := newTestServer(Config{})
	st.Push(store.Record{ID: "a", Event: "push"})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var resp HealthzResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("status = %q, want ok", resp.Status)
	}
	if resp.StoredEvents != 1 {
		t.Errorf("stored_events = %d, want 1", resp.StoredEvents)
	}
}
