package webhook

import "github.com/hooksink/hooksink/internal/store"

// Config holds receiver server configuration.
type Config struct {
	// Listen is the address the HTTP server binds to.
	Listen string

	// Path is the URL path for the ingestion endpoint (e.g. "/hooks/github").
	Path string

	// Secret is the shared HMAC secret. Empty disables signature
	// verification; the server warns about this once at construction.
	Secret string

	// EventsToken gates the read endpoint via a ?token= query parameter.
	// Empty disables the gate.
	EventsToken string

	// MaxBodySize is the maximum allowed request body size in bytes.
	MaxBodySize int64
}

// AckResponse is the JSON response for an accepted delivery.
type AckResponse struct {
	OK            bool   `json:"ok"`
	ReceivedEvent string `json:"received_event"`
	ID            string `json:"id"`
	Pong          bool   `json:"pong,omitempty"`
}

// EventsResponse is the JSON response of the read endpoint.
type EventsResponse struct {
	Count  int            `json:"count"`
	Events []store.Record `json:"events"`
}

// HealthzResponse is the JSON response of the health endpoint.
type HealthzResponse struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	StoredEvents  int    `json:"stored_events"`
}

// Default values
const (
	DefaultMaxBodySize = 1048576 // 1 MB
	DefaultEventsLimit = 50
	UnknownEvent       = "unknown"
)
