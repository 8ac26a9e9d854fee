// Package observe defines the RDAP client's observability surface.
//
// The core never depends on a concrete log/metrics backend. It pushes
// structured Event records through a Sink injected at construction, the
// way owasp-amass-engine's plugins take a *slog.Logger rather than reach
// for a package-level logger.
package observe

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Outcome classifies how a query terminated.
type Outcome string

const (
	OutcomeSuccess     Outcome = "success"
	OutcomeCacheHit    Outcome = "cache_hit"
	OutcomeValidation  Outcome = "error_validation"
	OutcomeSSRF        Outcome = "error_ssrf"
	OutcomeBootstrap   Outcome = "error_bootstrap"
	OutcomeNoServer    Outcome = "error_no_server_found"
	OutcomeNetwork     Outcome = "error_network"
	OutcomeTimeout     Outcome = "error_timeout"
	OutcomeRateLimited Outcome = "error_rate_limited"
	OutcomeNotFound    Outcome = "error_not_found"
	OutcomeProtocol    Outcome = "error_protocol"
	OutcomeParse       Outcome = "error_parse"
	OutcomeCancelled   Outcome = "error_cancelled"
)

// Event is a single terminal-outcome record, emitted once per public
// client operation (spec: "an event for every terminal outcome").
type Event struct {
	ID         string
	QueryType  string // "domain", "ip", "asn"
	Query      string
	Outcome    Outcome
	Source     string // authoritative server URL, if reached
	Duration   time.Duration
	Attempts   int
	Err        error
	OccurredAt time.Time
}

// Sink receives Events. Delivery (stdout, Prometheus, etc.) is the
// caller's concern, not the core's.
type Sink interface {
	Record(Event)
}

// NewEvent stamps a fresh correlation ID onto an Event.
func NewEvent(queryType, query string) Event {
	return Event{
		ID:        uuid.NewString(),
		QueryType: queryType,
		Query:     query,
	}
}

// NopSink discards every event. NewClient uses it when Options.Sink is
// nil.
type NopSink struct{}

func (NopSink) Record(Event) {}

// SlogSink adapts a *slog.Logger into a Sink, following the pack's
// convention of structured key/value logging rather than formatted strings.
type SlogSink struct {
	Logger *slog.Logger
}

// NewSlogSink wraps logger, defaulting to slog.Default() if nil.
func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{Logger: logger.WithGroup("rdap")}
}

func (s *SlogSink) Record(e Event) {
	attrs := []any{
		"event_id", e.ID,
		"query_type", e.QueryType,
		"query", e.Query,
		"outcome", string(e.Outcome),
		"duration_ms", e.Duration.Milliseconds(),
		"attempts", e.Attempts,
	}
	if e.Source != "" {
		attrs = append(attrs, "source", e.Source)
	}

	switch e.Outcome {
	case OutcomeSuccess, OutcomeCacheHit:
		s.Logger.Info("rdap query completed", attrs...)
	default:
		if e.Err != nil {
			attrs = append(attrs, "error", e.Err.Error())
		}
		s.Logger.Warn("rdap query failed", attrs...)
	}
}
