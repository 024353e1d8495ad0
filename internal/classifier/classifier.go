// Package classifier turns free text into a structured decision through an external model.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dottraffic/backend/internal/metrics"
)

// Task names one classification use case. It selects the instruction and the schema.
type Task string

const (
	TaskTraffic Task = "traffic"
	TaskTriage  Task = "triage"
	TaskUpdate  Task = "update"
)

// Tasks lists every known task.
var Tasks = []Task{TaskTraffic, TaskTriage, TaskUpdate}

// DefaultTimeout bounds a single classification call.
const DefaultTimeout = 60 * time.Second

// ErrUnavailable wraps transport, auth and timeout failures of a provider.
var ErrUnavailable = errors.New("classifier unavailable")

// ErrNotConfigured is returned by providers without credentials.
var ErrNotConfigured = errors.New("classifier: not configured")

// Prompt is one classification request.
type Prompt struct {
	Task        Task
	Instruction string
	Text        string
	MaxTokens   int
	Temperature float64
}

// Provider is one external model behind a text-in/text-out call.
type Provider interface {
	Name() string
	Complete(ctx context.Context, p Prompt) (string, error)
}

// Classifier returns a parsed and validated decision.
type Classifier interface {
	Classify(ctx context.Context, p Prompt) (Result, error)
}

// Service runs Complete, Parse and Validate against one provider.
type Service struct {
	provider Provider
	timeout  time.Duration
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// New returns a Service for provider.
func New(provider Provider, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{provider: provider, timeout: DefaultTimeout, logger: logger}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ProviderName returns the configured provider name.
func (s *Service) ProviderName() string { return s.provider.Name() }

// Classify sends p to the provider and returns the parsed decision.
// Provider failures wrap ErrUnavailable and undecodable output is a *MalformedResponseError.
// A decision outside its schema is still returned; the mismatch is only logged and counted.
func (s *Service) Classify(ctx context.Context, p Prompt) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	name := s.provider.Name()
	start := time.Now()
	raw, err := s.provider.Complete(ctx, p)
	metrics.ClassifierDurationSeconds.WithLabelValues(name, string(p.Task)).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ClassifierRequestsTotal.WithLabelValues(name, string(p.Task), "error").Inc()
		s.logger.Error("classifier call failed", "provider", name, "task", p.Task, "error", err)
		return nil, fmt.Errorf("%w: %s: %w", ErrUnavailable, name, err)
	}

	result, err := Parse(raw)
	if err != nil {
		metrics.ClassifierRequestsTotal.WithLabelValues(name, string(p.Task), "malformed").Inc()
		s.logger.Warn("classifier returned unusable output", "provider", name, "task", p.Task, "error", err)
		return nil, err
	}

	outcome := "ok"
	if err := Validate(p.Task, raw); err != nil {
		outcome = "off_schema"
		s.logger.Warn("classifier decision outside schema", "provider", name, "task", p.Task, "error", err)
	}
	metrics.ClassifierRequestsTotal.WithLabelValues(name, string(p.Task), outcome).Inc()
	s.logger.Debug("classified", "provider", name, "task", p.Task, "duration_ms", time.Since(start).Milliseconds())
	return result, nil
}
