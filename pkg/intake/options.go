package intake

import (
	"log/slog"

	"github.com/somnohealth/intakeflow/pkg/intake/observability"
)

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger enables structured logging. Nil disables logging (the
// default).
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithMetrics sets the metrics recorder. Default: no-op.
//
// Example:
//
//	orch, err := intake.New(svc, store,
//	    intake.WithMetrics(observability.NewMetricsRecorder()))
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(o *Orchestrator) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithTracing enables per-turn and per-stage spans via the given span
// manager. Default: disabled.
func WithTracing(sm observability.SpanManager) Option {
	return func(o *Orchestrator) {
		if sm != nil {
			o.spans = sm
			o.tracing = true
		}
	}
}

// turnConfig holds per-turn configuration.
type turnConfig struct {
	referral     *ReferralLetter
	expectedTurn int
}

// TurnOption configures a single SubmitTurn call.
type TurnOption func(*turnConfig)

// WithReferral attaches a referral letter to a new conversation. It is
// applied only on the opening turn; existing conversations keep the
// letter they started with.
func WithReferral(letter *ReferralLetter) TurnOption {
	return func(c *turnConfig) {
		c.referral = letter
	}
}

// WithExpectedTurn declares which turn number the caller expects this
// submission to produce: the Turn of the last result it saw, plus one.
// It distinguishes a redelivered request from a patient legitimately
// repeating their previous answer ("no" to two yes/no questions in a
// row): the cached result is replayed only while the conversation is
// still on an earlier turn. Zero, the default, falls back to matching
// on message text alone.
func WithExpectedTurn(n int) TurnOption {
	return func(c *turnConfig) {
		c.expectedTurn = n
	}
}
