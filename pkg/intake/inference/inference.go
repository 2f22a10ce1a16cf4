// Package inference defines the contract with the external language
// inference service: topic classification, self-harm risk assessment,
// clinical question generation, summary generation, and the
// continue-or-summarize routing decision.
//
// All results are closed enums validated at the boundary. A payload that
// does not match the schema is rejected as *MalformedOutputError rather
// than passed through; transport failures surface as *TransientError.
package inference

import "context"

// Message is one transcript entry as seen by the inference service.
type Message struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Confidence is the classifier's self-reported confidence.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Valid reports whether c is a known confidence level.
func (c Confidence) Valid() bool {
	switch c {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
		return true
	}
	return false
}

// TopicDecision is the guardrail classification result.
type TopicDecision struct {
	OnTopic    bool       `json:"on_topic"`
	Confidence Confidence `json:"confidence"`
}

// RiskLevel grades self-harm risk detected in a conversation window.
type RiskLevel string

const (
	RiskNone      RiskLevel = "none"
	RiskLow       RiskLevel = "low"
	RiskMedium    RiskLevel = "medium"
	RiskHigh      RiskLevel = "high"
	RiskImmediate RiskLevel = "immediate"
)

// Valid reports whether r is a known risk level.
func (r RiskLevel) Valid() bool {
	switch r {
	case RiskNone, RiskLow, RiskMedium, RiskHigh, RiskImmediate:
		return true
	}
	return false
}

// Actionable reports whether the level requires terminating the
// conversation with a safety message.
func (r RiskLevel) Actionable() bool {
	switch r {
	case RiskMedium, RiskHigh, RiskImmediate:
		return true
	}
	return false
}

// RiskAssessment is the safety screening result.
type RiskAssessment struct {
	Level      RiskLevel  `json:"risk_level"`
	Confidence Confidence `json:"confidence"`
}

// QuestionMode selects the generation path for the next clinical question.
type QuestionMode string

const (
	// QuestionInitial opens a new consultation, optionally personalized
	// from the referral letter.
	QuestionInitial QuestionMode = "initial"
	// QuestionFollowup continues an in-progress consultation.
	QuestionFollowup QuestionMode = "followup"
)

// TopicInput carries the context for a guardrail classification.
type TopicInput struct {
	// Message is the patient message being classified.
	Message string
	// Recent is the trailing conversation window for context; a brief
	// answer to a clinical question is on-topic even in isolation.
	Recent []Message
	// LastQuestion is the clinical question the patient is answering.
	LastQuestion string
}

// QuestionInput carries the context for question generation.
type QuestionInput struct {
	Mode        QuestionMode
	History     []Message
	PatientName string
	// Referral is a short textual rendering of the referral letter, used
	// only for personalization, never for clinical shortcuts.
	Referral string
	// Avoid, when non-empty, is a question text the generator must not
	// repeat verbatim.
	Avoid string
}

// SummaryInput carries the context for summary generation.
type SummaryInput struct {
	History     []Message
	PatientName string
	Referral    string
	// Final marks the regeneration pass that incorporates the patient's
	// additions to the initial summary.
	Final bool
}

// Urgency mirrors the clinical urgency enum used by the orchestrator.
type Urgency string

const (
	UrgencyRoutine  Urgency = "routine"
	UrgencyModerate Urgency = "moderate"
	UrgencyHigh     Urgency = "high"
)

// Valid reports whether u is a known urgency level.
func (u Urgency) Valid() bool {
	switch u {
	case UrgencyRoutine, UrgencyModerate, UrgencyHigh:
		return true
	}
	return false
}

// ConsultationSummary is the structured dual-audience summary.
type ConsultationSummary struct {
	DoctorSummary  string  `json:"doctor_summary"`
	PatientSummary string  `json:"patient_summary"`
	Urgency        Urgency `json:"urgency_level"`
}

// RouteDecision is the continue-or-summarize verdict once the question
// floor has been met.
type RouteDecision string

const (
	RouteAskQuestion RouteDecision = "ask_question"
	RouteSummarize   RouteDecision = "generate_summary"
)

// Valid reports whether d is a known routing decision.
func (d RouteDecision) Valid() bool {
	return d == RouteAskQuestion || d == RouteSummarize
}

// RouteInput carries the context for the routing decision.
type RouteInput struct {
	History           []Message
	QuestionsAnswered int
	Referral          string
}

// ReferralInfo is the structured extraction from a referral letter.
type ReferralInfo struct {
	PatientName    string `json:"patient_name"`
	DoctorName     string `json:"doctor_name"`
	ReferralDate   string `json:"referral_date"`
	ReferredTo     string `json:"referred_to"`
	ReferralReason string `json:"referral_reason"`
}

// Service is the language inference capability consumed by the
// orchestrator and the referral extractor. Implementations must honor
// context cancellation and return *TransientError for upstream failures
// so callers can distinguish retryable conditions.
type Service interface {
	// ClassifyTopic decides whether a patient message belongs to the
	// sleep-health consultation.
	ClassifyTopic(ctx context.Context, in TopicInput) (TopicDecision, error)

	// AssessRisk screens a trailing message window for self-harm risk.
	AssessRisk(ctx context.Context, window []Message) (RiskAssessment, error)

	// GenerateQuestion produces the next single clinical question.
	GenerateQuestion(ctx context.Context, in QuestionInput) (string, error)

	// GenerateSummary produces the structured dual-audience summary.
	// On schema failure it returns a *MalformedOutputError whose Raw
	// field carries the unparsed text, so callers can degrade.
	GenerateSummary(ctx context.Context, in SummaryInput) (ConsultationSummary, error)

	// DecideRoute returns the continue-or-summarize verdict.
	DecideRoute(ctx context.Context, in RouteInput) (RouteDecision, error)

	// ExtractReferral pulls structured referral fields from letter text.
	ExtractReferral(ctx context.Context, text string) (ReferralInfo, error)
}
