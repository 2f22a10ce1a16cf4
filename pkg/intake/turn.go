package intake

import (
	"fmt"
	"strings"

	"github.com/somnohealth/intakeflow/pkg/intake/inference"
)

// turn holds the in-flight bookkeeping for one SubmitTurn call. Stages
// mutate it alongside the conversation state; it is persisted with each
// mid-turn checkpoint so an interrupted turn resumes with the same
// decisions already made.
type turn struct {
	// inbound is the patient message that drove this turn, "" for the
	// opening turn.
	inbound string

	// onTopicAnswer is set by the guardrail when the inbound message is
	// an on-topic contribution.
	onTopicAnswer bool

	// redirected is set by the guardrail when the patient was steered
	// back on topic; the turn ends after the safety screen.
	redirected bool

	// route is the router's verdict: StageQuestion or StageSummary.
	route Stage

	// emitted collects the agent messages produced this turn, in order.
	emitted []string
}

func (t *turn) emit(msg string) {
	t.emitted = append(t.emitted, msg)
}

// turnProgress is the serialized form of turn for mid-turn checkpoints.
type turnProgress struct {
	Inbound       string   `json:"inbound,omitempty"`
	OnTopicAnswer bool     `json:"on_topic_answer,omitempty"`
	Redirected    bool     `json:"redirected,omitempty"`
	Route         string   `json:"route,omitempty"`
	Emitted       []string `json:"emitted,omitempty"`
}

func (t *turn) progress() turnProgress {
	return turnProgress{
		Inbound:       t.inbound,
		OnTopicAnswer: t.onTopicAnswer,
		Redirected:    t.redirected,
		Route:         string(t.route),
		Emitted:       t.emitted,
	}
}

func (p turnProgress) toTurn() *turn {
	return &turn{
		inbound:       p.Inbound,
		onTopicAnswer: p.OnTopicAnswer,
		redirected:    p.Redirected,
		route:         Stage(p.Route),
		emitted:       p.Emitted,
	}
}

// toInferenceMessages converts transcript messages into the inference
// wire shape.
func toInferenceMessages(msgs []Message) []inference.Message {
	out := make([]inference.Message, len(msgs))
	for i, m := range msgs {
		out[i] = inference.Message{Role: string(m.Role), Text: m.Text}
	}
	return out
}

// referralContext renders the referral letter as a short text block for
// inference prompts. Empty when no letter was supplied.
func referralContext(s *ConversationState) string {
	r := s.ReferralLetter
	if r == nil {
		return ""
	}
	var b strings.Builder
	if r.PatientName != "" {
		fmt.Fprintf(&b, "Patient: %s. ", r.PatientName)
	}
	if r.DoctorName != "" {
		fmt.Fprintf(&b, "Referred by: %s. ", r.DoctorName)
	}
	if r.ReferralDate != "" {
		fmt.Fprintf(&b, "Date: %s. ", r.ReferralDate)
	}
	if r.ReferralReason != "" {
		fmt.Fprintf(&b, "Reason: %s.", r.ReferralReason)
	}
	return strings.TrimSpace(b.String())
}

// patientName returns the patient's name from the referral letter, ""
// when unknown.
func patientName(s *ConversationState) string {
	if s.ReferralLetter == nil {
		return ""
	}
	return s.ReferralLetter.PatientName
}
