package intake

// Role identifies the author of a conversation message.
type Role string

const (
	RolePatient Role = "patient"
	RoleAgent   Role = "agent"
)

// Message is one entry in the conversation transcript.
type Message struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// TerminateReason records why a conversation stopped accepting turns.
// Once set to anything other than TerminateNone the conversation is
// terminal and further turns are rejected.
type TerminateReason string

const (
	TerminateNone     TerminateReason = ""
	TerminateOffTopic TerminateReason = "off_topic"
	TerminateSafety   TerminateReason = "safety_risk"
	TerminateComplete TerminateReason = "completed"
)

// UrgencyLevel is the clinical urgency assigned by the summary stage.
type UrgencyLevel string

const (
	UrgencyRoutine  UrgencyLevel = "routine"
	UrgencyModerate UrgencyLevel = "moderate"
	UrgencyHigh     UrgencyLevel = "high"
)

// Valid reports whether u is one of the closed set of urgency levels.
func (u UrgencyLevel) Valid() bool {
	switch u {
	case UrgencyRoutine, UrgencyModerate, UrgencyHigh:
		return true
	}
	return false
}

// ReferralLetter is the structured extraction from a referring doctor's
// letter. It is supplied before the first turn and immutable afterwards.
type ReferralLetter struct {
	PatientName    string `json:"patient_name"`
	DoctorName     string `json:"doctor_name,omitempty"`
	ReferralDate   string `json:"referral_date,omitempty"`
	ReferredTo     string `json:"referred_to,omitempty"`
	ReferralReason string `json:"referral_reason,omitempty"`
}

// OffTopicLimit is the number of off-topic classifications after which a
// conversation is terminated.
const OffTopicLimit = 3

// MinQuestions is the hard floor of answered questions before the router
// will even consider summarization.
const MinQuestions = 5

// riskWindow is the number of trailing messages examined by the safety
// stage. Shorter conversations are screened in full without padding.
const riskWindow = 5

// ConversationState is the single mutable record threaded through every
// stage of a turn. Stages receive it by value and return an updated copy;
// the orchestrator commits the result to the checkpoint store after each
// stage, so a crash never exposes a partially-applied stage.
type ConversationState struct {
	// Messages is the append-only transcript, oldest first.
	Messages []Message `json:"messages"`

	// OffTopicCounter counts off-topic classifications across the whole
	// conversation. It is monotonic: an on-topic turn does not reset it.
	OffTopicCounter int `json:"off_topic_counter"`

	// QuestionsAnswered counts clinical questions the patient has
	// answered on-topic. Monotonic; gates the router's question floor.
	QuestionsAnswered int `json:"questions_answered"`

	// LastQuestion is the most recently asked clinical question, used to
	// re-present context after a guardrail redirect.
	LastQuestion string `json:"last_question,omitempty"`

	TerminateReason TerminateReason `json:"terminate_reason,omitempty"`

	// SummaryConfirmed flips to true only when the patient has responded
	// to the initial summary; the turn after that is the final one.
	SummaryConfirmed bool `json:"summary_confirmed"`

	ReferralLetter *ReferralLetter `json:"referral_letter,omitempty"`

	DoctorSummary  string       `json:"doctor_summary,omitempty"`
	PatientSummary string       `json:"patient_summary,omitempty"`
	UrgencyLevel   UrgencyLevel `json:"urgency_level,omitempty"`
}

// Terminal reports whether the conversation has stopped accepting turns.
func (s *ConversationState) Terminal() bool {
	return s.TerminateReason != TerminateNone
}

// SummaryPending reports whether an initial summary has been presented to
// the patient and is awaiting their confirmation or additions.
func (s *ConversationState) SummaryPending() bool {
	return s.PatientSummary != "" && !s.SummaryConfirmed
}

// appendMessage returns the state with one message appended. The transcript
// slice is copied so earlier checkpoints never alias the new backing array.
func (s ConversationState) appendMessage(role Role, text string) ConversationState {
	msgs := make([]Message, len(s.Messages), len(s.Messages)+1)
	copy(msgs, s.Messages)
	s.Messages = append(msgs, Message{Role: role, Text: text})
	return s
}

// riskWindowMessages returns the trailing messages examined for self-harm
// risk: the last five, or all of them when the conversation is shorter.
func (s *ConversationState) riskWindowMessages() []Message {
	if len(s.Messages) <= riskWindow {
		return s.Messages
	}
	return s.Messages[len(s.Messages)-riskWindow:]
}

// lastPatientMessage returns the text of the most recent patient message,
// or "" if the patient has not spoken yet.
func (s *ConversationState) lastPatientMessage() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == RolePatient {
			return s.Messages[i].Text
		}
	}
	return ""
}

// hasPatientMessages reports whether the patient has said anything at all.
func (s *ConversationState) hasPatientMessages() bool {
	for i := range s.Messages {
		if s.Messages[i].Role == RolePatient {
			return true
		}
	}
	return false
}
