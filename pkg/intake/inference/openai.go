package inference

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Options configures the OpenAI-backed inference service.
type Options struct {
	// APIKey is the OpenAI API key.
	APIKey string
	// Model is used for classification, questions, and routing.
	// Defaults to gpt-4o.
	Model string
	// SummaryModel is used for summary generation; defaults to Model.
	SummaryModel string
	// Timeout bounds each upstream call. Defaults to 30s.
	Timeout time.Duration
	// SummaryMaxTokens raises the completion budget for the detailed
	// doctor summary. Defaults to 3000.
	SummaryMaxTokens int
}

// OpenAIService implements Service against the OpenAI chat completion API.
type OpenAIService struct {
	client           *openai.Client
	model            string
	summaryModel     string
	timeout          time.Duration
	summaryMaxTokens int
}

var _ Service = (*OpenAIService)(nil)

// NewOpenAIService constructs an OpenAI-backed inference service.
func NewOpenAIService(opts Options) *OpenAIService {
	if opts.Model == "" {
		opts.Model = "gpt-4o"
	}
	if opts.SummaryModel == "" {
		opts.SummaryModel = opts.Model
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.SummaryMaxTokens <= 0 {
		opts.SummaryMaxTokens = 3000
	}
	return &OpenAIService{
		client:           openai.NewClient(opts.APIKey),
		model:            opts.Model,
		summaryModel:     opts.SummaryModel,
		timeout:          opts.Timeout,
		summaryMaxTokens: opts.SummaryMaxTokens,
	}
}

// ClassifyTopic implements Service.
func (s *OpenAIService) ClassifyTopic(ctx context.Context, in TopicInput) (TopicDecision, error) {
	const op = "classify_topic"

	var b strings.Builder
	fmt.Fprintf(&b, "Recent conversation:\n%s\n\n", renderTranscript(in.Recent))
	fmt.Fprintf(&b, "Last question asked by the agent: %s\n\n", in.LastQuestion)
	fmt.Fprintf(&b, "Patient's current message: %s\n\n", in.Message)
	b.WriteString("Classify this message, considering the conversation context.")

	raw, err := s.complete(ctx, s.model, topicSystemPrompt, b.String(), 0)
	if err != nil {
		return TopicDecision{}, &TransientError{Op: op, Err: err}
	}

	var d TopicDecision
	if err := decodeJSON(raw, &d); err != nil {
		return TopicDecision{}, &MalformedOutputError{Op: op, Raw: raw, Err: err}
	}
	if !d.Confidence.Valid() {
		return TopicDecision{}, &MalformedOutputError{Op: op, Raw: raw,
			Err: fmt.Errorf("unknown confidence %q", d.Confidence)}
	}
	return d, nil
}

// AssessRisk implements Service.
func (s *OpenAIService) AssessRisk(ctx context.Context, window []Message) (RiskAssessment, error) {
	const op = "assess_risk"

	user := fmt.Sprintf("Conversation window:\n\n%s\n\nAssess this conversation for self-harm or suicide risk indicators.",
		renderTranscript(window))

	raw, err := s.complete(ctx, s.model, riskSystemPrompt, user, 0)
	if err != nil {
		return RiskAssessment{}, &TransientError{Op: op, Err: err}
	}

	var a RiskAssessment
	if err := decodeJSON(raw, &a); err != nil {
		return RiskAssessment{}, &MalformedOutputError{Op: op, Raw: raw, Err: err}
	}
	if !a.Level.Valid() {
		return RiskAssessment{}, &MalformedOutputError{Op: op, Raw: raw,
			Err: fmt.Errorf("unknown risk level %q", a.Level)}
	}
	if !a.Confidence.Valid() {
		return RiskAssessment{}, &MalformedOutputError{Op: op, Raw: raw,
			Err: fmt.Errorf("unknown confidence %q", a.Confidence)}
	}
	return a, nil
}

// GenerateQuestion implements Service.
func (s *OpenAIService) GenerateQuestion(ctx context.Context, in QuestionInput) (string, error) {
	const op = "generate_question"

	var b strings.Builder
	switch in.Mode {
	case QuestionInitial:
		b.WriteString(initialQuestionPrompt)
	default:
		b.WriteString(followupQuestionPrompt)
	}
	fmt.Fprintf(&b, "\n\nConversation history:\n%s\n", renderTranscript(in.History))
	fmt.Fprintf(&b, "\nPatient name: %s\n", orUnknown(in.PatientName))
	fmt.Fprintf(&b, "Referral letter context: %s\n", orUnknown(in.Referral))
	if in.Avoid != "" {
		fmt.Fprintf(&b, "\nDo not repeat this question; ask something different: %q\n", in.Avoid)
	}

	raw, err := s.complete(ctx, s.model, questionSystemPrompt, b.String(), 0)
	if err != nil {
		return "", &TransientError{Op: op, Err: err}
	}
	q := strings.TrimSpace(raw)
	if q == "" {
		return "", &MalformedOutputError{Op: op, Raw: raw, Err: errors.New("empty question")}
	}
	return q, nil
}

// GenerateSummary implements Service.
func (s *OpenAIService) GenerateSummary(ctx context.Context, in SummaryInput) (ConsultationSummary, error) {
	const op = "generate_summary"

	var b strings.Builder
	if in.Final {
		b.WriteString(finalSummaryNote)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "Complete consultation history:\n%s\n", renderTranscript(in.History))
	fmt.Fprintf(&b, "\nPatient name: %s\n", orUnknown(in.PatientName))
	fmt.Fprintf(&b, "Referral letter context: %s\n", orUnknown(in.Referral))
	b.WriteString("\nBase the summaries on the conversation; the referral letter is background only.")

	raw, err := s.complete(ctx, s.summaryModel, summarySystemPrompt, b.String(), s.summaryMaxTokens)
	if err != nil {
		return ConsultationSummary{}, &TransientError{Op: op, Err: err}
	}

	var sum ConsultationSummary
	if err := decodeJSON(raw, &sum); err != nil {
		return ConsultationSummary{}, &MalformedOutputError{Op: op, Raw: raw, Err: err}
	}
	if sum.DoctorSummary == "" || sum.PatientSummary == "" {
		return ConsultationSummary{}, &MalformedOutputError{Op: op, Raw: raw,
			Err: errors.New("missing summary fields")}
	}
	if !sum.Urgency.Valid() {
		return ConsultationSummary{}, &MalformedOutputError{Op: op, Raw: raw,
			Err: fmt.Errorf("unknown urgency %q", sum.Urgency)}
	}
	return sum, nil
}

// DecideRoute implements Service.
func (s *OpenAIService) DecideRoute(ctx context.Context, in RouteInput) (RouteDecision, error) {
	const op = "decide_route"

	var b strings.Builder
	fmt.Fprintf(&b, "Conversation history:\n%s\n", renderTranscript(in.History))
	fmt.Fprintf(&b, "\nQuestions answered so far: %d\n", in.QuestionsAnswered)
	fmt.Fprintf(&b, "Referral letter context: %s\n", orUnknown(in.Referral))
	b.WriteString("\nBased on the conversation, what is your decision?")

	raw, err := s.complete(ctx, s.model, routeSystemPrompt, b.String(), 0)
	if err != nil {
		return "", &TransientError{Op: op, Err: err}
	}

	var out struct {
		Decision RouteDecision `json:"decision"`
	}
	if err := decodeJSON(raw, &out); err != nil {
		return "", &MalformedOutputError{Op: op, Raw: raw, Err: err}
	}
	if !out.Decision.Valid() {
		return "", &MalformedOutputError{Op: op, Raw: raw,
			Err: fmt.Errorf("unknown decision %q", out.Decision)}
	}
	return out.Decision, nil
}

// ExtractReferral implements Service.
func (s *OpenAIService) ExtractReferral(ctx context.Context, text string) (ReferralInfo, error) {
	const op = "extract_referral"

	raw, err := s.complete(ctx, s.model, referralSystemPrompt, text, 0)
	if err != nil {
		return ReferralInfo{}, &TransientError{Op: op, Err: err}
	}

	var info ReferralInfo
	if err := decodeJSON(raw, &info); err != nil {
		return ReferralInfo{}, &MalformedOutputError{Op: op, Raw: raw, Err: err}
	}
	return info, nil
}

// complete runs one chat completion and returns the first choice's text.
func (s *OpenAIService) complete(ctx context.Context, model, system, user string, maxTokens int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model:       model,
		Temperature: 0.2,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	}
	if maxTokens > 0 {
		req.MaxTokens = maxTokens
	}

	resp, err := s.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("empty completion")
	}
	return resp.Choices[0].Message.Content, nil
}

// decodeJSON unmarshals model output into v. Models occasionally wrap the
// object in prose or a code fence; fall back to the outermost braces.
func decodeJSON(raw string, v any) error {
	trimmed := strings.TrimSpace(raw)
	if err := json.Unmarshal([]byte(trimmed), v); err == nil {
		return nil
	}
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start < 0 || end <= start {
		return errors.New("no JSON object in output")
	}
	return json.Unmarshal([]byte(trimmed[start:end+1]), v)
}

// renderTranscript flattens messages into "role: text" lines.
func renderTranscript(msgs []Message) string {
	if len(msgs) == 0 {
		return "(no messages yet)"
	}
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		lines = append(lines, m.Role+": "+m.Text)
	}
	return strings.Join(lines, "\n")
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "not provided"
	}
	return s
}
