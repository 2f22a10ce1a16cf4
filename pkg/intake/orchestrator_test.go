package intake_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/somnohealth/intakeflow/pkg/intake"
	"github.com/somnohealth/intakeflow/pkg/intake/checkpoint"
	"github.com/somnohealth/intakeflow/pkg/intake/inference"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockService is a scriptable inference.Service. Unset functions fall
// back to benign defaults: on-topic, no risk, unique questions, a fixed
// summary, and a continue-asking route.
type mockService struct {
	classifyFn func(in inference.TopicInput) (inference.TopicDecision, error)
	riskFn     func(window []inference.Message) (inference.RiskAssessment, error)
	questionFn func(in inference.QuestionInput) (string, error)
	summaryFn  func(in inference.SummaryInput) (inference.ConsultationSummary, error)
	routeFn    func(in inference.RouteInput) (inference.RouteDecision, error)

	calls         map[string]int
	questionCount int
}

func newMockService() *mockService {
	return &mockService{calls: make(map[string]int)}
}

func (m *mockService) ClassifyTopic(_ context.Context, in inference.TopicInput) (inference.TopicDecision, error) {
	m.calls["classify"]++
	if m.classifyFn != nil {
		return m.classifyFn(in)
	}
	return inference.TopicDecision{OnTopic: true, Confidence: inference.ConfidenceHigh}, nil
}

func (m *mockService) AssessRisk(_ context.Context, window []inference.Message) (inference.RiskAssessment, error) {
	m.calls["risk"]++
	if m.riskFn != nil {
		return m.riskFn(window)
	}
	return inference.RiskAssessment{Level: inference.RiskNone, Confidence: inference.ConfidenceHigh}, nil
}

func (m *mockService) GenerateQuestion(_ context.Context, in inference.QuestionInput) (string, error) {
	m.calls["question"]++
	if m.questionFn != nil {
		return m.questionFn(in)
	}
	m.questionCount++
	return fmt.Sprintf("Question %d?", m.questionCount), nil
}

func (m *mockService) GenerateSummary(_ context.Context, in inference.SummaryInput) (inference.ConsultationSummary, error) {
	m.calls["summary"]++
	if m.summaryFn != nil {
		return m.summaryFn(in)
	}
	return inference.ConsultationSummary{
		DoctorSummary:  "doctor summary",
		PatientSummary: "patient summary",
		Urgency:        inference.UrgencyRoutine,
	}, nil
}

func (m *mockService) DecideRoute(_ context.Context, in inference.RouteInput) (inference.RouteDecision, error) {
	m.calls["route"]++
	if m.routeFn != nil {
		return m.routeFn(in)
	}
	return inference.RouteAskQuestion, nil
}

func (m *mockService) ExtractReferral(_ context.Context, _ string) (inference.ReferralInfo, error) {
	m.calls["extract"]++
	return inference.ReferralInfo{}, nil
}

func newOrchestrator(t *testing.T, svc inference.Service) *intake.Orchestrator {
	t.Helper()
	orch, err := intake.New(svc, checkpoint.NewMemoryStore())
	require.NoError(t, err)
	return orch
}

// open starts a conversation and returns its opening result.
func open(t *testing.T, orch *intake.Orchestrator, id string, opts ...intake.TurnOption) intake.TurnResult {
	t.Helper()
	res, err := orch.SubmitTurn(context.Background(), id, "", opts...)
	require.NoError(t, err)
	return res
}

// answer submits one patient message.
func answer(t *testing.T, orch *intake.Orchestrator, id, msg string) intake.TurnResult {
	t.Helper()
	res, err := orch.SubmitTurn(context.Background(), id, msg)
	require.NoError(t, err)
	return res
}

func TestSubmitTurn_OpensConversation(t *testing.T) {
	svc := newMockService()
	orch := newOrchestrator(t, svc)

	res := open(t, orch, "conv-1")

	require.Len(t, res.AgentMessages, 1)
	assert.Equal(t, "Question 1?", res.AgentMessages[0])
	assert.False(t, res.Terminated)
	assert.Equal(t, 0, res.QuestionsAnswered)
	assert.Equal(t, 1, res.Turn)

	// No patient content yet: neither classifier nor screener runs.
	assert.Zero(t, svc.calls["classify"])
	assert.Zero(t, svc.calls["risk"])
}

func TestSubmitTurn_UnknownConversation(t *testing.T) {
	orch := newOrchestrator(t, newMockService())

	_, err := orch.SubmitTurn(context.Background(), "conv-x", "hello")
	assert.ErrorIs(t, err, intake.ErrUnknownConversation)
}

func TestSubmitTurn_InputValidation(t *testing.T) {
	orch := newOrchestrator(t, newMockService())

	_, err := orch.SubmitTurn(context.Background(), "", "hello")
	assert.ErrorIs(t, err, intake.ErrConversationIDRequired)

	//nolint:staticcheck // nil context is the case under test
	_, err = orch.SubmitTurn(nil, "conv-1", "hello")
	assert.ErrorIs(t, err, intake.ErrNilContext)
}

func TestSubmitTurn_OnTopicAnswerCountsAndAsksNext(t *testing.T) {
	svc := newMockService()
	orch := newOrchestrator(t, svc)

	open(t, orch, "conv-1")
	res := answer(t, orch, "conv-1", "I wake up at 3am every night")

	require.Len(t, res.AgentMessages, 1)
	assert.Equal(t, "Question 2?", res.AgentMessages[0])
	assert.Equal(t, 1, res.QuestionsAnswered)
	assert.Equal(t, 1, svc.calls["classify"])
	assert.Equal(t, 1, svc.calls["risk"])
}

func TestSubmitTurn_OffTopicRedirect(t *testing.T) {
	svc := newMockService()
	svc.classifyFn = func(in inference.TopicInput) (inference.TopicDecision, error) {
		return inference.TopicDecision{OnTopic: false, Confidence: inference.ConfidenceHigh}, nil
	}
	orch := newOrchestrator(t, svc)

	open(t, orch, "conv-1")
	res := answer(t, orch, "conv-1", "who won the game last night?")

	// Exactly one reply: the redirect, re-presenting the open question.
	require.Len(t, res.AgentMessages, 1)
	assert.Contains(t, res.AgentMessages[0], "sleep health")
	assert.Contains(t, res.AgentMessages[0], "Question 1?")
	assert.False(t, res.Terminated)
	assert.Equal(t, 0, res.QuestionsAnswered)

	// The safety screen still ran on the redirected turn, and no new
	// question was generated.
	assert.Equal(t, 1, svc.calls["risk"])
	assert.Equal(t, 1, svc.calls["question"])

	snap, err := orch.Conversation("conv-1")
	require.NoError(t, err)
	assert.Equal(t, 1, snap.State.OffTopicCounter)
}

func TestSubmitTurn_OffTopicLimitTerminates(t *testing.T) {
	svc := newMockService()
	svc.classifyFn = func(in inference.TopicInput) (inference.TopicDecision, error) {
		return inference.TopicDecision{OnTopic: false, Confidence: inference.ConfidenceHigh}, nil
	}
	orch := newOrchestrator(t, svc)

	open(t, orch, "conv-1")
	answer(t, orch, "conv-1", "off topic one")
	answer(t, orch, "conv-1", "off topic two")
	res := answer(t, orch, "conv-1", "off topic three")

	assert.True(t, res.Terminated)
	assert.Equal(t, intake.TerminateOffTopic, res.TerminateReason)
	require.Len(t, res.AgentMessages, 1)
	assert.Contains(t, res.AgentMessages[0], "ending our session")

	// Terminal conversations reject further turns.
	_, err := orch.SubmitTurn(context.Background(), "conv-1", "wait, my sleep!")
	var termErr *intake.TerminalConversationError
	require.ErrorAs(t, err, &termErr)
	assert.Equal(t, intake.TerminateOffTopic, termErr.Reason)
}

func TestSubmitTurn_OffTopicCounterNeverResets(t *testing.T) {
	svc := newMockService()
	offTopic := false
	svc.classifyFn = func(in inference.TopicInput) (inference.TopicDecision, error) {
		return inference.TopicDecision{OnTopic: !offTopic, Confidence: inference.ConfidenceHigh}, nil
	}
	orch := newOrchestrator(t, svc)

	open(t, orch, "conv-1")

	offTopic = true
	answer(t, orch, "conv-1", "what about the stock market?")
	offTopic = false
	answer(t, orch, "conv-1", "sorry, I sleep about five hours")
	offTopic = true
	answer(t, orch, "conv-1", "do you like movies?")

	snap, err := orch.Conversation("conv-1")
	require.NoError(t, err)
	assert.Equal(t, 2, snap.State.OffTopicCounter)
}

func TestSubmitTurn_GuardrailFailsClosed(t *testing.T) {
	svc := newMockService()
	svc.classifyFn = func(in inference.TopicInput) (inference.TopicDecision, error) {
		return inference.TopicDecision{}, &inference.TransientError{Op: "classify_topic", Err: errors.New("timeout")}
	}
	orch := newOrchestrator(t, svc)

	open(t, orch, "conv-1")
	_, err := orch.SubmitTurn(context.Background(), "conv-1", "I sleep badly")

	var stageErr *intake.StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, intake.StageGuardrail, stageErr.Stage)

	// The failed turn left no trace: the same message succeeds once the
	// service recovers.
	svc.classifyFn = nil
	res := answer(t, orch, "conv-1", "I sleep badly")
	assert.Equal(t, 1, res.QuestionsAnswered)
}

func TestSubmitTurn_SafetyTerminates(t *testing.T) {
	svc := newMockService()
	svc.riskFn = func(window []inference.Message) (inference.RiskAssessment, error) {
		return inference.RiskAssessment{Level: inference.RiskHigh, Confidence: inference.ConfidenceHigh}, nil
	}
	orch := newOrchestrator(t, svc)

	open(t, orch, "conv-1")
	res := answer(t, orch, "conv-1", "I can't see the point of anything anymore")

	assert.True(t, res.Terminated)
	assert.Equal(t, intake.TerminateSafety, res.TerminateReason)
	require.Len(t, res.AgentMessages, 1)
	assert.Contains(t, res.AgentMessages[0], "Samaritans")

	_, err := orch.SubmitTurn(context.Background(), "conv-1", "hello?")
	var termErr *intake.TerminalConversationError
	require.ErrorAs(t, err, &termErr)
	assert.Equal(t, intake.TerminateSafety, termErr.Reason)
}

func TestSubmitTurn_SafetyMessageEscalatesWithSeverity(t *testing.T) {
	tests := []struct {
		level         inference.RiskLevel
		wantContains  string
		wantEmergency bool
	}{
		{inference.RiskMedium, "Samaritans", false},
		{inference.RiskHigh, "Samaritans", false},
		{inference.RiskImmediate, "999", true},
	}

	for _, tt := range tests {
		t.Run(string(tt.level), func(t *testing.T) {
			svc := newMockService()
			svc.riskFn = func(window []inference.Message) (inference.RiskAssessment, error) {
				return inference.RiskAssessment{Level: tt.level, Confidence: inference.ConfidenceHigh}, nil
			}
			orch := newOrchestrator(t, svc)

			open(t, orch, "conv-1")
			res := answer(t, orch, "conv-1", "I don't want to be here anymore")

			assert.Equal(t, intake.TerminateSafety, res.TerminateReason)
			require.Len(t, res.AgentMessages, 1)
			assert.Contains(t, res.AgentMessages[0], tt.wantContains)
			if tt.wantEmergency {
				assert.Contains(t, res.AgentMessages[0], "999")
			} else {
				assert.NotContains(t, res.AgentMessages[0], "999")
			}
		})
	}
}

func TestSubmitTurn_SafetyRunsOnRedirectedTurn(t *testing.T) {
	svc := newMockService()
	svc.classifyFn = func(in inference.TopicInput) (inference.TopicDecision, error) {
		return inference.TopicDecision{OnTopic: false, Confidence: inference.ConfidenceLow}, nil
	}
	svc.riskFn = func(window []inference.Message) (inference.RiskAssessment, error) {
		return inference.RiskAssessment{Level: inference.RiskImmediate, Confidence: inference.ConfidenceHigh}, nil
	}
	orch := newOrchestrator(t, svc)

	open(t, orch, "conv-1")
	res := answer(t, orch, "conv-1", "nothing matters, not even sleep")

	// The off-topic redirect does not bypass the safety screen.
	assert.True(t, res.Terminated)
	assert.Equal(t, intake.TerminateSafety, res.TerminateReason)
}

func TestSubmitTurn_SafetyFailsClosed(t *testing.T) {
	svc := newMockService()
	svc.riskFn = func(window []inference.Message) (inference.RiskAssessment, error) {
		return inference.RiskAssessment{}, &inference.TransientError{Op: "assess_risk", Err: errors.New("rate limited")}
	}
	orch := newOrchestrator(t, svc)

	open(t, orch, "conv-1")
	_, err := orch.SubmitTurn(context.Background(), "conv-1", "I sleep four hours")

	var stageErr *intake.StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, intake.StageSafety, stageErr.Stage)
}

func TestSubmitTurn_RouterFloorBeforeClassifier(t *testing.T) {
	svc := newMockService()
	orch := newOrchestrator(t, svc)

	open(t, orch, "conv-1")
	for i := 1; i < intake.MinQuestions; i++ {
		answer(t, orch, "conv-1", fmt.Sprintf("answer %d", i))
	}

	// Below the floor the routing classifier is never consulted.
	assert.Zero(t, svc.calls["route"])

	res := answer(t, orch, "conv-1", "answer 5")
	assert.Equal(t, intake.MinQuestions, res.QuestionsAnswered)
	assert.Equal(t, 1, svc.calls["route"])
}

// runToSummary answers questions until the summary is presented.
func runToSummary(t *testing.T, svc *mockService, orch *intake.Orchestrator, id string) intake.TurnResult {
	t.Helper()
	open(t, orch, id)
	for i := 1; i <= intake.MinQuestions; i++ {
		answer(t, orch, id, fmt.Sprintf("answer %d", i))
	}
	svc.routeFn = func(in inference.RouteInput) (inference.RouteDecision, error) {
		return inference.RouteSummarize, nil
	}
	return answer(t, orch, id, "answer 6")
}

func TestSubmitTurn_SummaryPresentedAndConfirmed(t *testing.T) {
	svc := newMockService()
	orch := newOrchestrator(t, svc)

	res := runToSummary(t, svc, orch, "conv-1")

	require.Len(t, res.AgentMessages, 1)
	assert.Contains(t, res.AgentMessages[0], "patient summary")
	assert.Contains(t, res.AgentMessages[0], "add or correct")
	assert.False(t, res.Terminated)

	snap, err := orch.Conversation("conv-1")
	require.NoError(t, err)
	assert.False(t, snap.State.SummaryConfirmed)
	assert.Equal(t, "doctor summary", snap.State.DoctorSummary)

	// The confirmation turn regenerates the summary and completes the
	// conversation without consulting the router classifier again.
	routeCalls := svc.calls["route"]
	final := answer(t, orch, "conv-1", "that is all correct")

	assert.True(t, final.Terminated)
	assert.Equal(t, intake.TerminateComplete, final.TerminateReason)
	assert.Equal(t, intake.UrgencyRoutine, final.UrgencyLevel)
	require.Len(t, final.AgentMessages, 1)
	assert.Contains(t, final.AgentMessages[0], "final summary")
	assert.Equal(t, routeCalls, svc.calls["route"])
	assert.Equal(t, 2, svc.calls["summary"])

	snap, err = orch.Conversation("conv-1")
	require.NoError(t, err)
	assert.True(t, snap.State.SummaryConfirmed)
}

func TestSubmitTurn_SummaryConfirmationNotCountedAsAnswer(t *testing.T) {
	svc := newMockService()
	orch := newOrchestrator(t, svc)

	res := runToSummary(t, svc, orch, "conv-1")
	answered := res.QuestionsAnswered

	// The reply to the presented summary confirms it; it does not answer
	// a clinical question, so the count stays where the questioning
	// phase left it.
	final := answer(t, orch, "conv-1", "that is all correct")
	require.True(t, final.Terminated)
	assert.Equal(t, answered, final.QuestionsAnswered)

	snap, err := orch.Conversation("conv-1")
	require.NoError(t, err)
	assert.Equal(t, answered, snap.State.QuestionsAnswered)
}

func TestSubmitTurn_SummaryDegradesOnMalformedOutput(t *testing.T) {
	svc := newMockService()
	svc.summaryFn = func(in inference.SummaryInput) (inference.ConsultationSummary, error) {
		return inference.ConsultationSummary{}, &inference.MalformedOutputError{
			Op:  "generate_summary",
			Raw: "The patient reports chronic insomnia with 3am waking.",
			Err: errors.New("no JSON object in output"),
		}
	}
	orch := newOrchestrator(t, svc)

	res := runToSummary(t, svc, orch, "conv-1")

	require.Len(t, res.AgentMessages, 1)
	assert.Contains(t, res.AgentMessages[0], "chronic insomnia")

	snap, err := orch.Conversation("conv-1")
	require.NoError(t, err)
	assert.Equal(t, "The patient reports chronic insomnia with 3am waking.", snap.State.DoctorSummary)
	assert.Equal(t, snap.State.DoctorSummary, snap.State.PatientSummary)
	assert.Equal(t, intake.UrgencyModerate, snap.State.UrgencyLevel)
}

func TestSubmitTurn_SummaryTransientFailureFailsTurn(t *testing.T) {
	svc := newMockService()
	svc.summaryFn = func(in inference.SummaryInput) (inference.ConsultationSummary, error) {
		return inference.ConsultationSummary{}, &inference.TransientError{Op: "generate_summary", Err: errors.New("timeout")}
	}
	orch := newOrchestrator(t, svc)

	open(t, orch, "conv-1")
	for i := 1; i <= intake.MinQuestions; i++ {
		answer(t, orch, "conv-1", fmt.Sprintf("answer %d", i))
	}
	svc.routeFn = func(in inference.RouteInput) (inference.RouteDecision, error) {
		return inference.RouteSummarize, nil
	}

	_, err := orch.SubmitTurn(context.Background(), "conv-1", "answer 6")
	var stageErr *intake.StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, intake.StageSummary, stageErr.Stage)
}

func TestSubmitTurn_QuestionRepeatRetriedWithAvoid(t *testing.T) {
	svc := newMockService()
	var avoids []string
	generated := []string{"How many hours do you sleep?", "How many hours do you sleep?", "Do you snore?"}
	svc.questionFn = func(in inference.QuestionInput) (string, error) {
		avoids = append(avoids, in.Avoid)
		q := generated[0]
		generated = generated[1:]
		return q, nil
	}
	orch := newOrchestrator(t, svc)

	open(t, orch, "conv-1")
	res := answer(t, orch, "conv-1", "I sleep badly")

	require.Len(t, res.AgentMessages, 1)
	assert.Equal(t, "Do you snore?", res.AgentMessages[0])
	// First turn, then the repeat, then the retry carrying the avoid text.
	require.Len(t, avoids, 3)
	assert.Empty(t, avoids[1])
	assert.Equal(t, "How many hours do you sleep?", avoids[2])
}

func TestSubmitTurn_QuestionRepeatTwiceFails(t *testing.T) {
	svc := newMockService()
	first := true
	svc.questionFn = func(in inference.QuestionInput) (string, error) {
		if first {
			first = false
			return "Same question?", nil
		}
		return "Same question?", nil
	}
	orch := newOrchestrator(t, svc)

	open(t, orch, "conv-1")
	_, err := orch.SubmitTurn(context.Background(), "conv-1", "an answer")
	assert.ErrorIs(t, err, intake.ErrQuestionRepeated)
}

func TestSubmitTurn_DuplicateDeliveryReplays(t *testing.T) {
	svc := newMockService()
	orch := newOrchestrator(t, svc)

	open(t, orch, "conv-1")
	res1 := answer(t, orch, "conv-1", "I wake at 3am")

	calls := svc.calls["classify"] + svc.calls["risk"] + svc.calls["question"]
	res2 := answer(t, orch, "conv-1", "I wake at 3am")

	assert.Equal(t, res1, res2)
	assert.Equal(t, calls, svc.calls["classify"]+svc.calls["risk"]+svc.calls["question"],
		"replay must not re-run any stage")
}

func TestSubmitTurn_EmptyMessageRedeliversLastReply(t *testing.T) {
	svc := newMockService()
	orch := newOrchestrator(t, svc)

	open(t, orch, "conv-1")
	res1 := answer(t, orch, "conv-1", "I wake at 3am")

	res2, err := orch.SubmitTurn(context.Background(), "conv-1", "")
	require.NoError(t, err)
	assert.Equal(t, res1, res2)
}

func TestSubmitTurn_RepeatedAnswerWithExpectedTurnRunsStages(t *testing.T) {
	svc := newMockService()
	orch := newOrchestrator(t, svc)
	ctx := context.Background()

	open(t, orch, "conv-1")

	first, err := orch.SubmitTurn(ctx, "conv-1", "no", intake.WithExpectedTurn(2))
	require.NoError(t, err)
	assert.Equal(t, 2, first.Turn)
	assert.Equal(t, 1, first.QuestionsAnswered)

	// The patient answers the next yes/no question with the same word.
	// The echoed turn number marks it as a new message, not a duplicate,
	// so the full pipeline runs again.
	second, err := orch.SubmitTurn(ctx, "conv-1", "no", intake.WithExpectedTurn(3))
	require.NoError(t, err)
	assert.Equal(t, 3, second.Turn)
	assert.Equal(t, 2, second.QuestionsAnswered)
	require.Len(t, second.AgentMessages, 1)
	assert.Equal(t, "Question 3?", second.AgentMessages[0])

	// Retrying the same submission with the same expected turn is a
	// redelivery and replays the cached result.
	calls := svc.calls["classify"] + svc.calls["risk"] + svc.calls["question"]
	replay, err := orch.SubmitTurn(ctx, "conv-1", "no", intake.WithExpectedTurn(3))
	require.NoError(t, err)
	assert.Equal(t, second, replay)
	assert.Equal(t, calls, svc.calls["classify"]+svc.calls["risk"]+svc.calls["question"])
}

func TestSubmitTurn_ReferralPersonalizesConversation(t *testing.T) {
	svc := newMockService()
	var seen inference.QuestionInput
	svc.questionFn = func(in inference.QuestionInput) (string, error) {
		seen = in
		svc.questionCount++
		return fmt.Sprintf("Question %d?", svc.questionCount), nil
	}
	orch := newOrchestrator(t, svc)

	letter := &intake.ReferralLetter{
		PatientName:    "Alex Doe",
		DoctorName:     "Dr. Patel",
		ReferralReason: "suspected sleep apnea",
	}
	open(t, orch, "conv-1", intake.WithReferral(letter))

	assert.Equal(t, inference.QuestionInitial, seen.Mode)
	assert.Equal(t, "Alex Doe", seen.PatientName)
	assert.Contains(t, seen.Referral, "suspected sleep apnea")

	snap, err := orch.Conversation("conv-1")
	require.NoError(t, err)
	require.NotNil(t, snap.State.ReferralLetter)
	assert.Equal(t, "Alex Doe", snap.State.ReferralLetter.PatientName)
}

func TestSubmitTurn_TranscriptAccumulates(t *testing.T) {
	svc := newMockService()
	orch := newOrchestrator(t, svc)

	open(t, orch, "conv-1")
	answer(t, orch, "conv-1", "first answer")
	answer(t, orch, "conv-1", "second answer")

	snap, err := orch.Conversation("conv-1")
	require.NoError(t, err)

	var texts []string
	for _, m := range snap.State.Messages {
		texts = append(texts, string(m.Role)+": "+m.Text)
	}
	joined := strings.Join(texts, "\n")
	assert.Contains(t, joined, "agent: Question 1?")
	assert.Contains(t, joined, "patient: first answer")
	assert.Contains(t, joined, "agent: Question 2?")
	assert.Contains(t, joined, "patient: second answer")
	assert.Contains(t, joined, "agent: Question 3?")
}

func TestSubmitTurn_CancelledContext(t *testing.T) {
	orch := newOrchestrator(t, newMockService())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := orch.SubmitTurn(ctx, "conv-1", "")
	var cancelErr *intake.CancellationError
	require.ErrorAs(t, err, &cancelErr)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConversation_Unknown(t *testing.T) {
	orch := newOrchestrator(t, newMockService())

	_, err := orch.Conversation("nope")
	assert.ErrorIs(t, err, intake.ErrUnknownConversation)
}

func TestNew_Validation(t *testing.T) {
	_, err := intake.New(nil, checkpoint.NewMemoryStore())
	assert.Error(t, err)

	_, err = intake.New(newMockService(), nil)
	assert.Error(t, err)
}
