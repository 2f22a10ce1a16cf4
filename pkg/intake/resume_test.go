package intake

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/somnohealth/intakeflow/pkg/intake/checkpoint"
	"github.com/somnohealth/intakeflow/pkg/intake/inference"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubService scripts the inference calls a resume exercises.
type stubService struct {
	classifyCalls int
	riskCalls     int
	questionCalls int
}

func (s *stubService) ClassifyTopic(context.Context, inference.TopicInput) (inference.TopicDecision, error) {
	s.classifyCalls++
	return inference.TopicDecision{OnTopic: true, Confidence: inference.ConfidenceHigh}, nil
}

func (s *stubService) AssessRisk(context.Context, []inference.Message) (inference.RiskAssessment, error) {
	s.riskCalls++
	return inference.RiskAssessment{Level: inference.RiskNone, Confidence: inference.ConfidenceHigh}, nil
}

func (s *stubService) GenerateQuestion(context.Context, inference.QuestionInput) (string, error) {
	s.questionCalls++
	return "And how is your sleep hygiene?", nil
}

func (s *stubService) GenerateSummary(context.Context, inference.SummaryInput) (inference.ConsultationSummary, error) {
	return inference.ConsultationSummary{
		DoctorSummary:  "d",
		PatientSummary: "p",
		Urgency:        inference.UrgencyRoutine,
	}, nil
}

func (s *stubService) DecideRoute(context.Context, inference.RouteInput) (inference.RouteDecision, error) {
	return inference.RouteAskQuestion, nil
}

func (s *stubService) ExtractReferral(context.Context, string) (inference.ReferralInfo, error) {
	return inference.ReferralInfo{}, nil
}

// saveInterruptedTurn stores an envelope as the orchestrator would have
// left it after committing the guardrail stage of turn 2 and crashing.
func saveInterruptedTurn(t *testing.T, store checkpoint.Store, id, inbound string) {
	t.Helper()

	state := ConversationState{
		Messages: []Message{
			{Role: RoleAgent, Text: "How long have you had trouble sleeping?"},
			{Role: RolePatient, Text: inbound},
		},
		QuestionsAnswered: 1,
		LastQuestion:      "How long have you had trouble sleeping?",
	}
	stateBytes, err := json.Marshal(state)
	require.NoError(t, err)

	progressBytes, err := json.Marshal(turnProgress{Inbound: inbound, OnTopicAnswer: true})
	require.NoError(t, err)

	env := checkpoint.New(id, string(StageGuardrail), 2, stateBytes)
	env.LastInbound = inbound
	env.Progress = progressBytes

	data, err := env.Marshal()
	require.NoError(t, err)
	require.NoError(t, store.Save(id, data))
}

func TestSubmitTurn_ResumesAfterCommittedStage(t *testing.T) {
	svc := &stubService{}
	store := checkpoint.NewMemoryStore()
	orch, err := New(svc, store)
	require.NoError(t, err)

	saveInterruptedTurn(t, store, "conv-1", "about six months")

	res, err := orch.SubmitTurn(context.Background(), "conv-1", "about six months")
	require.NoError(t, err)

	// The guardrail already committed before the crash, so it does not
	// run again; the turn picks up at safety and continues.
	assert.Zero(t, svc.classifyCalls)
	assert.Equal(t, 1, svc.riskCalls)
	assert.Equal(t, 1, svc.questionCalls)

	assert.Equal(t, 2, res.Turn)
	assert.Equal(t, 1, res.QuestionsAnswered)
	require.Len(t, res.AgentMessages, 1)
	assert.Equal(t, "And how is your sleep hygiene?", res.AgentMessages[0])

	// The inbound message was not appended a second time.
	snap, err := orch.Conversation("conv-1")
	require.NoError(t, err)
	patientCount := 0
	for _, m := range snap.State.Messages {
		if m.Role == RolePatient {
			patientCount++
		}
	}
	assert.Equal(t, 1, patientCount)
}

func TestSubmitTurn_NewMessageAbandonsInterruptedTurn(t *testing.T) {
	svc := &stubService{}
	store := checkpoint.NewMemoryStore()
	orch, err := New(svc, store)
	require.NoError(t, err)

	saveInterruptedTurn(t, store, "conv-1", "about six months")

	// A different message starts a fresh turn from the committed state.
	res, err := orch.SubmitTurn(context.Background(), "conv-1", "closer to a year, actually")
	require.NoError(t, err)

	assert.Equal(t, 1, svc.classifyCalls)
	assert.Equal(t, 3, res.Turn)
	assert.Equal(t, 2, res.QuestionsAnswered)
}

func TestSubmitTurn_EmptyMessageWithAbandonedTurnRejected(t *testing.T) {
	svc := &stubService{}
	store := checkpoint.NewMemoryStore()
	orch, err := New(svc, store)
	require.NoError(t, err)

	saveInterruptedTurn(t, store, "conv-1", "about six months")

	// An empty message only opens a conversation or re-fetches the last
	// reply. Mid-turn there is no completed reply, so it is rejected
	// instead of starting an unprompted agent turn.
	_, err = orch.SubmitTurn(context.Background(), "conv-1", "")
	require.ErrorIs(t, err, ErrNoReplyToRedeliver)

	assert.Zero(t, svc.classifyCalls)
	assert.Zero(t, svc.riskCalls)
	assert.Zero(t, svc.questionCalls)

	// The committed checkpoint is untouched.
	snap, err := orch.Conversation("conv-1")
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Turn)
	assert.Equal(t, 1, snap.State.QuestionsAnswered)
}

// failingStore wraps a store and fails Save after a set number of
// successful calls.
type failingStore struct {
	checkpoint.Store
	remaining int
}

func (f *failingStore) Save(conversationID string, data []byte) error {
	if f.remaining <= 0 {
		return errors.New("disk full")
	}
	f.remaining--
	return f.Store.Save(conversationID, data)
}

func TestSubmitTurn_CheckpointFailureFailsTurn(t *testing.T) {
	svc := &stubService{}
	store := &failingStore{Store: checkpoint.NewMemoryStore(), remaining: 0}
	orch, err := New(svc, store)
	require.NoError(t, err)

	_, err = orch.SubmitTurn(context.Background(), "conv-1", "")

	var cpErr *CheckpointError
	require.ErrorAs(t, err, &cpErr)
	assert.Equal(t, "save", cpErr.Op)
}

func TestNextStage_Transitions(t *testing.T) {
	orch := &Orchestrator{}

	live := &ConversationState{}
	terminated := &ConversationState{TerminateReason: TerminateSafety}

	assert.Equal(t, StageSafety, orch.nextStage(StageGuardrail, &turn{}, live))
	assert.Equal(t, StageEnd, orch.nextStage(StageGuardrail, &turn{}, terminated))
	assert.Equal(t, StageRouter, orch.nextStage(StageSafety, &turn{}, live))
	assert.Equal(t, StageEnd, orch.nextStage(StageSafety, &turn{redirected: true}, live))
	assert.Equal(t, StageQuestion, orch.nextStage(StageRouter, &turn{route: StageQuestion}, live))
	assert.Equal(t, StageSummary, orch.nextStage(StageRouter, &turn{route: StageSummary}, live))
	assert.Equal(t, StageEnd, orch.nextStage(StageQuestion, &turn{}, live))
	assert.Equal(t, StageEnd, orch.nextStage(StageSummary, &turn{}, live))
}
