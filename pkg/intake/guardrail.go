package intake

import (
	"context"

	"github.com/somnohealth/intakeflow/pkg/intake/inference"
)

// stageGuardrail classifies the inbound patient message and keeps the
// consultation on topic. Classification failures fail the turn rather
// than letting an unvetted message through.
func (o *Orchestrator) stageGuardrail(ctx context.Context, t *turn, s ConversationState) (ConversationState, error) {
	// The opening turn carries no patient message to classify.
	if t.inbound == "" {
		return s, nil
	}

	dec, err := o.svc.ClassifyTopic(ctx, inference.TopicInput{
		Message:      t.inbound,
		Recent:       toInferenceMessages(s.riskWindowMessages()),
		LastQuestion: s.LastQuestion,
	})
	if err != nil {
		return s, err
	}

	if dec.OnTopic {
		t.onTopicAnswer = true
		// Counts as an answered question only while one is pending: the
		// opening message precedes any question, and the reply to a
		// presented summary confirms it rather than answering.
		if s.LastQuestion != "" && !s.SummaryPending() {
			s.QuestionsAnswered++
		}
		return s, nil
	}

	s.OffTopicCounter++
	if s.OffTopicCounter >= OffTopicLimit {
		s.TerminateReason = TerminateOffTopic
		s = s.appendMessage(RoleAgent, offTopicTerminationMessage)
		t.emit(offTopicTerminationMessage)
		return s, nil
	}

	msg := redirectMessage(s.LastQuestion)
	s = s.appendMessage(RoleAgent, msg)
	t.emit(msg)
	t.redirected = true
	return s, nil
}
