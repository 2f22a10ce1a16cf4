package intake

import (
	"context"

	"github.com/somnohealth/intakeflow/pkg/intake/inference"
)

// stageQuestion generates the next clinical question, appends it to the
// transcript, and suspends the turn. A generator that repeats the open
// question gets one retry with an explicit avoid instruction.
func (o *Orchestrator) stageQuestion(ctx context.Context, t *turn, s ConversationState) (ConversationState, error) {
	mode := inference.QuestionFollowup
	if len(s.Messages) == 0 {
		mode = inference.QuestionInitial
	}

	in := inference.QuestionInput{
		Mode:        mode,
		History:     toInferenceMessages(s.Messages),
		PatientName: patientName(&s),
		Referral:    referralContext(&s),
	}

	q, err := o.svc.GenerateQuestion(ctx, in)
	if err != nil {
		return s, err
	}

	if q == s.LastQuestion {
		in.Avoid = q
		q, err = o.svc.GenerateQuestion(ctx, in)
		if err != nil {
			return s, err
		}
		if q == s.LastQuestion {
			return s, ErrQuestionRepeated
		}
	}

	s = s.appendMessage(RoleAgent, q)
	s.LastQuestion = q
	t.emit(q)
	return s, nil
}
