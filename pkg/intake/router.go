package intake

import (
	"context"

	"github.com/somnohealth/intakeflow/pkg/intake/inference"
)

// stageRouter decides whether the consultation continues with another
// question or proceeds to the summary. Policy comes first: a pending
// summary always returns to the summary stage, and the classifier is
// only consulted once the question floor has been met.
func (o *Orchestrator) stageRouter(ctx context.Context, t *turn, s ConversationState) (ConversationState, error) {
	if s.SummaryPending() {
		t.route = StageSummary
		return s, nil
	}

	if s.QuestionsAnswered < MinQuestions {
		t.route = StageQuestion
		return s, nil
	}

	d, err := o.svc.DecideRoute(ctx, inference.RouteInput{
		History:           toInferenceMessages(s.Messages),
		QuestionsAnswered: s.QuestionsAnswered,
		Referral:          referralContext(&s),
	})
	if err != nil {
		return s, err
	}

	if d == inference.RouteSummarize {
		t.route = StageSummary
	} else {
		t.route = StageQuestion
	}
	return s, nil
}
