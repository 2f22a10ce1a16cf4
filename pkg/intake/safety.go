package intake

import "context"

// stageSafety screens the trailing conversation window for self-harm
// risk. It runs on every turn where the patient has said anything,
// including turns the guardrail redirected. An assessment failure fails
// the turn: an unscreened message is never answered.
func (o *Orchestrator) stageSafety(ctx context.Context, t *turn, s ConversationState) (ConversationState, error) {
	if !s.hasPatientMessages() {
		return s, nil
	}

	a, err := o.svc.AssessRisk(ctx, toInferenceMessages(s.riskWindowMessages()))
	if err != nil {
		return s, err
	}

	if a.Level.Actionable() {
		msg := safetyTerminationMessage(a.Level)
		s.TerminateReason = TerminateSafety
		s = s.appendMessage(RoleAgent, msg)
		t.emit(msg)
	}
	return s, nil
}
