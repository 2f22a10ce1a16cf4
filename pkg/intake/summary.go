package intake

import (
	"context"
	"errors"
	"strings"

	"github.com/somnohealth/intakeflow/pkg/intake/inference"
)

// stageSummary produces the dual-audience consultation summary. The
// initial pass presents the patient summary and suspends for review;
// the final pass incorporates the patient's response and completes the
// conversation.
//
// Summary generation degrades rather than fails on malformed model
// output: the raw text becomes both summaries and the urgency falls
// back to moderate, because losing a completed consultation is worse
// than an unstructured record.
func (o *Orchestrator) stageSummary(ctx context.Context, t *turn, s ConversationState) (ConversationState, error) {
	final := s.SummaryPending()

	sum, err := o.svc.GenerateSummary(ctx, inference.SummaryInput{
		History:     toInferenceMessages(s.Messages),
		PatientName: patientName(&s),
		Referral:    referralContext(&s),
		Final:       final,
	})
	if err != nil {
		var mo *inference.MalformedOutputError
		if errors.As(err, &mo) && strings.TrimSpace(mo.Raw) != "" {
			sum = inference.ConsultationSummary{
				DoctorSummary:  mo.Raw,
				PatientSummary: mo.Raw,
				Urgency:        inference.UrgencyModerate,
			}
		} else {
			return s, err
		}
	}

	s.DoctorSummary = sum.DoctorSummary
	s.PatientSummary = sum.PatientSummary
	s.UrgencyLevel = UrgencyLevel(sum.Urgency)

	var msg string
	if final {
		s.SummaryConfirmed = true
		s.TerminateReason = TerminateComplete
		msg = closingMessage(s.PatientSummary)
	} else {
		msg = summaryPresentationMessage(s.PatientSummary)
	}

	s = s.appendMessage(RoleAgent, msg)
	t.emit(msg)
	return s, nil
}
