package intake

import (
	"fmt"

	"github.com/somnohealth/intakeflow/pkg/intake/inference"
)

// Fixed agent messages. These are deliberately not model-generated: the
// guardrail and safety paths must behave identically every time, so the
// wording is pinned here rather than left to inference.

// redirectMessage steers an off-topic patient back to the consultation,
// re-presenting the open question when there is one.
func redirectMessage(lastQuestion string) string {
	const lead = "I understand, but I'm here specifically to help with your sleep health. Let's stay focused on that."
	if lastQuestion == "" {
		return lead + " Could you tell me about any sleep concerns you've been having?"
	}
	return fmt.Sprintf("%s To continue: %s", lead, lastQuestion)
}

// offTopicTerminationMessage closes a conversation that went off-topic
// too many times.
const offTopicTerminationMessage = "It seems this isn't the right time for a sleep consultation. I'm ending our session here. When you're ready to discuss your sleep health, please book a new appointment. Take care."

// Safety termination messages, one per actionable risk level, with
// escalating directiveness. They must always reach the patient verbatim.
const (
	safetyMessageMedium = `Thank you for being open with me. Some of what you've shared suggests you may be going through a difficult time, and I want to make sure you have the right support around you:

- Samaritans: call 116 123, free, any time of day or night.
- NHS 111, option 2, for urgent mental health support.

This consultation will stop here so that your wellbeing comes first. Your referring doctor will be notified. Please do reach out to one of the services above.`

	safetyMessageHigh = `I'm concerned about what you've shared, and your safety matters more than this consultation. Please contact someone who can properly support you:

- Samaritans: call 116 123, free, any time of day or night.
- NHS 111, option 2, for urgent mental health support.

This consultation will stop here. Your referring doctor will be notified today. Please don't face this alone.`

	safetyMessageImmediate = `What you've shared worries me, and I need you to get help right now.

- If you are in immediate danger, call 999 (UK) or 112 now.
- Samaritans: call 116 123, free, any time of day or night.
- NHS 111, option 2, for urgent mental health support.

Please stop and make one of these calls before doing anything else. This consultation is ending so you can do that. Your referring doctor will be notified immediately.`
)

// safetyTerminationMessage selects the termination message for an
// actionable risk level.
func safetyTerminationMessage(level inference.RiskLevel) string {
	switch level {
	case inference.RiskImmediate:
		return safetyMessageImmediate
	case inference.RiskHigh:
		return safetyMessageHigh
	default:
		return safetyMessageMedium
	}
}

// summaryPresentationMessage wraps the patient-facing summary with a
// request to confirm or correct it.
func summaryPresentationMessage(patientSummary string) string {
	return fmt.Sprintf("Thank you for answering my questions. Here is a summary of what you've told me:\n\n%s\n\nIs there anything you'd like to add or correct? If everything looks right, just say so and I'll finalize the consultation.", patientSummary)
}

// closingMessage wraps the final summary and ends the consultation.
func closingMessage(patientSummary string) string {
	return fmt.Sprintf("Here is the final summary of our consultation:\n\n%s\n\nThis has been passed to the sleep clinic along with my notes. They will be in touch about next steps. Thank you, and sleep well.", patientSummary)
}
