package intake

// Stage identifies one step of the turn pipeline. A turn always enters
// at StageGuardrail and runs stages in a fixed order until StageEnd;
// there is no graph to configure, the transitions are the product.
type Stage string

const (
	// StageGuardrail classifies the inbound patient message as on- or
	// off-topic and handles redirects.
	StageGuardrail Stage = "guardrail"

	// StageSafety screens the trailing conversation window for
	// self-harm risk. It runs on every turn that has patient content,
	// including redirected ones.
	StageSafety Stage = "safety"

	// StageRouter decides whether the consultation continues with
	// another question or proceeds to the summary.
	StageRouter Stage = "router"

	// StageQuestion generates and emits the next clinical question,
	// then suspends the turn.
	StageQuestion Stage = "question"

	// StageSummary generates the dual-audience summary; the initial
	// pass suspends for patient confirmation, the final pass completes
	// the conversation.
	StageSummary Stage = "summary"

	// StageEnd marks turn completion. It is recorded in checkpoints but
	// never executed.
	StageEnd Stage = "end"
)

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	switch s {
	case StageGuardrail, StageSafety, StageRouter, StageQuestion, StageSummary, StageEnd:
		return true
	}
	return false
}
