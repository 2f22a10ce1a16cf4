/*
Package intake orchestrates safety-gated sleep-health intake
consultations.

# Overview

A consultation is a multi-turn conversation between a patient and an
AI agent. Each submitted turn runs a fixed stage pipeline:

	guardrail -> safety -> router -> question | summary

The guardrail keeps the patient on topic (three strikes terminates the
conversation), the safety stage screens every turn for self-harm risk,
and the router decides between asking another clinical question and
generating the consultation summary. Questions only stop once the
patient has answered at least five; the summary is presented for
patient confirmation before the conversation completes.

The pipeline is deliberately explicit: there is no configurable graph,
the stage order is the product. Both guardrail and safety fail closed,
so an inference failure fails the turn instead of letting an unvetted
message through.

# Basic Usage

	store, err := checkpoint.NewSQLiteStore("./intake.db")
	if err != nil {
	    log.Fatal(err)
	}
	defer store.Close()

	svc := inference.NewOpenAIService(inference.Options{APIKey: key})

	orch, err := intake.New(svc, store,
	    intake.WithLogger(slog.Default()))
	if err != nil {
	    log.Fatal(err)
	}

	// Open a conversation: empty message, agent greets and asks first.
	res, err := orch.SubmitTurn(ctx, "conv-1", "",
	    intake.WithReferral(&intake.ReferralLetter{PatientName: "Alex Doe"}))

	// Each patient reply is one turn.
	res, err = orch.SubmitTurn(ctx, "conv-1", "I can't fall asleep before 3am")

# Durability

Every stage result is committed to the checkpoint store before the
next stage runs. A crash mid-turn loses at most the stage in flight:
resubmitting the same message resumes after the last committed stage,
and resubmitting the message of an already-completed turn replays its
cached result without re-running anything. Callers that echo turn
numbers via WithExpectedTurn keep a patient repeating their previous
answer word for word from being mistaken for such a redelivery.

# Error Handling

Errors carry stage context:

	var stageErr *intake.StageError
	if errors.As(err, &stageErr) {
	    log.Printf("stage %s failed: %v", stageErr.Stage, stageErr.Err)
	}

Turns against terminated conversations return
*TerminalConversationError; messages for conversations that were never
opened return ErrUnknownConversation.

# Subpackages

  - checkpoint: conversation snapshot storage (memory, SQLite)
  - inference: the language inference contract and OpenAI implementation
  - observability: logging, metrics, and tracing helpers
*/
package intake
