package intake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/somnohealth/intakeflow/pkg/intake/checkpoint"
	"github.com/somnohealth/intakeflow/pkg/intake/inference"
	"github.com/somnohealth/intakeflow/pkg/intake/observability"
)

// Orchestrator drives intake consultations through the stage pipeline:
// guardrail, safety, router, then question or summary. Every stage
// result is committed to the checkpoint store before the next stage
// runs, so a crash loses at most the stage in flight.
//
// Orchestrator is safe for concurrent use across conversations; turns
// for a single conversation must be submitted sequentially.
type Orchestrator struct {
	svc   inference.Service
	store checkpoint.Store

	logger  *slog.Logger
	metrics observability.MetricsRecorder
	spans   observability.SpanManager
	tracing bool
}

// TurnResult is the outcome of one submitted turn.
type TurnResult struct {
	// AgentMessages are the agent's replies for this turn, in order.
	AgentMessages []string `json:"agent_messages"`

	// Terminated reports whether the conversation reached a terminal
	// state during this turn.
	Terminated bool `json:"terminated"`

	// TerminateReason is set when Terminated is true.
	TerminateReason TerminateReason `json:"terminate_reason,omitempty"`

	// UrgencyLevel is set once a summary has been generated.
	UrgencyLevel UrgencyLevel `json:"urgency_level,omitempty"`

	// QuestionsAnswered is the running count of answered questions.
	QuestionsAnswered int `json:"questions_answered"`

	// Turn is the turn number this result belongs to.
	Turn int `json:"turn"`
}

// Snapshot is a read-only view of a stored conversation.
type Snapshot struct {
	ConversationID string
	Turn           int
	Stage          Stage
	UpdatedAt      time.Time
	State          ConversationState
}

// New creates an orchestrator. The inference service and checkpoint
// store are required; observability is opt-in via options.
func New(svc inference.Service, store checkpoint.Store, opts ...Option) (*Orchestrator, error) {
	if svc == nil {
		return nil, errors.New("inference service required")
	}
	if store == nil {
		return nil, errors.New("checkpoint store required")
	}

	o := &Orchestrator{
		svc:     svc,
		store:   store,
		logger:  nil,
		metrics: observability.NoopMetrics{},
		spans:   observability.NoopSpanManager{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// SubmitTurn runs one conversation turn and returns the agent's reply.
//
// An empty message with no existing checkpoint opens a new conversation
// (the agent greets and asks the first question). A non-empty message
// continues an existing conversation; submitting one for an unknown
// conversation returns ErrUnknownConversation. Terminal conversations
// reject all turns with *TerminalConversationError.
//
// Redelivering the same message as the last completed turn returns that
// turn's result without re-running any stage, and an empty message on a
// live conversation re-delivers the last reply (never starts a turn of
// its own). Callers whose patients may repeat an answer verbatim should
// pass WithExpectedTurn so a new message is not mistaken for a
// redelivery. A turn interrupted by a crash resumes after its last
// committed stage when the same message is submitted again.
func (o *Orchestrator) SubmitTurn(ctx context.Context, conversationID, message string, opts ...TurnOption) (result TurnResult, runErr error) {
	if ctx == nil {
		return TurnResult{}, ErrNilContext
	}
	if conversationID == "" {
		return TurnResult{}, ErrConversationIDRequired
	}

	cfg := turnConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	state, t, current, turnNum, resumed, replay, err := o.prepareTurn(conversationID, message, &cfg)
	if err != nil || replay != nil {
		if replay != nil {
			return *replay, nil
		}
		return TurnResult{}, err
	}

	done := observability.TimedOperation()
	observability.LogTurnStart(o.logger, conversationID, turnNum, resumed)

	execCtx := ctx
	var turnSpan trace.Span
	if o.tracing {
		execCtx, turnSpan = o.spans.StartTurnSpan(ctx, conversationID, turnNum)
		defer func() {
			o.spans.EndSpanWithError(turnSpan, runErr)
		}()
	}

	wasTerminal := state.Terminal()

	for current != StageEnd {
		select {
		case <-ctx.Done():
			runErr = &CancellationError{Stage: current, Cause: ctx.Err()}
			o.finishTurn(execCtx, conversationID, turnNum, current, done, runErr, &state)
			return TurnResult{}, runErr
		default:
		}

		logger := observability.EnrichLogger(o.logger, conversationID, string(current), turnNum)
		observability.LogStageStart(logger, string(current))

		stageCtx := execCtx
		var stageSpan trace.Span
		if o.tracing {
			stageCtx, stageSpan = o.spans.StartStageSpan(execCtx, string(current))
		}

		stageStart := time.Now()
		newState, stageErr := o.runStage(stageCtx, current, t, state)
		stageDuration := time.Since(stageStart)

		o.metrics.RecordStage(execCtx, string(current), stageDuration, stageErr)
		if o.tracing {
			o.spans.EndSpanWithError(stageSpan, stageErr)
		}

		if stageErr != nil {
			observability.LogStageError(logger, string(current), stageErr)
			runErr = &StageError{Stage: current, Err: stageErr}
			o.finishTurn(execCtx, conversationID, turnNum, current, done, runErr, &state)
			return TurnResult{}, runErr
		}
		observability.LogStageComplete(logger, string(current), float64(stageDuration.Milliseconds()))

		state = newState
		next := o.nextStage(current, t, &state)

		if err := o.commitStage(execCtx, conversationID, current, turnNum, message, t, &state); err != nil {
			runErr = err
			o.finishTurn(execCtx, conversationID, turnNum, current, done, runErr, &state)
			return TurnResult{}, runErr
		}

		current = next
	}

	result = TurnResult{
		AgentMessages:     t.emitted,
		Terminated:        state.Terminal(),
		TerminateReason:   state.TerminateReason,
		UrgencyLevel:      state.UrgencyLevel,
		QuestionsAnswered: state.QuestionsAnswered,
		Turn:              turnNum,
	}

	if err := o.commitFinal(execCtx, conversationID, turnNum, message, &state, result); err != nil {
		runErr = err
		o.finishTurn(execCtx, conversationID, turnNum, StageEnd, done, runErr, &state)
		return TurnResult{}, runErr
	}

	if state.Terminal() && !wasTerminal {
		observability.LogTermination(o.logger, conversationID, string(state.TerminateReason))
		o.metrics.RecordTermination(execCtx, string(state.TerminateReason))
	}

	o.finishTurn(execCtx, conversationID, turnNum, StageEnd, done, nil, &state)
	return result, nil
}

// Conversation returns a read-only snapshot of a stored conversation.
// Returns ErrUnknownConversation if the conversation has never been
// checkpointed.
func (o *Orchestrator) Conversation(conversationID string) (Snapshot, error) {
	if conversationID == "" {
		return Snapshot{}, ErrConversationIDRequired
	}

	data, err := o.store.Load(conversationID)
	if errors.Is(err, checkpoint.ErrNotFound) {
		return Snapshot{}, ErrUnknownConversation
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("load checkpoint: %w", err)
	}

	env, err := checkpoint.Unmarshal(data)
	if err != nil {
		return Snapshot{}, fmt.Errorf("decode checkpoint: %w", err)
	}

	var state ConversationState
	if err := json.Unmarshal(env.State, &state); err != nil {
		return Snapshot{}, fmt.Errorf("decode conversation state: %w", err)
	}

	return Snapshot{
		ConversationID: conversationID,
		Turn:           env.Turn,
		Stage:          Stage(env.Stage),
		UpdatedAt:      env.UpdatedAt,
		State:          state,
	}, nil
}

// prepareTurn loads the conversation, applies redelivery and resume
// rules, and returns the starting point for the stage loop. A non-nil
// replay result short-circuits the turn entirely.
func (o *Orchestrator) prepareTurn(conversationID, message string, cfg *turnConfig) (state ConversationState, t *turn, current Stage, turnNum int, resumed bool, replay *TurnResult, err error) {
	t = &turn{inbound: message}
	current = StageGuardrail
	turnNum = 1

	data, loadErr := o.store.Load(conversationID)
	switch {
	case errors.Is(loadErr, checkpoint.ErrNotFound):
		if message != "" {
			return state, nil, current, 0, false, nil, ErrUnknownConversation
		}
		state = ConversationState{ReferralLetter: cfg.referral}
		return state, t, current, turnNum, false, nil, nil

	case loadErr != nil:
		return state, nil, current, 0, false, nil, fmt.Errorf("load checkpoint: %w", loadErr)
	}

	env, decErr := checkpoint.Unmarshal(data)
	if decErr != nil {
		return state, nil, current, 0, false, nil, fmt.Errorf("decode checkpoint: %w", decErr)
	}
	if err := json.Unmarshal(env.State, &state); err != nil {
		return state, nil, current, 0, false, nil, fmt.Errorf("decode conversation state: %w", err)
	}

	// Duplicate delivery of the last completed turn replays its result,
	// and an empty message re-fetches the last reply idempotently. A
	// caller-supplied expected turn past the committed turn marks the
	// submission as new even when its text repeats the previous one.
	if len(env.Progress) == 0 && len(env.LastReply) > 0 &&
		(message == env.LastInbound || message == "") &&
		(cfg.expectedTurn == 0 || cfg.expectedTurn <= env.Turn) {
		var res TurnResult
		if err := json.Unmarshal(env.LastReply, &res); err == nil {
			return state, nil, current, 0, false, &res, nil
		}
	}

	if state.Terminal() {
		return state, nil, current, 0, false, nil, &TerminalConversationError{Reason: state.TerminateReason}
	}

	// A turn interrupted between stages resumes where it left off when
	// the same message arrives again.
	if len(env.Progress) > 0 && env.LastInbound == message {
		var p turnProgress
		if err := json.Unmarshal(env.Progress, &p); err != nil {
			return state, nil, current, 0, false, nil, fmt.Errorf("decode turn progress: %w", err)
		}
		t = p.toTurn()
		return state, t, o.nextStage(Stage(env.Stage), t, &state), env.Turn, true, nil, nil
	}

	// On an existing conversation an empty message only re-fetches the
	// last reply; it never starts a turn of its own. Reaching here means
	// there was nothing to redeliver (an abandoned turn for a different
	// message holds the checkpoint).
	if message == "" {
		return state, nil, current, 0, false, nil, ErrNoReplyToRedeliver
	}

	turnNum = env.Turn + 1
	state = state.appendMessage(RolePatient, message)
	return state, t, current, turnNum, false, nil, nil
}

// runStage dispatches one stage.
func (o *Orchestrator) runStage(ctx context.Context, stage Stage, t *turn, s ConversationState) (ConversationState, error) {
	switch stage {
	case StageGuardrail:
		return o.stageGuardrail(ctx, t, s)
	case StageSafety:
		return o.stageSafety(ctx, t, s)
	case StageRouter:
		return o.stageRouter(ctx, t, s)
	case StageQuestion:
		return o.stageQuestion(ctx, t, s)
	case StageSummary:
		return o.stageSummary(ctx, t, s)
	default:
		return s, fmt.Errorf("unknown stage %q", stage)
	}
}

// nextStage computes the successor of a completed stage.
func (o *Orchestrator) nextStage(done Stage, t *turn, s *ConversationState) Stage {
	if s.Terminal() {
		return StageEnd
	}
	switch done {
	case StageGuardrail:
		return StageSafety
	case StageSafety:
		if t.redirected {
			return StageEnd
		}
		return StageRouter
	case StageRouter:
		if t.route == StageSummary {
			return StageSummary
		}
		return StageQuestion
	default:
		return StageEnd
	}
}

// commitStage persists a mid-turn snapshot after a successful stage.
// Commit failures are fatal: an uncommitted stage is treated as never
// having run.
func (o *Orchestrator) commitStage(ctx context.Context, conversationID string, stage Stage, turnNum int, message string, t *turn, s *ConversationState) error {
	stateBytes, err := json.Marshal(s)
	if err != nil {
		return &CheckpointError{Stage: stage, Op: "serialize", Err: err}
	}

	env := checkpoint.New(conversationID, string(stage), turnNum, stateBytes)
	env.LastInbound = message

	progressBytes, err := json.Marshal(t.progress())
	if err != nil {
		return &CheckpointError{Stage: stage, Op: "serialize", Err: err}
	}
	env.Progress = progressBytes

	data, err := env.Marshal()
	if err != nil {
		return &CheckpointError{Stage: stage, Op: "marshal", Err: err}
	}

	if err := o.store.Save(conversationID, data); err != nil {
		return &CheckpointError{Stage: stage, Op: "save", Err: err}
	}

	observability.LogCheckpoint(o.logger, string(stage), len(data))
	o.metrics.RecordCheckpoint(ctx, string(stage), int64(len(data)))
	return nil
}

// commitFinal persists the completed turn: progress is cleared and the
// result is cached for duplicate-delivery replay.
func (o *Orchestrator) commitFinal(ctx context.Context, conversationID string, turnNum int, message string, s *ConversationState, result TurnResult) error {
	stateBytes, err := json.Marshal(s)
	if err != nil {
		return &CheckpointError{Stage: StageEnd, Op: "serialize", Err: err}
	}

	replyBytes, err := json.Marshal(result)
	if err != nil {
		return &CheckpointError{Stage: StageEnd, Op: "serialize", Err: err}
	}

	env := checkpoint.New(conversationID, string(StageEnd), turnNum, stateBytes)
	env.LastInbound = message
	env.LastReply = replyBytes

	data, err := env.Marshal()
	if err != nil {
		return &CheckpointError{Stage: StageEnd, Op: "marshal", Err: err}
	}

	if err := o.store.Save(conversationID, data); err != nil {
		return &CheckpointError{Stage: StageEnd, Op: "save", Err: err}
	}

	observability.LogCheckpoint(o.logger, string(StageEnd), len(data))
	o.metrics.RecordCheckpoint(ctx, string(StageEnd), int64(len(data)))
	return nil
}

// finishTurn records turn-level observability.
func (o *Orchestrator) finishTurn(ctx context.Context, conversationID string, turnNum int, lastStage Stage, done func() float64, runErr error, s *ConversationState) {
	durationMs := done()
	o.metrics.RecordTurn(ctx, runErr == nil, time.Duration(durationMs)*time.Millisecond)

	if runErr != nil {
		observability.LogTurnError(o.logger, conversationID, turnNum, runErr, durationMs, string(lastStage))
		return
	}
	observability.LogTurnComplete(o.logger, conversationID, turnNum, durationMs, string(s.TerminateReason))
}
