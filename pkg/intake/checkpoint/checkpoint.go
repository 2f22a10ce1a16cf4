package checkpoint

import (
	"encoding/json"
	"fmt"
	"time"
)

// Version is the current envelope format version.
// Increment when making breaking changes to the envelope structure.
const Version = 1

// Envelope is the persisted snapshot of one conversation. It carries
// everything needed to resume: the serialized conversation state, the
// stage that last committed, and the inbound/outbound pair of the last
// completed turn for duplicate-delivery detection.
type Envelope struct {
	Version        int       `json:"version"`
	ConversationID string    `json:"conversation_id"`
	Stage          string    `json:"stage"`
	Turn           int       `json:"turn"`
	UpdatedAt      time.Time `json:"updated_at"`

	// State is the orchestrator's conversation state, serialized by the
	// caller so this package stays ignorant of its shape.
	State json.RawMessage `json:"state"`

	// LastInbound is the patient message that drove the last completed
	// turn. An identical redelivery replays LastReply instead of
	// re-running the stages.
	LastInbound string `json:"last_inbound,omitempty"`

	// LastReply is the serialized result of the last completed turn.
	LastReply json.RawMessage `json:"last_reply,omitempty"`

	// Progress holds caller-defined in-flight turn bookkeeping. It is
	// set on mid-turn snapshots and cleared when a turn completes, so
	// its presence marks a turn interrupted between stages.
	Progress json.RawMessage `json:"progress,omitempty"`
}

// New creates an envelope for a conversation. State must already be
// JSON-serialized.
func New(conversationID, stage string, turn int, state []byte) *Envelope {
	return &Envelope{
		Version:        Version,
		ConversationID: conversationID,
		Stage:          stage,
		Turn:           turn,
		UpdatedAt:      time.Now().UTC(),
		State:          state,
	}
}

// Marshal serializes the envelope to JSON.
func (e *Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Unmarshal deserializes an envelope and rejects unknown versions so a
// downgrade never silently misreads a newer snapshot.
func Unmarshal(data []byte) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	if e.Version != Version {
		return nil, fmt.Errorf("unsupported checkpoint version %d", e.Version)
	}
	return &e, nil
}
