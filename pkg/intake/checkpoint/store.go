// Package checkpoint provides durable conversation snapshots so an
// intake consultation survives process restarts and resumes exactly
// where it suspended.
package checkpoint

import (
	"errors"
	"time"
)

// Store persists one envelope per conversation.
// Implementations must be safe for concurrent use.
type Store interface {
	// Save stores the envelope for a conversation, overwriting any
	// previous snapshot. The envelope is the whole truth: a Save
	// after each stage means a crash loses at most the stage in
	// flight, never a committed one.
	Save(conversationID string, data []byte) error

	// Load retrieves the latest envelope for a conversation.
	// Returns ErrNotFound if the conversation has never been saved.
	Load(conversationID string) ([]byte, error)

	// List returns metadata for every stored conversation, most
	// recently updated first. Returns an empty slice when the store
	// is empty.
	List() ([]Info, error)

	// Delete removes a conversation's snapshot.
	// Returns nil if the conversation doesn't exist.
	Delete(conversationID string) error

	// Close releases any resources (connections, files).
	Close() error
}

// Info provides snapshot metadata without loading full state.
type Info struct {
	ConversationID string
	Stage          string
	Turn           int
	UpdatedAt      time.Time
	Size           int64
}

// Sentinel errors for checkpoint operations.
var (
	// ErrNotFound indicates no snapshot exists for the conversation.
	ErrNotFound = errors.New("checkpoint not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("checkpoint store closed")
)
