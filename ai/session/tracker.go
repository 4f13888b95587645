// Package session tracks per-mode conversation state, most importantly
// whether the expensive schema metadata has already been sent to a backend
// in the current session.
package session

import (
	"sync"

	"github.com/google/uuid"
)

// Mode is a named dataset domain with its own schema and query vocabulary.
type Mode string

const (
	ModeExpenses    Mode = "expenses"
	ModeInvestments Mode = "investments"
)

// Valid reports whether the mode is one of the closed set.
func (m Mode) Valid() bool {
	return m == ModeExpenses || m == ModeInvestments
}

// Tracker holds the single live session. Schema metadata is expensive in
// tokens and latency but stable per mode, so it is sent once per session
// rather than once per question.
//
// Concurrent mode switches are last-writer-wins; callers are expected to be
// single-flight.
type Tracker struct {
	mu             sync.Mutex
	mode           Mode
	metadataSent   bool
	conversationID string
}

// NewTracker creates an empty tracker. The first StartSession establishes
// the initial session.
func NewTracker() *Tracker {
	return &Tracker{}
}

// StartSession is a no-op when the mode is unchanged. A mode change resets
// metadataSent and assigns a fresh conversation id.
func (t *Tracker) StartSession(mode Mode) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.mode == mode && t.conversationID != "" {
		return
	}
	t.mode = mode
	t.metadataSent = false
	t.conversationID = uuid.NewString()
}

// NeedsMetadata reports whether schema metadata must accompany the next
// prompt: true when the mode differs from the live session or metadata has
// not been sent yet.
func (t *Tracker) NeedsMetadata(mode Mode) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mode != mode || !t.metadataSent
}

// MarkMetadataSent records the metadata transmission. Idempotent; the flag
// only ever moves false to true within a session.
func (t *Tracker) MarkMetadataSent() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.metadataSent = true
}

// Mode returns the live session's mode.
func (t *Tracker) Mode() Mode {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mode
}

// ConversationID returns the live session's conversation id.
func (t *Tracker) ConversationID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conversationID
}
