package screening

import (
	"context"
	"sync"
	"time"
)

// Sender identifies who produced a turn.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Turn is one recorded message.
type Turn struct {
	Sender Sender    `json:"sender"`
	Text   string    `json:"text"`
	At     time.Time `json:"at"`
}

// TurnSink receives every appended turn, e.g. to archive it.
type TurnSink interface {
	Record(ctx context.Context, seq int, turn Turn) error
}

// Transcript is the append-only record of a conversation.
type Transcript struct {
	mu    sync.RWMutex
	turns []Turn
	now   func() time.Time
}

// NewTranscript creates an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{now: time.Now}
}

// Append records a turn and returns it with its timestamp set.
func (t *Transcript) Append(sender Sender, text string) (int, Turn) {
	t.mu.Lock()
	defer t.mu.Unlock()

	turn := Turn{Sender: sender, Text: text, At: t.now().UTC()}
	t.turns = append(t.turns, turn)
	return len(t.turns) - 1, turn
}

// Len returns the number of recorded turns.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.turns)
}

// Entries returns a copy of all turns.
func (t *Transcript) Entries() []Turn {
	return t.Since(0)
}

// Since returns a copy of the turns recorded at position n and later.
func (t *Transcript) Since(n int) []Turn {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if n < 0 {
		n = 0
	}
	if n >= len(t.turns) {
		return []Turn{}
	}
	return append([]Turn(nil), t.turns[n:]...)
}
