package chat

import (
	"sync"
	"time"
)

// Role of a chat turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in a chat.
type Turn struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
	// Streaming marks the in-progress assistant turn in a snapshot.
	Streaming bool `json:"streaming,omitempty"`
}

// TurnLog is an append-only list of committed turns plus at most one
// in-progress assistant turn. The zero value is ready to use.
type TurnLog struct {
	mu     sync.Mutex
	turns  []Turn
	live   *Turn
	liveID uint64
	nextID uint64
}

// AppendUser commits a user turn. If an assistant turn is still live it is
// committed first so chronological order holds.
func (l *TurnLog) AppendUser(text string) Turn {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.commitLiveLocked()
	t := Turn{Role: RoleUser, Text: text, CreatedAt: time.Now()}
	l.turns = append(l.turns, t)
	return t
}

// Begin opens an empty assistant turn and returns the id that owns it.
func (l *TurnLog) Begin() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.commitLiveLocked()
	l.nextID++
	l.liveID = l.nextID
	l.live = &Turn{Role: RoleAssistant, CreatedAt: time.Now()}
	return l.liveID
}

// Update replaces the live turn's text. Stale ids are ignored and report false.
func (l *TurnLog) Update(id uint64, text string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.live == nil || id != l.liveID {
		return false
	}
	l.live.Text = text
	return true
}

// Commit freezes the live turn with its final text.
func (l *TurnLog) Commit(id uint64, text string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.live == nil || id != l.liveID {
		return false
	}
	l.live.Text = text
	l.commitLiveLocked()
	return true
}

func (l *TurnLog) commitLiveLocked() {
	if l.live == nil {
		return
	}
	l.turns = append(l.turns, *l.live)
	l.live = nil
	l.liveID = 0
}

// Turns returns a copy of every turn, the live one last.
func (l *TurnLog) Turns() []Turn {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Turn, len(l.turns), len(l.turns)+1)
	copy(out, l.turns)
	if l.live != nil {
		t := *l.live
		t.Streaming = true
		out = append(out, t)
	}
	return out
}

// History returns a copy of the committed turns only.
func (l *TurnLog) History() []Turn {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Turn, len(l.turns))
	copy(out, l.turns)
	return out
}

// Len counts committed turns plus the live one.
func (l *TurnLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := len(l.turns)
	if l.live != nil {
		n++
	}
	return n
}
