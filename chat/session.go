package chat

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"recruit_sandbox/generator"
)

// FallbackReply replaces the assistant turn when its stream fails.
const FallbackReply = "I'm sorry, I encountered an error. Please try again."

var (
	ErrEmptyMessage     = errors.New("chat message is empty")
	ErrExchangeInFlight = errors.New("a chat exchange is already in flight")
)

// State of the session's current exchange.
type State int

const (
	Idle State = iota
	Sending
	Streaming
	Completed
	Failed
)

var stateNames = [...]string{"idle", "sending", "streaming", "completed", "failed"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *State) UnmarshalText(b []byte) error {
	for i, name := range stateNames {
		if name == string(b) {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("unknown chat state %q", b)
}

// Completed and Failed end an exchange; both fall back to Idle.
var transitions = map[State][]State{
	Idle:      {Sending},
	Sending:   {Streaming, Failed},
	Streaming: {Completed, Failed},
	Completed: {Idle},
	Failed:    {Idle},
}

// RevisionCandidate is an extracted, not yet applied, replacement for the notes.
type RevisionCandidate struct {
	Payload string `json:"payload"`
}

// Outcome describes a finished exchange.
type Outcome struct {
	State    State
	Reply    string
	Revision *RevisionCandidate
}

// Streamer is the streaming half of generator.LLMClient.
type Streamer interface {
	Stream(ctx context.Context, p generator.Prompt) iter.Seq2[string, error]
}

// Option configures a Session.
type Option func(*Session)

func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

func WithThinkingBudget(n int) Option {
	return func(s *Session) { s.thinkingBudget = n }
}

// Session 持有一次聊天的轮次记录和待应用的修订。
// At most one exchange is in flight at a time.
type Session struct {
	llm            Streamer
	log            logrus.FieldLogger
	thinkingBudget int
	turns          TurnLog

	mu      sync.Mutex
	state   State
	last    State
	pending *RevisionCandidate
}

func NewSession(llm Streamer, opts ...Option) (*Session, error) {
	if llm == nil {
		return nil, errors.New("llm client is required")
	}
	s := &Session{
		llm:            llm,
		log:            logrus.StandardLogger(),
		thinkingBudget: DefaultThinkingBudget,
		state:          Idle,
		last:           Idle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Send runs one exchange. observe, if set, receives the assistant text
// received so far after every delta. Stream failures are not returned: the
// assistant turn becomes FallbackReply and the Outcome reports Failed.
// Only precondition violations produce an error.
func (s *Session) Send(ctx context.Context, userText, notes string, observe func(text string)) (Outcome, error) {
	if strings.TrimSpace(userText) == "" {
		return Outcome{}, ErrEmptyMessage
	}

	s.mu.Lock()
	if s.state != Idle {
		s.mu.Unlock()
		return Outcome{}, ErrExchangeInFlight
	}
	if err := s.transitionLocked(Sending); err != nil {
		s.mu.Unlock()
		return Outcome{}, err
	}
	s.pending = nil
	history := s.turns.History()
	s.turns.AppendUser(userText)
	s.mu.Unlock()

	prompt := BuildChatPrompt(notes, history, userText)
	prompt.ThinkingBudget = s.thinkingBudget

	id := s.turns.Begin()
	if err := s.transition(Streaming); err != nil {
		return s.fail(id, err), nil
	}

	var acc strings.Builder
	for delta, err := range s.llm.Stream(ctx, prompt) {
		if err == nil {
			err = ctx.Err()
		}
		if err != nil {
			return s.fail(id, err), nil
		}
		acc.WriteString(delta)
		text := acc.String()
		s.turns.Update(id, text)
		if observe != nil {
			observe(text)
		}
	}
	if err := ctx.Err(); err != nil {
		return s.fail(id, err), nil
	}

	ex := Extract(acc.String())
	s.turns.Commit(id, ex.CleanText)

	s.mu.Lock()
	defer s.mu.Unlock()
	out := Outcome{State: Completed, Reply: ex.CleanText}
	if ex.Found && ex.Payload != "" {
		s.pending = &RevisionCandidate{Payload: ex.Payload}
		rev := *s.pending
		out.Revision = &rev
	}
	s.finishLocked(Completed)
	return out, nil
}

func (s *Session) fail(id uint64, err error) Outcome {
	s.log.WithError(err).Warn("chat stream failed")
	s.turns.Commit(id, FallbackReply)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.finishLocked(Failed)
	return Outcome{State: Failed, Reply: FallbackReply}
}

func (s *Session) finishLocked(end State) {
	if err := s.transitionLocked(end); err != nil {
		s.log.WithError(err).Error("chat state machine out of sync")
	}
	s.last = end
	if err := s.transitionLocked(Idle); err != nil {
		s.state = Idle
	}
}

func (s *Session) transition(to State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transitionLocked(to)
}

func (s *Session) transitionLocked(to State) error {
	for _, next := range transitions[s.state] {
		if next == to {
			s.state = to
			return nil
		}
	}
	return fmt.Errorf("chat: illegal transition %s -> %s", s.state, to)
}

// State reports the current state; Idle between exchanges.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastOutcome reports how the most recent exchange ended, Idle if none has.
func (s *Session) LastOutcome() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// PendingRevision returns the live candidate without clearing it.
func (s *Session) PendingRevision() (RevisionCandidate, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return RevisionCandidate{}, false
	}
	return *s.pending, true
}

// TakeRevision returns and clears the live candidate.
func (s *Session) TakeRevision() (RevisionCandidate, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return RevisionCandidate{}, false
	}
	c := *s.pending
	s.pending = nil
	return c, true
}

func (s *Session) Turns() []Turn { return s.turns.Turns() }

func (s *Session) History() []Turn { return s.turns.History() }
