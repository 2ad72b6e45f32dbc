// Package sandbox is the in-process API a presentation layer drives: it owns
// the current notes, the displayed artifact and one chat session, and closes
// the loop from an extracted revision back into generation.
package sandbox

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"recruit_sandbox/chat"
	"recruit_sandbox/generator"
)

var ErrNoPendingRevision = errors.New("no pending revision to apply")

// Generator is satisfied by *generator.Agent.
type Generator interface {
	Generate(ctx context.Context, notes string) (generator.Artifact, error)
}

type Sandbox struct {
	agent Generator
	chat  *chat.Session
	log   logrus.FieldLogger

	mu       sync.Mutex
	notes    string
	artifact *generator.Artifact
	chatOpen bool
	// genSeq numbers generate calls; installed is the newest one whose artifact is shown.
	genSeq    uint64
	installed uint64
}

func New(agent Generator, session *chat.Session, log logrus.FieldLogger) (*Sandbox, error) {
	if agent == nil {
		return nil, errors.New("generator is required")
	}
	if session == nil {
		return nil, errors.New("chat session is required")
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Sandbox{agent: agent, chat: session, log: log}, nil
}

// Generate replaces the notes and regenerates. Blank notes are ignored:
// nothing is called and (nil, nil) is returned.
func (s *Sandbox) Generate(ctx context.Context, notes string) (*generator.Artifact, error) {
	if strings.TrimSpace(notes) == "" {
		return nil, nil
	}
	return s.generate(ctx, notes)
}

// SendChat sends a chat message with the current notes as context.
// A pending revision is cleared by the session before anything else happens.
// The chat is marked open only once the session has accepted the message.
func (s *Sandbox) SendChat(ctx context.Context, text string, observe func(string)) (chat.Outcome, error) {
	s.mu.Lock()
	notes := s.notes
	s.mu.Unlock()

	out, err := s.chat.Send(ctx, text, notes, observe)
	if err != nil {
		return out, err
	}
	s.OpenChat()
	return out, nil
}

// ApplyRevision makes the pending revision the new notes and regenerates.
// The candidate is consumed even if generation fails; the error is returned
// exactly as the generator reported it. On success the chat is closed.
func (s *Sandbox) ApplyRevision(ctx context.Context) (*generator.Artifact, error) {
	cand, ok := s.chat.TakeRevision()
	if !ok {
		return nil, ErrNoPendingRevision
	}
	s.log.WithField("notes_len", len(cand.Payload)).Info("applying revised notes")

	art, err := s.generate(ctx, cand.Payload)
	if err != nil {
		return nil, err
	}
	s.CloseChat()
	return art, nil
}

func (s *Sandbox) generate(ctx context.Context, notes string) (*generator.Artifact, error) {
	s.mu.Lock()
	s.notes = notes
	s.genSeq++
	seq := s.genSeq
	s.mu.Unlock()

	art, err := s.agent.Generate(ctx, notes)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if seq > s.installed {
		installed := art.Clone()
		s.artifact = &installed
		s.installed = seq
	} else {
		s.log.WithField("seq", seq).Debug("discarding artifact from superseded generation")
	}
	s.mu.Unlock()

	out := art.Clone()
	return &out, nil
}

func (s *Sandbox) Notes() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notes
}

// Artifact returns a copy of the displayed artifact.
func (s *Sandbox) Artifact() (generator.Artifact, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.artifact == nil {
		return generator.Artifact{}, false
	}
	return s.artifact.Clone(), true
}

func (s *Sandbox) Chat() *chat.Session { return s.chat }

func (s *Sandbox) OpenChat() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chatOpen = true
}

func (s *Sandbox) CloseChat() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chatOpen = false
}

func (s *Sandbox) ChatOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chatOpen
}

// Snapshot is a read model of the whole sandbox.
type Snapshot struct {
	Notes           string                  `json:"notes"`
	Artifact        *generator.Artifact     `json:"artifact,omitempty"`
	ChatOpen        bool                    `json:"chatOpen"`
	ChatState       chat.State              `json:"chatState"`
	LastOutcome     chat.State              `json:"lastOutcome"`
	Turns           []chat.Turn             `json:"turns"`
	PendingRevision *chat.RevisionCandidate `json:"pendingRevision,omitempty"`
}

func (s *Sandbox) Snapshot() Snapshot {
	snap := Snapshot{
		ChatState:   s.chat.State(),
		LastOutcome: s.chat.LastOutcome(),
		Turns:       s.chat.Turns(),
	}
	if c, ok := s.chat.PendingRevision(); ok {
		snap.PendingRevision = &c
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	snap.Notes = s.notes
	snap.ChatOpen = s.chatOpen
	if s.artifact != nil {
		a := s.artifact.Clone()
		snap.Artifact = &a
	}
	return snap
}
