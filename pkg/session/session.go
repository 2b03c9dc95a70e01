package session

import (
	"errors"
	"sync"
	"time"

	"bioask/pkg/ai"
	"bioask/pkg/answer"

	"github.com/google/uuid"
)

// ErrSessionBusy is returned when a question arrives while another turn is running.
var ErrSessionBusy = errors.New("session is busy answering another question")

// Settings are the per-session choices made in the sidebar.
type Settings struct {
	Model        string          `json:"model"`
	ExplainLevel ai.ExplainLevel `json:"explain_level"`
}

// Session holds one conversation: its settings, ordered history and the most
// recent parsed answer. All methods are safe for concurrent use.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu         sync.Mutex
	settings   Settings
	history    []ai.Message
	lastAnswer *answer.StructuredAnswer
	busy       bool
}

// New creates a session with a fresh ID.
func New(settings Settings) *Session {
	if settings.ExplainLevel == "" {
		settings.ExplainLevel = ai.DefaultExplainLevel
	}
	return &Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
		settings:  settings,
	}
}

// AppendMessage adds a message to the end of the history.
func (s *Session) AppendMessage(msg ai.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, msg)
}

// History returns a copy of the conversation in insertion order.
func (s *Session) History() []ai.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ai.Message, len(s.history))
	copy(out, s.history)
	return out
}

// Len returns the number of history entries.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}

// SetLastAnswer replaces the most recent structured answer.
func (s *Session) SetLastAnswer(a answer.StructuredAnswer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.Topics = append([]string{}, a.Topics...)
	s.lastAnswer = &a
}

// LastAnswer returns the most recent structured answer, if any turn completed.
func (s *Session) LastAnswer() (answer.StructuredAnswer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastAnswer == nil {
		return answer.StructuredAnswer{}, false
	}
	a := *s.lastAnswer
	a.Topics = append([]string{}, a.Topics...)
	return a, true
}

// Settings returns the current settings.
func (s *Session) Settings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// SetModel changes the model used for subsequent turns.
func (s *Session) SetModel(model string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings.Model = model
}

// SetExplainLevel changes the audience used for subsequent turns.
func (s *Session) SetExplainLevel(level ai.ExplainLevel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings.ExplainLevel = level
}

// Reset clears the conversation and the last answer. Settings are kept.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
	s.lastAnswer = nil
}

// TryBegin marks the session busy. It returns ErrSessionBusy if a turn is
// already running; otherwise the caller must call End.
func (s *Session) TryBegin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return ErrSessionBusy
	}
	s.busy = true
	return nil
}

// End releases the session after TryBegin.
func (s *Session) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
}

// Busy reports whether a turn is running.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

// Snapshot is a serializable view of a session.
type Snapshot struct {
	ID         string                   `json:"id"`
	Settings   Settings                 `json:"settings"`
	History    []ai.Message             `json:"history"`
	LastAnswer *answer.StructuredAnswer `json:"last_answer,omitempty"`
	Busy       bool                     `json:"busy"`
}

// Snapshot returns a consistent copy of the session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		ID:       s.ID,
		Settings: s.settings,
		History:  append([]ai.Message{}, s.history...),
		Busy:     s.busy,
	}
	if s.lastAnswer != nil {
		a := *s.lastAnswer
		a.Topics = append([]string{}, a.Topics...)
		snap.LastAnswer = &a
	}
	return snap
}
