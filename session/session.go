// Package session layers conversational state over the adaptive pipeline.
// A session serializes turns, keeps the user-visible transcript, and can
// persist itself through a pluggable store.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sweetpotato0/adaptive-rag/adaptive"
	"github.com/sweetpotato0/adaptive-rag/message"
	"github.com/sweetpotato0/adaptive-rag/pkg/logging"
)

// State represents the lifecycle state of a session.
type State string

const (
	StateActive State = "active"
	StateClosed State = "closed"
)

// Engine is the part of the pipeline a session drives.
type Engine interface {
	Run(ctx context.Context, question string) (*adaptive.Result, error)
}

// Store persists session records.
type Store interface {
	Save(ctx context.Context, record *Record) error
	Load(ctx context.Context, id string) (*Record, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]string, error)
}

const defaultExhaustedMessage = "I could not produce a satisfactory answer to this question. Please rephrase it or provide more context."

// Session is a single-user conversation over one engine. Concurrent Run
// calls are serialized; the pipeline handles one turn at a time.
type Session struct {
	mu sync.RWMutex

	id        string
	state     State
	createdAt time.Time
	updatedAt time.Time

	engine    Engine
	store     Store
	exhausted string
	messages  []*message.Message

	logger *slog.Logger
}

// Option customises a session.
type Option func(*Session)

// WithID sets an explicit session ID instead of a generated one.
func WithID(id string) Option {
	return func(s *Session) {
		if id != "" {
			s.id = id
		}
	}
}

// WithStore enables persistence; the session is saved after every turn.
func WithStore(store Store) Option {
	return func(s *Session) {
		s.store = store
	}
}

// WithExhaustedMessage customises the transcript entry recorded when the
// pipeline gives up on a question.
func WithExhaustedMessage(msg string) Option {
	return func(s *Session) {
		if msg != "" {
			s.exhausted = msg
		}
	}
}

// New creates an active session over the given engine.
func New(engine Engine, opts ...Option) (*Session, error) {
	if engine == nil {
		return nil, fmt.Errorf("session engine cannot be nil")
	}

	now := time.Now()
	s := &Session{
		id:        fmt.Sprintf("session-%d", now.UnixNano()),
		state:     StateActive,
		createdAt: now,
		updatedAt: now,
		engine:    engine,
		exhausted: defaultExhaustedMessage,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.WithComponent("session").With("session_id", s.id)
	return s, nil
}

// Restore rebuilds a session from a persisted record. The engine is not part
// of the record and must be supplied again.
func Restore(engine Engine, record *Record, opts ...Option) (*Session, error) {
	if record == nil {
		return nil, fmt.Errorf("session record cannot be nil")
	}
	s, err := New(engine, opts...)
	if err != nil {
		return nil, err
	}
	s.id = record.ID
	s.state = record.State
	s.createdAt = record.CreatedAt
	s.updatedAt = record.UpdatedAt
	s.messages = message.CloneMessages(record.Messages)
	s.logger = logging.WithComponent("session").With("session_id", s.id)
	return s, nil
}

// Run executes one turn: the question and the resulting reply are appended
// to the transcript. Infrastructure failures leave the transcript untouched;
// an exhausted pipeline records the configured fallback reply.
func (s *Session) Run(ctx context.Context, input string) (*adaptive.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateActive {
		return nil, fmt.Errorf("session %s is not active (state: %s)", s.id, s.state)
	}

	result, err := s.engine.Run(ctx, input)
	if err != nil {
		return nil, err
	}

	reply := result.Answer
	if result.Status == adaptive.StatusExhausted {
		reply = s.exhausted
	}

	// The transcript always shows the question as the user asked it,
	// regardless of any internal rewriting.
	s.messages = append(s.messages,
		message.NewMessage(message.RoleUser, result.Query),
		message.NewMessage(message.RoleAssistant, reply),
	)
	s.updatedAt = time.Now()

	if s.store != nil {
		if err := s.store.Save(ctx, s.snapshotLocked()); err != nil {
			// Persistence is best effort; the turn already succeeded.
			s.logger.Warn("failed to persist session", "error", err)
		}
	}
	return result, nil
}

// Messages returns a copy of the transcript.
func (s *Session) Messages() []*message.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return message.CloneMessages(s.messages)
}

// ID returns the session ID.
func (s *Session) ID() string {
	return s.id
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Close marks the session closed; further Run calls fail.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return fmt.Errorf("session %s already closed", s.id)
	}
	s.state = StateClosed
	s.updatedAt = time.Now()
	return nil
}

// Snapshot returns a serializable record of the session.
func (s *Session) Snapshot() *Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() *Record {
	return &Record{
		ID:        s.id,
		State:     s.state,
		CreatedAt: s.createdAt,
		UpdatedAt: s.updatedAt,
		Messages:  message.CloneMessages(s.messages),
	}
}
