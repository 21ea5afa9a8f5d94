// Package contextstore holds per-conversation history: the last N completed
// (query, answer) exchanges keyed by conversation id.
package contextstore

import (
	"sync"

	"github.com/aquasense/orchestrator/internal/domain"
)

type conversation struct {
	mu    sync.Mutex
	turns []domain.ConversationTurn
}

// Store is the process-wide conversation context store. Appends serialize
// per conversation key; reads return a snapshot. An unknown conversation id
// simply starts with an empty context.
type Store struct {
	mu            sync.Mutex
	conversations map[string]*conversation
	window        int
}

// New creates a store bounded to window turns per conversation.
func New(window int) *Store {
	if window <= 0 {
		window = 10
	}
	return &Store{
		conversations: make(map[string]*conversation),
		window:        window,
	}
}

func (s *Store) conversationFor(id string) *conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[id]
	if !ok {
		c = &conversation{}
		s.conversations[id] = c
	}
	return c
}

// Tail returns a snapshot of the conversation's stored turns, oldest first.
// Unknown ids yield an empty slice.
func (s *Store) Tail(id string) []domain.ConversationTurn {
	if id == "" {
		return nil
	}
	c := s.conversationFor(id)

	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.ConversationTurn, len(c.turns))
	copy(out, c.turns)
	return out
}

// Append records a completed turn, evicting the oldest entry beyond the
// window. Appends for the same conversation are serialized by a per-key
// lock; appends for different conversations do not contend.
func (s *Store) Append(id string, turn domain.ConversationTurn) {
	if id == "" {
		return
	}
	c := s.conversationFor(id)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = append(c.turns, turn)
	if len(c.turns) > s.window {
		c.turns = c.turns[len(c.turns)-s.window:]
	}
}

// Len returns the number of stored turns for a conversation.
func (s *Store) Len(id string) int {
	s.mu.Lock()
	c, ok := s.conversations[id]
	s.mu.Unlock()
	if !ok {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.turns)
}

// Clear drops all conversations. Called on shutdown.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations = make(map[string]*conversation)
}
