// Package convo holds per-conversation message history as in-process
// checkpoints keyed by conversation ID. Durability is process-lifetime only.
package convo

import (
	"sync"

	"github.com/syncwise-ai/syncwise/pkg/domain"
)

// Store is a concurrency-safe keyed checkpoint of conversation histories.
// Operations on one conversation ID never observe another's state.
type Store struct {
	mu       sync.RWMutex
	messages map[string][]domain.Message
}

// NewStore creates an empty conversation store.
func NewStore() *Store {
	return &Store{messages: make(map[string][]domain.Message)}
}

// Append adds messages to the end of a conversation's history.
func (s *Store) Append(conversationID string, msgs ...domain.Message) {
	if len(msgs) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[conversationID] = append(s.messages[conversationID], msgs...)
}

// Load returns a copy of the conversation's ordered message history.
func (s *Store) Load(conversationID string) []domain.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Message(nil), s.messages[conversationID]...)
}

// Len returns the number of messages checkpointed for a conversation.
func (s *Store) Len(conversationID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages[conversationID])
}

// Reset discards a conversation's history.
func (s *Store) Reset(conversationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.messages, conversationID)
}
