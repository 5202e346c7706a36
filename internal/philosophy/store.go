// Package philosophy stores long-lived preference facts keyed by topic.
package philosophy

import (
	"sync"

	"github.com/roach88/arbiter/internal/ir"
)

// Store is a nested topic -> fact key -> value mapping.
// Writes are last-write-wins; nothing is ever deleted.
//
// Thread-safety: all methods are safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	topics map[ir.Topic]map[string]ir.FactValue
}

// New creates an empty store.
func New() *Store {
	return &Store{topics: make(map[ir.Topic]map[string]ir.FactValue)}
}

// Get returns a copy of the facts for a topic.
// Never fails: a topic without facts (or an unknown topic) yields an empty map.
func (s *Store) Get(topic ir.Topic) map[string]ir.FactValue {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]ir.FactValue, len(s.topics[topic]))
	for k, v := range s.topics[topic] {
		out[k] = v.Clone()
	}
	return out
}

// Record upserts a fact. An existing key is overwritten silently.
func (s *Store) Record(topic ir.Topic, key string, value ir.FactValue) error {
	if !topic.Valid() {
		return ir.NewInvalidInput("record", "unknown philosophy topic \""+string(topic)+"\"")
	}
	if key == "" {
		return ir.NewInvalidInput("record", "fact key must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	facts, ok := s.topics[topic]
	if !ok {
		facts = make(map[string]ir.FactValue)
		s.topics[topic] = facts
	}
	facts[key] = value.Clone()
	return nil
}

// Topics returns a deep copy of every non-empty topic.
func (s *Store) Topics() map[ir.Topic]map[string]ir.FactValue {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[ir.Topic]map[string]ir.FactValue, len(s.topics))
	for topic, facts := range s.topics {
		if len(facts) == 0 {
			continue
		}
		copied := make(map[string]ir.FactValue, len(facts))
		for k, v := range facts {
			copied[k] = v.Clone()
		}
		out[topic] = copied
	}
	return out
}

// Populated returns the topics holding at least one fact, in declaration order.
func (s *Store) Populated() []ir.Topic {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []ir.Topic
	for _, topic := range ir.Topics {
		if len(s.topics[topic]) > 0 {
			out = append(out, topic)
		}
	}
	return out
}
