package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/aaeenbot/constitution-agent/internal/agent"
)

// MemoryStore is an in-process CheckpointStore for tests and single-node
// setups without Redis. States are stored as JSON so loads never alias the
// caller's copy.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string][]byte)}
}

func (m *MemoryStore) Save(ctx context.Context, s *agent.State) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal conversation %s: %w", s.ConversationID, err)
	}
	m.mu.Lock()
	m.states[s.ConversationID] = data
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Load(ctx context.Context, conversationID string) (*agent.State, error) {
	m.mu.RLock()
	data, ok := m.states[conversationID]
	m.mu.RUnlock()
	if !ok {
		return nil, agent.ErrConversationNotFound
	}

	var s agent.State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshal conversation %s: %w", conversationID, err)
	}
	return &s, nil
}
