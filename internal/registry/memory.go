// Package registry stores conversation state between turns. Two backends
// exist: an in-process map for development and tests, and Redis for
// deployments where the engine runs behind more than one instance.
package registry

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	commonerrors "loanflow/internal/common/errors"
	"loanflow/internal/models"
)

// MemoryRegistry keeps conversations in a process-local map. States are
// cloned on the way in and out, so callers can mutate what they hold without
// racing other turns.
type MemoryRegistry struct {
	mu     sync.RWMutex
	states map[string][]byte
	now    func() time.Time
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		states: make(map[string][]byte),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (r *MemoryRegistry) Create(_ context.Context) (*models.ConversationState, error) {
	state := models.NewConversationState(uuid.New().String(), r.now())
	data, err := json.Marshal(state)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.states[state.ID] = data
	r.mu.Unlock()
	return state, nil
}

func (r *MemoryRegistry) Get(_ context.Context, id string) (*models.ConversationState, error) {
	r.mu.RLock()
	data, ok := r.states[id]
	r.mu.RUnlock()
	if !ok {
		return nil, commonerrors.NewConversationNotFoundError(id)
	}
	var state models.ConversationState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func (r *MemoryRegistry) Put(_ context.Context, state *models.ConversationState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.states[state.ID] = data
	r.mu.Unlock()
	return nil
}

// Len reports the number of stored conversations. Used by stats endpoints
// and tests.
func (r *MemoryRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.states)
}
