package arrowclient

import (
	"context"
	"fmt"
	"sync"
)

// MockClient is an in-memory Client implementation for testing
type MockClient struct {
	mu        sync.RWMutex
	connected bool
	batches   map[string]*ContextBatch
}

// NewMockClient creates a new mock client
func NewMockClient() *MockClient {
	return &MockClient{
		batches: make(map[string]*ContextBatch),
	}
}

// Connect simulates connection
func (m *MockClient) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = true
	return nil
}

// Close simulates disconnection
func (m *MockClient) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = false
	return nil
}

// PutContexts stores the batch in memory, keyed by sequence
func (m *MockClient) PutContexts(ctx context.Context, batch *ContextBatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return fmt.Errorf("client not connected")
	}
	if batch == nil || len(batch.Vectors) == 0 {
		return fmt.Errorf("no vectors provided")
	}
	m.batches[batch.Sequence] = batch
	return nil
}

// Get returns a stored batch by sequence key
func (m *MockClient) Get(sequence string) (*ContextBatch, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.batches[sequence]
	return b, ok
}

// Count returns the number of stored batches
func (m *MockClient) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.batches)
}
