package profile

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Memory is an in-memory Manager.
type Memory struct {
	mu       sync.RWMutex
	profiles map[string]Profile
}

// NewMemory returns a Memory holding copies of ps.
func NewMemory(ps ...*Profile) *Memory {
	m := &Memory{profiles: make(map[string]Profile, len(ps))}
	for _, p := range ps {
		m.profiles[p.ID] = *p
	}
	return m
}

func (m *Memory) Get(_ context.Context, agentID string) (*Profile, error) {
	m.mu.RLock()
	p, ok := m.profiles[agentID]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, agentID)
	}
	return &p, nil
}

func (m *Memory) Put(_ context.Context, p *Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	m.profiles[p.ID] = *p
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(_ context.Context, agentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.profiles[agentID]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, agentID)
	}
	delete(m.profiles, agentID)
	return nil
}

func (m *Memory) List(_ context.Context) ([]*Profile, error) {
	m.mu.RLock()
	out := make([]*Profile, 0, len(m.profiles))
	for _, p := range m.profiles {
		out = append(out, &p)
	}
	m.mu.RUnlock()
	slices.SortFunc(out, func(a, b *Profile) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

var _ Manager = (*Memory)(nil)
