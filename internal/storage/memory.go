package storage

import (
	"context"
	"sync"
)

// Memory is a map-backed Store. It serves tests and the --memory mode.
type Memory struct {
	mu     sync.RWMutex
	data   map[Collection]map[string]string
	closed bool
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	m := &Memory{data: map[Collection]map[string]string{}}
	for _, c := range Collections {
		m.data[c] = map[string]string{}
	}
	return m
}

func (m *Memory) Get(ctx context.Context, c Collection, id string) (Record, bool, error) {
	if err := m.check(ctx, c); err != nil {
		return Record{}, false, opError("get", c, id, err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[c][id]
	if !ok {
		return Record{}, false, nil
	}
	return Record{ID: id, Value: v}, true, nil
}

func (m *Memory) Put(ctx context.Context, c Collection, rec Record) error {
	if err := m.check(ctx, c); err != nil {
		return opError("put", c, rec.ID, err)
	}
	m.mu.Lock()
	m.data[c][rec.ID] = rec.Value
	m.mu.Unlock()
	return nil
}

func (m *Memory) GetAll(ctx context.Context, c Collection) ([]Record, error) {
	if err := m.check(ctx, c); err != nil {
		return nil, opError("getall", c, "", err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Record, 0, len(m.data[c]))
	for id, v := range m.data[c] {
		out = append(out, Record{ID: id, Value: v})
	}
	return out, nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

// Len reports how many records c holds.
func (m *Memory) Len(c Collection) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data[c])
}

func (m *Memory) check(ctx context.Context, c Collection) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !c.valid() {
		return ErrUnknownCollection
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrClosed
	}
	return nil
}
