package kv

import (
	"context"
	"iter"
	"slices"
	"strings"
	"sync"
	"time"
)

// Memory is an in-memory Store. It is safe for concurrent use.
type Memory struct {
	mu   sync.RWMutex
	data map[string]memValue
	opts *Options
	now  func() time.Time
}

type memValue struct {
	val     []byte
	expires time.Time
}

func (v memValue) live(now time.Time) bool {
	return v.expires.IsZero() || now.Before(v.expires)
}

// NewMemory creates a new in-memory Store.
// Pass nil for default options.
func NewMemory(opts *Options) *Memory {
	return &Memory{
		data: make(map[string]memValue),
		opts: opts,
		now:  time.Now,
	}
}

func (m *Memory) wrap(value []byte) memValue {
	v := memValue{val: slices.Clone(value)}
	if ttl := m.opts.ttl(); ttl > 0 {
		v.expires = m.now().Add(ttl)
	}
	return v
}

func (m *Memory) Get(_ context.Context, key Key) ([]byte, error) {
	k := string(m.opts.encode(key))
	m.mu.RLock()
	v, ok := m.data[k]
	m.mu.RUnlock()
	if !ok || !v.live(m.now()) {
		return nil, ErrNotFound
	}
	return slices.Clone(v.val), nil
}

func (m *Memory) Set(_ context.Context, key Key, value []byte) error {
	k := string(m.opts.encode(key))
	v := m.wrap(value)
	m.mu.Lock()
	m.data[k] = v
	m.mu.Unlock()
	return nil
}

func (m *Memory) Update(_ context.Context, key Key, fn UpdateFunc) error {
	k := string(m.opts.encode(key))
	m.mu.Lock()
	defer m.mu.Unlock()

	old, ok := m.data[k]
	if ok && !old.live(m.now()) {
		ok = false
	}
	var cur []byte
	if ok {
		cur = slices.Clone(old.val)
	}
	next, err := fn(cur, ok)
	if err != nil {
		return err
	}
	m.data[k] = m.wrap(next)
	return nil
}

func (m *Memory) Delete(_ context.Context, key Key) error {
	k := string(m.opts.encode(key))
	m.mu.Lock()
	delete(m.data, k)
	m.mu.Unlock()
	return nil
}

func (m *Memory) List(_ context.Context, prefix Key) iter.Seq2[Entry, error] {
	p := string(m.opts.prefix(prefix))
	now := m.now()

	m.mu.RLock()
	type pair struct {
		key string
		val []byte
	}
	var matches []pair
	for k, v := range m.data {
		if strings.HasPrefix(k, p) && v.live(now) {
			matches = append(matches, pair{k, slices.Clone(v.val)})
		}
	}
	m.mu.RUnlock()

	slices.SortFunc(matches, func(a, b pair) int { return strings.Compare(a.key, b.key) })

	return func(yield func(Entry, error) bool) {
		for _, kv := range matches {
			entry := Entry{Key: m.opts.decode([]byte(kv.key)), Value: kv.val}
			if !yield(entry, nil) {
				return
			}
		}
	}
}

func (m *Memory) Close() error {
	return nil
}
