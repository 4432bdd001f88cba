package cache

import (
	"context"
	"sync"
	"time"
)

// entry is a node of the insertion-ordered list; head is the newest.
type entry struct {
	key     string
	value   []byte
	expires time.Time
	prev    *entry
	next    *entry
}

func (e *entry) reset() {
	*e = entry{}
}

// Memory is a bounded in-process cache. When full, the oldest inserted entry
// is evicted. Entries past their TTL are dropped lazily on access.
type Memory struct {
	mu      sync.Mutex
	items   map[string]*entry
	head    *entry
	tail    *entry
	cfg     settings
	entries sync.Pool
}

// NewMemory creates an in-memory cache.
func NewMemory(opts ...Option) *Memory {
	cfg := defaults()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Memory{
		items:   make(map[string]*entry),
		cfg:     cfg,
		entries: sync.Pool{New: func() any { return &entry{} }},
	}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.items[key]
	if !ok {
		return nil, false, nil
	}
	if m.expired(e) {
		m.remove(e)
		return nil, false, nil
	}
	return e.value, true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if old, ok := m.items[key]; ok {
		m.remove(old)
	}
	if m.cfg.maxSize > 0 && len(m.items) >= m.cfg.maxSize {
		m.remove(m.tail)
	}

	e := m.entries.Get().(*entry)
	e.key = key
	e.value = value
	if m.cfg.ttl > 0 {
		e.expires = m.cfg.now().Add(m.cfg.ttl)
	}
	e.next = m.head
	if m.head != nil {
		m.head.prev = e
	}
	m.head = e
	if m.tail == nil {
		m.tail = e
	}
	m.items[key] = e
	return nil
}

func (m *Memory) Purge(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for e := m.head; e != nil; {
		next := e.next
		e.reset()
		m.entries.Put(e)
		e = next
	}
	m.items = make(map[string]*entry)
	m.head, m.tail = nil, nil
	return nil
}

func (m *Memory) Size(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.items)), nil
}

func (m *Memory) expired(e *entry) bool {
	return !e.expires.IsZero() && !m.cfg.now().Before(e.expires)
}

// remove unlinks e and returns it to the pool. Must be called with m.mu held.
func (m *Memory) remove(e *entry) {
	if e == nil {
		return
	}
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		m.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		m.tail = e.prev
	}
	delete(m.items, e.key)
	e.reset()
	m.entries.Put(e)
}
