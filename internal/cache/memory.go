package cache

import (
	"container/list"
	"sync"
)

// Memory is the hot tier: an LRU over raw chunk bytes.
type Memory struct {
	capacity int64
	size     int64

	items    map[string]*list.Element
	eviction *list.List

	mu    sync.Mutex
	stats Stats
}

type memoryEntry struct {
	key   string
	value []byte
	size  int64
}

// NewMemory creates a memory tier with the given byte capacity.
func NewMemory(capacity int64) *Memory {
	return &Memory{
		capacity: capacity,
		items:    make(map[string]*list.Element),
		eviction: list.New(),
		stats:    Stats{Capacity: capacity},
	}
}

// Get returns a chunk and marks it most recently used.
func (m *Memory) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	elem, ok := m.items[key]
	if !ok {
		m.stats.Misses++
		return nil, false
	}
	m.eviction.MoveToFront(elem)
	m.stats.Hits++
	return elem.Value.(*memoryEntry).value, true
}

// Put stores a chunk, evicting least recently used entries to make room.
func (m *Memory) Put(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	size := int64(len(value))
	if size > m.capacity {
		return ErrItemTooLarge
	}

	if elem, ok := m.items[key]; ok {
		entry := elem.Value.(*memoryEntry)
		m.size += size - entry.size
		entry.value = value
		entry.size = size
		m.eviction.MoveToFront(elem)
		// A grown entry can push the tier over capacity.
		for m.size > m.capacity && m.eviction.Len() > 1 {
			m.evictOldest()
		}
		return nil
	}

	for m.size+size > m.capacity && m.eviction.Len() > 0 {
		m.evictOldest()
	}

	elem := m.eviction.PushFront(&memoryEntry{key: key, value: value, size: size})
	m.items[key] = elem
	m.size += size
	return nil
}

// Delete removes a chunk. Missing keys are fine.
func (m *Memory) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if elem, ok := m.items[key]; ok {
		m.remove(elem)
	}
}

// Stats returns a snapshot of the tier's counters.
func (m *Memory) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.stats
	s.Size = m.size
	s.ItemCount = len(m.items)
	return s
}

func (m *Memory) evictOldest() {
	if elem := m.eviction.Back(); elem != nil {
		m.remove(elem)
		m.stats.Evictions++
	}
}

func (m *Memory) remove(elem *list.Element) {
	entry := elem.Value.(*memoryEntry)
	m.eviction.Remove(elem)
	delete(m.items, entry.key)
	m.size -= entry.size
}
