package cache

import "github.com/charmbracelet/log"

// Store combines the two tiers behind the Get/Put surface the prefetch
// loader consumes. Disk hits are promoted into memory.
type Store struct {
	memory *Memory
	disk   *Disk
}

// NewStore builds a store from config. With an empty DiskPath or zero
// DiskCapacity the store is memory-only.
func NewStore(cfg Config) (*Store, error) {
	def := DefaultConfig()
	if cfg.MemoryCapacity <= 0 {
		cfg.MemoryCapacity = def.MemoryCapacity
	}

	s := &Store{memory: NewMemory(cfg.MemoryCapacity)}
	if cfg.DiskPath != "" && cfg.DiskCapacity > 0 {
		disk, err := NewDisk(cfg.DiskPath, cfg.DiskCapacity, cfg.CompressionLevel)
		if err != nil {
			return nil, err
		}
		s.disk = disk
	}
	return s, nil
}

// Get checks memory first, then disk.
func (s *Store) Get(key string) ([]byte, bool) {
	if data, ok := s.memory.Get(key); ok {
		return data, true
	}
	if s.disk == nil {
		return nil, false
	}
	data, ok := s.disk.Get(key)
	if !ok {
		return nil, false
	}
	if err := s.memory.Put(key, data); err != nil {
		log.Debug("chunk promotion skipped", "key", key, "err", err)
	}
	return data, true
}

// Put writes to both tiers.
func (s *Store) Put(key string, data []byte) error {
	if err := s.memory.Put(key, data); err != nil {
		return err
	}
	if s.disk != nil {
		return s.disk.Put(key, data)
	}
	return nil
}

// Close releases the disk tier, if any.
func (s *Store) Close() {
	if s.disk != nil {
		s.disk.Close()
	}
}
