// Package cache stores fetched timing chunks so seeks back into already
// played material never hit the network again. Two tiers: an in-memory
// LRU for the hot window around the playhead, and a zstd-compressed disk
// tier that survives restarts.
package cache

import "errors"

var (
	// ErrItemTooLarge is returned when a chunk exceeds a tier's whole
	// capacity.
	ErrItemTooLarge = errors.New("chunk too large for cache")
)

// Stats holds per-tier counters.
type Stats struct {
	Capacity  int64
	Size      int64
	ItemCount int
	Hits      int64
	Misses    int64
	Evictions int64
}

// Config sizes the two tiers. Zero values take defaults.
type Config struct {
	// MemoryCapacity bounds the hot tier, in bytes.
	MemoryCapacity int64
	// DiskCapacity bounds the persistent tier, in bytes. Zero disables
	// the disk tier entirely.
	DiskCapacity int64
	// DiskPath is the directory for the persistent tier.
	DiskPath string
	// CompressionLevel is the zstd level for disk entries; zero stores
	// them uncompressed.
	CompressionLevel int
}

// DefaultConfig returns the default sizing: timing chunks are small, so
// modest caps hold hours of narration.
func DefaultConfig() Config {
	return Config{
		MemoryCapacity:   8 * 1024 * 1024,
		DiskCapacity:     64 * 1024 * 1024,
		CompressionLevel: 3,
	}
}
