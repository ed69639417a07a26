package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

const diskExt = ".chunk"

// Disk is the persistent tier. Chunks live one per file under hashed
// names; the index is rebuilt by scanning the directory at open time, so
// there is no sidecar metadata to corrupt.
type Disk struct {
	basePath string
	capacity int64
	size     int64

	encoder *zstd.Encoder
	decoder *zstd.Decoder

	index map[string]*diskEntry

	mu    sync.Mutex
	stats Stats
}

type diskEntry struct {
	path    string
	size    int64
	modTime time.Time
}

// NewDisk opens (creating if needed) a disk tier rooted at basePath.
// compressionLevel > 0 enables zstd; existing entries written either way
// are detected by magic bytes when read back.
func NewDisk(basePath string, capacity int64, compressionLevel int) (*Disk, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	d := &Disk{
		basePath: basePath,
		capacity: capacity,
		index:    make(map[string]*diskEntry),
		stats:    Stats{Capacity: capacity},
	}

	if compressionLevel > 0 {
		enc, err := zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(compressionLevel)))
		if err != nil {
			return nil, fmt.Errorf("create zstd encoder: %w", err)
		}
		d.encoder = enc
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	d.decoder = dec

	d.scan()
	return d, nil
}

// Get reads a chunk back, decompressing when the stored bytes carry the
// zstd frame header. A vanished or unreadable file just counts as a miss.
func (d *Disk) Get(key string) ([]byte, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	entry, ok := d.index[keyHash(key)]
	if !ok {
		d.stats.Misses++
		return nil, false
	}
	data, err := os.ReadFile(entry.path)
	if err != nil {
		d.dropLocked(keyHash(key), entry)
		d.stats.Misses++
		return nil, false
	}
	if isZstd(data) {
		out, err := d.decoder.DecodeAll(data, nil)
		if err != nil {
			d.dropLocked(keyHash(key), entry)
			d.stats.Misses++
			return nil, false
		}
		data = out
	}
	d.stats.Hits++
	return data, true
}

// Put writes a chunk, evicting oldest files to stay under capacity.
func (d *Disk) Put(key string, value []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	data := value
	if d.encoder != nil {
		data = d.encoder.EncodeAll(value, nil)
	}
	size := int64(len(data))
	if size > d.capacity {
		return ErrItemTooLarge
	}

	hash := keyHash(key)
	path := filepath.Join(d.basePath, hash+diskExt)

	if old, ok := d.index[hash]; ok {
		d.size -= old.size
	}
	for d.size+size > d.capacity && len(d.index) > 0 {
		d.evictOldestLocked()
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write cache file: %w", err)
	}
	d.index[hash] = &diskEntry{path: path, size: size, modTime: time.Now()}
	d.size += size
	return nil
}

// Stats returns a snapshot of the tier's counters.
func (d *Disk) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := d.stats
	s.Size = d.size
	s.ItemCount = len(d.index)
	return s
}

// Close releases the compressor state.
func (d *Disk) Close() {
	d.decoder.Close()
	if d.encoder != nil {
		_ = d.encoder.Close()
	}
}

// scan rebuilds the index from the files already on disk.
func (d *Disk) scan() {
	entries, err := os.ReadDir(d.basePath)
	if err != nil {
		return
	}
	for _, de := range entries {
		if de.IsDir() || filepath.Ext(de.Name()) != diskExt {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		hash := de.Name()[:len(de.Name())-len(diskExt)]
		d.index[hash] = &diskEntry{
			path:    filepath.Join(d.basePath, de.Name()),
			size:    info.Size(),
			modTime: info.ModTime(),
		}
		d.size += info.Size()
	}
}

func (d *Disk) evictOldestLocked() {
	type aged struct {
		hash  string
		entry *diskEntry
	}
	all := make([]aged, 0, len(d.index))
	for h, e := range d.index {
		all = append(all, aged{h, e})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].entry.modTime.Before(all[j].entry.modTime) })
	if len(all) > 0 {
		d.dropLocked(all[0].hash, all[0].entry)
		d.stats.Evictions++
	}
}

func (d *Disk) dropLocked(hash string, entry *diskEntry) {
	_ = os.Remove(entry.path)
	delete(d.index, hash)
	d.size -= entry.size
}

func keyHash(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:16])
}

// isZstd checks for the zstd frame magic number.
func isZstd(data []byte) bool {
	return len(data) >= 4 &&
		data[0] == 0x28 && data[1] == 0xb5 && data[2] == 0x2f && data[3] == 0xfd
}
