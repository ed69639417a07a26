package ui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"

	"github.com/fifosk/playersync/internal/cache"
	"github.com/fifosk/playersync/internal/prefetch"
	"github.com/fifosk/playersync/internal/timing"
)

// loadTiming reads the word-timing payload for the narration. The path
// may be a single JSON file, or a directory of chunk files written
// incrementally by the narration pipeline. Directory chunks load through
// the prefetch loader with the two-tier cache behind it, so reopening a
// long book reuses already decoded chunks from disk.
func loadTiming(path string) (*timing.TimingPayload, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat timing path: %w", err)
	}
	if !st.IsDir() {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read timing file: %w", err)
		}
		return timing.DecodePayload(raw)
	}
	return loadTimingChunks(path)
}

func loadTimingChunks(dir string) (*timing.TimingPayload, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("list timing chunks: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no timing chunks in %s", dir)
	}
	sort.Strings(paths)

	var chunkCache prefetch.Cache
	if store := openChunkCache(); store != nil {
		defer store.Close()
		chunkCache = store
	}

	// Chunk files are write-once, so their paths are stable cache keys.
	loader := prefetch.NewLoader(readChunkFile, chunkCache, prefetch.DefaultConfig())
	chunks, err := loader.FetchAll(context.Background(), paths)
	if err != nil {
		return nil, err
	}

	parts := make([]*timing.TimingPayload, 0, len(paths))
	for _, p := range paths {
		part, err := timing.DecodePayload(chunks[p])
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", filepath.Base(p), err)
		}
		parts = append(parts, part)
	}
	return timing.Merge(parts...), nil
}

func readChunkFile(_ context.Context, path string) ([]byte, error) {
	return os.ReadFile(path)
}

// openChunkCache opens the persistent chunk cache under the user cache
// dir. A missing cache is not fatal, chunks are just re-read.
func openChunkCache() *cache.Store {
	cfg := cache.DefaultConfig()
	scope := gap.NewScope(gap.User, "playersync")
	if dir, err := scope.CacheDir(); err == nil {
		cfg.DiskPath = filepath.Join(dir, "chunks")
	}
	store, err := cache.NewStore(cfg)
	if err != nil {
		log.Debug("chunk cache unavailable", "err", err)
		return nil
	}
	return store
}
