package embedding

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Cache is a two-tier embedding cache keyed by a content hash of model and
// text. The in-memory map is checked first; on miss the per-key file under
// dir is checked and promoted into memory. There is no eviction; cleanup is
// an external operational concern.
//
// Caching is best-effort: disk failures are logged and swallowed so a cache
// problem can never abort the caller's embedding request.
type Cache struct {
	dir    string
	mem    map[string][]float32
	mu     sync.RWMutex
	hits   atomic.Int64
	misses atomic.Int64
	logger *zap.Logger
}

// CacheStats reports cache usage counters.
type CacheStats struct {
	MemoryCount int     `json:"memory_count"`
	DiskCount   int     `json:"disk_count"`
	Hits        int64   `json:"hits"`
	Misses      int64   `json:"misses"`
	HitRate     float64 `json:"hit_rate"`
}

// NewCache creates a cache rooted at dir. An empty dir disables the disk tier.
func NewCache(dir string, logger *zap.Logger) (*Cache, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create cache dir: %w", err)
		}
	}
	return &Cache{
		dir:    dir,
		mem:    make(map[string][]float32),
		logger: logger,
	}, nil
}

// CacheKey returns the content hash for (model, text). Identical inputs always
// produce the same key; SHA-256 collisions for distinct inputs are not handled.
func CacheKey(model, text string) string {
	sum := sha256.Sum256([]byte(model + ":" + text))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached embedding for (text, model) if present in either tier.
// Disk hits are promoted into memory.
func (c *Cache) Get(text, model string) ([]float32, bool) {
	key := CacheKey(model, text)

	c.mu.RLock()
	vec, ok := c.mem[key]
	c.mu.RUnlock()
	if ok {
		c.hits.Add(1)
		return vec, true
	}

	if c.dir != "" {
		data, err := os.ReadFile(c.filePath(key))
		if err == nil && len(data) > 0 && len(data)%4 == 0 {
			vec = bytesToVector(data)
			c.mu.Lock()
			c.mem[key] = vec
			c.mu.Unlock()
			c.hits.Add(1)
			return vec, true
		}
	}

	c.misses.Add(1)
	return nil, false
}

// Set stores the embedding for (text, model) in both tiers.
func (c *Cache) Set(text, model string, vec []float32) {
	key := CacheKey(model, text)

	c.mu.Lock()
	c.mem[key] = vec
	c.mu.Unlock()

	if c.dir == "" {
		return
	}
	if err := os.WriteFile(c.filePath(key), vectorToBytes(vec), 0644); err != nil {
		c.logger.Warn("embedding cache disk write failed", zap.String("key", key), zap.Error(err))
	}
}

// Clear removes all entries from both tiers and returns the number removed
// (counting each key once even when present in both tiers).
func (c *Cache) Clear() (int, error) {
	c.mu.Lock()
	keys := make(map[string]bool, len(c.mem))
	for k := range c.mem {
		keys[k] = true
	}
	c.mem = make(map[string][]float32)
	c.mu.Unlock()

	if c.dir != "" {
		entries, err := os.ReadDir(c.dir)
		if err != nil {
			return len(keys), fmt.Errorf("failed to read cache dir: %w", err)
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".vec") {
				continue
			}
			keys[strings.TrimSuffix(e.Name(), ".vec")] = true
			if err := os.Remove(filepath.Join(c.dir, e.Name())); err != nil {
				c.logger.Warn("embedding cache disk remove failed", zap.String("file", e.Name()), zap.Error(err))
			}
		}
	}
	return len(keys), nil
}

// Stats returns current usage counters.
func (c *Cache) Stats() CacheStats {
	c.mu.RLock()
	memCount := len(c.mem)
	c.mu.RUnlock()

	diskCount := 0
	if c.dir != "" {
		if entries, err := os.ReadDir(c.dir); err == nil {
			for _, e := range entries {
				if !e.IsDir() && strings.HasSuffix(e.Name(), ".vec") {
					diskCount++
				}
			}
		}
	}

	hits := c.hits.Load()
	misses := c.misses.Load()
	rate := 0.0
	if hits+misses > 0 {
		rate = float64(hits) / float64(hits+misses)
	}
	return CacheStats{
		MemoryCount: memCount,
		DiskCount:   diskCount,
		Hits:        hits,
		Misses:      misses,
		HitRate:     rate,
	}
}

func (c *Cache) filePath(key string) string {
	return filepath.Join(c.dir, key+".vec")
}

func vectorToBytes(vec []float32) []byte {
	out := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(out[i*4:(i+1)*4], math.Float32bits(v))
	}
	return out
}

func bytesToVector(data []byte) []float32 {
	out := make([]float32, len(data)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4 : (i+1)*4]))
	}
	return out
}
